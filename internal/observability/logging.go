package observability

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger.
// format is "json" or "console".
func SetupLogger(level, format string) error {
	return setupLogger(os.Stderr, level, format)
}

func setupLogger(w io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	switch format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	zerolog.SetGlobalLevel(lvl)
	zerolog.DefaultContextLogger = &log.Logger
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}
