package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Log formats.
const (
	LogJSON    = "json"
	LogConsole = "console"
)

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (cfg *LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("level: %w", err)
	}
	if cfg.Format != LogJSON && cfg.Format != LogConsole {
		return fmt.Errorf("unknown format %q", cfg.Format)
	}
	return nil
}
