package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	require.NoError(t, setupLogger(&buf, "warn", "json"))

	log.Info().Msg("dropped")
	log.Warn().Str("pool", "p1").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "p1", entry["pool"])

	assert.Error(t, setupLogger(&buf, "loud", "json"))
	assert.Error(t, setupLogger(&buf, "info", "xml"))
}
