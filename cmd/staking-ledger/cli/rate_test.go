package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRateCmd(t *testing.T) {
	out, err := runRate(t, "10")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = runRate(t, "--from-rate", "1000000000")
	require.NoError(t, err)
	assert.Equal(t, "3155760000.0000\n", out)

	_, err = runRate(t, "-5")
	assert.Error(t, err)

	_, err = runRate(t, "abc")
	assert.Error(t, err)
}
