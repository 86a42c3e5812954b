package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subsim-ctl/internal/config"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := Setup(config.Logging{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer cleanup()

	logger.Info().Msg("hidden")
	logger.Warn().Str("op", "status").Msg("poll failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"op":"status"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, _, err := Setup(config.Logging{Level: "chatty"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	logger, cleanup, err := Setup(config.Logging{Level: "info", Format: "text", File: path}, nil)
	require.NoError(t, err)
	logger.Info().Msg("to file")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Setup(config.Logging{Format: "json"}, &buf)
	require.NoError(t, err)

	ctx := NewContext(context.Background(), logger)
	FromContext(ctx).Info().Msg("from ctx")
	assert.Contains(t, buf.String(), "from ctx")
}
