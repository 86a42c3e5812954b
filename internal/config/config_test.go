package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subsim.yaml")
	yaml := `
server:
  base_url: http://sim.local:5001/
  timeout: 5s
poll:
  interval: 500ms
start:
  interval: 5
logging:
  level: debug
  format: json
history:
  file: history.jsonl
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "http://sim.local:5001", cfg.Server.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, 5, cfg.Start.Interval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "history.jsonl", cfg.History.File)
	assert.Equal(t, "/api/status", cfg.Server.Paths.Status)
	assert.Equal(t, DefaultHistoryTable, cfg.History.Greptime.Table)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.Server.BaseURL)
	assert.Equal(t, DefaultPollInterval, cfg.Poll.Interval)
	assert.Equal(t, DefaultStartInterval, cfg.Start.Interval)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.Error(t, err)
}

func TestLoadConfig_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "server:\n  host: nope\n",
		"bad level":      "logging:\n  level: loud\n",
		"bad interval":   "start:\n  interval: 0\n",
		"bad duration":   "poll:\n  interval: soon\n",
		"relative paths": "server:\n  paths:\n    status: api/status\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("bad.yaml", []byte(doc))
			require.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SUBSIM_SERVER", "http://override:9000")
	t.Setenv("SUBSIM_POLL_INTERVAL", "3s")
	t.Setenv("GREPTIMEDB_ENDPOINT", "greptime:4001")
	t.Setenv("GREPTIMEDB_TABLE", "status_rows")

	cfg, err := Parse("env.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://override:9000", cfg.Server.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "greptime:4001", cfg.History.Greptime.Endpoint)
	assert.Equal(t, "status_rows", cfg.History.Greptime.Table)

	t.Setenv("SUBSIM_POLL_INTERVAL", "often")
	_, err = Parse("env.yaml", nil)
	require.Error(t, err)
}
