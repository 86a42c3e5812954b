// YAML config loader with CUE validation integration
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

// Defaults mirror the simulator's stock deployment.
const (
	DefaultBaseURL       = "http://localhost:5001"
	DefaultPollInterval  = 2 * time.Second
	DefaultStartInterval = 15
	DefaultGreptimeDB    = "public"
	DefaultHistoryTable  = "simulator_status"
)

// Paths lists the simulator endpoints consumed by the client.
type Paths struct {
	Status  string `yaml:"status"`
	Configs string `yaml:"configs"`
	Start   string `yaml:"start"`
	Stop    string `yaml:"stop"`
	Trigger string `yaml:"trigger"`
	Publish string `yaml:"publish"`
}

// Server describes how to reach the simulator.
type Server struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	Paths     Paths         `yaml:"paths"`
}

// Poll controls the status poller cadence.
type Poll struct {
	Interval time.Duration `yaml:"interval"`
}

// Start holds the defaults for the start command.
type Start struct {
	Interval int `yaml:"interval"`
}

// Catalog points at an optional event catalog override.
type Catalog struct {
	Path string `yaml:"path"`
}

// Logging configures the zerolog logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Greptime configures the optional GreptimeDB history writer.
type Greptime struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// History configures where applied snapshots are recorded.
type History struct {
	File     string   `yaml:"file"`
	Greptime Greptime `yaml:"greptime"`
}

// Admin configures the local admin/metrics listener.
type Admin struct {
	Addr string `yaml:"addr"`
}

// Config is the root client configuration.
type Config struct {
	Server  Server  `yaml:"server"`
	Poll    Poll    `yaml:"poll"`
	Start   Start   `yaml:"start"`
	Catalog Catalog `yaml:"catalog"`
	Logging Logging `yaml:"logging"`
	History History `yaml:"history"`
	Admin   Admin   `yaml:"admin"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path, validates it against the embedded CUE
// schema and applies defaults and environment overrides. A missing file is
// not an error when allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			data = nil
		} else {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	}
	return Parse(path, data)
}

// Parse validates and decodes a YAML document.
func Parse(name string, data []byte) (*Config, error) {
	if err := ValidateBytes(name, data, schemaCUE, "#Config"); err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SUBSIM_SERVER"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("SUBSIM_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SUBSIM_POLL_INTERVAL: %w", err)
		}
		c.Poll.Interval = d
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.History.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_TABLE"); v != "" {
		c.History.Greptime.Table = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = DefaultBaseURL
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.UserAgent == "" {
		c.Server.UserAgent = "subsim-ctl/1.0"
	}
	p := &c.Server.Paths
	if p.Status == "" {
		p.Status = "/api/status"
	}
	if p.Configs == "" {
		p.Configs = "/api/mqtt_configs"
	}
	if p.Start == "" {
		p.Start = "/start"
	}
	if p.Stop == "" {
		p.Stop = "/stop"
	}
	if p.Trigger == "" {
		p.Trigger = "/trigger_event"
	}
	if p.Publish == "" {
		p.Publish = "/trigger_immediate_refresh"
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = DefaultPollInterval
	}
	if c.Start.Interval <= 0 {
		c.Start.Interval = DefaultStartInterval
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.History.Greptime.Database == "" {
		c.History.Greptime.Database = DefaultGreptimeDB
	}
	if c.History.Greptime.Table == "" {
		c.History.Greptime.Table = DefaultHistoryTable
	}
}
