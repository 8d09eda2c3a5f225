// Package config loads and validates the node configuration. Topic subjects
// are deliberately absent: they are part of the external wire contract and
// fixed in the comms package.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/c360/robolink/errors"
)

// Config represents the complete node configuration
type Config struct {
	NATS    NATSConfig    `json:"nats"`
	Log     LogConfig     `json:"log"`
	Loop    LoopConfig    `json:"loop"`
	Metrics MetricsConfig `json:"metrics"`
}

// NATSConfig holds transport session settings
type NATSConfig struct {
	URL             string `json:"url"`
	Name            string `json:"name"`
	MaxReconnects   int    `json:"max_reconnects"`
	ReconnectWaitMS int    `json:"reconnect_wait_ms"`
	TimeoutMS       int    `json:"timeout_ms"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
	Token           string `json:"token,omitempty"`
}

// ReconnectWait returns the reconnect wait as a duration
func (n NATSConfig) ReconnectWait() time.Duration {
	return time.Duration(n.ReconnectWaitMS) * time.Millisecond
}

// Timeout returns the connect timeout as a duration
func (n NATSConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutMS) * time.Millisecond
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
}

// LoopConfig holds control loop pacing
type LoopConfig struct {
	StepIntervalMS int `json:"step_interval_ms"` // pause after an executed step
	IdlePauseMS    int `json:"idle_pause_ms"`    // pause when the trajectory is empty
}

// StepInterval returns the step pause as a duration
func (l LoopConfig) StepInterval() time.Duration {
	return time.Duration(l.StepIntervalMS) * time.Millisecond
}

// IdlePause returns the idle pause as a duration
func (l LoopConfig) IdlePause() time.Duration {
	return time.Duration(l.IdlePauseMS) * time.Millisecond
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// Default returns the configuration used when no file is provided
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:             "nats://127.0.0.1:4222",
			Name:            "robolink",
			MaxReconnects:   -1,
			ReconnectWaitMS: 2000,
			TimeoutMS:       5000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Loop: LoopConfig{
			StepIntervalMS: 100,
			IdlePauseMS:    1000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// Load reads a JSON config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "Config", "Load", "read config file")
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"Config", "Load", "parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return errors.WrapFatal(
			fmt.Errorf("%w: nats.url is required", errors.ErrMissingConfig),
			"Config", "Validate", "nats url")
	}
	if c.NATS.TimeoutMS <= 0 {
		return errors.WrapFatal(
			fmt.Errorf("%w: nats.timeout_ms must be positive", errors.ErrInvalidConfig),
			"Config", "Validate", "nats timeout")
	}
	if c.NATS.ReconnectWaitMS < 0 {
		return errors.WrapFatal(
			fmt.Errorf("%w: nats.reconnect_wait_ms cannot be negative", errors.ErrInvalidConfig),
			"Config", "Validate", "nats reconnect wait")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapFatal(
			fmt.Errorf("%w: unknown log level %q", errors.ErrInvalidConfig, c.Log.Level),
			"Config", "Validate", "log level")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.WrapFatal(
			fmt.Errorf("%w: unknown log format %q", errors.ErrInvalidConfig, c.Log.Format),
			"Config", "Validate", "log format")
	}

	if c.Loop.StepIntervalMS <= 0 || c.Loop.IdlePauseMS <= 0 {
		return errors.WrapFatal(
			fmt.Errorf("%w: loop intervals must be positive", errors.ErrInvalidConfig),
			"Config", "Validate", "loop intervals")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.WrapFatal(
			fmt.Errorf("%w: metrics.addr is required when metrics are enabled", errors.ErrMissingConfig),
			"Config", "Validate", "metrics addr")
	}
	return nil
}
