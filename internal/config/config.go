// Package config loads the relay configuration from a YAML file, applies
// environment overrides, validates the result, and watches the file for
// changes.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the relay configuration.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultMaxMessageSize  = 1 << 20
	DefaultSendBuffer      = 256
	DefaultWriteTimeout    = 10 * time.Second
	DefaultPongTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMetricsPath     = "/metrics"
)

// Config is the full relay configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds listener and per-connection transport settings.
type ServerConfig struct {
	// Host is the interface to bind (default 0.0.0.0, all interfaces).
	Host string `yaml:"host"`

	// Port is the TCP port to listen on (default 8080). Zero picks a free port.
	Port int `yaml:"port"`

	// AllowedOrigins lists the Origin values accepted on upgrade. "*" accepts
	// any origin, including requests without an Origin header.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the largest inbound frame in bytes. Zero disables the
	// limit.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// SendBuffer is the depth of each connection's outbound queue. A peer
	// whose queue overflows is disconnected.
	SendBuffer int `yaml:"send_buffer"`

	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PongTimeout is how long a connection may stay silent before it is
	// considered dead. Pings are sent at 9/10 of this interval.
	PongTimeout time.Duration `yaml:"pong_timeout"`

	// ShutdownTimeout bounds how long shutdown waits for connections to drain.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Welcome is the greeting format sent on connect; %s is the identity.
	Welcome string `yaml:"welcome"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	// Level is one of debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of json | text.
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SlogLevel converts the configured level to a slog.Level. Unknown values
// map to Info; Validate rejects them before they get here.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			AllowedOrigins:  []string{"*"},
			MaxMessageSize:  DefaultMaxMessageSize,
			SendBuffer:      DefaultSendBuffer,
			WriteTimeout:    DefaultWriteTimeout,
			PongTimeout:     DefaultPongTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	ApplyEnv(cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	s := c.Server
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range [0, 65535]", s.Port)
	}
	if s.MaxMessageSize < 0 {
		return fmt.Errorf("server.max_message_size must not be negative")
	}
	if s.SendBuffer <= 0 {
		return fmt.Errorf("server.send_buffer must be positive, got %d", s.SendBuffer)
	}
	if s.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	if s.PongTimeout <= 0 {
		return fmt.Errorf("server.pong_timeout must be positive")
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	if s.Welcome != "" && (strings.Count(s.Welcome, "%") != 1 || !strings.Contains(s.Welcome, "%s")) {
		return fmt.Errorf("server.welcome %q must contain exactly one %%s", s.Welcome)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", c.Log.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}
	return nil
}
