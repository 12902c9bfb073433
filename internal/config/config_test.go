package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(DefaultMaxMessageSize), cfg.Server.MaxMessageSize)
	assert.Equal(t, DefaultSendBuffer, cfg.Server.SendBuffer)
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, DefaultPongTimeout, cfg.Server.PongTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
  allowed_origins:
    - http://example.com
  max_message_size: 4096
  send_buffer: 8
  write_timeout: 2s
  pong_timeout: 30s
  welcome: "welcome, %s"
log:
  level: debug
  format: text
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, []string{"http://example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(4096), cfg.Server.MaxMessageSize)
	assert.Equal(t, 8, cfg.Server.SendBuffer)
	assert.Equal(t, 2*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.PongTimeout)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "welcome, %s", cfg.Server.Welcome)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "server: [unclosed"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"negative size", "server:\n  max_message_size: -1\n"},
		{"zero send buffer", "server:\n  send_buffer: 0\n"},
		{"bad welcome", "server:\n  welcome: \"no verb\"\n"},
		{"two verbs", "server:\n  welcome: \"%s and %d\"\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"bad metrics path", "metrics:\n  enabled: true\n  path: metrics\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RELAY_HOST":       "127.0.0.1",
		"SERVER_PORT":      ":7000",
		"RELAY_PORT":       "7100",
		"ALLOWED_ORIGINS":  "http://a.test, http://b.test ,",
		"MAX_MESSAGE_SIZE": "2048",
		"SEND_BUFFER":      "32",
		"SHUTDOWN_TIMEOUT": "3",
		"LOG_LEVEL":        " WARN ",
		"LOG_FORMAT":       "text",
	}
	cfg := Default()
	ApplyEnv(cfg, func(k string) string { return env[k] })

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(2048), cfg.Server.MaxMessageSize)
	assert.Equal(t, 32, cfg.Server.SendBuffer)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvInvalidValuesKeepDefaults(t *testing.T) {
	env := map[string]string{
		"RELAY_PORT":       "not-a-port",
		"MAX_MESSAGE_SIZE": "-5",
		"SEND_BUFFER":      "0",
		"SHUTDOWN_TIMEOUT": "soon",
	}
	cfg := Default()
	ApplyEnv(cfg, func(k string) string { return env[k] })

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, int64(DefaultMaxMessageSize), cfg.Server.MaxMessageSize)
	assert.Equal(t, DefaultSendBuffer, cfg.Server.SendBuffer)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
}

// waitForLevel drains reloads until one carries level. A single save can
// surface as several events, some of which observe a truncated file.
func waitForLevel(t *testing.T, reloaded <-chan *Config, level string) {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			assert.NotEqual(t, "loud", cfg.Log.Level)
			if cfg.Log.Level == level {
				return
			}
		case <-deadline:
			t.Fatalf("reload to level %q was not observed", level)
		}
	}
}

func TestWatchReloads(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	dir := filepath.Dir(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, slog.New(slog.NewTextHandler(os.Stderr, nil)), func(cfg *Config) {
			select {
			case reloaded <- cfg:
			case <-ctx.Done():
			}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	// An invalid edit is ignored.
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	waitForLevel(t, reloaded, "debug")

	// Editor-style save: write a temp file, then rename it over the config.
	tmp := filepath.Join(dir, ".relay.yaml.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("log:\n  level: warn\n"), 0o600))
	require.NoError(t, os.Rename(tmp, path))
	waitForLevel(t, reloaded, "warn")

	// The watch survives the replacement.
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))
	waitForLevel(t, reloaded, "error")

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("log:\n  level: debug\n"), 0o600))
	select {
	case cfg := <-reloaded:
		assert.Equal(t, "error", cfg.Log.Level, "unexpected reload from a sibling file")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchMissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), nil, func(*Config) {})
	assert.Error(t, err)
}
