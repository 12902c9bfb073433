package config

import (
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides cfg with values from the environment. getenv is
// usually os.Getenv; tests pass a map lookup. Unparseable values are
// ignored and the previous value is kept.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if host := getenv("RELAY_HOST"); host != "" {
		cfg.Server.Host = host
	}

	// RELAY_PORT wins over the older SERVER_PORT.
	for _, key := range []string{"SERVER_PORT", "RELAY_PORT"} {
		if port := getenv(key); port != "" {
			cfg.Server.Port = parsePort(port, cfg.Server.Port)
		}
	}

	if origins := getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.Server.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.Server.MaxMessageSize)
	}

	if buf := getenv("SEND_BUFFER"); buf != "" {
		cfg.Server.SendBuffer = parseIntValue(buf, cfg.Server.SendBuffer)
	}

	if timeout := getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.Server.ShutdownTimeout = parseDuration(timeout, cfg.Server.ShutdownTimeout)
	}

	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(level))
	}

	if format := getenv("LOG_FORMAT"); format != "" {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(format))
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePort accepts "8080" as well as the ":8080" address form.
func parsePort(value string, defaultValue int) int {
	value = strings.TrimPrefix(strings.TrimSpace(value), ":")
	if port, err := strconv.Atoi(value); err == nil && port >= 0 && port <= 65535 {
		return port
	}
	return defaultValue
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size >= 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseDuration accepts Go duration strings ("5s") or plain seconds ("5").
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
