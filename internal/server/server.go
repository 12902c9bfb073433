package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Tyrowin/wsrelay/internal/config"
	"github.com/Tyrowin/wsrelay/internal/relay"
)

// Server is the WebSocket transport around a relay.Relay. It owns the
// listener, upgrades requests, and runs one Client per connection.
type Server struct {
	relay    *relay.Relay
	logger   *slog.Logger
	level    *slog.LevelVar
	registry *prometheus.Registry
	metrics  config.MetricsConfig
	hub      hub
	upgrader websocket.Upgrader

	mu         sync.RWMutex
	cfg        config.ServerConfig
	origins    *originPolicy
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. It is also handed to the relay.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLevel lets Reload adjust the log level of the handler behind the
// logger.
func WithLevel(level *slog.LevelVar) Option {
	return func(s *Server) {
		s.level = level
	}
}

// WithRegistry registers metrics with reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New creates a Server for cfg. Nothing is bound until ListenAndServe or
// Serve is called.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		logger:  slog.Default(),
		cfg:     cfg.Server,
		metrics: cfg.Metrics,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	s.relay = relay.New(
		relay.WithLogger(s.logger),
		relay.WithMetrics(relay.NewMetrics(s.registry)),
		relay.WithWelcome(cfg.Server.Welcome),
	)

	s.origins = newOriginPolicy(cfg.Server.AllowedOrigins, s.logger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Relay returns the relay the server drives.
func (s *Server) Relay() *relay.Relay {
	return s.relay
}

// Reload applies the reloadable parts of cfg: allowed origins, message size
// and send buffer for new connections, and the log level. Listen address
// changes need a restart.
func (s *Server) Reload(cfg *config.Config) {
	s.mu.Lock()
	if cfg.Server.Addr() != s.cfg.Addr() {
		s.logger.Warn("listen address change ignored until restart",
			"current", s.cfg.Addr(), "configured", cfg.Server.Addr())
	}
	host, port := s.cfg.Host, s.cfg.Port
	s.cfg = cfg.Server
	s.cfg.Host, s.cfg.Port = host, port
	s.origins = newOriginPolicy(cfg.Server.AllowedOrigins, s.logger)
	s.mu.Unlock()

	if s.level != nil {
		s.level.Set(cfg.Log.SlogLevel())
	}
	s.logger.Info("configuration applied",
		"allowed_origins", cfg.Server.AllowedOrigins,
		"max_message_size", cfg.Server.MaxMessageSize,
		"send_buffer", cfg.Server.SendBuffer,
		"log_level", cfg.Log.SlogLevel().String(),
	)
}

func (s *Server) settings() clientSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clientSettings{
		maxMessageSize: s.cfg.MaxMessageSize,
		sendBuffer:     s.cfg.SendBuffer,
		writeWait:      s.cfg.WriteTimeout,
		pongWait:       s.cfg.PongTimeout,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	s.mu.RLock()
	policy := s.origins
	s.mu.RUnlock()

	if policy.allows(r) {
		return true
	}
	s.logger.Warn("blocked WebSocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
	return false
}
