package relay

import (
	"log/slog"
)

// Relay is the event sink a transport adapter drives. It owns one Registry
// and one Router and translates connection events into membership changes
// and message routing.
type Relay struct {
	registry *Registry
	router   *Router
	logger   *slog.Logger
	metrics  *Metrics
	welcome  string
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger used by the relay and its components.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records relay activity in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// WithWelcome overrides the welcome format. See NewRegistry.
func WithWelcome(format string) Option {
	return func(r *Relay) {
		r.welcome = format
	}
}

// New creates a Relay with an empty registry.
func New(opts ...Option) *Relay {
	r := &Relay{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.registry = NewRegistry(r.welcome, r.logger, r.metrics)
	r.router = NewRouter(r.registry, r.logger, r.metrics)
	return r
}

// Registry exposes the relay's registry.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// OnConnected registers a newly accepted connection. A non-nil error means
// the connection was not registered and should be released by the caller.
func (r *Relay) OnConnected(c Conn) error {
	if err := r.registry.Register(c); err != nil {
		r.logger.Warn("connection rejected", "conn", c.ID(), "err", err)
		return err
	}
	return nil
}

// OnMessage routes a message received from c.
func (r *Relay) OnMessage(c Conn, msg Message) Delivery {
	return r.router.Route(c, msg)
}

// OnClosed handles an orderly close of c.
func (r *Relay) OnClosed(c Conn) {
	if r.registry.Deregister(c) {
		r.logger.Info("connection closed", "conn", c.ID())
	}
}

// OnErrored handles a transport failure on c.
func (r *Relay) OnErrored(c Conn, cause error) {
	r.logger.Warn("connection error", "conn", c.ID(), "err", cause)
	r.registry.Deregister(c)
}

// Size returns the number of live connections.
func (r *Relay) Size() int {
	return r.registry.Size()
}

// Shutdown stops accepting registrations and closes every live connection.
// It returns the number of connections released.
func (r *Relay) Shutdown() int {
	conns := r.registry.Close()
	for _, c := range conns {
		c.Close()
	}
	r.logger.Info("relay shut down", "released", len(conns))
	return len(conns)
}
