package relay

import (
	"fmt"
	"log/slog"
	"sync"
)

// DefaultWelcome is the greeting sent to every newly registered connection.
// The connection's identity is substituted for %s.
const DefaultWelcome = "Hello from WebSocket relay server! You are %s"

// Registry is the authoritative set of live connections. Membership changes
// and broadcast snapshots are serialized by a single RWMutex, so iteration
// never observes a partially updated set.
type Registry struct {
	mu      sync.RWMutex
	conns   map[Conn]struct{}
	closed  bool
	welcome string
	logger  *slog.Logger
	metrics *Metrics
}

// NewRegistry creates an empty registry. The welcome format must contain a
// single %s verb for the connection identity; an empty string selects
// DefaultWelcome.
func NewRegistry(welcome string, logger *slog.Logger, metrics *Metrics) *Registry {
	if welcome == "" {
		welcome = DefaultWelcome
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:   make(map[Conn]struct{}),
		welcome: welcome,
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds c to the registry after sending it the welcome message.
//
// The welcome is queued while the write lock is held, so it always precedes
// any broadcast c can receive. If the welcome cannot be queued, c is treated
// as already broken and is not added. Registering a connection that is
// already present is a no-op.
func (r *Registry) Register(c Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, ok := r.conns[c]; ok {
		return nil
	}

	if err := c.Send(Text(fmt.Sprintf(r.welcome, c.ID()))); err != nil {
		r.metrics.sendFailed(deliveryWelcome)
		return fmt.Errorf("welcome %s: %w", c.ID(), err)
	}
	r.metrics.delivered(deliveryWelcome)

	r.conns[c] = struct{}{}
	r.metrics.setConnections(len(r.conns))
	r.logger.Info("connection registered", "conn", c.ID(), "total", len(r.conns))
	return nil
}

// Deregister removes c and reports whether it was present. Removing an
// absent connection is a no-op, so the close and error paths may both call
// it for the same connection.
func (r *Registry) Deregister(c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; !ok {
		return false
	}
	delete(r.conns, c)
	r.metrics.setConnections(len(r.conns))
	r.logger.Info("connection deregistered", "conn", c.ID(), "total", len(r.conns))
	return true
}

// Size returns the number of live connections.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Contains reports whether c is currently registered.
func (r *Registry) Contains(c Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[c]
	return ok
}

// Snapshot returns a copy of the current membership.
func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// Close stops further registrations and removes every member, returning
// them so the caller can release their handles.
func (r *Registry) Close() []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	conns := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
		delete(r.conns, c)
	}
	r.metrics.setConnections(0)
	return conns
}
