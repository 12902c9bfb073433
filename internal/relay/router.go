package relay

import (
	"fmt"
	"log/slog"
)

const (
	echoPrefix      = "Echo: "
	broadcastPrefix = "Message from %s: "
)

// Delivery summarizes what Route did with one message. It is informational;
// routing never fails as a whole.
type Delivery struct {
	Echoed    bool
	Delivered int
	Failed    int
}

// Router applies the echo + broadcast policy to received messages.
type Router struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *Metrics
}

// NewRouter creates a Router that broadcasts to members of registry.
func NewRouter(registry *Registry, logger *slog.Logger, metrics *Metrics) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{registry: registry, logger: logger, metrics: metrics}
}

// Route echoes msg to sender and broadcasts it to every other registered
// connection.
//
// The echo is attempted first and independently of the broadcast. Each
// recipient is sent to from a snapshot of the registry; a recipient whose
// send fails is evicted (deregistered and closed) after the loop, and the
// remaining recipients are unaffected. A failed echo evicts the sender the
// same way but does not stop the broadcast.
//
// Frames still in flight from a sender that is no longer registered, such as
// one evicted for a full queue, are dropped.
func (rt *Router) Route(sender Conn, msg Message) Delivery {
	var d Delivery
	if !rt.registry.Contains(sender) {
		rt.logger.Debug("dropping message from unregistered connection", "conn", sender.ID())
		return d
	}
	rt.metrics.messageReceived(msg.Kind)
	rt.logger.Debug("message received", "conn", sender.ID(), "kind", msg.Kind.String(), "bytes", len(msg.Payload))

	if err := sender.Send(msg.withPrefix(echoPrefix)); err != nil {
		rt.metrics.sendFailed(deliveryEcho)
		rt.logger.Warn("echo failed", "conn", sender.ID(), "err", err)
		rt.evict(sender)
	} else {
		rt.metrics.delivered(deliveryEcho)
		d.Echoed = true
	}

	out := msg.withPrefix(fmt.Sprintf(broadcastPrefix, sender.ID()))

	var failed []Conn
	for _, c := range rt.registry.Snapshot() {
		if c == sender {
			continue
		}
		if err := c.Send(out); err != nil {
			rt.metrics.sendFailed(deliveryBroadcast)
			rt.logger.Warn("broadcast send failed", "from", sender.ID(), "conn", c.ID(), "err", err)
			failed = append(failed, c)
			continue
		}
		rt.metrics.delivered(deliveryBroadcast)
		d.Delivered++
	}

	for _, c := range failed {
		rt.evict(c)
	}
	d.Failed = len(failed)

	rt.logger.Debug("message routed", "conn", sender.ID(), "echoed", d.Echoed, "delivered", d.Delivered, "failed", d.Failed)
	return d
}

// evict removes c from the registry and asks the transport to release it.
// A connection that was already gone is only closed.
func (rt *Router) evict(c Conn) {
	if rt.registry.Deregister(c) {
		rt.metrics.evicted()
	}
	c.Close()
}
