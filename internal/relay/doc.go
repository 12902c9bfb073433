// Package relay implements the connection registry and the echo + broadcast
// policy of the WebSocket relay.
//
// The package knows nothing about sockets. A transport adapter hands it
// connections that satisfy Conn and reports their lifecycle through the
// Relay event methods (OnConnected, OnMessage, OnClosed, OnErrored). The
// Registry is the single synchronization point for membership; the Router
// fans each received message out to a consistent snapshot of it, isolating
// every per-recipient send failure.
package relay
