// Package server is the WebSocket transport of the relay.
//
// It upgrades HTTP requests with gorilla/websocket, wraps every connection
// in a Client with its own read and write pumps, and reports connection
// events to a relay.Relay. It also serves the liveness text, the browser
// test page and the Prometheus endpoint, and owns the listener lifecycle.
package server
