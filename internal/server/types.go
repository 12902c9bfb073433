package server

import (
	"errors"
	"io"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/wsrelay/internal/relay"
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

// isOrderlyClose reports whether a read error means the peer went away
// normally rather than the connection failing.
func isOrderlyClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, io.EOF) || isExpectedCloseError(err)
}

// kindOf maps a WebSocket frame type to a relay message kind.
func kindOf(messageType int) relay.Kind {
	if messageType == websocket.BinaryMessage {
		return relay.KindBinary
	}
	return relay.KindText
}

// frameType maps a relay message kind to a WebSocket frame type.
func frameType(k relay.Kind) int {
	if k == relay.KindBinary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
