// Package wstest provides helpers for exercising the relay over real
// WebSocket connections in tests.
//
// It covers dialing an httptest server and reading frames with deadlines,
// so package tests do not repeat that plumbing.
package wstest

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every read helper unless a caller passes its own.
const DefaultTimeout = 2 * time.Second

// URL converts an httptest server URL ("http://127.0.0.1:port") into a
// WebSocket URL for path.
func URL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

// Dial opens a WebSocket connection to url with an optional Origin header.
func Dial(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Connect dials url and fails the test on error. The connection is closed
// when the test ends.
func Connect(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := Dial(url, "")
	require.NoError(t, err, "connect to %s", url)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// ConnectWelcomed dials url, reads the welcome frame and returns both.
func ConnectWelcomed(t *testing.T, url string) (*websocket.Conn, string) {
	t.Helper()

	conn := Connect(t, url)
	welcome := ReadText(t, conn)
	return conn, welcome
}

// ReadText reads one frame within DefaultTimeout and returns it as a string.
func ReadText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	_, data := ReadFrame(t, conn)
	return string(data)
}

// ReadFrame reads one frame within DefaultTimeout.
func ReadFrame(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err, "read message")
	return messageType, data
}

// ReadN reads n text frames.
func ReadN(t *testing.T, conn *websocket.Conn, n int) []string {
	t.Helper()

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ReadText(t, conn))
	}
	return out
}

// ExpectNoMessage fails the test if a data frame arrives within timeout.
// The connection cannot be read from afterwards.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	assert.Error(t, err, "expected no message, got %q", data)
}

// SendText writes a text frame.
func SendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)), "send message")
}

// CloseGracefully sends a normal-closure frame and closes conn.
func CloseGracefully(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
