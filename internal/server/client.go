package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/wsrelay/internal/relay"
)

// Events is the subset of *relay.Relay a Client reports to.
type Events interface {
	OnMessage(c relay.Conn, msg relay.Message) relay.Delivery
	OnClosed(c relay.Conn)
	OnErrored(c relay.Conn, cause error)
}

// clientSettings are the per-connection limits captured at accept time.
type clientSettings struct {
	maxMessageSize int64
	sendBuffer     int
	writeWait      time.Duration
	pongWait       time.Duration
}

// pingPeriod must be less than pongWait.
func (s clientSettings) pingPeriod() time.Duration {
	return (s.pongWait * 9) / 10
}

// Client adapts one WebSocket connection to relay.Conn. A read pump turns
// inbound frames into relay events; a write pump is the connection's only
// writer and drains the bounded send queue one frame per message.
type Client struct {
	conn     *websocket.Conn
	id       string
	events   Events
	settings clientSettings
	logger   *slog.Logger

	mu     sync.Mutex
	send   chan relay.Message
	closed bool
}

// newClient wraps conn. id is the presentational identity.
func newClient(conn *websocket.Conn, id string, events Events, settings clientSettings, logger *slog.Logger) *Client {
	if conn != nil && settings.maxMessageSize > 0 {
		conn.SetReadLimit(settings.maxMessageSize)
	}
	return &Client{
		conn:     conn,
		id:       id,
		events:   events,
		settings: settings,
		logger:   logger.With("conn", id),
		send:     make(chan relay.Message, settings.sendBuffer),
	}
}

// ID returns the client's identity.
func (c *Client) ID() string {
	return c.id
}

// Send queues msg for the write pump without blocking.
func (c *Client) Send(msg relay.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return relay.ErrConnClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return relay.ErrSendQueueFull
	}
}

// Close stops accepting messages. The write pump flushes what is already
// queued, sends a close frame and releases the socket. Close is idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.settings.pongWait)); err != nil {
		c.logger.Warn("setting initial read deadline", "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.settings.pongWait))
	})
}

// handleReadError reports the end of the read loop to the relay as either a
// close or an error.
func (c *Client) handleReadError(err error) {
	if errors.Is(err, websocket.ErrReadLimit) {
		c.events.OnErrored(c, fmt.Errorf("message exceeded %d bytes: %w", c.settings.maxMessageSize, err))
		return
	}
	if isOrderlyClose(err) {
		c.logger.Debug("client disconnected", "reason", err)
		c.events.OnClosed(c)
		return
	}
	c.events.OnErrored(c, err)
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		c.events.OnMessage(c, relay.Message{Kind: kindOf(messageType), Payload: payload})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.settings.pingPeriod())
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case msg, ok := <-c.send:
		return c.handleMessage(msg, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection closes the socket, ignoring errors from a socket that is
// already gone.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("closing connection", "err", err)
	}
}

// handleMessage writes one queued message; a closed queue means the client
// is being released.
func (c *Client) handleMessage(msg relay.Message, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.settings.writeWait)); err != nil {
		c.writeFailed(err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(frameType(msg.Kind), msg.Payload); err != nil {
		c.writeFailed(err)
		return false
	}
	return true
}

// writeCloseMessage sends a close frame to the client
func (c *Client) writeCloseMessage() bool {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("writing close frame", "err", err)
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.settings.writeWait)); err != nil {
		c.writeFailed(err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.writeFailed(err)
		return false
	}
	return true
}

// writeFailed reports a write error and stops further sends.
func (c *Client) writeFailed(err error) {
	if isExpectedCloseError(err) {
		c.events.OnClosed(c)
	} else {
		c.events.OnErrored(c, err)
	}
	c.Close()
}
