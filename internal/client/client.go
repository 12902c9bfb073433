// Package client is an interactive console client for the relay.
//
// It sends each input line as a text message, uploads files as a JSON
// metadata frame followed by a binary frame, and prints every frame the
// relay sends back.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/wsrelay/internal/relay"
)

const (
	// writeWait bounds every frame write.
	writeWait = 10 * time.Second
	// closeWait is how long Run waits for the relay to answer a close frame.
	closeWait = 2 * time.Second

	quitCommand    = "/quit"
	fileCommand    = "/file "
	fileCommandAlt = "file:"
)

// FileMeta is the text frame sent ahead of a file's content.
type FileMeta struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// Client is a connection to a relay.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger
	header http.Header

	writeMu sync.Mutex
}

// Option configures Dial.
type Option func(*Client)

// WithHeader adds request headers to the handshake, such as Origin.
func WithHeader(h http.Header) Option {
	return func(c *Client) {
		c.header = h
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Dial connects to the relay at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c.conn = conn
	c.logger.Debug("connected", "url", url, "local", conn.LocalAddr().String())
	return c, nil
}

// LocalAddr is the address the relay identifies this client by.
func (c *Client) LocalAddr() string {
	return c.conn.LocalAddr().String()
}

// SendText sends text as one text frame.
func (c *Client) SendText(text string) error {
	return c.write(websocket.TextMessage, []byte(text))
}

// SendFile sends the metadata of the file at path, tagged with url, as a
// JSON text frame and then its content as one binary frame.
func (c *Client) SendFile(path, url string) (FileMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileMeta{}, fmt.Errorf("read file: %w", err)
	}

	meta := FileMeta{Type: "file", URL: url, FileName: filepath.Base(path), FileSize: int64(len(data))}
	header, err := json.Marshal(meta)
	if err != nil {
		return FileMeta{}, fmt.Errorf("encode file metadata: %w", err)
	}

	if err := c.write(websocket.TextMessage, header); err != nil {
		return FileMeta{}, fmt.Errorf("send file metadata: %w", err)
	}
	if err := c.write(websocket.BinaryMessage, data); err != nil {
		return FileMeta{}, fmt.Errorf("send file content: %w", err)
	}
	return meta, nil
}

// Receive blocks for the next frame from the relay.
func (c *Client) Receive() (relay.Message, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		return relay.Message{}, err
	}
	kind := relay.KindText
	if messageType == websocket.BinaryMessage {
		kind = relay.KindBinary
	}
	return relay.Message{Kind: kind, Payload: data}, nil
}

// Close sends a normal-closure frame and closes the connection.
func (c *Client) Close() error {
	err := c.writeClose()
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) writeClose() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

// Run drives an interactive session: frames from the relay are printed to
// out, and lines read from in are sent until "/quit", end of input or ctx
// cancellation. "/file <path> [url]" (or "file:<path>:<url>") uploads a
// file.
//
// Run closes the connection before returning. A close initiated by either
// side with a normal status is not an error.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	w := &syncWriter{w: out}

	received := make(chan error, 1)
	go func() { received <- c.printFrames(w) }()

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	_, _ = fmt.Fprintln(w, "Connected! Commands:")
	_, _ = fmt.Fprintln(w, "  /file <path> [url]   send a file (also file:<path>:<url>)")
	_, _ = fmt.Fprintln(w, "  /quit                disconnect")
	_, _ = fmt.Fprintln(w, "  [any text]           send a text message")

	for {
		select {
		case <-ctx.Done():
			return c.finish(received)
		case err := <-received:
			_ = c.conn.Close()
			_, _ = fmt.Fprintln(w, "Connection closed by server")
			if isNormalClose(err) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		case line, ok := <-lines:
			if !ok {
				return c.finish(received)
			}
			quit, err := c.handleLine(line, w)
			if err != nil {
				_ = c.conn.Close()
				return err
			}
			if quit {
				return c.finish(received)
			}
		}
	}
}

func (c *Client) handleLine(line string, w io.Writer) (quit bool, err error) {
	switch {
	case strings.TrimSpace(line) == "":
		return false, nil
	case strings.TrimSpace(line) == quitCommand:
		return true, nil
	case strings.HasPrefix(line, fileCommand), strings.HasPrefix(line, fileCommandAlt):
		path, url, ok := parseFileCommand(line)
		if !ok {
			_, _ = fmt.Fprintln(w, "Invalid file command. Use: /file <path> [url] or file:<path>:<url>")
			return false, nil
		}
		meta, err := c.SendFile(path, url)
		if err != nil {
			// Reported, but the session goes on.
			_, _ = fmt.Fprintf(w, "Failed to send file: %v\n", err)
			return false, nil
		}
		_, _ = fmt.Fprintf(w, "Sent file: %s (%d bytes)\n", meta.FileName, meta.FileSize)
		return false, nil
	default:
		if err := c.SendText(line); err != nil {
			return false, fmt.Errorf("send: %w", err)
		}
		return false, nil
	}
}

// parseFileCommand splits "/file <path> [url]" or "file:<path>:<url>". In
// the colon form everything after the second colon is the URL.
func parseFileCommand(line string) (path, url string, ok bool) {
	if strings.HasPrefix(line, fileCommandAlt) {
		parts := strings.SplitN(strings.TrimPrefix(line, fileCommandAlt), ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return "", "", false
		}
		return parts[0], parts[1], true
	}

	fields := strings.Fields(strings.TrimPrefix(line, fileCommand))
	switch len(fields) {
	case 1:
		return fields[0], "", true
	case 2:
		return fields[0], fields[1], true
	default:
		return "", "", false
	}
}

// finish closes the session from this side and waits briefly for the relay
// to answer the close frame.
func (c *Client) finish(received <-chan error) error {
	err := c.writeClose()
	select {
	case <-received:
	case <-time.After(closeWait):
		c.logger.Debug("no close reply from relay")
	}
	_ = c.conn.Close()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (c *Client) printFrames(w io.Writer) error {
	for {
		msg, err := c.Receive()
		if err != nil {
			return err
		}
		if msg.Kind == relay.KindBinary {
			_, _ = fmt.Fprintf(w, "Received binary frame: %d bytes\n", len(msg.Payload))
			continue
		}
		_, _ = fmt.Fprintf(w, "Received: %s\n", msg.Payload)
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// syncWriter serializes writes from the receive loop and the input loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
