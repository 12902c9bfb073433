package relay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

var errBrokenPipe = errors.New("broken pipe")

// fakeConn records every message queued to it. Send fails with sendErr when
// set, and with ErrConnClosed after Close.
type fakeConn struct {
	id string

	mu      sync.Mutex
	msgs    []Message
	sendErr error
	sends   int
	closed  bool
	closes  int
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.closed {
		return ErrConnClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closes++
}

func (f *fakeConn) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// texts returns the payloads received so far as strings.
func (f *fakeConn) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = string(m.Payload)
	}
	return out
}

// count returns how many received payloads equal s.
func (f *fakeConn) count(s string) int {
	n := 0
	for _, t := range f.texts() {
		if t == s {
			n++
		}
	}
	return n
}

// countPrefix returns how many received payloads start with prefix.
func (f *fakeConn) countPrefix(prefix string) int {
	n := 0
	for _, t := range f.texts() {
		if strings.HasPrefix(t, prefix) {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRelay(opts ...Option) *Relay {
	return New(append([]Option{WithLogger(discardLogger())}, opts...)...)
}

func welcomeFor(id string) string {
	return fmt.Sprintf(DefaultWelcome, id)
}
