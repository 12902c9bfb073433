package server

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tyrowin/wsrelay/internal/config"
	"github.com/Tyrowin/wsrelay/internal/relay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer starts the relay routes on an httptest server. mutate may
// adjust the default configuration first.
func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Port = 0
	if mutate != nil {
		mutate(cfg)
	}

	s := New(cfg, WithLogger(discardLogger()), WithRegistry(prometheus.NewRegistry()))
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		ts.Close()
	})
	return s, ts
}

// recordingEvents captures the events a Client reports.
type recordingEvents struct {
	mu       sync.Mutex
	messages []relay.Message
	closed   int
	errs     []error
}

func (e *recordingEvents) OnMessage(_ relay.Conn, msg relay.Message) relay.Delivery {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messages = append(e.messages, msg)
	return relay.Delivery{}
}

func (e *recordingEvents) OnClosed(relay.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
}

func (e *recordingEvents) OnErrored(_ relay.Conn, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, cause)
}
