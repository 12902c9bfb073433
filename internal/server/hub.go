package server

import (
	"context"
	"sync"
)

// hub tracks the pump goroutines of every accepted connection so shutdown
// can refuse late arrivals and wait for the live ones to finish.
type hub struct {
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// track reserves room for one connection's read and write pumps. It returns
// false once shutdown has begun.
func (h *hub) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return false
	}
	h.wg.Add(2)
	return true
}

// untrack releases a reservation whose pumps were never started.
func (h *hub) untrack() {
	h.wg.Done()
	h.wg.Done()
}

// run starts fn as one tracked pump.
func (h *hub) run(fn func()) {
	go func() {
		defer h.wg.Done()
		fn()
	}()
}

// close stops further tracking and reports whether this call closed it.
func (h *hub) close() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return false
	}
	h.closing = true
	return true
}

// wait blocks until every tracked pump has returned or ctx is done.
func (h *hub) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
