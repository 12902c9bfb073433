package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ListenAndServe binds the configured address and serves until ctx is
// cancelled, then shuts down within the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.mu.RLock()
	addr := s.cfg.Addr()
	s.mu.RUnlock()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the listener
// fails. A cancelled ctx triggers Shutdown and is not an error, nor is
// running out of the shutdown timeout while connections drain.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = httpServer
	timeout := s.cfg.ShutdownTimeout
	s.mu.Unlock()

	s.logger.Info("WebSocket relay listening", "addr", ln.Addr().String())
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.logConnectionURIs(tcpAddr.Port)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := s.Shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			// Every connection has been told to close; stragglers go down
			// with the process.
			s.logger.Warn("shutdown drain timed out", "timeout", timeout)
			return nil
		}
		return err
	}
}

// Shutdown stops accepting connections, closes the listener, sends every
// live connection a close frame and waits for their pumps to finish or ctx
// to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.hub.close() {
		return nil
	}

	s.mu.RLock()
	httpServer := s.httpServer
	s.mu.RUnlock()

	var err error
	if httpServer != nil {
		if err = httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", "err", err)
		}
	}

	released := s.relay.Shutdown()

	if waitErr := s.hub.wait(ctx); waitErr != nil {
		s.logger.Warn("shutdown timeout reached, some connections may still be closing", "released", released)
		return errors.Join(err, waitErr)
	}

	s.logger.Info("server shut down", "released", released)
	return err
}
