package utils

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	DEFAULT_READ_TIMEOUT  = 60 * time.Second
	DEFAULT_WRITE_TIMEOUT = DEFAULT_READ_TIMEOUT

	shutdownTimeout = 30 * time.Second
)

// GraceServer serves HTTP until SIGTERM/SIGINT, then shuts the listener down
// and runs the drain hooks. Hooks get the remainder of the shutdown window to
// finish background work (in-flight memory consolidations in particular);
// anything still running after that is lost with the process.
func GraceServer(addr string, handler http.Handler, drain ...func()) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  DEFAULT_READ_TIMEOUT,
		WriteTimeout: DEFAULT_WRITE_TIMEOUT,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		if Sugar != nil {
			Sugar.Infof("received %s, shutting down HTTP server", sig)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		if Sugar != nil {
			Sugar.Errorf("HTTP server shutdown error: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		for _, fn := range drain {
			fn()
		}
		close(done)
	}()
	select {
	case <-done:
		if Sugar != nil {
			Sugar.Info("background work drained, exiting")
		}
	case <-ctx.Done():
		if Sugar != nil {
			Sugar.Warn("shutdown window elapsed with background work pending")
		}
	}
	return nil
}
