package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Runner is the subset of Server used by Serve.
type Runner interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Serve runs srv until ctx is cancelled or the server fails, then shuts it
// down, giving in-flight requests up to timeout to finish.
func Serve(ctx context.Context, srv Runner, timeout time.Duration, logger *slog.Logger) error {
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-srvErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
