package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

type fakeRunner struct {
	started  chan struct{}
	stop     chan struct{}
	startErr error
	shutdown bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan struct{}), stop: make(chan struct{})}
}

func (f *fakeRunner) Start() error {
	close(f.started)
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeRunner) Shutdown(context.Context) error {
	f.shutdown = true
	close(f.stop)
	return nil
}

func TestServeShutsDownOnCancel(t *testing.T) {
	runner := newFakeRunner()
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, runner, time.Second, logger) }()

	<-runner.started
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	if !runner.shutdown {
		t.Fatal("expected shutdown to be called")
	}
}

func TestServeReturnsStartError(t *testing.T) {
	runner := newFakeRunner()
	runner.startErr = errors.New("address in use")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := Serve(context.Background(), runner, time.Second, logger)
	if !errors.Is(err, runner.startErr) {
		t.Fatalf("expected start error got %v", err)
	}
}
