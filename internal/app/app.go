package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/filmorate/backend/internal/config"
	"github.com/filmorate/backend/internal/db"
	"github.com/filmorate/backend/internal/handlers"
	"github.com/filmorate/backend/internal/httpserver"
	"github.com/filmorate/backend/internal/logging"
)

// Run bootstraps the Filmorate backend application. ctx is cancelled when the
// process should stop.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	var pool db.Pool
	if cfg.Storage == config.StoragePostgres {
		pgPool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		pool = pgPool
	}

	deps, cleanup, err := buildDependencies(ctx, pool, cfg, logger)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.AppPort, handlers.NewRouter(deps), cfg.HTTP)
	logger.Info("starting http server",
		slog.String("addr", srv.Addr()),
		slog.String("storage", cfg.Storage),
		slog.Bool("rate_limit", cfg.RateLimit.Enabled()),
		slog.Bool("snapshot", cfg.Snapshot.Enabled()),
	)

	serveErr := httpserver.Serve(ctx, srv, cfg.HTTP.ShutdownTimeout, logger)

	cleanupCtx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), logger), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := cleanup(cleanupCtx); err != nil {
		logger.Error("cleanup failed", slog.String("error", err.Error()))
		return errors.Join(serveErr, err)
	}
	return serveErr
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stdout, level), nil
}
