package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filmorate/backend/internal/config"
	"github.com/filmorate/backend/internal/db"
	"github.com/filmorate/backend/internal/handlers"
	"github.com/filmorate/backend/internal/middleware"
	"github.com/filmorate/backend/internal/repositories"
	"github.com/filmorate/backend/internal/service"
	"github.com/filmorate/backend/internal/snapshot"
	"github.com/filmorate/backend/internal/storage"
	"github.com/filmorate/backend/internal/validation"
)

const rateLimiterTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. pool is only used for postgres storage. The returned cleanup
// persists the in-memory store when snapshots are configured.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	cleanup := func(context.Context) error { return nil }

	var (
		films repositories.FilmRepository
		users repositories.UserRepository
	)

	switch cfg.Storage {
	case config.StoragePostgres:
		if pool == nil {
			return handlers.Dependencies{}, nil, errors.New("postgres storage requires a database pool")
		}
		films = repositories.NewPostgresFilmRepository(pool)
		users = repositories.NewPostgresUserRepository(pool)
	case config.StorageMemory, "":
		store := repositories.NewMemoryStore()
		films = store.Films()
		users = store.Users()

		if cfg.Snapshot.Enabled() {
			objects, err := storage.NewS3Storage(ctx, cfg.Snapshot)
			if err != nil {
				return handlers.Dependencies{}, nil, err
			}
			snapshots := snapshot.NewManager(store, objects, cfg.Snapshot.Key)
			if _, err := snapshots.Restore(ctx); err != nil {
				return handlers.Dependencies{}, nil, fmt.Errorf("restore snapshot: %w", err)
			}
			cleanup = snapshots.Save
		}
	default:
		return handlers.Dependencies{}, nil, fmt.Errorf("unsupported storage %q", cfg.Storage)
	}

	gate := validation.NewGate(nil)

	deps := handlers.Dependencies{
		Films:             service.NewFilmService(films, users, gate),
		Users:             service.NewUserService(users, gate),
		Logger:            logger,
		CORSOrigins:       cfg.CORSOrigins,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Metrics:           promhttp.Handler(),
	}
	if cfg.RateLimit.Enabled() {
		deps.RateLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, rateLimiterTTL)
	}

	return deps, cleanup, nil
}
