package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/filmorate/backend/internal/logging"
	"github.com/filmorate/backend/internal/metrics"
	"github.com/filmorate/backend/internal/models"
	"github.com/filmorate/backend/internal/repositories"
	"github.com/filmorate/backend/internal/validation"
)

// DefaultPopularCount is used when the popular query omits a positive count.
const DefaultPopularCount = 10

// FilmService implements film CRUD, likes and the popularity ranking.
type FilmService struct {
	films repositories.FilmRepository
	users repositories.UserRepository
	gate  *validation.Gate
}

// NewFilmService constructs a FilmService.
func NewFilmService(films repositories.FilmRepository, users repositories.UserRepository, gate *validation.Gate) *FilmService {
	return &FilmService{films: films, users: users, gate: gate}
}

// List returns every film in ascending id order.
func (s *FilmService) List(ctx context.Context) ([]models.Film, error) {
	films, err := s.films.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list films: %w", err)
	}
	return films, nil
}

// Get returns a single film.
func (s *FilmService) Get(ctx context.Context, id int64) (models.Film, error) {
	film, err := s.films.FindByID(ctx, id)
	if err != nil {
		return models.Film{}, s.filmErr(err, id)
	}
	return film, nil
}

// Create validates and stores a new film. The payload must not carry an id.
func (s *FilmService) Create(ctx context.Context, patch models.FilmPatch) (models.Film, error) {
	if _, ok := patch.ID.Get(); ok {
		return models.Film{}, Invalid("id", validation.MsgIDForbidden)
	}

	var film models.Film
	patch.Apply(&film)
	if violations := s.gate.ValidateFilm(film); len(violations) > 0 {
		return models.Film{}, invalid(violations)
	}

	created, err := s.films.Create(ctx, film)
	if err != nil {
		return models.Film{}, fmt.Errorf("create film: %w", err)
	}

	metrics.RecordCreated(metrics.KindFilm)
	logging.FromContext(ctx).Info("film created", slog.Int64("film_id", created.ID))
	return created, nil
}

// Update merges the payload into the stored film and validates the result
// before replacing it. The merge runs inside the repository's update so that
// concurrent updates of one film never drop each other's fields.
func (s *FilmService) Update(ctx context.Context, patch models.FilmPatch) (models.Film, error) {
	id, ok := patch.ID.Get()
	if !ok {
		return models.Film{}, Invalid("id", validation.MsgIDRequired)
	}

	updated, err := s.films.Update(ctx, id, func(film *models.Film) error {
		patch.Apply(film)
		if violations := s.gate.ValidateFilm(*film); len(violations) > 0 {
			return invalid(violations)
		}
		return nil
	})
	if err != nil {
		return models.Film{}, s.filmErr(err, id)
	}

	logging.FromContext(ctx).Info("film updated", slog.Int64("film_id", id))
	return updated, nil
}

// Delete removes a film.
func (s *FilmService) Delete(ctx context.Context, id int64) error {
	if err := s.films.Delete(ctx, id); err != nil {
		return s.filmErr(err, id)
	}

	metrics.RecordDeleted(metrics.KindFilm)
	logging.FromContext(ctx).Info("film deleted", slog.Int64("film_id", id))
	return nil
}

// Like records that userID likes filmID. Liking twice is a no-op.
func (s *FilmService) Like(ctx context.Context, filmID, userID int64) error {
	if err := s.ensureFilmAndUser(ctx, filmID, userID); err != nil {
		return err
	}
	if err := s.films.AddLike(ctx, filmID, userID); err != nil {
		return s.filmErr(err, filmID)
	}

	metrics.RecordLike(true)
	logging.FromContext(ctx).Info("film liked", slog.Int64("film_id", filmID), slog.Int64("user_id", userID))
	return nil
}

// Unlike withdraws a like. Withdrawing an absent like is a no-op.
func (s *FilmService) Unlike(ctx context.Context, filmID, userID int64) error {
	if err := s.ensureFilmAndUser(ctx, filmID, userID); err != nil {
		return err
	}
	if err := s.films.RemoveLike(ctx, filmID, userID); err != nil {
		return s.filmErr(err, filmID)
	}

	metrics.RecordLike(false)
	logging.FromContext(ctx).Info("film unliked", slog.Int64("film_id", filmID), slog.Int64("user_id", userID))
	return nil
}

// Popular returns up to count films ranked by likes. A count that is zero or
// negative falls back to DefaultPopularCount.
func (s *FilmService) Popular(ctx context.Context, count int) ([]models.Film, error) {
	if count <= 0 {
		count = DefaultPopularCount
	}
	films, err := s.films.Popular(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("popular films: %w", err)
	}
	return films, nil
}

func (s *FilmService) ensureFilmAndUser(ctx context.Context, filmID, userID int64) error {
	if _, err := s.films.FindByID(ctx, filmID); err != nil {
		return s.filmErr(err, filmID)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return userNotFound(userID)
		}
		return fmt.Errorf("find user %d: %w", userID, err)
	}
	return nil
}

func (s *FilmService) filmErr(err error, id int64) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return filmNotFound(id)
	}
	return fmt.Errorf("film %d: %w", id, err)
}
