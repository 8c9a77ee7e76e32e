package repositories

import (
	"context"

	"github.com/filmorate/backend/internal/models"
)

// FilmRepository defines data access for films and their like-sets.
type FilmRepository interface {
	Create(ctx context.Context, film models.Film) (models.Film, error)
	// Update loads the film, lets mutate change it and stores the result as one
	// atomic step. An error from mutate aborts the update and is returned as is.
	Update(ctx context.Context, id int64, mutate func(*models.Film) error) (models.Film, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (models.Film, error)
	List(ctx context.Context) ([]models.Film, error)
	AddLike(ctx context.Context, filmID, userID int64) error
	RemoveLike(ctx context.Context, filmID, userID int64) error
	// Popular returns up to count films ordered by like count descending, then id ascending.
	Popular(ctx context.Context, count int) ([]models.Film, error)
}
