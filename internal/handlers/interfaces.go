package handlers

import (
	"context"

	"github.com/filmorate/backend/internal/models"
)

// FilmService captures the film operations exposed over HTTP.
type FilmService interface {
	List(ctx context.Context) ([]models.Film, error)
	Get(ctx context.Context, id int64) (models.Film, error)
	Create(ctx context.Context, patch models.FilmPatch) (models.Film, error)
	Update(ctx context.Context, patch models.FilmPatch) (models.Film, error)
	Delete(ctx context.Context, id int64) error
	Like(ctx context.Context, filmID, userID int64) error
	Unlike(ctx context.Context, filmID, userID int64) error
	Popular(ctx context.Context, count int) ([]models.Film, error)
}

// UserService captures the user and friendship operations exposed over HTTP.
type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id int64) (models.User, error)
	Create(ctx context.Context, patch models.UserPatch) (models.User, error)
	Update(ctx context.Context, patch models.UserPatch) (models.User, error)
	Delete(ctx context.Context, id int64) error
	AddFriend(ctx context.Context, id, friendID int64) error
	RemoveFriend(ctx context.Context, id, friendID int64) error
	Friends(ctx context.Context, id int64) ([]models.User, error)
	CommonFriends(ctx context.Context, id, otherID int64) ([]models.User, error)
}
