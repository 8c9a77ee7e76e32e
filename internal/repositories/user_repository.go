package repositories

import (
	"context"

	"github.com/filmorate/backend/internal/models"
)

// UserRepository defines data access for users and the friendship graph.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	// Update loads the user, lets mutate change it and stores the result as one
	// atomic step. An error from mutate aborts the update and is returned as is.
	// A taken email yields ErrConflict.
	Update(ctx context.Context, id int64, mutate func(*models.User) error) (models.User, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	AddFriend(ctx context.Context, userID, friendID int64) error
	RemoveFriend(ctx context.Context, userID, friendID int64) error
	ListFriends(ctx context.Context, userID int64) ([]models.User, error)
	CommonFriends(ctx context.Context, userID, otherID int64) ([]models.User, error)
}
