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

// UserService implements user CRUD and the friendship graph.
type UserService struct {
	users repositories.UserRepository
	gate  *validation.Gate
}

// NewUserService constructs a UserService.
func NewUserService(users repositories.UserRepository, gate *validation.Gate) *UserService {
	return &UserService{users: users, gate: gate}
}

// List returns every user in ascending id order.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return models.User{}, s.userErr(err, id)
	}
	return user, nil
}

// Create validates and stores a new user. A blank name defaults to the login.
func (s *UserService) Create(ctx context.Context, patch models.UserPatch) (models.User, error) {
	if _, ok := patch.ID.Get(); ok {
		return models.User{}, Invalid("id", validation.MsgIDForbidden)
	}

	var user models.User
	patch.Apply(&user)
	if violations := s.gate.ValidateUser(&user); len(violations) > 0 {
		return models.User{}, invalid(violations)
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, duplicateEmail()
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	metrics.RecordCreated(metrics.KindUser)
	logging.FromContext(ctx).Info("user created", slog.Int64("user_id", created.ID))
	return created, nil
}

// Update merges the payload into the stored user and validates the result
// before replacing it, all inside the repository's update. Neither email
// changes when the new one is taken.
func (s *UserService) Update(ctx context.Context, patch models.UserPatch) (models.User, error) {
	id, ok := patch.ID.Get()
	if !ok {
		return models.User{}, Invalid("id", validation.MsgIDRequired)
	}

	updated, err := s.users.Update(ctx, id, func(user *models.User) error {
		patch.Apply(user)
		if violations := s.gate.ValidateUser(user); len(violations) > 0 {
			return invalid(violations)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, duplicateEmail()
		}
		return models.User{}, s.userErr(err, id)
	}

	logging.FromContext(ctx).Info("user updated", slog.Int64("user_id", id))
	return updated, nil
}

// Delete removes a user together with its friendships and likes.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return s.userErr(err, id)
	}

	metrics.RecordDeleted(metrics.KindUser)
	logging.FromContext(ctx).Info("user deleted", slog.Int64("user_id", id))
	return nil
}

// AddFriend links two distinct users. Repeating it is a no-op.
func (s *UserService) AddFriend(ctx context.Context, id, friendID int64) error {
	if err := s.ensureUsers(ctx, id, friendID); err != nil {
		return err
	}
	if id == friendID {
		return Invalid("friendId", validation.MsgSelfFriend)
	}
	if err := s.users.AddFriend(ctx, id, friendID); err != nil {
		return s.userErr(err, friendID)
	}

	metrics.RecordFriendship(true)
	logging.FromContext(ctx).Info("friend added", slog.Int64("user_id", id), slog.Int64("friend_id", friendID))
	return nil
}

// RemoveFriend unlinks two users. Removing a missing edge is a no-op.
func (s *UserService) RemoveFriend(ctx context.Context, id, friendID int64) error {
	if err := s.ensureUsers(ctx, id, friendID); err != nil {
		return err
	}
	if err := s.users.RemoveFriend(ctx, id, friendID); err != nil {
		return s.userErr(err, friendID)
	}

	metrics.RecordFriendship(false)
	logging.FromContext(ctx).Info("friend removed", slog.Int64("user_id", id), slog.Int64("friend_id", friendID))
	return nil
}

// Friends lists the user's friends in ascending id order.
func (s *UserService) Friends(ctx context.Context, id int64) ([]models.User, error) {
	friends, err := s.users.ListFriends(ctx, id)
	if err != nil {
		return nil, s.userErr(err, id)
	}
	return friends, nil
}

// CommonFriends lists the users befriended by both id and otherID.
func (s *UserService) CommonFriends(ctx context.Context, id, otherID int64) ([]models.User, error) {
	if err := s.ensureUsers(ctx, id, otherID); err != nil {
		return nil, err
	}
	common, err := s.users.CommonFriends(ctx, id, otherID)
	if err != nil {
		return nil, s.userErr(err, otherID)
	}
	return common, nil
}

func (s *UserService) ensureUsers(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		if _, err := s.users.FindByID(ctx, id); err != nil {
			return s.userErr(err, id)
		}
	}
	return nil
}

func (s *UserService) userErr(err error, id int64) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return userNotFound(id)
	}
	return fmt.Errorf("user %d: %w", id, err)
}
