package handlers

import (
	"context"
	"net/http"

	"github.com/filmorate/backend/internal/models"
)

// UserHandler exposes user and friendship endpoints.
type UserHandler struct {
	Users UserService
}

// List implements GET /users.
func (h UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, users)
}

// Get implements GET /users/{id}.
func (h UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	user, err := h.Users.Get(r.Context(), id)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, user)
}

// Create implements POST /users.
func (h UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(r.Context(), w, err)
		return
	}

	user, err := h.Users.Create(r.Context(), patch)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, user)
}

// Update implements PUT /users.
func (h UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(r.Context(), w, err)
		return
	}

	user, err := h.Users.Update(r.Context(), patch)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, user)
}

// Delete implements DELETE /users/{id}.
func (h UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	if err := h.Users.Delete(r.Context(), id); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddFriend implements PUT /users/{id}/friends/{friendId}.
func (h UserHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, h.Users.AddFriend)
}

// RemoveFriend implements DELETE /users/{id}/friends/{friendId}.
func (h UserHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, h.Users.RemoveFriend)
}

func (h UserHandler) friendAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id, friendID int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	friendID, err := pathID(r, "friendId")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	if err := action(r.Context(), id, friendID); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Friends implements GET /users/{id}/friends.
func (h UserHandler) Friends(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	friends, err := h.Users.Friends(r.Context(), id)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, friends)
}

// CommonFriends implements GET /users/{id}/friends/common/{otherId}.
func (h UserHandler) CommonFriends(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	otherID, err := pathID(r, "otherId")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	common, err := h.Users.CommonFriends(r.Context(), id, otherID)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, common)
}
