package handlers

import (
	"context"
	"net/http"

	"github.com/filmorate/backend/internal/models"
)

// FilmHandler exposes film endpoints.
type FilmHandler struct {
	Films FilmService
}

// List implements GET /films.
func (h FilmHandler) List(w http.ResponseWriter, r *http.Request) {
	films, err := h.Films.List(r.Context())
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, films)
}

// Get implements GET /films/{id}.
func (h FilmHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	film, err := h.Films.Get(r.Context(), id)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, film)
}

// Create implements POST /films.
func (h FilmHandler) Create(w http.ResponseWriter, r *http.Request) {
	var patch models.FilmPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(r.Context(), w, err)
		return
	}

	film, err := h.Films.Create(r.Context(), patch)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, film)
}

// Update implements PUT /films.
func (h FilmHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.FilmPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(r.Context(), w, err)
		return
	}

	film, err := h.Films.Update(r.Context(), patch)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, film)
}

// Delete implements DELETE /films/{id}.
func (h FilmHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	if err := h.Films.Delete(r.Context(), id); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like implements PUT /films/{id}/like/{userId}.
func (h FilmHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.likeAction(w, r, h.Films.Like)
}

// Unlike implements DELETE /films/{id}/like/{userId}.
func (h FilmHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.likeAction(w, r, h.Films.Unlike)
}

func (h FilmHandler) likeAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, filmID, userID int64) error) {
	filmID, err := pathID(r, "id")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	if err := action(r.Context(), filmID, userID); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Popular implements GET /films/popular?count=N.
func (h FilmHandler) Popular(w http.ResponseWriter, r *http.Request) {
	count, err := queryCount(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	films, err := h.Films.Popular(r.Context(), count)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, films)
}
