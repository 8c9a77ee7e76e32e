package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/filmorate/backend/internal/logging"
	"github.com/filmorate/backend/internal/service"
	"github.com/filmorate/backend/internal/validation"
)

// MsgInternalError is returned for unexpected failures.
const MsgInternalError = "Внутренняя ошибка сервера"

type errorResponse struct {
	Message string `json:"message"`
}

type violationsResponse struct {
	Violations []validation.Violation `json:"violations"`
}

// respondError maps err to its HTTP status and body.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logging.FromContext(ctx).Error("unexpected error", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: MsgInternalError})
		return
	}

	switch svcErr.Kind {
	case service.KindValidation:
		respondJSON(ctx, w, http.StatusBadRequest, violationsResponse{Violations: svcErr.Violations})
	case service.KindNotFound:
		respondJSON(ctx, w, http.StatusNotFound, errorResponse{Message: svcErr.Message})
	case service.KindDuplicate:
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: svcErr.Message})
	default:
		respondJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: MsgInternalError})
	}
}
