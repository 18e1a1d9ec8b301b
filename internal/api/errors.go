package api

import (
	"errors"
	"net/http"

	"github.com/safar/framely/internal/blob"
	"github.com/safar/framely/internal/httpx"
	"github.com/safar/framely/internal/logging"
	"github.com/safar/framely/internal/service"
	"go.uber.org/zap"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is logged and reported as 500 without
// leaking its message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		httpx.WriteError(ctx, w, httpx.NewError("validation_failed", "Validation failed", http.StatusBadRequest).WithViolations(verr.Violations))
		return
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(ctx, w, httpx.NewError("validation_failed", err.Error(), http.StatusBadRequest))
	case errors.Is(err, service.ErrInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", err.Error(), http.StatusBadRequest))
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", err.Error(), http.StatusUnauthorized))
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", err.Error(), http.StatusForbidden))
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, service.ErrConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	default:
		logging.FromContext(ctx).Error("request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal", "An unexpected error occurred", http.StatusInternalServerError))
	}
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
}

// writeBlobError reports upload validation failures as 400 and storage
// failures as 500.
func writeBlobError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blob.ErrNoFile):
		writeBadRequest(w, r, "No file uploaded.")
	case errors.Is(err, blob.ErrTooLarge):
		writeBadRequest(w, r, "File size must be less than 2 MB.")
	case errors.Is(err, blob.ErrContentType):
		writeBadRequest(w, r, "Only image files (JPEG, PNG, GIF, WebP, Avif) are allowed.")
	case errors.Is(err, blob.ErrInvalidName):
		writeBadRequest(w, r, "File name is required.")
	default:
		logging.FromContext(r.Context()).Error("blob storage failed", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("storage_error", "An error occurred while accessing image storage", http.StatusInternalServerError))
	}
}
