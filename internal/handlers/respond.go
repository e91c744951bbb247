package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iheejigoro/apiserver/internal/services"
	"github.com/iheejigoro/apiserver/internal/store"
)

// writeServiceError maps a service error to its status and body. Anything
// unrecognised is logged and reported as a 500 with a fixed message.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFound, failure string) {
	var validationErr *services.ValidationError
	var imageErr *imageFieldError
	switch {
	case errors.As(err, &validationErr):
		writeFieldErrors(w, validationErr.Fields)
	case errors.As(err, &imageErr):
		writeFieldErrors(w, imageErr.fields())
	case errors.Is(err, services.ErrDuplicateEmail):
		writeFieldErrors(w, map[string]string{"email": "Email already exists"})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeFieldErrors(w, map[string]string{"passwordincorrect": "Password incorrect"})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrMedia):
		logger.ErrorContext(r.Context(), failure, "error", err)
		writeError(w, http.StatusBadGateway, "media upload failed")
	default:
		logger.ErrorContext(r.Context(), failure, "error", err)
		writeError(w, http.StatusInternalServerError, failure)
	}
}
