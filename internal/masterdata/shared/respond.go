package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/stocklane/stocklane/internal/platform/httpx"
)

// RespondError maps master data errors to RFC7807 problem responses.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidID):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		if logger != nil {
			logger.Error("master data request failed", "error", err)
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "internal error")
	}
}
