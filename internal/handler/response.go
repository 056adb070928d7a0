package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/apperror"
)

// ErrorResponse is the one error shape every endpoint returns.
type ErrorResponse struct {
	Error   string            `json:"error"`             // machine-readable kind, e.g. "conflict"
	Message string            `json:"message"`           // human-readable description
	Details map[string]string `json:"details,omitempty"` // field → reason, from validation
}

// writeJSON sends a JSON response. Headers and status must go out before the
// body; once Encode writes, they are locked in.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError is the single boundary where domain errors become HTTP
// responses. Services return apperror kinds; this maps each to its status.
// Anything unclassified — storage failures, broken invariants — is a 500
// with a generic message, because raw internal errors are not for clients.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		kind := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrBadRequest):
			status = http.StatusBadRequest
			kind = "bad_request"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			kind = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			kind = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			kind = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			kind = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   kind,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}

// WriteError exposes the boundary translator so the auth middleware can emit
// the same wire shape without importing this package's internals.
func WriteError(w http.ResponseWriter, err error) {
	writeError(w, err)
}
