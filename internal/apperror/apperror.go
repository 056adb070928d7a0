// Package apperror defines the domain error taxonomy shared by all layers.
//
// Services fail fast with one of these typed errors; they never write HTTP
// responses themselves. A single translator in internal/handler maps each
// kind to its status code, so callers are forced to classify failures
// explicitly rather than passing raw strings around.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure kind. Use errors.Is against these to
// branch on the kind of a wrapped error.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// AppError carries a sentinel kind, a client-safe message, and optional
// field-level details (populated by the validation layer).
type AppError struct {
	Err     error             // one of the sentinels above
	Message string            // human-readable, safe to return to clients
	Details map[string]string // optional: field → reason
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// BadRequest reports malformed or invalid input.
func BadRequest(message string) *AppError {
	return &AppError{Err: ErrBadRequest, Message: message}
}

// BadRequestWithDetails reports invalid input with per-field reasons.
func BadRequestWithDetails(message string, details map[string]string) *AppError {
	return &AppError{Err: ErrBadRequest, Message: message, Details: details}
}

// Unauthorized reports a missing, invalid, or expired credential.
//
// The message must not reveal which factor was wrong: login failures and
// token failures each use one fixed message so a caller cannot tell a bad
// password from a nonexistent account.
func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}

// Forbidden reports an authenticated caller with an insufficient role.
func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

// NotFound reports a missing entity.
func NotFound(resource string) *AppError {
	return &AppError{Err: ErrNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}
