// Package repository declares the storage contracts consumed by the service
// layer. Services depend on these interfaces only; the concrete SQLite
// implementation lives in repository/sqlite.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
)

// ErrStaleRefreshToken is returned by RotateRefreshToken when the stored
// refresh hash no longer equals the expected value — either a concurrent
// rotation won the race or the session was revoked between read and write.
var ErrStaleRefreshToken = errors.New("repository: stored refresh token changed")

// UserRepository persists User entities.
//
// Lookups by username or email are case-insensitive. Lookup methods return
// apperror.ErrNotFound (wrapped) when no row matches; any other failure is a
// storage error that callers propagate as internal.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// Update persists the profile fields (username, display name, email,
	// password hash, preferred languages, skill level) of an existing user.
	Update(ctx context.Context, user *model.User) error

	// SetRefreshToken unconditionally stores a new refresh-token hash and
	// issuance time, replacing whatever session existed before. Used by
	// login and register, where superseding the old session is the point.
	SetRefreshToken(ctx context.Context, id, hash string, issuedAt time.Time) error

	// RotateRefreshToken replaces the stored hash only if it still equals
	// current. The compare-and-swap runs inside the store, closing the
	// window where two concurrent refresh calls could both pass a
	// read-then-check and each mint a valid pair from one old token.
	// Returns ErrStaleRefreshToken when the stored value has moved on.
	RotateRefreshToken(ctx context.Context, id, current, next string, issuedAt time.Time) error

	// ClearRefreshToken removes the stored session, if any. Clearing an
	// already-empty session is not an error.
	ClearRefreshToken(ctx context.Context, id string) error
}
