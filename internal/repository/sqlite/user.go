package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/apperror"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, display_name, email, password_hash, role,
	preferred_languages, skill_level, refresh_token_hash, refresh_token_issued_at,
	created_at, updated_at`

// Create inserts a new user, assigning the ID and timestamps in place.
// A UNIQUE violation on username or email comes back as apperror.Conflict;
// the service layer pre-checks both, so hitting this is a race between two
// registrations, and Conflict is still the right answer for the loser.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	langs, err := json.Marshal(user.PreferredLanguages)
	if err != nil {
		return fmt.Errorf("sqlite: encoding preferred languages: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, email, password_hash, role,
			preferred_languages, skill_level, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.DisplayName,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		string(langs),
		string(user.SkillLevel),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username or email already in use")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getBy(ctx, "id = ?", id)
}

// GetByUsername retrieves a user by username, case-insensitively.
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getBy(ctx, "username = ? COLLATE NOCASE", username)
}

// GetByEmail retrieves a user by email, case-insensitively.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getBy(ctx, "email = ? COLLATE NOCASE", email)
}

func (db *DB) getBy(ctx context.Context, where string, arg any) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user")
		}
		return nil, fmt.Errorf("sqlite: querying user by %s: %w", where, err)
	}
	return user, nil
}

// Update persists the mutable profile fields of an existing user. Session
// fields are managed separately by the refresh-token methods below.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	langs, err := json.Marshal(user.PreferredLanguages)
	if err != nil {
		return fmt.Errorf("sqlite: encoding preferred languages: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, display_name = ?, email = ?, password_hash = ?,
			preferred_languages = ?, skill_level = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.DisplayName,
		user.Email,
		user.PasswordHash,
		string(langs),
		string(user.SkillLevel),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username or email already in use")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user")
	}

	return nil
}

// SetRefreshToken unconditionally replaces the stored refresh session.
func (db *DB) SetRefreshToken(ctx context.Context, id, hash string, issuedAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, refresh_token_issued_at = ?, updated_at = ?
		 WHERE id = ?`,
		hash, issuedAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting refresh token for user %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	} else if n == 0 {
		return apperror.NotFound("user")
	}
	return nil
}

// RotateRefreshToken is the compare-and-swap on the session: the new hash is
// written only where the stored hash still equals current. Zero rows updated
// means another rotation (or a logout) got there first, and the caller's
// token is stale.
func (db *DB) RotateRefreshToken(ctx context.Context, id, current, next string, issuedAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, refresh_token_issued_at = ?, updated_at = ?
		 WHERE id = ? AND refresh_token_hash = ?`,
		next, issuedAt.UTC(), time.Now().UTC(), id, current,
	)
	if err != nil {
		return fmt.Errorf("sqlite: rotating refresh token for user %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	} else if n == 0 {
		return repository.ErrStaleRefreshToken
	}
	return nil
}

// ClearRefreshToken nulls out the session fields. Clearing a user with no
// session, or a user that does not exist, is a no-op: logout is idempotent
// all the way down.
func (db *DB) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = NULL, refresh_token_issued_at = NULL, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing refresh token for user %s: %w", id, err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u        model.User
		role     string
		skill    string
		langs    string
		hash     sql.NullString
		issuedAt sql.NullTime
	)

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.DisplayName,
		&u.Email,
		&u.PasswordHash,
		&role,
		&langs,
		&skill,
		&hash,
		&issuedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = model.Role(role)
	u.SkillLevel = model.SkillLevel(skill)
	if err := json.Unmarshal([]byte(langs), &u.PreferredLanguages); err != nil {
		return nil, fmt.Errorf("decoding preferred languages: %w", err)
	}
	if hash.Valid {
		u.RefreshTokenHash = &hash.String
	}
	if issuedAt.Valid {
		t := issuedAt.Time
		u.RefreshTokenIssuedAt = &t
	}

	return &u, nil
}

// isUniqueViolation detects SQLite's UNIQUE constraint error. modernc's
// driver exposes it only through the message, so string matching is what we
// have.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
