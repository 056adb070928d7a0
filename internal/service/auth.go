// Package service holds the business logic: the auth session state machine
// and profile self-service. Services speak domain types and apperror kinds;
// they never touch HTTP.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/apperror"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/auth"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/repository"
)

// invalidCredentials is the single message for every login failure. Unknown
// username and wrong password must be indistinguishable, or the endpoint
// becomes a username-enumeration oracle.
const invalidCredentials = "invalid credentials"

// invalidRefresh likewise covers every way a refresh can fail: malformed,
// expired, revoked, or superseded.
const invalidRefresh = "invalid or expired refresh token"

// AuthService orchestrates registration, login, token refresh, and logout
// over the user store, the password hasher, and the token codec.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all dependencies injected.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput carries the (already schema-validated) registration fields.
// DisplayName, PreferredLanguages, and SkillLevel are optional.
type RegisterInput struct {
	Username           string
	DisplayName        string
	Email              string
	Password           string
	PreferredLanguages []string
	SkillLevel         model.SkillLevel
}

// AuthResult bundles what every successful auth operation produces: the user
// and a fresh token pair. The refresh token appears here in plaintext exactly
// once — only its hash is ever stored.
type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// Register creates a new account and opens its first session.
//
// Username and email are normalized to lowercase-trimmed form before the
// uniqueness checks, so "Alice" cannot register while "alice" exists. The
// role is always RoleUser — nothing in this service creates admins.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperror.Conflict("username already in use")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking username: %w", err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already in use")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}
	skill := input.SkillLevel
	if skill == "" {
		skill = model.SkillBeginner
	}
	langs := input.PreferredLanguages
	if langs == nil {
		langs = []string{}
	}

	user := &model.User{
		Username:           username,
		DisplayName:        displayName,
		Email:              email,
		PasswordHash:       hash,
		Role:               model.RoleUser,
		PreferredLanguages: langs,
		SkillLevel:         skill,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// Two registrations racing on the same name: the store's UNIQUE
		// constraint catches what the pre-checks above missed.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %s: %w", username, err)
	}

	result, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return result, nil
}

// Login verifies credentials and opens a new session, unconditionally
// replacing any existing one — each account has at most one live refresh
// token, so logging in elsewhere invalidates the previous session.
//
// An identifier containing '@' is always looked up as an email, never as a
// username. This is a total rule, not a fallback: an email-shaped string
// that happens to match no email fails, even if some username matched it.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)

	var (
		user *model.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", identifier, err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	result, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return result, nil
}

// Refresh exchanges a valid refresh token for a new access/refresh pair and
// rotates the stored session: the presented token is single-use, and a
// superseded or already-rotated token fails here no matter how validly it
// is signed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	id, err := s.tokens.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, apperror.Unauthorized(invalidRefresh)
	}

	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidRefresh)
		}
		return nil, fmt.Errorf("service/auth: looking up user %s: %w", id.UserID, err)
	}

	presented := hashToken(refreshToken)
	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != presented {
		// Logged out, or replaying a token that rotation already retired.
		return nil, apperror.Unauthorized(invalidRefresh)
	}

	newAccess, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token: %w", err)
	}
	newRefresh, err := s.tokens.IssueRefresh(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing refresh token: %w", err)
	}

	// The swap is conditional on the stored hash still being the presented
	// one. If a concurrent refresh won the race in between, this caller
	// loses cleanly instead of both walking away with valid pairs.
	err = s.users.RotateRefreshToken(ctx, user.ID, presented, hashToken(newRefresh), time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrStaleRefreshToken) {
			return nil, apperror.Unauthorized(invalidRefresh)
		}
		return nil, fmt.Errorf("service/auth: rotating refresh token: %w", err)
	}

	s.logger.Info("session refreshed", slog.String("userID", user.ID))

	return &AuthResult{User: user, AccessToken: newAccess, RefreshToken: newRefresh}, nil
}

// Logout invalidates the session the refresh token belongs to. It is
// deliberately best-effort: a garbage, expired, or already-revoked token
// still logs out successfully — failing an idempotent logout helps nobody.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	id, err := s.tokens.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil
	}

	if err := s.users.ClearRefreshToken(ctx, id.UserID); err != nil {
		// Storage failure is the one thing we do surface: the client
		// believes it is logged out, and silently keeping the session
		// alive would contradict that.
		return fmt.Errorf("service/auth: clearing refresh token: %w", err)
	}

	s.logger.Info("user logged out", slog.String("userID", id.UserID))
	return nil
}

// RefreshTTL reports the configured refresh-token lifetime, used by the
// HTTP layer to size the refresh cookie's Max-Age.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.tokens.RefreshTTL()
}

// openSession issues a token pair for user and stores the refresh hash,
// overwriting any previous session. Shared by Register and Login.
func (s *AuthService) openSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing refresh token: %w", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, hashToken(refresh), time.Now()); err != nil {
		return nil, fmt.Errorf("service/auth: storing refresh token: %w", err)
	}

	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// hashToken digests a refresh token for storage. SHA-256 rather than bcrypt:
// the input is a high-entropy signed token (so slow hashing buys nothing),
// and bcrypt could not take it anyway — JWTs exceed its 72-byte limit.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
