package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/apperror"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/auth"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/repository"
)

// MeService implements profile self-service: a user reading and updating
// their own record. The caller's identity comes from the verified access
// token, never from the request body.
type MeService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewMeService creates a MeService.
func NewMeService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *MeService {
	return &MeService{users: users, passwords: passwords, logger: logger}
}

// UpdateMeInput is a patch: nil means "leave unchanged". CurrentPassword and
// NewPassword must be supplied together; the validator enforces that
// upstream, and UpdateMe enforces it again.
type UpdateMeInput struct {
	Username           *string
	DisplayName        *string
	Email              *string
	PreferredLanguages []string
	SkillLevel         *model.SkillLevel
	CurrentPassword    *string
	NewPassword        *string
}

// GetMe returns the caller's own record.
func (s *MeService) GetMe(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/me: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// UpdateMe applies a profile patch and persists all accepted changes in one
// update.
//
// Username and email changes are normalized and checked for uniqueness
// against everyone except the caller, so "changing" to your own current
// name is a no-op rather than a conflict. A password change verifies the
// current password first — possession of an access token is not proof of
// knowing the password.
func (s *MeService) UpdateMe(ctx context.Context, userID string, patch UpdateMeInput) (*model.User, error) {
	// Half a password change is never silently dropped, even if the
	// schema validator was somehow bypassed.
	if (patch.CurrentPassword == nil) != (patch.NewPassword == nil) {
		return nil, apperror.BadRequest("to change password, provide both currentPassword and newPassword")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/me: fetching user %s: %w", userID, err)
	}

	if patch.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*patch.Username))
		if username != user.Username {
			if err := s.checkUsernameFree(ctx, username, userID); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}

	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email != user.Email {
			if err := s.checkEmailFree(ctx, email, userID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}

	if patch.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*patch.DisplayName)
	}
	if patch.PreferredLanguages != nil {
		user.PreferredLanguages = patch.PreferredLanguages
	}
	if patch.SkillLevel != nil {
		user.SkillLevel = *patch.SkillLevel
	}

	if patch.CurrentPassword != nil && patch.NewPassword != nil {
		if !s.passwords.Verify(user.PasswordHash, *patch.CurrentPassword) {
			return nil, apperror.Unauthorized("current password is incorrect")
		}
		hash, err := s.passwords.Hash(*patch.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("service/me: hashing new password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/me: updating user %s: %w", userID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", userID))
	return user, nil
}

// checkUsernameFree fails with Conflict if any user other than selfID holds
// username.
func (s *MeService) checkUsernameFree(ctx context.Context, username, selfID string) error {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/me: checking username: %w", err)
	}
	if existing.ID != selfID {
		return apperror.Conflict("username already in use")
	}
	return nil
}

// checkEmailFree fails with Conflict if any user other than selfID holds email.
func (s *MeService) checkEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/me: checking email: %w", err)
	}
	if existing.ID != selfID {
		return apperror.Conflict("email already in use")
	}
	return nil
}
