// Package model defines the data structures used throughout the application.
package model

import "time"

// Role classifies a user for coarse authorization. There are exactly two
// roles; every account is created as RoleUser and nothing in this service
// promotes an account to RoleAdmin (admins are provisioned externally).
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SkillLevel is the user's self-reported proficiency.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// User is the sole persisted entity.
//
// Two groups of fields never leave the process: PasswordHash, and the
// refresh-session pair (RefreshTokenHash, RefreshTokenIssuedAt). The latter
// tracks the single live refresh token for the account — a nil hash means
// the user has no active session, and a non-nil hash authorizes exactly one
// refresh token at a time. Rotation overwrites it; logout clears it.
//
// Username and email are stored lowercase and are unique case-insensitively.
// DisplayName defaults to the username at registration.
type User struct {
	ID                   string     `db:"id"`
	Username             string     `db:"username"`
	DisplayName          string     `db:"display_name"`
	Email                string     `db:"email"`
	PasswordHash         string     `db:"password_hash"`
	Role                 Role       `db:"role"`
	PreferredLanguages   []string   `db:"preferred_languages"`
	SkillLevel           SkillLevel `db:"skill_level"`
	RefreshTokenHash     *string    `db:"refresh_token_hash"`
	RefreshTokenIssuedAt *time.Time `db:"refresh_token_issued_at"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// PublicUser is the only externally visible shape of a User. It is built
// exclusively through User.Public so no secret field can leak by accident —
// User itself has no json tags for that reason.
type PublicUser struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	DisplayName        string     `json:"displayName"`
	Email              string     `json:"email"`
	Role               Role       `json:"role"`
	PreferredLanguages []string   `json:"preferredLanguages"`
	SkillLevel         SkillLevel `json:"skillLevel"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Public returns the client-safe view of the user.
func (u *User) Public() PublicUser {
	langs := u.PreferredLanguages
	if langs == nil {
		langs = []string{} // serialize as [] rather than null
	}
	return PublicUser{
		ID:                 u.ID,
		Username:           u.Username,
		DisplayName:        u.DisplayName,
		Email:              u.Email,
		Role:               u.Role,
		PreferredLanguages: langs,
		SkillLevel:         u.SkillLevel,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
