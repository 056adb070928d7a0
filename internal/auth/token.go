package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
)

// ErrInvalidToken is returned by Verify for every verification failure:
// bad signature, expired token, wrong kind, wrong algorithm, or a missing
// subject. Callers translate it to a uniform 401 — the reasons are deliberately
// indistinguishable to the client.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenKind discriminates access tokens from refresh tokens. The kind is a
// signed claim, so a validly-signed access token can never pass verification
// where a refresh token is expected, or vice versa.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

const issuer = "peerprep-user-service"

// Identity is what a verified token asserts: who the subject is and what
// role they carry. It is also what the authorization middleware attaches to
// the request context.
type Identity struct {
	UserID string
	Role   model.Role
}

// claims is the JWT payload: the registered claims (sub, exp, iat, iss)
// plus our role and kind discriminator.
type claims struct {
	Role model.Role `json:"role"`
	Kind TokenKind  `json:"kind"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies the access/refresh token pair.
//
// Each kind has its own HMAC secret. Keeping them distinct means a leaked
// access-signing key is not enough to forge refresh tokens, which are the
// more valuable credential (7 days vs 15 minutes).
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a TokenService. Both secrets must be at least 16
// bytes and must differ from each other; violating either is a configuration
// error that should abort startup.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(accessSecret) < 16 || len(refreshSecret) < 16 {
		return nil, errors.New("auth: JWT secrets must be at least 16 characters")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token TTLs must be positive")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// IssueAccess signs a short-lived access token for the given subject.
// Access tokens are stateless: nothing server-side tracks them, so they
// cannot be revoked before expiry.
func (s *TokenService) IssueAccess(userID string, role model.Role) (string, error) {
	return s.issue(userID, role, KindAccess, s.accessSecret, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the given subject.
// Unlike access tokens, a refresh token is only usable while its hash is
// the one stored on the user record (see service.AuthService).
func (s *TokenService) IssueRefresh(userID string, role model.Role) (string, error) {
	return s.issue(userID, role, KindRefresh, s.refreshSecret, s.refreshTTL)
}

func (s *TokenService) issue(userID string, role model.Role, kind TokenKind, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
			// A unique ID per token guarantees two tokens minted for the
			// same subject in the same second still differ — rotation
			// depends on the old and new refresh tokens never colliding.
			ID: xid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses tokenStr, checks its signature against the secret for the
// expected kind, and returns the identity it asserts. Any failure — bad
// signature, expiry, kind mismatch, unexpected algorithm, empty subject —
// comes back as ErrInvalidToken.
func (s *TokenService) Verify(tokenStr string, expected TokenKind) (Identity, error) {
	secret := s.accessSecret
	if expected == KindRefresh {
		secret = s.refreshSecret
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// Pin the algorithm; accepting whatever the token header claims
			// would open the classic algorithm-confusion hole.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if c.Kind != expected || c.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: c.Subject, Role: c.Role}, nil
}

// RefreshTTL exposes the refresh-token lifetime so the HTTP layer can give
// the refresh cookie a matching Max-Age.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}
