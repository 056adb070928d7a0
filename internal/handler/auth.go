// Package handler contains the HTTP handlers. Handlers decode and validate
// request bodies, call a service, and translate the result (or error) onto
// the wire — no business rules live here.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/apperror"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/service"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/validation"
)

// refreshCookieName is where the refresh token travels. The cookie is
// HttpOnly (scripts can never read it), SameSite=Strict, and scoped to the
// auth endpoints — no other route ever receives it. The access token, by
// contrast, is always in the JSON body and never a cookie.
const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/auth"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type registerRequest struct {
	Username           string   `json:"username" validate:"required,min=3,max=30,username"`
	DisplayName        string   `json:"displayName" validate:"omitempty,max=50"`
	Email              string   `json:"email" validate:"required,email"`
	Password           string   `json:"password" validate:"required,min=8,max=72"`
	PreferredLanguages []string `json:"preferredLanguages" validate:"omitempty,max=20,dive,min=1,max=30"`
	SkillLevel         string   `json:"skillLevel" validate:"omitempty,oneof=beginner intermediate advanced"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// authResponse is the success shape for register, login, and refresh. The
// refresh token is deliberately absent: it leaves only via the cookie.
type authResponse struct {
	User        model.PublicUser `json:"user"`
	AccessToken string           `json:"accessToken"`
}

// HandleRegister creates an account and opens its first session.
//
// HTTP: POST /api/auth/register → 201
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username:           req.Username,
		DisplayName:        req.DisplayName,
		Email:              req.Email,
		Password:           req.Password,
		PreferredLanguages: req.PreferredLanguages,
		SkillLevel:         model.SkillLevel(req.SkillLevel),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusCreated, authResponse{
		User:        result.User.Public(),
		AccessToken: result.AccessToken,
	})
}

// HandleLogin verifies credentials and opens a session, superseding any
// previous one.
//
// HTTP: POST /api/auth/login → 200
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{
		User:        result.User.Public(),
		AccessToken: result.AccessToken,
	})
}

// HandleRefresh exchanges the refresh cookie for a new token pair, rotating
// the stored session.
//
// HTTP: POST /api/auth/refresh → 200
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, apperror.Unauthorized("missing refresh token"))
		return
	}

	result, err := h.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		// A rejected refresh means the cookie is useless; drop it so the
		// client stops resending a dead token.
		h.clearRefreshCookie(w)
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{
		User:        result.User.Public(),
		AccessToken: result.AccessToken,
	})
}

// HandleLogout revokes the session named by the refresh cookie and clears
// the cookie. Always succeeds from the client's point of view, cookie or no
// cookie — logout is idempotent.
//
// HTTP: POST /api/auth/logout → 200
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(h.auth.RefreshTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
