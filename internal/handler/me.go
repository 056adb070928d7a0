package handler

import (
	"log/slog"
	"net/http"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/apperror"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/auth"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/service"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/validation"
)

// MeHandler exposes the authenticated user's own profile.
type MeHandler struct {
	me     *service.MeService
	logger *slog.Logger
}

// NewMeHandler creates a MeHandler.
func NewMeHandler(me *service.MeService, logger *slog.Logger) *MeHandler {
	return &MeHandler{me: me, logger: logger}
}

// updateMeRequest is a patch body: absent fields stay unchanged, which is
// why everything is a pointer (or nil slice) rather than a zero value.
type updateMeRequest struct {
	Username           *string  `json:"username" validate:"omitempty,min=3,max=30,username"`
	DisplayName        *string  `json:"displayName" validate:"omitempty,max=50"`
	Email              *string  `json:"email" validate:"omitempty,email"`
	PreferredLanguages []string `json:"preferredLanguages" validate:"omitempty,max=20,dive,min=1,max=30"`
	SkillLevel         *string  `json:"skillLevel" validate:"omitempty,oneof=beginner intermediate advanced"`
	CurrentPassword    *string  `json:"currentPassword" validate:"required_with=NewPassword"`
	NewPassword        *string  `json:"newPassword" validate:"required_with=CurrentPassword,omitempty,min=8,max=72"`
}

// HandleGetMe returns the caller's profile.
//
// HTTP: GET /api/me (RequireAuth)
func (h *MeHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.me.GetMe(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.PublicUser{"user": user.Public()})
}

// HandleUpdateMe applies a validated profile patch to the caller's record.
//
// HTTP: PATCH /api/me (RequireAuth)
func (h *MeHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req updateMeRequest
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	patch := service.UpdateMeInput{
		Username:           req.Username,
		DisplayName:        req.DisplayName,
		Email:              req.Email,
		PreferredLanguages: req.PreferredLanguages,
		CurrentPassword:    req.CurrentPassword,
		NewPassword:        req.NewPassword,
	}
	if req.SkillLevel != nil {
		level := model.SkillLevel(*req.SkillLevel)
		patch.SkillLevel = &level
	}

	user, err := h.me.UpdateMe(r.Context(), id.UserID, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.PublicUser{"user": user.Public()})
}
