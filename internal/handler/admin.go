package handler

import (
	"net/http"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/auth"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
)

// AdminHandler serves the admin-only surface. Small for now: the role gate
// in front of it (RequireAuth + RequireRole(admin)) is the interesting part.
type AdminHandler struct{}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler() *AdminHandler {
	return &AdminHandler{}
}

type adminHomeResponse struct {
	Message string     `json:"message"`
	UserID  string     `json:"userId"`
	Role    model.Role `json:"role"`
}

// HandleHome confirms admin access and echoes the verified identity.
//
// HTTP: GET /api/admin/home (RequireAuth + RequireRole(admin))
func (h *AdminHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	writeJSON(w, http.StatusOK, adminHomeResponse{
		Message: "welcome, admin",
		UserID:  id.UserID,
		Role:    id.Role,
	})
}
