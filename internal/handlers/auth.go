package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/middleware"
	"github.com/taskwise/backend/internal/services"
	"github.com/taskwise/backend/pkg/response"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// MeResponse describes the caller. User is nil when the identity has no
// matching user row.
type MeResponse struct {
	Email  string      `json:"email"`
	UserID *string     `json:"user_id"`
	Roles  []string    `json:"roles"`
	User   interface{} `json:"user,omitempty"`
}

// Me returns the caller's identity
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	id := middleware.GetIdentity(c)
	resp := MeResponse{Email: id.Email, Roles: id.Roles.Names()}

	if id.HasUser() {
		uid := id.UserID.String()
		resp.UserID = &uid
		user, err := h.users.GetWithRole(c.Request.Context(), id.UserID)
		if err != nil {
			fail(c, err)
			return
		}
		if user != nil {
			resp.User = user
		}
	}
	response.Success(c, resp)
}

// Logout is a no-op: sessions are stateless and tokens are issued elsewhere.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	response.NoContent(c)
}
