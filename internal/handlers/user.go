package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/middleware"
	"github.com/taskwise/backend/internal/services"
	"github.com/taskwise/backend/pkg/response"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Create creates a user
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, user)
}

// List returns users ordered by email
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	users, total, err := h.users.List(c.Request.Context(), page.Skip, page.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Page(c, users, page.Skip, page.Limit, total)
}

// Get returns a user. Admins may read anyone, other callers only themselves.
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := middleware.ParamUUID(c, "id")
	if !ok {
		return
	}
	caller := middleware.GetIdentity(c)
	if !caller.IsAdmin() && !caller.Is(id) {
		response.Forbidden(c, "admins only, or your own account")
		return
	}

	user, err := h.users.GetWithRole(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}
	response.Success(c, user)
}

// Update changes a user's profile, role, password or active flag
// PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := middleware.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.Get(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}

	user, err = h.users.Update(ctx, user, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, user)
}

// Delete removes a user who owns nothing
// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := middleware.ParamUUID(c, "id")
	if !ok {
		return
	}

	removed, err := h.users.Remove(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if removed == nil {
		response.NotFound(c, "user not found")
		return
	}
	response.NoContent(c)
}
