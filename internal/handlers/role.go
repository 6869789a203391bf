package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/middleware"
	"github.com/taskwise/backend/internal/services"
	"github.com/taskwise/backend/pkg/response"
)

type RoleHandler struct {
	roles *services.RoleService
}

func NewRoleHandler(roles *services.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// Create creates a role
// POST /api/v1/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var req services.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, err := h.roles.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, role)
}

// List returns roles with their user counts
// GET /api/v1/roles
func (h *RoleHandler) List(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	roles, total, err := h.roles.List(c.Request.Context(), page.Skip, page.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Page(c, roles, page.Skip, page.Limit, total)
}

// Get returns a role by id
// GET /api/v1/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := middleware.ParamUUID(c, "id")
	if !ok {
		return
	}

	role, err := h.roles.GetWithCount(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if role == nil {
		response.NotFound(c, "role not found")
		return
	}
	response.Success(c, role)
}

// Update renames or re-describes a role
// PUT /api/v1/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := middleware.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	role, err := h.roles.Get(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if role == nil {
		response.NotFound(c, "role not found")
		return
	}

	role, err = h.roles.Update(ctx, role, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, role)
}

// Delete removes a role that no user holds
// DELETE /api/v1/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := middleware.ParamUUID(c, "id")
	if !ok {
		return
	}

	removed, err := h.roles.Remove(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if removed == nil {
		response.NotFound(c, "role not found")
		return
	}
	response.NoContent(c)
}
