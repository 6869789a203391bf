package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/middleware"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/internal/services"
	"github.com/taskwise/backend/pkg/response"
)

type ProjectHandler struct {
	projects *services.ProjectService
	members  *services.ProjectMemberService
	tasks    *services.TaskService
}

func NewProjectHandler(projects *services.ProjectService, members *services.ProjectMemberService, tasks *services.TaskService) *ProjectHandler {
	return &ProjectHandler{projects: projects, members: members, tasks: tasks}
}

// Create creates a project owned by the caller. Admins may name another owner.
// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.GetIdentity(c)
	ownerID := caller.UserID
	if req.OwnerID != nil && caller.IsAdmin() {
		ownerID = *req.OwnerID
	} else if !caller.HasUser() {
		response.Forbidden(c, "no user account for "+caller.Email)
		return
	}

	project, err := h.projects.CreateWithOwner(c.Request.Context(), req, ownerID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, project)
}

// List returns every project to admins and the caller's own projects to
// everyone else.
// GET /api/v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	caller := middleware.GetIdentity(c)
	ctx := c.Request.Context()
	var (
		projects []models.Project
		total    int64
		err      error
	)
	switch {
	case caller.IsAdmin():
		projects, total, err = h.projects.ListAll(ctx, page.Skip, page.Limit)
	case caller.HasUser():
		projects, total, err = h.projects.ListForUser(ctx, caller.UserID, page.Skip, page.Limit)
	default:
		projects = []models.Project{}
	}
	if err != nil {
		fail(c, err)
		return
	}
	response.Page(c, projects, page.Skip, page.Limit, total)
}

// Get returns a project with its owner and counts
// GET /api/v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	h.respondDetail(c, middleware.GetProject(c))
}

// Update changes a project's fields. Only admins may transfer ownership.
// PUT /api/v1/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	current := middleware.GetProject(c)
	if req.OwnerID != nil && *req.OwnerID != current.OwnerID && !middleware.GetIdentity(c).IsAdmin() {
		response.Forbidden(c, "only an admin may transfer project ownership")
		return
	}

	project, err := h.projects.Update(c.Request.Context(), current, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, project)
}

// Delete removes a project together with its members and tasks
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	project := middleware.GetProject(c)
	if _, err := h.projects.Remove(c.Request.Context(), project.ID); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}

// AddMember adds a user to the project and returns the project
// POST /api/v1/projects/:id/members/:user_id
func (h *ProjectHandler) AddMember(c *gin.Context) {
	userID, ok := middleware.ParamUUID(c, "user_id")
	if !ok {
		return
	}

	project := middleware.GetProject(c)
	if _, err := h.members.Add(c.Request.Context(), project.ID, userID); err != nil {
		fail(c, err)
		return
	}
	h.respondDetail(c, project)
}

// RemoveMember removes a user from the project
// DELETE /api/v1/projects/:id/members/:user_id
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	userID, ok := middleware.ParamUUID(c, "user_id")
	if !ok {
		return
	}

	project := middleware.GetProject(c)
	if err := h.members.Remove(c.Request.Context(), project.ID, userID); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}

// ListMembers returns the project's members
// GET /api/v1/projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	members, err := h.members.ListByProject(c.Request.Context(), middleware.GetProject(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, members)
}

// ListTasks returns the project's tasks, optionally filtered by status
// GET /api/v1/projects/:id/tasks
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	status, ok := bindStatus(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListByProject(c.Request.Context(), middleware.GetProject(c).ID, status)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, tasks)
}

func (h *ProjectHandler) respondDetail(c *gin.Context, project *models.Project) {
	detail, err := h.projects.Detail(c.Request.Context(), project)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, detail)
}
