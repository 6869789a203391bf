package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/authz"
	"github.com/taskwise/backend/internal/middleware"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/internal/services"
	"github.com/taskwise/backend/pkg/response"
)

type TaskHandler struct {
	tasks *services.TaskService
	eval  *authz.Evaluator
}

func NewTaskHandler(tasks *services.TaskService, eval *authz.Evaluator) *TaskHandler {
	return &TaskHandler{tasks: tasks, eval: eval}
}

// Create adds a task to a project. The caller must own the project or be an
// admin, and is recorded as the task's creator.
// POST /api/v1/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.GetIdentity(c)
	ctx := c.Request.Context()
	if _, err := h.eval.ProjectOwnerOrAdmin(ctx, caller, req.ProjectID); err != nil {
		fail(c, err)
		return
	}
	if !caller.HasUser() {
		response.Forbidden(c, "no user account for "+caller.Email)
		return
	}

	task, err := h.tasks.CreateBy(ctx, req, caller.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, task)
}

// Mine returns the tasks assigned to the caller
// GET /api/v1/tasks/mine
func (h *TaskHandler) Mine(c *gin.Context) {
	status, ok := bindStatus(c)
	if !ok {
		return
	}

	caller := middleware.GetIdentity(c)
	if !caller.HasUser() {
		response.Success(c, []models.Task{})
		return
	}

	tasks, err := h.tasks.ListByOwner(c.Request.Context(), caller.UserID, status)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, tasks)
}

// Get returns a task with its assignee and creator
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Detail(c.Request.Context(), middleware.GetTask(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	if task == nil {
		response.NotFound(c, "task not found")
		return
	}
	response.Success(c, task)
}

// Update changes a task's description, due date, status or assignee
// PUT /api/v1/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), middleware.GetTask(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, task)
}

// Delete removes a task
// DELETE /api/v1/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if _, err := h.tasks.Remove(c.Request.Context(), middleware.GetTask(c).ID); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}

func bindStatus(c *gin.Context) (models.TaskStatus, bool) {
	status := models.TaskStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		response.BadRequest(c, "invalid status")
		return "", false
	}
	return status, true
}
