package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskwise/backend/internal/authz"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/internal/services"
	"github.com/taskwise/backend/pkg/logger"
	"github.com/taskwise/backend/pkg/response"
)

const (
	ContextIdentity = "identity"
	ContextProject  = "project"
	ContextTask     = "task"
)

// UserResolver maps an authenticated email to its user id.
type UserResolver interface {
	ResolveID(ctx context.Context, email string) (uuid.UUID, error)
}

// Identity extracts the caller's identity and stores it on the context.
// Anonymous requests pass through; the gates below decide whether that is
// acceptable. Credentials naming unknown roles, disabled accounts and token
// subjects that disagree with the email's account are rejected with 401.
func Identity(extractor *authz.Extractor, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := extractor.Extract(c.Request)
		if err != nil {
			response.Abort(c, response.NewUnauthorized(err.Error()))
			return
		}

		if id.Authenticated() && users != nil {
			userID, err := users.ResolveID(c.Request.Context(), id.Email)
			switch {
			case errors.Is(err, services.ErrUserInactive):
				response.Abort(c, response.NewUnauthorized("account is disabled"))
				return
			case err != nil:
				response.Abort(c, err)
				return
			}
			// A token subject must name the account its email resolves to.
			if id.UserID != uuid.Nil && id.UserID != userID {
				response.Abort(c, response.NewUnauthorized("token subject does not match account"))
				return
			}
			id.UserID = userID
		}

		c.Set(ContextIdentity, id)
		if id.Authenticated() {
			c.Set(logger.ActorKey, id.Email)
		}
		c.Next()
	}
}

// GetIdentity returns the caller's identity, anonymous if none was set.
func GetIdentity(c *gin.Context) authz.Identity {
	if v, ok := c.Get(ContextIdentity); ok {
		if id, ok := v.(authz.Identity); ok {
			return id
		}
	}
	return authz.Anonymous()
}

// RequireRoles admits authenticated callers holding any of roles. With no
// roles it admits any authenticated caller.
func RequireRoles(roles ...authz.RoleName) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.RequireRoles(GetIdentity(c), roles...); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}

func Authenticated() gin.HandlerFunc {
	return RequireRoles()
}

func AdminRequired() gin.HandlerFunc {
	return RequireRoles(authz.RoleAdmin)
}

type projectCheck func(ctx context.Context, id authz.Identity, projectID uuid.UUID) (*models.Project, error)
type taskCheck func(ctx context.Context, id authz.Identity, taskID uuid.UUID) (*models.Task, error)

// ProjectOwnerOrAdmin gates on the project named by the path param and
// stores the loaded project for the handler.
func ProjectOwnerOrAdmin(eval *authz.Evaluator, param string) gin.HandlerFunc {
	return projectGate(eval.ProjectOwnerOrAdmin, param)
}

func ProjectMemberOrAdmin(eval *authz.Evaluator, param string) gin.HandlerFunc {
	return projectGate(eval.ProjectMemberOrAdmin, param)
}

func TaskOwnerOrAdmin(eval *authz.Evaluator, param string) gin.HandlerFunc {
	return taskGate(eval.TaskOwnerOrAdmin, param)
}

func TaskMemberOrAdmin(eval *authz.Evaluator, param string) gin.HandlerFunc {
	return taskGate(eval.TaskMemberOrAdmin, param)
}

func projectGate(check projectCheck, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := ParamUUID(c, param)
		if !ok {
			return
		}
		project, err := check(c.Request.Context(), GetIdentity(c), projectID)
		if err != nil {
			response.Abort(c, err)
			return
		}
		c.Set(ContextProject, project)
		c.Next()
	}
}

func taskGate(check taskCheck, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := ParamUUID(c, param)
		if !ok {
			return
		}
		task, err := check(c.Request.Context(), GetIdentity(c), taskID)
		if err != nil {
			response.Abort(c, err)
			return
		}
		c.Set(ContextTask, task)
		c.Next()
	}
}

// ParamUUID parses a UUID path param. On failure it aborts with 401 for
// anonymous callers and 400 otherwise.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err == nil {
		return id, true
	}
	if !GetIdentity(c).Authenticated() {
		response.Abort(c, response.NewUnauthorized("not authenticated"))
	} else {
		response.Abort(c, response.NewBadRequest("invalid "+name))
	}
	return uuid.Nil, false
}

// GetProject returns the project loaded by a project gate.
func GetProject(c *gin.Context) *models.Project {
	if v, ok := c.Get(ContextProject); ok {
		return v.(*models.Project)
	}
	return nil
}

// GetTask returns the task loaded by a task gate.
func GetTask(c *gin.Context) *models.Task {
	if v, ok := c.Get(ContextTask); ok {
		return v.(*models.Task)
	}
	return nil
}
