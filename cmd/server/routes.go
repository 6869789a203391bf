package main

import (
	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/authz"
	"github.com/taskwise/backend/internal/middleware"
	"github.com/taskwise/backend/pkg/logger"
)

const apiPrefix = "/api/v1"

// collection registers h on both path and path + "/" so clients may use
// either form without a redirect.
func collection(g *gin.RouterGroup, method, path string, h ...gin.HandlerFunc) {
	g.Handle(method, path, h...)
	g.Handle(method, path+"/", h...)
}

// newRouter sets up all HTTP routes.
func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(a.cfg.CORS.AllowedOrigins))
	r.Use(a.metrics.Middleware())

	r.GET("/health", a.healthHandler.CheckHealth)
	r.GET("/api/health", a.healthHandler.CheckHealth)
	r.GET("/metrics", a.metrics.Handler())

	// Audit runs outermost so writes rejected by identity checks are recorded.
	api := r.Group(apiPrefix)
	api.Use(middleware.AuditLog(a.auditLogs, apiPrefix))
	api.Use(middleware.Identity(a.extractor, a.users))
	if a.limiter != nil {
		api.Use(a.limiter.Middleware())
	}

	authed := middleware.Authenticated()
	admin := middleware.AdminRequired()
	ownerOrAdmin := middleware.ProjectOwnerOrAdmin(a.eval, "id")
	memberOrAdmin := middleware.ProjectMemberOrAdmin(a.eval, "id")

	// Auth
	api.GET("/auth/me", authed, a.authHandler.Me)
	api.POST("/auth/logout", a.authHandler.Logout)

	// Projects
	projects := api.Group("/projects")
	{
		collection(projects, "POST", "", middleware.RequireRoles(authz.RoleAdmin, authz.RoleTaskCreator), a.projectHandler.Create)
		collection(projects, "GET", "", authed, a.projectHandler.List)
		projects.GET("/:id", memberOrAdmin, a.projectHandler.Get)
		projects.PUT("/:id", ownerOrAdmin, a.projectHandler.Update)
		projects.DELETE("/:id", ownerOrAdmin, a.projectHandler.Delete)
		projects.GET("/:id/members", memberOrAdmin, a.projectHandler.ListMembers)
		projects.POST("/:id/members/:user_id", ownerOrAdmin, a.projectHandler.AddMember)
		projects.DELETE("/:id/members/:user_id", ownerOrAdmin, a.projectHandler.RemoveMember)
		projects.GET("/:id/tasks", memberOrAdmin, a.projectHandler.ListTasks)
	}

	// Tasks
	tasks := api.Group("/tasks")
	{
		collection(tasks, "POST", "", authed, a.taskHandler.Create)
		tasks.GET("/mine", authed, a.taskHandler.Mine)
		tasks.GET("/:id", middleware.TaskMemberOrAdmin(a.eval, "id"), a.taskHandler.Get)
		tasks.PUT("/:id", middleware.TaskOwnerOrAdmin(a.eval, "id"), a.taskHandler.Update)
		tasks.DELETE("/:id", middleware.TaskOwnerOrAdmin(a.eval, "id"), a.taskHandler.Delete)
	}

	// Users
	users := api.Group("/users")
	{
		collection(users, "POST", "", admin, a.userHandler.Create)
		collection(users, "GET", "", admin, a.userHandler.List)
		users.GET("/:id", authed, a.userHandler.Get)
		users.PUT("/:id", admin, a.userHandler.Update)
		users.DELETE("/:id", admin, a.userHandler.Delete)
	}

	// Roles
	roles := api.Group("/roles", admin)
	{
		collection(roles, "POST", "", a.roleHandler.Create)
		collection(roles, "GET", "", a.roleHandler.List)
		roles.GET("/:id", a.roleHandler.Get)
		roles.PUT("/:id", a.roleHandler.Update)
		roles.DELETE("/:id", a.roleHandler.Delete)
	}

	// Audit logs
	collection(api, "GET", "/audit-logs", admin, a.auditLogHandler.List)

	return r
}
