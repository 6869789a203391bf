package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/pkg/logger"
)

// AuditWriter persists audit entries.
type AuditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditLog records every write request (POST, PUT, PATCH, DELETE) after the
// handler has run, including rejected ones.
func AuditLog(w AuditWriter, apiPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut &&
			method != http.MethodPatch && method != http.MethodDelete {
			c.Next()
			return
		}

		c.Next()

		id := GetIdentity(c)
		module, action := parseRouteInfo(c.FullPath(), apiPrefix, method)
		entry := &models.AuditLog{
			ActorEmail: id.Email,
			Method:     method,
			Path:       c.Request.URL.Path,
			Module:     module,
			Action:     action,
			Status:     c.Writer.Status(),
			IP:         c.ClientIP(),
			UserAgent:  truncate(c.Request.UserAgent(), 500),
		}
		if id.UserID != uuid.Nil {
			uid := id.UserID
			entry.ActorID = &uid
		}

		// The client may already be gone; the entry is still wanted.
		ctx := context.WithoutCancel(c.Request.Context())
		if err := w.Create(ctx, entry); err != nil {
			logger.Error().Err(err).Str("path", entry.Path).Msg("failed to write audit log")
		}
	}
}

// parseRouteInfo derives module and action from a route pattern, e.g.
// "/api/v1/projects/:id/members/:user_id" + DELETE gives
// ("projects.members", "delete").
func parseRouteInfo(fullPath, prefix, method string) (module, action string) {
	path := strings.Trim(strings.TrimPrefix(fullPath, prefix), "/")

	var parts []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*") {
			continue
		}
		parts = append(parts, seg)
	}
	module = strings.Join(parts, ".")
	if module == "" {
		module = "unknown"
	}

	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return module, action
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
