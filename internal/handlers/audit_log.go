package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/services"
	"github.com/taskwise/backend/pkg/response"
)

type AuditLogHandler struct {
	logs *services.AuditLogService
}

func NewAuditLogHandler(logs *services.AuditLogService) *AuditLogHandler {
	return &AuditLogHandler{logs: logs}
}

// List returns audit entries, newest first
// GET /api/v1/audit-logs
func (h *AuditLogHandler) List(c *gin.Context) {
	var req services.AuditLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	logs, total, err := h.logs.List(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Page(c, logs, req.Skip, req.Limit, total)
}
