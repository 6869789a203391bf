package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/models"
	"gorm.io/gorm"
)

// HealthHandler reports whether the service and its database are usable.
type HealthHandler struct {
	db      *gorm.DB
	started time.Time
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// CheckHealth pings the database and answers 503 when it is unreachable.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	status, code := "healthy", http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := models.Ping(ctx, h.db); err != nil {
		dbStatus = "error: " + err.Error()
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": "taskwise",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"components": gin.H{
			"database": dbStatus,
		},
	})
}
