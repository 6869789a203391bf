package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/pkg/logger"
	"gorm.io/gorm"
)

type AuditLogService struct {
	db *gorm.DB
}

func NewAuditLogService(db *gorm.DB) *AuditLogService {
	return &AuditLogService{db: db}
}

type AuditLogListRequest struct {
	Skip      int    `form:"skip" binding:"min=0"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Actor     string `form:"actor"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

func (s *AuditLogService) Create(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// List returns audit entries newest first.
func (s *AuditLogService) List(ctx context.Context, req *AuditLogListRequest) ([]models.AuditLog, int64, error) {
	if req.Limit == 0 {
		req.Limit = 100
	}

	var total int64
	logs := make([]models.AuditLog, 0)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if req.Actor != "" {
		query = query.Where("actor_email = ?", req.Actor)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action = ?", req.Action)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Offset(req.Skip).Limit(req.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// CleanupOlderThan deletes entries older than retentionDays and returns the
// number removed. A non-positive retention keeps everything.
func (s *AuditLogService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}

// AuditRetention prunes old audit entries on a cron schedule.
type AuditRetention struct {
	logs *AuditLogService
	days int
	cron *cron.Cron
}

func NewAuditRetention(logs *AuditLogService, retentionDays int) *AuditRetention {
	return &AuditRetention{logs: logs, days: retentionDays}
}

// Start runs one cleanup immediately and then on every tick of schedule, a
// standard five-field cron expression.
func (r *AuditRetention) Start(schedule string) error {
	if r.days <= 0 {
		logger.Info().Msg("Audit log cleanup disabled (retention_days <= 0)")
		return nil
	}

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return err
	}
	r.run()
	r.cron.Start()
	logger.Info().Str("schedule", schedule).Int("retention_days", r.days).Msg("Audit log cleanup scheduled")
	return nil
}

// Stop waits for a running cleanup to finish.
func (r *AuditRetention) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

func (r *AuditRetention) run() {
	deleted, err := r.logs.CleanupOlderThan(context.Background(), r.days)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to clean up audit logs")
		return
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Int("retention_days", r.days).Msg("Cleaned up audit logs")
	}
}
