package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records a write operation made through the API.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	ActorEmail string     `gorm:"size:255;index" json:"actor_email"`
	ActorID    *uuid.UUID `gorm:"type:char(36)" json:"actor_id"`
	Method     string     `gorm:"size:10" json:"method"`
	Path       string     `gorm:"size:500" json:"path"`
	Module     string     `gorm:"size:100;index" json:"module"`
	Action     string     `gorm:"size:50;index" json:"action"`
	Status     int        `json:"status"`
	IP         string     `gorm:"size:50" json:"ip"`
	UserAgent  string     `gorm:"size:500" json:"user_agent"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
