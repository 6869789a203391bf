package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectMember associates a user with a project. The composite primary key
// allows at most one row per (project, user) pair.
type ProjectMember struct {
	ProjectID uuid.UUID `gorm:"type:char(36);primaryKey" json:"project_id"`
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	JoinedAt  time.Time `gorm:"autoCreateTime;not null" json:"joined_at"`
}

func (ProjectMember) TableName() string { return "project_members" }
