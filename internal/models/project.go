package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project has exactly one owner. The owner is not implicitly a member.
type Project struct {
	ID          uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	Name        string     `gorm:"size:150;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	OwnerID     uuid.UUID  `gorm:"type:char(36);not null;index" json:"owner_id"`
	Owner       *User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	MembersCount int64 `gorm:"-" json:"members_count"`
	TasksCount   int64 `gorm:"-" json:"tasks_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
