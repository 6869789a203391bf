package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "New"
	TaskStatusInProgress TaskStatus = "In-Progress"
	TaskStatusBlocked    TaskStatus = "Blocked"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusNotStarted TaskStatus = "Not Started"
)

// TaskStatuses lists every accepted status in display order.
var TaskStatuses = []TaskStatus{
	TaskStatusNew,
	TaskStatusInProgress,
	TaskStatusBlocked,
	TaskStatusCompleted,
	TaskStatusNotStarted,
}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Task belongs to one project, is assigned to one user (OwnerID) and records
// its creator. CreatedByID never changes after creation.
type Task struct {
	ID          uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	ProjectID   uuid.UUID  `gorm:"type:char(36);not null;index" json:"project_id"`
	Description string     `gorm:"size:500;not null" json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Status      TaskStatus `gorm:"size:20;not null;default:New" json:"status"`
	OwnerID     uuid.UUID  `gorm:"type:char(36);not null;index" json:"owner_id"`
	Owner       *User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedByID uuid.UUID  `gorm:"type:char(36);not null;index" json:"created_by_id"`
	CreatedBy   *User      `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	if t.Status == "" {
		t.Status = TaskStatusNew
	}
	return nil
}
