package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskwise/backend/internal/models"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	ProjectID   uuid.UUID         `json:"project_id" binding:"required"`
	Description string            `json:"description" binding:"required,max=500"`
	DueDate     *time.Time        `json:"due_date"`
	Status      models.TaskStatus `json:"status" binding:"omitempty,oneof=New In-Progress Blocked Completed 'Not Started'"`
	OwnerID     uuid.UUID         `json:"owner_id" binding:"required"`

	createdBy uuid.UUID
}

func (r CreateTaskRequest) NewModel() (*models.Task, error) {
	status := r.Status
	if status == "" {
		status = models.TaskStatusNew
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}
	description, err := notBlank("description", r.Description)
	if err != nil {
		return nil, err
	}
	return &models.Task{
		ProjectID:   r.ProjectID,
		Description: description,
		DueDate:     r.DueDate,
		Status:      status,
		OwnerID:     r.OwnerID,
		CreatedByID: r.createdBy,
	}, nil
}

// UpdateTaskRequest has no project or creator fields: both are fixed at
// creation.
type UpdateTaskRequest struct {
	Description *string            `json:"description" binding:"omitempty,min=1,max=500"`
	DueDate     *time.Time         `json:"due_date"`
	Status      *models.TaskStatus `json:"status" binding:"omitempty,oneof=New In-Progress Blocked Completed 'Not Started'"`
	OwnerID     *uuid.UUID         `json:"owner_id"`
}

func (r UpdateTaskRequest) Changes() (map[string]interface{}, error) {
	changes := map[string]interface{}{}
	if r.Description != nil {
		description, err := notBlank("description", *r.Description)
		if err != nil {
			return nil, err
		}
		changes["description"] = description
	}
	if r.DueDate != nil {
		changes["due_date"] = *r.DueDate
	}
	if r.Status != nil {
		if !r.Status.Valid() {
			return nil, fmt.Errorf("%w: status %q", ErrInvalidInput, *r.Status)
		}
		changes["status"] = *r.Status
	}
	if r.OwnerID != nil {
		changes["owner_id"] = *r.OwnerID
	}
	return changes, nil
}

type TaskService struct {
	*CRUD[models.Task, CreateTaskRequest, UpdateTaskRequest]
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{
		CRUD: NewCRUD[models.Task, CreateTaskRequest, UpdateTaskRequest](db),
		db:   db,
	}
}

// CreateBy creates a task recording createdBy as its creator.
func (s *TaskService) CreateBy(ctx context.Context, req CreateTaskRequest, createdBy uuid.UUID) (*models.Task, error) {
	if _, err := notBlank("description", req.Description); err != nil {
		return nil, err
	}
	if err := requireProject(ctx, s.db, req.ProjectID); err != nil {
		return nil, err
	}
	if err := requireUser(ctx, s.db, req.OwnerID); err != nil {
		return nil, err
	}
	req.createdBy = createdBy
	task, err := s.CRUD.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Detail(ctx, task.ID)
}

func (s *TaskService) Update(ctx context.Context, task *models.Task, req UpdateTaskRequest) (*models.Task, error) {
	if req.OwnerID != nil {
		if err := requireUser(ctx, s.db, *req.OwnerID); err != nil {
			return nil, err
		}
	}
	updated, err := s.CRUD.Update(ctx, task, req)
	if err != nil {
		return nil, err
	}
	return s.Detail(ctx, updated.ID)
}

// Detail loads a task with its assignee and creator.
func (s *TaskService) Detail(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Preload("Owner").Preload("CreatedBy").First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByProject returns a project's tasks, earliest due first.
func (s *TaskService) ListByProject(ctx context.Context, projectID uuid.UUID, status models.TaskStatus) ([]models.Task, error) {
	query := s.db.WithContext(ctx).Preload("Owner").Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return s.find(query)
}

// ListByOwner returns the tasks assigned to userID.
func (s *TaskService) ListByOwner(ctx context.Context, userID uuid.UUID, status models.TaskStatus) ([]models.Task, error) {
	query := s.db.WithContext(ctx).Where("owner_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return s.find(query)
}

func (s *TaskService) find(query *gorm.DB) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	err := query.Order("due_date IS NULL, due_date ASC, created_at ASC").Find(&tasks).Error
	return tasks, err
}
