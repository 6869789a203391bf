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

type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required,max=150"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	// OwnerID is honoured for admins only; everyone else owns what they create.
	OwnerID *uuid.UUID `json:"owner_id"`

	owner uuid.UUID
}

func (r CreateProjectRequest) NewModel() (*models.Project, error) {
	if r.owner == uuid.Nil {
		return nil, errors.New("project owner is required")
	}
	name, err := notBlank("name", r.Name)
	if err != nil {
		return nil, err
	}
	return &models.Project{
		Name:        name,
		Description: r.Description,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		OwnerID:     r.owner,
	}, nil
}

type UpdateProjectRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=150"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	OwnerID     *uuid.UUID `json:"owner_id"`
}

func (r UpdateProjectRequest) Changes() (map[string]interface{}, error) {
	changes := map[string]interface{}{}
	if r.Name != nil {
		name, err := notBlank("name", *r.Name)
		if err != nil {
			return nil, err
		}
		changes["name"] = name
	}
	if r.Description != nil {
		changes["description"] = *r.Description
	}
	if r.StartDate != nil {
		changes["start_date"] = *r.StartDate
	}
	if r.EndDate != nil {
		changes["end_date"] = *r.EndDate
	}
	if r.OwnerID != nil {
		changes["owner_id"] = *r.OwnerID
	}
	return changes, nil
}

type ProjectService struct {
	*CRUD[models.Project, CreateProjectRequest, UpdateProjectRequest]
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{
		CRUD: NewCRUD[models.Project, CreateProjectRequest, UpdateProjectRequest](db),
		db:   db,
	}
}

// CreateWithOwner creates a project owned by ownerID.
func (s *ProjectService) CreateWithOwner(ctx context.Context, req CreateProjectRequest, ownerID uuid.UUID) (*models.Project, error) {
	if _, err := notBlank("name", req.Name); err != nil {
		return nil, err
	}
	if err := requireUser(ctx, s.db, ownerID); err != nil {
		return nil, err
	}
	req.owner = ownerID
	project, err := s.CRUD.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Detail(ctx, project)
}

func (s *ProjectService) Update(ctx context.Context, project *models.Project, req UpdateProjectRequest) (*models.Project, error) {
	if req.OwnerID != nil {
		if err := requireUser(ctx, s.db, *req.OwnerID); err != nil {
			return nil, err
		}
	}
	updated, err := s.CRUD.Update(ctx, project, req)
	if err != nil {
		return nil, err
	}
	return s.Detail(ctx, updated)
}

// ListForUser returns the projects owned by userID. Membership does not make
// a project visible here.
func (s *ProjectService) ListForUser(ctx context.Context, userID uuid.UUID, skip, limit int) ([]models.Project, int64, error) {
	return s.list(ctx, s.db.WithContext(ctx).Where("owner_id = ?", userID), skip, limit)
}

// ListAll pages through every project.
func (s *ProjectService) ListAll(ctx context.Context, skip, limit int) ([]models.Project, int64, error) {
	return s.list(ctx, s.db.WithContext(ctx), skip, limit)
}

func (s *ProjectService) list(ctx context.Context, scope *gorm.DB, skip, limit int) ([]models.Project, int64, error) {
	var total int64
	projects := make([]models.Project, 0)

	query := scope.Session(&gorm.Session{})
	if err := query.Model(&models.Project{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("Owner").Order("created_at DESC").Offset(skip).Limit(limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	if err := s.fillCounts(ctx, projects); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// Detail loads the owner and the member and task counts onto project.
func (s *ProjectService) Detail(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project.Owner == nil || project.Owner.ID != project.OwnerID {
		var owner models.User
		if err := s.db.WithContext(ctx).First(&owner, "id = ?", project.OwnerID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		} else if err == nil {
			project.Owner = &owner
		}
	}
	one := []models.Project{*project}
	if err := s.fillCounts(ctx, one); err != nil {
		return nil, err
	}
	project.MembersCount = one[0].MembersCount
	project.TasksCount = one[0].TasksCount
	return project, nil
}

// Remove deletes the project with its memberships and tasks.
func (s *ProjectService) Remove(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil || project == nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(project).Error
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

type projectCount struct {
	ProjectID uuid.UUID
	Total     int64
}

func (s *ProjectService) fillCounts(ctx context.Context, projects []models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}

	count := func(model interface{}) (map[uuid.UUID]int64, error) {
		var rows []projectCount
		err := s.db.WithContext(ctx).Model(model).
			Select("project_id, COUNT(*) as total").
			Where("project_id IN ?", ids).
			Group("project_id").
			Scan(&rows).Error
		out := make(map[uuid.UUID]int64, len(rows))
		for _, r := range rows {
			out[r.ProjectID] = r.Total
		}
		return out, err
	}

	members, err := count(&models.ProjectMember{})
	if err != nil {
		return err
	}
	tasks, err := count(&models.Task{})
	if err != nil {
		return err
	}
	for i := range projects {
		projects[i].MembersCount = members[projects[i].ID]
		projects[i].TasksCount = tasks[projects[i].ID]
	}
	return nil
}

// requireProject fails with ErrProjectNotFound unless a project with id exists.
func requireProject(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return nil
}
