package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/taskwise/backend/internal/models"
	"gorm.io/gorm"
)

type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"max=255"`
}

func (r CreateRoleRequest) NewModel() (*models.Role, error) {
	name, err := notBlank("name", r.Name)
	if err != nil {
		return nil, err
	}
	return &models.Role{
		Name:        name,
		Description: strings.TrimSpace(r.Description),
	}, nil
}

type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=50"`
	Description *string `json:"description" binding:"omitempty,max=255"`
}

func (r UpdateRoleRequest) Changes() (map[string]interface{}, error) {
	changes := map[string]interface{}{}
	if r.Name != nil {
		name, err := notBlank("name", *r.Name)
		if err != nil {
			return nil, err
		}
		changes["name"] = name
	}
	if r.Description != nil {
		changes["description"] = strings.TrimSpace(*r.Description)
	}
	return changes, nil
}

type RoleService struct {
	*CRUD[models.Role, CreateRoleRequest, UpdateRoleRequest]
	db *gorm.DB
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{
		CRUD: NewCRUD[models.Role, CreateRoleRequest, UpdateRoleRequest](db),
		db:   db,
	}
}

// GetByName is an exact, case-sensitive lookup.
func (s *RoleService) GetByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *RoleService) Create(ctx context.Context, req CreateRoleRequest) (*models.Role, error) {
	name, err := notBlank("name", req.Name)
	if err != nil {
		return nil, err
	}
	existing, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrRoleNameTaken, existing.Name)
	}

	role, err := s.CRUD.Create(ctx, req)
	if isDuplicate(err) {
		return nil, fmt.Errorf("%w: %s", ErrRoleNameTaken, req.Name)
	}
	return role, err
}

func (s *RoleService) Update(ctx context.Context, role *models.Role, req UpdateRoleRequest) (*models.Role, error) {
	if _, err := req.Changes(); err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		other, err := s.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != role.ID {
			return nil, fmt.Errorf("%w: %s", ErrRoleNameTaken, name)
		}
	}

	updated, err := s.CRUD.Update(ctx, role, req)
	if isDuplicate(err) {
		return nil, ErrRoleNameTaken
	}
	if err != nil {
		return nil, err
	}
	return updated, s.fillCounts(ctx, []*models.Role{updated})
}

// Remove refuses to delete a role that is still assigned to a user.
func (s *RoleService) Remove(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var inUse int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role_id = ?", id).Count(&inUse).Error; err != nil {
		return nil, err
	}
	if inUse > 0 {
		return nil, fmt.Errorf("%w: %d user(s)", ErrRoleInUse, inUse)
	}
	return s.CRUD.Remove(ctx, id)
}

// GetWithCount is Get plus the number of users holding the role.
func (s *RoleService) GetWithCount(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	role, err := s.Get(ctx, id)
	if err != nil || role == nil {
		return role, err
	}
	return role, s.fillCounts(ctx, []*models.Role{role})
}

// List returns roles ordered by name, each with its users_count.
func (s *RoleService) List(ctx context.Context, skip, limit int) ([]models.Role, int64, error) {
	var total int64
	roles := make([]models.Role, 0)

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Role{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("name ASC").Offset(skip).Limit(limit).Find(&roles).Error; err != nil {
		return nil, 0, err
	}

	ptrs := make([]*models.Role, len(roles))
	for i := range roles {
		ptrs[i] = &roles[i]
	}
	if err := s.fillCounts(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (s *RoleService) fillCounts(ctx context.Context, roles []*models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(roles))
	for i, r := range roles {
		ids[i] = r.ID
	}

	var rows []struct {
		RoleID uuid.UUID
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("role_id, COUNT(*) as total").
		Where("role_id IN ?", ids).
		Group("role_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.RoleID] = row.Total
	}
	for _, r := range roles {
		r.UsersCount = counts[r.ID]
	}
	return nil
}

// EnsureDefaults seeds the built-in roles.
func (s *RoleService) EnsureDefaults(ctx context.Context) (int, error) {
	return models.SeedDefaultData(s.db.WithContext(ctx))
}
