package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/taskwise/backend/internal/authz"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/internal/utils"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Email    string    `json:"email" binding:"required,email,max=255"`
	Name     string    `json:"name" binding:"required,max=100"`
	Password string    `json:"password" binding:"required,min=8,max=72"`
	RoleID   uuid.UUID `json:"role_id" binding:"required"`
}

func (r CreateUserRequest) NewModel() (*models.User, error) {
	email, err := notBlank("email", r.Email)
	if err != nil {
		return nil, err
	}
	name, err := notBlank("name", r.Name)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(r.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		RoleID:       r.RoleID,
		IsActive:     true,
	}, nil
}

type UpdateUserRequest struct {
	Email    *string    `json:"email" binding:"omitempty,email,max=255"`
	Name     *string    `json:"name" binding:"omitempty,min=1,max=100"`
	Password *string    `json:"password" binding:"omitempty,min=8,max=72"`
	RoleID   *uuid.UUID `json:"role_id"`
	IsActive *bool      `json:"is_active"`

	passwordHash string
}

func (r UpdateUserRequest) Changes() (map[string]interface{}, error) {
	changes := map[string]interface{}{}
	if r.Email != nil {
		email, err := notBlank("email", *r.Email)
		if err != nil {
			return nil, err
		}
		changes["email"] = email
	}
	if r.Name != nil {
		name, err := notBlank("name", *r.Name)
		if err != nil {
			return nil, err
		}
		changes["name"] = name
	}
	if r.passwordHash != "" {
		changes["password_hash"] = r.passwordHash
	}
	if r.RoleID != nil {
		changes["role_id"] = *r.RoleID
	}
	if r.IsActive != nil {
		changes["is_active"] = *r.IsActive
	}
	return changes, nil
}

type UserService struct {
	*CRUD[models.User, CreateUserRequest, UpdateUserRequest]
	db    *gorm.DB
	roles *RoleService
	// ids caches email -> user id for identity resolution. Nil disables it.
	ids *expirable.LRU[string, uuid.UUID]
}

func NewUserService(db *gorm.DB, roles *RoleService) *UserService {
	return &UserService{
		CRUD:  NewCRUD[models.User, CreateUserRequest, UpdateUserRequest](db),
		db:    db,
		roles: roles,
	}
}

// EnableIdentityCache turns on the email -> id cache used by ResolveID.
func (s *UserService) EnableIdentityCache(size int, ttl time.Duration) {
	if size <= 0 {
		s.ids = nil
		return
	}
	s.ids = expirable.NewLRU[string, uuid.UUID](size, nil, ttl)
}

// GetByEmail is an exact lookup; nil, nil when absent.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetWithRole loads a user and its role.
func (s *UserService) GetWithRole(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Role").First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context, skip, limit int) ([]models.User, int64, error) {
	var total int64
	users := make([]models.User, 0)

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Role").Order("email ASC").Offset(skip).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if _, err := notBlank("name", req.Name); err != nil {
		return nil, err
	}
	if _, err := notBlank("email", req.Email); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, req.RoleID); err != nil {
		return nil, err
	}
	existing, err := s.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, existing.Email)
	}

	user, err := s.CRUD.Create(ctx, req)
	if isDuplicate(err) {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, req.Email)
	}
	if err != nil {
		return nil, err
	}
	return s.GetWithRole(ctx, user.ID)
}

func (s *UserService) Update(ctx context.Context, user *models.User, req UpdateUserRequest) (*models.User, error) {
	if _, err := req.Changes(); err != nil {
		return nil, err
	}
	if req.RoleID != nil {
		if err := s.requireRole(ctx, *req.RoleID); err != nil {
			return nil, err
		}
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		other, err := s.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != user.ID {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		req.passwordHash = hash
	}

	oldEmail := user.Email
	updated, err := s.CRUD.Update(ctx, user, req)
	if isDuplicate(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	s.forget(oldEmail, updated.Email)
	return s.GetWithRole(ctx, updated.ID)
}

// Remove deletes a user and their memberships. Users who still own projects
// or tasks, or created tasks, are kept.
func (s *UserService) Remove(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.Project{}).Where("owner_id = ?", id).Count(&owned).Error; err != nil {
			return err
		}
		var tasks int64
		if err := tx.Model(&models.Task{}).Where("owner_id = ? OR created_by_id = ?", id, id).Count(&tasks).Error; err != nil {
			return err
		}
		if owned > 0 || tasks > 0 {
			return fmt.Errorf("%w: %d project(s), %d task(s)", ErrUserInUse, owned, tasks)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return nil, err
	}
	s.forget(user.Email)
	return user, nil
}

// ResolveID maps an email to its user id. uuid.Nil with a nil error means no
// such user; inactive users yield ErrUserInactive.
func (s *UserService) ResolveID(ctx context.Context, email string) (uuid.UUID, error) {
	if s.ids != nil {
		if id, ok := s.ids.Get(email); ok {
			return id, nil
		}
	}
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	if user == nil {
		return uuid.Nil, nil
	}
	if !user.IsActive {
		return uuid.Nil, ErrUserInactive
	}
	if s.ids != nil {
		s.ids.Add(email, user.ID)
	}
	return user.ID, nil
}

// EnsureAdmin creates the bootstrap admin account when no user holds the
// Admin role. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, name, password string) (bool, error) {
	role, err := s.roles.GetByName(ctx, string(authz.RoleAdmin))
	if err != nil {
		return false, err
	}
	if role == nil {
		return false, ErrRoleNotFound
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role_id = ?", role.ID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 || email == "" {
		return false, nil
	}

	if name == "" {
		name = "Administrator"
	}
	_, err = s.Create(ctx, CreateUserRequest{Email: email, Name: name, Password: password, RoleID: role.ID})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) requireRole(ctx context.Context, roleID uuid.UUID) error {
	role, err := s.roles.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if role == nil {
		return fmt.Errorf("%w: %s", ErrRoleNotFound, roleID)
	}
	return nil
}

func (s *UserService) forget(emails ...string) {
	if s.ids == nil {
		return
	}
	for _, e := range emails {
		s.ids.Remove(e)
	}
}

// requireUser fails with ErrUserNotFound unless a user with id exists.
func requireUser(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return nil
}
