package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskwise/backend/internal/models"
	"gorm.io/gorm"
)

type ProjectMemberService struct {
	db *gorm.DB
}

func NewProjectMemberService(db *gorm.DB) *ProjectMemberService {
	return &ProjectMemberService{db: db}
}

// Exists reports whether userID has a membership row in projectID.
func (s *ProjectMemberService) Exists(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// Add inserts a membership. A second add for the same pair fails with
// ErrAlreadyMember, whether caught by the pre-check or by the primary key.
func (s *ProjectMemberService) Add(ctx context.Context, projectID, userID uuid.UUID) (*models.ProjectMember, error) {
	if err := requireProject(ctx, s.db, projectID); err != nil {
		return nil, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, err
	}

	exists, err := s.Exists(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyMember
	}

	member := &models.ProjectMember{ProjectID: projectID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}
	return member, nil
}

// Remove deletes the membership, or returns ErrNotMember if there is none.
func (s *ProjectMemberService) Remove(ctx context.Context, projectID, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

// ListByProject returns the members of a project with their users, oldest
// first.
func (s *ProjectMemberService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectMember, error) {
	members := make([]models.ProjectMember, 0)
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}
