package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Creator is a validated create input able to build its model.
type Creator[M any] interface {
	NewModel() (*M, error)
}

// Updater is a partial update input. Changes returns only the columns the
// caller actually supplied, or an error wrapping ErrInvalidInput.
type Updater interface {
	Changes() (map[string]interface{}, error)
}

// CRUD is the generic persistence gateway for models keyed by a UUID "id"
// column. Entity services embed it and add their own lookups.
type CRUD[M any, C Creator[M], U Updater] struct {
	db *gorm.DB
}

func NewCRUD[M any, C Creator[M], U Updater](db *gorm.DB) *CRUD[M, C, U] {
	return &CRUD[M, C, U]{db: db}
}

// Get returns nil, nil when no row has the id.
func (r *CRUD[M, C, U]) Get(ctx context.Context, id uuid.UUID) (*M, error) {
	var m M
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMulti pages through rows in storage order.
func (r *CRUD[M, C, U]) GetMulti(ctx context.Context, skip, limit int) ([]M, error) {
	items := make([]M, 0)
	err := r.db.WithContext(ctx).Offset(skip).Limit(limit).Find(&items).Error
	return items, err
}

func (r *CRUD[M, C, U]) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(new(M)).Count(&total).Error
	return total, err
}

// Create persists the model built from in and re-reads it so database
// defaults are visible to the caller.
func (r *CRUD[M, C, U]) Create(ctx context.Context, in C) (*M, error) {
	m, err := in.NewModel()
	if err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	if err := db.Create(m).Error; err != nil {
		return nil, err
	}
	if err := db.First(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// Update applies only the supplied fields of in to existing.
func (r *CRUD[M, C, U]) Update(ctx context.Context, existing *M, in U) (*M, error) {
	changes, err := in.Changes()
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return existing, nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(existing).Updates(changes).Error; err != nil {
		return nil, err
	}
	if err := db.First(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// Remove hard-deletes the row and returns its prior state, or nil, nil when
// it did not exist.
func (r *CRUD[M, C, U]) Remove(ctx context.Context, id uuid.UUID) (*M, error) {
	m, err := r.Get(ctx, id)
	if err != nil || m == nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}
