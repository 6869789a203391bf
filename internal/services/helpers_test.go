package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/taskwise/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory database with the schema and default
// roles in place.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), models.GormConfig("release"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	_, err = models.SeedDefaultData(db)
	require.NoError(t, err)
	return db
}

type testEnv struct {
	ctx      context.Context
	db       *gorm.DB
	roles    *RoleService
	users    *UserService
	projects *ProjectService
	members  *ProjectMemberService
	tasks    *TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	db := newTestDB(t)
	roles := NewRoleService(db)
	return &testEnv{
		ctx:      context.Background(),
		db:       db,
		roles:    roles,
		users:    NewUserService(db, roles),
		projects: NewProjectService(db),
		members:  NewProjectMemberService(db),
		tasks:    NewTaskService(db),
	}
}

func (e *testEnv) role(t *testing.T, name string) *models.Role {
	t.Helper()
	r, err := e.roles.GetByName(e.ctx, name)
	require.NoError(t, err)
	require.NotNil(t, r, "role %q not seeded", name)
	return r
}

func (e *testEnv) user(t *testing.T, email, role string) *models.User {
	t.Helper()
	u, err := e.users.Create(e.ctx, CreateUserRequest{
		Email:    email,
		Name:     email,
		Password: "password123",
		RoleID:   e.role(t, role).ID,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) project(t *testing.T, name string, owner uuid.UUID) *models.Project {
	t.Helper()
	p, err := e.projects.CreateWithOwner(e.ctx, CreateProjectRequest{Name: name}, owner)
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }
