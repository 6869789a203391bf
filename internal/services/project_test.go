package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskwise/backend/internal/models"
)

func TestProjectService_CreateWithOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", "Task Creator")

	p := env.project(t, "Apollo", owner.ID)
	assert.Equal(t, owner.ID, p.OwnerID)
	require.NotNil(t, p.Owner)
	assert.Equal(t, "owner@example.com", p.Owner.Email)
	assert.Zero(t, p.MembersCount)

	isMember, err := env.members.Exists(env.ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, isMember, "owner must not be added as a member")
}

func TestProjectService_CreateRequiresOwner(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.projects.CreateWithOwner(env.ctx, CreateProjectRequest{Name: "Ghost"}, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.projects.CRUD.Create(env.ctx, CreateProjectRequest{Name: "No owner"})
	assert.Error(t, err)
}

func TestProjectService_ListForUserIsOwnedOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice@example.com", "Task Creator")
	bob := env.user(t, "bob@example.com", "Task Creator")

	mine := env.project(t, "Mine", alice.ID)
	theirs := env.project(t, "Theirs", bob.ID)
	_, err := env.members.Add(env.ctx, theirs.ID, alice.ID)
	require.NoError(t, err)

	projects, total, err := env.projects.ListForUser(env.ctx, alice.ID, 0, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, projects, 1)
	assert.Equal(t, mine.ID, projects[0].ID)

	all, total, err := env.projects.ListAll(env.ctx, 0, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	page, total, err := env.projects.ListAll(env.ctx, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, page, 1)
}

func TestProjectService_TransferOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice@example.com", "Task Creator")
	bob := env.user(t, "bob@example.com", "Task Creator")
	p := env.project(t, "Apollo", alice.ID)

	missing := uuid.New()
	_, err := env.projects.Update(env.ctx, p, UpdateProjectRequest{OwnerID: &missing})
	assert.ErrorIs(t, err, ErrUserNotFound)

	updated, err := env.projects.Update(env.ctx, p, UpdateProjectRequest{OwnerID: &bob.ID})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, updated.OwnerID)
	assert.Equal(t, bob.ID, updated.Owner.ID)
}

func TestProjectService_RemoveCascades(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", "Task Creator")
	member := env.user(t, "member@example.com", "Read-Only")
	p := env.project(t, "Apollo", owner.ID)
	_, err := env.members.Add(env.ctx, p.ID, member.ID)
	require.NoError(t, err)
	task, err := env.tasks.CreateBy(env.ctx, CreateTaskRequest{
		ProjectID:   p.ID,
		Description: "launch",
		OwnerID:     member.ID,
	}, owner.ID)
	require.NoError(t, err)

	detail, err := env.projects.Detail(env.ctx, p)
	require.NoError(t, err)
	assert.EqualValues(t, 1, detail.MembersCount)
	assert.EqualValues(t, 1, detail.TasksCount)

	removed, err := env.projects.Remove(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, removed.ID)

	var members, tasks int64
	env.db.Model(&models.ProjectMember{}).Where("project_id = ?", p.ID).Count(&members)
	env.db.Model(&models.Task{}).Where("id = ?", task.ID).Count(&tasks)
	assert.Zero(t, members)
	assert.Zero(t, tasks)

	removed, err = env.projects.Remove(env.ctx, p.ID)
	assert.NoError(t, err)
	assert.Nil(t, removed)
}

func TestProjectMemberService(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", "Task Creator")
	member := env.user(t, "member@example.com", "Read-Only")
	p := env.project(t, "Apollo", owner.ID)

	m, err := env.members.Add(env.ctx, p.ID, member.ID)
	require.NoError(t, err)
	assert.False(t, m.JoinedAt.IsZero())

	_, err = env.members.Add(env.ctx, p.ID, member.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = env.members.Add(env.ctx, p.ID, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.members.Add(env.ctx, uuid.New(), member.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	list, err := env.members.ListByProject(env.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "member@example.com", list[0].User.Email)

	require.NoError(t, env.members.Remove(env.ctx, p.ID, member.ID))
	assert.ErrorIs(t, env.members.Remove(env.ctx, p.ID, member.ID), ErrNotMember)
}

func TestProjectMemberService_DuplicateCaughtByPrimaryKey(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", "Task Creator")
	p := env.project(t, "Apollo", owner.ID)

	require.NoError(t, env.db.Create(&models.ProjectMember{ProjectID: p.ID, UserID: owner.ID}).Error)
	err := env.db.Create(&models.ProjectMember{ProjectID: p.ID, UserID: owner.ID}).Error
	assert.True(t, isDuplicate(err), "expected duplicate key error, got %v", err)
}

func TestProjectService_BlankName(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", "Task Creator")

	_, err := env.projects.CreateWithOwner(env.ctx, CreateProjectRequest{Name: "  "}, owner.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	total, err := env.projects.Count(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	p := env.project(t, "Apollo", owner.ID)
	_, err = env.projects.Update(env.ctx, p, UpdateProjectRequest{Name: strPtr(" ")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
