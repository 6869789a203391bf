package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskwise/backend/internal/authz"
	"github.com/taskwise/backend/internal/config"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), models.GormConfig("release"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	cfg := config.DefaultConfig()
	cfg.Auth.JWT.Secret = ""
	cfg.Auth.DevHeaders = true
	cfg.RateLimit.Enabled = false

	a, err := bootstrap(context.Background(), cfg, db)
	require.NoError(t, err)
	t.Cleanup(a.shutdown)

	return &testServer{t: t, router: newRouter(a), db: db}
}

// caller identifies a request by email and roles; the zero value is anonymous.
type caller struct {
	email string
	roles string
}

var (
	anonymous   = caller{}
	adminCaller = caller{"admin@example.com", string(authz.RoleAdmin)}
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(who caller, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who.email != "" {
		req.Header.Set(authz.HeaderUserEmail, who.email)
		req.Header.Set(authz.HeaderUserRoles, who.roles)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func (s *testServer) user(email string, role authz.RoleName) *models.User {
	s.t.Helper()
	ctx := context.Background()
	roles := services.NewRoleService(s.db)
	r, err := roles.GetByName(ctx, string(role))
	require.NoError(s.t, err)
	u, err := services.NewUserService(s.db, roles).Create(ctx, services.CreateUserRequest{
		Email:    email,
		Name:     email,
		Password: "password123",
		RoleID:   r.ID,
	})
	require.NoError(s.t, err)
	return u
}

func (s *testServer) project(name string, owner uuid.UUID, members ...uuid.UUID) *models.Project {
	s.t.Helper()
	ctx := context.Background()
	p, err := services.NewProjectService(s.db).CreateWithOwner(ctx, services.CreateProjectRequest{Name: name}, owner)
	require.NoError(s.t, err)
	for _, m := range members {
		_, err := services.NewProjectMemberService(s.db).Add(ctx, p.ID, m)
		require.NoError(s.t, err)
	}
	return p
}

func decode[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func TestRoles_CreateThenDuplicate(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(adminCaller, http.MethodPost, "/api/v1/roles/", gin.H{"name": "Auditor"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	role := decode[models.Role](t, resp)
	assert.Equal(t, "Auditor", role.Name)
	assert.NotEqual(t, uuid.Nil, role.ID)

	w, resp = s.do(adminCaller, http.MethodPost, "/api/v1/roles", gin.H{"name": "Auditor"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 409, resp.Code)
}

func TestBlankNamesRejected(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("owner@example.com", authz.RoleTaskCreator)
	p := s.project("Apollo", owner.ID)
	who := caller{"owner@example.com", string(authz.RoleTaskCreator)}

	w, _ := s.do(adminCaller, http.MethodPost, "/api/v1/roles", gin.H{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(who, http.MethodPost, "/api/v1/projects", gin.H{"name": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(who, http.MethodPost, "/api/v1/tasks", gin.H{
		"project_id": p.ID, "description": "  ", "owner_id": owner.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoles_AdminOnly(t *testing.T) {
	s := newTestServer(t)
	creator := caller{"tc@example.com", string(authz.RoleTaskCreator)}

	w, _ := s.do(creator, http.MethodPost, "/api/v1/roles", gin.H{"name": "Auditor"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := s.do(adminCaller, http.MethodGet, "/api/v1/roles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Items []models.Role `json:"items"`
		Total int64         `json:"total"`
	}](t, resp)
	assert.EqualValues(t, len(models.DefaultRoles), page.Total)
}

func TestProjects_NonOwnerTaskCreatorCannotUpdate(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("owner@example.com", authz.RoleTaskCreator)
	s.user("other@example.com", authz.RoleTaskCreator)
	p := s.project("Apollo", owner.ID)

	other := caller{"other@example.com", string(authz.RoleTaskCreator)}
	w, _ := s.do(other, http.MethodPut, "/api/v1/projects/"+p.ID.String(), gin.H{"name": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := s.do(caller{"owner@example.com", string(authz.RoleTaskCreator)}, http.MethodPut,
		"/api/v1/projects/"+p.ID.String(), gin.H{"name": "Apollo 11"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Apollo 11", decode[models.Project](t, resp).Name)
}

func TestProjects_OwnershipTransferIsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("owner@example.com", authz.RoleTaskCreator)
	reader := s.user("reader@example.com", authz.RoleReadOnly)
	p := s.project("Apollo", owner.ID)
	path := "/api/v1/projects/" + p.ID.String()
	who := caller{"owner@example.com", string(authz.RoleTaskCreator)}

	w, _ := s.do(who, http.MethodPut, path, gin.H{"owner_id": reader.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := s.do(who, http.MethodPut, path, gin.H{"owner_id": owner.ID, "name": "Apollo 8"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, owner.ID, decode[models.Project](t, resp).OwnerID)

	w, resp = s.do(adminCaller, http.MethodPut, path, gin.H{"owner_id": reader.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, reader.ID, decode[models.Project](t, resp).OwnerID)
}

func TestProjects_ReadOnlyMemberCanReadNotDelete(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("owner@example.com", authz.RoleTaskCreator)
	reader := s.user("reader@example.com", authz.RoleReadOnly)
	p := s.project("Gemini", owner.ID, reader.ID)

	who := caller{"reader@example.com", string(authz.RoleReadOnly)}
	w, resp := s.do(who, http.MethodGet, "/api/v1/projects/"+p.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Project](t, resp)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Gemini", got.Name)

	w, _ = s.do(who, http.MethodDelete, "/api/v1/projects/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProjects_OwnerIsNotImplicitlyMember(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("owner@example.com", authz.RoleTaskCreator)
	p := s.project("Mercury", owner.ID)
	who := caller{"owner@example.com", string(authz.RoleTaskCreator)}

	w, _ := s.do(who, http.MethodGet, "/api/v1/projects/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(who, http.MethodPost, "/api/v1/projects/"+p.ID.String()+"/members/"+owner.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(who, http.MethodGet, "/api/v1/projects/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedEndpoints_RequireIdentity(t *testing.T) {
	s := newTestServer(t)
	id := uuid.NewString()

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/projects"},
		{http.MethodPost, "/api/v1/projects/"},
		{http.MethodGet, "/api/v1/projects/" + id},
		{http.MethodPut, "/api/v1/projects/" + id},
		{http.MethodDelete, "/api/v1/projects/" + id},
		{http.MethodPost, "/api/v1/projects/" + id + "/members/" + id},
		{http.MethodGet, "/api/v1/users"},
		{http.MethodGet, "/api/v1/users/" + id},
		{http.MethodDelete, "/api/v1/users/" + id},
		{http.MethodPost, "/api/v1/roles"},
		{http.MethodDelete, "/api/v1/roles/" + id},
		{http.MethodGet, "/api/v1/tasks/mine"},
		{http.MethodGet, "/api/v1/tasks/not-a-uuid"},
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/audit-logs"},
	}

	for _, e := range endpoints {
		t.Run(e.method+" "+e.path, func(t *testing.T) {
			w, resp := s.do(anonymous, e.method, e.path, gin.H{"name": "x"})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, 401, resp.Code)
		})
	}
}

func TestIdentity_UnknownRoleRejected(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(caller{"x@example.com", "Superuser"}, http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjects_ListScopedToOwner(t *testing.T) {
	s := newTestServer(t)
	alice := s.user("alice@example.com", authz.RoleTaskCreator)
	bob := s.user("bob@example.com", authz.RoleTaskCreator)
	s.project("A1", alice.ID)
	s.project("A2", alice.ID)
	s.project("B1", bob.ID, alice.ID)

	type page struct {
		Items []models.Project `json:"items"`
		Total int64            `json:"total"`
	}

	w, resp := s.do(caller{"alice@example.com", string(authz.RoleTaskCreator)}, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[page](t, resp).Total)

	w, resp = s.do(adminCaller, http.MethodGet, "/api/v1/projects/?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[page](t, resp)
	assert.EqualValues(t, 3, all.Total)
	assert.Len(t, all.Items, 2)
}

func TestProjects_CreateAndCascadeDelete(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("owner@example.com", authz.RoleTaskCreator)
	who := caller{"owner@example.com", string(authz.RoleTaskCreator)}

	w, resp := s.do(who, http.MethodPost, "/api/v1/projects", gin.H{"name": "Skylab", "description": "station"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[models.Project](t, resp)
	assert.Equal(t, owner.ID, p.OwnerID)

	w, _ = s.do(who, http.MethodPost, "/api/v1/tasks", gin.H{
		"project_id":  p.ID,
		"description": "dock",
		"owner_id":    owner.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.do(who, http.MethodDelete, "/api/v1/projects/"+p.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var tasks int64
	require.NoError(t, s.db.Model(&models.Task{}).Where("project_id = ?", p.ID).Count(&tasks).Error)
	assert.Zero(t, tasks)

	w, _ = s.do(adminCaller, http.MethodGet, "/api/v1/projects/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjects_ReadOnlyCannotCreate(t *testing.T) {
	s := newTestServer(t)
	s.user("ro@example.com", authz.RoleReadOnly)

	w, _ := s.do(caller{"ro@example.com", string(authz.RoleReadOnly)}, http.MethodPost, "/api/v1/projects", gin.H{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTasks_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("owner@example.com", authz.RoleTaskCreator)
	worker := s.user("worker@example.com", authz.RoleReadOnly)
	p := s.project("Voyager", owner.ID, worker.ID)
	ownerCaller := caller{"owner@example.com", string(authz.RoleTaskCreator)}
	workerCaller := caller{"worker@example.com", string(authz.RoleReadOnly)}

	w, _ := s.do(workerCaller, http.MethodPost, "/api/v1/tasks", gin.H{
		"project_id": p.ID, "description": "sneak", "owner_id": worker.ID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := s.do(ownerCaller, http.MethodPost, "/api/v1/tasks/", gin.H{
		"project_id": p.ID, "description": "calibrate", "owner_id": worker.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[models.Task](t, resp)
	assert.Equal(t, models.TaskStatusNew, task.Status)
	assert.Equal(t, owner.ID, task.CreatedByID)

	w, resp = s.do(workerCaller, http.MethodGet, "/api/v1/tasks/mine", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Task](t, resp), 1)

	w, _ = s.do(workerCaller, http.MethodGet, "/api/v1/tasks/"+task.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(workerCaller, http.MethodPut, "/api/v1/tasks/"+task.ID.String(), gin.H{"status": "Completed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(ownerCaller, http.MethodPut, "/api/v1/tasks/"+task.ID.String(), gin.H{"status": "In-Progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.TaskStatusInProgress, decode[models.Task](t, resp).Status)

	w, _ = s.do(ownerCaller, http.MethodPut, "/api/v1/tasks/"+task.ID.String(), gin.H{"status": "Done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = s.do(workerCaller, http.MethodGet, "/api/v1/projects/"+p.ID.String()+"/tasks?status=In-Progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Task](t, resp), 1)

	w, _ = s.do(ownerCaller, http.MethodDelete, "/api/v1/tasks/"+task.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = s.do(ownerCaller, http.MethodDelete, "/api/v1/tasks/"+task.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsers_AdminManagesAccounts(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	ro, err := services.NewRoleService(s.db).GetByName(ctx, string(authz.RoleReadOnly))
	require.NoError(t, err)

	body := gin.H{"email": "new@example.com", "name": "New", "password": "password123", "role_id": ro.ID}
	w, resp := s.do(adminCaller, http.MethodPost, "/api/v1/users", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.User](t, resp)
	assert.NotContains(t, w.Body.String(), "password")

	w, resp = s.do(adminCaller, http.MethodPost, "/api/v1/users", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 409, resp.Code)

	body["email"] = "other@example.com"
	body["role_id"] = uuid.New()
	w, _ = s.do(adminCaller, http.MethodPost, "/api/v1/users", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	self := caller{"new@example.com", string(authz.RoleReadOnly)}
	w, _ = s.do(self, http.MethodGet, "/api/v1/users/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	stranger := s.user("stranger@example.com", authz.RoleReadOnly)
	w, _ = s.do(self, http.MethodGet, "/api/v1/users/"+stranger.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(adminCaller, http.MethodDelete, "/api/v1/users/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = s.do(adminCaller, http.MethodDelete, "/api/v1/users/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditLog_RecordsWrites(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(adminCaller, http.MethodPost, "/api/v1/roles", gin.H{"name": "Auditor"})
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(anonymous, http.MethodPost, "/api/v1/roles", gin.H{"name": "Sneaky"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := s.do(adminCaller, http.MethodGet, "/api/v1/audit-logs?module=roles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Items []models.AuditLog `json:"items"`
	}](t, resp)
	require.Len(t, page.Items, 2)

	statuses := []int{page.Items[0].Status, page.Items[1].Status}
	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusUnauthorized}, statuses)
	for _, entry := range page.Items {
		assert.Equal(t, "create", entry.Action)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		w, _ := s.do(anonymous, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	s.do(adminCaller, http.MethodGet, "/api/v1/roles", nil)
	w, _ := s.do(anonymous, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taskwise_http_requests_total")
}
