package authz

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/pkg/response"
)

// ProjectGetter loads a project by id, returning nil, nil when absent.
type ProjectGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// TaskGetter loads a task by id, returning nil, nil when absent.
type TaskGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

type MembershipChecker interface {
	Exists(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
}

// DecisionRecorder observes every resource-scoped decision.
type DecisionRecorder interface {
	RecordDecision(check string, allowed bool)
}

const (
	CheckProjectOwnerOrAdmin  = "project_owner_or_admin"
	CheckProjectMemberOrAdmin = "project_member_or_admin"
)

// Evaluator makes resource-scoped decisions. Each check runs the role gate
// first, then loads the resource (NotFound), then decides ownership or
// membership (Forbidden). On success the loaded resource is returned.
type Evaluator struct {
	projects ProjectGetter
	tasks    TaskGetter
	members  MembershipChecker
	recorder DecisionRecorder
}

func NewEvaluator(projects ProjectGetter, tasks TaskGetter, members MembershipChecker) *Evaluator {
	return &Evaluator{projects: projects, tasks: tasks, members: members}
}

func (e *Evaluator) SetRecorder(r DecisionRecorder) {
	e.recorder = r
}

// ProjectOwnerOrAdmin admits Admins and the project's owner. The caller must
// hold Admin or Task Creator.
func (e *Evaluator) ProjectOwnerOrAdmin(ctx context.Context, id Identity, projectID uuid.UUID) (*models.Project, error) {
	if err := RequireRoles(id, RoleAdmin, RoleTaskCreator); err != nil {
		return nil, e.deny(CheckProjectOwnerOrAdmin, err)
	}
	project, err := e.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := e.ownerOrAdmin(id, project); err != nil {
		return nil, err
	}
	return project, nil
}

// ProjectMemberOrAdmin admits Admins and members of the project. Owning the
// project is not enough without a membership row.
func (e *Evaluator) ProjectMemberOrAdmin(ctx context.Context, id Identity, projectID uuid.UUID) (*models.Project, error) {
	if err := RequireRoles(id); err != nil {
		return nil, e.deny(CheckProjectMemberOrAdmin, err)
	}
	project, err := e.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := e.memberOrAdmin(ctx, id, project); err != nil {
		return nil, err
	}
	return project, nil
}

// TaskOwnerOrAdmin applies ProjectOwnerOrAdmin to the task's project.
func (e *Evaluator) TaskOwnerOrAdmin(ctx context.Context, id Identity, taskID uuid.UUID) (*models.Task, error) {
	if err := RequireRoles(id, RoleAdmin, RoleTaskCreator); err != nil {
		return nil, e.deny(CheckProjectOwnerOrAdmin, err)
	}
	task, project, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := e.ownerOrAdmin(id, project); err != nil {
		return nil, err
	}
	return task, nil
}

// TaskMemberOrAdmin applies ProjectMemberOrAdmin to the task's project.
func (e *Evaluator) TaskMemberOrAdmin(ctx context.Context, id Identity, taskID uuid.UUID) (*models.Task, error) {
	if err := RequireRoles(id); err != nil {
		return nil, e.deny(CheckProjectMemberOrAdmin, err)
	}
	task, project, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := e.memberOrAdmin(ctx, id, project); err != nil {
		return nil, err
	}
	return task, nil
}

func (e *Evaluator) ownerOrAdmin(id Identity, project *models.Project) error {
	if id.IsAdmin() || id.Is(project.OwnerID) {
		e.record(CheckProjectOwnerOrAdmin, true)
		return nil
	}
	return e.deny(CheckProjectOwnerOrAdmin, response.NewForbidden("only the project owner or an admin may do this"))
}

func (e *Evaluator) memberOrAdmin(ctx context.Context, id Identity, project *models.Project) error {
	if id.IsAdmin() {
		e.record(CheckProjectMemberOrAdmin, true)
		return nil
	}
	if id.HasUser() {
		member, err := e.members.Exists(ctx, project.ID, id.UserID)
		if err != nil {
			return err
		}
		if member {
			e.record(CheckProjectMemberOrAdmin, true)
			return nil
		}
	}
	return e.deny(CheckProjectMemberOrAdmin, response.NewForbidden("not a member of this project"))
}

func (e *Evaluator) loadProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	project, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, response.NewNotFound("project not found")
	}
	return project, nil
}

func (e *Evaluator) loadTask(ctx context.Context, taskID uuid.UUID) (*models.Task, *models.Project, error) {
	task, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, response.NewNotFound("task not found")
	}
	project, err := e.loadProject(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return task, project, nil
}

func (e *Evaluator) deny(check string, err error) error {
	e.record(check, false)
	return err
}

func (e *Evaluator) record(check string, allowed bool) {
	if e.recorder != nil {
		e.recorder.RecordDecision(check, allowed)
	}
}
