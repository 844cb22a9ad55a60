// Package board owns the kanban task lifecycle: status moves, column
// ordering, and the task -> branch -> session binding workflow.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/devboard/devboard/internal/db"
	"github.com/devboard/devboard/internal/git"
)

// Typed failures surfaced to callers.
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrSessionExists   = errors.New("task already has an active session")
	ErrDuplicateBranch = errors.New("branch already exists in the repository")
)

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SessionProvisionError wraps a failure from the terminal-multiplexer
// provisioning service.
type SessionProvisionError struct {
	Err error
}

func (e *SessionProvisionError) Error() string {
	return fmt.Sprintf("provision session: %v", e.Err)
}

func (e *SessionProvisionError) Unwrap() error { return e.Err }

// SessionBinder provisions a terminal-multiplexer session in a working
// directory on a host and returns its session name. The multiplexer itself
// is an external collaborator; this core only consumes the result.
type SessionBinder interface {
	Provision(ctx context.Context, sessionType, host, workingDir string) (string, error)
}

// ProjectResolver looks up a registered project by id.
type ProjectResolver interface {
	Get(ctx context.Context, projectID string) (*db.Project, error)
}

// BranchCreator creates a branch in a repository.
type BranchCreator interface {
	CreateBranch(ctx context.Context, repoPath, host, name, base string) error
}

// Lifecycle is a stateless service over the task store.
type Lifecycle struct {
	db       *db.DB
	projects ProjectResolver
	branches BranchCreator
	binder   SessionBinder
	logger   *log.Logger
}

// New creates a task lifecycle service.
func New(database *db.DB, projects ProjectResolver, branches BranchCreator, binder SessionBinder) *Lifecycle {
	return &Lifecycle{
		db:       database,
		projects: projects,
		branches: branches,
		binder:   binder,
		logger:   log.NewWithOptions(io.Discard, log.Options{Prefix: "board"}),
	}
}

// WithLogging makes the lifecycle log to w.
func (l *Lifecycle) WithLogging(w io.Writer) *Lifecycle {
	l.logger = log.NewWithOptions(w, log.Options{Prefix: "board"})
	return l
}

// CreateTaskRequest carries the validated input for task creation. A task
// may be created already branched and sessioned, which runs the same
// workflow as BranchFromTask before the record is inserted.
type CreateTaskRequest struct {
	Title       string
	Description string
	Status      string
	ProjectID   string
	BranchName  string
	BaseBranch  string
	SessionType string
	AgentType   string
}

// CreateTask creates a task at the end of its status column. When the
// request carries a branch name, the branch is created and a session
// provisioned first; a failure there leaves no task behind.
func (l *Lifecycle) CreateTask(ctx context.Context, req CreateTaskRequest) (*db.Task, error) {
	if req.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}
	if req.Status == "" {
		req.Status = db.StatusTodo
	}
	if !db.ValidStatus(req.Status) {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", req.Status)}
	}

	task := &db.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		AgentType:   req.AgentType,
		ProjectID:   req.ProjectID,
	}

	if req.BranchName != "" {
		if req.ProjectID == "" {
			return nil, &ValidationError{Field: "projectId", Message: "is required to create a branch"}
		}
		binding, err := l.provisionBranch(ctx, req.ProjectID, req.BaseBranch, req.BranchName, req.SessionType)
		if err != nil {
			return nil, err
		}
		task.BranchName = binding.BranchName
		task.BaseBranch = binding.BaseBranch
		task.SessionType = binding.SessionType
		task.SessionName = binding.SessionName
		task.SSHHost = binding.SSHHost
	}

	if err := l.db.CreateTask(task); err != nil {
		return nil, err
	}
	l.logger.Info("created task", "id", task.ID, "title", task.Title, "branch", task.BranchName)
	return task, nil
}

// Get returns a task by id, or ErrTaskNotFound.
func (l *Lifecycle) Get(ctx context.Context, taskID string) (*db.Task, error) {
	task, err := l.db.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return task, nil
}

// List returns all tasks in board order.
func (l *Lifecycle) List(ctx context.Context) ([]*db.Task, error) {
	return l.db.ListTasks()
}

// Move sets a task's status. Any column may move to any other column; the
// task lands at the end of the destination unless a reorder follows.
func (l *Lifecycle) Move(ctx context.Context, taskID, newStatus string) (*db.Task, error) {
	if !db.ValidStatus(newStatus) {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", newStatus)}
	}

	moved, err := l.db.UpdateTaskStatus(taskID, newStatus)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return l.Get(ctx, taskID)
}

// Reorder applies the caller's complete ordering of one status column.
// Resubmitting the same list is a no-op, so a stale duplicate request from
// an optimistic client cannot corrupt the ordering. Concurrent reorders of
// the same column are last-write-wins.
func (l *Lifecycle) Reorder(ctx context.Context, status string, taskIDs []string) error {
	if !db.ValidStatus(status) {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	return l.db.ReorderTasks(status, taskIDs)
}

// BranchFromTask creates newBranchName from baseBranch in the project's
// repository, provisions a terminal session of the requested type in the
// repository on the project's host, and binds everything to the task as one
// atomic record update. The task record is never half-updated: any failure
// before the final update leaves it untouched (the git branch, once created,
// is not rolled back).
func (l *Lifecycle) BranchFromTask(ctx context.Context, taskID, projectID, baseBranch, newBranchName, sessionType string) (*db.Task, error) {
	task, err := l.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	// One live session per task. A second concurrent BranchFromTask on the
	// same task is rejected here instead of creating two branches.
	if task.SessionName != "" {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, task.SessionName)
	}

	binding, err := l.provisionBranch(ctx, projectID, baseBranch, newBranchName, sessionType)
	if err != nil {
		return nil, err
	}

	bound, err := l.db.BindTaskBranch(taskID, *binding)
	if err != nil {
		return nil, err
	}
	if !bound {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	l.logger.Info("branched task", "task", taskID, "branch", newBranchName, "session", binding.SessionName)
	return l.Get(ctx, taskID)
}

// provisionBranch runs the branch-then-session part of the binding workflow
// and returns the fields to persist.
func (l *Lifecycle) provisionBranch(ctx context.Context, projectID, baseBranch, branchName, sessionType string) (*db.BranchBinding, error) {
	if branchName == "" {
		return nil, &ValidationError{Field: "branchName", Message: "is required"}
	}
	if sessionType != "" && !db.ValidSessionType(sessionType) {
		return nil, &ValidationError{Field: "sessionType", Message: fmt.Sprintf("unknown session type %q", sessionType)}
	}

	project, err := l.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if baseBranch == "" {
		baseBranch = project.DefaultBranch
	}

	if err := l.branches.CreateBranch(ctx, project.RepoPath, project.SSHHost, branchName, baseBranch); err != nil {
		if errors.Is(err, git.ErrBranchExists) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBranch, branchName)
		}
		return nil, err
	}

	binding := &db.BranchBinding{
		ProjectID:  projectID,
		BranchName: branchName,
		BaseBranch: baseBranch,
		SSHHost:    project.SSHHost,
	}

	if sessionType != "" {
		sessionName, err := l.binder.Provision(ctx, sessionType, project.SSHHost, project.RepoPath)
		if err != nil {
			return nil, &SessionProvisionError{Err: err}
		}
		binding.SessionType = sessionType
		binding.SessionName = sessionName
	}

	return binding, nil
}

// DeleteTask removes a task. Returns false when it was absent.
func (l *Lifecycle) DeleteTask(ctx context.Context, taskID string) (bool, error) {
	deleted, err := l.db.DeleteTask(taskID)
	if err != nil {
		return false, err
	}
	if deleted {
		l.logger.Info("deleted task", "id", taskID)
	}
	return deleted, nil
}
