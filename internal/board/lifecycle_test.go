package board

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/devboard/devboard/internal/db"
	"github.com/devboard/devboard/internal/git"
)

var errNoProject = errors.New("project not found")

type fakeProjects struct {
	projects map[string]*db.Project
}

func (f *fakeProjects) Get(ctx context.Context, projectID string) (*db.Project, error) {
	if p, ok := f.projects[projectID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", errNoProject, projectID)
}

type fakeBrancher struct {
	err   error
	calls []string
}

func (f *fakeBrancher) CreateBranch(ctx context.Context, repoPath, host, name, base string) error {
	f.calls = append(f.calls, fmt.Sprintf("%s@%s: %s from %s", repoPath, host, name, base))
	return f.err
}

type fakeBinder struct {
	name  string
	err   error
	calls int
}

func (f *fakeBinder) Provision(ctx context.Context, sessionType, host, workingDir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.name != "" {
		return f.name, nil
	}
	return "session-1", nil
}

type fixture struct {
	db       *db.DB
	projects *fakeProjects
	brancher *fakeBrancher
	binder   *fakeBinder
	life     *Lifecycle
}

func setupLifecycle(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	f := &fixture{
		db:       database,
		projects: &fakeProjects{projects: map[string]*db.Project{}},
		brancher: &fakeBrancher{},
		binder:   &fakeBinder{},
	}
	f.life = New(database, f.projects, f.brancher, f.binder)
	return f
}

func (f *fixture) addProject(t *testing.T, id, name, repoPath, host string) *db.Project {
	t.Helper()
	p := &db.Project{ID: id, Name: name, RepoPath: repoPath, DefaultBranch: "main", SSHHost: host}
	f.projects.projects[id] = p
	return p
}

func TestCreateTask(t *testing.T) {
	f := setupLifecycle(t)

	task, err := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "Fix login"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != db.StatusTodo {
		t.Errorf("expected TODO default, got %s", task.Status)
	}
	if task.ID == "" {
		t.Error("expected generated id")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	f := setupLifecycle(t)

	var validationErr *ValidationError
	if _, err := f.life.CreateTask(context.Background(), CreateTaskRequest{}); !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError for missing title, got %v", err)
	}
	if _, err := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "x", Status: "LIMBO"}); !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError for bad status, got %v", err)
	}
	if _, err := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "x", BranchName: "b"}); !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError for branch without project, got %v", err)
	}
}

func TestCreateTaskWithBranchAndSession(t *testing.T) {
	f := setupLifecycle(t)
	f.addProject(t, "p1", "svc", "/repos/svc", "build1")
	f.binder.name = "devboard-svc-ab12"

	task, err := f.life.CreateTask(context.Background(), CreateTaskRequest{
		Title:       "Feature",
		ProjectID:   "p1",
		BranchName:  "feat/x",
		SessionType: db.SessionZellij,
		AgentType:   "claude",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if task.BranchName != "feat/x" || task.BaseBranch != "main" {
		t.Errorf("branch fields: %+v", task)
	}
	if task.SessionType != db.SessionZellij || task.SessionName != "devboard-svc-ab12" {
		t.Errorf("session fields: %+v", task)
	}
	if task.SSHHost != "build1" {
		t.Errorf("expected project host, got %q", task.SSHHost)
	}
	if len(f.brancher.calls) != 1 {
		t.Errorf("expected one branch creation, got %v", f.brancher.calls)
	}
}

func TestCreateTaskProvisionFailureLeavesNoTask(t *testing.T) {
	f := setupLifecycle(t)
	f.addProject(t, "p1", "svc", "/repos/svc", "")
	f.binder.err = errors.New("tmux not installed")

	_, err := f.life.CreateTask(context.Background(), CreateTaskRequest{
		Title:       "Feature",
		ProjectID:   "p1",
		BranchName:  "feat/x",
		SessionType: db.SessionTmux,
	})
	var provisionErr *SessionProvisionError
	if !errors.As(err, &provisionErr) {
		t.Fatalf("expected SessionProvisionError, got %v", err)
	}

	tasks, _ := f.db.ListTasks()
	if len(tasks) != 0 {
		t.Errorf("expected no task persisted, got %d", len(tasks))
	}
}

func TestMove(t *testing.T) {
	f := setupLifecycle(t)

	task, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "x"})

	// Transitions are unrestricted: TODO may jump straight to DONE.
	moved, err := f.life.Move(context.Background(), task.ID, db.StatusDone)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Status != db.StatusDone {
		t.Errorf("expected DONE, got %s", moved.Status)
	}

	if _, err := f.life.Move(context.Background(), "no-such-id", db.StatusTodo); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestReorder(t *testing.T) {
	f := setupLifecycle(t)

	a, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "a"})
	b, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "b"})

	if err := f.life.Reorder(context.Background(), db.StatusTodo, []string{b.ID, a.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	tasks, _ := f.db.ListTasksByStatus(db.StatusTodo)
	if tasks[0].ID != b.ID || tasks[1].ID != a.ID {
		t.Errorf("unexpected order: %s, %s", tasks[0].Title, tasks[1].Title)
	}

	var validationErr *ValidationError
	if err := f.life.Reorder(context.Background(), "LIMBO", nil); !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestBranchFromTask(t *testing.T) {
	f := setupLifecycle(t)
	f.addProject(t, "p1", "svc", "/repos/svc", "build1")

	task, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "Feature"})

	updated, err := f.life.BranchFromTask(context.Background(), task.ID, "p1", "", "feat/x", db.SessionTmux)
	if err != nil {
		t.Fatalf("branch from task: %v", err)
	}

	if updated.BranchName != "feat/x" || updated.BaseBranch != "main" {
		t.Errorf("branch fields: %+v", updated)
	}
	if updated.SessionName == "" || updated.SessionType != db.SessionTmux {
		t.Errorf("session fields: %+v", updated)
	}
	if updated.ProjectID != "p1" || updated.SSHHost != "build1" {
		t.Errorf("link fields: %+v", updated)
	}
}

func TestBranchFromTaskSessionExists(t *testing.T) {
	f := setupLifecycle(t)
	f.addProject(t, "p1", "svc", "/repos/svc", "")

	task, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "Feature"})
	if _, err := f.life.BranchFromTask(context.Background(), task.ID, "p1", "", "feat/x", db.SessionTmux); err != nil {
		t.Fatalf("first branch: %v", err)
	}
	before, _ := f.db.GetTask(task.ID)

	_, err := f.life.BranchFromTask(context.Background(), task.ID, "p1", "", "feat/y", db.SessionTmux)
	if !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	// Record unchanged; no second branch, no second session.
	after, _ := f.db.GetTask(task.ID)
	if after.BranchName != before.BranchName || after.SessionName != before.SessionName {
		t.Errorf("task mutated: %+v vs %+v", before, after)
	}
	if len(f.brancher.calls) != 1 {
		t.Errorf("expected one branch creation, got %v", f.brancher.calls)
	}
	if f.binder.calls != 1 {
		t.Errorf("expected one provision call, got %d", f.binder.calls)
	}
}

func TestBranchFromTaskDuplicateBranch(t *testing.T) {
	f := setupLifecycle(t)
	f.addProject(t, "p1", "svc", "/repos/svc", "")
	f.brancher.err = fmt.Errorf("%w: feat/x", git.ErrBranchExists)

	task, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "Feature"})

	_, err := f.life.BranchFromTask(context.Background(), task.ID, "p1", "", "feat/x", db.SessionTmux)
	if !errors.Is(err, ErrDuplicateBranch) {
		t.Fatalf("expected ErrDuplicateBranch, got %v", err)
	}

	got, _ := f.db.GetTask(task.ID)
	if got.BranchName != "" || got.SessionName != "" {
		t.Errorf("task mutated on failure: %+v", got)
	}
	if f.binder.calls != 0 {
		t.Error("session must not be provisioned when branch creation fails")
	}
}

func TestBranchFromTaskProvisionFailure(t *testing.T) {
	f := setupLifecycle(t)
	f.addProject(t, "p1", "svc", "/repos/svc", "")
	f.binder.err = errors.New("zellij exited 1")

	task, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "Feature"})

	_, err := f.life.BranchFromTask(context.Background(), task.ID, "p1", "", "feat/x", db.SessionZellij)
	var provisionErr *SessionProvisionError
	if !errors.As(err, &provisionErr) {
		t.Fatalf("expected SessionProvisionError, got %v", err)
	}

	// The git branch exists at this point, but the task record must stay
	// untouched.
	got, _ := f.db.GetTask(task.ID)
	if got.BranchName != "" || got.SessionName != "" || got.ProjectID != "" {
		t.Errorf("task half-updated: %+v", got)
	}
}

func TestBranchFromTaskProjectNotFound(t *testing.T) {
	f := setupLifecycle(t)

	task, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "Feature"})

	_, err := f.life.BranchFromTask(context.Background(), task.ID, "ghost", "", "feat/x", db.SessionTmux)
	if !errors.Is(err, errNoProject) {
		t.Fatalf("expected project lookup error, got %v", err)
	}
	if len(f.brancher.calls) != 0 {
		t.Error("no branch should be created without a project")
	}
}

func TestBranchFromTaskWithoutSession(t *testing.T) {
	f := setupLifecycle(t)
	f.addProject(t, "p1", "svc", "/repos/svc", "")

	task, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "Feature"})

	// Empty session type binds the branch only.
	updated, err := f.life.BranchFromTask(context.Background(), task.ID, "p1", "dev", "feat/x", "")
	if err != nil {
		t.Fatalf("branch: %v", err)
	}
	if updated.BranchName != "feat/x" || updated.BaseBranch != "dev" {
		t.Errorf("branch fields: %+v", updated)
	}
	if updated.SessionName != "" || updated.SessionType != "" {
		t.Errorf("unexpected session: %+v", updated)
	}
	if f.binder.calls != 0 {
		t.Error("binder must not be called without a session type")
	}
}

func TestDeleteTask(t *testing.T) {
	f := setupLifecycle(t)

	task, _ := f.life.CreateTask(context.Background(), CreateTaskRequest{Title: "x"})

	deleted, err := f.life.DeleteTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion")
	}

	deleted, _ = f.life.DeleteTask(context.Background(), task.ID)
	if deleted {
		t.Error("expected false on second delete")
	}
}
