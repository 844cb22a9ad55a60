package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Task represents a kanban task.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	Ordinal     int    // position within the status column
	BranchName  string // set when the task has a linked branch
	BaseBranch  string
	SessionType string // "tmux" or "zellij" when a session is bound
	SessionName string // identifier of the provisioned terminal session
	AgentType   string // free-form tag for the assistant running in the session
	SSHHost     string // host the session runs on, empty = local
	ProjectID   string // empty when not linked to a project
	CreatedAt   LocalTime
	UpdatedAt   LocalTime
}

// Task statuses (kanban columns)
const (
	StatusTodo     = "TODO"
	StatusProgress = "PROGRESS"
	StatusReview   = "REVIEW"
	StatusDone     = "DONE"
)

// Session types
const (
	SessionTmux   = "tmux"
	SessionZellij = "zellij"
)

// ValidStatus reports whether s is one of the four kanban statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// ValidSessionType reports whether s is a supported session type.
func ValidSessionType(s string) bool {
	return s == SessionTmux || s == SessionZellij
}

const taskColumns = `id, title, description, status, ordinal,
	COALESCE(branch_name, ''), COALESCE(base_branch, ''),
	COALESCE(session_type, ''), COALESCE(session_name, ''),
	COALESCE(agent_type, ''), COALESCE(ssh_host, ''),
	COALESCE(project_id, ''), created_at, updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*Task, error) {
	t := &Task{}
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Ordinal,
		&t.BranchName, &t.BaseBranch,
		&t.SessionType, &t.SessionName,
		&t.AgentType, &t.SSHHost,
		&t.ProjectID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTask creates a new task. The ID is generated if unset, and the task
// is placed at the end of its status column.
func (db *DB) CreateTask(t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if !ValidStatus(t.Status) {
		return fmt.Errorf("invalid status %q", t.Status)
	}

	_, err := db.Exec(`
		INSERT INTO tasks (id, title, description, status, ordinal,
			branch_name, base_branch, session_type, session_name,
			agent_type, ssh_host, project_id)
		VALUES (?, ?, ?, ?,
			(SELECT COALESCE(MAX(ordinal), 0) + 1 FROM tasks WHERE status = ?),
			?, ?, ?, ?, ?, ?, NULLIF(?, ''))
	`, t.ID, t.Title, t.Description, t.Status, t.Status,
		t.BranchName, t.BaseBranch, t.SessionType, t.SessionName,
		t.AgentType, t.SSHHost, t.ProjectID)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	created, err := db.GetTask(t.ID)
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

// GetTask retrieves a task by ID. Returns nil if not found.
func (db *DB) GetTask(id string) (*Task, error) {
	t, err := scanTask(db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

// ListTasks returns all tasks ordered by status column position.
func (db *DB) ListTasks() ([]*Task, error) {
	return db.queryTasks(`SELECT ` + taskColumns + ` FROM tasks ORDER BY status, ordinal ASC, created_at ASC`)
}

// ListTasksByStatus returns the tasks in one status column in board order.
func (db *DB) ListTasksByStatus(status string) ([]*Task, error) {
	return db.queryTasks(`SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY ordinal ASC, created_at ASC`, status)
}

func (db *DB) queryTasks(query string, args ...interface{}) ([]*Task, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus moves a task to a status column, placing it at the end.
// Returns false if the task does not exist.
func (db *DB) UpdateTaskStatus(id, status string) (bool, error) {
	if !ValidStatus(status) {
		return false, fmt.Errorf("invalid status %q", status)
	}

	result, err := db.Exec(`
		UPDATE tasks SET status = ?,
			ordinal = (SELECT COALESCE(MAX(ordinal), 0) + 1 FROM tasks WHERE status = ?),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, status, id)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ReorderTasks assigns each task in the list an ordinal matching its
// position. Tasks that are not (or no longer) in the given status column are
// left untouched, so a stale resubmission cannot drag tasks across columns.
// Applying the same list twice yields the same stored order.
func (db *DB) ReorderTasks(status string, ids []string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec(`
			UPDATE tasks SET ordinal = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status = ?
		`, i+1, id, status); err != nil {
			return fmt.Errorf("reorder task %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// BranchBinding is the set of fields linking a task to a branch and session.
type BranchBinding struct {
	ProjectID   string
	BranchName  string
	BaseBranch  string
	SessionType string
	SessionName string
	SSHHost     string
}

// BindTaskBranch applies a branch/session binding to a task as one atomic
// record update. Returns false if the task does not exist.
func (db *DB) BindTaskBranch(id string, b BranchBinding) (bool, error) {
	result, err := db.Exec(`
		UPDATE tasks SET project_id = NULLIF(?, ''), branch_name = ?, base_branch = ?,
			session_type = ?, session_name = ?, ssh_host = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, b.ProjectID, b.BranchName, b.BaseBranch, b.SessionType, b.SessionName, b.SSHHost, id)
	if err != nil {
		return false, fmt.Errorf("bind task branch: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteTask removes a task. Returns false if it did not exist.
func (db *DB) DeleteTask(id string) (bool, error) {
	result, err := db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// GetSetting returns a setting value, or empty string if unset.
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting sets a setting value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?
	`, key, value, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
