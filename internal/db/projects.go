package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Project represents a registered git repository.
type Project struct {
	ID            string
	Name          string
	RepoPath      string
	DefaultBranch string
	SSHHost       string // empty = local execution
	CreatedAt     LocalTime
}

// Duplicate errors returned by CreateProject. These surface the store's
// uniqueness constraints, which are the backstop against racing registrations.
var (
	ErrDuplicateName = fmt.Errorf("a project with this name already exists")
	ErrDuplicatePath = fmt.Errorf("this repository is already registered")
)

// PathKey returns the deduplication key for a host/path pair.
func PathKey(sshHost, repoPath string) string {
	return sshHost + ":" + repoPath
}

// CreateProject creates a new project. The ID is generated if unset.
func (db *DB) CreateProject(p *Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.DefaultBranch == "" {
		p.DefaultBranch = "main"
	}

	_, err := db.Exec(`
		INSERT INTO projects (id, name, repo_path, default_branch, ssh_host)
		VALUES (?, ?, ?, ?, NULLIF(?, ''))
	`, p.ID, p.Name, p.RepoPath, p.DefaultBranch, p.SSHHost)
	if err != nil {
		if strings.Contains(err.Error(), "projects.name") {
			return ErrDuplicateName
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicatePath
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID. Returns nil if not found.
func (db *DB) GetProject(id string) (*Project, error) {
	p := &Project{}
	err := db.QueryRow(`
		SELECT id, name, repo_path, default_branch, COALESCE(ssh_host, ''), created_at
		FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.RepoPath, &p.DefaultBranch, &p.SSHHost, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return p, nil
}

// GetProjectByName retrieves a project by name. Returns nil if not found.
func (db *DB) GetProjectByName(name string) (*Project, error) {
	p := &Project{}
	err := db.QueryRow(`
		SELECT id, name, repo_path, default_branch, COALESCE(ssh_host, ''), created_at
		FROM projects WHERE name = ?
	`, name).Scan(&p.ID, &p.Name, &p.RepoPath, &p.DefaultBranch, &p.SSHHost, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return p, nil
}

// ListProjects returns all projects in registration order.
func (db *DB) ListProjects() ([]*Project, error) {
	rows, err := db.Query(`
		SELECT id, name, repo_path, default_branch, COALESCE(ssh_host, ''), created_at
		FROM projects ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.RepoPath, &p.DefaultBranch, &p.SSHHost, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and clears project_id on tasks that
// reference it. The tasks themselves survive; their branch and session
// metadata stays informational. Returns false if the project did not exist.
func (db *DB) DeleteProject(id string) (bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE tasks SET project_id = NULL WHERE project_id = ?`, id); err != nil {
		return false, fmt.Errorf("clear task references: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}
