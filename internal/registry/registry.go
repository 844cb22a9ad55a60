// Package registry owns the authoritative set of registered projects:
// registration, bulk scan-and-register, and deletion.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/charmbracelet/log"

	"github.com/devboard/devboard/internal/db"
)

// Typed failures surfaced to callers. Expected conditions are values, never
// panics or opaque strings.
var (
	ErrInvalidRepo      = errors.New("not a valid git repository")
	ErrDuplicateName    = errors.New("a project with this name already exists")
	ErrDuplicateProject = errors.New("this repository is already registered")
	ErrProjectNotFound  = errors.New("project not found")
)

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RepoScanner finds git repository roots under a directory tree.
type RepoScanner interface {
	Scan(ctx context.Context, root, host string) ([]string, error)
}

// BranchService answers branch questions about a repository.
type BranchService interface {
	DefaultBranch(ctx context.Context, repoPath, host string) (string, error)
	List(ctx context.Context, repoPath, host string) ([]string, error)
	Validate(ctx context.Context, repoPath, host string) bool
}

// Registry is a stateless service over the project store. All project
// mutation goes through it so the uniqueness invariants stay in one place.
type Registry struct {
	db       *db.DB
	scanner  RepoScanner
	branches BranchService
	logger   *log.Logger
}

// New creates a registry.
func New(database *db.DB, scanner RepoScanner, branches BranchService) *Registry {
	return &Registry{
		db:       database,
		scanner:  scanner,
		branches: branches,
		logger:   log.NewWithOptions(io.Discard, log.Options{Prefix: "registry"}),
	}
}

// WithLogging makes the registry log to w.
func (r *Registry) WithLogging(w io.Writer) *Registry {
	r.logger = log.NewWithOptions(w, log.Options{Prefix: "registry"})
	return r
}

// Register validates and registers a single repository under an explicit
// name, resolving its default branch.
func (r *Registry) Register(ctx context.Context, name, repoPath, host string) (*db.Project, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if repoPath == "" {
		return nil, &ValidationError{Field: "repoPath", Message: "is required"}
	}

	if !r.branches.Validate(ctx, repoPath, host) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRepo, repoPath)
	}

	existing, err := r.db.GetProjectByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	defaultBranch, err := r.branches.DefaultBranch(ctx, repoPath, host)
	if err != nil {
		return nil, fmt.Errorf("detect default branch: %w", err)
	}

	project := &db.Project{
		Name:          name,
		RepoPath:      repoPath,
		DefaultBranch: defaultBranch,
		SSHHost:       host,
	}
	if err := r.db.CreateProject(project); err != nil {
		return nil, mapStoreError(err)
	}

	r.logger.Info("registered project", "name", name, "path", repoPath, "host", host)
	return project, nil
}

// ScanError is a per-path failure from a bulk registration.
type ScanError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ScanResult reports the outcome of a bulk registration. Skips are never
// errors, and errors are per-item, never fatal to the batch.
type ScanResult struct {
	Registered []string    `json:"registered"`
	Skipped    []string    `json:"skipped"`
	Errors     []ScanError `json:"errors"`
}

// BulkRegister scans rootPath on host and registers every repository that is
// not already known. Display names are resolved against a running name set:
// the repository's base name, then "<parent>/<base>", then "<base>-<n>" for
// the smallest free n >= 2. Name resolution is order-sensitive, so the loop
// is sequential per invocation.
func (r *Registry) BulkRegister(ctx context.Context, rootPath, host string) (*ScanResult, error) {
	result := &ScanResult{
		Registered: []string{},
		Skipped:    []string{},
		Errors:     []ScanError{},
	}

	repoPaths, err := r.scanner.Scan(ctx, rootPath, host)
	if err != nil {
		return nil, err
	}
	if len(repoPaths) == 0 {
		return result, nil
	}

	existing, err := r.db.ListProjects()
	if err != nil {
		return nil, err
	}
	knownPaths := make(map[string]bool, len(existing))
	takenNames := make(map[string]bool, len(existing))
	for _, p := range existing {
		knownPaths[db.PathKey(p.SSHHost, p.RepoPath)] = true
		takenNames[p.Name] = true
	}

	for _, repoPath := range repoPaths {
		key := db.PathKey(host, repoPath)
		if knownPaths[key] {
			result.Skipped = append(result.Skipped, repoPath)
			continue
		}

		name := resolveName(repoPath, takenNames)

		defaultBranch, err := r.branches.DefaultBranch(ctx, repoPath, host)
		if err != nil {
			result.Errors = append(result.Errors, ScanError{Path: repoPath, Message: err.Error()})
			continue
		}

		project := &db.Project{
			Name:          name,
			RepoPath:      repoPath,
			DefaultBranch: defaultBranch,
			SSHHost:       host,
		}
		if err := r.db.CreateProject(project); err != nil {
			result.Errors = append(result.Errors, ScanError{Path: repoPath, Message: mapStoreError(err).Error()})
			continue
		}

		knownPaths[key] = true
		result.Registered = append(result.Registered, name)
	}

	r.logger.Info("bulk registration finished",
		"root", rootPath, "host", host,
		"registered", len(result.Registered),
		"skipped", len(result.Skipped),
		"errors", len(result.Errors),
	)
	return result, nil
}

// resolveName picks a display name for repoPath that is free in taken, and
// reserves it. Precedence: base name, "<parent>/<base>", "<base>-<n>".
func resolveName(repoPath string, taken map[string]bool) string {
	base := path.Base(repoPath)
	if !taken[base] {
		taken[base] = true
		return base
	}

	combined := path.Base(path.Dir(repoPath)) + "/" + base
	if !taken[combined] {
		taken[combined] = true
		return combined
	}

	for n := 2; ; n++ {
		numbered := fmt.Sprintf("%s-%d", base, n)
		if !taken[numbered] {
			taken[numbered] = true
			return numbered
		}
	}
}

// Delete removes a project. Tasks that reference it keep everything except
// the reference itself. Returns false when the project was absent.
func (r *Registry) Delete(ctx context.Context, projectID string) (bool, error) {
	deleted, err := r.db.DeleteProject(projectID)
	if err != nil {
		return false, err
	}
	if deleted {
		r.logger.Info("deleted project", "id", projectID)
	}
	return deleted, nil
}

// Get returns a project by id, or ErrProjectNotFound.
func (r *Registry) Get(ctx context.Context, projectID string) (*db.Project, error) {
	project, err := r.db.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return project, nil
}

// List returns all projects in registration order.
func (r *Registry) List(ctx context.Context) ([]*db.Project, error) {
	return r.db.ListProjects()
}

// ProjectBranches lists the branches of a registered project's repository.
func (r *Registry) ProjectBranches(ctx context.Context, projectID string) ([]string, error) {
	project, err := r.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return r.branches.List(ctx, project.RepoPath, project.SSHHost)
}

// mapStoreError lifts the store's constraint violations into registry errors.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, db.ErrDuplicateName):
		return ErrDuplicateName
	case errors.Is(err, db.ErrDuplicatePath):
		return ErrDuplicateProject
	default:
		return err
	}
}
