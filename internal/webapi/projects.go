package webapi

import (
	"net/http"
	"time"

	"github.com/devboard/devboard/internal/db"
	"github.com/devboard/devboard/internal/registry"
)

// ProjectResponse represents a project in JSON responses.
type ProjectResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	RepoPath      string    `json:"repo_path"`
	DefaultBranch string    `json:"default_branch"`
	SSHHost       string    `json:"ssh_host,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func projectToResponse(p *db.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:            p.ID,
		Name:          p.Name,
		RepoPath:      p.RepoPath,
		DefaultBranch: p.DefaultBranch,
		SSHHost:       p.SSHHost,
		CreatedAt:     p.CreatedAt.Time,
	}
}

// handleListProjects handles GET /projects
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.registry.List(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}

	responses := make([]*ProjectResponse, len(projects))
	for i, p := range projects {
		responses[i] = projectToResponse(p)
	}

	jsonResponse(w, responses, http.StatusOK)
}

// RegisterProjectRequest represents a request to register a project.
type RegisterProjectRequest struct {
	Name     string `json:"name"`
	RepoPath string `json:"repo_path"`
	SSHHost  string `json:"ssh_host,omitempty"`
}

// handleRegisterProject handles POST /projects
func (s *Server) handleRegisterProject(w http.ResponseWriter, r *http.Request) {
	var req RegisterProjectRequest
	if err := parseJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	project, err := s.registry.Register(r.Context(), req.Name, req.RepoPath, req.SSHHost)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.BroadcastBoardUpdate("project_registered", projectToResponse(project))
	jsonResponse(w, projectToResponse(project), http.StatusCreated)
}

// ScanProjectsRequest represents a bulk registration request.
type ScanProjectsRequest struct {
	RootPath string `json:"root_path"`
	SSHHost  string `json:"ssh_host,omitempty"`
}

// handleScanProjects handles POST /projects/scan
func (s *Server) handleScanProjects(w http.ResponseWriter, r *http.Request) {
	var req ScanProjectsRequest
	if err := parseJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RootPath == "" {
		jsonError(w, "Root path is required", http.StatusBadRequest)
		return
	}

	result, err := s.registry.BulkRegister(r.Context(), req.RootPath, req.SSHHost)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	if len(result.Registered) > 0 {
		s.BroadcastBoardUpdate("projects_scanned", result)
	}
	jsonResponse(w, result, http.StatusOK)
}

// handleGetProject handles GET /projects/{id}
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, projectToResponse(project), http.StatusOK)
}

// handleProjectBranches handles GET /projects/{id}/branches
func (s *Server) handleProjectBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := s.registry.ProjectBranches(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if branches == nil {
		branches = []string{}
	}
	jsonResponse(w, branches, http.StatusOK)
}

// handleDeleteProject handles DELETE /projects/{id}
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.registry.Delete(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if !deleted {
		jsonError(w, registry.ErrProjectNotFound.Error(), http.StatusNotFound)
		return
	}

	s.BroadcastBoardUpdate("project_deleted", map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}
