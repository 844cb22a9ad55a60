package webapi

import (
	"net/http"
	"time"

	"github.com/devboard/devboard/internal/board"
	"github.com/devboard/devboard/internal/db"
)

// TaskResponse represents a task in JSON responses.
type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Order       int       `json:"order"`
	BranchName  string    `json:"branch_name,omitempty"`
	BaseBranch  string    `json:"base_branch,omitempty"`
	SessionType string    `json:"session_type,omitempty"`
	SessionName string    `json:"session_name,omitempty"`
	AgentType   string    `json:"agent_type,omitempty"`
	SSHHost     string    `json:"ssh_host,omitempty"`
	ProjectID   string    `json:"project_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func taskToResponse(t *db.Task) *TaskResponse {
	return &TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Order:       t.Ordinal,
		BranchName:  t.BranchName,
		BaseBranch:  t.BaseBranch,
		SessionType: t.SessionType,
		SessionName: t.SessionName,
		AgentType:   t.AgentType,
		SSHHost:     t.SSHHost,
		ProjectID:   t.ProjectID,
		CreatedAt:   t.CreatedAt.Time,
		UpdatedAt:   t.UpdatedAt.Time,
	}
}

// handleListTasks handles GET /tasks
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.lifecycle.List(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}

	responses := make([]*TaskResponse, len(tasks))
	for i, t := range tasks {
		responses[i] = taskToResponse(t)
	}

	jsonResponse(w, responses, http.StatusOK)
}

// CreateTaskRequest represents a request to create a task, optionally
// already branched and sessioned.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	BranchName  string `json:"branch_name,omitempty"`
	BaseBranch  string `json:"base_branch,omitempty"`
	SessionType string `json:"session_type,omitempty"`
	AgentType   string `json:"agent_type,omitempty"`
}

// handleCreateTask handles POST /tasks
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := parseJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := s.lifecycle.CreateTask(r.Context(), board.CreateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		ProjectID:   req.ProjectID,
		BranchName:  req.BranchName,
		BaseBranch:  req.BaseBranch,
		SessionType: req.SessionType,
		AgentType:   req.AgentType,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.BroadcastBoardUpdate("task_created", taskToResponse(task))
	jsonResponse(w, taskToResponse(task), http.StatusCreated)
}

// handleGetTask handles GET /tasks/{id}
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.lifecycle.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, taskToResponse(task), http.StatusOK)
}

// MoveTaskRequest represents a status change.
type MoveTaskRequest struct {
	Status string `json:"status"`
}

// handleMoveTask handles POST /tasks/{id}/move
func (s *Server) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	var req MoveTaskRequest
	if err := parseJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := s.lifecycle.Move(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.BroadcastBoardUpdate("task_moved", taskToResponse(task))
	jsonResponse(w, taskToResponse(task), http.StatusOK)
}

// ReorderTasksRequest carries the complete desired ordering of one column.
type ReorderTasksRequest struct {
	Status  string   `json:"status"`
	TaskIDs []string `json:"task_ids"`
}

// handleReorderTasks handles POST /tasks/reorder
func (s *Server) handleReorderTasks(w http.ResponseWriter, r *http.Request) {
	var req ReorderTasksRequest
	if err := parseJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.lifecycle.Reorder(r.Context(), req.Status, req.TaskIDs); err != nil {
		s.serviceError(w, err)
		return
	}

	s.BroadcastBoardUpdate("tasks_reordered", map[string]interface{}{
		"status":   req.Status,
		"task_ids": req.TaskIDs,
	})
	w.WriteHeader(http.StatusNoContent)
}

// BranchFromTaskRequest represents the branch-and-session workflow input.
type BranchFromTaskRequest struct {
	ProjectID   string `json:"project_id"`
	BaseBranch  string `json:"base_branch,omitempty"`
	BranchName  string `json:"branch_name"`
	SessionType string `json:"session_type"`
}

// handleBranchFromTask handles POST /tasks/{id}/branch
func (s *Server) handleBranchFromTask(w http.ResponseWriter, r *http.Request) {
	var req BranchFromTaskRequest
	if err := parseJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := s.lifecycle.BranchFromTask(r.Context(),
		r.PathValue("id"), req.ProjectID, req.BaseBranch, req.BranchName, req.SessionType)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.BroadcastBoardUpdate("task_branched", taskToResponse(task))
	jsonResponse(w, taskToResponse(task), http.StatusOK)
}

// handleDeleteTask handles DELETE /tasks/{id}
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.lifecycle.DeleteTask(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if !deleted {
		jsonError(w, board.ErrTaskNotFound.Error(), http.StatusNotFound)
		return
	}

	s.BroadcastBoardUpdate("task_deleted", map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}
