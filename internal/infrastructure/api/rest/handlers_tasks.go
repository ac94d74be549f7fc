package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lifeplan/service/internal/application/taskservice"
	"github.com/lifeplan/service/internal/infrastructure/logger"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// TaskHandlers provides HTTP handlers for task listing and status
// transition endpoints.
type TaskHandlers struct {
	tasks  *taskservice.Service
	logger *logger.Logger
}

// NewTaskHandlers creates a new TaskHandlers instance.
func NewTaskHandlers(tasks *taskservice.Service, log *logger.Logger) *TaskHandlers {
	return &TaskHandlers{tasks: tasks, logger: log}
}

type taskResponse struct {
	ID          uuid.UUID              `json:"id"`
	PlanID      uuid.UUID              `json:"plan_id"`
	TaskKey     string                 `json:"task_key"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Status      string                 `json:"status"`
	TaskKind    string                 `json:"task_kind"`
	DueDate     *string                `json:"due_date,omitempty"`
	CompletedAt *string                `json:"completed_at,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at"`
}

// taskKind derives task_kind from the task's metadata tags: a task
// tagged "decision" is a decision task, everything else is normal.
func taskKind(task *models.TaskModel) string {
	if task.IsDecision() {
		return "decision"
	}
	return "normal"
}

func toTaskResponse(task *models.TaskModel, includeMetadata bool) taskResponse {
	resp := taskResponse{
		ID:          task.ID,
		PlanID:      task.PlanID,
		TaskKey:     task.TaskKey,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		TaskKind:    taskKind(task),
		CreatedAt:   task.CreatedAt.UTC().Format(rfc3339Milli),
		UpdatedAt:   task.UpdatedAt.UTC().Format(rfc3339Milli),
	}
	if task.DueDate != nil {
		s := task.DueDate.Format("2006-01-02")
		resp.DueDate = &s
	}
	if task.CompletedAt != nil {
		s := task.CompletedAt.UTC().Format(rfc3339Milli)
		resp.CompletedAt = &s
	}
	if includeMetadata {
		resp.Metadata = task.Metadata
	}
	return resp
}

// HandleListTasks handles GET /plans/{id}/tasks.
func (h *TaskHandlers) HandleListTasks(c *gin.Context) {
	planID, ok := getParam(c, "plan_id")
	if !ok {
		return
	}
	id, err := uuid.Parse(planID)
	if err != nil {
		respondAPIError(c, ErrInvalidID)
		return
	}

	status := getQuery(c, "status", "")
	includeMetadata := getQuery(c, "include_metadata", "false") == "true"

	tasks, err := h.tasks.List(c.Request.Context(), id, status)
	if err != nil {
		h.logger.Error("failed to list plan tasks", "error", err, "plan_id", id, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toTaskResponse(task, includeMetadata))
	}
	respondJSON(c, http.StatusOK, out)
}

// HandleUpdateTaskStatus handles PATCH /plans/{id}/tasks/{task_id}.
func (h *TaskHandlers) HandleUpdateTaskStatus(c *gin.Context) {
	planID, ok := getParam(c, "plan_id")
	if !ok {
		return
	}
	pid, err := uuid.Parse(planID)
	if err != nil {
		respondAPIError(c, ErrInvalidID)
		return
	}

	taskID, ok := getParam(c, "task_id")
	if !ok {
		return
	}
	tid, err := uuid.Parse(taskID)
	if err != nil {
		respondAPIError(c, ErrInvalidID)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
		Force  bool   `json:"force"`
	}
	if err := bindJSON(c, &req); err != nil {
		return
	}

	task, err := h.tasks.UpdateStatus(c.Request.Context(), pid, tid, req.Status, req.Force)
	if err != nil {
		h.logger.Error("failed to update task status", "error", err, "plan_id", pid, "task_id", tid, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTaskResponse(task, true))
}
