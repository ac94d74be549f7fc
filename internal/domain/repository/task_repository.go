package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// TaskRepository defines the interface for task persistence.
type TaskRepository interface {
	// FindByID retrieves a task by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*models.TaskModel, error)

	// ListByPlan retrieves a plan's tasks ordered by sort_key
	// ascending, optionally filtered by status.
	ListByPlan(ctx context.Context, planID uuid.UUID, status string) ([]*models.TaskModel, error)

	// StatusesByKeys returns the status of each task in a plan whose
	// task_key is in keys, keyed by task_key.
	StatusesByKeys(ctx context.Context, planID uuid.UUID, keys []string) (map[string]string, error)

	// Update persists a task's mutable fields (status, completed_at,
	// updated_at).
	Update(ctx context.Context, task *models.TaskModel) error

	// DueSoon retrieves a plan's todo tasks with a due_date within
	// [start, end] (inclusive, ISO-8601), ordered by (due_date asc,
	// sort_key asc).
	DueSoon(ctx context.Context, planID uuid.UUID, start, end string) ([]*models.TaskModel, error)
}
