package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// PlanRepository defines the interface for plan persistence, including
// the transactional create/recompute workflows that must keep a plan
// and its tasks consistent.
type PlanRepository interface {
	// CreateWithTasks inserts a plan and its ordered task set in a
	// single transaction.
	CreateWithTasks(ctx context.Context, plan *models.PlanModel, tasks []*models.TaskModel) error

	// ReplaceTasks overwrites plan.facts/snapshot/updated_at and
	// replaces the plan's task set in a single transaction.
	ReplaceTasks(ctx context.Context, plan *models.PlanModel, tasks []*models.TaskModel) error

	// FindByID retrieves a plan by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*models.PlanModel, error)

	// UpdateFacts persists only the facts column (used by
	// update_facts when recompute is not requested).
	UpdateFacts(ctx context.Context, id uuid.UUID, facts models.JSONBMap) error
}
