package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/lifeplan/service/internal/domain/repository"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

var _ repository.TaskRepository = (*TaskRepositoryImpl)(nil)

// TaskRepositoryImpl implements repository.TaskRepository using Bun.
type TaskRepositoryImpl struct {
	db bun.IDB
}

// NewTaskRepository creates a new TaskRepositoryImpl.
func NewTaskRepository(db bun.IDB) *TaskRepositoryImpl {
	return &TaskRepositoryImpl{db: db}
}

// FindByID retrieves a task by ID.
func (r *TaskRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.TaskModel, error) {
	task := new(models.TaskModel)
	err := r.db.NewSelect().Model(task).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListByPlan retrieves a plan's tasks ordered by sort_key ascending.
func (r *TaskRepositoryImpl) ListByPlan(ctx context.Context, planID uuid.UUID, status string) ([]*models.TaskModel, error) {
	var tasks []*models.TaskModel
	q := r.db.NewSelect().Model(&tasks).Where("plan_id = ?", planID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.OrderExpr("sort_key ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return tasks, nil
}

// StatusesByKeys returns the status of each matching task, keyed by
// task_key.
func (r *TaskRepositoryImpl) StatusesByKeys(ctx context.Context, planID uuid.UUID, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	var rows []*models.TaskModel
	err := r.db.NewSelect().
		Model(&rows).
		Column("task_key", "status").
		Where("plan_id = ?", planID).
		Where("task_key IN (?)", bun.In(keys)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.TaskKey] = row.Status
	}
	return out, nil
}

// Update persists a task's mutable fields.
func (r *TaskRepositoryImpl) Update(ctx context.Context, task *models.TaskModel) error {
	_, err := r.db.NewUpdate().
		Model(task).
		Column("status", "completed_at", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// DueSoon retrieves a plan's todo tasks due within [start, end].
func (r *TaskRepositoryImpl) DueSoon(ctx context.Context, planID uuid.UUID, start, end string) ([]*models.TaskModel, error) {
	var tasks []*models.TaskModel
	err := r.db.NewSelect().
		Model(&tasks).
		Where("plan_id = ?", planID).
		Where("status = 'todo'").
		Where("due_date IS NOT NULL").
		Where("due_date >= ?", start).
		Where("due_date <= ?", end).
		OrderExpr("due_date ASC, sort_key ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
