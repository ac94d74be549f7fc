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

var _ repository.PlanRepository = (*PlanRepositoryImpl)(nil)

// PlanRepositoryImpl implements repository.PlanRepository using Bun.
type PlanRepositoryImpl struct {
	db bun.IDB
}

// NewPlanRepository creates a new PlanRepositoryImpl.
func NewPlanRepository(db bun.IDB) *PlanRepositoryImpl {
	return &PlanRepositoryImpl{db: db}
}

// CreateWithTasks inserts a plan and its task set in a single
// transaction; partial plans are never visible to other readers.
func (r *PlanRepositoryImpl) CreateWithTasks(ctx context.Context, plan *models.PlanModel, tasks []*models.TaskModel) error {
	return inTx(ctx, r.db, func(tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(plan).Exec(ctx); err != nil {
			return err
		}
		for _, task := range tasks {
			task.PlanID = plan.ID
		}
		if len(tasks) > 0 {
			if _, err := tx.NewInsert().Model(&tasks).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceTasks overwrites a plan's facts/snapshot and replaces its
// entire task set within one transaction.
func (r *PlanRepositoryImpl) ReplaceTasks(ctx context.Context, plan *models.PlanModel, tasks []*models.TaskModel) error {
	return inTx(ctx, r.db, func(tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model(plan).
			Column("facts", "snapshot", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*models.TaskModel)(nil)).
			Where("plan_id = ?", plan.ID).
			Exec(ctx); err != nil {
			return err
		}
		for _, task := range tasks {
			task.PlanID = plan.ID
		}
		if len(tasks) > 0 {
			if _, err := tx.NewInsert().Model(&tasks).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID retrieves a plan by ID.
func (r *PlanRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.PlanModel, error) {
	plan := new(models.PlanModel)
	err := r.db.NewSelect().Model(plan).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// UpdateFacts persists only the facts column.
func (r *PlanRepositoryImpl) UpdateFacts(ctx context.Context, id uuid.UUID, facts models.JSONBMap) error {
	_, err := r.db.NewUpdate().
		Model((*models.PlanModel)(nil)).
		Set("facts = ?", facts).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// inTx runs fn in a transaction when db is a *bun.DB, or directly
// against db when it is already a bun.Tx (nested transactions are not
// supported by Postgres, and callers that already hold one should not
// open another).
func inTx(ctx context.Context, db bun.IDB, fn func(tx bun.Tx) error) error {
	if tx, ok := db.(bun.Tx); ok {
		return fn(tx)
	}
	sqlDB, ok := db.(*bun.DB)
	if !ok {
		return errors.New("storage: unsupported bun.IDB implementation for transactional operation")
	}
	return sqlDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(tx)
	})
}
