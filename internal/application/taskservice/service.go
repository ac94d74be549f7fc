// Package taskservice implements task status transitions, including
// decision-task and dependency-block gating.
package taskservice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lifeplan/service/internal/domain/repository"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// Service applies gated status transitions to plan tasks.
type Service struct {
	tasks repository.TaskRepository
}

// New creates a Service.
func New(tasks repository.TaskRepository) *Service {
	return &Service{tasks: tasks}
}

// List returns a plan's tasks, optionally filtered by status.
func (s *Service) List(ctx context.Context, planID uuid.UUID, status string) ([]*models.TaskModel, error) {
	return s.tasks.ListByPlan(ctx, planID, status)
}

// UpdateStatus transitions a task to newStatus, enforcing decision-task
// and hard-dependency gating before applying the change. force bypasses
// hard-block gating but never the decision-task prohibition.
func (s *Service) UpdateStatus(ctx context.Context, planID, taskID uuid.UUID, newStatus string, force bool) (*models.TaskModel, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.PlanID != planID {
		return nil, &NotFoundError{PlanID: planID.String(), TaskID: taskID.String()}
	}

	previousStatus := task.Status
	now := time.Now()

	if newStatus == "done" {
		if task.IsDecision() {
			return nil, &DecisionCompleteForbiddenError{TaskKey: task.TaskKey}
		}

		unresolved, err := s.unresolvedDependencies(ctx, task)
		if err != nil {
			return nil, err
		}
		if len(unresolved) > 0 && task.BlockType() == "hard" && !force {
			return nil, &BlockedError{TaskKey: task.TaskKey, Unresolved: unresolved}
		}
	}

	task.Status = newStatus
	task.UpdatedAt = now

	if newStatus == "done" {
		if previousStatus != "done" && task.CompletedAt == nil {
			task.CompletedAt = &now
		}
	} else {
		task.CompletedAt = nil
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) unresolvedDependencies(ctx context.Context, task *models.TaskModel) ([]string, error) {
	blockedBy := task.BlockedBy()
	if len(blockedBy) == 0 {
		return nil, nil
	}

	statuses, err := s.tasks.StatusesByKeys(ctx, task.PlanID, blockedBy)
	if err != nil {
		return nil, err
	}

	var unresolved []string
	for _, key := range blockedBy {
		if statuses[key] != "done" {
			unresolved = append(unresolved, key)
		}
	}
	return unresolved, nil
}
