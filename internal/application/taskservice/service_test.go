package taskservice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

func fixedTime() time.Time {
	return time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
}

type mockTaskRepo struct {
	mock.Mock
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.TaskModel, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*models.TaskModel)
	return task, args.Error(1)
}

func (m *mockTaskRepo) ListByPlan(ctx context.Context, planID uuid.UUID, status string) ([]*models.TaskModel, error) {
	args := m.Called(ctx, planID, status)
	tasks, _ := args.Get(0).([]*models.TaskModel)
	return tasks, args.Error(1)
}

func (m *mockTaskRepo) StatusesByKeys(ctx context.Context, planID uuid.UUID, keys []string) (map[string]string, error) {
	args := m.Called(ctx, planID, keys)
	statuses, _ := args.Get(0).(map[string]string)
	return statuses, args.Error(1)
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.TaskModel) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockTaskRepo) DueSoon(ctx context.Context, planID uuid.UUID, start, end string) ([]*models.TaskModel, error) {
	args := m.Called(ctx, planID, start, end)
	tasks, _ := args.Get(0).([]*models.TaskModel)
	return tasks, args.Error(1)
}

func TestUpdateStatus_NotFoundWhenWrongPlan(t *testing.T) {
	repo := new(mockTaskRepo)
	planID, otherPlanID, taskID := uuid.New(), uuid.New(), uuid.New()
	repo.On("FindByID", mock.Anything, taskID).Return(&models.TaskModel{ID: taskID, PlanID: otherPlanID}, nil)

	svc := New(repo)
	_, err := svc.UpdateStatus(context.Background(), planID, taskID, "done", false)
	require.Error(t, err)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestUpdateStatus_RejectsDecisionTask(t *testing.T) {
	repo := new(mockTaskRepo)
	planID, taskID := uuid.New(), uuid.New()
	task := &models.TaskModel{
		ID: taskID, PlanID: planID, TaskKey: "choose_kita",
		Metadata: models.JSONBMap{"tags": []interface{}{"decision"}},
	}
	repo.On("FindByID", mock.Anything, taskID).Return(task, nil)

	svc := New(repo)
	_, err := svc.UpdateStatus(context.Background(), planID, taskID, "done", true)
	require.Error(t, err)
	var decisionErr *DecisionCompleteForbiddenError
	require.ErrorAs(t, err, &decisionErr)
}

func TestUpdateStatus_BlockedByHardDependency(t *testing.T) {
	repo := new(mockTaskRepo)
	planID, taskID := uuid.New(), uuid.New()
	task := &models.TaskModel{
		ID: taskID, PlanID: planID, TaskKey: "apply_elterngeld",
		Metadata: models.JSONBMap{"blocked_by": []interface{}{"register_birth"}, "block_type": "hard"},
	}
	repo.On("FindByID", mock.Anything, taskID).Return(task, nil)
	repo.On("StatusesByKeys", mock.Anything, planID, []string{"register_birth"}).
		Return(map[string]string{"register_birth": "todo"}, nil)

	svc := New(repo)
	_, err := svc.UpdateStatus(context.Background(), planID, taskID, "done", false)
	require.Error(t, err)
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, []string{"register_birth"}, blocked.Unresolved)
}

func TestUpdateStatus_ForceBypassesHardBlock(t *testing.T) {
	repo := new(mockTaskRepo)
	planID, taskID := uuid.New(), uuid.New()
	task := &models.TaskModel{
		ID: taskID, PlanID: planID, TaskKey: "apply_elterngeld",
		Metadata: models.JSONBMap{"blocked_by": []interface{}{"register_birth"}, "block_type": "hard"},
	}
	repo.On("FindByID", mock.Anything, taskID).Return(task, nil)
	repo.On("StatusesByKeys", mock.Anything, planID, []string{"register_birth"}).
		Return(map[string]string{"register_birth": "todo"}, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	svc := New(repo)
	got, err := svc.UpdateStatus(context.Background(), planID, taskID, "done", true)
	require.NoError(t, err)
	assert.Equal(t, "done", got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestUpdateStatus_DoneToDonePreservesCompletedAt(t *testing.T) {
	repo := new(mockTaskRepo)
	planID, taskID := uuid.New(), uuid.New()
	completedAt := fixedTime()
	task := &models.TaskModel{
		ID: taskID, PlanID: planID, Status: "done", CompletedAt: &completedAt,
		Metadata: models.JSONBMap{},
	}
	repo.On("FindByID", mock.Anything, taskID).Return(task, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	svc := New(repo)
	got, err := svc.UpdateStatus(context.Background(), planID, taskID, "done", false)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, completedAt, *got.CompletedAt)
}

func TestUpdateStatus_ClearsCompletedAtWhenLeavingDone(t *testing.T) {
	repo := new(mockTaskRepo)
	planID, taskID := uuid.New(), uuid.New()
	completedAt := fixedTime()
	task := &models.TaskModel{
		ID: taskID, PlanID: planID, Status: "done", CompletedAt: &completedAt,
		Metadata: models.JSONBMap{},
	}
	repo.On("FindByID", mock.Anything, taskID).Return(task, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	svc := New(repo)
	got, err := svc.UpdateStatus(context.Background(), planID, taskID, "todo", false)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)
}
