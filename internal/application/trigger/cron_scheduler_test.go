package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lifeplan/service/internal/application/emailprovider"
	"github.com/lifeplan/service/internal/application/notifyprofile"
	"github.com/lifeplan/service/internal/application/reminder"
	"github.com/lifeplan/service/internal/config"
	"github.com/lifeplan/service/internal/infrastructure/logger"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

type mockProfileRepo struct{ mock.Mock }

func (m *mockProfileRepo) GetOrCreate(ctx context.Context, planID uuid.UUID) (*models.NotificationProfileModel, error) {
	args := m.Called(ctx, planID)
	p, _ := args.Get(0).(*models.NotificationProfileModel)
	return p, args.Error(1)
}
func (m *mockProfileRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.NotificationProfileModel, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.NotificationProfileModel)
	return p, args.Error(1)
}
func (m *mockProfileRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*models.NotificationProfileModel, error) {
	args := m.Called(ctx, tokenHash)
	p, _ := args.Get(0).(*models.NotificationProfileModel)
	return p, args.Error(1)
}
func (m *mockProfileRepo) Update(ctx context.Context, profile *models.NotificationProfileModel) error {
	return m.Called(ctx, profile).Error(0)
}
func (m *mockProfileRepo) ListSendable(ctx context.Context) ([]*models.NotificationProfileModel, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*models.NotificationProfileModel)
	return p, args.Error(1)
}

type mockTaskRepo struct{ mock.Mock }

func (m *mockTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.TaskModel, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*models.TaskModel)
	return t, args.Error(1)
}
func (m *mockTaskRepo) ListByPlan(ctx context.Context, planID uuid.UUID, status string) ([]*models.TaskModel, error) {
	args := m.Called(ctx, planID, status)
	t, _ := args.Get(0).([]*models.TaskModel)
	return t, args.Error(1)
}
func (m *mockTaskRepo) StatusesByKeys(ctx context.Context, planID uuid.UUID, keys []string) (map[string]string, error) {
	args := m.Called(ctx, planID, keys)
	t, _ := args.Get(0).(map[string]string)
	return t, args.Error(1)
}
func (m *mockTaskRepo) Update(ctx context.Context, task *models.TaskModel) error {
	return m.Called(ctx, task).Error(0)
}
func (m *mockTaskRepo) DueSoon(ctx context.Context, planID uuid.UUID, start, end string) ([]*models.TaskModel, error) {
	args := m.Called(ctx, planID, start, end)
	t, _ := args.Get(0).([]*models.TaskModel)
	return t, args.Error(1)
}

type mockOutboxRepo struct{ mock.Mock }

func (m *mockOutboxRepo) EnqueueDueSoon(ctx context.Context, row *models.NotificationOutboxModel) (*models.NotificationOutboxModel, bool, error) {
	args := m.Called(ctx, row)
	r, _ := args.Get(0).(*models.NotificationOutboxModel)
	return r, args.Bool(1), args.Error(2)
}
func (m *mockOutboxRepo) CountCreatedToday(ctx context.Context, profileID uuid.UUID, now time.Time) (int, error) {
	args := m.Called(ctx, profileID, now)
	return args.Int(0), args.Error(1)
}
func (m *mockOutboxRepo) LockPendingBatch(ctx context.Context, now time.Time, limit int) ([]*models.NotificationOutboxModel, error) {
	args := m.Called(ctx, now, limit)
	e, _ := args.Get(0).([]*models.NotificationOutboxModel)
	return e, args.Error(1)
}
func (m *mockOutboxRepo) MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string, now time.Time) error {
	return m.Called(ctx, id, providerMessageID, now).Error(0)
}
func (m *mockOutboxRepo) MarkFailedOrRetry(ctx context.Context, id uuid.UUID, failureClass, errorCode, errorMessage string, now time.Time, maxAttempts int) error {
	return m.Called(ctx, id, failureClass, errorCode, errorMessage, now, maxAttempts).Error(0)
}
func (m *mockOutboxRepo) RescheduleQuietHours(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time) error {
	return m.Called(ctx, id, nextAttemptAt).Error(0)
}
func (m *mockOutboxRepo) RecoverStuckSending(ctx context.Context, now time.Time, staleAfter time.Duration, nextAttemptAt time.Time) (int, error) {
	args := m.Called(ctx, now, staleAfter, nextAttemptAt)
	return args.Int(0), args.Error(1)
}

func newTestLogger() *logger.Logger {
	return logger.New(config.LoggingConfig{Level: "error", Format: "text"})
}

func TestNewScheduler_RejectsInvalidCronExpression(t *testing.T) {
	profiles := new(mockProfileRepo)
	profiles.On("ListSendable", mock.Anything).Return(nil, nil)
	scanner := reminder.NewScanner(profiles, new(mockTaskRepo), new(mockOutboxRepo), notifyprofile.New(profiles, []byte("s")), newTestLogger(), "https://example.test")
	dispatcher := reminder.NewDispatcher(new(mockOutboxRepo), emailprovider.New(emailprovider.Config{DryRun: true}), newTestLogger(), 5)

	_, err := NewScheduler(SchedulerConfig{
		Scanner:            scanner,
		Dispatcher:         dispatcher,
		ScanDueSoonCron:    "not a cron expression",
		DispatchOutboxCron: "0 * * * * *",
		OutboxBatchSize:    100,
		Logger:             newTestLogger(),
	})
	require.Error(t, err)
}

func TestScheduler_RunScanAndRunDispatch(t *testing.T) {
	profiles := new(mockProfileRepo)
	profiles.On("ListSendable", mock.Anything).Return([]*models.NotificationProfileModel{}, nil)
	scanner := reminder.NewScanner(profiles, new(mockTaskRepo), new(mockOutboxRepo), notifyprofile.New(profiles, []byte("s")), newTestLogger(), "https://example.test")

	outbox := new(mockOutboxRepo)
	outbox.On("RecoverStuckSending", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(0, nil)
	outbox.On("LockPendingBatch", mock.Anything, mock.Anything, mock.Anything).Return([]*models.NotificationOutboxModel{}, nil)
	dispatcher := reminder.NewDispatcher(outbox, emailprovider.New(emailprovider.Config{DryRun: true}), newTestLogger(), 5)

	s, err := NewScheduler(SchedulerConfig{
		Scanner:            scanner,
		Dispatcher:         dispatcher,
		ScanDueSoonCron:    "0 */5 * * * *",
		DispatchOutboxCron: "0 * * * * *",
		OutboxBatchSize:    100,
		Logger:             newTestLogger(),
	})
	require.NoError(t, err)

	assert.NotPanics(t, s.runScan)
	assert.NotPanics(t, s.runDispatch)
	profiles.AssertCalled(t, "ListSendable", mock.Anything)
}
