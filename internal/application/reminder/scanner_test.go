package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lifeplan/service/internal/application/notifyprofile"
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
	s, _ := args.Get(0).(map[string]string)
	return s, args.Error(1)
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
	r, _ := args.Get(0).([]*models.NotificationOutboxModel)
	return r, args.Error(1)
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

func TestScanDueSoon_SkipsDailyCap(t *testing.T) {
	profiles := new(mockProfileRepo)
	tasks := new(mockTaskRepo)
	outbox := new(mockOutboxRepo)
	tokens := notifyprofile.New(profiles, []byte("secret"))

	profileID := uuid.New()
	profile := &models.NotificationProfileModel{ID: profileID, PlanID: uuid.New(), MaxRemindersPerDay: 1, Email: "a@example.de"}
	profiles.On("ListSendable", mock.Anything).Return([]*models.NotificationProfileModel{profile}, nil)
	outbox.On("CountCreatedToday", mock.Anything, profileID, mock.Anything).Return(1, nil)

	scanner := NewScanner(profiles, tasks, outbox, tokens, nil, "https://app.example.de")
	summary, err := scanner.ScanDueSoon(context.Background(), time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedDailyCap)
	assert.Equal(t, 0, summary.OutboxCreated)
	tasks.AssertNotCalled(t, "DueSoon", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScanDueSoon_EnqueuesWhenTasksDue(t *testing.T) {
	profiles := new(mockProfileRepo)
	tasks := new(mockTaskRepo)
	outbox := new(mockOutboxRepo)
	tokens := notifyprofile.New(profiles, []byte("secret"))

	profileID := uuid.New()
	planID := uuid.New()
	profile := &models.NotificationProfileModel{ID: profileID, PlanID: planID, MaxRemindersPerDay: 1, Email: "a@example.de", UnsubscribeTokenVersion: 1}
	profiles.On("ListSendable", mock.Anything).Return([]*models.NotificationProfileModel{profile}, nil)
	profiles.On("Update", mock.Anything, mock.Anything).Return(nil)
	outbox.On("CountCreatedToday", mock.Anything, profileID, mock.Anything).Return(0, nil)

	due := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	tasks.On("DueSoon", mock.Anything, planID, mock.Anything, mock.Anything).
		Return([]*models.TaskModel{{ID: uuid.New(), TaskKey: "register_birth", Title: "Geburt anmelden", DueDate: &due, Metadata: models.JSONBMap{}}}, nil)

	outbox.On("EnqueueDueSoon", mock.Anything, mock.Anything).
		Return(&models.NotificationOutboxModel{}, true, nil)

	scanner := NewScanner(profiles, tasks, outbox, tokens, nil, "https://app.example.de")
	summary, err := scanner.ScanDueSoon(context.Background(), time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TasksMatched)
	assert.Equal(t, 1, summary.OutboxCreated)
}

func TestScanDueSoon_NoTasksDueIsNoop(t *testing.T) {
	profiles := new(mockProfileRepo)
	tasks := new(mockTaskRepo)
	outbox := new(mockOutboxRepo)
	tokens := notifyprofile.New(profiles, []byte("secret"))

	profileID := uuid.New()
	planID := uuid.New()
	profile := &models.NotificationProfileModel{ID: profileID, PlanID: planID, MaxRemindersPerDay: 1, Email: "a@example.de"}
	profiles.On("ListSendable", mock.Anything).Return([]*models.NotificationProfileModel{profile}, nil)
	outbox.On("CountCreatedToday", mock.Anything, profileID, mock.Anything).Return(0, nil)
	tasks.On("DueSoon", mock.Anything, planID, mock.Anything, mock.Anything).Return(nil, nil)

	scanner := NewScanner(profiles, tasks, outbox, tokens, nil, "https://app.example.de")
	summary, err := scanner.ScanDueSoon(context.Background(), time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.OutboxCreated)
	outbox.AssertNotCalled(t, "EnqueueDueSoon", mock.Anything, mock.Anything)
}
