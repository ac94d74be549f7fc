package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// NotificationOutboxRepository defines the interface for outbox
// persistence, including the locking primitives the dispatcher relies
// on for safe concurrent processing.
type NotificationOutboxRepository interface {
	// EnqueueDueSoon inserts a pending outbox row. Returns
	// (row, true) on success, or (nil, false) if dedupe_key_raw
	// already exists (idempotent no-op, not an error).
	EnqueueDueSoon(ctx context.Context, row *models.NotificationOutboxModel) (*models.NotificationOutboxModel, bool, error)

	// CountCreatedToday counts rows for profileID created within the
	// Europe/Berlin local day containing now.
	CountCreatedToday(ctx context.Context, profileID uuid.UUID, now time.Time) (int, error)

	// LockPendingBatch selects up to limit due, pending rows with
	// SKIP LOCKED semantics, flips them to status=sending within the
	// same transaction, and returns them ordered by next_attempt_at
	// ascending.
	LockPendingBatch(ctx context.Context, now time.Time, limit int) ([]*models.NotificationOutboxModel, error)

	// MarkSent records a successful delivery.
	MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string, now time.Time) error

	// MarkFailedOrRetry records a failed delivery attempt and computes
	// the row's next state per the retry/backoff policy.
	MarkFailedOrRetry(ctx context.Context, id uuid.UUID, failureClass, errorCode, errorMessage string, now time.Time, maxAttempts int) error

	// RescheduleQuietHours reschedules a row that was picked up outside
	// the send window, without incrementing attempt_count.
	RescheduleQuietHours(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time) error

	// RecoverStuckSending resets rows stuck in status=sending for
	// longer than the staleness threshold back to pending, and returns
	// how many rows were recovered.
	RecoverStuckSending(ctx context.Context, now time.Time, staleAfter time.Duration, nextAttemptAt time.Time) (int, error)
}
