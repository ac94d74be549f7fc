package storage

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/lifeplan/service/internal/domain/notify"
	"github.com/lifeplan/service/internal/domain/repository"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

var _ repository.NotificationOutboxRepository = (*NotificationOutboxRepositoryImpl)(nil)

// backoffScheduleMinutes is the fixed retry backoff table, indexed by
// min(attempt_count-1, len-1).
var backoffScheduleMinutes = []int{1, 5, 15, 60, 180}

const maxErrorMessageLen = 500

// NotificationOutboxRepositoryImpl implements
// repository.NotificationOutboxRepository using Bun.
type NotificationOutboxRepositoryImpl struct {
	db  bun.IDB
	rng *rand.Rand
}

// NewNotificationOutboxRepository creates a new
// NotificationOutboxRepositoryImpl.
func NewNotificationOutboxRepository(db bun.IDB) *NotificationOutboxRepositoryImpl {
	return &NotificationOutboxRepositoryImpl{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// EnqueueDueSoon inserts a pending row, treating a dedupe_key_raw
// collision as an idempotent no-op rather than an error.
func (r *NotificationOutboxRepositoryImpl) EnqueueDueSoon(ctx context.Context, row *models.NotificationOutboxModel) (*models.NotificationOutboxModel, bool, error) {
	_, err := r.db.NewInsert().Model(row).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row, true, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	// Otherwise fall back to matching the error message text.
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// CountCreatedToday counts rows created within the Europe/Berlin local
// day containing now.
func (r *NotificationOutboxRepositoryImpl) CountCreatedToday(ctx context.Context, profileID uuid.UUID, now time.Time) (int, error) {
	local := now.In(notify.BerlinLocation)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, notify.BerlinLocation)
	dayEnd := dayStart.AddDate(0, 0, 1)

	count, err := r.db.NewSelect().
		Model((*models.NotificationOutboxModel)(nil)).
		Where("profile_id = ?", profileID).
		Where("created_at >= ?", dayStart.UTC()).
		Where("created_at < ?", dayEnd.UTC()).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// LockPendingBatch selects due, pending rows with SKIP LOCKED
// semantics and flips them to status=sending in the same transaction.
func (r *NotificationOutboxRepositoryImpl) LockPendingBatch(ctx context.Context, now time.Time, limit int) ([]*models.NotificationOutboxModel, error) {
	var locked []*models.NotificationOutboxModel
	err := inTx(ctx, r.db, func(tx bun.Tx) error {
		var rows []*models.NotificationOutboxModel
		if err := tx.NewSelect().
			Model(&rows).
			Where("status = 'pending'").
			Where("next_attempt_at <= ?", now).
			OrderExpr("next_attempt_at ASC").
			Limit(limit).
			For("UPDATE SKIP LOCKED").
			Scan(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		if _, err := tx.NewUpdate().
			Model((*models.NotificationOutboxModel)(nil)).
			Set("status = 'sending'").
			Set("updated_at = current_timestamp").
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx); err != nil {
			return err
		}
		for _, row := range rows {
			row.Status = "sending"
		}
		locked = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return locked, nil
}

// MarkSent records a successful delivery.
func (r *NotificationOutboxRepositoryImpl) MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string, now time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.NotificationOutboxModel)(nil)).
		Set("status = 'sent'").
		Set("failure_class = NULL").
		Set("provider_message_id = ?", providerMessageID).
		Set("sent_at = ?", now).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// MarkFailedOrRetry records a failed attempt and computes the row's
// next state per the fixed backoff schedule.
func (r *NotificationOutboxRepositoryImpl) MarkFailedOrRetry(ctx context.Context, id uuid.UUID, failureClass, errorCode, errorMessage string, now time.Time, maxAttempts int) error {
	if len(errorMessage) > maxErrorMessageLen {
		errorMessage = errorMessage[:maxErrorMessageLen]
	}

	row := new(models.NotificationOutboxModel)
	if err := r.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		return err
	}
	attemptCount := row.AttemptCount + 1

	var status, nextFailureClass, nextErrorCode string
	var nextAttemptAt time.Time

	switch {
	case failureClass == "permanent":
		status = "dead"
		nextFailureClass = "permanent"
		nextErrorCode = errorCode
		nextAttemptAt = now
	case attemptCount >= maxAttempts:
		status = "dead"
		nextFailureClass = "permanent"
		nextErrorCode = "retry_exhausted"
		nextAttemptAt = now
	default:
		status = "pending"
		nextFailureClass = "retryable"
		nextErrorCode = errorCode
		idx := attemptCount - 1
		if idx > len(backoffScheduleMinutes)-1 {
			idx = len(backoffScheduleMinutes) - 1
		}
		baseMinutes := backoffScheduleMinutes[idx]
		jitter := 0.9 + r.rng.Float64()*0.2
		delay := time.Duration(float64(baseMinutes) * jitter * float64(time.Minute))
		candidate := now.Add(delay)
		if !notify.IsWithinSendWindow(candidate) {
			candidate = notify.NextSendWindowStart(candidate)
		}
		nextAttemptAt = candidate
	}

	_, err := r.db.NewUpdate().
		Model((*models.NotificationOutboxModel)(nil)).
		Set("status = ?", status).
		Set("failure_class = ?", nextFailureClass).
		Set("last_error_code = ?", nextErrorCode).
		Set("last_error_message = ?", errorMessage).
		Set("attempt_count = ?", attemptCount).
		Set("next_attempt_at = ?", nextAttemptAt).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// RescheduleQuietHours reschedules a row picked up outside the send
// window without incrementing attempt_count.
func (r *NotificationOutboxRepositoryImpl) RescheduleQuietHours(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.NotificationOutboxModel)(nil)).
		Set("status = 'pending'").
		Set("last_error_code = 'QUIET_HOURS'").
		Set("next_attempt_at = ?", nextAttemptAt).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// RecoverStuckSending resets rows stuck in status=sending longer than
// staleAfter back to pending.
func (r *NotificationOutboxRepositoryImpl) RecoverStuckSending(ctx context.Context, now time.Time, staleAfter time.Duration, nextAttemptAt time.Time) (int, error) {
	threshold := now.Add(-staleAfter)
	res, err := r.db.NewUpdate().
		Model((*models.NotificationOutboxModel)(nil)).
		Set("status = 'pending'").
		Set("failure_class = 'retryable'").
		Set("last_error_code = 'stuck_sending_recovered'").
		Set("next_attempt_at = ?", nextAttemptAt).
		Set("updated_at = current_timestamp").
		Where("status = 'sending'").
		Where("updated_at < ?", threshold).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
