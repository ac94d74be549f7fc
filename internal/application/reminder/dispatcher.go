package reminder

import (
	"context"
	"time"

	"github.com/lifeplan/service/internal/application/emailprovider"
	"github.com/lifeplan/service/internal/domain/notify"
	"github.com/lifeplan/service/internal/domain/repository"
	"github.com/lifeplan/service/internal/infrastructure/logger"
)

// stuckSendingThreshold bounds how long a row may sit in status=sending
// before the next dispatch run assumes its worker died mid-send and
// recovers it back to pending.
const stuckSendingThreshold = 15 * time.Minute

// DispatchSummary tallies one dispatch_pending_outbox run.
type DispatchSummary struct {
	Picked            int
	Sent              int
	Retried           int
	Dead              int
	RecoveredStuck    int
	SkippedQuietHours int
}

// Dispatcher sends due outbox rows through the configured email
// provider, applying the send-window and retry/backoff policy.
type Dispatcher struct {
	outbox      repository.NotificationOutboxRepository
	provider    *emailprovider.Provider
	log         *logger.Logger
	maxAttempts int
}

// NewDispatcher creates a Dispatcher. maxAttempts bounds retries before
// a row is marked dead with retry_exhausted.
func NewDispatcher(outbox repository.NotificationOutboxRepository, provider *emailprovider.Provider, log *logger.Logger, maxAttempts int) *Dispatcher {
	return &Dispatcher{outbox: outbox, provider: provider, log: log, maxAttempts: maxAttempts}
}

// DispatchPending recovers stuck sends, locks up to batchSize due rows,
// and sends, reschedules, or retries each one.
func (d *Dispatcher) DispatchPending(ctx context.Context, now time.Time, batchSize int) (DispatchSummary, error) {
	recovered, err := d.outbox.RecoverStuckSending(ctx, now, stuckSendingThreshold, notify.NextSendWindowStart(now))
	if err != nil {
		return DispatchSummary{}, err
	}

	items, err := d.outbox.LockPendingBatch(ctx, now, batchSize)
	if err != nil {
		return DispatchSummary{}, err
	}

	summary := DispatchSummary{Picked: len(items), RecoveredStuck: recovered}

	for _, item := range items {
		if !notify.IsWithinSendWindow(now) {
			if err := d.outbox.RescheduleQuietHours(ctx, item.ID, notify.NextSendWindowStart(now)); err != nil {
				return summary, err
			}
			summary.SkippedQuietHours++
			continue
		}

		toEmail, _ := item.Payload["to_email"].(string)
		rendered := notify.RenderTaskDueSoon(buildPayload(item.Payload))
		result := d.provider.Send(toEmail, rendered)

		switch {
		case result.Status == "sent":
			if err := d.outbox.MarkSent(ctx, item.ID, result.ProviderMessageID, now); err != nil {
				return summary, err
			}
			summary.Sent++
		case result.FailureClass == "permanent":
			if err := d.outbox.MarkFailedOrRetry(ctx, item.ID, "permanent", result.ErrorCode, result.ErrorMessage, now, d.maxAttempts); err != nil {
				return summary, err
			}
			summary.Dead++
		default:
			if err := d.outbox.MarkFailedOrRetry(ctx, item.ID, "retryable", result.ErrorCode, result.ErrorMessage, now, d.maxAttempts); err != nil {
				return summary, err
			}
			summary.Retried++
		}
	}

	if d.log != nil {
		d.log.Info("dispatch_pending_outbox_completed",
			"picked", summary.Picked, "sent", summary.Sent, "retried", summary.Retried,
			"dead", summary.Dead, "recovered_stuck", summary.RecoveredStuck,
			"skipped_quiet_hours", summary.SkippedQuietHours)
	}
	return summary, nil
}

// buildPayload converts a stored outbox payload back into the
// rendering engine's input shape.
func buildPayload(raw map[string]interface{}) notify.TaskDueSoonPayload {
	payload := notify.TaskDueSoonPayload{
		PlanURL:        stringField(raw, "plan_url"),
		SettingsURL:    stringField(raw, "settings_url"),
		UnsubscribeURL: stringField(raw, "unsubscribe_url"),
	}
	if name, ok := raw["user_display_name"].(string); ok {
		payload.UserDisplayName = name
	}

	rawTasks, _ := raw["tasks"].([]interface{})
	for _, rt := range rawTasks {
		taskMap, ok := rt.(map[string]interface{})
		if !ok {
			continue
		}
		dueInDays, _ := taskMap["due_in_days"].(float64)
		payload.Tasks = append(payload.Tasks, notify.DueSoonTask{
			Title:     stringField(taskMap, "title"),
			DueDate:   stringField(taskMap, "due_date"),
			DueInDays: int(dueInDays),
		})
	}
	return payload
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
