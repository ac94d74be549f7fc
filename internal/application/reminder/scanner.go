// Package reminder implements the two periodic jobs that turn soon-due
// tasks into delivered reminder emails: scanning profiles for due-soon
// tasks (C12) and dispatching the resulting outbox rows (C13).
package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lifeplan/service/internal/application/notifyprofile"
	"github.com/lifeplan/service/internal/domain/notify"
	"github.com/lifeplan/service/internal/domain/repository"
	"github.com/lifeplan/service/internal/infrastructure/logger"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// ScanSummary tallies one scan_due_soon run.
type ScanSummary struct {
	ProfilesScanned int
	TasksMatched    int
	OutboxCreated   int
	SkippedDailyCap int
	Errors          int
}

// Scanner finds profiles with tasks due soon and enqueues one
// task_due_soon reminder per profile per local day.
type Scanner struct {
	profiles   repository.NotificationProfileRepository
	tasks      repository.TaskRepository
	outbox     repository.NotificationOutboxRepository
	tokens     *notifyprofile.Service
	log        *logger.Logger
	appBaseURL string
}

// NewScanner creates a Scanner. appBaseURL prefixes every link embedded
// in a reminder email.
func NewScanner(profiles repository.NotificationProfileRepository, tasks repository.TaskRepository, outbox repository.NotificationOutboxRepository, tokens *notifyprofile.Service, log *logger.Logger, appBaseURL string) *Scanner {
	return &Scanner{profiles: profiles, tasks: tasks, outbox: outbox, tokens: tokens, log: log, appBaseURL: appBaseURL}
}

// ScanDueSoon evaluates every sendable profile for tasks due within the
// next three Berlin-local days and enqueues at most one reminder per
// profile per local day. Per-profile failures are isolated and
// counted; they never abort the scan.
func (s *Scanner) ScanDueSoon(ctx context.Context, now time.Time) (ScanSummary, error) {
	profiles, err := s.profiles.ListSendable(ctx)
	if err != nil {
		return ScanSummary{}, err
	}

	localToday, localEnd := notify.DueSoonWindow(now)
	summary := ScanSummary{}

	for _, profile := range profiles {
		summary.ProfilesScanned++
		if err := s.scanOne(ctx, profile, now, localToday, localEnd, &summary); err != nil {
			summary.Errors++
			if s.log != nil {
				s.log.Error("reminder_scan_profile_failed", "profile_id", profile.ID.String(), "error", err.Error())
			}
		}
	}
	return summary, nil
}

func (s *Scanner) scanOne(ctx context.Context, profile *models.NotificationProfileModel, now time.Time, localToday, localEnd string, summary *ScanSummary) error {
	sentToday, err := s.outbox.CountCreatedToday(ctx, profile.ID, now)
	if err != nil {
		return err
	}
	if sentToday >= profile.MaxRemindersPerDay {
		summary.SkippedDailyCap++
		return nil
	}

	due, err := s.tasks.DueSoon(ctx, profile.PlanID, localToday, localEnd)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}
	summary.TasksMatched += len(due)

	token, err := s.tokens.IssueUnsubscribeToken(ctx, profile)
	if err != nil {
		return err
	}

	payload := buildDueSoonOutboxPayload(profile, due, localToday, token, s.appBaseURL)

	row := &models.NotificationOutboxModel{
		ID:            uuid.New(),
		ProfileID:     profile.ID,
		Type:          "task_due_soon",
		DedupeKeyRaw:  notify.BuildDueSoonDedupeKeyRaw(profile.ID, localToday),
		Payload:       payload,
		NextAttemptAt: now,
	}

	_, created, err := s.outbox.EnqueueDueSoon(ctx, row)
	if err != nil {
		return err
	}
	if created {
		summary.OutboxCreated++
	}
	return nil
}

func buildDueSoonOutboxPayload(profile *models.NotificationProfileModel, tasks []*models.TaskModel, localToday, unsubscribeToken, appBaseURL string) models.JSONBMap {
	today, err := time.Parse("2006-01-02", localToday)
	if err != nil {
		today = time.Now()
	}

	payloadTasks := make([]interface{}, 0, len(tasks))
	for _, task := range tasks {
		if task.DueDate == nil {
			continue
		}
		dueInDays := int(task.DueDate.Sub(today).Hours() / 24)
		entry := map[string]interface{}{
			"task_key":         task.TaskKey,
			"task_instance_id": task.ID.String(),
			"title":            task.Title,
			"due_date":         task.DueDate.Format("2006-01-02"),
			"due_in_days":      dueInDays,
		}
		if category, ok := task.Metadata["category"]; ok {
			entry["category"] = category
		}
		if priority, ok := task.Metadata["priority"]; ok {
			entry["priority"] = priority
		}
		payloadTasks = append(payloadTasks, entry)
	}

	settingsURL := appBaseURL + "/notifications/unsubscribe?token=" + unsubscribeToken
	return models.JSONBMap{
		"profile_id":      profile.ID.String(),
		"plan_id":         profile.PlanID.String(),
		"to_email":        profile.Email,
		"locale":          profile.Locale,
		"timezone":        profile.Timezone,
		"tasks":           payloadTasks,
		"plan_url":        appBaseURL + "/app/plan/" + profile.PlanID.String(),
		"settings_url":    settingsURL,
		"unsubscribe_url": settingsURL,
	}
}
