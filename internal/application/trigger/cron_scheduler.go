// Package trigger drives the reminder pipeline's two periodic jobs
// (scan_due_soon, dispatch_pending_outbox) off a cron schedule.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lifeplan/service/internal/application/reminder"
	"github.com/lifeplan/service/internal/infrastructure/logger"
)

// SchedulerConfig holds the cron schedules and batching knobs for the
// two periodic jobs.
type SchedulerConfig struct {
	Scanner    *reminder.Scanner
	Dispatcher *reminder.Dispatcher

	ScanDueSoonCron    string
	DispatchOutboxCron string
	OutboxBatchSize    int

	Logger *logger.Logger
}

// Scheduler runs scan_due_soon and dispatch_pending_outbox on
// independent cron schedules, second-precision, UTC.
type Scheduler struct {
	scanner    *reminder.Scanner
	dispatcher *reminder.Dispatcher
	batchSize  int
	log        *logger.Logger

	cron *cron.Cron
}

// NewScheduler creates a Scheduler. It does not start the underlying
// cron runner; call Start for that.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	s := &Scheduler{
		scanner:    cfg.Scanner,
		dispatcher: cfg.Dispatcher,
		batchSize:  cfg.OutboxBatchSize,
		log:        cfg.Logger,
		cron:       c,
	}

	if _, err := c.AddFunc(cfg.ScanDueSoonCron, s.runScan); err != nil {
		return nil, fmt.Errorf("invalid scan_due_soon schedule %q: %w", cfg.ScanDueSoonCron, err)
	}
	if _, err := c.AddFunc(cfg.DispatchOutboxCron, s.runDispatch); err != nil {
		return nil, fmt.Errorf("invalid dispatch_outbox schedule %q: %w", cfg.DispatchOutboxCron, err)
	}

	return s, nil
}

// Start starts the cron runner. It returns immediately; jobs run on
// their own goroutines per the cron library's usual semantics.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("reminder scheduler started")
}

// Stop waits for any in-flight job to finish, then returns. ctx bounds
// how long it waits.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.log.Info("reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runScan() {
	summary, err := s.scanner.ScanDueSoon(context.Background(), time.Now())
	if err != nil {
		s.log.Error("scan_due_soon failed", "error", err)
		return
	}
	s.log.Info("scan_due_soon completed",
		"profiles_scanned", summary.ProfilesScanned,
		"tasks_matched", summary.TasksMatched,
		"outbox_created", summary.OutboxCreated,
		"skipped_daily_cap", summary.SkippedDailyCap,
		"errors", summary.Errors,
	)
}

func (s *Scheduler) runDispatch() {
	summary, err := s.dispatcher.DispatchPending(context.Background(), time.Now(), s.batchSize)
	if err != nil {
		s.log.Error("dispatch_pending_outbox failed", "error", err)
		return
	}
	s.log.Info("dispatch_pending_outbox completed",
		"picked", summary.Picked,
		"sent", summary.Sent,
		"retried", summary.Retried,
		"dead", summary.Dead,
		"recovered_stuck", summary.RecoveredStuck,
		"skipped_quiet_hours", summary.SkippedQuietHours,
	)
}
