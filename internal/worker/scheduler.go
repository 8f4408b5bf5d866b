// ABOUTME: Periodic scheduler: enqueues bill reminder jobs for bills entering
// ABOUTME: the due window and prunes expired invitations and refresh tokens.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
)

const (
	scanInterval = 15 * time.Minute
	scanBatch    = 500
)

// Scheduler periodically scans for work that is time-driven rather than
// request-driven. It runs alongside the Pool in the worker process.
type Scheduler struct {
	Store          *store.Store
	ReminderWindow time.Duration
}

// Run blocks until ctx is cancelled, scanning on a fixed interval. A scan
// runs immediately at startup so a restarted worker catches up without
// waiting a full interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	slog.Info("scheduler started", "interval", scanInterval, "reminder_window", s.ReminderWindow)
	s.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scheduler) scan(ctx context.Context) {
	s.enqueueBillReminders(ctx)
	s.pruneExpired(ctx)
}

// enqueueBillReminders creates one bill_reminder job per bill entering the
// due window. The job's lock key serializes work per bill; the handler's
// reminder_sent_at check makes re-enqueued duplicates no-ops.
func (s *Scheduler) enqueueBillReminders(ctx context.Context) {
	bills, err := s.Store.ListBillsDueWithin(ctx, s.ReminderWindow, scanBatch)
	if err != nil {
		slog.Error("scan due bills error", "error", err)
		return
	}
	for _, b := range bills {
		payload, err := json.Marshal(BillReminderPayload{BillID: b.ID})
		if err != nil {
			slog.Error("marshal bill reminder payload", "bill_id", b.ID, "error", err)
			continue
		}
		lockKey := "bill:" + b.ID.String()
		if _, err := s.Store.EnqueueJob(ctx, QueueBillReminder, 0, payload, &lockKey, 5, nil); err != nil {
			slog.Error("enqueue bill reminder", "bill_id", b.ID, "error", err)
			continue
		}
	}
	if len(bills) > 0 {
		slog.Info("enqueued bill reminders", "count", len(bills))
	}
}

func (s *Scheduler) pruneExpired(ctx context.Context) {
	if n, err := s.Store.DeleteExpiredRefreshTokens(ctx); err != nil {
		slog.Error("prune refresh tokens error", "error", err)
	} else if n > 0 {
		slog.Info("pruned expired refresh tokens", "count", n)
	}

	if n, err := s.Store.DeleteExpiredInvitations(ctx); err != nil {
		slog.Error("prune invitations error", "error", err)
	} else if n > 0 {
		slog.Info("pruned expired invitations", "count", n)
	}
}
