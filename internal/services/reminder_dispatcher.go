package services

import (
	"context"
	"errors"
	"log"
	"time"

	"eventcrm/internal/repositories"
)

// DispatchStats summarizes one dispatcher pass.
type DispatchStats struct {
	Sent    int
	Skipped int
	Failed  int
}

// ReminderDispatcher sends due reminders. One-shot reminders go out once;
// series reminders go out once per cadence until the event starts.
type ReminderDispatcher struct {
	store       *repositories.Store
	notifier    Notifier
	interval    time.Duration
	batchSize   int
	maxLateness time.Duration
	now         func() time.Time
}

func NewReminderDispatcher(store *repositories.Store, notifier Notifier, interval time.Duration, batchSize int, maxLateness time.Duration) *ReminderDispatcher {
	return &ReminderDispatcher{
		store:       store,
		notifier:    notifier,
		interval:    interval,
		batchSize:   batchSize,
		maxLateness: maxLateness,
		now:         time.Now,
	}
}

// Start runs a pass every interval. It blocks until ctx is cancelled.
func (d *ReminderDispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log.Printf("[reminder][dispatch] started interval=%s batch=%d", d.interval, d.batchSize)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[reminder][dispatch] stopped")
			return
		case <-ticker.C:
			stats, err := d.RunOnce(ctx)
			if err != nil {
				log.Printf("[reminder][dispatch][err] %v", err)
				continue
			}
			if stats.Sent+stats.Skipped+stats.Failed > 0 {
				log.Printf("[reminder][dispatch] sent=%d skipped=%d failed=%d", stats.Sent, stats.Skipped, stats.Failed)
			}
		}
	}
}

// RunOnce sends every reminder due now. A reminder is marked fired even when
// delivery fails; failures are logged and counted.
func (d *ReminderDispatcher) RunOnce(ctx context.Context) (DispatchStats, error) {
	var stats DispatchStats
	now := d.now()

	due, err := d.store.Reminders.ListDue(ctx, now, d.batchSize)
	if err != nil {
		return stats, err
	}

	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		next, ok := r.NextFireAt()
		if !ok {
			if err := d.store.Reminders.MarkFired(ctx, r.ID, now, true); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return stats, err
			}
			stats.Skipped++
			continue
		}
		if next.After(now) {
			continue
		}

		fired := r
		fired.LastSentAt = &now
		_, more := fired.NextFireAt()
		done := !r.ReminderType.IsSeries() || !more

		if !r.ReminderType.IsSeries() && d.maxLateness > 0 && now.Sub(next) > d.maxLateness {
			log.Printf("[reminder][dispatch][skip] id=%d type=%s overdue since %s", r.ID, r.ReminderType, next.Format(time.RFC3339))
			if err := d.store.Reminders.MarkFired(ctx, r.ID, now, true); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return stats, err
			}
			stats.Skipped++
			continue
		}

		event, err := d.store.Events.FindByID(ctx, r.EventID)
		if err != nil {
			log.Printf("[reminder][dispatch][err] id=%d event=%d: %v", r.ID, r.EventID, err)
			stats.Failed++
			continue
		}

		if err := d.notifier.SendReminder(ctx, event, r); err != nil {
			log.Printf("[reminder][dispatch][err] id=%d type=%s: %v", r.ID, r.ReminderType, err)
			stats.Failed++
		} else {
			stats.Sent++
		}

		// The row may have been replaced by a reschedule while sending.
		if err := d.store.Reminders.MarkFired(ctx, r.ID, now, done); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return stats, err
		}
	}
	return stats, nil
}
