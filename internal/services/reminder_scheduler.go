package services

import (
	"context"
	"fmt"
	"time"

	"eventcrm/internal/models"
	"eventcrm/internal/repositories"
)

const (
	weeklyCadence = 7 * 24 * time.Hour
	dailyCadence  = 24 * time.Hour
)

// ReminderScheduler turns an event's reminder flags into persisted reminder rows.
type ReminderScheduler struct {
	uow           repositories.UnitOfWork
	morningHour   int
	morningMinute int
	loc           *time.Location
}

// NewReminderScheduler creates a scheduler that fires morning_of reminders at
// hour:minute in loc. A nil loc means UTC.
func NewReminderScheduler(uow repositories.UnitOfWork, hour, minute int, loc *time.Location) *ReminderScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderScheduler{uow: uow, morningHour: hour, morningMinute: minute, loc: loc}
}

// ComputeReminderSet returns one spec per enabled flag, in ReminderTypes order.
// It depends only on the event snapshot, so equal snapshots give equal sets.
func (s *ReminderScheduler) ComputeReminderSet(event *models.Event) []models.ReminderSpec {
	if event == nil || event.StartDate.IsZero() {
		return []models.ReminderSpec{}
	}
	start := event.StartDate
	enabled := map[models.ReminderType]bool{
		models.Reminder1Week:     event.Reminder1Week,
		models.Reminder1Day:      event.Reminder1Day,
		models.ReminderWeekly:    event.ReminderWeekly,
		models.ReminderDaily:     event.ReminderDaily,
		models.ReminderMorningOf: event.ReminderMorningOf,
	}

	specs := make([]models.ReminderSpec, 0, len(models.ReminderTypes))
	for _, typ := range models.ReminderTypes {
		if !enabled[typ] {
			continue
		}
		spec := models.ReminderSpec{EventID: event.ID, ReminderType: typ}
		switch typ {
		case models.Reminder1Week:
			spec.FireAt = start.AddDate(0, 0, -7)
		case models.Reminder1Day:
			spec.FireAt = start.AddDate(0, 0, -1)
		case models.ReminderMorningOf:
			spec.FireAt = s.morningOf(start)
		case models.ReminderWeekly:
			spec = seriesSpec(spec, seriesAnchor(event, weeklyCadence), weeklyCadence, start)
		case models.ReminderDaily:
			spec = seriesSpec(spec, seriesAnchor(event, dailyCadence), dailyCadence, start)
		}
		specs = append(specs, spec)
	}
	return specs
}

func (s *ReminderScheduler) morningOf(start time.Time) time.Time {
	local := start.In(s.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, s.morningHour, s.morningMinute, 0, 0, s.loc)
}

// seriesAnchor is the time the event was last saved. Events that were never
// saved anchor one cadence before their start.
func seriesAnchor(event *models.Event, cadence time.Duration) time.Time {
	switch {
	case !event.UpdatedAt.IsZero():
		return event.UpdatedAt
	case !event.CreatedAt.IsZero():
		return event.CreatedAt
	default:
		return event.StartDate.Add(-cadence)
	}
}

func seriesSpec(spec models.ReminderSpec, anchor time.Time, cadence time.Duration, until time.Time) models.ReminderSpec {
	a, u := anchor, until
	spec.Anchor = &a
	spec.Cadence = cadence
	spec.Until = &u
	spec.FireAt = anchor.Add(cadence)
	return spec
}

// ReplaceReminders deletes every reminder of the event and enqueues the computed set
// through store. The caller owns the transaction.
func (s *ReminderScheduler) ReplaceReminders(ctx context.Context, store *repositories.Store, event *models.Event) ([]models.Reminder, error) {
	if _, err := store.Reminders.DeleteForEvent(ctx, event.ID); err != nil {
		return nil, err
	}
	return s.enqueueSet(ctx, store, event)
}

func (s *ReminderScheduler) enqueueSet(ctx context.Context, store *repositories.Store, event *models.Event) ([]models.Reminder, error) {
	specs := s.ComputeReminderSet(event)
	out := make([]models.Reminder, 0, len(specs))
	for _, spec := range specs {
		rem, err := store.Reminders.Enqueue(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("scheduling %s reminder: %w", spec.ReminderType, err)
		}
		out = append(out, *rem)
	}
	return out, nil
}

// ScheduleForEvent persists the reminder set of a newly created event.
func (s *ReminderScheduler) ScheduleForEvent(ctx context.Context, event *models.Event) ([]models.Reminder, error) {
	var out []models.Reminder
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store *repositories.Store) error {
		var err error
		out, err = s.enqueueSet(ctx, store, event)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RescheduleForEvent replaces the event's reminders with the set computed from event.
// Either the whole new set is persisted or the previous set is left untouched.
func (s *ReminderScheduler) RescheduleForEvent(ctx context.Context, eventID int64, event *models.Event) ([]models.Reminder, error) {
	if event.ID != eventID {
		snapshot := *event
		snapshot.ID = eventID
		event = &snapshot
	}
	var out []models.Reminder
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store *repositories.Store) error {
		var err error
		out, err = s.ReplaceReminders(ctx, store, event)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
