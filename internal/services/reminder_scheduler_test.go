package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcrm/internal/models"
	"eventcrm/internal/testutil"
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestComputeReminderSet_OneWeekAndOneDay(t *testing.T) {
	s := NewReminderScheduler(nil, 8, 0, time.UTC)
	event := &models.Event{
		ID:            7,
		StartDate:     date(2025, time.June, 1, 0, 0),
		Reminder1Week: true,
		Reminder1Day:  true,
	}

	specs := s.ComputeReminderSet(event)
	require.Len(t, specs, 2)
	assert.Equal(t, models.Reminder1Week, specs[0].ReminderType)
	assert.Equal(t, date(2025, time.May, 25, 0, 0), specs[0].FireAt)
	assert.Equal(t, models.Reminder1Day, specs[1].ReminderType)
	assert.Equal(t, date(2025, time.May, 31, 0, 0), specs[1].FireAt)
	for _, spec := range specs {
		assert.Equal(t, int64(7), spec.EventID)
		assert.Nil(t, spec.Anchor)
	}
}

func TestComputeReminderSet_AllFlags(t *testing.T) {
	dubai := time.FixedZone("GST", 4*60*60)
	s := NewReminderScheduler(nil, 8, 30, dubai)
	updated := date(2025, time.May, 1, 12, 0)
	event := &models.Event{
		StartDate:         time.Date(2025, time.June, 1, 18, 0, 0, 0, dubai),
		Reminder1Week:     true,
		Reminder1Day:      true,
		ReminderWeekly:    true,
		ReminderDaily:     true,
		ReminderMorningOf: true,
		UpdatedAt:         updated,
	}

	specs := s.ComputeReminderSet(event)
	require.Len(t, specs, 5)
	types := make([]models.ReminderType, 0, len(specs))
	for _, spec := range specs {
		types = append(types, spec.ReminderType)
	}
	assert.Equal(t, models.ReminderTypes, types)

	weekly := specs[2]
	require.NotNil(t, weekly.Anchor)
	require.NotNil(t, weekly.Until)
	assert.Equal(t, updated, *weekly.Anchor)
	assert.Equal(t, 7*24*time.Hour, weekly.Cadence)
	assert.True(t, weekly.Until.Equal(event.StartDate))
	assert.Equal(t, updated.Add(7*24*time.Hour), weekly.FireAt)

	daily := specs[3]
	assert.Equal(t, 24*time.Hour, daily.Cadence)
	assert.Equal(t, updated.Add(24*time.Hour), daily.FireAt)

	morning := specs[4]
	assert.True(t, morning.FireAt.Equal(time.Date(2025, time.June, 1, 8, 30, 0, 0, dubai)))
}

func TestComputeReminderSet_IsDeterministic(t *testing.T) {
	s := NewReminderScheduler(nil, 8, 0, time.UTC)
	event := &models.Event{
		StartDate:      date(2025, time.June, 1, 10, 0),
		Reminder1Day:   true,
		ReminderWeekly: true,
		CreatedAt:      date(2025, time.April, 1, 9, 0),
	}
	assert.Equal(t, s.ComputeReminderSet(event), s.ComputeReminderSet(event))

	event.Reminder1Day, event.ReminderWeekly = false, false
	assert.Empty(t, s.ComputeReminderSet(event))
}

func newSchedulerFixture(t *testing.T) (*testutil.MemDB, *ReminderScheduler, *models.Event) {
	t.Helper()
	mem := testutil.NewMemDB()
	a := mem.AddAssignment(mem.AddDepartment("Security", nil, 0).ID)
	event, err := mem.Store().Events.FindByID(context.Background(), a.EventID)
	require.NoError(t, err)
	event.StartDate = date(2025, time.June, 1, 10, 0)
	event.UpdatedAt = date(2025, time.May, 1, 10, 0)
	return mem, NewReminderScheduler(&testutil.UoW{DB: mem}, 8, 0, time.UTC), event
}

func countByType(reminders []models.Reminder) map[models.ReminderType]int {
	out := map[models.ReminderType]int{}
	for _, r := range reminders {
		out[r.ReminderType]++
	}
	return out
}

func TestRescheduleForEvent_DroppedFlagLeavesNoReminders(t *testing.T) {
	mem, s, event := newSchedulerFixture(t)
	ctx := context.Background()

	event.ReminderWeekly = true
	event.Reminder1Day = true
	_, err := s.ScheduleForEvent(ctx, event)
	require.NoError(t, err)
	require.Equal(t, 1, countByType(mem.Reminders(event.ID))[models.ReminderWeekly])

	event.ReminderWeekly = false
	_, err = s.RescheduleForEvent(ctx, event.ID, event)
	require.NoError(t, err)

	counts := countByType(mem.Reminders(event.ID))
	assert.Zero(t, counts[models.ReminderWeekly])
	assert.Equal(t, 1, counts[models.Reminder1Day])
}

func TestRescheduleForEvent_TwiceLeavesOnePerType(t *testing.T) {
	mem, s, event := newSchedulerFixture(t)
	ctx := context.Background()

	event.Reminder1Week = true
	event.ReminderDaily = true
	event.ReminderMorningOf = true

	first, err := s.RescheduleForEvent(ctx, event.ID, event)
	require.NoError(t, err)
	second, err := s.RescheduleForEvent(ctx, event.ID, event)
	require.NoError(t, err)

	stored := mem.Reminders(event.ID)
	require.Len(t, stored, 3)
	for typ, n := range countByType(stored) {
		assert.Equal(t, 1, n, "type %s", typ)
	}
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ReminderType, second[i].ReminderType)
		assert.Equal(t, first[i].FireAt, second[i].FireAt)
	}
}

func TestRescheduleForEvent_ReplacesSentReminders(t *testing.T) {
	mem, s, event := newSchedulerFixture(t)
	ctx := context.Background()

	now := time.Now()
	mem.PutReminder(models.Reminder{
		EventID:      event.ID,
		ReminderType: models.Reminder1Day,
		FireAt:       date(2025, time.May, 20, 0, 0),
		Status:       models.ReminderSent,
		LastSentAt:   &now,
	})

	event.Reminder1Day = true
	_, err := s.RescheduleForEvent(ctx, event.ID, event)
	require.NoError(t, err)

	stored := mem.Reminders(event.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, models.ReminderPending, stored[0].Status)
	assert.Equal(t, date(2025, time.May, 31, 10, 0), stored[0].FireAt)
}

func TestRescheduleForEvent_FailureKeepsPreviousSet(t *testing.T) {
	mem, s, event := newSchedulerFixture(t)
	ctx := context.Background()

	event.Reminder1Week = true
	event.Reminder1Day = true
	before, err := s.ScheduleForEvent(ctx, event)
	require.NoError(t, err)

	// Write #1 deletes the old set, #2 enqueues 1_week, #3 fails on 1_day.
	failing := NewReminderScheduler(&testutil.FailOnNthWriteUoW{
		DB: mem, FailOn: 3, Err: errors.New("injected enqueue failure"),
	}, 8, 0, time.UTC)

	event.ReminderMorningOf = true
	_, err = failing.RescheduleForEvent(ctx, event.ID, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected enqueue failure")

	after := mem.Reminders(event.ID)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].ReminderType, after[i].ReminderType)
	}
}
