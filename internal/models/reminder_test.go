package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(d, h int) time.Time {
	return time.Date(2025, time.May, d, h, 0, 0, 0, time.UTC)
}

func TestNextFireAt_OneShot(t *testing.T) {
	r := Reminder{ReminderType: Reminder1Day, FireAt: at(31, 10), Status: ReminderPending}
	next, ok := r.NextFireAt()
	assert.True(t, ok)
	assert.Equal(t, at(31, 10), next)

	sent := at(31, 11)
	r.LastSentAt = &sent
	_, ok = r.NextFireAt()
	assert.False(t, ok)

	r = Reminder{ReminderType: ReminderMorningOf, FireAt: at(31, 8), Status: ReminderSent}
	_, ok = r.NextFireAt()
	assert.False(t, ok)
}

func TestNextFireAt_Series(t *testing.T) {
	anchor := at(1, 9)
	until := at(4, 0)
	r := Reminder{
		ReminderType: ReminderDaily,
		FireAt:       at(2, 9),
		Anchor:       &anchor,
		Cadence:      24 * time.Hour,
		Until:        &until,
		Status:       ReminderPending,
	}

	next, ok := r.NextFireAt()
	assert.True(t, ok)
	assert.Equal(t, at(2, 9), next)

	sent := at(2, 9)
	r.LastSentAt = &sent
	next, ok = r.NextFireAt()
	assert.True(t, ok)
	assert.Equal(t, at(3, 9), next)

	// A late send still lines up with the cadence grid.
	late := at(3, 15)
	r.LastSentAt = &late
	_, ok = r.NextFireAt()
	assert.False(t, ok, "the 4th at 09:00 is not before the start")
}

func TestNextFireAt_SeriesWithoutCadenceActsAsOneShot(t *testing.T) {
	r := Reminder{ReminderType: ReminderWeekly, FireAt: at(8, 9), Status: ReminderPending}
	next, ok := r.NextFireAt()
	assert.True(t, ok)
	assert.Equal(t, at(8, 9), next)
}

func TestTaskStatus(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusWaiting.IsTerminal())
	assert.True(t, StatusInProgress.Valid())
	assert.False(t, TaskStatus("done").Valid())
}
