package models

import "time"

type ReminderType string

const (
	Reminder1Week     ReminderType = "1_week"
	Reminder1Day      ReminderType = "1_day"
	ReminderWeekly    ReminderType = "weekly"
	ReminderDaily     ReminderType = "daily"
	ReminderMorningOf ReminderType = "morning_of"
)

// ReminderTypes lists every type in the order reminder sets are emitted.
var ReminderTypes = []ReminderType{
	Reminder1Week, Reminder1Day, ReminderWeekly, ReminderDaily, ReminderMorningOf,
}

// IsSeries reports whether the type describes a recurring series rather than a single shot.
func (t ReminderType) IsSeries() bool {
	return t == ReminderWeekly || t == ReminderDaily
}

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
)

// ReminderSpec is the computed, not yet persisted form of a reminder.
// For series types Anchor, Cadence and Until describe the occurrences;
// FireAt is the first occurrence.
type ReminderSpec struct {
	EventID      int64         `json:"event_id"`
	ReminderType ReminderType  `json:"reminder_type"`
	FireAt       time.Time     `json:"fire_at"`
	Anchor       *time.Time    `json:"anchor,omitempty"`
	Cadence      time.Duration `json:"cadence,omitempty"`
	Until        *time.Time    `json:"until,omitempty"`
}

// Reminder is a persisted reminder row.
type Reminder struct {
	ID           int64          `json:"id"`
	EventID      int64          `json:"event_id"`
	ReminderType ReminderType   `json:"reminder_type"`
	FireAt       time.Time      `json:"fire_at"`
	Anchor       *time.Time     `json:"anchor,omitempty"`
	Cadence      time.Duration  `json:"cadence,omitempty"`
	Until        *time.Time     `json:"until,omitempty"`
	Status       ReminderStatus `json:"status"`
	LastSentAt   *time.Time     `json:"last_sent_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NextFireAt returns when the reminder is next due, or false once nothing is left to send.
func (r *Reminder) NextFireAt() (time.Time, bool) {
	if r.Status == ReminderSent {
		return time.Time{}, false
	}
	if !r.ReminderType.IsSeries() || r.Cadence <= 0 {
		if r.LastSentAt != nil {
			return time.Time{}, false
		}
		return r.FireAt, true
	}
	next := r.FireAt
	if r.LastSentAt != nil && !r.LastSentAt.Before(r.FireAt) {
		k := r.LastSentAt.Sub(r.FireAt)/r.Cadence + 1
		next = r.FireAt.Add(k * r.Cadence)
	}
	if r.Until != nil && !next.Before(*r.Until) {
		return time.Time{}, false
	}
	return next, true
}
