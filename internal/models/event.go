package models

import "time"

// Event is an organised occasion that departments are assigned to.
type Event struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	NameAr      string     `json:"name_ar,omitempty"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`

	Reminder1Week     bool `json:"reminder_1_week"`
	Reminder1Day      bool `json:"reminder_1_day"`
	ReminderWeekly    bool `json:"reminder_weekly"`
	ReminderDaily     bool `json:"reminder_daily"`
	ReminderMorningOf bool `json:"reminder_morning_of"`

	Departments []EventDepartment `json:"departments,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Department is a stakeholder group that receives tasks and notifications.
type Department struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Emails         []string  `json:"emails"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventDepartment assigns one department to one event.
type EventDepartment struct {
	ID                 int64   `json:"id"`
	EventID            int64   `json:"event_id"`
	DepartmentID       int64   `json:"department_id"`
	RequirementIDs     []int64 `json:"requirement_ids"`
	CustomRequirements string  `json:"custom_requirements,omitempty"`
	NotifyOnCreate     bool    `json:"notify_on_create"`
	NotifyOnUpdate     bool    `json:"notify_on_update"`

	// Filled by joins; not persisted on the assignment row.
	Department *Department `json:"department,omitempty"`
	Tasks      []Task      `json:"tasks,omitempty"`
}

// Requirement is a catalogue entry a department can be asked to fulfil.
type Requirement struct {
	ID           int64  `json:"id"`
	DepartmentID int64  `json:"department_id"`
	Title        string `json:"title"`
	TitleAr      string `json:"title_ar,omitempty"`
	Description  string `json:"description"`
	OrderIndex   int    `json:"order_index"`
	// Another requirement of the same department that must be done first.
	PrerequisiteRequirementID *int64 `json:"prerequisite_requirement_id,omitempty"`
}
