// internal/models/task.go
package models

import "time"

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusWaiting    TaskStatus = "waiting"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal reports whether no further transition can leave the status.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Task is one unit of work a department owes for an event.
type Task struct {
	ID                 int64      `json:"id"`
	EventDepartmentID  int64      `json:"event_department_id"`
	Title              string     `json:"title"`
	TitleAr            string     `json:"title_ar,omitempty"`
	Description        string     `json:"description"`
	Status             TaskStatus `json:"status"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	OrderIndex         int        `json:"order_index"`
	PrerequisiteTaskID *int64     `json:"prerequisite_task_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasPrerequisite reports whether the task is gated by another task.
func (t *Task) HasPrerequisite() bool {
	return t.PrerequisiteTaskID != nil && *t.PrerequisiteTaskID != 0
}

// TaskSpec is a request to create a task on an assignment.
type TaskSpec struct {
	EventDepartmentID  int64      `json:"event_department_id"`
	Title              string     `json:"title"`
	TitleAr            string     `json:"title_ar,omitempty"`
	Description        string     `json:"description"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	OrderIndex         int        `json:"order_index"`
	PrerequisiteTaskID *int64     `json:"prerequisite_task_id,omitempty"`
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	EventDepartmentID *int64
	EventID           *int64
	Status            *TaskStatus
}
