package services

import (
	"fmt"

	"eventcrm/internal/models"
)

// TaskAction is what moves a task from one status to the next.
type TaskAction string

const (
	ActionStart    TaskAction = "start"
	ActionComplete TaskAction = "complete"
	ActionCancel   TaskAction = "cancel"
	// ActionActivate is only issued by the completion cascade.
	ActionActivate TaskAction = "activate"
)

// TaskTransitions is the full task state machine: status × action → status.
// Anything not listed is rejected. Completed and cancelled are terminal.
var TaskTransitions = map[models.TaskStatus]map[TaskAction]models.TaskStatus{
	models.StatusPending: {
		ActionStart:  models.StatusInProgress,
		ActionCancel: models.StatusCancelled,
	},
	models.StatusInProgress: {
		ActionComplete: models.StatusCompleted,
		ActionCancel:   models.StatusCancelled,
	},
	models.StatusWaiting: {
		ActionActivate: models.StatusPending,
		ActionCancel:   models.StatusCancelled,
	},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

func nextTaskStatus(from models.TaskStatus, action TaskAction) (models.TaskStatus, error) {
	nexts, ok := TaskTransitions[from]
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	to, ok := nexts[action]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a task that is %s", ErrInvalidTransition, action, from)
	}
	return to, nil
}

// actionForTarget maps the status a user asks for onto the action that reaches it.
func actionForTarget(to models.TaskStatus) (TaskAction, error) {
	switch to {
	case models.StatusInProgress:
		return ActionStart, nil
	case models.StatusCompleted:
		return ActionComplete, nil
	case models.StatusCancelled:
		return ActionCancel, nil
	case models.StatusPending:
		return ActionActivate, nil
	}
	return "", fmt.Errorf("%w: status %q cannot be requested", ErrInvalidTransition, to)
}

// requiresCompletedPrerequisite reports whether entering the status needs the prerequisite done.
func requiresCompletedPrerequisite(to models.TaskStatus) bool {
	return to == models.StatusInProgress || to == models.StatusCompleted
}
