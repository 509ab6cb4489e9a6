package services

import "errors"

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrReminderNotFound   = errors.New("reminder not found")

	// Validation rejections. The underlying data is left unchanged.
	ErrValidation             = errors.New("invalid input")
	ErrInvalidTransition      = errors.New("illegal status transition")
	ErrPrerequisiteIncomplete = errors.New("prerequisite task is not completed")
	ErrTaskHasDependents      = errors.New("task has active dependents")
	ErrTaskNotCompleted       = errors.New("task is not completed")
	ErrPrerequisiteCycle      = errors.New("prerequisite would create a cycle")
	ErrReminderAlreadySent    = errors.New("reminder already sent")
)
