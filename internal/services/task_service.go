// internal/services/task_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"eventcrm/internal/models"
	"eventcrm/internal/repositories"
)

// TaskPatch carries the optional field updates of a task.
type TaskPatch struct {
	Title              *string
	TitleAr            *string
	Description        *string
	Deadline           **time.Time
	OrderIndex         *int
	PrerequisiteTaskID **int64
}

func (p TaskPatch) empty() bool {
	return p.Title == nil && p.TitleAr == nil && p.Description == nil &&
		p.Deadline == nil && p.OrderIndex == nil && p.PrerequisiteTaskID == nil
}

// StatusChange is the outcome of a status update, including cascade activations.
type StatusChange struct {
	Task             *models.Task `json:"task"`
	ActivatedTaskIDs []int64      `json:"activated_task_ids"`
}

// TaskService defines the interface for task-related business logic.
type TaskService interface {
	Create(ctx context.Context, spec models.TaskSpec) (*models.Task, error)
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	GetAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	ListByAssignment(ctx context.Context, assignmentID int64) ([]models.Task, error)
	Update(ctx context.Context, id int64, patch TaskPatch) (*models.Task, error)
	ChangeStatus(ctx context.Context, id int64, to models.TaskStatus) (*StatusChange, error)
	Patch(ctx context.Context, id int64, patch TaskPatch, to *models.TaskStatus) (*StatusChange, error)
	CanDelete(ctx context.Context, id int64) (DeleteCheck, error)
	Delete(ctx context.Context, id int64) error
}

// TaskActivationNotifier is told about tasks the cascade made actionable.
type TaskActivationNotifier interface {
	NotifyTasksActivated(ctx context.Context, tasks []models.Task) error
}

type taskService struct {
	store    *repositories.Store
	uow      repositories.UnitOfWork
	notifier TaskActivationNotifier
	now      func() time.Time
}

// NewTaskService creates a new instance of TaskService. notifier may be nil.
func NewTaskService(store *repositories.Store, uow repositories.UnitOfWork, notifier TaskActivationNotifier) TaskService {
	return &taskService{store: store, uow: uow, notifier: notifier, now: time.Now}
}

func (s *taskService) Create(ctx context.Context, spec models.TaskSpec) (*models.Task, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	var created *models.Task
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store *repositories.Store) error {
		if _, err := store.Events.FindAssignment(ctx, spec.EventDepartmentID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: id=%d", ErrAssignmentNotFound, spec.EventDepartmentID)
			}
			return err
		}
		t, err := createTask(ctx, store, spec, s.now())
		if err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createTask validates the prerequisite and stores the task with its initial status.
func createTask(ctx context.Context, store *repositories.Store, spec models.TaskSpec, now time.Time) (*models.Task, error) {
	engine := NewWorkflowEngine(store.Tasks)
	if spec.PrerequisiteTaskID != nil && *spec.PrerequisiteTaskID == 0 {
		spec.PrerequisiteTaskID = nil
	}
	if spec.PrerequisiteTaskID != nil {
		if err := engine.CheckPrerequisite(ctx, 0, *spec.PrerequisiteTaskID); err != nil {
			return nil, err
		}
	}
	status, err := engine.InitialStatus(ctx, spec.PrerequisiteTaskID)
	if err != nil {
		return nil, err
	}
	task := &models.Task{
		EventDepartmentID:  spec.EventDepartmentID,
		Title:              spec.Title,
		TitleAr:            spec.TitleAr,
		Description:        spec.Description,
		Status:             status,
		Deadline:           spec.Deadline,
		OrderIndex:         spec.OrderIndex,
		PrerequisiteTaskID: spec.PrerequisiteTaskID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := store.Tasks.Store(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	return NewWorkflowEngine(s.store.Tasks).getTask(ctx, id)
}

func (s *taskService) GetAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	return s.store.Tasks.FindAll(ctx, filter)
}

// ListByAssignment returns the department's tasks in declared order.
func (s *taskService) ListByAssignment(ctx context.Context, assignmentID int64) ([]models.Task, error) {
	if _, err := s.store.Events.FindAssignment(ctx, assignmentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrAssignmentNotFound, assignmentID)
		}
		return nil, err
	}
	return s.store.Tasks.FindAll(ctx, models.TaskFilter{EventDepartmentID: &assignmentID})
}

func (s *taskService) Update(ctx context.Context, id int64, patch TaskPatch) (*models.Task, error) {
	change, err := s.Patch(ctx, id, patch, nil)
	if err != nil {
		return nil, err
	}
	return change.Task, nil
}

func (s *taskService) ChangeStatus(ctx context.Context, id int64, to models.TaskStatus) (*StatusChange, error) {
	return s.Patch(ctx, id, TaskPatch{}, &to)
}

// Patch applies field edits and an optional status change in one transaction.
// Any rejection leaves the task untouched.
func (s *taskService) Patch(ctx context.Context, id int64, patch TaskPatch, to *models.TaskStatus) (*StatusChange, error) {
	if to != nil && !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *to)
	}

	var change *StatusChange
	var activated []models.Task
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store *repositories.Store) error {
		engine := NewWorkflowEngine(store.Tasks)
		task, err := engine.getTask(ctx, id)
		if err != nil {
			return err
		}
		if !patch.empty() {
			if err := s.applyFields(ctx, engine, task, patch); err != nil {
				return err
			}
			task.UpdatedAt = s.now()
			if err := store.Tasks.Update(ctx, task); err != nil {
				return err
			}
		}

		change = &StatusChange{Task: task, ActivatedTaskIDs: []int64{}}
		if to == nil || task.Status == *to {
			return nil
		}

		next, err := engine.ValidateTransition(ctx, task, *to)
		if err != nil {
			return err
		}
		if err := store.Tasks.UpdateStatus(ctx, id, next); err != nil {
			return err
		}
		if next == models.StatusCompleted {
			res, err := engine.HandleTaskCompletion(ctx, id)
			if err != nil {
				return err
			}
			change.ActivatedTaskIDs = res.ActivatedTaskIDs
			for _, aid := range res.ActivatedTaskIDs {
				t, err := engine.getTask(ctx, aid)
				if err != nil {
					return err
				}
				activated = append(activated, *t)
			}
		}

		change.Task, err = engine.getTask(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(activated) > 0 && s.notifier != nil {
		if err := s.notifier.NotifyTasksActivated(ctx, activated); err != nil {
			log.Printf("[task][cascade][notify][err] task=%d: %v", id, err)
		}
	}
	return change, nil
}

func (s *taskService) applyFields(ctx context.Context, engine *WorkflowEngine, task *models.Task, patch TaskPatch) error {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return fmt.Errorf("%w: title is required", ErrValidation)
		}
		task.Title = *patch.Title
	}
	if patch.TitleAr != nil {
		task.TitleAr = *patch.TitleAr
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Deadline != nil {
		task.Deadline = *patch.Deadline
	}
	if patch.OrderIndex != nil {
		task.OrderIndex = *patch.OrderIndex
	}
	if patch.PrerequisiteTaskID != nil {
		return s.applyPrerequisite(ctx, engine, task, *patch.PrerequisiteTaskID)
	}
	return nil
}

// applyPrerequisite re-gates the task after its prerequisite changes.
// A pending task behind an unfinished prerequisite goes back to waiting; a
// waiting task whose new prerequisite is done (or removed) becomes pending.
func (s *taskService) applyPrerequisite(ctx context.Context, engine *WorkflowEngine, task *models.Task, pre *int64) error {
	if pre != nil && *pre == 0 {
		pre = nil
	}
	if task.Status.IsTerminal() {
		return fmt.Errorf("%w: prerequisite of a %s task cannot change", ErrInvalidTransition, task.Status)
	}
	if pre != nil {
		if err := engine.CheckPrerequisite(ctx, task.ID, *pre); err != nil {
			return err
		}
	}
	gate, err := engine.InitialStatus(ctx, pre)
	if err != nil {
		return err
	}
	switch {
	case task.Status == models.StatusInProgress && gate == models.StatusWaiting:
		return fmt.Errorf("%w: task %d is already in progress", ErrPrerequisiteIncomplete, task.ID)
	case task.Status == models.StatusPending || task.Status == models.StatusWaiting:
		task.Status = gate
	}
	task.PrerequisiteTaskID = pre
	return nil
}

func (s *taskService) CanDelete(ctx context.Context, id int64) (DeleteCheck, error) {
	return NewWorkflowEngine(s.store.Tasks).CanDeleteTask(ctx, id)
}

func (s *taskService) Delete(ctx context.Context, id int64) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, store *repositories.Store) error {
		check, err := NewWorkflowEngine(store.Tasks).CanDeleteTask(ctx, id)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return &DeleteRefusedError{Check: check}
		}
		return store.Tasks.Delete(ctx, id)
	})
}

// DeleteRefusedError carries the reason a delete was refused.
type DeleteRefusedError struct {
	Check DeleteCheck
}

func (e *DeleteRefusedError) Error() string {
	return ErrTaskHasDependents.Error() + ": " + e.Check.Reason
}

func (e *DeleteRefusedError) Unwrap() error { return ErrTaskHasDependents }
