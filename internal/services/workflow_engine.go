package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventcrm/internal/models"
	"eventcrm/internal/repositories"
)

// maxPrerequisiteDepth bounds the walk up a prerequisite chain.
const maxPrerequisiteDepth = 256

// DeleteCheck is the answer to whether a task may be deleted.
type DeleteCheck struct {
	Allowed         bool    `json:"allowed"`
	Reason          string  `json:"reason,omitempty"`
	BlockingTaskIDs []int64 `json:"blocking_task_ids,omitempty"`
}

// CompletionResult lists the dependents moved from waiting to pending.
type CompletionResult struct {
	ActivatedTaskIDs []int64 `json:"activated_task_ids"`
}

// WorkflowEngine enforces task lifecycle rules over a task repository.
// Every call reads fresh rows; nothing is cached between calls.
type WorkflowEngine struct {
	tasks repositories.TaskRepository
}

func NewWorkflowEngine(tasks repositories.TaskRepository) *WorkflowEngine {
	return &WorkflowEngine{tasks: tasks}
}

func (e *WorkflowEngine) getTask(ctx context.Context, id int64) (*models.Task, error) {
	t, err := e.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrTaskNotFound, id)
		}
		return nil, err
	}
	return t, nil
}

// InitialStatus is pending unless the task is gated by a prerequisite that is not completed yet.
func (e *WorkflowEngine) InitialStatus(ctx context.Context, prerequisiteID *int64) (models.TaskStatus, error) {
	if prerequisiteID == nil || *prerequisiteID == 0 {
		return models.StatusPending, nil
	}
	pre, err := e.getTask(ctx, *prerequisiteID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return "", fmt.Errorf("%w: prerequisite task %d does not exist", ErrValidation, *prerequisiteID)
		}
		return "", err
	}
	if pre.Status == models.StatusCompleted {
		return models.StatusPending, nil
	}
	return models.StatusWaiting, nil
}

// CanDeleteTask refuses deletion while any non-cancelled task names this one as its prerequisite.
func (e *WorkflowEngine) CanDeleteTask(ctx context.Context, taskID int64) (DeleteCheck, error) {
	if _, err := e.getTask(ctx, taskID); err != nil {
		return DeleteCheck{}, err
	}
	dependents, err := e.tasks.ListByPrerequisite(ctx, taskID)
	if err != nil {
		return DeleteCheck{}, err
	}

	var blocking []models.Task
	for _, d := range dependents {
		if d.Status != models.StatusCancelled {
			blocking = append(blocking, d)
		}
	}
	if len(blocking) == 0 {
		return DeleteCheck{Allowed: true}, nil
	}

	ids := make([]int64, 0, len(blocking))
	names := make([]string, 0, len(blocking))
	for _, b := range blocking {
		ids = append(ids, b.ID)
		names = append(names, fmt.Sprintf("#%d %q (%s)", b.ID, b.Title, b.Status))
	}
	return DeleteCheck{
		Allowed:         false,
		Reason:          fmt.Sprintf("task %d is the prerequisite of %s", taskID, strings.Join(names, ", ")),
		BlockingTaskIDs: ids,
	}, nil
}

// HandleTaskCompletion activates the waiting dependents of a completed task.
// Calling it again for the same task activates nothing new because only
// tasks still in waiting are considered.
func (e *WorkflowEngine) HandleTaskCompletion(ctx context.Context, taskID int64) (CompletionResult, error) {
	task, err := e.getTask(ctx, taskID)
	if err != nil {
		return CompletionResult{}, err
	}
	if task.Status != models.StatusCompleted {
		return CompletionResult{}, fmt.Errorf("%w: task %d is %s", ErrTaskNotCompleted, taskID, task.Status)
	}

	dependents, err := e.tasks.ListByPrerequisite(ctx, taskID)
	if err != nil {
		return CompletionResult{}, err
	}

	res := CompletionResult{ActivatedTaskIDs: []int64{}}
	for _, d := range dependents {
		if d.Status != models.StatusWaiting {
			continue
		}
		to, err := nextTaskStatus(d.Status, ActionActivate)
		if err != nil {
			return CompletionResult{}, err
		}
		if err := e.tasks.UpdateStatus(ctx, d.ID, to); err != nil {
			return CompletionResult{}, fmt.Errorf("activating task %d: %w", d.ID, err)
		}
		res.ActivatedTaskIDs = append(res.ActivatedTaskIDs, d.ID)
	}
	return res, nil
}

// ValidateTransition returns the status a user request moves the task to,
// or a validation error. Activation is never accepted from users.
func (e *WorkflowEngine) ValidateTransition(ctx context.Context, task *models.Task, to models.TaskStatus) (models.TaskStatus, error) {
	action, err := actionForTarget(to)
	if err != nil {
		return "", err
	}
	if action == ActionActivate {
		return "", fmt.Errorf("%w: tasks become pending only when their prerequisite completes", ErrInvalidTransition)
	}
	next, err := nextTaskStatus(task.Status, action)
	if err != nil {
		return "", err
	}
	if requiresCompletedPrerequisite(next) && task.HasPrerequisite() {
		pre, err := e.getTask(ctx, *task.PrerequisiteTaskID)
		if err != nil {
			return "", err
		}
		if pre.Status != models.StatusCompleted {
			return "", fmt.Errorf("%w: task %d waits for #%d %q (%s)",
				ErrPrerequisiteIncomplete, task.ID, pre.ID, pre.Title, pre.Status)
		}
	}
	return next, nil
}

// CheckPrerequisite rejects prerequisites that are missing or would close a cycle back to taskID.
// taskID is zero for tasks that do not exist yet.
func (e *WorkflowEngine) CheckPrerequisite(ctx context.Context, taskID, prerequisiteID int64) error {
	if prerequisiteID == taskID && taskID != 0 {
		return fmt.Errorf("%w: task %d cannot depend on itself", ErrPrerequisiteCycle, taskID)
	}
	cur := prerequisiteID
	for depth := 0; depth < maxPrerequisiteDepth; depth++ {
		t, err := e.getTask(ctx, cur)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				return fmt.Errorf("%w: prerequisite task %d does not exist", ErrValidation, cur)
			}
			return err
		}
		if !t.HasPrerequisite() {
			return nil
		}
		cur = *t.PrerequisiteTaskID
		if taskID != 0 && cur == taskID {
			return fmt.Errorf("%w: task %d is already upstream of %d", ErrPrerequisiteCycle, taskID, prerequisiteID)
		}
	}
	return fmt.Errorf("%w: prerequisite chain deeper than %d", ErrPrerequisiteCycle, maxPrerequisiteDepth)
}
