package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcrm/internal/models"
	"eventcrm/internal/testutil"
)

type recordingActivationNotifier struct {
	calls [][]models.Task
	err   error
}

func (n *recordingActivationNotifier) NotifyTasksActivated(_ context.Context, tasks []models.Task) error {
	n.calls = append(n.calls, tasks)
	return n.err
}

func newTaskServiceFixture(t *testing.T) (*testutil.MemDB, TaskService, *recordingActivationNotifier, models.EventDepartment) {
	t.Helper()
	mem := testutil.NewMemDB()
	dept := mem.AddDepartment("Protocol", []string{"protocol@example.com"}, 0)
	a := mem.AddAssignment(dept.ID)
	notifier := &recordingActivationNotifier{}
	svc := NewTaskService(mem.Store(), &testutil.UoW{DB: mem}, notifier)
	return mem, svc, notifier, a
}

func TestTaskService_CreateSetsInitialStatus(t *testing.T) {
	_, svc, _, a := newTaskServiceFixture(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, models.TaskSpec{EventDepartmentID: a.ID, Title: "Book venue"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, first.Status)

	second, err := svc.Create(ctx, models.TaskSpec{
		EventDepartmentID:  a.ID,
		Title:              "Print badges",
		OrderIndex:         1,
		PrerequisiteTaskID: testutil.Int64(first.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, second.Status)

	zero, err := svc.Create(ctx, models.TaskSpec{EventDepartmentID: a.ID, Title: "Order water", PrerequisiteTaskID: testutil.Int64(0)})
	require.NoError(t, err)
	assert.Nil(t, zero.PrerequisiteTaskID)
	assert.Equal(t, models.StatusPending, zero.Status)
}

func TestTaskService_CreateValidation(t *testing.T) {
	_, svc, _, a := newTaskServiceFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.TaskSpec{EventDepartmentID: a.ID, Title: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, models.TaskSpec{EventDepartmentID: 999, Title: "Orphan"})
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	_, err = svc.Create(ctx, models.TaskSpec{EventDepartmentID: a.ID, Title: "Dangling", PrerequisiteTaskID: testutil.Int64(999)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTaskService_CompletionCascade(t *testing.T) {
	mem, svc, notifier, a := newTaskServiceFixture(t)
	ctx := context.Background()

	taskA, err := svc.Create(ctx, models.TaskSpec{EventDepartmentID: a.ID, Title: "Book venue"})
	require.NoError(t, err)
	taskB, err := svc.Create(ctx, models.TaskSpec{EventDepartmentID: a.ID, Title: "Print badges", OrderIndex: 1, PrerequisiteTaskID: &taskA.ID})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, taskB.ID, models.StatusInProgress)
	require.ErrorIs(t, err, ErrInvalidTransition, "waiting tasks cannot start")

	_, err = svc.ChangeStatus(ctx, taskA.ID, models.StatusInProgress)
	require.NoError(t, err)
	change, err := svc.ChangeStatus(ctx, taskA.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, change.Task.Status)
	assert.Equal(t, []int64{taskB.ID}, change.ActivatedTaskIDs)

	got, _ := mem.Task(taskB.ID)
	assert.Equal(t, models.StatusPending, got.Status)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, taskB.ID, notifier.calls[0][0].ID)
}

func TestTaskService_ChangeStatusSameStatusIsNoop(t *testing.T) {
	_, svc, notifier, a := newTaskServiceFixture(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, models.TaskSpec{EventDepartmentID: a.ID, Title: "Book venue"})
	require.NoError(t, err)

	change, err := svc.ChangeStatus(ctx, task.ID, models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, change.Task.Status)
	assert.Empty(t, change.ActivatedTaskIDs)
	assert.Empty(t, notifier.calls)
}

func TestTaskService_ChangeStatusRejectsSkippingProgress(t *testing.T) {
	_, svc, _, a := newTaskServiceFixture(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, models.TaskSpec{EventDepartmentID: a.ID, Title: "Book venue"})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, task.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.ChangeStatus(ctx, task.ID, models.TaskStatus("archived"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTaskService_CascadeRollsBackOnFailure(t *testing.T) {
	mem := testutil.NewMemDB()
	dept := mem.AddDepartment("Protocol", nil, 0)
	a := mem.AddAssignment(dept.ID)
	taskA := mem.AddTask(a.ID, "Book venue", models.StatusInProgress, 0, nil)
	taskB := mem.AddTask(a.ID, "Print badges", models.StatusWaiting, 1, testutil.Int64(taskA.ID))

	// Write #1 completes A, write #2 activates B.
	failing := &testutil.FailOnNthWriteUoW{DB: mem, FailOn: 2, Err: errors.New("injected activation failure")}
	svc := NewTaskService(mem.Store(), failing, nil)

	_, err := svc.ChangeStatus(context.Background(), taskA.ID, models.StatusCompleted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected activation failure")

	gotA, _ := mem.Task(taskA.ID)
	gotB, _ := mem.Task(taskB.ID)
	assert.Equal(t, models.StatusInProgress, gotA.Status, "completion should be rolled back")
	assert.Equal(t, models.StatusWaiting, gotB.Status)
}

func TestTaskService_DeleteRefusedWithReason(t *testing.T) {
	mem, svc, _, a := newTaskServiceFixture(t)
	ctx := context.Background()

	taskA := mem.AddTask(a.ID, "Book venue", models.StatusPending, 0, nil)
	taskB := mem.AddTask(a.ID, "Print badges", models.StatusWaiting, 1, testutil.Int64(taskA.ID))

	err := svc.Delete(ctx, taskA.ID)
	require.ErrorIs(t, err, ErrTaskHasDependents)
	var refused *DeleteRefusedError
	require.True(t, errors.As(err, &refused))
	assert.Equal(t, []int64{taskB.ID}, refused.Check.BlockingTaskIDs)

	_, ok := mem.Task(taskA.ID)
	assert.True(t, ok, "task must survive a refused delete")

	_, err = svc.ChangeStatus(ctx, taskB.ID, models.StatusCancelled)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, taskA.ID))

	_, ok = mem.Task(taskA.ID)
	assert.False(t, ok)
	gotB, _ := mem.Task(taskB.ID)
	assert.Nil(t, gotB.PrerequisiteTaskID)

	assert.ErrorIs(t, svc.Delete(ctx, taskA.ID), ErrTaskNotFound)
}

func TestTaskService_UpdatePrerequisiteRegatesTask(t *testing.T) {
	mem, svc, _, a := newTaskServiceFixture(t)
	ctx := context.Background()

	open := mem.AddTask(a.ID, "Approve budget", models.StatusPending, 0, nil)
	done := mem.AddTask(a.ID, "Sign contract", models.StatusCompleted, 1, nil)
	task := mem.AddTask(a.ID, "Order catering", models.StatusPending, 2, nil)

	pre := testutil.Int64(open.ID)
	updated, err := svc.Update(ctx, task.ID, TaskPatch{PrerequisiteTaskID: &pre})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, updated.Status)

	pre = testutil.Int64(done.ID)
	updated, err = svc.Update(ctx, task.ID, TaskPatch{PrerequisiteTaskID: &pre})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)

	var none *int64
	updated, err = svc.Update(ctx, task.ID, TaskPatch{PrerequisiteTaskID: &none})
	require.NoError(t, err)
	assert.Nil(t, updated.PrerequisiteTaskID)

	self := testutil.Int64(task.ID)
	_, err = svc.Update(ctx, task.ID, TaskPatch{PrerequisiteTaskID: &self})
	assert.ErrorIs(t, err, ErrPrerequisiteCycle)
}

func TestTaskService_ListByAssignmentOrdered(t *testing.T) {
	mem, svc, _, a := newTaskServiceFixture(t)
	ctx := context.Background()

	third := mem.AddTask(a.ID, "Third", models.StatusPending, 3, nil)
	first := mem.AddTask(a.ID, "First", models.StatusPending, 1, nil)
	second := mem.AddTask(a.ID, "Second", models.StatusPending, 2, nil)

	tasks, err := svc.ListByAssignment(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []int64{first.ID, second.ID, third.ID}, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})

	_, err = svc.ListByAssignment(ctx, 999)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestTaskService_PatchIsAllOrNothing(t *testing.T) {
	mem, svc, _, a := newTaskServiceFixture(t)
	ctx := context.Background()
	first := mem.AddTask(a.ID, "Book venue", models.StatusPending, 0, nil)
	second := mem.AddTask(a.ID, "Print badges", models.StatusWaiting, 1, testutil.Int64(first.ID))

	title := "Print lanyards"
	start := models.StatusInProgress
	_, err := svc.Patch(ctx, second.ID, TaskPatch{Title: &title}, &start)
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, _ := mem.Task(second.ID)
	assert.Equal(t, "Print badges", got.Title)
	assert.Equal(t, models.StatusWaiting, got.Status)

	var none *int64
	change, err := svc.Patch(ctx, second.ID, TaskPatch{Title: &title, PrerequisiteTaskID: &none}, &start)
	require.NoError(t, err)
	assert.Equal(t, title, change.Task.Title)
	assert.Equal(t, models.StatusInProgress, change.Task.Status)
}
