package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcrm/internal/models"
	"eventcrm/internal/testutil"
)

func newEngineFixture(t *testing.T) (*testutil.MemDB, *WorkflowEngine, models.EventDepartment) {
	t.Helper()
	mem := testutil.NewMemDB()
	dept := mem.AddDepartment("Logistics", []string{"logistics@example.com"}, 0)
	a := mem.AddAssignment(dept.ID)
	return mem, NewWorkflowEngine(mem.Store().Tasks), a
}

func TestHandleTaskCompletion_ActivatesWaitingDependent(t *testing.T) {
	mem, engine, a := newEngineFixture(t)
	ctx := context.Background()

	taskA := mem.AddTask(a.ID, "Book venue", models.StatusCompleted, 0, nil)
	taskB := mem.AddTask(a.ID, "Print badges", models.StatusWaiting, 1, testutil.Int64(taskA.ID))

	res, err := engine.HandleTaskCompletion(ctx, taskA.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{taskB.ID}, res.ActivatedTaskIDs)

	got, _ := mem.Task(taskB.ID)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestHandleTaskCompletion_IsIdempotent(t *testing.T) {
	mem, engine, a := newEngineFixture(t)
	ctx := context.Background()

	taskA := mem.AddTask(a.ID, "Book venue", models.StatusCompleted, 0, nil)
	mem.AddTask(a.ID, "Print badges", models.StatusWaiting, 1, testutil.Int64(taskA.ID))

	first, err := engine.HandleTaskCompletion(ctx, taskA.ID)
	require.NoError(t, err)
	assert.Len(t, first.ActivatedTaskIDs, 1)

	second, err := engine.HandleTaskCompletion(ctx, taskA.ID)
	require.NoError(t, err)
	assert.NotNil(t, second.ActivatedTaskIDs)
	assert.Empty(t, second.ActivatedTaskIDs)
}

func TestHandleTaskCompletion_OrdersByOrderIndexAndSkipsNonWaiting(t *testing.T) {
	mem, engine, a := newEngineFixture(t)
	ctx := context.Background()

	pre := mem.AddTask(a.ID, "Approve budget", models.StatusCompleted, 0, nil)
	late := mem.AddTask(a.ID, "Order catering", models.StatusWaiting, 5, testutil.Int64(pre.ID))
	early := mem.AddTask(a.ID, "Hire staff", models.StatusWaiting, 2, testutil.Int64(pre.ID))
	cancelled := mem.AddTask(a.ID, "Rent tent", models.StatusCancelled, 1, testutil.Int64(pre.ID))

	res, err := engine.HandleTaskCompletion(ctx, pre.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{early.ID, late.ID}, res.ActivatedTaskIDs)

	got, _ := mem.Task(cancelled.ID)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestHandleTaskCompletion_RejectsIncompleteTask(t *testing.T) {
	mem, engine, a := newEngineFixture(t)

	taskA := mem.AddTask(a.ID, "Book venue", models.StatusInProgress, 0, nil)
	_, err := engine.HandleTaskCompletion(context.Background(), taskA.ID)
	assert.ErrorIs(t, err, ErrTaskNotCompleted)

	_, err = engine.HandleTaskCompletion(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCanDeleteTask_BlockedByLiveDependent(t *testing.T) {
	mem, engine, a := newEngineFixture(t)

	taskA := mem.AddTask(a.ID, "Book venue", models.StatusInProgress, 0, nil)
	taskB := mem.AddTask(a.ID, "Print badges", models.StatusWaiting, 1, testutil.Int64(taskA.ID))

	check, err := engine.CanDeleteTask(context.Background(), taskA.ID)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.Equal(t, []int64{taskB.ID}, check.BlockingTaskIDs)
	assert.Contains(t, check.Reason, "Print badges")
}

func TestCanDeleteTask_AllowedWhenDependentsCancelled(t *testing.T) {
	mem, engine, a := newEngineFixture(t)

	taskA := mem.AddTask(a.ID, "Book venue", models.StatusPending, 0, nil)
	mem.AddTask(a.ID, "Print badges", models.StatusCancelled, 1, testutil.Int64(taskA.ID))
	lone := mem.AddTask(a.ID, "Order water", models.StatusPending, 2, nil)

	check, err := engine.CanDeleteTask(context.Background(), taskA.ID)
	require.NoError(t, err)
	assert.True(t, check.Allowed)

	check, err = engine.CanDeleteTask(context.Background(), lone.ID)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Empty(t, check.Reason)
}

func TestCanDeleteTask_CompletedDependentStillBlocks(t *testing.T) {
	mem, engine, a := newEngineFixture(t)

	taskA := mem.AddTask(a.ID, "Book venue", models.StatusCompleted, 0, nil)
	mem.AddTask(a.ID, "Print badges", models.StatusCompleted, 1, testutil.Int64(taskA.ID))

	check, err := engine.CanDeleteTask(context.Background(), taskA.ID)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
}

func TestCanDeleteTask_UnknownTask(t *testing.T) {
	_, engine, _ := newEngineFixture(t)
	_, err := engine.CanDeleteTask(context.Background(), 42)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestInitialStatus(t *testing.T) {
	mem, engine, a := newEngineFixture(t)
	ctx := context.Background()

	done := mem.AddTask(a.ID, "Done", models.StatusCompleted, 0, nil)
	open := mem.AddTask(a.ID, "Open", models.StatusInProgress, 1, nil)

	st, err := engine.InitialStatus(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, st)

	st, err = engine.InitialStatus(ctx, testutil.Int64(done.ID))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, st)

	st, err = engine.InitialStatus(ctx, testutil.Int64(open.ID))
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, st)

	_, err = engine.InitialStatus(ctx, testutil.Int64(777))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateTransition_PrerequisiteGate(t *testing.T) {
	mem, engine, a := newEngineFixture(t)
	ctx := context.Background()

	pre := mem.AddTask(a.ID, "Book venue", models.StatusPending, 0, nil)
	dep := mem.AddTask(a.ID, "Print badges", models.StatusPending, 1, testutil.Int64(pre.ID))

	_, err := engine.ValidateTransition(ctx, &dep, models.StatusInProgress)
	assert.ErrorIs(t, err, ErrPrerequisiteIncomplete)

	next, err := engine.ValidateTransition(ctx, &dep, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, next)

	_, err = engine.ValidateTransition(ctx, &dep, models.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckPrerequisite_DetectsCycles(t *testing.T) {
	mem, engine, a := newEngineFixture(t)
	ctx := context.Background()

	x := mem.AddTask(a.ID, "X", models.StatusPending, 0, nil)
	y := mem.AddTask(a.ID, "Y", models.StatusWaiting, 1, testutil.Int64(x.ID))
	z := mem.AddTask(a.ID, "Z", models.StatusWaiting, 2, testutil.Int64(y.ID))

	assert.ErrorIs(t, engine.CheckPrerequisite(ctx, x.ID, x.ID), ErrPrerequisiteCycle)
	assert.ErrorIs(t, engine.CheckPrerequisite(ctx, x.ID, z.ID), ErrPrerequisiteCycle)
	assert.NoError(t, engine.CheckPrerequisite(ctx, z.ID, x.ID))
	assert.NoError(t, engine.CheckPrerequisite(ctx, 0, z.ID))
	assert.ErrorIs(t, engine.CheckPrerequisite(ctx, 0, 555), ErrValidation)
}
