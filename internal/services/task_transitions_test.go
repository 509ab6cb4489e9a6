package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcrm/internal/models"
)

func TestNextTaskStatus(t *testing.T) {
	tests := []struct {
		from   models.TaskStatus
		action TaskAction
		want   models.TaskStatus
		ok     bool
	}{
		{models.StatusPending, ActionStart, models.StatusInProgress, true},
		{models.StatusPending, ActionCancel, models.StatusCancelled, true},
		{models.StatusPending, ActionComplete, "", false},
		{models.StatusPending, ActionActivate, "", false},
		{models.StatusInProgress, ActionComplete, models.StatusCompleted, true},
		{models.StatusInProgress, ActionCancel, models.StatusCancelled, true},
		{models.StatusInProgress, ActionStart, "", false},
		{models.StatusWaiting, ActionActivate, models.StatusPending, true},
		{models.StatusWaiting, ActionCancel, models.StatusCancelled, true},
		{models.StatusWaiting, ActionStart, "", false},
		{models.StatusWaiting, ActionComplete, "", false},
		{models.StatusCompleted, ActionCancel, "", false},
		{models.StatusCompleted, ActionStart, "", false},
		{models.StatusCancelled, ActionActivate, "", false},
		{models.TaskStatus("archived"), ActionStart, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := nextTaskStatus(tt.from, tt.action)
			if !tt.ok {
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for status, next := range TaskTransitions {
		if status.IsTerminal() {
			assert.Empty(t, next, "status %s should be terminal", status)
		} else {
			assert.NotEmpty(t, next, "status %s should have transitions", status)
		}
	}
}

func TestActionForTarget(t *testing.T) {
	a, err := actionForTarget(models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, ActionComplete, a)

	a, err = actionForTarget(models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, ActionActivate, a)

	_, err = actionForTarget(models.StatusWaiting)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
