package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcrm/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: id=1", services.ErrTaskNotFound), http.StatusNotFound},
		{services.ErrReminderNotFound, http.StatusNotFound},
		{services.ErrInvalidTransition, http.StatusConflict},
		{services.ErrPrerequisiteIncomplete, http.StatusConflict},
		{&services.DeleteRefusedError{}, http.StatusConflict},
		{services.ErrReminderAlreadySent, http.StatusConflict},
		{services.ErrValidation, http.StatusBadRequest},
		{services.ErrPrerequisiteCycle, http.StatusBadRequest},
		{errors.New("pq: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), "%v", tc.err)
	}
}

func TestOptional(t *testing.T) {
	var req updateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"prerequisite_task_id": null}`), &req))
	assert.True(t, req.PrerequisiteTaskID.Set)
	assert.Nil(t, req.PrerequisiteTaskID.Value)
	assert.False(t, req.Deadline.Set)

	req = updateTaskRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"prerequisite_task_id": 9, "deadline": "2025-05-30T00:00:00Z"}`), &req))
	require.NotNil(t, req.PrerequisiteTaskID.Value)
	assert.Equal(t, int64(9), *req.PrerequisiteTaskID.Value)
	require.NotNil(t, req.Deadline.Value)
	assert.Equal(t, "2025-05-30T00:00:00Z", *req.Deadline.Value)

	assert.Error(t, json.Unmarshal([]byte(`{"prerequisite_task_id": "x"}`), &req))
}
