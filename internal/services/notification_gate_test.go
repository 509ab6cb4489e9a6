package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcrm/internal/models"
)

func TestShouldNotifyStakeholders(t *testing.T) {
	on := models.NotificationSettings{EmailEnabled: true}
	off := models.NotificationSettings{EmailEnabled: false}
	createOnly := models.EventDepartment{NotifyOnCreate: true}
	updateOnly := models.EventDepartment{NotifyOnUpdate: true}

	assert.True(t, ShouldNotifyStakeholders(on, createOnly, models.NotifyCreate))
	assert.False(t, ShouldNotifyStakeholders(on, createOnly, models.NotifyUpdate))
	assert.True(t, ShouldNotifyStakeholders(on, updateOnly, models.NotifyUpdate))
	assert.False(t, ShouldNotifyStakeholders(on, updateOnly, models.NotifyCreate))
	assert.False(t, ShouldNotifyStakeholders(off, createOnly, models.NotifyCreate))
	assert.False(t, ShouldNotifyStakeholders(on, createOnly, models.NotificationKind("delete")))
}

func TestShouldNotifyManagement(t *testing.T) {
	assert.True(t, ShouldNotifyManagement(models.NotificationSettings{EmailEnabled: true, ManagementSummaryEnabled: true}))
	assert.False(t, ShouldNotifyManagement(models.NotificationSettings{EmailEnabled: false, ManagementSummaryEnabled: true}))
	assert.False(t, ShouldNotifyManagement(models.NotificationSettings{EmailEnabled: true}))
}

func TestComputeCustomRequirementTask(t *testing.T) {
	assert.Nil(t, ComputeCustomRequirementTask(models.EventDepartment{ID: 3, CustomRequirements: "   "}))

	spec := ComputeCustomRequirementTask(models.EventDepartment{
		ID:                 3,
		RequirementIDs:     []int64{10, 11},
		CustomRequirements: "  Two extra golf carts\n",
	})
	require.NotNil(t, spec)
	assert.Equal(t, int64(3), spec.EventDepartmentID)
	assert.Equal(t, "Custom Requirements", spec.Title)
	assert.Equal(t, "Two extra golf carts", spec.Description)
	assert.Zero(t, spec.OrderIndex)
	assert.Nil(t, spec.PrerequisiteTaskID)
}

func TestStakeholderRecipients(t *testing.T) {
	settings := models.NotificationSettings{EmailEnabled: true, TelegramEnabled: true}
	assignments := []models.EventDepartment{
		{ID: 1, NotifyOnCreate: true, Department: &models.Department{
			Emails: []string{"ops@example.com", "Lead@example.com"}, TelegramChatID: 100,
		}},
		{ID: 2, NotifyOnCreate: true, Department: &models.Department{
			Emails: []string{"OPS@example.com", ""}, TelegramChatID: 100,
		}},
		{ID: 3, NotifyOnCreate: false, Department: &models.Department{
			Emails: []string{"silent@example.com"}, TelegramChatID: 300,
		}},
	}

	r := StakeholderRecipients(settings, assignments, models.NotifyCreate)
	assert.Equal(t, []string{"Lead@example.com", "ops@example.com"}, r.Emails)
	assert.Equal(t, []int64{100}, r.TelegramChatIDs)

	settings.TelegramEnabled = false
	r = StakeholderRecipients(settings, assignments, models.NotifyCreate)
	assert.Empty(t, r.TelegramChatIDs)

	r = StakeholderRecipients(settings, assignments, models.NotifyUpdate)
	assert.True(t, r.Empty())
}

func TestManagementRecipients(t *testing.T) {
	settings := models.NotificationSettings{
		EmailEnabled:             true,
		ManagementSummaryEnabled: true,
		TelegramEnabled:          true,
		ManagementEmails:         []string{"ceo@example.com", "ceo@example.com", "coo@example.com"},
		ManagementTelegramChatID: -100200,
	}
	r := ManagementRecipients(settings)
	assert.Equal(t, []string{"ceo@example.com", "coo@example.com"}, r.Emails)
	assert.Equal(t, []int64{-100200}, r.TelegramChatIDs)

	settings.ManagementSummaryEnabled = false
	assert.True(t, ManagementRecipients(settings).Empty())
}
