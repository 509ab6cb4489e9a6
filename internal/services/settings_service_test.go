package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcrm/internal/models"
	"eventcrm/internal/testutil"
)

func TestSettingsService_DefaultsUntilSaved(t *testing.T) {
	mem := testutil.NewMemDB()
	defaults := models.NotificationSettings{
		EmailEnabled:             true,
		ManagementSummaryEnabled: true,
		ManagementEmails:         []string{"board@example.com"},
	}
	svc := NewSettingsService(mem.Store().Settings, defaults)
	ctx := context.Background()

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, got)

	saved, err := svc.Update(ctx, models.NotificationSettings{
		EmailEnabled:             false,
		TelegramEnabled:          true,
		ManagementEmails:         []string{" ceo@example.com ", ""},
		ManagementTelegramChatID: -42,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ceo@example.com"}, saved.ManagementEmails)

	got, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, got.EmailEnabled)
	assert.True(t, got.TelegramEnabled)
	assert.False(t, got.ManagementSummaryEnabled)
	assert.Equal(t, []string{"ceo@example.com"}, got.ManagementEmails)
	assert.Equal(t, int64(-42), got.ManagementTelegramChatID)
}

func TestSettingsService_RejectsBadEmail(t *testing.T) {
	mem := testutil.NewMemDB()
	svc := NewSettingsService(mem.Store().Settings, models.NotificationSettings{})

	_, err := svc.Update(context.Background(), models.NotificationSettings{ManagementEmails: []string{"not an address"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSettingsFromBag_IgnoresGarbage(t *testing.T) {
	defaults := models.NotificationSettings{EmailEnabled: true}
	got := settingsFromBag(map[string]string{
		keyEmailEnabled:             "maybe",
		keyManagementTelegramChatID: "abc",
		keyManagementEmails:         "a@example.com, ,b@example.com",
	}, defaults)
	assert.True(t, got.EmailEnabled)
	assert.Zero(t, got.ManagementTelegramChatID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got.ManagementEmails)
}
