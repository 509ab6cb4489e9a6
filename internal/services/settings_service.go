package services

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"eventcrm/internal/models"
	"eventcrm/internal/repositories"
)

const (
	keyEmailEnabled             = "notifications.email_enabled"
	keyTelegramEnabled          = "notifications.telegram_enabled"
	keyManagementSummaryEnabled = "notifications.management_summary_enabled"
	keyManagementEmails         = "notifications.management_emails"
	keyManagementTelegramChatID = "notifications.management_telegram_chat_id"
)

type SettingsService interface {
	// Get returns the stored settings, with defaults for keys never saved.
	Get(ctx context.Context) (models.NotificationSettings, error)
	Update(ctx context.Context, s models.NotificationSettings) (models.NotificationSettings, error)
}

type settingsService struct {
	repo     repositories.SettingsRepository
	defaults models.NotificationSettings
}

func NewSettingsService(repo repositories.SettingsRepository, defaults models.NotificationSettings) SettingsService {
	return &settingsService{repo: repo, defaults: defaults}
}

func (s *settingsService) Get(ctx context.Context) (models.NotificationSettings, error) {
	bag, err := s.repo.All(ctx)
	if err != nil {
		return models.NotificationSettings{}, err
	}
	return settingsFromBag(bag, s.defaults), nil
}

func (s *settingsService) Update(ctx context.Context, in models.NotificationSettings) (models.NotificationSettings, error) {
	emails := make([]string, 0, len(in.ManagementEmails))
	for _, e := range in.ManagementEmails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, err := mail.ParseAddress(e); err != nil {
			return models.NotificationSettings{}, fmt.Errorf("%w: bad management email %q", ErrValidation, e)
		}
		emails = append(emails, e)
	}
	in.ManagementEmails = emails

	if err := s.repo.Set(ctx, settingsToBag(in)); err != nil {
		return models.NotificationSettings{}, err
	}
	return in, nil
}

func settingsFromBag(bag map[string]string, defaults models.NotificationSettings) models.NotificationSettings {
	out := defaults
	out.EmailEnabled = boolSetting(bag, keyEmailEnabled, defaults.EmailEnabled)
	out.TelegramEnabled = boolSetting(bag, keyTelegramEnabled, defaults.TelegramEnabled)
	out.ManagementSummaryEnabled = boolSetting(bag, keyManagementSummaryEnabled, defaults.ManagementSummaryEnabled)
	if v, ok := bag[keyManagementEmails]; ok {
		out.ManagementEmails = splitList(v)
	}
	if v, ok := bag[keyManagementTelegramChatID]; ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			out.ManagementTelegramChatID = id
		}
	}
	return out
}

func settingsToBag(s models.NotificationSettings) map[string]string {
	return map[string]string{
		keyEmailEnabled:             strconv.FormatBool(s.EmailEnabled),
		keyTelegramEnabled:          strconv.FormatBool(s.TelegramEnabled),
		keyManagementSummaryEnabled: strconv.FormatBool(s.ManagementSummaryEnabled),
		keyManagementEmails:         strings.Join(s.ManagementEmails, ","),
		keyManagementTelegramChatID: strconv.FormatInt(s.ManagementTelegramChatID, 10),
	}
}

// boolSetting falls back to def for missing or unparsable values.
func boolSetting(bag map[string]string, key string, def bool) bool {
	v, ok := bag[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
