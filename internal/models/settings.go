package models

// NotificationSettings is the typed view of the app_settings rows that gate notifications.
type NotificationSettings struct {
	EmailEnabled             bool     `json:"email_enabled"`
	TelegramEnabled          bool     `json:"telegram_enabled"`
	ManagementSummaryEnabled bool     `json:"management_summary_enabled"`
	ManagementEmails         []string `json:"management_emails"`
	ManagementTelegramChatID int64    `json:"management_telegram_chat_id,omitempty"`
}

// NotificationKind distinguishes notifications sent on event creation from those sent on updates.
type NotificationKind string

const (
	NotifyCreate NotificationKind = "create"
	NotifyUpdate NotificationKind = "update"
)
