package services

import (
	"sort"
	"strings"

	"eventcrm/internal/models"
)

// CustomRequirementsTitle is the title of the task created from an assignment's free-text requirements.
const CustomRequirementsTitle = "Custom Requirements"

// Recipients is a de-duplicated set of addresses for one notification.
type Recipients struct {
	Emails          []string `json:"emails"`
	TelegramChatIDs []int64  `json:"telegram_chat_ids"`
}

// Empty reports whether there is nobody to notify.
func (r Recipients) Empty() bool {
	return len(r.Emails) == 0 && len(r.TelegramChatIDs) == 0
}

// ShouldNotifyStakeholders reports whether the assigned department hears about the event.
func ShouldNotifyStakeholders(settings models.NotificationSettings, assignment models.EventDepartment, kind models.NotificationKind) bool {
	if !settings.EmailEnabled {
		return false
	}
	switch kind {
	case models.NotifyCreate:
		return assignment.NotifyOnCreate
	case models.NotifyUpdate:
		return assignment.NotifyOnUpdate
	}
	return false
}

func ShouldNotifyManagement(settings models.NotificationSettings) bool {
	return settings.EmailEnabled && settings.ManagementSummaryEnabled
}

// ComputeCustomRequirementTask returns the task that tracks the assignment's
// free-text requirements, or nil when there are none. OrderIndex is left zero;
// the caller places the task after the assignment's existing tasks.
func ComputeCustomRequirementTask(assignment models.EventDepartment) *models.TaskSpec {
	text := strings.TrimSpace(assignment.CustomRequirements)
	if text == "" {
		return nil
	}
	return &models.TaskSpec{
		EventDepartmentID: assignment.ID,
		Title:             CustomRequirementsTitle,
		Description:       text,
	}
}

// StakeholderRecipients collects the departments that pass the gate for kind.
// Telegram chats are included only when Telegram delivery is enabled.
func StakeholderRecipients(settings models.NotificationSettings, assignments []models.EventDepartment, kind models.NotificationKind) Recipients {
	set := newRecipientSet()
	for _, a := range assignments {
		if !ShouldNotifyStakeholders(settings, a, kind) || a.Department == nil {
			continue
		}
		set.addEmails(a.Department.Emails...)
		if settings.TelegramEnabled {
			set.addChat(a.Department.TelegramChatID)
		}
	}
	return set.recipients()
}

func ManagementRecipients(settings models.NotificationSettings) Recipients {
	if !ShouldNotifyManagement(settings) {
		return Recipients{Emails: []string{}, TelegramChatIDs: []int64{}}
	}
	set := newRecipientSet()
	set.addEmails(settings.ManagementEmails...)
	if settings.TelegramEnabled {
		set.addChat(settings.ManagementTelegramChatID)
	}
	return set.recipients()
}

type recipientSet struct {
	emails map[string]string
	chats  map[int64]struct{}
}

func newRecipientSet() *recipientSet {
	return &recipientSet{emails: map[string]string{}, chats: map[int64]struct{}{}}
}

// addEmails keeps the first spelling of each address; comparison ignores case.
func (s *recipientSet) addEmails(emails ...string) {
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := strings.ToLower(e)
		if _, ok := s.emails[key]; !ok {
			s.emails[key] = e
		}
	}
}

func (s *recipientSet) addChat(id int64) {
	if id != 0 {
		s.chats[id] = struct{}{}
	}
}

func (s *recipientSet) recipients() Recipients {
	r := Recipients{
		Emails:          make([]string, 0, len(s.emails)),
		TelegramChatIDs: make([]int64, 0, len(s.chats)),
	}
	for _, e := range s.emails {
		r.Emails = append(r.Emails, e)
	}
	for id := range s.chats {
		r.TelegramChatIDs = append(r.TelegramChatIDs, id)
	}
	sort.Strings(r.Emails)
	sort.Slice(r.TelegramChatIDs, func(i, j int) bool { return r.TelegramChatIDs[i] < r.TelegramChatIDs[j] })
	return r
}
