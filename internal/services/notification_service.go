package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"eventcrm/internal/models"
	"eventcrm/internal/pdf"
	"eventcrm/internal/repositories"
)

// EventNotification is everything the notifier needs after an event was saved.
type EventNotification struct {
	Kind        models.NotificationKind
	Event       *models.Event
	Assignments []models.EventDepartment
	Tasks       []models.Task
}

// Notifier delivers stakeholder, management and reminder messages.
type Notifier interface {
	NotifyEvent(ctx context.Context, n EventNotification) error
	NotifyTasksActivated(ctx context.Context, tasks []models.Task) error
	SendReminder(ctx context.Context, event *models.Event, reminder models.Reminder) error
}

type telegramSender interface {
	SendMessage(chatID int64, text string) error
}

type notificationService struct {
	email    EmailService
	telegram telegramSender
	docs     pdf.Generator
	events   repositories.EventRepository
	settings SettingsService
	workers  int
}

func NewNotificationService(
	email EmailService,
	telegram telegramSender,
	docs pdf.Generator,
	events repositories.EventRepository,
	settings SettingsService,
	workers int,
) Notifier {
	if workers <= 0 {
		workers = 1
	}
	return &notificationService{
		email:    email,
		telegram: telegram,
		docs:     docs,
		events:   events,
		settings: settings,
		workers:  workers,
	}
}

// delivery is one message to one channel.
type delivery struct {
	label string
	send  func() error
}

// fanOut runs deliveries concurrently. Failures are logged and combined, never retried.
func (s *notificationService) fanOut(ctx context.Context, scope string, deliveries []delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(s.workers)
	for _, d := range deliveries {
		d := d
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := d.send(); err != nil {
				log.Printf("[notify][%s][err] %s: %v", scope, d.label, err)
				return fmt.Errorf("%s: %w", d.label, err)
			}
			log.Printf("[notify][%s] %s sent", scope, d.label)
			return nil
		})
	}
	return p.Wait()
}

func (s *notificationService) NotifyEvent(ctx context.Context, n EventNotification) error {
	if n.Event == nil {
		return errors.New("notify event: event is nil")
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("notify event: %w", err)
	}

	var deliveries []delivery
	for _, a := range n.Assignments {
		if !ShouldNotifyStakeholders(settings, a, n.Kind) || a.Department == nil {
			continue
		}
		rcpt := StakeholderRecipients(settings, []models.EventDepartment{a}, n.Kind)
		tasks := tasksOf(n.Tasks, a.ID)
		subject, body := stakeholderMessage(n.Kind, n.Event, a, tasks)
		deliveries = append(deliveries, s.deliveriesFor("department "+a.Department.Name, rcpt, subject, body, telegramText(n.Event, subject))...)
	}

	if ShouldNotifyManagement(settings) {
		rcpt := ManagementRecipients(settings)
		subject, body := managementMessage(n.Kind, n.Event, n.Assignments, n.Tasks)
		var attachments []Attachment
		if s.docs != nil {
			_, content, err := s.docs.GenerateEventSummary(summaryData(n.Event, n.Assignments, n.Tasks))
			if err != nil {
				log.Printf("[notify][event][pdf][err] event=%d: %v", n.Event.ID, err)
			} else {
				attachments = append(attachments, Attachment{
					Name:    fmt.Sprintf("event_%d_summary.pdf", n.Event.ID),
					Content: content,
				})
			}
		}
		if len(rcpt.Emails) > 0 {
			emails := rcpt.Emails
			deliveries = append(deliveries, delivery{
				label: "management email",
				send:  func() error { return s.email.SendHTML(emails, subject, body, attachments...) },
			})
		}
		deliveries = append(deliveries, s.telegramDeliveries("management", rcpt.TelegramChatIDs, telegramText(n.Event, subject))...)
	}

	return s.fanOut(ctx, "event", deliveries)
}

func (s *notificationService) NotifyTasksActivated(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("notify activated tasks: %w", err)
	}
	if !settings.EmailEnabled {
		return nil
	}

	var deliveries []delivery
	for _, t := range tasks {
		a, err := s.events.FindAssignment(ctx, t.EventDepartmentID)
		if err != nil {
			log.Printf("[notify][task][err] task=%d assignment=%d: %v", t.ID, t.EventDepartmentID, err)
			continue
		}
		set := newRecipientSet()
		set.addEmails(a.Department.Emails...)
		if settings.TelegramEnabled {
			set.addChat(a.Department.TelegramChatID)
		}
		subject := fmt.Sprintf("Task ready: %s", t.Title)
		body := fmt.Sprintf(`
			<h3>A task is ready to start</h3>
			<p><strong>%s</strong></p>
			<p>%s</p>
			<p>Its prerequisite has been completed.</p>
		`, html.EscapeString(t.Title), html.EscapeString(t.Description))
		text := fmt.Sprintf("<b>%s</b>\nThe prerequisite is done, the task can start now.", html.EscapeString(t.Title))
		deliveries = append(deliveries, s.deliveriesFor(fmt.Sprintf("task %d", t.ID), set.recipients(), subject, body, text)...)
	}
	return s.fanOut(ctx, "task", deliveries)
}

// SendReminder notifies every assigned department and management about an upcoming event.
func (s *notificationService) SendReminder(ctx context.Context, event *models.Event, reminder models.Reminder) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	if !settings.EmailEnabled {
		log.Printf("[notify][reminder][skip] email disabled, reminder=%d", reminder.ID)
		return nil
	}
	assignments, err := s.events.ListAssignments(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	set := newRecipientSet()
	for _, a := range assignments {
		if a.Department == nil {
			continue
		}
		set.addEmails(a.Department.Emails...)
		if settings.TelegramEnabled {
			set.addChat(a.Department.TelegramChatID)
		}
	}
	if settings.ManagementSummaryEnabled {
		set.addEmails(settings.ManagementEmails...)
		if settings.TelegramEnabled {
			set.addChat(settings.ManagementTelegramChatID)
		}
	}

	subject, body := reminderMessage(event, reminder.ReminderType)
	return s.fanOut(ctx, "reminder", s.deliveriesFor(fmt.Sprintf("reminder %d", reminder.ID), set.recipients(), subject, body, telegramText(event, subject)))
}

func (s *notificationService) deliveriesFor(label string, r Recipients, subject, body, text string) []delivery {
	var out []delivery
	if len(r.Emails) > 0 {
		emails := r.Emails
		out = append(out, delivery{
			label: label + " email",
			send:  func() error { return s.email.SendHTML(emails, subject, body) },
		})
	}
	return append(out, s.telegramDeliveries(label, r.TelegramChatIDs, text)...)
}

func (s *notificationService) telegramDeliveries(label string, chats []int64, text string) []delivery {
	if s.telegram == nil {
		return nil
	}
	out := make([]delivery, 0, len(chats))
	for _, chatID := range chats {
		chatID := chatID
		out = append(out, delivery{
			label: fmt.Sprintf("%s telegram %d", label, chatID),
			send:  func() error { return s.telegram.SendMessage(chatID, text) },
		})
	}
	return out
}

func tasksOf(tasks []models.Task, assignmentID int64) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.EventDepartmentID == assignmentID {
			out = append(out, t)
		}
	}
	return out
}

func stakeholderMessage(kind models.NotificationKind, e *models.Event, a models.EventDepartment, tasks []models.Task) (string, string) {
	verb := "New event"
	if kind == models.NotifyUpdate {
		verb = "Event updated"
	}
	subject := fmt.Sprintf("%s: %s", verb, e.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(e.Name))
	if e.NameAr != "" {
		fmt.Fprintf(&b, `<h3 dir="rtl">%s</h3>`, html.EscapeString(e.NameAr))
	}
	fmt.Fprintf(&b, "<p><strong>Starts:</strong> %s<br><strong>Location:</strong> %s</p>",
		e.StartDate.Format("02 Jan 2006 15:04"), html.EscapeString(e.Location))
	fmt.Fprintf(&b, "<p>Your department (%s) has the following tasks:</p><ol>", html.EscapeString(a.Department.Name))
	for _, t := range tasks {
		fmt.Fprintf(&b, "<li>%s <em>(%s)</em></li>", html.EscapeString(t.Title), t.Status)
	}
	b.WriteString("</ol>")
	return subject, b.String()
}

func managementMessage(kind models.NotificationKind, e *models.Event, assignments []models.EventDepartment, tasks []models.Task) (string, string) {
	verb := "created"
	if kind == models.NotifyUpdate {
		verb = "updated"
	}
	subject := fmt.Sprintf("Event %s: %s", verb, e.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(e.Name))
	fmt.Fprintf(&b, "<p><strong>Starts:</strong> %s<br><strong>Location:</strong> %s</p>",
		e.StartDate.Format("02 Jan 2006 15:04"), html.EscapeString(e.Location))
	b.WriteString("<ul>")
	for _, a := range assignments {
		name := fmt.Sprintf("department %d", a.DepartmentID)
		if a.Department != nil {
			name = a.Department.Name
		}
		fmt.Fprintf(&b, "<li>%s: %d task(s)</li>", html.EscapeString(name), len(tasksOf(tasks, a.ID)))
	}
	b.WriteString("</ul><p>The full task summary is attached.</p>")
	return subject, b.String()
}

func reminderMessage(e *models.Event, typ models.ReminderType) (string, string) {
	when := map[models.ReminderType]string{
		models.Reminder1Week:     "in one week",
		models.Reminder1Day:      "tomorrow",
		models.ReminderWeekly:    "soon",
		models.ReminderDaily:     "soon",
		models.ReminderMorningOf: "today",
	}[typ]
	subject := fmt.Sprintf("Reminder: %s starts %s", e.Name, when)
	body := fmt.Sprintf(`
		<h3>%s</h3>
		<p>The event starts on <strong>%s</strong> at %s.</p>
		<p>Please make sure your department's tasks are on track.</p>
	`, html.EscapeString(e.Name), e.StartDate.Format("02 Jan 2006 15:04"), html.EscapeString(e.Location))
	return subject, body
}

func telegramText(e *models.Event, subject string) string {
	return fmt.Sprintf("<b>%s</b>\n%s\n%s",
		html.EscapeString(subject), e.StartDate.Format("02 Jan 2006 15:04"), html.EscapeString(e.Location))
}

func summaryData(e *models.Event, assignments []models.EventDepartment, tasks []models.Task) pdf.EventSummaryData {
	names := map[int64]string{}
	for _, a := range assignments {
		if a.Department != nil {
			names[a.ID] = a.Department.Name
		}
	}
	rows := make([]pdf.SummaryTask, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, pdf.SummaryTask{
			Department: names[t.EventDepartmentID],
			Title:      t.Title,
			TitleAr:    t.TitleAr,
			Status:     string(t.Status),
			Deadline:   t.Deadline,
		})
	}
	return pdf.EventSummaryData{
		EventID:     e.ID,
		EventName:   e.Name,
		EventNameAr: e.NameAr,
		Location:    e.Location,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		Tasks:       rows,
		GeneratedAt: time.Now(),
	}
}
