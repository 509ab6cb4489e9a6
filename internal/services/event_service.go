package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"eventcrm/internal/models"
	"eventcrm/internal/repositories"
)

// AssignmentInput selects a department for an event and what it has to deliver.
type AssignmentInput struct {
	DepartmentID       int64   `json:"department_id"`
	RequirementIDs     []int64 `json:"requirement_ids"`
	CustomRequirements string  `json:"custom_requirements"`
	NotifyOnCreate     bool    `json:"notify_on_create"`
	NotifyOnUpdate     bool    `json:"notify_on_update"`
}

type EventInput struct {
	Name              string            `json:"name"`
	NameAr            string            `json:"name_ar"`
	Description       string            `json:"description"`
	Location          string            `json:"location"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           *time.Time        `json:"end_date"`
	Reminder1Week     bool              `json:"reminder_1_week"`
	Reminder1Day      bool              `json:"reminder_1_day"`
	ReminderWeekly    bool              `json:"reminder_weekly"`
	ReminderDaily     bool              `json:"reminder_daily"`
	ReminderMorningOf bool              `json:"reminder_morning_of"`
	Departments       []AssignmentInput `json:"departments"`
}

// EventPatch updates only the fields that are set. A set EndDate holding nil
// clears the end date. Departments, when set, are merged into the existing
// assignments; departments left out are kept.
type EventPatch struct {
	Name              *string            `json:"name"`
	NameAr            *string            `json:"name_ar"`
	Description       *string            `json:"description"`
	Location          *string            `json:"location"`
	StartDate         *time.Time         `json:"start_date"`
	EndDate           **time.Time        `json:"-"`
	Reminder1Week     *bool              `json:"reminder_1_week"`
	Reminder1Day      *bool              `json:"reminder_1_day"`
	ReminderWeekly    *bool              `json:"reminder_weekly"`
	ReminderDaily     *bool              `json:"reminder_daily"`
	ReminderMorningOf *bool              `json:"reminder_morning_of"`
	Departments       *[]AssignmentInput `json:"departments"`
}

// EventResult is a saved event with its reminders. Notification failures do
// not undo the save; they are reported here instead.
type EventResult struct {
	Event              *models.Event     `json:"event"`
	Reminders          []models.Reminder `json:"reminders"`
	NotificationErrors []string          `json:"notification_errors,omitempty"`
}

type EventService interface {
	Create(ctx context.Context, in EventInput) (*EventResult, error)
	Update(ctx context.Context, id int64, patch EventPatch) (*EventResult, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

type eventService struct {
	store     *repositories.Store
	uow       repositories.UnitOfWork
	scheduler *ReminderScheduler
	notifier  Notifier
	now       func() time.Time
}

// NewEventService wires the event workflow. notifier may be nil.
func NewEventService(store *repositories.Store, uow repositories.UnitOfWork, scheduler *ReminderScheduler, notifier Notifier) EventService {
	return &eventService{store: store, uow: uow, scheduler: scheduler, notifier: notifier, now: time.Now}
}

func (s *eventService) Create(ctx context.Context, in EventInput) (*EventResult, error) {
	now := s.now()
	event := &models.Event{
		Name:              strings.TrimSpace(in.Name),
		NameAr:            in.NameAr,
		Description:       in.Description,
		Location:          in.Location,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		Reminder1Week:     in.Reminder1Week,
		Reminder1Day:      in.Reminder1Day,
		ReminderWeekly:    in.ReminderWeekly,
		ReminderDaily:     in.ReminderDaily,
		ReminderMorningOf: in.ReminderMorningOf,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	if err := validateAssignments(in.Departments); err != nil {
		return nil, err
	}

	res := &EventResult{}
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store *repositories.Store) error {
		if err := store.Events.Create(ctx, event); err != nil {
			return err
		}
		for _, ai := range in.Departments {
			if err := s.addAssignment(ctx, store, event.ID, ai, now); err != nil {
				return err
			}
		}
		reminders, err := s.scheduler.ReplaceReminders(ctx, store, event)
		if err != nil {
			return err
		}
		res.Reminders = reminders
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[event][create] id=%d departments=%d reminders=%d", event.ID, len(in.Departments), len(res.Reminders))

	return s.finish(ctx, event.ID, models.NotifyCreate, res)
}

func (s *eventService) Update(ctx context.Context, id int64, patch EventPatch) (*EventResult, error) {
	if patch.Departments != nil {
		if err := validateAssignments(*patch.Departments); err != nil {
			return nil, err
		}
	}

	res := &EventResult{}
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store *repositories.Store) error {
		event, err := store.Events.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: id=%d", ErrEventNotFound, id)
			}
			return err
		}
		applyEventPatch(event, patch)
		event.UpdatedAt = s.now()
		if err := validateEvent(event); err != nil {
			return err
		}
		if err := store.Events.Update(ctx, event); err != nil {
			return err
		}

		if patch.Departments != nil {
			if err := s.mergeAssignments(ctx, store, event.ID, *patch.Departments, event.UpdatedAt); err != nil {
				return err
			}
		}

		reminders, err := s.scheduler.ReplaceReminders(ctx, store, event)
		if err != nil {
			return err
		}
		res.Reminders = reminders
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[event][update] id=%d reminders=%d", id, len(res.Reminders))

	return s.finish(ctx, id, models.NotifyUpdate, res)
}

// finish reloads the committed event and runs the notification gate.
func (s *eventService) finish(ctx context.Context, id int64, kind models.NotificationKind, res *EventResult) (*EventResult, error) {
	event, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res.Event = event

	if s.notifier == nil {
		return res, nil
	}
	var tasks []models.Task
	for _, a := range event.Departments {
		tasks = append(tasks, a.Tasks...)
	}
	err = s.notifier.NotifyEvent(ctx, EventNotification{
		Kind:        kind,
		Event:       event,
		Assignments: event.Departments,
		Tasks:       tasks,
	})
	if err != nil {
		log.Printf("[event][%s][notify][err] id=%d: %v", kind, id, err)
		for _, line := range strings.Split(err.Error(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				res.NotificationErrors = append(res.NotificationErrors, line)
			}
		}
	}
	return res, nil
}

func (s *eventService) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.store.Events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrEventNotFound, id)
		}
		return nil, err
	}
	assignments, err := s.store.Events.ListAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.Tasks.FindAll(ctx, models.TaskFilter{EventID: &id})
	if err != nil {
		return nil, err
	}
	for i := range assignments {
		assignments[i].Tasks = tasksOf(tasks, assignments[i].ID)
		if assignments[i].Tasks == nil {
			assignments[i].Tasks = []models.Task{}
		}
	}
	if assignments == nil {
		assignments = []models.EventDepartment{}
	}
	event.Departments = assignments
	return event, nil
}

func (s *eventService) addAssignment(ctx context.Context, store *repositories.Store, eventID int64, in AssignmentInput, now time.Time) error {
	a := &models.EventDepartment{
		EventID:            eventID,
		DepartmentID:       in.DepartmentID,
		RequirementIDs:     uniqueIDs(in.RequirementIDs),
		CustomRequirements: strings.TrimSpace(in.CustomRequirements),
		NotifyOnCreate:     in.NotifyOnCreate,
		NotifyOnUpdate:     in.NotifyOnUpdate,
	}
	if err := store.Events.CreateAssignment(ctx, a); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: department %d does not exist", ErrValidation, in.DepartmentID)
		}
		return err
	}
	if err := s.createRequirementTasks(ctx, store, a, a.RequirementIDs, now); err != nil {
		return err
	}
	if spec := ComputeCustomRequirementTask(*a); spec != nil {
		return appendTask(ctx, store, *spec, now)
	}
	return nil
}

// mergeAssignments applies the department list of an update. Existing
// assignments gain tasks for newly selected requirements and a new custom
// requirements task when that text changed. Tasks already created are kept.
func (s *eventService) mergeAssignments(ctx context.Context, store *repositories.Store, eventID int64, inputs []AssignmentInput, now time.Time) error {
	existing, err := store.Events.ListAssignments(ctx, eventID)
	if err != nil {
		return err
	}
	byDept := make(map[int64]models.EventDepartment, len(existing))
	for _, a := range existing {
		byDept[a.DepartmentID] = a
	}

	for _, in := range inputs {
		cur, ok := byDept[in.DepartmentID]
		if !ok {
			if err := s.addAssignment(ctx, store, eventID, in, now); err != nil {
				return err
			}
			continue
		}

		had := make(map[int64]bool, len(cur.RequirementIDs))
		for _, id := range cur.RequirementIDs {
			had[id] = true
		}
		var added []int64
		for _, id := range uniqueIDs(in.RequirementIDs) {
			if !had[id] {
				added = append(added, id)
			}
		}

		custom := strings.TrimSpace(in.CustomRequirements)
		customChanged := custom != cur.CustomRequirements

		cur.RequirementIDs = uniqueIDs(in.RequirementIDs)
		cur.CustomRequirements = custom
		cur.NotifyOnCreate = in.NotifyOnCreate
		cur.NotifyOnUpdate = in.NotifyOnUpdate
		if err := store.Events.UpdateAssignment(ctx, &cur); err != nil {
			return err
		}

		if err := s.createRequirementTasks(ctx, store, &cur, added, now); err != nil {
			return err
		}
		if customChanged {
			if spec := ComputeCustomRequirementTask(cur); spec != nil {
				if err := appendTask(ctx, store, *spec, now); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// appendTask creates the task after every task already on its assignment.
func appendTask(ctx context.Context, store *repositories.Store, spec models.TaskSpec, now time.Time) error {
	existing, err := store.Tasks.FindAll(ctx, models.TaskFilter{EventDepartmentID: &spec.EventDepartmentID})
	if err != nil {
		return err
	}
	for _, t := range existing {
		if t.OrderIndex >= spec.OrderIndex {
			spec.OrderIndex = t.OrderIndex + 1
		}
	}
	_, err = createTask(ctx, store, spec, now)
	return err
}

// createRequirementTasks turns requirements into tasks on the assignment.
// Requirement prerequisites inside the same batch become task prerequisites,
// so a prerequisite is always created before the tasks that depend on it.
func (s *eventService) createRequirementTasks(ctx context.Context, store *repositories.Store, a *models.EventDepartment, ids []int64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	reqs, err := store.Events.ListRequirements(ctx, ids)
	if err != nil {
		return err
	}
	if len(reqs) != len(ids) {
		return fmt.Errorf("%w: unknown requirement in %v", ErrValidation, ids)
	}
	inBatch := make(map[int64]bool, len(reqs))
	for _, r := range reqs {
		if r.DepartmentID != a.DepartmentID {
			return fmt.Errorf("%w: requirement %d belongs to department %d", ErrValidation, r.ID, r.DepartmentID)
		}
		inBatch[r.ID] = true
	}

	created := make(map[int64]int64, len(reqs))
	remaining := reqs
	for len(remaining) > 0 {
		var deferred []models.Requirement
		for _, r := range remaining {
			spec := models.TaskSpec{
				EventDepartmentID: a.ID,
				Title:             r.Title,
				TitleAr:           r.TitleAr,
				Description:       r.Description,
				OrderIndex:        r.OrderIndex,
			}
			if pre := r.PrerequisiteRequirementID; pre != nil && inBatch[*pre] {
				taskID, ok := created[*pre]
				if !ok {
					deferred = append(deferred, r)
					continue
				}
				spec.PrerequisiteTaskID = &taskID
			}
			t, err := createTask(ctx, store, spec, now)
			if err != nil {
				return err
			}
			created[r.ID] = t.ID
		}
		if len(deferred) == len(remaining) {
			return fmt.Errorf("%w: requirements %v form a prerequisite cycle", ErrPrerequisiteCycle, ids)
		}
		remaining = deferred
	}
	return nil
}

func applyEventPatch(e *models.Event, p EventPatch) {
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.NameAr != nil {
		e.NameAr = *p.NameAr
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.Reminder1Week != nil {
		e.Reminder1Week = *p.Reminder1Week
	}
	if p.Reminder1Day != nil {
		e.Reminder1Day = *p.Reminder1Day
	}
	if p.ReminderWeekly != nil {
		e.ReminderWeekly = *p.ReminderWeekly
	}
	if p.ReminderDaily != nil {
		e.ReminderDaily = *p.ReminderDaily
	}
	if p.ReminderMorningOf != nil {
		e.ReminderMorningOf = *p.ReminderMorningOf
	}
}

func validateEvent(e *models.Event) error {
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if e.StartDate.IsZero() {
		return fmt.Errorf("%w: start_date is required", ErrValidation)
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrValidation)
	}
	return nil
}

func validateAssignments(in []AssignmentInput) error {
	seen := make(map[int64]bool, len(in))
	for _, a := range in {
		if a.DepartmentID <= 0 {
			return fmt.Errorf("%w: department_id is required", ErrValidation)
		}
		if seen[a.DepartmentID] {
			return fmt.Errorf("%w: department %d listed twice", ErrValidation, a.DepartmentID)
		}
		seen[a.DepartmentID] = true
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
