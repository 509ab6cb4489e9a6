package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"eventcrm/internal/models"
	"eventcrm/internal/repositories"
)

// MemDB is an in-memory stand-in for the Postgres schema. It keeps the
// constraints the services rely on: foreign keys on departments, unique
// (event_id, reminder_type) and ON DELETE SET NULL for task prerequisites.
type MemDB struct {
	mu sync.Mutex

	nextID       int64
	tasks        map[int64]models.Task
	reminders    map[int64]models.Reminder
	events       map[int64]models.Event
	assignments  map[int64]models.EventDepartment
	departments  map[int64]models.Department
	requirements map[int64]models.Requirement
	settings     map[string]string

	// beforeWrite, when set, runs before every write and may fail it.
	beforeWrite func() error
	// Writes counts every write attempt.
	Writes int
}

func NewMemDB() *MemDB {
	return &MemDB{
		tasks:        map[int64]models.Task{},
		reminders:    map[int64]models.Reminder{},
		events:       map[int64]models.Event{},
		assignments:  map[int64]models.EventDepartment{},
		departments:  map[int64]models.Department{},
		requirements: map[int64]models.Requirement{},
		settings:     map[string]string{},
	}
}

// Store returns repositories backed by m.
func (m *MemDB) Store() *repositories.Store {
	return &repositories.Store{
		Tasks:     &memTasks{m},
		Reminders: &memReminders{m},
		Events:    &memEvents{m},
		Settings:  &memSettings{m},
	}
}

func (m *MemDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemDB) write() error {
	m.Writes++
	if m.beforeWrite != nil {
		return m.beforeWrite()
	}
	return nil
}

type memState struct {
	nextID       int64
	tasks        map[int64]models.Task
	reminders    map[int64]models.Reminder
	events       map[int64]models.Event
	assignments  map[int64]models.EventDepartment
	departments  map[int64]models.Department
	requirements map[int64]models.Requirement
	settings     map[string]string
}

func (m *MemDB) snapshot() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memState{
		nextID:       m.nextID,
		tasks:        copyMap(m.tasks),
		reminders:    copyMap(m.reminders),
		events:       copyMap(m.events),
		assignments:  copyMap(m.assignments),
		departments:  copyMap(m.departments),
		requirements: copyMap(m.requirements),
		settings:     copyMap(m.settings),
	}
}

func (m *MemDB) restore(s memState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.tasks = s.tasks
	m.reminders = s.reminders
	m.events = s.events
	m.assignments = s.assignments
	m.departments = s.departments
	m.requirements = s.requirements
	m.settings = s.settings
}

// Values are stored by value and slices are never mutated in place, so a
// shallow map copy is enough for rollback.
func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// UoW runs transactions against the MemDB, restoring the previous state when fn fails.
type UoW struct {
	DB *MemDB
}

func (u *UoW) WithinTx(ctx context.Context, fn func(ctx context.Context, store *repositories.Store) error) (err error) {
	snap := u.DB.snapshot()
	defer func() {
		if p := recover(); p != nil {
			u.DB.restore(snap)
			panic(p)
		}
		if err != nil {
			u.DB.restore(snap)
		}
	}()
	return fn(ctx, u.DB.Store())
}

// FailOnNthWriteUoW injects Err on the Nth write inside a transaction.
// Writes are counted from 1; reads pass through.
type FailOnNthWriteUoW struct {
	DB     *MemDB
	FailOn int
	Err    error
}

func (u *FailOnNthWriteUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, store *repositories.Store) error) error {
	count := 0
	u.DB.mu.Lock()
	u.DB.beforeWrite = func() error {
		count++
		if count == u.FailOn {
			return u.Err
		}
		return nil
	}
	u.DB.mu.Unlock()
	defer func() {
		u.DB.mu.Lock()
		u.DB.beforeWrite = nil
		u.DB.mu.Unlock()
	}()
	return (&UoW{DB: u.DB}).WithinTx(ctx, fn)
}

// ---- fixtures

func (m *MemDB) AddDepartment(name string, emails []string, chatID int64) models.Department {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := models.Department{ID: m.id(), Name: name, Emails: emails, TelegramChatID: chatID, CreatedAt: time.Now()}
	m.departments[d.ID] = d
	return d
}

func (m *MemDB) AddRequirement(departmentID int64, title string, orderIndex int, prerequisite *int64) models.Requirement {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := models.Requirement{
		ID:                        m.id(),
		DepartmentID:              departmentID,
		Title:                     title,
		OrderIndex:                orderIndex,
		PrerequisiteRequirementID: prerequisite,
	}
	m.requirements[r.ID] = r
	return r
}

// LinkRequirement points a stored requirement at another one as its prerequisite.
func (m *MemDB) LinkRequirement(id, prerequisite int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.requirements[id]
	r.PrerequisiteRequirementID = &prerequisite
	m.requirements[id] = r
}

// AddAssignment creates an event with one assigned department.
func (m *MemDB) AddAssignment(departmentID int64) models.EventDepartment {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	e := models.Event{ID: m.id(), Name: "Test event", StartDate: now.AddDate(0, 1, 0), CreatedAt: now, UpdatedAt: now}
	m.events[e.ID] = e
	a := models.EventDepartment{ID: m.id(), EventID: e.ID, DepartmentID: departmentID}
	m.assignments[a.ID] = a
	return a
}

// AddTask stores a task as-is, bypassing workflow rules.
func (m *MemDB) AddTask(assignmentID int64, title string, status models.TaskStatus, orderIndex int, prerequisite *int64) models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	t := models.Task{
		ID:                 m.id(),
		EventDepartmentID:  assignmentID,
		Title:              title,
		Status:             status,
		OrderIndex:         orderIndex,
		PrerequisiteTaskID: prerequisite,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.tasks[t.ID] = t
	return t
}

func (m *MemDB) Task(id int64) (models.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

func (m *MemDB) Reminders(eventID int64) []models.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reminder
	for _, r := range m.reminders {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PutReminder stores r, assigning an id when it has none.
func (m *MemDB) PutReminder(r models.Reminder) models.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.id()
	}
	m.reminders[r.ID] = r
	return r
}

func Int64(v int64) *int64 { return &v }

// ---- tasks

type memTasks struct{ m *MemDB }

func (r *memTasks) Store(_ context.Context, task *models.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	if _, ok := r.m.assignments[task.EventDepartmentID]; !ok {
		return fmt.Errorf("inserting task: %w", repositories.ErrNotFound)
	}
	if task.PrerequisiteTaskID != nil {
		if _, ok := r.m.tasks[*task.PrerequisiteTaskID]; !ok {
			return fmt.Errorf("inserting task: %w", repositories.ErrNotFound)
		}
	}
	task.ID = r.m.id()
	r.m.tasks[task.ID] = *task
	return nil
}

func (r *memTasks) FindByID(_ context.Context, id int64) (*models.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tasks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (r *memTasks) FindAll(_ context.Context, f models.TaskFilter) ([]models.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Task
	for _, t := range r.m.tasks {
		if f.EventDepartmentID != nil && t.EventDepartmentID != *f.EventDepartmentID {
			continue
		}
		if f.EventID != nil && r.m.assignments[t.EventDepartmentID].EventID != *f.EventID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EventDepartmentID != b.EventDepartmentID {
			return a.EventDepartmentID < b.EventDepartmentID
		}
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex < b.OrderIndex
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *memTasks) ListByPrerequisite(_ context.Context, prerequisiteID int64) ([]models.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Task
	for _, t := range r.m.tasks {
		if t.PrerequisiteTaskID != nil && *t.PrerequisiteTaskID == prerequisiteID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memTasks) Update(_ context.Context, task *models.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	if _, ok := r.m.tasks[task.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.m.tasks[task.ID] = *task
	return nil
}

func (r *memTasks) UpdateStatus(_ context.Context, id int64, to models.TaskStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	t, ok := r.m.tasks[id]
	if !ok {
		return repositories.ErrNotFound
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	r.m.tasks[id] = t
	return nil
}

func (r *memTasks) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	if _, ok := r.m.tasks[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.tasks, id)
	for tid, t := range r.m.tasks {
		if t.PrerequisiteTaskID != nil && *t.PrerequisiteTaskID == id {
			t.PrerequisiteTaskID = nil
			r.m.tasks[tid] = t
		}
	}
	return nil
}

// ---- reminders

type memReminders struct{ m *MemDB }

func (r *memReminders) Enqueue(_ context.Context, spec models.ReminderSpec) (*models.Reminder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return nil, err
	}
	if _, ok := r.m.events[spec.EventID]; !ok {
		return nil, fmt.Errorf("enqueueing reminder: %w", repositories.ErrNotFound)
	}
	for _, existing := range r.m.reminders {
		if existing.EventID == spec.EventID && existing.ReminderType == spec.ReminderType {
			return nil, fmt.Errorf("enqueueing %s reminder for event %d: duplicate", spec.ReminderType, spec.EventID)
		}
	}
	rem := models.Reminder{
		ID:           r.m.id(),
		EventID:      spec.EventID,
		ReminderType: spec.ReminderType,
		FireAt:       spec.FireAt,
		Anchor:       spec.Anchor,
		Cadence:      spec.Cadence,
		Until:        spec.Until,
		Status:       models.ReminderPending,
		CreatedAt:    time.Now(),
	}
	r.m.reminders[rem.ID] = rem
	return &rem, nil
}

func (r *memReminders) DeleteForEvent(_ context.Context, eventID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return 0, err
	}
	var n int64
	for id, rem := range r.m.reminders {
		if rem.EventID == eventID {
			delete(r.m.reminders, id)
			n++
		}
	}
	return n, nil
}

func (r *memReminders) ListByEvent(_ context.Context, eventID int64) ([]models.Reminder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Reminder
	for _, rem := range r.m.reminders {
		if rem.EventID == eventID {
			out = append(out, rem)
		}
	}
	sortReminders(out)
	return out, nil
}

func (r *memReminders) FindByID(_ context.Context, id int64) (*models.Reminder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rem, ok := r.m.reminders[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &rem, nil
}

func (r *memReminders) DeletePending(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	rem, ok := r.m.reminders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if rem.Status != models.ReminderPending {
		return repositories.ErrReminderNotPending
	}
	delete(r.m.reminders, id)
	return nil
}

func (r *memReminders) ListDue(_ context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Reminder
	for _, rem := range r.m.reminders {
		if rem.Status != models.ReminderPending || rem.FireAt.After(now) {
			continue
		}
		if rem.LastSentAt != nil && rem.LastSentAt.Add(rem.Cadence).After(now) {
			continue
		}
		out = append(out, rem)
	}
	sortReminders(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memReminders) MarkFired(_ context.Context, id int64, at time.Time, done bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	rem, ok := r.m.reminders[id]
	if !ok || rem.Status != models.ReminderPending {
		return repositories.ErrNotFound
	}
	rem.LastSentAt = &at
	if done {
		rem.Status = models.ReminderSent
	}
	r.m.reminders[id] = rem
	return nil
}

func sortReminders(rs []models.Reminder) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].FireAt.Equal(rs[j].FireAt) {
			return rs[i].FireAt.Before(rs[j].FireAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

// ---- events

type memEvents struct{ m *MemDB }

func (r *memEvents) Create(_ context.Context, e *models.Event) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	e.ID = r.m.id()
	stored := *e
	stored.Departments = nil
	r.m.events[e.ID] = stored
	return nil
}

func (r *memEvents) Update(_ context.Context, e *models.Event) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	if _, ok := r.m.events[e.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *e
	stored.Departments = nil
	r.m.events[e.ID] = stored
	return nil
}

func (r *memEvents) FindByID(_ context.Context, id int64) (*models.Event, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.events[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

func (r *memEvents) CreateAssignment(_ context.Context, a *models.EventDepartment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	if _, ok := r.m.departments[a.DepartmentID]; !ok {
		return fmt.Errorf("assigning department %d: %w", a.DepartmentID, repositories.ErrNotFound)
	}
	for _, existing := range r.m.assignments {
		if existing.EventID == a.EventID && existing.DepartmentID == a.DepartmentID {
			return fmt.Errorf("assigning department %d to event %d: duplicate", a.DepartmentID, a.EventID)
		}
	}
	a.ID = r.m.id()
	stored := *a
	stored.Department, stored.Tasks = nil, nil
	r.m.assignments[a.ID] = stored
	return nil
}

func (r *memEvents) UpdateAssignment(_ context.Context, a *models.EventDepartment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	cur, ok := r.m.assignments[a.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	cur.RequirementIDs = append([]int64(nil), a.RequirementIDs...)
	cur.CustomRequirements = a.CustomRequirements
	cur.NotifyOnCreate = a.NotifyOnCreate
	cur.NotifyOnUpdate = a.NotifyOnUpdate
	r.m.assignments[a.ID] = cur
	return nil
}

func (r *memEvents) joined(a models.EventDepartment) models.EventDepartment {
	d := r.m.departments[a.DepartmentID]
	a.Department = &d
	return a
}

func (r *memEvents) FindAssignment(_ context.Context, id int64) (*models.EventDepartment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.assignments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	a = r.joined(a)
	return &a, nil
}

func (r *memEvents) ListAssignments(_ context.Context, eventID int64) ([]models.EventDepartment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.EventDepartment
	for _, a := range r.m.assignments {
		if a.EventID == eventID {
			out = append(out, r.joined(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memEvents) ListRequirements(_ context.Context, ids []int64) ([]models.Requirement, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Requirement
	for _, id := range ids {
		if req, ok := r.m.requirements[id]; ok {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---- settings

type memSettings struct{ m *MemDB }

func (r *memSettings) All(_ context.Context) (map[string]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return copyMap(r.m.settings), nil
}

func (r *memSettings) Set(_ context.Context, values map[string]string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.write(); err != nil {
		return err
	}
	for k, v := range values {
		r.m.settings[k] = v
	}
	return nil
}
