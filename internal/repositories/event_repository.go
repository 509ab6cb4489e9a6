package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventcrm/internal/db"
	"eventcrm/internal/models"
)

type EventRepository interface {
	Create(ctx context.Context, e *models.Event) error
	Update(ctx context.Context, e *models.Event) error
	FindByID(ctx context.Context, id int64) (*models.Event, error)

	CreateAssignment(ctx context.Context, a *models.EventDepartment) error
	UpdateAssignment(ctx context.Context, a *models.EventDepartment) error
	FindAssignment(ctx context.Context, id int64) (*models.EventDepartment, error)
	// ListAssignments returns the event's assignments with their department joined.
	ListAssignments(ctx context.Context, eventID int64) ([]models.EventDepartment, error)

	ListRequirements(ctx context.Context, ids []int64) ([]models.Requirement, error)
}

const eventColumns = `id, name, name_ar, description, location, start_date, end_date,
       reminder_1_week, reminder_1_day, reminder_weekly, reminder_daily, reminder_morning_of,
       created_at, updated_at`

type eventRepository struct {
	db db.DBTX
}

func NewEventRepository(conn db.DBTX) EventRepository {
	return &eventRepository{db: conn}
}

func (r *eventRepository) Create(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (
			name, name_ar, description, location, start_date, end_date,
			reminder_1_week, reminder_1_day, reminder_weekly, reminder_daily, reminder_morning_of,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		e.Name, e.NameAr, e.Description, e.Location, e.StartDate, e.EndDate,
		e.Reminder1Week, e.Reminder1Day, e.ReminderWeekly, e.ReminderDaily, e.ReminderMorningOf,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (r *eventRepository) Update(ctx context.Context, e *models.Event) error {
	query := `
		UPDATE events SET
			name=$1, name_ar=$2, description=$3, location=$4, start_date=$5, end_date=$6,
			reminder_1_week=$7, reminder_1_day=$8, reminder_weekly=$9, reminder_daily=$10,
			reminder_morning_of=$11, updated_at=$12
		WHERE id=$13`
	res, err := r.db.ExecContext(ctx, query,
		e.Name, e.NameAr, e.Description, e.Location, e.StartDate, e.EndDate,
		e.Reminder1Week, e.Reminder1Day, e.ReminderWeekly, e.ReminderDaily,
		e.ReminderMorningOf, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating event %d: %w", e.ID, err)
	}
	return requireAffected(res)
}

func (r *eventRepository) FindByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e := &models.Event{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.NameAr, &e.Description, &e.Location, &e.StartDate, &e.EndDate,
		&e.Reminder1Week, &e.Reminder1Day, &e.ReminderWeekly, &e.ReminderDaily, &e.ReminderMorningOf,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting event %d: %w", id, err)
	}
	return e, nil
}

func (r *eventRepository) CreateAssignment(ctx context.Context, a *models.EventDepartment) error {
	query := `
		INSERT INTO event_departments (
			event_id, department_id, requirement_ids, custom_requirements,
			notify_on_create, notify_on_update
		)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		a.EventID, a.DepartmentID, pq.Array(a.RequirementIDs), a.CustomRequirements,
		a.NotifyOnCreate, a.NotifyOnUpdate,
	).Scan(&a.ID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("assigning department %d: %w", a.DepartmentID, ErrNotFound)
		}
		return fmt.Errorf("assigning department %d to event %d: %w", a.DepartmentID, a.EventID, err)
	}
	return nil
}

func (r *eventRepository) UpdateAssignment(ctx context.Context, a *models.EventDepartment) error {
	query := `
		UPDATE event_departments SET
			requirement_ids=$1, custom_requirements=$2, notify_on_create=$3, notify_on_update=$4
		WHERE id=$5`
	res, err := r.db.ExecContext(ctx, query,
		pq.Array(a.RequirementIDs), a.CustomRequirements, a.NotifyOnCreate, a.NotifyOnUpdate, a.ID)
	if err != nil {
		return fmt.Errorf("updating assignment %d: %w", a.ID, err)
	}
	return requireAffected(res)
}

const assignmentSelect = `
	SELECT ed.id, ed.event_id, ed.department_id, ed.requirement_ids, ed.custom_requirements,
	       ed.notify_on_create, ed.notify_on_update,
	       d.id, d.name, d.emails, d.telegram_chat_id, d.created_at
	FROM event_departments ed
	JOIN departments d ON d.id = ed.department_id`

func (r *eventRepository) FindAssignment(ctx context.Context, id int64) (*models.EventDepartment, error) {
	a, err := scanAssignment(r.db.QueryRowContext(ctx, assignmentSelect+` WHERE ed.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting assignment %d: %w", id, err)
	}
	return a, nil
}

func (r *eventRepository) ListAssignments(ctx context.Context, eventID int64) ([]models.EventDepartment, error) {
	rows, err := r.db.QueryContext(ctx, assignmentSelect+` WHERE ed.event_id = $1 ORDER BY ed.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing assignments for event %d: %w", eventID, err)
	}
	defer rows.Close()

	var out []models.EventDepartment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	return out, nil
}

func (r *eventRepository) ListRequirements(ctx context.Context, ids []int64) ([]models.Requirement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, department_id, title, title_ar, description, order_index, prerequisite_requirement_id
		FROM requirements
		WHERE id = ANY($1)
		ORDER BY order_index ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("listing requirements: %w", err)
	}
	defer rows.Close()

	var out []models.Requirement
	for rows.Next() {
		var req models.Requirement
		if err := rows.Scan(
			&req.ID, &req.DepartmentID, &req.Title, &req.TitleAr, &req.Description,
			&req.OrderIndex, &req.PrerequisiteRequirementID,
		); err != nil {
			return nil, fmt.Errorf("scanning requirement: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanAssignment(row interface{ Scan(dest ...any) error }) (*models.EventDepartment, error) {
	a := &models.EventDepartment{Department: &models.Department{}}
	var reqIDs pq.Int64Array
	var emails pq.StringArray
	err := row.Scan(
		&a.ID, &a.EventID, &a.DepartmentID, &reqIDs, &a.CustomRequirements,
		&a.NotifyOnCreate, &a.NotifyOnUpdate,
		&a.Department.ID, &a.Department.Name, &emails, &a.Department.TelegramChatID, &a.Department.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.RequirementIDs = []int64(reqIDs)
	a.Department.Emails = []string(emails)
	return a, nil
}
