package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventcrm/internal/db"
	"eventcrm/internal/models"
)

type ReminderRepository interface {
	Enqueue(ctx context.Context, spec models.ReminderSpec) (*models.Reminder, error)
	DeleteForEvent(ctx context.Context, eventID int64) (int64, error)
	ListByEvent(ctx context.Context, eventID int64) ([]models.Reminder, error)
	FindByID(ctx context.Context, id int64) (*models.Reminder, error)
	DeletePending(ctx context.Context, id int64) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	MarkFired(ctx context.Context, id int64, at time.Time, done bool) error
}

// ErrReminderNotPending is returned when deleting a reminder that was already sent.
var ErrReminderNotPending = errors.New("reminder is not pending")

const reminderColumns = `id, event_id, reminder_type, fire_at, anchor, cadence_seconds,
       until_at, status, last_sent_at, created_at`

type reminderRepository struct {
	db db.DBTX
}

func NewReminderRepository(conn db.DBTX) ReminderRepository {
	return &reminderRepository{db: conn}
}

func (r *reminderRepository) Enqueue(ctx context.Context, spec models.ReminderSpec) (*models.Reminder, error) {
	query := `
		INSERT INTO reminders (event_id, reminder_type, fire_at, anchor, cadence_seconds, until_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')
		RETURNING ` + reminderColumns
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query,
		spec.EventID, spec.ReminderType, spec.FireAt, spec.Anchor,
		int64(spec.Cadence/time.Second), spec.Until,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("enqueueing %s reminder for event %d: duplicate: %w",
				spec.ReminderType, spec.EventID, err)
		}
		return nil, fmt.Errorf("enqueueing %s reminder for event %d: %w", spec.ReminderType, spec.EventID, err)
	}
	return rem, nil
}

func (r *reminderRepository) DeleteForEvent(ctx context.Context, eventID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("deleting reminders for event %d: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

func (r *reminderRepository) ListByEvent(ctx context.Context, eventID int64) ([]models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE event_id = $1 ORDER BY fire_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing reminders for event %d: %w", eventID, err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *reminderRepository) FindByID(ctx context.Context, id int64) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting reminder %d: %w", id, err)
	}
	return rem, nil
}

func (r *reminderRepository) DeletePending(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("deleting reminder %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		// Distinguish a missing row from one that was already sent.
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return findErr
		}
		return ErrReminderNotPending
	}
	return nil
}

// ListDue returns pending reminders with an occurrence at or before now.
// Series reminders are skipped until a full cadence has passed since the last send.
func (r *reminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
		WHERE status = 'pending' AND fire_at <= $1
		  AND (last_sent_at IS NULL OR last_sent_at + cadence_seconds * INTERVAL '1 second' <= $1)
		ORDER BY fire_at ASC, id ASC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("listing due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *reminderRepository) MarkFired(ctx context.Context, id int64, at time.Time, done bool) error {
	status := models.ReminderPending
	if done {
		status = models.ReminderSent
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET last_sent_at = $1, status = $2 WHERE id = $3 AND status = 'pending'`,
		at, status, id)
	if err != nil {
		return fmt.Errorf("marking reminder %d fired: %w", id, err)
	}
	return requireAffected(res)
}

func scanReminder(row interface{ Scan(dest ...any) error }) (*models.Reminder, error) {
	rem := &models.Reminder{}
	var cadenceSeconds int64
	err := row.Scan(
		&rem.ID, &rem.EventID, &rem.ReminderType, &rem.FireAt, &rem.Anchor, &cadenceSeconds,
		&rem.Until, &rem.Status, &rem.LastSentAt, &rem.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rem.Cadence = time.Duration(cadenceSeconds) * time.Second
	return rem, nil
}

func scanReminders(rows *sql.Rows) ([]models.Reminder, error) {
	var out []models.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reminder: %w", err)
		}
		out = append(out, *rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reminders: %w", err)
	}
	return out, nil
}
