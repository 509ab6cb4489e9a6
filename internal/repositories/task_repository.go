package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eventcrm/internal/db"
	"eventcrm/internal/models"
)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id int64) (*models.Task, error)
	FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	ListByPrerequisite(ctx context.Context, prerequisiteID int64) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	UpdateStatus(ctx context.Context, id int64, to models.TaskStatus) error
	Delete(ctx context.Context, id int64) error
}

const taskColumns = `id, event_department_id, title, title_ar, description, status,
       deadline, order_index, prerequisite_task_id, created_at, updated_at`

type taskRepository struct {
	db db.DBTX
}

func NewTaskRepository(conn db.DBTX) TaskRepository {
	return &taskRepository{db: conn}
}

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			event_department_id, title, title_ar, description, status,
			deadline, order_index, prerequisite_task_id, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		task.EventDepartmentID, task.Title, task.TitleAr, task.Description, task.Status,
		task.Deadline, task.OrderIndex, task.PrerequisiteTaskID, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("inserting task: %w", ErrNotFound)
		}
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	return task, nil
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`

	conditions := []string{}
	args := []interface{}{}
	argID := 1

	if filter.EventDepartmentID != nil {
		conditions = append(conditions, fmt.Sprintf("event_department_id = $%d", argID))
		args = append(args, *filter.EventDepartmentID)
		argID++
	}
	if filter.EventID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"event_department_id IN (SELECT id FROM event_departments WHERE event_id = $%d)", argID))
		args = append(args, *filter.EventID)
		argID++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY event_department_id, order_index ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) ListByPrerequisite(ctx context.Context, prerequisiteID int64) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE prerequisite_task_id = $1
		ORDER BY order_index ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, prerequisiteID)
	if err != nil {
		return nil, fmt.Errorf("listing dependents of task %d: %w", prerequisiteID, err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks SET
			title=$1, title_ar=$2, description=$3, deadline=$4,
			order_index=$5, prerequisite_task_id=$6, status=$7, updated_at=$8
		WHERE id=$9`
	res, err := r.db.ExecContext(ctx, query,
		task.Title, task.TitleAr, task.Description, task.Deadline,
		task.OrderIndex, task.PrerequisiteTaskID, task.Status, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %d: %w", task.ID, err)
	}
	return requireAffected(res)
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id int64, to models.TaskStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET status=$1, updated_at=NOW() WHERE id=$2`, to, id)
	if err != nil {
		return fmt.Errorf("updating status of task %d: %w", id, err)
	}
	return requireAffected(res)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("deleting task %d: still referenced as a prerequisite: %w", id, err)
		}
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	return requireAffected(res)
}

func scanTask(row interface{ Scan(dest ...any) error }) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(
		&t.ID, &t.EventDepartmentID, &t.Title, &t.TitleAr, &t.Description, &t.Status,
		&t.Deadline, &t.OrderIndex, &t.PrerequisiteTaskID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}
