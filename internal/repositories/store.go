package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"eventcrm/internal/db"
)

// Store bundles the repositories bound to one connection or transaction.
type Store struct {
	Tasks     TaskRepository
	Reminders ReminderRepository
	Events    EventRepository
	Settings  SettingsRepository
}

func NewStore(conn db.DBTX) *Store {
	return &Store{
		Tasks:     NewTaskRepository(conn),
		Reminders: NewReminderRepository(conn),
		Events:    NewEventRepository(conn),
		Settings:  NewSettingsRepository(conn),
	}
}

// UnitOfWork runs fn against a transaction-scoped Store. The transaction
// commits when fn returns nil and rolls back on error or panic.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store *Store) error) error
}

type sqlUnitOfWork struct {
	db *sql.DB
}

func NewUnitOfWork(conn *sql.DB) UnitOfWork {
	return &sqlUnitOfWork{db: conn}
}

func (u *sqlUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, store *Store) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, NewStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
