package repositories

import (
	"context"
	"fmt"

	"eventcrm/internal/db"
)

// SettingsRepository stores application settings as a key/value bag.
type SettingsRepository interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
}

type settingsRepository struct {
	db db.DBTX
}

func NewSettingsRepository(conn db.DBTX) SettingsRepository {
	return &settingsRepository{db: conn}
}

func (r *settingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (r *settingsRepository) Set(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO app_settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, k, v)
		if err != nil {
			return fmt.Errorf("saving setting %q: %w", k, err)
		}
	}
	return nil
}
