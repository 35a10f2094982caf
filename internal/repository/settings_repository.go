package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ngavde/education-management/internal/models"
)

type settingsRepository struct {
	db dbExecutor
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db dbExecutor) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get returns the stored settings, or ErrNotFound if none were saved
func (r *settingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var (
		data      []byte
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM education_management_settings WHERE id = 1`).Scan(&data, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	// Start from defaults so keys added later keep their default value.
	settings := models.DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	settings.UpdatedAt = updatedAt
	return &settings, nil
}

// Save upserts the settings row
func (r *settingsRepository) Save(ctx context.Context, s *models.Settings) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	query := `
		INSERT INTO education_management_settings (id, data, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, string(data), s.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
