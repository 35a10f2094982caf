package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/models"
)

// meritListRepository implements MeritListRepository. Filters and results
// are stored as JSONB.
type meritListRepository struct {
	db dbExecutor
}

// NewMeritListRepository creates a new merit list tool repository
func NewMeritListRepository(db dbExecutor) MeritListRepository {
	return &meritListRepository{db: db}
}

func scanTool(row rowScanner) (*models.MeritListTool, error) {
	tool := &models.MeritListTool{}
	var filtersJSON, resultsJSON []byte
	if err := row.Scan(&tool.ID, &tool.Owner, &tool.Title, &filtersJSON, &resultsJSON,
		&tool.Summary, &tool.GeneratedAt, &tool.CreatedAt, &tool.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(filtersJSON, &tool.Filters); err != nil {
		return nil, fmt.Errorf("failed to decode filters: %w", err)
	}
	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &tool.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results: %w", err)
		}
	}
	return tool, nil
}

// encodeTool returns JSON text for the JSONB columns. Results are NULL until
// a list has been generated.
func encodeTool(tool *models.MeritListTool) (filters string, results interface{}, err error) {
	raw, err := json.Marshal(tool.Filters)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode filters: %w", err)
	}
	filters = string(raw)
	if tool.Results != nil {
		raw, err := json.Marshal(tool.Results)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode results: %w", err)
		}
		results = string(raw)
	}
	return filters, results, nil
}

// GetByID retrieves a merit list tool by ID
func (r *meritListRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MeritListTool, error) {
	query := `
		SELECT id, owner, title, filters, results, summary, generated_at, created_at, updated_at
		FROM merit_list_tools WHERE id = $1
	`

	tool, err := scanTool(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get merit list: %w", err)
	}
	return tool, nil
}

// Create inserts a merit list tool
func (r *meritListRepository) Create(ctx context.Context, tool *models.MeritListTool) error {
	if tool.ID == uuid.Nil {
		tool.ID = uuid.New()
	}
	now := time.Now()
	tool.CreatedAt = now
	tool.UpdatedAt = now

	filters, results, err := encodeTool(tool)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO merit_list_tools (id, owner, title, filters, results, summary, generated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.db.ExecContext(ctx, query, tool.ID, tool.Owner, tool.Title, filters, results,
		tool.Summary, tool.GeneratedAt, tool.CreatedAt, tool.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create merit list: %w", err)
	}
	return nil
}

// Update writes title, filters and computed output
func (r *meritListRepository) Update(ctx context.Context, tool *models.MeritListTool) error {
	tool.UpdatedAt = time.Now()

	filters, results, err := encodeTool(tool)
	if err != nil {
		return err
	}

	query := `
		UPDATE merit_list_tools SET
			title = $2, filters = $3, results = $4, summary = $5, generated_at = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, tool.ID, tool.Title, filters, results,
		tool.Summary, tool.GeneratedAt, tool.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update merit list: %w", err)
	}
	return rowsAffected(result, ErrNotFound)
}

// Delete removes a merit list tool
func (r *meritListRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM merit_list_tools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete merit list: %w", err)
	}
	return rowsAffected(result, ErrNotFound)
}

// ListByOwner returns an owner's merit list tools, most recently updated first
func (r *meritListRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.MeritListTool, error) {
	query := `
		SELECT id, owner, title, filters, results, summary, generated_at, created_at, updated_at
		FROM merit_list_tools WHERE owner = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query merit lists: %w", err)
	}
	defer rows.Close()

	tools := []models.MeritListTool{}
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan merit list: %w", err)
		}
		tools = append(tools, *tool)
	}
	return tools, rows.Err()
}
