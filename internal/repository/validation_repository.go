package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/models"
)

const validationSelect = `
	SELECT v.id, v.merit_submission_id, s.name, s.applicant_name, v.validator,
		v.original_total_score, v.verified_total_score, v.original_percentage,
		v.verified_percentage, v.score_difference, v.percentage_difference,
		v.validation_comments, v.validation_status, v.final_decision, v.docstatus,
		v.validation_date, v.created_at, v.updated_at
	FROM merit_score_validations v
	JOIN merit_score_submissions s ON s.id = v.merit_submission_id
`

// validationRecordRepository implements ValidationRecordRepository
type validationRecordRepository struct {
	db dbExecutor
}

// NewValidationRecordRepository creates a new validation record repository
func NewValidationRecordRepository(db dbExecutor) ValidationRecordRepository {
	return &validationRecordRepository{db: db}
}

func scanValidation(row rowScanner) (*models.MeritScoreValidation, error) {
	v := &models.MeritScoreValidation{}
	err := row.Scan(
		&v.ID, &v.MeritSubmissionID, &v.MeritSubmission, &v.ApplicantName, &v.Validator,
		&v.OriginalTotalScore, &v.VerifiedTotalScore, &v.OriginalPercentage,
		&v.VerifiedPercentage, &v.ScoreDifference, &v.PercentageDifference,
		&v.ValidationComments, &v.ValidationStatus, &v.FinalDecision, &v.DocStatus,
		&v.ValidationDate, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

func (r *validationRecordRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.MeritScoreValidation, error) {
	v, err := scanValidation(r.db.QueryRowContext(ctx, validationSelect+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get validation record: %w", err)
	}
	return v, nil
}

// GetByID retrieves a validation record by ID
func (r *validationRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MeritScoreValidation, error) {
	return r.getOne(ctx, "v.id = $1", id)
}

// GetBySubmission retrieves the validation record of a submission
func (r *validationRecordRepository) GetBySubmission(ctx context.Context, submissionID uuid.UUID) (*models.MeritScoreValidation, error) {
	return r.getOne(ctx, "v.merit_submission_id = $1", submissionID)
}

// Create inserts a validation record. A second record for the same
// submission fails with ErrDuplicate.
func (r *validationRecordRepository) Create(ctx context.Context, v *models.MeritScoreValidation) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.ValidationDate.IsZero() {
		v.ValidationDate = now
	}

	query := `
		INSERT INTO merit_score_validations (
			id, merit_submission_id, validator, original_total_score, verified_total_score,
			original_percentage, verified_percentage, score_difference, percentage_difference,
			validation_comments, validation_status, final_decision, docstatus,
			validation_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.MeritSubmissionID, v.Validator, v.OriginalTotalScore, v.VerifiedTotalScore,
		v.OriginalPercentage, v.VerifiedPercentage, v.ScoreDifference, v.PercentageDifference,
		v.ValidationComments, v.ValidationStatus, v.FinalDecision, v.DocStatus,
		v.ValidationDate, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("validation record for %s: %w", v.MeritSubmission, ErrDuplicate)
		}
		return fmt.Errorf("failed to create validation record: %w", err)
	}
	return nil
}

// Update writes the reviewer fields of an open record
func (r *validationRecordRepository) Update(ctx context.Context, v *models.MeritScoreValidation) error {
	v.UpdatedAt = time.Now()

	query := `
		UPDATE merit_score_validations SET
			validator = $2, verified_total_score = $3, verified_percentage = $4,
			score_difference = $5, percentage_difference = $6, validation_comments = $7,
			validation_status = $8, final_decision = $9, docstatus = $10,
			validation_date = $11, updated_at = $12
		WHERE id = $1 AND docstatus = 0
	`

	result, err := r.db.ExecContext(ctx, query,
		v.ID, v.Validator, v.VerifiedTotalScore, v.VerifiedPercentage,
		v.ScoreDifference, v.PercentageDifference, v.ValidationComments,
		v.ValidationStatus, v.FinalDecision, v.DocStatus,
		v.ValidationDate, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update validation record: %w", err)
	}
	return rowsAffected(result, ErrStaleState)
}

// DeleteDrafts removes undecided records of a submission
func (r *validationRecordRepository) DeleteDrafts(ctx context.Context, submissionID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM merit_score_validations WHERE merit_submission_id = $1 AND docstatus = 0`, submissionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete validation records: %w", err)
	}
	return result.RowsAffected()
}

// ListOpen returns undecided records, oldest first
func (r *validationRecordRepository) ListOpen(ctx context.Context) ([]models.MeritScoreValidation, error) {
	rows, err := r.db.QueryContext(ctx, validationSelect+" WHERE v.docstatus = 0 ORDER BY v.created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query validation records: %w", err)
	}
	defer rows.Close()

	records := []models.MeritScoreValidation{}
	for rows.Next() {
		v, err := scanValidation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan validation record: %w", err)
		}
		records = append(records, *v)
	}
	return records, rows.Err()
}
