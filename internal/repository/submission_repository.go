package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/models"
)

const submissionColumns = `
	id, name, student_applicant, applicant_name, applicant_email, academic_year,
	program, student_category, docstatus, submission_status, validation_status,
	document_verification_status, total_merit_score, maximum_possible_score,
	percentage_score, merit_grade, merit_rank, category_rank, supporting_documents,
	submission_date, teacher_comments, admin_remarks, validated_by, validation_date,
	created_by, created_at, updated_at`

// submissionRepository implements SubmissionRepository
type submissionRepository struct {
	db dbExecutor
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db dbExecutor) SubmissionRepository {
	return &submissionRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*models.MeritScoreSubmission, error) {
	s := &models.MeritScoreSubmission{}
	var createdBy uuid.NullUUID
	err := row.Scan(
		&s.ID, &s.Name, &s.StudentApplicant, &s.ApplicantName, &s.ApplicantEmail,
		&s.AcademicYear, &s.Program, &s.StudentCategory, &s.DocStatus,
		&s.SubmissionStatus, &s.ValidationStatus, &s.DocumentVerificationStatus,
		&s.TotalMeritScore, &s.MaximumPossibleScore, &s.PercentageScore,
		&s.MeritGrade, &s.MeritRank, &s.CategoryRank, &s.SupportingDocuments,
		&s.SubmissionDate, &s.TeacherComments, &s.AdminRemarks, &s.ValidatedBy,
		&s.ValidationDate, &createdBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.CreatedBy = createdBy.UUID
	return s, nil
}

func (r *submissionRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.MeritScoreSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM merit_score_submissions WHERE ` + where

	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if s.SubjectScores, err = r.subjectScores(ctx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a submission and its subject scores by ID
func (r *submissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MeritScoreSubmission, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByName retrieves a submission and its subject scores by name
func (r *submissionRepository) GetByName(ctx context.Context, name string) (*models.MeritScoreSubmission, error) {
	return r.getOne(ctx, "name = $1", name)
}

func (r *submissionRepository) subjectScores(ctx context.Context, submissionID uuid.UUID) ([]models.SubjectScore, error) {
	query := `
		SELECT id, idx, subject, score, maximum_score, percentage, grade
		FROM merit_subject_scores
		WHERE submission_id = $1
		ORDER BY idx
	`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject scores: %w", err)
	}
	defer rows.Close()

	scores := []models.SubjectScore{}
	for rows.Next() {
		var row models.SubjectScore
		if err := rows.Scan(&row.ID, &row.Position, &row.Subject, &row.Score,
			&row.MaximumScore, &row.Percentage, &row.Grade); err != nil {
			return nil, fmt.Errorf("failed to scan subject score: %w", err)
		}
		scores = append(scores, row)
	}
	return scores, rows.Err()
}

func (r *submissionRepository) replaceSubjectScores(ctx context.Context, s *models.MeritScoreSubmission) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM merit_subject_scores WHERE submission_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to clear subject scores: %w", err)
	}

	query := `
		INSERT INTO merit_subject_scores (id, submission_id, idx, subject, score, maximum_score, percentage, grade)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i := range s.SubjectScores {
		row := &s.SubjectScores[i]
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if _, err := r.db.ExecContext(ctx, query, row.ID, s.ID, row.Position, row.Subject,
			row.Score, row.MaximumScore, row.Percentage, row.Grade); err != nil {
			return fmt.Errorf("failed to insert subject score %s: %w", row.Subject, err)
		}
	}
	return nil
}

// nextName allocates the next EDU-MRT-YYYY-##### identifier
func (r *submissionRepository) nextName(ctx context.Context, at time.Time) (string, error) {
	var seq int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('merit_submission_name_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to allocate submission name: %w", err)
	}
	return fmt.Sprintf("EDU-MRT-%d-%05d", at.Year(), seq), nil
}

// Create inserts a new submission with its subject scores
func (r *submissionRepository) Create(ctx context.Context, s *models.MeritScoreSubmission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	if s.Name == "" {
		name, err := r.nextName(ctx, now)
		if err != nil {
			return err
		}
		s.Name = name
	}

	query := `
		INSERT INTO merit_score_submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`

	createdBy := uuid.NullUUID{UUID: s.CreatedBy, Valid: s.CreatedBy != uuid.Nil}
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.StudentApplicant, s.ApplicantName, s.ApplicantEmail,
		s.AcademicYear, s.Program, s.StudentCategory, s.DocStatus,
		s.SubmissionStatus, s.ValidationStatus, s.DocumentVerificationStatus,
		s.TotalMeritScore, s.MaximumPossibleScore, s.PercentageScore,
		s.MeritGrade, s.MeritRank, s.CategoryRank, s.SupportingDocuments,
		s.SubmissionDate, s.TeacherComments, s.AdminRemarks, s.ValidatedBy,
		s.ValidationDate, createdBy, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("submission %s: %w", s.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return r.replaceSubjectScores(ctx, s)
}

// Update writes the editable fields and replaces the subject scores
func (r *submissionRepository) Update(ctx context.Context, s *models.MeritScoreSubmission) error {
	s.UpdatedAt = time.Now()

	query := `
		UPDATE merit_score_submissions SET
			student_applicant = $2, applicant_name = $3, applicant_email = $4,
			academic_year = $5, program = $6, student_category = $7,
			total_merit_score = $8, maximum_possible_score = $9, percentage_score = $10,
			merit_grade = $11, supporting_documents = $12, submission_date = $13,
			teacher_comments = $14, admin_remarks = $15, updated_at = $16
		WHERE id = $1 AND docstatus <> 2
	`

	result, err := r.db.ExecContext(ctx, query,
		s.ID, s.StudentApplicant, s.ApplicantName, s.ApplicantEmail,
		s.AcademicYear, s.Program, s.StudentCategory,
		s.TotalMeritScore, s.MaximumPossibleScore, s.PercentageScore,
		s.MeritGrade, s.SupportingDocuments, s.SubmissionDate,
		s.TeacherComments, s.AdminRemarks, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if err := rowsAffected(result, ErrStaleState); err != nil {
		return err
	}

	return r.replaceSubjectScores(ctx, s)
}

// List returns submissions matching the filter, newest first
func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.MeritScoreSubmission, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.AcademicYear != "" {
		add("academic_year = $%d", filter.AcademicYear)
	}
	if filter.Program != "" {
		add("program = $%d", filter.Program)
	}
	if filter.StudentApplicant != "" {
		add("student_applicant = $%d", filter.StudentApplicant)
	}
	if filter.DocStatus != nil {
		add("docstatus = $%d", *filter.DocStatus)
	}
	if filter.ValidationStatus != "" {
		add("validation_status = $%d", filter.ValidationStatus)
	}

	query := `SELECT ` + submissionColumns + ` FROM merit_score_submissions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, name DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.query(ctx, query, args...)
}

func (r *submissionRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.MeritScoreSubmission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	subs := []models.MeritScoreSubmission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// TransitionDocStatus moves a submission from t.From to t.To
func (r *submissionRepository) TransitionDocStatus(ctx context.Context, id uuid.UUID, t DocTransition) error {
	query := `
		UPDATE merit_score_submissions SET
			docstatus = $3, submission_status = $4,
			submission_date = COALESCE($5, submission_date), updated_at = $6
		WHERE id = $1 AND docstatus = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, t.From, t.To, t.SubmissionStatus, t.SubmissionDate, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return rowsAffected(result, ErrStaleState)
}

// ApplyValidation records an approve or reject decision. Only a submitted
// submission that is still Pending is touched.
func (r *submissionRepository) ApplyValidation(ctx context.Context, id uuid.UUID, u ValidationUpdate) error {
	query := `
		UPDATE merit_score_submissions SET
			validation_status = $2,
			submission_status = $3,
			document_verification_status = CASE
				WHEN $4 AND document_verification_status = 'Pending' THEN 'Verified'
				ELSE document_verification_status
			END,
			validated_by = $5,
			validation_date = $6,
			admin_remarks = COALESCE($7, admin_remarks),
			updated_at = $6
		WHERE id = $1 AND docstatus = 1 AND validation_status = 'Pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, u.Status, u.SubmissionStatus,
		u.VerifyDocuments, u.ValidatedBy, u.ValidationDate, u.AdminRemarks)
	if err != nil {
		return fmt.Errorf("failed to apply validation: %w", err)
	}
	return rowsAffected(result, ErrStaleState)
}

// ApplyDocumentVerification sets the document verification outcome of a
// submitted submission whose documents are still Pending
func (r *submissionRepository) ApplyDocumentVerification(ctx context.Context, id uuid.UUID, status models.DocumentVerificationStatus, updatedAt time.Time) error {
	query := `
		UPDATE merit_score_submissions SET
			document_verification_status = $2, updated_at = $3
		WHERE id = $1 AND docstatus = 1 AND document_verification_status = 'Pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update document verification: %w", err)
	}
	return rowsAffected(result, ErrStaleState)
}

// OverrideScore replaces the total with a reviewer-verified value
func (r *submissionRepository) OverrideScore(ctx context.Context, id uuid.UUID, total, percentage float64, grade models.Grade) error {
	query := `
		UPDATE merit_score_submissions SET
			total_merit_score = $2, percentage_score = $3, merit_grade = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, total, percentage, grade, time.Now())
	if err != nil {
		return fmt.Errorf("failed to override score: %w", err)
	}
	return rowsAffected(result, ErrNotFound)
}

// ListCandidates returns the submitted submissions of an academic year.
// Filtering and ordering happen in the ranking engine.
func (r *submissionRepository) ListCandidates(ctx context.Context, academicYear string) ([]models.MeritScoreSubmission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM merit_score_submissions
		WHERE academic_year = $1 AND docstatus = 1 AND validation_status <> 'Rejected'
	`
	return r.query(ctx, query, academicYear)
}

// ListAcademicYears returns the academic years that have submitted submissions
func (r *submissionRepository) ListAcademicYears(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT academic_year FROM merit_score_submissions
		WHERE docstatus = 1 ORDER BY academic_year
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query academic years: %w", err)
	}
	defer rows.Close()

	var years []string
	for rows.Next() {
		var year string
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan academic year: %w", err)
		}
		years = append(years, year)
	}
	return years, rows.Err()
}

// UpdateRanks clears the ranks in scope then writes the new assignments.
// Callers run it inside a transaction.
func (r *submissionRepository) UpdateRanks(ctx context.Context, academicYear, program string, ranks []merit.RankAssignment) error {
	reset := `
		UPDATE merit_score_submissions SET merit_rank = 0, category_rank = 0
		WHERE academic_year = $1 AND ($2 = '' OR program = $2)
			AND (merit_rank <> 0 OR category_rank <> 0)
	`
	if _, err := r.db.ExecContext(ctx, reset, academicYear, program); err != nil {
		return fmt.Errorf("failed to reset ranks: %w", err)
	}

	set := `UPDATE merit_score_submissions SET merit_rank = $2, category_rank = $3 WHERE id = $1`
	for _, rank := range ranks {
		if _, err := r.db.ExecContext(ctx, set, rank.SubmissionID, rank.MeritRank, rank.CategoryRank); err != nil {
			return fmt.Errorf("failed to update rank for %s: %w", rank.Name, err)
		}
	}
	return nil
}

// Counts returns dashboard counts over submitted submissions
func (r *submissionRepository) Counts(ctx context.Context) (SubmissionCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE validation_status = 'Pending'),
			COUNT(*) FILTER (WHERE validation_status = 'Validated'),
			COUNT(*) FILTER (WHERE validation_status = 'Rejected')
		FROM merit_score_submissions
		WHERE docstatus = 1
	`

	var c SubmissionCounts
	if err := r.db.QueryRowContext(ctx, query).Scan(&c.Submitted, &c.Pending, &c.Validated, &c.Rejected); err != nil {
		return c, fmt.Errorf("failed to count submissions: %w", err)
	}
	return c, nil
}

// ListPendingOlderThan returns submitted, unvalidated submissions whose
// submission date is before cutoff
func (r *submissionRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.MeritScoreSubmission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM merit_score_submissions
		WHERE docstatus = 1 AND validation_status = 'Pending'
			AND COALESCE(submission_date, created_at) < $1
		ORDER BY COALESCE(submission_date, created_at)
	`
	return r.query(ctx, query, cutoff)
}

// HasSubmitted reports whether an applicant has any submitted submission
func (r *submissionRepository) HasSubmitted(ctx context.Context, studentApplicant string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM merit_score_submissions
			WHERE student_applicant = $1 AND docstatus = 1
		)
	`, studentApplicant).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check submissions: %w", err)
	}
	return exists, nil
}
