package repository

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/ngavde/education-management/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrStaleState is returned when a conditional transition matched no row
	// because the record is no longer in the expected state
	ErrStaleState = errors.New("record is no longer in the expected state")
	// ErrDuplicate is returned on unique constraint violations
	ErrDuplicate = errors.New("record already exists")
)

// SubmissionFilter defines filters for listing submissions
type SubmissionFilter struct {
	AcademicYear     string
	Program          string
	StudentApplicant string
	DocStatus        *models.DocStatus
	ValidationStatus models.ValidationStatus
	Limit            int
	Offset           int
}

// DocTransition moves a submission between document states
type DocTransition struct {
	From             models.DocStatus
	To               models.DocStatus
	SubmissionStatus models.SubmissionStatus
	SubmissionDate   *time.Time
	UpdatedAt        time.Time
}

// ValidationUpdate is applied only while validation_status is Pending
type ValidationUpdate struct {
	Status           models.ValidationStatus
	SubmissionStatus models.SubmissionStatus
	// VerifyDocuments sets document verification to Verified when it is
	// still Pending.
	VerifyDocuments bool
	ValidatedBy     string
	ValidationDate  time.Time
	AdminRemarks    *string
}

// SubmissionCounts backs the dashboard
type SubmissionCounts struct {
	Submitted int
	Pending   int
	Validated int
	Rejected  int
}

// uniqueViolation is the postgres SQLSTATE for unique_violation
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
