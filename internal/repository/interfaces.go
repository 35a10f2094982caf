package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/models"
)

// SubmissionRepository defines the interface for merit score submission data access
type SubmissionRepository interface {
	// Basic CRUD operations
	GetByID(ctx context.Context, id uuid.UUID) (*models.MeritScoreSubmission, error)
	GetByName(ctx context.Context, name string) (*models.MeritScoreSubmission, error)
	Create(ctx context.Context, s *models.MeritScoreSubmission) error
	Update(ctx context.Context, s *models.MeritScoreSubmission) error
	List(ctx context.Context, filter SubmissionFilter) ([]models.MeritScoreSubmission, error)

	// Workflow transitions. Each is conditional on the current state and
	// returns ErrStaleState when no row matched.
	TransitionDocStatus(ctx context.Context, id uuid.UUID, t DocTransition) error
	ApplyValidation(ctx context.Context, id uuid.UUID, u ValidationUpdate) error
	ApplyDocumentVerification(ctx context.Context, id uuid.UUID, status models.DocumentVerificationStatus, updatedAt time.Time) error
	OverrideScore(ctx context.Context, id uuid.UUID, total, percentage float64, grade models.Grade) error

	// Ranking
	ListCandidates(ctx context.Context, academicYear string) ([]models.MeritScoreSubmission, error)
	ListAcademicYears(ctx context.Context) ([]string, error)
	UpdateRanks(ctx context.Context, academicYear, program string, ranks []merit.RankAssignment) error

	// Reporting
	Counts(ctx context.Context) (SubmissionCounts, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.MeritScoreSubmission, error)
	HasSubmitted(ctx context.Context, studentApplicant string) (bool, error)
}

// ValidationRecordRepository defines the interface for validation record data access
type ValidationRecordRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MeritScoreValidation, error)
	GetBySubmission(ctx context.Context, submissionID uuid.UUID) (*models.MeritScoreValidation, error)
	Create(ctx context.Context, v *models.MeritScoreValidation) error
	Update(ctx context.Context, v *models.MeritScoreValidation) error
	DeleteDrafts(ctx context.Context, submissionID uuid.UUID) (int64, error)
	ListOpen(ctx context.Context) ([]models.MeritScoreValidation, error)
}

// MeritListRepository defines the interface for merit list tool data access
type MeritListRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MeritListTool, error)
	Create(ctx context.Context, tool *models.MeritListTool) error
	Update(ctx context.Context, tool *models.MeritListTool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.MeritListTool, error)
}

// SettingsRepository stores the single settings row
type SettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, s *models.Settings) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionManager defines the interface for database transaction management
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(repos *Repositories) error) error
}

// Repositories groups all repository interfaces
type Repositories struct {
	Submissions SubmissionRepository
	Validations ValidationRecordRepository
	MeritLists  MeritListRepository
	Settings    SettingsRepository
	User        UserRepository
	Tx          TransactionManager
}
