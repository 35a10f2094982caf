package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/repository"
	"github.com/ngavde/education-management/pkg/config"
)

// Cache stores JSON values with expiry
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Locker hands out exclusive locks by key. Release funcs are idempotent.
type Locker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (func(), error)
}

// Publisher sends messages on named channels
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Services contains all application services
type Services struct {
	Submissions *SubmissionService
	Workflow    *ValidationWorkflow
	Ranking     *RankingService
	MeritLists  *MeritListService
	Export      *ExportService
	Settings    *SettingsService
	Dashboard   *DashboardService
	Notifier    *Notifier
	Auth        AuthService
}

// Options carries the optional infrastructure. Nil fields fall back to
// in-process implementations.
type Options struct {
	Cache     Cache
	Locker    Locker
	Publisher Publisher
	Logger    logger.Logger
}

// NewServices creates a new Services instance with all dependencies
func NewServices(repos *repository.Repositories, cfg *config.Config, opts Options) *Services {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	locker := opts.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}

	engine := merit.NewRankingEngine()
	validate := validator.New()

	ranking := NewRankingService(repos, engine, log)
	settings := NewSettingsService(repos, opts.Cache, log)
	settings.defaults.AllowScoreModificationAfterValidation = cfg.AllowScoreModificationAfterValidation
	notifier := NewNotifier(opts.Publisher, settings, log)
	workflow := NewValidationWorkflow(repos, locker, notifier, settings, validate, log, WorkflowConfig{
		LockTTL: cfg.SubmissionLockTTL,
	})

	return &Services{
		Submissions: NewSubmissionService(repos, workflow, notifier, settings, validate, log),
		Workflow:    workflow,
		Ranking:     ranking,
		MeritLists:  NewMeritListService(repos, ranking, validate, log),
		Export:      NewExportService(log),
		Settings:    settings,
		Dashboard:   NewDashboardService(repos, settings, log),
		Notifier:    notifier,
		Auth:        newAuthService(repos, cfg, log),
	}
}

// storeError maps repository sentinels onto application errors
func storeError(err error, what, op string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(what+" not found", err).WithOperation(op)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.Conflict(what+" already exists", err).WithOperation(op)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.ServiceError("request cancelled", err).WithOperation(op)
	default:
		return apperrors.DatabaseError("failed to access "+what, err).WithOperation(op)
	}
}
