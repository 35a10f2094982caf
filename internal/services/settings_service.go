package services

import (
	"context"
	"errors"
	"time"

	"github.com/ngavde/education-management/internal/cache"
	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository"
)

const (
	settingsCacheKey = "education_management:settings"
	settingsCacheTTL = 10 * time.Minute
	maxFileSizeLimit = 100
)

// SettingsService reads and updates the education management settings.
// Every replica reads through the shared cache, so an update is visible
// everywhere once the cached copy is dropped.
type SettingsService struct {
	repos    *repository.Repositories
	cache    Cache
	logger   logger.Logger
	defaults models.Settings
}

// NewSettingsService creates a settings service. cache may be nil.
func NewSettingsService(repos *repository.Repositories, c Cache, log logger.Logger) *SettingsService {
	return &SettingsService{repos: repos, cache: c, logger: log, defaults: models.DefaultSettings()}
}

// Get returns the stored settings, or the defaults when none were saved
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	if s.cache != nil {
		var cached models.Settings
		err := s.cache.GetJSON(ctx, settingsCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			s.logger.Warn("Settings cache read failed", "error", err)
		}
	}

	settings, err := s.repos.Settings.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		defaults := s.defaults
		settings, err = &defaults, nil
	}
	if err != nil {
		s.logger.Error("Failed to load settings", err)
		return nil, storeError(err, "settings", "GetSettings")
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, settingsCacheKey, settings, settingsCacheTTL); err != nil {
			s.logger.Warn("Settings cache write failed", "error", err)
		}
	}
	return settings, nil
}

// Load reads the settings once at startup to check the store and warm the
// cache
func (s *SettingsService) Load(ctx context.Context) (*models.Settings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Settings loaded",
		"merit_validation_required", settings.MeritValidationRequired,
		"allow_score_modification_after_validation", settings.AllowScoreModificationAfterValidation)
	return settings, nil
}

// ValidateSettings checks the bounds of a settings update. A zero file size means
// the default. Zero reminder days turns reminders off.
func ValidateSettings(settings *models.Settings) error {
	if settings.MaxFileSizeMB < 0 {
		return apperrors.ValidationError("Maximum file size must be greater than 0", nil)
	}
	if settings.MaxFileSizeMB > maxFileSizeLimit {
		return apperrors.ValidationError("Maximum file size cannot exceed 100 MB", nil)
	}
	if settings.ValidationReminderDays < 0 {
		return apperrors.ValidationError("Validation reminder days cannot be negative", nil)
	}
	if settings.DefaultMinimumMeritScore < 0 {
		return apperrors.ValidationError("Default minimum merit score cannot be negative", nil)
	}
	return nil
}

// Update validates and saves the settings and drops the cached copy
func (s *SettingsService) Update(ctx context.Context, settings models.Settings) (*models.Settings, error) {
	if err := ValidateSettings(&settings); err != nil {
		return nil, err
	}
	defaults := models.DefaultSettings()
	if settings.MaxFileSizeMB == 0 {
		settings.MaxFileSizeMB = defaults.MaxFileSizeMB
	}

	if err := s.repos.Settings.Save(ctx, &settings); err != nil {
		s.logger.Error("Failed to save settings", err)
		return nil, storeError(err, "settings", "UpdateSettings")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, settingsCacheKey); err != nil {
			s.logger.Warn("Settings cache invalidation failed", "error", err)
		}
	}

	s.logger.Info("Settings updated",
		"merit_list_mandatory", settings.MeritListMandatory,
		"allow_score_modification_after_validation", settings.AllowScoreModificationAfterValidation)
	return &settings, nil
}
