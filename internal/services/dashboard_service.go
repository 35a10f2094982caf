package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository"
)

const recentSubmissionLimit = 10

// DashboardService serves the merit overview and applicant checks
type DashboardService struct {
	repos    *repository.Repositories
	settings settingsReader
	logger   logger.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(repos *repository.Repositories, settings settingsReader, log logger.Logger) *DashboardService {
	return &DashboardService{repos: repos, settings: settings, logger: log}
}

// Dashboard returns submission counts and the most recent submitted
// submissions
func (d *DashboardService) Dashboard(ctx context.Context) (*models.DashboardData, error) {
	counts, err := d.repos.Submissions.Counts(ctx)
	if err != nil {
		d.logger.Error("Failed to count merit submissions", err)
		return nil, storeError(err, "dashboard", "Dashboard")
	}

	submitted := models.DocStatusSubmitted
	recent, err := d.repos.Submissions.List(ctx, repository.SubmissionFilter{
		DocStatus: &submitted,
		Limit:     recentSubmissionLimit,
	})
	if err != nil {
		return nil, storeError(err, "dashboard", "Dashboard")
	}

	return &models.DashboardData{
		TotalSubmissions:     counts.Submitted,
		PendingValidation:    counts.Pending,
		ValidatedSubmissions: counts.Validated,
		RejectedSubmissions:  counts.Rejected,
		RecentSubmissions:    recent,
	}, nil
}

// RequirementCheck is the outcome of CheckMeritListRequirement
type RequirementCheck struct {
	Required bool   `json:"required"`
	Message  string `json:"message,omitempty"`
}

// CheckMeritListRequirement warns when an applicant is being approved or
// admitted without a submitted merit score while the merit list process is
// enabled and mandatory
func (d *DashboardService) CheckMeritListRequirement(ctx context.Context, applicant, title, applicationStatus string) (*RequirementCheck, error) {
	settings, err := d.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.EnableMeritListProcess || !settings.MeritListMandatory {
		return &RequirementCheck{}, nil
	}

	switch strings.TrimSpace(applicationStatus) {
	case "Approved", "Admitted":
	default:
		return &RequirementCheck{}, nil
	}

	submitted, err := d.repos.Submissions.HasSubmitted(ctx, applicant)
	if err != nil {
		return nil, storeError(err, "merit submissions", "CheckMeritListRequirement")
	}
	if submitted {
		return &RequirementCheck{}, nil
	}

	if title == "" {
		title = applicant
	}
	return &RequirementCheck{
		Required: true,
		Message:  fmt.Sprintf("Merit list submission is required before approving/admitting %s", title),
	}, nil
}
