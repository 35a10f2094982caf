package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository"
)

// MeritListRequest creates a merit list tool
type MeritListRequest struct {
	Title           string  `json:"title" validate:"max=140"`
	AcademicYear    string  `json:"academic_year" validate:"max=20"`
	Program         string  `json:"program" validate:"max=140"`
	StudentCategory string  `json:"student_category" validate:"max=140"`
	MinimumScore    float64 `json:"minimum_score" validate:"gte=0"`
	IncludePending  bool    `json:"include_pending"`
	MaximumResults  int     `json:"maximum_results" validate:"gte=0"`
}

// MeritListService manages saved merit list tools and their generated
// results
type MeritListService struct {
	repos    *repository.Repositories
	ranking  *RankingService
	validate *validator.Validate
	logger   logger.Logger
	now      func() time.Time
}

// NewMeritListService creates a new merit list service
func NewMeritListService(repos *repository.Repositories, ranking *RankingService, validate *validator.Validate, log logger.Logger) *MeritListService {
	return &MeritListService{
		repos:    repos,
		ranking:  ranking,
		validate: validate,
		logger:   log,
		now:      time.Now,
	}
}

// Create saves a new merit list tool owned by the actor
func (m *MeritListService) Create(ctx context.Context, req MeritListRequest, actor models.Actor) (*models.MeritListTool, error) {
	const op = "CreateMeritList"

	if err := m.validate.Struct(req); err != nil {
		return nil, apperrors.ValidationError("invalid merit list", err).WithOperation(op).WithDetails(err.Error())
	}

	tool := &models.MeritListTool{
		Owner: actor.UserID,
		Title: strings.TrimSpace(req.Title),
		Filters: models.MeritListFilters{
			AcademicYear:    strings.TrimSpace(req.AcademicYear),
			Program:         req.Program,
			StudentCategory: req.StudentCategory,
			MinimumScore:    req.MinimumScore,
			IncludePending:  req.IncludePending,
			MaximumResults:  req.MaximumResults,
		},
	}
	if tool.Title == "" {
		tool.Title = "Merit List"
		if tool.Filters.AcademicYear != "" {
			tool.Title += " " + tool.Filters.AcademicYear
		}
	}

	if err := m.repos.MeritLists.Create(ctx, tool); err != nil {
		m.logger.Error("Failed to create merit list", err, "owner", actor.UserID)
		return nil, storeError(err, "merit list", op)
	}
	return tool, nil
}

// Get returns a merit list tool visible to the actor. Tools owned by
// someone else are reported as missing unless the actor is a validator.
func (m *MeritListService) Get(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.MeritListTool, error) {
	tool, err := m.repos.MeritLists.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "merit list", "GetMeritList")
	}
	if tool.Owner != actor.UserID && !actor.CanValidate() {
		return nil, apperrors.NotFound("merit list not found", nil).WithOperation("GetMeritList")
	}
	return tool, nil
}

// List returns the actor's merit list tools, most recently updated first
func (m *MeritListService) List(ctx context.Context, actor models.Actor) ([]models.MeritListTool, error) {
	tools, err := m.repos.MeritLists.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, storeError(err, "merit lists", "ListMeritLists")
	}
	return tools, nil
}

// Delete removes a merit list tool
func (m *MeritListService) Delete(ctx context.Context, id uuid.UUID, actor models.Actor) error {
	if _, err := m.Get(ctx, id, actor); err != nil {
		return err
	}
	if err := m.repos.MeritLists.Delete(ctx, id); err != nil {
		return storeError(err, "merit list", "DeleteMeritList")
	}
	m.logger.Info("Merit list deleted", "merit_list_id", id)
	return nil
}

// PatchFilters changes filter fields. Any actual change drops the generated
// results and summary, since they no longer match the filters.
func (m *MeritListService) PatchFilters(ctx context.Context, id uuid.UUID, patch models.FilterPatch, actor models.Actor) (*models.MeritListTool, error) {
	const op = "PatchMeritListFilters"

	if err := m.validate.Struct(patch); err != nil {
		return nil, apperrors.ValidationError("invalid merit list filters", err).WithOperation(op).WithDetails(err.Error())
	}
	tool, err := m.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if !patch.Apply(&tool.Filters) {
		return tool, nil
	}
	tool.ClearResults()

	if err := m.repos.MeritLists.Update(ctx, tool); err != nil {
		return nil, storeError(err, "merit list", op)
	}
	m.logger.Debug("Merit list filters changed, results cleared", "merit_list_id", id)
	return tool, nil
}

// Generate builds the merit list for the tool's filters and stores the
// results and summary on the tool
func (m *MeritListService) Generate(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.MeritListTool, error) {
	const op = "GenerateMeritList"

	tool, err := m.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	entries, err := m.ranking.GenerateMeritList(ctx, tool.Filters)
	if err != nil {
		return nil, err
	}

	generatedAt := m.now()
	tool.Results = entries
	tool.Summary = m.ranking.Summary(entries, tool.Filters)
	tool.GeneratedAt = &generatedAt

	if err := m.repos.MeritLists.Update(ctx, tool); err != nil {
		m.logger.Error("Failed to store merit list results", err, "merit_list_id", id)
		return nil, storeError(err, "merit list", op)
	}

	m.logger.Info("Merit list generated", "merit_list_id", id, "entries", len(entries))
	return tool, nil
}

// Refresh recomputes stored ranks for the tool's academic year and program
// and then regenerates the list
func (m *MeritListService) Refresh(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.MeritListTool, error) {
	tool, err := m.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := requireAcademicYear(tool.Filters, "RefreshMeritRanking"); err != nil {
		return nil, err
	}
	if _, err := m.ranking.RefreshRanking(ctx, tool.Filters.AcademicYear, tool.Filters.Program); err != nil {
		return nil, err
	}
	return m.Generate(ctx, id, actor)
}

// RenderHTML returns the generated results as an HTML table
func (m *MeritListService) RenderHTML(ctx context.Context, id uuid.UUID, actor models.Actor) (string, error) {
	tool, err := m.Get(ctx, id, actor)
	if err != nil {
		return "", err
	}
	html, err := merit.RenderHTML(tool.Results)
	if err != nil {
		return "", apperrors.InternalError("failed to render merit list", err).WithOperation("RenderMeritList")
	}
	return html, nil
}
