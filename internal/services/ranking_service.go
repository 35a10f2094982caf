package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository"
	"golang.org/x/sync/errgroup"
)

// RankingService builds merit lists and persists merit ranks
type RankingService struct {
	repos  *repository.Repositories
	engine *merit.RankingEngine
	logger logger.Logger
}

// NewRankingService creates a new ranking service
func NewRankingService(repos *repository.Repositories, engine *merit.RankingEngine, log logger.Logger) *RankingService {
	return &RankingService{repos: repos, engine: engine, logger: log}
}

func requireAcademicYear(f models.MeritListFilters, op string) error {
	if strings.TrimSpace(f.AcademicYear) == "" {
		return apperrors.PreconditionFailed("please select an academic year", nil).WithOperation(op)
	}
	return nil
}

// GenerateMeritList returns the ordered merit list for the filters
func (r *RankingService) GenerateMeritList(ctx context.Context, filters models.MeritListFilters) ([]models.MeritListEntry, error) {
	const op = "GenerateMeritList"

	if err := requireAcademicYear(filters, op); err != nil {
		return nil, err
	}
	candidates, err := r.repos.Submissions.ListCandidates(ctx, filters.AcademicYear)
	if err != nil {
		r.logger.Error("Failed to load merit candidates", err, "academic_year", filters.AcademicYear)
		return nil, storeError(err, "merit submissions", op)
	}

	entries := r.engine.GenerateMeritList(candidates, filters)
	r.logger.Debug("Merit list generated",
		"academic_year", filters.AcademicYear, "program", filters.Program, "entries", len(entries))
	return entries, nil
}

// Summary describes a generated merit list
func (r *RankingService) Summary(entries []models.MeritListEntry, filters models.MeritListFilters) string {
	return r.engine.Summary(entries, filters)
}

// RefreshRanking recomputes and stores merit and category ranks for the
// validated submissions of an academic year, optionally one program
func (r *RankingService) RefreshRanking(ctx context.Context, academicYear, program string) ([]merit.RankAssignment, error) {
	const op = "RefreshRanking"

	if strings.TrimSpace(academicYear) == "" {
		return nil, apperrors.PreconditionFailed("please select an academic year", nil).WithOperation(op)
	}

	var ranks []merit.RankAssignment
	err := r.repos.Tx.WithTransaction(ctx, func(repos *repository.Repositories) error {
		candidates, err := repos.Submissions.ListCandidates(ctx, academicYear)
		if err != nil {
			return err
		}
		ranks = r.engine.ComputeRanks(candidates, academicYear, program)
		return repos.Submissions.UpdateRanks(ctx, academicYear, program, ranks)
	})
	if err != nil {
		r.logger.Error("Failed to refresh merit ranking", err, "academic_year", academicYear, "program", program)
		return nil, storeError(err, "merit ranking", op)
	}

	r.logger.Info("Merit ranking refreshed", "academic_year", academicYear, "program", program, "ranked", len(ranks))
	return ranks, nil
}

// RefreshStats reports one run over every academic year
type RefreshStats struct {
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Duration       time.Duration `json:"duration"`
	YearsFound     int           `json:"years_found"`
	YearsRefreshed int           `json:"years_refreshed"`
	YearsFailed    int           `json:"years_failed"`
	Ranked         int           `json:"ranked"`
}

// Summary formats the stats for logs
func (s *RefreshStats) Summary() string {
	return fmt.Sprintf("years=%d, refreshed=%d, failed=%d, ranked=%d, duration=%v",
		s.YearsFound, s.YearsRefreshed, s.YearsFailed, s.Ranked, s.Duration.Round(time.Millisecond))
}

// RefreshAll refreshes rankings for every academic year that has submitted
// submissions, at most concurrency years at a time. A failing year is
// counted and logged; the others still run.
func (r *RankingService) RefreshAll(ctx context.Context, concurrency int) (*RefreshStats, error) {
	stats := &RefreshStats{StartTime: time.Now()}

	years, err := r.repos.Submissions.ListAcademicYears(ctx)
	if err != nil {
		return stats, storeError(err, "academic years", "RefreshAll")
	}
	stats.YearsFound = len(years)

	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for _, year := range years {
		year := year
		g.Go(func() error {
			ranks, err := r.RefreshRanking(gctx, year, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.YearsFailed++
				return nil
			}
			stats.YearsRefreshed++
			stats.Ranked += len(ranks)
			return nil
		})
	}
	_ = g.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	if err := ctx.Err(); err != nil {
		return stats, apperrors.ServiceError("ranking refresh interrupted", err).WithOperation("RefreshAll")
	}
	return stats, nil
}
