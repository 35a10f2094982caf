package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/repository"
	"github.com/robfig/cron/v3"
)

// SchedulerConfig contains the cron specs of the background jobs. Specs
// use the six-field form with seconds.
type SchedulerConfig struct {
	RankingRefreshSpec     string
	ValidationReminderSpec string
	Concurrency            int
}

// DefaultSchedulerConfig returns the default job schedule
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		RankingRefreshSpec:     "0 0 */6 * * *",
		ValidationReminderSpec: "0 0 8 * * *",
		Concurrency:            4,
	}
}

// Scheduler runs ranking refreshes and validation reminders on a schedule
type Scheduler struct {
	repos    *repository.Repositories
	ranking  *RankingService
	settings settingsReader
	notifier *Notifier
	logger   logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	cron      *cron.Cron
	isRunning bool
}

// NewScheduler creates a scheduler from the application services
func NewScheduler(repos *repository.Repositories, svc *Services, log logger.Logger) *Scheduler {
	return &Scheduler{
		repos:    repos,
		ranking:  svc.Ranking,
		settings: svc.Settings,
		notifier: svc.Notifier,
		logger:   log,
		now:      time.Now,
	}
}

// cronLogger adapts Logger to cron.Logger
type cronLogger struct {
	logger logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, err, keysAndValues...)
}

// Start registers the jobs and starts the cron runner
func (s *Scheduler) Start(cfg SchedulerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(cfg.RankingRefreshSpec, func() {
		s.runJob("refresh_rankings", func(ctx context.Context) error {
			_, err := s.RefreshRankings(ctx, cfg.Concurrency)
			return err
		})
	}); err != nil {
		return fmt.Errorf("invalid ranking refresh schedule %q: %w", cfg.RankingRefreshSpec, err)
	}

	if _, err := c.AddFunc(cfg.ValidationReminderSpec, func() {
		s.runJob("validation_reminders", func(ctx context.Context) error {
			_, err := s.SendValidationReminders(ctx)
			return err
		})
	}); err != nil {
		return fmt.Errorf("invalid validation reminder schedule %q: %w", cfg.ValidationReminderSpec, err)
	}

	c.Start()
	s.cron = c
	s.isRunning = true

	s.logger.Info("Scheduler started",
		"ranking_refresh", cfg.RankingRefreshSpec, "validation_reminders", cfg.ValidationReminderSpec)
	return nil
}

// Stop waits for running jobs and stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return fmt.Errorf("scheduler is not running")
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is started
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) runJob(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	s.logger.Debug("Job started", "job", name)
	if err := fn(ctx); err != nil {
		s.logger.Error("Job failed", err, "job", name, "duration", time.Since(start))
		return
	}
	s.logger.Info("Job completed", "job", name, "duration", time.Since(start))
}

// CycleStats reports a manual run of every job
type CycleStats struct {
	Rankings  *RefreshStats `json:"rankings,omitempty"`
	Reminders int           `json:"reminders"`
}

// RunOnce runs both jobs immediately
func (s *Scheduler) RunOnce(ctx context.Context, cfg SchedulerConfig) (*CycleStats, error) {
	stats := &CycleStats{}
	rankings, err := s.RefreshRankings(ctx, cfg.Concurrency)
	if err != nil {
		return stats, err
	}
	stats.Rankings = rankings

	if stats.Reminders, err = s.SendValidationReminders(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// RefreshRankings refreshes every academic year when automatic ranking is
// enabled. It returns nil stats when disabled.
func (s *Scheduler) RefreshRankings(ctx context.Context, concurrency int) (*RefreshStats, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.AutoGenerateRankings {
		s.logger.Debug("Automatic ranking disabled, skipping refresh")
		return nil, nil
	}

	stats, err := s.ranking.RefreshAll(ctx, concurrency)
	if err != nil {
		return stats, err
	}
	s.logger.Info("Rankings refreshed", "summary", stats.Summary())
	return stats, nil
}

// SendValidationReminders publishes a reminder for every submission pending
// validation longer than the configured number of days
func (s *Scheduler) SendValidationReminders(ctx context.Context) (int, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	days := settings.ValidationReminderDays
	if days <= 0 {
		return 0, nil
	}

	now := s.now()
	pending, err := s.repos.Submissions.ListPendingOlderThan(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		return 0, storeError(err, "pending submissions", "SendValidationReminders")
	}

	for i := range pending {
		sub := &pending[i]
		since := sub.CreatedAt
		if sub.SubmissionDate != nil {
			since = *sub.SubmissionDate
		}
		s.notifier.ValidationReminder(ctx, sub, int(now.Sub(since).Hours()/24))
	}

	if len(pending) > 0 {
		s.logger.Info("Validation reminders sent", "count", len(pending), "threshold_days", days)
	}
	return len(pending), nil
}
