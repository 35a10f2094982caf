package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ngavde/education-management/internal/cache"
	"github.com/ngavde/education-management/internal/database"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/repository"
	"github.com/ngavde/education-management/internal/services"
	"github.com/ngavde/education-management/pkg/config"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.New()

	appLogger, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer appLogger.Sync()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	repos := repository.NewRepositories(db.DB)
	opts := services.Options{Logger: appLogger}
	if cfg.HasRedis() {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			appLogger.Warn("Redis unavailable, reminders will only be logged", "error", err)
		} else {
			defer redisCache.Close()
			opts.Cache = redisCache
			opts.Locker = redisCache
			opts.Publisher = redisCache
		}
	}

	svc := services.NewServices(repos, cfg, opts)
	scheduler := services.NewScheduler(repos, svc, appLogger)

	schedulerConfig := services.SchedulerConfig{
		RankingRefreshSpec:     cfg.RankingRefreshSpec,
		ValidationReminderSpec: cfg.ValidationReminderSpec,
		Concurrency:            cfg.SchedulerConcurrency,
	}
	appLogger.Info("Merit scheduler configuration",
		"ranking_refresh", schedulerConfig.RankingRefreshSpec,
		"validation_reminders", schedulerConfig.ValidationReminderSpec,
		"concurrency", schedulerConfig.Concurrency)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		stats, err := scheduler.RunOnce(ctx, schedulerConfig)
		if err != nil {
			appLogger.Fatal("One-time run failed", err)
		}
		fields := []interface{}{"reminders", stats.Reminders}
		if stats.Rankings != nil {
			fields = append(fields, "rankings", stats.Rankings.Summary())
		}
		appLogger.Info("One-time run completed", fields...)
		return
	}

	if err := scheduler.Start(schedulerConfig); err != nil {
		appLogger.Fatal("Failed to start scheduler", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	appLogger.Info("Merit scheduler running")

	<-sigChan
	appLogger.Info("Shutdown signal received, stopping scheduler")
	if err := scheduler.Stop(); err != nil {
		appLogger.Error("Error stopping scheduler", err)
		return
	}
	appLogger.Info("Scheduler stopped")
}
