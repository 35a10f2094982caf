package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/ngavde/education-management/internal/api"
	"github.com/ngavde/education-management/internal/cache"
	"github.com/ngavde/education-management/internal/database"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/middleware"
	"github.com/ngavde/education-management/internal/repository"
	"github.com/ngavde/education-management/internal/services"
	"github.com/ngavde/education-management/pkg/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.New()

	appLogger, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer appLogger.Sync()

	if missing := cfg.MissingRequired(); len(missing) > 0 {
		appLogger.Fatal("Missing required configuration", errors.New(strings.Join(missing, ", ")))
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}

	repos := repository.NewRepositories(db.DB)
	opts := services.Options{Logger: appLogger}
	checks := map[string]api.HealthCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}

	if cfg.HasRedis() {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			appLogger.Warn("Redis unavailable, using in-process cache and locks", "error", err)
		} else {
			defer redisCache.Close()
			opts.Cache = redisCache
			opts.Locker = redisCache
			opts.Publisher = redisCache
			checks["redis"] = redisCache.Ping
		}
	}

	svc := services.NewServices(repos, cfg, opts)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := svc.Settings.Load(startCtx); err != nil {
		appLogger.Warn("Using default merit settings", "error", err)
	}
	if err := svc.Auth.EnsureAdmin(startCtx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		appLogger.Error("Failed to create bootstrap administrator", err)
	}
	cancel()

	schedulerConfig := services.SchedulerConfig{
		RankingRefreshSpec:     cfg.RankingRefreshSpec,
		ValidationReminderSpec: cfg.ValidationReminderSpec,
		Concurrency:            cfg.SchedulerConcurrency,
	}
	scheduler := services.NewScheduler(repos, svc, appLogger)
	if cfg.SchedulerEnabled {
		if err := scheduler.Start(schedulerConfig); err != nil {
			appLogger.Fatal("Failed to start scheduler", err)
		}
		defer scheduler.Stop()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.GetTrustedProxies()); err != nil {
		appLogger.Fatal("Invalid trusted proxies", err)
	}
	r.Use(middleware.LoggingMiddleware(appLogger))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg))
	r.Use(middleware.InputValidationMiddleware(cfg.MaxRequestSize))
	if cfg.EnableRateLimit {
		r.Use(middleware.RateLimitingMiddleware(100, time.Minute))
	}
	r.Use(gin.Recovery())

	api.SetupRoutes(r, api.Options{
		Services:        svc,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		Config:          cfg,
		Logger:          appLogger,
		HealthChecks:    checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server shutdown failed", err)
	}
	appLogger.Info("Server stopped")
}
