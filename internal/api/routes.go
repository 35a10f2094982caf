package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ngavde/education-management/internal/auth"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/services"
	"github.com/ngavde/education-management/pkg/config"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Options carries what the routes are built from. Scheduler and
// HealthChecks are optional.
type Options struct {
	Services        *services.Services
	Scheduler       *services.Scheduler
	SchedulerConfig services.SchedulerConfig
	Config          *config.Config
	Logger          logger.Logger
	HealthChecks    map[string]HealthCheck
}

var validatorRoles = []models.UserRole{models.RoleAdmin, models.RoleSystemManager, models.RoleAcademicsUser}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, opts Options) {
	svc := opts.Services

	authHandler := NewAuthHandler(svc.Auth)
	submissionHandler := NewSubmissionHandler(svc.Submissions, svc.Workflow)
	validationHandler := NewValidationHandler(svc.Workflow)
	meritListHandler := NewMeritListHandler(svc.MeritLists, svc.Export)
	adminHandler := NewAdminHandler(svc.Settings, svc.Dashboard)

	r.GET("/health", healthHandler(opts.HealthChecks))

	public := r.Group("/api/v1")
	{
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/refresh", authHandler.RefreshToken)
		public.POST("/auth/logout", authHandler.Logout)
	}

	protected := r.Group("/api/v1")
	protected.Use(auth.JWTMiddleware(opts.Config.JWTSecret))
	protected.Use(auth.CSRFMiddleware())
	{
		protected.GET("/auth/me", authHandler.Me)

		// Submissions
		protected.POST("/submissions", submissionHandler.Create)
		protected.GET("/submissions", submissionHandler.List)
		protected.GET("/submissions/:ref", submissionHandler.Get)
		protected.PUT("/submissions/:ref", submissionHandler.Update)
		protected.POST("/submissions/:ref/submit", submissionHandler.Submit)
		protected.POST("/submissions/:ref/cancel", submissionHandler.Cancel)

		// Merit list tools
		protected.POST("/merit-lists", meritListHandler.Create)
		protected.GET("/merit-lists", meritListHandler.List)
		protected.GET("/merit-lists/:id", meritListHandler.Get)
		protected.DELETE("/merit-lists/:id", meritListHandler.Delete)
		protected.PATCH("/merit-lists/:id/filters", meritListHandler.PatchFilters)
		protected.POST("/merit-lists/:id/generate", meritListHandler.Generate)
		protected.POST("/merit-lists/:id/refresh-ranking", meritListHandler.RefreshRanking)
		protected.GET("/merit-lists/:id/export/:format", meritListHandler.Export)
		protected.GET("/merit-lists/:id/results.html", meritListHandler.Results)

		protected.GET("/settings", adminHandler.GetSettings)
	}

	reviewers := protected.Group("")
	reviewers.Use(auth.RequireRoles(validatorRoles...))
	{
		reviewers.POST("/submissions/:ref/validate", submissionHandler.Validate)
		reviewers.POST("/submissions/:ref/document-verification", submissionHandler.VerifyDocuments)
		reviewers.POST("/submissions/:ref/validations", validationHandler.Create)

		reviewers.GET("/validations/pending", validationHandler.Pending)
		reviewers.GET("/validations/:id", validationHandler.Get)
		reviewers.PATCH("/validations/:id", validationHandler.Update)
		reviewers.POST("/validations/:id/decision", validationHandler.Decide)

		reviewers.GET("/dashboard", adminHandler.Dashboard)
		reviewers.GET("/applicants/:applicant/merit-requirement", adminHandler.MeritRequirement)
	}

	admins := protected.Group("")
	admins.Use(auth.RequireRoles(models.RoleAdmin, models.RoleSystemManager))
	{
		admins.PUT("/settings", adminHandler.UpdateSettings)
		admins.POST("/users", authHandler.CreateUser)

		if opts.Scheduler != nil {
			schedulerHandler := NewSchedulerHandler(opts.Scheduler, opts.SchedulerConfig)
			admins.GET("/scheduler/status", schedulerHandler.Status)
			admins.POST("/scheduler/run-once", schedulerHandler.RunOnce)
		}
	}
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		healthy := true
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				healthy = false
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"healthy":   healthy,
			"checks":    results,
			"timestamp": time.Now(),
		})
	}
}
