package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/services"
)

// AdminHandler serves settings, the dashboard and admission checks
type AdminHandler struct {
	settings  *services.SettingsService
	dashboard *services.DashboardService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(settings *services.SettingsService, dashboard *services.DashboardService) *AdminHandler {
	return &AdminHandler{settings: settings, dashboard: dashboard}
}

// GetSettings returns the current merit settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings replaces the merit settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var in models.Settings
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid settings", err)
		return
	}
	settings, err := h.settings.Update(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Dashboard returns submission counts and the latest submissions
func (h *AdminHandler) Dashboard(c *gin.Context) {
	data, err := h.dashboard.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// MeritRequirement reports whether an applicant still needs a merit
// submission before the given application status
func (h *AdminHandler) MeritRequirement(c *gin.Context) {
	check, err := h.dashboard.CheckMeritListRequirement(c.Request.Context(),
		c.Param("applicant"), c.Query("title"), c.Query("application_status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

// SchedulerHandler exposes the background job scheduler
type SchedulerHandler struct {
	scheduler *services.Scheduler
	config    services.SchedulerConfig
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler *services.Scheduler, cfg services.SchedulerConfig) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler, config: cfg}
}

// Status reports whether scheduled jobs are running
func (h *SchedulerHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":                  h.scheduler.IsRunning(),
		"ranking_refresh_spec":     h.config.RankingRefreshSpec,
		"validation_reminder_spec": h.config.ValidationReminderSpec,
		"concurrency":              h.config.Concurrency,
		"timestamp":                time.Now(),
	})
}

// RunOnce runs every job immediately
func (h *SchedulerHandler) RunOnce(c *gin.Context) {
	stats, err := h.scheduler.RunOnce(c.Request.Context(), h.config)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Scheduled jobs completed",
		"stats":     stats,
		"timestamp": time.Now(),
	})
}
