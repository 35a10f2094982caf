package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	applicant := s.signIn("asha@example.com", models.RoleUser)
	admin := s.signIn("root@example.edu", models.RoleAdmin)

	w := s.do(http.MethodGet, "/api/v1/settings", &applicant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var settings models.Settings
	decode(t, w, &settings)
	assert.Equal(t, models.DefaultSettings().ValidationReminderDays, settings.ValidationReminderDays)

	settings.MeritListMandatory = true
	settings.DefaultMinimumMeritScore = 40
	w = s.do(http.MethodPut, "/api/v1/settings", &applicant, settings)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, "/api/v1/settings", &admin, settings)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/settings", &applicant, nil)
	decode(t, w, &settings)
	assert.True(t, settings.MeritListMandatory)
	assert.Equal(t, 40.0, settings.DefaultMinimumMeritScore)

	settings.DefaultMinimumMeritScore = -1
	w = s.do(http.MethodPut, "/api/v1/settings", &admin, settings)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDashboardAndRequirement(t *testing.T) {
	s := newTestServer(t, nil)
	applicant := s.signIn("asha@example.com", models.RoleUser)
	registrar := s.signIn("registrar@example.edu", models.RoleAcademicsUser)
	s.submitted(&applicant, "APP-1", "Asha", 80)

	w := s.do(http.MethodGet, "/api/v1/dashboard", &applicant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/dashboard", &registrar, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data models.DashboardData
	decode(t, w, &data)
	assert.Equal(t, 1, data.TotalSubmissions)
	assert.Equal(t, 1, data.PendingValidation)
	require.Len(t, data.RecentSubmissions, 1)

	settings := models.DefaultSettings()
	settings.MeritListMandatory = true
	_, err := s.svc.Settings.Update(context.Background(), settings)
	require.NoError(t, err)

	var check services.RequirementCheck
	w = s.do(http.MethodGet, "/api/v1/applicants/APP-1/merit-requirement?title=Asha&application_status=Approved", &registrar, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &check)
	assert.False(t, check.Required)

	w = s.do(http.MethodGet, "/api/v1/applicants/APP-9/merit-requirement?title=Neha&application_status=Approved", &registrar, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &check)
	assert.True(t, check.Required)
	assert.Contains(t, check.Message, "Neha")
}

func TestSchedulerEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signIn("root@example.edu", models.RoleAdmin)
	registrar := s.signIn("registrar@example.edu", models.RoleAcademicsUser)

	w := s.do(http.MethodGet, "/api/v1/scheduler/status", &registrar, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/scheduler/status", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":false`)

	w = s.do(http.MethodPost, "/api/v1/scheduler/run-once", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Stats services.CycleStats `json:"stats"`
	}
	decode(t, w, &body)
	require.NotNil(t, body.Stats.Rankings)
	assert.Zero(t, body.Stats.Reminders)
}
