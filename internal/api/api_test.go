package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/auth"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository/memstore"
	"github.com/ngavde/education-management/internal/services"
	"github.com/ngavde/education-management/pkg/config"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "api-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	auth.Cost = bcrypt.MinCost
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *memstore.Store
	svc    *services.Services
	jwt    *auth.JWTService
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) *testServer {
	t.Helper()
	store := memstore.New()
	repos := store.Repositories()
	cfg := &config.Config{JWTSecret: testSecret, SubmissionLockTTL: time.Second}
	log := logger.NewNop()
	svc := services.NewServices(repos, cfg, services.Options{Logger: log})

	router := gin.New()
	SetupRoutes(router, Options{
		Services:        svc,
		Scheduler:       services.NewScheduler(repos, svc, log),
		SchedulerConfig: services.DefaultSchedulerConfig(),
		Config:          cfg,
		Logger:          log,
		HealthChecks:    checks,
	})
	return &testServer{t: t, router: router, store: store, svc: svc, jwt: auth.NewJWTService(testSecret)}
}

// user is a signed-in caller
type user struct {
	id    uuid.UUID
	token string
}

func (s *testServer) signIn(email string, role models.UserRole) user {
	s.t.Helper()
	id := uuid.New()
	token, _, err := s.jwt.GenerateToken(auth.Claims{UserID: id, Email: email, Role: string(role)})
	require.NoError(s.t, err)
	return user{id: id, token: token}
}

func (s *testServer) do(method, path string, as *user, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+as.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decode(t, w, &body)
	return body.Code
}

func submissionBody(applicant, name string, total float64) gin.H {
	return gin.H{
		"student_applicant":      applicant,
		"applicant_name":         name,
		"applicant_email":        "applicant@example.com",
		"academic_year":          "2025-26",
		"program":                "BSc",
		"total_merit_score":      total,
		"maximum_possible_score": 100,
		"supporting_documents":   "marksheet.pdf",
	}
}

// submitted creates and submits a submission as owner
func (s *testServer) submitted(owner *user, applicant, name string, total float64) models.MeritScoreSubmission {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/submissions", owner, submissionBody(applicant, name, total))
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var sub models.MeritScoreSubmission
	decode(s.t, w, &sub)

	w = s.do(http.MethodPost, "/api/v1/submissions/"+sub.Name+"/submit", owner, nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	decode(s.t, w, &sub)
	return sub
}

func failingCheck(ctx context.Context) error {
	return context.DeadlineExceeded
}
