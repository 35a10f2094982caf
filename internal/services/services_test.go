package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/auth"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository"
	"github.com/ngavde/education-management/internal/repository/memstore"
	"github.com/ngavde/education-management/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.Cost = bcrypt.MinCost
}

var (
	registrar = models.Actor{UserID: uuid.New(), Email: "registrar@example.edu", Role: string(models.RoleAcademicsUser)}
	applicant = models.Actor{UserID: uuid.New(), Email: "asha@example.com", Role: string(models.RoleUser)}
)

type published struct {
	channel string
	msg     Notification
}

// recordingPublisher keeps every published notification
type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{channel: channel, msg: message.(Notification)})
	return nil
}

func (p *recordingPublisher) on(channel string) []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Notification
	for _, m := range p.messages {
		if m.channel == channel {
			out = append(out, m.msg)
		}
	}
	return out
}

type fixture struct {
	store *memstore.Store
	repos *repository.Repositories
	svc   *Services
	pub   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	repos := store.Repositories()
	pub := &recordingPublisher{}
	cfg := &config.Config{JWTSecret: "test-secret", SubmissionLockTTL: time.Second}
	svc := NewServices(repos, cfg, Options{Publisher: pub, Logger: logger.NewNop()})
	return &fixture{store: store, repos: repos, svc: svc, pub: pub}
}

// submitted seeds a submitted submission that is pending validation
func (f *fixture) submitted(name string, total, max float64, mutate ...func(*models.MeritScoreSubmission)) models.MeritScoreSubmission {
	now := time.Now()
	sub := models.MeritScoreSubmission{
		StudentApplicant:           "APP-" + name,
		ApplicantName:              name,
		ApplicantEmail:             strings.ToLower(name) + "@example.com",
		AcademicYear:               "2025-26",
		Program:                    "BSc",
		DocStatus:                  models.DocStatusSubmitted,
		SubmissionStatus:           models.SubmissionSubmitted,
		ValidationStatus:           models.ValidationPending,
		DocumentVerificationStatus: models.DocumentPending,
		TotalMeritScore:            total,
		MaximumPossibleScore:       max,
		SubmissionDate:             &now,
		CreatedBy:                  applicant.UserID,
	}
	merit.Recalculate(&sub)
	for _, m := range mutate {
		m(&sub)
	}
	return f.store.PutSubmission(sub)
}

func approved(s *models.MeritScoreSubmission) {
	s.ValidationStatus = models.ValidationValidated
	s.SubmissionStatus = models.SubmissionApproved
	s.DocumentVerificationStatus = models.DocumentVerified
}

func createdAt(at time.Time) func(*models.MeritScoreSubmission) {
	return func(s *models.MeritScoreSubmission) { s.CreatedAt = at }
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.MeritScoreSubmission {
	t.Helper()
	sub, ok := f.store.Submission(id)
	if !ok {
		t.Fatalf("submission %s not found", id)
	}
	return sub
}

func inputFrom(s models.MeritScoreSubmission) models.MeritSubmissionInput {
	return models.MeritSubmissionInput{
		StudentApplicant:     s.StudentApplicant,
		ApplicantName:        s.ApplicantName,
		ApplicantEmail:       s.ApplicantEmail,
		AcademicYear:         s.AcademicYear,
		Program:              s.Program,
		StudentCategory:      s.StudentCategory,
		TotalMeritScore:      s.TotalMeritScore,
		MaximumPossibleScore: s.MaximumPossibleScore,
		SubjectScores:        s.SubjectScores,
		SupportingDocuments:  s.SupportingDocuments,
		SubmissionDate:       s.SubmissionDate,
		TeacherComments:      s.TeacherComments,
		AdminRemarks:         s.AdminRemarks,
	}
}
