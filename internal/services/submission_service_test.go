package services

import (
	"context"
	"testing"

	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draftInput() models.MeritSubmissionInput {
	return models.MeritSubmissionInput{
		StudentApplicant:     "APP-0001",
		ApplicantName:        "Asha Rao",
		ApplicantEmail:       "asha@example.com",
		AcademicYear:         "2025-26",
		Program:              "BSc",
		StudentCategory:      "OBC",
		TotalMeritScore:      170,
		MaximumPossibleScore: 200,
		SubjectScores: []models.SubjectScore{
			{Subject: "Physics", Score: 90, MaximumScore: 100},
			{Subject: "Chemistry", Score: 80, MaximumScore: 100},
		},
		SupportingDocuments: "/files/marksheet.pdf",
	}
}

func TestCreateSubmission(t *testing.T) {
	f := newFixture(t)

	sub, err := f.svc.Submissions.Create(context.Background(), draftInput(), applicant)
	require.NoError(t, err)

	assert.Regexp(t, `^EDU-MRT-\d{4}-\d{5}$`, sub.Name)
	assert.Equal(t, models.DocStatusDraft, sub.DocStatus)
	assert.Equal(t, models.SubmissionDraft, sub.SubmissionStatus)
	assert.Equal(t, models.ValidationPending, sub.ValidationStatus)
	assert.Equal(t, 85.0, sub.PercentageScore)
	assert.Equal(t, models.GradeBPlus, sub.MeritGrade)
	assert.Equal(t, applicant.UserID, sub.CreatedBy)
	require.Len(t, sub.SubjectScores, 2)
	assert.Equal(t, 2, sub.SubjectScores[1].Position)
	assert.Equal(t, models.GradeA, sub.SubjectScores[0].Grade)
}

func TestCreateSubmissionRejectsBadScores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mismatch := draftInput()
	mismatch.TotalMeritScore = 150
	_, err := f.svc.Submissions.Create(ctx, mismatch, applicant)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidationError), "got %v", err)

	over := draftInput()
	over.SubjectScores = nil
	over.TotalMeritScore = 250
	_, err = f.svc.Submissions.Create(ctx, over, applicant)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidationError), "got %v", err)

	missingYear := draftInput()
	missingYear.AcademicYear = ""
	_, err = f.svc.Submissions.Create(ctx, missingYear, applicant)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidationError), "got %v", err)
}

func TestSubmitSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Submissions.Create(ctx, draftInput(), applicant)
	require.NoError(t, err)

	got, err := f.svc.Submissions.Submit(ctx, sub.Name, applicant)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusSubmitted, got.DocStatus)
	assert.Equal(t, models.SubmissionSubmitted, got.SubmissionStatus)
	assert.NotNil(t, got.SubmissionDate)

	notes := f.pub.on(ChannelSubmissions)
	require.Len(t, notes, 1)
	assert.Equal(t, "Merit Score Submitted - Asha Rao", notes[0].Subject)

	_, err = f.svc.Submissions.Submit(ctx, sub.Name, applicant)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidState), "got %v", err)
}

func TestSubmitRequiresDocumentsWhenMandatory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := draftInput()
	in.SupportingDocuments = ""
	sub, err := f.svc.Submissions.Create(ctx, in, applicant)
	require.NoError(t, err)

	_, err = f.svc.Submissions.Submit(ctx, sub.Name, applicant)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodePreconditionFailed), "got %v", err)

	settings := models.DefaultSettings()
	settings.DocumentUploadMandatory = false
	_, err = f.svc.Settings.Update(ctx, settings)
	require.NoError(t, err)

	_, err = f.svc.Submissions.Submit(ctx, sub.Name, applicant)
	assert.NoError(t, err)
}

func TestSubmitNotificationHonoursSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings := models.DefaultSettings()
	settings.NotifyOnSubmission = false
	_, err := f.svc.Settings.Update(ctx, settings)
	require.NoError(t, err)

	sub, err := f.svc.Submissions.Create(ctx, draftInput(), applicant)
	require.NoError(t, err)
	_, err = f.svc.Submissions.Submit(ctx, sub.Name, applicant)
	require.NoError(t, err)
	assert.Empty(t, f.pub.on(ChannelSubmissions))
}

func TestSubmitSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.pub.err = assert.AnError
	ctx := context.Background()

	sub, err := f.svc.Submissions.Create(ctx, draftInput(), applicant)
	require.NoError(t, err)
	_, err = f.svc.Submissions.Submit(ctx, sub.Name, applicant)
	assert.NoError(t, err)
}

func TestUpdateSubmissionScoreLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submitted("Tara", 80, 100, approved)

	in := inputFrom(sub)
	in.TotalMeritScore = 85
	_, err := f.svc.Submissions.Update(ctx, sub.Name, in, registrar)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidState), "got %v", err)
	assert.Equal(t, 80.0, f.reload(t, sub.ID).TotalMeritScore)

	remarks := inputFrom(sub)
	remarks.AdminRemarks = "re-checked"
	got, err := f.svc.Submissions.Update(ctx, sub.Name, remarks, registrar)
	require.NoError(t, err)
	assert.Equal(t, "re-checked", got.AdminRemarks)

	allow := models.DefaultSettings()
	allow.AllowScoreModificationAfterValidation = true
	_, err = f.svc.Settings.Update(ctx, allow)
	require.NoError(t, err)

	got, err = f.svc.Submissions.Update(ctx, sub.Name, in, registrar)
	require.NoError(t, err)
	assert.Equal(t, 85.0, got.TotalMeritScore)
	assert.Equal(t, models.GradeBPlus, got.MeritGrade)
}

func TestUpdateSubmissionPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submitted("Uma", 80, 100)
	stranger := models.Actor{Role: string(models.RoleUser), Email: "someone@example.com"}

	in := inputFrom(sub)
	in.TeacherComments = "hello"
	_, err := f.svc.Submissions.Update(ctx, sub.Name, in, stranger)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeForbidden), "got %v", err)

	_, err = f.svc.Submissions.Update(ctx, sub.Name, in, applicant)
	assert.NoError(t, err, "the creator may edit")
}

func TestCancelSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submitted("Vik", 80, 100)

	_, err := f.svc.Workflow.CreateValidationRecord(ctx, sub.Name, registrar)
	require.NoError(t, err)

	got, err := f.svc.Submissions.Cancel(ctx, sub.Name, registrar)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusCancelled, got.DocStatus)
	assert.Equal(t, models.SubmissionDraft, got.SubmissionStatus)

	open, err := f.svc.Workflow.PendingValidations(ctx)
	require.NoError(t, err)
	assert.Empty(t, open, "draft validation records are removed")

	_, err = f.svc.Submissions.Cancel(ctx, sub.Name, registrar)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidState), "got %v", err)

	_, err = f.svc.Submissions.Update(ctx, sub.Name, inputFrom(sub), registrar)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidState), "got %v", err)
}

func TestCancelRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submitted("Wes", 80, 100)

	f.store.FailNext = assert.AnError
	_, err := f.svc.Submissions.Cancel(ctx, sub.Name, registrar)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDatabaseError), "got %v", err)
	assert.Equal(t, models.DocStatusSubmitted, f.reload(t, sub.ID).DocStatus)
}

func TestListSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submitted("Xia", 80, 100)
	f.submitted("Yan", 70, 100, approved)
	f.submitted("Zed", 60, 100, func(s *models.MeritScoreSubmission) { s.AcademicYear = "2024-25" })

	all, err := f.svc.Submissions.List(ctx, ListParams{AcademicYear: "2025-26"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	validated, err := f.svc.Submissions.List(ctx, ListParams{ValidationStatus: "Validated"})
	require.NoError(t, err)
	require.Len(t, validated, 1)
	assert.Equal(t, "Yan", validated[0].ApplicantName)

	_, err = f.svc.Submissions.List(ctx, ListParams{ValidationStatus: "Maybe"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput), "got %v", err)
}
