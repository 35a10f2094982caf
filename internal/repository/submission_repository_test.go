package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/database"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestRepos connects to DATABASE_URL and migrates it. Each test gets its
// own academic year so runs do not see each other's rows.
func openTestRepos(t *testing.T) (*Repositories, string) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("Skipping repository test - DATABASE_URL not set")
	}

	db, err := database.New(url)
	if err != nil {
		t.Skipf("Skipping repository test - no connection available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.HealthCheck(); err != nil {
		t.Skipf("Skipping repository test - database not reachable: %v", err)
	}
	require.NoError(t, database.RunMigrations(db))

	year := "T-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM merit_score_submissions WHERE academic_year = $1`, year)
	})
	return NewRepositories(db.DB), year
}

func createSubmission(t *testing.T, repos *Repositories, year, program string, doc models.DocStatus) *models.MeritScoreSubmission {
	t.Helper()
	s := &models.MeritScoreSubmission{
		StudentApplicant:           "APP-" + uuid.NewString()[:6],
		ApplicantName:              "Applicant " + program,
		AcademicYear:               year,
		Program:                    program,
		StudentCategory:            "General",
		DocStatus:                  doc,
		SubmissionStatus:           models.SubmissionSubmitted,
		ValidationStatus:           models.ValidationPending,
		DocumentVerificationStatus: models.DocumentPending,
		TotalMeritScore:            80,
		MaximumPossibleScore:       100,
	}
	merit.Recalculate(s)
	require.NoError(t, repos.Submissions.Create(context.Background(), s))
	return s
}

func TestSubmissionRepositoryApplyValidation(t *testing.T) {
	repos, year := openTestRepos(t)
	ctx := context.Background()
	sub := createSubmission(t, repos, year, "BSc", models.DocStatusSubmitted)

	remarks := "documents checked"
	approve := ValidationUpdate{
		Status:           models.ValidationValidated,
		SubmissionStatus: models.SubmissionApproved,
		VerifyDocuments:  true,
		ValidatedBy:      "registrar@example.edu",
		ValidationDate:   time.Now(),
		AdminRemarks:     &remarks,
	}
	require.NoError(t, repos.Submissions.ApplyValidation(ctx, sub.ID, approve))

	got, err := repos.Submissions.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ValidationValidated, got.ValidationStatus)
	assert.Equal(t, models.SubmissionApproved, got.SubmissionStatus)
	assert.Equal(t, models.DocumentVerified, got.DocumentVerificationStatus)
	assert.Equal(t, "registrar@example.edu", got.ValidatedBy)
	assert.Equal(t, remarks, got.AdminRemarks)

	reject := approve
	reject.Status = models.ValidationRejected
	reject.SubmissionStatus = models.SubmissionRejected
	assert.ErrorIs(t, repos.Submissions.ApplyValidation(ctx, sub.ID, reject), ErrStaleState, "a decided submission is not touched")

	draft := createSubmission(t, repos, year, "BSc", models.DocStatusDraft)
	assert.ErrorIs(t, repos.Submissions.ApplyValidation(ctx, draft.ID, approve), ErrStaleState, "drafts cannot be validated")
}

func TestSubmissionRepositoryApplyValidationKeepsDocumentDecision(t *testing.T) {
	repos, year := openTestRepos(t)
	ctx := context.Background()
	sub := createSubmission(t, repos, year, "BSc", models.DocStatusSubmitted)

	require.NoError(t, repos.Submissions.ApplyDocumentVerification(ctx, sub.ID, models.DocumentRejected, time.Now()))
	require.NoError(t, repos.Submissions.ApplyValidation(ctx, sub.ID, ValidationUpdate{
		Status:           models.ValidationValidated,
		SubmissionStatus: models.SubmissionApproved,
		VerifyDocuments:  true,
		ValidationDate:   time.Now(),
	}))

	got, err := repos.Submissions.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentRejected, got.DocumentVerificationStatus)
	assert.Empty(t, got.AdminRemarks, "nil remarks leave the column alone")
}

func TestSubmissionRepositoryApplyDocumentVerification(t *testing.T) {
	repos, year := openTestRepos(t)
	ctx := context.Background()
	sub := createSubmission(t, repos, year, "BSc", models.DocStatusSubmitted)

	require.NoError(t, repos.Submissions.ApplyDocumentVerification(ctx, sub.ID, models.DocumentVerified, time.Now()))
	assert.ErrorIs(t, repos.Submissions.ApplyDocumentVerification(ctx, sub.ID, models.DocumentRejected, time.Now()), ErrStaleState)

	got, err := repos.Submissions.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentVerified, got.DocumentVerificationStatus)

	draft := createSubmission(t, repos, year, "BSc", models.DocStatusDraft)
	assert.ErrorIs(t, repos.Submissions.ApplyDocumentVerification(ctx, draft.ID, models.DocumentVerified, time.Now()), ErrStaleState)
}

func TestSubmissionRepositoryTransitionDocStatus(t *testing.T) {
	repos, year := openTestRepos(t)
	ctx := context.Background()
	sub := createSubmission(t, repos, year, "BSc", models.DocStatusDraft)

	submittedAt := time.Now().Add(-time.Hour).Truncate(time.Microsecond)
	submit := DocTransition{
		From:             models.DocStatusDraft,
		To:               models.DocStatusSubmitted,
		SubmissionStatus: models.SubmissionSubmitted,
		SubmissionDate:   &submittedAt,
		UpdatedAt:        time.Now(),
	}
	require.NoError(t, repos.Submissions.TransitionDocStatus(ctx, sub.ID, submit))
	assert.ErrorIs(t, repos.Submissions.TransitionDocStatus(ctx, sub.ID, submit), ErrStaleState, "already submitted")

	cancel := DocTransition{From: models.DocStatusSubmitted, To: models.DocStatusCancelled, SubmissionStatus: models.SubmissionDraft, UpdatedAt: time.Now()}
	require.NoError(t, repos.Submissions.TransitionDocStatus(ctx, sub.ID, cancel))

	got, err := repos.Submissions.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusCancelled, got.DocStatus)
	require.NotNil(t, got.SubmissionDate)
	assert.True(t, submittedAt.Equal(*got.SubmissionDate), "a nil date keeps the stored one")

	got.TeacherComments = "late edit"
	assert.ErrorIs(t, repos.Submissions.Update(ctx, got), ErrStaleState, "cancelled submissions are read-only")

	assert.ErrorIs(t, repos.Submissions.TransitionDocStatus(ctx, uuid.New(), submit), ErrStaleState)
}

func TestSubmissionRepositoryUpdateRanksScope(t *testing.T) {
	repos, year := openTestRepos(t)
	ctx := context.Background()
	bsc := createSubmission(t, repos, year, "BSc", models.DocStatusSubmitted)
	bcom := createSubmission(t, repos, year, "BCom", models.DocStatusSubmitted)

	all := []merit.RankAssignment{
		{SubmissionID: bsc.ID, Name: bsc.Name, MeritRank: 1, CategoryRank: 1},
		{SubmissionID: bcom.ID, Name: bcom.Name, MeritRank: 2, CategoryRank: 1},
	}
	require.NoError(t, repos.Submissions.UpdateRanks(ctx, year, "", all))

	// A program-scoped refresh resets only that program.
	require.NoError(t, repos.Submissions.UpdateRanks(ctx, year, "BSc", nil))

	gotBSc, err := repos.Submissions.GetByID(ctx, bsc.ID)
	require.NoError(t, err)
	assert.Zero(t, gotBSc.MeritRank)
	assert.Zero(t, gotBSc.CategoryRank)

	gotBCom, err := repos.Submissions.GetByID(ctx, bcom.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotBCom.MeritRank)
	assert.Equal(t, 1, gotBCom.CategoryRank)

	// An empty program resets the whole academic year.
	require.NoError(t, repos.Submissions.UpdateRanks(ctx, year, "", nil))
	gotBCom, err = repos.Submissions.GetByID(ctx, bcom.ID)
	require.NoError(t, err)
	assert.Zero(t, gotBCom.MeritRank)
}
