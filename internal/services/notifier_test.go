package services

import (
	"context"
	"testing"
	"time"

	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSettings struct {
	settings models.Settings
	err      error
}

func (s staticSettings) Get(ctx context.Context) (*models.Settings, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := s.settings
	return &cp, nil
}

func TestNotifierMessages(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub, staticSettings{settings: models.DefaultSettings()}, logger.NewNop())
	ctx := context.Background()

	submitted := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	validated := time.Date(2025, 6, 5, 14, 30, 0, 0, time.UTC)
	sub := &models.MeritScoreSubmission{
		Name:             "EDU-MRT-2025-00001",
		StudentApplicant: "APP-1",
		ApplicantName:    "Asha",
		ApplicantEmail:   "asha@example.com",
		Program:          "BSc",
		TotalMeritScore:  85,
		PercentageScore:  85,
		SubmissionDate:   &submitted,
		ValidationStatus: models.ValidationRejected,
		ValidatedBy:      "registrar@example.edu",
		ValidationDate:   &validated,
	}

	n.SubmissionReceived(ctx, sub)
	n.ValidationCompleted(ctx, sub)

	received := pub.on(ChannelSubmissions)
	require.Len(t, received, 1)
	assert.Contains(t, received[0].Message, "- Merit Score: 85\n")
	assert.Contains(t, received[0].Message, "- Submission Date: 2025-06-02\n")
	assert.Equal(t, []string{"asha@example.com"}, received[0].Recipients)

	decided := pub.on(ChannelValidations)
	require.Len(t, decided, 1)
	assert.Contains(t, decided[0].Message, "has been rejected.")
	assert.Contains(t, decided[0].Message, "- Validation Date: 2025-06-05 14:30")
	assert.Equal(t, []string{"asha@example.com", "registrar@example.edu"}, decided[0].Recipients)
	assert.False(t, decided[0].CreatedAt.IsZero())
}

func TestNotifierSkipsWhenSettingsUnavailable(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub, staticSettings{err: assert.AnError}, logger.NewNop())

	n.SubmissionReceived(context.Background(), &models.MeritScoreSubmission{Name: "x"})
	assert.Empty(t, pub.on(ChannelSubmissions))

	quiet := NewNotifier(nil, nil, logger.NewNop())
	quiet.ValidationReminder(context.Background(), &models.MeritScoreSubmission{Name: "x"}, 4)
}
