package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/models"
)

// Notification channels
const (
	ChannelSubmissions = "merit:submissions"
	ChannelValidations = "merit:validations"
	ChannelReminders   = "merit:reminders"
)

// Notification is the payload published for merit events
type Notification struct {
	Event            string    `json:"event"`
	Submission       string    `json:"submission"`
	StudentApplicant string    `json:"student_applicant"`
	Recipients       []string  `json:"recipients"`
	Subject          string    `json:"subject"`
	Message          string    `json:"message"`
	CreatedAt        time.Time `json:"created_at"`
}

type settingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// Notifier publishes merit notifications. Failures are logged and never
// returned to callers.
type Notifier struct {
	publisher Publisher
	settings  settingsReader
	logger    logger.Logger
}

// NewNotifier creates a notifier. A nil publisher only logs.
func NewNotifier(publisher Publisher, settings settingsReader, log logger.Logger) *Notifier {
	return &Notifier{publisher: publisher, settings: settings, logger: log}
}

// SubmissionReceived announces a newly submitted merit score
func (n *Notifier) SubmissionReceived(ctx context.Context, sub *models.MeritScoreSubmission) {
	if !n.enabled(ctx, func(s *models.Settings) bool { return s.NotifyOnSubmission }) {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", sub.ApplicantName)
	b.WriteString("Your merit score submission has been received successfully.\n\n")
	b.WriteString("Details:\n")
	fmt.Fprintf(&b, "- Merit Score: %g\n", sub.TotalMeritScore)
	fmt.Fprintf(&b, "- Percentage: %g%%\n", sub.PercentageScore)
	fmt.Fprintf(&b, "- Program: %s\n", sub.Program)
	if sub.SubmissionDate != nil {
		fmt.Fprintf(&b, "- Submission Date: %s\n", sub.SubmissionDate.Format("2006-01-02"))
	}
	b.WriteString("\nYour submission is now under review.")

	n.publish(ctx, ChannelSubmissions, Notification{
		Event:            "submission",
		Submission:       sub.Name,
		StudentApplicant: sub.StudentApplicant,
		Recipients:       recipients(sub.ApplicantEmail),
		Subject:          "Merit Score Submitted - " + sub.ApplicantName,
		Message:          b.String(),
	})
}

// ValidationCompleted announces an approve or reject decision
func (n *Notifier) ValidationCompleted(ctx context.Context, sub *models.MeritScoreSubmission) {
	if !n.enabled(ctx, func(s *models.Settings) bool { return s.NotifyOnValidation }) {
		return
	}

	status := string(sub.ValidationStatus)
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", sub.ApplicantName)
	fmt.Fprintf(&b, "Your merit score submission has been %s.\n\n", strings.ToLower(status))
	b.WriteString("Details:\n")
	fmt.Fprintf(&b, "- Merit Score: %g\n", sub.TotalMeritScore)
	fmt.Fprintf(&b, "- Status: %s\n", status)
	fmt.Fprintf(&b, "- Validated By: %s\n", sub.ValidatedBy)
	if sub.ValidationDate != nil {
		fmt.Fprintf(&b, "- Validation Date: %s\n", sub.ValidationDate.Format("2006-01-02 15:04"))
	}

	n.publish(ctx, ChannelValidations, Notification{
		Event:            "validation",
		Submission:       sub.Name,
		StudentApplicant: sub.StudentApplicant,
		Recipients:       recipients(sub.ApplicantEmail, sub.ValidatedBy),
		Subject:          "Merit Score Validation Update - " + sub.ApplicantName,
		Message:          b.String(),
	})
}

// ValidationReminder nudges reviewers about a submission waiting too long
func (n *Notifier) ValidationReminder(ctx context.Context, sub *models.MeritScoreSubmission, waitingDays int) {
	n.publish(ctx, ChannelReminders, Notification{
		Event:            "validation_reminder",
		Submission:       sub.Name,
		StudentApplicant: sub.StudentApplicant,
		Subject:          "Merit Score Validation Pending - " + sub.ApplicantName,
		Message: fmt.Sprintf("Merit submission %s for %s has been pending validation for %d days.",
			sub.Name, sub.ApplicantName, waitingDays),
	})
}

func (n *Notifier) enabled(ctx context.Context, flag func(*models.Settings) bool) bool {
	if n.settings == nil {
		return true
	}
	settings, err := n.settings.Get(ctx)
	if err != nil {
		n.logger.Warn("Skipping notification, settings unavailable", "error", err)
		return false
	}
	return flag(settings)
}

func (n *Notifier) publish(ctx context.Context, channel string, msg Notification) {
	msg.CreatedAt = time.Now()
	if n.publisher == nil {
		n.logger.Debug("Notification", "channel", channel, "event", msg.Event, "submission", msg.Submission)
		return
	}
	if err := n.publisher.Publish(ctx, channel, msg); err != nil {
		n.logger.Warn("Merit notification failed", "channel", channel, "submission", msg.Submission, "error", err)
	}
}

func recipients(candidates ...string) []string {
	var out []string
	for _, c := range candidates {
		if strings.Contains(c, "@") {
			out = append(out, c)
		}
	}
	return out
}
