package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository"
)

const defaultLockTTL = 30 * time.Second

// WorkflowConfig holds process-level workflow tuning. Policy toggles come
// from the stored settings on every call.
type WorkflowConfig struct {
	LockTTL time.Duration
}

// ValidationWorkflow runs the approve/reject and document verification
// transitions of merit submissions. Transitions on one submission are
// serialized through the locker and guarded by conditional updates.
type ValidationWorkflow struct {
	repos    *repository.Repositories
	locker   Locker
	notifier *Notifier
	settings settingsReader
	validate *validator.Validate
	logger   logger.Logger
	now      func() time.Time

	mu     sync.RWMutex
	config WorkflowConfig
}

// NewValidationWorkflow creates a workflow with the given initial config
func NewValidationWorkflow(repos *repository.Repositories, locker Locker, notifier *Notifier, settings settingsReader, validate *validator.Validate, log logger.Logger, cfg WorkflowConfig) *ValidationWorkflow {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return &ValidationWorkflow{
		repos:    repos,
		locker:   locker,
		notifier: notifier,
		settings: settings,
		validate: validate,
		logger:   log,
		now:      time.Now,
		config:   cfg,
	}
}

// Config returns the current workflow config
func (w *ValidationWorkflow) Config() WorkflowConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// SetConfig replaces the workflow config
func (w *ValidationWorkflow) SetConfig(cfg WorkflowConfig) {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	w.mu.Lock()
	w.config = cfg
	w.mu.Unlock()
}

// resolveSubmission loads a submission by id or name
func resolveSubmission(ctx context.Context, repos *repository.Repositories, ref, op string) (*models.MeritScoreSubmission, error) {
	var (
		sub *models.MeritScoreSubmission
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		sub, err = repos.Submissions.GetByID(ctx, id)
	} else {
		sub, err = repos.Submissions.GetByName(ctx, ref)
	}
	if err != nil {
		return nil, storeError(err, "merit submission "+ref, op)
	}
	return sub, nil
}

func (w *ValidationWorkflow) lock(ctx context.Context, id uuid.UUID, op string) (func(), error) {
	release, err := acquireLock(ctx, w.locker, "merit:submission:"+id.String(), uuid.NewString(), w.Config().LockTTL)
	if err != nil {
		w.logger.Warn("Could not lock submission", "submission_id", id, "error", err)
		return nil, apperrors.Conflict("another update to this merit submission is in progress", err).WithOperation(op)
	}
	return release, nil
}

func requireValidator(actor models.Actor, op string) error {
	if !actor.CanValidate() {
		return apperrors.Forbidden("insufficient permissions to validate merit submissions", nil).
			WithOperation(op).WithDetails("role " + actor.Role)
	}
	return nil
}

func checkValidatable(sub *models.MeritScoreSubmission, op string) error {
	if !sub.IsSubmitted() {
		return apperrors.InvalidState("only submitted merit scores can be validated", nil).
			WithOperation(op).WithDetails("docstatus " + sub.DocStatus.String())
	}
	if sub.ValidationStatus != models.ValidationPending {
		return apperrors.InvalidState(
			fmt.Sprintf("merit submission %s has already been %s", sub.Name, strings.ToLower(string(sub.ValidationStatus))), nil).
			WithOperation(op)
	}
	return nil
}

// Validate approves or rejects a pending, submitted merit submission
func (w *ValidationWorkflow) Validate(ctx context.Context, ref string, action models.ValidationAction, comments string, actor models.Actor) (*models.MeritScoreSubmission, error) {
	const op = "Validate"

	if err := requireValidator(actor, op); err != nil {
		return nil, err
	}
	comments = strings.TrimSpace(comments)
	switch action {
	case models.ActionApprove:
	case models.ActionReject:
		if comments == "" {
			return nil, apperrors.PreconditionFailed("please provide a rejection reason", nil).WithOperation(op)
		}
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid action %q", action), nil).WithOperation(op)
	}

	sub, err := resolveSubmission(ctx, w.repos, ref, op)
	if err != nil {
		return nil, err
	}

	release, err := w.lock(ctx, sub.ID, op)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock; the first read may predate a concurrent decision.
	if sub, err = resolveSubmission(ctx, w.repos, sub.ID.String(), op); err != nil {
		return nil, err
	}
	if err := checkValidatable(sub, op); err != nil {
		return nil, err
	}

	update := w.decision(action, comments, actor)
	err = w.repos.Tx.WithTransaction(ctx, func(repos *repository.Repositories) error {
		if err := repos.Submissions.ApplyValidation(ctx, sub.ID, update); err != nil {
			return err
		}
		return closeOpenRecord(ctx, repos, sub.ID, action, comments, actor, update.ValidationDate)
	})
	if err != nil {
		return nil, w.transitionError(err, sub, op)
	}

	w.logger.Info("Merit submission validated",
		"submission", sub.Name, "action", action, "validated_by", update.ValidatedBy)

	updated, err := resolveSubmission(ctx, w.repos, sub.ID.String(), op)
	if err != nil {
		return nil, err
	}
	w.notifier.ValidationCompleted(ctx, updated)
	return updated, nil
}

func (w *ValidationWorkflow) decision(action models.ValidationAction, comments string, actor models.Actor) repository.ValidationUpdate {
	u := repository.ValidationUpdate{
		ValidatedBy:    actor.DisplayName(),
		ValidationDate: w.now(),
	}
	if comments != "" {
		u.AdminRemarks = &comments
	}
	if action == models.ActionApprove {
		u.Status = models.ValidationValidated
		u.SubmissionStatus = models.SubmissionApproved
		u.VerifyDocuments = true
	} else {
		u.Status = models.ValidationRejected
		u.SubmissionStatus = models.SubmissionRejected
	}
	return u
}

// closeOpenRecord marks a reviewer's open validation record with the same
// decision so both views agree
func closeOpenRecord(ctx context.Context, repos *repository.Repositories, submissionID uuid.UUID, action models.ValidationAction, comments string, actor models.Actor, at time.Time) error {
	record, err := repos.Validations.GetBySubmission(ctx, submissionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !record.IsOpen() {
		return nil
	}

	record.DocStatus = models.DocStatusSubmitted
	record.ValidationDate = at
	if record.Validator == "" {
		record.Validator = actor.DisplayName()
	}
	if comments != "" {
		record.ValidationComments = comments
	}
	if action == models.ActionApprove {
		record.ValidationStatus = models.ReviewValidated
		record.FinalDecision = models.DecisionApproved
	} else {
		record.ValidationStatus = models.ReviewRejected
		record.FinalDecision = models.DecisionRejected
	}
	return repos.Validations.Update(ctx, record)
}

func (w *ValidationWorkflow) transitionError(err error, sub *models.MeritScoreSubmission, op string) error {
	if errors.Is(err, repository.ErrStaleState) {
		w.logger.Warn("Lost validation race", "submission", sub.Name)
		return apperrors.InvalidState(
			fmt.Sprintf("merit submission %s is no longer pending", sub.Name), err).WithOperation(op)
	}
	w.logger.Error("Validation transition failed", err, "submission", sub.Name)
	return storeError(err, "merit submission", op)
}

// UpdateDocumentVerification records the outcome of supporting document
// verification. It moves independently of score validation.
func (w *ValidationWorkflow) UpdateDocumentVerification(ctx context.Context, ref string, status models.DocumentVerificationStatus, actor models.Actor) (*models.MeritScoreSubmission, error) {
	const op = "UpdateDocumentVerification"

	if err := requireValidator(actor, op); err != nil {
		return nil, err
	}
	if _, err := models.ParseDocumentDecision(string(status)); err != nil {
		return nil, apperrors.InvalidInput(err.Error(), nil).WithOperation(op)
	}

	sub, err := resolveSubmission(ctx, w.repos, ref, op)
	if err != nil {
		return nil, err
	}

	release, err := w.lock(ctx, sub.ID, op)
	if err != nil {
		return nil, err
	}
	defer release()

	if sub, err = resolveSubmission(ctx, w.repos, sub.ID.String(), op); err != nil {
		return nil, err
	}
	if !sub.IsSubmitted() {
		return nil, apperrors.InvalidState("document verification is only possible for submitted merit scores", nil).WithOperation(op)
	}
	if sub.DocumentVerificationStatus != models.DocumentPending {
		return nil, apperrors.InvalidState(
			fmt.Sprintf("documents of %s have already been %s", sub.Name, strings.ToLower(string(sub.DocumentVerificationStatus))), nil).
			WithOperation(op)
	}

	if err := w.repos.Submissions.ApplyDocumentVerification(ctx, sub.ID, status, w.now()); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.InvalidState("document verification is no longer pending", err).WithOperation(op)
		}
		return nil, storeError(err, "merit submission", op)
	}

	w.logger.Info("Document verification updated", "submission", sub.Name, "status", status, "by", actor.DisplayName())
	return resolveSubmission(ctx, w.repos, sub.ID.String(), op)
}

// CheckEditable enforces the score lock: once validated, only remarks and
// comments may change unless the settings allow score modification
func (w *ValidationWorkflow) CheckEditable(ctx context.Context, existing *models.MeritScoreSubmission, in *models.MeritSubmissionInput) error {
	if existing.ValidationStatus != models.ValidationValidated {
		return nil
	}
	settings, err := w.settings.Get(ctx)
	if err != nil {
		return err
	}
	if settings.AllowScoreModificationAfterValidation {
		return nil
	}
	if changed := lockedFieldChanges(existing, in); len(changed) > 0 {
		return apperrors.InvalidState(
			fmt.Sprintf("cannot modify '%s' after validation", changed[0]), nil).
			WithOperation("UpdateSubmission").
			WithDetails("enable 'Allow Score Modification After Validation' in Education Management Settings to allow changes")
	}
	return nil
}

func lockedFieldChanges(s *models.MeritScoreSubmission, in *models.MeritSubmissionInput) []string {
	var changed []string
	check := func(label string, differs bool) {
		if differs {
			changed = append(changed, label)
		}
	}
	check("Student Applicant", s.StudentApplicant != in.StudentApplicant)
	check("Applicant Name", s.ApplicantName != in.ApplicantName)
	check("Applicant Email", s.ApplicantEmail != in.ApplicantEmail)
	check("Academic Year", s.AcademicYear != in.AcademicYear)
	check("Program", s.Program != in.Program)
	check("Student Category", s.StudentCategory != in.StudentCategory)
	check("Total Merit Score", s.TotalMeritScore != in.TotalMeritScore)
	check("Maximum Possible Score", s.MaximumPossibleScore != in.MaximumPossibleScore)
	check("Supporting Documents", s.SupportingDocuments != in.SupportingDocuments)
	check("Submission Date", !sameTime(s.SubmissionDate, in.SubmissionDate))
	check("Subject Scores", !sameSubjects(s.SubjectScores, in.SubjectScores))
	return changed
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameSubjects(a, b []models.SubjectScore) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Subject != b[i].Subject || a[i].Score != b[i].Score || a[i].MaximumScore != b[i].MaximumScore {
			return false
		}
	}
	return true
}

// CreateValidationRecord opens a reviewer record for a submission. An
// existing record is returned as-is.
func (w *ValidationWorkflow) CreateValidationRecord(ctx context.Context, ref string, actor models.Actor) (*models.MeritScoreValidation, error) {
	const op = "CreateValidationRecord"

	if err := requireValidator(actor, op); err != nil {
		return nil, err
	}
	sub, err := resolveSubmission(ctx, w.repos, ref, op)
	if err != nil {
		return nil, err
	}

	existing, err := w.repos.Validations.GetBySubmission(ctx, sub.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "validation record", op)
	}

	record := &models.MeritScoreValidation{
		MeritSubmissionID:  sub.ID,
		MeritSubmission:    sub.Name,
		ApplicantName:      sub.ApplicantName,
		Validator:          actor.DisplayName(),
		OriginalTotalScore: sub.TotalMeritScore,
		OriginalPercentage: sub.PercentageScore,
		VerifiedTotalScore: sub.TotalMeritScore,
		ValidationStatus:   models.ReviewPending,
		DocStatus:          models.DocStatusDraft,
		ValidationDate:     w.now(),
	}
	recalculateRecord(record, sub.MaximumPossibleScore)

	if err := w.repos.Validations.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, getErr := w.repos.Validations.GetBySubmission(ctx, sub.ID)
			if getErr == nil {
				return existing, nil
			}
		}
		return nil, storeError(err, "validation record", op)
	}

	w.logger.Info("Validation record created", "submission", sub.Name, "validator", record.Validator)
	return record, nil
}

// recalculateRecord derives the verified percentage and the differences
// against the original scores
func recalculateRecord(v *models.MeritScoreValidation, maximum float64) {
	if v.VerifiedTotalScore != 0 && maximum != 0 {
		v.VerifiedPercentage = merit.Percentage(v.VerifiedTotalScore, maximum)
	}
	v.ScoreDifference = 0
	if v.VerifiedTotalScore != 0 && v.OriginalTotalScore != 0 {
		v.ScoreDifference = roundScore(v.VerifiedTotalScore - v.OriginalTotalScore)
	}
	v.PercentageDifference = 0
	if v.VerifiedPercentage != 0 && v.OriginalPercentage != 0 {
		v.PercentageDifference = roundScore(v.VerifiedPercentage - v.OriginalPercentage)
	}
}

// ReviewUpdate is a reviewer's in-progress change to a validation record
type ReviewUpdate struct {
	VerifiedTotalScore *float64 `json:"verified_total_score" validate:"omitempty,gte=0"`
	Comments           *string  `json:"validation_comments" validate:"omitempty,max=2000"`
}

// UpdateValidationRecord saves reviewer progress and moves the record to
// In Progress
func (w *ValidationWorkflow) UpdateValidationRecord(ctx context.Context, id uuid.UUID, in ReviewUpdate, actor models.Actor) (*models.MeritScoreValidation, error) {
	const op = "UpdateValidationRecord"

	if err := requireValidator(actor, op); err != nil {
		return nil, err
	}
	record, sub, err := w.openRecord(ctx, id, op)
	if err != nil {
		return nil, err
	}
	if err := w.applyReview(record, sub, in, op); err != nil {
		return nil, err
	}
	record.ValidationStatus = models.ReviewInProgress
	record.Validator = actor.DisplayName()

	if err := w.repos.Validations.Update(ctx, record); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.InvalidState("validation record has already been decided", err).WithOperation(op)
		}
		return nil, storeError(err, "validation record", op)
	}
	return record, nil
}

func (w *ValidationWorkflow) openRecord(ctx context.Context, id uuid.UUID, op string) (*models.MeritScoreValidation, *models.MeritScoreSubmission, error) {
	record, err := w.repos.Validations.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeError(err, "validation record", op)
	}
	if !record.IsOpen() {
		return nil, nil, apperrors.InvalidState("validation record has already been decided", nil).WithOperation(op)
	}
	sub, err := w.repos.Submissions.GetByID(ctx, record.MeritSubmissionID)
	if err != nil {
		return nil, nil, storeError(err, "merit submission", op)
	}
	return record, sub, nil
}

func (w *ValidationWorkflow) applyReview(record *models.MeritScoreValidation, sub *models.MeritScoreSubmission, in ReviewUpdate, op string) error {
	if err := w.validate.Struct(in); err != nil {
		return apperrors.ValidationError("invalid validation review", err).WithOperation(op).WithDetails(err.Error())
	}
	if in.VerifiedTotalScore != nil {
		v := *in.VerifiedTotalScore
		if sub.MaximumPossibleScore > 0 && v > sub.MaximumPossibleScore {
			return apperrors.ValidationError(
				fmt.Sprintf("verified total score (%.2f) cannot be greater than maximum possible score (%.2f)", v, sub.MaximumPossibleScore), nil).WithOperation(op)
		}
		record.VerifiedTotalScore = v
	}
	if in.Comments != nil {
		record.ValidationComments = strings.TrimSpace(*in.Comments)
	}
	recalculateRecord(record, sub.MaximumPossibleScore)
	return nil
}

// DecideValidationRecord closes a validation record and applies the decision
// to its submission. An approval with a changed verified score replaces the
// submission's total.
func (w *ValidationWorkflow) DecideValidationRecord(ctx context.Context, id uuid.UUID, action models.ValidationAction, in ReviewUpdate, actor models.Actor) (*models.MeritScoreValidation, error) {
	const op = "DecideValidationRecord"

	if err := requireValidator(actor, op); err != nil {
		return nil, err
	}
	if action != models.ActionApprove && action != models.ActionReject {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid action %q", action), nil).WithOperation(op)
	}

	record, sub, err := w.openRecord(ctx, id, op)
	if err != nil {
		return nil, err
	}

	release, err := w.lock(ctx, sub.ID, op)
	if err != nil {
		return nil, err
	}
	defer release()

	if sub, err = w.repos.Submissions.GetByID(ctx, sub.ID); err != nil {
		return nil, storeError(err, "merit submission", op)
	}
	if err := checkValidatable(sub, op); err != nil {
		return nil, err
	}
	if err := w.applyReview(record, sub, in, op); err != nil {
		return nil, err
	}

	now := w.now()
	record.DocStatus = models.DocStatusSubmitted
	record.ValidationDate = now
	record.Validator = actor.DisplayName()

	update := repository.ValidationUpdate{ValidatedBy: actor.DisplayName(), ValidationDate: now}
	if action == models.ActionApprove {
		record.ValidationStatus = models.ReviewValidated
		record.FinalDecision = models.DecisionApproved
		update.Status = models.ValidationValidated
		update.SubmissionStatus = models.SubmissionApproved
		update.VerifyDocuments = true
		if record.ValidationComments != "" {
			update.AdminRemarks = &record.ValidationComments
		}
	} else {
		record.ValidationStatus = models.ReviewRejected
		record.FinalDecision = models.DecisionRejected
		update.Status = models.ValidationRejected
		update.SubmissionStatus = models.SubmissionRejected
		remarks := record.ValidationComments
		if remarks == "" {
			remarks = "Merit submission rejected during validation"
		}
		update.AdminRemarks = &remarks
	}

	err = w.repos.Tx.WithTransaction(ctx, func(repos *repository.Repositories) error {
		if err := repos.Validations.Update(ctx, record); err != nil {
			return err
		}
		if action == models.ActionApprove && record.VerifiedTotalScore != 0 && record.ScoreDifference != 0 {
			pct := merit.Percentage(record.VerifiedTotalScore, sub.MaximumPossibleScore)
			grade := models.Grade("")
			if pct != 0 {
				grade = merit.GradeFor(pct)
			}
			if err := repos.Submissions.OverrideScore(ctx, sub.ID, record.VerifiedTotalScore, pct, grade); err != nil {
				return err
			}
		}
		return repos.Submissions.ApplyValidation(ctx, sub.ID, update)
	})
	if err != nil {
		return nil, w.transitionError(err, sub, op)
	}

	w.logger.Info("Validation record decided",
		"submission", sub.Name, "decision", record.FinalDecision, "score_difference", record.ScoreDifference)

	if updated, err := w.repos.Submissions.GetByID(ctx, sub.ID); err == nil {
		w.notifier.ValidationCompleted(ctx, updated)
	}
	return record, nil
}

// PendingValidations lists validation records that are still open
func (w *ValidationWorkflow) PendingValidations(ctx context.Context) ([]models.MeritScoreValidation, error) {
	records, err := w.repos.Validations.ListOpen(ctx)
	if err != nil {
		return nil, storeError(err, "validation records", "PendingValidations")
	}
	return records, nil
}

// GetValidationRecord returns one validation record
func (w *ValidationWorkflow) GetValidationRecord(ctx context.Context, id uuid.UUID) (*models.MeritScoreValidation, error) {
	record, err := w.repos.Validations.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "validation record", "GetValidationRecord")
	}
	return record, nil
}

func roundScore(v float64) float64 {
	return merit.Round2(v)
}
