package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository"
)

// SubmissionService manages the draft/submit/cancel lifecycle of merit
// score submissions
type SubmissionService struct {
	repos    *repository.Repositories
	workflow *ValidationWorkflow
	notifier *Notifier
	settings settingsReader
	validate *validator.Validate
	logger   logger.Logger
	now      func() time.Time
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(repos *repository.Repositories, workflow *ValidationWorkflow, notifier *Notifier, settings settingsReader, validate *validator.Validate, log logger.Logger) *SubmissionService {
	return &SubmissionService{
		repos:    repos,
		workflow: workflow,
		notifier: notifier,
		settings: settings,
		validate: validate,
		logger:   log,
		now:      time.Now,
	}
}

// ListParams narrows a submission listing
type ListParams struct {
	AcademicYear     string
	Program          string
	StudentApplicant string
	ValidationStatus string
	Limit            int
	Offset           int
}

func (s *SubmissionService) checkInput(in *models.MeritSubmissionInput, op string) error {
	if err := s.validate.Struct(in); err != nil {
		return apperrors.ValidationError("invalid merit submission", err).WithOperation(op).WithDetails(err.Error())
	}
	return nil
}

func applyInput(sub *models.MeritScoreSubmission, in *models.MeritSubmissionInput) {
	sub.StudentApplicant = in.StudentApplicant
	sub.ApplicantName = in.ApplicantName
	sub.ApplicantEmail = in.ApplicantEmail
	sub.AcademicYear = in.AcademicYear
	sub.Program = in.Program
	sub.StudentCategory = in.StudentCategory
	sub.TotalMeritScore = in.TotalMeritScore
	sub.MaximumPossibleScore = in.MaximumPossibleScore
	sub.SubjectScores = append([]models.SubjectScore(nil), in.SubjectScores...)
	sub.SupportingDocuments = in.SupportingDocuments
	sub.SubmissionDate = in.SubmissionDate
	sub.TeacherComments = in.TeacherComments
	sub.AdminRemarks = in.AdminRemarks
	merit.Recalculate(sub)
}

func canEdit(actor models.Actor, sub *models.MeritScoreSubmission) bool {
	return actor.CanValidate() || (sub.CreatedBy != uuid.Nil && sub.CreatedBy == actor.UserID)
}

// Create stores a new draft submission
func (s *SubmissionService) Create(ctx context.Context, in models.MeritSubmissionInput, actor models.Actor) (*models.MeritScoreSubmission, error) {
	const op = "CreateSubmission"

	if err := s.checkInput(&in, op); err != nil {
		return nil, err
	}

	sub := &models.MeritScoreSubmission{
		DocStatus:                  models.DocStatusDraft,
		SubmissionStatus:           models.SubmissionDraft,
		ValidationStatus:           models.ValidationPending,
		DocumentVerificationStatus: models.DocumentPending,
		CreatedBy:                  actor.UserID,
	}
	applyInput(sub, &in)
	if err := merit.CheckScores(sub); err != nil {
		return nil, apperrors.ValidationError(err.Error(), nil).WithOperation(op)
	}

	if err := s.repos.Submissions.Create(ctx, sub); err != nil {
		s.logger.Error("Failed to create merit submission", err, "student_applicant", sub.StudentApplicant)
		return nil, storeError(err, "merit submission", op)
	}

	s.logger.Info("Merit submission created", "submission", sub.Name, "student_applicant", sub.StudentApplicant)
	return sub, nil
}

// Get returns a submission by id or name
func (s *SubmissionService) Get(ctx context.Context, ref string) (*models.MeritScoreSubmission, error) {
	return resolveSubmission(ctx, s.repos, ref, "GetSubmission")
}

// List returns submissions newest first
func (s *SubmissionService) List(ctx context.Context, p ListParams) ([]models.MeritScoreSubmission, error) {
	filter := repository.SubmissionFilter{
		AcademicYear:     p.AcademicYear,
		Program:          p.Program,
		StudentApplicant: p.StudentApplicant,
		Limit:            p.Limit,
		Offset:           p.Offset,
	}
	if p.ValidationStatus != "" {
		status := models.ValidationStatus(p.ValidationStatus)
		if !status.Valid() {
			return nil, apperrors.InvalidInput("invalid validation status", nil).
				WithOperation("ListSubmissions").WithDetails(p.ValidationStatus)
		}
		filter.ValidationStatus = status
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}

	subs, err := s.repos.Submissions.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "merit submissions", "ListSubmissions")
	}
	return subs, nil
}

// Update replaces the editable fields of a draft or submitted submission.
// Validated submissions only accept remark changes unless the workflow
// config allows score modification.
func (s *SubmissionService) Update(ctx context.Context, ref string, in models.MeritSubmissionInput, actor models.Actor) (*models.MeritScoreSubmission, error) {
	const op = "UpdateSubmission"

	if err := s.checkInput(&in, op); err != nil {
		return nil, err
	}
	sub, err := resolveSubmission(ctx, s.repos, ref, op)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, sub) {
		return nil, apperrors.Forbidden("not allowed to modify this merit submission", nil).WithOperation(op)
	}

	release, err := s.workflow.lock(ctx, sub.ID, op)
	if err != nil {
		return nil, err
	}
	defer release()

	if sub, err = resolveSubmission(ctx, s.repos, sub.ID.String(), op); err != nil {
		return nil, err
	}
	if sub.DocStatus == models.DocStatusCancelled {
		return nil, apperrors.InvalidState("cancelled merit submissions cannot be modified", nil).WithOperation(op)
	}
	if err := s.workflow.CheckEditable(ctx, sub, &in); err != nil {
		return nil, err
	}

	applyInput(sub, &in)
	if err := merit.CheckScores(sub); err != nil {
		return nil, apperrors.ValidationError(err.Error(), nil).WithOperation(op)
	}

	if err := s.repos.Submissions.Update(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.InvalidState("merit submission was cancelled", err).WithOperation(op)
		}
		s.logger.Error("Failed to update merit submission", err, "submission", sub.Name)
		return nil, storeError(err, "merit submission", op)
	}

	s.logger.Info("Merit submission updated", "submission", sub.Name)
	return sub, nil
}

// Submit moves a draft to Submitted and sends the submission notification
func (s *SubmissionService) Submit(ctx context.Context, ref string, actor models.Actor) (*models.MeritScoreSubmission, error) {
	const op = "SubmitSubmission"

	sub, err := resolveSubmission(ctx, s.repos, ref, op)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, sub) {
		return nil, apperrors.Forbidden("not allowed to submit this merit submission", nil).WithOperation(op)
	}

	release, err := s.workflow.lock(ctx, sub.ID, op)
	if err != nil {
		return nil, err
	}
	defer release()

	if sub, err = resolveSubmission(ctx, s.repos, sub.ID.String(), op); err != nil {
		return nil, err
	}
	if sub.DocStatus != models.DocStatusDraft {
		return nil, apperrors.InvalidState("only draft merit submissions can be submitted", nil).
			WithOperation(op).WithDetails("docstatus " + sub.DocStatus.String())
	}
	if err := merit.CheckScores(sub); err != nil {
		return nil, apperrors.ValidationError(err.Error(), nil).WithOperation(op)
	}
	if s.settings != nil && sub.SupportingDocuments == "" {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		if settings.DocumentUploadMandatory {
			return nil, apperrors.PreconditionFailed("supporting documents are required before submitting", nil).WithOperation(op)
		}
	}

	now := s.now()
	submissionDate := sub.SubmissionDate
	if submissionDate == nil {
		submissionDate = &now
	}
	err = s.repos.Submissions.TransitionDocStatus(ctx, sub.ID, repository.DocTransition{
		From:             models.DocStatusDraft,
		To:               models.DocStatusSubmitted,
		SubmissionStatus: models.SubmissionSubmitted,
		SubmissionDate:   submissionDate,
		UpdatedAt:        now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.InvalidState("merit submission is no longer a draft", err).WithOperation(op)
		}
		return nil, storeError(err, "merit submission", op)
	}

	updated, err := resolveSubmission(ctx, s.repos, sub.ID.String(), op)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Merit submission submitted", "submission", updated.Name, "total_merit_score", updated.TotalMeritScore)
	s.notifier.SubmissionReceived(ctx, updated)
	return updated, nil
}

// Cancel moves a submitted submission to Cancelled, resets its submission
// status to Draft and drops any draft validation records
func (s *SubmissionService) Cancel(ctx context.Context, ref string, actor models.Actor) (*models.MeritScoreSubmission, error) {
	const op = "CancelSubmission"

	sub, err := resolveSubmission(ctx, s.repos, ref, op)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, sub) {
		return nil, apperrors.Forbidden("not allowed to cancel this merit submission", nil).WithOperation(op)
	}

	release, err := s.workflow.lock(ctx, sub.ID, op)
	if err != nil {
		return nil, err
	}
	defer release()

	var removed int64
	err = s.repos.Tx.WithTransaction(ctx, func(repos *repository.Repositories) error {
		err := repos.Submissions.TransitionDocStatus(ctx, sub.ID, repository.DocTransition{
			From:             models.DocStatusSubmitted,
			To:               models.DocStatusCancelled,
			SubmissionStatus: models.SubmissionDraft,
			UpdatedAt:        s.now(),
		})
		if err != nil {
			return err
		}
		removed, err = repos.Validations.DeleteDrafts(ctx, sub.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.InvalidState("only submitted merit submissions can be cancelled", err).WithOperation(op)
		}
		s.logger.Error("Failed to cancel merit submission", err, "submission", sub.Name)
		return nil, storeError(err, "merit submission", op)
	}

	s.logger.Info("Merit submission cancelled", "submission", sub.Name, "validation_records_removed", removed)
	return resolveSubmission(ctx, s.repos, sub.ID.String(), op)
}
