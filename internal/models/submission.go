package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is used for category ranking when an applicant has none.
const DefaultCategory = "General"

// SubjectScore is one row of a submission's subject breakdown.
type SubjectScore struct {
	ID           uuid.UUID `json:"id"`
	Position     int       `json:"idx"`
	Subject      string    `json:"subject" validate:"required"`
	Score        float64   `json:"score" validate:"gte=0"`
	MaximumScore float64   `json:"maximum_score" validate:"gte=0"`
	Percentage   float64   `json:"percentage"`
	Grade        Grade     `json:"grade,omitempty"`
}

// MeritScoreSubmission is an applicant's merit score claim.
type MeritScoreSubmission struct {
	ID                         uuid.UUID                  `json:"id"`
	Name                       string                     `json:"name"`
	StudentApplicant           string                     `json:"student_applicant"`
	ApplicantName              string                     `json:"applicant_name"`
	ApplicantEmail             string                     `json:"applicant_email,omitempty"`
	AcademicYear               string                     `json:"academic_year"`
	Program                    string                     `json:"program,omitempty"`
	StudentCategory            string                     `json:"student_category,omitempty"`
	DocStatus                  DocStatus                  `json:"docstatus"`
	SubmissionStatus           SubmissionStatus           `json:"submission_status"`
	ValidationStatus           ValidationStatus           `json:"validation_status"`
	DocumentVerificationStatus DocumentVerificationStatus `json:"document_verification_status"`
	TotalMeritScore            float64                    `json:"total_merit_score"`
	MaximumPossibleScore       float64                    `json:"maximum_possible_score"`
	PercentageScore            float64                    `json:"percentage_score"`
	MeritGrade                 Grade                      `json:"merit_grade,omitempty"`
	MeritRank                  int                        `json:"merit_rank"`
	CategoryRank               int                        `json:"category_rank"`
	SubjectScores              []SubjectScore             `json:"subject_scores"`
	SupportingDocuments        string                     `json:"supporting_documents,omitempty"`
	SubmissionDate             *time.Time                 `json:"submission_date,omitempty"`
	TeacherComments            string                     `json:"teacher_comments,omitempty"`
	AdminRemarks               string                     `json:"admin_remarks,omitempty"`
	ValidatedBy                string                     `json:"validated_by,omitempty"`
	ValidationDate             *time.Time                 `json:"validation_date,omitempty"`
	CreatedBy                  uuid.UUID                  `json:"created_by"`
	CreatedAt                  time.Time                  `json:"created_at"`
	UpdatedAt                  time.Time                  `json:"updated_at"`
}

// Category returns the student category, falling back to DefaultCategory.
func (s *MeritScoreSubmission) Category() string {
	if s.StudentCategory == "" {
		return DefaultCategory
	}
	return s.StudentCategory
}

// IsSubmitted reports whether the submission has left draft.
func (s *MeritScoreSubmission) IsSubmitted() bool {
	return s.DocStatus == DocStatusSubmitted
}

// CanBeValidated mirrors the precondition for validate actions.
func (s *MeritScoreSubmission) CanBeValidated() bool {
	return s.IsSubmitted() && s.ValidationStatus == ValidationPending
}

// CanVerifyDocuments mirrors the precondition for document verification.
func (s *MeritScoreSubmission) CanVerifyDocuments() bool {
	return s.IsSubmitted() && s.DocumentVerificationStatus == DocumentPending
}

// IsRankable reports whether the submission takes part in merit ranks.
func (s *MeritScoreSubmission) IsRankable() bool {
	return s.IsSubmitted() &&
		s.ValidationStatus == ValidationValidated &&
		s.SubmissionStatus == SubmissionApproved
}

// MeritSubmissionInput carries the editable fields of a submission.
type MeritSubmissionInput struct {
	StudentApplicant     string         `json:"student_applicant" validate:"required,max=140"`
	ApplicantName        string         `json:"applicant_name" validate:"max=140"`
	ApplicantEmail       string         `json:"applicant_email" validate:"omitempty,email"`
	AcademicYear         string         `json:"academic_year" validate:"required,max=20"`
	Program              string         `json:"program" validate:"max=140"`
	StudentCategory      string         `json:"student_category" validate:"max=140"`
	TotalMeritScore      float64        `json:"total_merit_score" validate:"gte=0"`
	MaximumPossibleScore float64        `json:"maximum_possible_score" validate:"gte=0"`
	SubjectScores        []SubjectScore `json:"subject_scores" validate:"dive"`
	SupportingDocuments  string         `json:"supporting_documents"`
	SubmissionDate       *time.Time     `json:"submission_date"`
	TeacherComments      string         `json:"teacher_comments"`
	AdminRemarks         string         `json:"admin_remarks"`
}

// DashboardData summarizes submission counts for the overview page.
type DashboardData struct {
	TotalSubmissions     int                    `json:"total_submissions"`
	PendingValidation    int                    `json:"pending_validation"`
	ValidatedSubmissions int                    `json:"validated_submissions"`
	RejectedSubmissions  int                    `json:"rejected_submissions"`
	RecentSubmissions    []MeritScoreSubmission `json:"recent_submissions"`
}
