package models

import "fmt"

// DocStatus is the document lifecycle state of a submission.
type DocStatus int

const (
	DocStatusDraft     DocStatus = 0
	DocStatusSubmitted DocStatus = 1
	DocStatusCancelled DocStatus = 2
)

func (d DocStatus) String() string {
	switch d {
	case DocStatusDraft:
		return "Draft"
	case DocStatusSubmitted:
		return "Submitted"
	case DocStatusCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("DocStatus(%d)", int(d))
	}
}

// Valid reports whether d is one of the known states.
func (d DocStatus) Valid() bool {
	return d >= DocStatusDraft && d <= DocStatusCancelled
}

// ValidationStatus tracks score validation of a submitted merit score.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "Pending"
	ValidationValidated ValidationStatus = "Validated"
	ValidationRejected  ValidationStatus = "Rejected"
)

func (s ValidationStatus) Valid() bool {
	switch s {
	case ValidationPending, ValidationValidated, ValidationRejected:
		return true
	}
	return false
}

// DocumentVerificationStatus tracks verification of supporting documents.
// It moves independently of ValidationStatus.
type DocumentVerificationStatus string

const (
	DocumentPending  DocumentVerificationStatus = "Pending"
	DocumentVerified DocumentVerificationStatus = "Verified"
	DocumentRejected DocumentVerificationStatus = "Rejected"
)

func (s DocumentVerificationStatus) Valid() bool {
	switch s {
	case DocumentPending, DocumentVerified, DocumentRejected:
		return true
	}
	return false
}

// ParseDocumentDecision accepts only the two terminal verification outcomes.
func ParseDocumentDecision(v string) (DocumentVerificationStatus, error) {
	switch DocumentVerificationStatus(v) {
	case DocumentVerified, DocumentRejected:
		return DocumentVerificationStatus(v), nil
	}
	return "", fmt.Errorf("invalid document verification status %q: must be Verified or Rejected", v)
}

// SubmissionStatus is the applicant-facing progress of a submission.
type SubmissionStatus string

const (
	SubmissionDraft       SubmissionStatus = "Draft"
	SubmissionSubmitted   SubmissionStatus = "Submitted"
	SubmissionUnderReview SubmissionStatus = "Under Review"
	SubmissionApproved    SubmissionStatus = "Approved"
	SubmissionRejected    SubmissionStatus = "Rejected"
)

// ValidationAction is the decision taken on a pending submission.
type ValidationAction string

const (
	ActionApprove ValidationAction = "approve"
	ActionReject  ValidationAction = "reject"
)

// ParseValidationAction validates a raw action string.
func ParseValidationAction(v string) (ValidationAction, error) {
	switch ValidationAction(v) {
	case ActionApprove, ActionReject:
		return ValidationAction(v), nil
	}
	return "", fmt.Errorf("invalid validation action %q: must be approve or reject", v)
}

// Grade is a letter band derived from a percentage score.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeCPlus Grade = "C+"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)
