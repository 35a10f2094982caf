package models

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus is the progress of a validation record.
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "Pending"
	ReviewInProgress ReviewStatus = "In Progress"
	ReviewValidated  ReviewStatus = "Validated"
	ReviewRejected   ReviewStatus = "Rejected"
)

// FinalDecision is recorded once a validation record is closed.
type FinalDecision string

const (
	DecisionApproved FinalDecision = "Approved"
	DecisionRejected FinalDecision = "Rejected"
)

// MeritScoreValidation is a reviewer's working record for one submission.
type MeritScoreValidation struct {
	ID                   uuid.UUID     `json:"id"`
	MeritSubmissionID    uuid.UUID     `json:"merit_submission_id"`
	MeritSubmission      string        `json:"merit_submission"`
	ApplicantName        string        `json:"applicant_name"`
	Validator            string        `json:"validator"`
	OriginalTotalScore   float64       `json:"original_total_score"`
	VerifiedTotalScore   float64       `json:"verified_total_score"`
	OriginalPercentage   float64       `json:"original_percentage"`
	VerifiedPercentage   float64       `json:"verified_percentage"`
	ScoreDifference      float64       `json:"score_difference"`
	PercentageDifference float64       `json:"percentage_difference"`
	ValidationComments   string        `json:"validation_comments,omitempty"`
	ValidationStatus     ReviewStatus  `json:"validation_status"`
	FinalDecision        FinalDecision `json:"final_decision,omitempty"`
	DocStatus            DocStatus     `json:"docstatus"`
	ValidationDate       time.Time     `json:"validation_date"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// IsOpen reports whether the record still accepts a decision.
func (v *MeritScoreValidation) IsOpen() bool {
	return v.DocStatus == DocStatusDraft
}
