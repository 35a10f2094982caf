package models

import (
	"time"

	"github.com/google/uuid"
)

// MeritListFilters are the query fields of a merit list generation tool.
// Zero values mean "no filter" except AcademicYear, which is required to
// generate.
type MeritListFilters struct {
	AcademicYear    string  `json:"academic_year"`
	Program         string  `json:"program,omitempty"`
	StudentCategory string  `json:"student_category,omitempty"`
	MinimumScore    float64 `json:"minimum_score,omitempty"`
	IncludePending  bool    `json:"include_pending"`
	MaximumResults  int     `json:"maximum_results,omitempty"`
}

// MeritListEntry is one row of a generated merit list.
type MeritListEntry struct {
	Position         int              `json:"position"`
	SubmissionID     uuid.UUID        `json:"submission_id"`
	Name             string           `json:"name"`
	StudentApplicant string           `json:"student_applicant"`
	ApplicantName    string           `json:"applicant_name"`
	Program          string           `json:"program,omitempty"`
	StudentCategory  string           `json:"student_category"`
	TotalMeritScore  float64          `json:"total_merit_score"`
	PercentageScore  float64          `json:"percentage_score"`
	MeritRank        int              `json:"merit_rank"`
	CategoryRank     int              `json:"category_rank"`
	MeritGrade       Grade            `json:"merit_grade,omitempty"`
	SubmissionStatus SubmissionStatus `json:"submission_status"`
	ValidationStatus ValidationStatus `json:"validation_status"`
}

// MeritListTool is a saved merit list query together with its last
// generated output.
type MeritListTool struct {
	ID          uuid.UUID        `json:"id"`
	Owner       uuid.UUID        `json:"owner"`
	Title       string           `json:"title"`
	Filters     MeritListFilters `json:"filters"`
	Results     []MeritListEntry `json:"merit_list_results"`
	Summary     string           `json:"generation_summary"`
	GeneratedAt *time.Time       `json:"generated_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// HasResults reports whether a merit list has been generated and is still
// valid for the current filters.
func (t *MeritListTool) HasResults() bool {
	return len(t.Results) > 0
}

// ClearResults drops the generated list and summary.
func (t *MeritListTool) ClearResults() {
	t.Results = nil
	t.Summary = ""
	t.GeneratedAt = nil
}

// FilterPatch is a partial update of MeritListFilters. Nil fields are left
// unchanged.
type FilterPatch struct {
	AcademicYear    *string  `json:"academic_year"`
	Program         *string  `json:"program"`
	StudentCategory *string  `json:"student_category"`
	MinimumScore    *float64 `json:"minimum_score" validate:"omitempty,gte=0"`
	IncludePending  *bool    `json:"include_pending"`
	MaximumResults  *int     `json:"maximum_results" validate:"omitempty,gte=0"`
}

// Apply writes the patch onto f and reports whether any value changed.
func (p FilterPatch) Apply(f *MeritListFilters) bool {
	changed := false
	if p.AcademicYear != nil && *p.AcademicYear != f.AcademicYear {
		f.AcademicYear = *p.AcademicYear
		changed = true
	}
	if p.Program != nil && *p.Program != f.Program {
		f.Program = *p.Program
		changed = true
	}
	if p.StudentCategory != nil && *p.StudentCategory != f.StudentCategory {
		f.StudentCategory = *p.StudentCategory
		changed = true
	}
	if p.MinimumScore != nil && *p.MinimumScore != f.MinimumScore {
		f.MinimumScore = *p.MinimumScore
		changed = true
	}
	if p.IncludePending != nil && *p.IncludePending != f.IncludePending {
		f.IncludePending = *p.IncludePending
		changed = true
	}
	if p.MaximumResults != nil && *p.MaximumResults != f.MaximumResults {
		f.MaximumResults = *p.MaximumResults
		changed = true
	}
	return changed
}
