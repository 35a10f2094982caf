package merit

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/models"
)

// RankingEngine orders merit score submissions into merit lists.
//
// Ordering is total_merit_score descending, then percentage_score
// descending, then created_at ascending, then name ascending. The last key is
// unique, so the order is total and reproducible across reruns.
type RankingEngine struct {
	now func() time.Time
}

// NewRankingEngine creates a new ranking engine instance
func NewRankingEngine() *RankingEngine {
	return &RankingEngine{now: time.Now}
}

// RankAssignment is the persisted rank of one submission after a refresh.
type RankAssignment struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Name         string    `json:"name"`
	MeritRank    int       `json:"merit_rank"`
	CategoryRank int       `json:"category_rank"`
}

// Less reports whether a ranks strictly ahead of b.
func Less(a, b *models.MeritScoreSubmission) bool {
	if a.TotalMeritScore != b.TotalMeritScore {
		return a.TotalMeritScore > b.TotalMeritScore
	}
	if a.PercentageScore != b.PercentageScore {
		return a.PercentageScore > b.PercentageScore
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Name < b.Name
}

// Sort orders submissions in place by merit.
func Sort(subs []models.MeritScoreSubmission) {
	sort.SliceStable(subs, func(i, j int) bool {
		return Less(&subs[i], &subs[j])
	})
}

// Matches reports whether a submission belongs in a merit list built with
// the given filters. Rejected submissions are never listed; pending ones only
// when IncludePending is set.
func Matches(s *models.MeritScoreSubmission, f models.MeritListFilters) bool {
	if s.AcademicYear != f.AcademicYear || !s.IsSubmitted() {
		return false
	}
	switch s.ValidationStatus {
	case models.ValidationValidated:
		if s.SubmissionStatus != models.SubmissionApproved {
			return false
		}
	case models.ValidationPending:
		if !f.IncludePending || s.SubmissionStatus == models.SubmissionRejected {
			return false
		}
	default:
		return false
	}
	if f.Program != "" && s.Program != f.Program {
		return false
	}
	if f.StudentCategory != "" && s.Category() != f.StudentCategory {
		return false
	}
	if f.MinimumScore > 0 && s.TotalMeritScore < f.MinimumScore {
		return false
	}
	return true
}

// GenerateMeritList filters, orders and truncates the candidates. The input
// slice is not modified.
func (e *RankingEngine) GenerateMeritList(candidates []models.MeritScoreSubmission, filters models.MeritListFilters) []models.MeritListEntry {
	selected := make([]models.MeritScoreSubmission, 0, len(candidates))
	for i := range candidates {
		if Matches(&candidates[i], filters) {
			selected = append(selected, candidates[i])
		}
	}
	Sort(selected)

	if filters.MaximumResults > 0 && len(selected) > filters.MaximumResults {
		selected = selected[:filters.MaximumResults]
	}

	entries := make([]models.MeritListEntry, len(selected))
	for i, s := range selected {
		entries[i] = models.MeritListEntry{
			Position:         i + 1,
			SubmissionID:     s.ID,
			Name:             s.Name,
			StudentApplicant: s.StudentApplicant,
			ApplicantName:    s.ApplicantName,
			Program:          s.Program,
			StudentCategory:  s.Category(),
			TotalMeritScore:  s.TotalMeritScore,
			PercentageScore:  s.PercentageScore,
			MeritRank:        s.MeritRank,
			CategoryRank:     s.CategoryRank,
			MeritGrade:       s.MeritGrade,
			SubmissionStatus: s.SubmissionStatus,
			ValidationStatus: s.ValidationStatus,
		}
	}
	return entries
}

// ComputeRanks assigns overall and per-category ranks to the rankable
// submissions of an academic year, optionally scoped to one program.
// Ranks are dense positions: 1..n overall and 1..k within each category.
func (e *RankingEngine) ComputeRanks(candidates []models.MeritScoreSubmission, academicYear, program string) []RankAssignment {
	rankable := make([]models.MeritScoreSubmission, 0, len(candidates))
	for i := range candidates {
		s := &candidates[i]
		if s.AcademicYear != academicYear || !s.IsRankable() {
			continue
		}
		if program != "" && s.Program != program {
			continue
		}
		rankable = append(rankable, *s)
	}
	Sort(rankable)

	categoryRanks := make(map[string]int)
	out := make([]RankAssignment, len(rankable))
	for i, s := range rankable {
		category := s.Category()
		categoryRanks[category]++
		out[i] = RankAssignment{
			SubmissionID: s.ID,
			Name:         s.Name,
			MeritRank:    i + 1,
			CategoryRank: categoryRanks[category],
		}
	}
	return out
}

// ApplyRanks copies rank assignments onto matching submissions and returns
// how many were updated.
func ApplyRanks(subs []models.MeritScoreSubmission, ranks []RankAssignment) int {
	byID := make(map[uuid.UUID]RankAssignment, len(ranks))
	for _, r := range ranks {
		byID[r.SubmissionID] = r
	}
	updated := 0
	for i := range subs {
		if r, ok := byID[subs[i].ID]; ok {
			subs[i].MeritRank = r.MeritRank
			subs[i].CategoryRank = r.CategoryRank
			updated++
		}
	}
	return updated
}
