package merit

import (
	"fmt"
	"math"

	"github.com/ngavde/education-management/internal/models"
)

// subjectTolerance is the allowed gap between the subject score sum and the
// total merit score.
const subjectTolerance = 0.01

var gradeBands = []struct {
	min   float64
	grade models.Grade
}{
	{95, models.GradeAPlus},
	{90, models.GradeA},
	{85, models.GradeBPlus},
	{80, models.GradeB},
	{75, models.GradeCPlus},
	{70, models.GradeC},
	{60, models.GradeD},
}

// GradeFor maps a percentage onto its letter band.
func GradeFor(percentage float64) models.Grade {
	for _, band := range gradeBands {
		if percentage >= band.min {
			return band.grade
		}
	}
	return models.GradeF
}

// Percentage returns score/maximum as a percentage rounded to 2 places, or 0
// when either side is zero.
func Percentage(score, maximum float64) float64 {
	if score == 0 || maximum == 0 {
		return 0
	}
	return Round2(score / maximum * 100)
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Recalculate refreshes derived percentage and grade fields on the
// submission and each of its subject rows.
func Recalculate(s *models.MeritScoreSubmission) {
	for i := range s.SubjectScores {
		row := &s.SubjectScores[i]
		row.Position = i + 1
		row.Percentage = Percentage(row.Score, row.MaximumScore)
		row.Grade = ""
		if row.Percentage != 0 {
			row.Grade = GradeFor(row.Percentage)
		}
	}

	s.PercentageScore = Percentage(s.TotalMeritScore, s.MaximumPossibleScore)
	s.MeritGrade = ""
	if s.PercentageScore != 0 {
		s.MeritGrade = GradeFor(s.PercentageScore)
	}
}

// CheckScores enforces score bounds and that subject scores add up to the
// total.
func CheckScores(s *models.MeritScoreSubmission) error {
	if s.TotalMeritScore < 0 {
		return fmt.Errorf("total merit score cannot be negative")
	}
	if s.MaximumPossibleScore > 0 && s.TotalMeritScore > s.MaximumPossibleScore {
		return fmt.Errorf("total merit score (%.2f) cannot be greater than maximum possible score (%.2f)",
			s.TotalMeritScore, s.MaximumPossibleScore)
	}

	if len(s.SubjectScores) == 0 {
		return nil
	}

	var sum float64
	for _, row := range s.SubjectScores {
		if row.Score < 0 {
			return fmt.Errorf("score for %s cannot be negative", row.Subject)
		}
		if row.MaximumScore > 0 && row.Score > row.MaximumScore {
			return fmt.Errorf("score for %s cannot be greater than maximum score", row.Subject)
		}
		sum += row.Score
	}
	if math.Abs(sum-s.TotalMeritScore) > subjectTolerance {
		return fmt.Errorf("sum of subject scores (%.2f) does not match total merit score (%.2f)",
			sum, s.TotalMeritScore)
	}
	return nil
}
