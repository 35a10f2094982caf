package merit

import (
	"strings"
	"testing"
	"time"

	"github.com/ngavde/education-management/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBuildSummary(t *testing.T) {
	entries := []models.MeritListEntry{
		{Name: "A", StudentCategory: "OBC", ValidationStatus: models.ValidationValidated},
		{Name: "B", StudentCategory: "", ValidationStatus: models.ValidationPending},
		{Name: "C", StudentCategory: "General", ValidationStatus: models.ValidationValidated},
	}
	filters := models.MeritListFilters{AcademicYear: "2025-26", MinimumScore: 40.5, MaximumResults: 10}

	got := BuildSummary(entries, filters, time.Date(2025, 7, 4, 15, 0, 0, 0, time.UTC))

	want := strings.Join([]string{
		"Generation Date: 2025-07-04",
		"Total Entries: 3",
		"Validated Entries: 2",
		"Pending Validation: 1",
		"",
		"Category-wise Breakdown:",
		"- General: 2 entries",
		"- OBC: 1 entries",
		"",
		"Minimum Score Filter: 40.5",
		"Results Limited to: 10",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestSummaryOmitsUnsetFilters(t *testing.T) {
	engine := NewRankingEngine()
	engine.now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }

	got := engine.Summary(nil, models.MeritListFilters{AcademicYear: "2025-26"})

	assert.True(t, strings.HasPrefix(got, "Generation Date: 2025-01-02\nTotal Entries: 0\n"))
	assert.NotContains(t, got, "Minimum Score Filter")
	assert.NotContains(t, got, "Results Limited to")
}
