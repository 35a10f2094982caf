package merit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ngavde/education-management/internal/models"
)

// Summary describes a generated merit list in the plain-text form shown
// next to the results.
func (e *RankingEngine) Summary(entries []models.MeritListEntry, filters models.MeritListFilters) string {
	return BuildSummary(entries, filters, e.now())
}

// BuildSummary is Summary with an explicit generation time.
func BuildSummary(entries []models.MeritListEntry, filters models.MeritListFilters, generatedAt time.Time) string {
	validated := 0
	categories := make(map[string]int)
	for _, entry := range entries {
		if entry.ValidationStatus == models.ValidationValidated {
			validated++
		}
		category := entry.StudentCategory
		if category == "" {
			category = models.DefaultCategory
		}
		categories[category]++
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Generation Date: %s\n", generatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Total Entries: %d\n", len(entries))
	fmt.Fprintf(&b, "Validated Entries: %d\n", validated)
	fmt.Fprintf(&b, "Pending Validation: %d\n", len(entries)-validated)
	b.WriteString("\nCategory-wise Breakdown:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %d entries\n", name, categories[name])
	}
	if filters.MinimumScore > 0 {
		fmt.Fprintf(&b, "\nMinimum Score Filter: %g", filters.MinimumScore)
	}
	if filters.MaximumResults > 0 {
		fmt.Fprintf(&b, "\nResults Limited to: %d", filters.MaximumResults)
	}
	return b.String()
}
