package merit

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/ngavde/education-management/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML_Empty(t *testing.T) {
	out, err := RenderHTML(nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>No merit submissions found matching the criteria.</p>", out)
}

func TestRenderHTML_Rows(t *testing.T) {
	entries := []models.MeritListEntry{
		{
			Position: 1, Name: "EDU-MRT-2025-00001", StudentApplicant: "APP-1", ApplicantName: "Asha <Rao>",
			Program: "BSc", StudentCategory: "General", TotalMeritScore: 91.5, PercentageScore: 91.5,
			MeritRank: 1, CategoryRank: 1, MeritGrade: models.GradeA,
			SubmissionStatus: models.SubmissionApproved, ValidationStatus: models.ValidationValidated,
		},
		{
			Position: 2, Name: "EDU-MRT-2025-00002", StudentApplicant: "APP-2", ApplicantName: "Ravi",
			StudentCategory: "OBC", TotalMeritScore: 80, PercentageScore: 80,
			SubmissionStatus: models.SubmissionSubmitted, ValidationStatus: models.ValidationPending,
		},
	}

	out, err := RenderHTML(entries)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)

	rows := doc.Find("tbody tr")
	require.Equal(t, 2, rows.Length())

	first := rows.First()
	assert.Equal(t, "EDU-MRT-2025-00001", first.AttrOr("data-submission", ""))
	assert.Equal(t, "Asha <Rao>", first.Find("td").Eq(3).Text())
	assert.Equal(t, "/app/student-applicant/APP-1", first.Find("a").AttrOr("href", ""))
	assert.Equal(t, "91.50", first.Find("td").Eq(7).Text())
	assert.True(t, first.Find("span.indicator").HasClass("green"))

	second := rows.Eq(1)
	assert.Equal(t, "-", second.Find("td").Eq(1).Text())
	assert.Equal(t, "80.00%", second.Find("td").Eq(8).Text())
	assert.True(t, second.Find("span.indicator").HasClass("orange"))
	assert.NotContains(t, out, "<Rao>")
}
