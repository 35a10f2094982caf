package merit

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/ngavde/education-management/internal/models"
)

var resultsTemplate = template.Must(template.New("merit-list").Funcs(template.FuncMap{
	"rank": func(v int) string {
		if v == 0 {
			return "-"
		}
		return strconv.Itoa(v)
	},
	"indicator": func(s models.ValidationStatus) string {
		if s == models.ValidationValidated {
			return "green"
		}
		return "orange"
	},
}).Parse(`{{if not .}}<p>No merit submissions found matching the criteria.</p>{{else}}<table class="table table-striped table-bordered">
<thead>
<tr><th>Position</th><th>Merit Rank</th><th>Category Rank</th><th>Applicant Name</th><th>Student Applicant</th><th>Program</th><th>Category</th><th>Merit Score</th><th>Percentage</th><th>Grade</th><th>Status</th></tr>
</thead>
<tbody>
{{range .}}<tr data-submission="{{.Name}}">
<td>{{.Position}}</td>
<td>{{rank .MeritRank}}</td>
<td>{{rank .CategoryRank}}</td>
<td>{{.ApplicantName}}</td>
<td><a href="/app/student-applicant/{{.StudentApplicant}}">{{.StudentApplicant}}</a></td>
<td>{{.Program}}</td>
<td>{{.StudentCategory}}</td>
<td>{{printf "%.2f" .TotalMeritScore}}</td>
<td>{{printf "%.2f" .PercentageScore}}%</td>
<td>{{.MeritGrade}}</td>
<td><span class="indicator {{indicator .ValidationStatus}}">{{.SubmissionStatus}}</span></td>
</tr>
{{end}}</tbody>
</table>{{end}}`))

// RenderHTML renders merit list entries as the results table used by
// display clients.
func RenderHTML(entries []models.MeritListEntry) (string, error) {
	var buf bytes.Buffer
	if err := resultsTemplate.Execute(&buf, entries); err != nil {
		return "", err
	}
	return buf.String(), nil
}
