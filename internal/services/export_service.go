package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/models"
	"github.com/xuri/excelize/v2"
)

// ExportFormat specifies the format of a merit list export
type ExportFormat string

const (
	FormatPDF   ExportFormat = "pdf"
	FormatExcel ExportFormat = "excel"
	FormatCSV   ExportFormat = "csv"
)

// Artifact is a rendered export ready to be sent to a client
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders generated merit lists into downloadable files. It
// only transforms results already stored on the merit list.
type ExportService struct {
	logger logger.Logger
	now    func() time.Time
}

// NewExportService creates a new export service
func NewExportService(log logger.Logger) *ExportService {
	return &ExportService{logger: log, now: time.Now}
}

var exportColumns = []string{
	"Position", "Merit Rank", "Applicant", "Student Applicant", "Program",
	"Category", "Total Score", "Percentage", "Grade", "Status",
}

func exportRow(e models.MeritListEntry) []string {
	rank := "-"
	if e.MeritRank > 0 {
		rank = strconv.Itoa(e.MeritRank)
	}
	return []string{
		strconv.Itoa(e.Position),
		rank,
		e.ApplicantName,
		e.StudentApplicant,
		e.Program,
		e.StudentCategory,
		strconv.FormatFloat(e.TotalMeritScore, 'f', -1, 64),
		strconv.FormatFloat(e.PercentageScore, 'f', 2, 64) + "%",
		string(e.MeritGrade),
		string(e.ValidationStatus),
	}
}

// Export renders the merit list in the requested format
func (s *ExportService) Export(tool *models.MeritListTool, format ExportFormat) (*Artifact, error) {
	switch format {
	case FormatPDF:
		return s.ExportPDF(tool)
	case FormatExcel:
		return s.ExportExcel(tool)
	case FormatCSV:
		return s.ExportCSV(tool)
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported export format: %s", format), nil).WithOperation("Export")
	}
}

func requireResults(tool *models.MeritListTool, op string) error {
	if tool == nil || !tool.HasResults() {
		return apperrors.PreconditionFailed("please generate the merit list first", nil).WithOperation(op)
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *ExportService) filename(tool *models.MeritListTool, ext string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(tool.Title, "-"), "-")
	if base == "" {
		base = "merit-list"
	}
	return fmt.Sprintf("%s-%s.%s", base, s.now().Format("20060102-150405"), ext)
}

// ExportPDF renders the merit list as a landscape A4 table
func (s *ExportService) ExportPDF(tool *models.MeritListTool) (*Artifact, error) {
	const op = "ExportPDF"
	if err := requireResults(tool, op); err != nil {
		return nil, err
	}

	widths := []float64{18, 20, 45, 35, 35, 28, 24, 24, 16, 28}

	pdf := fpdf.New("L", "mm", "A4", "")
	// Core fonts are cp1252; runes outside it render as '.'.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tool.Title, true)
	pdf.SetCreationDate(s.now())
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(tool.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Academic Year: %s   Entries: %d", tool.Filters.AcademicYear, len(tool.Results))), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, col := range exportColumns {
		pdf.CellFormat(widths[i], 7, col, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, entry := range tool.Results {
		for i, cell := range exportRow(entry) {
			align := "L"
			if i == 0 || i == 1 || (i >= 6 && i <= 8) {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if tool.Summary != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(0, 4, tr(tool.Summary), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error("Failed to render merit list PDF", err, "merit_list_id", tool.ID)
		return nil, apperrors.InternalError("failed to render PDF", err).WithOperation(op)
	}

	s.logger.Info("Merit list exported", "merit_list_id", tool.ID, "format", FormatPDF, "entries", len(tool.Results))
	return &Artifact{Filename: s.filename(tool, "pdf"), ContentType: "application/pdf", Data: buf.Bytes()}, nil
}

// ExportExcel renders the merit list as a single-sheet workbook
func (s *ExportService) ExportExcel(tool *models.MeritListTool) (*Artifact, error) {
	const op = "ExportExcel"
	if err := requireResults(tool, op); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Merit List"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, apperrors.InternalError("failed to prepare workbook", err).WithOperation(op)
	}

	header := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, apperrors.InternalError("failed to write workbook header", err).WithOperation(op)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}

	for i, e := range tool.Results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, apperrors.InternalError("failed to address workbook cell", err).WithOperation(op)
		}
		row := []interface{}{
			e.Position, rankValue(e.MeritRank), e.ApplicantName, e.StudentApplicant, e.Program,
			e.StudentCategory, e.TotalMeritScore, e.PercentageScore, string(e.MeritGrade), string(e.ValidationStatus),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, apperrors.InternalError("failed to write workbook row", err).WithOperation(op)
		}
	}
	_ = f.SetColWidth(sheet, "C", "F", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("Failed to render merit list workbook", err, "merit_list_id", tool.ID)
		return nil, apperrors.InternalError("failed to render workbook", err).WithOperation(op)
	}

	s.logger.Info("Merit list exported", "merit_list_id", tool.ID, "format", FormatExcel, "entries", len(tool.Results))
	return &Artifact{
		Filename:    s.filename(tool, "xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

func rankValue(rank int) interface{} {
	if rank == 0 {
		return "-"
	}
	return rank
}

// ExportCSV renders the merit list as comma separated values
func (s *ExportService) ExportCSV(tool *models.MeritListTool) (*Artifact, error) {
	const op = "ExportCSV"
	if err := requireResults(tool, op); err != nil {
		return nil, err
	}

	var output bytes.Buffer
	writer := csv.NewWriter(&output)
	if err := writer.Write(exportColumns); err != nil {
		return nil, apperrors.InternalError("failed to write CSV", err).WithOperation(op)
	}
	for _, entry := range tool.Results {
		if err := writer.Write(exportRow(entry)); err != nil {
			return nil, apperrors.InternalError("failed to write CSV", err).WithOperation(op)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, apperrors.InternalError("failed to write CSV", err).WithOperation(op)
	}

	return &Artifact{Filename: s.filename(tool, "csv"), ContentType: "text/csv", Data: output.Bytes()}, nil
}
