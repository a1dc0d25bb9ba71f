package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/fop-attendance-api/internal/models"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
	"github.com/noah-isme/fop-attendance-api/pkg/export"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type recordGetter interface {
	Get(ctx context.Context, recordID, teacherID string, isAdmin bool) (*models.AttendanceRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered attendance report ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders one attendance record as a downloadable file.
type ExportService struct {
	records recordGetter
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(records recordGetter, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{records: records, csv: csv, pdf: pdf, logger: logger}
}

// Export loads the record under the caller's authorization and renders it in
// the requested format (csv by default).
func (s *ExportService) Export(ctx context.Context, recordID, teacherID string, isAdmin bool, format string) (*ExportResult, error) {
	record, err := s.records.Get(ctx, recordID, teacherID, isAdmin)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}

	dataset := buildDataset(record)
	title := recordTitle(record)

	var data []byte
	var contentType, extension string

	switch strings.ToLower(format) {
	case FormatPDF:
		data, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
		extension = FormatPDF
	case FormatCSV, "":
		data, err = s.csv.Render(dataset)
		contentType = "text/csv"
		extension = FormatCSV
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportResult{
		Filename:    formatFilename(title, extension),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func buildDataset(record *models.AttendanceRecord) export.Dataset {
	created := ""
	if record.CreatedAt != nil {
		created = *record.CreatedAt
	}

	dataset := export.Dataset{
		Summary: [][2]string{
			{"Class", record.ClassName},
			{"Session", record.RecordName},
			{"Created", created},
			{"Teacher", record.TeacherID},
		},
		Headers: []string{"Student ID", "Student Name", "Timestamp"},
	}
	for _, attendee := range record.Attendees {
		dataset.Rows = append(dataset.Rows, []string{attendee.StudentID, attendee.StudentName, attendee.Timestamp})
	}
	return dataset
}

func recordTitle(record *models.AttendanceRecord) string {
	class := record.ClassName
	if class == "" {
		class = "Class"
	}
	name := record.RecordName
	if name == "" {
		name = "Session"
	}
	return class + " - " + name
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9-]+`)

func formatFilename(base, extension string) string {
	safe := unsafeFilenameChars.ReplaceAllString(base, "_")
	safe = strings.Trim(safe, "_")
	if len(safe) > 80 {
		safe = safe[:80]
	}
	if safe == "" {
		safe = "attendance"
	}
	return safe + "." + extension
}
