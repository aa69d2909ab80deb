package roster

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/pkg/export"
)

// ErrNothingToExport is returned when the roster is empty; no file is produced.
var ErrNothingToExport = errors.New("nothing to export")

// Format selects the export encoding.
type Format string

// Supported export formats.
const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Content types for the rendered files.
const (
	ContentTypeCSV = "text/csv; charset=utf-8"
	ContentTypePDF = "application/pdf"
)

// SampleFilename names the downloadable import template.
const SampleFilename = "sample_students_import.csv"

const pdfTitle = "Student Roster"

// ExportHeaders is the fixed export column order.
var ExportHeaders = []string{"First Name", "Last Name", "Phone", "Status", "Enrollment Date"}

var sampleHeaders = []string{"First Name", "Last Name", "Phone"}

var sampleRows = []map[string]string{
	{"First Name": "John", "Last Name": "Doe", "Phone": "+1 (555) 123-4567"},
	{"First Name": "Jane", "Last Name": "Smith", "Phone": "555-987-6543"},
	{"First Name": "Carlos", "Last Name": "Garcia", "Phone": "+44 20 7946 0958"},
}

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Transcoder renders roster downloads.
type Transcoder struct {
	csv csvRenderer
	pdf pdfRenderer
	now func() time.Time
}

// NewTranscoder wires the default CSV and PDF exporters.
func NewTranscoder() *Transcoder {
	return &Transcoder{
		csv: export.NewCSVExporter(),
		pdf: export.NewPDFExporter(),
		now: time.Now,
	}
}

// WithClock overrides the clock used for export file names.
func (t *Transcoder) WithClock(now func() time.Time) *Transcoder {
	clone := *t
	clone.now = now
	return &clone
}

// Export renders students in order with the fixed five column header.
func (t *Transcoder) Export(students []models.Student, format Format) (*File, error) {
	if len(students) == 0 {
		return nil, ErrNothingToExport
	}
	dataset := export.Dataset{Headers: ExportHeaders, Rows: make([]map[string]string, 0, len(students))}
	for _, s := range students {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"First Name":      s.FirstName,
			"Last Name":       s.LastName,
			"Phone":           s.Phone,
			"Status":          string(s.Status),
			"Enrollment Date": s.EnrollmentDate.Format(models.DateLayout),
		})
	}

	date := t.now().Format(models.DateLayout)
	switch format {
	case FormatCSV, "":
		content, err := t.csv.Render(dataset)
		if err != nil {
			return nil, err
		}
		return &File{Name: fmt.Sprintf("students_export_%s.csv", date), ContentType: ContentTypeCSV, Content: content}, nil
	case FormatPDF:
		content, err := t.pdf.Render(dataset, pdfTitle)
		if err != nil {
			return nil, err
		}
		return &File{Name: fmt.Sprintf("students_export_%s.pdf", date), ContentType: ContentTypePDF, Content: content}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Sample renders the fixed three student import template.
func (t *Transcoder) Sample() (*File, error) {
	content, err := t.csv.Render(export.Dataset{Headers: sampleHeaders, Rows: sampleRows})
	if err != nil {
		return nil, err
	}
	return &File{Name: SampleFilename, ContentType: ContentTypeCSV, Content: content}, nil
}
