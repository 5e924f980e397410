package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
	"github.com/schoolyard-io/schoolyard-api/pkg/export"
)

type exportStudentLister interface {
	List(ctx context.Context, caller models.Caller, schoolID string) ([]models.UserProfile, error)
}

type exportSchoolReader interface {
	GetByID(ctx context.Context, schoolID string) (*models.School, error)
}

// ExportFile is a rendered roster document ready to be sent to the client.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders school rosters as downloadable CSV or PDF files.
type ExportService struct {
	students exportStudentLister
	schools  exportSchoolReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

func NewExportService(students exportStudentLister, schools exportSchoolReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		students: students,
		schools:  schools,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Roster renders the student roster of a school in the requested format,
// "csv" or "pdf". The student lister enforces the caller's school access.
func (s *ExportService) Roster(ctx context.Context, caller models.Caller, schoolID, format string) (*ExportFile, error) {
	students, err := s.students.List(ctx, caller, schoolID)
	if err != nil {
		return nil, err
	}

	school, err := s.schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if school == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found.")
	}

	data := export.Dataset{
		Headers: []string{"Name", "Email"},
		Rows:    make([]map[string]string, 0, len(students)),
	}
	for _, student := range students {
		data.Rows = append(data.Rows, map[string]string{
			"Name":  student.Name,
			"Email": student.Email,
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	base := fmt.Sprintf("roster_%s_%s", sanitizeFileName(school.Name), stamp)

	switch strings.ToLower(format) {
	case "csv", "":
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &ExportFile{FileName: base + ".csv", ContentType: "text/csv", Content: content}, nil
	case "pdf":
		content, err := s.pdf.Render(data, school.Name+" Roster")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &ExportFile{FileName: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func sanitizeFileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '_'
		default:
			return -1
		}
	}, name)
	if mapped == "" {
		return "school"
	}
	return strings.ToLower(mapped)
}
