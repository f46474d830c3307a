package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker/internal/models"
	appErrors "github.com/noah-isme/assignment-tracker/pkg/errors"
	"github.com/noah-isme/assignment-tracker/pkg/export"
)

// Export column headers, shared with the console table.
const (
	HeaderName    = "Assignment Name"
	HeaderCourse  = "Course"
	HeaderDueDate = "Due Date"
	HeaderStatus  = "Status"
	HeaderScore   = "Score"
)

var exportHeaders = []string{HeaderName, HeaderCourse, HeaderDueDate, HeaderStatus, HeaderScore}

type assignmentViews interface {
	Filter(ctx context.Context, filter models.AssignmentFilter) []models.Assignment
	PriorityView(ctx context.Context, today time.Time) []models.Assignment
	PriorityWindowDays() int
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

type exportMetrics interface {
	RecordExport(format models.ExportFormat)
}

// ExportService renders assignment views and persists them through file storage.
type ExportService struct {
	views   assignmentViews
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	metrics exportMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(views assignmentViews, storage fileStorage, csv csvRenderer, pdf pdfRenderer, metrics exportMetrics, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(map[string]float64{HeaderName: 3, HeaderCourse: 2, HeaderDueDate: 1.3, HeaderStatus: 1.3, HeaderScore: 1.2})
	}
	return &ExportService{
		views:   views,
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate renders the requested view and stores it.
func (s *ExportService) Generate(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error) {
	if req.View == "" {
		req.View = models.ExportViewAll
	}
	if req.Today.IsZero() {
		req.Today = s.now()
	}

	var items []models.Assignment
	var title string
	switch req.View {
	case models.ExportViewAll:
		items = s.views.Filter(ctx, req.Filter)
		title = "All Assignments"
	case models.ExportViewPriority:
		items = s.views.PriorityView(ctx, req.Today)
		title = fmt.Sprintf("Priority View (due in next %d days)", s.views.PriorityWindowDays())
	default:
		return nil, appErrors.Invalid("view", fmt.Sprintf("unsupported export view %q", req.View))
	}

	dataset := BuildDataset(items)
	subtitle := "Generated " + models.DateOf(req.Today).Format(models.DateLayout) + describeFilter(req.Filter)

	var (
		payload []byte
		err     error
	)
	switch req.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title, subtitle)
	default:
		return nil, appErrors.Invalid("format", fmt.Sprintf("unsupported export format %q", req.Format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	rel, err := s.storage.Save(s.buildFilename(req), payload)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to store export")
	}
	if s.metrics != nil {
		s.metrics.RecordExport(req.Format)
	}
	s.logger.Info("export written", zap.String("path", rel), zap.Int("rows", len(items)), zap.String("format", string(req.Format)))

	return &models.ExportResult{
		RelativePath: rel,
		Path:         s.storage.Path(rel),
		Format:       req.Format,
		Rows:         len(items),
	}, nil
}

// BuildDataset turns assignments into export rows.
func BuildDataset(items []models.Assignment) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, map[string]string{
			HeaderName:    a.Name,
			HeaderCourse:  a.Course,
			HeaderDueDate: a.DueDateString(),
			HeaderStatus:  string(a.Status),
			HeaderScore:   DisplayScore(a),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

// DisplayScore renders "score/total" or "N/A" when there is no score.
func DisplayScore(a models.Assignment) string {
	if a.Score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%s/%d", models.FormatScore(*a.Score), a.TotalPoints)
}

func (s *ExportService) buildFilename(req models.ExportRequest) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	parts := []string{"assignments", string(req.View)}
	if req.Filter.Course != "" {
		parts = append(parts, sanitizeFilename(req.Filter.Course))
	}
	if req.Filter.Status != "" {
		parts = append(parts, strings.ToLower(string(req.Filter.Status)))
	}
	parts = append(parts, timestamp)
	return strings.Join(parts, "_") + "." + string(req.Format)
}

func describeFilter(f models.AssignmentFilter) string {
	var parts []string
	if f.Course != "" {
		parts = append(parts, "course "+f.Course)
	}
	if f.Status != "" {
		parts = append(parts, "status "+string(f.Status))
	}
	if len(parts) == 0 {
		return ""
	}
	return " | " + strings.Join(parts, ", ")
}

const maxFilenameRunes = 60

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(strings.TrimSpace(raw))
	if r := []rune(result); len(r) > maxFilenameRunes {
		return string(r[:maxFilenameRunes])
	}
	return result
}
