package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker/internal/models"
	appErrors "github.com/noah-isme/assignment-tracker/pkg/errors"
	"github.com/noah-isme/assignment-tracker/pkg/export"
	"github.com/noah-isme/assignment-tracker/pkg/storage"
)

type memoryStorage struct {
	files map[string][]byte
	err   error
}

func (m *memoryStorage) Save(filename string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[filename] = data
	return filename, nil
}

func (m *memoryStorage) Path(filename string) string { return "/mem/" + filename }

type exportMetricsStub struct {
	formats []models.ExportFormat
}

func (s *exportMetricsStub) RecordExport(format models.ExportFormat) {
	s.formats = append(s.formats, format)
}

type failingCSV struct{}

func (failingCSV) Render(export.Dataset) ([]byte, error) { return nil, errors.New("boom") }

func seededExportService(t *testing.T, files fileStorage, metrics exportMetrics) *ExportService {
	t.Helper()
	svc, _ := newAssignmentService(t)
	mustAdd(t, svc, "Essay", "Hist101", "2025-03-05", "100")
	mustAdd(t, svc, "Lab", "Chem", "2025-03-20", "20")
	_, err := svc.Update(context.Background(), 1, "Graded", "18.5")
	require.NoError(t, err)

	exports := NewExportService(svc, files, nil, nil, metrics, zap.NewNop())
	exports.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return exports
}

func TestExportServiceGenerateCSV(t *testing.T) {
	files := &memoryStorage{}
	metrics := &exportMetricsStub{}
	exports := seededExportService(t, files, metrics)

	result, err := exports.Generate(context.Background(), models.ExportRequest{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, "assignments_all_20250301_090000.csv", result.RelativePath)
	assert.Equal(t, "/mem/assignments_all_20250301_090000.csv", result.Path)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, []models.ExportFormat{models.ExportFormatCSV}, metrics.formats)

	body := string(files.files[result.RelativePath])
	assert.Equal(t, "Assignment Name,Course,Due Date,Status,Score\n"+
		"Essay,Hist101,2025-03-05,Pending,N/A\n"+
		"Lab,Chem,2025-03-20,Graded,18.5/20\n", body)
}

func TestExportServiceGeneratePriorityPDF(t *testing.T) {
	files := &memoryStorage{}
	exports := seededExportService(t, files, nil)

	result, err := exports.Generate(context.Background(), models.ExportRequest{
		Format: models.ExportFormatPDF,
		View:   models.ExportViewPriority,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.True(t, strings.HasPrefix(result.RelativePath, "assignments_priority_"))
	assert.True(t, bytes.HasPrefix(files.files[result.RelativePath], []byte("%PDF-")))
}

func TestExportServiceFilteredFilename(t *testing.T) {
	files := &memoryStorage{}
	exports := seededExportService(t, files, nil)

	result, err := exports.Generate(context.Background(), models.ExportRequest{
		Format: models.ExportFormatCSV,
		Filter: models.AssignmentFilter{Course: "hist 101/a", Status: models.StatusPending},
	})
	require.NoError(t, err)
	assert.Equal(t, "assignments_all_hist_101-a_pending_20250301_090000.csv", result.RelativePath)
	assert.Equal(t, 0, result.Rows)
}

func TestExportServiceRejectsUnknownFormatAndView(t *testing.T) {
	exports := seededExportService(t, &memoryStorage{}, nil)

	_, err := exports.Generate(context.Background(), models.ExportRequest{Format: "xlsx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = exports.Generate(context.Background(), models.ExportRequest{Format: models.ExportFormatCSV, View: "weekly"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestExportServiceStorageAndRenderFailures(t *testing.T) {
	exports := seededExportService(t, &memoryStorage{err: errors.New("disk full")}, nil)
	_, err := exports.Generate(context.Background(), models.ExportRequest{Format: models.ExportFormatCSV})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrPersistence.Code))

	exports = seededExportService(t, &memoryStorage{}, nil)
	exports.csv = failingCSV{}
	_, err = exports.Generate(context.Background(), models.ExportRequest{Format: models.ExportFormatCSV})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
}

func TestExportServiceWritesToLocalStorage(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exports := seededExportService(t, local, nil)

	result, err := exports.Generate(context.Background(), models.ExportRequest{Format: models.ExportFormatPDF})
	require.NoError(t, err)

	info, err := os.Stat(result.Path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestDisplayScore(t *testing.T) {
	v := 47.5
	assert.Equal(t, "47.5/50", DisplayScore(models.Assignment{TotalPoints: 50, Score: &v}))
	assert.Equal(t, "N/A", DisplayScore(models.Assignment{TotalPoints: 50}))
}

func TestSanitizeFilenameTruncatesOnRuneBoundary(t *testing.T) {
	name := strings.Repeat("a", 59) + "ülkü tarihi"
	got := sanitizeFilename(name)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 60, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("a", 59)+"ü", got)

	assert.Equal(t, "Intro_to_CS-101", sanitizeFilename(" Intro to CS/101 "))
}
