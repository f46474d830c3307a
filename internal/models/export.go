package models

import (
	"strings"
	"time"
)

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportView selects which assignments an export covers.
type ExportView string

const (
	ExportViewAll      ExportView = "all"
	ExportViewPriority ExportView = "priority"
)

// ParseExportFormat accepts a case-insensitive format name.
func ParseExportFormat(raw string) (ExportFormat, bool) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ExportFormatCSV:
		return ExportFormatCSV, true
	case ExportFormatPDF:
		return ExportFormatPDF, true
	}
	return "", false
}

// ParseExportView accepts a case-insensitive view name.
func ParseExportView(raw string) (ExportView, bool) {
	switch ExportView(strings.ToLower(strings.TrimSpace(raw))) {
	case ExportViewAll:
		return ExportViewAll, true
	case ExportViewPriority:
		return ExportViewPriority, true
	}
	return "", false
}

// ExportRequest describes one rendered export.
type ExportRequest struct {
	Format ExportFormat
	View   ExportView
	Filter AssignmentFilter
	Today  time.Time
}

// ExportResult captures where an export was written.
type ExportResult struct {
	RelativePath string       `json:"relative_path"`
	Path         string       `json:"path"`
	Format       ExportFormat `json:"format"`
	Rows         int          `json:"rows"`
}
