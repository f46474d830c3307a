package models

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used at every boundary.
const DateLayout = "2006-01-02"

// AssignmentStatus is the workflow stage of an assignment.
type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "Pending"
	StatusSubmitted AssignmentStatus = "Submitted"
	StatusGraded    AssignmentStatus = "Graded"
)

// Statuses lists every status in workflow order.
var Statuses = []AssignmentStatus{StatusPending, StatusSubmitted, StatusGraded}

// ParseStatus matches raw case-insensitively and returns the title-cased status.
func ParseStatus(raw string) (AssignmentStatus, bool) {
	raw = strings.TrimSpace(raw)
	for _, s := range Statuses {
		if strings.EqualFold(raw, string(s)) {
			return s, true
		}
	}
	return "", false
}

// Assignment is a single trackable academic task.
type Assignment struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Course      string           `json:"course"`
	DueDate     time.Time        `json:"due_date"`
	TotalPoints int              `json:"total_points"`
	Status      AssignmentStatus `json:"status"`
	Score       *float64         `json:"score,omitempty"`
}

// DueDateString renders the due date as YYYY-MM-DD, or "" when unset.
func (a Assignment) DueDateString() string {
	if a.DueDate.IsZero() {
		return ""
	}
	return a.DueDate.Format(DateLayout)
}

// ScoreString renders the score in its shortest decimal form, or "" when absent.
func (a Assignment) ScoreString() string {
	if a.Score == nil {
		return ""
	}
	return FormatScore(*a.Score)
}

// FormatScore renders a score without trailing zeros.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AssignmentPredicate selects assignments for a view.
type AssignmentPredicate func(Assignment) bool

// AssignmentFilter scopes list views. Empty fields match everything.
type AssignmentFilter struct {
	Course string
	Status AssignmentStatus
}

// Match reports whether a passes every set field of the filter.
func (f AssignmentFilter) Match(a Assignment) bool {
	if f.Course != "" && !strings.EqualFold(a.Course, f.Course) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

// AssignmentSummary counts assignments per status.
type AssignmentSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
	Graded    int `json:"graded"`
}

// Count returns the number of assignments in the given status.
func (s AssignmentSummary) Count(status AssignmentStatus) int {
	switch status {
	case StatusPending:
		return s.Pending
	case StatusSubmitted:
		return s.Submitted
	case StatusGraded:
		return s.Graded
	}
	return 0
}

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
