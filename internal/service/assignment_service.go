package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker/internal/models"
	appErrors "github.com/noah-isme/assignment-tracker/pkg/errors"
)

// Input fields named in validation errors.
const (
	FieldName        = "name"
	FieldCourse      = "course"
	FieldDueDate     = "due_date"
	FieldTotalPoints = "total_points"
	FieldStatus      = "status"
	FieldScore       = "score"
)

const defaultPriorityWindowDays = 7

type assignmentStore interface {
	All() []models.Assignment
	At(index int) (models.Assignment, bool)
	Find(id string) (models.Assignment, bool)
	Append(a models.Assignment) models.Assignment
	Replace(a models.Assignment) bool
}

// AddAssignmentRequest carries raw user input for a new assignment.
type AddAssignmentRequest struct {
	Name        string `json:"name" validate:"required"`
	Course      string `json:"course" validate:"required"`
	DueDate     string `json:"due_date" validate:"required"`
	TotalPoints string `json:"total_points" validate:"required"`
}

// AssignmentServiceConfig tunes read-side views.
type AssignmentServiceConfig struct {
	PriorityWindowDays int
}

// AssignmentService applies validated mutations and views over the store.
type AssignmentService struct {
	store     assignmentStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AssignmentServiceConfig
}

// NewAssignmentService creates a service instance.
func NewAssignmentService(store assignmentStore, validate *validator.Validate, logger *zap.Logger, cfg AssignmentServiceConfig) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PriorityWindowDays <= 0 {
		cfg.PriorityWindowDays = defaultPriorityWindowDays
	}
	return &AssignmentService{
		store:     store,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Add validates the request and appends a Pending assignment.
func (s *AssignmentService) Add(ctx context.Context, req AddAssignmentRequest) (*models.Assignment, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Course = strings.TrimSpace(req.Course)
	req.DueDate = strings.TrimSpace(req.DueDate)
	req.TotalPoints = strings.TrimSpace(req.TotalPoints)

	if err := s.validator.Struct(req); err != nil {
		return nil, requiredFieldError(err)
	}
	due, err := ParseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	points, err := ParseTotalPoints(req.TotalPoints)
	if err != nil {
		return nil, err
	}

	created := s.store.Append(models.Assignment{
		Name:        req.Name,
		Course:      req.Course,
		DueDate:     due,
		TotalPoints: points,
		Status:      models.StatusPending,
	})
	s.logger.Debug("assignment added", zap.String("id", created.ID), zap.String("name", created.Name))
	return &created, nil
}

// Update changes the status (and score) of the assignment at a 0-based position.
func (s *AssignmentService) Update(ctx context.Context, index int, status, score string) (*models.Assignment, error) {
	current, ok := s.store.At(index)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return s.apply(current, status, score)
}

// UpdateByID changes the status (and score) of the assignment with the given ID.
func (s *AssignmentService) UpdateByID(ctx context.Context, id, status, score string) (*models.Assignment, error) {
	current, ok := s.store.Find(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return s.apply(current, status, score)
}

// apply validates everything before touching the store so a rejected update
// leaves the record as it was.
func (s *AssignmentService) apply(current models.Assignment, rawStatus, rawScore string) (*models.Assignment, error) {
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	updated := current
	updated.Status = status
	switch status {
	case models.StatusGraded:
		v, err := ParseScore(rawScore, current.TotalPoints)
		if err != nil {
			return nil, err
		}
		updated.Score = &v
	case models.StatusSubmitted:
		updated.Score = nil
	}

	if !s.store.Replace(updated) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	s.logger.Debug("assignment updated",
		zap.String("id", updated.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
	)
	return &updated, nil
}

// List returns assignments in insertion order, optionally restricted by predicate.
func (s *AssignmentService) List(ctx context.Context, predicate models.AssignmentPredicate) []models.Assignment {
	all := s.store.All()
	if predicate == nil {
		return all
	}
	out := make([]models.Assignment, 0, len(all))
	for _, a := range all {
		if predicate(a) {
			out = append(out, a)
		}
	}
	return out
}

// FilterByCourse matches course names case-insensitively.
func (s *AssignmentService) FilterByCourse(ctx context.Context, course string) []models.Assignment {
	course = strings.TrimSpace(course)
	return s.List(ctx, func(a models.Assignment) bool {
		return strings.EqualFold(a.Course, course)
	})
}

// FilterByStatus matches the normalized status exactly.
func (s *AssignmentService) FilterByStatus(ctx context.Context, status string) ([]models.Assignment, error) {
	normalized, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, models.AssignmentFilter{Status: normalized}.Match), nil
}

// Filter applies an AssignmentFilter; an empty filter lists everything.
func (s *AssignmentService) Filter(ctx context.Context, filter models.AssignmentFilter) []models.Assignment {
	return s.List(ctx, filter.Match)
}

// PriorityView returns Pending assignments due within [today, today+window] inclusive.
func (s *AssignmentService) PriorityView(ctx context.Context, today time.Time) []models.Assignment {
	start := models.DateOf(today)
	end := start.AddDate(0, 0, s.cfg.PriorityWindowDays)
	return s.List(ctx, func(a models.Assignment) bool {
		if a.Status != models.StatusPending || a.DueDate.IsZero() {
			return false
		}
		due := models.DateOf(a.DueDate)
		return !due.Before(start) && !due.After(end)
	})
}

// PriorityWindowDays is the look-ahead used by PriorityView.
func (s *AssignmentService) PriorityWindowDays() int {
	return s.cfg.PriorityWindowDays
}

// Get returns a single assignment by ID.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	a, ok := s.store.Find(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return &a, nil
}

// Summary counts assignments per status.
func (s *AssignmentService) Summary(ctx context.Context) models.AssignmentSummary {
	var summary models.AssignmentSummary
	for _, a := range s.store.All() {
		summary.Total++
		switch a.Status {
		case models.StatusPending:
			summary.Pending++
		case models.StatusSubmitted:
			summary.Submitted++
		case models.StatusGraded:
			summary.Graded++
		}
	}
	return summary
}

// ParseDueDate validates a YYYY-MM-DD due date.
func ParseDueDate(raw string) (time.Time, error) {
	due, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, appErrors.Invalid(FieldDueDate, "invalid due date, use YYYY-MM-DD")
	}
	return due, nil
}

// ParseTotalPoints validates a positive whole number of points.
func ParseTotalPoints(raw string) (int, error) {
	points, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, appErrors.Invalid(FieldTotalPoints, "total points must be a number")
	}
	if points < 1 {
		return 0, appErrors.Invalid(FieldTotalPoints, "total points must be positive")
	}
	return points, nil
}

// ParseStatus normalizes a status name case-insensitively.
func ParseStatus(raw string) (models.AssignmentStatus, error) {
	status, ok := models.ParseStatus(raw)
	if !ok {
		return "", appErrors.Invalid(FieldStatus, "status must be Pending, Submitted or Graded")
	}
	return status, nil
}

// ParseScore validates a numeric score in [0, totalPoints].
func ParseScore(raw string, totalPoints int) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, appErrors.Invalid(FieldScore, "score is required when grading")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, appErrors.Invalid(FieldScore, "score must be a number")
	}
	if v < 0 {
		return 0, appErrors.Invalid(FieldScore, "score cannot be negative")
	}
	if v > float64(totalPoints) {
		return 0, appErrors.Invalid(FieldScore, "score cannot exceed total points ("+strconv.Itoa(totalPoints)+")")
	}
	return v, nil
}

func requiredFieldError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := jsonFieldName(verrs[0].Field())
		return appErrors.Invalid(field, strings.ReplaceAll(field, "_", " ")+" is required")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
}

func jsonFieldName(structField string) string {
	switch structField {
	case "Name":
		return FieldName
	case "Course":
		return FieldCourse
	case "DueDate":
		return FieldDueDate
	case "TotalPoints":
		return FieldTotalPoints
	}
	return strings.ToLower(structField)
}
