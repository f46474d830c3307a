package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-tracker/internal/models"
	"github.com/noah-isme/assignment-tracker/internal/service"
	appErrors "github.com/noah-isme/assignment-tracker/pkg/errors"
	"github.com/noah-isme/assignment-tracker/pkg/response"
)

type assignmentReader interface {
	Filter(ctx context.Context, filter models.AssignmentFilter) []models.Assignment
	PriorityView(ctx context.Context, today time.Time) []models.Assignment
	PriorityWindowDays() int
	Get(ctx context.Context, id string) (*models.Assignment, error)
	Summary(ctx context.Context) models.AssignmentSummary
}

// AssignmentHandler exposes read-only assignment views over HTTP.
type AssignmentHandler struct {
	assignments assignmentReader
	now         func() time.Time
}

// NewAssignmentHandler constructs an AssignmentHandler.
func NewAssignmentHandler(assignments assignmentReader) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, now: time.Now}
}

// List returns every assignment, optionally filtered by course and status.
func (h *AssignmentHandler) List(c *gin.Context) {
	filter := models.AssignmentFilter{Course: strings.TrimSpace(c.Query("course"))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := service.ParseStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Status = status
	}

	items := h.assignments.Filter(c.Request.Context(), filter)
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"count": len(items)})
}

// Priority returns Pending assignments due within the priority window of ?today (default: now).
func (h *AssignmentHandler) Priority(c *gin.Context) {
	today := h.now()
	if raw := strings.TrimSpace(c.Query("today")); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Invalid("today", "today must be YYYY-MM-DD"))
			return
		}
		today = parsed
	}

	items := h.assignments.PriorityView(c.Request.Context(), today)
	response.JSON(c, http.StatusOK, items, map[string]interface{}{
		"count":       len(items),
		"today":       models.DateOf(today).Format(models.DateLayout),
		"window_days": h.assignments.PriorityWindowDays(),
	})
}

// Get returns a single assignment by its session ID.
func (h *AssignmentHandler) Get(c *gin.Context) {
	item, err := h.assignments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Summary returns per-status counts.
func (h *AssignmentHandler) Summary(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.assignments.Summary(c.Request.Context()))
}
