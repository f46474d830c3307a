package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker/internal/models"
	"github.com/noah-isme/assignment-tracker/internal/repository"
	"github.com/noah-isme/assignment-tracker/internal/service"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.AssignmentService, *service.MetricsService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewAssignmentStore(filepath.Join(t.TempDir(), "assignments.csv"), zap.NewNop())
	svc := service.NewAssignmentService(store, nil, zap.NewNop(), service.AssignmentServiceConfig{})
	ctx := context.Background()
	for _, req := range []service.AddAssignmentRequest{
		{Name: "Essay", Course: "Hist101", DueDate: "2025-03-05", TotalPoints: "100"},
		{Name: "Lab", Course: "Chem", DueDate: "2025-03-10", TotalPoints: "20"},
		{Name: "Reading", Course: "Hist101", DueDate: "2025-02-28", TotalPoints: "10"},
	} {
		_, err := svc.Add(ctx, req)
		require.NoError(t, err)
	}
	_, err := svc.Update(ctx, 1, "Graded", "17")
	require.NoError(t, err)

	metrics := service.NewMetricsService()
	assignments := NewAssignmentHandler(svc)
	assignments.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	r := NewRouter(RouterDeps{
		APIPrefix:   "/api/v1",
		Assignments: assignments,
		Metrics:     NewMetricsHandler(metrics.Handler()),
		Observer:    metrics,
	})
	return r, svc, metrics
}

func doGet(t *testing.T, r *gin.Engine, url string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeAssignments(t *testing.T, raw json.RawMessage) []models.Assignment {
	t.Helper()
	var items []models.Assignment
	require.NoError(t, json.Unmarshal(raw, &items))
	return items
}

func TestAssignmentHandlerList(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w, env := doGet(t, r, "/api/v1/assignments")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeAssignments(t, env.Data), 3)
	assert.Equal(t, 3.0, env.Meta["count"])

	w, env = doGet(t, r, "/api/v1/assignments?course=hist101&status=pending")
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeAssignments(t, env.Data)
	require.Len(t, items, 2)
	assert.Equal(t, "Essay", items[0].Name)
}

func TestAssignmentHandlerListInvalidStatus(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w, env := doGet(t, r, "/api/v1/assignments?status=finished")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, service.FieldStatus, env.Error.Field)
}

func TestAssignmentHandlerPriority(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w, env := doGet(t, r, "/api/v1/assignments/priority")
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeAssignments(t, env.Data)
	require.Len(t, items, 1)
	assert.Equal(t, "Essay", items[0].Name)
	assert.Equal(t, "2025-03-01", env.Meta["today"])
	assert.Equal(t, 7.0, env.Meta["window_days"])

	w, env = doGet(t, r, "/api/v1/assignments/priority?today=2025-02-27")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeAssignments(t, env.Data), 2)

	w, _ = doGet(t, r, "/api/v1/assignments/priority?today=tomorrow")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignmentHandlerGet(t *testing.T) {
	r, svc, _ := newTestRouter(t)
	lab := svc.FilterByCourse(context.Background(), "chem")[0]

	w, env := doGet(t, r, "/api/v1/assignments/"+lab.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Assignment
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Lab", got.Name)
	require.NotNil(t, got.Score)
	assert.Equal(t, 17.0, *got.Score)

	w, env = doGet(t, r, "/api/v1/assignments/does-not-exist")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestAssignmentHandlerSummary(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w, env := doGet(t, r, "/api/v1/summary")
	require.Equal(t, http.StatusOK, w.Code)
	var summary models.AssignmentSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, models.AssignmentSummary{Total: 3, Pending: 2, Graded: 1}, summary)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r, _, metrics := newTestRouter(t)

	w, _ := doGet(t, r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	doGet(t, r, "/api/v1/assignments")
	w, _ = doGet(t, r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/v1/assignments",status="200"} 1`)
	assert.GreaterOrEqual(t, metrics.RequestCount(), uint64(2))
}

func TestMetricsHandlerUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)

	NewMetricsHandler(nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
