package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker/internal/middleware"
	"github.com/noah-isme/assignment-tracker/pkg/logger"
	"github.com/noah-isme/assignment-tracker/pkg/middleware/cors"
	"github.com/noah-isme/assignment-tracker/pkg/middleware/requestid"
)

// RouterDeps collects what the read-only API needs.
type RouterDeps struct {
	APIPrefix   string
	CORSOrigins []string
	Assignments *AssignmentHandler
	Metrics     *MetricsHandler
	Observer    middleware.RequestObserver
	Logger      *zap.Logger
}

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(cors.New(deps.CORSOrigins))
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(middleware.Metrics(deps.Observer))

	if deps.Metrics != nil {
		r.GET("/health", deps.Metrics.Health)
		r.GET("/metrics", deps.Metrics.Prometheus)
	}

	prefix := "/" + strings.Trim(deps.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	api := r.Group(prefix)
	if deps.Assignments != nil {
		api.GET("/assignments", deps.Assignments.List)
		api.GET("/assignments/priority", deps.Assignments.Priority)
		api.GET("/assignments/:id", deps.Assignments.Get)
		api.GET("/summary", deps.Assignments.Summary)
	}
	return r
}
