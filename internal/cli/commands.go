package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker/internal/handler"
	"github.com/noah-isme/assignment-tracker/internal/models"
	"github.com/noah-isme/assignment-tracker/internal/repository"
	"github.com/noah-isme/assignment-tracker/internal/service"
	"github.com/noah-isme/assignment-tracker/pkg/config"
	"github.com/noah-isme/assignment-tracker/pkg/logger"
	"github.com/noah-isme/assignment-tracker/pkg/storage"
)

// Process exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Streams bundles the process standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *repository.AssignmentStore
	svc     *service.AssignmentService
	metrics *service.MetricsService
}

// Execute runs the tracker with the given arguments (without the program name).
//
//	tracker [flags]          interactive menu
//	tracker serve [flags]    read-only HTTP API
//	tracker export [flags]   render a view to csv or pdf
func Execute(ctx context.Context, args []string, streams Streams) int {
	command := "menu"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	flags := config.Flags("tracker " + command)
	flags.SetOutput(streams.Err)
	var exportOpts exportOptions
	switch command {
	case "menu":
	case "serve":
	case "export":
		exportOpts.register(flags)
	case "help":
		fmt.Fprintln(streams.Out, usage) //nolint:errcheck
		return ExitOK
	default:
		fmt.Fprintf(streams.Err, "unknown command %q\n%s\n", command, usage) //nolint:errcheck
		return ExitUsage
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(streams.Err, "failed to load config: %v\n", err) //nolint:errcheck
		return ExitError
	}
	a := newApp(cfg, logger.Must(cfg))
	defer a.logger.Sync() //nolint:errcheck

	a.load(ctx, streams.Err)

	switch command {
	case "serve":
		return a.serve(ctx)
	case "export":
		return a.export(ctx, exportOpts, streams)
	default:
		menu := NewMenu(a.svc, a.store, streams.In, streams.Out, a.logger)
		if err := menu.Run(ctx); err != nil {
			return ExitError
		}
		return ExitOK
	}
}

const usage = `usage: tracker [menu|serve|export|help] [flags]
  menu     interactive assignment tracker (default)
  serve    read-only JSON API with Prometheus metrics
  export   write a csv or pdf report of assignments`

func newApp(cfg *config.Config, log *zap.Logger) *app {
	store := repository.NewAssignmentStore(cfg.Tracker.DataFile, log.Named("store"))
	svc := service.NewAssignmentService(store, validator.New(), log.Named("assignments"), service.AssignmentServiceConfig{
		PriorityWindowDays: cfg.Tracker.PriorityWindowDays,
	})
	return &app{
		cfg:     cfg,
		logger:  log,
		store:   store,
		svc:     svc,
		metrics: service.NewMetricsService(),
	}
}

// load reads the data file; any failure means starting empty with a warning.
func (a *app) load(ctx context.Context, errOut io.Writer) {
	result, err := a.store.Load(ctx)
	switch {
	case err != nil:
		a.logger.Warn("could not load assignments, starting empty", zap.Error(err))
		fmt.Fprintf(errOut, "Error loading data: %v\nStarting with an empty assignment list.\n", err) //nolint:errcheck
	case result.Missing:
		fmt.Fprintln(errOut, "Starting with an empty assignment list.") //nolint:errcheck
	default:
		fmt.Fprintf(errOut, "Data loaded successfully. %d assignments found.\n", len(result.Assignments)) //nolint:errcheck
		if result.Skipped > 0 {
			fmt.Fprintf(errOut, "Skipped %d corrupt rows.\n", result.Skipped) //nolint:errcheck
		}
	}
	a.metrics.RecordLoad(len(result.Assignments), result.Skipped)
	a.metrics.SetSummary(a.svc.Summary(ctx))
}

func (a *app) serve(ctx context.Context) int {
	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.RouterDeps{
		APIPrefix:   a.cfg.APIPrefix,
		CORSOrigins: a.cfg.CORSOrigins,
		Assignments: handler.NewAssignmentHandler(a.svc),
		Metrics:     handler.NewMetricsHandler(a.metrics.Handler()),
		Observer:    a.metrics,
		Logger:      a.logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", a.cfg.Env, "data_file", a.store.Path())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server failed", zap.Error(err))
			return ExitError
		}
		return ExitOK
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", zap.Error(err))
			return ExitError
		}
		return ExitOK
	}
}

type exportOptions struct {
	format string
	view   string
	course string
	status string
	today  string
}

func (o *exportOptions) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.format, "format", "pdf", "export format (csv, pdf)")
	fs.StringVar(&o.view, "view", "all", "assignments to export (all, priority)")
	fs.StringVar(&o.course, "course", "", "only export this course (view=all)")
	fs.StringVar(&o.status, "status", "", "only export this status (view=all)")
	fs.StringVar(&o.today, "today", "", "reference date for the priority view (YYYY-MM-DD)")
}

func (o exportOptions) request() (models.ExportRequest, error) {
	var req models.ExportRequest
	format, ok := models.ParseExportFormat(o.format)
	if !ok {
		return req, fmt.Errorf("unknown format %q", o.format)
	}
	view, ok := models.ParseExportView(o.view)
	if !ok {
		return req, fmt.Errorf("unknown view %q", o.view)
	}
	req.Format, req.View = format, view
	req.Filter.Course = strings.TrimSpace(o.course)
	if o.status != "" {
		status, err := service.ParseStatus(o.status)
		if err != nil {
			return req, err
		}
		req.Filter.Status = status
	}
	if o.today != "" {
		today, err := service.ParseDueDate(o.today)
		if err != nil {
			return req, errors.New("invalid --today, use YYYY-MM-DD")
		}
		req.Today = today
	}
	return req, nil
}

func (a *app) export(ctx context.Context, opts exportOptions, streams Streams) int {
	req, err := opts.request()
	if err != nil {
		fmt.Fprintf(streams.Err, "export: %v\n", err) //nolint:errcheck
		return ExitUsage
	}
	files, err := storage.NewLocalStorage(a.cfg.Exports.Dir)
	if err != nil {
		fmt.Fprintf(streams.Err, "export: %v\n", err) //nolint:errcheck
		return ExitError
	}
	exports := service.NewExportService(a.svc, files, nil, nil, a.metrics, a.logger.Named("export"))
	result, err := exports.Generate(ctx, req)
	if err != nil {
		fmt.Fprintf(streams.Err, "export: %v\n", err) //nolint:errcheck
		return ExitError
	}
	fmt.Fprintf(streams.Out, "Exported %d assignments to %s\n", result.Rows, result.Path) //nolint:errcheck
	return ExitOK
}
