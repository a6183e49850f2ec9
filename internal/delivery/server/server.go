// Package server exposes the briefing pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"morningbrief/internal/app/aggregate"
	"morningbrief/internal/app/pipeline"
	"morningbrief/internal/app/scheduler"
	"morningbrief/internal/delivery/render"
	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/observability"
	brieferrors "morningbrief/internal/shared/errors"
	"morningbrief/internal/shared/logging"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// Runner is the pipeline surface the handlers drive.
type Runner interface {
	Run(ctx context.Context, deliver bool) (pipeline.Result, error)
	Snapshot(ctx context.Context) (briefing.Snapshot, aggregate.Report, error)
	Window() (briefing.TimeWindow, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr          string
	Debug         bool
	RecipientName string
	ReadTimeout   time.Duration
	// WriteTimeout must leave room for a full generation run.
	WriteTimeout time.Duration
}

// Server is the HTTP front of the pipeline.
type Server struct {
	cfg        Config
	engine     *gin.Engine
	runner     Runner
	metrics    *observability.MetricsCollector
	scheduler  *scheduler.Scheduler
	logger     logging.Logger
	startTime  time.Time
	httpServer *http.Server
}

// New builds the router. metrics and sched may be nil.
func New(cfg Config, runner Runner, metrics *observability.MetricsCollector, sched *scheduler.Scheduler, logger logging.Logger) *Server {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		engine:    gin.New(),
		runner:    runner,
		metrics:   metrics,
		scheduler: sched,
		logger:    logging.OrNop(logger),
		startTime: time.Now(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	v1 := s.engine.Group("/v1")
	v1.GET("/snapshot", s.handleSnapshot)
	v1.POST("/briefings", s.handleBriefing)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server: listening on %s", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Server: shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-Id", requestID)

		started := time.Now()
		c.Next()
		if c.Request.URL.Path == "/metrics" {
			return
		}
		s.logger.Info("Server: %s %s -> %d in %s [%s]", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(started).Round(time.Millisecond), requestID)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	}
	if s.scheduler != nil {
		status := s.scheduler.Status()
		sched := gin.H{
			"runs":     status.Runs,
			"next_run": s.scheduler.Next(time.Now()).Format(time.RFC3339),
		}
		if !status.LastRun.IsZero() {
			sched["last_run"] = status.LastRun.Format(time.RFC3339)
		}
		if status.LastError != "" {
			sched["last_error"] = status.LastError
		}
		body["scheduler"] = sched
	}
	c.JSON(http.StatusOK, body)
}

type windowView struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

func viewOf(w briefing.TimeWindow) windowView {
	return windowView{
		Start:    w.Start.Format(time.RFC3339),
		End:      w.End.Format(time.RFC3339),
		Timezone: w.Location.String(),
	}
}

func (s *Server) handleSnapshot(c *gin.Context) {
	window, err := s.runner.Window()
	if err != nil {
		s.writeError(c, err)
		return
	}
	snapshot, report, err := s.runner.Snapshot(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window":   viewOf(window),
		"snapshot": snapshot,
		"degraded": report.Categories(),
	})
}

func (s *Server) handleBriefing(c *gin.Context) {
	deliver, err := parseBool(c.Query("deliver"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deliver must be a boolean"})
		return
	}

	result, err := s.runner.Run(c.Request.Context(), deliver)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if strings.EqualFold(c.Query("format"), "html") {
		document, err := render.Compose(result.Briefing, render.Options{RecipientName: s.cfg.RecipientName})
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(document))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window":    viewOf(result.Window),
		"groups":    result.Briefing.Groups,
		"degraded":  result.Report.Categories(),
		"delivered": result.Delivered,
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var stageErr *brieferrors.StageError
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		status = http.StatusConflict
	case errors.As(err, &stageErr):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	s.logger.Warn("Server: request failed with %d: %v", status, err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseBool(value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}
