// Package scheduler triggers the daily briefing run on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"morningbrief/internal/app/pipeline"
	"morningbrief/internal/shared/async"
	"morningbrief/internal/shared/logging"
)

// DefaultSchedule fires at 07:00 every day.
const DefaultSchedule = "0 7 * * *"

// DefaultRunTimeout bounds one triggered run.
const DefaultRunTimeout = 15 * time.Minute

// Job is the work a trigger performs.
type Job interface {
	Run(ctx context.Context, deliver bool) (pipeline.Result, error)
}

// Config holds scheduler configuration.
type Config struct {
	Enabled  bool
	Schedule string
	Location *time.Location
	// Deliver publishes each triggered briefing instead of only generating it.
	Deliver    bool
	RunTimeout time.Duration
	// ConcurrencyPolicy is "skip" (default) or "delay".
	ConcurrencyPolicy string
}

// Status reports the outcome of the most recent triggered run.
type Status struct {
	LastRun   time.Time
	LastError string
	Runs      int
}

// Scheduler owns the cron loop.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	job      Job
	config   Config
	logger   logging.Logger
	mu       sync.Mutex
	status   Status
	entryID  cron.EntryID
	started  bool
	stopped  chan struct{}
	stopOnce sync.Once
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a scheduler. The schedule expression is validated here so a
// bad config fails at startup rather than silently never firing.
func New(cfg Config, job Job, logger logging.Logger) (*Scheduler, error) {
	logger = logging.OrNop(logger)
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	schedule, err := parser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cfg.Schedule, err)
	}
	return &Scheduler{
		cron:     newCron(cfg, logger),
		schedule: schedule,
		job:      job,
		config:   cfg,
		logger:   logger,
		stopped:  make(chan struct{}),
	}, nil
}

func newCron(cfg Config, logger logging.Logger) *cron.Cron {
	cronLog := cronLogger{logger: logger}
	options := []cron.Option{
		cron.WithParser(parser),
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cronLog),
	}
	var wrapper cron.JobWrapper
	switch policy := strings.ToLower(strings.TrimSpace(cfg.ConcurrencyPolicy)); policy {
	case "delay":
		wrapper = cron.DelayIfStillRunning(cronLog)
	case "skip", "":
		wrapper = cron.SkipIfStillRunning(cronLog)
	default:
		logger.Warn("Scheduler: unknown concurrency policy %q, defaulting to skip", policy)
		wrapper = cron.SkipIfStillRunning(cronLog)
	}
	options = append(options, cron.WithChain(cron.Recover(cronLog), wrapper))
	return cron.New(options...)
}

// Start registers the daily trigger and starts the cron loop. The loop
// stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler disabled by config")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.entryID = s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.Trigger(ctx)
	}))
	s.cron.Start()
	s.started = true
	s.logger.Info("Scheduler started (schedule=%q tz=%s next=%s)", s.config.Schedule, s.config.Location, s.Next(time.Now()).Format(time.RFC3339))

	async.Go(s.logger, "scheduler-stop", func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stopped:
		}
	})
	return nil
}

// Trigger runs the job once, outside the cron loop if needed.
func (s *Scheduler) Trigger(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	started := time.Now()
	s.logger.Info("Scheduler: triggering briefing run (deliver=%t)", s.config.Deliver)
	_, err := s.job.Run(runCtx, s.config.Deliver)

	s.mu.Lock()
	s.status.LastRun = started
	s.status.Runs++
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduler: briefing run failed: %v", err)
		return
	}
	s.logger.Info("Scheduler: briefing run completed in %s", time.Since(started).Round(time.Millisecond))
}

// Next returns the first fire time after t in the scheduler's zone.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.config.Location))
}

// Status returns a copy of the last-run status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stop gracefully stops the scheduler, waiting for a running job. Safe to
// call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Scheduler stopping...")
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		close(s.stopped)
		s.logger.Info("Scheduler stopped")
	})
}

// Done returns a channel that is closed when the scheduler has fully stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.stopped
}

// cronLogger routes cron's own logging through the component logger.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("Scheduler: cron %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("Scheduler: cron %s: %v %v", msg, err, keysAndValues)
}
