package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"morningbrief/internal/app/aggregate"
	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/observability"
	"morningbrief/internal/shared/logging"
)

// ErrRunInProgress is returned when a run is requested while another one
// is still going.
var ErrRunInProgress = errors.New("a briefing run is already in progress")

// Publisher hands a finished briefing to its destination.
type Publisher interface {
	Publish(ctx context.Context, b briefing.Briefing) error
}

// RunnerConfig anchors the run window.
type RunnerConfig struct {
	Location  *time.Location
	DaysAhead int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes one completed run.
type Result struct {
	Window    briefing.TimeWindow
	Briefing  briefing.Briefing
	Report    aggregate.Report
	Delivered bool
}

// Runner executes aggregate, generate and optionally publish. At most one
// run executes at a time.
type Runner struct {
	cfg          RunnerConfig
	aggregator   *aggregate.Aggregator
	orchestrator *Orchestrator
	publisher    Publisher
	logger       logging.Logger
	metrics      *observability.MetricsCollector
	tracer       *observability.TracerProvider
	running      sync.Mutex
}

// NewRunner builds a runner. publisher may be nil when only previews are
// needed.
func NewRunner(
	cfg RunnerConfig,
	aggregator *aggregate.Aggregator,
	orchestrator *Orchestrator,
	publisher Publisher,
	logger logging.Logger,
	metrics *observability.MetricsCollector,
	tracer *observability.TracerProvider,
) *Runner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Runner{
		cfg:          cfg,
		aggregator:   aggregator,
		orchestrator: orchestrator,
		publisher:    publisher,
		logger:       logging.OrNop(logger),
		metrics:      metrics,
		tracer:       tracer,
	}
}

// Window returns the window a run started now would use.
func (r *Runner) Window() (briefing.TimeWindow, error) {
	return briefing.NewWindow(r.cfg.Now(), r.cfg.Location, r.cfg.DaysAhead)
}

// Snapshot runs only the aggregation step.
func (r *Runner) Snapshot(ctx context.Context) (briefing.Snapshot, aggregate.Report, error) {
	window, err := r.Window()
	if err != nil {
		return briefing.Snapshot{}, aggregate.Report{}, err
	}
	snapshot, report := r.aggregator.Aggregate(ctx, window)
	return snapshot, report, nil
}

// Run produces a briefing and publishes it when deliver is true.
func (r *Runner) Run(ctx context.Context, deliver bool) (result Result, err error) {
	if !r.running.TryLock() {
		return Result{}, ErrRunInProgress
	}
	defer r.running.Unlock()

	ctx, span := r.tracer.StartSpan(ctx, observability.SpanBriefingRun)
	started := time.Now()
	defer func() {
		status := "ok"
		switch {
		case err != nil:
			status = "failed"
		case !result.Report.OK():
			status = "degraded"
		}
		r.metrics.RecordBriefingRun(ctx, status)
		observability.EndSpan(span, err)
	}()

	if deliver && r.publisher == nil {
		return Result{}, fmt.Errorf("delivery requested but no publisher is configured")
	}

	window, err := r.Window()
	if err != nil {
		return Result{}, err
	}
	result.Window = window
	r.logger.Info("Runner: briefing run started for %s (%d days ahead)", window.Today(), r.cfg.DaysAhead)

	snapshot, report := r.aggregator.Aggregate(ctx, window)
	result.Report = report

	b, err := r.orchestrator.Generate(ctx, snapshot)
	if err != nil {
		r.logger.Error("Runner: briefing run failed after %s: %v", time.Since(started).Round(time.Millisecond), err)
		return result, err
	}
	result.Briefing = b

	if deliver {
		if err := r.publish(ctx, b); err != nil {
			return result, err
		}
		result.Delivered = true
	}

	r.logger.Info("Runner: briefing run finished in %s (delivered=%t)", time.Since(started).Round(time.Millisecond), result.Delivered)
	return result, nil
}

func (r *Runner) publish(ctx context.Context, b briefing.Briefing) (err error) {
	ctx, span := r.tracer.StartSpan(ctx, observability.SpanDelivery)
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.RecordDelivery(ctx, status)
		observability.EndSpan(span, err)
	}()

	if err := r.publisher.Publish(ctx, b); err != nil {
		r.logger.Error("Runner: delivery failed: %v", err)
		return fmt.Errorf("deliver briefing: %w", err)
	}
	return nil
}
