// Package aggregate fetches every data source for a briefing run and
// combines the results into one snapshot.
package aggregate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"morningbrief/internal/app/schedule"
	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/observability"
	"morningbrief/internal/infra/sources"
	"morningbrief/internal/shared/async"
	brieferrors "morningbrief/internal/shared/errors"
	"morningbrief/internal/shared/logging"
)

// DefaultSourceTimeout bounds a single source fetch.
const DefaultSourceTimeout = 20 * time.Second

// Sources are the adapters the aggregator calls. A nil source leaves its
// category empty.
type Sources struct {
	Weather briefing.WeatherSource
	Fitness briefing.FitnessSource
	Tasks   briefing.TaskSource
	Events  briefing.EventSource
}

// Options tunes fetching.
type Options struct {
	SourceTimeout time.Duration
	// Sequential disables concurrent fetching.
	Sequential bool
}

// Report lists the categories that degraded during a run.
type Report struct {
	Degraded []*brieferrors.DegradedError
}

// OK reports whether every source delivered in full.
func (r Report) OK() bool {
	return len(r.Degraded) == 0
}

// Categories returns the degraded category names, sorted.
func (r Report) Categories() []string {
	names := make([]string, 0, len(r.Degraded))
	for _, d := range r.Degraded {
		names = append(names, d.Category)
	}
	sort.Strings(names)
	return names
}

// Aggregator owns the fan-out over sources. It never fails: each category
// falls back to its empty value on error.
type Aggregator struct {
	sources Sources
	opts    Options
	logger  logging.Logger
	metrics *observability.MetricsCollector
	tracer  *observability.TracerProvider
}

// New builds an aggregator. metrics and tracer may be nil.
func New(srcs Sources, opts Options, logger logging.Logger, metrics *observability.MetricsCollector, tracer *observability.TracerProvider) *Aggregator {
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	return &Aggregator{
		sources: srcs,
		opts:    opts,
		logger:  logging.OrNop(logger),
		metrics: metrics,
		tracer:  tracer,
	}
}

// Aggregate fetches all sources for window and returns the combined
// snapshot along with a report of degraded categories.
func (a *Aggregator) Aggregate(ctx context.Context, window briefing.TimeWindow) (briefing.Snapshot, Report) {
	snapshot := briefing.EmptySnapshot()
	var (
		tasks, events []briefing.Item
		mu            sync.Mutex
		report        Report
	)

	degrade := func(category string, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Degraded = append(report.Degraded, &brieferrors.DegradedError{Category: category, Err: err})
	}

	fetches := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{sources.Weather, func(ctx context.Context) error {
			if a.sources.Weather == nil {
				return errNotConfigured
			}
			weather, err := a.sources.Weather.FetchWeather(ctx, window)
			if err != nil {
				return err
			}
			snapshot.Weather = weather
			return nil
		}},
		{sources.Fitness, func(ctx context.Context) error {
			if a.sources.Fitness == nil {
				return errNotConfigured
			}
			days, err := a.sources.Fitness.FetchFitness(ctx, window)
			if err == nil {
				snapshot.Fitness = days
				return nil
			}
			if populated(days) {
				snapshot.Fitness = days
				return &partialError{err: err}
			}
			return err
		}},
		{sources.Planner, func(ctx context.Context) error {
			if a.sources.Tasks == nil {
				return errNotConfigured
			}
			items, err := a.sources.Tasks.FetchTasks(ctx, window)
			if err != nil {
				return err
			}
			tasks = items
			return nil
		}},
		{sources.Calendar, func(ctx context.Context) error {
			if a.sources.Events == nil {
				return errNotConfigured
			}
			items, err := a.sources.Events.FetchEvents(ctx, window)
			if err != nil {
				return err
			}
			events = items
			return nil
		}},
	}

	var group errgroup.Group
	for _, f := range fetches {
		call := func() error {
			if err := a.fetch(ctx, f.name, f.run); err != nil {
				degrade(f.name, err)
			}
			return nil
		}
		if a.opts.Sequential {
			_ = async.Guard(a.logger, f.name, call)()
			continue
		}
		group.Go(async.Guard(a.logger, f.name, call))
	}
	_ = group.Wait()

	snapshot.Schedule = schedule.Merge(tasks, events)

	if report.OK() {
		a.logger.Info("Aggregator: all sources fetched")
	} else {
		a.logger.Warn("Aggregator: continuing with degraded categories %v", report.Categories())
	}
	return snapshot, report
}

// fetch runs one source with its own timeout, span and metrics. Panics are
// turned into errors so one broken adapter cannot take down the run.
func (a *Aggregator) fetch(ctx context.Context, name string, run func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
	defer cancel()

	ctx, span := a.tracer.StartSpan(ctx, observability.SpanSourceFetch, attribute.String(observability.AttrSource, name))
	started := time.Now()

	err = async.Guard(a.logger, "source "+name, func() error { return run(ctx) })()

	var partial *partialError
	status := "ok"
	switch {
	case errors.Is(err, errNotConfigured):
		status = "skipped"
		a.logger.Debug("Aggregator: %s not configured, leaving it empty", name)
	case errors.As(err, &partial):
		status = "partial"
		a.logger.Warn("Aggregator: %s partially available: %v", name, partial.err)
	case err != nil:
		status = "error"
		a.logger.Error("Aggregator: %s failed (%s), degrading to empty: %v", name, brieferrors.GetErrorType(err), err)
	}

	a.metrics.RecordSourceFetch(ctx, name, status, time.Since(started))
	observability.EndSpan(span, err)
	if errors.Is(err, errNotConfigured) {
		return nil
	}
	return err
}

var errNotConfigured = errors.New("source not configured")

// partialError marks a fetch that delivered some data alongside failures.
type partialError struct {
	err error
}

func (e *partialError) Error() string { return "partial: " + e.err.Error() }
func (e *partialError) Unwrap() error { return e.err }

// populated reports whether any day carries at least one metric.
func populated(days map[string]briefing.FitnessSnapshot) bool {
	for day, snapshot := range days {
		if snapshot != (briefing.FitnessSnapshot{Date: day}) {
			return true
		}
	}
	return false
}
