// Package pipeline sequences the briefing stages and drives a complete run
// from aggregation through delivery.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"morningbrief/internal/app/prompts"
	"morningbrief/internal/app/sections"
	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/observability"
	brieferrors "morningbrief/internal/shared/errors"
	"morningbrief/internal/shared/logging"
	tokenutil "morningbrief/internal/shared/token"
)

// DefaultStageTimeout bounds one generation call.
const DefaultStageTimeout = 120 * time.Second

// StageTitles are the display titles of each stage's section group.
var StageTitles = map[string]string{
	briefing.StageWeather:  "Weather Section",
	briefing.StageFitness:  "Fitness Section",
	briefing.StageSchedule: "Schedule Section",
}

// StageOptions tunes the orchestrator.
type StageOptions struct {
	StageTimeout time.Duration
	// Context is the caller's free text, passed unmodified to every stage.
	Context string
	// System is sent as framing ahead of every prompt when set.
	System string
	// Provider and Model only label spans.
	Provider string
	Model    string
}

// Orchestrator runs weather, fitness and schedule stages in that order.
// Each stage composes a prompt, calls the generator and extracts sections.
type Orchestrator struct {
	composer  *prompts.Composer
	generator briefing.Generator
	extractor *sections.Extractor
	opts      StageOptions
	logger    logging.Logger
	metrics   *observability.MetricsCollector
	tracer    *observability.TracerProvider
}

// NewOrchestrator wires the stage collaborators. metrics and tracer may be nil.
func NewOrchestrator(
	composer *prompts.Composer,
	generator briefing.Generator,
	extractor *sections.Extractor,
	opts StageOptions,
	logger logging.Logger,
	metrics *observability.MetricsCollector,
	tracer *observability.TracerProvider,
) *Orchestrator {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = DefaultStageTimeout
	}
	logger = logging.OrNop(logger)
	if extractor == nil {
		extractor = sections.NewExtractor(logger)
	}
	return &Orchestrator{
		composer:  composer,
		generator: generator,
		extractor: extractor,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
	}
}

// Generate runs the three stages over snapshot. Any stage failure aborts
// the run with a *errors.StageError; no partial briefing is returned.
func (o *Orchestrator) Generate(ctx context.Context, snapshot briefing.Snapshot) (briefing.Briefing, error) {
	weather, err := o.runStage(ctx, briefing.StageWeather, func() (string, error) {
		return o.composer.WeatherPrompt(snapshot.Weather, o.opts.Context)
	})
	if err != nil {
		return briefing.Briefing{}, err
	}

	fitness, err := o.runStage(ctx, briefing.StageFitness, func() (string, error) {
		return o.composer.FitnessPrompt(snapshot.Fitness, o.opts.Context)
	})
	if err != nil {
		return briefing.Briefing{}, err
	}

	recommendations := fragment(weather.Response, briefing.SectionWeatherRecommendations)
	overview := fragment(fitness.Response, briefing.SectionFitnessOverview)
	schedule, err := o.runStage(ctx, briefing.StageSchedule, func() (string, error) {
		return o.composer.SchedulePrompt(snapshot.Schedule, recommendations, overview, o.opts.Context)
	})
	if err != nil {
		return briefing.Briefing{}, err
	}

	return briefing.Briefing{
		Groups:   []briefing.SectionGroup{weather, fitness, schedule},
		Snapshot: snapshot,
	}, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage string, compose func() (string, error)) (group briefing.SectionGroup, err error) {
	ctx, span := o.tracer.StartSpan(ctx, observability.SpanStageRun, attribute.String(observability.AttrStage, stage))
	started := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.RecordStageRun(ctx, stage, status, time.Since(started))
		observability.EndSpan(span, err)
	}()

	if err := ctx.Err(); err != nil {
		return group, &brieferrors.StageError{Stage: stage, Err: err}
	}

	prompt, err := compose()
	if err != nil {
		return group, &brieferrors.StageError{Stage: stage, Err: fmt.Errorf("compose prompt: %w", err)}
	}
	tokens := tokenutil.CountTokens(prompt)
	o.metrics.RecordPromptTokens(ctx, stage, tokens)
	o.logger.Info("Orchestrator: stage %s started (prompt %d tokens)", stage, tokens)

	response, err := o.generate(ctx, stage, prompt)
	if err != nil {
		o.logger.Error("Orchestrator: stage %s generation failed: %v", stage, err)
		return group, &brieferrors.StageError{Stage: stage, Err: err}
	}

	ids := briefing.StageSections[stage]
	extracted := o.extractor.Extract(response, ids)
	if missing := absent(extracted); len(missing) > 0 {
		o.logger.Warn("Orchestrator: stage %s response lacks sections %v", stage, missing)
	}
	o.logger.Info("Orchestrator: stage %s finished in %s", stage, time.Since(started).Round(time.Millisecond))

	return briefing.SectionGroup{
		Stage:    stage,
		Title:    StageTitles[stage],
		Response: extracted,
	}, nil
}

func (o *Orchestrator) generate(ctx context.Context, stage, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
	defer cancel()

	attrs := []attribute.KeyValue{attribute.String(observability.AttrStage, stage)}
	if o.opts.Provider != "" {
		attrs = append(attrs, attribute.String(observability.AttrProvider, o.opts.Provider))
	}
	if o.opts.Model != "" {
		attrs = append(attrs, attribute.String(observability.AttrModel, o.opts.Model))
	}
	ctx, span := o.tracer.StartSpan(ctx, observability.SpanLLMGenerate, attrs...)
	response, err := o.generator.Generate(ctx, briefing.GenerationRequest{
		Stage:  stage,
		System: o.opts.System,
		Prompt: prompt,
	})
	observability.EndSpan(span, err)
	return response, err
}

// fragment returns the content of id, or nil when the section is absent.
func fragment(resp briefing.SectionedResponse, id string) *string {
	content, ok := resp.Get(id)
	if !ok {
		return nil
	}
	return &content
}

func absent(resp briefing.SectionedResponse) []string {
	var ids []string
	for _, section := range resp.Sections {
		if !section.Present {
			ids = append(ids, section.ID)
		}
	}
	return ids
}
