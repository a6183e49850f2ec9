package main

import (
	"context"
	"fmt"
	"time"

	"morningbrief/internal/app/aggregate"
	"morningbrief/internal/app/pipeline"
	"morningbrief/internal/app/prompts"
	"morningbrief/internal/app/sections"
	"morningbrief/internal/delivery/email"
	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/httpclient"
	"morningbrief/internal/infra/llm"
	"morningbrief/internal/infra/sources/calendar"
	"morningbrief/internal/infra/sources/fitness"
	"morningbrief/internal/infra/sources/planner"
	"morningbrief/internal/infra/sources/weather"
)

// Container holds the wired pipeline for one command invocation.
type Container struct {
	Location  *time.Location
	Composer  *prompts.Composer
	Runner    *pipeline.Runner
	Publisher *email.Publisher
}

type containerOptions struct {
	// Context overrides prompts.context.
	Context string
	// Generator replaces the configured provider, mainly for tests.
	Generator briefing.Generator
}

func buildContainer(ctx context.Context, s *appState, opts containerOptions) (*Container, error) {
	cfg, creds := s.cfg, s.creds

	loc, err := time.LoadLocation(cfg.Location.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	composer, err := prompts.NewComposer(cfg.Prompts.Dir, s.componentLogger("Prompts"))
	if err != nil {
		return nil, err
	}

	contextText := opts.Context
	if contextText == "" {
		contextText = cfg.Prompts.Context
	}
	contextText, err = prompts.LoadContext(contextText, cfg.Prompts.ContextFile)
	if err != nil {
		return nil, err
	}

	generator := opts.Generator
	if generator == nil {
		generator, err = llm.NewGenerator(ctx, llm.Config{
			Provider:     cfg.LLM.Provider,
			Model:        cfg.LLM.Model,
			BaseURL:      cfg.LLM.BaseURL,
			APIKey:       creds.LLMKey(cfg.LLM.Provider),
			Temperature:  cfg.LLM.Temperature,
			MaxTokens:    cfg.LLM.MaxTokens,
			Timeout:      cfg.LLM.Timeout(),
			SystemPrompt: cfg.LLM.SystemPrompt,
		}, s.componentLogger("LLM"))
		if err != nil {
			return nil, fmt.Errorf("create generator: %w", err)
		}
	}

	metrics, tracer := s.obs.Metrics, s.obs.Tracer
	aggregator := aggregate.New(buildSources(s), aggregate.Options{
		SourceTimeout: cfg.Pipeline.SourceTimeout(),
		Sequential:    !cfg.Pipeline.ParallelSources,
	}, s.componentLogger("Aggregator"), metrics, tracer)

	model := cfg.LLM.Model
	if model == "" {
		model = llm.DefaultModel(cfg.LLM.Provider)
	}
	orchestrator := pipeline.NewOrchestrator(composer, generator, sections.NewExtractor(s.componentLogger("Sections")), pipeline.StageOptions{
		StageTimeout: cfg.Pipeline.StageTimeout(),
		Context:      contextText,
		Provider:     cfg.LLM.Provider,
		Model:        model,
	}, s.componentLogger("Orchestrator"), metrics, tracer)

	var publisher *email.Publisher
	if creds.SendGridAPIKey != "" {
		sender, err := email.NewSendGridSender(email.Config{
			BaseURL:  cfg.Email.BaseURL,
			APIKey:   creds.SendGridAPIKey,
			FromName: cfg.Email.FromName,
		}, nil, s.componentLogger("Email"))
		if err != nil {
			return nil, err
		}
		publisher = email.NewPublisher(sender, email.Envelope{
			From:          cfg.Email.From,
			To:            cfg.Email.To,
			Subject:       cfg.Email.Subject,
			RecipientName: cfg.Email.RecipientName,
		})
	}

	var runnerPublisher pipeline.Publisher
	if publisher != nil {
		runnerPublisher = publisher
	}
	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Location:  loc,
		DaysAhead: cfg.DaysAhead,
	}, aggregator, orchestrator, runnerPublisher, s.componentLogger("Runner"), metrics, tracer)

	return &Container{
		Location:  loc,
		Composer:  composer,
		Runner:    runner,
		Publisher: publisher,
	}, nil
}

// buildSources wires each adapter whose credentials are present. Missing
// ones stay nil and the aggregator leaves their category empty.
func buildSources(s *appState) aggregate.Sources {
	cfg, creds := s.cfg, s.creds
	var srcs aggregate.Sources

	if creds.OpenWeatherAPIKey != "" {
		logger := s.componentLogger("Weather")
		srcs.Weather = weather.New(weather.Config{
			BaseURL:   cfg.Weather.BaseURL,
			APIKey:    creds.OpenWeatherAPIKey,
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
			Units:     cfg.Weather.Units,
		}, httpclient.New(httpclient.DefaultTimeout, logger), logger)
	}
	if creds.GarminToken != "" && cfg.Fitness.DisplayName != "" {
		logger := s.componentLogger("Fitness")
		srcs.Fitness = fitness.New(fitness.Config{
			BaseURL:     cfg.Fitness.BaseURL,
			Token:       creds.GarminToken,
			DisplayName: cfg.Fitness.DisplayName,
			Days:        cfg.FitnessDays,
			CacheSize:   cfg.Fitness.CacheSize,
		}, httpclient.New(httpclient.DefaultTimeout, logger), logger)
	}
	if creds.MotionAPIKey != "" {
		logger := s.componentLogger("Planner")
		srcs.Tasks = planner.New(planner.Config{
			BaseURL: cfg.Planner.BaseURL,
			APIKey:  creds.MotionAPIKey,
		}, httpclient.New(httpclient.DefaultTimeout, logger), logger)
	}
	if cfg.Calendar.BaseURL != "" {
		logger := s.componentLogger("Calendar")
		srcs.Events = calendar.New(calendar.Config{
			BaseURL:    cfg.Calendar.BaseURL,
			CalendarID: cfg.Calendar.CalendarID,
			Timezone:   cfg.Calendar.Timezone,
		}, httpclient.New(httpclient.DefaultTimeout, logger), logger)
	}
	return srcs
}
