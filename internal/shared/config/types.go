// Package config loads the non-secret settings from file and environment
// and resolves credentials for the command layer.
package config

import (
	"time"

	"morningbrief/internal/infra/observability"
)

// EnvPrefix namespaces environment overrides, e.g. MORNINGBRIEF_DAYS_AHEAD.
const EnvPrefix = "MORNINGBRIEF"

const (
	DefaultDaysAhead            = 1
	DefaultFitnessDays          = 7
	DefaultTimezone             = "UTC"
	DefaultUnits                = "metric"
	DefaultLLMProvider          = "openai"
	DefaultLLMTimeoutSeconds    = 120
	DefaultSourceTimeoutSeconds = 20
	DefaultStageTimeoutSeconds  = 120
	DefaultSchedule             = "0 7 * * *"
	DefaultServerAddr           = ":8080"
	DefaultSubject              = "Your Morning Briefing"
)

// Config is the full non-secret configuration.
type Config struct {
	Location      LocationConfig       `mapstructure:"location" yaml:"location"`
	DaysAhead     int                  `mapstructure:"days_ahead" yaml:"days_ahead"`
	FitnessDays   int                  `mapstructure:"fitness_days" yaml:"fitness_days"`
	Calendar      CalendarConfig       `mapstructure:"calendar" yaml:"calendar"`
	Planner       PlannerConfig        `mapstructure:"planner" yaml:"planner"`
	Fitness       FitnessConfig        `mapstructure:"fitness" yaml:"fitness"`
	Weather       WeatherConfig        `mapstructure:"weather" yaml:"weather"`
	LLM           LLMConfig            `mapstructure:"llm" yaml:"llm"`
	Prompts       PromptsConfig        `mapstructure:"prompts" yaml:"prompts"`
	Email         EmailConfig          `mapstructure:"email" yaml:"email"`
	Pipeline      PipelineConfig       `mapstructure:"pipeline" yaml:"pipeline"`
	Schedule      ScheduleConfig       `mapstructure:"schedule" yaml:"schedule"`
	Server        ServerConfig         `mapstructure:"server" yaml:"server"`
	Observability observability.Config `mapstructure:"observability" yaml:"observability"`
}

// LocationConfig anchors weather lookups and the run window.
type LocationConfig struct {
	Latitude  float64 `mapstructure:"latitude" yaml:"latitude"`
	Longitude float64 `mapstructure:"longitude" yaml:"longitude"`
	Timezone  string  `mapstructure:"timezone" yaml:"timezone"`
}

// CalendarConfig points at the calendar listing service.
type CalendarConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	CalendarID string `mapstructure:"calendar_id" yaml:"calendar_id"`
	// Timezone defaults to Location.Timezone.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

type PlannerConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type FitnessConfig struct {
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	DisplayName string `mapstructure:"display_name" yaml:"display_name"`
	CacheSize   int    `mapstructure:"cache_size" yaml:"cache_size"`
}

type WeatherConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Units   string `mapstructure:"units" yaml:"units"` // metric, imperial, standard
}

// LLMConfig selects the text-generation provider.
type LLMConfig struct {
	Provider       string  `mapstructure:"provider" yaml:"provider"` // openai, gemini, mock
	Model          string  `mapstructure:"model" yaml:"model"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	SystemPrompt   string  `mapstructure:"system_prompt" yaml:"system_prompt"`
}

// Timeout returns the HTTP timeout for generation calls.
func (c LLMConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds, DefaultLLMTimeoutSeconds)
}

// PromptsConfig locates template overrides and the free-text context.
type PromptsConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Context     string `mapstructure:"context" yaml:"context"`
	ContextFile string `mapstructure:"context_file" yaml:"context_file"`
}

type EmailConfig struct {
	From          string   `mapstructure:"from" yaml:"from"`
	FromName      string   `mapstructure:"from_name" yaml:"from_name"`
	To            []string `mapstructure:"to" yaml:"to"`
	Subject       string   `mapstructure:"subject" yaml:"subject"`
	RecipientName string   `mapstructure:"recipient_name" yaml:"recipient_name"`
	BaseURL       string   `mapstructure:"base_url" yaml:"base_url"`
}

// PipelineConfig bounds the run.
type PipelineConfig struct {
	SourceTimeoutSeconds int  `mapstructure:"source_timeout_seconds" yaml:"source_timeout_seconds"`
	StageTimeoutSeconds  int  `mapstructure:"stage_timeout_seconds" yaml:"stage_timeout_seconds"`
	ParallelSources      bool `mapstructure:"parallel_sources" yaml:"parallel_sources"`
}

func (c PipelineConfig) SourceTimeout() time.Duration {
	return seconds(c.SourceTimeoutSeconds, DefaultSourceTimeoutSeconds)
}

func (c PipelineConfig) StageTimeout() time.Duration {
	return seconds(c.StageTimeoutSeconds, DefaultStageTimeoutSeconds)
}

// ScheduleConfig drives the daily trigger used by `serve`.
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Cron    string `mapstructure:"cron" yaml:"cron"`
	Deliver bool   `mapstructure:"deliver" yaml:"deliver"`
}

type ServerConfig struct {
	Addr  string `mapstructure:"addr" yaml:"addr"`
	Debug bool   `mapstructure:"debug" yaml:"debug"`
}

// Metadata records where the configuration came from.
type Metadata struct {
	ConfigFile string
	EnvFile    string
}

func seconds(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
