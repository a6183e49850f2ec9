package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"morningbrief/internal/infra/observability"
)

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit path; a missing explicit file is an error.
	ConfigFile string
	// SearchPaths replace the default lookup directories.
	SearchPaths []string
}

// Load reads defaults, then the YAML file, then MORNINGBRIEF_* overrides.
func Load(opts LoadOptions) (Config, Metadata, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("morningbrief")
		for _, dir := range searchPaths(opts.SearchPaths) {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var meta Metadata
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return Config{}, meta, fmt.Errorf("read config: %w", err)
		}
	}
	meta.ConfigFile = v.ConfigFileUsed()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, meta, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)
	return cfg, meta, nil
}

func searchPaths(custom []string) []string {
	if len(custom) > 0 {
		return custom
	}
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".morningbrief"))
	}
	return paths
}

func setDefaults(v *viper.Viper) {
	obs := observability.DefaultConfig()

	v.SetDefault("location.latitude", 0.0)
	v.SetDefault("location.longitude", 0.0)
	v.SetDefault("location.timezone", DefaultTimezone)
	v.SetDefault("days_ahead", DefaultDaysAhead)
	v.SetDefault("fitness_days", DefaultFitnessDays)

	v.SetDefault("calendar.base_url", "")
	v.SetDefault("calendar.calendar_id", "primary")
	v.SetDefault("calendar.timezone", "")
	v.SetDefault("planner.base_url", "")
	v.SetDefault("fitness.base_url", "")
	v.SetDefault("fitness.display_name", "")
	v.SetDefault("fitness.cache_size", 0)
	v.SetDefault("weather.base_url", "")
	v.SetDefault("weather.units", DefaultUnits)

	v.SetDefault("llm.provider", DefaultLLMProvider)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout_seconds", DefaultLLMTimeoutSeconds)
	v.SetDefault("llm.system_prompt", "")

	v.SetDefault("prompts.dir", "")
	v.SetDefault("prompts.context", "")
	v.SetDefault("prompts.context_file", "")

	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "")
	v.SetDefault("email.to", []string{})
	v.SetDefault("email.subject", DefaultSubject)
	v.SetDefault("email.recipient_name", "")
	v.SetDefault("email.base_url", "")

	v.SetDefault("pipeline.source_timeout_seconds", DefaultSourceTimeoutSeconds)
	v.SetDefault("pipeline.stage_timeout_seconds", DefaultStageTimeoutSeconds)
	v.SetDefault("pipeline.parallel_sources", true)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.cron", DefaultSchedule)
	v.SetDefault("schedule.deliver", true)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.debug", false)

	v.SetDefault("observability.logging.level", obs.Logging.Level)
	v.SetDefault("observability.logging.format", obs.Logging.Format)
	v.SetDefault("observability.metrics.enabled", obs.Metrics.Enabled)
	v.SetDefault("observability.tracing.enabled", obs.Tracing.Enabled)
	v.SetDefault("observability.tracing.exporter", obs.Tracing.Exporter)
	v.SetDefault("observability.tracing.otlp_endpoint", obs.Tracing.OTLPEndpoint)
	v.SetDefault("observability.tracing.zipkin_endpoint", obs.Tracing.ZipkinEndpoint)
	v.SetDefault("observability.tracing.sample_rate", obs.Tracing.SampleRate)
	v.SetDefault("observability.tracing.service_name", obs.Tracing.ServiceName)
	v.SetDefault("observability.tracing.service_version", obs.Tracing.ServiceVersion)
}

func normalize(cfg *Config) {
	cfg.Location.Timezone = strings.TrimSpace(cfg.Location.Timezone)
	if cfg.Location.Timezone == "" {
		cfg.Location.Timezone = DefaultTimezone
	}
	if strings.TrimSpace(cfg.Calendar.Timezone) == "" {
		cfg.Calendar.Timezone = cfg.Location.Timezone
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = DefaultLLMProvider
	}
	cfg.Weather.Units = strings.ToLower(strings.TrimSpace(cfg.Weather.Units))
	if cfg.Weather.Units == "" {
		cfg.Weather.Units = DefaultUnits
	}
	if strings.TrimSpace(cfg.Email.Subject) == "" {
		cfg.Email.Subject = DefaultSubject
	}

	recipients := make([]string, 0, len(cfg.Email.To))
	for _, to := range cfg.Email.To {
		for _, part := range strings.Split(to, ",") {
			if part = strings.TrimSpace(part); part != "" {
				recipients = append(recipients, part)
			}
		}
	}
	cfg.Email.To = recipients
}
