package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	ID      string
	Message string
	Hint    string
}

func (i ValidationIssue) String() string {
	if i.Hint == "" {
		return fmt.Sprintf("%s: %s", i.ID, i.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", i.ID, i.Message, i.Hint)
}

// ValidationReport summarizes config validation findings. Errors block a
// run; warnings mean a source will be skipped and its category left empty.
type ValidationReport struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// HasErrors reports whether the validation report contains blocking errors.
func (r ValidationReport) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err folds the blocking issues into one error, or nil.
func (r ValidationReport) Err() error {
	if !r.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, issue := range r.Errors {
		msgs = append(msgs, issue.String())
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// ProviderRequiresAPIKey reports whether the provider requires API key authentication.
func ProviderRequiresAPIKey(provider string) bool {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "mock":
		return false
	default:
		return true
	}
}

// ValidateOptions names what the caller is about to do.
type ValidateOptions struct {
	// Deliver requires the email settings.
	Deliver bool
	// Generate requires a usable LLM provider.
	Generate bool
	// Serve requires a valid cron expression when scheduling is enabled.
	Serve bool
}

// Validate checks cfg and creds for the requested operation.
func Validate(cfg Config, creds Credentials, opts ValidateOptions) ValidationReport {
	var report ValidationReport
	errorf := func(id, hint, format string, args ...any) {
		report.Errors = append(report.Errors, ValidationIssue{ID: id, Message: fmt.Sprintf(format, args...), Hint: hint})
	}
	warnf := func(id, hint, format string, args ...any) {
		report.Warnings = append(report.Warnings, ValidationIssue{ID: id, Message: fmt.Sprintf(format, args...), Hint: hint})
	}

	if _, err := time.LoadLocation(cfg.Location.Timezone); err != nil {
		errorf("location.timezone", "use an IANA zone such as Europe/Berlin", "unknown timezone %q", cfg.Location.Timezone)
	}
	if cfg.Calendar.Timezone != cfg.Location.Timezone {
		if _, err := time.LoadLocation(cfg.Calendar.Timezone); err != nil {
			errorf("calendar.timezone", "", "unknown timezone %q", cfg.Calendar.Timezone)
		}
	}
	if cfg.DaysAhead < 0 {
		errorf("days_ahead", "", "must be >= 0, got %d", cfg.DaysAhead)
	}
	if cfg.FitnessDays < 1 {
		errorf("fitness_days", "", "must be >= 1, got %d", cfg.FitnessDays)
	}
	if cfg.Location.Latitude < -90 || cfg.Location.Latitude > 90 {
		errorf("location.latitude", "", "out of range: %v", cfg.Location.Latitude)
	}
	if cfg.Location.Longitude < -180 || cfg.Location.Longitude > 180 {
		errorf("location.longitude", "", "out of range: %v", cfg.Location.Longitude)
	}
	switch cfg.Weather.Units {
	case "metric", "imperial", "standard":
	default:
		errorf("weather.units", "metric, imperial or standard", "unsupported units %q", cfg.Weather.Units)
	}

	if creds.OpenWeatherAPIKey == "" {
		warnf("weather", "set OPENWEATHER_API_KEY", "weather source disabled")
	}
	if creds.MotionAPIKey == "" {
		warnf("planner", "set MOTION_API_KEY", "planner source disabled")
	}
	if creds.GarminToken == "" || cfg.Fitness.DisplayName == "" {
		warnf("fitness", "set GARMIN_TOKEN and fitness.display_name", "fitness source disabled")
	}
	if cfg.Calendar.BaseURL == "" {
		warnf("calendar", "set calendar.base_url", "calendar source disabled")
	}

	if opts.Generate {
		switch cfg.LLM.Provider {
		case "openai", "gemini", "mock":
		default:
			errorf("llm.provider", "openai, gemini or mock", "unsupported provider %q", cfg.LLM.Provider)
		}
		if ProviderRequiresAPIKey(cfg.LLM.Provider) && creds.LLMKey(cfg.LLM.Provider) == "" &&
			!(cfg.LLM.Provider == "openai" && cfg.LLM.BaseURL != "") {
			errorf("llm.api_key", fmt.Sprintf("set %s_API_KEY", strings.ToUpper(cfg.LLM.Provider)), "provider %q requires an API key", cfg.LLM.Provider)
		}
	}

	if opts.Deliver {
		if creds.SendGridAPIKey == "" {
			errorf("email.api_key", "set SENDGRID_API_KEY or use --dry-run", "delivery requires a SendGrid key")
		}
		if cfg.Email.From == "" {
			errorf("email.from", "", "delivery requires a sender address")
		}
		if len(cfg.Email.To) == 0 {
			errorf("email.to", "", "delivery requires at least one recipient")
		}
	}

	if opts.Serve && cfg.Schedule.Enabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cfg.Schedule.Cron); err != nil {
			errorf("schedule.cron", "five-field cron or @daily", "invalid expression %q: %v", cfg.Schedule.Cron, err)
		}
	}

	return report
}
