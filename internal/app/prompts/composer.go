// Package prompts renders the stage prompts of a briefing from embedded
// markdown templates.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/shared/logging"
)

//go:embed templates/*.md
var templateFS embed.FS

// Placeholder names understood by the templates.
const (
	VarContext                = "context"
	VarWeatherData            = "weather_data"
	VarFitnessData            = "fitness_data"
	VarFitnessOverview        = "fitness_overview"
	VarWeatherRecommendations = "weather_recommendations"
	VarTodaysSchedule         = "todays_schedule"
)

// NotAvailable stands in for an upstream section that was not produced.
const NotAvailable = "(not available)"

var placeholderPattern = regexp.MustCompile(`\{\{([a-z_]+)\}\}`)

// Composer renders stage prompts.
type Composer struct {
	templates map[string]string
	logger    logging.Logger
}

// NewComposer loads the embedded templates. When dir is set, any
// <stage>.md file found there replaces the embedded template of that name.
func NewComposer(dir string, logger logging.Logger) (*Composer, error) {
	c := &Composer{
		templates: make(map[string]string),
		logger:    logging.OrNop(logger),
	}

	embedded, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded templates: %w", err)
	}
	if err := c.load(embedded); err != nil {
		return nil, err
	}

	if dir = strings.TrimSpace(dir); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("prompt directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("prompt directory %s is not a directory", dir)
		}
		if err := c.load(os.DirFS(dir)); err != nil {
			return nil, err
		}
		c.logger.Info("Prompts: loaded overrides from %s", dir)
	}

	for _, stage := range []string{briefing.StageWeather, briefing.StageFitness, briefing.StageSchedule} {
		if _, ok := c.templates[stage]; !ok {
			return nil, fmt.Errorf("prompt template '%s' not found", stage)
		}
	}
	return c, nil
}

func (c *Composer) load(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read prompts directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read prompt file %s: %w", entry.Name(), err)
		}
		c.templates[strings.TrimSuffix(entry.Name(), ".md")] = string(content)
	}
	return nil
}

// List returns the template names, sorted.
func (c *Composer) List() []string {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Template returns the raw text of a template.
func (c *Composer) Template(name string) (string, error) {
	content, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template '%s' not found", name)
	}
	return content, nil
}

// Placeholders returns the distinct placeholder names used by a template, in
// order of first appearance.
func (c *Composer) Placeholders(name string) ([]string, error) {
	content, err := c.Template(name)
	if err != nil {
		return nil, err
	}
	var names []string
	seen := map[string]bool{}
	for _, match := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names, nil
}

// Render substitutes variables into the named template. Substitution is
// purely textual. Every placeholder in the template must be supplied.
func (c *Composer) Render(name string, variables map[string]string) (string, error) {
	placeholders, err := c.Placeholders(name)
	if err != nil {
		return "", err
	}
	var missing []string
	for _, key := range placeholders {
		if _, ok := variables[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt template '%s' is missing variables: %s", name, strings.Join(missing, ", "))
	}

	content := c.templates[name]
	pairs := make([]string, 0, len(placeholders)*2)
	for _, key := range placeholders {
		pairs = append(pairs, "{{"+key+"}}", variables[key])
	}
	// A single pass keeps placeholder-like text inside values untouched.
	return strings.NewReplacer(pairs...).Replace(content), nil
}

// WeatherPrompt renders the weather stage prompt.
func (c *Composer) WeatherPrompt(weather briefing.WeatherSnapshot, context string) (string, error) {
	data, err := Stringify(weather)
	if err != nil {
		return "", err
	}
	return c.Render(briefing.StageWeather, map[string]string{
		VarContext:     context,
		VarWeatherData: data,
	})
}

// FitnessPrompt renders the fitness stage prompt.
func (c *Composer) FitnessPrompt(fitness map[string]briefing.FitnessSnapshot, context string) (string, error) {
	data, err := Stringify(fitness)
	if err != nil {
		return "", err
	}
	return c.Render(briefing.StageFitness, map[string]string{
		VarContext:     context,
		VarFitnessData: data,
	})
}

// SchedulePrompt renders the schedule stage prompt from the raw schedule and
// the processed outputs of the two earlier stages. An absent upstream
// section is rendered as NotAvailable.
func (c *Composer) SchedulePrompt(schedule briefing.Schedule, weatherRecommendations, fitnessOverview *string, context string) (string, error) {
	data, err := Stringify(schedule)
	if err != nil {
		return "", err
	}
	return c.Render(briefing.StageSchedule, map[string]string{
		VarContext:                context,
		VarFitnessOverview:        orNotAvailable(fitnessOverview),
		VarWeatherRecommendations: orNotAvailable(weatherRecommendations),
		VarTodaysSchedule:         data,
	})
}

// Stringify renders v as indented JSON without HTML escaping.
func Stringify(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("stringify prompt data: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func orNotAvailable(fragment *string) string {
	if fragment == nil {
		return NotAvailable
	}
	return *fragment
}

// ErrNoContextFile is returned by LoadContext when the file is missing.
var ErrNoContextFile = errors.New("context file not found")

// LoadContext resolves the free-text context: an explicit value wins,
// otherwise the file is read when set.
func LoadContext(value, file string) (string, error) {
	if strings.TrimSpace(value) != "" {
		return value, nil
	}
	if strings.TrimSpace(file) == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNoContextFile, file)
		}
		return "", fmt.Errorf("read context file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
