// Package planner adapts the task planner API into schedule items.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/httpclient"
	"morningbrief/internal/infra/sources"
	brieferrors "morningbrief/internal/shared/errors"
	"morningbrief/internal/shared/logging"
)

// DefaultBaseURL is the public planner API root.
const DefaultBaseURL = "https://api.usemotion.com"

// Config configures the planner adapter.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client fetches tasks from the planner API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logging.Logger
}

// New builds a planner client. A nil httpClient uses the package default.
func New(cfg Config, httpClient *http.Client, logger logging.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger = logging.OrNop(logger)
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.DefaultTimeout, logger)
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

type taskLabel struct {
	Name string `json:"name"`
}

type rawTask struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Duration       json.RawMessage `json:"duration"`
	ScheduledStart string          `json:"scheduledStart"`
	ScheduledEnd   string          `json:"scheduledEnd"`
	DueDate        string          `json:"dueDate"`
	Labels         []taskLabel     `json:"labels"`
}

type taskPage struct {
	Tasks []rawTask `json:"tasks"`
	Meta  struct {
		NextCursor string `json:"nextCursor"`
	} `json:"meta"`
}

// FetchAll returns every task across all pages in server order, without
// windowing. Timestamps are converted to loc.
func (c *Client) FetchAll(ctx context.Context, loc *time.Location) ([]briefing.Item, error) {
	raw, err := c.fetchAll(ctx)
	if err != nil {
		return []briefing.Item{}, err
	}
	items := make([]briefing.Item, 0, len(raw))
	for _, task := range raw {
		items = append(items, c.normalize(task, loc))
	}
	return items, nil
}

// FetchTasks returns the tasks whose scheduled start, converted to the
// window's zone, falls on a day in the window. Tasks without a scheduled
// start are excluded. The result is sorted by start.
func (c *Client) FetchTasks(ctx context.Context, window briefing.TimeWindow) ([]briefing.Item, error) {
	all, err := c.FetchAll(ctx, window.Location)
	if err != nil {
		return all, err
	}

	items := make([]briefing.Item, 0, len(all))
	for _, item := range all {
		if item.ScheduledStart == nil || !window.ContainsDate(*item.ScheduledStart) {
			continue
		}
		items = append(items, item)
	}
	briefing.SortItems(items)

	c.logger.Debug("Planner: %d of %d tasks fall in window ending %s", len(items), len(all), window.End.Format(briefing.DateLayout))
	return items, nil
}

func (c *Client) normalize(task rawTask, loc *time.Location) briefing.Item {
	item := briefing.Item{
		Name:            task.Name,
		Description:     sources.OptionalString(task.Description),
		DurationMinutes: sources.ParseMinutes(task.Duration),
		ScheduledStart:  c.parseOptional(task.Name, "scheduledStart", task.ScheduledStart, loc),
		ScheduledEnd:    c.parseOptional(task.Name, "scheduledEnd", task.ScheduledEnd, loc),
		DueDate:         c.parseOptional(task.Name, "dueDate", task.DueDate, loc),
		Source:          sources.Planner,
	}
	if len(task.Labels) > 0 {
		item.Category = task.Labels[0].Name
	}
	return item
}

func (c *Client) parseOptional(task, field, value string, loc *time.Location) *time.Time {
	if value == "" {
		return nil
	}
	t, err := sources.ParseInstant(value, loc)
	if err != nil {
		c.logger.Warn("Planner: ignoring %s of task %q: %v", field, task, err)
		return nil
	}
	return &t
}

// fetchAll follows the continuation cursor until the server stops returning
// one. A repeated cursor is treated as a malformed payload rather than
// looping forever.
func (c *Client) fetchAll(ctx context.Context) ([]rawTask, error) {
	var (
		all    []rawTask
		cursor string
		seen   = map[string]struct{}{}
	)
	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		all = append(all, resp.Tasks...)

		next := resp.Meta.NextCursor
		if next == "" {
			c.logger.Debug("Planner: fetched %d tasks over %d pages", len(all), page)
			return all, nil
		}
		if _, dup := seen[next]; dup {
			return nil, brieferrors.NewDecodeError(sources.Planner, fmt.Errorf("cursor %q repeated on page %d", next, page))
		}
		seen[next] = struct{}{}
		cursor = next
	}
}

func (c *Client) fetchPage(ctx context.Context, cursor string) (taskPage, error) {
	endpoint := c.baseURL + "/v1/tasks"
	if cursor != "" {
		endpoint += "?" + url.Values{"cursor": {cursor}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return taskPage{}, brieferrors.NewUpstreamError(sources.Planner, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	var page taskPage
	if err := httpclient.DoJSON(c.httpClient, req, sources.Planner, &page); err != nil {
		return taskPage{}, err
	}
	return page, nil
}
