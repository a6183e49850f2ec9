// Package calendar adapts the calendar events endpoint into schedule items.
package calendar

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

// Config configures the calendar adapter. Timezone overrides the zone sent
// upstream; it defaults to the window's zone.
type Config struct {
	BaseURL    string
	CalendarID string
	Timezone   string
}

// Client lists calendar events.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
}

// New builds a calendar client.
func New(cfg Config, httpClient *http.Client, logger logging.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	logger = logging.OrNop(logger)
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.DefaultTimeout, logger)
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type rawEvent struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Duration    json.RawMessage `json:"duration"`
	Start       *eventTime      `json:"start"`
	End         *eventTime      `json:"end"`
}

type eventList struct {
	Items []rawEvent `json:"items"`
}

// FetchEvents returns events starting no later than the window end, sorted
// by start. Events without a start sort last.
func (c *Client) FetchEvents(ctx context.Context, window briefing.TimeWindow) ([]briefing.Item, error) {
	if c.cfg.BaseURL == "" {
		return []briefing.Item{}, brieferrors.NewUpstreamError(sources.Calendar, 0, fmt.Errorf("calendar base URL is not configured"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listURL(window), nil)
	if err != nil {
		return []briefing.Item{}, brieferrors.NewUpstreamError(sources.Calendar, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	var list eventList
	if err := httpclient.DoJSON(c.httpClient, req, sources.Calendar, &list); err != nil {
		return []briefing.Item{}, err
	}

	items := make([]briefing.Item, 0, len(list.Items))
	for _, event := range list.Items {
		item := c.normalize(event, window.Location)
		if item.ScheduledStart != nil && item.ScheduledStart.After(window.End) {
			continue
		}
		items = append(items, item)
	}
	briefing.SortItems(items)

	c.logger.Debug("Calendar: %d events up to %s", len(items), window.End.Format(time.RFC3339))
	return items, nil
}

func (c *Client) listURL(window briefing.TimeWindow) string {
	zone := c.cfg.Timezone
	if zone == "" && window.Location != nil {
		zone = window.Location.String()
	}
	query := url.Values{}
	query.Set("calendarId", c.cfg.CalendarID)
	query.Set("orderBy", "startTime")
	query.Set("timeMax", window.End.UTC().Format(time.RFC3339))
	query.Set("timeZone", zone)
	return c.cfg.BaseURL + "/listEvents?" + query.Encode()
}

func (c *Client) normalize(event rawEvent, loc *time.Location) briefing.Item {
	item := briefing.Item{
		Name:            event.Summary,
		Description:     sources.OptionalString(event.Description),
		DurationMinutes: sources.ParseMinutes(event.Duration),
		Source:          sources.Calendar,
	}
	if start, allDay := c.parseTime(event.Summary, event.Start, loc); start != nil {
		item.ScheduledStart = start
		item.AllDay = allDay
	}
	if end, _ := c.parseTime(event.Summary, event.End, loc); end != nil {
		item.ScheduledEnd = end
	}
	if item.DurationMinutes == nil && item.ScheduledStart != nil && item.ScheduledEnd != nil && !item.AllDay {
		minutes := int(item.ScheduledEnd.Sub(*item.ScheduledStart).Minutes())
		if minutes >= 0 {
			item.DurationMinutes = &minutes
		}
	}
	return item
}

// parseTime reads a timed or all-day boundary. The bool reports all-day.
func (c *Client) parseTime(name string, value *eventTime, loc *time.Location) (*time.Time, bool) {
	if value == nil {
		return nil, false
	}
	if value.DateTime != "" {
		t, err := sources.ParseInstant(value.DateTime, loc)
		if err != nil {
			c.logger.Warn("Calendar: ignoring time of event %q: %v", name, err)
			return nil, false
		}
		return &t, false
	}
	if value.Date != "" {
		t, err := sources.ParseDate(value.Date, loc)
		if err != nil {
			c.logger.Warn("Calendar: ignoring date of event %q: %v", name, err)
			return nil, false
		}
		return &t, true
	}
	return nil, false
}
