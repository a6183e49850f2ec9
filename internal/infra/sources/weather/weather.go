// Package weather adapts the OpenWeather One Call API into a weather snapshot.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/httpclient"
	"morningbrief/internal/infra/sources"
	brieferrors "morningbrief/internal/shared/errors"
	"morningbrief/internal/shared/logging"
)

const (
	// DefaultBaseURL is the OpenWeather API root.
	DefaultBaseURL = "https://api.openweathermap.org"
	// TimeLayout formats sunrise, sunset and alert bounds.
	TimeLayout = "2006-01-02 15:04:05 MST"
)

// Config configures the weather adapter.
type Config struct {
	BaseURL   string
	APIKey    string
	Latitude  float64
	Longitude float64
	// Units is metric, imperial or standard. Empty means metric.
	Units string
}

// Client fetches current conditions, the daily forecast and alerts.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
}

// New builds a weather client.
func New(cfg Config, httpClient *http.Client, logger logging.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	logger = logging.OrNop(logger)
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.DefaultTimeout, logger)
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

type condition struct {
	Description string `json:"description"`
}

type currentBlock struct {
	Temp      *float64    `json:"temp"`
	Sunrise   *int64      `json:"sunrise"`
	Sunset    *int64      `json:"sunset"`
	WindSpeed *float64    `json:"wind_speed"`
	Humidity  *float64    `json:"humidity"`
	Weather   []condition `json:"weather"`
}

// missing names the first required key absent from the block.
func (b currentBlock) missing() string {
	switch {
	case b.Temp == nil:
		return "temp"
	case b.Sunrise == nil:
		return "sunrise"
	case b.Sunset == nil:
		return "sunset"
	case b.WindSpeed == nil:
		return "wind_speed"
	case b.Humidity == nil:
		return "humidity"
	case len(b.Weather) == 0:
		return "weather"
	}
	return ""
}

type dailyBlock struct {
	Temp *struct {
		Max *float64 `json:"max"`
		Min *float64 `json:"min"`
	} `json:"temp"`
	Weather []condition `json:"weather"`
}

func (b dailyBlock) missing() string {
	switch {
	case b.Temp == nil:
		return "temp"
	case b.Temp.Max == nil:
		return "temp.max"
	case b.Temp.Min == nil:
		return "temp.min"
	case len(b.Weather) == 0:
		return "weather"
	}
	return ""
}

type alertBlock struct {
	Event       string `json:"event"`
	Description string `json:"description"`
	Start       *int64 `json:"start"`
	End         *int64 `json:"end"`
}

type oneCall struct {
	Current json.RawMessage `json:"current"`
	Daily   json.RawMessage `json:"daily"`
	Alerts  []alertBlock    `json:"alerts"`
}

// FetchWeather returns the formatted snapshot for the configured location.
// Times are rendered in the window's zone.
func (c *Client) FetchWeather(ctx context.Context, window briefing.TimeWindow) (briefing.WeatherSnapshot, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(c.cfg.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(c.cfg.Longitude, 'f', -1, 64))
	query.Set("appid", c.cfg.APIKey)
	query.Set("units", c.cfg.Units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/data/3.0/onecall?"+query.Encode(), nil)
	if err != nil {
		return briefing.WeatherSnapshot{}, brieferrors.NewUpstreamError(sources.Weather, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	var payload oneCall
	if err := httpclient.DoJSON(c.httpClient, req, sources.Weather, &payload); err != nil {
		return briefing.WeatherSnapshot{}, err
	}
	return c.format(payload, window.Location)
}

// format converts the raw payload. A payload missing the current block, a
// non-empty daily array, or any key the briefing reads yields an empty
// snapshot and a decode error.
func (c *Client) format(payload oneCall, loc *time.Location) (briefing.WeatherSnapshot, error) {
	if !hasObject(payload.Current) || !hasArray(payload.Daily) {
		return briefing.WeatherSnapshot{}, brieferrors.NewDecodeError(sources.Weather, fmt.Errorf("payload lacks current conditions or daily forecast"))
	}

	var current currentBlock
	if err := json.Unmarshal(payload.Current, &current); err != nil {
		return briefing.WeatherSnapshot{}, brieferrors.NewDecodeError(sources.Weather, fmt.Errorf("current: %w", err))
	}
	var daily []dailyBlock
	if err := json.Unmarshal(payload.Daily, &daily); err != nil {
		return briefing.WeatherSnapshot{}, brieferrors.NewDecodeError(sources.Weather, fmt.Errorf("daily: %w", err))
	}
	if len(daily) == 0 {
		return briefing.WeatherSnapshot{}, brieferrors.NewDecodeError(sources.Weather, fmt.Errorf("daily forecast is empty"))
	}
	today := daily[0]
	if key := current.missing(); key != "" {
		return briefing.WeatherSnapshot{}, brieferrors.NewDecodeError(sources.Weather, fmt.Errorf("current lacks %q", key))
	}
	if key := today.missing(); key != "" {
		return briefing.WeatherSnapshot{}, brieferrors.NewDecodeError(sources.Weather, fmt.Errorf("daily[0] lacks %q", key))
	}
	if loc == nil {
		loc = time.UTC
	}

	temp, wind := c.unitSymbols()

	snapshot := briefing.WeatherSnapshot{
		Current: &briefing.CurrentWeather{
			Temperature: number(*current.Temp) + temp,
			Description: firstDescription(current.Weather),
			Sunrise:     formatUnix(*current.Sunrise, loc),
			Sunset:      formatUnix(*current.Sunset, loc),
			WindSpeed:   number(*current.WindSpeed) + " " + wind,
			Humidity:    number(*current.Humidity) + "%",
		},
		Today: &briefing.DailyForecast{
			MaxTemp:    number(*today.Temp.Max) + temp,
			MinTemp:    number(*today.Temp.Min) + temp,
			Conditions: firstDescription(today.Weather),
		},
	}

	for _, alert := range payload.Alerts {
		formatted := briefing.WeatherAlert{Title: alert.Event, Description: alert.Description}
		if alert.Start != nil {
			formatted.Start = formatUnix(*alert.Start, loc)
		}
		if alert.End != nil {
			formatted.End = formatUnix(*alert.End, loc)
		}
		snapshot.Alerts = append(snapshot.Alerts, formatted)
	}
	if len(snapshot.Alerts) > 0 {
		c.logger.Info("Weather: %d active alerts", len(snapshot.Alerts))
	}
	return snapshot, nil
}

func (c *Client) unitSymbols() (temp, wind string) {
	switch c.cfg.Units {
	case "imperial":
		return "°F", "mph"
	case "standard":
		return "K", "m/s"
	default:
		return "°C", "m/s"
	}
}

func hasObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}

func hasArray(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstDescription(conditions []condition) string {
	if len(conditions) == 0 {
		return ""
	}
	return conditions[0].Description
}

func formatUnix(ts int64, loc *time.Location) string {
	return time.Unix(ts, 0).In(loc).Format(TimeLayout)
}
