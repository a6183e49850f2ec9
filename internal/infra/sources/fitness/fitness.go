// Package fitness adapts the daily user summary of a fitness tracker into
// per-day fitness snapshots.
package fitness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/httpclient"
	"morningbrief/internal/infra/sources"
	brieferrors "morningbrief/internal/shared/errors"
	"morningbrief/internal/shared/logging"
)

const (
	// DefaultBaseURL is the tracker's connect API root.
	DefaultBaseURL = "https://connectapi.garmin.com"
	// DefaultDays is how many days, ending today, a fetch covers.
	DefaultDays = 7

	maxConcurrentDays = 3
	// settleDays is how many of the most recent days are always refetched,
	// since trackers often sync yesterday's data during the morning.
	settleDays = 2
)

// Config configures the fitness adapter.
type Config struct {
	BaseURL     string
	Token       string
	DisplayName string
	Days        int
	// CacheSize enables a cache of settled days shared by every fetch made
	// through this client. Zero disables it.
	CacheSize int
}

// Client fetches daily summaries one day at a time.
type Client struct {
	baseURL     string
	token       string
	displayName string
	days        int
	httpClient  *http.Client
	cache       *dayCache
	logger      logging.Logger
}

// New builds a fitness client.
func New(cfg Config, httpClient *http.Client, logger logging.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	days := cfg.Days
	if days <= 0 {
		days = DefaultDays
	}
	logger = logging.OrNop(logger)
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.DefaultTimeout, logger)
	}
	return &Client{
		baseURL:     baseURL,
		token:       cfg.Token,
		displayName: cfg.DisplayName,
		days:        days,
		httpClient:  httpClient,
		cache:       newDayCache(cfg.CacheSize),
		logger:      logger,
	}
}

// FetchFitness fetches the configured number of days going backward from the
// window's first day, keyed by ISO date. A failed day is kept as an entry
// carrying only its date and does not affect the others; the failures are
// returned joined.
func (c *Client) FetchFitness(ctx context.Context, window briefing.TimeWindow) (map[string]briefing.FitnessSnapshot, error) {
	days := window.PastDays(c.days)

	var (
		mu     sync.Mutex
		result = make(map[string]briefing.FitnessSnapshot, len(days))
		failed []error
	)

	var group errgroup.Group
	group.SetLimit(maxConcurrentDays)
	for i, day := range days {
		group.Go(func() error {
			snapshot, err := c.fetchDay(ctx, day, i >= settleDays)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn("Fitness: %s unavailable: %v", day, err)
				failed = append(failed, fmt.Errorf("%s: %w", day, err))
				result[day] = briefing.FitnessSnapshot{Date: day}
				return nil
			}
			result[day] = snapshot
			return nil
		})
	}
	_ = group.Wait()

	if len(failed) == 0 {
		return result, nil
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Error() < failed[j].Error() })
	return result, errors.Join(failed...)
}

func (c *Client) fetchDay(ctx context.Context, day string, settled bool) (briefing.FitnessSnapshot, error) {
	key := c.displayName + "/" + day
	if settled {
		if snapshot, ok := c.cache.get(key); ok {
			c.logger.Debug("Fitness: cache hit for %s", day)
			return snapshot, nil
		}
	}

	endpoint := fmt.Sprintf("%s/usersummary-service/usersummary/daily/%s?%s",
		c.baseURL, url.PathEscape(c.displayName), url.Values{"calendarDate": {day}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return briefing.FitnessSnapshot{}, brieferrors.NewUpstreamError(sources.Fitness, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	var summary dailySummary
	if err := httpclient.DoJSON(c.httpClient, req, sources.Fitness, &summary); err != nil {
		return briefing.FitnessSnapshot{}, err
	}

	snapshot := summary.normalize(day)
	// A day without metrics has usually not been synced yet.
	if settled && hasMetrics(snapshot) {
		c.cache.put(key, snapshot)
	}
	return snapshot, nil
}

func hasMetrics(snapshot briefing.FitnessSnapshot) bool {
	return snapshot != briefing.FitnessSnapshot{Date: snapshot.Date}
}
