package adam4eve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"eve-hauler/internal/config"
	"eve-hauler/internal/hub"
	"eve-hauler/internal/logger"
)

// ErrWeekMissing marks a weekly file the host has not published (HTTP 404).
// The client reacts by falling back one week.
var ErrWeekMissing = errors.New("weekly file not published")

const (
	pricesPrefix  = "MarketPricesStationHistory"
	volumesPrefix = "MarketVolumesStationHistory"
)

// WeekCache persists parsed weekly records so a rerun that resolves to the
// same ISO week skips the network entirely.
type WeekCache interface {
	GetHistoryWeek(year, week int) ([]HistoricalRecord, bool, error)
	PutHistoryWeek(year, week int, recs []HistoricalRecord) error
}

// Client fetches the weekly hub history from the adam4eve static file host.
type Client struct {
	http         *http.Client
	limiter      *rate.Limiter
	cache        WeekCache
	baseURL      string
	userAgent    string
	hubs         *hub.Registry
	maxWeeksBack int
	now          func() time.Time
}

// NewClient builds a history client. cache may be nil to disable the week
// cache (every call hits the network).
func NewClient(cfg *config.Config, hubs *hub.Registry, cache WeekCache) *Client {
	return &Client{
		http:         &http.Client{Timeout: cfg.RequestTimeout.Duration},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:        cache,
		baseURL:      strings.TrimRight(cfg.HistoryBaseURL, "/"),
		userAgent:    cfg.UserAgent,
		hubs:         hubs,
		maxWeeksBack: cfg.HistoryMaxWeeksBack,
		now:          time.Now,
	}
}

// Table returns the most recent weekly history for the configured hubs.
// It starts at the current ISO week and, while the host answers 404, walks
// back one week at a time up to the configured limit. Both files of a week
// are fetched concurrently and must come from the same week.
func (c *Client) Table(ctx context.Context) (*HistoryTable, error) {
	cursor := c.now()
	var lastErr error

	for attempt := 0; attempt <= c.maxWeeksBack; attempt++ {
		year, week := cursor.ISOWeek()

		if c.cache != nil {
			recs, ok, err := c.cache.GetHistoryWeek(year, week)
			if err != nil {
				logger.Warn("Adam4EVE", fmt.Sprintf("Week cache read failed: %v", err))
			} else if ok {
				logger.Info("Adam4EVE", fmt.Sprintf("Using cached history for week %d-%02d (%d records)", year, week, len(recs)))
				return TableFromRecords(recs), nil
			}
		}

		table, err := c.fetchWeek(ctx, year, week)
		if err == nil {
			if c.cache != nil {
				if err := c.cache.PutHistoryWeek(year, week, table.Records()); err != nil {
					logger.Warn("Adam4EVE", fmt.Sprintf("Week cache write failed: %v", err))
				}
			}
			logger.Success("Adam4EVE", fmt.Sprintf("Loaded history for week %d-%02d (%d records)", year, week, table.Len()))
			return table, nil
		}
		if !errors.Is(err, ErrWeekMissing) {
			return nil, err
		}
		lastErr = err
		logger.Warn("Adam4EVE", fmt.Sprintf("Week %d-%02d not published yet, trying previous week", year, week))
		cursor = cursor.AddDate(0, 0, -7)
	}

	return nil, fmt.Errorf("no weekly history within %d week(s): %w", c.maxWeeksBack+1, lastErr)
}

func (c *Client) fetchWeek(ctx context.Context, year, week int) (*HistoryTable, error) {
	var (
		prices, volumes map[historyKey]seriesCell
		pstats, vstats  SeriesStats
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prices, pstats, err = c.fetchSeries(ctx, pricesPrefix, priceAvgColumn, year, week)
		return err
	})
	g.Go(func() error {
		var err error
		volumes, vstats, err = c.fetchSeries(ctx, volumesPrefix, volumeAvgColumn, year, week)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if n := pstats.Dropped + vstats.Dropped; n > 0 {
		logger.Warn("Adam4EVE", fmt.Sprintf("Dropped %d unusable history rows", n))
	}
	return buildTable(prices, volumes), nil
}

func (c *Client) fetchSeries(ctx context.Context, prefix, valueCol string, year, week int) (map[historyKey]seriesCell, SeriesStats, error) {
	url := c.weekURL(prefix, year, week)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, SeriesStats{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, SeriesStats{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, SeriesStats{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, SeriesStats{}, fmt.Errorf("%s: %w", url, ErrWeekMissing)
	default:
		return nil, SeriesStats{}, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	cells, stats, err := parseSeries(resp.Body, c.hubs, valueCol)
	if err != nil {
		return nil, stats, fmt.Errorf("parse %s: %w", url, err)
	}
	return cells, stats, nil
}

func (c *Client) weekURL(prefix string, year, week int) string {
	return fmt.Sprintf("%s/%s/%d/%s_hub_weekly_%d-%02d.csv", c.baseURL, prefix, year, prefix, year, week)
}
