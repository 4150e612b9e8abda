package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"eve-hauler/internal/hub"
)

// HubConfig is one hub entry in the TOML file ([[hubs]] blocks).
type HubConfig struct {
	ID   int64  `toml:"id"`
	Name string `toml:"name"`
}

// Config holds all run settings. Everything here has a working default;
// the TOML file and HAULER_* environment variables only override.
type Config struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"` // empty = <data_dir>/processed

	// Feed endpoints and client behavior.
	OrdersURL           string   `toml:"orders_url"`
	HistoryBaseURL      string   `toml:"history_base_url"`
	UserAgent           string   `toml:"user_agent"`
	RequestTimeout      duration `toml:"request_timeout"`
	RequestsPerSecond   float64  `toml:"requests_per_second"`
	SnapshotTTL         duration `toml:"snapshot_ttl"`
	HistoryMaxWeeksBack int      `toml:"history_max_weeks_back"`

	// Analysis thresholds.
	SupplyBand     float64 `toml:"supply_band"`
	MinMargin      float64 `toml:"min_margin"`
	ChunkSize      int     `toml:"chunk_size"`
	MaxPricePoints int     `toml:"max_price_points"`
	Workers        int     `toml:"workers"` // <= 0 picks GOMAXPROCS

	// Rows persisted per run in the ledger (the CSV always gets all rows).
	KeepResults int `toml:"keep_results"`

	Hubs []HubConfig `toml:"hubs"`
}

// Default returns a Config with working defaults for a stock run.
func Default() *Config {
	cfg := &Config{
		DataDir:             "data",
		OrdersURL:           "https://data.everef.net/market-orders/market-orders-latest.v3.csv.bz2",
		HistoryBaseURL:      "https://static.adam4eve.eu",
		UserAgent:           "eve-hauler/1.0 (github.com)",
		RequestTimeout:      duration{10 * time.Minute},
		RequestsPerSecond:   1,
		SnapshotTTL:         duration{10 * time.Minute},
		HistoryMaxWeeksBack: 3,
		SupplyBand:          0.10,
		MinMargin:           0.10,
		ChunkSize:           100000,
		MaxPricePoints:      256,
		KeepResults:         500,
	}
	for _, s := range hub.DefaultStations() {
		cfg.Hubs = append(cfg.Hubs, HubConfig{ID: s.ID, Name: s.Name})
	}
	return cfg
}

// CachePath returns the directory for downloaded feed files.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache")
}

// ProcessedPath returns the directory for committed output artifacts.
func (c *Config) ProcessedPath() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(c.DataDir, "processed")
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "hauler.db")
}

// Registry builds the hub registry from the configured set.
func (c *Config) Registry() (*hub.Registry, error) {
	stations := make([]hub.Station, 0, len(c.Hubs))
	for _, h := range c.Hubs {
		stations = append(stations, hub.Station{ID: h.ID, Name: h.Name})
	}
	return hub.NewRegistry(stations)
}

// Validate checks the Config and returns a combined error describing every
// problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.DataDir == "" {
		errs = append(errs, "data_dir must not be empty")
	}
	if c.OrdersURL == "" {
		errs = append(errs, "orders_url must not be empty")
	}
	if c.HistoryBaseURL == "" {
		errs = append(errs, "history_base_url must not be empty")
	}
	if c.RequestTimeout.Duration <= 0 {
		errs = append(errs, "request_timeout must be > 0")
	}
	if c.RequestsPerSecond <= 0 {
		errs = append(errs, "requests_per_second must be > 0")
	}
	if c.SnapshotTTL.Duration < 0 {
		errs = append(errs, "snapshot_ttl must be >= 0")
	}
	if c.HistoryMaxWeeksBack < 0 {
		errs = append(errs, "history_max_weeks_back must be >= 0")
	}
	if c.SupplyBand <= 0 {
		errs = append(errs, fmt.Sprintf("supply_band must be > 0, got %g", c.SupplyBand))
	}
	if c.MinMargin < 0 {
		errs = append(errs, fmt.Sprintf("min_margin must be >= 0, got %g", c.MinMargin))
	}
	if c.ChunkSize < 1 {
		errs = append(errs, fmt.Sprintf("chunk_size must be >= 1, got %d", c.ChunkSize))
	}
	if c.MaxPricePoints < 1 {
		errs = append(errs, fmt.Sprintf("max_price_points must be >= 1, got %d", c.MaxPricePoints))
	}
	if c.KeepResults < 0 {
		errs = append(errs, "keep_results must be >= 0")
	}
	if len(c.Hubs) < 2 {
		errs = append(errs, fmt.Sprintf("at least 2 hubs are required for pair analysis, got %d", len(c.Hubs)))
	} else if _, err := c.Registry(); err != nil {
		errs = append(errs, "hubs: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// duration wraps time.Duration so the TOML decoder accepts strings
// like "10m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
