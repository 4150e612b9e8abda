package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration: defaults first, then the TOML file at path
// when one exists there, then HAULER_* environment overrides. A missing file
// is not an error so a stock run needs no config at all. The returned Config
// has not been validated; callers invoke Validate after Load.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	// Load .env if present, then apply overrides.
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides reads well-known HAULER_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.DataDir, "HAULER_DATA_DIR")
	setStr(&cfg.OutputDir, "HAULER_OUTPUT_DIR")

	setStr(&cfg.OrdersURL, "HAULER_ORDERS_URL")
	setStr(&cfg.HistoryBaseURL, "HAULER_HISTORY_BASE_URL")
	setStr(&cfg.UserAgent, "HAULER_USER_AGENT")
	setDuration(&cfg.RequestTimeout, "HAULER_REQUEST_TIMEOUT")
	setFloat64(&cfg.RequestsPerSecond, "HAULER_REQUESTS_PER_SECOND")
	setDuration(&cfg.SnapshotTTL, "HAULER_SNAPSHOT_TTL")
	setInt(&cfg.HistoryMaxWeeksBack, "HAULER_HISTORY_MAX_WEEKS_BACK")

	setFloat64(&cfg.SupplyBand, "HAULER_SUPPLY_BAND")
	setFloat64(&cfg.MinMargin, "HAULER_MIN_MARGIN")
	setInt(&cfg.ChunkSize, "HAULER_CHUNK_SIZE")
	setInt(&cfg.MaxPricePoints, "HAULER_MAX_PRICE_POINTS")
	setInt(&cfg.Workers, "HAULER_WORKERS")
	setInt(&cfg.KeepResults, "HAULER_KEEP_RESULTS")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and parses cleanly.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
