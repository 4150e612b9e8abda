package db

import (
	"database/sql"
	"fmt"

	"eve-hauler/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database holding feed caches and the run ledger.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS snapshot_meta (
				url        TEXT PRIMARY KEY,
				path       TEXT NOT NULL,
				etag       TEXT NOT NULL DEFAULT '',
				size       INTEGER NOT NULL DEFAULT 0,
				fetched_at TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS run_history (
				id             TEXT PRIMARY KEY,
				started_at     TEXT NOT NULL,
				duration_ms    INTEGER NOT NULL DEFAULT 0,
				rows_scanned   INTEGER NOT NULL DEFAULT 0,
				orders_kept    INTEGER NOT NULL DEFAULT 0,
				malformed_rows INTEGER NOT NULL DEFAULT 0,
				quote_count    INTEGER NOT NULL DEFAULT 0,
				pair_count     INTEGER NOT NULL DEFAULT 0,
				top_profit     REAL NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_run_history_started ON run_history(started_at);

			CREATE TABLE IF NOT EXISTS haul_results (
				id                     INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id                 TEXT NOT NULL REFERENCES run_history(id),
				type_id                INTEGER NOT NULL,
				source_station_id      INTEGER NOT NULL,
				destination_station_id INTEGER NOT NULL,
				source_price           REAL NOT NULL,
				destination_price      REAL NOT NULL,
				source_supply          INTEGER NOT NULL,
				destination_supply     INTEGER NOT NULL,
				source_avg_price       REAL,
				source_avg_volume      REAL,
				destination_avg_price  REAL,
				destination_avg_volume REAL,
				margin                 REAL NOT NULL,
				estimated_profit       REAL NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_haul_run ON haul_results(run_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS history_cache (
				year       INTEGER NOT NULL,
				week       INTEGER NOT NULL,
				type_id    INTEGER NOT NULL,
				station_id INTEGER NOT NULL,
				avg_price  REAL,
				avg_volume REAL,
				PRIMARY KEY (year, week, type_id, station_id)
			);

			CREATE TABLE IF NOT EXISTS history_cache_meta (
				year       INTEGER NOT NULL,
				week       INTEGER NOT NULL,
				fetched_at TEXT NOT NULL,
				PRIMARY KEY (year, week)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (history cache)")
	}

	return nil
}
