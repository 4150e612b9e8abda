package db

import (
	"database/sql"
	"fmt"
	"time"

	"eve-hauler/internal/adam4eve"
)

// GetHistoryWeek returns the cached weekly history rows for (year, week).
// The second return is false when the week was never stored.
func (d *DB) GetHistoryWeek(year, week int) ([]adam4eve.HistoricalRecord, bool, error) {
	var fetchedAt string
	err := d.sql.QueryRow(
		"SELECT fetched_at FROM history_cache_meta WHERE year = ? AND week = ?",
		year, week,
	).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read week meta: %w", err)
	}

	rows, err := d.sql.Query(
		`SELECT type_id, station_id, avg_price, avg_volume
		 FROM history_cache WHERE year = ? AND week = ?
		 ORDER BY type_id, station_id`,
		year, week,
	)
	if err != nil {
		return nil, false, fmt.Errorf("read week rows: %w", err)
	}
	defer rows.Close()

	var recs []adam4eve.HistoricalRecord
	for rows.Next() {
		var r adam4eve.HistoricalRecord
		var price, volume sql.NullFloat64
		if err := rows.Scan(&r.TypeID, &r.StationID, &price, &volume); err != nil {
			return nil, false, fmt.Errorf("scan week row: %w", err)
		}
		if price.Valid {
			r.AvgPrice = &price.Float64
		}
		if volume.Valid {
			r.AvgVolume = &volume.Float64
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("read week rows: %w", err)
	}
	return recs, true, nil
}

// PutHistoryWeek replaces the cached rows for (year, week) in one
// transaction. An empty record set is stored too: a republished empty week
// still counts as fetched.
func (d *DB) PutHistoryWeek(year, week int, recs []adam4eve.HistoricalRecord) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM history_cache WHERE year = ? AND week = ?", year, week); err != nil {
		return fmt.Errorf("clear week: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO history_cache (year, week, type_id, station_id, avg_price, avg_volume) VALUES (?,?,?,?,?,?)",
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.Exec(year, week, r.TypeID, r.StationID, r.AvgPrice, r.AvgVolume); err != nil {
			return fmt.Errorf("insert week row: %w", err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO history_cache_meta (year, week, fetched_at) VALUES (?, ?, ?)",
		year, week, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("update week meta: %w", err)
	}

	return tx.Commit()
}
