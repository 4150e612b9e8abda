package db

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// RunRecord is one row of the run ledger.
type RunRecord struct {
	ID            string
	StartedAt     string
	DurationMs    int64
	RowsScanned   int64
	OrdersKept    int64
	MalformedRows int64
	QuoteCount    int
	PairCount     int
	TopProfit     float64
}

// InsertRun records a completed run and returns its generated id.
// Ledger write failures are logged, not propagated: the artifacts on disk
// are already committed by the time the ledger is written.
func (d *DB) InsertRun(rec RunRecord) string {
	id := uuid.NewString()
	startedAt := rec.StartedAt
	if startedAt == "" {
		startedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := d.sql.Exec(
		`INSERT INTO run_history (
			id, started_at, duration_ms, rows_scanned, orders_kept,
			malformed_rows, quote_count, pair_count, top_profit
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		id, startedAt, rec.DurationMs, rec.RowsScanned, rec.OrdersKept,
		rec.MalformedRows, rec.QuoteCount, rec.PairCount, rec.TopProfit,
	)
	if err != nil {
		log.Printf("[DB] InsertRun: %v", err)
		return ""
	}
	return id
}

// RecentRuns returns the last N runs, newest first.
func (d *DB) RecentRuns(limit int) []RunRecord {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.Query(
		`SELECT id, started_at, duration_ms, rows_scanned, orders_kept,
			malformed_rows, quote_count, pair_count, top_profit
		 FROM run_history ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var r RunRecord
		rows.Scan(
			&r.ID, &r.StartedAt, &r.DurationMs, &r.RowsScanned, &r.OrdersKept,
			&r.MalformedRows, &r.QuoteCount, &r.PairCount, &r.TopProfit,
		)
		recs = append(recs, r)
	}
	return recs
}

// ClearRuns deletes ledger rows older than the given number of days,
// together with their persisted results, and returns the count removed.
func (d *DB) ClearRuns(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).UTC().Format(time.RFC3339)

	tx, err := d.sql.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM haul_results WHERE run_id IN (SELECT id FROM run_history WHERE started_at < ?)",
		cutoff,
	); err != nil {
		return 0, err
	}
	res, err := tx.Exec("DELETE FROM run_history WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	count, _ := res.RowsAffected()
	return count, nil
}
