package db

import (
	"time"

	"eve-hauler/internal/everef"
)

// GetSnapshotMeta returns the cached snapshot bookkeeping for url.
func (d *DB) GetSnapshotMeta(url string) (everef.SnapshotMeta, bool) {
	var meta everef.SnapshotMeta
	var fetchedAt string
	err := d.sql.QueryRow(
		"SELECT url, path, etag, size, fetched_at FROM snapshot_meta WHERE url = ?",
		url,
	).Scan(&meta.URL, &meta.Path, &meta.ETag, &meta.Size, &fetchedAt)
	if err != nil {
		return everef.SnapshotMeta{}, false
	}
	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return everef.SnapshotMeta{}, false
	}
	meta.FetchedAt = t
	return meta, true
}

// SetSnapshotMeta upserts the snapshot bookkeeping row.
func (d *DB) SetSnapshotMeta(meta everef.SnapshotMeta) error {
	_, err := d.sql.Exec(
		`INSERT OR REPLACE INTO snapshot_meta (url, path, etag, size, fetched_at)
		 VALUES (?, ?, ?, ?, ?)`,
		meta.URL, meta.Path, meta.ETag, meta.Size, meta.FetchedAt.UTC().Format(time.RFC3339),
	)
	return err
}
