package everef

import (
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"eve-hauler/internal/config"
	"eve-hauler/internal/logger"
)

// snapshotFile is the fixed name of the cached orders file.
const snapshotFile = "market-orders.csv.bz2"

// SnapshotMeta is the bookkeeping row for the cached snapshot file.
type SnapshotMeta struct {
	URL       string
	Path      string
	ETag      string
	Size      int64
	FetchedAt time.Time
}

// SnapshotStore persists snapshot metadata between runs.
type SnapshotStore interface {
	GetSnapshotMeta(url string) (SnapshotMeta, bool)
	SetSnapshotMeta(meta SnapshotMeta) error
}

// Client downloads the market-orders snapshot with a local file cache.
// Within the TTL the cached file is reused without network I/O; past it a
// conditional request re-validates the file via its ETag.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	store     SnapshotStore
	url       string
	userAgent string
	cacheDir  string
	ttl       time.Duration
}

// NewClient creates a snapshot client from the run configuration.
func NewClient(cfg *config.Config, store SnapshotStore) *Client {
	return &Client{
		http:      &http.Client{Timeout: cfg.RequestTimeout.Duration},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		store:     store,
		url:       cfg.OrdersURL,
		userAgent: cfg.UserAgent,
		cacheDir:  cfg.CachePath(),
		ttl:       cfg.SnapshotTTL.Duration,
	}
}

// Snapshot returns a reader over the decompressed orders CSV, downloading or
// re-validating the cached file first as needed. force skips the TTL check.
func (c *Client) Snapshot(ctx context.Context, force bool) (io.ReadCloser, error) {
	path, err := c.ensureSnapshot(ctx, force)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return &snapshotReader{Reader: bzip2.NewReader(f), file: f}, nil
}

type snapshotReader struct {
	io.Reader
	file *os.File
}

func (r *snapshotReader) Close() error { return r.file.Close() }

// ensureSnapshot returns the path of a usable cached snapshot file:
//  1. cached file younger than the TTL: reuse as-is
//  2. stale file with a known ETag: conditional GET; 304 refreshes the
//     bookkeeping only, 200 replaces the file
//  3. no usable cache: full download
func (c *Client) ensureSnapshot(ctx context.Context, force bool) (string, error) {
	meta, ok := c.store.GetSnapshotMeta(c.url)
	if ok {
		if _, err := os.Stat(meta.Path); err != nil {
			ok = false
		}
	}

	if ok && !force && time.Since(meta.FetchedAt) < c.ttl {
		age := time.Since(meta.FetchedAt).Round(time.Second)
		logger.Info("Everef", fmt.Sprintf("Using cached snapshot (%s old)", age))
		return meta.Path, nil
	}

	etag := ""
	if ok {
		etag = meta.ETag
	}

	path, fresh, err := c.download(ctx, etag)
	if err != nil {
		return "", err
	}
	if fresh == nil {
		// 304: upstream unchanged, push the TTL window forward.
		meta.FetchedAt = time.Now().UTC()
		if err := c.store.SetSnapshotMeta(meta); err != nil {
			logger.Warn("Everef", fmt.Sprintf("Snapshot meta update failed: %v", err))
		}
		logger.Info("Everef", "Snapshot unchanged upstream (304)")
		return meta.Path, nil
	}
	if err := c.store.SetSnapshotMeta(*fresh); err != nil {
		logger.Warn("Everef", fmt.Sprintf("Snapshot meta update failed: %v", err))
	}
	return path, nil
}

// download fetches the snapshot. A nil SnapshotMeta with a nil error means
// the server answered 304 Not Modified for the given etag.
func (c *Client) download(ctx context.Context, etag string) (string, *SnapshotMeta, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	logger.Info("Everef", "Downloading market orders snapshot...")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return "", nil, nil
	case http.StatusOK:
	default:
		return "", nil, fmt.Errorf("fetch snapshot: HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return "", nil, fmt.Errorf("create cache dir: %w", err)
	}
	path := filepath.Join(c.cacheDir, snapshotFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", nil, fmt.Errorf("create snapshot file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", nil, fmt.Errorf("commit snapshot: %w", err)
	}

	logger.Success("Everef", fmt.Sprintf("Snapshot downloaded (%s)", humanize.Bytes(uint64(n))))
	return path, &SnapshotMeta{
		URL:       c.url,
		Path:      path,
		ETag:      resp.Header.Get("ETag"),
		Size:      n,
		FetchedAt: time.Now().UTC(),
	}, nil
}
