package everef

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"eve-hauler/internal/config"
)

type fakeSnapshotStore struct {
	meta map[string]SnapshotMeta
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{meta: make(map[string]SnapshotMeta)}
}

func (s *fakeSnapshotStore) GetSnapshotMeta(url string) (SnapshotMeta, bool) {
	m, ok := s.meta[url]
	return m, ok
}

func (s *fakeSnapshotStore) SetSnapshotMeta(m SnapshotMeta) error {
	s.meta[m.URL] = m
	return nil
}

func testClient(t *testing.T, url string, ttl time.Duration, store SnapshotStore) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.OrdersURL = url
	cfg.SnapshotTTL.Duration = ttl
	cfg.RequestsPerSecond = 1000
	return NewClient(cfg, store)
}

func TestEnsureSnapshot_DownloadsAndCaches(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("snapshot-bytes"))
	}))
	defer srv.Close()

	store := newFakeSnapshotStore()
	c := testClient(t, srv.URL, 10*time.Minute, store)

	path, err := c.ensureSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("ensureSnapshot() error: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cached file: %v", err)
	}
	if string(body) != "snapshot-bytes" {
		t.Errorf("cached file = %q", body)
	}

	meta, ok := store.GetSnapshotMeta(srv.URL)
	if !ok {
		t.Fatal("meta not stored")
	}
	if meta.ETag != `"v1"` {
		t.Errorf("ETag = %q, want \"v1\"", meta.ETag)
	}
	if meta.Size != int64(len("snapshot-bytes")) {
		t.Errorf("Size = %d", meta.Size)
	}

	// Second call inside the TTL must not touch the network.
	if _, err := c.ensureSnapshot(context.Background(), false); err != nil {
		t.Fatalf("second ensureSnapshot() error: %v", err)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestEnsureSnapshot_ConditionalRefresh(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("snapshot-bytes"))
	}))
	defer srv.Close()

	store := newFakeSnapshotStore()
	// TTL zero: every run re-validates against the server.
	c := testClient(t, srv.URL, 0, store)

	if _, err := c.ensureSnapshot(context.Background(), false); err != nil {
		t.Fatalf("first ensureSnapshot() error: %v", err)
	}
	before, _ := store.GetSnapshotMeta(srv.URL)

	path, err := c.ensureSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("second ensureSnapshot() error: %v", err)
	}
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Errorf("requests = %d, want 2 (download + revalidation)", n)
	}
	body, _ := os.ReadFile(path)
	if string(body) != "snapshot-bytes" {
		t.Errorf("file changed on 304: %q", body)
	}
	after, _ := store.GetSnapshotMeta(srv.URL)
	if !after.FetchedAt.After(before.FetchedAt) {
		t.Errorf("304 did not refresh FetchedAt: before=%v after=%v", before.FetchedAt, after.FetchedAt)
	}
}

func TestEnsureSnapshot_ForceBypassesTTL(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, time.Hour, newFakeSnapshotStore())

	if _, err := c.ensureSnapshot(context.Background(), false); err != nil {
		t.Fatalf("ensureSnapshot() error: %v", err)
	}
	if _, err := c.ensureSnapshot(context.Background(), true); err != nil {
		t.Fatalf("forced ensureSnapshot() error: %v", err)
	}
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}

func TestEnsureSnapshot_RedownloadsWhenFileVanished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("snapshot-bytes"))
	}))
	defer srv.Close()

	store := newFakeSnapshotStore()
	c := testClient(t, srv.URL, time.Hour, store)

	path, err := c.ensureSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("ensureSnapshot() error: %v", err)
	}
	os.Remove(path)

	path2, err := c.ensureSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("ensureSnapshot() after removal error: %v", err)
	}
	if _, err := os.Stat(path2); err != nil {
		t.Errorf("snapshot not re-downloaded: %v", err)
	}
}

func TestEnsureSnapshot_ServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 0, newFakeSnapshotStore())
	if _, err := c.ensureSnapshot(context.Background(), false); err == nil {
		t.Error("ensureSnapshot() succeeded against a 500 server")
	}
}

// emptyBz2 is a valid bzip2 stream that decompresses to zero bytes.
var emptyBz2 = []byte{0x42, 0x5a, 0x68, 0x39, 0x17, 0x72, 0x45, 0x38, 0x50, 0x90, 0x00, 0x00, 0x00, 0x00}

func TestSnapshot_DecompressesCachedFile(t *testing.T) {
	store := newFakeSnapshotStore()
	c := testClient(t, "http://unused.invalid/orders.csv.bz2", time.Hour, store)

	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := c.cacheDir + "/" + snapshotFile
	if err := os.WriteFile(path, emptyBz2, 0644); err != nil {
		t.Fatal(err)
	}
	store.SetSnapshotMeta(SnapshotMeta{
		URL:       c.url,
		Path:      path,
		FetchedAt: time.Now().UTC(),
	})

	rc, err := c.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("decompressed %d bytes, want 0", len(data))
	}
}
