package adam4eve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"eve-hauler/internal/config"
	"eve-hauler/internal/hub"
)

type fakeWeekCache struct {
	mu    sync.Mutex
	weeks map[string][]HistoricalRecord
}

func newFakeWeekCache() *fakeWeekCache {
	return &fakeWeekCache{weeks: make(map[string][]HistoricalRecord)}
}

func weekKey(year, week int) string { return fmt.Sprintf("%d-%02d", year, week) }

func (c *fakeWeekCache) GetHistoryWeek(year, week int) ([]HistoricalRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs, ok := c.weeks[weekKey(year, week)]
	return recs, ok, nil
}

func (c *fakeWeekCache) PutHistoryWeek(year, week int, recs []HistoricalRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weeks[weekKey(year, week)] = recs
	return nil
}

// fixedNow pins the client clock mid-week so ISO week math is stable.
var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func historyClient(t *testing.T, baseURL string, cache WeekCache) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.HistoryBaseURL = baseURL
	cfg.RequestsPerSecond = 1000
	c := NewClient(cfg, hub.Default(), cache)
	c.now = func() time.Time { return fixedNow }
	return c
}

const (
	testPriceCSV = "type_id;location_id;region_id;date;sell_price_low;sell_price_avg;sell_price_high\n" +
		"34;60003760;10000002;2026-03-02;5.0;5.5;6.0\n" +
		"34;60008494;10000043;2026-03-02;6.0;6.5;7.0\n"
	testVolumeCSV = "type_id;location_id;region_id;date;sell_volume_low;sell_volume_avg;sell_volume_high\n" +
		"34;60003760;10000002;2026-03-02;500;1200.5;2000\n"
)

// serveWeeks answers price and volume requests for any week whose
// "<year>-<week>" token appears in weeks, 404 otherwise.
func serveWeeks(t *testing.T, paths *[]string, mu *sync.Mutex, weeks ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if paths != nil {
			mu.Lock()
			*paths = append(*paths, r.URL.Path)
			mu.Unlock()
		}
		served := false
		for _, wk := range weeks {
			if strings.Contains(r.URL.Path, "_hub_weekly_"+wk+".csv") {
				served = true
				break
			}
		}
		if !served {
			http.NotFound(w, r)
			return
		}
		if strings.Contains(r.URL.Path, pricesPrefix) {
			io.WriteString(w, testPriceCSV)
			return
		}
		io.WriteString(w, testVolumeCSV)
	}))
}

func TestTable_FetchesCurrentWeek(t *testing.T) {
	year, week := fixedNow.ISOWeek()
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := serveWeeks(t, &paths, &mu, weekKey(year, week))
	defer srv.Close()

	cache := newFakeWeekCache()
	table, err := historyClient(t, srv.URL, cache).Table(context.Background())
	if err != nil {
		t.Fatalf("Table() error: %v", err)
	}

	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	jita := table.Lookup(34, 60003760)
	if jita == nil || jita.AvgPrice == nil || *jita.AvgPrice != 5.5 || jita.AvgVolume == nil || *jita.AvgVolume != 1200.5 {
		t.Errorf("jita record = %+v", jita)
	}
	amarr := table.Lookup(34, 60008494)
	if amarr == nil || amarr.AvgPrice == nil || *amarr.AvgPrice != 6.5 || amarr.AvgVolume != nil {
		t.Errorf("amarr record = %+v", amarr)
	}

	wantPath := fmt.Sprintf("/%s/%d/%s_hub_weekly_%s.csv", pricesPrefix, year, pricesPrefix, weekKey(year, week))
	mu.Lock()
	found := false
	for _, p := range paths {
		if p == wantPath {
			found = true
		}
	}
	mu.Unlock()
	if !found {
		t.Errorf("price URL path %q not requested (saw %v)", wantPath, paths)
	}

	if _, ok, _ := cache.GetHistoryWeek(year, week); !ok {
		t.Error("fetched week not stored in cache")
	}
}

func TestTable_FallsBackToPreviousWeek(t *testing.T) {
	year, week := fixedNow.ISOWeek()
	prevYear, prevWeek := fixedNow.AddDate(0, 0, -7).ISOWeek()

	srv := serveWeeks(t, nil, nil, weekKey(prevYear, prevWeek))
	defer srv.Close()

	cache := newFakeWeekCache()
	table, err := historyClient(t, srv.URL, cache).Table(context.Background())
	if err != nil {
		t.Fatalf("Table() error: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}

	if _, ok, _ := cache.GetHistoryWeek(prevYear, prevWeek); !ok {
		t.Error("fallback week not stored in cache")
	}
	if _, ok, _ := cache.GetHistoryWeek(year, week); ok {
		t.Error("missing week stored in cache")
	}
}

func TestTable_FailsWhenNoWeekPublished(t *testing.T) {
	srv := serveWeeks(t, nil, nil) // 404 for everything
	defer srv.Close()

	_, err := historyClient(t, srv.URL, nil).Table(context.Background())
	if !errors.Is(err, ErrWeekMissing) {
		t.Fatalf("err = %v, want ErrWeekMissing", err)
	}
}

func TestTable_ServerErrorDoesNotFallBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := historyClient(t, srv.URL, nil).Table(context.Background())
	if err == nil {
		t.Fatal("Table() succeeded against a 500 server")
	}
	if errors.Is(err, ErrWeekMissing) {
		t.Errorf("500 treated as missing week: %v", err)
	}
}

func TestTable_UsesWeekCache(t *testing.T) {
	year, week := fixedNow.ISOWeek()
	cache := newFakeWeekCache()
	cache.PutHistoryWeek(year, week, []HistoricalRecord{
		{TypeID: 34, StationID: 60003760, AvgPrice: fptr(5.5), AvgVolume: fptr(1200.5)},
	})

	// Unresolvable base URL: any network attempt fails the test.
	table, err := historyClient(t, "http://hauler-test.invalid", cache).Table(context.Background())
	if err != nil {
		t.Fatalf("Table() error: %v", err)
	}
	rec := table.Lookup(34, 60003760)
	if rec == nil || rec.AvgPrice == nil || *rec.AvgPrice != 5.5 {
		t.Errorf("cached record = %+v", rec)
	}
}

func TestWeekURL_Format(t *testing.T) {
	c := historyClient(t, "https://static.adam4eve.eu/", nil)
	got := c.weekURL(pricesPrefix, 2026, 5)
	want := "https://static.adam4eve.eu/MarketPricesStationHistory/2026/MarketPricesStationHistory_hub_weekly_2026-05.csv"
	if got != want {
		t.Errorf("weekURL() = %q, want %q", got, want)
	}
}
