package adam4eve

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"eve-hauler/internal/hub"
)

// ErrSchema marks a weekly file whose header is unusable. Unlike bad rows,
// which are dropped and counted, a schema problem fails the fetch.
var ErrSchema = errors.New("history feed schema violation")

// Column names resolved from the weekly file headers.
const (
	priceAvgColumn  = "sell_price_avg"
	volumeAvgColumn = "sell_volume_avg"
)

// HistoricalRecord carries the latest weekly sell-side averages for one
// item at one hub. Either field may be nil when the corresponding feed had
// no row or no usable cell for the key.
type HistoricalRecord struct {
	TypeID    int32
	StationID int64
	AvgPrice  *float64
	AvgVolume *float64
}

type historyKey struct {
	typeID    int32
	stationID int64
}

// HistoryTable is the merged weekly price and volume series, keyed by
// (type, station). Lookups are nil-safe on an empty table.
type HistoryTable struct {
	records map[historyKey]*HistoricalRecord
}

// TableFromRecords rebuilds a table from flat records, e.g. rows read back
// from the week cache. TableFromRecords(nil) is the empty table.
func TableFromRecords(recs []HistoricalRecord) *HistoryTable {
	t := &HistoryTable{records: make(map[historyKey]*HistoricalRecord, len(recs))}
	for i := range recs {
		r := recs[i]
		t.records[historyKey{r.TypeID, r.StationID}] = &r
	}
	return t
}

// Lookup returns the record for (typeID, stationID), or nil when the week
// had no data for that key.
func (t *HistoryTable) Lookup(typeID int32, stationID int64) *HistoricalRecord {
	if t == nil {
		return nil
	}
	return t.records[historyKey{typeID, stationID}]
}

// Len returns the number of (type, station) keys in the table.
func (t *HistoryTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Records returns all records sorted by (type, station) so downstream
// artifacts are deterministic.
func (t *HistoryTable) Records() []HistoricalRecord {
	if t == nil {
		return nil
	}
	recs := make([]HistoricalRecord, 0, len(t.records))
	for _, r := range t.records {
		recs = append(recs, *r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].TypeID != recs[j].TypeID {
			return recs[i].TypeID < recs[j].TypeID
		}
		return recs[i].StationID < recs[j].StationID
	})
	return recs
}

// SeriesStats counts what happened to the rows of one weekly file.
type SeriesStats struct {
	Rows    int64 // data rows seen
	Kept    int64 // hub rows with a parsable key
	Dropped int64 // broken key, broken date, or unreadable row
	OffHub  int64 // rows at locations outside the hub set
}

// seriesCell is the surviving value for one (type, station) after the
// latest-date dedup.
type seriesCell struct {
	date  string
	value *float64
}

type seriesSchema struct {
	typeID   int
	location int
	date     int
	value    int
}

func resolveSeriesSchema(header []string, valueCol string) (seriesSchema, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	col := func(name string) int {
		i, ok := idx[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	s := seriesSchema{
		typeID:   col("type_id"),
		location: col("location_id"),
		date:     col("date"),
		value:    col(valueCol),
	}
	if len(missing) > 0 {
		return seriesSchema{}, fmt.Errorf("%w: missing column(s) %s", ErrSchema, strings.Join(missing, ", "))
	}
	return s, nil
}

// parseSeries reads one semicolon-delimited weekly file and returns, per
// hub (type, station), the value from the row with the latest date. Value
// cells that are empty or unparsable become nils; rows with a broken key
// are dropped and counted.
func parseSeries(r io.Reader, hubs *hub.Registry, valueCol string) (map[historyKey]seriesCell, SeriesStats, error) {
	var stats SeriesStats

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, fmt.Errorf("%w: empty file", ErrSchema)
		}
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	schema, err := resolveSeriesSchema(header, valueCol)
	if err != nil {
		return nil, stats, err
	}

	cells := make(map[historyKey]seriesCell)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			stats.Rows++
			stats.Dropped++
			continue
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row: %w", err)
		}
		stats.Rows++

		typeID, err := strconv.ParseInt(strings.TrimSpace(rec[schema.typeID]), 10, 32)
		if err != nil || typeID <= 0 {
			stats.Dropped++
			continue
		}
		stationID, err := strconv.ParseInt(strings.TrimSpace(rec[schema.location]), 10, 64)
		if err != nil || stationID <= 0 {
			stats.Dropped++
			continue
		}
		if !hubs.Contains(stationID) {
			stats.OffHub++
			continue
		}
		date := strings.TrimSpace(rec[schema.date])
		if date == "" {
			stats.Dropped++
			continue
		}
		stats.Kept++

		var value *float64
		if s := strings.TrimSpace(rec[schema.value]); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				value = &v
			}
		}

		// Dates are ISO formatted, so string order is date order. On a
		// tie the earlier row in the file wins.
		key := historyKey{int32(typeID), stationID}
		if cur, ok := cells[key]; !ok || date > cur.date {
			cells[key] = seriesCell{date: date, value: value}
		}
	}

	return cells, stats, nil
}

// buildTable outer-merges the price and volume series. A key present in
// only one series keeps a nil on the other side.
func buildTable(prices, volumes map[historyKey]seriesCell) *HistoryTable {
	t := &HistoryTable{records: make(map[historyKey]*HistoricalRecord, len(prices))}
	for k, c := range prices {
		t.records[k] = &HistoricalRecord{
			TypeID:    k.typeID,
			StationID: k.stationID,
			AvgPrice:  c.value,
		}
	}
	for k, c := range volumes {
		r, ok := t.records[k]
		if !ok {
			r = &HistoricalRecord{TypeID: k.typeID, StationID: k.stationID}
			t.records[k] = r
		}
		r.AvgVolume = c.value
	}
	return t
}
