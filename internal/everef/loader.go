package everef

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"eve-hauler/internal/hub"
)

var (
	// ErrSchema means a required column is absent from the snapshot header.
	ErrSchema = errors.New("orders feed schema violation")
	// ErrEmptyFeed means the snapshot carried a header but no data rows.
	ErrEmptyFeed = errors.New("orders feed contains no data rows")
)

// orderSchema maps the required columns to their positions in this file.
// Everef snapshots carry many more columns; the rest are ignored.
type orderSchema struct {
	typeID  int
	station int
	price   int
	volume  int
	isBuy   int
}

// resolveSchema locates the required columns in the header row.
// station_id is preferred; location_id is accepted in its place.
func resolveSchema(header []string) (orderSchema, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var s orderSchema
	var missing []string
	col := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		missing = append(missing, name)
		return -1
	}

	s.typeID = col("type_id")
	s.price = col("price")
	s.volume = col("volume_remain")
	s.isBuy = col("is_buy_order")
	if i, ok := idx["station_id"]; ok {
		s.station = i
	} else if i, ok := idx["location_id"]; ok {
		s.station = i
	} else {
		missing = append(missing, "station_id")
	}

	if len(missing) > 0 {
		return s, fmt.Errorf("%w: missing column(s) %s", ErrSchema, strings.Join(missing, ", "))
	}
	return s, nil
}

type rowVerdict int

const (
	rowKept rowVerdict = iota
	rowMalformed
	rowBuyOrder
	rowOffHub
)

// parseOrder classifies one CSV record. Unparsable fields, a non-positive
// price, or a negative volume make the row malformed; buy orders and orders
// outside the hub set are valid but unwanted.
func parseOrder(rec []string, s orderSchema, hubs *hub.Registry) (SellOrder, rowVerdict) {
	var o SellOrder

	isBuy, err := strconv.ParseBool(strings.TrimSpace(rec[s.isBuy]))
	if err != nil {
		return o, rowMalformed
	}
	station, err := strconv.ParseInt(strings.TrimSpace(rec[s.station]), 10, 64)
	if err != nil || station <= 0 {
		return o, rowMalformed
	}
	typeID, err := strconv.ParseInt(strings.TrimSpace(rec[s.typeID]), 10, 32)
	if err != nil {
		return o, rowMalformed
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(rec[s.price]), 64)
	if err != nil || price <= 0 {
		return o, rowMalformed
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(rec[s.volume]), 10, 64)
	if err != nil || volume < 0 {
		return o, rowMalformed
	}

	if isBuy {
		return o, rowBuyOrder
	}
	if !hubs.Contains(station) {
		return o, rowOffHub
	}

	o = SellOrder{TypeID: int32(typeID), StationID: station, Price: price, Volume: volume}
	return o, rowKept
}

// ReadOrders streams the snapshot CSV from r and hands qualifying sell
// orders to fn in batches of at most chunkSize rows. The callback owns each
// batch slice. Batch boundaries are a memory decision only; folding the
// batches must give the same result for any chunk size.
//
// Malformed rows are counted and skipped. A missing required column, an
// entirely empty feed, or an I/O failure aborts the load.
func ReadOrders(r io.Reader, hubs *hub.Registry, chunkSize int, fn func([]SellOrder) error) (LoadStats, error) {
	var stats LoadStats
	if chunkSize < 1 {
		chunkSize = 1
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return stats, fmt.Errorf("%w: empty file", ErrSchema)
	}
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	schema, err := resolveSchema(header)
	if err != nil {
		return stats, err
	}

	batch := make([]SellOrder, 0, chunkSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out := batch
		batch = make([]SellOrder, 0, chunkSize)
		return fn(out)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				stats.Rows++
				stats.Malformed++
				continue
			}
			return stats, fmt.Errorf("read orders: %w", err)
		}
		stats.Rows++

		o, verdict := parseOrder(rec, schema, hubs)
		switch verdict {
		case rowKept:
			stats.Kept++
			batch = append(batch, o)
			if len(batch) == chunkSize {
				if err := flush(); err != nil {
					return stats, err
				}
			}
		case rowMalformed:
			stats.Malformed++
		case rowBuyOrder:
			stats.BuyOrders++
		case rowOffHub:
			stats.OffHub++
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	if stats.Rows == 0 {
		return stats, ErrEmptyFeed
	}
	return stats, nil
}
