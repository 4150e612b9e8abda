package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"eve-hauler/internal/adam4eve"
	"eve-hauler/internal/engine"
)

// TradeColumns is the fixed column order of the trade analysis table.
var TradeColumns = []string{
	"type_id",
	"source_station_id",
	"destination_station_id",
	"source_price",
	"destination_price",
	"source_supply",
	"destination_supply",
	"source_avg_price",
	"source_avg_volume",
	"destination_avg_price",
	"destination_avg_volume",
	"margin",
	"estimated_profit",
}

// QuoteColumns is the column order of the aggregated market snapshot.
var QuoteColumns = []string{"type_id", "station_id", "lowest_price", "supply_volume"}

// HistoryColumns is the column order of the joined weekly history table.
var HistoryColumns = []string{"type_id", "station_id", "avg_price", "avg_volume"}

// ftoa renders floats with the shortest digits that round-trip, so equal
// inputs always serialize to equal bytes.
func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// nullable renders an optional stat; nil becomes an empty cell.
func nullable(v *float64) string {
	if v == nil {
		return ""
	}
	return ftoa(*v)
}

func itoa32(v int32) string { return strconv.FormatInt(int64(v), 10) }
func itoa64(v int64) string { return strconv.FormatInt(v, 10) }

// WriteTrades writes the ranked trade-pair table. Pairs are written in the
// order given; absent history sides render as empty cells.
func WriteTrades(w io.Writer, pairs []engine.TradePair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TradeColumns); err != nil {
		return fmt.Errorf("write trade header: %w", err)
	}
	for _, p := range pairs {
		var srcAvgPrice, srcAvgVolume, dstAvgPrice, dstAvgVolume *float64
		if h := p.SourceHistory; h != nil {
			srcAvgPrice, srcAvgVolume = h.AvgPrice, h.AvgVolume
		}
		if h := p.DestinationHistory; h != nil {
			dstAvgPrice, dstAvgVolume = h.AvgPrice, h.AvgVolume
		}
		row := []string{
			itoa32(p.TypeID),
			itoa64(p.SourceStationID),
			itoa64(p.DestinationStationID),
			ftoa(p.SourcePrice),
			ftoa(p.DestinationPrice),
			itoa64(p.SourceSupply),
			itoa64(p.DestinationSupply),
			nullable(srcAvgPrice),
			nullable(srcAvgVolume),
			nullable(dstAvgPrice),
			nullable(dstAvgVolume),
			ftoa(p.Margin),
			ftoa(p.EstimatedProfit),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write trade row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteQuotes writes the aggregated quote table.
func WriteQuotes(w io.Writer, quotes []engine.StationQuote) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(QuoteColumns); err != nil {
		return fmt.Errorf("write quote header: %w", err)
	}
	for _, q := range quotes {
		row := []string{
			itoa32(q.TypeID),
			itoa64(q.StationID),
			ftoa(q.LowestPrice),
			itoa64(q.Supply),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write quote row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistory writes the joined weekly history table.
func WriteHistory(w io.Writer, recs []adam4eve.HistoricalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HistoryColumns); err != nil {
		return fmt.Errorf("write history header: %w", err)
	}
	for _, r := range recs {
		row := []string{
			itoa32(r.TypeID),
			itoa64(r.StationID),
			nullable(r.AvgPrice),
			nullable(r.AvgVolume),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write history row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
