package db

import (
	"database/sql"
	"log"

	"eve-hauler/internal/adam4eve"
	"eve-hauler/internal/engine"
)

// InsertHaulResults bulk-inserts trade pairs linked to a run ledger row.
// Absent history sides persist as SQL NULLs.
func (d *DB) InsertHaulResults(runID string, pairs []engine.TradePair) {
	if runID == "" || len(pairs) == 0 {
		return
	}

	tx, err := d.sql.Begin()
	if err != nil {
		log.Printf("[DB] InsertHaulResults begin tx: %v", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO haul_results (
		run_id, type_id, source_station_id, destination_station_id,
		source_price, destination_price, source_supply, destination_supply,
		source_avg_price, source_avg_volume,
		destination_avg_price, destination_avg_volume,
		margin, estimated_profit
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		log.Printf("[DB] InsertHaulResults prepare: %v", err)
		return
	}
	defer stmt.Close()

	for _, p := range pairs {
		var srcAvgPrice, srcAvgVolume, dstAvgPrice, dstAvgVolume *float64
		if h := p.SourceHistory; h != nil {
			srcAvgPrice, srcAvgVolume = h.AvgPrice, h.AvgVolume
		}
		if h := p.DestinationHistory; h != nil {
			dstAvgPrice, dstAvgVolume = h.AvgPrice, h.AvgVolume
		}
		stmt.Exec(
			runID, p.TypeID, p.SourceStationID, p.DestinationStationID,
			p.SourcePrice, p.DestinationPrice, p.SourceSupply, p.DestinationSupply,
			srcAvgPrice, srcAvgVolume, dstAvgPrice, dstAvgVolume,
			p.Margin, p.EstimatedProfit,
		)
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[DB] InsertHaulResults commit: %v", err)
	}
}

// GetHaulResults reads back the persisted pairs for a run in ledger order.
func (d *DB) GetHaulResults(runID string) []engine.TradePair {
	rows, err := d.sql.Query(`
		SELECT type_id, source_station_id, destination_station_id,
			source_price, destination_price, source_supply, destination_supply,
			source_avg_price, source_avg_volume,
			destination_avg_price, destination_avg_volume,
			margin, estimated_profit
		FROM haul_results WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var pairs []engine.TradePair
	for rows.Next() {
		var p engine.TradePair
		var srcPrice, srcVolume, dstPrice, dstVolume sql.NullFloat64
		rows.Scan(
			&p.TypeID, &p.SourceStationID, &p.DestinationStationID,
			&p.SourcePrice, &p.DestinationPrice, &p.SourceSupply, &p.DestinationSupply,
			&srcPrice, &srcVolume, &dstPrice, &dstVolume,
			&p.Margin, &p.EstimatedProfit,
		)
		if srcPrice.Valid || srcVolume.Valid {
			p.SourceHistory = historyFromCells(p.TypeID, p.SourceStationID, srcPrice, srcVolume)
		}
		if dstPrice.Valid || dstVolume.Valid {
			p.DestinationHistory = historyFromCells(p.TypeID, p.DestinationStationID, dstPrice, dstVolume)
		}
		pairs = append(pairs, p)
	}
	return pairs
}

func historyFromCells(typeID int32, stationID int64, price, volume sql.NullFloat64) *adam4eve.HistoricalRecord {
	r := &adam4eve.HistoricalRecord{TypeID: typeID, StationID: stationID}
	if price.Valid {
		r.AvgPrice = &price.Float64
	}
	if volume.Valid {
		r.AvgVolume = &volume.Float64
	}
	return r
}
