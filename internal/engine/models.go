package engine

import "eve-hauler/internal/adam4eve"

// StationQuote is the aggregate view of one item at one hub: the lowest
// listed sell price and the supply volume within the price band of it.
type StationQuote struct {
	TypeID      int32
	StationID   int64
	LowestPrice float64
	Supply      int64
}

// EnrichedQuote is a StationQuote joined with its weekly history record.
// History is nil when the week had no data for the key.
type EnrichedQuote struct {
	StationQuote
	History *adam4eve.HistoricalRecord
}

// TradePair is one profitable source → destination haul for an item.
type TradePair struct {
	TypeID               int32
	SourceStationID      int64
	DestinationStationID int64
	SourcePrice          float64
	DestinationPrice     float64
	SourceSupply         int64
	DestinationSupply    int64
	SourceHistory        *adam4eve.HistoricalRecord
	DestinationHistory   *adam4eve.HistoricalRecord
	Margin               float64 // (dest - source) / source
	EstimatedProfit      float64 // margin × min(source supply, dest supply)
}
