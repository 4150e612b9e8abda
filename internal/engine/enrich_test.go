package engine

import (
	"testing"

	"eve-hauler/internal/adam4eve"
)

func fptr(v float64) *float64 { return &v }

func TestEnrich_NullSafeJoin(t *testing.T) {
	table := adam4eve.TableFromRecords([]adam4eve.HistoricalRecord{
		{TypeID: 1, StationID: jita, AvgPrice: fptr(5.5), AvgVolume: fptr(1200)},
	})
	quotes := []StationQuote{
		{TypeID: 1, StationID: jita, LowestPrice: 100, Supply: 8},
		{TypeID: 1, StationID: amarr, LowestPrice: 130, Supply: 10},
		{TypeID: 2, StationID: jita, LowestPrice: 50, Supply: 3},
	}

	enriched := Enrich(quotes, table)
	if len(enriched) != len(quotes) {
		t.Fatalf("Enrich() kept %d quotes, want %d", len(enriched), len(quotes))
	}
	if enriched[0].History == nil || *enriched[0].History.AvgPrice != 5.5 {
		t.Errorf("matched quote history = %+v, want avg price 5.5", enriched[0].History)
	}
	if enriched[1].History != nil || enriched[2].History != nil {
		t.Error("quotes without history rows must carry nil, not be dropped")
	}
	if enriched[1].StationQuote != quotes[1] {
		t.Errorf("quote fields changed in join: %+v", enriched[1].StationQuote)
	}
}

func TestEnrich_NoHistoryAtAll(t *testing.T) {
	quotes := []StationQuote{{TypeID: 1, StationID: jita, LowestPrice: 100, Supply: 8}}

	for _, table := range []*adam4eve.HistoryTable{nil, adam4eve.TableFromRecords(nil)} {
		enriched := Enrich(quotes, table)
		if len(enriched) != 1 || enriched[0].History != nil {
			t.Errorf("Enrich with empty history = %+v, want 1 quote with nil history", enriched)
		}
	}
}
