package engine

import "eve-hauler/internal/adam4eve"

// Enrich attaches each quote's weekly history record. A quote with no
// record keeps a nil History; the join never drops a quote.
func Enrich(quotes []StationQuote, history *adam4eve.HistoryTable) []EnrichedQuote {
	out := make([]EnrichedQuote, len(quotes))
	for i, q := range quotes {
		out[i] = EnrichedQuote{
			StationQuote: q,
			History:      history.Lookup(q.TypeID, q.StationID),
		}
	}
	return out
}
