package engine

import (
	"sort"

	"golang.org/x/sync/errgroup"
)

// Analyzer generates ranked trade pairs from enriched quotes.
type Analyzer struct {
	MinMargin float64
	Workers   int // <= 0 picks GOMAXPROCS
}

// Pairs evaluates every ordered station pair per item and returns the
// profitable ones, ranked. Items quoted at fewer than two stations are
// skipped.
func (an Analyzer) Pairs(quotes []EnrichedQuote) []TradePair {
	byType := make(map[int32][]EnrichedQuote)
	for _, q := range quotes {
		byType[q.TypeID] = append(byType[q.TypeID], q)
	}
	groups := make([][]EnrichedQuote, 0, len(byType))
	for _, g := range byType {
		if len(g) >= 2 {
			groups = append(groups, g)
		}
	}

	workers := EffectiveWorkers(an.Workers)
	if workers > len(groups) {
		workers = len(groups)
	}

	var pairs []TradePair
	if workers <= 1 {
		for _, g := range groups {
			pairs = an.appendPairs(pairs, g)
		}
	} else {
		parts := make([][]TradePair, workers)
		g := new(errgroup.Group)
		for w := 0; w < workers; w++ {
			w := w
			g.Go(func() error {
				var local []TradePair
				for i := w; i < len(groups); i += workers {
					local = an.appendPairs(local, groups[i])
				}
				parts[w] = local
				return nil
			})
		}
		g.Wait()
		for _, part := range parts {
			pairs = append(pairs, part...)
		}
	}

	sortPairs(pairs)
	return pairs
}

func (an Analyzer) appendPairs(out []TradePair, group []EnrichedQuote) []TradePair {
	for i := range group {
		for j := range group {
			if i == j {
				continue
			}
			src, dst := group[i], group[j]
			margin := (dst.LowestPrice - src.LowestPrice) / src.LowestPrice
			if margin <= 0 || margin < an.MinMargin {
				continue
			}
			supply := src.Supply
			if dst.Supply < supply {
				supply = dst.Supply
			}
			out = append(out, TradePair{
				TypeID:               src.TypeID,
				SourceStationID:      src.StationID,
				DestinationStationID: dst.StationID,
				SourcePrice:          src.LowestPrice,
				DestinationPrice:     dst.LowestPrice,
				SourceSupply:         src.Supply,
				DestinationSupply:    dst.Supply,
				SourceHistory:        src.History,
				DestinationHistory:   dst.History,
				Margin:               margin,
				EstimatedProfit:      margin * float64(supply),
			})
		}
	}
	return out
}

// sortPairs orders by estimated profit, then margin, then the pair key.
// The key fields make the order total, so output is identical no matter
// how the work was partitioned.
func sortPairs(pairs []TradePair) {
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.EstimatedProfit != b.EstimatedProfit {
			return a.EstimatedProfit > b.EstimatedProfit
		}
		if a.Margin != b.Margin {
			return a.Margin > b.Margin
		}
		if a.TypeID != b.TypeID {
			return a.TypeID < b.TypeID
		}
		if a.SourceStationID != b.SourceStationID {
			return a.SourceStationID < b.SourceStationID
		}
		return a.DestinationStationID < b.DestinationStationID
	})
}
