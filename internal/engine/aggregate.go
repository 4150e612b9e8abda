package engine

import (
	"sort"

	"eve-hauler/internal/everef"
)

// quoteKey identifies one item at one hub.
type quoteKey struct {
	typeID    int32
	stationID int64
}

// quoteAcc tracks one key: the running minimum and the distinct price
// points still inside the band of it, volume summed per price.
type quoteAcc struct {
	min    float64
	points map[float64]int64
}

// Accumulator folds sell orders into per-(type, station) quotes. The band
// anchors at the running minimum and only moves down, so a pruned point can
// never re-qualify. Together with the cap rule (keep the lowest distinct
// prices, evict the highest) the retained set depends only on the order set,
// not on arrival order or chunking, which makes Merge associative and
// commutative.
type Accumulator struct {
	band      float64
	maxPoints int
	accs      map[quoteKey]*quoteAcc
}

// NewAccumulator creates an empty accumulator. band is the fractional
// price window above the minimum (0.10 = 10%); maxPoints caps the distinct
// price points tracked per key.
func NewAccumulator(band float64, maxPoints int) *Accumulator {
	return &Accumulator{
		band:      band,
		maxPoints: maxPoints,
		accs:      make(map[quoteKey]*quoteAcc),
	}
}

// Add folds one sell order into the accumulator.
func (a *Accumulator) Add(o everef.SellOrder) {
	key := quoteKey{o.TypeID, o.StationID}
	acc, ok := a.accs[key]
	if !ok {
		acc = &quoteAcc{min: o.Price, points: make(map[float64]int64, 4)}
		a.accs[key] = acc
	} else if o.Price < acc.min {
		acc.min = o.Price
		a.prune(acc)
	}
	if o.Price > acc.min*(1+a.band) {
		return
	}
	a.insert(acc, o.Price, o.Volume)
}

// AddBatch folds a batch of sell orders.
func (a *Accumulator) AddBatch(orders []everef.SellOrder) {
	for _, o := range orders {
		a.Add(o)
	}
}

// Merge folds other into a. other must not be used afterwards.
func (a *Accumulator) Merge(other *Accumulator) {
	for key, src := range other.accs {
		dst, ok := a.accs[key]
		if !ok {
			a.accs[key] = src
			continue
		}
		if src.min < dst.min {
			dst.min = src.min
			a.prune(dst)
		}
		limit := dst.min * (1 + a.band)
		for price, volume := range src.points {
			if price > limit {
				continue
			}
			a.insert(dst, price, volume)
		}
	}
}

// Len returns the number of (type, station) keys seen so far.
func (a *Accumulator) Len() int { return len(a.accs) }

// Quotes materializes the aggregate, sorted by (type, station).
func (a *Accumulator) Quotes() []StationQuote {
	quotes := make([]StationQuote, 0, len(a.accs))
	for key, acc := range a.accs {
		var supply int64
		for _, v := range acc.points {
			supply += v
		}
		quotes = append(quotes, StationQuote{
			TypeID:      key.typeID,
			StationID:   key.stationID,
			LowestPrice: acc.min,
			Supply:      supply,
		})
	}
	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].TypeID != quotes[j].TypeID {
			return quotes[i].TypeID < quotes[j].TypeID
		}
		return quotes[i].StationID < quotes[j].StationID
	})
	return quotes
}

// prune drops points that fell outside the band after the minimum moved
// down. They can never come back: the band anchor only decreases.
func (a *Accumulator) prune(acc *quoteAcc) {
	limit := acc.min * (1 + a.band)
	for price := range acc.points {
		if price > limit {
			delete(acc.points, price)
		}
	}
}

// insert adds volume at a price already known to be inside the band,
// enforcing the point cap. At the cap a new price only enters by evicting
// a higher one; the current minimum is never evicted.
func (a *Accumulator) insert(acc *quoteAcc, price float64, volume int64) {
	if _, ok := acc.points[price]; !ok && len(acc.points) >= a.maxPoints {
		highest := price
		for p := range acc.points {
			if p > highest {
				highest = p
			}
		}
		if highest == price {
			return
		}
		delete(acc.points, highest)
	}
	acc.points[price] += volume
}
