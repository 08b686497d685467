// Package orderbook reconstructs per-(venue, pair) L2 books from a
// snapshot plus a stream of deltas, and emits change-suppressed top-K
// views to the streaming adapters.
package orderbook

import (
	"errors"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/shopspring/decimal"
)

// DefaultDepth is the top-K retained for emission unless configured.
const DefaultDepth = 5

func decimalComparator(a, b interface{}) int {
	d1 := a.(decimal.Decimal)
	d2 := b.(decimal.Decimal)
	return d1.Cmp(d2)
}

// PriceLevel is a single (price, volume) entry of a book side.
type PriceLevel struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

func NewPriceLevel(price, volume decimal.Decimal) PriceLevel {
	return PriceLevel{Price: price, Volume: volume}
}

// BookSide is one side of an order book, ordered by price via a treemap.
type BookSide struct {
	levels treemap.Map
}

func NewBookSide() *BookSide {
	return &BookSide{levels: *treemap.NewWith(decimalComparator)}
}

func (bs *BookSide) Best() (PriceLevel, error) {
	if bs.levels.Empty() {
		return PriceLevel{}, errors.New("orderbook: side is empty")
	}
	price, vol := bs.levels.Min()
	return NewPriceLevel(price.(decimal.Decimal), vol.(decimal.Decimal)), nil
}

// Top returns up to depth levels, ascending by price if ascending is
// true (asks), descending otherwise (bids).
func (bs *BookSide) Top(depth int, ascending bool) []PriceLevel {
	out := make([]PriceLevel, 0, depth)
	it := bs.levels.Iterator()
	count := 0
	if ascending {
		for it.Next() {
			out = append(out, NewPriceLevel(it.Key().(decimal.Decimal), it.Value().(decimal.Decimal)))
			count++
			if count >= depth {
				break
			}
		}
	} else {
		for it.End(); it.Prev(); {
			out = append(out, NewPriceLevel(it.Key().(decimal.Decimal), it.Value().(decimal.Decimal)))
			count++
			if count >= depth {
				break
			}
		}
	}
	return out
}

// Update applies a delta batch: vol==0 removes the level, otherwise the
// level is inserted or overwritten. This always overwrites an existing
// non-zero level — the source's insert-if-absent behavior is the bug
// spec.md requires fixing, never reproduce it here.
func (bs *BookSide) Update(levels []PriceLevel) {
	for _, level := range levels {
		if level.Volume.IsZero() {
			bs.levels.Remove(level.Price)
			continue
		}
		bs.levels.Put(level.Price, level.Volume)
	}
}

// Reset replaces the side wholesale from an unordered snapshot; zero-size
// entries are skipped, everything else establishes the ordered invariant.
func (bs *BookSide) Reset(levels []PriceLevel) {
	bs.levels.Clear()
	for _, level := range levels {
		if level.Volume.IsZero() {
			continue
		}
		bs.levels.Put(level.Price, level.Volume)
	}
}

// Aggregator merges a snapshot with subsequent deltas for one (venue,
// pair) and emits change-suppressed top-K order books. It does no locking
// of its own: callers serialize every call (the adapters call it from the
// venue's read loop; the Binance adapter also holds a per-pair lock).
type Aggregator struct {
	Pair  venue.Pair
	Depth int

	asks *BookSide
	bids *BookSide

	hasEmitted bool
	lastAsks   []PriceLevel
	lastBids   []PriceLevel
}

// NewAggregator creates an aggregator covering pair with depth K. Per
// spec, an aggregator must only be constructed once its snapshot has
// been requested; this constructor does not fetch one itself.
func NewAggregator(pair venue.Pair, depth int) *Aggregator {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Aggregator{
		Pair:  pair,
		Depth: depth,
		asks:  NewBookSide(),
		bids:  NewBookSide(),
	}
}

func (a *Aggregator) ResetAsks(levels []PriceLevel) { a.asks.Reset(levels) }
func (a *Aggregator) ResetBids(levels []PriceLevel) { a.bids.Reset(levels) }
func (a *Aggregator) UpdateAsks(levels []PriceLevel) { a.asks.Update(levels) }
func (a *Aggregator) UpdateBids(levels []PriceLevel) { a.bids.Update(levels) }

// OrderBook returns the current top-K view, unconditionally.
func (a *Aggregator) OrderBook() marketdata.Orderbook {
	asks := a.asks.Top(a.Depth, true)
	bids := a.bids.Top(a.Depth, false)
	return marketdata.Orderbook{
		Pair: a.Pair,
		Asks: toLevels(asks),
		Bids: toLevels(bids),
	}
}

// LatestOrderBook returns OrderBook() only if the top-K view differs
// from the last emitted one; otherwise ok is false. This is the
// change-suppression mechanism that prevents recipient flooding.
func (a *Aggregator) LatestOrderBook() (marketdata.Orderbook, bool) {
	asks := a.asks.Top(a.Depth, true)
	bids := a.bids.Top(a.Depth, false)
	if a.hasEmitted && sameLevels(asks, a.lastAsks) && sameLevels(bids, a.lastBids) {
		return marketdata.Orderbook{}, false
	}
	a.hasEmitted = true
	a.lastAsks = asks
	a.lastBids = bids
	return marketdata.Orderbook{
		Pair: a.Pair,
		Asks: toLevels(asks),
		Bids: toLevels(bids),
	}, true
}

func toLevels(levels []PriceLevel) []marketdata.PriceLevel {
	out := make([]marketdata.PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = marketdata.PriceLevel{Price: l.Price, Volume: l.Volume}
	}
	return out
}

func sameLevels(a, b []PriceLevel) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Price.Equal(b[i].Price) || !a[i].Volume.Equal(b[i].Volume) {
			return false
		}
	}
	return true
}
