// Package clientbook reconstructs a local replica of a server order
// book from a snapshot followed by an incremental update stream. It is
// the consumer-side counterpart of engine.OrderBook.
package clientbook

import (
	"sort"

	"github.com/saiputravu/marketsim/internal/bookmodel"
)

// Book is a client-side replica of one instrument's order book.
type Book struct {
	instrument bookmodel.InstrumentID
	bids       map[bookmodel.Price]bookmodel.Quantity
	asks       map[bookmodel.Price]bookmodel.Quantity
	sequence   uint64
}

// New creates an empty client book. ApplySnapshot must be called before
// the replica reflects anything meaningful.
func New() *Book {
	return &Book{
		bids: make(map[bookmodel.Price]bookmodel.Quantity),
		asks: make(map[bookmodel.Price]bookmodel.Quantity),
	}
}

// ApplySnapshot discards any prior state and repopulates the replica
// from a fresh snapshot. Applying the same snapshot twice is a no-op
// since it always fully overwrites the prior maps.
func (b *Book) ApplySnapshot(s bookmodel.Snapshot) {
	b.instrument = s.Instrument
	b.bids = make(map[bookmodel.Price]bookmodel.Quantity, len(s.Bids))
	b.asks = make(map[bookmodel.Price]bookmodel.Quantity, len(s.Asks))
	for _, lvl := range s.Bids {
		b.bids[lvl.Price] = lvl.Quantity
	}
	for _, lvl := range s.Asks {
		b.asks[lvl.Price] = lvl.Quantity
	}
	b.sequence = s.SequenceNumber
}

// ApplyUpdate applies one incremental level update. Updates at or
// before the sequence number of the last applied snapshot/update are
// discarded as stale or duplicate.
func (b *Book) ApplyUpdate(u bookmodel.LevelUpdate) {
	if u.SequenceNumber <= b.sequence {
		return
	}
	b.sequence = u.SequenceNumber

	side := b.asks
	if u.Side == bookmodel.Buy {
		side = b.bids
	}
	if u.NewQuantity == 0 {
		delete(side, u.Price)
		return
	}
	side[u.Price] = u.NewQuantity
}

// Instrument returns the instrument this replica tracks.
func (b *Book) Instrument() bookmodel.InstrumentID { return b.instrument }

// SequenceNumber returns the sequence of the last applied snapshot or
// update.
func (b *Book) SequenceNumber() uint64 { return b.sequence }

// BestBid returns the highest bid price currently resting, if any.
func (b *Book) BestBid() (bookmodel.Price, bookmodel.Quantity, bool) {
	return bestOf(b.bids, func(a, c bookmodel.Price) bool { return a > c })
}

// BestAsk returns the lowest ask price currently resting, if any.
func (b *Book) BestAsk() (bookmodel.Price, bookmodel.Quantity, bool) {
	return bestOf(b.asks, func(a, c bookmodel.Price) bool { return a < c })
}

func bestOf(levels map[bookmodel.Price]bookmodel.Quantity, better func(a, b bookmodel.Price) bool) (bookmodel.Price, bookmodel.Quantity, bool) {
	var (
		best  bookmodel.Price
		found bool
	)
	for price, qty := range levels {
		if qty == 0 {
			continue
		}
		if !found || better(price, best) {
			best = price
			found = true
		}
	}
	if !found {
		return 0, 0, false
	}
	return best, levels[best], true
}

// TopN returns up to n bid levels (descending by price) and up to n ask
// levels (ascending by price), excluding any non-positive-quantity
// levels.
func (b *Book) TopN(n int) (bids, asks []bookmodel.PriceLevelView) {
	bids = sortedLevels(b.bids, n, true)
	asks = sortedLevels(b.asks, n, false)
	return bids, asks
}

func sortedLevels(levels map[bookmodel.Price]bookmodel.Quantity, n int, descending bool) []bookmodel.PriceLevelView {
	out := make([]bookmodel.PriceLevelView, 0, len(levels))
	for price, qty := range levels {
		if qty == 0 {
			continue
		}
		out = append(out, bookmodel.PriceLevelView{Price: price, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
