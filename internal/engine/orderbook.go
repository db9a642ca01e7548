// Package engine implements the price-time-priority limit order book:
// matching, resting, snapshotting, and the sequence-numbered mutation
// log that the fan-out layer broadcasts to subscribers.
package engine

import (
	"container/list"

	"github.com/tidwall/btree"

	"github.com/saiputravu/marketsim/internal/bookmodel"
)

// restingOrder is the FIFO-queue element for one price level. Order-id
// and sequence-number are retained purely for introspection; matching
// only cares about remaining quantity and queue position.
type restingOrder struct {
	orderID        uint64
	sequenceNumber uint64
	quantity       bookmodel.Quantity
}

// priceLevel is a FIFO queue of resting orders at one price, plus the
// cached aggregate quantity so snapshots and level updates don't have
// to walk the queue.
type priceLevel struct {
	price    bookmodel.Price
	orders   *list.List // of *restingOrder
	totalQty bookmodel.Quantity
}

func newPriceLevel(price bookmodel.Price) *priceLevel {
	return &priceLevel{price: price, orders: list.New()}
}

// OrderBook is the limit order book for a single instrument. It is not
// safe for concurrent use by itself; the registry package serializes
// all access to one OrderBook under a single per-instrument region.
type OrderBook struct {
	instrument bookmodel.InstrumentID

	bids *btree.BTreeG[*priceLevel] // best bid (highest price) first
	asks *btree.BTreeG[*priceLevel] // best ask (lowest price) first

	sequence    uint64
	nextOrderID uint64

	trades      []bookmodel.Trade
	quarantined bool
}

// New creates an empty order book for the given instrument.
func New(instrument bookmodel.InstrumentID) *OrderBook {
	return &OrderBook{
		instrument: instrument,
		bids: btree.NewBTreeG(func(a, b *priceLevel) bool {
			return a.price > b.price
		}),
		asks: btree.NewBTreeG(func(a, b *priceLevel) bool {
			return a.price < b.price
		}),
	}
}

// Instrument returns the instrument this book belongs to.
func (b *OrderBook) Instrument() bookmodel.InstrumentID { return b.instrument }

// Quarantined reports whether the book has stopped accepting orders
// after an internal invariant violation.
func (b *OrderBook) Quarantined() bool { return b.quarantined }

func (b *OrderBook) nextSeq() uint64 {
	b.sequence++
	return b.sequence
}

// SubmitRequest is the caller-supplied part of an order; OrderID and
// SequenceNumber are always assigned by the book.
type SubmitRequest struct {
	Side     bookmodel.Side
	Type     bookmodel.OrderType
	Price    bookmodel.Price // ignored for Market
	Quantity bookmodel.Quantity
}

// Submit validates and matches an incoming order against the book,
// returning the trades it produced and the coalesced level updates
// that resulted. At most one LevelUpdate is emitted per (price, side)
// touched by this call, regardless of how many individual fills
// occurred against it. A validation failure leaves the book untouched
// and emits nothing.
func (b *OrderBook) Submit(req SubmitRequest) (bookmodel.Order, []bookmodel.Trade, []bookmodel.LevelUpdate, error) {
	if b.quarantined {
		return bookmodel.Order{}, nil, nil, ErrBookQuarantined
	}
	if err := validate(req); err != nil {
		return bookmodel.Order{}, nil, nil, err
	}

	b.nextOrderID++
	order := bookmodel.Order{
		OrderID:        b.nextOrderID,
		SequenceNumber: b.nextSeq(),
		Instrument:     b.instrument,
		Side:           req.Side,
		Type:           req.Type,
		Price:          req.Price,
		Quantity:       req.Quantity,
	}

	var trades []bookmodel.Trade
	var updates []bookmodel.LevelUpdate

	opposite, ownSide := b.sidesFor(order.Side)
	remaining := order.Quantity

	// touched tracks the opposite-side levels this call matched against,
	// so we can emit one coalesced update per level instead of one per
	// fill. Multiple resting orders can be swept from the same level in
	// a single submit; subscribers should only see the post-match total.
	var touched []*priceLevel
	seen := make(map[bookmodel.Price]bool)

	for remaining > 0 {
		level, ok := opposite.MinMut()
		if !ok {
			break
		}
		if order.Type == bookmodel.Limit {
			if order.Side == bookmodel.Buy && level.price > order.Price {
				break
			}
			if order.Side == bookmodel.Sell && level.price < order.Price {
				break
			}
		}

		front := level.orders.Front()
		resting := front.Value.(*restingOrder)
		fillQty := remaining
		if resting.quantity < fillQty {
			fillQty = resting.quantity
		}

		var trade bookmodel.Trade
		if order.Side == bookmodel.Buy {
			trade = bookmodel.Trade{BuyOrderID: order.OrderID, SellOrderID: resting.orderID}
		} else {
			trade = bookmodel.Trade{BuyOrderID: resting.orderID, SellOrderID: order.OrderID}
		}
		trade.Price = level.price
		trade.Quantity = fillQty
		trade.SequenceNumber = b.nextSeq()
		trades = append(trades, trade)
		b.trades = append(b.trades, trade)

		remaining -= fillQty
		resting.quantity -= fillQty
		level.totalQty -= fillQty

		if resting.quantity == 0 {
			level.orders.Remove(front)
		}

		if !seen[level.price] {
			seen[level.price] = true
			touched = append(touched, level)
		}

		if level.orders.Len() == 0 {
			opposite.Delete(level)
		}
	}

	oppositeSide := bookmodel.Sell
	if order.Side == bookmodel.Sell {
		oppositeSide = bookmodel.Buy
	}
	for _, level := range touched {
		updates = append(updates, bookmodel.LevelUpdate{
			Instrument:     b.instrument,
			Side:           oppositeSide,
			Price:          level.price,
			NewQuantity:    level.totalQty,
			SequenceNumber: b.nextSeq(),
		})
	}

	if remaining > 0 && order.Type == bookmodel.Limit {
		level, ok := ownSide.GetMut(&priceLevel{price: order.Price})
		if !ok {
			level = newPriceLevel(order.Price)
			ownSide.Set(level)
		}
		level.orders.PushBack(&restingOrder{
			orderID:        order.OrderID,
			sequenceNumber: order.SequenceNumber,
			quantity:       remaining,
		})
		level.totalQty += remaining

		updates = append(updates, bookmodel.LevelUpdate{
			Instrument:     b.instrument,
			Side:           order.Side,
			Price:          order.Price,
			NewQuantity:    level.totalQty,
			SequenceNumber: b.nextSeq(),
		})
	}
	// Market-order residual quantity is discarded silently: no rest, no update.

	if err := b.checkInvariants(); err != nil {
		b.quarantined = true
		return order, trades, updates, err
	}

	return order, trades, updates, nil
}

func (b *OrderBook) sidesFor(side bookmodel.Side) (opposite, own *btree.BTreeG[*priceLevel]) {
	if side == bookmodel.Buy {
		return b.asks, b.bids
	}
	return b.bids, b.asks
}

func validate(req SubmitRequest) error {
	if req.Quantity == 0 {
		return ErrInvalidOrder
	}
	if req.Type == bookmodel.Limit && req.Price <= 0 {
		return ErrInvalidOrder
	}
	if req.Side != bookmodel.Buy && req.Side != bookmodel.Sell {
		return ErrInvalidOrder
	}
	if req.Type != bookmodel.Limit && req.Type != bookmodel.Market {
		return ErrInvalidOrder
	}
	return nil
}

// checkInvariants verifies the book never rests in a crossed state and
// that the best level on each side carries a positive aggregate; deeper
// levels are not inspected. A violation
// quarantines the book: further submits are rejected and existing
// subscribers are closed with an error, rather than letting a corrupt
// book keep publishing.
func (b *OrderBook) checkInvariants() error {
	bid, hasBid := b.bids.Min()
	ask, hasAsk := b.asks.Min()
	if hasBid && hasAsk && bid.price >= ask.price {
		return ErrBookQuarantined
	}
	if hasBid && bid.totalQty <= 0 {
		return ErrBookQuarantined
	}
	if hasAsk && ask.totalQty <= 0 {
		return ErrBookQuarantined
	}
	return nil
}

// BestBid returns the highest resting buy price and its aggregate
// quantity, if any bids rest on the book.
func (b *OrderBook) BestBid() (bookmodel.Price, bookmodel.Quantity, bool) {
	level, ok := b.bids.Min()
	if !ok {
		return 0, 0, false
	}
	return level.price, level.totalQty, true
}

// BestAsk returns the lowest resting sell price and its aggregate
// quantity, if any asks rest on the book.
func (b *OrderBook) BestAsk() (bookmodel.Price, bookmodel.Quantity, bool) {
	level, ok := b.asks.Min()
	if !ok {
		return 0, 0, false
	}
	return level.price, level.totalQty, true
}

// Snapshot returns the aggregated price-level view of the book at its
// current sequence number. Bids come back descending by price, asks
// ascending; empty levels never appear.
func (b *OrderBook) Snapshot() bookmodel.Snapshot {
	snap := bookmodel.Snapshot{
		Instrument:     b.instrument,
		SequenceNumber: b.sequence,
	}
	b.bids.Scan(func(level *priceLevel) bool {
		snap.Bids = append(snap.Bids, bookmodel.PriceLevelView{Price: level.price, Quantity: level.totalQty})
		return true
	})
	b.asks.Scan(func(level *priceLevel) bool {
		snap.Asks = append(snap.Asks, bookmodel.PriceLevelView{Price: level.price, Quantity: level.totalQty})
		return true
	})
	return snap
}

// Trades returns the append-only trade log recorded so far. The
// returned slice is owned by the book and must not be mutated.
func (b *OrderBook) Trades() []bookmodel.Trade { return b.trades }
