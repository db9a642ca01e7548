// Package bookmodel holds the plain value types shared by the matching
// engine, the fan-out layer, and the client-side replica: instruments,
// scaled-integer prices, orders and trades.
package bookmodel

import "fmt"

// InstrumentID is an opaque short symbol such as "BTC_USD". Equality is
// plain byte-equality (Go string comparison already gives us that).
type InstrumentID string

// Price is a fixed-point quantity scaled by 100 (two fractional digits),
// so $100.25 is represented as Price(10025). Scaling to an integer avoids
// float comparison hazards in the book; prices are always strictly
// positive for LIMIT orders.
type Price int64

// Scale is the fixed-point scale factor applied to Price.
const Scale = 100

// Float64 returns the human-readable decimal value of a price.
func (p Price) Float64() float64 {
	return float64(p) / Scale
}

func (p Price) String() string {
	return fmt.Sprintf("%.2f", p.Float64())
}

// Quantity is a non-negative order size. Zero is only ever carried on a
// LevelUpdate to signal level removal; a resting order's quantity is
// always > 0.
type Quantity uint64

// Side distinguishes buy and sell orders.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// OrderType distinguishes limit and market orders.
type OrderType uint8

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Limit {
		return "LIMIT"
	}
	return "MARKET"
}

// Order is a single inbound instruction to the matching engine. OrderID
// and SequenceNumber are both assigned by the engine at submission time;
// callers never set them.
type Order struct {
	OrderID        uint64
	SequenceNumber uint64
	Instrument     InstrumentID
	Side           Side
	Type           OrderType
	Price          Price // ignored for Market orders
	Quantity       Quantity
}

// Trade records one match between a taker and a resting maker order.
// Trades are append-only and retained for the life of the book.
type Trade struct {
	BuyOrderID     uint64
	SellOrderID    uint64
	Price          Price
	Quantity       Quantity
	SequenceNumber uint64
}

// LevelUpdate is the externally visible mutation emitted whenever a
// price level's aggregate resting quantity changes. NewQuantity == 0
// means the level has been removed.
type LevelUpdate struct {
	Instrument     InstrumentID
	Side           Side
	Price          Price
	NewQuantity    Quantity
	SequenceNumber uint64
}

// PriceLevelView is the aggregated (price, quantity) pair exposed in a
// snapshot, independent of how many discrete orders make it up.
type PriceLevelView struct {
	Price    Price
	Quantity Quantity
}

// Snapshot is the aggregate price-level view of a book at a specific
// sequence number. Bids are ordered descending by price, asks ascending;
// zero-quantity levels are never included.
type Snapshot struct {
	Instrument     InstrumentID
	Bids           []PriceLevelView
	Asks           []PriceLevelView
	SequenceNumber uint64
}
