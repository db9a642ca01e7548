// Package transport provides a bidirectional typed message stream over
// websockets: a JSON-encoded MarketDataResponse envelope, carrying
// either a snapshot or a level update, framed over a single connection.
package transport

import "github.com/saiputravu/marketsim/internal/bookmodel"

// subscriptionRequest is the single client-to-server message that opens
// a stream.
type subscriptionRequest struct {
	InstrumentID string `json:"instrument_id"`
}

// messageType discriminates the two kinds of MarketDataResponse.
type messageType string

const (
	messageSnapshot messageType = "snapshot"
	messageUpdate   messageType = "update"
)

// envelope is the wire form of MarketDataResponse: exactly one of
// Snapshot or Update is set.
type envelope struct {
	Type     messageType   `json:"type"`
	Snapshot *wireSnapshot `json:"snapshot,omitempty"`
	Update   *wireUpdate   `json:"update,omitempty"`
}

type wireLevel struct {
	Price    float64 `json:"price"`
	Quantity uint64  `json:"quantity"`
}

// Timestamp carries the book's sequence number, not a wall-clock value.
// Sequence numbers are the ordering ground truth here; nothing in this
// service depends on real clock time.
type wireSnapshot struct {
	InstrumentID string      `json:"instrument_id"`
	Bids         []wireLevel `json:"bids"`
	Asks         []wireLevel `json:"asks"`
	Timestamp    uint64      `json:"timestamp"`
}

type wireUpdate struct {
	InstrumentID string  `json:"instrument_id"`
	Price        float64 `json:"price"`
	Quantity     uint64  `json:"quantity"`
	Side         bool    `json:"side"` // true = BUY
	Timestamp    uint64  `json:"timestamp"`
}

func toWireSnapshot(s bookmodel.Snapshot) *wireSnapshot {
	w := &wireSnapshot{
		InstrumentID: string(s.Instrument),
		Bids:         make([]wireLevel, len(s.Bids)),
		Asks:         make([]wireLevel, len(s.Asks)),
		Timestamp:    s.SequenceNumber,
	}
	for i, lvl := range s.Bids {
		w.Bids[i] = wireLevel{Price: lvl.Price.Float64(), Quantity: uint64(lvl.Quantity)}
	}
	for i, lvl := range s.Asks {
		w.Asks[i] = wireLevel{Price: lvl.Price.Float64(), Quantity: uint64(lvl.Quantity)}
	}
	return w
}

func toWireUpdate(u bookmodel.LevelUpdate) *wireUpdate {
	return &wireUpdate{
		InstrumentID: string(u.Instrument),
		Price:        u.Price.Float64(),
		Quantity:     uint64(u.NewQuantity),
		Side:         u.Side == bookmodel.Buy,
		Timestamp:    u.SequenceNumber,
	}
}

func fromWireSnapshot(w *wireSnapshot) bookmodel.Snapshot {
	s := bookmodel.Snapshot{
		Instrument:     bookmodel.InstrumentID(w.InstrumentID),
		SequenceNumber: w.Timestamp,
	}
	for _, lvl := range w.Bids {
		s.Bids = append(s.Bids, bookmodel.PriceLevelView{
			Price:    priceFromFloat(lvl.Price),
			Quantity: bookmodel.Quantity(lvl.Quantity),
		})
	}
	for _, lvl := range w.Asks {
		s.Asks = append(s.Asks, bookmodel.PriceLevelView{
			Price:    priceFromFloat(lvl.Price),
			Quantity: bookmodel.Quantity(lvl.Quantity),
		})
	}
	return s
}

func fromWireUpdate(w *wireUpdate) bookmodel.LevelUpdate {
	side := bookmodel.Sell
	if w.Side {
		side = bookmodel.Buy
	}
	return bookmodel.LevelUpdate{
		Instrument:     bookmodel.InstrumentID(w.InstrumentID),
		Side:           side,
		Price:          priceFromFloat(w.Price),
		NewQuantity:    bookmodel.Quantity(w.Quantity),
		SequenceNumber: w.Timestamp,
	}
}

func priceFromFloat(f float64) bookmodel.Price {
	return bookmodel.Price(f*bookmodel.Scale + 0.5)
}
