// Package registry wires one OrderBook and one Broadcaster together per
// instrument and serializes the region that makes a snapshot consistent
// with the update stream that follows it: a submit's matching and its
// resulting publish happen atomically with respect to any concurrent
// attach's snapshot-and-register step.
package registry

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/broadcast"
	"github.com/saiputravu/marketsim/internal/engine"
)

// Instrument owns one instrument's book and broadcaster and is the only
// thing that mutates either. All exported methods are safe for
// concurrent use.
type Instrument struct {
	id bookmodel.InstrumentID

	mu   sync.Mutex
	book *engine.OrderBook
	bc   *broadcast.Broadcaster
}

func newInstrument(id bookmodel.InstrumentID, bufferCapacity int) *Instrument {
	return &Instrument{
		id:   id,
		book: engine.New(id),
		bc:   broadcast.New(bufferCapacity),
	}
}

// ID returns the instrument identifier.
func (i *Instrument) ID() bookmodel.InstrumentID { return i.id }

// Submit validates and matches an order, publishing any resulting level
// updates to all currently attached subscribers before returning.
func (i *Instrument) Submit(req engine.SubmitRequest) (bookmodel.Order, []bookmodel.Trade, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	order, trades, updates, err := i.book.Submit(req)
	if err == engine.ErrBookQuarantined && i.book.Quarantined() {
		log.Error().
			Str("instrument", string(i.id)).
			Msg("order book quarantined after invariant violation")
		i.bc.CloseAll(err)
		return order, trades, err
	}
	if err != nil {
		return order, trades, err
	}
	for _, u := range updates {
		i.bc.Publish(u)
	}
	return order, trades, nil
}

// Attach atomically captures the book's current snapshot and registers
// a new subscriber whose first update is guaranteed to follow it.
func (i *Instrument) Attach() (bookmodel.Snapshot, *broadcast.Handle) {
	i.mu.Lock()
	defer i.mu.Unlock()

	snap := i.book.Snapshot()
	h := i.bc.Attach()
	return snap, h
}

// Detach removes a subscriber registered via Attach.
func (i *Instrument) Detach(h *broadcast.Handle) {
	i.bc.Detach(h)
}

// BestBid returns the top of the bid side.
func (i *Instrument) BestBid() (bookmodel.Price, bookmodel.Quantity, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.book.BestBid()
}

// BestAsk returns the top of the ask side.
func (i *Instrument) BestAsk() (bookmodel.Price, bookmodel.Quantity, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.book.BestAsk()
}

// SubscriberCount reports how many subscribers are currently attached.
func (i *Instrument) SubscriberCount() int { return i.bc.SubscriberCount() }

// Registry maps instrument identifiers to their (book, broadcaster)
// pair and owns their lifecycle.
type Registry struct {
	mu             sync.Mutex
	instruments    map[bookmodel.InstrumentID]*Instrument
	bufferCapacity int
}

// New creates an empty registry. bufferCapacity is the per-subscriber
// buffer size handed to every Broadcaster created through it.
func New(bufferCapacity int) *Registry {
	return &Registry{
		instruments:    make(map[bookmodel.InstrumentID]*Instrument),
		bufferCapacity: bufferCapacity,
	}
}

// GetOrCreate returns the instrument's (book, broadcaster) pair,
// creating it on first use. Creation is idempotent.
func (r *Registry) GetOrCreate(id bookmodel.InstrumentID) *Instrument {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instruments[id]; ok {
		return inst
	}
	inst := newInstrument(id, r.bufferCapacity)
	r.instruments[id] = inst
	log.Info().Str("instrument", string(id)).Msg("instrument book created")
	return inst
}

// Get returns the instrument if it already exists, without creating it.
func (r *Registry) Get(id bookmodel.InstrumentID) (*Instrument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instruments[id]
	return inst, ok
}

// ListInstruments returns every instrument identifier currently known
// to the registry.
func (r *Registry) ListInstruments() []bookmodel.InstrumentID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]bookmodel.InstrumentID, 0, len(r.instruments))
	for id := range r.instruments {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown closes every instrument's subscriber streams. It does not
// stop in-flight SimulationDrivers; callers should cancel their context
// first.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, inst := range r.instruments {
		inst.bc.CloseAll(nil)
		log.Info().Str("instrument", string(id)).Msg("instrument shut down")
	}
}
