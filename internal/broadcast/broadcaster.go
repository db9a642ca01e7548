// Package broadcast is the fan-out bridge between one instrument's
// order book and its dynamic set of subscribers: bounded per-subscriber
// buffering, drop-newest backpressure, and a snapshot/attach boundary
// that guarantees no subscriber ever sees an update it has already been
// given by its own snapshot.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/saiputravu/marketsim/internal/bookmodel"
)

// DefaultCapacity is the default bounded buffer size per subscriber.
const DefaultCapacity = 1024

// Handle is a subscriber's registration with a Broadcaster. Updates are
// pulled from it in FIFO order via Next.
type Handle struct {
	id       string
	ch       chan bookmodel.LevelUpdate
	dropped  atomic.Bool
	drops    atomic.Uint64
	closeErr atomic.Pointer[error]
}

// ID returns the handle's unique subscriber identifier.
func (h *Handle) ID() string { return h.id }

// Dropped reports whether this subscriber has ever had an update
// dropped for being too slow; the session can use this to decide
// whether to resynchronize.
func (h *Handle) Dropped() bool { return h.dropped.Load() }

// DropCount returns the number of updates dropped for this subscriber.
func (h *Handle) DropCount() uint64 { return h.drops.Load() }

// Next blocks until an update is available, the handle is detached, the
// book is quarantined, or ctx is cancelled. ok is false once no further
// updates will ever arrive.
func (h *Handle) Next(ctx context.Context) (bookmodel.LevelUpdate, bool) {
	select {
	case u, open := <-h.ch:
		return u, open
	case <-ctx.Done():
		return bookmodel.LevelUpdate{}, false
	}
}

// Err returns the reason the handle's stream ended, if the book was
// quarantined rather than the subscriber simply detaching.
func (h *Handle) Err() error {
	if p := h.closeErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Broadcaster is the registry of subscriber queues for one instrument.
type Broadcaster struct {
	mu       sync.Mutex
	subs     map[string]*Handle
	capacity int
}

// New creates a Broadcaster whose per-subscriber buffers hold capacity
// updates before drop-newest kicks in.
func New(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Broadcaster{
		subs:     make(map[string]*Handle),
		capacity: capacity,
	}
}

// Attach registers a new subscriber and returns its handle. Callers are
// expected to take the owning book's snapshot and call Attach for the
// same mutation while holding the book's per-instrument region, so the
// handle's first delivered update is guaranteed to have a sequence
// number greater than the snapshot's.
func (b *Broadcaster) Attach() *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := &Handle{
		id: uuid.NewString(),
		ch: make(chan bookmodel.LevelUpdate, b.capacity),
	}
	b.subs[h.id] = h
	return h
}

// Detach removes a subscriber. Any buffered, undelivered updates are
// discarded along with it.
func (b *Broadcaster) Detach(h *Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[h.id]; !ok {
		return
	}
	delete(b.subs, h.id)
	close(h.ch)
}

// Publish delivers an update to every currently attached subscriber.
// It never blocks: a subscriber whose buffer is full has this update
// dropped for it alone, and its drop flag is set for the session to
// observe. Other subscribers are unaffected.
func (b *Broadcaster) Publish(u bookmodel.LevelUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, h := range b.subs {
		select {
		case h.ch <- u:
		default:
			h.dropped.Store(true)
			h.drops.Add(1)
			log.Warn().
				Str("subscriber", h.id).
				Str("instrument", string(u.Instrument)).
				Uint64("sequenceNumber", u.SequenceNumber).
				Msg("subscriber buffer full, dropping update")
		}
	}
}

// CloseAll force-closes every subscriber's stream with err, used when
// the owning book is quarantined after an invariant violation.
func (b *Broadcaster) CloseAll(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, h := range b.subs {
		h.closeErr.Store(&err)
		close(h.ch)
		delete(b.subs, id)
	}
}

// SubscriberCount returns the number of currently attached subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
