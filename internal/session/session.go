// Package session implements the per-connection state machine that
// bridges a registry.Instrument's broadcast stream to a transport: it
// attaches for a consistent snapshot, forwards the stream, and detaches
// on transport error or cancellation.
package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/registry"
)

// Sender delivers messages to one subscriber's transport. It is the
// seam a concrete transport implements, keeping this package free of
// any wire framing or serialization concerns.
type Sender interface {
	SendSnapshot(bookmodel.Snapshot) error
	SendUpdate(bookmodel.LevelUpdate) error
}

// Run drives one subscription end to end: it resolves (or creates) the
// instrument's book, attaches for a snapshot, sends it, then forwards
// the subsequent update stream to sender until ctx is cancelled, the
// sender errors, or the book is quarantined.
//
// If the handle reports a drop, Run closes the session rather than
// resyncing in place, the default close-and-reconnect policy, leaving
// resynchronization to the caller's next subscribe.
func Run(ctx context.Context, reg *registry.Registry, instrument bookmodel.InstrumentID, sender Sender) error {
	inst := reg.GetOrCreate(instrument)
	snapshot, handle := inst.Attach()
	defer inst.Detach(handle)

	if err := sender.SendSnapshot(snapshot); err != nil {
		return err
	}

	for {
		update, ok := handle.Next(ctx)
		if !ok {
			if err := handle.Err(); err != nil {
				return err
			}
			return ctx.Err()
		}

		if err := sender.SendUpdate(update); err != nil {
			log.Warn().
				Str("instrument", string(instrument)).
				Str("subscriber", handle.ID()).
				Err(err).
				Msg("transport error, detaching subscriber")
			return err
		}

		if handle.Dropped() {
			log.Warn().
				Str("instrument", string(instrument)).
				Str("subscriber", handle.ID()).
				Uint64("drops", handle.DropCount()).
				Msg("subscriber observed buffer overflow, closing for resync")
			return errDropped
		}
	}
}
