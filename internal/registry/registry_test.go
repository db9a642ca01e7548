package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/engine"
	"github.com/saiputravu/marketsim/internal/registry"
)

func TestGetOrCreate_IsIdempotent(t *testing.T) {
	r := registry.New(4)
	a := r.GetOrCreate("BTC_USD")
	b := r.GetOrCreate("BTC_USD")
	assert.Same(t, a, b)
	assert.ElementsMatch(t, []bookmodel.InstrumentID{"BTC_USD"}, r.ListInstruments())
}

func TestAttach_NeverMissesAnUpdatePublishedAfterItsSnapshot(t *testing.T) {
	r := registry.New(4)
	inst := r.GetOrCreate("BTC_USD")

	_, _, err := inst.Submit(engine.SubmitRequest{
		Side: bookmodel.Sell, Type: bookmodel.Limit, Price: 10000, Quantity: 10,
	})
	require.NoError(t, err)

	snap, handle := inst.Attach()
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, bookmodel.Quantity(10), snap.Asks[0].Quantity)

	_, _, err = inst.Submit(engine.SubmitRequest{
		Side: bookmodel.Buy, Type: bookmodel.Limit, Price: 10000, Quantity: 4,
	})
	require.NoError(t, err)

	update, ok := handle.Next(context.Background())
	require.True(t, ok)
	assert.Greater(t, update.SequenceNumber, snap.SequenceNumber)
	assert.Equal(t, bookmodel.Quantity(6), update.NewQuantity)
}

func TestDetach_RemovesSubscriberButLeavesOthersAttached(t *testing.T) {
	r := registry.New(4)
	inst := r.GetOrCreate("BTC_USD")
	_, h1 := inst.Attach()
	_, h2 := inst.Attach()
	assert.Equal(t, 2, inst.SubscriberCount())

	inst.Detach(h1)
	assert.Equal(t, 1, inst.SubscriberCount())

	_, _, err := inst.Submit(engine.SubmitRequest{
		Side: bookmodel.Buy, Type: bookmodel.Limit, Price: 10000, Quantity: 5,
	})
	require.NoError(t, err)

	_, ok := h2.Next(context.Background())
	assert.True(t, ok)
}

func TestShutdown_ClosesAllSubscriberStreams(t *testing.T) {
	r := registry.New(4)
	inst := r.GetOrCreate("BTC_USD")
	_, handle := inst.Attach()

	r.Shutdown()

	_, ok := handle.Next(context.Background())
	assert.False(t, ok)
}
