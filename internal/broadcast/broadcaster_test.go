package broadcast_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/broadcast"
)

func TestAttachDetach_TracksSubscriberCount(t *testing.T) {
	b := broadcast.New(4)
	assert.Equal(t, 0, b.SubscriberCount())

	h := b.Attach()
	assert.Equal(t, 1, b.SubscriberCount())

	b.Detach(h)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestPublish_DeliversToAllSubscribers(t *testing.T) {
	b := broadcast.New(4)
	h1 := b.Attach()
	h2 := b.Attach()

	update := bookmodel.LevelUpdate{Instrument: "BTC_USD", Price: 100, NewQuantity: 5, SequenceNumber: 1}
	b.Publish(update)

	got1, ok := h1.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, update, got1)

	got2, ok := h2.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, update, got2)
}

func TestPublish_DropsNewestWhenSubscriberBufferFull(t *testing.T) {
	b := broadcast.New(1)
	h := b.Attach()

	first := bookmodel.LevelUpdate{SequenceNumber: 1}
	second := bookmodel.LevelUpdate{SequenceNumber: 2}
	b.Publish(first)
	b.Publish(second) // buffer already has `first`, so `second` is dropped

	assert.True(t, h.Dropped())
	assert.Equal(t, uint64(1), h.DropCount())

	got, ok := h.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, first, got)
}

func TestDetach_ClosesStreamForThatSubscriberOnly(t *testing.T) {
	b := broadcast.New(4)
	h1 := b.Attach()
	h2 := b.Attach()

	b.Detach(h1)
	_, ok := h1.Next(context.Background())
	assert.False(t, ok)

	b.Publish(bookmodel.LevelUpdate{SequenceNumber: 1})
	got, ok := h2.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, uint64(1), got.SequenceNumber)
}

func TestCloseAll_ClosesEverySubscriberWithError(t *testing.T) {
	b := broadcast.New(4)
	h1 := b.Attach()
	h2 := b.Attach()

	closeErr := assert.AnError
	b.CloseAll(closeErr)

	_, ok := h1.Next(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, h1.Err(), closeErr)

	_, ok = h2.Next(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestNext_RespectsContextCancellation(t *testing.T) {
	b := broadcast.New(4)
	h := b.Attach()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := h.Next(ctx)
	assert.False(t, ok)
}
