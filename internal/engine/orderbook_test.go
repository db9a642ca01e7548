package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/engine"
)

func limit(side bookmodel.Side, price bookmodel.Price, qty bookmodel.Quantity) engine.SubmitRequest {
	return engine.SubmitRequest{Side: side, Type: bookmodel.Limit, Price: price, Quantity: qty}
}

func market(side bookmodel.Side, qty bookmodel.Quantity) engine.SubmitRequest {
	return engine.SubmitRequest{Side: side, Type: bookmodel.Market, Quantity: qty}
}

func TestSubmit_RestsNonCrossingLimitOrder(t *testing.T) {
	book := engine.New("BTC_USD")

	_, trades, updates, err := book.Submit(limit(bookmodel.Buy, 9900, 100))
	require.NoError(t, err)
	assert.Empty(t, trades)
	require.Len(t, updates, 1)
	assert.Equal(t, bookmodel.LevelUpdate{
		Instrument: "BTC_USD", Side: bookmodel.Buy, Price: 9900, NewQuantity: 100, SequenceNumber: updates[0].SequenceNumber,
	}, updates[0])

	bid, qty, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, bookmodel.Price(9900), bid)
	assert.Equal(t, bookmodel.Quantity(100), qty)
}

func TestSubmit_MatchesAgainstBestPrice(t *testing.T) {
	book := engine.New("BTC_USD")
	_, _, _, err := book.Submit(limit(bookmodel.Sell, 10000, 50))
	require.NoError(t, err)

	_, trades, updates, err := book.Submit(limit(bookmodel.Buy, 10000, 20))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, bookmodel.Price(10000), trades[0].Price)
	assert.Equal(t, bookmodel.Quantity(20), trades[0].Quantity)

	// One coalesced update for the resting ask level, reflecting the
	// remaining aggregate quantity after the fill.
	require.Len(t, updates, 1)
	assert.Equal(t, bookmodel.Sell, updates[0].Side)
	assert.Equal(t, bookmodel.Price(10000), updates[0].Price)
	assert.Equal(t, bookmodel.Quantity(30), updates[0].NewQuantity)

	ask, qty, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, bookmodel.Price(10000), ask)
	assert.Equal(t, bookmodel.Quantity(30), qty)
}

func TestSubmit_CoalescesMultipleFillsIntoOneLevelUpdate(t *testing.T) {
	book := engine.New("BTC_USD")
	require.NoError(t, submitAll(book,
		limit(bookmodel.Sell, 10000, 10),
		limit(bookmodel.Sell, 10000, 10),
		limit(bookmodel.Sell, 10000, 10),
	))

	// This single incoming order sweeps all three resting orders at the
	// same price; only one LevelUpdate should be emitted for it even
	// though three individual fills occurred (spec's coalescing rule).
	_, trades, updates, err := book.Submit(limit(bookmodel.Buy, 10000, 25))
	require.NoError(t, err)
	assert.Len(t, trades, 3)
	require.Len(t, updates, 1)
	assert.Equal(t, bookmodel.Quantity(5), updates[0].NewQuantity)
}

func TestSubmit_SweepsMultipleLevels(t *testing.T) {
	book := engine.New("BTC_USD")
	require.NoError(t, submitAll(book,
		limit(bookmodel.Sell, 10000, 10),
		limit(bookmodel.Sell, 10100, 10),
		limit(bookmodel.Sell, 10200, 10),
	))

	_, trades, updates, err := book.Submit(limit(bookmodel.Buy, 10200, 25))
	require.NoError(t, err)
	require.Len(t, trades, 3)
	// Two levels fully consumed and removed, one partially filled.
	require.Len(t, updates, 3)

	_, _, ok := book.BestAsk()
	require.True(t, ok)
	ask, qty, _ := book.BestAsk()
	assert.Equal(t, bookmodel.Price(10200), ask)
	assert.Equal(t, bookmodel.Quantity(5), qty)
}

func TestSubmit_LimitOrderDoesNotCrossWhenPriceMisses(t *testing.T) {
	book := engine.New("BTC_USD")
	require.NoError(t, submitAll(book, limit(bookmodel.Sell, 10000, 10)))

	_, trades, _, err := book.Submit(limit(bookmodel.Buy, 9900, 10))
	require.NoError(t, err)
	assert.Empty(t, trades)

	bid, _, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, bookmodel.Price(9900), bid)
}

func TestSubmit_MarketOrderConsumesBookAndDiscardsResidual(t *testing.T) {
	book := engine.New("BTC_USD")
	require.NoError(t, submitAll(book, limit(bookmodel.Sell, 10000, 10)))

	order, trades, updates, err := book.Submit(market(bookmodel.Buy, 25))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, bookmodel.Quantity(10), trades[0].Quantity)
	require.Len(t, updates, 1)
	assert.Equal(t, bookmodel.Quantity(0), updates[0].NewQuantity)

	_, _, ok := book.BestAsk()
	assert.False(t, ok)
	assert.Equal(t, bookmodel.Market, order.Type)

	// No resting order was created from the unfilled residual.
	_, _, ok = book.BestBid()
	assert.False(t, ok)
}

func TestSubmit_TimePriorityWithinAPriceLevel(t *testing.T) {
	book := engine.New("BTC_USD")
	firstOrder, _, _, err := book.Submit(limit(bookmodel.Sell, 10000, 10))
	require.NoError(t, err)
	_, _, _, err = book.Submit(limit(bookmodel.Sell, 10000, 10))
	require.NoError(t, err)

	_, trades, _, err := book.Submit(limit(bookmodel.Buy, 10000, 5))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, firstOrder.OrderID, trades[0].SellOrderID)
}

func TestSubmit_InvalidOrderLeavesBookUntouched(t *testing.T) {
	book := engine.New("BTC_USD")
	_, trades, updates, err := book.Submit(limit(bookmodel.Buy, 10000, 0))
	assert.ErrorIs(t, err, engine.ErrInvalidOrder)
	assert.Empty(t, trades)
	assert.Empty(t, updates)

	_, _, updates2, err := book.Submit(engine.SubmitRequest{Side: bookmodel.Buy, Type: bookmodel.Limit, Price: 0, Quantity: 10})
	assert.ErrorIs(t, err, engine.ErrInvalidOrder)
	assert.Empty(t, updates2)
}

func TestSnapshot_OrdersBidsDescendingAsksAscending(t *testing.T) {
	book := engine.New("BTC_USD")
	require.NoError(t, submitAll(book,
		limit(bookmodel.Buy, 9900, 10),
		limit(bookmodel.Buy, 9800, 10),
		limit(bookmodel.Sell, 10000, 10),
		limit(bookmodel.Sell, 10100, 10),
	))

	snap := book.Snapshot()
	require.Len(t, snap.Bids, 2)
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, bookmodel.Price(9900), snap.Bids[0].Price)
	assert.Equal(t, bookmodel.Price(9800), snap.Bids[1].Price)
	assert.Equal(t, bookmodel.Price(10000), snap.Asks[0].Price)
	assert.Equal(t, bookmodel.Price(10100), snap.Asks[1].Price)
}

func TestSequenceNumbers_AreMonotonic(t *testing.T) {
	book := engine.New("BTC_USD")
	order1, _, updates1, err := book.Submit(limit(bookmodel.Buy, 9900, 10))
	require.NoError(t, err)
	order2, _, _, err := book.Submit(limit(bookmodel.Sell, 10000, 10))
	require.NoError(t, err)

	assert.Greater(t, order2.SequenceNumber, order1.SequenceNumber)
	assert.Greater(t, order2.SequenceNumber, updates1[0].SequenceNumber)
}

func submitAll(book *engine.OrderBook, reqs ...engine.SubmitRequest) error {
	for _, r := range reqs {
		if _, _, _, err := book.Submit(r); err != nil {
			return err
		}
	}
	return nil
}
