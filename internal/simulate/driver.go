// Package simulate generates synthetic order flow against a registry's
// instruments on a fixed tick, seeding each book's initial depth on
// first creation. The generation policy biases toward realistic flow:
// a mix of trade-through, inside-spread, and outside-spread prices, and
// a mostly-limit, occasionally-market order type split.
package simulate

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/engine"
	"github.com/saiputravu/marketsim/internal/registry"
)

const (
	seedLevelsPerSide = 5
	seedPriceStep     = bookmodel.Price(10) // $0.10 in scaled units
	seedMinPrice      = bookmodel.Price(5000)
	seedMaxPrice      = bookmodel.Price(50000)
	seedMinQty        = 5
	seedMaxQty        = 20

	tickMinQty = 1
	tickMaxQty = 15
)

// Driver ticks synthetic orders into one instrument at a fixed interval
// until its tomb is killed.
type Driver struct {
	inst         *registry.Instrument
	interval     time.Duration
	ordersPerTick int
	rng          *rand.Rand
}

// NewDriver creates a driver for inst. rng should not be shared across
// concurrently running drivers.
func NewDriver(inst *registry.Instrument, interval time.Duration, ordersPerTick int, rng *rand.Rand) *Driver {
	return &Driver{inst: inst, interval: interval, ordersPerTick: ordersPerTick, rng: rng}
}

// Seed populates the instrument with an initial symmetric ladder of
// resting limit orders so the first subscriber never sees an empty
// book.
func (d *Driver) Seed() {
	mid := seedMinPrice + bookmodel.Price(d.rng.Int63n(int64(seedMaxPrice-seedMinPrice)))

	for i := 0; i < seedLevelsPerSide; i++ {
		price := mid - bookmodel.Price(i+1)*seedPriceStep
		if price <= 0 {
			continue
		}
		d.submit(bookmodel.Buy, bookmodel.Limit, price, randQty(d.rng, seedMinQty, seedMaxQty))
	}
	for i := 0; i < seedLevelsPerSide; i++ {
		price := mid + bookmodel.Price(i+1)*seedPriceStep
		d.submit(bookmodel.Sell, bookmodel.Limit, price, randQty(d.rng, seedMinQty, seedMaxQty))
	}
}

// Run ticks until ctx is cancelled or t is killed, submitting
// ordersPerTick synthetic orders to the instrument every interval.
func (d *Driver) Run(ctx context.Context, t *tomb.Tomb) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for i := 0; i < d.ordersPerTick; i++ {
				d.tick()
			}
		}
	}
}

// tick generates and submits one synthetic order using a biased random
// walk around the current best bid/ask: 40% trade-through the best
// price, 30% land inside the spread, 30% land outside it. Falls back to
// a flat price range when the book has no two-sided depth yet.
func (d *Driver) tick() {
	bid, _, hasBid := d.inst.BestBid()
	ask, _, hasAsk := d.inst.BestAsk()

	var price bookmodel.Price
	if hasBid && hasAsk {
		switch roll := d.rng.Float64(); {
		case roll < 0.4:
			if d.rng.Float64() < 0.5 {
				price = ask
			} else {
				price = bid
			}
		case roll < 0.7:
			spread := ask - bid
			if spread < 0 {
				spread = 0
			}
			offset := bookmodel.Price(d.rng.Int63n(int64(spread) + 1))
			if d.rng.Float64() < 0.5 {
				price = bid + offset
			} else {
				price = ask - offset
			}
		default:
			jump := bookmodel.Price(10 + d.rng.Int63n(40)) // $0.10-$0.49
			if d.rng.Float64() < 0.5 {
				price = bid - jump
			} else {
				price = ask + jump
			}
		}
		if price <= 0 {
			price = 1
		}
	} else {
		price = seedMinPrice + bookmodel.Price(d.rng.Int63n(int64(seedMaxPrice-seedMinPrice)))
	}

	side := bookmodel.Buy
	if d.rng.Float64() < 0.5 {
		side = bookmodel.Sell
	}
	orderType := bookmodel.Limit
	if d.rng.Float64() >= 0.8 {
		orderType = bookmodel.Market
	}

	d.submit(side, orderType, price, randQty(d.rng, tickMinQty, tickMaxQty))
}

func (d *Driver) submit(side bookmodel.Side, orderType bookmodel.OrderType, price bookmodel.Price, qty bookmodel.Quantity) {
	_, _, err := d.inst.Submit(engine.SubmitRequest{
		Side:     side,
		Type:     orderType,
		Price:    price,
		Quantity: qty,
	})
	if err != nil {
		log.Error().
			Str("instrument", string(d.inst.ID())).
			Err(err).
			Msg("simulated order rejected")
	}
}

func randQty(rng *rand.Rand, min, max int) bookmodel.Quantity {
	return bookmodel.Quantity(min + rng.Intn(max-min+1))
}
