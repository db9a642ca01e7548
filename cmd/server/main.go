package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/config"
	"github.com/saiputravu/marketsim/internal/registry"
	"github.com/saiputravu/marketsim/internal/simulate"
	"github.com/saiputravu/marketsim/internal/transport"
)

const maxConcurrentSubscribers = 256

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (optional)")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	reg := registry.New(cfg.SubscriberBufferCapacity)

	t, ctx := tomb.WithContext(ctx)

	for i, id := range cfg.InstrumentSet {
		instrument := bookmodel.InstrumentID(id)
		inst := reg.GetOrCreate(instrument)
		// Each instrument's driver runs on its own goroutine, so each gets
		// its own *rand.Rand rather than sharing one across goroutines.
		rng := rand.New(rand.NewSource(int64(i) + 1))
		driver := simulate.NewDriver(inst, cfg.SimulationInterval, cfg.OrdersPerTick, rng)
		driver.Seed()
		t.Go(func() error {
			return driver.Run(ctx, t)
		})
	}

	srv := transport.NewServer(reg, maxConcurrentSubscribers)
	srv.Run(t)

	httpServer := &http.Server{Addr: cfg.ListenAddress, Handler: srv}
	t.Go(func() error {
		log.Info().Str("address", cfg.ListenAddress).Msg("market data server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	<-ctx.Done()
	log.Info().Msg("shutting down")
	httpServer.Close()
	reg.Shutdown()
	t.Kill(nil)
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
	}
}
