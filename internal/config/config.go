// Package config loads the server's runtime configuration surface:
// which instruments to simulate, at what rate, and how large each
// subscriber's buffer is.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSimulationInterval       = 100 * time.Millisecond
	DefaultOrdersPerTick            = 1
	DefaultSubscriberBufferCapacity = 1024
	DefaultListenAddress            = "0.0.0.0:8080"
)

var DefaultInstrumentSet = []string{
	"BTC_USD", "ETH_USD", "XRP_USD", "LTC_USD", "BCH_USD",
	"SOL_USD", "ADA_USD", "AVAX_USD", "DOT_USD", "DOGE_USD",
}

// Config is the full set of knobs the simulated market-data service
// reads at startup. Load starts from the defaults; fields absent from the
// YAML file keep them, while values set in the file (including zeros)
// replace them.
type Config struct {
	InstrumentSet            []string      `yaml:"instrument_set"`
	SimulationInterval       time.Duration `yaml:"simulation_interval"`
	OrdersPerTick            int           `yaml:"orders_per_tick"`
	SubscriberBufferCapacity int           `yaml:"subscriber_buffer_capacity"`
	ListenAddress            string        `yaml:"listen_address"`
}

// Default returns a Config with every field set to its default value.
func Default() Config {
	return Config{
		InstrumentSet:            append([]string(nil), DefaultInstrumentSet...),
		SimulationInterval:       DefaultSimulationInterval,
		OrdersPerTick:            DefaultOrdersPerTick,
		SubscriberBufferCapacity: DefaultSubscriberBufferCapacity,
		ListenAddress:            DefaultListenAddress,
	}
}

// Load reads a YAML config file at path, overlaying it onto the default
// configuration. A missing path is not an error: Load returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
