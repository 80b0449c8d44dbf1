package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/spectral"
	"github.com/mklimuk/spectral/adapter"
	"github.com/mklimuk/spectral/as726x"
	"github.com/mklimuk/spectral/as726x/as726xtest"
	"github.com/mklimuk/spectral/gobotbus"
	"github.com/mklimuk/spectral/i2c"
	"github.com/mklimuk/spectral/pkg/config"
	"github.com/mklimuk/spectral/snsctx"
)

var sensorFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Usage:   "bus adapter: mcp2221, periph, nanopi or sim",
	},
	&cli.StringFlag{
		Name:  "bus",
		Usage: "host bus name (periph) or bus number (nanopi)",
	},
	&cli.UintFlag{
		Name:  "address",
		Usage: "sensor I2C address",
	},
	&cli.StringFlag{
		Name:  "variant",
		Usage: "sensor variant: as7262 or as7263",
	},
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("bus") {
		cfg.Bus = c.String("bus")
	}
	if c.IsSet("address") {
		cfg.Address = uint16(c.Uint("address"))
	}
	if c.IsSet("variant") {
		err = cfg.Variant.UnmarshalText([]byte(c.String("variant")))
		if err != nil {
			return cfg, err
		}
	}
	return cfg, config.Validate(cfg)
}

func openTransport(cfg config.Config) (spectral.Transport, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Adapter {
	case config.AdapterMCP2221:
		a := adapter.NewMCP2221()
		return spectral.NewAddressedTransport(a, byte(cfg.Address)).WithRetryLimit(cfg.BusRetries), noop, nil
	case config.AdapterPeriph:
		bus, err := i2c.NewGenericBus(cfg.Bus)
		if err != nil {
			return nil, nil, err
		}
		return bus.Device(cfg.Address), bus.Close, nil
	case config.AdapterNanoPi:
		n := 0
		if cfg.Bus != "" {
			var err error
			n, err = strconv.Atoi(cfg.Bus)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid nanopi bus number %q: %w", cfg.Bus, err)
			}
		}
		dev, err := gobotbus.OpenNanoPi(n, int(cfg.Address))
		if err != nil {
			return nil, nil, err
		}
		return dev, dev.Close, nil
	case config.AdapterSim:
		return newSimulator(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
	}
}

// newSimulator returns a device answering like a sensor lit by a warm white source.
func newSimulator() *as726xtest.Device {
	dev := as726xtest.New()
	dev.TxBusyPolls = 1
	dev.RxDelayPolls = 1
	dev.ConversionPolls = 2
	dev.SetReading([6]uint16{812, 1490, 2210, 2045, 2530, 1876})
	return dev
}

type session struct {
	ctx    context.Context
	cfg    config.Config
	sensor *as726x.AS726x
	close  func() error
}

func openSensor(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	tr, closeFn, err := openTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not open %s adapter: %w", cfg.Adapter, err)
	}
	return &session{
		ctx:    snsctx.WithLogAttrs(snsctx.SetVerbose(c.Context, c.Bool("verbose")), "adapter", cfg.Adapter),
		cfg:    cfg,
		sensor: as726x.New(tr, cfg.Opts()...),
		close:  closeFn,
	}, nil
}
