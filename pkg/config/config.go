// Package config holds build metadata and the settings file of the spectral cli.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/spectral/as726x"
)

// Set at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const (
	AdapterMCP2221 = "mcp2221"
	AdapterPeriph  = "periph"
	AdapterNanoPi  = "nanopi"
	AdapterSim     = "sim"
)

var adapters = []string{AdapterMCP2221, AdapterPeriph, AdapterNanoPi, AdapterSim}

type Config struct {
	// Adapter is the bus the sensor is attached to.
	Adapter string         `yaml:"adapter"`
	// Bus names the host bus (periph) or is the bus number (nanopi).
	Bus     string         `yaml:"bus"`
	Address uint16         `yaml:"address"`
	Variant as726x.Variant `yaml:"variant"`

	StatusPoll    as726x.Poll `yaml:"status_poll"`
	DataReadyPoll as726x.Poll `yaml:"data_ready_poll"`
	StepRetries   int         `yaml:"step_retries"`
	// BusRetries is how many times a transaction is attempted while the adapter is busy.
	BusRetries    int         `yaml:"bus_retries"`

	Sensor as726x.Config `yaml:"sensor"`
}

func Default() Config {
	opts := as726x.DefaultOpts()
	return Config{
		Adapter:       AdapterMCP2221,
		Address:       as726x.DefaultAddress,
		Variant:       opts.Variant,
		StatusPoll:    opts.Status,
		DataReadyPoll: opts.DataReady,
		StepRetries:   opts.StepRetries,
		BusRetries:    3,
		Sensor:        as726x.DefaultConfig(),
	}
}

// Load reads the file at path on top of the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("could not decode config file %s: %w", path, err)
	}
	return cfg, Validate(cfg)
}

// Validate checks the settings that cannot be applied to any sensor.
func Validate(cfg Config) error {
	if !slices.Contains(adapters, cfg.Adapter) {
		return fmt.Errorf("unknown adapter %q", cfg.Adapter)
	}
	if cfg.Address == 0 || cfg.Address > 0x7F {
		return fmt.Errorf("address %#x is not a 7-bit I2C address", cfg.Address)
	}
	if cfg.StepRetries < 0 || cfg.BusRetries < 0 {
		return fmt.Errorf("retry counts must not be negative")
	}
	return nil
}

// Opts converts the file settings into driver options.
func (c Config) Opts() []as726x.Opt {
	return []as726x.Opt{
		as726x.WithStatusPoll(c.StatusPoll),
		as726x.WithDataReadyPoll(c.DataReadyPoll),
		as726x.WithStepRetries(c.StepRetries),
		as726x.WithVariant(c.Variant),
	}
}

// Write stores cfg as YAML.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
