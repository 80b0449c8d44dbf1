package i2c

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/spectral"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var _ spectral.I2CBus = &GenericBus{}

// GenericBus is a host I2C bus (e.g. /dev/i2c-1) opened through periph.
type GenericBus struct {
	bus i2c.BusCloser
}

// NewGenericBus initializes the host drivers and opens bus dev. An empty name
// opens the first bus available.
func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return &GenericBus{
		bus: bus,
	}, nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

// Device binds the bus to a single peripheral.
func (b *GenericBus) Device(address uint16) *Device {
	return NewDevice(b.bus, address)
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}

var _ spectral.Transport = &Device{}

// Device talks to one peripheral using combined write-then-read
// transactions (repeated start) instead of two separate ones.
type Device struct {
	d *i2c.Dev
}

func NewDevice(bus i2c.Bus, address uint16) *Device {
	return &Device{d: &i2c.Dev{Bus: bus, Addr: address}}
}

func (d *Device) Transfer(ctx context.Context, w []byte, readLen int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := make([]byte, readLen)
	if err := d.d.Tx(w, r); err != nil {
		return nil, fmt.Errorf("transfer to %#x failed: %w", d.d.Addr, err)
	}
	return r, nil
}

func (d *Device) Send(ctx context.Context, w []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("send to %#x failed: %w", d.d.Addr, err)
	}
	return nil
}

func (d *Device) String() string {
	return d.d.String()
}
