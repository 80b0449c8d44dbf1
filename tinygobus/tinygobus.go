// Package tinygobus adapts a TinyGo I2C bus (machine.I2C or any drivers.I2C)
// to the sensor transport.
package tinygobus

import (
	"context"
	"fmt"

	"tinygo.org/x/drivers"

	"github.com/mklimuk/spectral"
)

var _ spectral.Transport = &Device{}

type Device struct {
	bus  drivers.I2C
	addr uint16
}

func NewDevice(bus drivers.I2C, addr uint16) *Device {
	return &Device{bus: bus, addr: addr}
}

func (d *Device) Transfer(ctx context.Context, w []byte, readLen int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := make([]byte, readLen)
	if err := d.bus.Tx(d.addr, w, r); err != nil {
		return nil, fmt.Errorf("transfer to %#x failed: %w", d.addr, err)
	}
	return r, nil
}

func (d *Device) Send(ctx context.Context, w []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.bus.Tx(d.addr, w, nil); err != nil {
		return fmt.Errorf("send to %#x failed: %w", d.addr, err)
	}
	return nil
}
