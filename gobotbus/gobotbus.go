// Package gobotbus carries sensor transactions over gobot I2C drivers, e.g. on
// a NanoPi NEO.
package gobotbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/spectral"
)

// Conn is the part of a gobot I2C driver used here; *i2c.GenericDriver satisfies it.
type Conn interface {
	Write(data []byte) error
	Read(data []byte) error
}

var _ Conn = (*i2c.GenericDriver)(nil)
var _ spectral.Transport = &Device{}

type Device struct {
	mx   sync.Mutex
	conn Conn
}

func NewDevice(conn Conn) *Device {
	return &Device{conn: conn}
}

func (d *Device) Transfer(ctx context.Context, w []byte, readLen int) ([]byte, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.conn.Write(w); err != nil {
		return nil, fmt.Errorf("write error: %w", err)
	}
	buf := make([]byte, readLen)
	if err := d.conn.Read(buf); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	return buf, nil
}

func (d *Device) Send(ctx context.Context, w []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.conn.Write(w); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

// NanoPi is a sensor attached to one of the I2C buses of a NanoPi NEO.
type NanoPi struct {
	*Device
	adaptor *nanopi.Adaptor
	driver  *i2c.GenericDriver
}

// OpenNanoPi connects the board's I2C bus and starts a driver for address.
// Close releases both.
func OpenNanoPi(bus int, address int) (*NanoPi, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	driver := i2c.NewGenericDriver(npi, "as726x", address, func(c i2c.Config) {
		c.SetBus(bus)
	})
	err = driver.Start()
	if err != nil {
		_ = npi.I2cBusAdaptor.Finalize()
		return nil, fmt.Errorf("driver (addr %#x) start error: %w", address, err)
	}
	return &NanoPi{
		Device:  NewDevice(driver),
		adaptor: npi,
		driver:  driver,
	}, nil
}

func (n *NanoPi) Close() error {
	return errors.Join(n.driver.Halt(), n.adaptor.I2cBusAdaptor.Finalize())
}
