package tinygobus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers"

	"github.com/mklimuk/spectral/as726x"
	"github.com/mklimuk/spectral/as726x/as726xtest"
)

// Compile-time check.
var _ drivers.I2C = (*fakeI2C)(nil)

// fakeI2C routes bus transactions to a simulated sensor.
type fakeI2C struct {
	addr uint16
	dev  *as726xtest.Device
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	if addr != f.addr {
		return fmt.Errorf("no device at %#x", addr)
	}
	ctx := context.Background()
	if len(r) == 0 {
		return f.dev.Send(ctx, w)
	}
	got, err := f.dev.Transfer(ctx, w, len(r))
	if err != nil {
		return err
	}
	copy(r, got)
	return nil
}

func TestDevice_Measure(t *testing.T) {
	dev := as726xtest.New()
	dev.TxBusyPolls = 1
	dev.SetReading([6]uint16{10, 20, 30, 40, 50, 60})
	bus := &fakeI2C{addr: as726x.DefaultAddress, dev: dev}
	sensor := as726x.New(NewDevice(bus, as726x.DefaultAddress), as726x.WithPollInterval(0))
	ctx := context.Background()

	require.NoError(t, sensor.Configure(ctx, as726x.DefaultConfig()))
	r, err := sensor.Measure(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, as726x.Reading{10, 20, 30, 40, 50, 60}, r)
	assert.Empty(t, dev.Violations())
}

func TestDevice_WrongAddress(t *testing.T) {
	bus := &fakeI2C{addr: as726x.DefaultAddress, dev: as726xtest.New()}
	d := NewDevice(bus, 0x10)

	_, err := d.Transfer(context.Background(), []byte{0x00}, 1)
	assert.Error(t, err)
	assert.Error(t, d.Send(context.Background(), []byte{0x01, 0x00}))
}

func TestDevice_PropagatesBusErrors(t *testing.T) {
	failure := errors.New("nack")
	dev := as726xtest.New()
	dev.Fail = func(as726xtest.Op) error { return failure }
	d := NewDevice(&fakeI2C{addr: 0x49, dev: dev}, 0x49)

	_, err := d.Transfer(context.Background(), []byte{0x00}, 1)
	assert.ErrorIs(t, err, failure)
}
