package spectral

import (
	"context"
	"errors"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// Transport issues single bus transactions against one peripheral.
// Transfer writes w and then reads readLen bytes back; Send only writes.
type Transport interface {
	Transfer(ctx context.Context, w []byte, readLen int) ([]byte, error)
	Send(ctx context.Context, w []byte) error
}

var _ Transport = &AddressedTransport{}

// AddressedTransport binds an address-multiplexing bus to a single peripheral address.
type AddressedTransport struct {
	bus        I2CBus
	addr       byte
	retryLimit int
}

func NewAddressedTransport(bus I2CBus, addr byte) *AddressedTransport {
	return &AddressedTransport{bus: bus, addr: addr, retryLimit: 3}
}

// WithRetryLimit sets how many times a transaction is attempted when the bus reports ErrBusBusy.
func (t *AddressedTransport) WithRetryLimit(limit int) *AddressedTransport {
	if limit < 1 {
		limit = 1
	}
	t.retryLimit = limit
	return t
}

// Transfer retries the write and the read separately so that a busy report on
// the read never repeats a write that already reached the peripheral.
func (t *AddressedTransport) Transfer(ctx context.Context, w []byte, readLen int) ([]byte, error) {
	buf := make([]byte, readLen)
	err := t.retry(ctx, func() error {
		return t.bus.WriteToAddr(ctx, t.addr, w)
	})
	if err == nil {
		err = t.retry(ctx, func() error {
			return t.bus.ReadFromAddr(ctx, t.addr, buf)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("transfer to %#x failed: %w", t.addr, err)
	}
	return buf, nil
}

func (t *AddressedTransport) Send(ctx context.Context, w []byte) error {
	err := t.retry(ctx, func() error {
		return t.bus.WriteToAddr(ctx, t.addr, w)
	})
	if err != nil {
		return fmt.Errorf("send to %#x failed: %w", t.addr, err)
	}
	return nil
}

func (t *AddressedTransport) retry(ctx context.Context, tx func() error) error {
	var err error
	for i := t.retryLimit; i > 0; i-- {
		err = tx()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrBusBusy) {
			return err
		}
		// try to release the bus
		_ = t.bus.Release(ctx)
	}
	return fmt.Errorf("retry limit reached: %w", err)
}
