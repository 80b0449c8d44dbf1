package as726x

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/spectral/snsctx"
)

// ReadRegister reads a virtual register.
func (s *AS726x) ReadRegister(ctx context.Context, reg byte) (byte, error) {
	if reg&writeFlag != 0 {
		return 0, fmt.Errorf("%w: %#02x", ErrInvalidRegister, reg)
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.readVirtual(ctx, reg)
}

// WriteRegister writes a virtual register.
func (s *AS726x) WriteRegister(ctx context.Context, reg byte, value byte) error {
	if reg&writeFlag != 0 {
		return fmt.Errorf("%w: %#02x", ErrInvalidRegister, reg)
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.writeVirtual(ctx, reg, value)
}

// writeVirtual selects reg for writing and hands over the value, waiting for
// the device to consume the write register before each step. Cancellation is
// only observed until the address select has been sent.
func (s *AS726x) writeVirtual(ctx context.Context, reg byte, value byte) error {
	if _, err := s.awaitStatus(ctx, statusTxValid, false); err != nil {
		return fmt.Errorf("write %#02x: %w", reg, err)
	}
	if err := s.send(ctx, "write address select", regWrite, writeFlag|reg); err != nil {
		return fmt.Errorf("write %#02x: %w", reg, err)
	}
	// the device now treats the next byte as data for reg, so the handshake
	// completes even if ctx is cancelled; the status poll bounds still apply
	ctx = context.WithoutCancel(ctx)
	if _, err := s.awaitStatus(ctx, statusTxValid, false); err != nil {
		return fmt.Errorf("write %#02x: %w", reg, err)
	}
	if err := s.send(ctx, "data write", regWrite, value); err != nil {
		return fmt.Errorf("write %#02x: %w", reg, err)
	}
	snsctx.Logger(ctx).Debug("virtual register write", "reg", fmt.Sprintf("%#02x", reg), "value", fmt.Sprintf("%#02x", value))
	return nil
}

// readVirtual drains a stale result if there is one, selects reg for reading
// and waits for the device to publish the value in the read register.
func (s *AS726x) readVirtual(ctx context.Context, reg byte) (byte, error) {
	status, err := s.readStatus(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %#02x: %w", reg, err)
	}
	if status&statusRxValid != 0 {
		// single byte result buffer, it has to be emptied first
		if _, err = s.transfer(ctx, "stale byte discard", regRead); err != nil {
			return 0, fmt.Errorf("read %#02x: %w", reg, err)
		}
		snsctx.Logger(ctx).Debug("discarded stale read byte", "reg", fmt.Sprintf("%#02x", reg))
		// status is unknown after the discard
		status = statusTxValid
	}
	if status&statusTxValid != 0 {
		if _, err = s.awaitStatus(ctx, statusTxValid, false); err != nil {
			return 0, fmt.Errorf("read %#02x: %w", reg, err)
		}
	}
	if err = s.send(ctx, "read address select", regWrite, reg); err != nil {
		return 0, fmt.Errorf("read %#02x: %w", reg, err)
	}
	if _, err = s.awaitStatus(ctx, statusRxValid, true); err != nil {
		return 0, fmt.Errorf("read %#02x: %w", reg, err)
	}
	value, err := s.transfer(ctx, "data read", regRead)
	if err != nil {
		return 0, fmt.Errorf("read %#02x: %w", reg, err)
	}
	snsctx.Logger(ctx).Debug("virtual register read", "reg", fmt.Sprintf("%#02x", reg), "value", fmt.Sprintf("%#02x", value))
	return value, nil
}

// awaitStatus polls the status register until the mask bits are set (set == true)
// or clear, and returns the last status observed.
func (s *AS726x) awaitStatus(ctx context.Context, mask byte, set bool) (byte, error) {
	var status byte
	err := poll(ctx, s.config.Status, func() (bool, error) {
		var err error
		status, err = s.readStatus(ctx)
		if err != nil {
			return false, err
		}
		return (status&mask != 0) == set, nil
	})
	if err != nil {
		return status, fmt.Errorf("waiting for status %#02x (set=%t): %w", mask, set, err)
	}
	return status, nil
}

func (s *AS726x) readStatus(ctx context.Context) (byte, error) {
	return s.transfer(ctx, "status read", regStatus)
}

func (s *AS726x) transfer(ctx context.Context, op string, reg byte) (byte, error) {
	res, err := s.transport.Transfer(ctx, []byte{reg}, 1)
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	if len(res) != 1 {
		return 0, &TransportError{Op: op, Err: fmt.Errorf("expected 1 byte, got %d", len(res))}
	}
	return res[0], nil
}

func (s *AS726x) send(ctx context.Context, op string, reg byte, value byte) error {
	err := s.transport.Send(ctx, []byte{reg, value})
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return nil
}

// poll calls done until it reports true, an error occurs or the bounds of p are exceeded.
// It sleeps p.Interval between attempts and gives up as soon as ctx is done.
func poll(ctx context.Context, p Poll, done func() (bool, error)) error {
	var deadline time.Time
	if p.Timeout > 0 {
		deadline = time.Now().Add(p.Timeout)
	}
	for attempt := 1; ; attempt++ {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if p.Limit > 0 && attempt >= p.Limit {
			return fmt.Errorf("%w after %d attempts", ErrProtocolTimeout, attempt)
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrProtocolTimeout, p.Timeout)
		}
		if err = sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
