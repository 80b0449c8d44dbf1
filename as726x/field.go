package as726x

import (
	"context"
	"fmt"
)

// SetField overwrites one field, keeping the other bits of its register.
func (s *AS726x) SetField(ctx context.Context, f Field, value byte) error {
	d, ok := fields[f]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	if value&^d.Width != 0 {
		return fmt.Errorf("%w: %s accepts at most %d, got %d", ErrInvalidFieldValue, f, d.Width, value)
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	err := s.setBits(ctx, d.Register, d.ClearMask(), value, d.Shift)
	if err != nil {
		return fmt.Errorf("could not set %s: %w", f, err)
	}
	return nil
}

// Field reads back the current value of one field.
func (s *AS726x) Field(ctx context.Context, f Field) (byte, error) {
	d, ok := fields[f]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	v, err := s.readVirtual(ctx, d.Register)
	if err != nil {
		return 0, fmt.Errorf("could not read %s: %w", f, err)
	}
	return (v >> d.Shift) & d.Width, nil
}

// setBits is a read-modify-write of one virtual register. Callers hold the lock.
func (s *AS726x) setBits(ctx context.Context, reg byte, clearMask byte, value byte, shift uint) error {
	old, err := s.readVirtual(ctx, reg)
	if err != nil {
		return err
	}
	return s.writeVirtual(ctx, reg, (old&clearMask)|(value<<shift))
}

// setField is SetField for callers already holding the lock.
func (s *AS726x) setField(ctx context.Context, f Field, value byte) error {
	d := fields[f]
	err := s.setBits(ctx, d.Register, d.ClearMask(), value, d.Shift)
	if err != nil {
		return fmt.Errorf("could not set %s: %w", f, err)
	}
	return nil
}

func (s *AS726x) SetBulbCurrent(ctx context.Context, c BulbCurrent) error {
	return s.SetField(ctx, FieldBulbCurrent, byte(c))
}

func (s *AS726x) EnableBulb(ctx context.Context) error {
	return s.SetField(ctx, FieldBulbEnable, 1)
}

func (s *AS726x) DisableBulb(ctx context.Context) error {
	return s.SetField(ctx, FieldBulbEnable, 0)
}

func (s *AS726x) SetIndicatorCurrent(ctx context.Context, c IndicatorCurrent) error {
	return s.SetField(ctx, FieldIndicatorCurrent, byte(c))
}

func (s *AS726x) EnableIndicator(ctx context.Context) error {
	return s.SetField(ctx, FieldIndicatorEnable, 1)
}

func (s *AS726x) DisableIndicator(ctx context.Context) error {
	return s.SetField(ctx, FieldIndicatorEnable, 0)
}

func (s *AS726x) SetGain(ctx context.Context, g Gain) error {
	return s.SetField(ctx, FieldGain, byte(g))
}

func (s *AS726x) SetMode(ctx context.Context, m Mode) error {
	return s.SetField(ctx, FieldMode, byte(m))
}

// SetIntegrationTime writes the integration time register. The value is
// masked to 8 bits (300 becomes 44); one step is 2.8ms.
func (s *AS726x) SetIntegrationTime(ctx context.Context, t int) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	err := s.writeVirtual(ctx, RegIntegrationTime, byte(t&0xFF))
	if err != nil {
		return fmt.Errorf("could not set integration time: %w", err)
	}
	return nil
}

func (s *AS726x) HardwareVersion(ctx context.Context) (byte, error) {
	return s.ReadRegister(ctx, RegHWVersion)
}

// DataReady reports whether a completed conversion waits in the channel registers.
func (s *AS726x) DataReady(ctx context.Context) (bool, error) {
	v, err := s.Field(ctx, FieldDataReady)
	return v == 1, err
}
