package as726x

import (
	"errors"
	"fmt"
)

var ErrProtocolTimeout = errors.New("as726x: poll timed out")
var ErrUnexpectedHardwareVersion = errors.New("as726x: unexpected hardware version")
var ErrInvalidFieldValue = errors.New("as726x: value does not fit the field")
var ErrUnknownField = errors.New("as726x: unknown field")
var ErrInvalidRegister = errors.New("as726x: virtual register address out of range")

// TransportError wraps a failed bus transaction with the protocol step it belonged to.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("as726x: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HardwareVersionError carries the rejected hardware version byte.
type HardwareVersionError struct {
	Version byte
}

func (e *HardwareVersionError) Error() string {
	return fmt.Sprintf("as726x: hardware version expected 0x3E or 0x3F, got %#02x", e.Version)
}

func (e *HardwareVersionError) Is(target error) bool {
	return target == ErrUnexpectedHardwareVersion
}

// SetupError reports the configuration step that failed; later steps were not run.
type SetupError struct {
	Step SetupStep
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("as726x: configuration failed at %s: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// MeasurementError reports the channel whose read failed together with
// the channels assembled before it.
type MeasurementError struct {
	Channel Channel
	Partial Reading
	Err     error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("as726x: measurement failed reading channel %d: %v", int(e.Channel), e.Err)
}

func (e *MeasurementError) Unwrap() error {
	return e.Err
}
