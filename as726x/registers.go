package as726x

import (
	"fmt"
	"slices"
)

// DefaultAddress is the fixed 7-bit I2C address of AS7262/AS7263.
const DefaultAddress = 0x49

// Physical registers
const (
	regStatus byte = 0x00
	regWrite  byte = 0x01
	regRead   byte = 0x02
)

// Status register bits
const (
	statusRxValid byte = 0x01 // a result byte waits in the read register
	statusTxValid byte = 0x02 // the write register is still occupied
)

// writeFlag marks a virtual address select as a write.
const writeFlag byte = 0x80

// Virtual registers
const (
	RegHWVersion       byte = 0x01
	RegControlSetup    byte = 0x04
	RegIntegrationTime byte = 0x05
	RegLEDControl      byte = 0x07
	// RegChannelData is the high byte of the first channel; each channel
	// occupies two registers, high byte first.
	RegChannelData byte = 0x08
)

// Accepted values of the hardware version register.
var hwVersions = []byte{0x3E, 0x3F}

// SupportedHardwareVersion reports whether v is a HW_VERSION value of an AS7262 or AS7263.
func SupportedHardwareVersion(v byte) bool {
	return slices.Contains(hwVersions, v)
}

// Field names a bit range within a virtual register.
type Field int

const (
	FieldIndicatorEnable Field = iota
	FieldIndicatorCurrent
	FieldBulbEnable
	FieldBulbCurrent
	FieldDataReady
	FieldMode
	FieldGain
)

func (f Field) String() string {
	switch f {
	case FieldIndicatorEnable:
		return "indicator-enable"
	case FieldIndicatorCurrent:
		return "indicator-current"
	case FieldBulbEnable:
		return "bulb-enable"
	case FieldBulbCurrent:
		return "bulb-current"
	case FieldDataReady:
		return "data-ready"
	case FieldMode:
		return "mode"
	case FieldGain:
		return "gain"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// FieldDescriptor locates a field: Width is the unshifted value mask.
type FieldDescriptor struct {
	Register byte
	Width    byte
	Shift    uint
}

// ClearMask keeps every bit of the register except the field.
func (d FieldDescriptor) ClearMask() byte {
	return ^(d.Width << d.Shift)
}

// LED_CONTROL: bit 0 indicator on, bits 2:1 indicator current, bit 3 bulb on, bits 5:4 bulb current.
// CONTROL_SETUP: bit 1 data ready, bits 3:2 mode (bank), bits 5:4 gain.
var fields = map[Field]FieldDescriptor{
	FieldIndicatorEnable:  {Register: RegLEDControl, Width: 0b1, Shift: 0},
	FieldIndicatorCurrent: {Register: RegLEDControl, Width: 0b11, Shift: 1},
	FieldBulbEnable:       {Register: RegLEDControl, Width: 0b1, Shift: 3},
	FieldBulbCurrent:      {Register: RegLEDControl, Width: 0b11, Shift: 4},
	FieldDataReady:        {Register: RegControlSetup, Width: 0b1, Shift: 1},
	FieldMode:             {Register: RegControlSetup, Width: 0b11, Shift: 2},
	FieldGain:             {Register: RegControlSetup, Width: 0b11, Shift: 4},
}

// Describe returns the location of a field.
func Describe(f Field) (FieldDescriptor, bool) {
	d, ok := fields[f]
	return d, ok
}

type BulbCurrent byte

const (
	BulbCurrent12mA5 BulbCurrent = 0b00
	BulbCurrent25mA  BulbCurrent = 0b01
	BulbCurrent50mA  BulbCurrent = 0b10
	BulbCurrent100mA BulbCurrent = 0b11
)

func (c BulbCurrent) String() string {
	switch c {
	case BulbCurrent12mA5:
		return "12.5mA"
	case BulbCurrent25mA:
		return "25mA"
	case BulbCurrent50mA:
		return "50mA"
	case BulbCurrent100mA:
		return "100mA"
	default:
		return fmt.Sprintf("bulb-current(%d)", byte(c))
	}
}

type IndicatorCurrent byte

const (
	IndicatorCurrent1mA IndicatorCurrent = 0b00
	IndicatorCurrent2mA IndicatorCurrent = 0b01
	IndicatorCurrent4mA IndicatorCurrent = 0b10
	IndicatorCurrent8mA IndicatorCurrent = 0b11
)

func (c IndicatorCurrent) String() string {
	switch c {
	case IndicatorCurrent1mA:
		return "1mA"
	case IndicatorCurrent2mA:
		return "2mA"
	case IndicatorCurrent4mA:
		return "4mA"
	case IndicatorCurrent8mA:
		return "8mA"
	default:
		return fmt.Sprintf("indicator-current(%d)", byte(c))
	}
}

type Gain byte

const (
	Gain1x  Gain = 0b00
	Gain3x7 Gain = 0b01
	Gain16x Gain = 0b10
	Gain64x Gain = 0b11
)

func (g Gain) String() string {
	switch g {
	case Gain1x:
		return "1x"
	case Gain3x7:
		return "3.7x"
	case Gain16x:
		return "16x"
	case Gain64x:
		return "64x"
	default:
		return fmt.Sprintf("gain(%d)", byte(g))
	}
}

// Mode selects the device side measurement cadence (BANK bits).
type Mode byte

const (
	// ModeFourChannelsLow continuously converts the first four channels.
	ModeFourChannelsLow Mode = 0b00
	// ModeFourChannelsHigh continuously converts the last four channels.
	ModeFourChannelsHigh Mode = 0b01
	// ModeContinuous continuously converts all six channels.
	ModeContinuous Mode = 0b10
	// ModeOneShot converts all six channels once per trigger.
	ModeOneShot Mode = 0b11
)

func (m Mode) String() string {
	switch m {
	case ModeFourChannelsLow:
		return "four-channels-low"
	case ModeFourChannelsHigh:
		return "four-channels-high"
	case ModeContinuous:
		return "continuous"
	case ModeOneShot:
		return "one-shot"
	default:
		return fmt.Sprintf("mode(%d)", byte(m))
	}
}

func (c BulbCurrent) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *BulbCurrent) UnmarshalText(text []byte) error {
	v, err := parseLevel(string(text), BulbCurrent12mA5, BulbCurrent25mA, BulbCurrent50mA, BulbCurrent100mA)
	if err != nil {
		return fmt.Errorf("invalid bulb current: %w", err)
	}
	*c = v
	return nil
}

func (c IndicatorCurrent) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *IndicatorCurrent) UnmarshalText(text []byte) error {
	v, err := parseLevel(string(text), IndicatorCurrent1mA, IndicatorCurrent2mA, IndicatorCurrent4mA, IndicatorCurrent8mA)
	if err != nil {
		return fmt.Errorf("invalid indicator current: %w", err)
	}
	*c = v
	return nil
}

func (g Gain) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *Gain) UnmarshalText(text []byte) error {
	v, err := parseLevel(string(text), Gain1x, Gain3x7, Gain16x, Gain64x)
	if err != nil {
		return fmt.Errorf("invalid gain: %w", err)
	}
	*g = v
	return nil
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := parseLevel(string(text), ModeFourChannelsLow, ModeFourChannelsHigh, ModeContinuous, ModeOneShot)
	if err != nil {
		return fmt.Errorf("invalid mode: %w", err)
	}
	*m = v
	return nil
}

// parseLevel accepts either the String form of one of levels or its raw field value.
func parseLevel[T interface {
	~byte
	fmt.Stringer
}](text string, levels ...T) (T, error) {
	for _, l := range levels {
		if text == l.String() || text == fmt.Sprint(byte(l)) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", text)
}
