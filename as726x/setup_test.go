package as726x

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/spectral/as726x/as726xtest"
)

func TestConfigure_Defaults(t *testing.T) {
	dev := as726xtest.New()
	dev.SetRegister(RegHWVersion, 0x3E)
	dev.SetRegister(RegLEDControl, 0b0000_1001) // bulb and indicator left on
	s := newTestSensor(dev)

	err := s.Configure(context.Background(), DefaultConfig())
	require.NoError(t, err)

	// 12.5mA bulb off, 8mA indicator off
	assert.Equal(t, byte(0b0000_0110), dev.Register(RegLEDControl))
	assert.Equal(t, byte(50), dev.Register(RegIntegrationTime))
	// gain 64x, one-shot mode
	assert.Equal(t, byte(0b0011_1100), dev.Register(RegControlSetup)&0b0011_1100)
	assert.Empty(t, dev.Violations())
}

func TestConfigure_StepOrder(t *testing.T) {
	dev := as726xtest.New()
	s := newTestSensor(dev)

	require.NoError(t, s.Configure(context.Background(), DefaultConfig()))

	var writes []byte
	for _, op := range dev.Ops() {
		if op.Kind == as726xtest.OpWriteSelect {
			writes = append(writes, op.Reg)
		}
	}
	assert.Equal(t, []byte{
		RegLEDControl,      // bulb current
		RegLEDControl,      // bulb off
		RegLEDControl,      // indicator current
		RegLEDControl,      // indicator off
		RegIntegrationTime, // integration time
		RegControlSetup,    // gain
		RegControlSetup,    // mode
	}, writes)
	first := dev.Ops()[1]
	assert.Equal(t, as726xtest.Op{Kind: as726xtest.OpReadSelect, Reg: RegHWVersion}, first)
}

func TestConfigure_UnexpectedHardwareVersion(t *testing.T) {
	dev := as726xtest.New()
	dev.SetRegister(RegHWVersion, 0x20)
	s := newTestSensor(dev, WithStepRetries(3))

	err := s.Configure(context.Background(), DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedHardwareVersion)

	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepHardwareVersion, serr.Step)
	var verr *HardwareVersionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, byte(0x20), verr.Version)

	assert.Equal(t, 0, dev.Count(as726xtest.OpWriteSelect, -1), "no register is written")
	assert.Equal(t, 1, dev.Count(as726xtest.OpReadSelect, int(RegHWVersion)), "version mismatch is not retried")
}

func TestConfigure_FailFast(t *testing.T) {
	failure := errors.New("nack")
	dev := as726xtest.New()
	dev.Fail = func(op as726xtest.Op) error {
		if op.Kind == as726xtest.OpWriteSelect && op.Reg == RegIntegrationTime {
			return failure
		}
		return nil
	}
	s := newTestSensor(dev)

	err := s.Configure(context.Background(), DefaultConfig())
	assert.ErrorIs(t, err, failure)
	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepIntegrationTime, serr.Step)
	assert.Equal(t, 0, dev.Count(as726xtest.OpWriteSelect, int(RegControlSetup)), "gain and mode are never written")
	// earlier steps are not rolled back
	assert.Equal(t, byte(0b0000_0110), dev.Register(RegLEDControl))
}

func TestConfigure_StepRetries(t *testing.T) {
	tests := []struct {
		name    string
		retries int
		failing int
		success bool
	}{
		{"no retries", 0, 1, false},
		{"enough retries", 2, 2, true},
		{"not enough retries", 1, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure := errors.New("nack")
			failed := 0
			dev := as726xtest.New()
			dev.Fail = func(op as726xtest.Op) error {
				if op.Kind == as726xtest.OpWriteSelect && op.Reg == RegIntegrationTime && failed < tt.failing {
					failed++
					return failure
				}
				return nil
			}
			s := newTestSensor(dev, WithStepRetries(tt.retries))

			err := s.Configure(context.Background(), DefaultConfig())
			if tt.success {
				assert.NoError(t, err)
				assert.Equal(t, byte(50), dev.Register(RegIntegrationTime))
				return
			}
			assert.ErrorIs(t, err, failure)
		})
	}
}

func TestConfigure_IntegrationTimeMasked(t *testing.T) {
	dev := as726xtest.New()
	s := newTestSensor(dev)
	cfg := DefaultConfig()
	cfg.IntegrationTime = 300

	require.NoError(t, s.Configure(context.Background(), cfg))
	assert.Equal(t, byte(44), dev.Register(RegIntegrationTime))
}
