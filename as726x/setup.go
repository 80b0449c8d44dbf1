package as726x

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/spectral/snsctx"
)

// SetupStep identifies one stage of Configure.
type SetupStep int

const (
	StepHardwareVersion SetupStep = iota
	StepBulbCurrent
	StepBulbOff
	StepIndicatorCurrent
	StepIndicatorOff
	StepIntegrationTime
	StepGain
	StepMode
)

func (s SetupStep) String() string {
	switch s {
	case StepHardwareVersion:
		return "hardware version check"
	case StepBulbCurrent:
		return "bulb current"
	case StepBulbOff:
		return "bulb off"
	case StepIndicatorCurrent:
		return "indicator current"
	case StepIndicatorOff:
		return "indicator off"
	case StepIntegrationTime:
		return "integration time"
	case StepGain:
		return "gain"
	case StepMode:
		return "measurement mode"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Config holds the settings applied by Configure.
type Config struct {
	BulbCurrent      BulbCurrent      `yaml:"bulb_current"`
	IndicatorCurrent IndicatorCurrent `yaml:"indicator_current"`
	// IntegrationTime in 2.8ms steps, masked to 8 bits.
	IntegrationTime  int              `yaml:"integration_time"`
	Gain             Gain             `yaml:"gain"`
	Mode             Mode             `yaml:"mode"`
}

func DefaultConfig() Config {
	return Config{
		BulbCurrent:      BulbCurrent12mA5,
		IndicatorCurrent: IndicatorCurrent8mA,
		IntegrationTime:  50,
		Gain:             Gain64x,
		Mode:             ModeOneShot,
	}
}

// Configure verifies the hardware version and applies cfg step by step.
// The first failing step aborts the sequence with a *SetupError; steps that
// already succeeded are not rolled back. A nil error means the sensor is ready.
func (s *AS726x) Configure(ctx context.Context, cfg Config) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	steps := []struct {
		step SetupStep
		run  func(ctx context.Context) error
	}{
		{StepHardwareVersion, s.checkHardwareVersion},
		{StepBulbCurrent, func(ctx context.Context) error {
			return s.setField(ctx, FieldBulbCurrent, byte(cfg.BulbCurrent)&fields[FieldBulbCurrent].Width)
		}},
		{StepBulbOff, func(ctx context.Context) error {
			return s.setField(ctx, FieldBulbEnable, 0)
		}},
		{StepIndicatorCurrent, func(ctx context.Context) error {
			return s.setField(ctx, FieldIndicatorCurrent, byte(cfg.IndicatorCurrent)&fields[FieldIndicatorCurrent].Width)
		}},
		{StepIndicatorOff, func(ctx context.Context) error {
			return s.setField(ctx, FieldIndicatorEnable, 0)
		}},
		{StepIntegrationTime, func(ctx context.Context) error {
			return s.writeVirtual(ctx, RegIntegrationTime, byte(cfg.IntegrationTime&0xFF))
		}},
		{StepGain, func(ctx context.Context) error {
			return s.setField(ctx, FieldGain, byte(cfg.Gain)&fields[FieldGain].Width)
		}},
		{StepMode, func(ctx context.Context) error {
			return s.setField(ctx, FieldMode, byte(cfg.Mode)&fields[FieldMode].Width)
		}},
	}
	for _, st := range steps {
		snsctx.Logger(ctx).Info("configuring sensor", "step", st.step.String())
		err := s.runStep(ctx, st.run)
		if err != nil {
			snsctx.Logger(ctx).Error("sensor configuration failed", "step", st.step.String(), "error", err)
			return &SetupError{Step: st.step, Err: err}
		}
	}
	snsctx.Logger(ctx).Info("sensor ready",
		"bulb_current", cfg.BulbCurrent.String(),
		"indicator_current", cfg.IndicatorCurrent.String(),
		"integration_time", cfg.IntegrationTime&0xFF,
		"gain", cfg.Gain.String(),
		"mode", cfg.Mode.String())
	return nil
}

func (s *AS726x) checkHardwareVersion(ctx context.Context) error {
	v, err := s.readVirtual(ctx, RegHWVersion)
	if err != nil {
		return err
	}
	if !SupportedHardwareVersion(v) {
		return &HardwareVersionError{Version: v}
	}
	snsctx.Logger(ctx).Info("hardware version confirmed", "version", fmt.Sprintf("%#02x", v))
	return nil
}

// runStep repeats a failed step up to StepRetries times. A rejected hardware
// version and a done context are never retried.
func (s *AS726x) runStep(ctx context.Context, run func(ctx context.Context) error) error {
	var err error
	for i := s.config.StepRetries; i >= 0; i-- {
		err = run(ctx)
		if err == nil || errors.Is(err, ErrUnexpectedHardwareVersion) || ctx.Err() != nil {
			return err
		}
		if i > 0 {
			snsctx.Logger(ctx).Warn("retrying configuration step", "error", err, "left", i)
		}
	}
	return err
}
