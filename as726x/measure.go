package as726x

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mklimuk/spectral/snsctx"
)

// Variant selects the channel set of the chip.
type Variant int

const (
	// VariantAS7262 is the visible light sensor.
	VariantAS7262 Variant = iota
	// VariantAS7263 is the near infrared sensor.
	VariantAS7263
)

func (v Variant) String() string {
	switch v {
	case VariantAS7262:
		return "as7262"
	case VariantAS7263:
		return "as7263"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

func (v Variant) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Variant) UnmarshalText(text []byte) error {
	switch string(text) {
	case "as7262", "AS7262", "":
		*v = VariantAS7262
	case "as7263", "AS7263":
		*v = VariantAS7263
	default:
		return fmt.Errorf("unknown sensor variant %q", string(text))
	}
	return nil
}

var channelLabels = map[Variant][ChannelCount]string{
	VariantAS7262: {"violet 450nm", "blue 500nm", "green 550nm", "yellow 570nm", "orange 600nm", "red 650nm"},
	VariantAS7263: {"R 610nm", "S 680nm", "T 730nm", "U 760nm", "V 810nm", "W 860nm"},
}

// Label names channel c the way the variant's datasheet does.
func (v Variant) Label(c Channel) string {
	labels, ok := channelLabels[v]
	if !ok || c < 0 || c >= ChannelCount {
		return fmt.Sprintf("channel %d", int(c))
	}
	return labels[c]
}

// Channel indexes the six measurement channels in register order.
type Channel int

const ChannelCount = 6

// Register returns the address of the channel's high byte.
func (c Channel) Register() byte {
	return RegChannelData + 2*byte(c)
}

// Reading holds raw counts of all channels, indexed by Channel.
type Reading [ChannelCount]uint16

// Sample is one result of a continuous measurement.
type Sample struct {
	Reading Reading
	Time    time.Time
	Err     error
}

// Measure runs a single measurement cycle: optionally switch the bulb on, arm
// the conversion, wait for data ready and read all six channels. The bulb is
// switched off again whether or not the cycle succeeded.
//
// A failed channel read is reported as *MeasurementError carrying the channels
// read so far.
func (s *AS726x) Measure(ctx context.Context, illuminate bool) (r Reading, err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if illuminate {
		if err = s.setField(ctx, FieldBulbEnable, 1); err != nil {
			return r, fmt.Errorf("could not switch bulb on: %w", err)
		}
		defer func() {
			offErr := s.setField(context.WithoutCancel(ctx), FieldBulbEnable, 0)
			if offErr != nil {
				snsctx.Logger(ctx).Error("could not switch bulb off", "error", offErr)
				err = errors.Join(err, fmt.Errorf("could not switch bulb off: %w", offErr))
			}
		}()
	}
	// rewriting CONTROL_SETUP also rewrites the mode bits which starts a new one-shot conversion
	if err = s.setField(ctx, FieldDataReady, 0); err != nil {
		return r, fmt.Errorf("could not arm measurement: %w", err)
	}
	if err = s.awaitDataReady(ctx); err != nil {
		return r, fmt.Errorf("measurement not completed: %w", err)
	}
	r, err = s.readChannels(ctx)
	if err != nil {
		return r, err
	}
	snsctx.Logger(ctx).Debug("measurement completed", "variant", s.config.Variant.String(), "reading", r)
	return r, nil
}

// MeasureContinuously repeats Measure every interval until ctx is done.
// See Watch.
func (s *AS726x) MeasureContinuously(ctx context.Context, interval time.Duration, illuminate bool) <-chan Sample {
	return Watch(ctx, s, interval, illuminate)
}

func (s *AS726x) awaitDataReady(ctx context.Context) error {
	d := fields[FieldDataReady]
	return poll(ctx, s.config.DataReady, func() (bool, error) {
		v, err := s.readVirtual(ctx, d.Register)
		if err != nil {
			return false, err
		}
		return (v>>d.Shift)&d.Width == 1, nil
	})
}

func (s *AS726x) readChannels(ctx context.Context) (Reading, error) {
	var r Reading
	for c := Channel(0); c < ChannelCount; c++ {
		v, err := s.readChannel(ctx, c)
		if err != nil {
			return r, &MeasurementError{Channel: c, Partial: r, Err: err}
		}
		r[c] = v
	}
	return r, nil
}

func (s *AS726x) readChannel(ctx context.Context, c Channel) (uint16, error) {
	buf := make([]byte, 2)
	var err error
	for i := range buf {
		buf[i], err = s.readVirtual(ctx, c.Register()+byte(i))
		if err != nil {
			return 0, err
		}
	}
	return binary.BigEndian.Uint16(buf), nil
}

// Watch measures with sensor every interval and delivers the results until
// ctx is done; the channel is closed afterwards. A cycle that has started
// always runs to completion so the device is never left mid handshake;
// cancellation is only observed between cycles. Failed cycles are delivered
// with Err set and do not stop the loop. A non-positive interval runs cycles
// back to back.
func Watch(ctx context.Context, sensor Sensor, interval time.Duration, illuminate bool) <-chan Sample {
	out := make(chan Sample)
	go func() {
		defer close(out)
		var tick <-chan time.Time
		if interval > 0 {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			tick = ticker.C
		}
		for ctx.Err() == nil {
			r, err := sensor.Measure(context.WithoutCancel(ctx), illuminate)
			select {
			case out <- Sample{Reading: r, Time: time.Now(), Err: err}:
			case <-ctx.Done():
				return
			}
			if tick == nil {
				continue
			}
			select {
			case <-tick:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
