// Package as726x drives AMS AS7262 (visible) and AS7263 (NIR) six channel
// spectral sensors over I2C.
//
// The chip exposes three physical registers (status, write, read) and
// multiplexes its configuration and measurement registers behind them.
// Every virtual register access is a polled handshake on the status
// register, so the driver serialises all operations of one device.
//
// Typical usage:
//
//	s := as726x.New(spectral.NewAddressedTransport(bus, as726x.DefaultAddress))
//	if err := s.Configure(ctx, as726x.DefaultConfig()); err != nil { ... }
//	r, err := s.Measure(ctx, true)
package as726x

import (
	"sync"
	"time"

	"github.com/mklimuk/spectral"
)

// Poll bounds a busy-wait loop. Zero Limit or Timeout disables that bound.
type Poll struct {
	Interval time.Duration `yaml:"interval"`
	Limit    int           `yaml:"limit"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Opts struct {
	// Status bounds every wait on the status register.
	Status Poll
	// DataReady bounds the wait for a conversion to complete.
	DataReady   Poll
	StepRetries int
	Variant     Variant
}

type Opt func(*Opts)

func WithStatusPoll(p Poll) Opt {
	return func(o *Opts) {
		o.Status = p
	}
}

func WithPollInterval(interval time.Duration) Opt {
	return func(o *Opts) {
		o.Status.Interval = interval
		o.DataReady.Interval = interval
	}
}

func WithPollLimit(limit int) Opt {
	return func(o *Opts) {
		o.Status.Limit = limit
	}
}

func WithPollTimeout(timeout time.Duration) Opt {
	return func(o *Opts) {
		o.Status.Timeout = timeout
	}
}

func WithDataReadyPoll(p Poll) Opt {
	return func(o *Opts) {
		o.DataReady = p
	}
}

// WithStepRetries lets Configure repeat a failed step up to n more times.
func WithStepRetries(n int) Opt {
	return func(o *Opts) {
		o.StepRetries = n
	}
}

func WithVariant(v Variant) Opt {
	return func(o *Opts) {
		o.Variant = v
	}
}

func DefaultOpts() Opts {
	return Opts{
		Status: Poll{
			Interval: time.Millisecond,
			Limit:    1000,
		},
		DataReady: Poll{
			Interval: 5 * time.Millisecond,
			Timeout:  5 * time.Second,
		},
		Variant: VariantAS7262,
	}
}

// AS726x represents an AS7262/AS7263 spectral sensor. All methods are safe
// for concurrent use; they are executed one at a time.
type AS726x struct {
	mx        sync.Mutex
	config    Opts
	transport spectral.Transport
}

func New(transport spectral.Transport, opts ...Opt) *AS726x {
	config := DefaultOpts()
	for _, opt := range opts {
		opt(&config)
	}
	return &AS726x{
		config:    config,
		transport: transport,
	}
}

func (s *AS726x) Variant() Variant {
	return s.config.Variant
}
