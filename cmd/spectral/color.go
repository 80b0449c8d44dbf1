package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/spectral/as726x"
	"github.com/mklimuk/spectral/cmd/spectral/console"
)

var colorCmd = cli.Command{
	Name:  "color",
	Usage: "AS7262/AS7263 spectral sensor",
	Subcommands: []*cli.Command{
		&colorInitCmd,
		&colorReadCmd,
		&colorWatchCmd,
		&colorLEDCmd,
		&colorBlinkCmd,
		&colorVersionCmd,
		&colorRegisterCmd,
	},
}

var skipInitFlag = &cli.BoolFlag{
	Name:  "skip-init",
	Usage: "do not configure the sensor before measuring",
}

var bulbFlag = &cli.BoolFlag{
	Name:  "bulb",
	Usage: "illuminate the sample with the bulb during measurement",
}

var colorInitCmd = cli.Command{
	Name:  "init",
	Usage: "verify the hardware version and apply the configured settings",
	Flags: sensorFlags,
	Action: withSensor(func(c *cli.Context, s *session) error {
		err := s.sensor.Configure(s.ctx, s.cfg.Sensor)
		if err != nil {
			return console.Fail("sensor setup failed", err)
		}
		console.PInfof(console.PictoPin, "sensor ready: gain %s, mode %s, integration time %s",
			console.White(s.cfg.Sensor.Gain), console.White(s.cfg.Sensor.Mode), console.White(s.cfg.Sensor.IntegrationTime))
		return nil
	}),
}

var colorReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "take a single measurement",
	Flags:   append([]cli.Flag{bulbFlag, skipInitFlag, &cli.BoolFlag{Name: "yaml", Usage: "print the reading as yaml"}}, sensorFlags...),
	Action: withSensor(func(c *cli.Context, s *session) error {
		err := configure(c, s)
		if err != nil {
			return err
		}
		r, err := s.sensor.Measure(s.ctx, c.Bool("bulb"))
		if err != nil {
			return console.Fail("measurement failed", err)
		}
		if c.Bool("yaml") {
			return printYAML(readingMap(s.sensor.Variant(), r))
		}
		printReading(s.sensor.Variant(), r)
		return nil
	}),
}

var colorWatchCmd = cli.Command{
	Name:  "watch",
	Usage: "measure repeatedly until interrupted",
	Flags: append([]cli.Flag{
		bulbFlag,
		skipInitFlag,
		&cli.DurationFlag{
			Name:  "interval",
			Value: time.Second,
			Usage: "time between measurement starts",
		},
	}, sensorFlags...),
	Action: withSensor(func(c *cli.Context, s *session) error {
		err := configure(c, s)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		variant := s.sensor.Variant()
		for sample := range s.sensor.MeasureContinuously(ctx, c.Duration("interval"), c.Bool("bulb")) {
			if sample.Err != nil {
				console.Errorf("measurement failed: %s", console.Red(sample.Err))
				continue
			}
			console.PInfof(console.PictoRainbow, "%s", console.Cyan(sample.Time.Format(time.TimeOnly)))
			printReading(variant, sample.Reading)
		}
		return nil
	}),
}

var colorLEDCmd = cli.Command{
	Name:      "led",
	Usage:     "switch the bulb or the indicator LED",
	ArgsUsage: "bulb|indicator on|off",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "current",
			Usage: "drive current to set before switching, e.g. 25mA or 4mA",
		},
	}, sensorFlags...),
	Action: withSensor(func(c *cli.Context, s *session) error {
		if c.NArg() != 2 {
			return console.Exit(1, "usage: spectral color led bulb|indicator on|off")
		}
		led, state := c.Args().Get(0), c.Args().Get(1)
		var on bool
		switch state {
		case "on":
			on = true
		case "off":
		default:
			return console.Exit(1, "invalid state %q; expected on or off", state)
		}
		var err error
		switch led {
		case "bulb":
			err = switchBulb(c, s, on)
		case "indicator":
			err = switchIndicator(c, s, on)
		default:
			return console.Exit(1, "unknown led %q; expected bulb or indicator", led)
		}
		if err != nil {
			return console.Fail("could not switch "+led, err)
		}
		console.PInfof(console.PictoBulb, "%s %s", led, console.OnOff(on))
		return nil
	}),
}

func switchBulb(c *cli.Context, s *session, on bool) error {
	if c.IsSet("current") {
		var current as726x.BulbCurrent
		if err := current.UnmarshalText([]byte(c.String("current"))); err != nil {
			return err
		}
		if err := s.sensor.SetBulbCurrent(s.ctx, current); err != nil {
			return err
		}
	}
	if on {
		return s.sensor.EnableBulb(s.ctx)
	}
	return s.sensor.DisableBulb(s.ctx)
}

func switchIndicator(c *cli.Context, s *session, on bool) error {
	if c.IsSet("current") {
		var current as726x.IndicatorCurrent
		if err := current.UnmarshalText([]byte(c.String("current"))); err != nil {
			return err
		}
		if err := s.sensor.SetIndicatorCurrent(s.ctx, current); err != nil {
			return err
		}
	}
	if on {
		return s.sensor.EnableIndicator(s.ctx)
	}
	return s.sensor.DisableIndicator(s.ctx)
}

var colorBlinkCmd = cli.Command{
	Name:  "blink",
	Usage: "switch the bulb and the indicator on for a while",
	Flags: append([]cli.Flag{
		&cli.DurationFlag{
			Name:  "for",
			Value: time.Second,
			Usage: "how long the LEDs stay on",
		},
	}, sensorFlags...),
	Action: withSensor(func(c *cli.Context, s *session) error {
		err := blink(s, c.Duration("for"))
		if err != nil {
			return console.Fail("blink failed", err)
		}
		return nil
	}),
}

func blink(s *session, d time.Duration) (err error) {
	defer func() {
		// switch off even if switching on failed half way
		ctx := context.WithoutCancel(s.ctx)
		err = errors.Join(err, s.sensor.DisableBulb(ctx), s.sensor.DisableIndicator(ctx))
	}()
	if err = s.sensor.EnableBulb(s.ctx); err != nil {
		return err
	}
	if err = s.sensor.EnableIndicator(s.ctx); err != nil {
		return err
	}
	console.PInfof(console.PictoBulb, "bulb and indicator %s for %s", console.OnOff(true), d)
	select {
	case <-time.After(d):
	case <-s.ctx.Done():
	}
	return nil
}

var colorVersionCmd = cli.Command{
	Name:  "version",
	Usage: "read the hardware version register",
	Flags: sensorFlags,
	Action: withSensor(func(c *cli.Context, s *session) error {
		v, err := s.sensor.HardwareVersion(s.ctx)
		if err != nil {
			return console.Fail("could not read hardware version", err)
		}
		supported := console.Green("supported")
		if !as726x.SupportedHardwareVersion(v) {
			supported = console.Red("unsupported")
		}
		console.Printf("hardware version %s (%s)\n", console.White(fmt.Sprintf("%#02x", v)), supported)
		return nil
	}),
}

var colorRegisterCmd = cli.Command{
	Name:  "register",
	Usage: "raw access to virtual registers",
	Subcommands: []*cli.Command{
		&colorRegisterReadCmd,
		&colorRegisterWriteCmd,
	},
}

var colorRegisterReadCmd = cli.Command{
	Name:      "read",
	Usage:     "read a virtual register",
	ArgsUsage: "<register>",
	Flags:     sensorFlags,
	Action: withSensor(func(c *cli.Context, s *session) error {
		reg, err := parseByte(c.Args().Get(0))
		if err != nil {
			return console.Fail("invalid register", err)
		}
		v, err := s.sensor.ReadRegister(s.ctx, reg)
		if err != nil {
			return console.Fail("register read failed", err)
		}
		console.Printf("%s: %s (%s)\n", console.White(fmt.Sprintf("%#02x", reg)), console.White(fmt.Sprintf("%#02x", v)), fmt.Sprintf("%08b", v))
		return nil
	}),
}

var colorRegisterWriteCmd = cli.Command{
	Name:      "write",
	Usage:     "write a virtual register",
	ArgsUsage: "<register> <value>",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "do not ask for confirmation",
		},
	}, sensorFlags...),
	Action: withSensor(func(c *cli.Context, s *session) error {
		if c.NArg() != 2 {
			return console.Exit(1, "usage: spectral color register write <register> <value>")
		}
		reg, err := parseByte(c.Args().Get(0))
		if err != nil {
			return console.Fail("invalid register", err)
		}
		v, err := parseByte(c.Args().Get(1))
		if err != nil {
			return console.Fail("invalid value", err)
		}
		if !c.Bool("yes") {
			ok, err := console.Confirm(fmt.Sprintf("write %#02x to register %#02x?", v, reg))
			if err != nil {
				return console.Fail("prompt error", err)
			}
			if !ok {
				console.PInfof(console.PictoStop, "aborted")
				return nil
			}
		}
		err = s.sensor.WriteRegister(s.ctx, reg, v)
		if err != nil {
			return console.Fail("register write failed", err)
		}
		console.Infof("register %s set to %s", console.White(fmt.Sprintf("%#02x", reg)), console.White(fmt.Sprintf("%#02x", v)))
		return nil
	}),
}

// withSensor opens the sensor described by flags and config for the duration of the action.
func withSensor(action func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSensor(c)
		if err != nil {
			return console.Fail("sensor unavailable", err)
		}
		defer func() {
			if err := s.close(); err != nil {
				slog.Warn("could not close adapter", "error", err)
			}
		}()
		return action(c, s)
	}
}

func configure(c *cli.Context, s *session) error {
	if c.Bool("skip-init") {
		return nil
	}
	err := s.sensor.Configure(s.ctx, s.cfg.Sensor)
	if err != nil {
		return console.Fail("sensor setup failed", err)
	}
	return nil
}

func printReading(v as726x.Variant, r as726x.Reading) {
	w := tabwriter.NewWriter(console.Output(), 16, 0, 1, ' ', 0)
	for c := range as726x.Channel(as726x.ChannelCount) {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", v.Label(c), console.White(r[c]))
	}
	_ = w.Flush()
}

func readingMap(v as726x.Variant, r as726x.Reading) map[string]uint16 {
	m := make(map[string]uint16, as726x.ChannelCount)
	for c := range as726x.Channel(as726x.ChannelCount) {
		m[v.Label(c)] = r[c]
	}
	return m
}

// parseByte accepts decimal or 0x prefixed hex.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}
