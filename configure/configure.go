// Copyright (c) 2021-2024 Melbourne Instruments, Australia

/*
Package configure sequences the configuration of the FPGAs on a Melbourne
Instruments HAT: it opens the GPIO register page, sets up the pins, reports
the board revision, then loads and transfers each target's bitstream in
turn, cleaning up in all paths.

Failures are reported on the output writer and never abort the run; the
process is expected to exit 0 regardless of per-target outcomes.
*/
package configure

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Melbourne-Instruments/fpga-config/bitstream"
	"github.com/Melbourne-Instruments/fpga-config/board"
	"github.com/Melbourne-Instruments/fpga-config/gpio"
	"github.com/Melbourne-Instruments/fpga-config/ps"
)

// Port is the pin-level hardware boundary, implemented by *gpio.Port.
type Port interface {
	ConfigureOutput(pin uint)
	ConfigureInputPullUp(pin uint)
	Set(pin uint)
	Clear(pin uint)
	Read(pin uint) uint32
	Close()
}

// Config holds the orchestrator configuration.
type Config struct {
	// Out receives the progress and diagnostic lines.
	Out io.Writer

	// FirmwareDir overrides the variant's firmware directory.
	FirmwareDir string

	// SettleDelay is the control-line hold time passed to the transfer
	// engine.
	SettleDelay time.Duration

	// OpenPort and Load exist so tests can substitute the hardware and
	// the filesystem.
	OpenPort func() (Port, error)
	Load     func(path string) ([]byte, error)
}

func defaultConfig() Config {
	return Config{
		Out:         os.Stdout,
		SettleDelay: time.Millisecond,
		OpenPort: func() (Port, error) {
			return gpio.Open()
		},
		Load: bitstream.Load,
	}
}

// Option is a functional option for the Configurator.
type Option func(*Config)

// WithOutput directs progress and diagnostic lines to w.
func WithOutput(w io.Writer) Option {
	return func(c *Config) {
		c.Out = w
	}
}

// WithFirmwareDir overrides the directory the bitstream images are loaded
// from.
func WithFirmwareDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.FirmwareDir = dir
		}
	}
}

// WithSettleDelay overrides the control-line hold time.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) {
		c.SettleDelay = d
	}
}

// WithPortOpener substitutes the GPIO register page opener.
func WithPortOpener(open func() (Port, error)) Option {
	return func(c *Config) {
		c.OpenPort = open
	}
}

// WithLoader substitutes the bitstream loader.
func WithLoader(load func(path string) ([]byte, error)) Option {
	return func(c *Config) {
		c.Load = load
	}
}

// Configurator drives the whole configuration run for one hardware
// variant.
type Configurator struct {
	variant board.Variant
	cfg     Config
}

// New returns a Configurator for the given variant.
func New(v board.Variant, opts ...Option) *Configurator {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.FirmwareDir == "" {
		cfg.FirmwareDir = v.FirmwareDir()
	}
	return &Configurator{variant: v, cfg: cfg}
}

// Run performs the configuration sequence. All failures are reported to
// the output writer; none are fatal, so Run has nothing to return. The
// context carries the cooperative cancellation request set by the
// termination signals.
func (c *Configurator) Run(ctx context.Context) {
	out := c.cfg.Out
	port, err := c.cfg.OpenPort()
	if err != nil {
		// Without the register window no pin work is possible.
		fmt.Fprintln(out, "GPIO open/setup error")
		fmt.Fprintln(out, "\nFPGA Config completed")
		return
	}

	c.setupPins(port)
	fmt.Fprintln(out, "GPIO open and setup")

	fmt.Fprintf(out, "Detected Board %s\n", board.DetectRevision(port))

	engine := ps.New(port, board.PinDClk, board.PinData0,
		ps.WithSettleDelay(c.cfg.SettleDelay))
	for i, target := range c.variant.Targets() {
		c.configureTarget(ctx, engine, i, target)
	}

	// Leave the serial lines low and release the register window.
	port.Clear(board.PinDClk)
	port.Clear(board.PinData0)
	port.Close()
	fmt.Fprintln(out, "GPIO port closed")

	fmt.Fprintln(out, "\nFPGA Config completed")
}

// setupPins fixes the direction of every pin used by the run and drives
// the outputs to their initial levels. Directions are set once and never
// changed afterwards.
func (c *Configurator) setupPins(port Port) {
	port.ConfigureOutput(board.PinNConfig)
	for _, t := range c.variant.Targets() {
		if t.HasNCE {
			port.ConfigureOutput(t.NCE)
			// nCE is active low; deselect until the target's turn.
			port.Set(t.NCE)
		}
	}
	port.ConfigureOutput(board.PinDClk)
	port.ConfigureOutput(board.PinData0)
	port.ConfigureInputPullUp(board.PinBoardRev1)
	port.ConfigureInputPullUp(board.PinBoardRev2)

	port.Clear(board.PinDClk)
	port.Clear(board.PinData0)
	port.Clear(board.PinNConfig)
	time.Sleep(c.cfg.SettleDelay)
}

// configureTarget loads one target's bitstream and clocks it out. The
// image is released before the next target's load; only one image is
// resident at a time.
func (c *Configurator) configureTarget(ctx context.Context, engine *ps.Engine, index int, target board.Target) {
	out := c.cfg.Out
	image, err := c.cfg.Load(c.cfg.FirmwareDir + target.Filename)
	if err != nil {
		fmt.Fprintf(out, "Could not open the %s binary file\n", target.Name)
		return
	}
	fmt.Fprintf(out, "%s binary file size: %d bytes\n", target.Name, len(image))

	sel := ps.Select{Pin: board.PinNConfig}
	if index > 0 {
		sel = ps.Select{Pin: target.NCE, ActiveLow: true}
	}
	start := time.Now()
	if err := engine.Configure(ctx, sel, image); err != nil {
		// Cancelled mid-transfer; no success line.
		return
	}
	fmt.Fprintf(out, "%s configured, %dms\n", target.Name, time.Since(start).Milliseconds())
}
