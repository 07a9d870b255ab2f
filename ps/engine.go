// Copyright (c) 2021-2024 Melbourne Instruments, Australia

/*
Package ps drives the Altera Passive Serial configuration protocol over two
GPIO lines, clocking a bitstream image into an FPGA bit by bit.

The engine does not talk to hardware directly; it drives a Pins interface,
normally backed by the mapped GPIO register page. The protocol offers no
acknowledgement from the FPGA side: a transfer that runs to completion is
the only available definition of success.
*/
package ps

import (
	"context"
	"time"
)

const (
	// Each clock edge is written this many times consecutively so the
	// signal has settled on the physical line before the next step. The
	// count is timing-tuned to the hardware; do not re-derive it.
	numConsecutiveWrites = 5

	// The FPGA needs at least 2 falling DCLK edges after it internally
	// latches completion; 10 is the fixed safety margin used here.
	tailClocks = 10

	// Hold time after asserting a control line, before any clocking.
	defaultSettleDelay = time.Millisecond
)

// Pins drives individual GPIO output pins.
type Pins interface {
	Set(pin uint)
	Clear(pin uint)
}

// Select describes how a target is placed into configuration mode: the
// control pin to assert, and the level that asserts it. The first FPGA on
// a board is selected by driving nCONFIG high; further FPGAs sharing the
// clock and data lines are selected by driving their nCE low.
type Select struct {
	Pin       uint
	ActiveLow bool
}

// Engine clocks bitstream images out over a clock and data pin pair.
type Engine struct {
	pins   Pins
	clk    uint
	data   uint
	settle time.Duration
}

// Option adjusts an Engine.
type Option func(*Engine)

// WithSettleDelay overrides the hold time applied after asserting a
// control line. Used by tests to avoid real sleeps.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.settle = d
	}
}

// New returns an Engine driving the given clock and data pins.
func New(pins Pins, clk, data uint, opts ...Option) *Engine {
	e := &Engine{pins: pins, clk: clk, data: data, settle: defaultSettleDelay}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Configure asserts the target's select line, waits for it to settle, then
// clocks out every bit of image LSB first followed by the trailing clock
// pulses. The data line settles before each rising clock edge; the falling
// edge completes the bit cell.
//
// Cancellation of ctx is observed between bytes and between tail pulses.
// On cancellation the engine stops writing immediately, leaves any
// partially clocked byte incomplete, and returns the context's error.
func (e *Engine) Configure(ctx context.Context, sel Select, image []byte) error {
	if sel.ActiveLow {
		e.pins.Clear(sel.Pin)
	} else {
		e.pins.Set(sel.Pin)
	}
	time.Sleep(e.settle)

	for _, b := range image {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := 0; i < 8; i++ {
			if (b>>i)&1 != 0 {
				e.pins.Set(e.data)
			} else {
				e.pins.Clear(e.data)
			}
			e.pulseClock()
		}
	}

	// The data line is a don't-care for the tail; only the edges matter.
	for i := 0; i < tailClocks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.pulseClock()
	}
	return nil
}

// pulseClock produces one full DCLK cycle, rising edge then falling edge,
// with the redundant-write settle technique on both.
func (e *Engine) pulseClock() {
	for i := 0; i < numConsecutiveWrites; i++ {
		e.pins.Set(e.clk)
	}
	for i := 0; i < numConsecutiveWrites; i++ {
		e.pins.Clear(e.clk)
	}
}
