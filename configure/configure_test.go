// Copyright (c) 2021-2024 Melbourne Instruments, Australia

package configure

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Melbourne-Instruments/fpga-config/bitstream"
	"github.com/Melbourne-Instruments/fpga-config/board"
)

// fakePort records pin operations and simulates the board revision straps.
type fakePort struct {
	outputs []uint
	inputs  []uint
	sets    []uint
	clears  []uint
	levels  map[uint]uint32
	closed  int
}

func newFakePort() *fakePort {
	return &fakePort{levels: map[uint]uint32{}}
}

func (f *fakePort) ConfigureOutput(pin uint)      { f.outputs = append(f.outputs, pin) }
func (f *fakePort) ConfigureInputPullUp(pin uint) { f.inputs = append(f.inputs, pin) }
func (f *fakePort) Set(pin uint)                  { f.sets = append(f.sets, pin) }
func (f *fakePort) Clear(pin uint)                { f.clears = append(f.clears, pin) }
func (f *fakePort) Read(pin uint) uint32          { return f.levels[pin] }
func (f *fakePort) Close()                        { f.closed++ }

func newTestConfigurator(v board.Variant, port *fakePort, out *bytes.Buffer,
	load func(string) ([]byte, error)) *Configurator {
	return New(v,
		WithOutput(out),
		WithSettleDelay(0),
		WithPortOpener(func() (Port, error) { return port, nil }),
		WithLoader(load),
	)
}

func TestRunNina(t *testing.T) {
	port := newFakePort()
	port.levels[board.PinBoardRev1] = 1
	port.levels[board.PinBoardRev2] = 1
	var out bytes.Buffer
	loaded := []string{}
	c := newTestConfigurator(board.Nina, port, &out, func(path string) ([]byte, error) {
		loaded = append(loaded, path)
		return []byte{0x01, 0x02}, nil
	})
	c.Run(context.Background())

	wantPaths := []string{
		"/home/root/nina/firmware/synthia_fpga_1.rbf",
		"/home/root/nina/firmware/synthia_fpga_2.rbf",
	}
	if len(loaded) != 2 || loaded[0] != wantPaths[0] || loaded[1] != wantPaths[1] {
		t.Errorf("loaded %v, want %v", loaded, wantPaths)
	}

	got := out.String()
	for _, want := range []string{
		"GPIO open and setup",
		"Detected Board Rev A",
		"FPGA1 binary file size: 2 bytes",
		"FPGA1 configured, ",
		"FPGA2 binary file size: 2 bytes",
		"FPGA2 configured, ",
		"GPIO port closed",
		"FPGA Config completed",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if port.closed != 1 {
		t.Errorf("port closed %d times, want 1", port.closed)
	}
}

func TestRunSecondLoadFails(t *testing.T) {
	port := newFakePort()
	var out bytes.Buffer
	calls := 0
	c := newTestConfigurator(board.Nina, port, &out, func(path string) ([]byte, error) {
		calls++
		if calls == 2 {
			return nil, fmt.Errorf("%w: %s", bitstream.ErrUnreadable, path)
		}
		return []byte{0xAA}, nil
	})
	c.Run(context.Background())

	got := out.String()
	if !strings.Contains(got, "FPGA1 configured, ") {
		t.Errorf("first target should still configure:\n%s", got)
	}
	if !strings.Contains(got, "Could not open the FPGA2 binary file") {
		t.Errorf("missing FPGA2 failure line:\n%s", got)
	}
	if strings.Contains(got, "FPGA2 configured") {
		t.Errorf("FPGA2 must not report success:\n%s", got)
	}
	if !strings.Contains(got, "FPGA Config completed") {
		t.Errorf("missing completion line:\n%s", got)
	}
	if port.closed != 1 {
		t.Errorf("port closed %d times, want 1", port.closed)
	}
}

func TestRunOpenFails(t *testing.T) {
	var out bytes.Buffer
	loads := 0
	c := New(board.Delia,
		WithOutput(&out),
		WithSettleDelay(0),
		WithPortOpener(func() (Port, error) { return nil, fmt.Errorf("open /dev/mem: permission denied") }),
		WithLoader(func(string) ([]byte, error) { loads++; return []byte{0}, nil }),
	)
	c.Run(context.Background())

	got := out.String()
	if !strings.Contains(got, "GPIO open/setup error") {
		t.Errorf("missing setup error line:\n%s", got)
	}
	if !strings.Contains(got, "FPGA Config completed") {
		t.Errorf("missing completion line:\n%s", got)
	}
	if loads != 0 {
		t.Errorf("no bitstream should load when the map failed, got %d loads", loads)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	port := newFakePort()
	var out bytes.Buffer
	c := newTestConfigurator(board.Delia, port, &out, func(string) ([]byte, error) {
		return []byte{0x55}, nil
	})
	c.Run(ctx)

	got := out.String()
	if strings.Contains(got, "configured,") {
		t.Errorf("cancelled transfer must not report success:\n%s", got)
	}
	if !strings.Contains(got, "FPGA Config completed") {
		t.Errorf("missing completion line:\n%s", got)
	}
	if port.closed != 1 {
		t.Errorf("port closed %d times, want 1", port.closed)
	}
}

func TestSetupPins(t *testing.T) {
	port := newFakePort()
	var out bytes.Buffer
	c := newTestConfigurator(board.Nina, port, &out, func(string) ([]byte, error) {
		return []byte{0x01}, nil
	})
	c.Run(context.Background())

	wantOutputs := map[uint]bool{
		board.PinNConfig:  true,
		board.PinFpga2NCE: true,
		board.PinDClk:     true,
		board.PinData0:    true,
	}
	for _, pin := range port.outputs {
		delete(wantOutputs, pin)
	}
	if len(wantOutputs) != 0 {
		t.Errorf("pins not configured as outputs: %v", wantOutputs)
	}

	wantInputs := map[uint]bool{board.PinBoardRev1: true, board.PinBoardRev2: true}
	for _, pin := range port.inputs {
		delete(wantInputs, pin)
	}
	if len(wantInputs) != 0 {
		t.Errorf("straps not configured as inputs: %v", wantInputs)
	}

	// FPGA2 must be deselected (nCE high) before any clocking.
	firstNCE, firstClk := -1, -1
	for i, pin := range port.sets {
		if pin == board.PinFpga2NCE && firstNCE == -1 {
			firstNCE = i
		}
		if pin == board.PinDClk && firstClk == -1 {
			firstClk = i
		}
	}
	if firstNCE == -1 {
		t.Error("FPGA2 nCE was never driven high during setup")
	} else if firstClk != -1 && firstClk < firstNCE {
		t.Error("clocking started before FPGA2 was deselected")
	}
}
