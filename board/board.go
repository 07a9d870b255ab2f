// Copyright (c) 2021-2024 Melbourne Instruments, Australia

// Package board holds the fixed hardware data for the supported Melbourne
// Instruments Raspberry Pi HATs: GPIO pin assignments, firmware image
// locations and the board revision strap decoding.
package board

import "fmt"

// GPIO pin assignments (BCM numbering). These are wired on the HAT and are
// not configurable at runtime.
const (
	PinDClk     = 3  // Passive Serial clock (DCLK)
	PinData0    = 16 // Passive Serial data (DATA0)
	PinNConfig  = 17 // nCONFIG, drives the FPGAs into configuration mode
	PinFpga2NCE = 2  // FPGA2 chip enable (nCE, active low), Nina only

	PinBoardRev1 = 20 // board revision strap 1
	PinBoardRev2 = 21 // board revision strap 2
)

// Variant identifies the HAT the utility is running on.
type Variant int

const (
	// Nina carries two FPGAs sharing the DCLK/DATA0 lines, the second
	// selected through its nCE pin.
	Nina Variant = iota
	// Delia carries a single FPGA.
	Delia
)

// Target is one FPGA to be configured.
type Target struct {
	Name     string // reporting name, e.g. "FPGA1"
	Filename string // bitstream image file within the firmware directory

	// NCE is the target's chip enable pin for targets selected by nCE
	// rather than by nCONFIG. Valid only when HasNCE is true.
	NCE    uint
	HasNCE bool
}

// ParseVariant decodes a HAT selector as given on the command line or in
// the MELBINST_PI_HAT environment variable.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "", "0", "nina":
		return Nina, nil
	case "1", "delia":
		return Delia, nil
	}
	return 0, fmt.Errorf("unknown Melbourne Instruments RPi target device %q", s)
}

func (v Variant) String() string {
	if v == Delia {
		return "delia"
	}
	return "nina"
}

// FirmwareDir returns the directory holding the variant's bitstream images.
func (v Variant) FirmwareDir() string {
	if v == Delia {
		return "/home/root/delia/firmware/"
	}
	return "/home/root/nina/firmware/"
}

// Targets returns the FPGAs to configure, in configuration order. The
// first target is always selected through nCONFIG.
func (v Variant) Targets() []Target {
	if v == Delia {
		return []Target{
			{Name: "FPGA1", Filename: "monique.rbf"},
		}
	}
	return []Target{
		{Name: "FPGA1", Filename: "synthia_fpga_1.rbf"},
		{Name: "FPGA2", Filename: "synthia_fpga_2.rbf", NCE: PinFpga2NCE, HasNCE: true},
	}
}
