// Copyright (c) 2021-2024 Melbourne Instruments, Australia

// fpga-config loads the FPGA bitstreams on a Melbourne Instruments
// Raspberry Pi HAT over the Altera Passive Serial protocol, bit-banged on
// the GPIO lines.
//
// The HAT is selected with -hat or the MELBINST_PI_HAT environment
// variable ("nina"/"0" or "delia"/"1"). The process always exits 0;
// per-target failures are reported on stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Melbourne-Instruments/fpga-config/board"
	"github.com/Melbourne-Instruments/fpga-config/configure"
)

const version = "1.1.0"

var (
	hat = flag.String("hat", "", "target HAT (nina or delia), overrides MELBINST_PI_HAT")
	dir = flag.String("firmware", "", "override the firmware directory")
)

func main() {
	flag.Parse()

	sel := *hat
	if sel == "" {
		sel = os.Getenv("MELBINST_PI_HAT")
	}
	variant, err := board.ParseVariant(sel)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println("FPGA CONFIG - Copyright (c) 2023-2024 Melbourne Instruments, Australia")
	fmt.Printf("Version %s\n", version)
	fmt.Println()

	// Interactive interrupt and terminate both just request cooperative
	// cancellation; the transfer loop observes it at byte granularity.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configure.New(variant, configure.WithFirmwareDir(*dir)).Run(ctx)
}
