// Copyright (c) 2021-2024 Melbourne Instruments, Australia

package gpio

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const memDevName = "/dev/mem"

// BCM2711 (Raspberry Pi 4) register layout.
const (
	pageSize       = 4096
	peripheralBase = 0xFE000000
	registerBase   = 0x200000

	// Offsets within the GPIO register page. The function select bank
	// starts at 0, with 10 pins per 32 bit register, 3 bits per pin.
	regSet      = 0x1C
	regClr      = 0x28
	regLev      = 0x34
	regPullBase = 0xE4
)

var (
	// ErrDeviceUnavailable indicates the privileged memory device could
	// not be opened.
	ErrDeviceUnavailable = errors.New("memory device unavailable")
	// ErrMapFailed indicates the GPIO register page could not be mapped.
	ErrMapFailed = errors.New("register map failed")
)

// Port is a handle to the mapped GPIO register page. A single goroutine
// must own all register I/O for the life of the port; the hardware has no
// notion of interleaved writers.
type Port struct {
	mem []byte
}

// Open maps the GPIO register page from the physical address space.
// On any failure no mapping is retained.
func Open() (*Port, error) {
	f, err := os.OpenFile(memDevName, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, memDevName, err)
	}
	mem, err := unix.Mmap(int(f.Fd()), peripheralBase+registerBase, pageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapFailed, err)
	}
	return &Port{mem: mem}, nil
}

// Close unmaps the register page. It is safe to call on a nil or already
// closed port.
func (p *Port) Close() {
	if p == nil || p.mem == nil {
		return
	}
	unix.Munmap(p.mem)
	p.mem = nil
}

// ConfigureOutput sets the pin's function select field to output.
func (p *Port) ConfigureOutput(pin uint) {
	offs := uintptr(pin/10) * 4
	p.wr(offs, p.rd(offs)|(1<<((pin%10)*3)))
}

// ConfigureInputPullUp sets the pin's function select field to input and
// selects the internal pull-up for the pin.
func (p *Port) ConfigureInputPullUp(pin uint) {
	offs := uintptr(pin/10) * 4
	p.wr(offs, p.rd(offs)&^(7<<((pin%10)*3)))
	// Pull control is 2 bits per pin, 16 pins per register. The register
	// stride matches the original utility and is treated as part of the
	// hardware contract.
	pull := uintptr(regPullBase) + uintptr(pin/16)*16
	shift := (pin % 16) * 2
	p.wr(pull, p.rd(pull)&^(3<<shift))
	p.wr(pull, p.rd(pull)|(1<<shift))
}

// Set drives the pin high. Only the addressed pin's bit is written.
func (p *Port) Set(pin uint) {
	p.wr(regSet, 1<<pin)
}

// Clear drives the pin low. Only the addressed pin's bit is written.
func (p *Port) Clear(pin uint) {
	p.wr(regClr, 1<<pin)
}

// Read returns the level (0 or 1) of the pin.
func (p *Port) Read(pin uint) uint32 {
	return (p.rd(regLev) >> pin) & 1
}

// rd reads one 32 bit register from the mapped page.
func (p *Port) rd(offs uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&p.mem[offs])))
}

// wr writes one 32 bit register in the mapped page.
func (p *Port) wr(offs uintptr, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&p.mem[offs])), v)
}
