// Copyright (c) 2021-2024 Melbourne Instruments, Australia

package board

// Revision is the board revision encoded by the two revision straps.
type Revision int

// The strap code to revision mapping is a fixed hardware convention; the
// codes are not in revision order.
const (
	RevD Revision = 0
	RevB Revision = 1
	RevC Revision = 2
	RevA Revision = 3
)

func (r Revision) String() string {
	switch r {
	case RevA:
		return "Rev A"
	case RevB:
		return "Rev B"
	case RevC:
		return "Rev C"
	default:
		return "Rev D"
	}
}

// PinReader reads the level (0 or 1) of a GPIO pin.
type PinReader interface {
	Read(pin uint) uint32
}

// DetectRevision reads the two revision straps and decodes them. It has no
// side effects beyond the reads.
func DetectRevision(r PinReader) Revision {
	code := r.Read(PinBoardRev1) | r.Read(PinBoardRev2)<<1
	return Revision(code)
}
