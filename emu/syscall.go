package emu

import (
	"math"

	"github.com/go-logr/logr"
)

// SyscallHandler serves SWI calls in place of the BIOS code.
type SyscallHandler interface {
	// Handle executes BIOS call number call against the current register
	// file and returns the cycles it consumed. Execution resumes at the
	// instruction after the SWI.
	Handle(call uint8) uint64
}

// BIOS call numbers served by HLEBIOS.
const (
	BIOSHalt       uint8 = 0x02
	BIOSDiv        uint8 = 0x06
	BIOSDivArm     uint8 = 0x07
	BIOSSqrt       uint8 = 0x08
	BIOSCpuSet     uint8 = 0x0B
	BIOSCpuFastSet uint8 = 0x0C
)

// Approximate costs of the BIOS routines.
const (
	hleCallCycles     = 20
	hleDivCycles      = 60
	hleCopyUnitCycles = 2
)

// HLEBIOS is a SyscallHandler that implements the common BIOS calls in Go.
// Calls it does not know are logged and cost one cycle.
type HLEBIOS struct {
	regFile *RegFile
	bus     Bus
	halt    func()
	logger  logr.Logger
}

// NewHLEBIOS creates a handler operating on the registers and bus of e.
func NewHLEBIOS(e *Emulator) *HLEBIOS {
	return &HLEBIOS{
		regFile: e.regFile,
		bus:     e.bus,
		halt:    e.Halt,
		logger:  e.logger.WithName("bios"),
	}
}

// Handle executes BIOS call number call.
func (h *HLEBIOS) Handle(call uint8) uint64 {
	switch call {
	case BIOSHalt:
		h.halt()
		return hleCallCycles
	case BIOSDiv:
		return h.div(h.regFile.ReadReg(0), h.regFile.ReadReg(1))
	case BIOSDivArm:
		return h.div(h.regFile.ReadReg(1), h.regFile.ReadReg(0))
	case BIOSSqrt:
		r0 := h.regFile.ReadReg(0)
		h.regFile.WriteReg(0, uint32(math.Sqrt(float64(r0))))
		return hleCallCycles
	case BIOSCpuSet:
		return h.cpuSet()
	case BIOSCpuFastSet:
		return h.cpuFastSet()
	default:
		h.logger.Info("unimplemented BIOS call",
			"call", call, "pc", hex32(h.regFile.PC()))
		return 1
	}
}

// div sets R0 = num/den, R1 = num%den and R3 = |num/den|, all signed.
func (h *HLEBIOS) div(num, den uint32) uint64 {
	rf := h.regFile
	if den == 0 {
		h.logger.Info("BIOS division by zero", "numerator", int32(num))
		return hleDivCycles
	}

	q := int32(num) / int32(den)
	r := int32(num) % int32(den)
	abs := q
	if abs < 0 {
		abs = -abs
	}

	rf.WriteReg(0, uint32(q))
	rf.WriteReg(1, uint32(r))
	rf.WriteReg(3, uint32(abs))
	return hleDivCycles
}

// cpuSet copies or fills R2 bits 0-20 units from R0 to R1. Bit 24 selects
// fill and bit 26 selects words over halfwords.
func (h *HLEBIOS) cpuSet() uint64 {
	rf := h.regFile
	src, dst, ctrl := rf.ReadReg(0), rf.ReadReg(1), rf.ReadReg(2)
	count := ctrl & 0x1FFFFF
	fill := ctrl&(1<<24) != 0

	if ctrl&(1<<26) != 0 {
		h.copyWords(src, dst, count, fill)
		return hleCallCycles + uint64(count)*hleCopyUnitCycles
	}

	src &^= 1
	dst &^= 1
	v := h.bus.Read16(src)
	for i := uint32(0); i < count; i++ {
		if !fill {
			v = h.bus.Read16(src)
			src += 2
		}
		h.bus.Write16(dst, v)
		dst += 2
	}
	return hleCallCycles + uint64(count)*hleCopyUnitCycles
}

// cpuFastSet is cpuSet for words, with the count rounded up to a multiple
// of eight.
func (h *HLEBIOS) cpuFastSet() uint64 {
	rf := h.regFile
	ctrl := rf.ReadReg(2)
	count := (ctrl&0x1FFFFF + 7) &^ 7

	h.copyWords(rf.ReadReg(0), rf.ReadReg(1), count, ctrl&(1<<24) != 0)
	return hleCallCycles + uint64(count)*hleCopyUnitCycles/2
}

func (h *HLEBIOS) copyWords(src, dst, count uint32, fill bool) {
	src &^= 3
	dst &^= 3
	v := h.bus.Read32(src)
	for i := uint32(0); i < count; i++ {
		if !fill {
			v = h.bus.Read32(src)
			src += 4
		}
		h.bus.Write32(dst, v)
		dst += 4
	}
}
