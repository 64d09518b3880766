package mem

import (
	"encoding/binary"

	"github.com/sarchlab/gbasim/insts"
)

// Layout of the built-in BIOS.
const (
	BIOSResetHandler uint32 = 0x0E0
	BIOSIRQHandler   uint32 = 0x128

	// BIOSIRQReturn is where the IRQ handler resumes after the user
	// handler returns with BX LR.
	BIOSIRQReturn uint32 = BIOSIRQHandler + 0x10

	// UserIRQHandlerAddr holds the address of the program's IRQ handler.
	// The BIOS reads it through the IWRAM mirror at 0x03FFFFFC.
	UserIRQHandlerAddr uint32 = 0x03007FFC
)

// Stack pointers the BIOS sets up before entering the GamePak.
const (
	InitialSP    uint32 = 0x03007F00
	InitialSPIRQ uint32 = 0x03007FA0
	InitialSPSVC uint32 = 0x03007FE0
)

// DefaultBIOS returns a minimal BIOS image. It sets up the stacks of the
// IRQ, supervisor and system modes, enters the GamePak at 0x08000000 in
// system mode, and dispatches IRQs to the handler stored at 0x03007FFC.
// SWI and the other exceptions return immediately; BIOS calls are served
// by a high-level syscall handler instead.
func DefaultBIOS() []byte {
	image := make([]byte, BIOSSize)
	put := func(addr uint32, words ...uint32) {
		for i, w := range words {
			binary.LittleEndian.PutUint32(image[addr+uint32(4*i):], w)
		}
	}

	movsPCLR := insts.EncodeDPReg(insts.OpMOV, true, 15, 0, 14, insts.ShiftLSL, 0)
	subsPCLR := insts.EncodeDPImm(insts.OpSUB, true, 15, 14, 4)

	// Exception vectors.
	put(0x00, insts.EncodeB(int32(BIOSResetHandler)))
	put(0x04, movsPCLR)                                  // undefined
	put(0x08, movsPCLR)                                  // SWI
	put(0x0C, subsPCLR)                                  // prefetch abort
	put(0x10, subsPCLR)                                  // data abort
	put(0x14, subsPCLR)                                  // reserved
	put(0x18, insts.EncodeB(int32(BIOSIRQHandler)-0x18)) // IRQ
	put(0x1C, subsPCLR)                                  // FIQ

	// Reset: three stacks, then the GamePak in system mode with IRQs
	// unmasked in the CPSR.
	const literals = 0x100
	ldrLiteral := func(at, lit uint32) uint32 {
		return insts.EncodeLDR(13, 15, int32(lit)-int32(at+8))
	}
	put(BIOSResetHandler,
		insts.EncodeMSRImm(false, insts.FieldControl, 0xD2),
		ldrLiteral(BIOSResetHandler+0x04, literals),
		insts.EncodeMSRImm(false, insts.FieldControl, 0xD3),
		ldrLiteral(BIOSResetHandler+0x0C, literals+4),
		insts.EncodeMSRImm(false, insts.FieldControl, 0x1F),
		ldrLiteral(BIOSResetHandler+0x14, literals+8),
		insts.EncodeMOVImm(15, ROMBase),
	)
	put(literals, InitialSPIRQ, InitialSPSVC, InitialSP)

	// IRQ dispatcher.
	put(BIOSIRQHandler,
		insts.EncodePUSH(0x500F),             // STMDB SP!, {R0-R3, R12, LR}
		insts.EncodeMOVImm(0, IOBase),        // MOV R0, #0x04000000
		insts.EncodeADDImm(14, 15, 0, false), // ADD LR, PC, #0
		insts.EncodeLDR(15, 0, -4),           // LDR PC, [R0, #-4]
		insts.EncodePOP(0x500F),              // LDMIA SP!, {R0-R3, R12, LR}
		subsPCLR,
	)

	return image
}
