package insts

import "fmt"

// The encoders in this file build machine words for tests, benchmarks and
// hand-written programs. All ARM encoders produce unconditional (AL)
// instructions; use WithCond to attach a condition.

const condALBits = uint32(CondAL) << 28

// WithCond replaces the condition field of an ARM instruction word.
func WithCond(word uint32, cond Cond) uint32 {
	return word&0x0FFFFFFF | uint32(cond)<<28
}

// EncodeImmediate finds the 8-bit immediate and even rotation that
// represent v in a data-processing operand. ok is false if v cannot be
// represented.
func EncodeImmediate(v uint32) (imm8 uint8, rotate uint8, ok bool) {
	for rot := uint32(0); rot < 32; rot += 2 {
		// Rotating left undoes the encoder's rotate right.
		r := v<<rot | v>>((32-rot)&31)
		if rot == 0 {
			r = v
		}
		if r <= 0xFF {
			return uint8(r), uint8(rot), true
		}
	}
	return 0, 0, false
}

func boolBit(b bool, n uint) uint32 {
	if b {
		return 1 << n
	}
	return 0
}

func dpOpcode(op Op) uint32 {
	if op < OpAND || op > OpMVN {
		panic(fmt.Sprintf("insts: %v is not a data-processing op", op))
	}
	return uint32(op - OpAND)
}

// EncodeDPImm encodes "<op>{S} Rd, Rn, #imm". It panics if imm is not a
// valid rotated immediate.
func EncodeDPImm(op Op, setFlags bool, rd, rn uint8, imm uint32) uint32 {
	imm8, rot, ok := EncodeImmediate(imm)
	if !ok {
		panic(fmt.Sprintf("insts: immediate %#x cannot be encoded", imm))
	}

	// Compare-only ops always set flags.
	if op.IsCompare() {
		setFlags = true
	}

	return condALBits | 1<<25 | dpOpcode(op)<<21 | boolBit(setFlags, 20) |
		uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 |
		uint32(rot/2)<<8 | uint32(imm8)
}

// EncodeDPReg encodes "<op>{S} Rd, Rn, Rm, <shift> #amount". An amount of
// 32 is encoded as 0 for LSR and ASR; ShiftRRX encodes "ROR #0".
func EncodeDPReg(op Op, setFlags bool, rd, rn, rm uint8, shift ShiftType, amount uint8) uint32 {
	if op.IsCompare() {
		setFlags = true
	}
	return condALBits | dpOpcode(op)<<21 | boolBit(setFlags, 20) |
		uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | shiftField(rm, shift, amount)
}

// EncodeDPRegShift encodes "<op>{S} Rd, Rn, Rm, <shift> Rs".
func EncodeDPRegShift(op Op, setFlags bool, rd, rn, rm, rs uint8, shift ShiftType) uint32 {
	if op.IsCompare() {
		setFlags = true
	}
	return condALBits | dpOpcode(op)<<21 | boolBit(setFlags, 20) |
		uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | uint32(rs&0xF)<<8 |
		uint32(shift&0x3)<<5 | 1<<4 | uint32(rm&0xF)
}

func shiftField(rm uint8, shift ShiftType, amount uint8) uint32 {
	if shift == ShiftRRX {
		return uint32(ShiftROR)<<5 | uint32(rm&0xF)
	}
	return uint32(amount&0x1F)<<7 | uint32(shift&0x3)<<5 | uint32(rm&0xF)
}

// EncodeMOVImm encodes "MOV Rd, #imm".
func EncodeMOVImm(rd uint8, imm uint32) uint32 {
	return EncodeDPImm(OpMOV, false, rd, 0, imm)
}

// EncodeADDImm encodes "ADD{S} Rd, Rn, #imm".
func EncodeADDImm(rd, rn uint8, imm uint32, setFlags bool) uint32 {
	return EncodeDPImm(OpADD, setFlags, rd, rn, imm)
}

// EncodeSUBImm encodes "SUB{S} Rd, Rn, #imm".
func EncodeSUBImm(rd, rn uint8, imm uint32, setFlags bool) uint32 {
	return EncodeDPImm(OpSUB, setFlags, rd, rn, imm)
}

// EncodeCMPImm encodes "CMP Rn, #imm".
func EncodeCMPImm(rn uint8, imm uint32) uint32 {
	return EncodeDPImm(OpCMP, true, 0, rn, imm)
}

// EncodeMOVReg encodes "MOV Rd, Rm".
func EncodeMOVReg(rd, rm uint8) uint32 {
	return EncodeDPReg(OpMOV, false, rd, 0, rm, ShiftLSL, 0)
}

// EncodeMUL encodes "MUL{S} Rd, Rm, Rs".
func EncodeMUL(rd, rm, rs uint8, setFlags bool) uint32 {
	return condALBits | boolBit(setFlags, 20) | uint32(rd&0xF)<<16 |
		uint32(rs&0xF)<<8 | 0x90 | uint32(rm&0xF)
}

// EncodeMLA encodes "MLA{S} Rd, Rm, Rs, Rn".
func EncodeMLA(rd, rm, rs, rn uint8, setFlags bool) uint32 {
	return EncodeMUL(rd, rm, rs, setFlags) | 1<<21 | uint32(rn&0xF)<<12
}

// EncodeMulLong encodes UMULL, UMLAL, SMULL or SMLAL
// ("<op>{S} RdLo, RdHi, Rm, Rs").
func EncodeMulLong(op Op, setFlags bool, rdLo, rdHi, rm, rs uint8) uint32 {
	word := condALBits | 1<<23 | boolBit(setFlags, 20) |
		uint32(rdHi&0xF)<<16 | uint32(rdLo&0xF)<<12 |
		uint32(rs&0xF)<<8 | 0x90 | uint32(rm&0xF)

	switch op {
	case OpUMULL:
	case OpUMLAL:
		word |= 1 << 21
	case OpSMULL:
		word |= 1 << 22
	case OpSMLAL:
		word |= 1<<22 | 1<<21
	default:
		panic(fmt.Sprintf("insts: %v is not a long multiply", op))
	}
	return word
}

// Addressing describes the indexing mode of a transfer.
type Addressing struct {
	PostIndex bool // Apply the offset after the access (always writes back)
	WriteBack bool // "!" on a pre-indexed access
}

// Offset is the default addressing: pre-indexed, no write-back.
var Offset = Addressing{}

// PreIndexed is "[Rn, #off]!".
var PreIndexed = Addressing{WriteBack: true}

// PostIndexed is "[Rn], #off".
var PostIndexed = Addressing{PostIndex: true}

func (a Addressing) bits() uint32 {
	if a.PostIndex {
		return 0
	}
	return 1<<24 | boolBit(a.WriteBack, 21)
}

func signedOffset(offset int32) (uint32, uint32) {
	if offset < 0 {
		return uint32(-offset), 0
	}
	return uint32(offset), 1 << 23
}

// EncodeSingleTransfer encodes "LDR|STR{B} Rd, [Rn, #offset]" with the given
// addressing. Only LDR, STR, LDRB and STRB are accepted.
func EncodeSingleTransfer(op Op, rd, rn uint8, offset int32, addr Addressing) uint32 {
	mag, up := signedOffset(offset)
	return condALBits | 1<<26 | addr.bits() | up | singleTransferBits(op) |
		uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | mag&0xFFF
}

// EncodeSingleTransferReg encodes "LDR|STR{B} Rd, [Rn, ±Rm, <shift> #amount]".
func EncodeSingleTransferReg(op Op, rd, rn, rm uint8, subtract bool,
	shift ShiftType, amount uint8, addr Addressing,
) uint32 {
	return condALBits | 1<<26 | 1<<25 | addr.bits() | boolBit(!subtract, 23) |
		singleTransferBits(op) | uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 |
		shiftField(rm, shift, amount)
}

func singleTransferBits(op Op) uint32 {
	switch op {
	case OpLDR:
		return 1 << 20
	case OpSTR:
		return 0
	case OpLDRB:
		return 1<<22 | 1<<20
	case OpSTRB:
		return 1 << 22
	}
	panic(fmt.Sprintf("insts: %v is not a single data transfer", op))
}

// EncodeLDR encodes "LDR Rd, [Rn, #offset]".
func EncodeLDR(rd, rn uint8, offset int32) uint32 {
	return EncodeSingleTransfer(OpLDR, rd, rn, offset, Offset)
}

// EncodeSTR encodes "STR Rd, [Rn, #offset]".
func EncodeSTR(rd, rn uint8, offset int32) uint32 {
	return EncodeSingleTransfer(OpSTR, rd, rn, offset, Offset)
}

// EncodeHalfwordTransfer encodes LDRH, STRH, LDRSB or LDRSH with an
// immediate offset.
func EncodeHalfwordTransfer(op Op, rd, rn uint8, offset int32, addr Addressing) uint32 {
	mag, up := signedOffset(offset)
	return condALBits | addr.bits() | up | 1<<22 | halfwordBits(op) |
		uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 |
		(mag&0xF0)<<4 | mag&0xF
}

// EncodeHalfwordTransferReg encodes LDRH, STRH, LDRSB or LDRSH with a
// register offset.
func EncodeHalfwordTransferReg(op Op, rd, rn, rm uint8, subtract bool, addr Addressing) uint32 {
	return condALBits | addr.bits() | boolBit(!subtract, 23) | halfwordBits(op) |
		uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | uint32(rm&0xF)
}

func halfwordBits(op Op) uint32 {
	switch op {
	case OpSTRH:
		return 0xB0
	case OpLDRH:
		return 1<<20 | 0xB0
	case OpLDRSB:
		return 1<<20 | 0xD0
	case OpLDRSH:
		return 1<<20 | 0xF0
	}
	panic(fmt.Sprintf("insts: %v is not a halfword transfer", op))
}

// BlockMode is the addressing mode of LDM/STM.
type BlockMode uint8

// Block transfer addressing modes.
const (
	BlockIA BlockMode = iota // Increment after
	BlockIB                  // Increment before
	BlockDA                  // Decrement after
	BlockDB                  // Decrement before
)

// EncodeBlockTransfer encodes "LDM|STM<mode> Rn{!}, {list}{^}".
func EncodeBlockTransfer(load bool, mode BlockMode, rn uint8, regList uint16, writeBack, userBank bool) uint32 {
	var pu uint32
	switch mode {
	case BlockIA:
		pu = 1 << 23
	case BlockIB:
		pu = 1<<24 | 1<<23
	case BlockDA:
		pu = 0
	case BlockDB:
		pu = 1 << 24
	}
	return condALBits | 0b100<<25 | pu | boolBit(userBank, 22) |
		boolBit(writeBack, 21) | boolBit(load, 20) |
		uint32(rn&0xF)<<16 | uint32(regList)
}

// EncodePUSH encodes "STMDB SP!, {list}".
func EncodePUSH(regList uint16) uint32 {
	return EncodeBlockTransfer(false, BlockDB, 13, regList, true, false)
}

// EncodePOP encodes "LDMIA SP!, {list}".
func EncodePOP(regList uint16) uint32 {
	return EncodeBlockTransfer(true, BlockIA, 13, regList, true, false)
}

// EncodeB encodes "B label", where offset is the distance in bytes from the
// branch instruction to the target.
func EncodeB(offset int32) uint32 {
	return condALBits | 0b101<<25 | uint32((offset-8)>>2)&0xFFFFFF
}

// EncodeBL encodes "BL label", where offset is relative to the branch.
func EncodeBL(offset int32) uint32 {
	return EncodeB(offset) | 1<<24
}

// EncodeBX encodes "BX Rm".
func EncodeBX(rm uint8) uint32 {
	return condALBits | 0x012FFF10 | uint32(rm&0xF)
}

// EncodeSWP encodes "SWP{B} Rd, Rm, [Rn]".
func EncodeSWP(rd, rm, rn uint8, byteAccess bool) uint32 {
	return condALBits | 0x01000090 | boolBit(byteAccess, 22) |
		uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | uint32(rm&0xF)
}

// EncodeMRS encodes "MRS Rd, CPSR|SPSR".
func EncodeMRS(rd uint8, spsr bool) uint32 {
	return condALBits | 0x010F0000 | boolBit(spsr, 22) | uint32(rd&0xF)<<12
}

// PSR field mask bits for MSR.
const (
	FieldControl   uint8 = 1 << 0 // c: bits 7..0
	FieldExtension uint8 = 1 << 1 // x: bits 15..8
	FieldStatus    uint8 = 1 << 2 // s: bits 23..16
	FieldFlags     uint8 = 1 << 3 // f: bits 31..24
	FieldAll             = FieldControl | FieldExtension | FieldStatus | FieldFlags
)

// EncodeMSRReg encodes "MSR CPSR|SPSR_<fields>, Rm".
func EncodeMSRReg(spsr bool, fields, rm uint8) uint32 {
	return condALBits | 0x0120F000 | boolBit(spsr, 22) |
		uint32(fields&0xF)<<16 | uint32(rm&0xF)
}

// EncodeMSRImm encodes "MSR CPSR|SPSR_<fields>, #imm".
func EncodeMSRImm(spsr bool, fields uint8, imm uint32) uint32 {
	imm8, rot, ok := EncodeImmediate(imm)
	if !ok {
		panic(fmt.Sprintf("insts: immediate %#x cannot be encoded", imm))
	}
	return condALBits | 1<<25 | 0x0120F000 | boolBit(spsr, 22) |
		uint32(fields&0xF)<<16 | uint32(rot/2)<<8 | uint32(imm8)
}

// EncodeSWI encodes "SWI call" with the call number in bits 23..16, the
// layout the BIOS call convention expects.
func EncodeSWI(call uint8) uint32 {
	return condALBits | 0x0F000000 | uint32(call)<<16
}

// Thumb encoders.

// EncodeThumbShift encodes "LSL|LSR|ASR Rd, Rs, #amount".
func EncodeThumbShift(shift ShiftType, rd, rs, amount uint8) uint16 {
	return uint16(shift&0x3)<<11 | uint16(amount&0x1F)<<6 | uint16(rs&7)<<3 | uint16(rd&7)
}

// EncodeThumbAddSub encodes "ADD|SUB Rd, Rs, Rn" or, with imm set,
// "ADD|SUB Rd, Rs, #operand".
func EncodeThumbAddSub(sub, imm bool, rd, rs, operand uint8) uint16 {
	half := uint16(0x1800) | uint16(operand&7)<<6 | uint16(rs&7)<<3 | uint16(rd&7)
	if imm {
		half |= 1 << 10
	}
	if sub {
		half |= 1 << 9
	}
	return half
}

// EncodeThumbImm encodes "MOV|CMP|ADD|SUB Rd, #imm8".
func EncodeThumbImm(op Op, rd, imm8 uint8) uint16 {
	var code uint16
	switch op {
	case OpMOV:
		code = 0
	case OpCMP:
		code = 1
	case OpADD:
		code = 2
	case OpSUB:
		code = 3
	default:
		panic(fmt.Sprintf("insts: %v has no Thumb immediate form", op))
	}
	return 0x2000 | code<<11 | uint16(rd&7)<<8 | uint16(imm8)
}

// EncodeThumbALU encodes a format 4 operation "<op> Rd, Rs".
func EncodeThumbALU(aluOp, rd, rs uint8) uint16 {
	return 0x4000 | uint16(aluOp&0xF)<<6 | uint16(rs&7)<<3 | uint16(rd&7)
}

// EncodeThumbHiReg encodes "ADD|CMP|MOV Rd, Rs" or "BX Rs" on any
// registers.
func EncodeThumbHiReg(op Op, rd, rs uint8) uint16 {
	var code uint16
	switch op {
	case OpADD:
		code = 0
	case OpCMP:
		code = 1
	case OpMOV:
		code = 2
	case OpBX:
		code = 3
	default:
		panic(fmt.Sprintf("insts: %v has no Thumb hi-register form", op))
	}
	half := 0x4400 | code<<8 | uint16(rs&7)<<3 | uint16(rd&7)
	if rd >= 8 {
		half |= 1 << 7
	}
	if rs >= 8 {
		half |= 1 << 6
	}
	return half
}

// EncodeThumbBX encodes "BX Rs".
func EncodeThumbBX(rs uint8) uint16 {
	return EncodeThumbHiReg(OpBX, 0, rs)
}

// EncodeThumbPCLoad encodes "LDR Rd, [PC, #offset]" (offset in bytes).
func EncodeThumbPCLoad(rd uint8, offset uint32) uint16 {
	return 0x4800 | uint16(rd&7)<<8 | uint16(offset>>2)&0xFF
}

// EncodeThumbLoadStoreReg encodes "LDR|STR{B} Rd, [Rb, Ro]".
func EncodeThumbLoadStoreReg(op Op, rd, rb, ro uint8) uint16 {
	half := 0x5000 | uint16(ro&7)<<6 | uint16(rb&7)<<3 | uint16(rd&7)
	switch op {
	case OpSTR:
	case OpSTRB:
		half |= 1 << 10
	case OpLDR:
		half |= 1 << 11
	case OpLDRB:
		half |= 1<<11 | 1<<10
	default:
		panic(fmt.Sprintf("insts: %v has no Thumb register-offset form", op))
	}
	return half
}

// EncodeThumbLoadStoreSignExt encodes "STRH|LDRH|LDSB|LDSH Rd, [Rb, Ro]".
func EncodeThumbLoadStoreSignExt(op Op, rd, rb, ro uint8) uint16 {
	half := 0x5200 | uint16(ro&7)<<6 | uint16(rb&7)<<3 | uint16(rd&7)
	switch op {
	case OpSTRH:
	case OpLDRH:
		half |= 1 << 11
	case OpLDRSB:
		half |= 1 << 10
	case OpLDRSH:
		half |= 1<<11 | 1<<10
	default:
		panic(fmt.Sprintf("insts: %v has no Thumb sign-extended form", op))
	}
	return half
}

// EncodeThumbLoadStoreImm encodes "LDR|STR{B} Rd, [Rb, #offset]" with the
// offset in bytes.
func EncodeThumbLoadStoreImm(op Op, rd, rb uint8, offset uint32) uint16 {
	half := 0x6000 | uint16(rb&7)<<3 | uint16(rd&7)
	switch op {
	case OpSTR:
		half |= uint16(offset>>2&0x1F) << 6
	case OpLDR:
		half |= 1<<11 | uint16(offset>>2&0x1F)<<6
	case OpSTRB:
		half |= 1<<12 | uint16(offset&0x1F)<<6
	case OpLDRB:
		half |= 1<<12 | 1<<11 | uint16(offset&0x1F)<<6
	default:
		panic(fmt.Sprintf("insts: %v has no Thumb immediate-offset form", op))
	}
	return half
}

// EncodeThumbLoadStoreHalf encodes "LDRH|STRH Rd, [Rb, #offset]".
func EncodeThumbLoadStoreHalf(load bool, rd, rb uint8, offset uint32) uint16 {
	half := 0x8000 | uint16(offset>>1&0x1F)<<6 | uint16(rb&7)<<3 | uint16(rd&7)
	if load {
		half |= 1 << 11
	}
	return half
}

// EncodeThumbSPLoadStore encodes "LDR|STR Rd, [SP, #offset]".
func EncodeThumbSPLoadStore(load bool, rd uint8, offset uint32) uint16 {
	half := 0x9000 | uint16(rd&7)<<8 | uint16(offset>>2)&0xFF
	if load {
		half |= 1 << 11
	}
	return half
}

// EncodeThumbLoadAddress encodes "ADD Rd, PC|SP, #offset".
func EncodeThumbLoadAddress(fromSP bool, rd uint8, offset uint32) uint16 {
	half := 0xA000 | uint16(rd&7)<<8 | uint16(offset>>2)&0xFF
	if fromSP {
		half |= 1 << 11
	}
	return half
}

// EncodeThumbAddSP encodes "ADD SP, #offset" for a signed byte offset.
func EncodeThumbAddSP(offset int32) uint16 {
	if offset < 0 {
		return 0xB080 | uint16(-offset>>2)&0x7F
	}
	return 0xB000 | uint16(offset>>2)&0x7F
}

// EncodeThumbPush encodes "PUSH {list{, LR}}".
func EncodeThumbPush(regList uint8, lr bool) uint16 {
	half := 0xB400 | uint16(regList)
	if lr {
		half |= 1 << 8
	}
	return half
}

// EncodeThumbPop encodes "POP {list{, PC}}".
func EncodeThumbPop(regList uint8, pc bool) uint16 {
	return EncodeThumbPush(regList, pc) | 1<<11
}

// EncodeThumbMultiple encodes "LDMIA|STMIA Rb!, {list}".
func EncodeThumbMultiple(load bool, rb, regList uint8) uint16 {
	half := 0xC000 | uint16(rb&7)<<8 | uint16(regList)
	if load {
		half |= 1 << 11
	}
	return half
}

// EncodeThumbCondBranch encodes "B<cond> label", offset relative to the
// branch instruction.
func EncodeThumbCondBranch(cond Cond, offset int32) uint16 {
	return 0xD000 | uint16(cond&0xF)<<8 | uint16((offset-4)>>1)&0xFF
}

// EncodeThumbSWI encodes "SWI call".
func EncodeThumbSWI(call uint8) uint16 {
	return 0xDF00 | uint16(call)
}

// EncodeThumbB encodes "B label", offset relative to the branch.
func EncodeThumbB(offset int32) uint16 {
	return 0xE000 | uint16((offset-4)>>1)&0x7FF
}

// EncodeThumbBL encodes the two halves of "BL label", offset relative to
// the first half.
func EncodeThumbBL(offset int32) (hi, lo uint16) {
	rel := uint32(offset - 4)
	hi = 0xF000 | uint16(rel>>12)&0x7FF
	lo = 0xF800 | uint16(rel>>1)&0x7FF
	return hi, lo
}
