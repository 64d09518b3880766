package insts

// ThumbFormat represents one of the nineteen Thumb encoding formats.
type ThumbFormat uint8

// Thumb formats, numbered as in the ARM7TDMI data sheet.
const (
	ThumbFormatUnknown           ThumbFormat = iota
	ThumbFormatMoveShifted                   // 1: LSL/LSR/ASR Rd, Rs, #imm
	ThumbFormatAddSubtract                   // 2: ADD/SUB Rd, Rs, Rn|#imm3
	ThumbFormatImmediate                     // 3: MOV/CMP/ADD/SUB Rd, #imm8
	ThumbFormatALU                           // 4: two-register ALU operations
	ThumbFormatHiRegister                    // 5: ADD/CMP/MOV on high registers, BX
	ThumbFormatPCRelativeLoad                // 6: LDR Rd, [PC, #imm]
	ThumbFormatLoadStoreRegister             // 7: LDR/STR{B} Rd, [Rb, Ro]
	ThumbFormatLoadStoreSignExt              // 8: STRH/LDRH/LDSB/LDSH Rd, [Rb, Ro]
	ThumbFormatLoadStoreImmediate            // 9: LDR/STR{B} Rd, [Rb, #imm]
	ThumbFormatLoadStoreHalfword             // 10: LDRH/STRH Rd, [Rb, #imm]
	ThumbFormatSPRelative                    // 11: LDR/STR Rd, [SP, #imm]
	ThumbFormatLoadAddress                   // 12: ADD Rd, PC|SP, #imm
	ThumbFormatAddOffsetSP                   // 13: ADD SP, #±imm
	ThumbFormatPushPop                       // 14: PUSH/POP {Rlist, LR|PC}
	ThumbFormatMultiple                      // 15: LDMIA/STMIA Rb!, {Rlist}
	ThumbFormatCondBranch                    // 16: B<cond> label
	ThumbFormatSWI                           // 17: SWI imm8
	ThumbFormatBranch                        // 18: B label
	ThumbFormatLongBranchLink                // 19: BL label (two halves)
)

// Thumb ALU sub-operations (format 4), in encoding order.
const (
	ThumbALUAND uint8 = iota
	ThumbALUEOR
	ThumbALULSL
	ThumbALULSR
	ThumbALUASR
	ThumbALUADC
	ThumbALUSBC
	ThumbALUROR
	ThumbALUTST
	ThumbALUNEG
	ThumbALUCMP
	ThumbALUCMN
	ThumbALUORR
	ThumbALUMUL
	ThumbALUBIC
	ThumbALUMVN
)

var thumbALUOps = [16]Op{
	OpAND, OpEOR, OpMOV, OpMOV, OpMOV, OpADC, OpSBC, OpMOV,
	OpTST, OpRSB, OpCMP, OpCMN, OpORR, OpMUL, OpBIC, OpMVN,
}

var thumbALUShifts = map[uint8]ShiftType{
	ThumbALULSL: ShiftLSL,
	ThumbALULSR: ShiftLSR,
	ThumbALUASR: ShiftASR,
	ThumbALUROR: ShiftROR,
}

// ThumbInstruction represents a decoded 16-bit Thumb instruction.
//
// Register roles are normalised across formats: Rd is the destination (or
// the transferred register), Rn the first operand or base register, and Rm
// the second operand or offset register.
type ThumbInstruction struct {
	Half   uint16
	Format ThumbFormat
	Op     Op    // Equivalent ARM operation
	Opcode uint8 // Raw format-specific opcode field
	Cond   Cond

	Rd uint8
	Rn uint8
	Rm uint8

	Immediate bool
	Imm       uint32 // Immediate, already scaled to bytes
	ShiftType ShiftType

	Load      bool
	Byte      bool
	Halfword  bool
	Signed    bool
	RegList   uint8
	ExtraReg  bool  // R bit of PUSH/POP: also LR (push) or PC (pop)
	High      bool  // Second half of a long branch with link
	Offset    int32 // Branch offset in bytes
}

// ThumbPattern is one entry of the Thumb classification table.
type ThumbPattern struct {
	Name   string
	Mask   uint16
	Value  uint16
	Format ThumbFormat
}

// Matches reports whether half belongs to the pattern.
func (p ThumbPattern) Matches(half uint16) bool {
	return half&p.Mask == p.Value
}

// thumbPatterns is evaluated in order; narrower masks come first where two
// formats share a prefix.
var thumbPatterns = []ThumbPattern{
	{"software interrupt", 0xFF00, 0xDF00, ThumbFormatSWI},
	{"unconditional branch", 0xF800, 0xE000, ThumbFormatBranch},
	{"conditional branch", 0xF000, 0xD000, ThumbFormatCondBranch},
	{"multiple load/store", 0xF000, 0xC000, ThumbFormatMultiple},
	{"long branch with link", 0xF000, 0xF000, ThumbFormatLongBranchLink},
	{"add offset to SP", 0xFF00, 0xB000, ThumbFormatAddOffsetSP},
	{"push/pop", 0xF600, 0xB400, ThumbFormatPushPop},
	{"load/store halfword", 0xF000, 0x8000, ThumbFormatLoadStoreHalfword},
	{"SP-relative load/store", 0xF000, 0x9000, ThumbFormatSPRelative},
	{"load address", 0xF000, 0xA000, ThumbFormatLoadAddress},
	{"load/store immediate offset", 0xE000, 0x6000, ThumbFormatLoadStoreImmediate},
	{"load/store register offset", 0xF200, 0x5000, ThumbFormatLoadStoreRegister},
	{"load/store sign-extended", 0xF200, 0x5200, ThumbFormatLoadStoreSignExt},
	{"PC-relative load", 0xF800, 0x4800, ThumbFormatPCRelativeLoad},
	{"hi register operations", 0xFC00, 0x4400, ThumbFormatHiRegister},
	{"ALU operations", 0xFC00, 0x4000, ThumbFormatALU},
	{"move/compare/add/subtract immediate", 0xE000, 0x2000, ThumbFormatImmediate},
	{"add/subtract", 0xF800, 0x1800, ThumbFormatAddSubtract},
	{"move shifted register", 0xE000, 0x0000, ThumbFormatMoveShifted},
}

// ThumbDecoder decodes Thumb machine code.
type ThumbDecoder struct {
	patterns []ThumbPattern
}

// NewThumbDecoder creates a new Thumb instruction decoder.
func NewThumbDecoder() *ThumbDecoder {
	return &ThumbDecoder{patterns: thumbPatterns}
}

// Table returns a copy of the classification table in priority order.
func (d *ThumbDecoder) Table() []ThumbPattern {
	table := make([]ThumbPattern, len(d.patterns))
	copy(table, d.patterns)
	return table
}

// Decode decodes a 16-bit Thumb instruction.
func (d *ThumbDecoder) Decode(half uint16) *ThumbInstruction {
	inst := &ThumbInstruction{
		Half: half,
		Op:   OpUnknown,
		Cond: CondAL,
	}

	for _, p := range d.patterns {
		if p.Matches(half) {
			inst.Format = p.Format
			break
		}
	}

	lo3 := func(shift uint) uint8 { return uint8(half>>shift) & 0x7 }

	switch inst.Format {
	case ThumbFormatMoveShifted:
		inst.Op = OpMOV
		inst.Opcode = uint8(half>>11) & 0x3
		inst.ShiftType = ShiftType(inst.Opcode)
		inst.Immediate = true
		inst.Imm = uint32(half>>6) & 0x1F
		inst.Rm = lo3(3)
		inst.Rd = lo3(0)

	case ThumbFormatAddSubtract:
		inst.Opcode = uint8(half>>9) & 0x1
		inst.Op = OpADD
		if inst.Opcode == 1 {
			inst.Op = OpSUB
		}
		inst.Immediate = half&(1<<10) != 0
		if inst.Immediate {
			inst.Imm = uint32(lo3(6))
		} else {
			inst.Rm = lo3(6)
		}
		inst.Rn = lo3(3)
		inst.Rd = lo3(0)

	case ThumbFormatImmediate:
		inst.Opcode = uint8(half>>11) & 0x3
		inst.Op = [4]Op{OpMOV, OpCMP, OpADD, OpSUB}[inst.Opcode]
		inst.Rd = lo3(8)
		inst.Rn = inst.Rd
		inst.Immediate = true
		inst.Imm = uint32(half & 0xFF)

	case ThumbFormatALU:
		inst.Opcode = uint8(half>>6) & 0xF
		inst.Op = thumbALUOps[inst.Opcode]
		if st, ok := thumbALUShifts[inst.Opcode]; ok {
			inst.ShiftType = st
		}
		inst.Rm = lo3(3)
		inst.Rd = lo3(0)
		inst.Rn = inst.Rd

	case ThumbFormatHiRegister:
		inst.Opcode = uint8(half>>8) & 0x3
		inst.Op = [4]Op{OpADD, OpCMP, OpMOV, OpBX}[inst.Opcode]
		inst.Rd = lo3(0)
		if half&(1<<7) != 0 {
			inst.Rd += 8
		}
		inst.Rm = lo3(3)
		if half&(1<<6) != 0 {
			inst.Rm += 8
		}
		inst.Rn = inst.Rd

	case ThumbFormatPCRelativeLoad:
		inst.Op = OpLDR
		inst.Load = true
		inst.Rd = lo3(8)
		inst.Rn = 15
		inst.Immediate = true
		inst.Imm = uint32(half&0xFF) << 2

	case ThumbFormatLoadStoreRegister:
		inst.Load = half&(1<<11) != 0
		inst.Byte = half&(1<<10) != 0
		inst.Op = transferOp(inst.Load, inst.Byte)
		inst.Rm = lo3(6)
		inst.Rn = lo3(3)
		inst.Rd = lo3(0)

	case ThumbFormatLoadStoreSignExt:
		h := half&(1<<11) != 0
		s := half&(1<<10) != 0
		switch {
		case !s && !h:
			inst.Op = OpSTRH
		case !s && h:
			inst.Op, inst.Load = OpLDRH, true
		case s && !h:
			inst.Op, inst.Load, inst.Byte = OpLDRSB, true, true
		default:
			inst.Op, inst.Load = OpLDRSH, true
		}
		inst.Signed = s
		inst.Halfword = inst.Op != OpLDRSB
		inst.Rm = lo3(6)
		inst.Rn = lo3(3)
		inst.Rd = lo3(0)

	case ThumbFormatLoadStoreImmediate:
		inst.Byte = half&(1<<12) != 0
		inst.Load = half&(1<<11) != 0
		inst.Op = transferOp(inst.Load, inst.Byte)
		inst.Immediate = true
		inst.Imm = uint32(half>>6) & 0x1F
		if !inst.Byte {
			inst.Imm <<= 2
		}
		inst.Rn = lo3(3)
		inst.Rd = lo3(0)

	case ThumbFormatLoadStoreHalfword:
		inst.Load = half&(1<<11) != 0
		inst.Halfword = true
		inst.Op = OpSTRH
		if inst.Load {
			inst.Op = OpLDRH
		}
		inst.Immediate = true
		inst.Imm = (uint32(half>>6) & 0x1F) << 1
		inst.Rn = lo3(3)
		inst.Rd = lo3(0)

	case ThumbFormatSPRelative:
		inst.Load = half&(1<<11) != 0
		inst.Op = transferOp(inst.Load, false)
		inst.Rd = lo3(8)
		inst.Rn = 13
		inst.Immediate = true
		inst.Imm = uint32(half&0xFF) << 2

	case ThumbFormatLoadAddress:
		inst.Op = OpADD
		inst.Rd = lo3(8)
		inst.Rn = 15
		if half&(1<<11) != 0 {
			inst.Rn = 13
		}
		inst.Immediate = true
		inst.Imm = uint32(half&0xFF) << 2

	case ThumbFormatAddOffsetSP:
		inst.Op = OpADD
		if half&(1<<7) != 0 {
			inst.Op = OpSUB
		}
		inst.Rd, inst.Rn = 13, 13
		inst.Immediate = true
		inst.Imm = uint32(half&0x7F) << 2

	case ThumbFormatPushPop:
		inst.Load = half&(1<<11) != 0
		inst.Op = OpSTM
		if inst.Load {
			inst.Op = OpLDM
		}
		inst.Rn = 13
		inst.ExtraReg = half&(1<<8) != 0
		inst.RegList = uint8(half)

	case ThumbFormatMultiple:
		inst.Load = half&(1<<11) != 0
		inst.Op = OpSTM
		if inst.Load {
			inst.Op = OpLDM
		}
		inst.Rn = lo3(8)
		inst.RegList = uint8(half)

	case ThumbFormatCondBranch:
		inst.Cond = Cond(half>>8) & 0xF
		if inst.Cond == CondAL {
			// 1110 is undefined in this format.
			inst.Format = ThumbFormatUnknown
			inst.Cond = CondAL
			break
		}
		inst.Op = OpB
		inst.Offset = int32(int8(half)) << 1

	case ThumbFormatSWI:
		inst.Op = OpSWI
		inst.Imm = uint32(half & 0xFF)

	case ThumbFormatBranch:
		inst.Op = OpB
		inst.Offset = int32(uint32(half)<<21) >> 20

	case ThumbFormatLongBranchLink:
		inst.Op = OpBL
		inst.High = half&(1<<11) != 0
		inst.Imm = uint32(half & 0x7FF)
		if inst.High {
			inst.Offset = int32(inst.Imm << 1)
		} else {
			inst.Offset = int32(inst.Imm<<21) >> 9
		}
	}

	return inst
}

func transferOp(load, byteAccess bool) Op {
	switch {
	case load && byteAccess:
		return OpLDRB
	case load:
		return OpLDR
	case byteAccess:
		return OpSTRB
	default:
		return OpSTR
	}
}
