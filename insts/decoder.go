// Package insts provides ARMv4T instruction definitions and decoding.
package insts

// Op represents an ARM opcode.
type Op uint16

// ARM opcodes. The sixteen data-processing opcodes are laid out in
// encoding order so that OpAND+opcode yields the operation.
const (
	OpUnknown Op = iota
	OpAND
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
	OpMUL
	OpMLA
	OpUMULL
	OpUMLAL
	OpSMULL
	OpSMLAL
	OpLDR
	OpSTR
	OpLDRB
	OpSTRB
	OpLDRH
	OpSTRH
	OpLDRSB
	OpLDRSH
	OpLDM
	OpSTM
	OpB
	OpBL
	OpBX
	OpSWP
	OpSWPB
	OpMRS
	OpMSR
	OpSWI
)

// IsCompare reports whether op only updates flags (TST, TEQ, CMP, CMN).
func (op Op) IsCompare() bool {
	return op >= OpTST && op <= OpCMN
}

// IsLogical reports whether op is a logical data-processing operation whose
// carry flag comes from the barrel shifter.
func (op Op) IsLogical() bool {
	switch op {
	case OpAND, OpEOR, OpTST, OpTEQ, OpORR, OpMOV, OpBIC, OpMVN:
		return true
	default:
		return false
	}
}

// Format represents an instruction encoding family.
type Format uint8

// Instruction formats.
const (
	FormatUnknown          Format = iota
	FormatDataProcessing          // AND..MVN
	FormatMultiply                // MUL, MLA
	FormatMultiplyLong            // UMULL, UMLAL, SMULL, SMLAL
	FormatSingleTransfer          // LDR, STR, LDRB, STRB
	FormatHalfwordTransfer        // LDRH, STRH, LDRSB, LDRSH
	FormatBlockTransfer           // LDM, STM
	FormatBranch                  // B, BL
	FormatBranchExchange          // BX
	FormatSwap                    // SWP, SWPB
	FormatPSRTransfer             // MRS, MSR
	FormatSWI                     // SWI
)

// Cond represents an ARM condition code.
type Cond uint8

// ARM condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Treated as always, like the ARM7TDMI silicon
)

// ShiftType represents a barrel shifter operation.
type ShiftType uint8

// Shift types. ShiftRRX is not an encoding of its own: the decoder produces
// it for an immediate "ROR #0".
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right
	ShiftRRX ShiftType = 0b100
)

// Instruction represents a decoded ARM instruction.
type Instruction struct {
	Word   uint32 // Raw instruction word
	Op     Op     // Operation code
	Format Format // Encoding family
	Cond   Cond   // Condition code

	// Register fields
	SetFlags bool  // S bit
	Rd       uint8 // Destination register (RdHi for long multiplies)
	Rn       uint8 // First operand / base register (RdLo for long multiplies)
	Rm       uint8 // Second operand / offset register
	Rs       uint8 // Shift-amount or multiplier register

	// Immediate operand. For data processing and MSR this is the already
	// rotated value, for transfers the unsigned offset, for block transfers
	// unused, and for SWI the call number.
	Immediate bool
	Imm       uint32
	Rotate    uint8 // Rotation applied to the 8-bit immediate (0..30)

	// Shifted register operand
	ShiftType   ShiftType
	ShiftAmount uint8
	ShiftByReg  bool

	// Transfer fields
	PreIndex  bool   // P bit
	Up        bool   // U bit
	WriteBack bool   // W bit
	Load      bool   // L bit
	UserBank  bool   // S bit of block transfers
	RegList   uint16 // Block transfer register list

	// Multiply fields
	Accumulate bool
	Signed     bool

	// Branch fields
	BranchOffset int32

	// PSR transfer fields
	SPSR      bool  // R bit: use the saved status register
	FieldMask uint8 // MSR field mask (f, s, x, c)
}

// Pattern is one entry of the ARM classification table. A word belongs to
// the first pattern for which word&Mask == Value.
type Pattern struct {
	Name   string
	Mask   uint32
	Value  uint32
	Format Format
}

// Matches reports whether word belongs to the pattern.
func (p Pattern) Matches(word uint32) bool {
	return word&p.Mask == p.Value
}

// armPatterns is evaluated in order. The multiply shapes and the other
// bit-7/bit-4 carve-outs must precede the data-processing fallthrough.
var armPatterns = []Pattern{
	{"multiply", 0x0FC000F0, 0x00000090, FormatMultiply},
	{"multiply long", 0x0F8000F0, 0x00800090, FormatMultiplyLong},
	{"halfword unsigned", 0x0E0000F0, 0x000000B0, FormatHalfwordTransfer},
	{"signed byte", 0x0E0000F0, 0x000000D0, FormatHalfwordTransfer},
	{"signed halfword", 0x0E0000F0, 0x000000F0, FormatHalfwordTransfer},
	{"single data swap", 0x0FB00FF0, 0x01000090, FormatSwap},
	{"mrs", 0x0FBF0FFF, 0x010F0000, FormatPSRTransfer},
	{"msr immediate", 0x0FB0F000, 0x0320F000, FormatPSRTransfer},
	{"msr", 0x0FB0FFF0, 0x0120F000, FormatPSRTransfer},
	{"branch and exchange", 0x0FFFFFF0, 0x012FFF10, FormatBranchExchange},
	{"data processing", 0x0C000000, 0x00000000, FormatDataProcessing},
	{"undefined", 0x0E000010, 0x06000010, FormatUnknown},
	{"single data transfer", 0x0C000000, 0x04000000, FormatSingleTransfer},
	{"block data transfer", 0x0E000000, 0x08000000, FormatBlockTransfer},
	{"branch", 0x0E000000, 0x0A000000, FormatBranch},
	{"software interrupt", 0x0F000000, 0x0F000000, FormatSWI},
}

// Decoder decodes ARM machine code into instructions.
type Decoder struct {
	patterns []Pattern
}

// NewDecoder creates a new ARM instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{patterns: armPatterns}
}

// Table returns a copy of the classification table in priority order.
func (d *Decoder) Table() []Pattern {
	table := make([]Pattern, len(d.patterns))
	copy(table, d.patterns)
	return table
}

// Classify returns the first pattern matching word, or false if the word
// falls outside every family (coprocessor space, undefined space).
func (d *Decoder) Classify(word uint32) (Pattern, bool) {
	for _, p := range d.patterns {
		if p.Matches(word) {
			return p, p.Format != FormatUnknown
		}
	}
	return Pattern{Name: "unknown"}, false
}

// Decode decodes a 32-bit ARM instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Word:   word,
		Op:     OpUnknown,
		Format: FormatUnknown,
		Cond:   Cond(word >> 28),
	}

	p, ok := d.Classify(word)
	if !ok {
		return inst
	}
	inst.Format = p.Format

	switch p.Format {
	case FormatDataProcessing:
		d.decodeDataProcessing(word, inst)
	case FormatMultiply:
		d.decodeMultiply(word, inst)
	case FormatMultiplyLong:
		d.decodeMultiplyLong(word, inst)
	case FormatSingleTransfer:
		d.decodeSingleTransfer(word, inst)
	case FormatHalfwordTransfer:
		d.decodeHalfwordTransfer(word, inst)
	case FormatBlockTransfer:
		d.decodeBlockTransfer(word, inst)
	case FormatBranch:
		d.decodeBranch(word, inst)
	case FormatBranchExchange:
		inst.Op = OpBX
		inst.Rm = uint8(word & 0xF)
	case FormatSwap:
		d.decodeSwap(word, inst)
	case FormatPSRTransfer:
		d.decodePSRTransfer(word, inst)
	case FormatSWI:
		inst.Op = OpSWI
		inst.Imm = (word >> 16) & 0xFF
	}

	return inst
}

func bit(word uint32, n uint) bool {
	return word&(1<<n) != 0
}

// decodeShiftedRegister extracts the "Rm, shift" operand shared by data
// processing and single data transfer.
// Format: shift amount (11:7) | type (6:5) | 0 | Rm
//
//	or: Rs (11:8) | 0 | type (6:5) | 1 | Rm
func decodeShiftedRegister(word uint32, inst *Instruction) {
	inst.Rm = uint8(word & 0xF)
	inst.ShiftType = ShiftType((word >> 5) & 0x3)

	if bit(word, 4) {
		inst.ShiftByReg = true
		inst.Rs = uint8((word >> 8) & 0xF)
		return
	}

	amount := uint8((word >> 7) & 0x1F)
	if amount == 0 {
		switch inst.ShiftType {
		case ShiftLSR, ShiftASR:
			amount = 32
		case ShiftROR:
			inst.ShiftType = ShiftRRX
			amount = 1
		}
	}
	inst.ShiftAmount = amount
}

// rotatedImmediate expands the 8-bit immediate with its 4-bit rotate field.
func rotatedImmediate(word uint32) (uint32, uint8) {
	imm := word & 0xFF
	rot := uint8((word>>8)&0xF) * 2
	if rot == 0 {
		return imm, 0
	}
	return (imm >> rot) | (imm << (32 - rot)), rot
}

// decodeDataProcessing decodes data processing instructions.
// Format: cond | 00 | I | opcode | S | Rn | Rd | operand2
func (d *Decoder) decodeDataProcessing(word uint32, inst *Instruction) {
	inst.Op = OpAND + Op((word>>21)&0xF)
	inst.SetFlags = bit(word, 20)
	inst.Rn = uint8((word >> 16) & 0xF)
	inst.Rd = uint8((word >> 12) & 0xF)

	if bit(word, 25) {
		inst.Immediate = true
		inst.Imm, inst.Rotate = rotatedImmediate(word)
		return
	}
	decodeShiftedRegister(word, inst)
}

// decodeMultiply decodes MUL and MLA.
// Format: cond | 000000 | A | S | Rd | Rn | Rs | 1001 | Rm
func (d *Decoder) decodeMultiply(word uint32, inst *Instruction) {
	inst.Accumulate = bit(word, 21)
	inst.SetFlags = bit(word, 20)
	inst.Rd = uint8((word >> 16) & 0xF)
	inst.Rn = uint8((word >> 12) & 0xF)
	inst.Rs = uint8((word >> 8) & 0xF)
	inst.Rm = uint8(word & 0xF)

	inst.Op = OpMUL
	if inst.Accumulate {
		inst.Op = OpMLA
	}
}

// decodeMultiplyLong decodes UMULL, UMLAL, SMULL and SMLAL.
// Format: cond | 00001 | U | A | S | RdHi | RdLo | Rs | 1001 | Rm
func (d *Decoder) decodeMultiplyLong(word uint32, inst *Instruction) {
	inst.Signed = bit(word, 22)
	inst.Accumulate = bit(word, 21)
	inst.SetFlags = bit(word, 20)
	inst.Rd = uint8((word >> 16) & 0xF) // RdHi
	inst.Rn = uint8((word >> 12) & 0xF) // RdLo
	inst.Rs = uint8((word >> 8) & 0xF)
	inst.Rm = uint8(word & 0xF)

	switch {
	case inst.Signed && inst.Accumulate:
		inst.Op = OpSMLAL
	case inst.Signed:
		inst.Op = OpSMULL
	case inst.Accumulate:
		inst.Op = OpUMLAL
	default:
		inst.Op = OpUMULL
	}
}

// decodeSingleTransfer decodes LDR, STR, LDRB and STRB.
// Format: cond | 01 | I | P | U | B | W | L | Rn | Rd | offset
func (d *Decoder) decodeSingleTransfer(word uint32, inst *Instruction) {
	inst.PreIndex = bit(word, 24)
	inst.Up = bit(word, 23)
	byteAccess := bit(word, 22)
	inst.WriteBack = bit(word, 21)
	inst.Load = bit(word, 20)
	inst.Rn = uint8((word >> 16) & 0xF)
	inst.Rd = uint8((word >> 12) & 0xF)

	// The I bit is inverted here: set means a register offset.
	if bit(word, 25) {
		decodeShiftedRegister(word, inst)
	} else {
		inst.Immediate = true
		inst.Imm = word & 0xFFF
	}

	switch {
	case inst.Load && byteAccess:
		inst.Op = OpLDRB
	case inst.Load:
		inst.Op = OpLDR
	case byteAccess:
		inst.Op = OpSTRB
	default:
		inst.Op = OpSTR
	}
}

// decodeHalfwordTransfer decodes LDRH, STRH, LDRSB and LDRSH.
// Format: cond | 000 | P | U | I | W | L | Rn | Rd | offHi | 1 | S | H | 1 | offLo/Rm
func (d *Decoder) decodeHalfwordTransfer(word uint32, inst *Instruction) {
	inst.PreIndex = bit(word, 24)
	inst.Up = bit(word, 23)
	inst.Immediate = bit(word, 22)
	inst.WriteBack = bit(word, 21)
	inst.Load = bit(word, 20)
	inst.Rn = uint8((word >> 16) & 0xF)
	inst.Rd = uint8((word >> 12) & 0xF)

	if inst.Immediate {
		inst.Imm = ((word >> 4) & 0xF0) | (word & 0xF)
	} else {
		inst.Rm = uint8(word & 0xF)
	}

	sh := (word >> 5) & 0x3
	switch {
	case inst.Load && sh == 0b01:
		inst.Op = OpLDRH
	case inst.Load && sh == 0b10:
		inst.Op = OpLDRSB
		inst.Signed = true
	case inst.Load && sh == 0b11:
		inst.Op = OpLDRSH
		inst.Signed = true
	case sh == 0b01:
		inst.Op = OpSTRH
	default:
		// Signed stores do not exist on ARMv4T; the executor ignores them.
		inst.Op = OpUnknown
	}
}

// decodeBlockTransfer decodes LDM and STM.
// Format: cond | 100 | P | U | S | W | L | Rn | register list
func (d *Decoder) decodeBlockTransfer(word uint32, inst *Instruction) {
	inst.PreIndex = bit(word, 24)
	inst.Up = bit(word, 23)
	inst.UserBank = bit(word, 22)
	inst.WriteBack = bit(word, 21)
	inst.Load = bit(word, 20)
	inst.Rn = uint8((word >> 16) & 0xF)
	inst.RegList = uint16(word)

	inst.Op = OpSTM
	if inst.Load {
		inst.Op = OpLDM
	}
}

// decodeBranch decodes B and BL.
// Format: cond | 101 | L | offset (24-bit signed word offset)
func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	inst.Op = OpB
	if bit(word, 24) {
		inst.Op = OpBL
	}
	// Sign-extend the 24-bit offset, then scale to bytes.
	inst.BranchOffset = int32(word<<8) >> 6
}

// decodeSwap decodes SWP and SWPB.
// Format: cond | 00010 | B | 00 | Rn | Rd | 0000 | 1001 | Rm
func (d *Decoder) decodeSwap(word uint32, inst *Instruction) {
	inst.Op = OpSWP
	if bit(word, 22) {
		inst.Op = OpSWPB
	}
	inst.Rn = uint8((word >> 16) & 0xF)
	inst.Rd = uint8((word >> 12) & 0xF)
	inst.Rm = uint8(word & 0xF)
}

// decodePSRTransfer decodes MRS and MSR.
// MRS: cond | 00010 | R | 001111 | Rd | 000000000000
// MSR: cond | 00 | I | 10 | R | 10 | mask | 1111 | operand
func (d *Decoder) decodePSRTransfer(word uint32, inst *Instruction) {
	inst.SPSR = bit(word, 22)

	if !bit(word, 21) {
		inst.Op = OpMRS
		inst.Rd = uint8((word >> 12) & 0xF)
		return
	}

	inst.Op = OpMSR
	inst.FieldMask = uint8((word >> 16) & 0xF)
	if bit(word, 25) {
		inst.Immediate = true
		inst.Imm, inst.Rotate = rotatedImmediate(word)
	} else {
		inst.Rm = uint8(word & 0xF)
	}
}
