package insts

import (
	"fmt"
	"strings"
)

var opNames = map[Op]string{
	OpUnknown: "???",
	OpAND:     "AND", OpEOR: "EOR", OpSUB: "SUB", OpRSB: "RSB",
	OpADD: "ADD", OpADC: "ADC", OpSBC: "SBC", OpRSC: "RSC",
	OpTST: "TST", OpTEQ: "TEQ", OpCMP: "CMP", OpCMN: "CMN",
	OpORR: "ORR", OpMOV: "MOV", OpBIC: "BIC", OpMVN: "MVN",
	OpMUL: "MUL", OpMLA: "MLA",
	OpUMULL: "UMULL", OpUMLAL: "UMLAL", OpSMULL: "SMULL", OpSMLAL: "SMLAL",
	OpLDR: "LDR", OpSTR: "STR", OpLDRB: "LDRB", OpSTRB: "STRB",
	OpLDRH: "LDRH", OpSTRH: "STRH", OpLDRSB: "LDRSB", OpLDRSH: "LDRSH",
	OpLDM: "LDM", OpSTM: "STM",
	OpB: "B", OpBL: "BL", OpBX: "BX",
	OpSWP: "SWP", OpSWPB: "SWPB",
	OpMRS: "MRS", OpMSR: "MSR",
	OpSWI: "SWI",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint16(op))
}

var condNames = [16]string{
	"EQ", "NE", "CS", "CC", "MI", "PL", "VS", "VC",
	"HI", "LS", "GE", "LT", "GT", "LE", "", "NV",
}

func (c Cond) String() string {
	return condNames[c&0xF]
}

var shiftNames = [...]string{"LSL", "LSR", "ASR", "ROR", "RRX"}

func (s ShiftType) String() string {
	if int(s) < len(shiftNames) {
		return shiftNames[s]
	}
	return fmt.Sprintf("Shift(%d)", uint8(s))
}

var formatNames = [...]string{
	"unknown", "data processing", "multiply", "multiply long",
	"single data transfer", "halfword transfer", "block data transfer",
	"branch", "branch and exchange", "swap", "PSR transfer",
	"software interrupt",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

func regName(r uint8) string {
	switch r {
	case 13:
		return "SP"
	case 14:
		return "LR"
	case 15:
		return "PC"
	}
	return fmt.Sprintf("R%d", r)
}

func regListString(list uint16) string {
	var regs []string
	for i := uint8(0); i < 16; i++ {
		if list&(1<<i) != 0 {
			regs = append(regs, regName(i))
		}
	}
	return "{" + strings.Join(regs, ", ") + "}"
}

func (inst *Instruction) operand2() string {
	if inst.Immediate {
		return fmt.Sprintf("#%#x", inst.Imm)
	}
	switch {
	case inst.ShiftByReg:
		return fmt.Sprintf("%s, %v %s", regName(inst.Rm), inst.ShiftType, regName(inst.Rs))
	case inst.ShiftType == ShiftRRX:
		return regName(inst.Rm) + ", RRX"
	case inst.ShiftAmount == 0:
		return regName(inst.Rm)
	}
	return fmt.Sprintf("%s, %v #%d", regName(inst.Rm), inst.ShiftType, inst.ShiftAmount)
}

func (inst *Instruction) address() string {
	sign := ""
	if !inst.Up {
		sign = "-"
	}

	var off string
	switch {
	case inst.Immediate && inst.Imm == 0:
		off = ""
	case inst.Immediate:
		off = fmt.Sprintf(", #%s%#x", sign, inst.Imm)
	default:
		off = ", " + sign + inst.operand2()
	}

	base := regName(inst.Rn)
	switch {
	case !inst.PreIndex:
		return fmt.Sprintf("[%s]%s", base, off)
	case inst.WriteBack:
		return fmt.Sprintf("[%s%s]!", base, off)
	}
	return fmt.Sprintf("[%s%s]", base, off)
}

// String returns an assembler-style rendering of the instruction.
func (inst *Instruction) String() string {
	mnemonic := inst.Op.String() + inst.Cond.String()
	if inst.SetFlags && !inst.Op.IsCompare() {
		mnemonic += "S"
	}

	switch inst.Format {
	case FormatDataProcessing:
		switch {
		case inst.Op.IsCompare():
			return fmt.Sprintf("%s %s, %s", mnemonic, regName(inst.Rn), inst.operand2())
		case inst.Op == OpMOV || inst.Op == OpMVN:
			return fmt.Sprintf("%s %s, %s", mnemonic, regName(inst.Rd), inst.operand2())
		}
		return fmt.Sprintf("%s %s, %s, %s", mnemonic, regName(inst.Rd), regName(inst.Rn), inst.operand2())

	case FormatMultiply:
		if inst.Accumulate {
			return fmt.Sprintf("%s %s, %s, %s, %s", mnemonic,
				regName(inst.Rd), regName(inst.Rm), regName(inst.Rs), regName(inst.Rn))
		}
		return fmt.Sprintf("%s %s, %s, %s", mnemonic, regName(inst.Rd), regName(inst.Rm), regName(inst.Rs))

	case FormatMultiplyLong:
		return fmt.Sprintf("%s %s, %s, %s, %s", mnemonic,
			regName(inst.Rn), regName(inst.Rd), regName(inst.Rm), regName(inst.Rs))

	case FormatSingleTransfer, FormatHalfwordTransfer:
		return fmt.Sprintf("%s %s, %s", mnemonic, regName(inst.Rd), inst.address())

	case FormatBlockTransfer:
		mode := map[[2]bool]string{
			{false, true}: "IA", {true, true}: "IB",
			{false, false}: "DA", {true, false}: "DB",
		}[[2]bool{inst.PreIndex, inst.Up}]
		wb, hat := "", ""
		if inst.WriteBack {
			wb = "!"
		}
		if inst.UserBank {
			hat = "^"
		}
		return fmt.Sprintf("%s%s %s%s, %s%s", inst.Op, mode+inst.Cond.String(),
			regName(inst.Rn), wb, regListString(inst.RegList), hat)

	case FormatBranch:
		return fmt.Sprintf("%s PC%+d", mnemonic, inst.BranchOffset+8)

	case FormatBranchExchange:
		return fmt.Sprintf("%s %s", mnemonic, regName(inst.Rm))

	case FormatSwap:
		return fmt.Sprintf("%s %s, %s, [%s]", mnemonic, regName(inst.Rd), regName(inst.Rm), regName(inst.Rn))

	case FormatPSRTransfer:
		psr := "CPSR"
		if inst.SPSR {
			psr = "SPSR"
		}
		if inst.Op == OpMRS {
			return fmt.Sprintf("%s %s, %s", mnemonic, regName(inst.Rd), psr)
		}
		fields := ""
		for i, f := range "cxsf" {
			if inst.FieldMask&(1<<i) != 0 {
				fields += string(f)
			}
		}
		src := regName(inst.Rm)
		if inst.Immediate {
			src = fmt.Sprintf("#%#x", inst.Imm)
		}
		return fmt.Sprintf("%s %s_%s, %s", mnemonic, psr, fields, src)

	case FormatSWI:
		return fmt.Sprintf("%s %#x", mnemonic, inst.Imm)
	}

	return fmt.Sprintf("<undefined %#08x>", inst.Word)
}

var thumbFormatNames = [...]string{
	"unknown", "move shifted register", "add/subtract",
	"move/compare/add/subtract immediate", "ALU operations",
	"hi register operations", "PC-relative load",
	"load/store register offset", "load/store sign-extended",
	"load/store immediate offset", "load/store halfword",
	"SP-relative load/store", "load address", "add offset to SP",
	"push/pop", "multiple load/store", "conditional branch",
	"software interrupt", "unconditional branch", "long branch with link",
}

func (f ThumbFormat) String() string {
	if int(f) < len(thumbFormatNames) {
		return thumbFormatNames[f]
	}
	return fmt.Sprintf("ThumbFormat(%d)", uint8(f))
}

var thumbALUNames = [16]string{
	"AND", "EOR", "LSL", "LSR", "ASR", "ADC", "SBC", "ROR",
	"TST", "NEG", "CMP", "CMN", "ORR", "MUL", "BIC", "MVN",
}

// String returns an assembler-style rendering of the Thumb instruction.
func (inst *ThumbInstruction) String() string {
	rd, rn, rm := regName(inst.Rd), regName(inst.Rn), regName(inst.Rm)

	switch inst.Format {
	case ThumbFormatMoveShifted:
		return fmt.Sprintf("%v %s, %s, #%d", inst.ShiftType, rd, rm, inst.Imm)
	case ThumbFormatAddSubtract:
		if inst.Immediate {
			return fmt.Sprintf("%v %s, %s, #%d", inst.Op, rd, rn, inst.Imm)
		}
		return fmt.Sprintf("%v %s, %s, %s", inst.Op, rd, rn, rm)
	case ThumbFormatImmediate:
		return fmt.Sprintf("%v %s, #%d", inst.Op, rd, inst.Imm)
	case ThumbFormatALU:
		return fmt.Sprintf("%s %s, %s", thumbALUNames[inst.Opcode], rd, rm)
	case ThumbFormatHiRegister:
		if inst.Op == OpBX {
			return "BX " + rm
		}
		return fmt.Sprintf("%v %s, %s", inst.Op, rd, rm)
	case ThumbFormatLoadStoreRegister, ThumbFormatLoadStoreSignExt:
		return fmt.Sprintf("%v %s, [%s, %s]", inst.Op, rd, rn, rm)
	case ThumbFormatPCRelativeLoad, ThumbFormatLoadStoreImmediate,
		ThumbFormatLoadStoreHalfword, ThumbFormatSPRelative:
		return fmt.Sprintf("%v %s, [%s, #%#x]", inst.Op, rd, rn, inst.Imm)
	case ThumbFormatLoadAddress:
		return fmt.Sprintf("ADD %s, %s, #%#x", rd, rn, inst.Imm)
	case ThumbFormatAddOffsetSP:
		return fmt.Sprintf("%v SP, #%#x", inst.Op, inst.Imm)
	case ThumbFormatPushPop:
		list := uint16(inst.RegList)
		name := "PUSH"
		if inst.Load {
			name = "POP"
		}
		if inst.ExtraReg {
			if inst.Load {
				list |= 1 << 15
			} else {
				list |= 1 << 14
			}
		}
		return name + " " + regListString(list)
	case ThumbFormatMultiple:
		return fmt.Sprintf("%vIA %s!, %s", inst.Op, rn, regListString(uint16(inst.RegList)))
	case ThumbFormatCondBranch:
		return fmt.Sprintf("B%v PC%+d", inst.Cond, inst.Offset+4)
	case ThumbFormatSWI:
		return fmt.Sprintf("SWI %#x", inst.Imm)
	case ThumbFormatBranch:
		return fmt.Sprintf("B PC%+d", inst.Offset+4)
	case ThumbFormatLongBranchLink:
		if inst.High {
			return fmt.Sprintf("BL(lo) LR%+d", inst.Offset)
		}
		return fmt.Sprintf("BL(hi) PC%+d", inst.Offset)
	}
	return fmt.Sprintf("<undefined %#04x>", inst.Half)
}
