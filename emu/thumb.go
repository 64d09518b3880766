package emu

import (
	"github.com/sarchlab/gbasim/insts"
)

// executeThumb executes one Thumb instruction fetched from pc. R15 already
// reads as pc+4.
func (e *Emulator) executeThumb(half uint16, pc uint32) (uint64, insts.Op) {
	inst := e.thumbDecoder.Decode(half)
	rf := e.regFile
	carry := rf.CPSR.C()
	cycles := e.latency.OpLatency(inst.Op)

	if log := e.logger.V(3); log.Enabled() {
		log.Info("exec", "pc", hex32(pc), "inst", inst.String())
	}

	switch inst.Format {
	case insts.ThumbFormatMoveShifted:
		amount := inst.Imm
		if amount == 0 && inst.ShiftType != insts.ShiftLSL {
			amount = 32
		}
		v, c := Shift(rf.ReadReg(inst.Rm), inst.ShiftType, amount, carry)
		e.writeALU(inst.Rd, e.alu.Compute(insts.OpMOV, 0, v, c))

	case insts.ThumbFormatAddSubtract:
		op2 := inst.Imm
		if !inst.Immediate {
			op2 = rf.ReadReg(inst.Rm)
		}
		e.writeALU(inst.Rd, e.alu.Compute(inst.Op, rf.ReadReg(inst.Rn), op2, carry))

	case insts.ThumbFormatImmediate:
		res := e.alu.Compute(inst.Op, rf.ReadReg(inst.Rd), inst.Imm, carry)
		if inst.Op == insts.OpCMP {
			e.alu.SetFlags(res)
		} else {
			e.writeALU(inst.Rd, res)
		}

	case insts.ThumbFormatALU:
		cycles = e.thumbALU(inst)

	case insts.ThumbFormatHiRegister:
		rd, rm := rf.ReadReg(inst.Rd), rf.ReadReg(inst.Rm)
		switch inst.Op {
		case insts.OpADD:
			rf.WriteReg(inst.Rd, rd+rm)
		case insts.OpCMP:
			e.alu.SetFlags(e.alu.Compute(insts.OpCMP, rd, rm, carry))
		case insts.OpMOV:
			rf.WriteReg(inst.Rd, rm)
		case insts.OpBX:
			e.branchUnit.BX(inst.Rm)
		}

	case insts.ThumbFormatPCRelativeLoad:
		v, access := e.lsu.Load(insts.OpLDR, rf.ReadReg(15)&^3+inst.Imm)
		rf.WriteReg(inst.Rd, v)
		cycles += access

	case insts.ThumbFormatLoadStoreRegister, insts.ThumbFormatLoadStoreSignExt:
		cycles += e.lsu.Transfer(inst.Op, inst.Rd, inst.Rn, rf.ReadReg(inst.Rm), true, true, false)

	case insts.ThumbFormatLoadStoreImmediate, insts.ThumbFormatLoadStoreHalfword,
		insts.ThumbFormatSPRelative:
		cycles += e.lsu.Transfer(inst.Op, inst.Rd, inst.Rn, inst.Imm, true, true, false)

	case insts.ThumbFormatLoadAddress:
		base := rf.ReadReg(inst.Rn)
		if inst.Rn == 15 {
			base &^= 3
		}
		rf.WriteReg(inst.Rd, base+inst.Imm)

	case insts.ThumbFormatAddOffsetSP:
		sp := rf.ReadReg(13)
		if inst.Op == insts.OpSUB {
			rf.WriteReg(13, sp-inst.Imm)
		} else {
			rf.WriteReg(13, sp+inst.Imm)
		}

	case insts.ThumbFormatPushPop:
		list := uint16(inst.RegList)
		block := &insts.Instruction{Op: inst.Op, Rn: 13, WriteBack: true, Load: inst.Load}
		if inst.Load {
			block.Up = true // LDMIA SP!
			if inst.ExtraReg {
				list |= 1 << 15
			}
		} else {
			block.PreIndex = true // STMDB SP!
			if inst.ExtraReg {
				list |= 1 << 14
			}
		}
		block.RegList = list
		cycles += e.lsu.BlockTransfer(block)

	case insts.ThumbFormatMultiple:
		cycles += e.lsu.BlockTransfer(&insts.Instruction{
			Op:        inst.Op,
			Rn:        inst.Rn,
			Up:        true,
			WriteBack: true,
			Load:      inst.Load,
			RegList:   uint16(inst.RegList),
		})

	case insts.ThumbFormatCondBranch:
		if !CheckCondition(inst.Cond, rf.CPSR) {
			e.skipped = true
			return e.latency.Config().SkippedLatency, inst.Op
		}
		e.branchUnit.B(inst.Offset)

	case insts.ThumbFormatSWI:
		cycles = e.softwareInterrupt(uint8(inst.Imm), pc+2)

	case insts.ThumbFormatBranch:
		e.branchUnit.B(inst.Offset)

	case insts.ThumbFormatLongBranchLink:
		if !inst.High {
			rf.WriteReg(14, rf.ReadReg(15)+uint32(inst.Offset))
			break
		}
		target := rf.ReadReg(14) + uint32(inst.Offset)
		rf.WriteReg(14, (pc+2)|1)
		rf.WriteReg(15, target)

	default:
		e.logger.Info("undefined instruction",
			"pc", hex32(pc), "half", hex32(uint32(half)), "state", "thumb")
		return e.latency.Config().UndefinedLatency, insts.OpUnknown
	}

	return cycles, inst.Op
}

// thumbALU executes format 4, the two-register ALU operations.
func (e *Emulator) thumbALU(inst *insts.ThumbInstruction) uint64 {
	rf := e.regFile
	rd, rm := rf.ReadReg(inst.Rd), rf.ReadReg(inst.Rm)
	carry := rf.CPSR.C()

	switch inst.Opcode {
	case insts.ThumbALULSL, insts.ThumbALULSR, insts.ThumbALUASR, insts.ThumbALUROR:
		v, c := Shift(rd, inst.ShiftType, rm&0xFF, carry)
		e.writeALU(inst.Rd, e.alu.Compute(insts.OpMOV, 0, v, c))
		return e.latency.OpLatency(insts.OpMOV) + e.latency.RegisterShiftPenalty()

	case insts.ThumbALUNEG:
		e.writeALU(inst.Rd, e.alu.Compute(insts.OpRSB, rm, 0, carry))

	case insts.ThumbALUMUL:
		v := rd * rm
		rf.WriteReg(inst.Rd, v)
		rf.SetNZ(v)
		return e.latency.MultiplyLatency(insts.OpMUL, rd)

	default:
		res := e.alu.Compute(inst.Op, rd, rm, carry)
		if inst.Op.IsCompare() {
			e.alu.SetFlags(res)
		} else {
			e.writeALU(inst.Rd, res)
		}
	}

	return e.latency.OpLatency(inst.Op)
}

// writeALU writes a Thumb ALU result and its flags.
func (e *Emulator) writeALU(rd uint8, res ALUResult) {
	e.regFile.WriteReg(rd, res.Value)
	e.alu.SetFlags(res)
}
