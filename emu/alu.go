package emu

import "github.com/sarchlab/gbasim/insts"

// ALU implements the ARM data processing and multiply operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// ALUResult is the value and flags produced by an ALU operation.
type ALUResult struct {
	Value      uint32
	N, Z, C, V bool
}

// AddWithCarry returns a+b+carry with the carry out of bit 31 and the
// signed overflow. Subtraction a-b is AddWithCarry(a, ^b, true), whose
// carry is set when no borrow occurs.
func AddWithCarry(a, b uint32, carry bool) (result uint32, c, v bool) {
	var cin uint64
	if carry {
		cin = 1
	}
	sum := uint64(a) + uint64(b) + cin
	result = uint32(sum)
	c = sum>>32 != 0
	v = (^(a^b)&(a^result))>>31 != 0
	return result, c, v
}

// Compute performs a data processing operation. Logical operations take C
// from shifterCarry and keep V; arithmetic operations compute both.
func (a *ALU) Compute(op insts.Op, op1, op2 uint32, shifterCarry bool) ALUResult {
	cpsr := a.regFile.CPSR
	res := ALUResult{C: shifterCarry, V: cpsr.V()}

	switch op {
	case insts.OpAND, insts.OpTST:
		res.Value = op1 & op2
	case insts.OpEOR, insts.OpTEQ:
		res.Value = op1 ^ op2
	case insts.OpORR:
		res.Value = op1 | op2
	case insts.OpMOV:
		res.Value = op2
	case insts.OpBIC:
		res.Value = op1 &^ op2
	case insts.OpMVN:
		res.Value = ^op2
	case insts.OpSUB, insts.OpCMP:
		res.Value, res.C, res.V = AddWithCarry(op1, ^op2, true)
	case insts.OpRSB:
		res.Value, res.C, res.V = AddWithCarry(op2, ^op1, true)
	case insts.OpADD, insts.OpCMN:
		res.Value, res.C, res.V = AddWithCarry(op1, op2, false)
	case insts.OpADC:
		res.Value, res.C, res.V = AddWithCarry(op1, op2, cpsr.C())
	case insts.OpSBC:
		res.Value, res.C, res.V = AddWithCarry(op1, ^op2, cpsr.C())
	case insts.OpRSC:
		res.Value, res.C, res.V = AddWithCarry(op2, ^op1, cpsr.C())
	}

	res.N = res.Value>>31 != 0
	res.Z = res.Value == 0
	return res
}

// SetFlags writes the flags of res to the CPSR.
func (a *ALU) SetFlags(res ALUResult) {
	a.regFile.SetFlags(res.N, res.Z, res.C, res.V)
}

// Operand2 computes the second operand of a data processing instruction
// and the shifter carry-out.
func (a *ALU) Operand2(inst *insts.Instruction) (uint32, bool) {
	rf := a.regFile
	carry := rf.CPSR.C()

	if inst.Immediate {
		if inst.Rotate != 0 {
			carry = inst.Imm>>31 != 0
		}
		return inst.Imm, carry
	}

	rm := rf.ReadReg(inst.Rm)
	amount := uint32(inst.ShiftAmount)
	if inst.ShiftByReg {
		amount = rf.ReadReg(inst.Rs) & 0xFF
		// R15 reads 12 ahead with a register-specified shift.
		if inst.Rm == 15 {
			rm += 4
		}
	}
	return Shift(rm, inst.ShiftType, amount, carry)
}

// DataProcessing executes one of the sixteen data processing operations.
// With S set and Rd = PC the SPSR is copied to the CPSR, which is how
// exception handlers return.
func (a *ALU) DataProcessing(inst *insts.Instruction) {
	rf := a.regFile

	op2, carry := a.Operand2(inst)
	op1 := rf.ReadReg(inst.Rn)
	if inst.ShiftByReg && inst.Rn == 15 {
		op1 += 4
	}

	res := a.Compute(inst.Op, op1, op2, carry)
	if !inst.Op.IsCompare() {
		rf.WriteReg(inst.Rd, res.Value)
	}

	if !inst.SetFlags {
		return
	}
	if inst.Rd == 15 && !inst.Op.IsCompare() && rf.Mode().HasSPSR() {
		rf.SetCPSR(rf.SPSR())
		return
	}
	a.SetFlags(res)
}
