package emu

import "github.com/sarchlab/gbasim/insts"

// Multiply executes MUL and MLA. With S set only N and Z change.
func (a *ALU) Multiply(inst *insts.Instruction) {
	rf := a.regFile

	result := rf.ReadReg(inst.Rm) * rf.ReadReg(inst.Rs)
	if inst.Accumulate {
		result += rf.ReadReg(inst.Rn)
	}
	rf.WriteReg(inst.Rd, result)

	if inst.SetFlags {
		rf.SetNZ(result)
	}
}

// MultiplyLong executes UMULL, UMLAL, SMULL and SMLAL. Rd holds RdHi and
// Rn holds RdLo.
func (a *ALU) MultiplyLong(inst *insts.Instruction) {
	rf := a.regFile
	rm, rs := rf.ReadReg(inst.Rm), rf.ReadReg(inst.Rs)

	var result uint64
	if inst.Signed {
		result = uint64(int64(int32(rm)) * int64(int32(rs)))
	} else {
		result = uint64(rm) * uint64(rs)
	}
	if inst.Accumulate {
		result += uint64(rf.ReadReg(inst.Rd))<<32 | uint64(rf.ReadReg(inst.Rn))
	}

	rf.WriteReg(inst.Rn, uint32(result))
	rf.WriteReg(inst.Rd, uint32(result>>32))

	if inst.SetFlags {
		rf.CPSR = rf.CPSR.With(FlagN, result>>63 != 0).With(FlagZ, result == 0)
	}
}
