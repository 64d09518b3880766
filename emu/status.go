package emu

import "github.com/sarchlab/gbasim/insts"

// FieldMaskBits expands an MSR field mask (bit 0 control, 1 extension,
// 2 status, 3 flags) into a byte mask over the PSR.
func FieldMaskBits(fields uint8) PSR {
	var mask PSR
	for i := 0; i < 4; i++ {
		if fields&(1<<i) != 0 {
			mask |= 0xFF << (8 * i)
		}
	}
	return mask
}

// PSRUnit implements MRS and MSR.
type PSRUnit struct {
	regFile *RegFile
}

// NewPSRUnit creates a new PSRUnit connected to the given register file.
func NewPSRUnit(regFile *RegFile) *PSRUnit {
	return &PSRUnit{regFile: regFile}
}

// MRS copies the CPSR or SPSR to Rd. The SPSR of User and System mode
// reads as 0.
func (p *PSRUnit) MRS(inst *insts.Instruction) {
	rf := p.regFile
	v := rf.CPSR
	if inst.SPSR {
		v = rf.SPSR()
	}
	rf.WriteReg(inst.Rd, uint32(v))
}

// MSR merges an immediate or Rm into the fields of the CPSR or SPSR named by
// the field mask. User mode may only write the flags. A CPSR write that
// changes the mode swaps register banks. The T bit is never changed.
func (p *PSRUnit) MSR(inst *insts.Instruction) {
	rf := p.regFile

	value := PSR(inst.Imm)
	if !inst.Immediate {
		value = PSR(rf.ReadReg(inst.Rm))
	}

	mask := FieldMaskBits(inst.FieldMask)
	if !rf.Mode().Privileged() {
		mask &= 0xFF000000
	}

	if inst.SPSR {
		if rf.Mode().HasSPSR() {
			rf.SetSPSR(rf.SPSR()&^mask | value&mask)
		}
		return
	}

	mask &^= FlagT
	rf.SetCPSR(rf.CPSR&^mask | value&mask)
}
