package emu

// BranchUnit implements B, BL and BX.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// B adds offset to the prefetched PC.
func (b *BranchUnit) B(offset int32) {
	rf := b.regFile
	rf.WriteReg(15, rf.ReadReg(15)+uint32(offset))
}

// BL saves the address of the next ARM instruction in LR, then branches.
func (b *BranchUnit) BL(offset int32) {
	rf := b.regFile
	rf.WriteReg(14, rf.ReadReg(15)-4)
	b.B(offset)
}

// BX jumps to the address in rm. Bit 0 of the address selects Thumb state
// and is cleared from the target.
func (b *BranchUnit) BX(rm uint8) {
	rf := b.regFile
	target := rf.ReadReg(rm)
	rf.CPSR = rf.CPSR.With(FlagT, target&1 != 0)
	rf.WriteReg(15, target&^1)
}
