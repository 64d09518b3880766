package emu

import (
	"math/bits"

	"github.com/sarchlab/gbasim/insts"
	"github.com/sarchlab/gbasim/mem"
)

// Bus is the memory system seen by the core. Wide accesses are aligned
// down by the bus.
type Bus interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Write8(addr uint32, v uint8)
	Write16(addr uint32, v uint16)
	Write32(addr uint32, v uint32)
}

// AccessTimer is implemented by buses that report the cycle cost of an
// access. *mem.Bus implements it.
type AccessTimer interface {
	AccessCycles(addr uint32, width mem.Width) int
}

// LoadStoreUnit implements the ARM7TDMI transfer instructions.
type LoadStoreUnit struct {
	regFile *RegFile
	bus     Bus
	timer   AccessTimer
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and bus. Access costs are charged only if the bus is an
// AccessTimer.
func NewLoadStoreUnit(regFile *RegFile, bus Bus) *LoadStoreUnit {
	lsu := &LoadStoreUnit{
		regFile: regFile,
		bus:     bus,
	}
	lsu.timer, _ = bus.(AccessTimer)
	return lsu
}

func (lsu *LoadStoreUnit) access(addr uint32, width mem.Width) uint64 {
	if lsu.timer == nil {
		return 0
	}
	return uint64(lsu.timer.AccessCycles(addr, width))
}

// Load reads memory for one of the load operations and returns the value
// to write to the destination together with the access cost.
//
// A misaligned LDR rotates the aligned word so the addressed byte lands in
// bits 0-7. A misaligned LDRH rotates the halfword by 8, and a misaligned
// LDRSH sign-extends the addressed byte.
func (lsu *LoadStoreUnit) Load(op insts.Op, addr uint32) (uint32, uint64) {
	switch op {
	case insts.OpLDRB:
		return uint32(lsu.bus.Read8(addr)), lsu.access(addr, mem.Byte)

	case insts.OpLDRSB:
		return uint32(int32(int8(lsu.bus.Read8(addr)))), lsu.access(addr, mem.Byte)

	case insts.OpLDRH:
		v := uint32(lsu.bus.Read16(addr))
		if addr&1 != 0 {
			v = bits.RotateLeft32(v, -8)
		}
		return v, lsu.access(addr, mem.Half)

	case insts.OpLDRSH:
		if addr&1 != 0 {
			return uint32(int32(int8(lsu.bus.Read8(addr)))), lsu.access(addr, mem.Half)
		}
		return uint32(int32(int16(lsu.bus.Read16(addr)))), lsu.access(addr, mem.Half)

	default:
		v := lsu.bus.Read32(addr)
		return bits.RotateLeft32(v, -int(addr&3)*8), lsu.access(addr, mem.Word)
	}
}

// Store writes value for one of the store operations and returns the
// access cost.
func (lsu *LoadStoreUnit) Store(op insts.Op, addr, value uint32) uint64 {
	switch op {
	case insts.OpSTRB:
		lsu.bus.Write8(addr, uint8(value))
		return lsu.access(addr, mem.Byte)
	case insts.OpSTRH:
		lsu.bus.Write16(addr, uint16(value))
		return lsu.access(addr, mem.Half)
	default:
		lsu.bus.Write32(addr, value)
		return lsu.access(addr, mem.Word)
	}
}

func isLoad(op insts.Op) bool {
	switch op {
	case insts.OpLDR, insts.OpLDRB, insts.OpLDRH, insts.OpLDRSB, insts.OpLDRSH:
		return true
	}
	return false
}

// SingleTransfer executes LDR, STR, LDRB and STRB.
func (lsu *LoadStoreUnit) SingleTransfer(inst *insts.Instruction) uint64 {
	rf := lsu.regFile

	offset := inst.Imm
	if !inst.Immediate {
		offset, _ = Shift(rf.ReadReg(inst.Rm), inst.ShiftType,
			uint32(inst.ShiftAmount), rf.CPSR.C())
	}

	return lsu.Transfer(inst.Op, inst.Rd, inst.Rn, offset, inst.PreIndex, inst.Up, inst.WriteBack)
}

// HalfwordTransfer executes LDRH, STRH, LDRSB and LDRSH.
func (lsu *LoadStoreUnit) HalfwordTransfer(inst *insts.Instruction) uint64 {
	offset := inst.Imm
	if !inst.Immediate {
		offset = lsu.regFile.ReadReg(inst.Rm)
	}

	return lsu.Transfer(inst.Op, inst.Rd, inst.Rn, offset, inst.PreIndex, inst.Up, inst.WriteBack)
}

// Transfer moves one value between rd and memory at base register rn
// adjusted by offset. Post-indexed transfers always write the base back.
// A pre-indexed store with write-back to its own source register leaves
// the register unchanged.
func (lsu *LoadStoreUnit) Transfer(op insts.Op, rd, rn uint8, offset uint32,
	preIndex, up, writeBack bool,
) uint64 {
	rf := lsu.regFile

	base := rf.ReadReg(rn)
	target := base - offset
	if up {
		target = base + offset
	}
	addr := base
	if preIndex {
		addr = target
	}
	updateBase := !preIndex || writeBack

	if isLoad(op) {
		value, cycles := lsu.Load(op, addr)
		// Base first: with Rn == Rd the loaded value wins.
		if updateBase {
			rf.WriteReg(rn, target)
		}
		rf.WriteReg(rd, value)
		return cycles
	}

	value := rf.ReadReg(rd)
	if rd == 15 {
		value += 4
	}
	cycles := lsu.Store(op, addr, value)
	if updateBase && !(preIndex && writeBack && rn == rd) {
		rf.WriteReg(rn, target)
	}
	return cycles
}

// BlockTransfer executes LDM and STM.
//
// Registers are transferred lowest-numbered first to the lowest address,
// whatever the direction. An empty list transfers R15 alone and moves the
// base by 0x40.
func (lsu *LoadStoreUnit) BlockTransfer(inst *insts.Instruction) uint64 {
	rf := lsu.regFile

	list := inst.RegList
	size := uint32(bits.OnesCount16(list)) * 4
	if list == 0 {
		list, size = 1<<15, 0x40
	}

	base := rf.ReadReg(inst.Rn)
	var start, newBase uint32
	switch {
	case inst.Up && !inst.PreIndex: // IA
		start, newBase = base, base+size
	case inst.Up: // IB
		start, newBase = base+4, base+size
	case !inst.PreIndex: // DA
		start, newBase = base-size+4, base-size
	default: // DB
		start, newBase = base-size, base-size
	}

	pcInList := list&(1<<15) != 0
	userBank := inst.UserBank && !(inst.Load && pcInList)

	var cycles uint64
	addr := start

	if inst.Load {
		// A loaded base register overrides the write-back.
		if inst.WriteBack {
			rf.WriteReg(inst.Rn, newBase)
		}
		for i := uint8(0); i < 16; i++ {
			if list&(1<<i) == 0 {
				continue
			}
			v := lsu.bus.Read32(addr)
			cycles += lsu.access(addr, mem.Word)
			if userBank {
				rf.WriteUserReg(i, v)
			} else {
				rf.WriteReg(i, v)
			}
			addr += 4
		}
		if inst.UserBank && pcInList && rf.Mode().HasSPSR() {
			rf.SetCPSR(rf.SPSR())
		}
		return cycles
	}

	first := true
	for i := uint8(0); i < 16; i++ {
		if list&(1<<i) == 0 {
			continue
		}

		var v uint32
		switch {
		case i == inst.Rn && inst.WriteBack && !first:
			// The base is already updated unless it is stored first.
			v = newBase
		case userBank:
			v = rf.ReadUserReg(i)
		default:
			v = rf.ReadReg(i)
		}
		if i == 15 {
			v += 4
		}

		lsu.bus.Write32(addr, v)
		cycles += lsu.access(addr, mem.Word)
		addr += 4
		first = false
	}
	if inst.WriteBack {
		rf.WriteReg(inst.Rn, newBase)
	}

	return cycles
}

// Swap executes SWP and SWPB: the old memory value goes to Rd and Rm is
// written in its place.
func (lsu *LoadStoreUnit) Swap(inst *insts.Instruction) {
	rf := lsu.regFile
	addr := rf.ReadReg(inst.Rn)
	src := rf.ReadReg(inst.Rm)

	if inst.Op == insts.OpSWPB {
		old := lsu.bus.Read8(addr)
		lsu.bus.Write8(addr, uint8(src))
		rf.WriteReg(inst.Rd, uint32(old))
		return
	}

	old, _ := lsu.Load(insts.OpLDR, addr)
	lsu.bus.Write32(addr, src)
	rf.WriteReg(inst.Rd, old)
}
