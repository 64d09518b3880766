package emu

// State is a copy of everything the core holds: the visible registers, the
// CPSR, every banked register and SPSR, and the halt flag. Counters are not
// part of it.
type State struct {
	R        [16]uint32
	CPSR     PSR
	UserHigh [5]uint32
	FIQHigh  [5]uint32
	SP       [numBanks]uint32
	LR       [numBanks]uint32
	SPSR     [numBanks]PSR
	Halted   bool
}

// Snapshot returns the current core state.
func (e *Emulator) Snapshot() State {
	rf := e.regFile
	return State{
		R:        rf.R,
		CPSR:     rf.CPSR,
		UserHigh: rf.userHigh,
		FIQHigh:  rf.fiqHigh,
		SP:       rf.sp,
		LR:       rf.lr,
		SPSR:     rf.spsr,
		Halted:   e.halted,
	}
}

// Restore replaces the core state with s.
func (e *Emulator) Restore(s State) {
	rf := e.regFile
	rf.R = s.R
	rf.CPSR = s.CPSR
	rf.userHigh = s.UserHigh
	rf.fiqHigh = s.FIQHigh
	rf.sp = s.SP
	rf.lr = s.LR
	rf.spsr = s.SPSR
	rf.pcWritten = false
	e.halted = s.Halted
}
