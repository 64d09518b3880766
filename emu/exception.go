package emu

// Exception vector addresses.
const (
	VectorReset         uint32 = 0x00
	VectorUndefined     uint32 = 0x04
	VectorSWI           uint32 = 0x08
	VectorPrefetchAbort uint32 = 0x0C
	VectorDataAbort     uint32 = 0x10
	VectorIRQ           uint32 = 0x18
	VectorFIQ           uint32 = 0x1C
)

// enterException saves the CPSR to the SPSR of mode, switches to mode in ARM
// state with IRQs masked, sets LR to returnAddr and jumps to vector.
func (e *Emulator) enterException(mode Mode, vector, returnAddr uint32) {
	rf := e.regFile
	old := rf.CPSR

	rf.SetCPSR(old.WithMode(mode).With(FlagI, true).With(FlagT, false))
	rf.SetSPSR(old)
	rf.WriteReg(14, returnAddr)
	rf.WriteReg(15, vector)
}
