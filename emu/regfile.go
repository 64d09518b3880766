// Package emu provides functional ARM7TDMI emulation.
package emu

const (
	bankUser = iota // shared by User and System
	bankFIQ
	bankIRQ
	bankSupervisor
	bankAbort
	bankUndefined
	numBanks
)

func bankOf(m Mode) int {
	switch m {
	case ModeFIQ:
		return bankFIQ
	case ModeIRQ:
		return bankIRQ
	case ModeSupervisor:
		return bankSupervisor
	case ModeAbort:
		return bankAbort
	case ModeUndefined:
		return bankUndefined
	default:
		return bankUser
	}
}

// RegFile represents the ARM7TDMI register file.
//
// R holds the sixteen registers visible in the current mode. The
// registers of the other modes live in private banks: FIQ owns R8-R14,
// IRQ, Supervisor, Abort and Undefined own R13-R14, and User and System
// share one set. Each mode except User and System also owns an SPSR.
type RegFile struct {
	// R holds the visible registers. R[15] is the program counter. While an
	// instruction executes it reads as the instruction address plus 8
	// (ARM) or 4 (Thumb).
	R [16]uint32

	// CPSR is the current program status register. Assigning it directly
	// does not swap register banks; use SetCPSR or SetMode for that.
	CPSR PSR

	userHigh [5]uint32 // R8-R12 of every mode but FIQ
	fiqHigh  [5]uint32 // R8-R12 of FIQ
	sp       [numBanks]uint32
	lr       [numBanks]uint32
	spsr     [numBanks]PSR

	pcWritten bool
}

// ReadReg reads a visible register.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	return r.R[reg&0xF]
}

// WriteReg writes a visible register. Writing R15 marks the pipeline for a
// refill.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	reg &= 0xF
	if reg == 15 {
		r.pcWritten = true
	}
	r.R[reg] = value
}

// PC returns R15.
func (r *RegFile) PC() uint32 {
	return r.R[15]
}

// SetPC sets R15 without requesting a refill.
func (r *RegFile) SetPC(pc uint32) {
	r.R[15] = pc
}

// PCWritten reports whether R15 was written since the last ClearPCWritten.
func (r *RegFile) PCWritten() bool {
	return r.pcWritten
}

// ClearPCWritten resets the refill request.
func (r *RegFile) ClearPCWritten() {
	r.pcWritten = false
}

// Mode returns the current processor mode.
func (r *RegFile) Mode() Mode {
	return r.CPSR.Mode()
}

// SetMode switches to mode m, swapping the banked registers.
func (r *RegFile) SetMode(m Mode) {
	r.SetCPSR(r.CPSR.WithMode(m))
}

// SetCPSR replaces the CPSR. If the mode field changes, the registers of
// the outgoing mode are saved to its bank and those of the incoming mode
// become visible.
func (r *RegFile) SetCPSR(v PSR) {
	r.switchBank(r.CPSR.Mode(), v.Mode())
	r.CPSR = v
}

func (r *RegFile) switchBank(from, to Mode) {
	ob, nb := bankOf(from), bankOf(to)
	if ob == nb {
		return
	}

	if ob == bankFIQ {
		copy(r.fiqHigh[:], r.R[8:13])
	} else {
		copy(r.userHigh[:], r.R[8:13])
	}
	r.sp[ob], r.lr[ob] = r.R[13], r.R[14]

	if nb == bankFIQ {
		copy(r.R[8:13], r.fiqHigh[:])
	} else {
		copy(r.R[8:13], r.userHigh[:])
	}
	r.R[13], r.R[14] = r.sp[nb], r.lr[nb]
}

// SetFlags replaces the N, Z, C and V flags.
func (r *RegFile) SetFlags(n, z, c, v bool) {
	r.CPSR = r.CPSR.WithFlags(n, z, c, v)
}

// SetNZ sets N and Z from a result and leaves C and V alone.
func (r *RegFile) SetNZ(result uint32) {
	r.CPSR = r.CPSR.With(FlagN, result>>31 != 0).With(FlagZ, result == 0)
}

// SPSR returns the saved status register of the current mode, or 0 in
// User and System mode.
func (r *RegFile) SPSR() PSR {
	return r.SPSRFor(r.CPSR.Mode())
}

// SetSPSR writes the saved status register of the current mode. It has no
// effect in User and System mode.
func (r *RegFile) SetSPSR(v PSR) {
	r.SetSPSRFor(r.CPSR.Mode(), v)
}

// SPSRFor returns the saved status register of mode m.
func (r *RegFile) SPSRFor(m Mode) PSR {
	if !m.HasSPSR() {
		return 0
	}
	return r.spsr[bankOf(m)]
}

// SetSPSRFor writes the saved status register of mode m.
func (r *RegFile) SetSPSRFor(m Mode, v PSR) {
	if !m.HasSPSR() {
		return
	}
	r.spsr[bankOf(m)] = v
}

// Banked reads register reg as seen from mode m.
func (r *RegFile) Banked(m Mode, reg uint8) uint32 {
	if p := r.bankSlot(m, reg); p != nil {
		return *p
	}
	return r.R[reg&0xF]
}

// SetBanked writes register reg as seen from mode m.
func (r *RegFile) SetBanked(m Mode, reg uint8, value uint32) {
	if p := r.bankSlot(m, reg); p != nil {
		*p = value
		return
	}
	r.WriteReg(reg, value)
}

// bankSlot returns the storage of reg for mode m when it is not the
// visible register, or nil.
func (r *RegFile) bankSlot(m Mode, reg uint8) *uint32 {
	reg &= 0xF
	cur, b := bankOf(r.CPSR.Mode()), bankOf(m)

	switch {
	case reg == 13 && b != cur:
		return &r.sp[b]
	case reg == 14 && b != cur:
		return &r.lr[b]
	case reg >= 8 && reg <= 12 && (b == bankFIQ) != (cur == bankFIQ):
		if b == bankFIQ {
			return &r.fiqHigh[reg-8]
		}
		return &r.userHigh[reg-8]
	}
	return nil
}

// ReadUserReg reads a register of the User bank, as LDM/STM with the S bit
// do from a privileged mode.
func (r *RegFile) ReadUserReg(reg uint8) uint32 {
	return r.Banked(ModeUser, reg)
}

// WriteUserReg writes a register of the User bank.
func (r *RegFile) WriteUserReg(reg uint8, value uint32) {
	r.SetBanked(ModeUser, reg, value)
}
