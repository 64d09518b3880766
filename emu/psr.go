package emu

import (
	"fmt"
	"strings"
)

// Mode is a processor mode, encoded as the CPSR mode bits.
type Mode uint8

// Processor modes.
const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

var modeNames = map[Mode]string{
	ModeUser:       "USR",
	ModeFIQ:        "FIQ",
	ModeIRQ:        "IRQ",
	ModeSupervisor: "SVC",
	ModeAbort:      "ABT",
	ModeUndefined:  "UND",
	ModeSystem:     "SYS",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%#02x)", uint8(m))
}

// Valid reports whether m is one of the seven defined modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// Privileged reports whether m may write the control bits of the CPSR.
func (m Mode) Privileged() bool {
	return m != ModeUser
}

// HasSPSR reports whether m owns a saved program status register.
func (m Mode) HasSPSR() bool {
	return m.Valid() && m != ModeUser && m != ModeSystem
}

// PSR is a program status register value.
type PSR uint32

// PSR bits.
const (
	FlagN PSR = 1 << 31 // Negative
	FlagZ PSR = 1 << 30 // Zero
	FlagC PSR = 1 << 29 // Carry / not borrow
	FlagV PSR = 1 << 28 // Overflow
	FlagI PSR = 1 << 7  // IRQ disable
	FlagF PSR = 1 << 6  // FIQ disable
	FlagT PSR = 1 << 5  // Thumb state

	ModeBits PSR = 0x1F
)

// N returns the negative flag.
func (p PSR) N() bool { return p&FlagN != 0 }

// Z returns the zero flag.
func (p PSR) Z() bool { return p&FlagZ != 0 }

// C returns the carry flag.
func (p PSR) C() bool { return p&FlagC != 0 }

// V returns the overflow flag.
func (p PSR) V() bool { return p&FlagV != 0 }

// IRQDisabled reports whether the I bit masks interrupts.
func (p PSR) IRQDisabled() bool { return p&FlagI != 0 }

// FIQDisabled reports whether the F bit masks fast interrupts.
func (p PSR) FIQDisabled() bool { return p&FlagF != 0 }

// Thumb reports whether the core executes Thumb code.
func (p PSR) Thumb() bool { return p&FlagT != 0 }

// Mode returns the processor mode field.
func (p PSR) Mode() Mode { return Mode(p & ModeBits) }

// With returns p with the given bits set or cleared.
func (p PSR) With(bits PSR, set bool) PSR {
	if set {
		return p | bits
	}
	return p &^ bits
}

// WithMode returns p with the mode field replaced.
func (p PSR) WithMode(m Mode) PSR {
	return p&^ModeBits | PSR(m)&ModeBits
}

// WithFlags returns p with the four condition flags replaced.
func (p PSR) WithFlags(n, z, c, v bool) PSR {
	return p.With(FlagN, n).With(FlagZ, z).With(FlagC, c).With(FlagV, v)
}

// String renders set flags in upper case and clear flags in lower case,
// followed by the mode, e.g. "nZCv iFt SVC".
func (p PSR) String() string {
	var s strings.Builder
	flag := func(bits PSR, r rune) {
		if p&bits == 0 {
			r += 'a' - 'A'
		}
		s.WriteRune(r)
	}

	flag(FlagN, 'N')
	flag(FlagZ, 'Z')
	flag(FlagC, 'C')
	flag(FlagV, 'V')
	s.WriteByte(' ')
	flag(FlagI, 'I')
	flag(FlagF, 'F')
	flag(FlagT, 'T')
	s.WriteByte(' ')
	s.WriteString(p.Mode().String())

	return s.String()
}
