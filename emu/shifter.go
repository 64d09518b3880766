package emu

import (
	"math/bits"

	"github.com/sarchlab/gbasim/insts"
)

// Shift applies the barrel shifter to value and returns the result with the
// shifter carry-out. amount is the full shift amount: 0-31 from an
// immediate field (already normalised by the decoder, so LSR #32 arrives as
// 32) or 0-255 from the bottom byte of a register.
//
// An amount of 0 leaves both value and carry untouched. ShiftRRX ignores
// amount and rotates right by one through the carry.
func Shift(value uint32, st insts.ShiftType, amount uint32, carryIn bool) (uint32, bool) {
	if st == insts.ShiftRRX {
		result := value >> 1
		if carryIn {
			result |= 1 << 31
		}
		return result, value&1 != 0
	}

	if amount == 0 {
		return value, carryIn
	}

	switch st {
	case insts.ShiftLSL:
		switch {
		case amount < 32:
			return value << amount, value>>(32-amount)&1 != 0
		case amount == 32:
			return 0, value&1 != 0
		default:
			return 0, false
		}

	case insts.ShiftLSR:
		switch {
		case amount < 32:
			return value >> amount, value>>(amount-1)&1 != 0
		case amount == 32:
			return 0, value>>31 != 0
		default:
			return 0, false
		}

	case insts.ShiftASR:
		if amount >= 32 {
			if value>>31 != 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(int32(value) >> amount), value>>(amount-1)&1 != 0

	case insts.ShiftROR:
		r := amount & 31
		if r == 0 {
			return value, value>>31 != 0
		}
		return bits.RotateLeft32(value, -int(r)), value>>(r-1)&1 != 0
	}

	return value, carryIn
}
