package emu

import "github.com/sarchlab/gbasim/insts"

// CheckCondition reports whether an instruction with condition cond
// executes under the flags of psr. NV executes like AL, as on the
// ARM7TDMI.
func CheckCondition(cond insts.Cond, psr PSR) bool {
	n, z, c, v := psr.N(), psr.Z(), psr.C(), psr.V()

	switch cond {
	case insts.CondEQ:
		return z
	case insts.CondNE:
		return !z
	case insts.CondCS:
		return c
	case insts.CondCC:
		return !c
	case insts.CondMI:
		return n
	case insts.CondPL:
		return !n
	case insts.CondVS:
		return v
	case insts.CondVC:
		return !v
	case insts.CondHI:
		return c && !z
	case insts.CondLS:
		return !c || z
	case insts.CondGE:
		return n == v
	case insts.CondLT:
		return n != v
	case insts.CondGT:
		return !z && n == v
	case insts.CondLE:
		return z || n != v
	default:
		return true
	}
}
