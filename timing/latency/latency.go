// Package latency provides the instruction timing model of the ARM7TDMI
// core.
//
// The cycle costs can be configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/gbasim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the base latency in cycles for the given instruction.
// Memory access costs and the pipeline refill are charged separately.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return t.config.UndefinedLatency
	}
	return t.OpLatency(inst.Op)
}

// OpLatency returns the base latency of an operation. Thumb instructions
// share the costs of the ARM operations they map to.
func (t *Table) OpLatency(op insts.Op) uint64 {
	c := t.config

	switch {
	case op >= insts.OpAND && op <= insts.OpMVN:
		return c.ALULatency
	case op == insts.OpMUL:
		return c.MultiplyLatency
	case op == insts.OpMLA:
		return c.MultiplyAccumulateLatency
	case op == insts.OpUMULL || op == insts.OpSMULL:
		return c.MultiplyLongLatency
	case op == insts.OpUMLAL || op == insts.OpSMLAL:
		return c.MultiplyLongAccumulateLatency
	case t.IsLoadOp(op):
		return c.LoadLatency
	case t.IsStoreOp(op):
		return c.StoreLatency
	case t.IsBranchOp(op):
		return c.BranchLatency
	case op == insts.OpSWP || op == insts.OpSWPB:
		return c.SwapLatency
	case op == insts.OpMRS || op == insts.OpMSR:
		return c.PSRTransferLatency
	case op == insts.OpSWI:
		return c.SyscallLatency
	default:
		return c.UndefinedLatency
	}
}

// MultiplyLatency returns the cost of a multiply given the value of its Rs
// operand. With PreciseMultiply off it equals OpLatency.
func (t *Table) MultiplyLatency(op insts.Op, rs uint32) uint64 {
	if !t.config.PreciseMultiply {
		return t.OpLatency(op)
	}

	switch op {
	case insts.OpMUL:
		return 1 + MultiplierCycles(rs, true)
	case insts.OpMLA:
		return 2 + MultiplierCycles(rs, true)
	case insts.OpUMULL:
		return 2 + MultiplierCycles(rs, false)
	case insts.OpSMULL:
		return 2 + MultiplierCycles(rs, true)
	case insts.OpUMLAL:
		return 3 + MultiplierCycles(rs, false)
	case insts.OpSMLAL:
		return 3 + MultiplierCycles(rs, true)
	default:
		return t.OpLatency(op)
	}
}

// MultiplierCycles returns the number of m cycles the multiplier array
// needs for the operand rs: one per significant byte, where a byte of all
// ones also terminates early when signed.
func MultiplierCycles(rs uint32, signed bool) uint64 {
	for m, mask := range [3]uint32{0xFFFFFF00, 0xFFFF0000, 0xFF000000} {
		high := rs & mask
		if high == 0 || (signed && high == mask) {
			return uint64(m + 1)
		}
	}
	return 4
}

// IsMemoryOp returns true if the operation accesses memory.
func (t *Table) IsMemoryOp(op insts.Op) bool {
	return t.IsLoadOp(op) || t.IsStoreOp(op) ||
		op == insts.OpSWP || op == insts.OpSWPB
}

// IsLoadOp returns true if the operation is a load.
func (t *Table) IsLoadOp(op insts.Op) bool {
	switch op {
	case insts.OpLDR, insts.OpLDRB, insts.OpLDRH, insts.OpLDRSB,
		insts.OpLDRSH, insts.OpLDM:
		return true
	default:
		return false
	}
}

// IsStoreOp returns true if the operation is a store.
func (t *Table) IsStoreOp(op insts.Op) bool {
	switch op {
	case insts.OpSTR, insts.OpSTRB, insts.OpSTRH, insts.OpSTM:
		return true
	default:
		return false
	}
}

// IsBranchOp returns true if the operation is a branch.
func (t *Table) IsBranchOp(op insts.Op) bool {
	switch op {
	case insts.OpB, insts.OpBL, insts.OpBX:
		return true
	default:
		return false
	}
}

// RefillPenalty returns the cycles charged when the program counter is
// written.
func (t *Table) RefillPenalty() uint64 {
	return t.config.PipelineRefillPenalty
}

// RegisterShiftPenalty returns the extra cost of a register-specified
// shift.
func (t *Table) RegisterShiftPenalty() uint64 {
	return t.config.RegisterShiftPenalty
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
