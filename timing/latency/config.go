package latency

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/gbasim/mem"
)

// TimingConfig holds the cycle costs charged by the execution core.
// Values follow the ARM7TDMI datasheet as wired on the GBA.
type TimingConfig struct {
	// ALULatency is the cost of a data processing instruction.
	// Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency" yaml:"alu_latency"`

	// RegisterShiftPenalty is added when a shift amount is read from a
	// register. Default: 1 cycle.
	RegisterShiftPenalty uint64 `json:"register_shift_penalty" yaml:"register_shift_penalty"`

	// PipelineRefillPenalty is added whenever an instruction writes the
	// program counter. Default: 2 cycles.
	PipelineRefillPenalty uint64 `json:"pipeline_refill_penalty" yaml:"pipeline_refill_penalty"`

	// BranchLatency is the cost of B, BL and BX before the refill.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency" yaml:"branch_latency"`

	// LoadLatency is the cost of a load before the memory access cost.
	// Default: 2 cycles.
	LoadLatency uint64 `json:"load_latency" yaml:"load_latency"`

	// StoreLatency is the cost of a store before the memory access cost.
	// Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency" yaml:"store_latency"`

	// Multiply latencies for MUL, MLA, UMULL/SMULL and UMLAL/SMLAL.
	// Defaults: 2, 3, 3 and 4 cycles.
	MultiplyLatency               uint64 `json:"multiply_latency" yaml:"multiply_latency"`
	MultiplyAccumulateLatency     uint64 `json:"multiply_accumulate_latency" yaml:"multiply_accumulate_latency"`
	MultiplyLongLatency           uint64 `json:"multiply_long_latency" yaml:"multiply_long_latency"`
	MultiplyLongAccumulateLatency uint64 `json:"multiply_long_accumulate_latency" yaml:"multiply_long_accumulate_latency"`

	// PreciseMultiply replaces the fixed multiply latencies with the
	// operand-dependent m-cycle count. Default: false.
	PreciseMultiply bool `json:"precise_multiply" yaml:"precise_multiply"`

	// SwapLatency is the total cost of SWP and SWPB. Default: 4 cycles.
	SwapLatency uint64 `json:"swap_latency" yaml:"swap_latency"`

	// PSRTransferLatency is the cost of MRS and MSR. Default: 1 cycle.
	PSRTransferLatency uint64 `json:"psr_transfer_latency" yaml:"psr_transfer_latency"`

	// SyscallLatency is the cost of SWI when it enters the BIOS vector.
	// A syscall handler reports its own cost instead. Default: 1 cycle.
	SyscallLatency uint64 `json:"syscall_latency" yaml:"syscall_latency"`

	// SkippedLatency is the cost of an instruction whose condition fails.
	// Default: 1 cycle.
	SkippedLatency uint64 `json:"skipped_latency" yaml:"skipped_latency"`

	// UndefinedLatency is the cost of an undecodable instruction.
	// Default: 1 cycle.
	UndefinedLatency uint64 `json:"undefined_latency" yaml:"undefined_latency"`

	// ChargeFetchWaits adds the bus cost of each instruction fetch.
	// Default: false.
	ChargeFetchWaits bool `json:"charge_fetch_waits" yaml:"charge_fetch_waits"`

	// PrefetchDepth is the number of halfwords held by the GamePak
	// prefetch buffer. Default: 8.
	PrefetchDepth int `json:"prefetch_depth" yaml:"prefetch_depth"`

	// WaitStates is the per-region wait-state table in effect at reset.
	WaitStates mem.WaitStates `json:"wait_states" yaml:"wait_states"`
}

// DefaultTimingConfig returns a TimingConfig with ARM7TDMI defaults.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:                    1,
		RegisterShiftPenalty:          1,
		PipelineRefillPenalty:         2,
		BranchLatency:                 1,
		LoadLatency:                   2,
		StoreLatency:                  1,
		MultiplyLatency:               2,
		MultiplyAccumulateLatency:     3,
		MultiplyLongLatency:           3,
		MultiplyLongAccumulateLatency: 4,
		SwapLatency:                   4,
		PSRTransferLatency:            1,
		SyscallLatency:                1,
		SkippedLatency:                1,
		UndefinedLatency:              1,
		PrefetchDepth:                 8,
		WaitStates:                    mem.DefaultWaitStates(),
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig loads a TimingConfig from a JSON or YAML file. Fields missing
// from the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON or YAML file, chosen by the
// file extension.
func (c *TimingConfig) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that every latency that must cost time is > 0.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.MultiplyAccumulateLatency < c.MultiplyLatency {
		return fmt.Errorf("multiply_accumulate_latency must be >= multiply_latency")
	}
	if c.MultiplyLongAccumulateLatency < c.MultiplyLongLatency {
		return fmt.Errorf("multiply_long_accumulate_latency must be >= multiply_long_latency")
	}
	if c.SwapLatency == 0 {
		return fmt.Errorf("swap_latency must be > 0")
	}
	if c.SkippedLatency == 0 {
		return fmt.Errorf("skipped_latency must be > 0")
	}
	if c.UndefinedLatency == 0 {
		return fmt.Errorf("undefined_latency must be > 0")
	}
	if c.PrefetchDepth < 0 {
		return fmt.Errorf("prefetch_depth must be >= 0")
	}
	if err := c.WaitStates.Validate(); err != nil {
		return fmt.Errorf("wait_states: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
