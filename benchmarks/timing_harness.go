// Package benchmarks provides timing benchmark infrastructure for the GBA
// CPU model.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/gbasim/loader"
	"github.com/sarchlab/gbasim/mem"
	"github.com/sarchlab/gbasim/timing/core"
	"github.com/sarchlab/gbasim/timing/latency"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing model
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// ThumbInstructions counts instructions retired in Thumb state
	ThumbInstructions uint64 `json:"thumb_instructions"`

	// Refills is the number of pipeline refills after PC writes
	Refills uint64 `json:"refills"`

	Loads    uint64 `json:"loads"`
	Stores   uint64 `json:"stores"`
	Branches uint64 `json:"branches"`
	Skipped  uint64 `json:"skipped"`

	// GamePak prefetch buffer stats
	PrefetchHits   uint64 `json:"prefetch_hits,omitempty"`
	PrefetchMisses uint64 `json:"prefetch_misses,omitempty"`

	// Result is R0 when the program halted
	Result uint32 `json:"result"`

	// Err is set if the run failed
	Err string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is the code to run. It ends with SWI 0x02 (Halt).
	Program *loader.Program

	// Setup prepares the machine after the program is loaded
	Setup func(c *core.Core)

	// ExpectedResult is the expected value of R0 (for validation)
	ExpectedResult uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing is the cycle cost table. Nil means the defaults.
	Timing *latency.TimingConfig

	// ChargeFetchWaits charges the bus cost of every instruction fetch
	ChargeFetchWaits bool

	// EnablePrefetch turns on the GamePak prefetch buffer through WAITCNT
	EnablePrefetch bool

	// MaxInstructions bounds each run (0 = no limit)
	MaxInstructions uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives the core's log output
	Logger logr.Logger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		ChargeFetchWaits: true,
		MaxInstructions:  1_000_000,
		Output:           os.Stdout,
		Logger:           logr.Discard(),
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

func (h *Harness) timingConfig() *latency.TimingConfig {
	var cfg *latency.TimingConfig
	if h.config.Timing != nil {
		cfg = h.config.Timing.Clone()
	} else {
		cfg = latency.DefaultTimingConfig()
	}
	cfg.ChargeFetchWaits = cfg.ChargeFetchWaits || h.config.ChargeFetchWaits
	return cfg
}

// runBenchmark executes a single benchmark on a fresh machine.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	c, err := core.NewCore(
		core.WithLogger(h.config.Logger.WithValues("benchmark", bench.Name)),
		core.WithTimingConfig(h.timingConfig()),
		core.WithHLEBIOS(),
		core.WithMaxInstructions(h.config.MaxInstructions),
	)
	if err == nil {
		err = c.Load(bench.Program)
	}
	if err != nil {
		result.Err = err.Error()
		return result
	}

	if h.config.EnablePrefetch {
		c.Bus().Write16(mem.IOBase+mem.RegWAITCNT, 1<<14)
	}
	if bench.Setup != nil {
		bench.Setup(c)
	}

	start := time.Now()
	err = c.Run()
	result.WallTime = time.Since(start)
	if err != nil {
		result.Err = err.Error()
	}

	stats := c.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.ThumbInstructions = stats.ThumbInstructions
	result.Refills = stats.Refills
	result.Loads = stats.Loads
	result.Stores = stats.Stores
	result.Branches = stats.Branches
	result.Skipped = stats.Skipped
	result.Result = c.Emulator().RegFile().ReadReg(0)

	if pf := c.Prefetch(); pf != nil {
		pfStats := pf.Stats()
		result.PrefetchHits = pfStats.Hits
		result.PrefetchMisses = pfStats.Misses
	}

	if h.config.Verbose {
		_, _ = fmt.Fprintf(h.config.Output, "ran %s: %d cycles\n", bench.Name, stats.Cycles)
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== GBA Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		if r.Err != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Err)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Result (R0): %d\n", r.Result)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Thumb Instructions:   %d\n", r.ThumbInstructions)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Refills:     %d\n", r.Refills)
		_, _ = fmt.Fprintf(h.config.Output, "  Loads/Stores:         %d/%d\n", r.Loads, r.Stores)
		_, _ = fmt.Fprintf(h.config.Output, "  Branches:             %d\n", r.Branches)
		_, _ = fmt.Fprintf(h.config.Output, "  Skipped:              %d\n", r.Skipped)

		if r.PrefetchHits > 0 || r.PrefetchMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Prefetch ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.PrefetchHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.PrefetchMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,thumb_instructions,refills,loads,stores,branches,skipped,prefetch_hits,prefetch_misses,result")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.ThumbInstructions,
			r.Refills,
			r.Loads,
			r.Stores,
			r.Branches,
			r.Skipped,
			r.PrefetchHits,
			r.PrefetchMisses,
			r.Result,
		)
	}
}

// Helpers for building programs

// BuildProgram assembles ARM instruction words into a byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 0, len(instrs)*4)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint32(program, inst)
	}
	return program
}

// BuildThumbProgram assembles Thumb halfwords into a byte slice.
func BuildThumbProgram(instrs ...uint16) []byte {
	program := make([]byte, 0, len(instrs)*2)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint16(program, inst)
	}
	return program
}

// GamePakProgram places code at the start of the GamePak.
func GamePakProgram(code []byte, thumb bool) *loader.Program {
	return placeProgram(mem.ROMBase, code, thumb)
}

// IWRAMProgram places code at the start of IWRAM.
func IWRAMProgram(code []byte, thumb bool) *loader.Program {
	return placeProgram(mem.IWRAMBase, code, thumb)
}

func placeProgram(addr uint32, code []byte, thumb bool) *loader.Program {
	entry := addr
	if thumb {
		entry |= 1
	}
	return &loader.Program{
		Entry: entry,
		Segments: []loader.Segment{{
			Addr:    addr,
			Data:    code,
			MemSize: uint32(len(code)),
			Flags:   loader.SegmentFlagRead | loader.SegmentFlagExecute,
		}},
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	ChargeFetchWaits bool `json:"charge_fetch_waits"`
	PrefetchEnabled  bool `json:"prefetch_enabled"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Version is reported in the JSON metadata.
const Version = "0.1.0"

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config: BenchmarkConfig{
				ChargeFetchWaits: h.config.ChargeFetchWaits,
				PrefetchEnabled:  h.config.EnablePrefetch,
			},
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
