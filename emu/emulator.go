package emu

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/gbasim/insts"
	"github.com/sarchlab/gbasim/irq"
	"github.com/sarchlab/gbasim/mem"
	"github.com/sarchlab/gbasim/timing/latency"
)

// ErrMaxInstructions is returned by Step once the instruction limit is hit.
var ErrMaxInstructions = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Cycles is the number of cycles consumed.
	Cycles uint64

	// Op is the operation executed, OpUnknown for undecodable code or when
	// no instruction ran.
	Op insts.Op

	// Thumb is true if the instruction was a Thumb instruction.
	Thumb bool

	// Skipped is true if the condition check failed.
	Skipped bool

	// Refill is true if the instruction wrote the PC.
	Refill bool

	// IRQ is true if the step entered the IRQ handler instead of executing
	// an instruction. Source names the interrupt.
	IRQ    bool
	Source irq.Source

	// Halted is true if the core is halted and nothing can wake it.
	Halted bool

	// Err is set if a host limit stopped execution.
	Err error
}

// InterruptLine is the view of the interrupt controller the core samples
// before each instruction. *irq.Controller implements it.
type InterruptLine interface {
	// Pending returns the interrupt to take, honouring IME.
	Pending() (irq.Source, bool)
	// WakeUp reports whether an enabled interrupt is requested, ignoring
	// IME, which ends a halt.
	WakeUp() bool
}

// HaltSignal is implemented by buses with a HALTCNT register.
type HaltSignal interface {
	HaltRequested() bool
}

// Emulator executes ARM7TDMI instructions functionally.
type Emulator struct {
	regFile      *RegFile
	bus          Bus
	decoder      *insts.Decoder
	thumbDecoder *insts.ThumbDecoder
	latency      *latency.Table
	config       *latency.TimingConfig
	logger       logr.Logger

	syscallHandler SyscallHandler
	useHLE         bool
	interrupts     InterruptLine
	haltSignal     HaltSignal

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit
	psrUnit    *PSRUnit

	// Execution state
	halted           bool
	skipped          bool
	instructionCount uint64
	cycleCount       uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logr.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithBus sets the memory system. By default the emulator creates a
// *mem.Bus with the configured wait states.
func WithBus(bus Bus) EmulatorOption {
	return func(e *Emulator) {
		e.bus = bus
	}
}

// WithSyscallHandler sets a custom SWI handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithHLEBIOS serves SWI calls with an HLEBIOS instead of the BIOS vector.
func WithHLEBIOS() EmulatorOption {
	return func(e *Emulator) {
		e.useHLE = true
	}
}

// WithInterrupts connects the interrupt controller.
func WithInterrupts(line InterruptLine) EmulatorOption {
	return func(e *Emulator) {
		e.interrupts = line
	}
}

// WithTimingConfig sets the cycle costs.
func WithTimingConfig(config *latency.TimingConfig) EmulatorOption {
	return func(e *Emulator) {
		e.config = config
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new ARM7TDMI emulator in the reset state.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile:      &RegFile{},
		decoder:      insts.NewDecoder(),
		thumbDecoder: insts.NewThumbDecoder(),
		logger:       logr.Discard(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.config == nil {
		e.config = latency.DefaultTimingConfig()
	}
	e.latency = latency.NewTableWithConfig(e.config)

	if e.bus == nil {
		e.bus = mem.NewBus(
			mem.WithWaitStates(e.config.WaitStates),
			mem.WithLogger(e.logger.WithName("bus")),
		)
	}
	e.haltSignal, _ = e.bus.(HaltSignal)

	// Create execution units
	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.bus)
	e.branchUnit = NewBranchUnit(e.regFile)
	e.psrUnit = NewPSRUnit(e.regFile)

	if e.syscallHandler == nil && e.useHLE {
		e.syscallHandler = NewHLEBIOS(e)
	}

	e.Reset()

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Bus returns the emulator's memory system.
func (e *Emulator) Bus() Bus {
	return e.bus
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// CycleCount returns the number of cycles consumed.
func (e *Emulator) CycleCount() uint64 {
	return e.cycleCount
}

// Halted reports whether the core waits for an interrupt.
func (e *Emulator) Halted() bool {
	return e.halted
}

// Halt stops execution until an enabled interrupt is requested.
func (e *Emulator) Halt() {
	e.halted = true
}

// Reset puts the core in its power-on state: Supervisor mode, ARM state,
// IRQ and FIQ masked, PC at the reset vector. Memory is left alone.
func (e *Emulator) Reset() {
	*e.regFile = RegFile{}
	e.regFile.CPSR = PSR(ModeSupervisor) | FlagI | FlagF
	e.regFile.SetPC(VectorReset)

	e.halted = false
	e.instructionCount = 0
	e.cycleCount = 0
}

// SkipBIOS puts the core in the state the BIOS leaves it in when it enters
// the GamePak: System mode, stacks set up, PC at 0x08000000.
func (e *Emulator) SkipBIOS() {
	e.Reset()
	rf := e.regFile

	rf.SetMode(ModeIRQ)
	rf.WriteReg(13, mem.InitialSPIRQ)
	rf.SetMode(ModeSupervisor)
	rf.WriteReg(13, mem.InitialSPSVC)
	rf.SetCPSR(PSR(ModeSystem))
	rf.WriteReg(13, mem.InitialSP)

	rf.SetPC(mem.ROMBase)
}

// Jump sets the address of the next instruction. Bit 0 selects Thumb
// state.
func (e *Emulator) Jump(addr uint32) {
	rf := e.regFile
	rf.CPSR = rf.CPSR.With(FlagT, addr&1 != 0)
	rf.SetPC(addr)
	e.alignPC()
}

func (e *Emulator) alignPC() {
	rf := e.regFile
	if rf.CPSR.Thumb() {
		rf.R[15] &^= 1
	} else {
		rf.R[15] &^= 3
	}
}

// Step executes a single instruction, or enters the IRQ handler if an
// interrupt is pending. Interrupts are sampled once, before the fetch.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	rf := e.regFile

	if e.halted {
		if e.interrupts == nil || !e.interrupts.WakeUp() {
			e.cycleCount++
			return StepResult{Cycles: 1, Halted: true}
		}
		e.halted = false
	}

	if e.interrupts != nil && !rf.CPSR.IRQDisabled() {
		if src, ok := e.interrupts.Pending(); ok {
			return e.takeIRQ(src)
		}
	}

	pc := rf.PC()
	thumb := rf.CPSR.Thumb()
	rf.ClearPCWritten()
	e.skipped = false

	var (
		cycles uint64
		op     insts.Op
		width  uint32
	)
	if thumb {
		pc &^= 1
		width = 2
		half := e.bus.Read16(pc)
		rf.SetPC(pc + 4)
		cycles, op = e.executeThumb(half, pc)
		cycles += e.fetchWaits(pc, mem.Half)
	} else {
		pc &^= 3
		width = 4
		word := e.bus.Read32(pc)
		rf.SetPC(pc + 8)
		cycles, op = e.executeARM(word, pc)
		cycles += e.fetchWaits(pc, mem.Word)
	}

	res := StepResult{Op: op, Thumb: thumb}
	if rf.PCWritten() {
		e.alignPC()
		cycles += e.latency.RefillPenalty()
		res.Refill = true
		rf.ClearPCWritten()
	} else {
		rf.SetPC(pc + width)
	}
	res.Skipped = e.skipped

	if e.haltSignal != nil && e.haltSignal.HaltRequested() {
		e.halted = true
	}

	e.instructionCount++
	e.cycleCount += cycles
	res.Cycles = cycles
	return res
}

// executeARM executes one ARM instruction fetched from pc. R15 already
// reads as pc+8.
func (e *Emulator) executeARM(word, pc uint32) (uint64, insts.Op) {
	inst := e.decoder.Decode(word)
	rf := e.regFile

	if inst.Op == insts.OpUnknown {
		e.logger.Info("undefined instruction", "pc", hex32(pc), "word", hex32(word))
		return e.config.UndefinedLatency, insts.OpUnknown
	}

	if !CheckCondition(inst.Cond, rf.CPSR) {
		e.skipped = true
		return e.config.SkippedLatency, inst.Op
	}

	if log := e.logger.V(3); log.Enabled() {
		log.Info("exec", "pc", hex32(pc), "inst", inst.String())
	}

	cycles := e.latency.GetLatency(inst)

	switch inst.Format {
	case insts.FormatDataProcessing:
		e.alu.DataProcessing(inst)
		if inst.ShiftByReg {
			cycles += e.latency.RegisterShiftPenalty()
		}

	case insts.FormatMultiply:
		cycles = e.latency.MultiplyLatency(inst.Op, rf.ReadReg(inst.Rs))
		e.alu.Multiply(inst)

	case insts.FormatMultiplyLong:
		cycles = e.latency.MultiplyLatency(inst.Op, rf.ReadReg(inst.Rs))
		e.alu.MultiplyLong(inst)

	case insts.FormatSingleTransfer:
		cycles += e.lsu.SingleTransfer(inst)

	case insts.FormatHalfwordTransfer:
		cycles += e.lsu.HalfwordTransfer(inst)

	case insts.FormatBlockTransfer:
		cycles += e.lsu.BlockTransfer(inst)

	case insts.FormatBranch:
		if inst.Op == insts.OpBL {
			e.branchUnit.BL(inst.BranchOffset)
		} else {
			e.branchUnit.B(inst.BranchOffset)
		}

	case insts.FormatBranchExchange:
		e.branchUnit.BX(inst.Rm)

	case insts.FormatSwap:
		e.lsu.Swap(inst)

	case insts.FormatPSRTransfer:
		if inst.Op == insts.OpMRS {
			e.psrUnit.MRS(inst)
		} else {
			e.psrUnit.MSR(inst)
		}

	case insts.FormatSWI:
		cycles = e.softwareInterrupt(uint8(inst.Imm), pc+4)

	default:
		e.logger.Info("undefined instruction", "pc", hex32(pc), "word", hex32(word))
		return e.config.UndefinedLatency, insts.OpUnknown
	}

	return cycles, inst.Op
}

// softwareInterrupt serves SWI call. Without a syscall handler the core
// enters Supervisor mode at the SWI vector and next becomes the return
// address.
func (e *Emulator) softwareInterrupt(call uint8, next uint32) uint64 {
	if e.syscallHandler != nil {
		e.logger.V(2).Info("swi", "call", call)
		return e.syscallHandler.Handle(call)
	}

	e.logger.V(1).Info("swi through BIOS vector", "call", call, "return", hex32(next))
	e.enterException(ModeSupervisor, VectorSWI, next)
	return e.config.SyscallLatency
}

// takeIRQ enters the IRQ handler. LR is set so that SUBS PC, LR, #4
// resumes at the instruction that was about to run.
func (e *Emulator) takeIRQ(src irq.Source) StepResult {
	rf := e.regFile
	next := rf.PC()

	e.logger.V(2).Info("irq entry", "source", src.String(), "pc", hex32(next))
	e.enterException(ModeIRQ, VectorIRQ, next+4)
	e.alignPC()
	rf.ClearPCWritten()

	cycles := e.config.BranchLatency + e.latency.RefillPenalty()
	e.cycleCount += cycles
	return StepResult{Cycles: cycles, IRQ: true, Source: src, Refill: true}
}

// fetchWaits returns the wait states of an instruction fetch when
// ChargeFetchWaits is set.
func (e *Emulator) fetchWaits(pc uint32, width mem.Width) uint64 {
	if !e.config.ChargeFetchWaits {
		return 0
	}
	if access := e.lsu.access(pc, width); access > 1 {
		return access - 1
	}
	return 0
}

// Run executes instructions until the core halts with nothing to wake it,
// or a host limit is hit. It returns the cycles consumed.
func (e *Emulator) Run() (uint64, error) {
	var cycles uint64
	for {
		result := e.Step()
		cycles += result.Cycles
		if result.Err != nil {
			return cycles, result.Err
		}
		if result.Halted {
			return cycles, nil
		}
	}
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}
