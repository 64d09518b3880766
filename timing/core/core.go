// Package core ties the ARM7TDMI emulator, the memory bus, the interrupt
// controller and the GamePak prefetch buffer into one simulated GBA CPU.
package core

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/irq"
	"github.com/sarchlab/gbasim/loader"
	"github.com/sarchlab/gbasim/mem"
	"github.com/sarchlab/gbasim/timing/latency"
	"github.com/sarchlab/gbasim/timing/prefetch"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// ThumbInstructions counts the retired instructions executed in
	// Thumb state.
	ThumbInstructions uint64
	// Skipped counts instructions whose condition failed.
	Skipped uint64
	// IRQs counts interrupt entries.
	IRQs uint64
	// Refills counts pipeline refills after a PC write.
	Refills uint64
	// Loads, Stores and Branches count retired instructions by class.
	Loads    uint64
	Stores   uint64
	Branches uint64
	// HaltCycles is the number of cycles spent halted.
	HaltCycles uint64
}

// CPI returns cycles per retired instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Core is a simulated GBA CPU with its memory system.
type Core struct {
	emulator   *emu.Emulator
	bus        *mem.Bus
	interrupts *irq.Controller
	prefetch   *prefetch.Buffer
	latency    *latency.Table
	config     *latency.TimingConfig
	logger     logr.Logger

	biosImage       []byte
	bootBIOS        bool
	hle             bool
	maxInstructions uint64

	program *loader.Program
	stats   Stats
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithTimingConfig sets the cycle costs and wait states.
func WithTimingConfig(config *latency.TimingConfig) Option {
	return func(c *Core) {
		c.config = config
	}
}

// WithBIOS replaces the built-in BIOS with image and boots through it.
func WithBIOS(image []byte) Option {
	return func(c *Core) {
		c.biosImage = image
		c.bootBIOS = true
	}
}

// WithBIOSBoot starts programs from the reset vector instead of the state
// the BIOS leaves behind.
func WithBIOSBoot() Option {
	return func(c *Core) {
		c.bootBIOS = true
	}
}

// WithHLEBIOS serves SWI calls in Go instead of through the BIOS.
func WithHLEBIOS() Option {
	return func(c *Core) {
		c.hle = true
	}
}

// WithMaxInstructions stops execution after max instructions. A value of
// 0 means no limit.
func WithMaxInstructions(max uint64) Option {
	return func(c *Core) {
		c.maxInstructions = max
	}
}

// NewCore creates a core with nothing loaded.
func NewCore(opts ...Option) (*Core, error) {
	c := &Core{logger: logr.Discard()}
	for _, opt := range opts {
		opt(c)
	}

	if c.config == nil {
		c.config = latency.DefaultTimingConfig()
	}
	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}
	c.latency = latency.NewTableWithConfig(c.config)

	c.interrupts = irq.NewController(irq.WithLogger(c.logger.WithName("irq")))

	busOpts := []mem.Option{
		mem.WithLogger(c.logger.WithName("bus")),
		mem.WithWaitStates(c.config.WaitStates),
		mem.WithInterrupts(c.interrupts),
	}
	if c.config.PrefetchDepth > 0 {
		c.prefetch = prefetch.New(c.config.PrefetchDepth)
		busOpts = append(busOpts, mem.WithPrefetch(c.prefetch))
	}
	if c.biosImage != nil {
		if len(c.biosImage) > mem.BIOSSize {
			return nil, fmt.Errorf("BIOS image is %d bytes, larger than %d",
				len(c.biosImage), mem.BIOSSize)
		}
		busOpts = append(busOpts, mem.WithBIOS(c.biosImage))
	}
	c.bus = mem.NewBus(busOpts...)

	emuOpts := []emu.EmulatorOption{
		emu.WithLogger(c.logger.WithName("cpu")),
		emu.WithBus(c.bus),
		emu.WithInterrupts(c.interrupts),
		emu.WithTimingConfig(c.config),
		emu.WithMaxInstructions(c.maxInstructions),
	}
	if c.hle {
		emuOpts = append(emuOpts, emu.WithHLEBIOS())
	}
	c.emulator = emu.NewEmulator(emuOpts...)

	return c, nil
}

// Load places prog on the bus and points the CPU at its entry. GamePak
// segments become the cartridge; the other segments are copied into RAM
// and zero-filled up to their memory size.
func (c *Core) Load(prog *loader.Program) error {
	if c.bootBIOS && prog.Entry != mem.ROMBase {
		return fmt.Errorf("BIOS boot enters the GamePak at 0x%08X, program entry is 0x%08X",
			mem.ROMBase, prog.Entry)
	}

	c.bus.Reset()
	c.interrupts.Reset()

	if rom := prog.ROM(); rom != nil {
		cart, err := mem.NewROMCartridge(rom)
		if err != nil {
			return fmt.Errorf("failed to build cartridge: %w", err)
		}
		c.bus.SetCartridge(cart)
	} else {
		c.bus.SetCartridge(nil)
	}

	for _, seg := range prog.RAMSegments() {
		data := seg.Data
		if int(seg.MemSize) > len(data) {
			data = make([]byte, seg.MemSize)
			copy(data, seg.Data)
		}
		if err := c.bus.LoadBytes(seg.Addr, data); err != nil {
			return fmt.Errorf("failed to load segment at 0x%08X: %w", seg.Addr, err)
		}
	}

	if c.bootBIOS {
		c.emulator.Reset()
	} else {
		c.emulator.SkipBIOS()
		c.emulator.Jump(prog.Entry)
	}

	c.program = prog
	c.resetStats()

	c.logger.V(1).Info("program loaded",
		"entry", fmt.Sprintf("0x%08X", prog.Entry),
		"segments", len(prog.Segments),
		"biosBoot", c.bootBIOS)

	return nil
}

// Reset restarts the loaded program from a clean memory state.
func (c *Core) Reset() error {
	if c.program == nil {
		c.bus.Reset()
		c.interrupts.Reset()
		c.emulator.Reset()
		c.resetStats()
		return nil
	}
	return c.Load(c.program)
}

func (c *Core) resetStats() {
	c.stats = Stats{}
	if c.prefetch != nil {
		c.prefetch.Invalidate()
		c.prefetch.ResetStats()
	}
}

// Step executes one instruction, one IRQ entry or one halted cycle.
func (c *Core) Step() emu.StepResult {
	res := c.emulator.Step()
	if res.Err != nil {
		return res
	}

	s := &c.stats
	s.Cycles += res.Cycles

	switch {
	case res.Halted:
		s.HaltCycles += res.Cycles
		return res
	case res.IRQ:
		s.IRQs++
		c.logger.V(2).Info("irq taken", "source", res.Source.String())
		return res
	}

	s.Instructions++
	if res.Thumb {
		s.ThumbInstructions++
	}
	if res.Refill {
		s.Refills++
	}
	if res.Skipped {
		s.Skipped++
		return res
	}

	switch {
	case c.latency.IsLoadOp(res.Op):
		s.Loads++
	case c.latency.IsStoreOp(res.Op):
		s.Stores++
	case c.latency.IsBranchOp(res.Op):
		s.Branches++
	}

	return res
}

// RunCycles executes until at least cycles have elapsed. It returns true
// if the core can keep running, false if it halted with nothing to wake
// it. The instruction limit is reported as emu.ErrMaxInstructions.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	var elapsed uint64
	for elapsed < cycles {
		res := c.Step()
		if res.Err != nil {
			return false, res.Err
		}
		elapsed += res.Cycles
		if res.Halted && !c.interrupts.WakeUp() {
			return false, nil
		}
	}
	return true, nil
}

// Run executes until the core halts with nothing to wake it. Reaching the
// instruction limit is not an error.
func (c *Core) Run() error {
	for {
		res := c.Step()
		if errors.Is(res.Err, emu.ErrMaxInstructions) {
			c.logger.V(1).Info("instruction limit reached", "instructions", c.stats.Instructions)
			return nil
		}
		if res.Err != nil {
			return res.Err
		}
		if res.Halted && !c.interrupts.WakeUp() {
			return nil
		}
	}
}

// Halted reports whether the CPU waits for an interrupt.
func (c *Core) Halted() bool {
	return c.emulator.Halted()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}

// Emulator returns the CPU.
func (c *Core) Emulator() *emu.Emulator {
	return c.emulator
}

// Bus returns the memory bus.
func (c *Core) Bus() *mem.Bus {
	return c.bus
}

// Interrupts returns the interrupt controller.
func (c *Core) Interrupts() *irq.Controller {
	return c.interrupts
}

// Prefetch returns the GamePak prefetch buffer, nil if disabled.
func (c *Core) Prefetch() *prefetch.Buffer {
	return c.prefetch
}

// Program returns the loaded program, nil before Load.
func (c *Core) Program() *loader.Program {
	return c.program
}

// Snapshot is the complete machine state apart from the cartridge.
type Snapshot struct {
	CPU        emu.State
	Memory     mem.Snapshot
	Interrupts irq.State
	Stats      Stats
}

// Snapshot captures the machine state.
func (c *Core) Snapshot() Snapshot {
	return Snapshot{
		CPU:        c.emulator.Snapshot(),
		Memory:     c.bus.Snapshot(),
		Interrupts: c.interrupts.State(),
		Stats:      c.stats,
	}
}

// Restore rolls the machine back to s.
func (c *Core) Restore(s Snapshot) error {
	if err := c.bus.Restore(s.Memory); err != nil {
		return err
	}
	c.emulator.Restore(s.CPU)
	c.interrupts.SetState(s.Interrupts)
	c.stats = s.Stats
	return nil
}
