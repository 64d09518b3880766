// Package main provides a profiling wrapper for gbasim to identify
// performance bottlenecks in the simulator itself.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/loader"
	"github.com/sarchlab/gbasim/timing/core"
)

var (
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to execute (0 = unlimited)")
	emulateOnly = flag.Bool("emu", false, "profile the bare emulator without the timing core")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.elf|image.gba>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%08X\n", prog.Entry)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()

	var instrCount uint64
	if *emulateOnly {
		instrCount, err = runEmulationProfile(ctx, prog)
	} else {
		instrCount, err = runTimingProfile(ctx, prog)
	}

	elapsed := time.Since(start)

	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Printf("\nTimeout reached after %v - stopped execution\n", *duration)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Instructions executed: %d\n", instrCount)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
}

// checkEvery is the number of steps between deadline checks.
const checkEvery = 1 << 14

// runEmulationProfile drives the emulator directly, without statistics.
func runEmulationProfile(ctx context.Context, prog *loader.Program) (uint64, error) {
	c, err := core.NewCore(core.WithHLEBIOS())
	if err != nil {
		return 0, err
	}
	if err := c.Load(prog); err != nil {
		return 0, err
	}

	e := c.Emulator()
	for {
		for i := 0; i < checkEvery; i++ {
			res := e.Step()
			if res.Halted && !c.Interrupts().WakeUp() {
				return e.InstructionCount(), nil
			}
			if *instruction > 0 && e.InstructionCount() >= *instruction {
				return e.InstructionCount(), nil
			}
		}
		if err := ctx.Err(); err != nil {
			return e.InstructionCount(), err
		}
	}
}

// runTimingProfile runs the program through the timing core.
func runTimingProfile(ctx context.Context, prog *loader.Program) (uint64, error) {
	c, err := core.NewCore(
		core.WithHLEBIOS(),
		core.WithMaxInstructions(*instruction),
	)
	if err != nil {
		return 0, err
	}
	if err := c.Load(prog); err != nil {
		return 0, err
	}

	for {
		running, err := c.RunCycles(checkEvery)
		if errors.Is(err, emu.ErrMaxInstructions) || (err == nil && !running) {
			return c.Stats().Instructions, nil
		}
		if err != nil {
			return c.Stats().Instructions, err
		}
		if err := ctx.Err(); err != nil {
			return c.Stats().Instructions, err
		}
	}
}
