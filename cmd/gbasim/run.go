package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/loader"
	"github.com/sarchlab/gbasim/timing/core"
	"github.com/sarchlab/gbasim/timing/latency"
)

// runSlice is the number of cycles run between cancellation checks.
const runSlice = 1 << 16

// StopReason tells why a run ended.
type StopReason string

// Stop reasons.
const (
	StopHalted           StopReason = "halted"
	StopCycleLimit       StopReason = "cycle limit"
	StopInstructionLimit StopReason = "instruction limit"
	StopError            StopReason = "error"
)

// Result is the outcome of one program.
type Result struct {
	Path    string
	Program *loader.Program
	Reason  StopReason
	Stats   core.Stats
	State   emu.State

	PrefetchHitRate float64
	Err             error
}

func runAll(ctx context.Context, logger logr.Logger, opts options, paths []string) ([]Result, error) {
	config := latency.DefaultTimingConfig()
	if opts.configPath != "" {
		var err error
		config, err = latency.LoadConfig(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading timing config: %w", err)
		}
	}

	var bios []byte
	if opts.biosPath != "" {
		var err error
		bios, err = os.ReadFile(opts.biosPath)
		if err != nil {
			return nil, fmt.Errorf("reading BIOS: %w", err)
		}
	}

	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if opts.jobs > 0 {
		g.SetLimit(opts.jobs)
	}

	for i, path := range paths {
		g.Go(func() error {
			log := logger.WithValues("program", filepath.Base(path))
			results[i] = runProgram(ctx, log, config.Clone(), bios, opts, path)
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runProgram(
	ctx context.Context,
	logger logr.Logger,
	config *latency.TimingConfig,
	bios []byte,
	opts options,
	path string,
) Result {
	res := Result{Path: path, Reason: StopError}

	prog, err := loader.Load(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Program = prog

	coreOpts := []core.Option{
		core.WithLogger(logger),
		core.WithTimingConfig(config),
		core.WithMaxInstructions(opts.maxInstructions),
	}
	if bios != nil {
		coreOpts = append(coreOpts, core.WithBIOS(bios))
	}
	if opts.biosBoot {
		coreOpts = append(coreOpts, core.WithBIOSBoot())
	}
	if opts.hle {
		coreOpts = append(coreOpts, core.WithHLEBIOS())
	}

	c, err := core.NewCore(coreOpts...)
	if err != nil {
		res.Err = err
		return res
	}
	if err := c.Load(prog); err != nil {
		res.Err = err
		return res
	}

	res.Reason, res.Err = execute(ctx, c, opts.maxCycles)

	res.Stats = c.Stats()
	res.State = c.Emulator().Snapshot()
	if pf := c.Prefetch(); pf != nil {
		res.PrefetchHitRate = pf.Stats().HitRate()
	}

	logger.V(1).Info("run finished",
		"reason", string(res.Reason),
		"cycles", res.Stats.Cycles,
		"instructions", res.Stats.Instructions)

	return res
}

// execute runs c in slices until it halts, hits a limit or ctx is done.
func execute(ctx context.Context, c *core.Core, maxCycles uint64) (StopReason, error) {
	for {
		if err := ctx.Err(); err != nil {
			return StopError, err
		}

		budget := uint64(runSlice)
		if maxCycles > 0 {
			spent := c.Stats().Cycles
			if spent >= maxCycles {
				return StopCycleLimit, nil
			}
			budget = min(budget, maxCycles-spent)
		}

		running, err := c.RunCycles(budget)
		switch {
		case errors.Is(err, emu.ErrMaxInstructions):
			return StopInstructionLimit, nil
		case err != nil:
			return StopError, err
		case !running:
			return StopHalted, nil
		}
	}
}
