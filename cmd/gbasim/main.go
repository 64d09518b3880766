// Command gbasim runs GBA programs on the ARM7TDMI model and reports their
// timing.
//
// Usage:
//
//	gbasim [options] <program.elf|image.gba>...
//
// Each program runs on its own machine. Programs run in parallel, up to -j
// at a time, and the reports are printed in argument order.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// cpuClock is the ARM7TDMI clock of the GBA in Hz.
const cpuClock = 1 << 24

type options struct {
	configPath      string
	biosPath        string
	hle             bool
	biosBoot        bool
	maxCycles       uint64
	maxInstructions uint64
	dumpPath        string
	jobs            int
	verbosity       int
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gbasim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to timing configuration JSON or YAML file")
	fs.StringVar(&opts.biosPath, "bios", "", "Path to a BIOS image (implies -boot)")
	fs.BoolVar(&opts.hle, "hle", true, "Serve SWI calls in Go instead of through the BIOS")
	fs.BoolVar(&opts.biosBoot, "boot", false, "Start from the reset vector and boot through the BIOS")
	fs.Uint64Var(&opts.maxCycles, "max-cycles", cpuClock, "Stop after this many cycles (0 = until halt)")
	fs.Uint64Var(&opts.maxInstructions, "max-instr", 0, "Stop after this many instructions (0 = unlimited)")
	fs.StringVar(&opts.dumpPath, "dump", "", "Write the final machine state as a Graphviz graph")
	fs.IntVar(&opts.jobs, "j", runtime.NumCPU(), "Number of programs to run in parallel")
	fs.IntVar(&opts.verbosity, "v", 0, "Log verbosity")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: gbasim [options] <program.elf|image.gba>...\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	logger := newLogger(stderr, opts.verbosity)

	results, err := runAll(ctx, logger, opts, fs.Args())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	newReporter(stdout).print(results)

	if opts.dumpPath != "" {
		if err := dumpAll(opts.dumpPath, results); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing dump: %v\n", err)
			return 1
		}
	}

	for _, r := range results {
		if r.Err != nil {
			return 1
		}
	}
	return 0
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
		} else {
			_, _ = fmt.Fprintln(w, args)
		}
	}, funcr.Options{Verbosity: verbosity})
}
