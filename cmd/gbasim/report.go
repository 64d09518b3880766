package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bradleyjkemp/memviz"
	"golang.org/x/term"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/timing/core"
)

type reporter struct {
	out  io.Writer
	rule string
}

// newReporter draws separator rules sized to the terminal when out is one.
func newReporter(out io.Writer) *reporter {
	r := &reporter{out: out}

	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r
	}

	width := 72
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w < width {
		width = w
	}
	r.rule = strings.Repeat("=", width)
	return r
}

func (r *reporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *reporter) print(results []Result) {
	for i, res := range results {
		if i > 0 {
			r.printf("\n")
		}
		r.printOne(res)
	}
}

func (r *reporter) printOne(res Result) {
	if r.rule != "" {
		r.printf("%s\n", r.rule)
	}
	r.printf("Program: %s\n", res.Path)

	if prog := res.Program; prog != nil {
		r.printf("SHA-1: %s\n", prog.Hash)
		if h := prog.Header; h != nil {
			r.printf("Title: %s (%s, maker %s, v%d)\n", h.Title, h.GameCode, h.MakerCode, h.Version)
		}
		state := "ARM"
		if prog.Thumb() {
			state = "Thumb"
		}
		r.printf("Entry point: 0x%08X (%s)\n", prog.Entry&^1, state)
	}

	if res.Err != nil {
		r.printf("Error: %v\n", res.Err)
		if res.Program == nil {
			return
		}
	}

	s := res.Stats
	r.printf("Stopped: %s\n", res.Reason)
	r.printf("\n")
	r.printf("Total Instructions: %d\n", s.Instructions)
	r.printf("Total Cycles: %d\n", s.Cycles)
	r.printf("CPI: %.2f\n", s.CPI())
	r.printf("Simulated time: %.3f ms\n", 1000*float64(s.Cycles)/cpuClock)
	r.printf("\n")
	r.printf("Breakdown:\n")
	r.printf("  Thumb:     %8d (%5.1f%%)\n", s.ThumbInstructions, percent(s.ThumbInstructions, s.Instructions))
	r.printf("  Skipped:   %8d (%5.1f%%)\n", s.Skipped, percent(s.Skipped, s.Instructions))
	r.printf("  Loads:     %8d\n", s.Loads)
	r.printf("  Stores:    %8d\n", s.Stores)
	r.printf("  Branches:  %8d\n", s.Branches)
	r.printf("  Refills:   %8d\n", s.Refills)
	r.printf("  IRQs:      %8d\n", s.IRQs)
	r.printf("  Halted:    %8d cycles (%5.1f%%)\n", s.HaltCycles, percent(s.HaltCycles, s.Cycles))
	r.printf("  Prefetch hit rate: %.1f%%\n", 100*res.PrefetchHitRate)
	r.printf("\n")
	r.printRegisters(res.State)
}

func (r *reporter) printRegisters(state emu.State) {
	r.printf("Registers:\n")
	for i := 0; i < 16; i += 4 {
		r.printf("  r%-2d 0x%08X  r%-2d 0x%08X  r%-2d 0x%08X  r%-2d 0x%08X\n",
			i, state.R[i], i+1, state.R[i+1], i+2, state.R[i+2], i+3, state.R[i+3])
	}
	r.printf("  cpsr %s\n", state.CPSR)
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// dumpState is the part of a result drawn by -dump.
type dumpState struct {
	Path   string
	Reason string
	Error  string
	Stats  *core.Stats
	CPU    *emu.State
}

// dumpAll writes one Graphviz file per result. With several programs the
// index is inserted before the extension.
func dumpAll(path string, results []Result) error {
	for i, res := range results {
		target := path
		if len(results) > 1 {
			ext := filepath.Ext(path)
			target = fmt.Sprintf("%s.%d%s", strings.TrimSuffix(path, ext), i, ext)
		}
		if err := dumpOne(target, res); err != nil {
			return err
		}
	}
	return nil
}

func dumpOne(path string, res Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	d := &dumpState{
		Path:   res.Path,
		Reason: string(res.Reason),
		Stats:  &res.Stats,
		CPU:    &res.State,
	}
	if res.Err != nil {
		d.Error = res.Err.Error()
	}

	memviz.Map(f, d)
	return nil
}
