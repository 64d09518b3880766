// Measures decoder throughput and allocations for the ARM and Thumb
// decoders.
package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sarchlab/gbasim/insts"
)

const iterations = 100000

var armWords = []uint32{
	insts.EncodeADDImm(0, 1, 42, false),
	insts.EncodeSUBImm(9, 10, 5, true),
	insts.EncodeLDR(2, 13, -4),
	insts.EncodeBlockTransfer(false, insts.BlockDB, 13, 0x4FF0, true, false),
	insts.WithCond(insts.EncodeB(-8), insts.CondNE),
}

var thumbHalves = []uint16{
	insts.EncodeThumbImm(insts.OpADD, 0, 1),
	insts.EncodeThumbALU(0xD, 1, 2), // MUL
	insts.EncodeThumbLoadStoreImm(insts.OpLDR, 0, 1, 4),
	insts.EncodeThumbPush(0xF0, true),
	insts.EncodeThumbCondBranch(insts.CondNE, -4),
}

type measurement struct {
	decodes uint64
	elapsed time.Duration
	mallocs uint64
	bytes   uint64
}

func measure(decodesPerIter int, body func()) measurement {
	for i := 0; i < 1000; i++ {
		body()
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	for i := 0; i < iterations; i++ {
		body()
	}
	elapsed := time.Since(start)
	runtime.ReadMemStats(&m2)

	return measurement{
		decodes: uint64(iterations * decodesPerIter),
		elapsed: elapsed,
		mallocs: m2.Mallocs - m1.Mallocs,
		bytes:   m2.TotalAlloc - m1.TotalAlloc,
	}
}

func report(name string, m measurement) {
	fmt.Printf("%s decoder:\n", name)
	fmt.Printf("  Total decode operations: %d\n", m.decodes)
	fmt.Printf("  Time elapsed: %v\n", m.elapsed)
	fmt.Printf("  Decodes per second: %.0f\n", float64(m.decodes)/m.elapsed.Seconds())
	fmt.Printf("  Allocations per decode: %.3f\n", float64(m.mallocs)/float64(m.decodes))
	fmt.Printf("  Bytes per decode: %.1f\n", float64(m.bytes)/float64(m.decodes))
}

func main() {
	arm := insts.NewDecoder()
	thumb := insts.NewThumbDecoder()

	var sink int
	armM := measure(len(armWords), func() {
		for _, w := range armWords {
			if arm.Decode(w).Format == insts.FormatUnknown {
				sink++
			}
		}
	})
	thumbM := measure(len(thumbHalves), func() {
		for _, h := range thumbHalves {
			if thumb.Decode(h).Format == insts.ThumbFormatUnknown {
				sink++
			}
		}
	})

	fmt.Printf("Decoder Validation Results:\n")
	fmt.Printf("===========================\n")
	report("ARM", armM)
	report("Thumb", thumbM)

	if sink != 0 {
		fmt.Printf("\nWARNING: %d sample words did not decode\n", sink/(iterations+1000))
	}
}
