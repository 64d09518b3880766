package benchmarks

import (
	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/insts"
)

var (
	armHalt   = insts.EncodeSWI(emu.BIOSHalt)
	thumbHalt = insts.EncodeThumbSWI(emu.BIOSHalt)
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific CPU characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		memoryEWRAM(),
		functionCalls(),
		branchTaken(),
		multiplyChain(),
		loopSimulation(),
		thumbLoop(),
		iwramLoop(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a loop, a multiply chain and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		multiplyChain(),
		branchTaken(),
	}
}

// 1. Arithmetic Sequential - ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	instrs := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		r := uint8(i % 5)
		instrs = append(instrs, insts.EncodeADDImm(r, r, 1, false))
	}
	instrs = append(instrs, armHalt)

	return Benchmark{
		Name:           "arithmetic_sequential",
		Description:    "20 independent ADD operations - measures ALU throughput",
		Program:        GamePakProgram(BuildProgram(instrs...), false),
		ExpectedResult: 4,
	}
}

// 2. Dependency Chain - the same ADD on one register
func dependencyChain() Benchmark {
	return Benchmark{
		Name:           "dependency_chain",
		Description:    "20 dependent ADDs (R0 = R0 + 1)",
		Program:        GamePakProgram(BuildProgram(buildDependencyChain(20)...), false),
		ExpectedResult: 20,
	}
}

func buildDependencyChain(n int) []uint32 {
	instrs := make([]uint32, 0, n+1)
	for i := 0; i < n; i++ {
		instrs = append(instrs, insts.EncodeADDImm(0, 0, 1, false))
	}
	return append(instrs, armHalt)
}

// 3. Memory Sequential - stores and loads to IWRAM
func memorySequential() Benchmark {
	return Benchmark{
		Name:           "memory_sequential",
		Description:    "5 store/load pairs to IWRAM - one-cycle memory",
		Program:        GamePakProgram(BuildProgram(buildStoreLoad(0x03000000, 5)...), false),
		ExpectedResult: 42,
	}
}

// 4. Memory EWRAM - the same pattern on the 16-bit, 2-wait region
func memoryEWRAM() Benchmark {
	return Benchmark{
		Name:           "memory_ewram",
		Description:    "5 store/load pairs to EWRAM - wait-state bound memory",
		Program:        GamePakProgram(BuildProgram(buildStoreLoad(0x02000000, 5)...), false),
		ExpectedResult: 42,
	}
}

func buildStoreLoad(base uint32, pairs int) []uint32 {
	instrs := []uint32{
		insts.EncodeMOVImm(1, base),
		insts.EncodeMOVImm(2, 42),
	}
	for i := 0; i < pairs; i++ {
		off := int32(4 * i)
		instrs = append(instrs,
			insts.EncodeSTR(2, 1, off),
			insts.EncodeLDR(3, 1, off),
		)
	}
	return append(instrs,
		insts.EncodeMOVReg(0, 3),
		armHalt,
	)
}

// 5. Function Calls - BL/BX LR overhead
func functionCalls() Benchmark {
	// 0x00..0x10: five calls to the function at 0x18.
	instrs := make([]uint32, 0, 8)
	for i := 0; i < 5; i++ {
		instrs = append(instrs, insts.EncodeBL(int32(0x18-4*i)))
	}
	instrs = append(instrs,
		armHalt,                           // 0x14
		insts.EncodeADDImm(0, 0, 1, false), // 0x18
		insts.EncodeBX(14),
	)

	return Benchmark{
		Name:           "function_calls",
		Description:    "5 BL/BX LR pairs - call and return refills",
		Program:        GamePakProgram(BuildProgram(instrs...), false),
		ExpectedResult: 5,
	}
}

// 6. Branch Taken - unconditional forward branches over dead code
func branchTaken() Benchmark {
	instrs := make([]uint32, 0, 16)
	for i := 0; i < 5; i++ {
		instrs = append(instrs,
			insts.EncodeB(8),
			insts.EncodeADDImm(0, 0, 100, false), // skipped
			insts.EncodeADDImm(0, 0, 1, false),
		)
	}
	instrs = append(instrs, armHalt)

	return Benchmark{
		Name:           "branch_taken",
		Description:    "5 taken branches - refill penalty",
		Program:        GamePakProgram(BuildProgram(instrs...), false),
		ExpectedResult: 5,
	}
}

// 7. Multiply Chain - dependent MULs by 3
func multiplyChain() Benchmark {
	instrs := []uint32{
		insts.EncodeMOVImm(0, 1),
		insts.EncodeMOVImm(1, 3),
	}
	for i := 0; i < 5; i++ {
		instrs = append(instrs, insts.EncodeMUL(0, 1, 0, false))
	}
	instrs = append(instrs, armHalt)

	return Benchmark{
		Name:           "multiply_chain",
		Description:    "5 dependent MULs - multiplier latency",
		Program:        GamePakProgram(BuildProgram(instrs...), false),
		ExpectedResult: 243,
	}
}

// 8. Loop Simulation - counted loop with a conditional back branch
func loopSimulation() Benchmark {
	return Benchmark{
		Name:           "loop_simulation",
		Description:    "10 iterations of ADD/SUBS/BNE in the GamePak",
		Program:        GamePakProgram(BuildProgram(buildCountedLoop(10)...), false),
		ExpectedResult: 10,
	}
}

// 9. Thumb Loop - the same loop in Thumb state
func thumbLoop() Benchmark {
	code := BuildThumbProgram(
		insts.EncodeThumbImm(insts.OpMOV, 0, 0),
		insts.EncodeThumbImm(insts.OpMOV, 1, 10),
		insts.EncodeThumbImm(insts.OpADD, 0, 1),
		insts.EncodeThumbImm(insts.OpSUB, 1, 1),
		insts.EncodeThumbCondBranch(insts.CondNE, -4),
		thumbHalt,
	)

	return Benchmark{
		Name:           "thumb_loop",
		Description:    "10 iterations of ADD/SUB/BNE in Thumb state - 16-bit fetches",
		Program:        GamePakProgram(code, true),
		ExpectedResult: 10,
	}
}

// 10. IWRAM Loop - the ARM loop running from one-cycle memory
func iwramLoop() Benchmark {
	return Benchmark{
		Name:           "iwram_loop",
		Description:    "10 iterations of ADD/SUBS/BNE in IWRAM - no fetch waits",
		Program:        IWRAMProgram(BuildProgram(buildCountedLoop(10)...), false),
		ExpectedResult: 10,
	}
}

func buildCountedLoop(n uint32) []uint32 {
	return []uint32{
		insts.EncodeMOVImm(0, 0),
		insts.EncodeMOVImm(1, n),
		insts.EncodeADDImm(0, 0, 1, false),
		insts.EncodeSUBImm(1, 1, 1, true),
		insts.WithCond(insts.EncodeB(-8), insts.CondNE),
		armHalt,
	}
}
