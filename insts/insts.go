// Package insts provides ARMv4T instruction definitions and decoding.
//
// This package implements decoding of ARM7TDMI machine code into structured
// instruction representations. It supports the full 32-bit ARM encoding:
//   - Data Processing: AND..MVN with immediate, shifted-register and
//     register-shifted-register operands
//   - Multiply and Multiply Long: MUL, MLA, UMULL, UMLAL, SMULL, SMLAL
//   - Single, halfword and signed data transfer: LDR/STR{B}, LDRH/STRH,
//     LDRSB, LDRSH
//   - Block data transfer: LDM/STM
//   - Branches: B, BL, BX
//   - Swap, PSR transfer (MRS/MSR) and SWI
//
// and the 16-bit Thumb encoding through ThumbDecoder.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xE2810005) // ADD R0, R1, #5
//	fmt.Printf("Op: %v, Rd: %d, Rn: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rn, inst.Imm)
package insts
