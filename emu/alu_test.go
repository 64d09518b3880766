package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/insts"
)

var _ = Describe("ALU", func() {
	var (
		rf  *emu.RegFile
		alu *emu.ALU
	)

	BeforeEach(func() {
		rf = &emu.RegFile{}
		rf.CPSR = emu.PSR(emu.ModeSystem)
		alu = emu.NewALU(rf)
	})

	Describe("AddWithCarry", func() {
		It("should carry out of bit 31", func() {
			r, c, v := emu.AddWithCarry(0xFFFFFFFF, 1, false)
			Expect(r).To(BeZero())
			Expect(c).To(BeTrue())
			Expect(v).To(BeFalse())
		})

		It("should fold the carry in exactly once", func() {
			r, c, _ := emu.AddWithCarry(0xFFFFFFFE, 1, true)
			Expect(r).To(BeZero())
			Expect(c).To(BeTrue())
		})
	})

	Describe("Compute", func() {
		It("should flag signed overflow on ADD", func() {
			res := alu.Compute(insts.OpADD, 0x7FFFFFFF, 1, false)
			Expect(res).To(Equal(emu.ALUResult{Value: 0x80000000, N: true, V: true}))
		})

		It("should clear carry when SUB borrows", func() {
			res := alu.Compute(insts.OpSUB, 5, 10, false)
			Expect(res.Value).To(Equal(uint32(0xFFFFFFFB)))
			Expect(res.C).To(BeFalse())
			Expect(res.V).To(BeFalse())
			Expect(res.N).To(BeTrue())
		})

		It("should set carry when SUB does not borrow", func() {
			res := alu.Compute(insts.OpSUB, 10, 5, false)
			Expect(res.Value).To(Equal(uint32(5)))
			Expect(res.C).To(BeTrue())
		})

		It("should compare equal values", func() {
			res := alu.Compute(insts.OpCMP, 42, 42, false)
			Expect(res.Z).To(BeTrue())
			Expect(res.C).To(BeTrue())
		})

		It("should flag overflow on a signed SUB", func() {
			res := alu.Compute(insts.OpSUB, 0x80000000, 1, false)
			Expect(res.Value).To(Equal(uint32(0x7FFFFFFF)))
			Expect(res.V).To(BeTrue())
			Expect(res.C).To(BeTrue())
		})

		It("should reverse operands for RSB and RSC", func() {
			Expect(alu.Compute(insts.OpRSB, 3, 10, false).Value).To(Equal(uint32(7)))

			rf.CPSR |= emu.FlagC
			Expect(alu.Compute(insts.OpRSC, 3, 10, false).Value).To(Equal(uint32(7)))
			rf.CPSR &^= emu.FlagC
			Expect(alu.Compute(insts.OpRSC, 3, 10, false).Value).To(Equal(uint32(6)))
		})

		It("should add the carry for ADC", func() {
			rf.CPSR |= emu.FlagC
			res := alu.Compute(insts.OpADC, 0xFFFFFFFF, 0, false)
			Expect(res.Value).To(BeZero())
			Expect(res.Z).To(BeTrue())
			Expect(res.C).To(BeTrue())
		})

		It("should subtract the borrow for SBC", func() {
			res := alu.Compute(insts.OpSBC, 5, 3, false)
			Expect(res.Value).To(Equal(uint32(1)))
			Expect(res.C).To(BeTrue())
		})

		It("should take carry from the shifter and keep V for logical ops", func() {
			rf.CPSR |= emu.FlagV
			res := alu.Compute(insts.OpAND, 0xF0, 0x3C, true)
			Expect(res.Value).To(Equal(uint32(0x30)))
			Expect(res.C).To(BeTrue())
			Expect(res.V).To(BeTrue())
		})

		DescribeTable("logical results",
			func(op insts.Op, a, b, expected uint32) {
				Expect(alu.Compute(op, a, b, false).Value).To(Equal(expected))
			},
			Entry("EOR", insts.OpEOR, uint32(0xFF00), uint32(0x0FF0), uint32(0xF0F0)),
			Entry("TEQ", insts.OpTEQ, uint32(0xFF00), uint32(0xFF00), uint32(0)),
			Entry("ORR", insts.OpORR, uint32(0xF000), uint32(0x000F), uint32(0xF00F)),
			Entry("BIC", insts.OpBIC, uint32(0xFFFF), uint32(0x00F0), uint32(0xFF0F)),
			Entry("MOV", insts.OpMOV, uint32(1), uint32(2), uint32(2)),
			Entry("MVN", insts.OpMVN, uint32(0), uint32(0), uint32(0xFFFFFFFF)),
			Entry("TST", insts.OpTST, uint32(0x10), uint32(0x11), uint32(0x10)),
			Entry("CMN", insts.OpCMN, uint32(5), uint32(0xFFFFFFFB), uint32(0)),
		)
	})
})
