package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/insts"
)

var _ = Describe("ThumbDecoder", func() {
	var decoder *insts.ThumbDecoder

	BeforeEach(func() {
		decoder = insts.NewThumbDecoder()
	})

	It("should cover all nineteen formats", func() {
		seen := map[insts.ThumbFormat]bool{}
		for _, p := range decoder.Table() {
			seen[p.Format] = true
		}
		Expect(seen).To(HaveLen(19))
	})

	DescribeTable("format classification",
		func(half uint16, format insts.ThumbFormat, op insts.Op) {
			inst := decoder.Decode(half)
			Expect(inst.Format).To(Equal(format))
			Expect(inst.Op).To(Equal(op))
		},
		Entry("LSL R1, R2, #3", uint16(0x00D1), insts.ThumbFormatMoveShifted, insts.OpMOV),
		Entry("ADD R0, R1, R2", uint16(0x1888), insts.ThumbFormatAddSubtract, insts.OpADD),
		Entry("SUB R0, R1, #1", uint16(0x1E48), insts.ThumbFormatAddSubtract, insts.OpSUB),
		Entry("MOV R0, #5", uint16(0x2005), insts.ThumbFormatImmediate, insts.OpMOV),
		Entry("MUL R0, R1", uint16(0x4348), insts.ThumbFormatALU, insts.OpMUL),
		Entry("NEG R0, R1", uint16(0x4248), insts.ThumbFormatALU, insts.OpRSB),
		Entry("BX LR", uint16(0x4770), insts.ThumbFormatHiRegister, insts.OpBX),
		Entry("LDR R0, [PC, #4]", uint16(0x4801), insts.ThumbFormatPCRelativeLoad, insts.OpLDR),
		Entry("STR R0, [R1, R2]", uint16(0x5088), insts.ThumbFormatLoadStoreRegister, insts.OpSTR),
		Entry("LDSH R0, [R1, R2]", uint16(0x5E88), insts.ThumbFormatLoadStoreSignExt, insts.OpLDRSH),
		Entry("LDR R0, [R1, #4]", uint16(0x6848), insts.ThumbFormatLoadStoreImmediate, insts.OpLDR),
		Entry("STRB R0, [R1, #1]", uint16(0x7048), insts.ThumbFormatLoadStoreImmediate, insts.OpSTRB),
		Entry("LDRH R0, [R1, #2]", uint16(0x8848), insts.ThumbFormatLoadStoreHalfword, insts.OpLDRH),
		Entry("STR R0, [SP, #8]", uint16(0x9002), insts.ThumbFormatSPRelative, insts.OpSTR),
		Entry("ADD R0, SP, #16", uint16(0xA804), insts.ThumbFormatLoadAddress, insts.OpADD),
		Entry("SUB SP, #8", uint16(0xB082), insts.ThumbFormatAddOffsetSP, insts.OpSUB),
		Entry("PUSH {R4, LR}", uint16(0xB510), insts.ThumbFormatPushPop, insts.OpSTM),
		Entry("POP {R4, PC}", uint16(0xBD10), insts.ThumbFormatPushPop, insts.OpLDM),
		Entry("LDMIA R0!, {R1, R2}", uint16(0xC806), insts.ThumbFormatMultiple, insts.OpLDM),
		Entry("BEQ .", uint16(0xD0FE), insts.ThumbFormatCondBranch, insts.OpB),
		Entry("SWI 6", uint16(0xDF06), insts.ThumbFormatSWI, insts.OpSWI),
		Entry("B .", uint16(0xE7FE), insts.ThumbFormatBranch, insts.OpB),
		Entry("BL high half", uint16(0xF000), insts.ThumbFormatLongBranchLink, insts.OpBL),
		Entry("BL low half", uint16(0xF800), insts.ThumbFormatLongBranchLink, insts.OpBL),
		Entry("undefined conditional branch", uint16(0xDE00), insts.ThumbFormatUnknown, insts.OpUnknown),
		Entry("undefined 11101 space", uint16(0xE800), insts.ThumbFormatUnknown, insts.OpUnknown),
	)

	It("should decode move shifted register fields", func() {
		inst := decoder.Decode(0x00D1)

		Expect(inst.ShiftType).To(Equal(insts.ShiftLSL))
		Expect(inst.Imm).To(Equal(uint32(3)))
		Expect(inst.Rm).To(Equal(uint8(2)))
		Expect(inst.Rd).To(Equal(uint8(1)))
	})

	It("should extend high register numbers", func() {
		inst := decoder.Decode(0x4680) // MOV R8, R0

		Expect(inst.Op).To(Equal(insts.OpMOV))
		Expect(inst.Rd).To(Equal(uint8(8)))
		Expect(inst.Rm).To(Equal(uint8(0)))
	})

	It("should scale word offsets", func() {
		Expect(decoder.Decode(0x6848).Imm).To(Equal(uint32(4)))
		Expect(decoder.Decode(0x7048).Imm).To(Equal(uint32(1)))
		Expect(decoder.Decode(0x8848).Imm).To(Equal(uint32(2)))
		Expect(decoder.Decode(0x4801).Imm).To(Equal(uint32(4)))
	})

	It("should decode PUSH/POP extra registers", func() {
		push := decoder.Decode(0xB510)
		Expect(push.RegList).To(Equal(uint8(0x10)))
		Expect(push.ExtraReg).To(BeTrue())
		Expect(push.String()).To(Equal("PUSH {R4, LR}"))

		pop := decoder.Decode(0xBD10)
		Expect(pop.String()).To(Equal("POP {R4, PC}"))
	})

	It("should sign-extend branch offsets", func() {
		Expect(decoder.Decode(0xD0FE).Offset).To(Equal(int32(-4)))
		Expect(decoder.Decode(0xD0FE).Cond).To(Equal(insts.CondEQ))
		Expect(decoder.Decode(0xE7FE).Offset).To(Equal(int32(-4)))
		Expect(decoder.Decode(0xF7FF).Offset).To(Equal(int32(-4096)))
		Expect(decoder.Decode(0xF801).Offset).To(Equal(int32(2)))
	})
})
