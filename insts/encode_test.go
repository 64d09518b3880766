package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/insts"
)

var _ = Describe("Encoders", func() {
	var (
		decoder *insts.Decoder
		thumb   *insts.ThumbDecoder
	)

	BeforeEach(func() {
		decoder = insts.NewDecoder()
		thumb = insts.NewThumbDecoder()
	})

	Describe("EncodeImmediate", func() {
		It("should find a rotation for representable values", func() {
			for _, v := range []uint32{0, 0xFF, 0x3FC, 0xFF000000, 0xF000000F, 0x08000000} {
				imm8, rot, ok := insts.EncodeImmediate(v)
				Expect(ok).To(BeTrue(), "value %#x", v)

				word := uint32(imm8)
				if rot != 0 {
					word = word>>rot | word<<(32-rot)
				}
				Expect(word).To(Equal(v))
			}
		})

		It("should reject values spanning more than eight bits", func() {
			_, _, ok := insts.EncodeImmediate(0x101)
			Expect(ok).To(BeFalse())
		})

		It("should panic on an unencodable data-processing immediate", func() {
			Expect(func() { insts.EncodeMOVImm(0, 0x12345678) }).To(Panic())
		})
	})

	It("should reproduce known ARM encodings", func() {
		Expect(insts.EncodeADDImm(0, 1, 5, false)).To(Equal(uint32(0xE2810005)))
		Expect(insts.EncodeMUL(0, 1, 2, false)).To(Equal(uint32(0xE0000291)))
		Expect(insts.EncodeMLA(0, 1, 2, 3, false)).To(Equal(uint32(0xE0203291)))
		Expect(insts.EncodeMulLong(insts.OpUMULL, false, 0, 1, 2, 3)).To(Equal(uint32(0xE0810392)))
		Expect(insts.EncodeLDR(0, 1, 4)).To(Equal(uint32(0xE5910004)))
		Expect(insts.EncodeHalfwordTransfer(insts.OpLDRSB, 0, 1, 0x12, insts.Offset)).
			To(Equal(uint32(0xE1D101D2)))
		Expect(insts.EncodePUSH(0x400F)).To(Equal(uint32(0xE92D400F)))
		Expect(insts.EncodeB(0)).To(Equal(uint32(0xEAFFFFFE)))
		Expect(insts.EncodeBX(14)).To(Equal(uint32(0xE12FFF1E)))
		Expect(insts.EncodeSWP(0, 1, 2, false)).To(Equal(uint32(0xE1020091)))
		Expect(insts.EncodeMRS(0, false)).To(Equal(uint32(0xE10F0000)))
		Expect(insts.EncodeMSRReg(false, insts.FieldFlags|insts.FieldControl, 0)).
			To(Equal(uint32(0xE129F000)))
		Expect(insts.EncodeSWI(6)).To(Equal(uint32(0xEF060000)))
	})

	It("should attach conditions", func() {
		word := insts.WithCond(insts.EncodeB(16), insts.CondNE)
		inst := decoder.Decode(word)

		Expect(inst.Cond).To(Equal(insts.CondNE))
		Expect(inst.BranchOffset + 8).To(Equal(int32(16)))
	})

	It("should encode negative transfer offsets with the U bit clear", func() {
		inst := decoder.Decode(insts.EncodeSingleTransfer(insts.OpSTRB, 0, 1, -1, insts.PostIndexed))

		Expect(inst.Op).To(Equal(insts.OpSTRB))
		Expect(inst.Up).To(BeFalse())
		Expect(inst.PreIndex).To(BeFalse())
		Expect(inst.Imm).To(Equal(uint32(1)))
	})

	It("should encode block transfer modes", func() {
		ib := decoder.Decode(insts.EncodeBlockTransfer(true, insts.BlockIB, 0, 0x3, false, false))
		Expect(ib.PreIndex).To(BeTrue())
		Expect(ib.Up).To(BeTrue())

		da := decoder.Decode(insts.EncodeBlockTransfer(false, insts.BlockDA, 0, 0x3, true, true))
		Expect(da.PreIndex).To(BeFalse())
		Expect(da.Up).To(BeFalse())
		Expect(da.WriteBack).To(BeTrue())
		Expect(da.UserBank).To(BeTrue())
	})

	It("should reproduce known Thumb encodings", func() {
		Expect(insts.EncodeThumbImm(insts.OpMOV, 0, 5)).To(Equal(uint16(0x2005)))
		Expect(insts.EncodeThumbShift(insts.ShiftLSL, 1, 2, 3)).To(Equal(uint16(0x00D1)))
		Expect(insts.EncodeThumbAddSub(true, true, 0, 1, 1)).To(Equal(uint16(0x1E48)))
		Expect(insts.EncodeThumbALU(insts.ThumbALUMUL, 0, 1)).To(Equal(uint16(0x4348)))
		Expect(insts.EncodeThumbBX(14)).To(Equal(uint16(0x4770)))
		Expect(insts.EncodeThumbLoadStoreSignExt(insts.OpLDRSH, 0, 1, 2)).To(Equal(uint16(0x5E88)))
		Expect(insts.EncodeThumbLoadStoreImm(insts.OpLDR, 0, 1, 4)).To(Equal(uint16(0x6848)))
		Expect(insts.EncodeThumbAddSP(-8)).To(Equal(uint16(0xB082)))
		Expect(insts.EncodeThumbPush(0x10, true)).To(Equal(uint16(0xB510)))
		Expect(insts.EncodeThumbPop(0x10, true)).To(Equal(uint16(0xBD10)))
		Expect(insts.EncodeThumbCondBranch(insts.CondEQ, 0)).To(Equal(uint16(0xD0FE)))
		Expect(insts.EncodeThumbB(0)).To(Equal(uint16(0xE7FE)))
	})

	It("should split BL offsets across both halves", func() {
		hi, lo := insts.EncodeThumbBL(0x1000)
		first := thumb.Decode(hi)
		second := thumb.Decode(lo)

		Expect(first.High).To(BeFalse())
		Expect(second.High).To(BeTrue())
		// target = instruction + 4 + high offset + low offset
		Expect(4 + first.Offset + second.Offset).To(Equal(int32(0x1000)))
	})
})
