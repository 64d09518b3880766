package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/insts"
)

var _ = Describe("Insts Package", func() {
	It("should have an Instruction type", func() {
		var i insts.Instruction
		Expect(i).To(BeZero())
	})

	It("should have a Decoder type", func() {
		decoder := insts.NewDecoder()
		Expect(decoder).ToNot(BeNil())
	})

	It("should have a ThumbDecoder type", func() {
		Expect(insts.NewThumbDecoder()).ToNot(BeNil())
	})

	It("should lay out data-processing ops in encoding order", func() {
		Expect(insts.OpAND + 0xD).To(Equal(insts.OpMOV))
		Expect(insts.OpAND + 0xF).To(Equal(insts.OpMVN))
		Expect(insts.OpCMP.IsCompare()).To(BeTrue())
		Expect(insts.OpADD.IsCompare()).To(BeFalse())
		Expect(insts.OpBIC.IsLogical()).To(BeTrue())
		Expect(insts.OpRSB.IsLogical()).To(BeFalse())
	})
})
