package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/insts"
	"github.com/sarchlab/gbasim/mem"
)

var _ = Describe("DefaultBIOS", func() {
	var (
		bus     *mem.Bus
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		bus = mem.NewBus()
		decoder = insts.NewDecoder()
	})

	branchTarget := func(addr uint32) uint32 {
		inst := decoder.Decode(bus.Read32(addr))
		Expect(inst.Op).To(Equal(insts.OpB))
		return addr + 8 + uint32(inst.BranchOffset)
	}

	It("should branch from the reset vector to the reset handler", func() {
		Expect(branchTarget(0x00)).To(Equal(mem.BIOSResetHandler))
	})

	It("should branch from the IRQ vector to the dispatcher", func() {
		Expect(branchTarget(0x18)).To(Equal(mem.BIOSIRQHandler))
	})

	It("should return from SWI with MOVS PC, LR", func() {
		Expect(bus.Read32(0x08)).To(Equal(uint32(0xE1B0F00E)))
	})

	It("should jump through the user handler slot", func() {
		inst := decoder.Decode(bus.Read32(mem.BIOSIRQHandler + 12))
		Expect(inst.Op).To(Equal(insts.OpLDR))
		Expect(inst.Rd).To(Equal(uint8(15)))
		Expect(inst.Up).To(BeFalse())
		Expect(mem.IOBase - inst.Imm).To(Equal(uint32(0x03FFFFFC)))
	})

	It("should hold the initial stack pointers", func() {
		Expect(bus.Read32(0x100)).To(Equal(mem.InitialSPIRQ))
		Expect(bus.Read32(0x104)).To(Equal(mem.InitialSPSVC))
		Expect(bus.Read32(0x108)).To(Equal(mem.InitialSP))
	})
})
