package prefetch_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/mem"
	"github.com/sarchlab/gbasim/timing/prefetch"
)

var _ = Describe("Buffer", func() {
	var b *prefetch.Buffer

	BeforeEach(func() {
		b = prefetch.New(prefetch.DefaultDepth)
	})

	It("should fall back to the default depth", func() {
		Expect(prefetch.New(0).Depth()).To(Equal(prefetch.DefaultDepth))
		Expect(prefetch.New(4).Depth()).To(Equal(4))
	})

	It("should miss on a cold buffer", func() {
		Expect(b.Access(0x08000000)).To(BeFalse())

		stats := b.Stats()
		Expect(stats.Accesses).To(Equal(uint64(1)))
		Expect(stats.Misses).To(Equal(uint64(1)))
		Expect(stats.HitRate()).To(BeZero())
	})

	It("should hit on straight-line halfwords after a miss", func() {
		b.Access(0x08000000)
		for addr := uint32(0x08000002); addr < 0x08000040; addr += 2 {
			Expect(b.Access(addr)).To(BeTrue(), "addr %#x", addr)
		}
		Expect(b.Buffered()).To(Equal(1))
	})

	It("should ignore the low address bit", func() {
		b.Access(0x08000000)
		Expect(b.Access(0x08000003)).To(BeTrue())
	})

	It("should restart the stream on a jump", func() {
		b.Access(0x08000000)
		b.Access(0x08000002)

		Expect(b.Access(0x08001000)).To(BeFalse())
		Expect(b.Access(0x08000004)).To(BeFalse())
		Expect(b.Stats().Misses).To(Equal(uint64(3)))
	})

	It("should drop everything on invalidate", func() {
		b.Access(0x08000000)
		b.Invalidate()

		Expect(b.Buffered()).To(BeZero())
		Expect(b.Access(0x08000002)).To(BeFalse())
		Expect(b.Stats().Invalidations).To(Equal(uint64(1)))
	})

	It("should report the hit rate and reset statistics", func() {
		b.Access(0x08000000)
		b.Access(0x08000002)
		b.Access(0x08000004)
		b.Access(0x08000006)
		Expect(b.Stats().HitRate()).To(BeNumerically("~", 0.75))

		b.ResetStats()
		Expect(b.Stats()).To(Equal(prefetch.Statistics{}))
	})

	Describe("on the bus", func() {
		var bus *mem.Bus

		BeforeEach(func() {
			bus = mem.NewBus(mem.WithPrefetch(b))
		})

		It("should not be consulted while WAITCNT disables prefetch", func() {
			bus.AccessCycles(0x08000000, mem.Half)
			Expect(b.Stats().Accesses).To(BeZero())
		})

		It("should cut sequential GamePak fetches to one cycle", func() {
			bus.Write16(mem.IOBase+mem.RegWAITCNT, 1<<14)

			Expect(bus.AccessCycles(0x08000000, mem.Half)).To(Equal(5))
			Expect(bus.AccessCycles(0x08000002, mem.Half)).To(Equal(1))
			Expect(bus.AccessCycles(0x08000004, mem.Word)).To(Equal(2))
		})

		It("should be invalidated when prefetch is turned off", func() {
			bus.Write16(mem.IOBase+mem.RegWAITCNT, 1<<14)
			bus.AccessCycles(0x08000000, mem.Half)

			bus.Write16(mem.IOBase+mem.RegWAITCNT, 0)
			Expect(b.Buffered()).To(BeZero())
		})
	})
})
