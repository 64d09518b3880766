package irq_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/irq"
	"github.com/sarchlab/gbasim/mem"
)

var _ = Describe("Controller", func() {
	var c *irq.Controller

	BeforeEach(func() {
		c = irq.NewController()
		c.SetEnabled(0xFFFF)
		c.SetMasterEnabled(true)
	})

	It("should satisfy the bus register interface", func() {
		var _ mem.InterruptRegisters = c
	})

	It("should report nothing when no source is requested", func() {
		_, ok := c.Pending()
		Expect(ok).To(BeFalse())
	})

	It("should pick the lowest-numbered pending source", func() {
		c.Request(irq.Keypad)
		c.Request(irq.Timer1)
		c.Request(irq.DMA0)

		s, ok := c.Pending()
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal(irq.Timer1))
	})

	It("should not duplicate requests", func() {
		c.Request(irq.VBlank)
		c.Request(irq.VBlank)
		c.Clear(irq.VBlank)

		_, ok := c.Pending()
		Expect(ok).To(BeFalse())
	})

	It("should clear sources individually", func() {
		c.Request(irq.VBlank)
		c.Request(irq.HBlank)
		c.Clear(irq.VBlank)

		s, _ := c.Pending()
		Expect(s).To(Equal(irq.HBlank))
	})

	It("should acknowledge by mask", func() {
		c.Request(irq.VBlank)
		c.Request(irq.Timer0)
		c.Acknowledge(irq.VBlank.Mask() | irq.Timer0.Mask())

		Expect(c.Flags()).To(BeZero())
	})

	It("should skip disabled sources", func() {
		c.SetEnabled(irq.Serial.Mask())
		c.Request(irq.VBlank)
		c.Request(irq.Serial)

		s, ok := c.Pending()
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal(irq.Serial))
		Expect(c.IsPending(irq.VBlank)).To(BeTrue())
	})

	It("should gate delivery on IME but not wake-up", func() {
		c.SetMasterEnabled(false)
		c.Request(irq.GamePak)

		_, ok := c.Pending()
		Expect(ok).To(BeFalse())
		Expect(c.WakeUp()).To(BeTrue())
	})

	It("should report the highest-priority request regardless of IE and IME", func() {
		c.SetEnabled(irq.Serial.Mask())
		c.SetMasterEnabled(false)
		c.Request(irq.Serial)
		c.Request(irq.HBlank)

		s, ok := c.Highest()
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal(irq.HBlank))

		_, ok = c.Pending()
		Expect(ok).To(BeFalse())

		c.Acknowledge(c.Flags())
		_, ok = c.Highest()
		Expect(ok).To(BeFalse())
	})

	It("should ignore out-of-range sources", func() {
		c.Request(irq.Source(20))
		Expect(c.Flags()).To(BeZero())
		Expect(c.Enabled()).To(Equal(uint16(0x3FFF)))
	})

	It("should clear everything on reset", func() {
		c.Request(irq.VBlank)
		c.Reset()

		Expect(c.State()).To(Equal(irq.State{}))
	})

	It("should save and restore its registers", func() {
		c.Request(irq.DMA3)
		saved := c.State()

		other := irq.NewController()
		other.SetState(saved)
		s, ok := other.Pending()
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal(irq.DMA3))
	})

	It("should name sources", func() {
		Expect(irq.Timer2.String()).To(Equal("Timer2"))
		Expect(irq.Source(30).String()).To(Equal("Source(30)"))
	})

	It("should be wired to the bus", func() {
		bus := mem.NewBus(mem.WithInterrupts(c))
		c.Request(irq.VCount)

		Expect(bus.Read16(mem.IOBase + mem.RegIF)).To(Equal(irq.VCount.Mask()))
		bus.Write16(mem.IOBase+mem.RegIF, irq.VCount.Mask())
		Expect(c.IsPending(irq.VCount)).To(BeFalse())
	})
})
