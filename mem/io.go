package mem

// I/O register offsets handled by the bus itself.
const (
	RegDMABase  uint32 = 0x0B0
	RegKEYINPUT uint32 = 0x130
	RegIE       uint32 = 0x200
	RegIF       uint32 = 0x202
	RegWAITCNT  uint32 = 0x204
	RegIME      uint32 = 0x208
	RegHALTCNT  uint32 = 0x301
)

// DMA register windows: four channels of 12 bytes each.
const (
	dmaChannelSize = 12
	dmaChannels    = 4
	dmaEnd         = RegDMABase + dmaChannelSize*dmaChannels
)

// KeyInputReleased is KEYINPUT with no button pressed.
const KeyInputReleased uint16 = 0x03FF

func (b *Bus) resetIO() {
	b.io[RegKEYINPUT] = uint8(KeyInputReleased & 0xFF)
	b.io[RegKEYINPUT+1] = uint8(KeyInputReleased >> 8)
}

// SetKeyInput sets the KEYINPUT register. Bits are active low.
func (b *Bus) SetKeyInput(v uint16) {
	b.io[RegKEYINPUT] = uint8(v)
	b.io[RegKEYINPUT+1] = uint8(v>>8) & 0x03
}

// HaltRequested reports and clears a pending HALTCNT write. Stop mode is
// treated as halt.
func (b *Bus) HaltRequested() bool {
	pending := b.haltPending
	b.haltPending = false
	return pending
}

func dmaWindow(off uint32) (channel int, reg uint32, ok bool) {
	if off < RegDMABase || off >= dmaEnd {
		return 0, 0, false
	}
	rel := off - RegDMABase
	return int(rel / dmaChannelSize), rel % dmaChannelSize, true
}

func (b *Bus) readIO(off uint32) uint8 {
	if ch, reg, ok := dmaWindow(off); ok && b.dma != nil {
		return b.dma.ReadRegister(ch, reg)
	}

	if b.irq != nil {
		switch off {
		case RegIE:
			return uint8(b.irq.Enabled())
		case RegIE + 1:
			return uint8(b.irq.Enabled() >> 8)
		case RegIF:
			return uint8(b.irq.Flags())
		case RegIF + 1:
			return uint8(b.irq.Flags() >> 8)
		case RegIME:
			if b.irq.MasterEnabled() {
				return 1
			}
			return 0
		case RegIME + 1:
			return 0
		}
	}

	return b.io[off]
}

func (b *Bus) writeIO(off uint32, v uint8) {
	if ch, reg, ok := dmaWindow(off); ok && b.dma != nil {
		b.dma.WriteRegister(ch, reg, v)
		return
	}

	switch off {
	case RegKEYINPUT, RegKEYINPUT + 1:
		return // read-only
	case RegWAITCNT, RegWAITCNT + 1:
		b.io[off] = v
		cnt := uint16(b.io[RegWAITCNT]) | uint16(b.io[RegWAITCNT+1])<<8
		b.waits = b.waits.WithWAITCNT(cnt)
		if !b.waits.Prefetch && b.prefetch != nil {
			b.prefetch.Invalidate()
		}
		return
	case RegHALTCNT:
		b.haltPending = true
	}

	if b.irq != nil {
		switch off {
		case RegIE:
			b.irq.SetEnabled(b.irq.Enabled()&0xFF00 | uint16(v))
			return
		case RegIE + 1:
			b.irq.SetEnabled(b.irq.Enabled()&0x00FF | uint16(v)<<8)
			return
		case RegIF:
			b.irq.Acknowledge(uint16(v))
			return
		case RegIF + 1:
			b.irq.Acknowledge(uint16(v) << 8)
			return
		case RegIME:
			b.irq.SetMasterEnabled(v&1 != 0)
			return
		case RegIME + 1:
			return
		}
	}

	if off == RegIF || off == RegIF+1 {
		// Without a controller IF still clears on write-one.
		b.io[off] &^= v
		return
	}

	b.io[off] = v
}

// readIF and writeIF are the 16-bit fast path for the interrupt
// acknowledge register.
func (b *Bus) readIF() uint16 {
	if b.irq != nil {
		return b.irq.Flags()
	}
	return uint16(b.io[RegIF]) | uint16(b.io[RegIF+1])<<8
}

func (b *Bus) writeIF(v uint16) {
	if b.irq != nil {
		b.irq.Acknowledge(v)
		return
	}
	b.io[RegIF] &^= uint8(v)
	b.io[RegIF+1] &^= uint8(v >> 8)
}
