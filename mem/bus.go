package mem

import (
	"fmt"

	"github.com/go-logr/logr"
)

// Cartridge is the GamePak behind the ROM and SRAM windows. Offsets are
// already masked into the window.
type Cartridge interface {
	ReadROM(offset uint32) uint8
	ReadSRAM(offset uint32) uint8
	WriteSRAM(offset uint32, v uint8)
}

// InterruptRegisters is the interrupt controller as seen from the I/O
// block: IE, IF (write one to acknowledge) and IME.
type InterruptRegisters interface {
	Enabled() uint16
	SetEnabled(v uint16)
	Flags() uint16
	Acknowledge(mask uint16)
	MasterEnabled() bool
	SetMasterEnabled(on bool)
}

// DMAController receives the bytes of the four DMA channel register
// windows. offset is relative to the start of the channel's window.
type DMAController interface {
	WriteRegister(channel int, offset uint32, v uint8)
	ReadRegister(channel int, offset uint32) uint8
}

// OpenBus is returned for reads of unmapped addresses.
const OpenBus uint8 = 0xFF

// Bus routes CPU accesses to the backing stores and collaborators.
type Bus struct {
	bios    []byte
	ewram   []byte
	iwram   []byte
	io      []byte
	palette []byte
	vram    []byte
	oam     []byte

	cart     Cartridge
	irq      InterruptRegisters
	dma      DMAController
	prefetch PrefetchBuffer

	waits       WaitStates
	resetWaits  WaitStates
	seqNext     uint32
	seqValid    bool
	haltPending bool

	logger logr.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for unmapped-access warnings.
func WithLogger(logger logr.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithCartridge inserts a GamePak.
func WithCartridge(cart Cartridge) Option {
	return func(b *Bus) {
		b.cart = cart
	}
}

// WithInterrupts routes IE, IF and IME to an interrupt controller.
func WithInterrupts(irq InterruptRegisters) Option {
	return func(b *Bus) {
		b.irq = irq
	}
}

// WithDMA routes the DMA register windows to a DMA controller.
func WithDMA(dma DMAController) Option {
	return func(b *Bus) {
		b.dma = dma
	}
}

// WithPrefetch attaches a GamePak prefetch buffer model. It is only
// consulted while WAITCNT enables prefetching.
func WithPrefetch(pf PrefetchBuffer) Option {
	return func(b *Bus) {
		b.prefetch = pf
	}
}

// WithWaitStates sets the initial wait-state table.
func WithWaitStates(w WaitStates) Option {
	return func(b *Bus) {
		b.waits = w
	}
}

// WithBIOS replaces the built-in BIOS image. Images shorter than the BIOS
// region are zero padded.
func WithBIOS(image []byte) Option {
	return func(b *Bus) {
		b.bios = make([]byte, BIOSSize)
		copy(b.bios, image)
	}
}

// NewBus creates a bus with all memories cleared and the built-in BIOS.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		bios:    DefaultBIOS(),
		ewram:   make([]byte, EWRAMSize),
		iwram:   make([]byte, IWRAMSize),
		io:      make([]byte, IOSize),
		palette: make([]byte, PaletteSize),
		vram:    make([]byte, VRAMSize),
		oam:     make([]byte, OAMSize),
		waits:   DefaultWaitStates(),
		logger:  logr.Discard(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.resetWaits = b.waits
	b.resetIO()

	return b
}

// Reset clears every memory except the BIOS and restores the wait states
// the bus was created with.
func (b *Bus) Reset() {
	clear(b.ewram)
	clear(b.iwram)
	clear(b.io)
	clear(b.palette)
	clear(b.vram)
	clear(b.oam)
	b.waits = b.resetWaits
	b.seqValid = false
	b.haltPending = false
	if b.prefetch != nil {
		b.prefetch.Invalidate()
	}
	b.resetIO()
}

// SetCartridge inserts or replaces the GamePak.
func (b *Bus) SetCartridge(cart Cartridge) {
	b.cart = cart
	if b.prefetch != nil {
		b.prefetch.Invalidate()
	}
}

// WaitStates returns the current wait-state table.
func (b *Bus) WaitStates() WaitStates {
	return b.waits
}

func hex32(v uint32) string {
	return fmt.Sprintf("%#08x", v)
}

// backing returns the store behind a plain memory region.
func (b *Bus) backing(r Region) []byte {
	switch r {
	case RegionBIOS:
		return b.bios
	case RegionEWRAM:
		return b.ewram
	case RegionIWRAM:
		return b.iwram
	case RegionPalette:
		return b.palette
	case RegionVRAM:
		return b.vram
	case RegionOAM:
		return b.oam
	}
	return nil
}

// Read8 reads a byte.
func (b *Bus) Read8(addr uint32) uint8 {
	r := RegionOf(addr)
	off := Offset(r, addr)

	switch r {
	case RegionIO:
		return b.readIO(off)
	case RegionROM0, RegionROM1, RegionROM2:
		if b.cart == nil {
			b.logger.V(1).Info("read from empty GamePak slot", "addr", hex32(addr))
			return OpenBus
		}
		return b.cart.ReadROM(off)
	case RegionSRAM:
		if b.cart == nil {
			return OpenBus
		}
		return b.cart.ReadSRAM(off)
	case RegionUnmapped:
		b.logger.Info("unmapped read", "addr", hex32(addr))
		return OpenBus
	}

	return b.backing(r)[off]
}

// Write8 writes a byte.
func (b *Bus) Write8(addr uint32, v uint8) {
	r := RegionOf(addr)
	off := Offset(r, addr)

	switch r {
	case RegionBIOS:
		b.logger.V(1).Info("write to BIOS dropped", "addr", hex32(addr))
	case RegionIO:
		b.writeIO(off, v)
	case RegionROM0, RegionROM1, RegionROM2:
		b.logger.V(1).Info("write to GamePak ROM dropped", "addr", hex32(addr))
	case RegionSRAM:
		if b.cart != nil {
			b.cart.WriteSRAM(off, v)
		}
	case RegionUnmapped:
		b.logger.Info("unmapped write", "addr", hex32(addr), "value", v)
	default:
		b.backing(r)[off] = v
	}
}

// Read16 reads a halfword. The address is aligned down to two bytes.
func (b *Bus) Read16(addr uint32) uint16 {
	if addr&^1 == IOBase+RegIF {
		return b.readIF()
	}

	addr &^= 1
	return uint16(b.Read8(addr)) | uint16(b.Read8(addr+1))<<8
}

// Write16 writes a halfword. The address is aligned down to two bytes.
func (b *Bus) Write16(addr uint32, v uint16) {
	if addr&^1 == IOBase+RegIF {
		b.writeIF(v)
		return
	}

	addr &^= 1
	b.Write8(addr, uint8(v))
	b.Write8(addr+1, uint8(v>>8))
}

// Read32 reads a word. The address is aligned down to four bytes.
func (b *Bus) Read32(addr uint32) uint32 {
	addr &^= 3
	return uint32(b.Read8(addr)) |
		uint32(b.Read8(addr+1))<<8 |
		uint32(b.Read8(addr+2))<<16 |
		uint32(b.Read8(addr+3))<<24
}

// Write32 writes a word. The address is aligned down to four bytes.
func (b *Bus) Write32(addr uint32, v uint32) {
	addr &^= 3
	b.Write8(addr, uint8(v))
	b.Write8(addr+1, uint8(v>>8))
	b.Write8(addr+2, uint8(v>>16))
	b.Write8(addr+3, uint8(v>>24))
}

// LoadBytes copies data into a plain memory region starting at addr,
// bypassing I/O side effects. It is meant for program loaders.
func (b *Bus) LoadBytes(addr uint32, data []byte) error {
	r := RegionOf(addr)
	store := b.backing(r)
	if store == nil {
		return fmt.Errorf("cannot load %d bytes at %s: %v is not a RAM region",
			len(data), hex32(addr), r)
	}

	off := Offset(r, addr)
	if int(off)+len(data) > len(store) {
		return fmt.Errorf("cannot load %d bytes at %s: exceeds %v",
			len(data), hex32(addr), r)
	}

	copy(store[off:], data)
	return nil
}
