package mem

import "fmt"

// ROMCartridge is a GamePak holding a ROM image and battery-backed SRAM.
type ROMCartridge struct {
	rom  []byte
	sram []byte
}

// NewROMCartridge creates a cartridge from a ROM image. The image is not
// copied.
func NewROMCartridge(rom []byte) (*ROMCartridge, error) {
	if len(rom) > ROMMaxSize {
		return nil, fmt.Errorf("rom image is %d bytes, larger than the %d byte GamePak window",
			len(rom), ROMMaxSize)
	}

	sram := make([]byte, SRAMSize)
	for i := range sram {
		sram[i] = 0xFF
	}

	return &ROMCartridge{rom: rom, sram: sram}, nil
}

// ROM returns the ROM image.
func (c *ROMCartridge) ROM() []byte {
	return c.rom
}

// SRAM returns the save memory.
func (c *ROMCartridge) SRAM() []byte {
	return c.sram
}

// ReadROM reads a ROM byte. Past the end of the image the GamePak bus
// returns the halfword address of the access.
func (c *ROMCartridge) ReadROM(offset uint32) uint8 {
	if int(offset) < len(c.rom) {
		return c.rom[offset]
	}
	half := offset >> 1
	return uint8(half >> ((offset & 1) * 8))
}

// ReadSRAM reads an SRAM byte.
func (c *ROMCartridge) ReadSRAM(offset uint32) uint8 {
	return c.sram[offset&(SRAMSize-1)]
}

// WriteSRAM writes an SRAM byte.
func (c *ROMCartridge) WriteSRAM(offset uint32, v uint8) {
	c.sram[offset&(SRAMSize-1)] = v
}
