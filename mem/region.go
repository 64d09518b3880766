// Package mem provides the GBA memory bus: the address decoder, the on-chip
// and external memories, the I/O register block and the GamePak window.
//
// Every access is routed by the top byte of the address. Each region masks
// the offset into its physical size, so addresses beyond a region's size
// mirror the in-range ones.
package mem

import "fmt"

// Region identifies a window of the address space.
type Region uint8

// Regions, in address order.
const (
	RegionUnmapped Region = iota
	RegionBIOS
	RegionEWRAM
	RegionIWRAM
	RegionIO
	RegionPalette
	RegionVRAM
	RegionOAM
	RegionROM0
	RegionROM1
	RegionROM2
	RegionSRAM
)

// Physical region sizes.
const (
	BIOSSize    = 16 * 1024
	EWRAMSize   = 256 * 1024
	IWRAMSize   = 32 * 1024
	IOSize      = 1024
	PaletteSize = 1024
	VRAMSize    = 96 * 1024
	OAMSize     = 1024
	SRAMSize    = 64 * 1024
	ROMMaxSize  = 32 * 1024 * 1024
)

// Base addresses.
const (
	BIOSBase    uint32 = 0x00000000
	EWRAMBase   uint32 = 0x02000000
	IWRAMBase   uint32 = 0x03000000
	IOBase      uint32 = 0x04000000
	PaletteBase uint32 = 0x05000000
	VRAMBase    uint32 = 0x06000000
	OAMBase     uint32 = 0x07000000
	ROMBase     uint32 = 0x08000000
	SRAMBase    uint32 = 0x0E000000
)

// RegionInfo describes one window of the address map.
type RegionInfo struct {
	Region Region
	Name   string
	Base   uint32
	Size   uint32
}

var regionInfo = [...]RegionInfo{
	RegionUnmapped: {RegionUnmapped, "unmapped", 0, 0},
	RegionBIOS:     {RegionBIOS, "BIOS", BIOSBase, BIOSSize},
	RegionEWRAM:    {RegionEWRAM, "EWRAM", EWRAMBase, EWRAMSize},
	RegionIWRAM:    {RegionIWRAM, "IWRAM", IWRAMBase, IWRAMSize},
	RegionIO:       {RegionIO, "I/O", IOBase, IOSize},
	RegionPalette:  {RegionPalette, "palette", PaletteBase, PaletteSize},
	RegionVRAM:     {RegionVRAM, "VRAM", VRAMBase, VRAMSize},
	RegionOAM:      {RegionOAM, "OAM", OAMBase, OAMSize},
	RegionROM0:     {RegionROM0, "ROM WS0", ROMBase, ROMMaxSize},
	RegionROM1:     {RegionROM1, "ROM WS1", 0x0A000000, ROMMaxSize},
	RegionROM2:     {RegionROM2, "ROM WS2", 0x0C000000, ROMMaxSize},
	RegionSRAM:     {RegionSRAM, "SRAM", SRAMBase, SRAMSize},
}

// Regions returns the address map in address order, without the
// unmapped pseudo-region.
func Regions() []RegionInfo {
	out := make([]RegionInfo, 0, len(regionInfo)-1)
	out = append(out, regionInfo[1:]...)
	return out
}

// Info returns the description of r.
func (r Region) Info() RegionInfo {
	if int(r) < len(regionInfo) {
		return regionInfo[r]
	}
	return regionInfo[RegionUnmapped]
}

func (r Region) String() string {
	if int(r) < len(regionInfo) {
		return regionInfo[r].Name
	}
	return fmt.Sprintf("Region(%d)", uint8(r))
}

// IsGamePak reports whether r is one of the cartridge ROM windows.
func (r Region) IsGamePak() bool {
	return r >= RegionROM0 && r <= RegionROM2
}

// RegionOf decodes the top byte of addr.
func RegionOf(addr uint32) Region {
	switch addr >> 24 {
	case 0x00:
		return RegionBIOS
	case 0x02:
		return RegionEWRAM
	case 0x03:
		return RegionIWRAM
	case 0x04:
		return RegionIO
	case 0x05:
		return RegionPalette
	case 0x06:
		return RegionVRAM
	case 0x07:
		return RegionOAM
	case 0x08, 0x09:
		return RegionROM0
	case 0x0A, 0x0B:
		return RegionROM1
	case 0x0C, 0x0D:
		return RegionROM2
	case 0x0E, 0x0F:
		return RegionSRAM
	}
	return RegionUnmapped
}

// Offset maps addr to an offset inside its region's backing store,
// applying the region's mirroring rule.
func Offset(r Region, addr uint32) uint32 {
	switch r {
	case RegionBIOS:
		return addr & (BIOSSize - 1)
	case RegionEWRAM:
		return addr & (EWRAMSize - 1)
	case RegionIWRAM:
		return addr & (IWRAMSize - 1)
	case RegionIO:
		return addr & (IOSize - 1)
	case RegionPalette:
		return addr & (PaletteSize - 1)
	case RegionVRAM:
		// 96K mirrored in 128K steps; the upper 32K repeats the last 32K.
		off := addr & 0x1FFFF
		if off >= 0x18000 {
			off -= 0x8000
		}
		return off
	case RegionOAM:
		return addr & (OAMSize - 1)
	case RegionROM0, RegionROM1, RegionROM2:
		return addr & (ROMMaxSize - 1)
	case RegionSRAM:
		return addr & (SRAMSize - 1)
	}
	return addr
}
