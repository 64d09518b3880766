// Package loader loads GBA programs: 32-bit ARM ELF executables and raw
// GamePak images.
package loader

import (
	"bytes"
	"crypto/sha1"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/gbasim/mem"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment is a block of the program placed at a fixed address.
type Segment struct {
	// Addr is the address of the first byte.
	Addr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// InGamePak reports whether the segment lives in the GamePak ROM windows.
func (s Segment) InGamePak() bool {
	return mem.RegionOf(s.Addr).IsGamePak()
}

// Program is a loaded program ready to be placed on the bus.
type Program struct {
	// Entry is the address of the first instruction. Bit 0 selects Thumb
	// state.
	Entry uint32
	// Segments holds every loadable block.
	Segments []Segment
	// Header is the cartridge header of the GamePak image, nil if the
	// image has none.
	Header *Header
	// Hash is the SHA-1 of the file contents.
	Hash string
}

// Thumb reports whether execution starts in Thumb state.
func (p *Program) Thumb() bool {
	return p.Entry&1 != 0
}

// ROM assembles the GamePak segments into one image starting at
// 0x08000000. Segments in the mirror windows fold onto the same image. It
// returns nil if no segment lives in the GamePak.
func (p *Program) ROM() []byte {
	var rom []byte
	for _, seg := range p.Segments {
		if !seg.InGamePak() {
			continue
		}
		off := mem.Offset(mem.RegionOf(seg.Addr), seg.Addr)
		end := off + seg.MemSize
		if end < off+uint32(len(seg.Data)) {
			end = off + uint32(len(seg.Data))
		}
		if int(end) > len(rom) {
			rom = append(rom, make([]byte, int(end)-len(rom))...)
		}
		copy(rom[off:], seg.Data)
	}
	return rom
}

// RAMSegments returns the segments outside the GamePak.
func (p *Program) RAMSegments() []Segment {
	var segs []Segment
	for _, seg := range p.Segments {
		if !seg.InGamePak() {
			segs = append(segs, seg)
		}
	}
	return segs
}

// Load reads an ELF executable or a raw GamePak image from path. Files that
// do not start with the ELF magic are treated as raw images.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty program file", path)
	}

	var prog *Program
	if bytes.HasPrefix(data, []byte(elf.ELFMAG)) {
		prog, err = LoadELF(bytes.NewReader(data))
	} else {
		prog, err = LoadROM(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	prog.Hash = fmt.Sprintf("%x", sha1.Sum(data))
	return prog, nil
}

// LoadELF parses a 32-bit little-endian ARM ELF executable.
func LoadELF(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, errors.New("not a 32-bit ELF file")
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, errors.New("not a little-endian ELF file")
	}
	if f.Machine != elf.EM_ARM {
		return nil, fmt.Errorf("not an ARM ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{Entry: uint32(f.Entry)}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			Addr:    uint32(phdr.Paddr),
			Data:    data,
			MemSize: uint32(phdr.Memsz),
			Flags:   flags,
		})
	}

	if rom := prog.ROM(); rom != nil {
		if len(rom) > mem.ROMMaxSize {
			return nil, fmt.Errorf("GamePak segments span %d bytes, more than %d", len(rom), mem.ROMMaxSize)
		}
		prog.Header, _ = ParseHeader(rom)
	}

	return prog, nil
}

// LoadROM wraps a raw GamePak image. Execution starts at 0x08000000 in ARM
// state.
func LoadROM(rom []byte) (*Program, error) {
	if len(rom) > mem.ROMMaxSize {
		return nil, fmt.Errorf("rom image is %d bytes, larger than %d", len(rom), mem.ROMMaxSize)
	}

	prog := &Program{
		Entry: mem.ROMBase,
		Segments: []Segment{{
			Addr:    mem.ROMBase,
			Data:    rom,
			MemSize: uint32(len(rom)),
			Flags:   SegmentFlagRead | SegmentFlagExecute,
		}},
	}
	prog.Header, _ = ParseHeader(rom)

	return prog, nil
}
