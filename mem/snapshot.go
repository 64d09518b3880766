package mem

import "fmt"

// Snapshot is a copy of the bus-owned memories. GamePak contents belong to
// the cartridge and are not included.
type Snapshot struct {
	BIOS    []byte
	EWRAM   []byte
	IWRAM   []byte
	IO      []byte
	Palette []byte
	VRAM    []byte
	OAM     []byte
	Waits   WaitStates
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Snapshot returns a deep copy of the bus state.
func (b *Bus) Snapshot() Snapshot {
	return Snapshot{
		BIOS:    cloneBytes(b.bios),
		EWRAM:   cloneBytes(b.ewram),
		IWRAM:   cloneBytes(b.iwram),
		IO:      cloneBytes(b.io),
		Palette: cloneBytes(b.palette),
		VRAM:    cloneBytes(b.vram),
		OAM:     cloneBytes(b.oam),
		Waits:   b.waits,
	}
}

// Restore replaces the bus state with a snapshot.
func (b *Bus) Restore(s Snapshot) error {
	regions := []struct {
		name string
		dst  []byte
		src  []byte
	}{
		{"BIOS", b.bios, s.BIOS},
		{"EWRAM", b.ewram, s.EWRAM},
		{"IWRAM", b.iwram, s.IWRAM},
		{"I/O", b.io, s.IO},
		{"palette", b.palette, s.Palette},
		{"VRAM", b.vram, s.VRAM},
		{"OAM", b.oam, s.OAM},
	}

	for _, r := range regions {
		if len(r.src) != len(r.dst) {
			return fmt.Errorf("restore %s: snapshot has %d bytes, want %d",
				r.name, len(r.src), len(r.dst))
		}
	}

	for _, r := range regions {
		copy(r.dst, r.src)
	}
	b.waits = s.Waits
	b.seqValid = false
	if b.prefetch != nil {
		b.prefetch.Invalidate()
	}

	return nil
}
