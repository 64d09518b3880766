package mem

import "fmt"

// Width is the size of a bus access in bytes.
type Width uint8

// Access widths.
const (
	Byte Width = 1
	Half Width = 2
	Word Width = 4
)

// GamePakWaits holds the wait states of one GamePak ROM window.
type GamePakWaits struct {
	// N is charged on a non-sequential access.
	N int `json:"n" yaml:"n"`
	// S is charged on a sequential access.
	S int `json:"s" yaml:"s"`
}

// WaitStates is the per-region wait-state table. Every access costs one
// cycle plus the wait states of the addressed region.
type WaitStates struct {
	EWRAM    int             `json:"ewram" yaml:"ewram"`
	GamePak  [3]GamePakWaits `json:"gamepak" yaml:"gamepak"`
	SRAM     int             `json:"sram" yaml:"sram"`
	Prefetch bool            `json:"prefetch" yaml:"prefetch"`
}

// DefaultWaitStates returns the wait states in effect after reset
// (WAITCNT = 0).
func DefaultWaitStates() WaitStates {
	return WaitStates{
		EWRAM: 2,
		GamePak: [3]GamePakWaits{
			{N: 4, S: 2},
			{N: 4, S: 4},
			{N: 4, S: 8},
		},
		SRAM: 4,
	}
}

// Validate checks that no wait state is negative.
func (w WaitStates) Validate() error {
	if w.EWRAM < 0 {
		return fmt.Errorf("ewram wait states must be non-negative")
	}
	if w.SRAM < 0 {
		return fmt.Errorf("sram wait states must be non-negative")
	}
	for i, gp := range w.GamePak {
		if gp.N < 0 || gp.S < 0 {
			return fmt.Errorf("gamepak window %d wait states must be non-negative", i)
		}
	}
	return nil
}

var (
	waitcntN     = [4]int{4, 3, 2, 8}
	waitcntS     = [3][2]int{{2, 1}, {4, 1}, {8, 1}}
	waitcntSRAM  = [4]int{4, 3, 2, 8}
	waitcntShift = [3]uint{2, 5, 8}
)

// WithWAITCNT returns w reprogrammed from a WAITCNT register value. The
// EWRAM setting is not part of WAITCNT and is kept.
func (w WaitStates) WithWAITCNT(v uint16) WaitStates {
	w.SRAM = waitcntSRAM[v&0x3]
	for i := range w.GamePak {
		field := v >> waitcntShift[i]
		w.GamePak[i] = GamePakWaits{
			N: waitcntN[field&0x3],
			S: waitcntS[i][(field>>2)&0x1],
		}
	}
	w.Prefetch = v&(1<<14) != 0
	return w
}

// PrefetchBuffer models the GamePak prefetch unit. Access reports whether
// the halfword at addr was already buffered.
type PrefetchBuffer interface {
	Access(addr uint32) bool
	Invalidate()
}

// AccessCycles returns the cycle cost of an access of the given width at
// addr and advances the GamePak sequential-access tracking.
func (b *Bus) AccessCycles(addr uint32, width Width) int {
	r := RegionOf(addr)
	if !r.IsGamePak() {
		b.seqValid = false
	}

	switch r {
	case RegionEWRAM:
		c := 1 + b.waits.EWRAM
		if width == Word {
			c *= 2 // 16-bit bus
		}
		return c
	case RegionPalette, RegionVRAM:
		if width == Word {
			return 2
		}
		return 1
	case RegionROM0, RegionROM1, RegionROM2:
		return b.gamePakCycles(r, addr, width)
	case RegionSRAM:
		return 1 + b.waits.SRAM
	}
	return 1
}

func (b *Bus) gamePakCycles(r Region, addr uint32, width Width) int {
	ws := b.waits.GamePak[r-RegionROM0]

	aligned := addr &^ 1
	if width == Word {
		aligned = addr &^ 3
	}
	seq := b.seqValid && aligned == b.seqNext

	halves := 1
	if width == Word {
		halves = 2
	}

	cost := 0
	for i := 0; i < halves; i++ {
		a := aligned + uint32(2*i)
		if b.waits.Prefetch && b.prefetch != nil && b.prefetch.Access(a) {
			cost++
			continue
		}
		if seq || i > 0 {
			cost += 1 + ws.S
		} else {
			cost += 1 + ws.N
		}
	}

	b.seqNext = aligned + uint32(2*halves)
	b.seqValid = true

	return cost
}
