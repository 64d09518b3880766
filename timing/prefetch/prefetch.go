// Package prefetch models the GamePak prefetch buffer using the Akita cache
// directory.
package prefetch

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// DefaultDepth is the number of halfwords the hardware buffer holds.
const DefaultDepth = 8

const halfword = 2

// Statistics holds prefetch buffer statistics.
type Statistics struct {
	Accesses      uint64
	Hits          uint64
	Misses        uint64
	Invalidations uint64
}

// HitRate returns hits over accesses, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	if s.Accesses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses)
}

// Buffer is a fully associative buffer of GamePak halfwords. It implements
// mem.PrefetchBuffer.
//
// The model is untimed. A miss flushes the buffer and restarts the stream
// one halfword past the missed address. A hit consumes the entry and lets
// the stream run one halfword further, so straight-line code keeps hitting
// once the stream is established. The stream never holds more than depth
// entries.
type Buffer struct {
	depth int

	// One set with depth ways of one halfword each.
	directory *akitacache.DirectoryImpl

	next  uint32
	stats Statistics
}

// New creates a prefetch buffer holding depth halfwords. A depth below 1
// uses DefaultDepth.
func New(depth int) *Buffer {
	if depth < 1 {
		depth = DefaultDepth
	}

	return &Buffer{
		depth: depth,
		directory: akitacache.NewDirectory(
			1,
			depth,
			halfword,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Depth returns the capacity in halfwords.
func (b *Buffer) Depth() int {
	return b.depth
}

// Stats returns buffer statistics.
func (b *Buffer) Stats() Statistics {
	return b.stats
}

// ResetStats clears buffer statistics.
func (b *Buffer) ResetStats() {
	b.stats = Statistics{}
}

// Access reports whether the halfword at addr was buffered.
func (b *Buffer) Access(addr uint32) bool {
	addr &^= 1
	b.stats.Accesses++

	block := b.directory.Lookup(0, uint64(addr))
	if block != nil && block.IsValid {
		b.stats.Hits++
		block.IsValid = false
		b.fill()
		return true
	}

	b.stats.Misses++
	b.directory.Reset()
	b.next = addr + halfword
	b.fill()
	return false
}

// fill buffers the next halfword of the stream.
func (b *Buffer) fill() {
	victim := b.directory.FindVictim(uint64(b.next))
	if victim == nil {
		return
	}

	victim.Tag = uint64(b.next)
	victim.IsValid = true
	victim.IsDirty = false
	b.directory.Visit(victim)
	b.next += halfword
}

// Buffered returns the number of halfwords currently held.
func (b *Buffer) Buffered() int {
	n := 0
	for _, set := range b.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid {
				n++
			}
		}
	}
	return n
}

// Invalidate drops every buffered halfword. The bus calls it when
// prefetching is disabled and on reset.
func (b *Buffer) Invalidate() {
	b.stats.Invalidations++
	b.directory.Reset()
}
