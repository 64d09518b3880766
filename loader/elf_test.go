package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/loader"
)

type testSegment struct {
	addr    uint32
	data    []byte
	memSize uint32
	flags   uint32
}

const (
	elfHeaderSize = 52
	phdrSize      = 32

	pfX = 1
	pfW = 2
	pfR = 4
)

// buildELF assembles a minimal 32-bit ELF image with one PT_LOAD program
// header per segment.
func buildELF(machine uint16, class byte, entry uint32, segs ...testSegment) []byte {
	le := binary.LittleEndian
	dataOff := uint32(elfHeaderSize + phdrSize*len(segs))

	buf := make([]byte, dataOff)
	copy(buf, []byte{0x7F, 'E', 'L', 'F', class, 1, 1})
	le.PutUint16(buf[16:], 2) // ET_EXEC
	le.PutUint16(buf[18:], machine)
	le.PutUint32(buf[20:], 1)
	le.PutUint32(buf[24:], entry)
	le.PutUint32(buf[28:], elfHeaderSize)
	le.PutUint16(buf[40:], elfHeaderSize)
	le.PutUint16(buf[42:], phdrSize)
	le.PutUint16(buf[44:], uint16(len(segs)))
	le.PutUint16(buf[46:], 40)

	for i, seg := range segs {
		ph := buf[elfHeaderSize+phdrSize*i:]
		memSize := seg.memSize
		if memSize == 0 {
			memSize = uint32(len(seg.data))
		}
		le.PutUint32(ph[0:], 1) // PT_LOAD
		le.PutUint32(ph[4:], dataOff)
		le.PutUint32(ph[8:], seg.addr)
		le.PutUint32(ph[12:], seg.addr)
		le.PutUint32(ph[16:], uint32(len(seg.data)))
		le.PutUint32(ph[20:], memSize)
		le.PutUint32(ph[24:], seg.flags)
		le.PutUint32(ph[28:], 4)

		buf = append(buf, seg.data...)
		dataOff += uint32(len(seg.data))
	}

	return buf
}

func writeTemp(dir, name string, data []byte) string {
	path := filepath.Join(dir, name)
	ExpectWithOffset(1, os.WriteFile(path, data, 0o644)).To(Succeed())
	return path
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Context("with an ARM ELF file", func() {
		It("should load segments and the entry point", func() {
			code := []byte{0x01, 0x00, 0xA0, 0xE3, 0xFE, 0xFF, 0xFF, 0xEA}
			data := []byte{0xAA, 0xBB}
			path := writeTemp(dir, "prog.elf", buildELF(40, 1, 0x08000000,
				testSegment{addr: 0x08000000, data: code, flags: pfR | pfX},
				testSegment{addr: 0x03000000, data: data, memSize: 0x10, flags: pfR | pfW},
			))

			prog, err := loader.Load(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(prog.Entry).To(Equal(uint32(0x08000000)))
			Expect(prog.Thumb()).To(BeFalse())
			Expect(prog.Segments).To(HaveLen(2))

			Expect(prog.Segments[0].Flags).To(Equal(
				loader.SegmentFlagRead | loader.SegmentFlagExecute))
			Expect(prog.ROM()).To(Equal(code))

			ram := prog.RAMSegments()
			Expect(ram).To(HaveLen(1))
			Expect(ram[0].Addr).To(Equal(uint32(0x03000000)))
			Expect(ram[0].Data).To(Equal(data))
			Expect(ram[0].MemSize).To(Equal(uint32(0x10)))
			Expect(ram[0].Flags).To(Equal(loader.SegmentFlagRead | loader.SegmentFlagWrite))

			Expect(prog.Header).To(BeNil())
			Expect(prog.Hash).To(HaveLen(40))
		})

		It("should report a Thumb entry point", func() {
			path := writeTemp(dir, "thumb.elf", buildELF(40, 1, 0x03000001,
				testSegment{addr: 0x03000000, data: []byte{0x00, 0x20}, flags: pfR | pfX},
			))

			prog, err := loader.Load(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(prog.Thumb()).To(BeTrue())
			Expect(prog.ROM()).To(BeNil())
		})

		It("should fold GamePak mirrors onto one image", func() {
			path := writeTemp(dir, "mirror.elf", buildELF(40, 1, 0x08000000,
				testSegment{addr: 0x08000000, data: []byte{1, 2}, flags: pfR},
				testSegment{addr: 0x0A000004, data: []byte{3, 4}, flags: pfR},
			))

			prog, err := loader.Load(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(prog.ROM()).To(Equal([]byte{1, 2, 0, 0, 3, 4}))
		})

		It("should reject a non-ARM machine", func() {
			path := writeTemp(dir, "x86.elf", buildELF(3, 1, 0))

			_, err := loader.Load(path)
			Expect(err).To(MatchError(ContainSubstring("not an ARM ELF file")))
		})

		It("should reject a 64-bit ELF file", func() {
			img := make([]byte, 64)
			copy(img, []byte{0x7F, 'E', 'L', 'F', 2, 1, 1})
			binary.LittleEndian.PutUint16(img[16:], 2)
			binary.LittleEndian.PutUint16(img[18:], 40)
			binary.LittleEndian.PutUint32(img[20:], 1)
			binary.LittleEndian.PutUint16(img[52:], 64)
			path := writeTemp(dir, "wide.elf", img)

			_, err := loader.Load(path)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("with a raw image", func() {
		It("should place it at the start of the GamePak", func() {
			rom := validROM("GBASIM", "AGBE")
			path := writeTemp(dir, "game.gba", rom)

			prog, err := loader.Load(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(prog.Entry).To(Equal(uint32(0x08000000)))
			Expect(prog.ROM()).To(Equal(rom))
			Expect(prog.RAMSegments()).To(BeEmpty())
			Expect(prog.Header).ToNot(BeNil())
			Expect(prog.Header.Title).To(Equal("GBASIM"))
		})

		It("should hash the file contents", func() {
			a := writeTemp(dir, "a.gba", []byte{1, 2, 3, 4})
			b := writeTemp(dir, "b.gba", []byte{1, 2, 3, 5})

			pa, err := loader.Load(a)
			Expect(err).ToNot(HaveOccurred())
			pb, err := loader.Load(b)
			Expect(err).ToNot(HaveOccurred())
			Expect(pa.Hash).To(Equal("12dada1fff4d4787ade3333147202c3b443e376f"))
			Expect(pa.Hash).ToNot(Equal(pb.Hash))
		})

		It("should load images without a header", func() {
			path := writeTemp(dir, "tiny.bin", []byte{0x00, 0x00, 0xA0, 0xE1})

			prog, err := loader.Load(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(prog.Header).To(BeNil())
		})

		It("should reject an empty file", func() {
			path := writeTemp(dir, "empty.gba", nil)

			_, err := loader.Load(path)
			Expect(err).To(MatchError(ContainSubstring("empty")))
		})
	})

	It("should fail for a missing file", func() {
		_, err := loader.Load(filepath.Join(dir, "missing.gba"))
		Expect(err).To(MatchError(ContainSubstring("failed to open program")))
	})
})
