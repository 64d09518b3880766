package loader_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/loader"
)

// validROM returns a small image with a well-formed cartridge header.
func validROM(title, code string) []byte {
	rom := make([]byte, 0x200)
	copy(rom[0xA0:], title)
	copy(rom[0xAC:], code)
	copy(rom[0xB0:], "01")
	rom[0xB2] = 0x96
	rom[0xBC] = 2
	rom[0xBD] = loader.HeaderComplement(rom)
	return rom
}

var _ = Describe("ParseHeader", func() {
	It("should decode the header fields", func() {
		h, err := loader.ParseHeader(validROM("POKEMON EMER", "BPEE"))

		Expect(err).ToNot(HaveOccurred())
		Expect(h.Title).To(Equal("POKEMON EMER"))
		Expect(h.GameCode).To(Equal("BPEE"))
		Expect(h.MakerCode).To(Equal("01"))
		Expect(h.Version).To(Equal(uint8(2)))
	})

	It("should compute the complement over 0xA0-0xBC", func() {
		rom := make([]byte, loader.HeaderSize)
		rom[0xB2] = 0x96
		// -(0x96) - 0x19 = 0x51
		Expect(loader.HeaderComplement(rom)).To(Equal(uint8(0x51)))
	})

	It("should reject a short image", func() {
		_, err := loader.ParseHeader(make([]byte, 0x40))
		Expect(err).To(MatchError(loader.ErrNoHeader))
	})

	It("should reject a wrong fixed byte", func() {
		rom := validROM("GAME", "AAAE")
		rom[0xB2] = 0
		_, err := loader.ParseHeader(rom)
		Expect(err).To(MatchError(loader.ErrBadHeader))
	})

	It("should reject a bad complement", func() {
		rom := validROM("GAME", "AAAE")
		rom[0xBD]++
		_, err := loader.ParseHeader(rom)
		Expect(err).To(MatchError(loader.ErrBadHeader))
	})
})
