package loader

import (
	"errors"
	"fmt"
	"strings"
)

// Cartridge header layout.
const (
	HeaderSize = 0xC0

	titleOffset      = 0xA0
	gameCodeOffset   = 0xAC
	makerCodeOffset  = 0xB0
	fixedOffset      = 0xB2
	versionOffset    = 0xBC
	complementOffset = 0xBD

	fixedValue = 0x96
)

var (
	// ErrNoHeader is returned for images too short to hold a header.
	ErrNoHeader = errors.New("image has no cartridge header")
	// ErrBadHeader is returned when the header fails validation.
	ErrBadHeader = errors.New("invalid cartridge header")
)

// Header is the GamePak cartridge header.
type Header struct {
	Title      string
	GameCode   string
	MakerCode  string
	Version    uint8
	Complement uint8
}

// HeaderComplement computes the complement check byte over 0xA0-0xBC.
func HeaderComplement(rom []byte) uint8 {
	var chk uint8
	for _, b := range rom[titleOffset:complementOffset] {
		chk -= b
	}
	return chk - 0x19
}

// ParseHeader validates and decodes the header of a GamePak image: the
// fixed byte at 0xB2 and the complement check at 0xBD.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrNoHeader, len(rom))
	}
	if rom[fixedOffset] != fixedValue {
		return nil, fmt.Errorf("%w: fixed byte is 0x%02X, want 0x%02X",
			ErrBadHeader, rom[fixedOffset], fixedValue)
	}
	if want := HeaderComplement(rom); rom[complementOffset] != want {
		return nil, fmt.Errorf("%w: complement is 0x%02X, want 0x%02X",
			ErrBadHeader, rom[complementOffset], want)
	}

	return &Header{
		Title:      field(rom[titleOffset:gameCodeOffset]),
		GameCode:   field(rom[gameCodeOffset:makerCodeOffset]),
		MakerCode:  field(rom[makerCodeOffset:fixedOffset]),
		Version:    rom[versionOffset],
		Complement: rom[complementOffset],
	}, nil
}

func field(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}
