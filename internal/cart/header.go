package cart

import (
	"errors"
	"strings"
)

// ErrHeaderTruncated is returned by ParseHeader when the image ends before
// the header block at 0x0100-0x014F does.
var ErrHeaderTruncated = errors.New("cart: ROM smaller than header block")

// Header is the decoded cartridge header block (0x0100-0x014F): identity,
// hardware type, and the size codes that drive MBC selection.
type Header struct {
	Title    string
	CGB      byte
	SGB      byte
	Licensee string // new-licensee ASCII pair when the old code defers to it
	CartType byte
	Version  byte

	ROMSize  int // decoded from the size code at 0x0148
	ROMBanks int
	RAMSize  int // decoded from the size code at 0x0149

	HeaderSum byte
	GlobalSum uint16
}

// ParseHeader decodes the header fields out of rom. It does not validate
// checksums (see HeaderChecksumOK) — homebrew and test ROMs frequently
// ship without valid ones.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < 0x0150 {
		return nil, ErrHeaderTruncated
	}

	h := &Header{
		Title:     strings.TrimRight(string(rom[0x0134:0x0144]), "\x00"),
		CGB:       rom[0x0143],
		SGB:       rom[0x0146],
		CartType:  rom[0x0147],
		Version:   rom[0x014C],
		HeaderSum: rom[0x014D],
		GlobalSum: uint16(rom[0x014E])<<8 | uint16(rom[0x014F]),
	}
	if rom[0x014B] == 0x33 {
		h.Licensee = string(rom[0x0144:0x0146])
	}

	// The ROM size code is a power-of-two count of 16 KiB banks starting
	// from 32 KiB; codes past 0x08 were never manufactured.
	if code := rom[0x0148]; code <= 0x08 {
		h.ROMSize = 32 * 1024 << code
		h.ROMBanks = h.ROMSize / romBankSize
	}
	h.RAMSize = decodeRAMSize(rom[0x0149])

	return h, nil
}

var ramSizes = map[byte]int{
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

func decodeRAMSize(code byte) int {
	return ramSizes[code]
}

// TypeName renders the cartridge-type byte for log lines.
func (h *Header) TypeName() string {
	switch h.CartType {
	case 0x00:
		return "ROM only"
	case 0x01, 0x02, 0x03:
		return "MBC1"
	case 0x05, 0x06:
		return "MBC2"
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return "MBC3"
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return "MBC5"
	default:
		return "unknown"
	}
}

// HeaderChecksumOK recomputes the 8-bit checksum over 0x0134-0x014C and
// compares it to the stored byte at 0x014D.
func HeaderChecksumOK(rom []byte) bool {
	if len(rom) < 0x014E {
		return false
	}
	var sum byte
	for _, b := range rom[0x0134:0x014D] {
		sum -= b + 1
	}
	return sum == rom[0x014D]
}
