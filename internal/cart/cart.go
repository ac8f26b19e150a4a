// Package cart loads Game Boy cartridge images and exposes the banking
// behavior the MMU needs for the ROM (0000-7FFF) and external RAM
// (A000-BFFF) windows.
package cart

import "errors"

// ErrWriteToReadOnly is returned by Cartridge.Write when a write targets a
// fixed ROM byte with no banking controller to interpret it (the no-MBC
// case). MBC variants never return this: their ROM-window writes are bank
// control signals, not memory stores.
var ErrWriteToReadOnly = errors.New("cart: write to read-only ROM")

// Cartridge is the minimal interface the MMU needs for ROM/RAM banking.
// Implementations can be ROM-only or MBC variants. Addresses are CPU
// addresses.
type Cartridge interface {
	// Read returns a byte for ROM (0x0000-0x7FFF) and external RAM
	// (0xA000-0xBFFF).
	Read(addr uint16) byte
	// Write handles MBC control writes (0x0000-0x7FFF) and external RAM
	// writes (0xA000-0xBFFF). It returns ErrWriteToReadOnly only when the
	// write had no effect because there is no banking controller to
	// interpret it.
	Write(addr uint16, value byte) error
}

// New picks an implementation based on the ROM header, falling back to
// ROM-only for unrecognized or malformed headers.
func New(rom []byte) Cartridge {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom)
	}
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom)
	case 0x01, 0x02, 0x03: // MBC1 variants (RAM, RAM+battery transparent here)
		return NewMBC1(rom, h.RAMSize)
	case 0x0F, 0x10, 0x11, 0x12, 0x13: // MBC3 variants (RTC not implemented)
		return NewMBC3(rom, h.RAMSize)
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E: // MBC5 variants
		return NewMBC5(rom, h.RAMSize)
	default:
		// Fallback to ROM-only so homebrew/test ROMs with odd header bytes
		// still run.
		return NewROMOnly(rom)
	}
}
