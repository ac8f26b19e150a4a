package cpu

import "github.com/horizon-arcade/dmgcore/internal/mmu"

// Flag bit positions within F.
const (
	FlagZ byte = 1 << 7
	FlagN byte = 1 << 6
	FlagH byte = 1 << 5
	FlagC byte = 1 << 4
)

// Registers is the SM83 register file: six 8-bit registers pairable as
// BC/DE/HL, the accumulator/flags pair AF, and SP/PC.
type Registers struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte
	SP   uint16
	pc   uint16
}

// PC/SetPC satisfy interrupt.Registers.
func (r *Registers) PC() uint16     { return r.pc }
func (r *Registers) SetPC(v uint16) { r.pc = v }

// IncPC advances PC by n, wrapping mod 2^16 via plain uint16 arithmetic.
func (r *Registers) IncPC(n uint16) { r.pc += n }

// PushStack pushes a 16-bit value high-byte-first, the same order CALL
// uses, so RET's pop order always matches whatever pushed it.
func (r *Registers) PushStack(m *mmu.MMU, value uint16) {
	r.SP--
	m.WriteByte(r.SP, byte(value>>8))
	r.SP--
	m.WriteByte(r.SP, byte(value))
}

// PopStack pops a 16-bit value low-byte-first.
func (r *Registers) PopStack(m *mmu.MMU) uint16 {
	lo := m.ReadByte(r.SP)
	r.SP++
	hi := m.ReadByte(r.SP)
	r.SP++
	return uint16(hi)<<8 | uint16(lo)
}

func (r *Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }
func (r *Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }
func (r *Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }
func (r *Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F&0xF0) }

func (r *Registers) SetBC(v uint16) { r.B, r.C = byte(v>>8), byte(v) }
func (r *Registers) SetDE(v uint16) { r.D, r.E = byte(v>>8), byte(v) }
func (r *Registers) SetHL(v uint16) { r.H, r.L = byte(v>>8), byte(v) }

// SetAF masks F to its top nibble on write: the low nibble of F is always
// zero on hardware.
func (r *Registers) SetAF(v uint16) {
	r.A = byte(v >> 8)
	r.F = byte(v) & 0xF0
}

// SetF masks to the top nibble, same rule as SetAF.
func (r *Registers) SetF(v byte) { r.F = v & 0xF0 }

func (r *Registers) ClearFlags() { r.F = 0 }

func (r *Registers) FlagZ() bool { return r.F&FlagZ != 0 }
func (r *Registers) FlagN() bool { return r.F&FlagN != 0 }
func (r *Registers) FlagH() bool { return r.F&FlagH != 0 }
func (r *Registers) FlagC() bool { return r.F&FlagC != 0 }

func (r *Registers) setFlag(bit byte, v bool) {
	if v {
		r.F |= bit
	} else {
		r.F &^= bit
	}
}

// SetZNHC stores all four flags at once, the shape every ALU helper
// produces.
func (r *Registers) SetZNHC(z, n, h, c bool) {
	r.setFlag(FlagZ, z)
	r.setFlag(FlagN, n)
	r.setFlag(FlagH, h)
	r.setFlag(FlagC, c)
}

// ResetPostBoot sets the register file to the documented DMG post-boot
// snapshot (A=0x01, F=0xB0, BC=0x0013, DE=0x00D8, HL=0x014D, SP=0xFFFE,
// PC=0x0100).
func (r *Registers) ResetPostBoot() {
	r.A, r.F = 0x01, 0xB0
	r.B, r.C = 0x00, 0x13
	r.D, r.E = 0x00, 0xD8
	r.H, r.L = 0x01, 0x4D
	r.SP = 0xFFFE
	r.pc = 0x0100
}
