package cpu

import (
	"github.com/horizon-arcade/dmgcore/internal/interrupt"
	"github.com/horizon-arcade/dmgcore/internal/mmu"
)

// Descriptor is one entry of the opcode or CB-opcode table: everything the
// step loop needs to fetch operands, execute the effect, and report the
// cycle count actually spent.
type Descriptor struct {
	Mnemonic string

	// Length is the total instruction length in bytes, including the
	// opcode byte itself (but not a CB prefix byte, which the step loop
	// accounts for separately).
	Length int

	// Cycles is the base/taken T-cycle count. AltCycles is the
	// not-taken count for conditional branches; zero means the
	// instruction never varies and Cycles always applies.
	Cycles    int
	AltCycles int

	Undefined bool

	// Exec runs the instruction's effect and returns the actual T-cycle
	// count (Cycles or AltCycles for branches, Cycles otherwise). ops
	// holds the Length-1 operand bytes already read from just past the
	// opcode.
	Exec func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int
}

var opcodeTable [256]Descriptor
var cbTable [256]Descriptor

func init() {
	for i := range opcodeTable {
		opcodeTable[i] = Descriptor{Undefined: true}
	}
	for i := range cbTable {
		cbTable[i] = Descriptor{Undefined: true}
	}

	buildLoadRegTable()
	buildALUTable()
	buildCBRotateTable()
	buildCBBitTable()
	buildCBResTable()
	buildCBSetTable()
	registerIrregular()
}

// getReg8/setReg8 map the 3-bit register encoding shared by LD r,r' and ALU A,r to
// a get/set pair. Index 6 is (HL), costing extra cycles the generator
// loops account for separately.
func getReg8(c *CPU, m *mmu.MMU, idx byte) byte {
	switch idx {
	case 0:
		return c.Reg.B
	case 1:
		return c.Reg.C
	case 2:
		return c.Reg.D
	case 3:
		return c.Reg.E
	case 4:
		return c.Reg.H
	case 5:
		return c.Reg.L
	case 6:
		return m.ReadByte(c.Reg.HL())
	default:
		return c.Reg.A
	}
}

func setReg8(c *CPU, m *mmu.MMU, idx byte, v byte) {
	switch idx {
	case 0:
		c.Reg.B = v
	case 1:
		c.Reg.C = v
	case 2:
		c.Reg.D = v
	case 3:
		c.Reg.E = v
	case 4:
		c.Reg.H = v
	case 5:
		c.Reg.L = v
	case 6:
		m.WriteByte(c.Reg.HL(), v)
	default:
		c.Reg.A = v
	}
}

var reg8Names = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// buildLoadRegTable fills 0x40-0x7F: LD r,r' over the 8x8 dst/src grid,
// except 0x76 which is HALT (registered separately in registerIrregular).
func buildLoadRegTable() {
	for dst := byte(0); dst < 8; dst++ {
		for src := byte(0); src < 8; src++ {
			op := 0x40 + dst*8 + src
			if op == 0x76 {
				continue
			}
			d, s := dst, src
			cycles := 4
			if d == 6 || s == 6 {
				cycles = 8
			}
			opcodeTable[op] = Descriptor{
				Mnemonic: "LD " + reg8Names[d] + "," + reg8Names[s],
				Length:   1,
				Cycles:   cycles,
				Exec: func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
					setReg8(c, m, d, getReg8(c, m, s))
					return cycles
				},
			}
		}
	}
}

// buildALUTable fills 0x80-0xBF: ADD/ADC/SUB/SBC/AND/XOR/OR/CP A,r/(HL).
func buildALUTable() {
	names := [8]string{"ADD", "ADC", "SUB", "SBC", "AND", "XOR", "OR", "CP"}
	for aluOp := byte(0); aluOp < 8; aluOp++ {
		for src := byte(0); src < 8; src++ {
			op := 0x80 + aluOp*8 + src
			aluOp, s := aluOp, src
			cycles := 4
			if s == 6 {
				cycles = 8
			}
			opcodeTable[op] = Descriptor{
				Mnemonic: names[aluOp] + " A," + reg8Names[s],
				Length:   1,
				Cycles:   cycles,
				Exec: func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
					execALU(c, m, aluOp, getReg8(c, m, s))
					return cycles
				},
			}
		}
	}
}

// execALU applies aluOp (0-7, same encoding as buildALUTable) to A and
// operand, storing the result (except CP, which only sets flags).
func execALU(c *CPU, m *mmu.MMU, aluOp byte, operand byte) {
	var res byte
	var z, n, h, cy bool
	switch aluOp {
	case 0:
		res, z, n, h, cy = add8(c.Reg.A, operand)
	case 1:
		res, z, n, h, cy = adc8(c.Reg.A, operand, c.Reg.FlagC())
	case 2:
		res, z, n, h, cy = sub8(c.Reg.A, operand)
	case 3:
		res, z, n, h, cy = sbc8(c.Reg.A, operand, c.Reg.FlagC())
	case 4:
		res, z, n, h, cy = and8(c.Reg.A, operand)
	case 5:
		res, z, n, h, cy = xor8(c.Reg.A, operand)
	case 6:
		res, z, n, h, cy = or8(c.Reg.A, operand)
	case 7:
		z, n, h, cy = cp8(c.Reg.A, operand)
		res = c.Reg.A
	}
	c.Reg.A = res
	c.Reg.SetZNHC(z, n, h, cy)
}

var shiftNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}

// buildCBRotateTable fills CB 0x00-0x3F: rotate/shift family over 8 targets.
func buildCBRotateTable() {
	for shiftOp := byte(0); shiftOp < 8; shiftOp++ {
		for target := byte(0); target < 8; target++ {
			op := shiftOp*8 + target
			shiftOp, t := shiftOp, target
			cycles := 8
			if t == 6 {
				cycles = 16
			}
			cbTable[op] = Descriptor{
				Mnemonic: shiftNames[shiftOp] + " " + reg8Names[t],
				Length:   1,
				Cycles:   cycles,
				Exec: func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
					v := getReg8(c, m, t)
					var res byte
					var carry bool
					switch shiftOp {
					case 0:
						res, carry = rlc(v)
					case 1:
						res, carry = rrc(v)
					case 2:
						res, carry = rl(v, c.Reg.FlagC())
					case 3:
						res, carry = rr(v, c.Reg.FlagC())
					case 4:
						res, carry = sla(v)
					case 5:
						res, carry = sra(v)
					case 6:
						res = swap(v)
						carry = false
					case 7:
						res, carry = srl(v)
					}
					setReg8(c, m, t, res)
					c.Reg.SetZNHC(res == 0, false, false, carry)
					return cycles
				},
			}
		}
	}
}

// buildCBBitTable fills CB 0x40-0x7F: BIT b,r. Z<-!bit, N=0, H=1, C
// unchanged.
func buildCBBitTable() {
	for bit := byte(0); bit < 8; bit++ {
		for target := byte(0); target < 8; target++ {
			op := 0x40 + bit*8 + target
			b, t := bit, target
			cycles := 8
			if t == 6 {
				cycles = 12
			}
			cbTable[op] = Descriptor{
				Mnemonic: "BIT " + string(rune('0'+b)) + "," + reg8Names[t],
				Length:   1,
				Cycles:   cycles,
				Exec: func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
					v := getReg8(c, m, t)
					set := v&(1<<b) != 0
					c.Reg.setFlag(FlagZ, !set)
					c.Reg.setFlag(FlagN, false)
					c.Reg.setFlag(FlagH, true)
					return cycles
				},
			}
		}
	}
}

// buildCBResTable fills CB 0x80-0xBF: RES b,r (AND-clear). No flags change.
func buildCBResTable() {
	for bit := byte(0); bit < 8; bit++ {
		for target := byte(0); target < 8; target++ {
			op := 0x80 + bit*8 + target
			b, t := bit, target
			cycles := 8
			if t == 6 {
				cycles = 16
			}
			cbTable[op] = Descriptor{
				Mnemonic: "RES " + string(rune('0'+b)) + "," + reg8Names[t],
				Length:   1,
				Cycles:   cycles,
				Exec: func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
					v := getReg8(c, m, t)
					setReg8(c, m, t, v&^(1<<b))
					return cycles
				},
			}
		}
	}
}

// buildCBSetTable fills CB 0xC0-0xFF: SET b,r. OR-set, fixing the source's
// toggle-by-XOR mistake.
func buildCBSetTable() {
	for bit := byte(0); bit < 8; bit++ {
		for target := byte(0); target < 8; target++ {
			op := 0xC0 + bit*8 + target
			b, t := bit, target
			cycles := 8
			if t == 6 {
				cycles = 16
			}
			cbTable[op] = Descriptor{
				Mnemonic: "SET " + string(rune('0'+b)) + "," + reg8Names[t],
				Length:   1,
				Cycles:   cycles,
				Exec: func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
					v := getReg8(c, m, t)
					setReg8(c, m, t, v|(1<<b))
					return cycles
				},
			}
		}
	}
}

func d16(ops []byte) uint16 { return uint16(ops[1])<<8 | uint16(ops[0]) }
func s8(ops []byte) int8    { return int8(ops[0]) }
