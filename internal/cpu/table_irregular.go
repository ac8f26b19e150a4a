package cpu

import (
	"github.com/horizon-arcade/dmgcore/internal/interrupt"
	"github.com/horizon-arcade/dmgcore/internal/mmu"
)

// incReg8/decReg8 apply the shared INC r / DEC r flag algebra: Z, N (0 for
// INC, 1 for DEC), H on a nibble carry/borrow, C left untouched.
func incReg8(c *CPU, old byte) byte {
	res := old + 1
	c.Reg.setFlag(FlagZ, res == 0)
	c.Reg.setFlag(FlagN, false)
	c.Reg.setFlag(FlagH, old&0x0F == 0x0F)
	return res
}

func decReg8(c *CPU, old byte) byte {
	res := old - 1
	c.Reg.setFlag(FlagZ, res == 0)
	c.Reg.setFlag(FlagN, true)
	c.Reg.setFlag(FlagH, old&0x0F == 0x00)
	return res
}

func jumpCondition(c *CPU, cc byte) bool {
	switch cc {
	case 0:
		return !c.Reg.FlagZ()
	case 1:
		return c.Reg.FlagZ()
	case 2:
		return !c.Reg.FlagC()
	default:
		return c.Reg.FlagC()
	}
}

// registerIrregular fills every opcode whose shape doesn't fit one of the
// systematic generator loops: immediate loads, 16-bit inc/dec, stack ops,
// control flow, accumulator rotates, and the misc single-byte opcodes.
func registerIrregular() {
	op := func(code byte, mnemonic string, length, cycles int, exec func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int) {
		opcodeTable[code] = Descriptor{Mnemonic: mnemonic, Length: length, Cycles: cycles, Exec: exec}
	}
	branch := func(code byte, mnemonic string, length, taken, notTaken int, exec func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int) {
		opcodeTable[code] = Descriptor{Mnemonic: mnemonic, Length: length, Cycles: taken, AltCycles: notTaken, Exec: exec}
	}

	op(0x00, "NOP", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { return 4 })

	op(0x01, "LD BC,d16", 3, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { c.Reg.SetBC(d16(ops)); return 12 })
	op(0x11, "LD DE,d16", 3, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { c.Reg.SetDE(d16(ops)); return 12 })
	op(0x21, "LD HL,d16", 3, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { c.Reg.SetHL(d16(ops)); return 12 })
	op(0x31, "LD SP,d16", 3, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { c.Reg.SP = d16(ops); return 12 })

	op(0x02, "LD (BC),A", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		m.WriteByte(c.Reg.BC(), c.Reg.A)
		return 8
	})
	op(0x12, "LD (DE),A", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		m.WriteByte(c.Reg.DE(), c.Reg.A)
		return 8
	})
	op(0x0A, "LD A,(BC)", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.A = m.ReadByte(c.Reg.BC())
		return 8
	})
	op(0x1A, "LD A,(DE)", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.A = m.ReadByte(c.Reg.DE())
		return 8
	})

	op(0x22, "LD (HL+),A", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		hl := c.Reg.HL()
		m.WriteByte(hl, c.Reg.A)
		c.Reg.SetHL(hl + 1)
		return 8
	})
	op(0x2A, "LD A,(HL+)", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		hl := c.Reg.HL()
		c.Reg.A = m.ReadByte(hl)
		c.Reg.SetHL(hl + 1)
		return 8
	})
	op(0x32, "LD (HL-),A", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		hl := c.Reg.HL()
		m.WriteByte(hl, c.Reg.A)
		c.Reg.SetHL(hl - 1)
		return 8
	})
	op(0x3A, "LD A,(HL-)", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		hl := c.Reg.HL()
		c.Reg.A = m.ReadByte(hl)
		c.Reg.SetHL(hl - 1)
		return 8
	})

	op(0x08, "LD (a16),SP", 3, 20, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		addr := d16(ops)
		m.WriteByte(addr, byte(c.Reg.SP))
		m.WriteByte(addr+1, byte(c.Reg.SP>>8))
		return 20
	})

	op(0x36, "LD (HL),d8", 2, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		m.WriteByte(c.Reg.HL(), ops[0])
		return 12
	})

	regSetters := [7]func(c *CPU, v byte){
		func(c *CPU, v byte) { c.Reg.B = v },
		func(c *CPU, v byte) { c.Reg.C = v },
		func(c *CPU, v byte) { c.Reg.D = v },
		func(c *CPU, v byte) { c.Reg.E = v },
		func(c *CPU, v byte) { c.Reg.H = v },
		func(c *CPU, v byte) { c.Reg.L = v },
		func(c *CPU, v byte) { c.Reg.A = v },
	}
	ldImmCodes := [7]byte{0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x3E}
	ldImmNames := [7]string{"B", "C", "D", "E", "H", "L", "A"}
	for i, code := range ldImmCodes {
		setter := regSetters[i]
		op(code, "LD "+ldImmNames[i]+",d8", 2, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			setter(c, ops[0])
			return 8
		})
	}

	// INC/DEC r8 over the seven plain 8-bit registers; (HL) is registered
	// separately below.
	type incdec8 struct {
		code byte
		get  func(c *CPU) byte
		set  func(c *CPU, v byte)
	}
	incCodes := []incdec8{
		{0x04, func(c *CPU) byte { return c.Reg.B }, func(c *CPU, v byte) { c.Reg.B = v }},
		{0x0C, func(c *CPU) byte { return c.Reg.C }, func(c *CPU, v byte) { c.Reg.C = v }},
		{0x14, func(c *CPU) byte { return c.Reg.D }, func(c *CPU, v byte) { c.Reg.D = v }},
		{0x1C, func(c *CPU) byte { return c.Reg.E }, func(c *CPU, v byte) { c.Reg.E = v }},
		{0x24, func(c *CPU) byte { return c.Reg.H }, func(c *CPU, v byte) { c.Reg.H = v }},
		{0x2C, func(c *CPU) byte { return c.Reg.L }, func(c *CPU, v byte) { c.Reg.L = v }},
		{0x3C, func(c *CPU) byte { return c.Reg.A }, func(c *CPU, v byte) { c.Reg.A = v }},
	}
	for _, e := range incCodes {
		e := e
		op(e.code, "INC r", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			e.set(c, incReg8(c, e.get(c)))
			return 4
		})
	}
	decCodes := []incdec8{
		{0x05, func(c *CPU) byte { return c.Reg.B }, func(c *CPU, v byte) { c.Reg.B = v }},
		{0x0D, func(c *CPU) byte { return c.Reg.C }, func(c *CPU, v byte) { c.Reg.C = v }},
		{0x15, func(c *CPU) byte { return c.Reg.D }, func(c *CPU, v byte) { c.Reg.D = v }},
		{0x1D, func(c *CPU) byte { return c.Reg.E }, func(c *CPU, v byte) { c.Reg.E = v }},
		{0x25, func(c *CPU) byte { return c.Reg.H }, func(c *CPU, v byte) { c.Reg.H = v }},
		{0x2D, func(c *CPU) byte { return c.Reg.L }, func(c *CPU, v byte) { c.Reg.L = v }},
		{0x3D, func(c *CPU) byte { return c.Reg.A }, func(c *CPU, v byte) { c.Reg.A = v }},
	}
	for _, e := range decCodes {
		e := e
		op(e.code, "DEC r", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			e.set(c, decReg8(c, e.get(c)))
			return 4
		})
	}

	op(0x34, "INC (HL)", 1, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		hl := c.Reg.HL()
		m.WriteByte(hl, incReg8(c, m.ReadByte(hl)))
		return 12
	})
	op(0x35, "DEC (HL)", 1, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		hl := c.Reg.HL()
		m.WriteByte(hl, decReg8(c, m.ReadByte(hl)))
		return 12
	})

	type rr16 struct {
		code byte
		get  func(c *CPU) uint16
		set  func(c *CPU, v uint16)
	}
	incs16 := []rr16{
		{0x03, func(c *CPU) uint16 { return c.Reg.BC() }, func(c *CPU, v uint16) { c.Reg.SetBC(v) }},
		{0x13, func(c *CPU) uint16 { return c.Reg.DE() }, func(c *CPU, v uint16) { c.Reg.SetDE(v) }},
		{0x23, func(c *CPU) uint16 { return c.Reg.HL() }, func(c *CPU, v uint16) { c.Reg.SetHL(v) }},
		{0x33, func(c *CPU) uint16 { return c.Reg.SP }, func(c *CPU, v uint16) { c.Reg.SP = v }},
	}
	for _, e := range incs16 {
		e := e
		op(e.code, "INC rr", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { e.set(c, e.get(c)+1); return 8 })
	}
	decs16 := []rr16{
		{0x0B, func(c *CPU) uint16 { return c.Reg.BC() }, func(c *CPU, v uint16) { c.Reg.SetBC(v) }},
		{0x1B, func(c *CPU) uint16 { return c.Reg.DE() }, func(c *CPU, v uint16) { c.Reg.SetDE(v) }},
		{0x2B, func(c *CPU) uint16 { return c.Reg.HL() }, func(c *CPU, v uint16) { c.Reg.SetHL(v) }},
		{0x3B, func(c *CPU) uint16 { return c.Reg.SP }, func(c *CPU, v uint16) { c.Reg.SP = v }},
	}
	for _, e := range decs16 {
		e := e
		op(e.code, "DEC rr", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { e.set(c, e.get(c)-1); return 8 })
	}

	addHLCodes := []rr16{
		{0x09, func(c *CPU) uint16 { return c.Reg.BC() }, nil},
		{0x19, func(c *CPU) uint16 { return c.Reg.DE() }, nil},
		{0x29, func(c *CPU) uint16 { return c.Reg.HL() }, nil},
		{0x39, func(c *CPU) uint16 { return c.Reg.SP }, nil},
	}
	for _, e := range addHLCodes {
		e := e
		op(e.code, "ADD HL,rr", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			res, h, cy := addHL16(c.Reg.HL(), e.get(c))
			c.Reg.SetHL(res)
			c.Reg.setFlag(FlagN, false)
			c.Reg.setFlag(FlagH, h)
			c.Reg.setFlag(FlagC, cy)
			return 8
		})
	}

	op(0x07, "RLCA", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		res, cy := rlc(c.Reg.A)
		c.Reg.A = res
		c.Reg.SetZNHC(false, false, false, cy)
		return 4
	})
	op(0x0F, "RRCA", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		res, cy := rrc(c.Reg.A)
		c.Reg.A = res
		c.Reg.SetZNHC(false, false, false, cy)
		return 4
	})
	op(0x17, "RLA", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		res, cy := rl(c.Reg.A, c.Reg.FlagC())
		c.Reg.A = res
		c.Reg.SetZNHC(false, false, false, cy)
		return 4
	})
	op(0x1F, "RRA", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		res, cy := rr(c.Reg.A, c.Reg.FlagC())
		c.Reg.A = res
		c.Reg.SetZNHC(false, false, false, cy)
		return 4
	})

	op(0x27, "DAA", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		res, z, cy := daa(c.Reg.A, c.Reg.FlagN(), c.Reg.FlagH(), c.Reg.FlagC())
		c.Reg.A = res
		c.Reg.setFlag(FlagZ, z)
		c.Reg.setFlag(FlagH, false)
		c.Reg.setFlag(FlagC, cy)
		return 4
	})
	op(0x2F, "CPL", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.A = ^c.Reg.A
		c.Reg.setFlag(FlagN, true)
		c.Reg.setFlag(FlagH, true)
		return 4
	})
	op(0x37, "SCF", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.setFlag(FlagN, false)
		c.Reg.setFlag(FlagH, false)
		c.Reg.setFlag(FlagC, true)
		return 4
	})
	op(0x3F, "CCF", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.setFlag(FlagN, false)
		c.Reg.setFlag(FlagH, false)
		c.Reg.setFlag(FlagC, !c.Reg.FlagC())
		return 4
	})

	op(0x76, "HALT", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.halted = true
		return 4
	})
	op(0x10, "STOP", 2, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { return 4 })
	op(0xF3, "DI", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { ic.DI(); return 4 })
	op(0xFB, "EI", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { ic.RequestEI(); return 4 })

	// Unconditional/conditional jumps, calls, returns.
	branch(0x18, "JR r8", 2, 12, 0, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.pc = uint16(int32(c.Reg.pc) + int32(s8(ops)))
		return 12
	})
	jrCodes := [4]byte{0x20, 0x28, 0x30, 0x38}
	for i, code := range jrCodes {
		cc := byte(i)
		branch(code, "JR cc,r8", 2, 12, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			if jumpCondition(c, cc) {
				c.Reg.pc = uint16(int32(c.Reg.pc) + int32(s8(ops)))
				return 12
			}
			return 8
		})
	}

	branch(0xC3, "JP a16", 3, 16, 0, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { c.Reg.pc = d16(ops); return 16 })
	jpCodes := [4]byte{0xC2, 0xCA, 0xD2, 0xDA}
	for i, code := range jpCodes {
		cc := byte(i)
		branch(code, "JP cc,a16", 3, 16, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			if jumpCondition(c, cc) {
				c.Reg.pc = d16(ops)
				return 16
			}
			return 12
		})
	}
	op(0xE9, "JP (HL)", 1, 4, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { c.Reg.pc = c.Reg.HL(); return 4 })

	branch(0xCD, "CALL a16", 3, 24, 0, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.PushStack(m, c.Reg.pc)
		c.Reg.pc = d16(ops)
		return 24
	})
	callCodes := [4]byte{0xC4, 0xCC, 0xD4, 0xDC}
	for i, code := range callCodes {
		cc := byte(i)
		branch(code, "CALL cc,a16", 3, 24, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			if jumpCondition(c, cc) {
				c.Reg.PushStack(m, c.Reg.pc)
				c.Reg.pc = d16(ops)
				return 24
			}
			return 12
		})
	}

	branch(0xC9, "RET", 1, 16, 0, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.pc = c.Reg.PopStack(m)
		return 16
	})
	op(0xD9, "RETI", 1, 16, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.pc = c.Reg.PopStack(m)
		ic.SetIMEImmediate()
		return 16
	})
	retCodes := [4]byte{0xC0, 0xC8, 0xD0, 0xD8}
	for i, code := range retCodes {
		cc := byte(i)
		branch(code, "RET cc", 1, 20, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			if jumpCondition(c, cc) {
				c.Reg.pc = c.Reg.PopStack(m)
				return 20
			}
			return 8
		})
	}

	rstCodes := []struct {
		code byte
		vec  uint16
	}{{0xC7, 0x00}, {0xCF, 0x08}, {0xD7, 0x10}, {0xDF, 0x18}, {0xE7, 0x20}, {0xEF, 0x28}, {0xF7, 0x30}, {0xFF, 0x38}}
	for _, e := range rstCodes {
		e := e
		op(e.code, "RST", 1, 16, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			c.Reg.PushStack(m, c.Reg.pc)
			c.Reg.pc = e.vec
			return 16
		})
	}

	// Stack ops: PUSH/POP over BC/DE/HL/AF. AF is masked to 0xF0 on pop.
	pushPop := []struct {
		pushCode, popCode byte
		get               func(c *CPU) uint16
		set               func(c *CPU, v uint16)
	}{
		{0xC5, 0xC1, func(c *CPU) uint16 { return c.Reg.BC() }, func(c *CPU, v uint16) { c.Reg.SetBC(v) }},
		{0xD5, 0xD1, func(c *CPU) uint16 { return c.Reg.DE() }, func(c *CPU, v uint16) { c.Reg.SetDE(v) }},
		{0xE5, 0xE1, func(c *CPU) uint16 { return c.Reg.HL() }, func(c *CPU, v uint16) { c.Reg.SetHL(v) }},
		{0xF5, 0xF1, func(c *CPU) uint16 { return c.Reg.AF() }, func(c *CPU, v uint16) { c.Reg.SetAF(v) }},
	}
	for _, e := range pushPop {
		e := e
		op(e.pushCode, "PUSH rr", 1, 16, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			c.Reg.PushStack(m, e.get(c))
			return 16
		})
		op(e.popCode, "POP rr", 1, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			e.set(c, c.Reg.PopStack(m))
			return 12
		})
	}

	// ALU A,d8: the immediate-operand column of the 0x80-0xBF register
	// grid, one opcode per ALU op at 0xC6 + op*8, reusing execALU.
	aluImmNames := [8]string{"ADD", "ADC", "SUB", "SBC", "AND", "XOR", "OR", "CP"}
	for i := byte(0); i < 8; i++ {
		aluOp := i
		op(0xC6+i*8, aluImmNames[i]+" A,d8", 2, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
			execALU(c, m, aluOp, ops[0])
			return 8
		})
	}

	op(0xE0, "LDH (a8),A", 2, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		m.WriteByte(0xFF00+uint16(ops[0]), c.Reg.A)
		return 12
	})
	op(0xF0, "LDH A,(a8)", 2, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.A = m.ReadByte(0xFF00 + uint16(ops[0]))
		return 12
	})
	op(0xE2, "LD (C),A", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		m.WriteByte(0xFF00+uint16(c.Reg.C), c.Reg.A)
		return 8
	})
	op(0xF2, "LD A,(C)", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.A = m.ReadByte(0xFF00 + uint16(c.Reg.C))
		return 8
	})
	op(0xEA, "LD (a16),A", 3, 16, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		m.WriteByte(d16(ops), c.Reg.A)
		return 16
	})
	op(0xFA, "LD A,(a16)", 3, 16, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		c.Reg.A = m.ReadByte(d16(ops))
		return 16
	})

	op(0xE8, "ADD SP,s8", 2, 16, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		res, h, cy := addSPSigned(c.Reg.SP, s8(ops))
		c.Reg.SP = res
		c.Reg.SetZNHC(false, false, h, cy)
		return 16
	})
	op(0xF8, "LD HL,SP+s8", 2, 12, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int {
		res, h, cy := addSPSigned(c.Reg.SP, s8(ops))
		c.Reg.SetHL(res)
		c.Reg.SetZNHC(false, false, h, cy)
		return 12
	})
	op(0xF9, "LD SP,HL", 1, 8, func(c *CPU, m *mmu.MMU, ic *interrupt.Controller, ops []byte) int { c.Reg.SP = c.Reg.HL(); return 8 })
}
