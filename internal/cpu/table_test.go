package cpu

import (
	"testing"

	"github.com/horizon-arcade/dmgcore/internal/cart"
	"github.com/horizon-arcade/dmgcore/internal/interrupt"
	"github.com/horizon-arcade/dmgcore/internal/mmu"
)

// The DMG leaves these eleven opcode slots unwired; 0xCB is the prefix
// byte, intercepted by Step before table dispatch, so its slot stays
// undefined too.
var undefinedOpcodes = map[byte]bool{
	0xCB: true,
	0xD3: true, 0xDB: true, 0xDD: true,
	0xE3: true, 0xE4: true, 0xEB: true, 0xEC: true, 0xED: true,
	0xF4: true, 0xFC: true, 0xFD: true,
}

func TestOpcodeTableCoverage(t *testing.T) {
	for op := 0; op < 256; op++ {
		d := opcodeTable[op]
		if undefinedOpcodes[byte(op)] {
			if !d.Undefined {
				t.Errorf("opcode %#02x should be undefined", op)
			}
			continue
		}
		if d.Undefined {
			t.Errorf("opcode %#02x has no table entry", op)
			continue
		}
		if d.Exec == nil || d.Length < 1 || d.Length > 3 || d.Cycles < 4 {
			t.Errorf("opcode %#02x descriptor malformed: len=%d cycles=%d", op, d.Length, d.Cycles)
		}
	}
}

func TestCBTableFullyDefined(t *testing.T) {
	for op := 0; op < 256; op++ {
		d := cbTable[op]
		if d.Undefined || d.Exec == nil {
			t.Errorf("CB opcode %#02x has no table entry", op)
			continue
		}
		if d.Length != 1 {
			t.Errorf("CB opcode %#02x length got %d want 1", op, d.Length)
		}
	}
}

// controlFlowOpcodes are the opcodes allowed to move PC somewhere other
// than straight past the instruction: jumps, calls, returns, and RST.
var controlFlowOpcodes = map[byte]bool{
	0x18: true, 0x20: true, 0x28: true, 0x30: true, 0x38: true,
	0xC0: true, 0xC2: true, 0xC3: true, 0xC4: true, 0xC7: true,
	0xC8: true, 0xC9: true, 0xCA: true, 0xCC: true, 0xCD: true, 0xCF: true,
	0xD0: true, 0xD2: true, 0xD4: true, 0xD7: true,
	0xD8: true, 0xD9: true, 0xDA: true, 0xDC: true, 0xDF: true,
	0xE7: true, 0xE9: true, 0xEF: true,
	0xF7: true, 0xFF: true,
}

// TestStraightLineOpcodesAdvancePCByLength executes every non-branching
// opcode once and checks PC advanced by exactly the descriptor length and
// the reported cycles match the descriptor.
func TestStraightLineOpcodesAdvancePCByLength(t *testing.T) {
	for op := 0; op < 256; op++ {
		code := byte(op)
		if undefinedOpcodes[code] || controlFlowOpcodes[code] {
			continue
		}
		d := opcodeTable[op]

		rom := make([]byte, 0x8000)
		rom[0] = code
		rom[1] = 0x42 // operand bytes land writes/reads in WRAM (0xC042)
		rom[2] = 0xC0
		m := mmu.New(cart.NewROMOnly(rom))
		reg := &Registers{SP: 0xD000}
		c := New(reg)
		ic := interrupt.New()

		cycles, err := c.Step(m, ic)
		if err != nil {
			t.Errorf("opcode %#02x (%s): %v", op, d.Mnemonic, err)
			continue
		}
		if got := int(reg.PC()); got != d.Length {
			t.Errorf("opcode %#02x (%s): PC advanced %d want %d", op, d.Mnemonic, got, d.Length)
		}
		if cycles != d.Cycles {
			t.Errorf("opcode %#02x (%s): cycles %d want %d", op, d.Mnemonic, cycles, d.Cycles)
		}
	}
}

func step(t *testing.T, c *CPU, m *mmu.MMU, ic *interrupt.Controller) int {
	t.Helper()
	cycles, err := c.Step(m, ic)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return cycles
}

func TestCBSetOrsRatherThanToggles(t *testing.T) {
	// SET on an already-set bit must leave it set.
	c, m, ic := newMachine([]byte{0xCB, 0xFF, 0xCB, 0xFF}) // SET 7,A twice
	c.Reg.A = 0x80
	step(t, c, m, ic)
	if c.Reg.A != 0x80 {
		t.Fatalf("SET 7,A on set bit got %#02x want 0x80", c.Reg.A)
	}
	step(t, c, m, ic)
	if c.Reg.A != 0x80 {
		t.Fatalf("repeated SET 7,A got %#02x want 0x80", c.Reg.A)
	}
}

func TestCBBitLeavesCarryUntouched(t *testing.T) {
	c, m, ic := newMachine([]byte{0xCB, 0x40}) // BIT 0,B
	c.Reg.B = 0x00
	c.Reg.SetF(FlagC)
	cycles := step(t, c, m, ic)
	if cycles != 8 {
		t.Fatalf("BIT 0,B cycles got %d want 8", cycles)
	}
	if !c.Reg.FlagZ() || c.Reg.FlagN() || !c.Reg.FlagH() || !c.Reg.FlagC() {
		t.Fatalf("BIT flags F=%#02x want Z=1 N=0 H=1 C=1", c.Reg.F)
	}
}

func TestCBRMWOnHLPointer(t *testing.T) {
	c, m, ic := newMachine([]byte{0xCB, 0x86, 0xCB, 0xC6}) // RES 0,(HL); SET 0,(HL)
	c.Reg.SetHL(0xC000)
	m.WriteByte(0xC000, 0xFF)
	cycles := step(t, c, m, ic)
	if cycles != 16 {
		t.Fatalf("RES 0,(HL) cycles got %d want 16", cycles)
	}
	if v := m.ReadByte(0xC000); v != 0xFE {
		t.Fatalf("RES 0,(HL) got %#02x want 0xFE", v)
	}
	step(t, c, m, ic)
	if v := m.ReadByte(0xC000); v != 0xFF {
		t.Fatalf("SET 0,(HL) got %#02x want 0xFF", v)
	}
}

func TestCBSwapAndSRA(t *testing.T) {
	c, m, ic := newMachine([]byte{0xCB, 0x37, 0xCB, 0x2F}) // SWAP A; SRA A
	c.Reg.A = 0x1F
	step(t, c, m, ic)
	if c.Reg.A != 0xF1 {
		t.Fatalf("SWAP A got %#02x want 0xF1", c.Reg.A)
	}
	if c.Reg.FlagC() {
		t.Fatalf("SWAP must clear C")
	}
	step(t, c, m, ic) // SRA: sign bit sticks, bit 0 into carry
	if c.Reg.A != 0xF8 {
		t.Fatalf("SRA A got %#02x want 0xF8", c.Reg.A)
	}
	if !c.Reg.FlagC() {
		t.Fatalf("SRA should carry out bit 0")
	}
}

func TestAccumulatorRotatesClearZ(t *testing.T) {
	c, m, ic := newMachine([]byte{0x07}) // RLCA
	c.Reg.A = 0x80
	cycles := step(t, c, m, ic)
	if cycles != 4 {
		t.Fatalf("RLCA cycles got %d want 4", cycles)
	}
	if c.Reg.A != 0x01 || !c.Reg.FlagC() {
		t.Fatalf("RLCA got A=%#02x C=%t want A=0x01 C=1", c.Reg.A, c.Reg.FlagC())
	}
	// CB RLC A on a zero result sets Z; the accumulator form never does.
	c2, m2, ic2 := newMachine([]byte{0x07})
	c2.Reg.A = 0x00
	step(t, c2, m2, ic2)
	if c2.Reg.FlagZ() {
		t.Fatalf("RLCA must leave Z clear even for a zero result")
	}
}

func TestAddHL16CarryBits(t *testing.T) {
	c, m, ic := newMachine([]byte{0x09}) // ADD HL,BC
	c.Reg.SetHL(0x0FFF)
	c.Reg.SetBC(0x0001)
	c.Reg.SetF(FlagZ)
	step(t, c, m, ic)
	if c.Reg.HL() != 0x1000 {
		t.Fatalf("ADD HL,BC got %#04x want 0x1000", c.Reg.HL())
	}
	if !c.Reg.FlagH() || c.Reg.FlagC() {
		t.Fatalf("bit-11 carry: H=%t C=%t want H=1 C=0", c.Reg.FlagH(), c.Reg.FlagC())
	}
	if !c.Reg.FlagZ() {
		t.Fatalf("ADD HL,rr must leave Z unchanged")
	}
}

func TestAddSPSignedUsesUnsignedByteFlags(t *testing.T) {
	// SP=0x00FF + (-1): result 0x00FE, but the flag algebra adds the raw
	// byte 0xFF, carrying out of both bit 3 and bit 7.
	c, m, ic := newMachine([]byte{0xE8, 0xFF}) // ADD SP,-1
	c.Reg.SP = 0x00FF
	step(t, c, m, ic)
	if c.Reg.SP != 0x00FE {
		t.Fatalf("ADD SP,-1 got %#04x want 0x00FE", c.Reg.SP)
	}
	if c.Reg.FlagZ() || c.Reg.FlagN() || !c.Reg.FlagH() || !c.Reg.FlagC() {
		t.Fatalf("ADD SP,s8 flags F=%#02x want Z=0 N=0 H=1 C=1", c.Reg.F)
	}
}

func TestLDHLSPPlusOffset(t *testing.T) {
	c, m, ic := newMachine([]byte{0xF8, 0x02}) // LD HL,SP+2
	c.Reg.SP = 0xFFF8
	cycles := step(t, c, m, ic)
	if cycles != 12 || c.Reg.HL() != 0xFFFA {
		t.Fatalf("LD HL,SP+2 got HL=%#04x cycles=%d", c.Reg.HL(), cycles)
	}
	if c.Reg.SP != 0xFFF8 {
		t.Fatalf("LD HL,SP+s8 must not modify SP")
	}
}

func TestDAAAfterAddAndSub(t *testing.T) {
	// 0x15 + 0x27 = 0x3C, DAA corrects to BCD 0x42.
	c, m, ic := newMachine([]byte{0xC6, 0x27, 0x27}) // ADD A,0x27; DAA
	c.Reg.A = 0x15
	step(t, c, m, ic)
	step(t, c, m, ic)
	if c.Reg.A != 0x42 {
		t.Fatalf("DAA after add got %#02x want 0x42", c.Reg.A)
	}

	// 0x42 - 0x15 = 0x2D, DAA corrects to BCD 0x27.
	c2, m2, ic2 := newMachine([]byte{0xD6, 0x15, 0x27}) // SUB 0x15; DAA
	c2.Reg.A = 0x42
	step(t, c2, m2, ic2)
	step(t, c2, m2, ic2)
	if c2.Reg.A != 0x27 {
		t.Fatalf("DAA after sub got %#02x want 0x27", c2.Reg.A)
	}
}

func TestSbcFoldsCarryIntoBorrow(t *testing.T) {
	c, m, ic := newMachine([]byte{0x98}) // SBC A,B
	c.Reg.A = 0x10
	c.Reg.B = 0x0F
	c.Reg.SetF(FlagC)
	step(t, c, m, ic)
	if c.Reg.A != 0x00 || !c.Reg.FlagZ() {
		t.Fatalf("SBC got A=%#02x Z=%t want A=0 Z=1", c.Reg.A, c.Reg.FlagZ())
	}
	if !c.Reg.FlagH() || c.Reg.FlagC() {
		t.Fatalf("SBC borrow flags H=%t C=%t want H=1 C=0", c.Reg.FlagH(), c.Reg.FlagC())
	}
}

func TestCPDiscardsResult(t *testing.T) {
	c, m, ic := newMachine([]byte{0xFE, 0x90}) // CP 0x90
	c.Reg.A = 0x42
	step(t, c, m, ic)
	if c.Reg.A != 0x42 {
		t.Fatalf("CP modified A: %#02x", c.Reg.A)
	}
	if !c.Reg.FlagC() || !c.Reg.FlagN() {
		t.Fatalf("CP 0x90 with A=0x42: C=%t N=%t want both set", c.Reg.FlagC(), c.Reg.FlagN())
	}
}

func TestRSTPushesAndVectors(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0200] = 0xEF // RST 0x28
	m := mmu.New(cart.NewROMOnly(rom))
	reg := &Registers{SP: 0xFFFE}
	reg.SetPC(0x0200)
	c := New(reg)
	ic := interrupt.New()

	cycles := step(t, c, m, ic)
	if cycles != 16 || reg.PC() != 0x0028 {
		t.Fatalf("RST got PC=%#04x cycles=%d want PC=0x0028 cycles=16", reg.PC(), cycles)
	}
	if got := reg.PopStack(m); got != 0x0201 {
		t.Fatalf("RST pushed %#04x want 0x0201", got)
	}
}

func TestRETISetsIMEImmediately(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0040] = 0xD9 // RETI
	m := mmu.New(cart.NewROMOnly(rom))
	reg := &Registers{SP: 0xFFFC}
	reg.SetPC(0x0040)
	c := New(reg)
	ic := interrupt.New()
	m.WriteByte(0xFFFC, 0x34)
	m.WriteByte(0xFFFD, 0x12)

	cycles := step(t, c, m, ic)
	if cycles != 16 || reg.PC() != 0x1234 {
		t.Fatalf("RETI got PC=%#04x cycles=%d", reg.PC(), cycles)
	}
	if !ic.IME() {
		t.Fatalf("RETI must set IME with no one-step delay")
	}
}

func TestHaltWakesOnPendingWithoutDispatchWhenIMEOff(t *testing.T) {
	c, m, ic := newMachine([]byte{0x76, 0x3C}) // HALT; INC A
	step(t, c, m, ic)                          // HALT
	if !c.Halted() {
		t.Fatalf("CPU should be halted")
	}
	if cycles := step(t, c, m, ic); cycles != 4 {
		t.Fatalf("halted idle tick cycles got %d want 4", cycles)
	}

	// A pending source with IME off wakes the CPU; the following step
	// executes the next instruction normally and IF stays latched.
	m.SetIE(0x04)
	m.SetIF(0x04)
	if cycles := step(t, c, m, ic); cycles != 4 {
		t.Fatalf("wake tick cycles got %d want 4", cycles)
	}
	if c.Halted() {
		t.Fatalf("pending interrupt should wake HALT even with IME off")
	}
	step(t, c, m, ic)
	if c.Reg.A != 1 {
		t.Fatalf("INC A after wake got %#02x want 1", c.Reg.A)
	}
	if m.IF() != 0x04 {
		t.Fatalf("masked pending bit must stay latched, IF=%#02x", m.IF())
	}
}

func TestPendingInterruptWithIMEOffDoesNotStallExecution(t *testing.T) {
	c, m, ic := newMachine([]byte{0x3C, 0x3C}) // INC A twice
	m.SetIE(0x01)
	m.SetIF(0x01)
	step(t, c, m, ic)
	step(t, c, m, ic)
	if c.Reg.A != 2 {
		t.Fatalf("execution stalled behind a masked interrupt: A=%d", c.Reg.A)
	}
}

func TestConditionalBranchTakenCycles(t *testing.T) {
	cases := []struct {
		name     string
		code     []byte
		setF     byte
		taken    int
		notTaken int
	}{
		{"JR NZ", []byte{0x20, 0x02}, 0, 12, 8},
		{"JP NZ", []byte{0xC2, 0x50, 0x01}, 0, 16, 12},
		{"CALL NZ", []byte{0xC4, 0x50, 0x01}, 0, 24, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, m, ic := newMachine(tc.code)
			c.Reg.SP = 0xD000
			c.Reg.SetF(tc.setF) // Z clear: NZ taken
			if cycles := step(t, c, m, ic); cycles != tc.taken {
				t.Fatalf("taken cycles got %d want %d", cycles, tc.taken)
			}

			c2, m2, ic2 := newMachine(tc.code)
			c2.Reg.SP = 0xD000
			c2.Reg.SetF(FlagZ) // Z set: NZ not taken
			if cycles := step(t, c2, m2, ic2); cycles != tc.notTaken {
				t.Fatalf("not-taken cycles got %d want %d", cycles, tc.notTaken)
			}
		})
	}
}

func TestRetConditionalCycles(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0] = 0xC0 // RET NZ
	m := mmu.New(cart.NewROMOnly(rom))
	reg := &Registers{SP: 0xD000}
	c := New(reg)
	ic := interrupt.New()
	m.WriteByte(0xD000, 0x00)
	m.WriteByte(0xD001, 0x02)

	if cycles := step(t, c, m, ic); cycles != 20 {
		t.Fatalf("RET NZ taken cycles got %d want 20", cycles)
	}
	if reg.PC() != 0x0200 {
		t.Fatalf("RET NZ target got %#04x want 0x0200", reg.PC())
	}
}

func TestUndefinedOpcodeErrorCarriesPCAndByte(t *testing.T) {
	c, m, ic := newMachine([]byte{0xED})
	_, err := c.Step(m, ic)
	opErr, ok := err.(*ErrUndefinedOpcode)
	if !ok {
		t.Fatalf("err type got %T want *ErrUndefinedOpcode", err)
	}
	if opErr.Opcode != 0xED || opErr.PC != 0 || opErr.CB {
		t.Fatalf("err fields got %+v", opErr)
	}
}
