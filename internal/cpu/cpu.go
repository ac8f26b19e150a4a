// Package cpu implements the Sharp LR35902 instruction interpreter: fetch,
// CB-prefix handling, operand read, execute, and PC update, dispatched
// through the static tables built in table.go and table_irregular.go.
package cpu

import (
	"fmt"

	"github.com/horizon-arcade/dmgcore/internal/interrupt"
	"github.com/horizon-arcade/dmgcore/internal/mmu"
)

// ErrUndefinedOpcode is returned when Step dispatches an opcode (or, if CB
// is true, a CB-prefixed opcode) whose table entry is marked undefined.
// The caller's step loop treats this as fatal.
type ErrUndefinedOpcode struct {
	PC     uint16
	Opcode byte
	CB     bool
}

func (e *ErrUndefinedOpcode) Error() string {
	if e.CB {
		return fmt.Sprintf("cpu: undefined CB opcode %#02x at PC=%#04x", e.Opcode, e.PC)
	}
	return fmt.Sprintf("cpu: undefined opcode %#02x at PC=%#04x", e.Opcode, e.PC)
}

// CPU holds the register file and HALT latch. It borrows the MMU and the
// interrupt controller as Step parameters for the duration of one call;
// it never retains either between calls.
type CPU struct {
	Reg *Registers

	halted bool
}

// New returns a CPU wired to reg, not halted.
func New(reg *Registers) *CPU {
	return &CPU{Reg: reg}
}

// Halted reports whether the CPU is currently parked in HALT.
func (c *CPU) Halted() bool { return c.halted }

// Step executes exactly one of: an interrupt dispatch, a HALT idle tick, or
// one instruction (including its CB-prefixed second byte, if any). It
// returns the actual T-cycles spent.
func (c *CPU) Step(m *mmu.MMU, ic *interrupt.Controller) (int, error) {
	if c.halted {
		if m.IE()&m.IF()&0x1F == 0 {
			return 4, nil
		}
		// Any pending source wakes the CPU regardless of IME; with IME
		// clear the wake itself is the whole effect this step, and the
		// pending bit stays latched in IF.
		c.halted = false
		if !ic.IME() {
			return 4, nil
		}
	}

	if _, cycles := ic.HandlePending(c.Reg, m); cycles > 0 {
		return cycles, nil
	}

	pc := c.Reg.PC()
	opcode := m.ReadByte(pc)
	c.Reg.IncPC(1)

	table := &opcodeTable
	cb := false
	if opcode == 0xCB {
		cb = true
		opcode = m.ReadByte(c.Reg.PC())
		c.Reg.IncPC(1)
		table = &cbTable
	}

	desc := table[opcode]
	if desc.Undefined {
		return 0, &ErrUndefinedOpcode{PC: pc, Opcode: opcode, CB: cb}
	}

	var ops []byte
	if !cb && desc.Length > 1 {
		ops = make([]byte, desc.Length-1)
		for i := range ops {
			ops[i] = m.ReadByte(c.Reg.PC())
			c.Reg.IncPC(1)
		}
	}

	cycles := desc.Exec(c, m, ic, ops)
	ic.CommitPending()
	return cycles, nil
}
