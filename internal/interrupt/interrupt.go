// Package interrupt implements IME/EI/DI/RETI semantics and dispatch of the
// five DMG interrupt sources. IE and IF are ordinary addressable bytes and
// live in the MMU; the Controller only owns the IME flag and the one-step
// EI latch, operating on IE/IF through the *mmu.MMU handed to it each call.
package interrupt

import "github.com/horizon-arcade/dmgcore/internal/mmu"

var vectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

// Registers is the minimal surface HandlePending needs from the CPU's
// register file: the program counter and the stack pointer/push primitive.
// cpu.Registers satisfies this structurally.
type Registers interface {
	PC() uint16
	SetPC(uint16)
	PushStack(m *mmu.MMU, value uint16)
}

// Controller owns IME and the EI one-instruction-delay latch.
type Controller struct {
	ime     bool
	eiDelay int
}

// New returns a controller with interrupts disabled, matching DMG post-boot
// state (IME=0).
func New() *Controller {
	return &Controller{}
}

// IME reports whether interrupts are currently enabled.
func (c *Controller) IME() bool { return c.ime }

// DI clears IME immediately and cancels any pending EI.
func (c *Controller) DI() {
	c.ime = false
	c.eiDelay = 0
}

// RequestEI arms the delayed enable; IME becomes true once the instruction
// *following* EI has completed, via CommitPending. The CPU step loop calls
// CommitPending at the end of every instruction — including EI's own — so
// the latch counts two commits: one closing the EI step, one closing the
// instruction after it.
func (c *Controller) RequestEI() {
	if !c.ime {
		c.eiDelay = 2
	}
}

// SetIMEImmediate sets IME with no delay, for RETI ("RET, then IME<-true
// immediately" — not subject to the EI latch).
func (c *Controller) SetIMEImmediate() {
	c.ime = true
	c.eiDelay = 0
}

// CommitPending advances the EI latch by one instruction boundary, setting
// IME when the delay expires.
func (c *Controller) CommitPending() {
	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.ime = true
		}
	}
}

// HandlePending checks IE&IF for a pending interrupt and, if IME allows it,
// dispatches to the lowest-index set source: pushes PC, clears IME and the
// serviced IF bit, and jumps to the source's vector.
//
// dispatched is true both when an interrupt was actually serviced (cycles
// 20) and when one is merely pending while IME is false (cycles 0). Only a
// serviced interrupt replaces the step's opcode execution; a
// pending-but-masked source leaves the CPU running normally — its one
// side effect is waking the CPU out of HALT.
func (c *Controller) HandlePending(regs Registers, m *mmu.MMU) (dispatched bool, cycles int) {
	pending := m.IE() & m.IF() & 0x1F
	if pending == 0 {
		return false, 0
	}
	if !c.ime {
		return true, 0
	}

	var bit uint
	for bit = 0; bit < 5; bit++ {
		if pending&(1<<bit) != 0 {
			break
		}
	}

	m.SetIF(m.IF() &^ (1 << bit))
	c.ime = false

	pc := regs.PC()
	regs.PushStack(m, pc)
	regs.SetPC(vectors[bit])

	return true, 20
}
