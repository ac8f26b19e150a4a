// Package timer implements the DIV/TIMA/TMA/TAC accumulator model: DIV
// ticks every 256 T-cycles and TIMA ticks every period(TAC) T-cycles while
// TAC's enable bit is set, requesting the Timer interrupt on overflow.
package timer

import "github.com/horizon-arcade/dmgcore/internal/mmu"

// period returns the T-cycle count per TIMA increment for TAC's low 2 bits.
func period(tac byte) int {
	switch tac & 0x03 {
	case 0x00:
		return 1024
	case 0x01:
		return 16
	case 0x02:
		return 64
	default:
		return 256
	}
}

// Controller holds the two free-running accumulators driving DIV and TIMA.
// It has no addressable state of its own — DIV/TIMA/TMA/TAC live in the
// MMU, same as every other CPU-visible register.
type Controller struct {
	divAcc  int
	timaAcc int
}

// New returns a timer with both accumulators at zero.
func New() *Controller {
	return &Controller{}
}

// Advance runs the timer forward by delta T-cycles, updating DIV and TIMA
// in m and requesting the Timer interrupt on TIMA overflow.
func (t *Controller) Advance(m *mmu.MMU, delta int) {
	if delta <= 0 {
		return
	}

	t.divAcc += delta
	for t.divAcc >= 256 {
		t.divAcc -= 256
		m.SetDIV(m.DIV() + 1)
	}

	tac := m.TAC()
	if tac&0x04 == 0 {
		return
	}

	p := period(tac)
	t.timaAcc += delta
	for t.timaAcc >= p {
		t.timaAcc -= p
		tima := m.TIMA()
		if tima == 0xFF {
			m.SetTIMA(m.TMA())
			m.RequestInterrupt(mmu.IntTimer)
		} else {
			m.SetTIMA(tima + 1)
		}
	}
}
