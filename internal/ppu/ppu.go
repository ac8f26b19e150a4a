// Package ppu implements the DMG pixel-processing unit's mode FSM, OAM
// scan, and scanline/dot counters. VRAM, OAM, and every PPU-visible
// register byte are owned by the MMU (see internal/mmu); the PPU reads and
// writes them through the *mmu.MMU handed to Advance for the duration of
// that one call, never holding a reference between calls — the same
// serial-exclusion discipline the CPU and timer follow.
//
// The tile-row decoder and BG/window scanline renderers (tiles.go,
// scanline.go) are not wired into Advance, which only drives the mode FSM
// and the PPU's own scanline counter; emu.Machine calls them once per frame. The CPU-visible LY byte (0xFF44) is hard-stubbed to
// 0x90 by the MMU regardless of what Advance computes here — see
// mmu.MMU.ReadByte and PPU.LY for the real, internally-advancing value.
package ppu

import "github.com/horizon-arcade/dmgcore/internal/mmu"

// Mode indices, matching STAT bits 0-1.
const (
	ModeHBlank  byte = 0
	ModeVBlank  byte = 1
	ModeOAMScan byte = 2
	ModeDraw    byte = 3
)

const (
	oamScanDots     = 80
	drawDots        = 172
	dotsPerLine     = 456
	linesPerFrame   = 154
	vblankStartLine = 144
)

// SpriteEntry is one OAM candidate retained for the current scanline by
// OAM scan: y/x/tile/attr exactly as stored in OAM.
type SpriteEntry struct {
	Y, X, Tile, Attr byte
}

// PPU tracks the mode FSM, the dot counter within the current line, the
// real scanline counter, and the 10-slot sprite buffer OAM scan fills.
type PPU struct {
	mode byte
	dot  int
	ly   byte

	sprites     [10]SpriteEntry
	spriteCount int
}

// New returns a PPU primed so the first Advance call (once the LCD is on)
// drives a genuine HBlank->OAMScan transition, running OAM scan for line 0.
func New() *PPU {
	return &PPU{mode: ModeHBlank}
}

// LY returns the PPU's own real scanline counter (0..153). This is not the
// value the CPU observes at 0xFF44 — see the package doc.
func (p *PPU) LY() byte { return p.ly }

// Mode returns the PPU's current FSM mode.
func (p *PPU) Mode() byte { return p.mode }

// Sprites returns the sprite buffer OAM scan most recently populated, and
// how many of its entries are valid (0..10).
func (p *PPU) Sprites() ([10]SpriteEntry, int) { return p.sprites, p.spriteCount }

// Advance runs the PPU forward by cycles T-cycles (dots), driven by the
// CPU's reported step cycles. It is a no-op while the LCD is disabled
// (LCDC bit 7 clear), matching real hardware: the FSM simply stops.
func (p *PPU) Advance(m *mmu.MMU, cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if m.LCDC()&0x80 == 0 {
			continue
		}
		p.dot++

		switch {
		case p.ly >= vblankStartLine:
			p.setMode(m, ModeVBlank)
		case p.dot < oamScanDots:
			p.setMode(m, ModeOAMScan)
		case p.dot < oamScanDots+drawDots:
			p.setMode(m, ModeDraw)
		default:
			p.setMode(m, ModeHBlank)
		}

		if p.dot >= dotsPerLine {
			p.dot = 0
			p.ly++
			if p.ly >= linesPerFrame {
				p.ly = 0
			}
			p.updateLYC(m)
			if p.ly >= vblankStartLine {
				p.setMode(m, ModeVBlank)
			} else {
				p.setMode(m, ModeOAMScan)
			}
		}
	}
}

// setMode transitions to mode, firing its associated STAT source and, for
// OAMScan, running the sprite buffer scan. A same-mode call is a no-op so
// interrupt sources fire once per entry, not once per dot.
func (p *PPU) setMode(m *mmu.MMU, mode byte) {
	if p.mode == mode {
		return
	}
	p.mode = mode
	m.SetSTATMode(mode)

	switch mode {
	case ModeHBlank:
		if m.STATInterruptEnabled(3) {
			m.RequestInterrupt(mmu.IntSTAT)
		}
	case ModeVBlank:
		m.RequestInterrupt(mmu.IntVBlank)
		if m.STATInterruptEnabled(4) {
			m.RequestInterrupt(mmu.IntSTAT)
		}
	case ModeOAMScan:
		if m.STATInterruptEnabled(5) {
			m.RequestInterrupt(mmu.IntSTAT)
		}
		p.scanOAM(m)
	}
}

// updateLYC refreshes the STAT coincidence flag against the current LYC
// and requests a STAT interrupt on a new match, matching the same
// edge-triggered shape as setMode.
func (p *PPU) updateLYC(m *mmu.MMU) {
	match := p.ly == m.LYC()
	m.SetLYCCoincidence(match)
	if match && m.STATInterruptEnabled(6) {
		m.RequestInterrupt(mmu.IntSTAT)
	}
}

// scanOAM retains up to 10 sprites whose Y range covers the current
// scanline (LY+16), in OAM order, skipping sprites with X=0. Draw-time
// priority rules are not applied here.
func (p *PPU) scanOAM(m *mmu.MMU) {
	p.spriteCount = 0
	height := 8
	if m.LCDC()&0x04 != 0 {
		height = 16
	}
	for i := 0; i < 40 && p.spriteCount < len(p.sprites); i++ {
		base := i * 4
		y := m.ReadOAMRaw(base)
		x := m.ReadOAMRaw(base + 1)
		if x == 0 {
			continue
		}
		top := int(y) - 16
		if int(p.ly) < top || int(p.ly) >= top+height {
			continue
		}
		p.sprites[p.spriteCount] = SpriteEntry{
			Y: y, X: x,
			Tile: m.ReadOAMRaw(base + 2),
			Attr: m.ReadOAMRaw(base + 3),
		}
		p.spriteCount++
	}
}
