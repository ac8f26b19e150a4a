// Package emu wires the CPU, MMU, interrupt controller, timer, and PPU
// into a single steppable Machine. Machine is the only owner of the MMU;
// every subsystem call borrows it by pointer for the duration of that one
// call, per the step ordering in Step.
package emu

import (
	"github.com/horizon-arcade/dmgcore/internal/cart"
	"github.com/horizon-arcade/dmgcore/internal/cpu"
	"github.com/horizon-arcade/dmgcore/internal/interrupt"
	"github.com/horizon-arcade/dmgcore/internal/mmu"
	"github.com/horizon-arcade/dmgcore/internal/ppu"
	"github.com/horizon-arcade/dmgcore/internal/timer"
)

// Buttons is the joypad state a front-end reports once per frame.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= mmu.JoypRight
	}
	if b.Left {
		m |= mmu.JoypLeft
	}
	if b.Up {
		m |= mmu.JoypUp
	}
	if b.Down {
		m |= mmu.JoypDown
	}
	if b.A {
		m |= mmu.JoypA
	}
	if b.B {
		m |= mmu.JoypB
	}
	if b.Select {
		m |= mmu.JoypSelectBtn
	}
	if b.Start {
		m |= mmu.JoypStart
	}
	return m
}

// Machine owns every subsystem and drives the single-threaded step loop:
// cpu.Step, then timer.Advance, then ppu.Advance, then the MMU's own DMA
// tick, all against the one MMU the Machine holds.
type Machine struct {
	cfg Config

	mmu *mmu.MMU
	reg *cpu.Registers
	cpu *cpu.CPU
	ic  *interrupt.Controller
	tmr *timer.Controller
	ppu *ppu.PPU

	bootLoaded bool

	w, h int
	fb   []byte // RGBA 160x144*4: BG/window render or placeholder gradient, per Config
}

// New constructs a Machine with an empty 32 KiB ROM-only cartridge loaded;
// call LoadCartridge to replace it with a real image.
func New(cfg Config) *Machine {
	reg := &cpu.Registers{}
	m := &Machine{
		cfg: cfg,
		mmu: mmu.New(cart.NewROMOnly(make([]byte, 0x8000))),
		reg: reg,
		ic:  interrupt.New(),
		tmr: timer.New(),
		ppu: ppu.New(),
		w:   160, h: 144,
		fb: make([]byte, 160*144*4),
	}
	m.cpu = cpu.New(reg)
	return m
}

// SetBootROM maps a DMG boot ROM at 0x0000-0x00FF until a write to 0xFF50
// unmaps it, and arranges for execution to start there (PC=0) instead of at
// the post-boot snapshot.
func (m *Machine) SetBootROM(data []byte) {
	m.mmu.SetBootROM(data)
	m.bootLoaded = len(data) >= 0x100
	if m.bootLoaded {
		*m.reg = cpu.Registers{}
	}
}

// LoadCartridge replaces the Machine's cartridge with the ROM at path and,
// unless a boot ROM is mapped, resets the register file and I/O map to DMG
// post-boot defaults.
func (m *Machine) LoadCartridge(path string) error {
	if err := m.mmu.LoadCartridge(path); err != nil {
		return err
	}
	if m.bootLoaded {
		*m.reg = cpu.Registers{}
		return nil
	}
	m.ResetPostBoot()
	return nil
}

// ResetPostBoot puts the register file and I/O registers in the exact
// state a real DMG boot ROM leaves them in.
func (m *Machine) ResetPostBoot() {
	m.reg.ResetPostBoot()
	m.mmu.WriteByte(0xFF00, 0xCF)
	m.mmu.WriteByte(0xFF05, 0x00)
	m.mmu.WriteByte(0xFF06, 0x00)
	m.mmu.WriteByte(0xFF07, 0x00)
	m.mmu.WriteByte(0xFF0F, 0x00)
	m.mmu.WriteByte(0xFF40, 0x91)
	m.mmu.WriteByte(0xFF42, 0x00)
	m.mmu.WriteByte(0xFF43, 0x00)
	m.mmu.WriteByte(0xFF45, 0x00)
	m.mmu.WriteByte(0xFF47, 0xFC)
	m.mmu.WriteByte(0xFF48, 0xFF)
	m.mmu.WriteByte(0xFF49, 0xFF)
	m.mmu.WriteByte(0xFF4A, 0x00)
	m.mmu.WriteByte(0xFF4B, 0x00)
	m.mmu.SetIE(0x00)
}

// Step runs exactly one CPU step (which may be an interrupt dispatch, a
// HALT idle tick, or one instruction) and advances the timer and PPU by
// the cycles it reports.
func (m *Machine) Step() (int, error) {
	cycles, err := m.cpu.Step(m.mmu, m.ic)
	if err != nil {
		return cycles, err
	}
	m.tmr.Advance(m.mmu, cycles)
	m.ppu.Advance(m.mmu, cycles)
	m.mmu.StepDMA()
	return cycles, nil
}

// StepFrame runs Step until roughly one frame's worth of T-cycles
// (70224, the DMG's dots-per-frame at 4.194304 MHz) has elapsed, stopping
// early on error. It then refreshes the framebuffer: the BG/window render
// when Config.UseFetcherBG is set, the placeholder gradient otherwise.
func (m *Machine) StepFrame() error {
	if err := m.stepFrame(); err != nil {
		return err
	}
	if m.cfg.UseFetcherBG {
		m.renderBG()
	} else {
		m.renderPlaceholder()
	}
	return nil
}

// StepFrameNoRender is StepFrame without the framebuffer refresh, for headless test-ROM runs that only care about serial output.
func (m *Machine) StepFrameNoRender() error {
	return m.stepFrame()
}

func (m *Machine) stepFrame() error {
	const cyclesPerFrame = 70224
	spent := 0
	for spent < cyclesPerFrame {
		cycles, err := m.Step()
		if err != nil {
			return err
		}
		spent += cycles
	}
	return nil
}

// vramView adapts the MMU's raw VRAM window to ppu.TileSource.
type vramView struct{ m *mmu.MMU }

func (v vramView) Read(addr uint16) byte { return v.m.ReadVRAMRaw(addr) }

// dmgShades maps the four DMG color indices, after the BGP palette, to
// grayscale levels.
var dmgShades = [4]byte{0xFF, 0xAA, 0x55, 0x00}

// renderBG rasterizes the background (and window, when enabled) once per
// frame through the scanline renderers. This is a frame-granularity
// approximation — mid-frame scroll changes are not observed — which is as
// far as the PPU's draw stage goes in this core.
func (m *Machine) renderBG() {
	lcdc := m.mmu.LCDC()
	bgp := m.mmu.BGP()
	src := vramView{m.mmu}

	unsignedTiles := lcdc&0x10 != 0
	bgMap := uint16(0x9800)
	if lcdc&0x08 != 0 {
		bgMap = 0x9C00
	}
	winMap := uint16(0x9800)
	if lcdc&0x40 != 0 {
		winMap = 0x9C00
	}
	windowOn := lcdc&0x20 != 0 && lcdc&0x01 != 0
	wy, wx := int(m.mmu.WY()), int(m.mmu.WX())-7

	for y := 0; y < m.h; y++ {
		var line [ppu.LineWidth]byte
		if lcdc&0x01 != 0 {
			line = ppu.RenderBGScanline(src, bgMap, unsignedTiles, m.mmu.SCX(), m.mmu.SCY(), byte(y))
		}
		if windowOn && y >= wy && wx < ppu.LineWidth {
			win := ppu.RenderWindowScanline(src, winMap, unsignedTiles, wx, byte(y-wy))
			start := wx
			if start < 0 {
				start = 0
			}
			copy(line[start:], win[start:])
		}
		for x := 0; x < m.w; x++ {
			shade := dmgShades[bgp>>(line[x]*2)&0x03]
			i := (y*m.w + x) * 4
			m.fb[i+0] = shade
			m.fb[i+1] = shade
			m.fb[i+2] = shade
			m.fb[i+3] = 0xFF
		}
	}
}

// renderPlaceholder fills the framebuffer with a cheap gradient keyed off
// the PPU's real scanline counter, standing in for a pixel pipeline the
// PPU skeleton does not yet drive.
func (m *Machine) renderPlaceholder() {
	ly := m.ppu.LY()
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			i := (y*m.w + x) * 4
			m.fb[i+0] = byte(x * 255 / m.w)
			m.fb[i+1] = ly
			m.fb[i+2] = byte(y * 255 / m.h)
			m.fb[i+3] = 0xFF
		}
	}
}

// Framebuffer returns the Machine's RGBA 160x144x4 pixel buffer.
func (m *Machine) Framebuffer() []byte { return m.fb }

// SetButtons latches the joypad state the MMU's P1 register reports on
// the next read.
func (m *Machine) SetButtons(b Buttons) { m.mmu.SetJoypadState(b.mask()) }

// SerialLog returns everything written through the SC=0x81 serial tap so
// far, as a string. Blargg test ROMs report pass/fail through this path.
func (m *Machine) SerialLog() string { return m.mmu.SerialLog() }

// MMU exposes the Machine's MMU for callers that need direct register
// inspection (disassembly tools, debuggers). Callers must not retain it
// across Step calls, in keeping with the serial-exclusion discipline
// every subsystem follows internally.
func (m *Machine) MMU() *mmu.MMU { return m.mmu }

// Registers exposes the Machine's register file for trace/debug callers.
func (m *Machine) Registers() *cpu.Registers { return m.reg }

// Halted reports whether the CPU is parked in HALT.
func (m *Machine) Halted() bool { return m.cpu.Halted() }
