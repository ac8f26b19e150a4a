// Package mmu implements the DMG's 64 KiB CPU-visible address space: the
// cartridge ROM/RAM window, work RAM, the PPU's VRAM/OAM/register bytes,
// timer registers, the joypad and serial ports, and the IE/IF interrupt
// latches. Every other subsystem (cpu, interrupt, timer, ppu) is handed a
// *MMU for the duration of a single call rather than holding one between
// calls.
package mmu

import (
	"os"

	"github.com/horizon-arcade/dmgcore/internal/cart"
)

// Joypad button bitmasks for SetJoypadState. Set bits mean "pressed".
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// Interrupt bit indices into IE/IF.
const (
	IntVBlank = 0
	IntSTAT   = 1
	IntTimer  = 2
	IntSerial = 3
	IntJoypad = 4
)

// MMU owns every addressable byte of the DMG memory map.
type MMU struct {
	cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF, mirrored by Echo RAM
	hram [0x7F]byte   // 0xFF80-0xFFFE

	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	ie    byte // 0xFFFF
	ifReg byte // 0xFF0F, low 5 bits meaningful

	joypSelect byte
	joypad     byte
	joypLower4 byte

	div  byte
	tima byte
	tma  byte
	tac  byte

	sb        byte
	sc        byte
	serialLog []byte

	lcdc, stat, scy, scx, lyc byte
	bgp, obp0, obp1, wy, wx   byte

	dma       byte
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	bootROM     []byte
	bootEnabled bool
}

// New constructs an MMU wired to cartridge c. VRAM/OAM/WRAM start zeroed and
// external RAM is whatever the cartridge implementation defaults to.
func New(c cart.Cartridge) *MMU {
	return &MMU{cart: c}
}

// LoadCartridge replaces the current cartridge with one parsed from the ROM
// file at path.
func (m *MMU) LoadCartridge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ErrCartridgeLoad{Path: path, Err: err}
	}
	m.cart = cart.New(data)
	return nil
}

// SetBootROM loads a DMG boot ROM to be mapped at 0x0000-0x00FF until
// disabled by a non-zero write to 0xFF50.
func (m *MMU) SetBootROM(data []byte) {
	m.bootROM = nil
	m.bootEnabled = false
	if len(data) >= 0x100 {
		m.bootROM = make([]byte, 0x100)
		copy(m.bootROM, data[:0x100])
		m.bootEnabled = true
	}
}

// ReadByte decodes addr against the full memory map.
func (m *MMU) ReadByte(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if m.bootEnabled && addr < 0x0100 && len(m.bootROM) >= 0x100 {
			return m.bootROM[addr]
		}
		return m.cart.Read(addr)
	case addr <= 0x9FFF:
		if (m.stat & 0x03) == 3 {
			return 0xFF
		}
		return m.vram[addr-0x8000]
	case addr <= 0xBFFF:
		return m.cart.Read(addr)
	case addr <= 0xDFFF:
		return m.wram[addr-0xC000]
	case addr <= 0xFDFF:
		return m.wram[addr-0x2000-0xC000]
	case addr <= 0xFE9F:
		if m.dmaActive {
			return 0xFF
		}
		mode := m.stat & 0x03
		if mode == 2 || mode == 3 {
			return 0xFF
		}
		return m.oam[addr-0xFE00]
	case addr <= 0xFEFF:
		return 0xFF // Unusable region
	case addr == 0xFF00:
		return m.readJoyp()
	case addr == 0xFF01:
		return m.sb
	case addr == 0xFF02:
		return 0x7E | (m.sc & 0x81)
	case addr == 0xFF04:
		return m.div
	case addr == 0xFF05:
		return m.tima
	case addr == 0xFF06:
		return m.tma
	case addr == 0xFF07:
		return 0xF8 | (m.tac & 0x07)
	case addr == 0xFF0F:
		return 0xE0 | (m.ifReg & 0x1F)
	case addr == 0xFF40:
		return m.lcdc
	case addr == 0xFF41:
		return 0x80 | (m.stat & 0x7F)
	case addr == 0xFF42:
		return m.scy
	case addr == 0xFF43:
		return m.scx
	case addr == 0xFF44:
		// Hard-stubbed: the PPU's real scanline counter is tracked
		// internally and reported through ppu.PPU.LY() instead.
		return 0x90
	case addr == 0xFF45:
		return m.lyc
	case addr == 0xFF46:
		return m.dma
	case addr == 0xFF47:
		return m.bgp
	case addr == 0xFF48:
		return m.obp0
	case addr == 0xFF49:
		return m.obp1
	case addr == 0xFF4A:
		return m.wy
	case addr == 0xFF4B:
		return m.wx
	case addr == 0xFF50:
		return 0xFF
	case addr <= 0xFF7F:
		return 0xFF // unmodeled IO
	case addr <= 0xFFFE:
		return m.hram[addr-0xFF80]
	default: // 0xFFFF
		return m.ie
	}
}

// WriteByte decodes addr and stores value, returning ErrWriteToReadOnly for
// regions with no legitimate write target.
func (m *MMU) WriteByte(addr uint16, value byte) error {
	switch {
	case addr < 0x8000:
		return m.cart.Write(addr, value)
	case addr <= 0x9FFF:
		if (m.stat & 0x03) != 3 {
			m.vram[addr-0x8000] = value
		}
		return nil
	case addr <= 0xBFFF:
		return m.cart.Write(addr, value)
	case addr <= 0xDFFF:
		m.wram[addr-0xC000] = value
		return nil
	case addr <= 0xFDFF:
		return ErrWriteToReadOnly
	case addr <= 0xFE9F:
		if m.dmaActive {
			return nil
		}
		mode := m.stat & 0x03
		if mode == 2 || mode == 3 {
			return nil
		}
		m.oam[addr-0xFE00] = value
		return nil
	case addr <= 0xFEFF:
		return nil // Unusable region: stored nowhere, accepted
	case addr == 0xFF00:
		m.joypSelect = value & 0x30
		m.updateJoypadIRQ()
		return nil
	case addr == 0xFF01:
		m.sb = value
		return nil
	case addr == 0xFF02:
		m.sc = value & 0x81
		if m.sc&0x80 != 0 {
			m.serialLog = append(m.serialLog, m.sb)
			m.RequestInterrupt(IntSerial)
			m.sc &^= 0x80
		}
		return nil
	case addr == 0xFF04:
		m.div = 0
		return nil
	case addr == 0xFF05:
		m.tima = value
		return nil
	case addr == 0xFF06:
		m.tma = value
		return nil
	case addr == 0xFF07:
		m.tac = value & 0x07
		return nil
	case addr == 0xFF0F:
		m.ifReg = value & 0x1F
		return nil
	case addr == 0xFF40:
		m.lcdc = value
		return nil
	case addr == 0xFF41:
		m.stat = (m.stat & 0x07) | (value & 0x78)
		return nil
	case addr == 0xFF42:
		m.scy = value
		return nil
	case addr == 0xFF43:
		m.scx = value
		return nil
	case addr == 0xFF44:
		return nil // LY is read-only hardware; writes are ignored
	case addr == 0xFF45:
		m.lyc = value
		return nil
	case addr == 0xFF46:
		m.dma = value
		m.dmaActive = true
		m.dmaSrc = uint16(value) << 8
		m.dmaIndex = 0
		return nil
	case addr == 0xFF47:
		m.bgp = value
		return nil
	case addr == 0xFF48:
		m.obp0 = value
		return nil
	case addr == 0xFF49:
		m.obp1 = value
		return nil
	case addr == 0xFF4A:
		m.wy = value
		return nil
	case addr == 0xFF4B:
		m.wx = value
		return nil
	case addr == 0xFF50:
		if value != 0x00 {
			m.bootEnabled = false
		}
		return nil
	case addr <= 0xFF7F:
		return nil // unmodeled IO, accepted and discarded
	case addr <= 0xFFFE:
		m.hram[addr-0xFF80] = value
		return nil
	default: // 0xFFFF
		m.ie = value
		return nil
	}
}

// StepDMA advances any in-flight OAM DMA transfer by one byte. The caller
// (emu.Machine) invokes this once per CPU step alongside timer.Advance and
// ppu.Advance, spreading the 160-byte copy over many instructions the way
// the real transfer spans 160 machine cycles.
func (m *MMU) StepDMA() {
	if !m.dmaActive {
		return
	}
	if m.dmaIndex < 0xA0 {
		src := m.dmaSrc + uint16(m.dmaIndex)
		m.oam[m.dmaIndex] = m.readRawForDMA(src)
		m.dmaIndex++
	}
	if m.dmaIndex >= 0xA0 {
		m.dmaActive = false
	}
}

// readRawForDMA bypasses the VRAM/OAM mode-blocking rules: DMA reads the
// source region directly regardless of PPU mode.
func (m *MMU) readRawForDMA(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return m.cart.Read(addr)
	case addr <= 0x9FFF:
		return m.vram[addr-0x8000]
	case addr <= 0xBFFF:
		return m.cart.Read(addr)
	case addr <= 0xDFFF:
		return m.wram[addr-0xC000]
	case addr <= 0xFDFF:
		return m.wram[addr-0x2000-0xC000]
	default:
		return 0xFF
	}
}

func (m *MMU) readJoyp() byte {
	res := byte(0xC0 | (m.joypSelect & 0x30) | 0x0F)
	if m.joypSelect&0x10 == 0 {
		if m.joypad&JoypRight != 0 {
			res &^= 0x01
		}
		if m.joypad&JoypLeft != 0 {
			res &^= 0x02
		}
		if m.joypad&JoypUp != 0 {
			res &^= 0x04
		}
		if m.joypad&JoypDown != 0 {
			res &^= 0x08
		}
	}
	if m.joypSelect&0x20 == 0 {
		if m.joypad&JoypA != 0 {
			res &^= 0x01
		}
		if m.joypad&JoypB != 0 {
			res &^= 0x02
		}
		if m.joypad&JoypSelectBtn != 0 {
			res &^= 0x04
		}
		if m.joypad&JoypStart != 0 {
			res &^= 0x08
		}
	}
	return res
}

// SetJoypadState sets which buttons are currently pressed, using the Joyp*
// bitmasks. Raises the joypad interrupt on any newly-pressed button.
func (m *MMU) SetJoypadState(mask byte) {
	m.joypad = mask
	m.updateJoypadIRQ()
}

func (m *MMU) updateJoypadIRQ() {
	newLower := byte(0x0F)
	if m.joypSelect&0x10 == 0 {
		if m.joypad&JoypRight != 0 {
			newLower &^= 0x01
		}
		if m.joypad&JoypLeft != 0 {
			newLower &^= 0x02
		}
		if m.joypad&JoypUp != 0 {
			newLower &^= 0x04
		}
		if m.joypad&JoypDown != 0 {
			newLower &^= 0x08
		}
	}
	if m.joypSelect&0x20 == 0 {
		if m.joypad&JoypA != 0 {
			newLower &^= 0x01
		}
		if m.joypad&JoypB != 0 {
			newLower &^= 0x02
		}
		if m.joypad&JoypSelectBtn != 0 {
			newLower &^= 0x04
		}
		if m.joypad&JoypStart != 0 {
			newLower &^= 0x08
		}
	}
	if falling := m.joypLower4 &^ newLower; falling != 0 {
		m.RequestInterrupt(IntJoypad)
	}
	m.joypLower4 = newLower
}

// SerialLog returns every byte completed through the SC=0x81 serial tap, in
// order. Blargg's test ROMs print their pass/fail banner through this path.
func (m *MMU) SerialLog() string { return string(m.serialLog) }

// IE/IF accessors used by the interrupt controller.
func (m *MMU) IE() byte     { return m.ie }
func (m *MMU) SetIE(v byte) { m.ie = v }
func (m *MMU) IF() byte     { return m.ifReg & 0x1F }
func (m *MMU) SetIF(v byte) { m.ifReg = v & 0x1F }

// RequestInterrupt sets IF bit `bit` (0-4); harmless no-op for other bits.
func (m *MMU) RequestInterrupt(bit int) {
	if bit < 0 || bit > 4 {
		return
	}
	m.ifReg |= 1 << uint(bit)
}

// Timer register accessors, used by internal/timer.
func (m *MMU) DIV() byte      { return m.div }
func (m *MMU) SetDIV(v byte)  { m.div = v }
func (m *MMU) TIMA() byte     { return m.tima }
func (m *MMU) SetTIMA(v byte) { m.tima = v }
func (m *MMU) TMA() byte      { return m.tma }
func (m *MMU) TAC() byte      { return m.tac }

// PPU register accessors, used by internal/ppu. LY is deliberately absent:
// the PPU tracks its own scanline counter and the CPU-visible FF44 byte is
// always the fixed stub above.
func (m *MMU) LCDC() byte { return m.lcdc }
func (m *MMU) STAT() byte { return m.stat }
func (m *MMU) SetSTATMode(mode byte) {
	m.stat = (m.stat &^ 0x03) | (mode & 0x03)
}
func (m *MMU) STATInterruptEnabled(sourceBit uint) bool {
	return m.stat&(1<<sourceBit) != 0
}
func (m *MMU) SetLYCCoincidence(match bool) {
	if match {
		m.stat |= 1 << 2
	} else {
		m.stat &^= 1 << 2
	}
}
func (m *MMU) SCY() byte  { return m.scy }
func (m *MMU) SCX() byte  { return m.scx }
func (m *MMU) LYC() byte  { return m.lyc }
func (m *MMU) BGP() byte  { return m.bgp }
func (m *MMU) OBP0() byte { return m.obp0 }
func (m *MMU) OBP1() byte { return m.obp1 }
func (m *MMU) WY() byte   { return m.wy }
func (m *MMU) WX() byte   { return m.wx }

// ReadVRAMRaw reads a VRAM byte by CPU address (0x8000-0x9FFF) bypassing
// the mode-3 CPU blocking, for the PPU-side scanline renderers.
func (m *MMU) ReadVRAMRaw(addr uint16) byte {
	if addr < 0x8000 || addr > 0x9FFF {
		return 0xFF
	}
	return m.vram[addr-0x8000]
}

// ReadOAMRaw returns OAM byte idx (0..159) bypassing CPU mode-blocking,
// for the PPU's own sprite-buffer scan during Advance.
func (m *MMU) ReadOAMRaw(idx int) byte {
	if idx < 0 || idx >= len(m.oam) {
		return 0xFF
	}
	return m.oam[idx]
}

// DumpRegion returns a copy of a named memory region for disassembly/debug
// tooling. Unknown names return nil.
func (m *MMU) DumpRegion(name string) []byte {
	switch name {
	case "wram":
		out := make([]byte, len(m.wram))
		copy(out, m.wram[:])
		return out
	case "hram":
		out := make([]byte, len(m.hram))
		copy(out, m.hram[:])
		return out
	case "vram":
		out := make([]byte, len(m.vram))
		copy(out, m.vram[:])
		return out
	case "oam":
		out := make([]byte, len(m.oam))
		copy(out, m.oam[:])
		return out
	default:
		return nil
	}
}

// ReadRange reads count bytes starting at start, validating the request
// falls within the 16-bit address space. This is the one place the MMU's
// otherwise-uint16-safe API accepts a plain int and must guard against it.
func (m *MMU) ReadRange(start int, count int) ([]byte, error) {
	if start < 0 || count < 0 || start+count > 0x10000 {
		return nil, ErrInvalidAddress
	}
	out := make([]byte, count)
	for i := 0; i < count; i++ {
		out[i] = m.ReadByte(uint16(start + i))
	}
	return out, nil
}
