package mmu

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/horizon-arcade/dmgcore/internal/cart"
)

func newTestMMU() *MMU {
	rom := make([]byte, 0x8000)
	return New(cart.NewROMOnly(rom))
}

func TestEchoRAMMirrorsWRAM(t *testing.T) {
	m := newTestMMU()
	if err := m.WriteByte(0xC123, 0x5C); err != nil {
		t.Fatalf("WRAM write: %v", err)
	}
	if v := m.ReadByte(0xE123); v != 0x5C {
		t.Fatalf("echo read got %#02x want 0x5C", v)
	}
}

func TestEchoRAMWriteRejected(t *testing.T) {
	m := newTestMMU()
	err := m.WriteByte(0xE000, 0x01)
	if !errors.Is(err, ErrWriteToReadOnly) {
		t.Fatalf("echo write err got %v want ErrWriteToReadOnly", err)
	}
	if v := m.ReadByte(0xC000); v != 0 {
		t.Fatalf("rejected echo write leaked into WRAM: %#02x", v)
	}
}

func TestROMWriteRejected(t *testing.T) {
	m := newTestMMU()
	err := m.WriteByte(0x1234, 0xAA)
	if !errors.Is(err, cart.ErrWriteToReadOnly) {
		t.Fatalf("ROM write err got %v want cart.ErrWriteToReadOnly", err)
	}
}

func TestUnusableRegionReadsFFAndAcceptsWrites(t *testing.T) {
	m := newTestMMU()
	if err := m.WriteByte(0xFEA5, 0x42); err != nil {
		t.Fatalf("unusable write: %v", err)
	}
	if v := m.ReadByte(0xFEA5); v != 0xFF {
		t.Fatalf("unusable read got %#02x want 0xFF", v)
	}
}

func TestHRAMAndIERoundTrip(t *testing.T) {
	m := newTestMMU()
	m.WriteByte(0xFF80, 0x11)
	m.WriteByte(0xFFFE, 0x22)
	m.WriteByte(0xFFFF, 0x1F)
	if v := m.ReadByte(0xFF80); v != 0x11 {
		t.Fatalf("HRAM[0] got %#02x want 0x11", v)
	}
	if v := m.ReadByte(0xFFFE); v != 0x22 {
		t.Fatalf("HRAM[last] got %#02x want 0x22", v)
	}
	if v := m.ReadByte(0xFFFF); v != 0x1F {
		t.Fatalf("IE got %#02x want 0x1F", v)
	}
}

func TestLYReadsAreStubbed(t *testing.T) {
	m := newTestMMU()
	if v := m.ReadByte(0xFF44); v != 0x90 {
		t.Fatalf("LY got %#02x want stub 0x90", v)
	}
	// Writes are ignored, not an error.
	if err := m.WriteByte(0xFF44, 0x00); err != nil {
		t.Fatalf("LY write: %v", err)
	}
	if v := m.ReadByte(0xFF44); v != 0x90 {
		t.Fatalf("LY after write got %#02x want 0x90", v)
	}
}

func TestDIVWriteResetsToZero(t *testing.T) {
	m := newTestMMU()
	m.SetDIV(0xAB)
	m.WriteByte(0xFF04, 0x77)
	if v := m.ReadByte(0xFF04); v != 0 {
		t.Fatalf("DIV after write got %#02x want 0", v)
	}
}

func TestIFMasksToLowFiveBits(t *testing.T) {
	m := newTestMMU()
	m.WriteByte(0xFF0F, 0xFF)
	if v := m.IF(); v != 0x1F {
		t.Fatalf("IF got %#02x want 0x1F", v)
	}
	// The unimplemented high bits read back set, per hardware.
	if v := m.ReadByte(0xFF0F); v != 0xFF {
		t.Fatalf("FF0F read got %#02x want 0xFF", v)
	}
}

func TestRequestInterruptSetsOnlyNamedBit(t *testing.T) {
	m := newTestMMU()
	m.RequestInterrupt(IntTimer)
	if v := m.IF(); v != 1<<IntTimer {
		t.Fatalf("IF got %#02x want %#02x", v, 1<<IntTimer)
	}
	m.RequestInterrupt(7) // out of range, ignored
	if v := m.IF(); v != 1<<IntTimer {
		t.Fatalf("IF after bad bit got %#02x", v)
	}
}

func TestSerialTapRecordsByteAndClearsTransferBit(t *testing.T) {
	m := newTestMMU()
	m.WriteByte(0xFF01, 0xAB)
	m.WriteByte(0xFF02, 0x81)
	if got := m.SerialLog(); got != "\xab" {
		t.Fatalf("serial log got %q want \"\\xab\"", got)
	}
	if v := m.ReadByte(0xFF02); v&0x80 != 0 {
		t.Fatalf("SC transfer bit still set after tap: %#02x", v)
	}
	if m.IF()&(1<<IntSerial) == 0 {
		t.Fatalf("serial interrupt not requested after transfer")
	}
}

func TestOAMDMACopiesFromWRAM(t *testing.T) {
	m := newTestMMU()
	for i := 0; i < 0xA0; i++ {
		m.WriteByte(0xC000+uint16(i), byte(i))
	}
	m.WriteByte(0xFF46, 0xC0)
	for i := 0; i < 0xA0; i++ {
		m.StepDMA()
	}
	for i := 0; i < 0xA0; i++ {
		if v := m.ReadOAMRaw(i); v != byte(i) {
			t.Fatalf("OAM[%d] got %#02x want %#02x", i, v, byte(i))
		}
	}
	// Once the transfer finishes, normal OAM access works again (mode 0).
	if v := m.ReadByte(0xFE05); v != 5 {
		t.Fatalf("OAM read after DMA got %#02x want 0x05", v)
	}
}

func TestOAMBlockedDuringDMA(t *testing.T) {
	m := newTestMMU()
	m.WriteByte(0xFF46, 0xC0)
	if v := m.ReadByte(0xFE00); v != 0xFF {
		t.Fatalf("OAM read mid-DMA got %#02x want 0xFF", v)
	}
}

func TestJoypadSelectionAndPress(t *testing.T) {
	m := newTestMMU()
	m.WriteByte(0xFF00, 0x20) // select d-pad row (bit 4 low)
	m.SetJoypadState(JoypRight | JoypA)
	v := m.ReadByte(0xFF00)
	if v&0x01 != 0 {
		t.Fatalf("Right should read low with d-pad selected: %#02x", v)
	}
	if v&0x0E != 0x0E {
		t.Fatalf("unpressed d-pad bits should read high: %#02x", v)
	}

	m.WriteByte(0xFF00, 0x10) // select button row (bit 5 low)
	v = m.ReadByte(0xFF00)
	if v&0x01 != 0 {
		t.Fatalf("A should read low with buttons selected: %#02x", v)
	}
}

func TestJoypadPressRequestsInterrupt(t *testing.T) {
	m := newTestMMU()
	m.WriteByte(0xFF00, 0x20) // d-pad selected
	m.SetJoypadState(JoypDown)
	if m.IF()&(1<<IntJoypad) == 0 {
		t.Fatalf("joypad interrupt not requested on new press")
	}
}

func TestReadRangeValidatesBounds(t *testing.T) {
	m := newTestMMU()
	if _, err := m.ReadRange(0xFFF0, 0x20); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("out-of-range ReadRange err got %v want ErrInvalidAddress", err)
	}
	if _, err := m.ReadRange(-1, 4); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("negative start err got %v want ErrInvalidAddress", err)
	}
	got, err := m.ReadRange(0xC000, 4)
	if err != nil || len(got) != 4 {
		t.Fatalf("valid ReadRange got len=%d err=%v", len(got), err)
	}
}

func TestLoadCartridgeMissingFile(t *testing.T) {
	m := newTestMMU()
	err := m.LoadCartridge(filepath.Join(t.TempDir(), "nope.gb"))
	var loadErr *ErrCartridgeLoad
	if !errors.As(err, &loadErr) {
		t.Fatalf("err got %v want *ErrCartridgeLoad", err)
	}
}

func TestLoadCartridgeReadsROMBytes(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0xC3
	path := filepath.Join(t.TempDir(), "test.gb")
	if err := os.WriteFile(path, rom, 0o644); err != nil {
		t.Fatalf("write rom: %v", err)
	}
	m := newTestMMU()
	if err := m.LoadCartridge(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if v := m.ReadByte(0x0100); v != 0xC3 {
		t.Fatalf("ROM[0x100] got %#02x want 0xC3", v)
	}
}

func TestBootROMOverlayAndDisable(t *testing.T) {
	m := newTestMMU()
	boot := make([]byte, 0x100)
	boot[0] = 0x31
	m.SetBootROM(boot)
	if v := m.ReadByte(0x0000); v != 0x31 {
		t.Fatalf("boot overlay got %#02x want 0x31", v)
	}
	m.WriteByte(0xFF50, 0x01)
	if v := m.ReadByte(0x0000); v != 0x00 {
		t.Fatalf("after FF50 disable got %#02x want cartridge byte 0x00", v)
	}
}
