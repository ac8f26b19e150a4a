package mmu

import (
	"errors"
	"fmt"
)

// ErrInvalidAddress is returned by the int-indexed helper API (ReadRange)
// when a requested range falls outside 0..0xFFFF. CPU-driven access
// goes through uint16 and cannot produce this error by construction.
var ErrInvalidAddress = errors.New("mmu: address out of range")

// ErrWriteToReadOnly is returned when a write targets the Echo RAM alias.
// ROM-window writes go to the cartridge, which returns
// cart.ErrWriteToReadOnly when it has no banking controller. The CPU step
// loop treats either as a no-op rather than a fatal condition.
var ErrWriteToReadOnly = errors.New("mmu: write to read-only region")

// ErrCartridgeLoad wraps an I/O or size failure while opening a ROM file.
type ErrCartridgeLoad struct {
	Path string
	Err  error
}

func (e *ErrCartridgeLoad) Error() string {
	return fmt.Sprintf("mmu: load cartridge %q: %v", e.Path, e.Err)
}

func (e *ErrCartridgeLoad) Unwrap() error { return e.Err }
