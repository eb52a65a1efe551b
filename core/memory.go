package core

import (
	"fmt"
	"io"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// MemorySize is the size of the 8086 real-mode address space seen by a
// single segment.
const MemorySize = 64 * 1024

// Memory is the simulated address space. Addresses wrap at 64 KiB.
type Memory struct {
	storage *mem.Storage
}

// NewMemory creates a zeroed memory image.
func NewMemory() *Memory {
	return &Memory{storage: mem.NewStorage(MemorySize)}
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint16) byte {
	data, err := m.storage.Read(uint64(addr), 1)
	if err != nil {
		panic(fmt.Sprintf("memory read at 0x%04x: %v", addr, err))
	}

	return data[0]
}

// Read16 reads a little-endian word. The high byte of a word at 0xFFFF comes
// from address 0.
func (m *Memory) Read16(addr uint16) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint16, v byte) {
	err := m.storage.Write(uint64(addr), []byte{v})
	if err != nil {
		panic(fmt.Sprintf("memory write at 0x%04x: %v", addr, err))
	}
}

// Write16 writes a little-endian word.
func (m *Memory) Write16(addr uint16, v uint16) {
	m.Write8(addr, byte(v))
	m.Write8(addr+1, byte(v>>8))
}

// Read returns a value of the given width.
func (m *Memory) Read(addr uint16, wide bool) uint16 {
	if wide {
		return m.Read16(addr)
	}

	return uint16(m.Read8(addr))
}

// Write stores a value of the given width.
func (m *Memory) Write(addr uint16, v uint16, wide bool) {
	if wide {
		m.Write16(addr, v)
		return
	}

	m.Write8(addr, byte(v))
}

// Load copies data into memory starting at addr, wrapping at the top.
func (m *Memory) Load(addr uint16, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint16(i), b)
	}
}

// Dump writes the whole address space, byte for byte, with no header.
func (m *Memory) Dump(w io.Writer) error {
	data, err := m.storage.Read(0, MemorySize)
	if err != nil {
		return fmt.Errorf("reading memory image: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing memory image: %w", err)
	}

	return nil
}
