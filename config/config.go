// Package config reads simulation session files.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/sim86/instr"
)

// Mode selects what the simulator does with the program.
type Mode string

const (
	ModeDisasm Mode = "disasm"
	ModeExec   Mode = "exec"
	ModeCycles Mode = "cycles"
)

// DefaultFreqMHz is the clock of the original 8086.
const DefaultFreqMHz = 5.0

var (
	// ErrInvalidMode means the mode is not one of disasm, exec or cycles.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidRegister means a register name is not known.
	ErrInvalidRegister = errors.New("invalid register")
	// ErrInvalidPreload means a memory preload cannot be decoded.
	ErrInvalidPreload = errors.New("invalid memory preload")
)

// Preload is a block of bytes copied into memory before the run. Bytes and
// Hex are concatenated in that order.
type Preload struct {
	Address uint16  `yaml:"address"`
	Bytes   []uint8 `yaml:"bytes,omitempty"`
	Hex     string  `yaml:"hex,omitempty"`
}

// Data returns the bytes to load.
func (p Preload) Data() ([]byte, error) {
	data := append([]byte(nil), p.Bytes...)

	if p.Hex != "" {
		h, err := hex.DecodeString(strings.Join(strings.Fields(p.Hex), ""))
		if err != nil {
			return nil, fmt.Errorf("%w at 0x%04x: %v", ErrInvalidPreload, p.Address, err)
		}

		data = append(data, h...)
	}

	return data, nil
}

// Session is the content of a session file.
type Session struct {
	Mode      Mode              `yaml:"mode"`
	Program   string            `yaml:"program,omitempty"`
	FreqMHz   float64           `yaml:"freq_mhz"`
	Registers map[string]uint16 `yaml:"registers,omitempty"`
	Memory    []Preload         `yaml:"memory,omitempty"`
	Dump      string            `yaml:"dump,omitempty"`
}

// Default returns a session that executes the program at 5 MHz.
func Default() Session {
	return Session{
		Mode:    ModeExec,
		FreqMHz: DefaultFreqMHz,
	}
}

// Load reads and validates a session file.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("reading session %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return Session{}, fmt.Errorf("session %s: %w", path, err)
	}

	return s, nil
}

// Parse decodes a session from YAML, fills defaults and validates it.
func Parse(data []byte) (Session, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parsing session: %w", err)
	}

	if s.Mode == "" {
		s.Mode = ModeExec
	}

	if s.FreqMHz == 0 {
		s.FreqMHz = DefaultFreqMHz
	}

	if err := s.Validate(); err != nil {
		return Session{}, err
	}

	return s, nil
}

// ParseMode converts a mode name.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(strings.ToLower(name)); m {
	case ModeDisasm, ModeExec, ModeCycles:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, name)
	}
}

// Validate checks every field.
func (s Session) Validate() error {
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}

	if s.FreqMHz <= 0 {
		return fmt.Errorf("freq_mhz must be positive, got %v", s.FreqMHz)
	}

	if _, err := s.InitialRegisters(); err != nil {
		return err
	}

	for _, p := range s.Memory {
		if _, err := p.Data(); err != nil {
			return err
		}
	}

	return nil
}

// RegisterValue is one initial register assignment.
type RegisterValue struct {
	Register instr.RegisterAccess
	Value    uint16
}

// InitialRegisters resolves the register names, sorted by name so seeding
// is deterministic. IP cannot be seeded.
func (s Session) InitialRegisters() ([]RegisterValue, error) {
	names := make([]string, 0, len(s.Registers))
	for name := range s.Registers {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]RegisterValue, 0, len(names))
	for _, name := range names {
		r, ok := instr.RegisterByName(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRegister, name)
		}

		if r == instr.IP {
			return nil, fmt.Errorf("%w: %q, programs always start at 0",
				ErrInvalidRegister, name)
		}

		values = append(values, RegisterValue{Register: r, Value: s.Registers[name]})
	}

	return values, nil
}
