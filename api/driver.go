// Package api defines the driver API that runs one 8086 simulation session.
package api

import (
	"fmt"
	"io"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/sim86/core"
	"github.com/sarchlab/sim86/decoder"
	"github.com/sarchlab/sim86/instr"
)

// Driver owns the engine, the core and its memory for one session.
type Driver interface {
	// LoadProgram installs the machine code to run. IP starts at 0.
	LoadProgram(code []byte)

	// SetRegister seeds a register before Run.
	SetRegister(r instr.RegisterAccess, v uint16)

	// PreloadMemory copies data into memory starting at addr.
	PreloadMemory(addr uint16, data []byte)

	// Run executes the loaded program until the core halts.
	Run() (*Result, error)

	// Disassemble decodes code without executing it. The listing holds
	// every instruction decoded before the first error.
	Disassemble(code []byte) ([]instr.Instruction, error)

	// DumpMemory writes the 64 KiB memory image.
	DumpMemory(w io.Writer) error

	// Core exposes the simulated processor for inspection.
	Core() *core.Core
}

// Result summarizes a finished run.
type Result struct {
	Retired     []core.Retired
	Halt        core.HaltReason
	DecodeErr   error
	Timed       bool
	TotalCycles int
	Elapsed     sim.VTimeInSec
}

type driverImpl struct {
	engine    sim.Engine
	core      *core.Core
	collector *retireCollector
	timed     bool
}

// retireCollector records every retired instruction and forwards it to an
// optional callback so traces can stream while the engine runs.
type retireCollector struct {
	records  []core.Retired
	onRetire func(core.Retired)
}

func (c *retireCollector) Func(ctx sim.HookCtx) {
	if ctx.Pos != core.HookPosInstRetired {
		return
	}

	rec, ok := ctx.Item.(core.Retired)
	if !ok {
		return
	}

	c.records = append(c.records, rec)
	if c.onRetire != nil {
		c.onRetire(rec)
	}
}

func (d *driverImpl) LoadProgram(code []byte) {
	d.core.LoadProgram(code)
	d.collector.records = nil
}

func (d *driverImpl) SetRegister(r instr.RegisterAccess, v uint16) {
	d.core.SetRegister(r, v)
}

func (d *driverImpl) PreloadMemory(addr uint16, data []byte) {
	d.core.Memory().Load(addr, data)
}

func (d *driverImpl) Run() (*Result, error) {
	d.core.Start()

	if err := d.engine.Run(); err != nil {
		return nil, fmt.Errorf("running engine: %w", err)
	}

	core.LogState(d.core)

	return &Result{
		Retired:     d.collector.records,
		Halt:        d.core.Halted(),
		DecodeErr:   d.core.Err(),
		Timed:       d.timed,
		TotalCycles: d.core.TotalCycles(),
		Elapsed:     d.engine.CurrentTime(),
	}, nil
}

func (d *driverImpl) Disassemble(code []byte) ([]instr.Instruction, error) {
	var listing []instr.Instruction

	s := decoder.NewStream(code)
	for s.Next() {
		listing = append(listing, s.Instruction())
	}

	return listing, s.Err()
}

func (d *driverImpl) DumpMemory(w io.Writer) error {
	return d.core.Memory().Dump(w)
}

func (d *driverImpl) Core() *core.Core {
	return d.core
}
