package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/sim86/decoder"
	"github.com/sarchlab/sim86/instr"
	"github.com/sarchlab/sim86/timing"
)

// HookPosInstRetired marks the point where an instruction has finished
// executing. The hook item is a Retired.
var HookPosInstRetired = &sim.HookPos{Name: "Inst Retired"}

// HaltReason tells why the core stopped fetching.
type HaltReason int

const (
	HaltNone HaltReason = iota
	HaltEndOfStream
	HaltUnrecognized
	HaltTerminal
)

func (r HaltReason) String() string {
	switch r {
	case HaltNone:
		return "running"
	case HaltEndOfStream:
		return "end of stream"
	case HaltUnrecognized:
		return "unrecognized instruction"
	case HaltTerminal:
		return "terminal instruction"
	default:
		return fmt.Sprintf("HaltReason(%d)", int(r))
	}
}

// Retired records one executed instruction.
type Retired struct {
	Inst   instr.Instruction
	Change Change

	// Timed is set when the core estimates clocks.
	Timed       bool
	Cost        timing.Cost
	Cycles      int
	TotalCycles int
}

// Core simulates a single 8086 executing a flat code buffer.
type Core struct {
	*sim.TickingComponent

	state     coreState
	emu       instEmulator
	estimator *timing.Estimator

	halt    HaltReason
	haltErr error
	stall   int
	retired uint64
}

// LoadProgram installs code as the instruction stream and resets IP to 0.
// Register, flag and memory contents are kept so they can be seeded before
// or after loading.
func (c *Core) LoadProgram(code []byte) {
	c.state.Code = code
	c.state.Regs.Write(instr.IP, 0)
	c.halt = HaltNone
	c.haltErr = nil
	c.stall = 0
	c.retired = 0

	if c.estimator != nil {
		c.estimator.Reset()
	}

	Trace("Program", "Core", c.Name(), "Bytes", len(code))
}

// Start schedules the first tick on the engine.
func (c *Core) Start() {
	c.TickNow()
}

// SetRegister seeds a register before the run.
func (c *Core) SetRegister(r instr.RegisterAccess, v uint16) {
	c.state.Regs.Write(r, v)
}

// Register reads a register.
func (c *Core) Register(r instr.RegisterAccess) uint16 {
	return c.state.Regs.Read(r)
}

// Registers exposes the register file for reporting.
func (c *Core) Registers() *RegisterFile {
	return &c.state.Regs
}

// Flags returns the status flags.
func (c *Core) Flags() Flags {
	return c.state.Flags
}

// SetFlags overwrites the status flags.
func (c *Core) SetFlags(f Flags) {
	c.state.Flags = f
}

// Memory returns the memory image owned by the core.
func (c *Core) Memory() *Memory {
	return c.state.Memory
}

// Halted reports why the core stopped, or HaltNone while it runs.
func (c *Core) Halted() HaltReason {
	return c.halt
}

// Err returns the decode error behind HaltUnrecognized.
func (c *Core) Err() error {
	return c.haltErr
}

// RetiredCount returns how many instructions have been executed.
func (c *Core) RetiredCount() uint64 {
	return c.retired
}

// TotalCycles returns the running clock estimate, or 0 when timing is off.
func (c *Core) TotalCycles() int {
	if c.estimator == nil {
		return 0
	}

	return c.estimator.Total()
}

// Step fetches, decodes and executes the instruction at IP. It returns false
// once the core has halted.
func (c *Core) Step() (Retired, bool) {
	if c.halt != HaltNone {
		return Retired{}, false
	}

	ip := c.state.Regs.Read(instr.IP)
	if int(ip) >= len(c.state.Code) {
		c.halt = HaltEndOfStream
		Trace("Halt", "Core", c.Name(), "Reason", c.halt.String(), "IP", ip)

		return Retired{}, false
	}

	inst, err := decoder.Decode(c.state.Code[ip:], ip)
	if err != nil {
		c.halt = HaltUnrecognized
		c.haltErr = err
		Trace("Halt", "Core", c.Name(), "Reason", c.halt.String(), "Error", err.Error())

		return Retired{}, false
	}

	rec := Retired{Inst: inst}
	if c.estimator != nil {
		rec.Timed = true
		rec.Cost = c.estimator.Estimate(inst, &c.state.Regs)
	}

	c.state.Regs.Write(instr.IP, ip+inst.Size)
	rec.Change = c.emu.RunInst(inst, &c.state)
	rec.Change.IPBefore = ip
	rec.Change.IPAfter = c.state.Regs.Read(instr.IP)

	if rec.Timed {
		rec.Cycles = rec.Cost.Total(rec.Change.Taken)
		rec.TotalCycles = c.estimator.Accumulate(rec.Cost, rec.Change.Taken)
	}

	c.retired++
	if inst.Op.IsTerminal() {
		c.halt = HaltTerminal
	}

	Trace("Inst",
		"Core", c.Name(),
		"IP", ip,
		"Op", inst.Op.String(),
		"Size", inst.Size,
		"Flags", c.state.Flags.String(),
	)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosInstRetired,
		Item:   rec,
	})

	return rec, true
}

// Run steps until the core halts without going through an engine.
func (c *Core) Run() HaltReason {
	for {
		if _, ok := c.Step(); !ok {
			return c.halt
		}
	}
}

// Tick retires one instruction and then stalls for the rest of its
// estimated clocks.
func (c *Core) Tick() (madeProgress bool) {
	if c.stall > 0 {
		c.stall--
		return true
	}

	rec, ok := c.Step()
	if !ok {
		return false
	}

	if rec.Timed && rec.Cycles > 1 {
		c.stall = rec.Cycles - 1
	}

	return true
}
