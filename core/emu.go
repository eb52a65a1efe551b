package core

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/sim86/instr"
)

type coreState struct {
	Regs   RegisterFile
	Flags  Flags
	Memory *Memory
	Code   []byte
}

// Change describes the effect of one executed instruction.
type Change struct {
	// Register is the full register written by the instruction, or an access
	// with Index instr.RegNone if no register was written.
	Register       instr.RegisterAccess
	RegisterBefore uint16
	RegisterAfter  uint16

	MemoryWritten bool
	MemoryAddress uint16
	MemoryBefore  uint16
	MemoryAfter   uint16

	FlagsBefore Flags
	FlagsAfter  Flags

	IPBefore uint16
	IPAfter  uint16

	// Taken is set when a branch transferred control.
	Taken bool

	// Diagnostic is non-empty when the instruction was skipped.
	Diagnostic string
}

// RegisterWritten reports whether a register changed hands.
func (c Change) RegisterWritten() bool {
	return c.Register.Index != instr.RegNone
}

// FlagsChanged reports whether any status flag flipped.
func (c Change) FlagsChanged() bool {
	return c.FlagsBefore != c.FlagsAfter
}

type instEmulator struct {
}

// RunInst applies inst to state. The caller has already advanced IP past the
// instruction, so relative branches add to the current IP.
func (i instEmulator) RunInst(inst instr.Instruction, state *coreState) Change {
	instFuncs := map[instr.Op]func(instr.Instruction, *coreState, *Change){
		instr.OpMov: i.runMov,
		instr.OpAdd: i.runArith,
		instr.OpSub: i.runArith,
		instr.OpCmp: i.runArith,
		instr.OpInc: i.runArith,
		instr.OpXor: i.runXor,
		instr.OpRet: func(instr.Instruction, *coreState, *Change) {},
		instr.OpHlt: func(instr.Instruction, *coreState, *Change) {},
	}

	ch := Change{FlagsBefore: state.Flags}

	switch {
	case inst.Op.IsConditionalJump():
		i.runJump(inst, state, &ch)
	default:
		run, ok := instFuncs[inst.Op]
		if !ok {
			ch.Diagnostic = fmt.Sprintf("no semantics for %s", inst.Op)
			break
		}

		run(inst, state, &ch)
	}

	ch.FlagsAfter = state.Flags
	if ch.Diagnostic != "" {
		slog.Warn("Instruction skipped",
			"Op", inst.Op.String(),
			"Address", fmt.Sprintf("0x%04x", inst.Address),
			"Reason", ch.Diagnostic,
		)
	}

	return ch
}

func (i instEmulator) operandWide(o instr.Operand, inst instr.Instruction) bool {
	if o.Kind == instr.OperandRegister {
		return o.Register.Wide()
	}

	return inst.Wide()
}

func (i instEmulator) readOperand(
	o instr.Operand,
	wide bool,
	state *coreState,
) (uint16, bool) {
	switch o.Kind {
	case instr.OperandRegister:
		return state.Regs.Read(o.Register), true
	case instr.OperandMemory:
		addr := o.Address.Resolve(&state.Regs)
		return state.Memory.Read(addr, wide), true
	case instr.OperandImmediate:
		v := uint16(o.Immediate.Value)
		if !wide {
			v &= 0xFF
		}

		return v, true
	default:
		return 0, false
	}
}

func (i instEmulator) writeOperand(
	o instr.Operand,
	v uint16,
	wide bool,
	state *coreState,
	ch *Change,
) bool {
	switch o.Kind {
	case instr.OperandRegister:
		ch.Register = o.Register.Full()
		ch.RegisterBefore, ch.RegisterAfter = state.Regs.Write(o.Register, v)

		return true
	case instr.OperandMemory:
		addr := o.Address.Resolve(&state.Regs)
		ch.MemoryWritten = true
		ch.MemoryAddress = addr
		ch.MemoryBefore = state.Memory.Read(addr, wide)
		state.Memory.Write(addr, v, wide)
		ch.MemoryAfter = state.Memory.Read(addr, wide)

		return true
	default:
		return false
	}
}

func (i instEmulator) runMov(inst instr.Instruction, state *coreState, ch *Change) {
	dst, src := inst.Dst(), inst.Src()
	wide := i.operandWide(dst, inst)

	v, ok := i.readOperand(src, wide, state)
	if !ok {
		ch.Diagnostic = "mov without a source operand"
		return
	}

	if !i.writeOperand(dst, v, wide, state, ch) {
		ch.Diagnostic = "mov destination is not writable"
	}
}

func (i instEmulator) runArith(inst instr.Instruction, state *coreState, ch *Change) {
	dst := inst.Dst()
	if dst.Kind != instr.OperandRegister && dst.Kind != instr.OperandMemory {
		ch.Diagnostic = fmt.Sprintf("%s destination is not writable", inst.Op)
		return
	}

	wide := i.operandWide(dst, inst)
	a, _ := i.readOperand(dst, wide, state)

	b := uint16(1)
	if inst.Op != instr.OpInc {
		var ok bool

		b, ok = i.readOperand(inst.Src(), wide, state)
		if !ok {
			ch.Diagnostic = fmt.Sprintf("%s without a source operand", inst.Op)
			return
		}
	}

	var result uint16

	switch inst.Op {
	case instr.OpAdd, instr.OpInc:
		result = i.add(a, b, wide, &state.Flags)
	default:
		result = i.sub(a, b, wide, &state.Flags)
	}

	if inst.Op != instr.OpCmp {
		i.writeOperand(dst, result, wide, state, ch)
	}
}

func (i instEmulator) runXor(inst instr.Instruction, state *coreState, ch *Change) {
	dst := inst.Dst()
	if dst.Kind != instr.OperandRegister && dst.Kind != instr.OperandMemory {
		ch.Diagnostic = "xor destination is not writable"
		return
	}

	wide := i.operandWide(dst, inst)
	a, _ := i.readOperand(dst, wide, state)

	b, ok := i.readOperand(inst.Src(), wide, state)
	if !ok {
		ch.Diagnostic = "xor without a source operand"
		return
	}

	result := a ^ b
	i.setResultFlags(result, wide, &state.Flags)
	state.Flags.Set(FlagCF, false)
	state.Flags.Set(FlagAF, false)
	state.Flags.Set(FlagOF, false)

	i.writeOperand(dst, result, wide, state, ch)
}

func widthMasks(wide bool) (mask, sign uint16) {
	if wide {
		return 0xFFFF, 0x8000
	}

	return 0xFF, 0x80
}

func (i instEmulator) add(a, b uint16, wide bool, f *Flags) uint16 {
	mask, sign := widthMasks(wide)
	a, b = a&mask, b&mask

	full := uint32(a) + uint32(b)
	r := uint16(full) & mask

	f.Set(FlagCF, full > uint32(mask))
	f.Set(FlagAF, (a&0xF)+(b&0xF) > 0xF)
	f.Set(FlagOF, (^(a^b))&(a^r)&sign != 0)
	i.setResultFlags(r, wide, f)

	return r
}

func (i instEmulator) sub(a, b uint16, wide bool, f *Flags) uint16 {
	mask, sign := widthMasks(wide)
	a, b = a&mask, b&mask

	r := (a - b) & mask

	f.Set(FlagCF, a < b)
	f.Set(FlagAF, (a&0xF) < (b&0xF))
	f.Set(FlagOF, (a^b)&(a^r)&sign != 0)
	i.setResultFlags(r, wide, f)

	return r
}

func (i instEmulator) setResultFlags(r uint16, wide bool, f *Flags) {
	mask, sign := widthMasks(wide)

	f.Set(FlagZF, r&mask == 0)
	f.Set(FlagSF, r&sign != 0)
	f.Set(FlagPF, parity(byte(r)))
}

func (i instEmulator) runJump(inst instr.Instruction, state *coreState, ch *Change) {
	target := inst.Dst()
	if target.Kind != instr.OperandImmediate || !target.Immediate.IsRelativeJump() {
		ch.Diagnostic = fmt.Sprintf("%s without a relative target", inst.Op)
		return
	}

	var taken bool

	if inst.Op.IsLoop() {
		cx := state.Regs.Read(instr.CX) - 1
		ch.Register = instr.CX
		ch.RegisterBefore, ch.RegisterAfter = state.Regs.Write(instr.CX, cx)
		taken = i.loopTaken(inst.Op, cx, state.Flags)
	} else {
		taken = i.conditionHolds(inst.Op, state)
	}

	if !taken {
		return
	}

	ip := state.Regs.Read(instr.IP)
	state.Regs.Write(instr.IP, ip+uint16(target.Immediate.Value))
	ch.Taken = true
}

func (i instEmulator) loopTaken(op instr.Op, cx uint16, f Flags) bool {
	switch op {
	case instr.OpLoopz:
		return cx != 0 && f.Has(FlagZF)
	case instr.OpLoopnz:
		return cx != 0 && !f.Has(FlagZF)
	default:
		return cx != 0
	}
}

func (i instEmulator) conditionHolds(op instr.Op, state *coreState) bool {
	f := state.Flags
	cf, zf := f.Has(FlagCF), f.Has(FlagZF)
	sf, of, pf := f.Has(FlagSF), f.Has(FlagOF), f.Has(FlagPF)

	switch op {
	case instr.OpJo:
		return of
	case instr.OpJno:
		return !of
	case instr.OpJb:
		return cf
	case instr.OpJnb:
		return !cf
	case instr.OpJe:
		return zf
	case instr.OpJne:
		return !zf
	case instr.OpJbe:
		return cf || zf
	case instr.OpJa:
		return !cf && !zf
	case instr.OpJs:
		return sf
	case instr.OpJns:
		return !sf
	case instr.OpJp:
		return pf
	case instr.OpJnp:
		return !pf
	case instr.OpJl:
		return sf != of
	case instr.OpJnl:
		return sf == of
	case instr.OpJle:
		return zf || sf != of
	case instr.OpJg:
		return !zf && sf == of
	case instr.OpJcxz:
		return state.Regs.Read(instr.CX) == 0
	default:
		return false
	}
}
