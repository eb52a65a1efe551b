// Package timing estimates 8086 clock counts from decoded instructions using
// the published per-form tables, the effective-address surcharge and the
// odd-address word penalty.
package timing

import "github.com/sarchlab/sim86/instr"

// Cost is the clock estimate for one instruction.
type Cost struct {
	// Base is the table entry for the instruction form.
	Base int
	// EA is the effective-address calculation surcharge.
	EA int
	// Penalty is the odd-address word transfer penalty.
	Penalty int
	// Taken is added when a branch transfers control.
	Taken int
}

// Total returns the clocks spent by the instruction.
func (c Cost) Total(taken bool) int {
	t := c.Base + c.EA + c.Penalty
	if taken {
		t += c.Taken
	}

	return t
}

const misalignmentPenalty = 4

// form classifies an instruction by its operand kinds.
type form uint8

const (
	formRegReg form = iota
	formRegMem
	formMemReg
	formRegImm
	formMemImm
	formAccImm
	formAccMem
	formMemAcc
)

// baseCycles holds the table entry per operation and form. Forms that an
// operation cannot take are absent.
var baseCycles = map[instr.Op]map[form]int{
	instr.OpMov: {
		formRegReg: 2, formRegMem: 8, formMemReg: 9,
		formRegImm: 4, formMemImm: 10, formAccImm: 4,
		formAccMem: 10, formMemAcc: 10,
	},
	instr.OpAdd: arith,
	instr.OpSub: arith,
	instr.OpXor: arith,
	instr.OpCmp: {
		formRegReg: 3, formRegMem: 9, formMemReg: 9,
		formRegImm: 4, formMemImm: 10, formAccImm: 4,
	},
}

var arith = map[form]int{
	formRegReg: 3, formRegMem: 9, formMemReg: 16,
	formRegImm: 4, formMemImm: 17, formAccImm: 4,
}

type branchCycles struct {
	base, taken int
}

var branches = map[instr.Op]branchCycles{
	instr.OpLoop:   {5, 12},
	instr.OpLoopz:  {6, 12},
	instr.OpLoopnz: {5, 14},
	instr.OpJcxz:   {6, 12},
}

const (
	jccBase  = 4
	jccTaken = 12
	retBase  = 8
	hltBase  = 2
)

// Estimate computes the cost of inst. regs supplies the register values
// used to resolve memory operands for the alignment check; it is read, never
// written. A nil regs skips the alignment check for register-based
// addresses.
func Estimate(inst instr.Instruction, regs instr.RegisterReader) Cost {
	switch {
	case inst.Op.IsConditionalJump():
		if b, ok := branches[inst.Op]; ok {
			return Cost{Base: b.base, Taken: b.taken}
		}

		return Cost{Base: jccBase, Taken: jccTaken}
	case inst.Op == instr.OpRet:
		return Cost{Base: retBase}
	case inst.Op == instr.OpHlt:
		return Cost{Base: hltBase}
	case inst.Op == instr.OpInc:
		return estimateInc(inst, regs)
	}

	f, ok := classify(inst)
	if !ok {
		return Cost{}
	}

	c := Cost{Base: baseCycles[inst.Op][f]}

	if m, ok := memoryOperand(inst); ok {
		if f != formAccMem && f != formMemAcc {
			c.EA = EACycles(m.Address)
		}

		c.Penalty = penalty(inst, m, regs)
	}

	return c
}

func estimateInc(inst instr.Instruction, regs instr.RegisterReader) Cost {
	dst := inst.Dst()

	switch dst.Kind {
	case instr.OperandRegister:
		if dst.Register.Wide() {
			return Cost{Base: 2}
		}

		return Cost{Base: 3}
	case instr.OperandMemory:
		return Cost{
			Base:    15,
			EA:      EACycles(dst.Address),
			Penalty: penalty(inst, dst, regs),
		}
	default:
		return Cost{}
	}
}

func classify(inst instr.Instruction) (form, bool) {
	dst, src := inst.Dst(), inst.Src()

	var f form

	switch {
	case dst.Kind == instr.OperandRegister && src.Kind == instr.OperandRegister:
		f = formRegReg
	case dst.Kind == instr.OperandRegister && src.Kind == instr.OperandMemory:
		f = formRegMem
		if inst.Op == instr.OpMov && dst.IsAccumulator() && src.Address.IsDirect() {
			f = formAccMem
		}
	case dst.Kind == instr.OperandMemory && src.Kind == instr.OperandRegister:
		f = formMemReg
		if inst.Op == instr.OpMov && src.IsAccumulator() && dst.Address.IsDirect() {
			f = formMemAcc
		}
	case dst.Kind == instr.OperandRegister && src.Kind == instr.OperandImmediate:
		f = formRegImm
		if dst.IsAccumulator() && inst.Op != instr.OpMov {
			f = formAccImm
		}
	case dst.Kind == instr.OperandMemory && src.Kind == instr.OperandImmediate:
		f = formMemImm
	default:
		return 0, false
	}

	_, ok := baseCycles[inst.Op][f]

	return f, ok
}

func memoryOperand(inst instr.Instruction) (instr.Operand, bool) {
	for _, o := range inst.Operands {
		if o.Kind == instr.OperandMemory {
			return o, true
		}
	}

	return instr.Operand{}, false
}

// penalty returns the odd-address surcharge for a word access. Without a
// reader only direct addresses can be checked.
func penalty(inst instr.Instruction, m instr.Operand, regs instr.RegisterReader) int {
	if !inst.Wide() {
		return 0
	}

	if regs == nil && !m.Address.IsDirect() {
		return 0
	}

	if m.Address.Resolve(regs)&1 == 1 {
		return misalignmentPenalty
	}

	return 0
}

// EACycles returns the effective-address surcharge for ea.
func EACycles(ea instr.EffectiveAddress) int {
	var c int

	switch ea.TermCount() {
	case 0:
		return 6
	case 1:
		c = 5
	default:
		base := ea.Terms[0].Register.Index
		index := ea.Terms[1].Register.Index

		if base == instr.RegBP && index == instr.RegDI ||
			base == instr.RegB && index == instr.RegSI {
			c = 7
		} else {
			c = 8
		}
	}

	if ea.Displacement != 0 {
		c += 4
	}

	return c
}

// Estimator keeps the running clock total across a stream.
type Estimator struct {
	total int
}

// NewEstimator creates an estimator with a zero total.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate is a convenience wrapper around the package-level Estimate.
func (e *Estimator) Estimate(inst instr.Instruction, regs instr.RegisterReader) Cost {
	return Estimate(inst, regs)
}

// Accumulate adds the clocks spent by an instruction and returns the new
// running total.
func (e *Estimator) Accumulate(c Cost, taken bool) int {
	e.total += c.Total(taken)
	return e.total
}

// Total returns the running total.
func (e *Estimator) Total() int {
	return e.total
}

// Reset zeroes the running total.
func (e *Estimator) Reset() {
	e.total = 0
}
