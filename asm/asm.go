// Package asm renders decoded instructions in NASM syntax.
package asm

import (
	"fmt"
	"strings"

	"github.com/sarchlab/sim86/instr"
)

// Format renders inst as a single line of assembly, without a newline.
func Format(inst instr.Instruction) string {
	var b strings.Builder

	if inst.Flags.Has(instr.InstLock) {
		b.WriteString("lock ")
	}

	if inst.Flags.Has(instr.InstRep) {
		b.WriteString("rep ")
	}

	b.WriteString(inst.Op.String())

	sep := " "
	for _, o := range inst.Operands {
		if o.Kind == instr.OperandNone {
			continue
		}

		b.WriteString(sep)
		sep = ", "
		b.WriteString(operand(inst, o))
	}

	return b.String()
}

func operand(inst instr.Instruction, o instr.Operand) string {
	switch o.Kind {
	case instr.OperandRegister:
		return o.Register.Name()
	case instr.OperandMemory:
		return memory(inst, o.Address)
	case instr.OperandImmediate:
		if o.Immediate.IsRelativeJump() {
			return fmt.Sprintf("$%+d", int(o.Immediate.Value)+int(inst.Size))
		}

		return fmt.Sprintf("%d", o.Immediate.Value)
	default:
		return ""
	}
}

func memory(inst instr.Instruction, ea instr.EffectiveAddress) string {
	if ea.Flags&instr.AddressExplicitSegment != 0 {
		return fmt.Sprintf("%d:%d", ea.ExplicitSegment, uint16(ea.Displacement))
	}

	var b strings.Builder

	if inst.Flags.Has(instr.InstFar) {
		b.WriteString("far ")
	}

	if inst.Dst().Kind != instr.OperandRegister {
		if inst.Wide() {
			b.WriteString("word ")
		} else {
			b.WriteString("byte ")
		}
	}

	if inst.Flags.Has(instr.InstSegment) {
		b.WriteString(instr.Word(inst.SegmentOverride).Name())
		b.WriteByte(':')
	}

	b.WriteByte('[')
	b.WriteString(Address(ea))
	b.WriteByte(']')

	return b.String()
}

// Address renders the inside of a memory operand, e.g. "bp+si-4".
func Address(ea instr.EffectiveAddress) string {
	var b strings.Builder

	sep := ""
	for _, t := range ea.Terms {
		if !t.Present() {
			continue
		}

		b.WriteString(sep)
		if t.Scale != 1 && t.Scale != 0 {
			fmt.Fprintf(&b, "%d*", t.Scale)
		}
		b.WriteString(t.Register.Name())
		sep = "+"
	}

	if ea.IsDirect() {
		fmt.Fprintf(&b, "%d", uint16(ea.Displacement))
	} else if !ea.ElideDisplacement() && ea.Displacement != 0 {
		fmt.Fprintf(&b, "%+d", ea.Displacement)
	}

	return b.String()
}
