// Package instr defines the decoded 8086 instruction model shared by the
// decoder, the execution core, the cycle estimator and the printers.
package instr

// Op is the operation tag of a decoded instruction.
type Op int

// Operation tags. OpNone marks an unrecognized instruction.
const (
	OpNone Op = iota
	OpMov
	OpAdd
	OpSub
	OpCmp
	OpInc
	OpXor
	OpJo
	OpJno
	OpJb
	OpJnb
	OpJe
	OpJne
	OpJbe
	OpJa
	OpJs
	OpJns
	OpJp
	OpJnp
	OpJl
	OpJnl
	OpJle
	OpJg
	OpLoopnz
	OpLoopz
	OpLoop
	OpJcxz
	OpRet
	OpHlt
)

var mnemonics = map[Op]string{
	OpMov:    "mov",
	OpAdd:    "add",
	OpSub:    "sub",
	OpCmp:    "cmp",
	OpInc:    "inc",
	OpXor:    "xor",
	OpJo:     "jo",
	OpJno:    "jno",
	OpJb:     "jb",
	OpJnb:    "jnb",
	OpJe:     "je",
	OpJne:    "jne",
	OpJbe:    "jbe",
	OpJa:     "ja",
	OpJs:     "js",
	OpJns:    "jns",
	OpJp:     "jp",
	OpJnp:    "jnp",
	OpJl:     "jl",
	OpJnl:    "jnl",
	OpJle:    "jle",
	OpJg:     "jg",
	OpLoopnz: "loopnz",
	OpLoopz:  "loopz",
	OpLoop:   "loop",
	OpJcxz:   "jcxz",
	OpRet:    "ret",
	OpHlt:    "hlt",
}

// String returns the assembler mnemonic of the operation.
func (o Op) String() string {
	if m, ok := mnemonics[o]; ok {
		return m
	}

	return "(unrecognized)"
}

// IsConditionalJump reports whether the op is a Jcc, loop or jcxz.
func (o Op) IsConditionalJump() bool {
	return o >= OpJo && o <= OpJcxz
}

// IsLoop reports whether the op decrements CX before branching.
func (o Op) IsLoop() bool {
	return o == OpLoop || o == OpLoopz || o == OpLoopnz
}

// IsTerminal reports whether the op ends the decode loop.
func (o Op) IsTerminal() bool {
	return o == OpRet || o == OpHlt
}

// Flags carries the instruction modifiers.
type Flags uint8

const (
	InstWide Flags = 1 << iota
	InstLock
	InstRep
	InstSegment
	InstFar
)

// Has reports whether all bits in f are set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Instruction is a fully decoded instruction.
type Instruction struct {
	// Address is the offset of the first byte in the instruction stream.
	Address uint16
	// Size is the number of bytes consumed, prefixes included.
	Size uint16

	Op       Op
	Flags    Flags
	Operands [2]Operand

	SegmentOverride Reg
}

// Wide reports whether the instruction operates on 16-bit quantities.
func (i Instruction) Wide() bool {
	return i.Flags.Has(InstWide)
}

// Dst returns the first (destination) operand.
func (i Instruction) Dst() Operand {
	return i.Operands[0]
}

// Src returns the second (source) operand.
func (i Instruction) Src() Operand {
	return i.Operands[1]
}

// MemoryOperand returns the memory operand, if the instruction has one.
func (i Instruction) MemoryOperand() (Operand, bool) {
	for _, o := range i.Operands {
		if o.Kind == OperandMemory {
			return o, true
		}
	}

	return Operand{}, false
}
