package instr

// OperandKind tags the Operand variant.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandRegister
	OperandMemory
	OperandImmediate
)

// Operand is one of None, Register, Memory or Immediate, selected by Kind.
// Only the field matching Kind is meaningful.
type Operand struct {
	Kind      OperandKind
	Register  RegisterAccess
	Address   EffectiveAddress
	Immediate Immediate
}

// RegisterOperand wraps a register access.
func RegisterOperand(r RegisterAccess) Operand {
	return Operand{Kind: OperandRegister, Register: r}
}

// MemoryOperand wraps an effective address.
func MemoryOperand(ea EffectiveAddress) Operand {
	return Operand{Kind: OperandMemory, Address: ea}
}

// ImmediateOperand wraps a plain immediate value.
func ImmediateOperand(v int16) Operand {
	return Operand{Kind: OperandImmediate, Immediate: Immediate{Value: v}}
}

// RelativeJumpOperand wraps a branch displacement.
func RelativeJumpOperand(disp int16) Operand {
	return Operand{
		Kind:      OperandImmediate,
		Immediate: Immediate{Value: disp, Flags: ImmediateRelativeJump},
	}
}

// IsAccumulator reports whether the operand is AL or AX. AH has no short
// accumulator encodings.
func (o Operand) IsAccumulator() bool {
	return o.Kind == OperandRegister &&
		o.Register.Index == RegA &&
		o.Register.Offset == 0
}

// ImmediateFlags qualifies an immediate.
type ImmediateFlags uint8

const (
	ImmediateRelativeJump ImmediateFlags = 1 << iota
)

// Immediate is a 16-bit signed constant. Byte immediates are stored
// sign-extended from their 8-bit encoding.
type Immediate struct {
	Value int16
	Flags ImmediateFlags
}

// IsRelativeJump reports whether the immediate is a branch displacement.
func (i Immediate) IsRelativeJump() bool {
	return i.Flags&ImmediateRelativeJump != 0
}

// AddressFlags qualifies an effective address.
type AddressFlags uint8

const (
	AddressExplicitSegment AddressFlags = 1 << iota
	// AddressElideDisplacement is set by the resolver when a zero
	// displacement was encoded next to at least one base/index term.
	AddressElideDisplacement
)

// AddressTerm is one base or index component of an effective address.
type AddressTerm struct {
	Register RegisterAccess
	Scale    int
}

// Present reports whether the term refers to a register.
func (t AddressTerm) Present() bool {
	return t.Register.Index != RegNone
}

// EffectiveAddress describes a memory reference: up to two register terms
// plus a signed displacement.
type EffectiveAddress struct {
	Terms        [2]AddressTerm
	Displacement int16
	Flags        AddressFlags

	ExplicitSegment uint16
}

// TermCount returns how many base/index terms participate.
func (ea EffectiveAddress) TermCount() int {
	n := 0
	for _, t := range ea.Terms {
		if t.Present() {
			n++
		}
	}

	return n
}

// IsDirect reports whether the address is a bare 16-bit constant.
func (ea EffectiveAddress) IsDirect() bool {
	return ea.TermCount() == 0
}

// ElideDisplacement reports whether a printer should omit the displacement.
func (ea EffectiveAddress) ElideDisplacement() bool {
	return ea.Flags&AddressElideDisplacement != 0
}

// RegisterReader gives read access to register values.
type RegisterReader interface {
	Read(r RegisterAccess) uint16
}

// Resolve evaluates the address against the current register values. The
// sum wraps at 16 bits like the real address bus.
func (ea EffectiveAddress) Resolve(regs RegisterReader) uint16 {
	addr := uint16(ea.Displacement)
	for _, t := range ea.Terms {
		if !t.Present() {
			continue
		}

		scale := t.Scale
		if scale == 0 {
			scale = 1
		}
		addr += regs.Read(t.Register) * uint16(scale)
	}

	return addr
}
