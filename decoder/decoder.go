package decoder

import (
	"errors"
	"fmt"

	"github.com/sarchlab/sim86/instr"
)

var (
	// ErrUnrecognized means no known opcode pattern matched.
	ErrUnrecognized = errors.New("unrecognized instruction")
	// ErrTruncated means the stream ended in the middle of an instruction.
	ErrTruncated = errors.New("truncated instruction")
)

func errTruncated(pos int) error {
	return fmt.Errorf("%w: need byte %d", ErrTruncated, pos+1)
}

// Decode decodes the instruction at the start of src. addr is the offset of
// src[0] in the instruction stream and is recorded in the result. On error
// the caller is expected to stop decoding.
func Decode(src []byte, addr uint16) (instr.Instruction, error) {
	r := reader{src: src}
	inst := instr.Instruction{Address: addr}

	op, err := r.prefixes(&inst)
	if err != nil {
		return instr.Instruction{Address: addr}, fmt.Errorf("at 0x%04x: %w", addr, err)
	}

	entry, ok := classify(op)
	if !ok {
		return instr.Instruction{Address: addr},
			fmt.Errorf("%w: opcode 0x%02x at 0x%04x", ErrUnrecognized, op, addr)
	}

	inst.Op = entry.Op
	if err := r.decodeFamily(entry.Family, op, &inst); err != nil {
		return instr.Instruction{Address: addr},
			fmt.Errorf("%s opcode 0x%02x at 0x%04x: %w", entry.Family, op, addr, err)
	}

	inst.Size = uint16(r.pos)

	return inst, nil
}

// prefixes consumes lock, rep and segment override bytes and returns the
// opcode byte that follows them.
func (r *reader) prefixes(inst *instr.Instruction) (byte, error) {
	for {
		b, err := r.next()
		if err != nil {
			return 0, err
		}

		switch classifyPrefix(b) {
		case prefixLock:
			inst.Flags |= instr.InstLock
		case prefixRep:
			inst.Flags |= instr.InstRep
		case prefixSegment:
			inst.Flags |= instr.InstSegment
			inst.SegmentOverride = segmentRegs[(b>>3)&0x3].Index
		default:
			return b, nil
		}
	}
}

func (r *reader) decodeFamily(f family, op byte, inst *instr.Instruction) error {
	switch f {
	case familyRegMemReg:
		return r.decodeRegMemReg(op, inst)
	case familyImmRM:
		return r.decodeImmRM(op, inst)
	case familyImmRMArith:
		return r.decodeImmRMArith(op, inst)
	case familyImmAcc:
		return r.decodeImmAcc(op, inst)
	case familyMemAcc:
		return r.decodeMemAcc(op, inst)
	case familyImmReg:
		return r.decodeImmReg(op, inst)
	case familySegMove:
		return r.decodeSegMove(op, inst)
	case familyIncReg:
		inst.Flags |= instr.InstWide
		inst.Operands[0] = instr.RegisterOperand(register(op, true))

		return nil
	case familyIncRM:
		return r.decodeIncRM(op, inst)
	case familyJump:
		return r.decodeJump(op, inst)
	case familyTerminal:
		return nil
	default:
		return ErrUnrecognized
	}
}

func setWide(inst *instr.Instruction, wide bool) {
	if wide {
		inst.Flags |= instr.InstWide
	}
}

func (r *reader) modRM() (modRM, error) {
	b, err := r.next()
	if err != nil {
		return modRM{}, err
	}

	return splitModRM(b), nil
}

func (r *reader) decodeRegMemReg(op byte, inst *instr.Instruction) error {
	toReg := op&0x2 != 0
	wide := op&0x1 != 0
	setWide(inst, wide)

	m, err := r.modRM()
	if err != nil {
		return err
	}

	rm, err := r.resolveRM(m, wide)
	if err != nil {
		return err
	}

	reg := instr.RegisterOperand(register(m.reg, wide))
	if toReg {
		inst.Operands = [2]instr.Operand{reg, rm}
	} else {
		inst.Operands = [2]instr.Operand{rm, reg}
	}

	return nil
}

func (r *reader) decodeImmRM(op byte, inst *instr.Instruction) error {
	wide := op&0x1 != 0
	setWide(inst, wide)

	m, err := r.modRM()
	if err != nil {
		return err
	}

	if m.reg != 0 {
		return fmt.Errorf("%w: reg extension %d", ErrUnrecognized, m.reg)
	}

	dst, err := r.resolveRM(m, wide)
	if err != nil {
		return err
	}

	v, err := r.data(wide, false)
	if err != nil {
		return err
	}

	inst.Operands = [2]instr.Operand{dst, instr.ImmediateOperand(v)}

	return nil
}

func (r *reader) decodeImmRMArith(op byte, inst *instr.Instruction) error {
	signExtended := op&0x2 != 0
	wide := op&0x1 != 0
	setWide(inst, wide)

	m, err := r.modRM()
	if err != nil {
		return err
	}

	inst.Op = arithExtension[m.reg]
	if inst.Op == instr.OpNone {
		return fmt.Errorf("%w: reg extension %d", ErrUnrecognized, m.reg)
	}

	dst, err := r.resolveRM(m, wide)
	if err != nil {
		return err
	}

	v, err := r.data(wide, signExtended)
	if err != nil {
		return err
	}

	inst.Operands = [2]instr.Operand{dst, instr.ImmediateOperand(v)}

	return nil
}

func (r *reader) decodeImmAcc(op byte, inst *instr.Instruction) error {
	wide := op&0x1 != 0
	setWide(inst, wide)

	v, err := r.data(wide, false)
	if err != nil {
		return err
	}

	inst.Operands = [2]instr.Operand{
		instr.RegisterOperand(register(0, wide)),
		instr.ImmediateOperand(v),
	}

	return nil
}

func (r *reader) decodeMemAcc(op byte, inst *instr.Instruction) error {
	toMemory := op&0x2 != 0
	wide := op&0x1 != 0
	setWide(inst, wide)

	addr, err := r.word()
	if err != nil {
		return err
	}

	mem := instr.MemoryOperand(instr.EffectiveAddress{Displacement: addr})
	acc := instr.RegisterOperand(register(0, wide))
	if toMemory {
		inst.Operands = [2]instr.Operand{mem, acc}
	} else {
		inst.Operands = [2]instr.Operand{acc, mem}
	}

	return nil
}

func (r *reader) decodeImmReg(op byte, inst *instr.Instruction) error {
	wide := op&0x8 != 0
	setWide(inst, wide)

	v, err := r.data(wide, false)
	if err != nil {
		return err
	}

	inst.Operands = [2]instr.Operand{
		instr.RegisterOperand(register(op, wide)),
		instr.ImmediateOperand(v),
	}

	return nil
}

func (r *reader) decodeSegMove(op byte, inst *instr.Instruction) error {
	toSegment := op&0x2 != 0
	inst.Flags |= instr.InstWide

	m, err := r.modRM()
	if err != nil {
		return err
	}

	if m.reg&0x4 != 0 {
		return fmt.Errorf("%w: segment field %d", ErrUnrecognized, m.reg)
	}

	rm, err := r.resolveRM(m, true)
	if err != nil {
		return err
	}

	seg := instr.RegisterOperand(segmentRegs[m.reg])
	if toSegment {
		inst.Operands = [2]instr.Operand{seg, rm}
	} else {
		inst.Operands = [2]instr.Operand{rm, seg}
	}

	return nil
}

func (r *reader) decodeIncRM(op byte, inst *instr.Instruction) error {
	wide := op&0x1 != 0
	setWide(inst, wide)

	m, err := r.modRM()
	if err != nil {
		return err
	}

	if m.reg != 0 {
		return fmt.Errorf("%w: reg extension %d", ErrUnrecognized, m.reg)
	}

	dst, err := r.resolveRM(m, wide)
	if err != nil {
		return err
	}

	inst.Operands[0] = dst

	return nil
}

func (r *reader) decodeJump(op byte, inst *instr.Instruction) error {
	inst.Op = jumpOp(op)

	disp, err := r.int8()
	if err != nil {
		return err
	}

	inst.Operands[0] = instr.RelativeJumpOperand(disp)

	return nil
}

// Stream walks a buffer of machine code one instruction at a time. It stops
// at the end of the buffer, on the first decode error, or after yielding a
// ret/hlt.
type Stream struct {
	code   []byte
	offset int
	inst   instr.Instruction
	err    error
	done   bool
}

// NewStream creates a stream over code.
func NewStream(code []byte) *Stream {
	return &Stream{code: code}
}

// Next decodes the next instruction and reports whether one is available.
func (s *Stream) Next() bool {
	if s.done || s.offset >= len(s.code) {
		return false
	}

	inst, err := Decode(s.code[s.offset:], uint16(s.offset))
	if err != nil {
		s.err = err
		s.done = true

		return false
	}

	s.inst = inst
	s.offset += int(inst.Size)
	s.done = inst.Op.IsTerminal()

	return true
}

// Instruction returns the instruction decoded by the last call to Next.
func (s *Stream) Instruction() instr.Instruction {
	return s.inst
}

// Offset returns the number of bytes consumed so far.
func (s *Stream) Offset() int {
	return s.offset
}

// Err returns the decode error that stopped the stream, if any.
func (s *Stream) Err() error {
	return s.err
}
