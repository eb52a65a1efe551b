// Package decoder turns raw 8086 machine code into instr.Instruction values.
//
// Classification is a single pass over opcodeTable: the first entry whose
// masked bits equal its pattern selects the encoding family, and the family
// decides which fields follow the leading byte.
package decoder

import "github.com/sarchlab/sim86/instr"

type family uint8

const (
	familyNone family = iota
	// 00ooo0dw / 100010dw mod reg r/m
	familyRegMemReg
	// 1100011w mod 000 r/m data
	familyImmRM
	// 100000sw mod ooo r/m data
	familyImmRMArith
	// 00ooo10w data
	familyImmAcc
	// 101000dw addr-lo addr-hi
	familyMemAcc
	// 1011wreg data
	familyImmReg
	// 100011d0 mod 0sr r/m
	familySegMove
	// 01000reg
	familyIncReg
	// 1111111w mod 000 r/m
	familyIncRM
	// 0111cccc / 111000cc disp8
	familyJump
	// single byte, ends the stream
	familyTerminal
)

var familyNames = map[family]string{
	familyRegMemReg:  "reg/mem with register",
	familyImmRM:      "immediate to reg/mem",
	familyImmRMArith: "arithmetic immediate to reg/mem",
	familyImmAcc:     "immediate to accumulator",
	familyMemAcc:     "memory to/from accumulator",
	familyImmReg:     "immediate to register",
	familySegMove:    "segment register move",
	familyIncReg:     "increment register",
	familyIncRM:      "increment reg/mem",
	familyJump:       "relative jump",
	familyTerminal:   "terminal",
}

func (f family) String() string {
	if n, ok := familyNames[f]; ok {
		return n
	}

	return "unknown"
}

type opcodeEntry struct {
	Pattern byte
	Mask    byte
	Family  family
	// Op is OpNone when the operation comes from another field.
	Op instr.Op
}

func (e opcodeEntry) matches(b byte) bool {
	return b&e.Mask == e.Pattern
}

var opcodeTable = []opcodeEntry{
	{0x88, 0xFC, familyRegMemReg, instr.OpMov},
	{0x00, 0xFC, familyRegMemReg, instr.OpAdd},
	{0x28, 0xFC, familyRegMemReg, instr.OpSub},
	{0x38, 0xFC, familyRegMemReg, instr.OpCmp},
	{0x30, 0xFC, familyRegMemReg, instr.OpXor},

	{0xC6, 0xFE, familyImmRM, instr.OpMov},
	{0x80, 0xFC, familyImmRMArith, instr.OpNone},

	{0x04, 0xFE, familyImmAcc, instr.OpAdd},
	{0x2C, 0xFE, familyImmAcc, instr.OpSub},
	{0x3C, 0xFE, familyImmAcc, instr.OpCmp},
	{0x34, 0xFE, familyImmAcc, instr.OpXor},

	{0xA0, 0xFC, familyMemAcc, instr.OpMov},
	{0xB0, 0xF0, familyImmReg, instr.OpMov},
	{0x8C, 0xFD, familySegMove, instr.OpMov},

	{0x40, 0xF8, familyIncReg, instr.OpInc},
	{0xFE, 0xFE, familyIncRM, instr.OpInc},

	{0x70, 0xF0, familyJump, instr.OpNone},
	{0xE0, 0xFC, familyJump, instr.OpNone},

	{0xC3, 0xFF, familyTerminal, instr.OpRet},
	{0xF4, 0xFF, familyTerminal, instr.OpHlt},
}

// classify returns the table entry for a leading opcode byte.
func classify(b byte) (opcodeEntry, bool) {
	for _, e := range opcodeTable {
		if e.matches(b) {
			return e, true
		}
	}

	return opcodeEntry{}, false
}

// Operations selected by the reg field of 100000sw.
var arithExtension = [8]instr.Op{
	0: instr.OpAdd,
	5: instr.OpSub,
	6: instr.OpXor,
	7: instr.OpCmp,
}

// Conditional jumps indexed by the low nibble of 0111cccc.
var jccOps = [16]instr.Op{
	instr.OpJo, instr.OpJno, instr.OpJb, instr.OpJnb,
	instr.OpJe, instr.OpJne, instr.OpJbe, instr.OpJa,
	instr.OpJs, instr.OpJns, instr.OpJp, instr.OpJnp,
	instr.OpJl, instr.OpJnl, instr.OpJle, instr.OpJg,
}

// Loop family indexed by the low two bits of 111000cc.
var loopOps = [4]instr.Op{
	instr.OpLoopnz, instr.OpLoopz, instr.OpLoop, instr.OpJcxz,
}

func jumpOp(b byte) instr.Op {
	if b&0xF0 == 0x70 {
		return jccOps[b&0x0F]
	}

	return loopOps[b&0x03]
}

type prefixKind uint8

const (
	prefixNone prefixKind = iota
	prefixLock
	prefixRep
	prefixSegment
)

type prefixEntry struct {
	Pattern byte
	Mask    byte
	Kind    prefixKind
}

var prefixTable = []prefixEntry{
	{0xF0, 0xFF, prefixLock},
	{0xF2, 0xFE, prefixRep},
	{0x26, 0xE7, prefixSegment},
}

func classifyPrefix(b byte) prefixKind {
	for _, p := range prefixTable {
		if b&p.Mask == p.Pattern {
			return p.Kind
		}
	}

	return prefixNone
}

// 001sr110 and the sreg field of 100011d0 both use this order.
var segmentRegs = [4]instr.RegisterAccess{instr.ES, instr.CS, instr.SS, instr.DS}
