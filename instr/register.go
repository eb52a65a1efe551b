package instr

import "fmt"

// Reg indexes a 16-bit register slot.
type Reg uint8

const (
	RegNone Reg = iota
	RegA
	RegB
	RegC
	RegD
	RegSP
	RegBP
	RegSI
	RegDI
	RegES
	RegCS
	RegSS
	RegDS
	RegIP
	RegFlags

	RegCount
)

// RegisterAccess selects a register or one of its byte halves. Count is 1
// for a byte half (Offset 0 low, 1 high) and 2 for the full register.
type RegisterAccess struct {
	Index  Reg
	Offset uint8
	Count  uint8
}

// Full returns the 16-bit access to the owning register.
func (r RegisterAccess) Full() RegisterAccess {
	return RegisterAccess{Index: r.Index, Count: 2}
}

// Wide reports whether the access covers the whole register.
func (r RegisterAccess) Wide() bool {
	return r.Count == 2
}

// Word returns the 16-bit access to reg.
func Word(reg Reg) RegisterAccess {
	return RegisterAccess{Index: reg, Count: 2}
}

var (
	AL = RegisterAccess{RegA, 0, 1}
	AH = RegisterAccess{RegA, 1, 1}
	AX = Word(RegA)
	BL = RegisterAccess{RegB, 0, 1}
	BH = RegisterAccess{RegB, 1, 1}
	BX = Word(RegB)
	CL = RegisterAccess{RegC, 0, 1}
	CH = RegisterAccess{RegC, 1, 1}
	CX = Word(RegC)
	DL = RegisterAccess{RegD, 0, 1}
	DH = RegisterAccess{RegD, 1, 1}
	DX = Word(RegD)
	SP = Word(RegSP)
	BP = Word(RegBP)
	SI = Word(RegSI)
	DI = Word(RegDI)
	ES = Word(RegES)
	CS = Word(RegCS)
	SS = Word(RegSS)
	DS = Word(RegDS)
	IP = Word(RegIP)
)

var fullNames = [RegCount]string{
	"", "ax", "bx", "cx", "dx", "sp", "bp", "si", "di",
	"es", "cs", "ss", "ds", "ip", "flags",
}

var halfNames = [RegDS + 1][2]string{
	RegA: {"al", "ah"},
	RegB: {"bl", "bh"},
	RegC: {"cl", "ch"},
	RegD: {"dl", "dh"},
}

// Name returns the assembler name of the access.
func (r RegisterAccess) Name() string {
	if r.Index >= RegCount {
		return fmt.Sprintf("reg%d", r.Index)
	}

	if r.Count == 1 && r.Index <= RegD && r.Index != RegNone {
		return halfNames[r.Index][r.Offset&1]
	}

	return fullNames[r.Index]
}

// String implements fmt.Stringer.
func (r RegisterAccess) String() string {
	return r.Name()
}

// RegisterByName looks up an access by its assembler name.
func RegisterByName(name string) (RegisterAccess, bool) {
	for reg := RegA; reg < RegCount; reg++ {
		if fullNames[reg] == name {
			return Word(reg), true
		}
	}

	for reg := RegA; reg <= RegD; reg++ {
		for off, n := range halfNames[reg] {
			if n == name {
				return RegisterAccess{Index: reg, Offset: uint8(off), Count: 1}, true
			}
		}
	}

	return RegisterAccess{}, false
}
