package decoder

import "github.com/sarchlab/sim86/instr"

type mode byte

const (
	modeMemory       mode = 0x0
	modeMemoryDisp8  mode = 0x1
	modeMemoryDisp16 mode = 0x2
	modeRegister     mode = 0x3
)

// r/m value that means "direct address" under modeMemory.
const directAddressRM = 0x6

type modRM struct {
	mod mode
	reg byte
	rm  byte
}

func splitModRM(b byte) modRM {
	return modRM{
		mod: mode(b >> 6),
		reg: (b >> 3) & 0x7,
		rm:  b & 0x7,
	}
}

// Register selected by a 3-bit field, indexed by [field][w].
var regTable = [8][2]instr.RegisterAccess{
	{instr.AL, instr.AX},
	{instr.CL, instr.CX},
	{instr.DL, instr.DX},
	{instr.BL, instr.BX},
	{instr.AH, instr.SP},
	{instr.CH, instr.BP},
	{instr.DH, instr.SI},
	{instr.BH, instr.DI},
}

func register(field byte, wide bool) instr.RegisterAccess {
	w := 0
	if wide {
		w = 1
	}

	return regTable[field&0x7][w]
}

// Base/index terms of the memory modes, indexed by r/m.
var eaTable = [8][2]instr.RegisterAccess{
	{instr.BX, instr.SI},
	{instr.BX, instr.DI},
	{instr.BP, instr.SI},
	{instr.BP, instr.DI},
	{instr.SI},
	{instr.DI},
	{instr.BP},
	{instr.BX},
}

// resolveRM reads any displacement bytes that follow the mod/reg/rm byte and
// builds the operand selected by mod and r/m.
func (r *reader) resolveRM(m modRM, wide bool) (instr.Operand, error) {
	if m.mod == modeRegister {
		return instr.RegisterOperand(register(m.rm, wide)), nil
	}

	var ea instr.EffectiveAddress

	switch m.mod {
	case modeMemory:
		if m.rm == directAddressRM {
			addr, err := r.word()
			if err != nil {
				return instr.Operand{}, err
			}

			ea.Displacement = addr

			return instr.MemoryOperand(ea), nil
		}
	case modeMemoryDisp8:
		disp, err := r.int8()
		if err != nil {
			return instr.Operand{}, err
		}

		ea.Displacement = disp
	case modeMemoryDisp16:
		disp, err := r.word()
		if err != nil {
			return instr.Operand{}, err
		}

		ea.Displacement = disp
	}

	for i, reg := range eaTable[m.rm] {
		if reg.Index == instr.RegNone {
			continue
		}

		ea.Terms[i] = instr.AddressTerm{Register: reg, Scale: 1}
	}

	if ea.Displacement == 0 {
		ea.Flags |= instr.AddressElideDisplacement
	}

	return instr.MemoryOperand(ea), nil
}
