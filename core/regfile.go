package core

import "github.com/sarchlab/sim86/instr"

// RegisterFile holds one 16-bit value per register slot. Byte accesses mask
// and shift the owning value, so writing AL never touches AH.
type RegisterFile struct {
	values  [instr.RegCount]uint16
	changed [instr.RegCount]bool
}

// Read returns the value selected by r, zero-extended to 16 bits.
func (rf *RegisterFile) Read(r instr.RegisterAccess) uint16 {
	v := rf.values[r.Index]
	if r.Wide() {
		return v
	}

	return (v >> (8 * uint16(r.Offset&1))) & 0xFF
}

// Write stores v through r and returns the owning register's value before
// and after the write.
func (rf *RegisterFile) Write(r instr.RegisterAccess, v uint16) (before, after uint16) {
	before = rf.values[r.Index]

	if r.Wide() {
		after = v
	} else {
		shift := 8 * uint16(r.Offset&1)
		mask := uint16(0xFF) << shift
		after = before&^mask | (v&0xFF)<<shift
	}

	rf.values[r.Index] = after
	if after != before {
		rf.changed[r.Index] = true
	}

	return before, after
}

// Changed lists, in register order, every register that was written with a
// different value during the session.
func (rf *RegisterFile) Changed() []instr.RegisterAccess {
	var regs []instr.RegisterAccess
	for reg := instr.RegA; reg < instr.RegCount; reg++ {
		if rf.changed[reg] {
			regs = append(regs, instr.Word(reg))
		}
	}

	return regs
}

// Reset zeroes every register and forgets the change history.
func (rf *RegisterFile) Reset() {
	*rf = RegisterFile{}
}
