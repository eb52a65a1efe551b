package core

import "strings"

// Flags is the status part of the 8086 FLAGS register. Bits sit at their
// hardware positions.
type Flags uint16

const (
	FlagCF Flags = 1 << 0
	FlagPF Flags = 1 << 2
	FlagAF Flags = 1 << 4
	FlagZF Flags = 1 << 6
	FlagSF Flags = 1 << 7
	FlagOF Flags = 1 << 11
)

var flagLetters = []struct {
	flag   Flags
	letter byte
}{
	{FlagCF, 'C'},
	{FlagPF, 'P'},
	{FlagAF, 'A'},
	{FlagZF, 'Z'},
	{FlagSF, 'S'},
	{FlagOF, 'O'},
}

// Has reports whether flag is set.
func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

// Set sets or clears flag.
func (f *Flags) Set(flag Flags, on bool) {
	if on {
		*f |= flag
	} else {
		*f &^= flag
	}
}

// String lists the set flags, e.g. "CPZ".
func (f Flags) String() string {
	var b strings.Builder
	for _, fl := range flagLetters {
		if f.Has(fl.flag) {
			b.WriteByte(fl.letter)
		}
	}

	return b.String()
}

// parity reports whether v has an even number of set bits.
func parity(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1

	return v&1 == 0
}
