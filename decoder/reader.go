package decoder

// reader is a cursor over the bytes that remain in the instruction stream.
type reader struct {
	src []byte
	pos int
}

func (r *reader) next() (byte, error) {
	if r.pos >= len(r.src) {
		return 0, errTruncated(r.pos)
	}

	b := r.src[r.pos]
	r.pos++

	return b, nil
}

// int8 reads one byte and sign-extends it.
func (r *reader) int8() (int16, error) {
	b, err := r.next()
	if err != nil {
		return 0, err
	}

	return int16(int8(b)), nil
}

// word reads a little-endian 16-bit value.
func (r *reader) word() (int16, error) {
	lo, err := r.next()
	if err != nil {
		return 0, err
	}

	hi, err := r.next()
	if err != nil {
		return 0, err
	}

	return int16(uint16(hi)<<8 | uint16(lo)), nil
}

// data reads an immediate field: two bytes when wide and not narrowed by an
// s bit, otherwise one signed byte.
func (r *reader) data(wide, signExtended bool) (int16, error) {
	if wide && !signExtended {
		return r.word()
	}

	return r.int8()
}
