package btree

// Variable-length integer encoding (SQLite format): big-endian base-128
// groups, high bit of each byte signals continuation, at most 9 bytes.
// The 9th byte contributes all 8 of its bits so the full 64-bit range is
// representable.

// GetVarint reads a 64-bit variable-length integer from p and returns the
// value and the number of bytes read. A length of 0 means p was truncated:
// the continuation bits demanded more bytes than were available. GetVarint
// never reads past the 9th byte.
func GetVarint(p []byte) (uint64, int) {
	if len(p) == 0 {
		return 0, 0
	}

	// Fast path for the common 1-byte case
	if p[0] < 0x80 {
		return uint64(p[0]), 1
	}

	var v uint64
	for i := 0; i < 9; i++ {
		if i >= len(p) {
			return 0, 0
		}
		b := p[i]
		if i == 8 {
			// 9th byte uses all 8 bits, no continuation bit
			return (v << 8) | uint64(b), 9
		}
		v = (v << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return v, i + 1
		}
	}
	return 0, 0
}

// PutVarint writes v to p and returns the number of bytes written.
// p must have room for VarintLen(v) bytes.
func PutVarint(p []byte, v uint64) int {
	if v <= 0x7f {
		p[0] = byte(v)
		return 1
	}

	if v>>56 != 0 {
		// 9-byte case: the final byte carries 8 bits
		p[8] = byte(v)
		v >>= 8
		for i := 7; i >= 0; i-- {
			p[i] = byte(v&0x7f) | 0x80
			v >>= 7
		}
		return 9
	}

	n := VarintLen(v)
	for i := n - 1; i >= 0; i-- {
		shift := uint(i * 7)
		b := byte((v >> shift) & 0x7f)
		if i > 0 {
			b |= 0x80
		}
		p[n-1-i] = b
	}
	return n
}

// AppendVarint appends the varint encoding of v to buf.
func AppendVarint(buf []byte, v uint64) []byte {
	var tmp [9]byte
	n := PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// VarintLen returns the number of bytes required to encode v.
func VarintLen(v uint64) int {
	if v>>56 != 0 {
		return 9
	}
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
