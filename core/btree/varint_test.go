package btree

import (
	"bytes"
	"math"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    uint64
		len  int
	}{
		{"zero", 0, 1},
		{"one byte max", 0x7f, 1},
		{"two bytes min", 0x80, 2},
		{"two bytes max", 0x3fff, 2},
		{"three bytes min", 0x4000, 3},
		{"seven bytes", 1 << 45, 7},
		{"eight bytes max", 1<<56 - 1, 8},
		{"nine bytes min", 1 << 56, 9},
		{"max int64", math.MaxInt64, 9},
		{"max uint64", math.MaxUint64, 9},
		{"negative rowid as uint64", uint64(0xfffffffffffffffe), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf [9]byte
			n := PutVarint(buf[:], tt.v)
			if n != tt.len {
				t.Errorf("PutVarint(%#x) wrote %d bytes, want %d", tt.v, n, tt.len)
			}
			if got := VarintLen(tt.v); got != tt.len {
				t.Errorf("VarintLen(%#x) = %d, want %d", tt.v, got, tt.len)
			}

			got, m := GetVarint(buf[:n])
			if m != n {
				t.Errorf("GetVarint read %d bytes, want %d", m, n)
			}
			if got != tt.v {
				t.Errorf("GetVarint = %#x, want %#x", got, tt.v)
			}
		})
	}
}

func TestVarintKnownEncodings(t *testing.T) {
	tests := []struct {
		v    uint64
		want []byte
	}{
		{0x00, []byte{0x00}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x81, 0x00}},
		{0x2000, []byte{0xc0, 0x00}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		got := AppendVarint(nil, tt.v)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("AppendVarint(%#x) = %x, want %x", tt.v, got, tt.want)
		}
	}
}

func TestGetVarintTruncated(t *testing.T) {
	tests := []struct {
		name string
		p    []byte
	}{
		{"empty", nil},
		{"continuation with nothing after", []byte{0x81}},
		{"chain cut short", []byte{0xff, 0xff, 0xff}},
		{"eight continuations, ninth missing", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v, n := GetVarint(tt.p); n != 0 {
				t.Errorf("GetVarint(%x) = (%#x, %d), want n == 0", tt.p, v, n)
			}
		})
	}
}

func TestGetVarintIgnoresTrailingBytes(t *testing.T) {
	// The decoder must stop at the value's last byte, not consume the slice.
	p := []byte{0x81, 0x00, 0xde, 0xad}
	v, n := GetVarint(p)
	if v != 0x80 || n != 2 {
		t.Errorf("GetVarint = (%#x, %d), want (0x80, 2)", v, n)
	}
}
