// Package record decodes the SQLite record format: a header of varint
// serial-type codes followed by a contiguous value area. Records are not
// self-describing — the caller supplies the column count, because index
// records carry only the key columns plus a rowid, not every table column.
package record

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pagewalk/pagewalk/core/btree"
	"github.com/pagewalk/pagewalk/core/errors"
)

// Serial type codes
//
//	0        NULL                                (0 bytes)
//	1        8-bit signed integer                (1 byte)
//	2        16-bit big-endian signed integer    (2 bytes)
//	3        24-bit big-endian signed integer    (3 bytes)
//	4        32-bit big-endian signed integer    (4 bytes)
//	5        48-bit big-endian signed integer    (6 bytes)
//	6        64-bit big-endian signed integer    (8 bytes)
//	7        IEEE 754 float64, big-endian        (8 bytes)
//	8        integer constant 0                  (0 bytes)
//	9        integer constant 1                  (0 bytes)
//	10, 11   reserved, rejected                  —
//	N>=12 even   BLOB of (N-12)/2 bytes
//	N>=13 odd    TEXT of (N-13)/2 bytes
type SerialType uint64

const (
	SerialNull    SerialType = 0
	SerialInt8    SerialType = 1
	SerialInt16   SerialType = 2
	SerialInt24   SerialType = 3
	SerialInt32   SerialType = 4
	SerialInt48   SerialType = 5
	SerialInt64   SerialType = 6
	SerialFloat64 SerialType = 7
	SerialZero    SerialType = 8
	SerialOne     SerialType = 9
)

// Len returns the number of value-area bytes a value of this serial type
// occupies, or -1 for the reserved codes 10 and 11.
func (st SerialType) Len() int {
	switch st {
	case SerialNull, SerialZero, SerialOne:
		return 0
	case SerialInt8:
		return 1
	case SerialInt16:
		return 2
	case SerialInt24:
		return 3
	case SerialInt32:
		return 4
	case SerialInt48:
		return 6
	case SerialInt64, SerialFloat64:
		return 8
	}
	if st >= 12 {
		return int(st-12) / 2
	}
	return -1
}

// Decode decodes a record with the given column count. data must begin at
// the record's first byte. Extra columns beyond ncols that the record may
// carry are left undecoded.
func Decode(data []byte, ncols int) ([]Value, error) {
	headerSize, n := btree.GetVarint(data)
	if n == 0 {
		return nil, errors.NewTruncated("record header size", 1, len(data))
	}
	if headerSize > uint64(len(data)) {
		return nil, errors.NewFormat("record",
			fmt.Sprintf("header of %d bytes overruns %d-byte payload", headerSize, len(data)))
	}

	// Serial types live between the header-size varint and the end of the
	// header; the value area starts at the header boundary.
	offset := n
	serialTypes := make([]SerialType, 0, ncols)
	for i := 0; i < ncols; i++ {
		if offset >= int(headerSize) {
			return nil, errors.NewFormat("record",
				fmt.Sprintf("header holds %d columns, %d requested", i, ncols))
		}
		st, n := btree.GetVarint(data[offset:])
		if n == 0 {
			return nil, errors.NewTruncated("record serial type", offset+1, len(data))
		}
		serialTypes = append(serialTypes, SerialType(st))
		offset += n
	}

	values := make([]Value, len(serialTypes))
	offset = int(headerSize)
	for i, st := range serialTypes {
		val, n, err := decodeValue(data, offset, st)
		if err != nil {
			return nil, err
		}
		values[i] = val
		offset += n
	}
	return values, nil
}

// decodeValue decodes one value at data[offset:] and returns it with its
// byte length. Integers are sign-extended two's complement for every width;
// assembling them unsigned silently corrupts negative keys.
func decodeValue(data []byte, offset int, st SerialType) (Value, int, error) {
	length := st.Len()
	if length < 0 {
		return Value{}, 0, errors.NewFormat("record",
			fmt.Sprintf("serial type %d is reserved", st))
	}
	if offset+length > len(data) {
		return Value{}, 0, errors.NewTruncated("record value", offset+length, len(data))
	}

	switch st {
	case SerialNull:
		return Value{Kind: KindNull}, 0, nil

	case SerialZero:
		return Value{Kind: KindFalse}, 0, nil

	case SerialOne:
		return Value{Kind: KindTrue}, 0, nil

	case SerialInt8:
		return Value{Kind: KindInt8, Int: int64(int8(data[offset]))}, 1, nil

	case SerialInt16:
		v := int64(int16(binary.BigEndian.Uint16(data[offset:])))
		return Value{Kind: KindInt16, Int: v}, 2, nil

	case SerialInt24:
		v := int64(data[offset])<<16 | int64(data[offset+1])<<8 | int64(data[offset+2])
		if v&0x800000 != 0 {
			v |= ^int64(0xffffff)
		}
		return Value{Kind: KindInt24, Int: v}, 3, nil

	case SerialInt32:
		v := int64(int32(binary.BigEndian.Uint32(data[offset:])))
		return Value{Kind: KindInt32, Int: v}, 4, nil

	case SerialInt48:
		v := int64(data[offset])<<40 | int64(data[offset+1])<<32 |
			int64(data[offset+2])<<24 | int64(data[offset+3])<<16 |
			int64(data[offset+4])<<8 | int64(data[offset+5])
		if v&0x800000000000 != 0 {
			v |= ^int64(0xffffffffffff)
		}
		return Value{Kind: KindInt48, Int: v}, 6, nil

	case SerialInt64:
		v := int64(binary.BigEndian.Uint64(data[offset:]))
		return Value{Kind: KindInt64, Int: v}, 8, nil

	case SerialFloat64:
		v := math.Float64frombits(binary.BigEndian.Uint64(data[offset:]))
		return Value{Kind: KindFloat, Float: v}, 8, nil
	}

	// Blob or text; the slice aliases the record buffer.
	b := data[offset : offset+length]
	if st%2 == 0 {
		return Value{Kind: KindBlob, Bytes: b}, length, nil
	}
	return Value{Kind: KindText, Bytes: b}, length, nil
}
