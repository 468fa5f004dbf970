package record

import (
	"encoding/binary"
	"math"

	"github.com/pagewalk/pagewalk/core/btree"
	"github.com/pagewalk/pagewalk/core/errors"
)

// serialFor maps a value to its serial type. Widths are taken from the
// value's kind, not recomputed, so decode→encode round-trips byte for byte.
func serialFor(v Value) SerialType {
	switch v.Kind {
	case KindNull:
		return SerialNull
	case KindInt8:
		return SerialInt8
	case KindInt16:
		return SerialInt16
	case KindInt24:
		return SerialInt24
	case KindInt32:
		return SerialInt32
	case KindInt48:
		return SerialInt48
	case KindInt64:
		return SerialInt64
	case KindFloat:
		return SerialFloat64
	case KindFalse:
		return SerialZero
	case KindTrue:
		return SerialOne
	case KindBlob:
		return SerialType(12 + 2*len(v.Bytes))
	}
	return SerialType(13 + 2*len(v.Bytes))
}

// Encode builds a record from values. Used by tests and fixture builders;
// the decoder itself never writes.
func Encode(values []Value) ([]byte, error) {
	if len(values) == 0 {
		return nil, errors.NewFormat("record", "cannot encode an empty record")
	}

	serialTypes := make([]SerialType, len(values))
	serialTypesSize := 0
	bodySize := 0
	for i, v := range values {
		st := serialFor(v)
		serialTypes[i] = st
		serialTypesSize += btree.VarintLen(uint64(st))
		bodySize += st.Len()
	}

	// The header size varint counts itself, so iterate until stable.
	headerSize := serialTypesSize + 1
	for {
		next := btree.VarintLen(uint64(headerSize)) + serialTypesSize
		if next == headerSize {
			break
		}
		headerSize = next
	}

	buf := make([]byte, 0, headerSize+bodySize)
	buf = btree.AppendVarint(buf, uint64(headerSize))
	for _, st := range serialTypes {
		buf = btree.AppendVarint(buf, uint64(st))
	}
	for i, v := range values {
		buf = appendValue(buf, v, serialTypes[i])
	}
	return buf, nil
}

func appendValue(buf []byte, v Value, st SerialType) []byte {
	switch st {
	case SerialNull, SerialZero, SerialOne:
		return buf

	case SerialInt8:
		return append(buf, byte(v.Int))

	case SerialInt16:
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(v.Int))
		return append(buf, tmp[:]...)

	case SerialInt24:
		u := uint32(v.Int)
		return append(buf, byte(u>>16), byte(u>>8), byte(u))

	case SerialInt32:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(v.Int))
		return append(buf, tmp[:]...)

	case SerialInt48:
		u := uint64(v.Int)
		return append(buf,
			byte(u>>40), byte(u>>32), byte(u>>24),
			byte(u>>16), byte(u>>8), byte(u))

	case SerialInt64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.Int))
		return append(buf, tmp[:]...)

	case SerialFloat64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v.Float))
		return append(buf, tmp[:]...)
	}

	return append(buf, v.Bytes...)
}
