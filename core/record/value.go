package record

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind identifies the decoded shape of a column value. Integer kinds keep
// the on-disk width so a record can be re-encoded without widening.
type Kind int

const (
	KindNull Kind = iota
	KindInt8
	KindInt16
	KindInt24
	KindInt32
	KindInt48
	KindInt64
	KindFloat
	KindFalse
	KindTrue
	KindBlob
	KindText
)

// Value is one decoded column value. Bytes aliases the record buffer for
// text and blob kinds; consumers treat it as read-only.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bytes []byte
}

// IsInt reports whether the value carries an integer (including the 0/1
// constant kinds).
func (v Value) IsInt() bool {
	switch v.Kind {
	case KindInt8, KindInt16, KindInt24, KindInt32, KindInt48, KindInt64, KindFalse, KindTrue:
		return true
	}
	return false
}

// Int64 returns the integer payload. KindFalse and KindTrue yield 0 and 1;
// other kinds yield 0.
func (v Value) Int64() int64 {
	switch v.Kind {
	case KindFalse:
		return 0
	case KindTrue:
		return 1
	}
	if v.IsInt() {
		return v.Int
	}
	return 0
}

// Display renders the value as display text. NULL renders empty, the 0/1
// constants render as "false"/"true", and blobs render as hex. Text with
// invalid UTF-8 sequences has them replaced with U+FFFD — an explicit lossy
// policy, never a silent truncation.
func (v Value) Display() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindFalse:
		return "false"
	case KindTrue:
		return "true"
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBlob:
		return hex.EncodeToString(v.Bytes)
	case KindText:
		s := string(v.Bytes)
		if !utf8.ValidString(s) {
			s = strings.ToValidUTF8(s, "�")
		}
		return s
	}
	return strconv.FormatInt(v.Int, 10)
}

// Constructors used by fixtures and the encode path.

// NullValue returns a NULL value.
func NullValue() Value {
	return Value{Kind: KindNull}
}

// IntValue returns an integer value in the narrowest width that holds i.
// It never picks the 0/1 constant kinds; use FalseValue/TrueValue for those.
func IntValue(i int64) Value {
	switch {
	case i >= -128 && i <= 127:
		return Value{Kind: KindInt8, Int: i}
	case i >= -32768 && i <= 32767:
		return Value{Kind: KindInt16, Int: i}
	case i >= -8388608 && i <= 8388607:
		return Value{Kind: KindInt24, Int: i}
	case i >= -2147483648 && i <= 2147483647:
		return Value{Kind: KindInt32, Int: i}
	case i >= -140737488355328 && i <= 140737488355327:
		return Value{Kind: KindInt48, Int: i}
	}
	return Value{Kind: KindInt64, Int: i}
}

// FalseValue returns the integer-0 constant.
func FalseValue() Value {
	return Value{Kind: KindFalse}
}

// TrueValue returns the integer-1 constant.
func TrueValue() Value {
	return Value{Kind: KindTrue}
}

// FloatValue returns a float value.
func FloatValue(f float64) Value {
	return Value{Kind: KindFloat, Float: f}
}

// TextValue returns a text value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Bytes: []byte(s)}
}

// BlobValue returns a blob value.
func BlobValue(b []byte) Value {
	return Value{Kind: KindBlob, Bytes: b}
}
