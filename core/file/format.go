// Package file provides read-only access to a SQLite database image held
// entirely in memory. It parses the 100-byte file header and hands out
// page-sized slices of the underlying buffer; it never copies or mutates
// the buffer.
package file

import (
	"encoding/binary"

	"github.com/pagewalk/pagewalk/core/errors"
)

// File format constants
const (
	// HeaderSize is the size of the database file header (first 100 bytes).
	HeaderSize = 100

	// MinPageSize is the minimum allowed page size (512 bytes).
	MinPageSize = 512

	// MaxPageSize is the maximum allowed page size (65536 bytes).
	MaxPageSize = 65536

	// Magic is the magic header string for SQLite 3 database files.
	// Must be exactly 16 bytes including the null terminator.
	Magic = "SQLite format 3\x00"
)

// Header byte offsets (within the first 100 bytes of the file)
const (
	// OffsetMagic is the offset of the magic header string (16 bytes).
	OffsetMagic = 0

	// OffsetPageSize is the offset of the page size field (2 bytes, big-endian).
	// A stored value of 1 represents 65536 bytes.
	OffsetPageSize = 16

	// OffsetReservedSpace is the reserved space at end of each page (1 byte).
	OffsetReservedSpace = 20

	// OffsetDatabaseSize is the database size in pages (4 bytes, big-endian).
	OffsetDatabaseSize = 28

	// OffsetTextEncoding is the database text encoding (4 bytes, big-endian).
	// 1 = UTF-8, 2 = UTF-16le, 3 = UTF-16be
	OffsetTextEncoding = 56
)

// Header holds the fields of the file header this decoder consumes.
type Header struct {
	// PageSize is the database page size in bytes. The on-disk value 1 has
	// already been expanded to 65536.
	PageSize int

	// ReservedSpace is the number of unused bytes at the end of each page.
	ReservedSpace int

	// PageCount is the database size in pages as recorded in the header.
	// Zero in files written before this field was maintained.
	PageCount uint32

	// TextEncoding is the declared text encoding (1 = UTF-8).
	TextEncoding uint32
}

// ParseHeader parses the 100-byte file header at the start of buf.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, errors.NewTruncated("file header", HeaderSize, len(buf))
	}

	if string(buf[OffsetMagic:OffsetMagic+16]) != Magic {
		return nil, errors.NewFormatAt("file header", OffsetMagic, "bad magic string")
	}

	pageSize := int(binary.BigEndian.Uint16(buf[OffsetPageSize:]))
	if pageSize == 1 {
		pageSize = MaxPageSize
	}
	if pageSize < MinPageSize || pageSize > MaxPageSize || pageSize&(pageSize-1) != 0 {
		return nil, errors.NewFormatAt("file header", OffsetPageSize,
			"page size must be a power of two between 512 and 65536")
	}

	return &Header{
		PageSize:      pageSize,
		ReservedSpace: int(buf[OffsetReservedSpace]),
		PageCount:     binary.BigEndian.Uint32(buf[OffsetDatabaseSize:]),
		TextEncoding:  binary.BigEndian.Uint32(buf[OffsetTextEncoding:]),
	}, nil
}
