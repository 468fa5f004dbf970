// Package btree decodes SQLite B-tree pages and streams their contents in
// key order. It understands the two tree flavors of the file format: table
// trees (keyed by rowid, full rows in the leaves) and index trees (keyed by
// column values, every cell carries a key record).
package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/pagewalk/pagewalk/core/errors"
)

// PageType is the page-type tag stored in the first byte of a page header.
type PageType byte

// The four valid page-type tags.
const (
	InteriorIndex PageType = 0x02
	InteriorTable PageType = 0x05
	LeafIndex     PageType = 0x0a
	LeafTable     PageType = 0x0d
)

// Header sizes. The length is derived from the page type: interior pages
// carry a 4-byte right-most child pointer that leaf pages lack.
const (
	leafHeaderSize     = 8
	interiorHeaderSize = 12

	// fileHeaderSize is the database file header that precedes the page
	// header on page 1.
	fileHeaderSize = 100
)

// IsLeaf reports whether t is one of the two leaf page types.
func (t PageType) IsLeaf() bool {
	return t == LeafIndex || t == LeafTable
}

// IsInterior reports whether t is one of the two interior page types.
func (t PageType) IsInterior() bool {
	return t == InteriorIndex || t == InteriorTable
}

// IsTable reports whether t belongs to a table (rowid-keyed) tree.
func (t PageType) IsTable() bool {
	return t == InteriorTable || t == LeafTable
}

// IsIndex reports whether t belongs to an index tree.
func (t PageType) IsIndex() bool {
	return t == InteriorIndex || t == LeafIndex
}

func (t PageType) String() string {
	switch t {
	case InteriorIndex:
		return "interior index"
	case InteriorTable:
		return "interior table"
	case LeafIndex:
		return "leaf index"
	case LeafTable:
		return "leaf table"
	}
	return fmt.Sprintf("unknown (0x%02x)", byte(t))
}

// PageHeader is the parsed header of a B-tree page.
type PageHeader struct {
	Type             PageType
	FirstFreeblock   uint16 // Offset to first freeblock (0 if none)
	NumCells         uint16 // Number of cells on this page
	CellContentStart uint16 // Start of the cell content area
	FragmentedBytes  byte   // Fragmented free bytes within the content area
	RightChild       uint32 // Right-most child page (interior pages only)

	// HeaderSize is 8 for leaf pages, 12 for interior pages.
	HeaderSize int

	// CellPtrOffset is where the cell pointer array starts, relative to the
	// start of the page (accounts for the file header on page 1).
	CellPtrOffset int
}

// ParsePageHeader parses the B-tree page header of the given page. Page 1
// carries the 100-byte file header before its page header; pass the page
// number so the offset is applied.
func ParsePageHeader(page []byte, pageNum uint32) (*PageHeader, error) {
	offset := 0
	if pageNum == 1 {
		offset = fileHeaderSize
	}
	if len(page) < offset+leafHeaderSize {
		return nil, errors.NewTruncated("page header", offset+leafHeaderSize, len(page))
	}

	t := PageType(page[offset])
	switch t {
	case InteriorIndex, InteriorTable, LeafIndex, LeafTable:
	default:
		return nil, errors.NewFormatAt("page header", offset,
			fmt.Sprintf("invalid page type: 0x%02x", byte(t)))
	}

	h := &PageHeader{
		Type:             t,
		FirstFreeblock:   binary.BigEndian.Uint16(page[offset+1:]),
		NumCells:         binary.BigEndian.Uint16(page[offset+3:]),
		CellContentStart: binary.BigEndian.Uint16(page[offset+5:]),
		FragmentedBytes:  page[offset+7],
		HeaderSize:       leafHeaderSize,
	}

	if t.IsInterior() {
		if len(page) < offset+interiorHeaderSize {
			return nil, errors.NewTruncated("page header", offset+interiorHeaderSize, len(page))
		}
		h.RightChild = binary.BigEndian.Uint32(page[offset+8:])
		h.HeaderSize = interiorHeaderSize
	}
	h.CellPtrOffset = offset + h.HeaderSize

	return h, nil
}

// CellPointer returns the byte offset (from the start of the page) of the
// i-th cell.
func (h *PageHeader) CellPointer(page []byte, i int) (int, error) {
	if i < 0 || i >= int(h.NumCells) {
		return 0, errors.NewFormat("cell pointer",
			fmt.Sprintf("cell index %d out of range (page has %d cells)", i, h.NumCells))
	}
	ptrOffset := h.CellPtrOffset + i*2
	if ptrOffset+2 > len(page) {
		return 0, errors.NewTruncated("cell pointer array", ptrOffset+2, len(page))
	}
	return int(binary.BigEndian.Uint16(page[ptrOffset:])), nil
}

func (h *PageHeader) String() string {
	return fmt.Sprintf("PageHeader{type=%s, cells=%d, contentStart=%d, freeblock=%d, fragmented=%d}",
		h.Type, h.NumCells, h.CellContentStart, h.FirstFreeblock, h.FragmentedBytes)
}
