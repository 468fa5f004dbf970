// Package dbbuild assembles minimal database images in memory. Tests use it
// to craft files with known page layouts — multi-level trees, hand-picked
// cell contents — without shelling out to a real SQLite.
package dbbuild

import (
	"encoding/binary"
	"fmt"

	"github.com/pagewalk/pagewalk/core/btree"
	"github.com/pagewalk/pagewalk/core/record"
)

const fileHeaderSize = 100

// Builder accumulates pages and emits a complete database image. Page 1 is
// reserved for the catalog; set it with SetCatalogPage before Build.
type Builder struct {
	pageSize int
	pages    [][]byte
}

// New returns a builder for images with the given page size. pageSize must
// be one of the valid on-disk sizes (power of two, 512..65536); fixtures
// that want odd layouts can still build them by hand.
func New(pageSize int) *Builder {
	b := &Builder{pageSize: pageSize}
	b.pages = append(b.pages, make([]byte, pageSize)) // placeholder page 1
	return b
}

// PageSize returns the image's page size.
func (b *Builder) PageSize() int {
	return b.pageSize
}

// SetCatalogPage installs the given page image as page 1. The content must
// have been built with the page header at offset 100 (see CatalogPage);
// its first 100 bytes are overwritten with the file header at Build time.
func (b *Builder) SetCatalogPage(page []byte) {
	if len(page) != b.pageSize {
		panic(fmt.Sprintf("dbbuild: page is %d bytes, want %d", len(page), b.pageSize))
	}
	b.pages[0] = page
}

// AddPage appends a page and returns its 1-based page number.
func (b *Builder) AddPage(page []byte) uint32 {
	if len(page) != b.pageSize {
		panic(fmt.Sprintf("dbbuild: page is %d bytes, want %d", len(page), b.pageSize))
	}
	b.pages = append(b.pages, page)
	return uint32(len(b.pages))
}

// Build emits the complete image: the 100-byte file header written over the
// start of page 1, followed by the remaining pages.
func (b *Builder) Build() []byte {
	buf := make([]byte, 0, b.pageSize*len(b.pages))
	for _, p := range b.pages {
		buf = append(buf, p...)
	}

	copy(buf, "SQLite format 3\x00")
	pageSizeField := b.pageSize
	if pageSizeField == 65536 {
		pageSizeField = 1
	}
	binary.BigEndian.PutUint16(buf[16:], uint16(pageSizeField))
	buf[18] = 1 // file format write version
	buf[19] = 1 // file format read version
	buf[21] = 64
	buf[22] = 32
	buf[23] = 32
	binary.BigEndian.PutUint32(buf[28:], uint32(len(b.pages)))
	binary.BigEndian.PutUint32(buf[56:], 1) // UTF-8
	return buf
}

// buildPage lays out a page: header at headerOffset, cell pointer array
// after it, cells packed against the end of the page in reverse physical
// order (pointer order stays logical order).
func buildPage(pageSize, headerOffset int, t btree.PageType, right uint32, cells [][]byte) []byte {
	page := make([]byte, pageSize)

	headerSize := 8
	if t.IsInterior() {
		headerSize = 12
	}

	contentEnd := pageSize
	ptrOffset := headerOffset + headerSize
	for i, cell := range cells {
		contentEnd -= len(cell)
		if contentEnd < ptrOffset+len(cells)*2 {
			panic(fmt.Sprintf("dbbuild: %d cells overflow a %d-byte page", len(cells), pageSize))
		}
		copy(page[contentEnd:], cell)
		binary.BigEndian.PutUint16(page[ptrOffset+i*2:], uint16(contentEnd))
	}

	page[headerOffset] = byte(t)
	binary.BigEndian.PutUint16(page[headerOffset+3:], uint16(len(cells)))
	contentStart := contentEnd
	if len(cells) == 0 {
		contentStart = pageSize
	}
	binary.BigEndian.PutUint16(page[headerOffset+5:], uint16(contentStart%65536))
	if t.IsInterior() {
		binary.BigEndian.PutUint32(page[headerOffset+8:], right)
	}
	return page
}

// TableLeafRow pairs a rowid with its encoded record.
type TableLeafRow struct {
	Rowid  int64
	Record []byte
}

// TableInteriorEntry pairs a left child page with its routing rowid.
type TableInteriorEntry struct {
	Child uint32
	Rowid int64
}

// IndexInteriorEntry pairs a left child page with the cell's own key record.
type IndexInteriorEntry struct {
	Child  uint32
	Record []byte
}

// TableLeafCell encodes a table leaf cell: payload size, rowid, record.
func TableLeafCell(rowid int64, rec []byte) []byte {
	buf := btree.AppendVarint(nil, uint64(len(rec)))
	buf = btree.AppendVarint(buf, uint64(rowid))
	return append(buf, rec...)
}

// TableInteriorCell encodes a table interior cell: child page, rowid.
func TableInteriorCell(child uint32, rowid int64) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], child)
	return btree.AppendVarint(buf[:], uint64(rowid))
}

// IndexLeafCell encodes an index leaf cell: payload size, record.
func IndexLeafCell(rec []byte) []byte {
	buf := btree.AppendVarint(nil, uint64(len(rec)))
	return append(buf, rec...)
}

// IndexInteriorCell encodes an index interior cell: child page, payload
// size, record.
func IndexInteriorCell(child uint32, rec []byte) []byte {
	var head [4]byte
	binary.BigEndian.PutUint32(head[:], child)
	buf := btree.AppendVarint(head[:], uint64(len(rec)))
	return append(buf, rec...)
}

// LeafTablePage builds a table leaf page.
func LeafTablePage(pageSize int, rows []TableLeafRow) []byte {
	cells := make([][]byte, len(rows))
	for i, r := range rows {
		cells[i] = TableLeafCell(r.Rowid, r.Record)
	}
	return buildPage(pageSize, 0, btree.LeafTable, 0, cells)
}

// InteriorTablePage builds a table interior page with the given right-most
// child.
func InteriorTablePage(pageSize int, entries []TableInteriorEntry, right uint32) []byte {
	cells := make([][]byte, len(entries))
	for i, e := range entries {
		cells[i] = TableInteriorCell(e.Child, e.Rowid)
	}
	return buildPage(pageSize, 0, btree.InteriorTable, right, cells)
}

// LeafIndexPage builds an index leaf page from key records.
func LeafIndexPage(pageSize int, records [][]byte) []byte {
	cells := make([][]byte, len(records))
	for i, r := range records {
		cells[i] = IndexLeafCell(r)
	}
	return buildPage(pageSize, 0, btree.LeafIndex, 0, cells)
}

// InteriorIndexPage builds an index interior page with the given right-most
// child.
func InteriorIndexPage(pageSize int, entries []IndexInteriorEntry, right uint32) []byte {
	cells := make([][]byte, len(entries))
	for i, e := range entries {
		cells[i] = IndexInteriorCell(e.Child, e.Record)
	}
	return buildPage(pageSize, 0, btree.InteriorIndex, right, cells)
}

// CatalogPage builds page 1: a table leaf page whose header sits after the
// 100-byte file header.
func CatalogPage(pageSize int, rows []TableLeafRow) []byte {
	cells := make([][]byte, len(rows))
	for i, r := range rows {
		cells[i] = TableLeafCell(r.Rowid, r.Record)
	}
	return buildPage(pageSize, fileHeaderSize, btree.LeafTable, 0, cells)
}

// MustRecord encodes a record from values, panicking on failure. Fixture
// code only.
func MustRecord(values ...record.Value) []byte {
	rec, err := record.Encode(values)
	if err != nil {
		panic(err)
	}
	return rec
}

// CatalogRow encodes one catalog record: kind, name, table name, root
// page, SQL text.
func CatalogRow(kind, name, tableName string, rootPage uint32, sql string) []byte {
	return MustRecord(
		record.TextValue(kind),
		record.TextValue(name),
		record.TextValue(tableName),
		record.IntValue(int64(rootPage)),
		record.TextValue(sql),
	)
}
