package file

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/pagewalk/pagewalk/core/errors"
)

// Database wraps an immutable in-memory database image. All decoding in the
// other packages operates on slices handed out by this type; nothing mutates
// the buffer after construction.
type Database struct {
	buf    []byte
	header *Header
}

// New validates buf as a database image and wraps it. The buffer must start
// with a well-formed 100-byte header and its length must be a whole number
// of pages.
func New(buf []byte) (*Database, error) {
	header, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}

	if len(buf)%header.PageSize != 0 {
		return nil, errors.NewFormat("database file",
			"file length is not a multiple of the page size")
	}

	return &Database{buf: buf, header: header}, nil
}

// Header returns the parsed file header.
func (d *Database) Header() *Header {
	return d.header
}

// PageSize returns the page size in bytes.
func (d *Database) PageSize() int {
	return d.header.PageSize
}

// NumPages returns the number of pages actually present in the buffer.
func (d *Database) NumPages() uint32 {
	return uint32(len(d.buf) / d.header.PageSize)
}

// Len returns the total buffer length in bytes.
func (d *Database) Len() int {
	return len(d.buf)
}

// Page returns the raw bytes of the 1-indexed page n. The returned slice
// aliases the database buffer and must be treated as read-only.
func (d *Database) Page(n uint32) ([]byte, error) {
	if n == 0 {
		return nil, errors.NewFormat("page reference", "page numbers are 1-based")
	}
	start := (int(n) - 1) * d.header.PageSize
	end := start + d.header.PageSize
	if end > len(d.buf) {
		return nil, errors.NewTruncated("page", end, len(d.buf))
	}
	return d.buf[start:end], nil
}

// UsableSize returns the number of usable bytes per page, excluding the
// reserved region at the end of each page.
func (d *Database) UsableSize() int {
	return d.header.PageSize - d.header.ReservedSpace
}

// Fingerprint returns the BLAKE3 hash of the full buffer as a hex string.
// Useful as a cache key or a log field identifying the exact file contents.
func (d *Database) Fingerprint() string {
	sum := blake3.Sum256(d.buf)
	return hex.EncodeToString(sum[:])
}
