package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/pagewalk/pagewalk/core/errors"
)

// Cell is one parsed cell. Which fields are populated depends on the page
// type the cell came from:
//
//	table leaf:     Rowid, Payload
//	table interior: Rowid (routing key), LeftChild
//	index leaf:     Payload (key columns + trailing rowid)
//	index interior: LeftChild, Payload (key columns + trailing rowid)
//
// Payload aliases the page buffer; callers must not modify it.
type Cell struct {
	Rowid     int64
	LeftChild uint32
	Payload   []byte
	Size      int // Total cell size in bytes on the page
}

// ParseCell parses the cell at cellOffset on a page of the given type.
// usableSize is the usable page size (page size minus reserved space); it
// decides whether a payload would spill to overflow pages, which this
// decoder rejects as unsupported.
func ParseCell(t PageType, page []byte, cellOffset int, usableSize int) (*Cell, error) {
	if cellOffset < 0 || cellOffset >= len(page) {
		return nil, errors.NewTruncated("cell", cellOffset+1, len(page))
	}
	data := page[cellOffset:]

	switch t {
	case LeafTable:
		return parseTableLeafCell(data, usableSize)
	case InteriorTable:
		return parseTableInteriorCell(data)
	case LeafIndex:
		return parseIndexCell(data, 0, usableSize)
	case InteriorIndex:
		return parseIndexCell(data, 4, usableSize)
	}
	return nil, errors.NewFormat("cell", fmt.Sprintf("invalid page type: 0x%02x", byte(t)))
}

// parseTableLeafCell parses: varint(payload_size), varint(rowid), payload.
func parseTableLeafCell(data []byte, usableSize int) (*Cell, error) {
	payloadSize, n := GetVarint(data)
	if n == 0 {
		return nil, errors.NewTruncated("table leaf cell payload size", 1, len(data))
	}
	offset := n

	rowid, n := GetVarint(data[offset:])
	if n == 0 {
		return nil, errors.NewTruncated("table leaf cell rowid", offset+1, len(data))
	}
	offset += n

	if payloadSize > maxLocalPayload(usableSize, true) {
		return nil, errors.NewUnsupported("overflow payload",
			fmt.Sprintf("payload of %d bytes spans overflow pages", payloadSize))
	}
	end := offset + int(payloadSize)
	if end > len(data) {
		return nil, errors.NewTruncated("table leaf cell payload", end, len(data))
	}

	return &Cell{
		Rowid:   int64(rowid),
		Payload: data[offset:end],
		Size:    end,
	}, nil
}

// parseTableInteriorCell parses: 4-byte left child page, varint(rowid).
// Pure routing, no payload.
func parseTableInteriorCell(data []byte) (*Cell, error) {
	if len(data) < 4 {
		return nil, errors.NewTruncated("table interior cell", 4, len(data))
	}
	child := binary.BigEndian.Uint32(data)

	rowid, n := GetVarint(data[4:])
	if n == 0 {
		return nil, errors.NewTruncated("table interior cell rowid", 5, len(data))
	}

	return &Cell{
		Rowid:     int64(rowid),
		LeftChild: child,
		Size:      4 + n,
	}, nil
}

// parseIndexCell parses index cells. Leaf cells are
// varint(payload_size), payload; interior cells prepend a 4-byte left
// child pointer (childBytes = 4).
func parseIndexCell(data []byte, childBytes int, usableSize int) (*Cell, error) {
	if len(data) < childBytes {
		return nil, errors.NewTruncated("index cell", childBytes, len(data))
	}

	cell := &Cell{}
	if childBytes > 0 {
		cell.LeftChild = binary.BigEndian.Uint32(data)
	}
	offset := childBytes

	payloadSize, n := GetVarint(data[offset:])
	if n == 0 {
		return nil, errors.NewTruncated("index cell payload size", offset+1, len(data))
	}
	offset += n

	if payloadSize > maxLocalPayload(usableSize, false) {
		return nil, errors.NewUnsupported("overflow payload",
			fmt.Sprintf("payload of %d bytes spans overflow pages", payloadSize))
	}
	end := offset + int(payloadSize)
	if end > len(data) {
		return nil, errors.NewTruncated("index cell payload", end, len(data))
	}

	cell.Payload = data[offset:end]
	cell.Size = end
	return cell, nil
}

// maxLocalPayload is the largest payload that fits entirely on the page.
// Anything bigger spills to overflow pages. Table leaves may use almost the
// whole page; index trees cap keys at a fraction of it so several keys fit
// per page.
func maxLocalPayload(usableSize int, table bool) uint64 {
	if table {
		return uint64(usableSize - 35)
	}
	return uint64((usableSize-12)*64/255 - 23)
}
