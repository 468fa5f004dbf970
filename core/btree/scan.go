package btree

import (
	"fmt"

	"github.com/pagewalk/pagewalk/core/errors"
)

// PageSource supplies raw pages by 1-based page number. *file.Database
// implements it; tests substitute in-memory images.
type PageSource interface {
	Page(n uint32) ([]byte, error)
	UsableSize() int
}

// MaxDepth caps traversal depth. Child pointers partition the key space in a
// well-formed file, so a deeper walk means a corrupt (possibly
// self-referential) tree.
const MaxDepth = 20

// TableRow is one entry streamed from a table tree. Payload is the row's
// record bytes, left undecoded so consumers only pay for the columns they
// project.
type TableRow struct {
	RowID   int64
	Payload []byte
}

// IndexEntry is one entry streamed from an index tree. Payload is the key
// record: the indexed column values followed by the rowid of the table row.
type IndexEntry struct {
	Payload []byte
}

// scanFrame is one level of the explicit traversal stack.
type scanFrame struct {
	header *PageHeader
	page   []byte

	cell        int  // next cell pointer index to act on
	childPushed bool // index interior: child of current cell already visited
	rightPushed bool // interior: right-most child already visited
}

// scanner walks a tree with an explicit stack, yielding cells lazily so a
// caller can stop early without touching the rest of the tree. The sequence
// is single-pass; re-traversal starts from the root with a fresh scanner.
type scanner struct {
	src     PageSource
	root    uint32
	stack   []scanFrame
	started bool
	err     error
}

func (s *scanner) push(pageNum uint32) bool {
	if len(s.stack) >= MaxDepth {
		s.err = errors.NewFormat("b-tree",
			fmt.Sprintf("depth exceeds %d, tree is corrupt", MaxDepth))
		return false
	}
	page, err := s.src.Page(pageNum)
	if err != nil {
		s.err = errors.Wrapf(err, "page %d", pageNum)
		return false
	}
	header, err := ParsePageHeader(page, pageNum)
	if err != nil {
		s.err = errors.Wrapf(err, "page %d", pageNum)
		return false
	}
	s.stack = append(s.stack, scanFrame{header: header, page: page})
	return true
}

func (s *scanner) start() bool {
	s.started = true
	return s.push(s.root)
}

func (s *scanner) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *scanner) cellAt(f *scanFrame, i int) (*Cell, error) {
	offset, err := f.header.CellPointer(f.page, i)
	if err != nil {
		return nil, err
	}
	return ParseCell(f.header.Type, f.page, offset, s.src.UsableSize())
}

// TableScanner streams the rows of a table tree in ascending rowid order.
// Usage follows the bufio.Scanner idiom:
//
//	sc := btree.NewTableScanner(db, root)
//	for sc.Next() {
//		row := sc.Row()
//		...
//	}
//	if err := sc.Err(); err != nil { ... }
type TableScanner struct {
	scanner
	row TableRow
}

// NewTableScanner returns a scanner over the table tree rooted at root.
func NewTableScanner(src PageSource, root uint32) *TableScanner {
	return &TableScanner{scanner: scanner{src: src, root: root}}
}

// Next advances to the next row. It returns false at the end of the tree or
// on error; check Err afterwards.
func (s *TableScanner) Next() bool {
	if s.err != nil {
		return false
	}
	if !s.started && !s.start() {
		return false
	}

	for len(s.stack) > 0 {
		f := &s.stack[len(s.stack)-1]

		switch f.header.Type {
		case LeafTable:
			if f.cell < int(f.header.NumCells) {
				cell, err := s.cellAt(f, f.cell)
				if err != nil {
					s.err = err
					return false
				}
				f.cell++
				s.row = TableRow{RowID: cell.Rowid, Payload: cell.Payload}
				return true
			}
			s.pop()

		case InteriorTable:
			// Children first in pointer order, right-most child last:
			// concatenating the child sequences yields ascending rowids.
			if f.cell < int(f.header.NumCells) {
				cell, err := s.cellAt(f, f.cell)
				if err != nil {
					s.err = err
					return false
				}
				f.cell++
				if !s.push(cell.LeftChild) {
					return false
				}
			} else if !f.rightPushed {
				f.rightPushed = true
				if !s.push(f.header.RightChild) {
					return false
				}
			} else {
				s.pop()
			}

		default:
			s.err = errors.NewFormat("table b-tree",
				fmt.Sprintf("unexpected %s page", f.header.Type))
			return false
		}
	}
	return false
}

// Row returns the row produced by the last successful Next.
func (s *TableScanner) Row() TableRow {
	return s.row
}

// Err returns the first error hit during the scan, if any.
func (s *TableScanner) Err() error {
	return s.err
}

// IndexScanner streams the entries of an index tree in ascending key order.
// Interior cells carry keys too, so the walk is in-order: left child, then
// the cell's own key, cell by cell, with the right-most child last.
type IndexScanner struct {
	scanner
	entry IndexEntry
}

// NewIndexScanner returns a scanner over the index tree rooted at root.
func NewIndexScanner(src PageSource, root uint32) *IndexScanner {
	return &IndexScanner{scanner: scanner{src: src, root: root}}
}

// Next advances to the next entry. It returns false at the end of the tree
// or on error; check Err afterwards.
func (s *IndexScanner) Next() bool {
	if s.err != nil {
		return false
	}
	if !s.started && !s.start() {
		return false
	}

	for len(s.stack) > 0 {
		f := &s.stack[len(s.stack)-1]

		switch f.header.Type {
		case LeafIndex:
			if f.cell < int(f.header.NumCells) {
				cell, err := s.cellAt(f, f.cell)
				if err != nil {
					s.err = err
					return false
				}
				f.cell++
				s.entry = IndexEntry{Payload: cell.Payload}
				return true
			}
			s.pop()

		case InteriorIndex:
			if f.cell < int(f.header.NumCells) {
				cell, err := s.cellAt(f, f.cell)
				if err != nil {
					s.err = err
					return false
				}
				if !f.childPushed {
					// Descend before emitting this cell's own key to keep
					// the output in key order.
					f.childPushed = true
					if !s.push(cell.LeftChild) {
						return false
					}
					continue
				}
				f.childPushed = false
				f.cell++
				s.entry = IndexEntry{Payload: cell.Payload}
				return true
			}
			if !f.rightPushed {
				f.rightPushed = true
				if !s.push(f.header.RightChild) {
					return false
				}
			} else {
				s.pop()
			}

		default:
			s.err = errors.NewFormat("index b-tree",
				fmt.Sprintf("unexpected %s page", f.header.Type))
			return false
		}
	}
	return false
}

// Entry returns the entry produced by the last successful Next.
func (s *IndexScanner) Entry() IndexEntry {
	return s.entry
}

// Err returns the first error hit during the scan, if any.
func (s *IndexScanner) Err() error {
	return s.err
}

// CountLeafCells walks the table tree rooted at root and sums the cell
// counts of its leaf pages. No cell payload is read, so counting rows costs
// one page-header parse per page.
func CountLeafCells(src PageSource, root uint32) (int64, error) {
	type countFrame struct {
		pageNum uint32
		depth   int
	}

	var total int64
	work := []countFrame{{pageNum: root, depth: 0}}

	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]

		if f.depth >= MaxDepth {
			return 0, errors.NewFormat("b-tree",
				fmt.Sprintf("depth exceeds %d, tree is corrupt", MaxDepth))
		}

		page, err := src.Page(f.pageNum)
		if err != nil {
			return 0, errors.Wrapf(err, "page %d", f.pageNum)
		}
		header, err := ParsePageHeader(page, f.pageNum)
		if err != nil {
			return 0, errors.Wrapf(err, "page %d", f.pageNum)
		}

		switch header.Type {
		case LeafTable:
			total += int64(header.NumCells)

		case InteriorTable:
			for i := 0; i < int(header.NumCells); i++ {
				offset, err := header.CellPointer(page, i)
				if err != nil {
					return 0, err
				}
				cell, err := ParseCell(header.Type, page, offset, src.UsableSize())
				if err != nil {
					return 0, err
				}
				work = append(work, countFrame{pageNum: cell.LeftChild, depth: f.depth + 1})
			}
			work = append(work, countFrame{pageNum: header.RightChild, depth: f.depth + 1})

		default:
			return 0, errors.NewFormat("table b-tree",
				fmt.Sprintf("unexpected %s page", header.Type))
		}
	}
	return total, nil
}
