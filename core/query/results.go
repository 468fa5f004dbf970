package query

import (
	"strconv"

	"github.com/pagewalk/pagewalk/core/btree"
	"github.com/pagewalk/pagewalk/core/record"
)

// Results streams query rows. Usage follows the bufio.Scanner idiom:
//
//	res, err := engine.Execute(q)
//	for res.Next() {
//		row := res.Row()
//		...
//	}
//	if err := res.Err(); err != nil { ... }
//
// Rows come out in rowid order; the underlying tree is only walked as far as
// the caller pulls.
type Results struct {
	columns []string
	sc      *btree.TableScanner
	ncols   int
	project []int // record positions; -1 substitutes the rowid
	match   matchFunc

	row []string
	err error

	fixed    [][]string
	fixedPos int
	useFixed bool
}

// fixedResults wraps pre-computed rows, used by the count paths.
func fixedResults(columns []string, rows [][]string) *Results {
	return &Results{columns: columns, fixed: rows, useFixed: true}
}

// Columns returns the projected column names.
func (r *Results) Columns() []string {
	return r.columns
}

// Next advances to the next row. It returns false at the end of the results
// or on error; check Err afterwards.
func (r *Results) Next() bool {
	if r.err != nil {
		return false
	}
	if r.useFixed {
		if r.fixedPos >= len(r.fixed) {
			return false
		}
		r.row = r.fixed[r.fixedPos]
		r.fixedPos++
		return true
	}

	for r.sc.Next() {
		row := r.sc.Row()

		var vals []record.Value
		if r.ncols > 0 {
			var err error
			vals, err = record.Decode(row.Payload, r.ncols)
			if err != nil {
				r.err = err
				return false
			}
		}
		if r.match != nil && !r.match(row, vals) {
			continue
		}

		out := make([]string, len(r.project))
		for i, pos := range r.project {
			if pos < 0 {
				out[i] = strconv.FormatInt(row.RowID, 10)
				continue
			}
			out[i] = vals[pos].Display()
		}
		r.row = out
		return true
	}
	r.err = r.sc.Err()
	return false
}

// Row returns the row produced by the last successful Next, one display
// string per projected column.
func (r *Results) Row() []string {
	return r.row
}

// Err returns the first error hit while streaming, if any.
func (r *Results) Err() error {
	return r.err
}
