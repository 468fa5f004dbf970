// Package query executes structured queries against a loaded database: a
// projection over one table, an optional equality filter, a count fast path,
// and index-assisted lookups when the catalog has a matching index.
package query

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pagewalk/pagewalk/core/btree"
	"github.com/pagewalk/pagewalk/core/errors"
	"github.com/pagewalk/pagewalk/core/file"
	"github.com/pagewalk/pagewalk/core/record"
	"github.com/pagewalk/pagewalk/core/schema"
	"github.com/pagewalk/pagewalk/internal/logging"
)

// rowidAlias is the requested column name that resolves to the row's rowid
// instead of a record column.
const rowidAlias = "id"

// Filter is an equality predicate: column = value. Value is the literal in
// display form; matching compares the column's display rendering against it.
type Filter struct {
	Column string
	Value  string
}

// Query is one structured query.
type Query struct {
	Table   string
	Columns []string // Projected column names; "*" expands to all columns
	Filter  *Filter
	Count   bool // count(*): row count instead of a projection
	NoIndex bool // Force a full table scan even when an index matches
}

// Engine executes queries against one database.
type Engine struct {
	db  *file.Database
	cat *schema.Catalog
	log *slog.Logger
}

// New returns an engine over the given database and its loaded catalog.
func New(db *file.Database, cat *schema.Catalog) *Engine {
	return &Engine{db: db, cat: cat, log: logging.GetLogger()}
}

// Execute plans and runs q. Planning errors (unknown table, unknown column)
// surface here; errors found while walking pages surface through Results.Err.
func (e *Engine) Execute(q Query) (*Results, error) {
	log := e.log.With("query_id", uuid.NewString(), "table", q.Table)

	entry, err := e.cat.Table(q.Table)
	if err != nil {
		return nil, err
	}

	if q.Count && q.Filter == nil {
		n, err := btree.CountLeafCells(e.db, entry.RootPage)
		if err != nil {
			return nil, errors.Wrapf(err, "count %s", q.Table)
		}
		log.Debug("count fast path", "rows", n)
		return fixedResults([]string{"count"}, [][]string{{strconv.FormatInt(n, 10)}}), nil
	}

	cols, err := schema.ParseColumns(entry.SQL)
	if err != nil {
		return nil, errors.Wrapf(err, "table %s", q.Table)
	}

	var project []int
	var names []string
	if !q.Count {
		// count(*) projects nothing; it only needs the filter columns.
		project, names, err = resolveProjection(q, cols)
		if err != nil {
			return nil, err
		}
	}

	match, matchPos, err := e.resolveFilter(q, entry, cols, log)
	if err != nil {
		return nil, err
	}

	// Decode only the record prefix the projection and filter reach.
	ncols := matchPos + 1
	for _, p := range project {
		if p+1 > ncols {
			ncols = p + 1
		}
	}

	res := &Results{
		columns: names,
		sc:      btree.NewTableScanner(e.db, entry.RootPage),
		ncols:   ncols,
		project: project,
		match:   match,
	}

	if q.Count {
		// count(*) with a filter still has to look at every row.
		var n int64
		for res.Next() {
			n++
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		log.Debug("filtered count", "rows", n)
		return fixedResults([]string{"count"}, [][]string{{strconv.FormatInt(n, 10)}}), nil
	}
	return res, nil
}

// resolveProjection maps requested column names to record positions, with -1
// standing for the rowid. "*" expands to the table's columns in order.
func resolveProjection(q Query, cols *schema.ColumnSet) ([]int, []string, error) {
	requested := q.Columns
	if len(requested) == 1 && requested[0] == "*" {
		requested = cols.Names()
	}
	if len(requested) == 0 {
		return nil, nil, errors.NewFormat("query", "no columns requested")
	}

	project := make([]int, len(requested))
	names := make([]string, len(requested))
	for i, name := range requested {
		names[i] = name
		if strings.EqualFold(name, rowidAlias) {
			project[i] = -1
			continue
		}
		pos, ok := cols.Position(name)
		if !ok {
			return nil, nil, errors.NewNotFound("column", name)
		}
		project[i] = pos
	}
	return project, names, nil
}

// matchFunc decides whether a row belongs in the result set.
type matchFunc func(row btree.TableRow, vals []record.Value) bool

// resolveFilter builds the row predicate for q. It returns the highest record
// position the predicate reads (-1 when it reads none) so decoding can stop
// there. When an index on the filtered column exists and the query allows it,
// the index tree is walked up front and the predicate becomes a rowid set
// membership test.
func (e *Engine) resolveFilter(q Query, entry *schema.Entry, cols *schema.ColumnSet, log *slog.Logger) (matchFunc, int, error) {
	if q.Filter == nil {
		return nil, -1, nil
	}
	f := q.Filter

	if strings.EqualFold(f.Column, rowidAlias) {
		want, err := strconv.ParseInt(f.Value, 10, 64)
		if err != nil {
			return nil, 0, errors.NewFormat("query",
				fmt.Sprintf("rowid filter value %q is not an integer", f.Value))
		}
		return func(row btree.TableRow, _ []record.Value) bool {
			return row.RowID == want
		}, -1, nil
	}

	pos, ok := cols.Position(f.Column)
	if !ok {
		return nil, 0, errors.NewNotFound("column", f.Column)
	}

	if !q.NoIndex {
		if idx := e.cat.IndexOn(entry.Name, f.Column); idx != nil {
			rowids, err := e.indexLookup(idx, f.Value)
			if err != nil {
				return nil, 0, err
			}
			log.Debug("index lookup", "index", idx.Name, "matches", len(rowids))
			return func(row btree.TableRow, _ []record.Value) bool {
				return rowids[row.RowID]
			}, -1, nil
		}
	}

	return func(_ btree.TableRow, vals []record.Value) bool {
		return vals[pos].Display() == f.Value
	}, pos, nil
}

// indexLookup walks the index tree and collects the rowids of entries whose
// leading key column equals value. The whole tree is walked; without key
// comparisons against interior cells there is no subtree to skip, and
// correctness comes first.
func (e *Engine) indexLookup(idx *schema.Entry, value string) (map[int64]bool, error) {
	keyCols, err := schema.ParseIndexColumns(idx.SQL)
	if err != nil {
		return nil, errors.Wrapf(err, "index %s", idx.Name)
	}
	// Index records hold the key columns followed by the table rowid.
	ncols := len(keyCols) + 1

	rowids := make(map[int64]bool)
	sc := btree.NewIndexScanner(e.db, idx.RootPage)
	for sc.Next() {
		vals, err := record.Decode(sc.Entry().Payload, ncols)
		if err != nil {
			return nil, errors.Wrapf(err, "index %s entry", idx.Name)
		}
		if vals[0].Display() != value {
			continue
		}
		rowid := vals[ncols-1]
		if !rowid.IsInt() {
			return nil, errors.NewFormat("index entry",
				fmt.Sprintf("index %s entry carries a non-integer rowid", idx.Name))
		}
		rowids[rowid.Int64()] = true
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "index %s", idx.Name)
	}
	return rowids, nil
}
