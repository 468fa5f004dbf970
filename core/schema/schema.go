// Package schema loads the database catalog: the table of tables stored in
// the tree rooted at page 1. Each catalog row names an object (table or
// index), its root page, and the CREATE statement that defines it.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pagewalk/pagewalk/core/btree"
	"github.com/pagewalk/pagewalk/core/errors"
	"github.com/pagewalk/pagewalk/core/record"
	"github.com/pagewalk/pagewalk/internal/logging"
)

// catalogRootPage is where the catalog tree always lives.
const catalogRootPage = 1

// catalogColumns is the fixed shape of a catalog record:
// type, name, tbl_name, rootpage, sql.
const catalogColumns = 5

// Object kinds found in the catalog.
const (
	KindTable   = "table"
	KindIndex   = "index"
	KindView    = "view"
	KindTrigger = "trigger"
)

// Entry is one catalog row.
type Entry struct {
	Kind      string // "table", "index", "view", "trigger"
	Name      string
	TableName string // For indexes, the table they cover; for tables, Name again
	RootPage  uint32
	SQL       string // CREATE statement, may be empty for auto-created objects
}

// Catalog is the loaded catalog, ready for name lookups.
type Catalog struct {
	entries []Entry
	tables  map[string]*Entry
}

// Load reads the catalog from the tree rooted at page 1. Every row must
// decode; a malformed catalog row means the file itself cannot be trusted.
func Load(src btree.PageSource) (*Catalog, error) {
	cat := &Catalog{tables: make(map[string]*Entry)}

	sc := btree.NewTableScanner(src, catalogRootPage)
	for sc.Next() {
		row := sc.Row()
		entry, err := decodeEntry(row.Payload)
		if err != nil {
			return nil, errors.Wrapf(err, "catalog row %d", row.RowID)
		}
		cat.entries = append(cat.entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "catalog")
	}

	for i := range cat.entries {
		e := &cat.entries[i]
		if e.Kind == KindTable {
			cat.tables[strings.ToLower(e.Name)] = e
		}
	}
	return cat, nil
}

// decodeEntry decodes one catalog record into an Entry.
func decodeEntry(payload []byte) (Entry, error) {
	vals, err := record.Decode(payload, catalogColumns)
	if err != nil {
		return Entry{}, err
	}

	var e Entry
	if vals[0].Kind != record.KindText {
		return Entry{}, errors.NewFormat("catalog record", "type column is not text")
	}
	e.Kind = vals[0].Display()

	if vals[1].Kind != record.KindText {
		return Entry{}, errors.NewFormat("catalog record", "name column is not text")
	}
	e.Name = vals[1].Display()

	if vals[2].Kind == record.KindText {
		e.TableName = vals[2].Display()
	}

	if !vals[3].IsInt() {
		return Entry{}, errors.NewFormat("catalog record",
			fmt.Sprintf("root page for %q is not an integer", e.Name))
	}
	root := vals[3].Int64()
	if root < 0 {
		return Entry{}, errors.NewFormat("catalog record",
			fmt.Sprintf("root page %d for %q is negative", root, e.Name))
	}
	e.RootPage = uint32(root)

	// Views and some auto-indexes store a NULL sql column.
	if vals[4].Kind == record.KindText {
		e.SQL = vals[4].Display()
	}
	return e, nil
}

// Entries returns every catalog row in file order.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Table looks up a table entry by name (case-insensitive).
func (c *Catalog) Table(name string) (*Entry, error) {
	if e, ok := c.tables[strings.ToLower(name)]; ok {
		return e, nil
	}
	return nil, errors.NewNotFound("table", name)
}

// Tables returns the user table names in sorted order. Internal bookkeeping
// tables (sqlite_sequence and friends) are omitted.
func (c *Catalog) Tables() []string {
	var names []string
	for _, e := range c.entries {
		if e.Kind != KindTable || strings.HasPrefix(e.Name, "sqlite_") {
			continue
		}
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// IndexOn returns an index entry covering the given table whose leading key
// column is column, or nil if no such index exists. Indexes whose CREATE
// statement fails to parse are skipped rather than failing the lookup; a
// full scan still answers the query.
func (c *Catalog) IndexOn(table, column string) *Entry {
	for i := range c.entries {
		e := &c.entries[i]
		if e.Kind != KindIndex || !strings.EqualFold(e.TableName, table) || e.SQL == "" {
			continue
		}
		cols, err := ParseIndexColumns(e.SQL)
		if err != nil {
			logging.Warn("skipping unparseable index definition",
				"index", e.Name, "error", err)
			continue
		}
		if strings.EqualFold(cols[0], column) {
			return e
		}
	}
	return nil
}
