package schema

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/pagewalk/pagewalk/core/errors"
)

// The CREATE statement stored in the catalog is the only description of a
// table's columns, so record positions are recovered by parsing its column
// definition list. Only names matter here; types and constraints are kept as
// opaque tokens so that definitions like "price DECIMAL(8,2) NOT NULL" or
// CHECK expressions with embedded commas do not throw off the split.

// columnList is the comma-separated list between the outer parentheses of a
// CREATE TABLE or CREATE INDEX statement.
//
//nolint:govet // participle grammar tags are not standard struct tags
type columnList struct {
	Defs []*columnDef `@@ ( "," @@ )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type columnDef struct {
	Name string     `@(Ident | Quoted | Bracketed | BackQuoted)`
	Rest []*defItem `@@*`
}

// defItem is one trailing token of a definition: anything but a top-level
// comma. Parenthesized groups are matched as units so commas inside type
// sizes and CHECK expressions stay inside their definition.
//
//nolint:govet // participle grammar tags are not standard struct tags
type defItem struct {
	Group *parenGroup `  @@`
	Token string      `| @(Ident | Quoted | Bracketed | BackQuoted | String | Number | Op)`
}

//nolint:govet // participle grammar tags are not standard struct tags
type parenGroup struct {
	Items []*groupItem `"(" @@* ")"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type groupItem struct {
	Group *parenGroup `  @@`
	Token string      `| @(Ident | Quoted | Bracketed | BackQuoted | String | Number | Op | ",")`
}

var columnLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Quoted", Pattern: `"(?:[^"]|"")*"`},
	{Name: "Bracketed", Pattern: `\[[^\]]*\]`},
	{Name: "BackQuoted", Pattern: "`[^`]*`"},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_$]*`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Op", Pattern: `[^\s(),]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var columnParser = participle.MustBuild[columnList](
	participle.Lexer(columnLexer),
	participle.Elide("Whitespace"),
)

// tableConstraints are definition-list entries that declare table-level
// constraints rather than columns.
var tableConstraints = map[string]bool{
	"primary":    true,
	"unique":     true,
	"check":      true,
	"foreign":    true,
	"constraint": true,
}

// ColumnSet holds a table's column names in record order.
type ColumnSet struct {
	names []string
	pos   map[string]int
}

// Len returns the number of columns.
func (cs *ColumnSet) Len() int {
	return len(cs.names)
}

// Names returns the column names in record order.
func (cs *ColumnSet) Names() []string {
	return cs.names
}

// Position returns the record position of the named column. Lookup is
// case-insensitive, matching SQL identifier semantics.
func (cs *ColumnSet) Position(name string) (int, bool) {
	i, ok := cs.pos[strings.ToLower(name)]
	return i, ok
}

// unquote strips identifier quoting: "name" (with "" escapes), [name], and
// `name`. Unquoted identifiers pass through unchanged.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '"' && s[len(s)-1] == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case s[0] == '[' && s[len(s)-1] == ']':
		return s[1 : len(s)-1]
	case s[0] == '`' && s[len(s)-1] == '`':
		return s[1 : len(s)-1]
	}
	return s
}

// defList extracts the text between the outer parentheses of sql and parses
// it as a definition list.
func defList(sql string) (*columnList, error) {
	open := strings.IndexByte(sql, '(')
	end := strings.LastIndexByte(sql, ')')
	if open < 0 || end < open {
		return nil, errors.NewFormat("create statement",
			fmt.Sprintf("no parenthesized definition list in %q", sql))
	}

	list, err := columnParser.ParseString("", sql[open+1:end])
	if err != nil {
		return nil, errors.NewFormat("create statement",
			fmt.Sprintf("definition list: %v", err))
	}
	return list, nil
}

// ParseColumns recovers the column layout of a table from its CREATE TABLE
// statement. Table-level constraint clauses (PRIMARY KEY, UNIQUE, CHECK,
// FOREIGN KEY, CONSTRAINT) are skipped; they occupy no record position.
func ParseColumns(sql string) (*ColumnSet, error) {
	list, err := defList(sql)
	if err != nil {
		return nil, err
	}

	cs := &ColumnSet{pos: make(map[string]int)}
	for _, def := range list.Defs {
		name := unquote(def.Name)
		if tableConstraints[strings.ToLower(def.Name)] {
			continue
		}
		cs.pos[strings.ToLower(name)] = len(cs.names)
		cs.names = append(cs.names, name)
	}
	if len(cs.names) == 0 {
		return nil, errors.NewFormat("create statement",
			fmt.Sprintf("no columns in %q", sql))
	}
	return cs, nil
}

// ParseIndexColumns recovers the indexed column names from a CREATE INDEX
// statement, in index key order. Trailing tokens per entry (COLLATE, ASC,
// DESC) are ignored.
func ParseIndexColumns(sql string) ([]string, error) {
	list, err := defList(sql)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(list.Defs))
	for _, def := range list.Defs {
		cols = append(cols, unquote(def.Name))
	}
	if len(cols) == 0 {
		return nil, errors.NewFormat("create statement",
			fmt.Sprintf("no indexed columns in %q", sql))
	}
	return cols, nil
}
