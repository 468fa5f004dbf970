// Command pagewalk is a read-only explorer for SQLite database files.
// It prints file metadata, lists tables, and runs simple SELECT queries
// directly against the on-disk pages.
package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/pagewalk/pagewalk/core/file"
	"github.com/pagewalk/pagewalk/core/query"
	"github.com/pagewalk/pagewalk/core/schema"
	"github.com/pagewalk/pagewalk/internal/fileutil"
	"github.com/pagewalk/pagewalk/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for pagewalk.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"warn" env:"PAGEWALK_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" default:"text" env:"PAGEWALK_LOG_FORMAT"`

	Info    InfoCmd    `cmd:"" help:"Print database header information"`
	Tables  TablesCmd  `cmd:"" help:"List user tables"`
	Query   QueryCmd   `cmd:"" help:"Run a SELECT query against the file"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// openDatabase loads a database file and its catalog.
func openDatabase(path string) (*file.Database, *schema.Catalog, error) {
	buf, err := fileutil.ReadDatabase(path)
	if err != nil {
		return nil, nil, err
	}
	db, err := file.New(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	cat, err := schema.Load(db)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return db, cat, nil
}

// InfoCmd prints database header information.
type InfoCmd struct {
	Database string `arg:"" help:"Path to database file" type:"existingfile"`
}

func (c *InfoCmd) Run() error {
	db, cat, err := openDatabase(c.Database)
	if err != nil {
		return err
	}

	fmt.Printf("database page size: %d\n", db.PageSize())
	fmt.Printf("database page count: %d\n", db.NumPages())
	fmt.Printf("number of tables: %d\n", len(cat.Tables()))
	logging.Debug("database opened",
		"path", c.Database,
		"fingerprint", db.Fingerprint(),
		"usable_size", db.UsableSize())
	return nil
}

// TablesCmd lists user tables.
type TablesCmd struct {
	Database string `arg:"" help:"Path to database file" type:"existingfile"`
}

func (c *TablesCmd) Run() error {
	_, cat, err := openDatabase(c.Database)
	if err != nil {
		return err
	}

	names := cat.Tables()
	if len(names) == 0 {
		return nil
	}
	fmt.Println(strings.Join(names, " "))
	return nil
}

// QueryCmd runs a SELECT query.
type QueryCmd struct {
	Database string `arg:"" help:"Path to database file" type:"existingfile"`
	SQL      string `arg:"" name:"sql" help:"SELECT statement to run"`
	NoIndex  bool   `help:"Force a full table scan even when an index matches"`
}

func (c *QueryCmd) Run() error {
	db, cat, err := openDatabase(c.Database)
	if err != nil {
		return err
	}

	q, err := parseSelect(c.SQL)
	if err != nil {
		return err
	}
	q.NoIndex = c.NoIndex

	res, err := query.New(db, cat).Execute(q)
	if err != nil {
		return err
	}
	var n int64
	for res.Next() {
		fmt.Println(strings.Join(res.Row(), "|"))
		n++
	}
	if err := res.Err(); err != nil {
		return err
	}
	logging.Info("query finished", "table", q.Table, "rows", n)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("pagewalk v%s\n", version)
	return nil
}

// The supported query surface is deliberately small, so a pair of regular
// expressions covers it: count(*) over a table, and a projection with an
// optional single equality in the WHERE clause.
var (
	countPattern  = regexp.MustCompile(`(?i)^\s*select\s+count\(\s*\*\s*\)\s+from\s+(\w+)\s*$`)
	selectPattern = regexp.MustCompile(`(?i)^\s*select\s+(.+?)\s+from\s+(\w+)(?:\s+where\s+(\w+)\s*=\s*(.+?))?\s*$`)
)

// parseSelect parses the free-text SELECT forms the CLI accepts.
func parseSelect(sql string) (query.Query, error) {
	if m := countPattern.FindStringSubmatch(sql); m != nil {
		return query.Query{Table: m[1], Count: true}, nil
	}

	m := selectPattern.FindStringSubmatch(sql)
	if m == nil {
		return query.Query{}, fmt.Errorf("unsupported query: %q", sql)
	}

	q := query.Query{Table: m[2]}
	for _, col := range strings.Split(m[1], ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			return query.Query{}, fmt.Errorf("empty column name in %q", sql)
		}
		q.Columns = append(q.Columns, col)
	}
	if m[3] != "" {
		q.Filter = &query.Filter{Column: m[3], Value: unquoteLiteral(m[4])}
	}
	return q, nil
}

// unquoteLiteral strips single quotes from a SQL string literal and folds
// doubled quotes. Bare literals (numbers) pass through unchanged.
func unquoteLiteral(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("pagewalk"),
		kong.Description("Read-only explorer for SQLite database files"),
		kong.UsageOnError(),
	)

	level, err := logging.ParseLevel(CLI.LogLevel)
	ctx.FatalIfErrorf(err)
	format, err := logging.ParseFormat(CLI.LogFormat)
	ctx.FatalIfErrorf(err)
	logging.InitLogger(level, format)

	ctx.FatalIfErrorf(ctx.Run())
}
