package query_test

import (
	"reflect"
	"testing"

	"github.com/pagewalk/pagewalk/core/errors"
	"github.com/pagewalk/pagewalk/core/file"
	"github.com/pagewalk/pagewalk/core/query"
	"github.com/pagewalk/pagewalk/core/record"
	"github.com/pagewalk/pagewalk/core/schema"
	"github.com/pagewalk/pagewalk/internal/dbbuild"
)

const testPageSize = 512

// fruitDB builds a database with one table and one index:
//
//	CREATE TABLE apples (id integer primary key, name text, color text)
//	CREATE INDEX idx_apples_color ON apples (color)
//
// Rows 1..4 with a color duplicated across two rows so index lookups have a
// multi-match case.
func fruitDB(t *testing.T) *query.Engine {
	t.Helper()

	appleRow := func(name, color string) []byte {
		// Integer primary key columns store NULL; the rowid carries the value.
		return dbbuild.MustRecord(record.NullValue(), record.TextValue(name), record.TextValue(color))
	}
	indexEntry := func(color string, rowid int64) []byte {
		return dbbuild.MustRecord(record.TextValue(color), record.IntValue(rowid))
	}

	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, []dbbuild.TableLeafRow{
		{Rowid: 1, Record: dbbuild.CatalogRow("table", "apples", "apples", 2,
			"CREATE TABLE apples (id integer primary key, name text, color text)")},
		{Rowid: 2, Record: dbbuild.CatalogRow("index", "idx_apples_color", "apples", 3,
			"CREATE INDEX idx_apples_color ON apples (color)")},
	}))
	b.AddPage(dbbuild.LeafTablePage(testPageSize, []dbbuild.TableLeafRow{
		{Rowid: 1, Record: appleRow("Granny Smith", "Light Green")},
		{Rowid: 2, Record: appleRow("Fuji", "Red")},
		{Rowid: 3, Record: appleRow("Honeycrisp", "Red")},
		{Rowid: 4, Record: appleRow("Golden Delicious", "Yellow")},
	}))
	b.AddPage(dbbuild.LeafIndexPage(testPageSize, [][]byte{
		indexEntry("Light Green", 1),
		indexEntry("Red", 2),
		indexEntry("Red", 3),
		indexEntry("Yellow", 4),
	}))

	db, err := file.New(b.Build())
	if err != nil {
		t.Fatalf("file.New() error: %v", err)
	}
	cat, err := schema.Load(db)
	if err != nil {
		t.Fatalf("schema.Load() error: %v", err)
	}
	return query.New(db, cat)
}

func collect(t *testing.T, e *query.Engine, q query.Query) [][]string {
	t.Helper()
	res, err := e.Execute(q)
	if err != nil {
		t.Fatalf("Execute(%+v) error: %v", q, err)
	}
	var rows [][]string
	for res.Next() {
		rows = append(rows, res.Row())
	}
	if err := res.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	return rows
}

func TestProjection(t *testing.T) {
	e := fruitDB(t)

	got := collect(t, e, query.Query{Table: "apples", Columns: []string{"name"}})
	want := [][]string{
		{"Granny Smith"},
		{"Fuji"},
		{"Honeycrisp"},
		{"Golden Delicious"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestProjectionRowidAlias(t *testing.T) {
	e := fruitDB(t)

	got := collect(t, e, query.Query{Table: "apples", Columns: []string{"id", "name"}})
	if len(got) != 4 {
		t.Fatalf("got %d rows, want 4", len(got))
	}
	if got[2][0] != "3" || got[2][1] != "Honeycrisp" {
		t.Errorf("row 3 = %v, want [3 Honeycrisp]", got[2])
	}
}

func TestProjectionStar(t *testing.T) {
	e := fruitDB(t)

	res, err := e.Execute(query.Query{Table: "apples", Columns: []string{"*"}})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	want := []string{"id", "name", "color"}
	if !reflect.DeepEqual(res.Columns(), want) {
		t.Errorf("Columns() = %v, want %v", res.Columns(), want)
	}
	if !res.Next() {
		t.Fatalf("Next() = false, err = %v", res.Err())
	}
	// The id column stores NULL in the record; the rowid substitution fills
	// it in even under star expansion.
	row := res.Row()
	if !reflect.DeepEqual(row, []string{"1", "Granny Smith", "Light Green"}) {
		t.Errorf("row = %v", row)
	}
}

func TestFilterFullScan(t *testing.T) {
	e := fruitDB(t)

	got := collect(t, e, query.Query{
		Table:   "apples",
		Columns: []string{"name", "color"},
		Filter:  &query.Filter{Column: "color", Value: "Yellow"},
		NoIndex: true,
	})
	want := [][]string{{"Golden Delicious", "Yellow"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestFilterNoMatches(t *testing.T) {
	e := fruitDB(t)

	got := collect(t, e, query.Query{
		Table:   "apples",
		Columns: []string{"name"},
		Filter:  &query.Filter{Column: "color", Value: "Purple"},
	})
	if len(got) != 0 {
		t.Errorf("rows = %v, want none", got)
	}
}

func TestFilterOnRowidAlias(t *testing.T) {
	e := fruitDB(t)

	got := collect(t, e, query.Query{
		Table:   "apples",
		Columns: []string{"name"},
		Filter:  &query.Filter{Column: "id", Value: "2"},
	})
	want := [][]string{{"Fuji"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestIndexAndScanAgree(t *testing.T) {
	e := fruitDB(t)

	base := query.Query{
		Table:   "apples",
		Columns: []string{"id", "name", "color"},
		Filter:  &query.Filter{Column: "color", Value: "Red"},
	}

	indexed := collect(t, e, base)

	scan := base
	scan.NoIndex = true
	scanned := collect(t, e, scan)

	want := [][]string{
		{"2", "Fuji", "Red"},
		{"3", "Honeycrisp", "Red"},
	}
	if !reflect.DeepEqual(indexed, want) {
		t.Errorf("indexed rows = %v, want %v", indexed, want)
	}
	if !reflect.DeepEqual(scanned, want) {
		t.Errorf("scanned rows = %v, want %v", scanned, want)
	}
}

func TestCount(t *testing.T) {
	e := fruitDB(t)

	got := collect(t, e, query.Query{Table: "apples", Count: true})
	want := [][]string{{"4"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestCountWithFilter(t *testing.T) {
	e := fruitDB(t)

	got := collect(t, e, query.Query{
		Table:  "apples",
		Count:  true,
		Filter: &query.Filter{Column: "color", Value: "Red"},
	})
	want := [][]string{{"2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestPlanningErrors(t *testing.T) {
	e := fruitDB(t)

	tests := []struct {
		name    string
		q       query.Query
		wantErr error
	}{
		{
			name:    "unknown table",
			q:       query.Query{Table: "grapes", Columns: []string{"name"}},
			wantErr: errors.ErrNotFound,
		},
		{
			name:    "unknown projected column",
			q:       query.Query{Table: "apples", Columns: []string{"taste"}},
			wantErr: errors.ErrNotFound,
		},
		{
			name: "unknown filter column",
			q: query.Query{
				Table:   "apples",
				Columns: []string{"name"},
				Filter:  &query.Filter{Column: "taste", Value: "sweet"},
			},
			wantErr: errors.ErrNotFound,
		},
		{
			name:    "no columns",
			q:       query.Query{Table: "apples"},
			wantErr: errors.ErrFormat,
		},
		{
			name: "non-integer rowid filter",
			q: query.Query{
				Table:   "apples",
				Columns: []string{"name"},
				Filter:  &query.Filter{Column: "id", Value: "abc"},
			},
			wantErr: errors.ErrFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Execute(tt.q); !errors.Is(err, tt.wantErr) {
				t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
