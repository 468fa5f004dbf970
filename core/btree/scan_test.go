package btree_test

import (
	"testing"

	"github.com/pagewalk/pagewalk/core/btree"
	"github.com/pagewalk/pagewalk/core/errors"
	"github.com/pagewalk/pagewalk/core/file"
	"github.com/pagewalk/pagewalk/core/record"
	"github.com/pagewalk/pagewalk/internal/dbbuild"
)

const testPageSize = 512

func buildDB(t *testing.T, b *dbbuild.Builder) *file.Database {
	t.Helper()
	db, err := file.New(b.Build())
	if err != nil {
		t.Fatalf("file.New() error: %v", err)
	}
	return db
}

func rowRecord(rowid int64) []byte {
	return dbbuild.MustRecord(record.IntValue(rowid * 10))
}

// threeLevelTable builds a table tree with 8 rows (rowids 1..8) spread over
// four leaves under two interior pages under an interior root.
func threeLevelTable(t *testing.T) (*file.Database, uint32) {
	t.Helper()
	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, nil))

	leaf := func(rowids ...int64) uint32 {
		rows := make([]dbbuild.TableLeafRow, len(rowids))
		for i, id := range rowids {
			rows[i] = dbbuild.TableLeafRow{Rowid: id, Record: rowRecord(id)}
		}
		return b.AddPage(dbbuild.LeafTablePage(testPageSize, rows))
	}

	la := leaf(1, 2)
	lb := leaf(3, 4)
	lc := leaf(5, 6)
	ld := leaf(7, 8)

	ia := b.AddPage(dbbuild.InteriorTablePage(testPageSize,
		[]dbbuild.TableInteriorEntry{{Child: la, Rowid: 2}}, lb))
	ib := b.AddPage(dbbuild.InteriorTablePage(testPageSize,
		[]dbbuild.TableInteriorEntry{{Child: lc, Rowid: 6}}, ld))
	root := b.AddPage(dbbuild.InteriorTablePage(testPageSize,
		[]dbbuild.TableInteriorEntry{{Child: ia, Rowid: 4}}, ib))

	return buildDB(t, b), root
}

func TestTableScannerAscendingRowids(t *testing.T) {
	db, root := threeLevelTable(t)

	var got []int64
	sc := btree.NewTableScanner(db, root)
	for sc.Next() {
		row := sc.Row()
		got = append(got, row.RowID)

		vals, err := record.Decode(row.Payload, 1)
		if err != nil {
			t.Fatalf("rowid %d: Decode() error: %v", row.RowID, err)
		}
		if vals[0].Int64() != row.RowID*10 {
			t.Errorf("rowid %d: payload value = %d, want %d", row.RowID, vals[0].Int64(), row.RowID*10)
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	want := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("scanned %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: rowid = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTableScannerSingleLeaf(t *testing.T) {
	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, nil))
	root := b.AddPage(dbbuild.LeafTablePage(testPageSize, []dbbuild.TableLeafRow{
		{Rowid: 42, Record: rowRecord(42)},
	}))
	db := buildDB(t, b)

	sc := btree.NewTableScanner(db, root)
	if !sc.Next() {
		t.Fatalf("Next() = false, err = %v", sc.Err())
	}
	if sc.Row().RowID != 42 {
		t.Errorf("RowID = %d, want 42", sc.Row().RowID)
	}
	if sc.Next() {
		t.Error("Next() = true after last row")
	}
	if err := sc.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestTableScannerEmptyLeaf(t *testing.T) {
	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, nil))
	root := b.AddPage(dbbuild.LeafTablePage(testPageSize, nil))
	db := buildDB(t, b)

	sc := btree.NewTableScanner(db, root)
	if sc.Next() {
		t.Error("Next() = true on empty tree")
	}
	if err := sc.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestTableScannerRejectsIndexPage(t *testing.T) {
	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, nil))
	root := b.AddPage(dbbuild.LeafIndexPage(testPageSize, nil))
	db := buildDB(t, b)

	sc := btree.NewTableScanner(db, root)
	if sc.Next() {
		t.Fatal("Next() = true on index page")
	}
	if err := sc.Err(); !errors.Is(err, errors.ErrFormat) {
		t.Errorf("Err() = %v, want ErrFormat", err)
	}
}

func TestTableScannerCorruptCycle(t *testing.T) {
	// The root's right-most child points back at the root. The depth cap
	// must turn the cycle into an error instead of spinning.
	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, nil))
	leaf := b.AddPage(dbbuild.LeafTablePage(testPageSize, nil))
	root := leaf + 1
	b.AddPage(dbbuild.InteriorTablePage(testPageSize,
		[]dbbuild.TableInteriorEntry{{Child: leaf, Rowid: 1}}, root))
	db := buildDB(t, b)

	sc := btree.NewTableScanner(db, root)
	for sc.Next() {
	}
	if err := sc.Err(); !errors.Is(err, errors.ErrFormat) {
		t.Errorf("Err() = %v, want ErrFormat", err)
	}
}

func indexKey(key string, rowid int64) []byte {
	return dbbuild.MustRecord(record.TextValue(key), record.IntValue(rowid))
}

func TestIndexScannerInOrder(t *testing.T) {
	// Interior cells carry keys of their own, so the expected sequence
	// interleaves children and cell keys: a b | c | d e | f | g.
	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, nil))

	l1 := b.AddPage(dbbuild.LeafIndexPage(testPageSize, [][]byte{
		indexKey("a", 1), indexKey("b", 2),
	}))
	l2 := b.AddPage(dbbuild.LeafIndexPage(testPageSize, [][]byte{
		indexKey("d", 4), indexKey("e", 5),
	}))
	l3 := b.AddPage(dbbuild.LeafIndexPage(testPageSize, [][]byte{
		indexKey("g", 7),
	}))
	root := b.AddPage(dbbuild.InteriorIndexPage(testPageSize, []dbbuild.IndexInteriorEntry{
		{Child: l1, Record: indexKey("c", 3)},
		{Child: l2, Record: indexKey("f", 6)},
	}, l3))
	db := buildDB(t, b)

	var keys []string
	var rowids []int64
	sc := btree.NewIndexScanner(db, root)
	for sc.Next() {
		vals, err := record.Decode(sc.Entry().Payload, 2)
		if err != nil {
			t.Fatalf("Decode() error: %v", err)
		}
		keys = append(keys, vals[0].Display())
		rowids = append(rowids, vals[1].Int64())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	wantKeys := []string{"a", "b", "c", "d", "e", "f", "g"}
	if len(keys) != len(wantKeys) {
		t.Fatalf("scanned %d entries, want %d", len(keys), len(wantKeys))
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Errorf("entry %d: key = %q, want %q", i, keys[i], wantKeys[i])
		}
		if rowids[i] != int64(i+1) {
			t.Errorf("entry %d: rowid = %d, want %d", i, rowids[i], i+1)
		}
	}
}

func TestIndexScannerRejectsTablePage(t *testing.T) {
	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, nil))
	root := b.AddPage(dbbuild.LeafTablePage(testPageSize, nil))
	db := buildDB(t, b)

	sc := btree.NewIndexScanner(db, root)
	if sc.Next() {
		t.Fatal("Next() = true on table page")
	}
	if err := sc.Err(); !errors.Is(err, errors.ErrFormat) {
		t.Errorf("Err() = %v, want ErrFormat", err)
	}
}

func TestCountLeafCells(t *testing.T) {
	db, root := threeLevelTable(t)

	got, err := btree.CountLeafCells(db, root)
	if err != nil {
		t.Fatalf("CountLeafCells() error: %v", err)
	}
	if got != 8 {
		t.Errorf("CountLeafCells() = %d, want 8", got)
	}
}

func TestCountLeafCellsEmpty(t *testing.T) {
	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, nil))
	root := b.AddPage(dbbuild.LeafTablePage(testPageSize, nil))
	db := buildDB(t, b)

	got, err := btree.CountLeafCells(db, root)
	if err != nil {
		t.Fatalf("CountLeafCells() error: %v", err)
	}
	if got != 0 {
		t.Errorf("CountLeafCells() = %d, want 0", got)
	}
}

func TestCountLeafCellsCorruptCycle(t *testing.T) {
	b := dbbuild.New(testPageSize)
	b.SetCatalogPage(dbbuild.CatalogPage(testPageSize, nil))
	root := uint32(2)
	b.AddPage(dbbuild.InteriorTablePage(testPageSize, nil, root))
	db := buildDB(t, b)

	if _, err := btree.CountLeafCells(db, root); !errors.Is(err, errors.ErrFormat) {
		t.Errorf("error = %v, want ErrFormat", err)
	}
}
