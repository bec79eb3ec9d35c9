package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const sampleCSV = `table_id,column,datatype
analytics.orders,order_id,INT64
analytics.orders,customer_id,INT64
analytics.orders,total,NUMERIC
analytics.customers,customer_id,INT64
analytics.customers,name,STRING
`

func TestLoadCSV(t *testing.T) {
	cat, err := LoadCSV(strings.NewReader(sampleCSV), "test")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if cat.Size() != 2 {
		t.Fatalf("expected 2 tables, got %d", cat.Size())
	}
	orders, ok := cat.Lookup("analytics.orders")
	if !ok {
		t.Fatal("analytics.orders not found")
	}
	if len(orders.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(orders.Columns))
	}
	// Column order must follow row order in the source.
	if orders.Columns[0].Name != "order_id" || orders.Columns[2].Name != "total" {
		t.Errorf("column order not preserved: %v", orders.Columns)
	}
}

func TestLoadCSV_HeaderVariants(t *testing.T) {
	csv := "table_name,column_name,data_type\nt1,c1,STRING\n"
	cat, err := LoadCSV(strings.NewReader(csv), "test")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if !cat.HasTable("t1") {
		t.Error("t1 not loaded")
	}
}

func TestLoadCSV_RaggedRows(t *testing.T) {
	// Spreadsheet exports often drop trailing cells, so rows may carry
	// fewer fields than the header. Short rows are skipped, not fatal.
	csv := "table_id,column,datatype\n" +
		"analytics.orders,order_id,INT64\n" +
		"analytics.orders\n" +
		"analytics.orders,total\n" +
		"analytics.customers,customer_id,INT64\n"
	cat, err := LoadCSV(strings.NewReader(csv), "test")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	orders, ok := cat.Lookup("analytics.orders")
	if !ok {
		t.Fatal("analytics.orders not found")
	}
	if len(orders.Columns) != 1 || orders.Columns[0].Name != "order_id" {
		t.Errorf("expected only the complete row to load, got %v", orders.Columns)
	}
	if !cat.HasTable("analytics.customers") {
		t.Error("analytics.customers not loaded")
	}
}

func TestLoadCSV_MissingHeader(t *testing.T) {
	if _, err := LoadCSV(strings.NewReader("a,b,c\nx,y,z\n"), "test"); err == nil {
		t.Error("expected error for missing header")
	}
	if _, err := LoadCSV(strings.NewReader(""), "test"); err == nil {
		t.Error("expected error for empty source")
	}
}

func TestLoadFile_UnsupportedFormat(t *testing.T) {
	if _, err := LoadFile("schema.parquet", "test"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestManager_ReloadKeepsOldSnapshotOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0600); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	first := m.Catalog()
	if first.Size() != 2 {
		t.Fatalf("expected 2 tables, got %d", first.Size())
	}

	// Corrupt the source: reload must fail and keep the old snapshot.
	if err := os.WriteFile(path, []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := m.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if m.Catalog() != first {
		t.Error("failed reload must keep the previous snapshot")
	}

	// Fix the source: reload swaps in a new snapshot.
	extended := sampleCSV + "raw.events,event_id,STRING\n"
	if err := os.WriteFile(path, []byte(extended), 0600); err != nil {
		t.Fatal(err)
	}
	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if m.Catalog() == first {
		t.Error("successful reload must swap the snapshot")
	}
	if m.Catalog().Size() != 3 {
		t.Errorf("expected 3 tables after reload, got %d", m.Catalog().Size())
	}
}
