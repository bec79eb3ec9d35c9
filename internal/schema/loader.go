package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadFile loads a catalog snapshot from a schema dump. The format is chosen
// by extension: .csv is parsed directly, .xlsx via excelize. Rows must carry
// table_id, column, datatype (header row required for CSV, first row for XLSX).
func LoadFile(path, version string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open schema file: %w", err)
		}
		defer f.Close()
		return LoadCSV(f, version)
	case ".xlsx":
		return loadXLSX(path, version)
	default:
		return nil, fmt.Errorf("unsupported schema format: %s (supported: .csv, .xlsx)", path)
	}
}

// LoadCSV parses table_id,column,datatype rows into a catalog.
// Column order within a table follows row order in the file.
func LoadCSV(r io.Reader, version string) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // ragged exports are common; short rows are skipped in fromRows
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse schema csv: %w", err)
	}
	return fromRows(records, version)
}

func loadXLSX(path, version string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open schema workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("schema workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows, version)
}

// fromRows converts raw rows into a catalog. The first row is a header and is
// used to locate the table_id/column/datatype columns; extra columns are ignored.
func fromRows(rows [][]string, version string) (*Catalog, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("schema source is empty")
	}

	tableIdx, colIdx, typeIdx := -1, -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "table_id", "table", "table_name":
			tableIdx = i
		case "column", "column_name":
			colIdx = i
		case "datatype", "data_type", "type":
			typeIdx = i
		}
	}
	if tableIdx < 0 || colIdx < 0 || typeIdx < 0 {
		return nil, fmt.Errorf("schema source missing required header (table_id, column, datatype)")
	}

	order := []string{}
	byName := map[string]*Table{}
	for _, row := range rows[1:] {
		if len(row) <= tableIdx || len(row) <= colIdx || len(row) <= typeIdx {
			continue // short row, usually trailing blank lines in exports
		}
		tableName := strings.TrimSpace(row[tableIdx])
		colName := strings.TrimSpace(row[colIdx])
		if tableName == "" || colName == "" {
			continue
		}
		key := strings.ToLower(tableName)
		t, ok := byName[key]
		if !ok {
			t = &Table{Name: tableName}
			byName[key] = t
			order = append(order, key)
		}
		t.Columns = append(t.Columns, Column{Name: colName, Type: strings.TrimSpace(row[typeIdx])})
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("schema source has no table rows")
	}

	tables := make([]Table, 0, len(order))
	for _, key := range order {
		tables = append(tables, *byName[key])
	}
	return NewCatalog(version, tables), nil
}
