package e2e

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// SchemaRows returns the fixture warehouse schema as header plus
// table_id,column,datatype rows. Both schema fixture writers emit these rows,
// so CSV and XLSX loads produce the same catalog.
func SchemaRows() [][]string {
	return [][]string{
		{"table_id", "column", "datatype"},
		{"analytics.orders", "order_id", "INT64"},
		{"analytics.orders", "customer_id", "INT64"},
		{"analytics.orders", "status", "STRING"},
		{"analytics.orders", "total", "NUMERIC"},
		{"analytics.orders", "created_at", "TIMESTAMP"},
		{"analytics.customers", "customer_id", "INT64"},
		{"analytics.customers", "name", "STRING"},
		{"analytics.customers", "email", "STRING"},
		{"analytics.customers", "country", "STRING"},
		{"analytics.customers", "signup_date", "DATE"},
		{"analytics.order_items", "order_id", "INT64"},
		{"analytics.order_items", "product_id", "INT64"},
		{"analytics.order_items", "quantity", "INT64"},
		{"analytics.order_items", "unit_price", "NUMERIC"},
		{"analytics.products", "product_id", "INT64"},
		{"analytics.products", "name", "STRING"},
		{"analytics.products", "category", "STRING"},
		{"analytics.products", "price", "NUMERIC"},
		{"billing.invoices", "invoice_id", "INT64"},
		{"billing.invoices", "order_id", "INT64"},
		{"billing.invoices", "amount", "NUMERIC"},
		{"billing.invoices", "issued_at", "TIMESTAMP"},
		{"billing.invoices", "paid", "BOOL"},
		{"billing.payments", "payment_id", "INT64"},
		{"billing.payments", "invoice_id", "INT64"},
		{"billing.payments", "method", "STRING"},
		{"billing.payments", "amount", "NUMERIC"},
		{"billing.payments", "paid_at", "TIMESTAMP"},
		{"web.sessions", "session_id", "STRING"},
		{"web.sessions", "customer_id", "INT64"},
		{"web.sessions", "started_at", "TIMESTAMP"},
		{"web.sessions", "user_agent", "STRING"},
		{"web.pageviews", "session_id", "STRING"},
		{"web.pageviews", "url", "STRING"},
		{"web.pageviews", "viewed_at", "TIMESTAMP"},
	}
}

// WriteSchemaCSV writes the fixture schema as a CSV dump at path.
func WriteSchemaCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create schema csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(SchemaRows()); err != nil {
		return fmt.Errorf("write schema csv: %w", err)
	}
	w.Flush()
	return w.Error()
}

// WriteSchemaXLSX writes the fixture schema as an XLSX workbook at path.
func WriteSchemaXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range SchemaRows() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write schema row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save schema workbook: %w", err)
	}
	return nil
}
