package sqlcheck

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/schema"
)

type fixedCatalog struct{ cat *schema.Catalog }

func (f fixedCatalog) Catalog() *schema.Catalog { return f.cat }

func newTestValidator() *Validator {
	cat := schema.NewCatalog("v1", []schema.Table{
		{Name: "analytics.orders", Columns: []schema.Column{
			{Name: "order_id", Type: "INT64"},
			{Name: "customer_id", Type: "INT64"},
			{Name: "total", Type: "NUMERIC"},
			{Name: "created_at", Type: "TIMESTAMP"},
		}},
		{Name: "analytics.customers", Columns: []schema.Column{
			{Name: "customer_id", Type: "INT64"},
			{Name: "name", Type: "STRING"},
		}},
	})
	return NewValidator(fixedCatalog{cat}, zap.NewNop())
}

func TestValidate_KnownTablePasses(t *testing.T) {
	v := newTestValidator()
	res := v.Validate("SELECT * FROM analytics.orders", models.ValidationStrict)
	if !res.IsValid {
		t.Fatalf("expected valid, errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors should be empty, got %v", res.Errors)
	}
	if len(res.TablesFound) != 1 || res.TablesFound[0] != "analytics.orders" {
		t.Errorf("tables_found = %v", res.TablesFound)
	}
}

func TestValidate_UnknownTableFails(t *testing.T) {
	v := newTestValidator()
	res := v.Validate("SELECT * FROM unknown_table", models.ValidationStrict)
	if res.IsValid {
		t.Fatal("expected invalid")
	}
	want := "Table 'unknown_table' not found in schema"
	if len(res.Errors) != 1 || res.Errors[0] != want {
		t.Errorf("errors = %v, want [%s]", res.Errors, want)
	}
}

func TestValidate_SafetyGate(t *testing.T) {
	v := newTestValidator()
	for _, kw := range []string{"DROP", "DELETE", "UPDATE", "INSERT", "TRUNCATE", "ALTER", "CREATE"} {
		for _, level := range []models.ValidationLevel{models.ValidationStrict, models.ValidationBasic} {
			sql := kw + " something"
			res := v.Validate(sql, level)
			if res.IsValid {
				t.Errorf("%s must be rejected at level %s", kw, level)
				continue
			}
			found := false
			for _, e := range res.Errors {
				if strings.Contains(e, kw) {
					found = true
				}
			}
			if !found {
				t.Errorf("error must name the keyword %s, got %v", kw, res.Errors)
			}
		}
	}
}

func TestValidate_SafetyGateWordBoundary(t *testing.T) {
	v := newTestValidator()
	tests := []struct {
		sql     string
		blocked bool
	}{
		{"SELECT created_at FROM analytics.orders", false},
		{"SELECT * FROM analytics.orders WHERE status = 'updated'", false},
		{"SELECT * FROM analytics.orders ORDER BY created_at", false},
		{"DELETE FROM analytics.orders", true},
		{"select * from analytics.orders; drop table analytics.orders", true},
		{"INSERT INTO analytics.orders VALUES (1)", true},
	}
	for _, tt := range tests {
		res := v.Validate(tt.sql, models.ValidationBasic)
		if got := !res.IsValid; got != tt.blocked {
			t.Errorf("blocked(%q) = %v, want %v (errors: %v)", tt.sql, got, tt.blocked, res.Errors)
		}
	}
}

// A CTE alias is query-scoped, not a base table; flagging it used to be the
// most common source of false validation failures.
func TestValidate_CTEAliasNotFlagged(t *testing.T) {
	v := newTestValidator()
	sql := `
WITH monthly AS (
    SELECT created_at, SUM(total) AS revenue
    FROM analytics.orders
    GROUP BY created_at
)
SELECT * FROM monthly`

	res := v.Validate(sql, models.ValidationStrict)
	if !res.IsValid {
		t.Fatalf("CTE alias flagged as missing table: %v", res.Errors)
	}
}

func TestValidate_ChainedCTEsAndRealMissingTable(t *testing.T) {
	v := newTestValidator()
	sql := `
WITH base AS (SELECT * FROM analytics.orders),
     agg AS (SELECT customer_id FROM base)
SELECT * FROM agg JOIN missing.table m ON agg.customer_id = m.id`

	res := v.Validate(sql, models.ValidationStrict)
	if res.IsValid {
		t.Fatal("missing base table must still fail under CTEs")
	}
	want := "Table 'missing.table' not found in schema"
	if len(res.Errors) != 1 || res.Errors[0] != want {
		t.Errorf("errors = %v, want exactly [%s]", res.Errors, want)
	}
}

func TestValidate_UnknownColumnOnlyWarns(t *testing.T) {
	v := newTestValidator()
	res := v.Validate("SELECT nonexistent_col FROM analytics.orders", models.ValidationStrict)
	if !res.IsValid {
		t.Fatalf("unknown column must not fail validation: %v", res.Errors)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "nonexistent_col") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning for nonexistent_col, got %v", res.Warnings)
	}
}

func TestValidate_BasicSkipsSchemaCheck(t *testing.T) {
	v := newTestValidator()
	res := v.Validate("SELECT * FROM unknown_table", models.ValidationBasic)
	if !res.IsValid {
		t.Errorf("basic level must not run the schema check: %v", res.Errors)
	}
}

func TestValidate_EmptyQuery(t *testing.T) {
	v := newTestValidator()
	res := v.Validate("   ", models.ValidationStrict)
	if res.IsValid || len(res.Errors) == 0 {
		t.Error("empty query must be invalid")
	}
}

func TestValidate_BareTableNameResolvesAgainstQualified(t *testing.T) {
	v := newTestValidator()
	res := v.Validate("SELECT * FROM orders", models.ValidationStrict)
	if !res.IsValid {
		t.Errorf("bare last segment should resolve unambiguously: %v", res.Errors)
	}
}
