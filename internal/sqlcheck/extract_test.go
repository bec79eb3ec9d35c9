package sqlcheck

import (
	"reflect"
	"testing"
)

func TestExtract_SimpleFrom(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			"bare table",
			"SELECT * FROM orders",
			[]string{"orders"},
		},
		{
			"qualified table",
			"SELECT id FROM analytics.orders",
			[]string{"analytics.orders"},
		},
		{
			"backtick qualified",
			"SELECT id FROM `proj.analytics.orders`",
			[]string{"proj.analytics.orders"},
		},
		{
			"backtick parts",
			"SELECT id FROM `analytics`.`orders`",
			[]string{"analytics.orders"},
		},
		{
			"double quoted",
			`SELECT id FROM "analytics"."orders"`,
			[]string{"analytics.orders"},
		},
		{
			"join",
			"SELECT * FROM orders o JOIN customers c ON o.customer_id = c.id",
			[]string{"orders", "customers"},
		},
		{
			"left join with as",
			"SELECT * FROM orders AS o LEFT JOIN analytics.customers AS c ON o.cid = c.id",
			[]string{"orders", "analytics.customers"},
		},
		{
			"comma-separated from list",
			"SELECT * FROM orders o, customers c WHERE o.cid = c.id",
			[]string{"orders", "customers"},
		},
		{
			"repeated table deduped",
			"SELECT * FROM orders a JOIN orders b ON a.id = b.id",
			[]string{"orders"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractIdentifiers(tt.sql)
			if !reflect.DeepEqual(got.Tables, tt.want) {
				t.Errorf("tables = %v, want %v", got.Tables, tt.want)
			}
		})
	}
}

func TestExtract_CTENamesAreNotTables(t *testing.T) {
	sql := `
WITH monthly AS (
    SELECT month, SUM(total) AS revenue
    FROM analytics.orders
    GROUP BY month
)
SELECT * FROM monthly WHERE revenue > 1000`

	got := extractIdentifiers(sql)
	if !reflect.DeepEqual(got.Tables, []string{"analytics.orders"}) {
		t.Errorf("tables = %v, want [analytics.orders]", got.Tables)
	}
	if !reflect.DeepEqual(got.CTEs, []string{"monthly"}) {
		t.Errorf("ctes = %v, want [monthly]", got.CTEs)
	}
}

func TestExtract_ChainedCTEs(t *testing.T) {
	sql := `
WITH base AS (
    SELECT * FROM raw.events
), daily AS (
    SELECT day, COUNT(*) AS n FROM base GROUP BY day
), ranked AS (
    SELECT * FROM daily ORDER BY n DESC
)
SELECT * FROM ranked JOIN analytics.customers c ON ranked.id = c.id`

	got := extractIdentifiers(sql)
	wantTables := []string{"raw.events", "analytics.customers"}
	if !reflect.DeepEqual(got.Tables, wantTables) {
		t.Errorf("tables = %v, want %v", got.Tables, wantTables)
	}
	wantCTEs := []string{"base", "daily", "ranked"}
	if !reflect.DeepEqual(got.CTEs, wantCTEs) {
		t.Errorf("ctes = %v, want %v", got.CTEs, wantCTEs)
	}
}

func TestExtract_RecursiveAndColumnListCTE(t *testing.T) {
	sql := `
WITH RECURSIVE tree (id, parent) AS (
    SELECT id, parent FROM analytics.nodes WHERE parent IS NULL
    UNION ALL
    SELECT n.id, n.parent FROM analytics.nodes n JOIN tree t ON n.parent = t.id
)
SELECT * FROM tree`

	got := extractIdentifiers(sql)
	if !reflect.DeepEqual(got.Tables, []string{"analytics.nodes"}) {
		t.Errorf("tables = %v, want [analytics.nodes]", got.Tables)
	}
	if !reflect.DeepEqual(got.CTEs, []string{"tree"}) {
		t.Errorf("ctes = %v, want [tree]", got.CTEs)
	}
}

func TestExtract_SubqueriesAndFunctions(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			"from subquery",
			"SELECT * FROM (SELECT id FROM analytics.orders) sub",
			[]string{"analytics.orders"},
		},
		{
			"where exists subquery",
			"SELECT * FROM orders o WHERE EXISTS (SELECT 1 FROM refunds r WHERE r.order_id = o.id)",
			[]string{"orders", "refunds"},
		},
		{
			"table function not a table",
			"SELECT x FROM UNNEST([1, 2, 3]) AS x",
			nil,
		},
		{
			"join on unnest",
			"SELECT * FROM analytics.orders o JOIN UNNEST(o.items) item",
			[]string{"analytics.orders"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractIdentifiers(tt.sql)
			if !reflect.DeepEqual(got.Tables, tt.want) {
				t.Errorf("tables = %v, want %v", got.Tables, tt.want)
			}
		})
	}
}

func TestExtract_CommentsAndStringsIgnored(t *testing.T) {
	sql := `
-- FROM fake.table in a comment
SELECT name, /* FROM another.fake */ 'FROM literal.fake' AS lit
FROM analytics.customers
WHERE name != 'JOIN nothing'`

	got := extractIdentifiers(sql)
	if !reflect.DeepEqual(got.Tables, []string{"analytics.customers"}) {
		t.Errorf("tables = %v, want [analytics.customers]", got.Tables)
	}
}

func TestExtract_ColumnCandidates(t *testing.T) {
	sql := "SELECT o.total, status FROM analytics.orders o WHERE created_at > '2026-01-01'"
	got := extractIdentifiers(sql)

	want := map[string]bool{"total": true, "status": true, "created_at": true}
	for _, col := range got.Columns {
		if !want[col] {
			t.Errorf("unexpected column candidate %q", col)
		}
		delete(want, col)
	}
	for col := range want {
		t.Errorf("missing column candidate %q", col)
	}
}

func TestExtract_FunctionNamesNotColumns(t *testing.T) {
	got := extractIdentifiers("SELECT COUNT(id), SUM(total) FROM orders")
	for _, col := range got.Columns {
		if col == "COUNT" || col == "SUM" {
			t.Errorf("function name %q collected as column", col)
		}
	}
}

func TestExtract_MalformedInput(t *testing.T) {
	for _, sql := range []string{
		"",
		"SELECT",
		"FROM",
		"WITH x",
		"SELECT * FROM (SELECT",
		"((((",
		"`unterminated",
		"'unterminated",
	} {
		got := extractIdentifiers(sql) // must not panic
		_ = got
	}
}
