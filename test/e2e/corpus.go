// Package e2e provides end-to-end tests covering the full question flow with
// a generated example-query corpus and multiple retrieval test cases.
package e2e

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// QueryTestCase defines a question and the corpus doc ID(s) that must appear
// in retrieval results. At least one of ExpectedDocIDs must be present.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds example-query records and retrieval test cases for E2E tests.
type Corpus struct {
	Records   []models.CorpusRecord
	TestCases []QueryTestCase
}

// BuildCorpus returns a corpus of example queries over the fixture warehouse
// schema. Each record has a unique signature phrase in its description so
// queries can assert the correct document is returned.
func BuildCorpus() *Corpus {
	entries := []struct {
		query  string
		desc   string
		tables []string
	}{
		{"SELECT DATE_TRUNC(created_at, MONTH) AS month, SUM(total) AS revenue FROM analytics.orders GROUP BY month ORDER BY month",
			"monthly revenue totals from completed orders",
			[]string{"analytics.orders"}},
		{"SELECT customer_id, COUNT(*) AS order_count FROM analytics.orders GROUP BY customer_id ORDER BY order_count DESC LIMIT 10",
			"top customers ranked by order count",
			[]string{"analytics.orders"}},
		{"SELECT c.country, COUNT(DISTINCT c.customer_id) AS customers FROM analytics.customers c GROUP BY c.country",
			"customer headcount broken down by country",
			[]string{"analytics.customers"}},
		{"SELECT o.order_id, c.name, o.total FROM analytics.orders o JOIN analytics.customers c ON o.customer_id = c.customer_id WHERE o.status = 'refunded'",
			"refunded orders joined with customer names",
			[]string{"analytics.orders", "analytics.customers"}},
		{"SELECT p.category, SUM(i.quantity * i.unit_price) AS gross FROM analytics.order_items i JOIN analytics.products p ON i.product_id = p.product_id GROUP BY p.category",
			"gross sales per product category",
			[]string{"analytics.order_items", "analytics.products"}},
		{"SELECT p.name, SUM(i.quantity) AS units_sold FROM analytics.order_items i JOIN analytics.products p ON i.product_id = p.product_id GROUP BY p.name ORDER BY units_sold DESC LIMIT 20",
			"best selling products by units sold",
			[]string{"analytics.order_items", "analytics.products"}},
		{"SELECT AVG(total) AS avg_order_value FROM analytics.orders WHERE status = 'completed'",
			"average order value for completed orders",
			[]string{"analytics.orders"}},
		{"SELECT invoice_id, amount FROM billing.invoices WHERE paid = FALSE AND issued_at < CURRENT_TIMESTAMP()",
			"unpaid invoices past their issue date",
			[]string{"billing.invoices"}},
		{"SELECT method, SUM(amount) AS collected FROM billing.payments GROUP BY method",
			"payment amounts collected per payment method",
			[]string{"billing.payments"}},
		{"SELECT i.invoice_id, i.amount, p.paid_at FROM billing.invoices i LEFT JOIN billing.payments p ON i.invoice_id = p.invoice_id WHERE p.payment_id IS NULL",
			"invoices that have no matching payment yet",
			[]string{"billing.invoices", "billing.payments"}},
		{"WITH daily AS (SELECT DATE(started_at) AS day, COUNT(*) AS sessions FROM web.sessions GROUP BY day) SELECT day, sessions FROM daily ORDER BY day",
			"daily session counts from web traffic",
			[]string{"web.sessions"}},
		{"SELECT s.customer_id, COUNT(v.url) AS pageviews FROM web.sessions s JOIN web.pageviews v ON s.session_id = v.session_id GROUP BY s.customer_id",
			"pageviews per customer across sessions",
			[]string{"web.sessions", "web.pageviews"}},
		{"SELECT url, COUNT(*) AS hits FROM web.pageviews GROUP BY url ORDER BY hits DESC LIMIT 10",
			"most visited urls by pageview hits",
			[]string{"web.pageviews"}},
		{"SELECT c.name, c.email FROM analytics.customers c WHERE c.signup_date >= DATE_SUB(CURRENT_DATE(), INTERVAL 30 DAY)",
			"customers who signed up in the last thirty days",
			[]string{"analytics.customers"}},
		{"SELECT status, COUNT(*) AS orders FROM analytics.orders GROUP BY status",
			"order counts split by fulfillment status",
			[]string{"analytics.orders"}},
		{"WITH ranked AS (SELECT customer_id, total, ROW_NUMBER() OVER (PARTITION BY customer_id ORDER BY created_at DESC) AS rn FROM analytics.orders) SELECT customer_id, total FROM ranked WHERE rn = 1",
			"latest order total per customer using a window function",
			[]string{"analytics.orders"}},
		{"SELECT p.name, p.price FROM analytics.products p WHERE p.price > (SELECT AVG(price) FROM analytics.products)",
			"products priced above the catalog average",
			[]string{"analytics.products"}},
		{"SELECT DATE(o.created_at) AS day, SUM(o.total) AS revenue, COUNT(*) AS orders FROM analytics.orders o WHERE o.created_at >= DATE_SUB(CURRENT_DATE(), INTERVAL 7 DAY) GROUP BY day",
			"revenue and order volume for the past week",
			[]string{"analytics.orders"}},
		{"SELECT c.country, SUM(o.total) AS revenue FROM analytics.orders o JOIN analytics.customers c ON o.customer_id = c.customer_id GROUP BY c.country ORDER BY revenue DESC",
			"revenue contribution ranked by customer country",
			[]string{"analytics.orders", "analytics.customers"}},
		{"SELECT s.user_agent, COUNT(*) AS sessions FROM web.sessions s GROUP BY s.user_agent ORDER BY sessions DESC",
			"session counts grouped by browser user agent",
			[]string{"web.sessions"}},
	}

	records := make([]models.CorpusRecord, 0, len(entries))
	for i, e := range entries {
		records = append(records, models.CorpusRecord{
			ID:          fmt.Sprintf("e2e-q-%03d", i+1),
			Query:       e.query,
			Description: e.desc,
			TablesUsed:  e.tables,
		})
	}
	return &Corpus{
		Records:   records,
		TestCases: buildQueryTestCases(records),
	}
}

func buildQueryTestCases(records []models.CorpusRecord) []QueryTestCase {
	// Each question reuses the signature phrase from exactly one description,
	// so the keyword signal pins the expected document.
	questions := []struct {
		query string
		docID string
	}{
		{"monthly revenue totals", "e2e-q-001"},
		{"top customers by order count", "e2e-q-002"},
		{"customer headcount by country", "e2e-q-003"},
		{"refunded orders with customer names", "e2e-q-004"},
		{"gross sales per product category", "e2e-q-005"},
		{"best selling products", "e2e-q-006"},
		{"average order value", "e2e-q-007"},
		{"unpaid invoices", "e2e-q-008"},
		{"collected per payment method", "e2e-q-009"},
		{"invoices with no matching payment", "e2e-q-010"},
		{"daily session counts", "e2e-q-011"},
		{"pageviews per customer", "e2e-q-012"},
		{"most visited urls", "e2e-q-013"},
		{"customers who signed up recently", "e2e-q-014"},
		{"latest order total per customer", "e2e-q-016"},
		{"products priced above average", "e2e-q-017"},
		{"revenue for the past week", "e2e-q-018"},
		{"sessions by browser user agent", "e2e-q-020"},
	}
	cases := make([]QueryTestCase, 0, len(questions))
	for _, q := range questions {
		cases = append(cases, QueryTestCase{
			Query:          q.query,
			ExpectedDocIDs: []string{q.docID},
			Description:    fmt.Sprintf("question %q should retrieve %s", q.query, q.docID),
		})
	}
	return cases
}
