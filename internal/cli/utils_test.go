package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
)

func sampleResult() *pipeline.AskResult {
	validation := models.NewValidationResult()
	validation.TablesFound = []string{"analytics.orders"}
	return &pipeline.AskResult{
		Mode:     "generate",
		Question: "total revenue by month",
		SQL:      "SELECT date_trunc('month', created_at) AS m, SUM(total) FROM analytics.orders GROUP BY 1",
		Hits: []*models.RetrievalHit{
			{
				Document: &models.CorpusDocument{
					ID:          "q1",
					QueryText:   "SELECT SUM(total) FROM analytics.orders",
					Description: "Total order revenue",
				},
				VectorScore:  0.9,
				KeywordScore: 0.4,
				FusedScore:   0.75,
			},
		},
		Validation: validation,
	}
}

func TestWriteAskResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAskResult(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatalf("WriteAskResult(json): %v", err)
	}
	var decoded pipeline.AskResult
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.SQL == "" || decoded.Mode != "generate" {
		t.Errorf("decoded result incomplete: %+v", decoded)
	}
	if len(decoded.Hits) != 1 || decoded.Hits[0].Document.ID != "q1" {
		t.Errorf("decoded hits: want one hit with id q1, got %+v", decoded.Hits)
	}
}

func TestWriteAskResult_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAskResult(&buf, sampleResult(), OutputText); err != nil {
		t.Fatalf("WriteAskResult(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"FROM analytics.orders", "validation: ok", "1 example(s) used", "ID: q1", "Total order revenue"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteAskResult_textValidationFailed(t *testing.T) {
	result := sampleResult()
	result.Validation = models.NewValidationResult()
	result.Validation.AddError("Table '%s' not found in schema", "missing.table")
	result.Validation.AddWarning("Column '%s' not found in schema", "nope")

	var buf bytes.Buffer
	if err := WriteAskResult(&buf, result, OutputText); err != nil {
		t.Fatalf("WriteAskResult(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"validation: FAILED", "Table 'missing.table' not found in schema", "warning: Column 'nope' not found in schema"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteAskResult_textExplanationOnly(t *testing.T) {
	result := &pipeline.AskResult{
		Mode:        "explain",
		Question:    "what does orders hold",
		Explanation: "The orders table holds one row per order.",
	}
	var buf bytes.Buffer
	if err := WriteAskResult(&buf, result, OutputText); err != nil {
		t.Fatalf("WriteAskResult(text): %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "one row per order") {
		t.Errorf("expected explanation in output:\n%s", out)
	}
	if strings.Contains(out, "validation") {
		t.Errorf("explanation output should not mention validation:\n%s", out)
	}
}

func TestWriteAskResult_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAskResult(&buf, sampleResult(), OutputFormat("unknown")); err != nil {
		t.Fatalf("WriteAskResult(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "validation: ok") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"single long", "word", 1, "word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
