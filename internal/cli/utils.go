// Package cli provides output formatting for the kotae command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
)

// OutputFormat is the format for answer output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteAskResult writes an answer to w in the given format. Use OutputJSON for
// parseable output consumable by other apps.
func WriteAskResult(w io.Writer, result *pipeline.AskResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		writeAskResultText(w, result)
		return nil
	}
}

func writeAskResultText(w io.Writer, result *pipeline.AskResult) {
	if result.Explanation != "" {
		fmt.Fprintln(w, strings.TrimSpace(result.Explanation))
		return
	}
	fmt.Fprintln(w, strings.TrimSpace(result.SQL))
	writeValidation(w, result.Validation)
	if len(result.Hits) > 0 {
		fmt.Fprintf(w, "\n--- %d example(s) used ---\n", len(result.Hits))
		for _, hit := range result.Hits {
			writeOneHit(w, hit)
		}
	}
}

func writeValidation(w io.Writer, result *models.ValidationResult) {
	if result == nil {
		return
	}
	if result.IsValid {
		fmt.Fprintln(w, "\n-- validation: ok")
	} else {
		fmt.Fprintln(w, "\n-- validation: FAILED")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "--   error: %s\n", e)
		}
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "--   warning: %s\n", warning)
	}
}

func writeOneHit(w io.Writer, hit *models.RetrievalHit) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "ID: %s | Score: %.4f (Vector: %.4f, Keyword: %.4f)\n",
		hit.Document.ID, hit.FusedScore, hit.VectorScore, hit.KeywordScore)
	if hit.Document.Description != "" {
		fmt.Fprintf(w, "%s\n", TruncateWords(hit.Document.Description, 30))
	}
	fmt.Fprintf(w, "%s\n", Truncate(hit.Document.QueryText, 200))
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
