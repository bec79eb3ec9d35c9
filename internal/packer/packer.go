// Package packer assembles the token-budgeted prompt context handed to SQL
// generation: the best example queries first, then compact schema snippets
// for every table those examples touch.
package packer

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/schema"
)

const (
	// DefaultTokenBudget caps the whole packed context.
	DefaultTokenBudget = 2000

	// defaultSchemaShare is the fraction of the budget reserved for schema
	// snippets so schema text cannot starve example text, and vice versa.
	defaultSchemaShare = 0.35

	truncationMarker = "  -- truncated"

	exampleHeader = "Example queries:\n\n"
	schemaHeader  = "Relevant tables:\n\n"
	sectionSep    = "\n"
)

// Config tunes the packer.
type Config struct {
	TokenBudget int
	// SchemaShare is the fraction of TokenBudget reserved for schema
	// snippets, in (0,1). Zero selects the default.
	SchemaShare float64
}

// Packer builds prompt context from deduplicated retrieval hits.
type Packer struct {
	cfg    Config
	logger *zap.Logger
}

// NewPacker builds a Packer, applying defaults for unset config fields.
func NewPacker(cfg Config, logger *zap.Logger) *Packer {
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = DefaultTokenBudget
	}
	if cfg.SchemaShare <= 0 || cfg.SchemaShare >= 1 {
		cfg.SchemaShare = defaultSchemaShare
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Packer{cfg: cfg, logger: logger}
}

// Pack renders hits and the schema snippets they reference into a single
// prompt-ready text whose estimated token cost never exceeds the budget.
//
// Hits are taken in the order given (callers pass them fused-score
// descending) and included greedily until the example budget is exhausted.
// Schema snippets cover the distinct tables referenced by the included hits,
// in sorted name order for determinism.
func (p *Packer) Pack(hits []*models.RetrievalHit, catalog *schema.Catalog) string {
	schemaBudget := int(float64(p.cfg.TokenBudget) * p.cfg.SchemaShare)
	exampleBudget := p.cfg.TokenBudget - schemaBudget

	// Section headers and the separator count against the budget like any
	// other text, charged to the section that emits them.
	examples, tables := p.packExamples(hits, exampleBudget-EstimateTokens(exampleHeader))

	var b strings.Builder
	if examples != "" {
		b.WriteString(exampleHeader)
		b.WriteString(examples)
	}

	if catalog != nil && len(tables) > 0 {
		overhead := EstimateTokens(schemaHeader)
		if b.Len() > 0 {
			overhead += EstimateTokens(sectionSep)
		}
		snippets := p.packSchema(tables, catalog, schemaBudget-overhead)
		if snippets != "" {
			if b.Len() > 0 {
				b.WriteString(sectionSep)
			}
			b.WriteString(schemaHeader)
			b.WriteString(snippets)
		}
	}
	return b.String()
}

// PackSchema renders snippets for the given tables alone, under the schema
// share of the budget. Used by flows that have SQL but no retrieval hits.
func (p *Packer) PackSchema(tables []string, catalog *schema.Catalog) string {
	if catalog == nil || len(tables) == 0 {
		return ""
	}
	sorted := append([]string(nil), tables...)
	sort.Strings(sorted)
	budget := int(float64(p.cfg.TokenBudget)*p.cfg.SchemaShare) - EstimateTokens(schemaHeader)
	snippets := p.packSchema(sorted, catalog, budget)
	if snippets == "" {
		return ""
	}
	return schemaHeader + snippets
}

// packExamples renders hits until the budget runs out and collects the
// distinct table names the included hits reference.
func (p *Packer) packExamples(hits []*models.RetrievalHit, budget int) (string, []string) {
	var b strings.Builder
	seen := make(map[string]struct{})
	used := 0
	included := 0

	for _, hit := range hits {
		if hit == nil || hit.Document == nil {
			continue
		}
		block := renderExample(hit.Document)
		cost := EstimateTokens(block)
		if used+cost > budget {
			break
		}
		b.WriteString(block)
		used += cost
		included++
		for _, table := range hit.Document.TablesUsed {
			table = strings.TrimSpace(table)
			if table != "" {
				seen[table] = struct{}{}
			}
		}
	}

	if included < len(hits) {
		p.logger.Debug("context budget reached",
			zap.Int("included", included),
			zap.Int("dropped", len(hits)-included))
	}

	tables := make([]string, 0, len(seen))
	for t := range seen {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return b.String(), tables
}

func renderExample(doc *models.CorpusDocument) string {
	var b strings.Builder
	if doc.Description != "" {
		b.WriteString("-- ")
		b.WriteString(doc.Description)
		b.WriteString("\n")
	}
	b.WriteString(strings.TrimSpace(doc.QueryText))
	b.WriteString("\n\n")
	return b.String()
}

// packSchema renders one snippet per table under the schema budget. A table
// whose full snippet would not fit is truncated at a column boundary with an
// explicit marker; identifiers are never cut mid-name.
func (p *Packer) packSchema(tables []string, catalog *schema.Catalog, budget int) string {
	var b strings.Builder
	used := 0

	for _, name := range tables {
		table, ok := catalog.Lookup(name)
		if !ok {
			continue
		}
		remaining := budget - used
		if remaining <= 0 {
			break
		}
		snippet := renderTable(table, remaining)
		if snippet == "" {
			break
		}
		b.WriteString(snippet)
		used += EstimateTokens(snippet)
	}
	return b.String()
}

// renderTable renders "name:\n  col type\n..." within budget tokens. It adds
// columns one at a time and stops at the last whole column that fits, marking
// the cut. The closing blank line and the marker line are charged like any
// column line. Returns "" if even the header and closing do not fit, or if a
// cut could not be marked within budget.
func renderTable(table *schema.Table, budget int) string {
	header := table.Name + ":\n"
	closing := "\n"
	marker := truncationMarker + "\n"
	if EstimateTokens(header)+EstimateTokens(closing) > budget {
		return ""
	}

	var b strings.Builder
	b.WriteString(header)
	truncated := false
	for _, col := range table.Columns {
		line := fmt.Sprintf("  %s %s\n", col.Name, col.Type)
		if EstimateTokens(b.String())+EstimateTokens(line)+EstimateTokens(marker)+EstimateTokens(closing) > budget {
			truncated = true
			break
		}
		b.WriteString(line)
	}
	if truncated {
		if EstimateTokens(b.String())+EstimateTokens(marker)+EstimateTokens(closing) > budget {
			return ""
		}
		b.WriteString(marker)
	}
	b.WriteString(closing)
	return b.String()
}
