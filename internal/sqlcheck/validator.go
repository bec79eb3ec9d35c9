package sqlcheck

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/schema"
)

// blockedKeywords are the mutating statements the assistant must never emit.
// EXECUTE/EXEC style procedural keywords are deliberately absent: the target
// engines have no such statement, so matching them would only reject
// legitimate read-only queries.
var blockedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "TRUNCATE", "ALTER", "CREATE",
}

// blocklistRe matches any blocked keyword on a word boundary, so "CREATED_AT"
// or "dropped_orders" never trip the gate.
var blocklistRe = regexp.MustCompile(`(?i)\b(` + strings.Join(blockedKeywords, "|") + `)\b`)

// CatalogSource yields the current schema snapshot. *schema.Manager
// satisfies it.
type CatalogSource interface {
	Catalog() *schema.Catalog
}

// Validator classifies candidate SQL against the safety blocklist and the
// schema catalog. Validate is pure over the catalog snapshot it acquires per
// call and safe for concurrent use.
type Validator struct {
	catalogs CatalogSource
	logger   *zap.Logger
}

// NewValidator builds a Validator.
func NewValidator(catalogs CatalogSource, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{catalogs: catalogs, logger: logger}
}

// Validate checks sql at the given level and always returns a result, never
// an error: findings are data. The safety gate runs at every level; the
// schema check only under ValidationStrict.
func (v *Validator) Validate(sql string, level models.ValidationLevel) *models.ValidationResult {
	result := models.NewValidationResult()

	sql = strings.TrimSpace(sql)
	if sql == "" {
		result.AddError("Query is empty")
		v.observe(level, result)
		return result
	}

	v.safetyCheck(sql, result)

	if level == models.ValidationStrict {
		v.schemaCheck(sql, result)
	}

	v.observe(level, result)
	return result
}

// safetyCheck rejects any whole-word occurrence of a blocked keyword,
// wherever it appears in the text.
func (v *Validator) safetyCheck(sql string, result *models.ValidationResult) {
	matches := blocklistRe.FindAllString(sql, -1)
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		kw := strings.ToUpper(m)
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		result.AddError("Query contains blocked keyword '%s'", kw)
	}
}

// schemaCheck resolves extracted identifiers against the current catalog.
// Unknown tables are errors; unknown columns only warnings, because column
// extraction from arbitrary SQL is unreliable without a full parser.
func (v *Validator) schemaCheck(sql string, result *models.ValidationResult) {
	catalog := v.catalogs.Catalog()
	if catalog == nil {
		result.AddWarning("No schema loaded, table check skipped")
		return
	}

	ext := extractIdentifiers(sql)
	if len(ext.CTEs) > 0 {
		v.logger.Debug("excluding local scope names from table check",
			zap.Strings("ctes", ext.CTEs))
	}

	for _, table := range ext.Tables {
		if catalog.HasTable(table) {
			result.TablesFound = append(result.TablesFound, table)
			continue
		}
		result.AddError("Table '%s' not found in schema", table)
	}

	for _, col := range ext.Columns {
		if catalog.HasColumn(col) {
			result.ColumnsFound = append(result.ColumnsFound, col)
			continue
		}
		// could be an alias, a literal cast, or a CTE output column
		if isLikelyColumn(col, ext) {
			result.AddWarning("Column '%s' not found in schema", col)
		}
	}
}

// isLikelyColumn filters candidates that are really CTE names or table path
// segments before a warning is raised.
func isLikelyColumn(name string, ext extraction) bool {
	key := strings.ToLower(name)
	for _, cte := range ext.CTEs {
		if key == cte {
			return false
		}
	}
	for _, table := range ext.Tables {
		lower := strings.ToLower(table)
		if key == lower || strings.HasSuffix(lower, "."+key) {
			return false
		}
	}
	return true
}

func (v *Validator) observe(level models.ValidationLevel, result *models.ValidationResult) {
	outcome := "valid"
	if !result.IsValid {
		outcome = "invalid"
	}
	metrics.ValidationsTotal.WithLabelValues(string(level), outcome).Inc()
}
