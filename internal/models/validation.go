package models

import (
	"fmt"
	"strings"
)

// ValidationLevel selects how much of a candidate query is checked.
type ValidationLevel string

const (
	// ValidationStrict runs the safety gate and resolves every extracted
	// table against the schema catalog.
	ValidationStrict ValidationLevel = "strict"
	// ValidationBasic runs only the safety gate.
	ValidationBasic ValidationLevel = "basic"
)

// ParseValidationLevel parses a level string, defaulting to strict when empty.
func ParseValidationLevel(s string) (ValidationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ValidationStrict):
		return ValidationStrict, nil
	case string(ValidationBasic):
		return ValidationBasic, nil
	default:
		return "", fmt.Errorf("unknown validation level: %q", s)
	}
}

// ValidationResult is the outcome of one validation call. Validation failure
// is data, not control flow: a failed check adds an error here and never
// surfaces as a Go error.
type ValidationResult struct {
	IsValid      bool     `json:"is_valid"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	TablesFound  []string `json:"tables_found"`
	ColumnsFound []string `json:"columns_found"`
}

// NewValidationResult returns a result that is valid until a check fails.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		IsValid:      true,
		Errors:       []string{},
		Warnings:     []string{},
		TablesFound:  []string{},
		ColumnsFound: []string{},
	}
}

// AddError records a failed check and marks the result invalid.
func (r *ValidationResult) AddError(format string, args ...interface{}) {
	r.IsValid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddWarning records a soft finding that does not fail validation.
func (r *ValidationResult) AddWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
