// Package schema provides the immutable schema catalog snapshot and its loaders.
package schema

import (
	"sort"
	"strings"
)

// Column is one column of a catalog table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is one table of the catalog with its columns in declaration order.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Catalog is an immutable snapshot of the warehouse schema. It is built once
// (at startup or reload) and never mutated; request-path code only reads it.
type Catalog struct {
	version string
	tables  map[string]*Table // keyed by lowercase qualified name
	columns map[string]struct{}
	names   []string // sorted original-case table names
}

// NewCatalog builds a catalog from tables. Later duplicates of a table name
// replace earlier ones. The version string identifies the snapshot in logs.
func NewCatalog(version string, tables []Table) *Catalog {
	c := &Catalog{
		version: version,
		tables:  make(map[string]*Table, len(tables)),
		columns: make(map[string]struct{}),
	}
	for i := range tables {
		t := tables[i]
		c.tables[strings.ToLower(t.Name)] = &t
		for _, col := range t.Columns {
			c.columns[strings.ToLower(col.Name)] = struct{}{}
		}
	}
	c.names = make([]string, 0, len(c.tables))
	for _, t := range c.tables {
		c.names = append(c.names, t.Name)
	}
	sort.Strings(c.names)
	return c
}

// Version returns the snapshot version.
func (c *Catalog) Version() string { return c.version }

// Size returns the number of tables.
func (c *Catalog) Size() int { return len(c.tables) }

// TableNames returns all table names, sorted, original case.
func (c *Catalog) TableNames() []string { return c.names }

// Lookup returns the table for a qualified name, case-insensitively.
// A bare name also matches a qualified table whose last path segment equals it,
// provided the match is unambiguous.
func (c *Catalog) Lookup(name string) (*Table, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, false
	}
	if t, ok := c.tables[key]; ok {
		return t, true
	}
	if strings.Contains(key, ".") {
		return nil, false
	}
	var found *Table
	for full, t := range c.tables {
		if idx := strings.LastIndex(full, "."); idx >= 0 && full[idx+1:] == key {
			if found != nil {
				return nil, false // ambiguous
			}
			found = t
		}
	}
	return found, found != nil
}

// HasTable reports whether name resolves to a catalog table.
func (c *Catalog) HasTable(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// HasColumn reports whether any table declares a column with this name.
// Column identity is global because arbitrary SQL rarely qualifies columns.
func (c *Catalog) HasColumn(name string) bool {
	_, ok := c.columns[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// HasIdentifier reports whether token names a known table, a table's last
// path segment, or a column. Used by retrieval auto-adjust to detect
// exact-identifier queries.
func (c *Catalog) HasIdentifier(token string) bool {
	key := strings.ToLower(strings.TrimSpace(token))
	if key == "" {
		return false
	}
	if _, ok := c.columns[key]; ok {
		return true
	}
	if _, ok := c.tables[key]; ok {
		return true
	}
	for full := range c.tables {
		if idx := strings.LastIndex(full, "."); idx >= 0 && full[idx+1:] == key {
			return true
		}
	}
	return false
}
