package schema

import (
	"fmt"
	"strings"
)

// Column describes a single column of a table.
type Column struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	PrimaryKey  bool   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	ForeignKey  string `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"` // "table.column"
}

// Table describes a table and its ordered columns.
type Table struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     []Column `json:"columns" yaml:"columns"`
}

// Context is the schema a statement is checked against. Lookups by name are
// case-insensitive. A Context is never modified once built.
type Context struct {
	Tables []Table `json:"tables" yaml:"tables"`
}

// IsEmpty reports whether the context has no tables. A nil context is empty.
func (c *Context) IsEmpty() bool {
	return c == nil || len(c.Tables) == 0
}

// Table returns the table with the given name, or nil.
func (c *Context) Table(name string) *Table {
	if c == nil {
		return nil
	}
	for i := range c.Tables {
		if strings.EqualFold(c.Tables[i].Name, name) {
			return &c.Tables[i]
		}
	}
	return nil
}

func (c *Context) HasTable(name string) bool {
	return c.Table(name) != nil
}

// HasColumn reports whether the named table exists and has the named column.
func (c *Context) HasColumn(tableName, columnName string) bool {
	t := c.Table(tableName)
	if t == nil {
		return false
	}
	return t.HasColumn(columnName)
}

func (c *Context) TableNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Tables))
	for _, t := range c.Tables {
		names = append(names, t.Name)
	}
	return names
}

// AllColumns returns every column name of every table, in schema order.
// Names shared by several tables appear once per table.
func (c *Context) AllColumns() []string {
	if c == nil {
		return nil
	}
	var cols []string
	for _, t := range c.Tables {
		cols = append(cols, t.ColumnNames()...)
	}
	return cols
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		names = append(names, col.Name)
	}
	return names
}

// PromptString renders the column as "name (type) [PK, FK->t.c] -- description".
func (col Column) PromptString() string {
	parts := []string{col.Name}
	if col.Type != "" {
		parts = append(parts, fmt.Sprintf("(%s)", col.Type))
	}

	var annotations []string
	if col.PrimaryKey {
		annotations = append(annotations, "PK")
	}
	if col.ForeignKey != "" {
		annotations = append(annotations, "FK->"+col.ForeignKey)
	}
	if len(annotations) > 0 {
		parts = append(parts, fmt.Sprintf("[%s]", strings.Join(annotations, ", ")))
	}

	if col.Description != "" {
		parts = append(parts, "-- "+col.Description)
	}
	return strings.Join(parts, " ")
}

func (t *Table) PromptString() string {
	header := "TABLE: " + t.Name
	if t.Description != "" {
		header += " -- " + t.Description
	}

	lines := []string{header}
	for _, col := range t.Columns {
		lines = append(lines, "  - "+col.PromptString())
	}
	return strings.Join(lines, "\n")
}

// PromptString renders the full schema for inclusion in an LLM prompt.
func (c *Context) PromptString() string {
	if c.IsEmpty() {
		return "No schema provided."
	}

	lines := []string{"DATABASE SCHEMA:", ""}
	for i := range c.Tables {
		lines = append(lines, c.Tables[i].PromptString(), "")
	}
	return strings.Join(lines, "\n")
}

// CompactString renders the schema as "Tables: t(a, b); u(c)".
func (c *Context) CompactString() string {
	if c.IsEmpty() {
		return "No schema provided."
	}

	parts := make([]string, 0, len(c.Tables))
	for i := range c.Tables {
		t := &c.Tables[i]
		parts = append(parts, fmt.Sprintf("%s(%s)", t.Name, strings.Join(t.ColumnNames(), ", ")))
	}
	return "Tables: " + strings.Join(parts, "; ")
}
