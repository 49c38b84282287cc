package schema

import (
	"fmt"
	"strings"
)

// Validate reports structural problems in a parsed schema. It never fails;
// every problem is returned as a human-readable warning.
func Validate(c *Context) []string {
	var warnings []string
	if c.IsEmpty() {
		return warnings
	}

	seenTables := make(map[string]bool)
	for _, t := range c.Tables {
		name := strings.ToLower(t.Name)
		if seenTables[name] {
			warnings = append(warnings, fmt.Sprintf("Duplicate table name: '%s'", name))
		}
		seenTables[name] = true
	}

	for _, t := range c.Tables {
		if len(t.Columns) == 0 {
			warnings = append(warnings, fmt.Sprintf("Table '%s' has no columns defined", t.Name))
		}

		seenColumns := make(map[string]bool)
		for _, col := range t.Columns {
			name := strings.ToLower(col.Name)
			if seenColumns[name] {
				warnings = append(warnings, fmt.Sprintf("Duplicate column name '%s' in table '%s'", name, t.Name))
			}
			seenColumns[name] = true
		}
	}

	for _, t := range c.Tables {
		for _, col := range t.Columns {
			if col.ForeignKey == "" {
				continue
			}
			parts := strings.Split(col.ForeignKey, ".")
			if len(parts) != 2 {
				warnings = append(warnings, fmt.Sprintf(
					"Invalid foreign key format '%s' in %s.%s. Expected 'table.column'",
					col.ForeignKey, t.Name, col.Name))
				continue
			}

			refTable, refColumn := parts[0], parts[1]
			switch {
			case !c.HasTable(refTable):
				warnings = append(warnings, fmt.Sprintf(
					"Foreign key references non-existent table '%s' in %s.%s",
					refTable, t.Name, col.Name))
			case !c.HasColumn(refTable, refColumn):
				warnings = append(warnings, fmt.Sprintf(
					"Foreign key references non-existent column '%s' in table '%s' (from %s.%s)",
					refColumn, refTable, t.Name, col.Name))
			}
		}
	}

	return warnings
}
