package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIdentifiers(t *testing.T) {
	tests := []struct {
		name        string
		sql         string
		wantTables  []string
		wantColumns []string
	}{
		{
			name:        "simple select",
			sql:         "SELECT id, name FROM users WHERE id = 1",
			wantTables:  []string{"users"},
			wantColumns: []string{"id", "name"},
		},
		{
			name:        "star select",
			sql:         "SELECT * FROM Users",
			wantTables:  []string{"users"},
			wantColumns: []string{},
		},
		{
			name:        "dotted columns and join",
			sql:         "SELECT u.name, o.total FROM users u JOIN orders o ON o.user_id = u.id",
			wantTables:  []string{"orders", "users"},
			wantColumns: []string{"name", "total"},
		},
		{
			name:        "distinct and qualified star",
			sql:         "SELECT DISTINCT city, u.* FROM users u",
			wantTables:  []string{"users"},
			wantColumns: []string{"city"},
		},
		{
			name:        "aggregates and keywords are filtered",
			sql:         "SELECT COUNT(*), MAX(total) FROM orders GROUP BY status ORDER BY status DESC",
			wantTables:  []string{"orders"},
			wantColumns: []string{"status"},
		},
		{
			name:        "qualified group by and order by",
			sql:         "SELECT u.name FROM users u GROUP BY u.name ORDER BY u.id",
			wantTables:  []string{"users"},
			wantColumns: []string{"id", "name"},
		},
		{
			name:        "where predicates",
			sql:         "SELECT id FROM users WHERE age >= 18 AND state IN ('CA', 'NY') AND email LIKE '%@x.com' AND deleted_at IS NULL AND score BETWEEN 1 AND 5",
			wantTables:  []string{"users"},
			wantColumns: []string{"age", "deleted_at", "email", "id", "score", "state"},
		},
		{
			name:        "not in predicate",
			sql:         "SELECT id FROM users WHERE role NOT IN ('admin')",
			wantTables:  []string{"users"},
			wantColumns: []string{"id", "role"},
		},
		{
			name:        "string literal contents are ignored",
			sql:         "SELECT id FROM users WHERE note = 'FROM secrets WHERE x = 1'",
			wantTables:  []string{"users"},
			wantColumns: []string{"id", "note"},
		},
		{
			name:        "placeholders are never reported",
			sql:         "SELECT <NAME_COLUMN> FROM <USERS_TABLE> WHERE <ID_COLUMN> = 1",
			wantTables:  []string{},
			wantColumns: []string{},
		},
		{
			name:        "schema qualified table",
			sql:         "SELECT id FROM public.accounts",
			wantTables:  []string{"accounts"},
			wantColumns: []string{"id"},
		},
		{
			name:        "modifying statements",
			sql:         "INSERT INTO audit_log (id) SELECT id FROM events",
			wantTables:  []string{"audit_log", "events"},
			wantColumns: []string{"id"},
		},
		{
			name:        "update and delete targets",
			sql:         "UPDATE accounts SET x = 1; DELETE FROM sessions",
			wantTables:  []string{"accounts", "sessions"},
			wantColumns: []string{},
		},
		{
			name:        "order by stops where clause",
			sql:         "SELECT id FROM t WHERE a = 1 ORDER BY b = 2",
			wantTables:  []string{"t"},
			wantColumns: []string{"a", "b", "id"},
		},
		{
			name:        "boolean literals skipped",
			sql:         "SELECT id FROM t WHERE active = TRUE OR NULL IS NULL",
			wantTables:  []string{"t"},
			wantColumns: []string{"active", "id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractIdentifiers(tt.sql, nil)
			assert.Equal(t, tt.wantTables, got.Tables)
			assert.Equal(t, tt.wantColumns, got.Columns)
		})
	}
}
