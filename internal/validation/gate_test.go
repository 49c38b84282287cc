package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/text-ql/internal/schema"
)

func TestRunPolicyGate(t *testing.T) {
	t.Run("simple select passes", func(t *testing.T) {
		out := RunPolicyGate("SELECT * FROM users WHERE id = 1", nil, false)
		assert.True(t, out.Passed)
		assert.Equal(t, StatusValidated, out.Status)
		assert.Equal(t, StatementSelect, out.StatementType)
		assert.Contains(t, out.SQL, "LIMIT 50")
		assert.Equal(t, []string{"LIMIT 50 was enforced on the query"}, out.Warnings)
		assert.Empty(t, out.PolicyErrors)
	})

	t.Run("select within limit has no warnings", func(t *testing.T) {
		out := RunPolicyGate("SELECT * FROM users LIMIT 10", nil, false)
		assert.True(t, out.Passed)
		assert.Equal(t, StatusValidated, out.Status)
		assert.Equal(t, "SELECT * FROM users LIMIT 10", out.SQL)
		assert.Empty(t, out.Warnings)
	})

	t.Run("select with placeholders is draft", func(t *testing.T) {
		out := RunPolicyGate("SELECT * FROM <USERS_TABLE>", nil, false)
		assert.True(t, out.Passed)
		assert.Equal(t, StatusDraft, out.Status)
		require.NotEmpty(t, out.Warnings)
		assert.True(t, mentionsPlaceholder(out.Warnings))
	})

	t.Run("writer placeholder hint makes a draft", func(t *testing.T) {
		out := RunPolicyGate("SELECT * FROM users", nil, true)
		assert.Equal(t, StatusDraft, out.Status)
		assert.Contains(t, out.Warnings, placeholderWarning)
	})

	t.Run("placeholder warning is added once", func(t *testing.T) {
		out := RunPolicyGate("SELECT <A>, <B> FROM <T_TABLE>", nil, true)
		count := 0
		for _, w := range out.Warnings {
			if strings.Contains(strings.ToLower(w), "placeholder") {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("insert is review required", func(t *testing.T) {
		out := RunPolicyGate("INSERT INTO users (name) VALUES ('test')", nil, false)
		assert.True(t, out.Passed)
		assert.Equal(t, StatusReviewRequired, out.Status)
		assert.Equal(t, "INSERT INTO users (name) VALUES ('test')", out.SQL)
		require.Len(t, out.Warnings, 1)
		assert.Contains(t, out.Warnings[0], "INSERT")
	})

	t.Run("delete is review required", func(t *testing.T) {
		out := RunPolicyGate("DELETE FROM users WHERE id = 1", nil, false)
		assert.True(t, out.Passed)
		assert.Equal(t, StatusReviewRequired, out.Status)
	})

	t.Run("drop has strong warning", func(t *testing.T) {
		out := RunPolicyGate("DROP TABLE users", nil, false)
		assert.True(t, out.Passed)
		assert.Equal(t, StatusReviewRequired, out.Status)
		require.NotEmpty(t, out.Warnings)
		assert.Contains(t, out.Warnings[0], "DROP")
		assert.Contains(t, out.Warnings[0], "cannot be undone")
	})

	t.Run("update with placeholders still needs review", func(t *testing.T) {
		out := RunPolicyGate("UPDATE <T_TABLE> SET a = 1", nil, false)
		assert.Equal(t, StatusReviewRequired, out.Status)
		assert.Len(t, out.Warnings, 2)
	})

	t.Run("multiple statements rejected", func(t *testing.T) {
		out := RunPolicyGate("SELECT 1; DELETE FROM users", nil, false)
		assert.False(t, out.Passed)
		assert.Equal(t, StatusError, out.Status)
		assert.Equal(t, []string{multipleStatementError}, out.PolicyErrors)
		assert.Empty(t, out.Warnings)
		assert.Equal(t, "SELECT 1; DELETE FROM users", out.SQL)
	})

	t.Run("unknown statement rejected", func(t *testing.T) {
		out := RunPolicyGate("EXPLAIN SELECT * FROM users", nil, false)
		assert.False(t, out.Passed)
		assert.Equal(t, StatusError, out.Status)
		assert.Equal(t, StatementUnknown, out.StatementType)
		assert.Equal(t, []string{unknownStatementError}, out.PolicyErrors)
	})

	t.Run("empty input rejected", func(t *testing.T) {
		out := RunPolicyGate("", nil, false)
		assert.False(t, out.Passed)
		assert.Equal(t, StatusError, out.Status)
		assert.Len(t, out.PolicyErrors, 1)
	})

	t.Run("semicolon inside literal is one statement", func(t *testing.T) {
		out := RunPolicyGate("SELECT * FROM t WHERE s = 'a;b';", nil, false)
		assert.True(t, out.Passed)
		assert.Equal(t, "SELECT * FROM t WHERE s = 'a;b' LIMIT 50;", out.SQL)
	})

	t.Run("limit text inside a literal still gets a cap", func(t *testing.T) {
		out := RunPolicyGate("SELECT * FROM t WHERE note = 'LIMIT 5'", nil, false)
		assert.Equal(t, StatusValidated, out.Status)
		assert.Equal(t, "SELECT * FROM t WHERE note = 'LIMIT 5' LIMIT 50", out.SQL)
		assert.Equal(t, []string{"LIMIT 50 was enforced on the query"}, out.Warnings)
	})

	t.Run("cap is not swallowed by a trailing comment", func(t *testing.T) {
		out := RunPolicyGate("SELECT * FROM t -- trailing comment", nil, false)
		assert.Equal(t, "SELECT * FROM t LIMIT 50 -- trailing comment", out.SQL)
	})
}

func TestGateSchemaChecks(t *testing.T) {
	sc := testSchema()

	t.Run("known identifiers are validated", func(t *testing.T) {
		out := RunPolicyGate("SELECT name, state FROM users WHERE id = 1 LIMIT 5", sc, false)
		assert.Equal(t, StatusValidated, out.Status)
		assert.Empty(t, out.Warnings)
	})

	t.Run("unknown identifiers make a draft", func(t *testing.T) {
		out := RunPolicyGate("SELECT email FROM customers", sc, false)
		assert.True(t, out.Passed)
		assert.Equal(t, StatusDraft, out.Status)
		assert.Equal(t, []string{
			"LIMIT 50 was enforced on the query",
			"Table 'customers' not found in provided schema",
			"Column 'email' not found in provided schema",
		}, out.Warnings)
	})

	t.Run("qualified group by and order by terms are validated", func(t *testing.T) {
		out := RunPolicyGate("SELECT u.name FROM users u GROUP BY u.name ORDER BY u.id LIMIT 5", sc, false)
		assert.Equal(t, StatusValidated, out.Status)
		assert.Empty(t, out.Warnings)
	})

	t.Run("empty schema disables checking", func(t *testing.T) {
		out := RunPolicyGate("SELECT email FROM customers", &schema.Context{}, false)
		assert.Equal(t, StatusValidated, out.Status)
	})

	t.Run("modifying statements are not schema checked", func(t *testing.T) {
		out := RunPolicyGate("DELETE FROM customers WHERE email = 'x'", sc, false)
		assert.Equal(t, StatusReviewRequired, out.Status)
		assert.Len(t, out.Warnings, 1)
	})

	t.Run("placeholders are not reported as identifiers", func(t *testing.T) {
		out := RunPolicyGate("SELECT name FROM <USERS_TABLE>", sc, false)
		assert.Equal(t, StatusDraft, out.Status)
		for _, w := range out.Warnings {
			assert.NotContains(t, w, "not found")
		}
	})
}

func TestDetermineStatus(t *testing.T) {
	tests := []struct {
		kind         StatementType
		placeholders bool
		schemaIssues bool
		want         Status
	}{
		{StatementSelect, false, false, StatusValidated},
		{StatementWith, false, false, StatusValidated},
		{StatementSelect, true, false, StatusDraft},
		{StatementSelect, false, true, StatusDraft},
		{StatementWith, true, true, StatusDraft},
		{StatementInsert, false, false, StatusReviewRequired},
		{StatementDelete, false, false, StatusReviewRequired},
		{StatementDrop, true, true, StatusReviewRequired},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s/placeholders=%t/schema=%t", tt.kind, tt.placeholders, tt.schemaIssues)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineStatus(tt.kind, tt.placeholders, tt.schemaIssues))
		})
	}
}

func TestNewGate(t *testing.T) {
	t.Run("custom limit and pattern", func(t *testing.T) {
		p := DefaultPolicy()
		p.MaxRowLimit = 10
		p.PlaceholderPattern = `\{\{[a-z_]+\}\}`

		g, err := NewGate(p)
		require.NoError(t, err)
		assert.Equal(t, 10, g.MaxRowLimit())

		out := g.Run("SELECT * FROM {{table}}", nil, false)
		assert.Equal(t, "SELECT * FROM {{table}} LIMIT 10", out.SQL)
		assert.Equal(t, StatusDraft, out.Status)

		out = g.Run("SELECT * FROM <USERS_TABLE>", nil, false)
		assert.Equal(t, StatusValidated, out.Status)
	})

	t.Run("custom warning text", func(t *testing.T) {
		p := DefaultPolicy()
		p.StatementWarnings = map[StatementType]string{StatementInsert: "inserting rows"}
		g, err := NewGate(p)
		require.NoError(t, err)

		assert.Equal(t, []string{"inserting rows"}, g.Run("INSERT INTO t VALUES (1)", nil, false).Warnings)
		assert.Contains(t, g.Run("GRANT ALL ON t TO bob", nil, false).Warnings[0], "GRANT")
	})

	t.Run("kinds outside the modifying list get no warning", func(t *testing.T) {
		p := DefaultPolicy()
		p.ModifyingStatements = []StatementType{StatementDrop}
		g, err := NewGate(p)
		require.NoError(t, err)

		out := g.Run("INSERT INTO t VALUES (1)", nil, false)
		assert.Empty(t, out.Warnings)
		assert.Equal(t, StatusReviewRequired, out.Status)
	})

	invalid := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"zero limit", func(p *Policy) { p.MaxRowLimit = 0 }},
		{"negative limit", func(p *Policy) { p.MaxRowLimit = -5 }},
		{"bad pattern", func(p *Policy) { p.PlaceholderPattern = "<[A-Z" }},
		{"select as modifying", func(p *Policy) { p.ModifyingStatements = []StatementType{StatementSelect} }},
		{"unknown kind", func(p *Policy) { p.ModifyingStatements = []StatementType{"MERGE"} }},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			_, err := NewGate(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPolicy))
		})
	}
}

func TestGateIsSafeForConcurrentUse(t *testing.T) {
	g, err := NewGate(DefaultPolicy())
	require.NoError(t, err)
	sc := testSchema()

	inputs := []string{
		"SELECT * FROM users WHERE id = 1",
		"SELECT * FROM <USERS_TABLE>",
		"INSERT INTO users (name) VALUES ('x')",
		"SELECT 1; DELETE FROM users",
		"SELECT email FROM customers",
	}
	want := make([]Output, len(inputs))
	for i, in := range inputs {
		want[i] = g.Run(in, sc, false)
	}

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				idx := i % len(inputs)
				assert.Equal(t, want[idx], g.Run(inputs[idx], sc, false))
			}
		}()
	}
	wg.Wait()
}
