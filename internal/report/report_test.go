package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/text-ql/internal/validation"
)

func TestJSON(t *testing.T) {
	out := validation.RunPolicyGate("SELECT * FROM users", nil, false)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, Result{RunID: "run-1", Output: out}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.NotContains(t, decoded, "suggestions")

	inner := decoded["output"].(map[string]any)
	assert.Equal(t, true, inner["passed"])
	assert.Equal(t, "validated", inner["status"])
	assert.Equal(t, "SELECT", inner["statement_type"])
	assert.Equal(t, []any{}, inner["policy_errors"])
}

func TestText(t *testing.T) {
	out := validation.RunPolicyGate("SELECT 1; DROP TABLE users", nil, false)

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, out, map[string][]string{"emial": {"email"}, "zzz": {}}))

	got := buf.String()
	assert.Contains(t, got, "Status:    error\n")
	assert.Contains(t, got, "Passed:    false\n")
	assert.Contains(t, got, "Policy errors:\n  - Multiple SQL statements detected.")
	assert.NotContains(t, got, "Warnings:")
	assert.Contains(t, got, "  emial: did you mean email?\n  zzz: no close match\n")
}

func TestTable(t *testing.T) {
	rows := []Row{
		{Index: 1, Output: validation.RunPolicyGate("SELECT *\n  FROM users", nil, false)},
		{Index: 2, Output: validation.RunPolicyGate("EXPLAIN SELECT 1", nil, false)},
	}

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, rows))

	got := buf.String()
	assert.Contains(t, got, "SELECT * FROM users LIMIT 50")
	assert.Contains(t, got, "validated")
	assert.Contains(t, got, "error")
	assert.Contains(t, got, "(2 statements, 1 failed)")

	buf.Reset()
	require.NoError(t, Table(&buf, nil))
	assert.Equal(t, "(0 statements)\n", buf.String())
}

func TestNewBatch(t *testing.T) {
	rows := []Row{
		{Index: 1, Output: validation.RunPolicyGate("SELECT 1", nil, false)},
		{Index: 2, Output: validation.RunPolicyGate("", nil, false)},
	}
	b := NewBatch("run-2", rows)
	assert.Equal(t, 2, b.Total)
	assert.Equal(t, 1, b.Failed)

	empty := NewBatch("", nil)
	assert.Equal(t, []Row{}, empty.Results)
	assert.Zero(t, empty.Failed)
}
