// Package report renders gate verdicts for the terminal or for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/GoogleCloudPlatform/text-ql/internal/validation"
)

const maxSQLWidth = 60

// Row is one statement of a batch together with its verdict.
type Row struct {
	Index  int               `json:"index"`
	Output validation.Output `json:"output"`
}

// Result is the JSON document written by the validate command.
type Result struct {
	RunID       string              `json:"run_id,omitempty"`
	Output      validation.Output   `json:"output"`
	Suggestions map[string][]string `json:"suggestions,omitempty"`
}

// Batch is the JSON document written by the batch command.
type Batch struct {
	RunID   string `json:"run_id,omitempty"`
	Total   int    `json:"total"`
	Failed  int    `json:"failed"`
	Results []Row  `json:"results"`
}

// NewBatch counts the failures in rows.
func NewBatch(runID string, rows []Row) Batch {
	b := Batch{RunID: runID, Total: len(rows), Results: rows}
	if b.Results == nil {
		b.Results = []Row{}
	}
	for _, r := range rows {
		if !r.Output.Passed {
			b.Failed++
		}
	}
	return b
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Text writes a human-readable verdict. suggestions may be nil.
func Text(w io.Writer, out validation.Output, suggestions map[string][]string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Status:    %s\n", out.Status)
	fmt.Fprintf(&b, "Statement: %s\n", out.StatementType)
	fmt.Fprintf(&b, "Passed:    %t\n", out.Passed)
	fmt.Fprintf(&b, "SQL:\n  %s\n", out.SQL)

	writeList(&b, "Warnings", out.Warnings)
	writeList(&b, "Policy errors", out.PolicyErrors)

	if len(suggestions) > 0 {
		b.WriteString("Suggestions:\n")
		for _, name := range sortedKeys(suggestions) {
			candidates := suggestions[name]
			if len(candidates) == 0 {
				fmt.Fprintf(&b, "  %s: no close match\n", name)
				continue
			}
			fmt.Fprintf(&b, "  %s: did you mean %s?\n", name, strings.Join(candidates, ", "))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Table renders a batch as a table followed by a one-line summary.
func Table(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(0 statements)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Status", "Type", "Warnings", "SQL"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: maxSQLWidth},
	})

	failed := 0
	for _, r := range rows {
		if !r.Output.Passed {
			failed++
		}
		t.AppendRow(table.Row{
			r.Index,
			r.Output.Status,
			r.Output.StatementType,
			len(r.Output.Warnings) + len(r.Output.PolicyErrors),
			oneLine(r.Output.SQL),
		})
	}
	t.Render()

	_, err := fmt.Fprintf(w, "(%d statements, %d failed)\n", len(rows), failed)
	return err
}

// oneLine collapses whitespace so long statements fit a table cell.
func oneLine(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
