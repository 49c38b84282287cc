package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/GoogleCloudPlatform/text-ql/internal/schema"
)

// DefaultSuggestionDistance is the largest edit distance FindSimilarIdentifiers
// treats as a likely typo.
const DefaultSuggestionDistance = 2

// CheckIdentifiers compares extracted identifiers with sc and returns a warning
// for every table or column the schema does not declare. Columns are checked
// against the columns of all tables together; a column is not attributed to
// the table it was selected from.
func CheckIdentifiers(ids Identifiers, sc *schema.Context) []string {
	var warnings []string

	for _, table := range missingTables(ids, sc) {
		warnings = append(warnings, fmt.Sprintf("Table '%s' not found in provided schema", table))
	}
	for _, column := range missingColumns(ids, sc) {
		warnings = append(warnings, fmt.Sprintf("Column '%s' not found in provided schema", column))
	}
	return warnings
}

// CheckSchemaConsistency extracts identifiers from sql and checks them against sc.
func CheckSchemaConsistency(sql string, sc *schema.Context, pattern *regexp.Regexp) []string {
	return CheckIdentifiers(ExtractIdentifiers(sql, pattern), sc)
}

// SuggestCorrections maps every identifier in sql that sc does not declare to
// the declared names within DefaultSuggestionDistance edits of it. Identifiers
// without a close match map to an empty list.
func SuggestCorrections(sql string, sc *schema.Context, pattern *regexp.Regexp) map[string][]string {
	return SuggestCorrectionsWithin(sql, sc, pattern, DefaultSuggestionDistance)
}

// SuggestCorrectionsWithin is SuggestCorrections with a caller-chosen edit distance.
func SuggestCorrectionsWithin(sql string, sc *schema.Context, pattern *regexp.Regexp, maxDistance int) map[string][]string {
	suggestions := make(map[string][]string)
	if sc.IsEmpty() {
		return suggestions
	}

	ids := ExtractIdentifiers(sql, pattern)
	tableNames := sc.TableNames()
	columnNames := uniqueFold(sc.AllColumns())

	for _, table := range missingTables(ids, sc) {
		suggestions[table] = FindSimilarIdentifiers(table, tableNames, maxDistance)
	}
	for _, column := range missingColumns(ids, sc) {
		suggestions[column] = FindSimilarIdentifiers(column, columnNames, maxDistance)
	}
	return suggestions
}

func missingTables(ids Identifiers, sc *schema.Context) []string {
	known := make(map[string]bool)
	for _, name := range sc.TableNames() {
		known[strings.ToLower(name)] = true
	}

	var missing []string
	for _, table := range ids.Tables {
		if !known[table] {
			missing = append(missing, table)
		}
	}
	return missing
}

func missingColumns(ids Identifiers, sc *schema.Context) []string {
	known := make(map[string]bool)
	for _, name := range sc.AllColumns() {
		known[strings.ToLower(name)] = true
	}

	var missing []string
	for _, column := range ids.Columns {
		if !known[column] {
			missing = append(missing, column)
		}
	}
	return missing
}

func uniqueFold(names []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// FindSimilarIdentifiers returns the candidates whose case-insensitive edit
// distance from name is between 1 and maxDistance, in candidate order.
func FindSimilarIdentifiers(name string, candidates []string, maxDistance int) []string {
	similar := []string{}
	lowered := strings.ToLower(name)
	for _, candidate := range candidates {
		d := LevenshteinDistance(lowered, strings.ToLower(candidate))
		if d > 0 && d <= maxDistance {
			similar = append(similar, candidate)
		}
	}
	return similar
}

// LevenshteinDistance returns the number of single-rune insertions, deletions
// and substitutions needed to turn a into b.
func LevenshteinDistance(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	if len(s2) == 0 {
		return len(s1)
	}

	previous := make([]int, len(s2)+1)
	for j := range previous {
		previous[j] = j
	}

	current := make([]int, len(s2)+1)
	for i, c1 := range s1 {
		current[0] = i + 1
		for j, c2 := range s2 {
			cost := 1
			if c1 == c2 {
				cost = 0
			}
			current[j+1] = min(previous[j+1]+1, current[j]+1, previous[j]+cost)
		}
		previous, current = current, previous
	}
	return previous[len(s2)]
}
