package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// StatementType is the kind of a SQL statement, derived from its leading keyword.
type StatementType string

const (
	StatementSelect   StatementType = "SELECT"
	StatementWith     StatementType = "WITH" // CTE, read-only like SELECT
	StatementInsert   StatementType = "INSERT"
	StatementUpdate   StatementType = "UPDATE"
	StatementDelete   StatementType = "DELETE"
	StatementDrop     StatementType = "DROP"
	StatementTruncate StatementType = "TRUNCATE"
	StatementAlter    StatementType = "ALTER"
	StatementCreate   StatementType = "CREATE"
	StatementGrant    StatementType = "GRANT"
	StatementRevoke   StatementType = "REVOKE"
	StatementUnknown  StatementType = "UNKNOWN"
)

// classificationOrder is the prefix priority used by ClassifyStatement.
var classificationOrder = []StatementType{
	StatementSelect,
	StatementWith,
	StatementInsert,
	StatementUpdate,
	StatementDelete,
	StatementDrop,
	StatementTruncate,
	StatementAlter,
	StatementCreate,
	StatementGrant,
	StatementRevoke,
}

var (
	singleQuotedLiteral = regexp.MustCompile(`'[^']*'`)
	doubleQuotedLiteral = regexp.MustCompile(`"[^"]*"`)
)

// ClassifyStatement returns the statement type of sql based on its first keyword.
// Leading whitespace and letter case are ignored; anything unrecognised,
// including empty input, is StatementUnknown.
func ClassifyStatement(sql string) StatementType {
	normalized := strings.ToUpper(strings.TrimSpace(sql))
	for _, t := range classificationOrder {
		if strings.HasPrefix(normalized, string(t)) {
			return t
		}
	}
	return StatementUnknown
}

// IsReadOnly reports whether t is a SELECT or WITH statement.
func IsReadOnly(t StatementType) bool {
	return t == StatementSelect || t == StatementWith
}

// ParseStatementType resolves a statement type by name, ignoring case.
func ParseStatementType(name string) (StatementType, error) {
	upper := StatementType(strings.ToUpper(strings.TrimSpace(name)))
	for _, t := range classificationOrder {
		if t == upper {
			return t, nil
		}
	}
	return StatementUnknown, fmt.Errorf("unknown statement type: %q", name)
}

// HasMultipleStatements reports whether sql holds more than one statement.
// Quoted literals are emptied first so a ';' inside a string is not a separator,
// and a single trailing ';' does not count as a second statement.
//
// The check is regex based: escaped or unbalanced quotes can hide a separator.
func HasMultipleStatements(sql string) bool {
	cleaned := neutralizeLiterals(sql)

	count := 0
	for _, part := range strings.Split(cleaned, ";") {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count > 1
}

// neutralizeLiterals replaces the contents of quoted literals, keeping delimiters.
func neutralizeLiterals(sql string) string {
	cleaned := singleQuotedLiteral.ReplaceAllString(sql, "''")
	return doubleQuotedLiteral.ReplaceAllString(cleaned, `""`)
}
