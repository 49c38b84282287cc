package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPlaceholderPattern matches <UPPER_SNAKE> tokens left by the SQL writer.
const DefaultPlaceholderPattern = `<[A-Z][A-Z0-9_]*>`

var defaultPlaceholderRegexp = regexp.MustCompile(DefaultPlaceholderPattern)

// Placeholder is an unresolved template token and a guess at what it stands for.
type Placeholder struct {
	Token   string `json:"token"`
	Meaning string `json:"meaning"`
}

// DetectPlaceholders returns the distinct placeholder tokens in sql in order of
// first appearance. A nil pattern uses DefaultPlaceholderPattern.
func DetectPlaceholders(sql string, pattern *regexp.Regexp) []Placeholder {
	if pattern == nil {
		pattern = defaultPlaceholderRegexp
	}

	placeholders := []Placeholder{}
	seen := make(map[string]bool)
	for _, token := range pattern.FindAllString(sql, -1) {
		if seen[token] {
			continue
		}
		seen[token] = true
		placeholders = append(placeholders, Placeholder{Token: token, Meaning: placeholderMeaning(token)})
	}
	return placeholders
}

func placeholderMeaning(token string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
	words := strings.ReplaceAll(strings.ToLower(inner), "_", " ")

	switch {
	case strings.Contains(words, "table"):
		return fmt.Sprintf("Table name for %s", strings.TrimSpace(strings.ReplaceAll(words, "table", "")))
	case strings.Contains(words, "column"):
		return fmt.Sprintf("Column name for %s", strings.TrimSpace(strings.ReplaceAll(words, "column", "")))
	default:
		return fmt.Sprintf("Value or identifier for %s", words)
	}
}
