package validation

import (
	"regexp"
	"sort"
	"strings"
)

// Identifiers holds the table and column names a statement appears to reference.
// Both lists are lower-cased, deduplicated and sorted.
type Identifiers struct {
	Tables  []string `json:"tables"`
	Columns []string `json:"columns"`
}

const (
	ident            = `[a-zA-Z_][a-zA-Z0-9_]*`
	placeholderToken = "__placeholder__"
)

var (
	tableReference = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bFROM\s+(` + ident + `(?:\.` + ident + `)?)`),
		regexp.MustCompile(`(?i)\bJOIN\s+(` + ident + `(?:\.` + ident + `)?)`),
		regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+(` + ident + `(?:\.` + ident + `)?)`),
		regexp.MustCompile(`(?i)\bUPDATE\s+(` + ident + `(?:\.` + ident + `)?)`),
		regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+(` + ident + `(?:\.` + ident + `)?)`),
	}

	selectList     = regexp.MustCompile(`(?is)\bSELECT\s+(.+?)\s+FROM\b`)
	selectModifier = regexp.MustCompile(`(?i)^(?:DISTINCT|ALL)\s+`)
	selectItem     = regexp.MustCompile(`^(` + ident + `)(?:\.(` + ident + `))?`)

	whereClause        = regexp.MustCompile(`(?is)\bWHERE\s+(.+?)(?:\bORDER\b|\bGROUP\b|\bLIMIT\b|\bHAVING\b|$)`)
	comparisonOperand  = regexp.MustCompile(`(` + ident + `)\s*[=<>!]`)
	membershipOperand  = regexp.MustCompile(`(?i)(` + ident + `)\s+(?:NOT\s+)?(?:IN|LIKE|BETWEEN|IS)\b`)
	orderByReference   = regexp.MustCompile(`(?i)\bORDER\s+BY\s+(` + ident + `(?:\.` + ident + `)?)`)
	groupByReference   = regexp.MustCompile(`(?i)\bGROUP\s+BY\s+(` + ident + `(?:\.` + ident + `)?)`)
	predicateLiterals  = map[string]bool{"and": true, "or": true, "not": true, "null": true, "true": true, "false": true}
	nonIdentifierWords = map[string]bool{
		"select": true, "from": true, "where": true, "and": true, "or": true, "not": true,
		"in": true, "like": true, "between": true, "is": true, "null": true, "true": true,
		"false": true, "as": true, "on": true, "join": true, "left": true, "right": true,
		"inner": true, "outer": true, "full": true, "cross": true, "order": true, "by": true,
		"group": true, "having": true, "limit": true, "offset": true, "distinct": true,
		"all": true, "asc": true, "desc": true, "case": true, "when": true, "then": true,
		"else": true, "end": true, "count": true, "sum": true, "avg": true, "min": true,
		"max": true, placeholderToken: true,
	}
)

// ExtractIdentifiers scans sql for referenced tables and columns.
//
// This is a heuristic, not a parser: it looks at FROM/JOIN/INSERT INTO/UPDATE/
// DELETE FROM targets, the first select list, simple WHERE predicates and the
// first ORDER BY / GROUP BY term. Expect both false positives and misses.
// Placeholder tokens matching pattern are never reported; a nil pattern uses
// DefaultPlaceholderPattern.
func ExtractIdentifiers(sql string, pattern *regexp.Regexp) Identifiers {
	if pattern == nil {
		pattern = defaultPlaceholderRegexp
	}

	cleaned := neutralizeLiterals(sql)
	cleaned = pattern.ReplaceAllLiteralString(cleaned, placeholderToken)

	tables := make(map[string]bool)
	columns := make(map[string]bool)

	for _, re := range tableReference {
		for _, m := range re.FindAllStringSubmatch(cleaned, -1) {
			tables[strings.ToLower(lastSegment(m[1]))] = true
		}
	}

	if m := selectList.FindStringSubmatch(cleaned); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			part = selectModifier.ReplaceAllString(strings.TrimSpace(part), "")
			if part == "*" || strings.HasSuffix(part, ".*") {
				continue
			}
			item := selectItem.FindStringSubmatch(part)
			if item == nil {
				continue
			}
			if item[2] != "" {
				columns[strings.ToLower(item[2])] = true
			} else {
				columns[strings.ToLower(item[1])] = true
			}
		}
	}

	if m := whereClause.FindStringSubmatch(cleaned); m != nil {
		for _, re := range []*regexp.Regexp{comparisonOperand, membershipOperand} {
			for _, p := range re.FindAllStringSubmatch(m[1], -1) {
				col := strings.ToLower(p[1])
				if !predicateLiterals[col] {
					columns[col] = true
				}
			}
		}
	}

	for _, re := range []*regexp.Regexp{orderByReference, groupByReference} {
		for _, m := range re.FindAllStringSubmatch(cleaned, -1) {
			columns[strings.ToLower(lastSegment(m[1]))] = true
		}
	}

	return Identifiers{
		Tables:  sortedWithout(tables, nonIdentifierWords),
		Columns: sortedWithout(columns, nonIdentifierWords),
	}
}

// lastSegment returns the part of a dotted name after the last '.'.
func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func sortedWithout(set map[string]bool, exclude map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		if !exclude[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
