package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// limitClause matches "LIMIT n", MySQL's "LIMIT offset, n" and "LIMIT ALL".
var limitClause = regexp.MustCompile(`(?i)\bLIMIT\s+(?:(ALL)\b|(\d+)(?:\s*,\s*(\d+))?\b)`)

// EnforceLimit makes sure a read-only statement carries a LIMIT no larger than
// maxLimit and reports whether sql was rewritten. Other statement types are
// returned untouched.
//
// LIMIT clauses above maxLimit are lowered to it. For "LIMIT offset, n" the
// row count n is capped and the offset kept; "LIMIT ALL" is replaced. Text
// inside quoted literals and comments is never taken for a clause. When there
// is no LIMIT one is appended after the last token, so it lands before a
// trailing ';' or a trailing comment.
//
// Every LIMIT in the statement counts, including one inside a subquery or CTE;
// a statement whose only LIMIT is nested keeps an unbounded outer query.
func EnforceLimit(sql string, maxLimit int, t StatementType) (string, bool) {
	if !IsReadOnly(t) {
		return sql, false
	}

	masked := maskLiteralsAndComments(sql)
	if matches := limitClause.FindAllStringSubmatchIndex(masked, -1); len(matches) > 0 {
		return capLimits(sql, matches, maxLimit)
	}
	return appendLimit(sql, masked, maxLimit), true
}

// capLimits rewrites the clauses at matches, which index both sql and its
// masked copy since masking keeps byte offsets.
func capLimits(sql string, matches [][]int, maxLimit int) (string, bool) {
	var b strings.Builder
	modified := false
	last := 0
	for _, m := range matches {
		b.WriteString(sql[last:m[0]])
		last = m[1]
		clause := sql[m[0]:m[1]]

		switch {
		case m[2] >= 0: // LIMIT ALL
			clause = fmt.Sprintf("LIMIT %d", maxLimit)
			modified = true
		case m[6] >= 0: // LIMIT offset, count
			if !withinLimit(sql[m[6]:m[7]], maxLimit) {
				clause = fmt.Sprintf("LIMIT %s, %d", sql[m[4]:m[5]], maxLimit)
				modified = true
			}
		default:
			if !withinLimit(sql[m[4]:m[5]], maxLimit) {
				clause = fmt.Sprintf("LIMIT %d", maxLimit)
				modified = true
			}
		}
		b.WriteString(clause)
	}
	b.WriteString(sql[last:])
	return b.String(), modified
}

func withinLimit(n string, maxLimit int) bool {
	v, err := strconv.Atoi(n)
	return err == nil && v <= maxLimit
}

func appendLimit(sql, masked string, maxLimit int) string {
	end := strings.LastIndexFunc(masked, func(r rune) bool { return !unicode.IsSpace(r) })
	if end < 0 {
		return fmt.Sprintf("%s LIMIT %d", strings.TrimRightFunc(sql, unicode.IsSpace), maxLimit)
	}

	body := sql[:end+1]
	suffix := ""
	if masked[end] == ';' {
		body = strings.TrimRightFunc(sql[:end], unicode.IsSpace)
		suffix = ";"
	}
	tail := strings.TrimRightFunc(sql[end+1:], unicode.IsSpace)
	return fmt.Sprintf("%s LIMIT %d%s%s", body, maxLimit, suffix, tail)
}

// maskLiteralsAndComments blanks the contents of quoted literals and the whole
// of "--" and "/* */" comments with spaces. Quote delimiters and newlines are
// kept and the result has the same byte length as sql.
func maskLiteralsAndComments(sql string) string {
	out := []byte(sql)
	for i := 0; i < len(out); i++ {
		switch {
		case out[i] == '\'' || out[i] == '"':
			quote := out[i]
			j := i + 1
			for j < len(out) && out[j] != quote {
				out[j] = ' '
				j++
			}
			i = j
		case out[i] == '-' && i+1 < len(out) && out[i+1] == '-':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			i += 2
			for i < len(out) && !(out[i] == '*' && i+1 < len(out) && out[i+1] == '/') {
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
			if i < len(out) {
				out[i], out[i+1] = ' ', ' '
				i++
			}
		}
	}
	return string(out)
}
