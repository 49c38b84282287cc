package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/GoogleCloudPlatform/text-ql/internal/schema"
)

const (
	unknownStatementError  = "Unable to determine SQL statement type. Query must start with a valid SQL keyword."
	multipleStatementError = "Multiple SQL statements detected. Please submit one query at a time."
	placeholderWarning     = "SQL contains placeholders that need to be replaced with actual values"
)

// DefaultMaxRowLimit is the row cap enforced on read-only statements.
const DefaultMaxRowLimit = 50

// ErrInvalidPolicy is wrapped by NewGate when a Policy cannot be used.
var ErrInvalidPolicy = errors.New("invalid policy")

// Policy is the configuration the gate applies to every statement.
type Policy struct {
	MaxRowLimit         int
	PlaceholderPattern  string
	ModifyingStatements []StatementType
	StatementWarnings   map[StatementType]string
}

// DefaultStatementWarnings are the canned warnings for modifying statements.
func DefaultStatementWarnings() map[StatementType]string {
	return map[StatementType]string{
		StatementInsert:   "This is an INSERT statement - it will add new data when executed",
		StatementUpdate:   "This is an UPDATE statement - it will modify existing data when executed. Verify the WHERE clause carefully.",
		StatementDelete:   "This is a DELETE statement - it will permanently remove data when executed. Verify the WHERE clause carefully.",
		StatementDrop:     "This is a DROP statement - it will permanently delete the entire object and cannot be undone. Ensure you have backups.",
		StatementTruncate: "This is a TRUNCATE statement - it will permanently delete all data in the table and cannot be undone.",
		StatementAlter:    "This is an ALTER statement - it will modify the table structure.",
		StatementCreate:   "This is a CREATE statement - it will create a new database object.",
		StatementGrant:    "This is a GRANT statement - it will change database permissions.",
		StatementRevoke:   "This is a REVOKE statement - it will remove database permissions.",
	}
}

// DefaultModifyingStatements lists every statement type that changes data,
// structure or permissions.
func DefaultModifyingStatements() []StatementType {
	return []StatementType{
		StatementInsert, StatementUpdate, StatementDelete, StatementDrop, StatementTruncate,
		StatementAlter, StatementCreate, StatementGrant, StatementRevoke,
	}
}

// DefaultPolicy returns the built-in policy: a 50-row cap, the default
// placeholder pattern and warnings for every modifying statement.
func DefaultPolicy() Policy {
	return Policy{
		MaxRowLimit:         DefaultMaxRowLimit,
		PlaceholderPattern:  DefaultPlaceholderPattern,
		ModifyingStatements: DefaultModifyingStatements(),
		StatementWarnings:   DefaultStatementWarnings(),
	}
}

// Output is the verdict for one statement.
type Output struct {
	Passed        bool          `json:"passed"`
	SQL           string        `json:"sql"`
	Status        Status        `json:"status"`
	StatementType StatementType `json:"statement_type"`
	Warnings      []string      `json:"warnings"`
	PolicyErrors  []string      `json:"policy_errors"`
}

// Gate runs the deterministic policy checks. A Gate holds only values fixed at
// construction, so one Gate may be shared by any number of goroutines.
type Gate struct {
	maxRowLimit int
	placeholder *regexp.Regexp
	warnings    map[StatementType]string
}

// NewGate validates p and builds a Gate from it.
func NewGate(p Policy) (*Gate, error) {
	if p.MaxRowLimit <= 0 {
		return nil, fmt.Errorf("%w: max row limit must be positive, got %d", ErrInvalidPolicy, p.MaxRowLimit)
	}

	pattern := p.PlaceholderPattern
	if pattern == "" {
		pattern = DefaultPlaceholderPattern
	}
	placeholder, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: placeholder pattern: %v", ErrInvalidPolicy, err)
	}

	warnings := make(map[StatementType]string, len(p.ModifyingStatements))
	for _, t := range p.ModifyingStatements {
		if t == StatementUnknown || IsReadOnly(t) {
			return nil, fmt.Errorf("%w: %s cannot be a modifying statement", ErrInvalidPolicy, t)
		}
		if _, err := ParseStatementType(string(t)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
		msg := p.StatementWarnings[t]
		if msg == "" {
			msg = fmt.Sprintf("This is a %s statement - review it carefully before executing.", t)
		}
		warnings[t] = msg
	}

	return &Gate{
		maxRowLimit: p.MaxRowLimit,
		placeholder: placeholder,
		warnings:    warnings,
	}, nil
}

var defaultGate = mustGate(DefaultPolicy())

func mustGate(p Policy) *Gate {
	g, err := NewGate(p)
	if err != nil {
		panic(err)
	}
	return g
}

// RunPolicyGate checks sql with the default policy.
func RunPolicyGate(sql string, sc *schema.Context, writerPlaceholders bool) Output {
	return defaultGate.Run(sql, sc, writerPlaceholders)
}

// MaxRowLimit returns the row cap enforced on read-only statements.
func (g *Gate) MaxRowLimit() int {
	return g.maxRowLimit
}

// PlaceholderPattern returns the compiled pattern used to detect placeholders.
func (g *Gate) PlaceholderPattern() *regexp.Regexp {
	return g.placeholder
}

// Run performs a single pass over sql. Unknown statement types and multiple
// statements fail the gate; every other finding is a warning that only affects
// the returned Status. writerPlaceholders is OR'd into placeholder detection
// for writers that already reported placeholders.
func (g *Gate) Run(sql string, sc *schema.Context, writerPlaceholders bool) Output {
	statementType := ClassifyStatement(sql)
	if statementType == StatementUnknown {
		return rejected(sql, statementType, unknownStatementError)
	}
	if HasMultipleStatements(sql) {
		return rejected(sql, statementType, multipleStatementError)
	}

	warnings := []string{}
	if msg, ok := g.warnings[statementType]; ok {
		warnings = append(warnings, msg)
	}

	finalSQL := sql
	readOnly := IsReadOnly(statementType)
	if readOnly {
		var limited bool
		finalSQL, limited = EnforceLimit(sql, g.maxRowLimit, statementType)
		if limited {
			warnings = append(warnings, fmt.Sprintf("LIMIT %d was enforced on the query", g.maxRowLimit))
		}
	}

	hasPlaceholders := writerPlaceholders || len(DetectPlaceholders(finalSQL, g.placeholder)) > 0
	if hasPlaceholders && !mentionsPlaceholder(warnings) {
		warnings = append(warnings, placeholderWarning)
	}

	var schemaIssues []string
	if readOnly && !sc.IsEmpty() {
		schemaIssues = CheckSchemaConsistency(finalSQL, sc, g.placeholder)
		warnings = append(warnings, schemaIssues...)
	}

	return Output{
		Passed:        true,
		SQL:           finalSQL,
		Status:        DetermineStatus(statementType, hasPlaceholders, len(schemaIssues) > 0),
		StatementType: statementType,
		Warnings:      warnings,
		PolicyErrors:  []string{},
	}
}

func rejected(sql string, t StatementType, reason string) Output {
	return Output{
		Passed:        false,
		SQL:           sql,
		Status:        StatusError,
		StatementType: t,
		Warnings:      []string{},
		PolicyErrors:  []string{reason},
	}
}

func mentionsPlaceholder(warnings []string) bool {
	for _, w := range warnings {
		if strings.Contains(strings.ToLower(w), "placeholder") {
			return true
		}
	}
	return false
}
