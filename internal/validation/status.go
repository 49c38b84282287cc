package validation

// Status is the final classification of a statement that went through the gate.
type Status string

const (
	StatusValidated      Status = "validated"
	StatusDraft          Status = "draft"
	StatusReviewRequired Status = "review_required"
	StatusError          Status = "error"
)

// DetermineStatus picks the status of a statement that passed the gate.
// Anything that is not read-only needs review regardless of other findings;
// read-only statements with placeholders or schema issues are drafts.
func DetermineStatus(t StatementType, hasPlaceholders, hasSchemaIssues bool) Status {
	switch {
	case !IsReadOnly(t):
		return StatusReviewRequired
	case hasPlaceholders, hasSchemaIssues:
		return StatusDraft
	default:
		return StatusValidated
	}
}
