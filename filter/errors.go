package filter

import "fmt"

// MalformedError reports a structural violation in a filter expression:
// existence-marker misuse, an unknown field, or undecodable wire input.
// Operator/type mismatches are NOT structural violations; they degrade to
// silent no-ops so stale clients keep working.
type MalformedError struct {
	// Path locates the offending sub-expression ("filter.orders.total").
	Path string

	// Reason describes the violation.
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Path == "" {
		return "malformed filter: " + e.Reason
	}
	return fmt.Sprintf("malformed filter at %s: %s", e.Path, e.Reason)
}

func malformed(path, format string, args ...any) *MalformedError {
	return &MalformedError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
