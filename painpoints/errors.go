package painpoints

import (
	"fmt"
	"strings"
)

// PreconditionError is a user-correctable problem found before any work starts:
// a missing input file, credential or intermediate result.
type PreconditionError struct {
	What string
	Path string
	Hint string
}

func (e *PreconditionError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Hint != "" {
		b.WriteString(" (")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}
	return b.String()
}

// AnalysisError is a failed analysis of a single chunk. The Runner logs and skips these.
type AnalysisError struct {
	ChunkID string
	Op      string
	Err     error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze chunk %s: %s: %v", e.ChunkID, e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// AggregationError is a failed consolidation call. It is fatal to the run.
type AggregationError struct {
	Op  string
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("combine results: %s: %v", e.Op, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// ValidationError is one broken invariant in a model-produced value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
