package loader

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/regionmap/internal/validate"
)

// RowError is a validation failure for one CSV row.
type RowError struct {
	// Line is the 1-based line number in the file, header included.
	Line int
	Err  *validate.ValidationError
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// DataError reports schema violations found in a file. Every failing row is
// listed, not just the first one.
type DataError struct {
	Path string
	Rows []RowError
	// Message is set for file-level data errors such as duplicate keys.
	Message string
}

func (e *DataError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	b.WriteString(": ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		noun := "rows"
		if len(e.Rows) == 1 {
			noun = "row"
		}
		fmt.Fprintf(&b, "%d invalid %s", len(e.Rows), noun)
	}
	for _, r := range e.Rows {
		b.WriteString("\n")
		b.WriteString(r.Error())
	}
	return b.String()
}

// Unwrap exposes the row-level validation errors to errors.As.
func (e *DataError) Unwrap() []error {
	errs := make([]error, 0, len(e.Rows))
	for _, r := range e.Rows {
		errs = append(errs, r.Err)
	}
	return errs
}

// StructuralError reports a file whose shape is wrong before any record can
// be validated: wrong feature count, missing header columns, bad JSON.
type StructuralError struct {
	Path   string
	Reason string
	// Found is the observed count when the error is about a count, else -1.
	Found int
	Err   error
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Path, e.Reason)
	if e.Found >= 0 {
		msg = fmt.Sprintf("%s (found %d)", msg, e.Found)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structural(path, reason string, err error) *StructuralError {
	return &StructuralError{Path: path, Reason: reason, Found: -1, Err: err}
}

// LimitKind distinguishes resource-limit failures.
type LimitKind string

// Limit kinds.
const (
	LimitSize      LimitKind = "size"
	LimitTraversal LimitKind = "traversal"
)

// ResourceLimitError reports a file refused before it was read, either
// because it is too large or because it resolves outside its base directory.
type ResourceLimitError struct {
	Path string
	Kind LimitKind
	// Limit and Size are byte counts for LimitSize.
	Limit int64
	Size  int64
	// Base is the directory the path escaped for LimitTraversal.
	Base string
}

func (e *ResourceLimitError) Error() string {
	if e.Kind == LimitTraversal {
		return fmt.Sprintf("%s: path resolves outside %s", e.Path, e.Base)
	}
	return fmt.Sprintf("%s: file size %d exceeds limit of %d bytes", e.Path, e.Size, e.Limit)
}

// IsSecurity reports whether the error guards against hostile input.
// Both size and traversal refusals do.
func (e *ResourceLimitError) IsSecurity() bool {
	return e.Kind == LimitSize || e.Kind == LimitTraversal
}
