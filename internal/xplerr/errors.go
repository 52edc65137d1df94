// Package xplerr defines the error kinds shared across the core engines.
//
// Every error that crosses an engine boundary carries enough context
// (table, variable, case index) for a caller to locate the offending
// piece of metadata or mapping without re-parsing a string message.
package xplerr

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by any long-running stage when its cooperative
// cancellation token is observed between row or node boundaries.
var ErrCancelled = errors.New("xplore: cancelled")

// SchemaError reports a missing column, a mismatched header across rows
// of the same table, or a reference to an unknown table/variable.
type SchemaError struct {
	Table    string
	Variable string
	Msg      string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Variable != "":
		return fmt.Sprintf("schema error in table %q, variable %q: %s", e.Table, e.Variable, e.Msg)
	case e.Table != "":
		return fmt.Sprintf("schema error in table %q: %s", e.Table, e.Msg)
	default:
		return fmt.Sprintf("schema error: %s", e.Msg)
	}
}

// ParseError reports a malformed logical-expression or conclusion string.
type ParseError struct {
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %q: %s", e.Input, e.Msg)
}

// ValidationError reports a mapping that references an unreachable table,
// an inheritance cycle, a duplicate primary key in Merge, or a metric
// variable declared String.
type ValidationError struct {
	Table    string
	Variable string
	Case     string
	Msg      string
}

func (e *ValidationError) Error() string {
	var ctx string
	switch {
	case e.Table != "" && e.Variable != "" && e.Case != "":
		ctx = fmt.Sprintf("table %q, variable %q, case %q", e.Table, e.Variable, e.Case)
	case e.Table != "" && e.Variable != "":
		ctx = fmt.Sprintf("table %q, variable %q", e.Table, e.Variable)
	case e.Table != "":
		ctx = fmt.Sprintf("table %q", e.Table)
	default:
		ctx = "mapping"
	}
	return fmt.Sprintf("validation error in %s: %s", ctx, e.Msg)
}

// ValidationErrors accumulates a batch of ValidationError values so that a
// construction-time check can report every problem at once instead of
// failing on the first one.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msg := fmt.Sprintf("validation failed with %d error(s):", len(e))
	for _, v := range e {
		msg += "\n  - " + v.Error()
	}
	return msg
}

// TypeMismatchError reports a default value incompatible with its data
// type, or a filter/aggregate right-hand side whose type does not match
// the operator or aggregator it is paired with.
type TypeMismatchError struct {
	Table    string
	Variable string
	Msg      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch in table %q, variable %q: %s", e.Table, e.Variable, e.Msg)
}

// BackendError wraps a failure reported by a Graph Source / Graph Sink
// collaborator (§6).
type BackendError struct {
	Msg string
	Err error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("backend error: %s", e.Msg)
}

func (e *BackendError) Unwrap() error { return e.Err }
