package condition

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching at package boundaries.
var (
	ErrSyntax       = errors.New("syntax error")
	ErrMissingField = errors.New("missing field")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrEvaluation   = errors.New("evaluation error")
)

// contextRadius is how many bytes of source are shown on each side of an
// error position.
const contextRadius = 10

// SyntaxError is returned by Tokenize and Parse. Pos is a byte offset into
// the expression; Context is the surrounding source snippet.
type SyntaxError struct {
	Msg     string
	Pos     int
	Context string
}

func newSyntaxError(src string, pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Msg:     fmt.Sprintf(format, args...),
		Pos:     pos,
		Context: snippet(src, pos),
	}
}

func (e *SyntaxError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s at position %d", e.Msg, e.Pos)
	}
	return fmt.Sprintf("%s at position %d. Context: ...%s...", e.Msg, e.Pos, e.Context)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

func snippet(src string, pos int) string {
	start := pos - contextRadius
	if start < 0 {
		start = 0
	}
	end := pos + contextRadius
	if end > len(src) {
		end = len(src)
	}
	if start > end {
		return ""
	}
	return src[start:end]
}

// MissingFieldError reports a field referenced by a comparison that is
// absent from the payload.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Required field '%s' is missing from payload", e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// TypeMismatchError reports an operator applied to operands it cannot
// compare. Expected describes what the operator needed; Actual is the type
// name that was found.
type TypeMismatchError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("Type mismatch for field '%s': expected %s, got %s", e.Field, e.Expected, e.Actual)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// EvaluationError signals an internal fault, such as an operator or node kind
// the evaluator does not know. A parser-produced AST never triggers it.
type EvaluationError struct {
	Msg string
}

func (e *EvaluationError) Error() string { return e.Msg }

func (e *EvaluationError) Is(target error) bool { return target == ErrEvaluation }

// isComparisonFailure reports whether err is contained at a single
// comparison (recorded in the trace) rather than aborting evaluation.
func isComparisonFailure(err error) bool {
	return errors.Is(err, ErrMissingField) || errors.Is(err, ErrTypeMismatch)
}
