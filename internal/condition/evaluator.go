package condition

import (
	"errors"
	"fmt"
)

// Payload is the decoded JSON object rules are evaluated against.
type Payload = map[string]any

// Check records the outcome of one comparison. Expected is the literal on
// the right-hand side, or the value of ComparedField for field-to-field
// comparisons. Err is set when the comparison could not be performed.
type Check struct {
	Field             string   `json:"field"`
	Operator          Operator `json:"operator"`
	Expected          any      `json:"expected"`
	Actual            any      `json:"actual"`
	Passed            bool     `json:"passed"`
	IsFieldComparison bool     `json:"is_field_comparison,omitempty"`
	ComparedField     string   `json:"compared_field,omitempty"`
	Err               error    `json:"-"`
}

// Trace is the ordered list of checks produced by one evaluation.
type Trace []Check

// Failed returns the checks that did not pass.
func (t Trace) Failed() Trace {
	var out Trace
	for _, c := range t {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Errored reports whether any check failed with an error.
func (t Trace) Errored() bool {
	for _, c := range t {
		if c.Err != nil {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------
// Plain evaluation
// -----------------------------------------------------------------------

// Evaluate walks node against payload. Both sides of AND / OR are always
// evaluated; the first error encountered is returned.
func Evaluate(node Node, payload Payload) (bool, error) {
	switch n := node.(type) {
	case *Comparison:
		check := resolve(n, payload)
		return check.Passed, check.Err
	case *BinaryOp:
		left, err := Evaluate(n.Left, payload)
		if err != nil {
			return false, err
		}
		right, err := Evaluate(n.Right, payload)
		if err != nil {
			return false, err
		}
		return combine(n.Op, left, right)
	default:
		return false, unknownNode(node)
	}
}

// -----------------------------------------------------------------------
// Tracing evaluation
// -----------------------------------------------------------------------

// Evaluator performs tracing evaluation. Sink, when set, receives every
// check as it is recorded.
type Evaluator struct {
	Sink func(Check)
}

// EvaluateDetailed is Evaluator{}.Detailed.
func EvaluateDetailed(node Node, payload Payload) (bool, Trace, error) {
	return Evaluator{}.Detailed(node, payload)
}

// Detailed evaluates every comparison in node, in source order, and returns
// the overall result with one check per comparison. A comparison that fails
// with a missing field or type mismatch is recorded and makes the overall
// result false; the walk continues. Only an *EvaluationError aborts.
func (e Evaluator) Detailed(node Node, payload Payload) (bool, Trace, error) {
	var trace Trace
	ok, err := e.walk(node, payload, &trace)
	if err != nil {
		return false, trace, err
	}
	if trace.Errored() {
		ok = false
	}
	return ok, trace, nil
}

func (e Evaluator) walk(node Node, payload Payload, trace *Trace) (bool, error) {
	switch n := node.(type) {
	case *Comparison:
		check := resolve(n, payload)
		if check.Err != nil && !isComparisonFailure(check.Err) {
			return false, check.Err
		}
		*trace = append(*trace, check)
		if e.Sink != nil {
			e.Sink(check)
		}
		return check.Passed, nil
	case *BinaryOp:
		left, err := e.walk(n.Left, payload, trace)
		if err != nil {
			return false, err
		}
		right, err := e.walk(n.Right, payload, trace)
		if err != nil {
			return false, err
		}
		return combine(n.Op, left, right)
	default:
		return false, unknownNode(node)
	}
}

// resolve looks up the operands of c in payload and applies its operator.
func resolve(c *Comparison, payload Payload) Check {
	check := Check{
		Field:             c.Field,
		Operator:          c.Op,
		Expected:          c.Value,
		IsFieldComparison: c.IsFieldComparison,
	}
	actual, ok := payload[c.Field]
	if !ok {
		check.Err = &MissingFieldError{Field: c.Field}
		return check
	}
	check.Actual = actual
	if c.IsFieldComparison {
		name, _ := c.Value.(string)
		check.ComparedField = name
		other, ok := payload[name]
		if !ok {
			check.Expected = nil
			check.Err = &MissingFieldError{Field: name}
			return check
		}
		check.Expected = other
	}
	passed, err := Compare(c.Op, c.Field, actual, check.Expected)
	if err != nil {
		check.Err = err
		return check
	}
	check.Passed = passed
	return check
}

func combine(op LogicalOperator, left, right bool) (bool, error) {
	switch op {
	case And:
		return left && right, nil
	case Or:
		return left || right, nil
	}
	return false, &EvaluationError{Msg: fmt.Sprintf("Unknown logical operator: %s", op)}
}

func unknownNode(node Node) error {
	return &EvaluationError{Msg: fmt.Sprintf("Unknown node type: %T", node)}
}

// IsEvaluationError reports whether err aborted an evaluation.
func IsEvaluationError(err error) bool {
	return errors.Is(err, ErrEvaluation)
}
