package condition

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Operator represents a comparison operator.
type Operator string

const (
	OpEq          Operator = "=="
	OpNeq         Operator = "!="
	OpGt          Operator = ">"
	OpGte         Operator = ">="
	OpLt          Operator = "<"
	OpLte         Operator = "<="
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

// Operators lists every supported operator.
var Operators = []Operator{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpContains, OpNotContains, OpIn, OpNotIn}

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Ordered reports whether op is one of >, >=, <, <=.
func (op Operator) Ordered() bool {
	return op == OpGt || op == OpGte || op == OpLt || op == OpLte
}

func (op Operator) isWord() bool {
	return op == OpContains || op == OpNotContains || op == OpIn || op == OpNotIn
}

// LogicalOperator combines two sub-expressions or a list of predicates.
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// Valid reports whether lo is AND or OR.
func (lo LogicalOperator) Valid() bool { return lo == And || lo == Or }

// Compare applies op to a payload value (actual) and the right-hand side
// (expected). field names the left operand for error reporting.
func Compare(op Operator, field string, actual, expected any) (bool, error) {
	switch op {
	case OpEq:
		return equal(actual, expected), nil
	case OpNeq:
		return !equal(actual, expected), nil
	case OpGt, OpGte, OpLt, OpLte:
		c, err := order(field, actual, expected)
		if err != nil {
			return false, err
		}
		switch op {
		case OpGt:
			return c > 0, nil
		case OpGte:
			return c >= 0, nil
		case OpLt:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case OpContains:
		return containsOp(field, actual, expected)
	case OpNotContains:
		ok, err := containsOp(field, actual, expected)
		return !ok && err == nil, err
	case OpIn:
		return inOp(field, actual, expected)
	case OpNotIn:
		ok, err := inOp(field, actual, expected)
		return !ok && err == nil, err
	default:
		return false, &EvaluationError{Msg: fmt.Sprintf("Unsupported operator: %s", op)}
	}
}

// Order compares two values that have a natural ordering and returns -1, 0
// or 1. ok is false when the operands cannot be ordered against each other.
func Order(a, b any) (c int, ok bool) {
	if af, aok := toFloat64(a); aok {
		bf, bok := toFloat64(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func order(field string, actual, expected any) (int, error) {
	c, ok := Order(actual, expected)
	if !ok {
		return 0, &TypeMismatchError{Field: field, Expected: TypeName(expected), Actual: TypeName(actual)}
	}
	return c, nil
}

func containsOp(field string, actual, expected any) (bool, error) {
	if s, ok := actual.(string); ok {
		sub, ok := expected.(string)
		if !ok {
			return false, &TypeMismatchError{Field: field, Expected: TypeName(expected), Actual: TypeName(actual)}
		}
		return strings.Contains(s, sub), nil
	}
	if list, ok := AsList(actual); ok {
		return member(expected, list), nil
	}
	return false, &TypeMismatchError{Field: field, Expected: "string or list", Actual: TypeName(actual)}
}

func inOp(field string, actual, expected any) (bool, error) {
	list, ok := AsList(expected)
	if !ok {
		return false, &TypeMismatchError{Field: field, Expected: "a list value", Actual: TypeName(expected)}
	}
	return member(actual, list), nil
}

func member(v any, list []any) bool {
	for _, item := range list {
		if equal(v, item) {
			return true
		}
	}
	return false
}

// equal compares numbers by value regardless of their Go type, lists
// element-wise and everything else by kind and value. Values of different
// kinds are never equal.
func equal(a, b any) bool {
	if af, ok := toFloat64(a); ok {
		bf, ok := toFloat64(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	if al, ok := AsList(a); ok {
		bl, ok := AsList(b)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !equal(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// AsList converts the slice shapes a payload or literal can take to []any.
func AsList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(l))
		for i, f := range l {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

// toFloat64 coerces a numeric value to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// IsNumber reports whether v is any Go numeric type or a json.Number.
func IsNumber(v any) bool {
	_, ok := toFloat64(v)
	return ok
}

// TypeName describes v with the JSON vocabulary used in error messages.
func TypeName(v any) string {
	if v == nil {
		return "null"
	}
	if IsNumber(v) {
		return "number"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	}
	if _, ok := AsList(v); ok {
		return "list"
	}
	return fmt.Sprintf("%T", v)
}
