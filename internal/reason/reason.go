package reason

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
)

var fieldRelations = map[condition.Operator]string{
	condition.OpEq:  "should equal",
	condition.OpNeq: "should not equal",
	condition.OpGt:  "should be greater than",
	condition.OpGte: "should be greater than or equal to",
	condition.OpLt:  "should be less than",
	condition.OpLte: "should be less than or equal to",
}

var orderRelations = map[condition.Operator]string{
	condition.OpGt:  "greater than",
	condition.OpGte: "greater than or equal to",
	condition.OpLt:  "less than",
	condition.OpLte: "less than or equal to",
}

// For explains a single check in one sentence.
func For(c condition.Check) string {
	if c.Err != nil {
		return ForError(c.Field, c.Err)
	}
	if c.Passed {
		if c.IsFieldComparison {
			return fmt.Sprintf("%s %s %s check passed", c.Field, c.Operator, c.ComparedField)
		}
		return fmt.Sprintf("%s passed %s check", c.Field, c.Operator)
	}
	if c.IsFieldComparison {
		return fieldFailure(c)
	}

	f, exp, act := c.Field, c.Expected, c.Actual
	switch c.Operator {
	case condition.OpEq:
		switch exp.(type) {
		case bool:
			return fmt.Sprintf("Expected %s to be %s but was %s", f, Value(exp), Value(act))
		case string:
			return fmt.Sprintf("Expected %s to be '%s' but was '%s'", f, Value(exp), Value(act))
		}
		if condition.IsNumber(exp) {
			return fmt.Sprintf("Expected %s to equal %s but was %s", f, Value(exp), Value(act))
		}
		return fmt.Sprintf("Expected %s to be %s but was %s", f, Value(exp), Value(act))

	case condition.OpNeq:
		switch exp.(type) {
		case bool:
			return fmt.Sprintf("Expected %s to not be %s but it was", f, Value(exp))
		case string:
			return fmt.Sprintf("Expected %s to not be '%s' but it was", f, Value(exp))
		}
		return fmt.Sprintf("Expected %s to not equal %s but it did", f, Value(exp))

	case condition.OpGt, condition.OpGte, condition.OpLt, condition.OpLte:
		return orderFailure(c)

	case condition.OpContains:
		if _, ok := act.(string); ok {
			return fmt.Sprintf("Expected %s to contain '%s' but it doesn't (actual: '%s')", f, Value(exp), Value(act))
		}
		if _, ok := condition.AsList(act); ok {
			return fmt.Sprintf("Expected %s to contain '%s' but it doesn't (actual: %s)", f, Value(exp), Value(act))
		}
		return fmt.Sprintf("Expected %s to contain '%s'", f, Value(exp))

	case condition.OpNotContains:
		if _, ok := act.(string); ok {
			return fmt.Sprintf("Expected %s to not contain '%s' but it does (actual: '%s')", f, Value(exp), Value(act))
		}
		if _, ok := condition.AsList(act); ok {
			return fmt.Sprintf("Expected %s to not contain '%s' but it does (actual: %s)", f, Value(exp), Value(act))
		}
		return fmt.Sprintf("Expected %s to not contain '%s' but it does", f, Value(exp))

	case condition.OpIn:
		if list, ok := condition.AsList(exp); ok {
			return fmt.Sprintf("Expected %s to be one of %s but was '%s'", f, List(list), Value(act))
		}
		return fmt.Sprintf("Expected %s to be in %s but was '%s'", f, Value(exp), Value(act))

	case condition.OpNotIn:
		if list, ok := condition.AsList(exp); ok {
			return fmt.Sprintf("Expected %s to not be in %s but it was '%s'", f, List(list), Value(act))
		}
		return fmt.Sprintf("Expected %s to not be in %s but it was '%s'", f, Value(exp), Value(act))
	}
	return fmt.Sprintf("%s failed %s check (expected: %s, actual: %s)", f, c.Operator, Value(exp), Value(act))
}

func orderFailure(c condition.Check) string {
	a, e := Value(c.Actual), Value(c.Expected)
	if cmp, ok := condition.Order(c.Actual, c.Expected); ok {
		switch {
		case c.Operator == condition.OpGt && cmp <= 0:
			return fmt.Sprintf("%s (%s) must be greater than %s", c.Field, a, e)
		case c.Operator == condition.OpGte && cmp < 0:
			return fmt.Sprintf("%s (%s) must be at least %s", c.Field, a, e)
		case c.Operator == condition.OpLt && cmp >= 0:
			return fmt.Sprintf("%s (%s) must be less than %s", c.Field, a, e)
		case c.Operator == condition.OpLte && cmp > 0:
			return fmt.Sprintf("%s (%s) must be at most %s", c.Field, a, e)
		}
	}
	return fmt.Sprintf("%s (%s) is not %s %s", c.Field, a, orderRelations[c.Operator], e)
}

func fieldFailure(c condition.Check) string {
	relation, ok := fieldRelations[c.Operator]
	if !ok {
		relation = fmt.Sprintf("failed %s check with", c.Operator)
	}
	return fmt.Sprintf("%s (%s) %s %s (%s)", c.Field, element(c.Actual), relation, c.ComparedField, element(c.Expected))
}

// ForError explains a comparison that could not be performed.
func ForError(field string, err error) string {
	return fmt.Sprintf("%s: %s", field, err.Error())
}

// Summary is the rule-level reason: a pass message, or the failing
// sentences joined by "; ".
func Summary(ruleName string, passed bool, failures []string) string {
	if passed {
		return fmt.Sprintf("%s passed all conditions", ruleName)
	}
	if len(failures) == 0 {
		return fmt.Sprintf("Rule %s failed", ruleName)
	}
	return strings.Join(failures, "; ")
}

// Failures returns the reason for every failed check in trace, in order.
func Failures(trace condition.Trace) []string {
	var out []string
	for _, c := range trace.Failed() {
		out = append(out, For(c))
	}
	return out
}
