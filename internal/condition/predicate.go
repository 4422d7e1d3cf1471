package condition

// Predicate is one condition of a flat rule: <field> <operator> <value>.
type Predicate struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// EvaluatePredicates evaluates every predicate against payload. With AND the
// result is true iff no predicate failed; with OR it is true iff at least
// one passed. Errors are recorded on the failing check.
func EvaluatePredicates(preds []Predicate, op LogicalOperator, payload Payload) (bool, Trace) {
	trace := make(Trace, 0, len(preds))
	passed, failed := 0, 0
	for _, p := range preds {
		check := resolve(&Comparison{Field: p.Field, Op: p.Operator, Value: p.Value}, payload)
		trace = append(trace, check)
		if check.Passed {
			passed++
		} else {
			failed++
		}
	}
	if op == Or {
		return passed > 0, trace
	}
	return failed == 0, trace
}
