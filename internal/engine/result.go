package engine

import "github.com/gyaneshwarpardhi/verdict/internal/condition"

// Verdict is the outcome of a rule or of a whole evaluation.
type Verdict string

const (
	Pass Verdict = "PASS"
	Fail Verdict = "FAIL"
)

func verdictOf(ok bool) Verdict {
	if ok {
		return Pass
	}
	return Fail
}

// Request asks for payload to be evaluated against the listed rules.
type Request struct {
	Payload condition.Payload `json:"payload" yaml:"payload"`
	RuleIDs []string          `json:"rule_ids" yaml:"rule_ids"`
}

// PredicateResult explains one comparison of a rule. Expected and Actual are
// always present, as null when the operand is null or was never resolved.
type PredicateResult struct {
	Field      string `json:"field,omitempty" yaml:"field,omitempty"`
	Operator   string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Expected   any    `json:"expected" yaml:"expected"`
	Actual     any    `json:"actual" yaml:"actual"`
	Passed     bool   `json:"passed" yaml:"passed"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Result is the verdict for one rule.
type Result struct {
	RuleID           string            `json:"rule_id" yaml:"rule_id"`
	RuleName         string            `json:"rule_name" yaml:"rule_name"`
	Result           Verdict           `json:"result" yaml:"result"`
	Reason           string            `json:"reason" yaml:"reason"`
	PredicateResults []PredicateResult `json:"predicate_results" yaml:"predicate_results"`
}

// Passed reports whether the rule passed.
func (r Result) Passed() bool { return r.Result == Pass }

// Response aggregates the verdicts of every requested rule. Result is PASS
// only when every rule passed.
type Response struct {
	Result  Verdict  `json:"result" yaml:"result"`
	Reasons []string `json:"reasons" yaml:"reasons"`
	Details []Result `json:"details" yaml:"details"`
}

// BatchResult is the outcome of one item of a batch. Exactly one of
// Response and Error is set.
type BatchResult struct {
	Index    int       `json:"index" yaml:"index"`
	Response *Response `json:"response,omitempty" yaml:"response,omitempty"`
	Error    string    `json:"error,omitempty" yaml:"error,omitempty"`
	Err      error     `json:"-" yaml:"-"`
}
