package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
	"github.com/gyaneshwarpardhi/verdict/internal/config"
	"github.com/gyaneshwarpardhi/verdict/internal/logging"
	"github.com/gyaneshwarpardhi/verdict/internal/rule"
	"github.com/gyaneshwarpardhi/verdict/internal/store"
)

var testConf = config.EngineConf{Workers: 2, QueueDepth: 16, BatchMaxSize: 10, EvalTimeoutMs: 2000}

func newTestEngine(t *testing.T, specs ...rule.Spec) (*Engine, []string) {
	t.Helper()
	s := store.NewMemoryStore()
	ids := make([]string, len(specs))
	for i, spec := range specs {
		spec.ID = uuid.NewString()
		r, err := rule.New(spec)
		if err != nil {
			t.Fatalf("rule.New(%s): %v", spec.Name, err)
		}
		if err := s.Create(context.Background(), r); err != nil {
			t.Fatal(err)
		}
		ids[i] = spec.ID
	}
	e := New(context.Background(), s, logging.Discard(), testConf)
	t.Cleanup(e.Shutdown)
	return e, ids
}

func TestEngine_EvaluateRequestErrors(t *testing.T) {
	e, ids := newTestEngine(t, rule.Spec{Name: "Adult", Expression: "age >= 18"})
	ctx := context.Background()
	payload := condition.Payload{"age": 20.0}

	cases := []struct {
		name    string
		ids     []string
		wantErr error
		wantMsg string
	}{
		{"no ids", nil, ErrNoRules, "At least one rule_id must be provided"},
		{"malformed id", []string{"abc"}, ErrInvalidRuleID, "Invalid UUID format: abc"},
		{"malformed after valid", []string{ids[0], "abc"}, ErrInvalidRuleID, "Invalid UUID format: abc"},
		{"unknown rule", []string{ids[0], "3f1e0c52-7d7a-4c1e-9a4b-0d6a4c9b2e11"}, store.ErrNotFound,
			"Rule with id '3f1e0c52-7d7a-4c1e-9a4b-0d6a4c9b2e11' not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := e.Evaluate(ctx, payload, tc.ids)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if err.Error() != tc.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tc.wantMsg)
			}
			if resp != nil {
				t.Errorf("response returned alongside error")
			}
		})
	}
}

func TestEngine_EvaluateExpressionRule(t *testing.T) {
	e, ids := newTestEngine(t, rule.Spec{Name: "Adult US", Expression: "age >= 18 AND country == 'US'"})
	ctx := context.Background()

	cases := []struct {
		name       string
		payload    condition.Payload
		want       Verdict
		wantReason string
		wantChecks int
	}{
		{
			name:       "pass",
			payload:    condition.Payload{"age": 20.0, "country": "US"},
			want:       Pass,
			wantReason: "Adult US passed all conditions",
			wantChecks: 2,
		},
		{
			name:       "fail both sides reported",
			payload:    condition.Payload{"age": 16.0, "country": "CA"},
			want:       Fail,
			wantReason: "age (16) must be at least 18; Expected country to be 'US' but was 'CA'",
			wantChecks: 2,
		},
		{
			name:       "missing fields short circuit",
			payload:    condition.Payload{"name": "x"},
			want:       Fail,
			wantReason: "Missing required fields: age, country",
			wantChecks: 1,
		},
		{
			name:       "type mismatch contained",
			payload:    condition.Payload{"age": "twenty", "country": "US"},
			want:       Fail,
			wantReason: "age: Type mismatch for field 'age': expected number, got string",
			wantChecks: 2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := e.Evaluate(ctx, tc.payload, ids)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if resp.Result != tc.want {
				t.Errorf("Result = %s, want %s", resp.Result, tc.want)
			}
			if len(resp.Details) != 1 {
				t.Fatalf("got %d details", len(resp.Details))
			}
			d := resp.Details[0]
			if d.Reason != tc.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tc.wantReason)
			}
			if want := "Adult US: " + tc.wantReason; resp.Reasons[0] != want {
				t.Errorf("Reasons[0] = %q, want %q", resp.Reasons[0], want)
			}
			if len(d.PredicateResults) != tc.wantChecks {
				t.Errorf("got %d predicate results, want %d", len(d.PredicateResults), tc.wantChecks)
			}
			if d.RuleID != ids[0] || d.RuleName != "Adult US" {
				t.Errorf("rule identity = %s/%s", d.RuleID, d.RuleName)
			}
		})
	}
}

func TestEngine_MissingFieldsEntry(t *testing.T) {
	e, ids := newTestEngine(t, rule.Spec{Name: "R", Expression: "a == 1 OR b == 2"})
	resp, err := e.Evaluate(context.Background(), condition.Payload{"b": 2.0}, ids)
	if err != nil {
		t.Fatal(err)
	}
	pr := resp.Details[0].PredicateResults[0]
	if pr.Error != "Missing required fields: a" || pr.Passed {
		t.Errorf("entry = %+v", pr)
	}
}

func TestEngine_EvaluatePredicateRule(t *testing.T) {
	e, ids := newTestEngine(t,
		rule.Spec{Name: "Any", LogicalOperator: "OR", Predicates: []condition.Predicate{
			{Field: "country", Operator: condition.OpIn, Value: []any{"US", "CA"}},
			{Field: "vip", Operator: condition.OpEq, Value: true},
		}},
		rule.Spec{Name: "All", Predicates: []condition.Predicate{
			{Field: "score", Operator: condition.OpGt, Value: 50.0},
			{Field: "tags", Operator: condition.OpContains, Value: "beta"},
		}},
	)
	ctx := context.Background()

	resp, err := e.Evaluate(ctx, condition.Payload{
		"country": "MX",
		"vip":     true,
		"score":   80.0,
		"tags":    []any{"beta", "new"},
	}, ids)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Result != Pass {
		t.Fatalf("Result = %s, reasons %v", resp.Result, resp.Reasons)
	}

	resp, err = e.Evaluate(ctx, condition.Payload{"vip": true, "score": 10.0, "tags": []any{}}, ids)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Result != Fail {
		t.Fatalf("Result = %s", resp.Result)
	}
	if resp.Details[0].Result != Pass {
		t.Errorf("OR rule should pass with one passing predicate: %+v", resp.Details[0])
	}
	all := resp.Details[1]
	if all.Result != Fail || !strings.Contains(all.Reason, "score (10) must be greater than 50") {
		t.Errorf("AND rule = %+v", all)
	}
	if all.PredicateResults[0].Actual != 10.0 || all.PredicateResults[0].Expected != 50.0 {
		t.Errorf("predicate values = %+v", all.PredicateResults[0])
	}
}

func TestEngine_FieldComparison(t *testing.T) {
	e, ids := newTestEngine(t, rule.Spec{Name: "Budget", Expression: "spent <= budget"})
	resp, err := e.Evaluate(context.Background(), condition.Payload{"spent": 120.0, "budget": 100.0}, ids)
	if err != nil {
		t.Fatal(err)
	}
	want := "spent (120) should be less than or equal to budget (100)"
	if resp.Details[0].Reason != want {
		t.Errorf("Reason = %q, want %q", resp.Details[0].Reason, want)
	}
}

func TestEngine_PredicateResultOperands(t *testing.T) {
	cases := []struct {
		name       string
		expression string
		payload    condition.Payload
		wantActual any
		wantJSON   []string
	}{
		{
			name:       "type mismatch keeps actual",
			expression: "age > 18",
			payload:    condition.Payload{"age": "twenty"},
			wantActual: "twenty",
			wantJSON:   []string{`"actual":"twenty"`, `"expected":18`, `"error":"Type mismatch`},
		},
		{
			name:       "null expected is encoded",
			expression: "x == null",
			payload:    condition.Payload{"x": 5.0},
			wantActual: 5.0,
			wantJSON:   []string{`"expected":null`, `"actual":5`},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, ids := newTestEngine(t, rule.Spec{Name: "R", Expression: tc.expression})
			resp, err := e.Evaluate(context.Background(), tc.payload, ids)
			if err != nil {
				t.Fatal(err)
			}
			pr := resp.Details[0].PredicateResults[0]
			if pr.Passed || pr.Actual != tc.wantActual {
				t.Errorf("entry = %+v, want failed with actual %v", pr, tc.wantActual)
			}
			body, err := json.Marshal(pr)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range tc.wantJSON {
				if !strings.Contains(string(body), want) {
					t.Errorf("json %s missing %s", body, want)
				}
			}
		})
	}
}

func TestEngine_EvaluateBatch(t *testing.T) {
	e, ids := newTestEngine(t, rule.Spec{Name: "Adult", Expression: "age >= 18"})
	reqs := []Request{
		{Payload: condition.Payload{"age": 30.0}, RuleIDs: ids},
		{Payload: condition.Payload{"age": 10.0}, RuleIDs: ids},
		{Payload: condition.Payload{"age": 30.0}, RuleIDs: []string{"bad"}},
	}
	results := e.EvaluateBatch(context.Background(), reqs)
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("results[%d].Index = %d", i, r.Index)
		}
	}
	if results[0].Response == nil || results[0].Response.Result != Pass {
		t.Errorf("item 0 = %+v", results[0])
	}
	if results[1].Response == nil || results[1].Response.Result != Fail {
		t.Errorf("item 1 = %+v", results[1])
	}
	if !errors.Is(results[2].Err, ErrInvalidRuleID) || results[2].Error != "Invalid UUID format: bad" || results[2].Response != nil {
		t.Errorf("item 2 = %+v", results[2])
	}
}

func TestEngine_EvaluateBatchAfterShutdown(t *testing.T) {
	e, ids := newTestEngine(t, rule.Spec{Name: "Adult", Expression: "age >= 18"})
	e.Shutdown()
	results := e.EvaluateBatch(context.Background(), []Request{{Payload: condition.Payload{"age": 30.0}, RuleIDs: ids}})
	if !errors.Is(results[0].Err, ErrShutdown) {
		t.Errorf("err = %v, want ErrShutdown", results[0].Err)
	}
}
