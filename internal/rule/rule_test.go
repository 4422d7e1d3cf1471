package rule

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
)

func adultPredicates() []condition.Predicate {
	return []condition.Predicate{
		{Field: "age", Operator: condition.OpGte, Value: 18.0},
		{Field: "country", Operator: condition.OpEq, Value: "US"},
	}
}

func TestNew_Valid(t *testing.T) {
	r, err := New(Spec{Name: "Adult", Predicates: adultPredicates()})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if r.IsExpression() {
		t.Errorf("predicate rule reported as expression rule")
	}
	if r.LogicalOperator() != condition.And {
		t.Errorf("default logical operator = %q, want AND", r.LogicalOperator())
	}

	r, err = New(Spec{Name: "Adult", Expression: "age >= 18 AND country == 'US'"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if !r.IsExpression() || r.AST() == nil {
		t.Errorf("expression rule has no AST")
	}
	if r.LogicalOperator() != "" {
		t.Errorf("expression rule logical operator = %q, want empty", r.LogicalOperator())
	}
}

func TestNew_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		spec    Spec
		wantMsg string
	}{
		{"blank name", Spec{Name: "  ", Expression: "a == 1"}, "Rule name cannot be empty"},
		{"neither form", Spec{Name: "r"}, "Rule must have either predicates or expression"},
		{"both forms", Spec{Name: "r", Expression: "a == 1", Predicates: adultPredicates()}, "Rule cannot have both predicates and expression"},
		{"bad logical operator", Spec{Name: "r", Predicates: adultPredicates(), LogicalOperator: "XOR"}, "logical_operator must be 'AND' or 'OR', got: XOR"},
		{"bad operator", Spec{Name: "r", Predicates: []condition.Predicate{{Field: "a", Operator: "=~", Value: 1.0}}}, "Invalid operator: =~"},
		{"empty field", Spec{Name: "r", Predicates: []condition.Predicate{{Field: "", Operator: condition.OpEq, Value: 1.0}}}, "Predicate 0 field cannot be empty"},
		{"empty predicates with expression", Spec{Name: "r", Expression: "a == 1", Predicates: []condition.Predicate{}}, "Rule cannot have both predicates and expression"},
		{"empty predicates", Spec{Name: "r", Predicates: []condition.Predicate{}}, "Rule must have at least one predicate"},
		{"blank expression", Spec{Name: "r", Expression: "   "}, "Expression cannot be empty"},
		{"bad expression", Spec{Name: "r", Expression: "age = 18"}, "Invalid expression syntax: Single '=' operator"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.spec)
			if !errors.Is(err, ErrInvalidRule) {
				t.Fatalf("error = %v, want ErrInvalidRule", err)
			}
			if !strings.HasPrefix(err.Error(), tc.wantMsg) {
				t.Errorf("message = %q, want prefix %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestUnmarshalJSON_EmptyPredicates(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"with expression", `{"name":"r","predicates":[],"expression":"a == 1"}`, "Rule cannot have both predicates and expression"},
		{"alone", `{"name":"r","predicates":[]}`, "Rule must have at least one predicate"},
		{"absent", `{"name":"r"}`, "Rule must have either predicates or expression"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r Rule
			err := json.Unmarshal([]byte(tc.body), &r)
			if !errors.Is(err, ErrInvalidRule) || !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error = %v, want %q", err, tc.wantMsg)
			}
		})
	}
}

func TestNew_SyntaxErrorIsWrapped(t *testing.T) {
	_, err := New(Spec{Name: "r", Expression: "(a == 1"})
	var se *condition.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("error %v does not wrap *condition.SyntaxError", err)
	}
}

func TestNew_LowercaseLogicalOperator(t *testing.T) {
	r, err := New(Spec{Name: "r", Predicates: adultPredicates(), LogicalOperator: "or"})
	if err != nil {
		t.Fatal(err)
	}
	if r.LogicalOperator() != condition.Or {
		t.Errorf("logical operator = %q, want OR", r.LogicalOperator())
	}
}

func TestRule_Immutable(t *testing.T) {
	preds := adultPredicates()
	r, err := New(Spec{Name: "r", Predicates: preds})
	if err != nil {
		t.Fatal(err)
	}
	preds[0].Field = "mutated"
	got := r.Predicates()
	if got[0].Field != "age" {
		t.Errorf("rule shares caller's slice")
	}
	got[1].Field = "mutated"
	if r.Predicates()[1].Field != "country" {
		t.Errorf("Predicates() exposes internal slice")
	}

	withID := r.WithID("abc")
	if r.ID() != "" || withID.ID() != "abc" {
		t.Errorf("WithID mutated original: %q / %q", r.ID(), withID.ID())
	}
}

func TestRule_JSON(t *testing.T) {
	r, err := New(Spec{ID: "1", Name: "Adult", Description: "d", Predicates: adultPredicates(), LogicalOperator: condition.Or})
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"expression"`) {
		t.Errorf("predicate rule JSON carries expression: %s", data)
	}
	var back Rule
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.ID() != "1" || back.Name() != "Adult" || back.LogicalOperator() != condition.Or || len(back.Predicates()) != 2 {
		t.Errorf("round trip = %+v", back.Spec())
	}

	if err := json.Unmarshal([]byte(`{"id":"2","name":"x","expression":"a = 1"}`), &back); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("Unmarshal of invalid rule error = %v, want ErrInvalidRule", err)
	}
}

func TestRule_YAML(t *testing.T) {
	doc := `
- id: a
  name: Adult
  description: adults only
  expression: age >= 18
- id: b
  name: Tier
  predicates:
    - field: tier
      operator: in
      value: [gold, silver]
  logical_operator: OR
`
	var rules []*Rule
	if err := yaml.Unmarshal([]byte(doc), &rules); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if !rules[0].IsExpression() || rules[0].Expression() != "age >= 18" {
		t.Errorf("rule 0 = %+v", rules[0].Spec())
	}
	if rules[1].LogicalOperator() != condition.Or {
		t.Errorf("rule 1 logical operator = %q", rules[1].LogicalOperator())
	}
	out, err := yaml.Marshal(rules)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "expression: age >= 18") {
		t.Errorf("yaml output missing expression:\n%s", out)
	}
}
