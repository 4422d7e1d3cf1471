package rule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
)

// ErrInvalidRule is matched by every error New returns.
var ErrInvalidRule = errors.New("invalid rule")

// ValidationError describes why a Spec cannot become a Rule. Err carries the
// underlying *condition.SyntaxError for expression rules.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRule }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Spec is the authoring form of a rule, and its wire shape. Exactly one of
// Predicates and Expression is set; an empty non-nil Predicates counts as set.
type Spec struct {
	ID              string                    `json:"id,omitempty" yaml:"id,omitempty"`
	Name            string                    `json:"name" yaml:"name"`
	Description     string                    `json:"description" yaml:"description"`
	Predicates      []condition.Predicate     `json:"predicates,omitempty" yaml:"predicates,omitempty"`
	LogicalOperator condition.LogicalOperator `json:"logical_operator,omitempty" yaml:"logical_operator,omitempty"`
	Expression      string                    `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Rule is a validated, immutable rule. Expression rules keep their parsed
// AST so evaluation does not re-parse.
type Rule struct {
	id          string
	name        string
	description string
	predicates  []condition.Predicate
	logicalOp   condition.LogicalOperator
	expression  string
	ast         condition.Node
}

// New validates s and builds a Rule from it.
func New(s Spec) (*Rule, error) {
	if strings.TrimSpace(s.Name) == "" {
		return nil, invalid("Rule name cannot be empty")
	}
	hasPreds := s.Predicates != nil
	hasExpr := s.Expression != ""
	switch {
	case !hasPreds && !hasExpr:
		return nil, invalid("Rule must have either predicates or expression")
	case hasPreds && hasExpr:
		return nil, invalid("Rule cannot have both predicates and expression")
	}

	r := &Rule{id: s.ID, name: s.Name, description: s.Description}

	if hasExpr {
		if strings.TrimSpace(s.Expression) == "" {
			return nil, invalid("Expression cannot be empty")
		}
		node, err := condition.Parse(s.Expression)
		if err != nil {
			return nil, &ValidationError{Msg: "Invalid expression syntax: " + err.Error(), Err: err}
		}
		r.expression = s.Expression
		r.ast = node
		return r, nil
	}

	op := condition.LogicalOperator(strings.ToUpper(string(s.LogicalOperator)))
	if op == "" {
		op = condition.And
	}
	if !op.Valid() {
		return nil, invalid("logical_operator must be 'AND' or 'OR', got: %s", s.LogicalOperator)
	}
	if len(s.Predicates) == 0 {
		return nil, invalid("Rule must have at least one predicate")
	}
	for i, p := range s.Predicates {
		if strings.TrimSpace(p.Field) == "" {
			return nil, invalid("Predicate %d field cannot be empty", i)
		}
		if !p.Operator.Valid() {
			return nil, invalid("Invalid operator: %s", p.Operator)
		}
	}
	r.logicalOp = op
	r.predicates = append([]condition.Predicate(nil), s.Predicates...)
	return r, nil
}

// WithID returns a copy of r carrying id.
func (r *Rule) WithID(id string) *Rule {
	cp := *r
	cp.id = id
	return &cp
}

func (r *Rule) ID() string          { return r.id }
func (r *Rule) Name() string        { return r.name }
func (r *Rule) Description() string { return r.description }

// IsExpression reports whether r is an expression rule.
func (r *Rule) IsExpression() bool { return r.ast != nil }

// Expression returns the source text of an expression rule.
func (r *Rule) Expression() string { return r.expression }

// AST returns the parsed expression, or nil for predicate rules.
func (r *Rule) AST() condition.Node { return r.ast }

// Predicates returns a copy of the predicate list.
func (r *Rule) Predicates() []condition.Predicate {
	return append([]condition.Predicate(nil), r.predicates...)
}

// LogicalOperator returns how predicates combine; empty for expression rules.
func (r *Rule) LogicalOperator() condition.LogicalOperator { return r.logicalOp }

// Spec returns the authoring form of r.
func (r *Rule) Spec() Spec {
	return Spec{
		ID:              r.id,
		Name:            r.name,
		Description:     r.description,
		Predicates:      r.Predicates(),
		LogicalOperator: r.logicalOp,
		Expression:      r.expression,
	}
}

func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Spec())
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	built, err := New(s)
	if err != nil {
		return err
	}
	*r = *built
	return nil
}

func (r *Rule) MarshalYAML() (any, error) {
	return r.Spec(), nil
}

func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	var s Spec
	if err := value.Decode(&s); err != nil {
		return err
	}
	built, err := New(s)
	if err != nil {
		return err
	}
	*r = *built
	return nil
}
