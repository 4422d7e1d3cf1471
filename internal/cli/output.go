package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
	"github.com/gyaneshwarpardhi/verdict/internal/engine"
	"github.com/gyaneshwarpardhi/verdict/internal/rule"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

const maxCellWidth = 50

// PrintRules outputs rules in the specified format
func PrintRules(w io.Writer, rules []*rule.Rule, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]*rule.Rule{"rules": rules})
	case FormatYAML:
		return printYAML(w, map[string][]*rule.Rule{"rules": rules})
	case FormatTable:
		return printRuleTable(w, rules)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintRule outputs a single rule in the specified format
func PrintRule(w io.Writer, r *rule.Rule, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, r)
	case FormatYAML:
		return printYAML(w, r)
	case FormatTable:
		return printRuleTable(w, []*rule.Rule{r})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintEvaluation outputs the verdict of an evaluation. The table form has
// one row per rule and the overall verdict in the footer.
func PrintEvaluation(w io.Writer, resp *engine.Response, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, resp)
	case FormatYAML:
		return printYAML(w, resp)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Rule", "Result", "Reason")
		for _, d := range resp.Details {
			table.Append(d.RuleName, string(d.Result), d.Reason)
		}
		table.Footer("", string(resp.Result), "")
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// Parsed describes an expression for display.
type Parsed struct {
	Expression string   `json:"expression" yaml:"expression"`
	Canonical  string   `json:"canonical" yaml:"canonical"`
	Fields     []string `json:"fields" yaml:"fields"`
	Tree       *Tree    `json:"tree" yaml:"tree"`
}

// Tree is a serialisable view of an expression AST.
type Tree struct {
	Op            string `json:"op" yaml:"op"`
	Field         string `json:"field,omitempty" yaml:"field,omitempty"`
	Value         any    `json:"value,omitempty" yaml:"value,omitempty"`
	ComparedField string `json:"compared_field,omitempty" yaml:"compared_field,omitempty"`
	Left          *Tree  `json:"left,omitempty" yaml:"left,omitempty"`
	Right         *Tree  `json:"right,omitempty" yaml:"right,omitempty"`
}

// Describe builds the display form of a parsed expression.
func Describe(expr string, node condition.Node) Parsed {
	return Parsed{
		Expression: expr,
		Canonical:  condition.Format(node),
		Fields:     condition.Fields(node),
		Tree:       treeOf(node),
	}
}

func treeOf(node condition.Node) *Tree {
	switch n := node.(type) {
	case *condition.Comparison:
		t := &Tree{Op: string(n.Op), Field: n.Field}
		if n.IsFieldComparison {
			t.ComparedField = fmt.Sprint(n.Value)
		} else {
			t.Value = n.Value
		}
		return t
	case *condition.BinaryOp:
		return &Tree{Op: string(n.Op), Left: treeOf(n.Left), Right: treeOf(n.Right)}
	}
	return nil
}

// PrintParsed outputs a parsed expression in the specified format
func PrintParsed(w io.Writer, p Parsed, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, p)
	case FormatYAML:
		return printYAML(w, p)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Property", "Value")
		table.Append("Expression", p.Expression)
		table.Append("Canonical", p.Canonical)
		table.Append("Fields", strings.Join(p.Fields, ", "))
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printRuleTable(w io.Writer, rules []*rule.Rule) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Form", "Condition")
	for _, r := range rules {
		form := "predicates"
		if r.IsExpression() {
			form = "expression"
		}
		table.Append(r.ID(), r.Name(), form, truncate(Condition(r), maxCellWidth))
	}
	return table.Render()
}

// Condition renders a rule's condition as a single line: the expression, or
// the predicates joined by the rule's logical operator.
func Condition(r *rule.Rule) string {
	if r.IsExpression() {
		return r.Expression()
	}
	preds := r.Predicates()
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = fmt.Sprintf("%s %s %s", p.Field, p.Operator, condition.FormatLiteral(p.Value))
	}
	return strings.Join(parts, " "+string(r.LogicalOperator())+" ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
