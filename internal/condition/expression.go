package condition

import (
	"fmt"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------
// AST nodes
// -----------------------------------------------------------------------

// Node is the common interface for all AST nodes. The set of
// implementations is closed: *Comparison and *BinaryOp.
type Node interface {
	exprNode()
}

// Comparison represents <field> <operator> <value|field>. When
// IsFieldComparison is set, Value holds the name of the right-hand field.
type Comparison struct {
	Field             string
	Op                Operator
	Value             any
	IsFieldComparison bool
}

func (*Comparison) exprNode() {}

// BinaryOp represents AND / OR.
type BinaryOp struct {
	Op    LogicalOperator
	Left  Node
	Right Node
}

func (*BinaryOp) exprNode() {}

// -----------------------------------------------------------------------
// Recursive-descent parser
// -----------------------------------------------------------------------

type parser struct {
	src    string
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) consume() Token {
	t := p.tokens[p.pos]
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorAt(t Token, format string, args ...any) *SyntaxError {
	return newSyntaxError(p.src, t.Pos, format, args...)
}

// Parse parses an expression string into an AST. Errors are *SyntaxError.
func Parse(expr string) (Node, error) {
	tokens, err := Tokenize(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{src: expr, tokens: tokens}
	if p.peek().Kind == TokEOF {
		return nil, p.errorAt(p.peek(), "Empty expression")
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind != TokEOF {
		return nil, p.errorAt(t, "Unexpected %s after expression", describe(t))
	}
	return node, nil
}

// or_expr = and_expr ( "OR" and_expr )*
func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokOr {
		p.consume()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: Or, Left: left, Right: right}
	}
	return left, nil
}

// and_expr = comparison ( "AND" comparison )*
func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokAnd {
		p.consume()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: And, Left: left, Right: right}
	}
	return left, nil
}

// comparison = "(" or_expr ")" | field operator ( value | field )
func (p *parser) parseComparison() (Node, error) {
	if open := p.peek(); open.Kind == TokLParen {
		p.consume()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != TokRParen {
			return nil, p.errorAt(open, "Unmatched '(', expected ')' but got %s", describe(p.peek()))
		}
		p.consume()
		return inner, nil
	}

	ft := p.peek()
	if ft.Kind != TokField {
		return nil, p.errorAt(ft, "Expected field name, got %s", describe(ft))
	}
	p.consume()
	field := ft.Value.(string)

	ot := p.peek()
	if ot.Kind != TokOperator {
		return nil, p.errorAt(ot, "Expected operator after field '%s', got %s", field, describe(ot))
	}
	p.consume()
	op := ot.Value.(Operator)

	vt := p.peek()
	switch vt.Kind {
	case TokValue:
		p.consume()
		return &Comparison{Field: field, Op: op, Value: vt.Value}, nil
	case TokField:
		p.consume()
		return &Comparison{Field: field, Op: op, Value: vt.Value, IsFieldComparison: true}, nil
	default:
		return nil, p.errorAt(vt, "Expected value or field after operator '%s', got %s", op, describe(vt))
	}
}

func describe(t Token) string {
	switch t.Kind {
	case TokEOF:
		return "end of expression"
	case TokValue:
		return "value " + FormatLiteral(t.Value)
	case TokField, TokOperator:
		return fmt.Sprintf("%s '%v'", t.Kind, t.Value)
	default:
		return fmt.Sprintf("'%v'", t.Value)
	}
}

// -----------------------------------------------------------------------
// Inspection
// -----------------------------------------------------------------------

// Fields returns the distinct payload fields an expression references, in
// order of first appearance. Both sides of a field comparison are included.
func Fields(node Node) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Comparison:
			add(n.Field)
			if n.IsFieldComparison {
				if name, ok := n.Value.(string); ok {
					add(name)
				}
			}
		case *BinaryOp:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(node)
	return out
}

// Format renders an AST as canonical expression text. Parsing the result
// yields an equivalent tree.
func Format(node Node) string {
	var sb strings.Builder
	writeNode(&sb, node)
	return sb.String()
}

func writeNode(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *Comparison:
		sb.WriteString(n.Field)
		sb.WriteByte(' ')
		sb.WriteString(string(n.Op))
		sb.WriteByte(' ')
		if n.IsFieldComparison {
			fmt.Fprint(sb, n.Value)
		} else {
			sb.WriteString(FormatLiteral(n.Value))
		}
	case *BinaryOp:
		writeOperand(sb, n.Op, n.Left, false)
		sb.WriteByte(' ')
		sb.WriteString(string(n.Op))
		sb.WriteByte(' ')
		writeOperand(sb, n.Op, n.Right, true)
	}
}

// writeOperand parenthesizes a child when dropping the parens would change
// the tree: OR under AND, and any same-operator right child.
func writeOperand(sb *strings.Builder, parent LogicalOperator, child Node, right bool) {
	b, ok := child.(*BinaryOp)
	wrap := ok && ((parent == And && b.Op == Or) || (right && b.Op == parent))
	if wrap {
		sb.WriteByte('(')
	}
	writeNode(sb, child)
	if wrap {
		sb.WriteByte(')')
	}
}

// FormatLiteral renders a literal in expression syntax.
func FormatLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
		return "'" + r.Replace(x) + "'"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	if list, ok := AsList(v); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = FormatLiteral(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}
