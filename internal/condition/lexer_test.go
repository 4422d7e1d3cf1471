package condition

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestTokenize_Kinds(t *testing.T) {
	cases := []struct {
		name string
		expr string
		want []TokenKind
	}{
		{"simple", "age >= 18", []TokenKind{TokField, TokOperator, TokValue, TokEOF}},
		{"and or", "a == 1 and b == 2 OR c == 3", []TokenKind{
			TokField, TokOperator, TokValue, TokAnd,
			TokField, TokOperator, TokValue, TokOr,
			TokField, TokOperator, TokValue, TokEOF,
		}},
		{"parens", "(a == 1)", []TokenKind{TokLParen, TokField, TokOperator, TokValue, TokRParen, TokEOF}},
		{"field to field", "a > b", []TokenKind{TokField, TokOperator, TokField, TokEOF}},
		{"list", "tier in ['gold', 'silver']", []TokenKind{TokField, TokOperator, TokValue, TokEOF}},
		{"empty", "   ", []TokenKind{TokEOF}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Tokenize(tc.expr)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tc.expr, err)
			}
			if got := kinds(tokens); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Tokenize(%q) kinds = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestTokenize_Values(t *testing.T) {
	cases := []struct {
		name string
		expr string
		want any
	}{
		{"int", "x == 42", int64(42)},
		{"negative int", "x == -7", int64(-7)},
		{"float", "x == 3.5", 3.5},
		{"single quoted", "x == 'abc'", "abc"},
		{"double quoted", `x == "abc"`, "abc"},
		{"escaped quote", `x == 'it\'s'`, "it's"},
		{"escaped backslash", `x == 'a\\b'`, `a\b`},
		{"true upper", "x == TRUE", true},
		{"false mixed", "x == False", false},
		{"null", "x == null", nil},
		{"list mixed", "x in ['a', 1, 2.5, true, null, bare]", []any{"a", int64(1), 2.5, true, nil, "bare"}},
		{"empty list", "x in []", []any{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Tokenize(tc.expr)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tc.expr, err)
			}
			if got := tokens[2].Value; !reflect.DeepEqual(got, tc.want) {
				t.Errorf("value = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestTokenize_WordOperatorsInsideFieldNames(t *testing.T) {
	cases := []struct {
		expr  string
		field string
		op    Operator
	}{
		{"income > 5", "income", OpGt},
		{"container contains 'x'", "container", OpContains},
		{"index in [1]", "index", OpIn},
		{"not_index == 1", "not_index", OpEq},
		{"order_id == 1", "order_id", OpEq},
		{"android == true", "android", OpEq},
		{"tags not_contains 'x'", "tags", OpNotContains},
		{"tier not_in ['a']", "tier", OpNotIn},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			tokens, err := Tokenize(tc.expr)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tc.expr, err)
			}
			if tokens[0].Kind != TokField || tokens[0].Value != tc.field {
				t.Errorf("first token = %v %v, want field %q", tokens[0].Kind, tokens[0].Value, tc.field)
			}
			if tokens[1].Kind != TokOperator || tokens[1].Value != tc.op {
				t.Errorf("second token = %v %v, want operator %q", tokens[1].Kind, tokens[1].Value, tc.op)
			}
		})
	}
}

func TestTokenize_Positions(t *testing.T) {
	tokens, err := Tokenize("a == 1 AND b")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 2, 5, 7, 11, 12}
	for i, tok := range tokens {
		if tok.Pos != want[i] {
			t.Errorf("token %d (%v) pos = %d, want %d", i, tok.Kind, tok.Pos, want[i])
		}
	}
}

func TestTokenize_Errors(t *testing.T) {
	cases := []struct {
		name    string
		expr    string
		wantMsg string
		wantPos int
	}{
		{"single equals", "age = 18", "'=='", 4},
		{"unterminated string", "name == 'bob", "Unterminated string", 8},
		{"unterminated list", "x in [1, 2", "Unterminated list", 5},
		{"empty list element", "x in [1, , 2]", "Empty list element", 9},
		{"bad char", "a == 1 & b == 2", "Unexpected character '&'", 7},
		{"bad number", "x == 1.2.3", "Invalid number", 5},
		{"lone minus", "x == -", "Invalid number", 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tokenize(tc.expr)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Tokenize(%q) error = %v, want *SyntaxError", tc.expr, err)
			}
			if !strings.Contains(se.Msg, tc.wantMsg) {
				t.Errorf("message %q does not mention %q", se.Msg, tc.wantMsg)
			}
			if se.Pos != tc.wantPos {
				t.Errorf("pos = %d, want %d", se.Pos, tc.wantPos)
			}
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("errors.Is(err, ErrSyntax) = false")
			}
		})
	}
}

func TestSyntaxError_Context(t *testing.T) {
	_, err := Tokenize("customer_age = 18 AND active == true")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("want *SyntaxError, got %v", err)
	}
	if se.Context != "tomer_age = 18 AND a" {
		t.Errorf("context = %q", se.Context)
	}
	if !strings.Contains(err.Error(), "at position 13") {
		t.Errorf("Error() = %q, want position", err.Error())
	}
}
