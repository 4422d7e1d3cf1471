package condition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// -----------------------------------------------------------------------
// Tokens
// -----------------------------------------------------------------------

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokField    TokenKind = iota // identifier
	TokOperator                  // ==, !=, >=, <=, >, <, contains, not_contains, in, not_in
	TokValue                     // string, number, bool, null or list literal
	TokAnd
	TokOr
	TokLParen
	TokRParen
	TokEOF
)

var tokenKindNames = [...]string{
	TokField:    "field",
	TokOperator: "operator",
	TokValue:    "value",
	TokAnd:      "AND",
	TokOr:       "OR",
	TokLParen:   "(",
	TokRParen:   ")",
	TokEOF:      "end of expression",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexical unit. Value holds the field name, operator
// symbol or literal (string, int64, float64, bool, nil or []any).
type Token struct {
	Kind  TokenKind
	Value any
	Pos   int
}

// operatorCandidates are tried in order at each position; longer operators
// come before their prefixes.
var operatorCandidates = []Operator{OpNotContains, OpNotIn, OpEq, OpNeq, OpGte, OpLte, OpContains, OpIn}

// -----------------------------------------------------------------------
// Tokenizer
// -----------------------------------------------------------------------

type lexer struct {
	src string
	pos int
}

// Tokenize splits an expression into tokens terminated by a TokEOF token.
// Errors are *SyntaxError.
func Tokenize(src string) ([]Token, error) {
	l := &lexer{src: src}
	var tokens []Token
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			break
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return append(tokens, Token{Kind: TokEOF, Pos: l.pos}), nil
}

func (l *lexer) next() (Token, error) {
	start := l.pos
	ch := l.src[l.pos]

	switch ch {
	case '(':
		l.pos++
		return Token{Kind: TokLParen, Value: "(", Pos: start}, nil
	case ')':
		l.pos++
		return Token{Kind: TokRParen, Value: ")", Pos: start}, nil
	}

	word := l.peekWord()
	switch strings.ToUpper(word) {
	case "AND":
		l.pos += len(word)
		return Token{Kind: TokAnd, Value: "AND", Pos: start}, nil
	case "OR":
		l.pos += len(word)
		return Token{Kind: TokOr, Value: "OR", Pos: start}, nil
	}

	op, err := l.readOperator()
	if err != nil {
		return Token{}, err
	}
	if op != "" {
		return Token{Kind: TokOperator, Value: op, Pos: start}, nil
	}

	switch {
	case ch == '"' || ch == '\'':
		s, err := l.readString()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokValue, Value: s, Pos: start}, nil
	case ch == '[':
		list, err := l.readList()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokValue, Value: list, Pos: start}, nil
	case isDigit(ch) || ch == '-':
		n, err := l.readNumber()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokValue, Value: n, Pos: start}, nil
	}

	if v, ok := keywordLiteral(word); ok {
		l.pos += len(word)
		return Token{Kind: TokValue, Value: v, Pos: start}, nil
	}

	if word == "" {
		r, _ := utf8.DecodeRuneInString(l.src[start:])
		return Token{}, newSyntaxError(l.src, start, "Unexpected character '%c'", r)
	}
	l.pos += len(word)
	return Token{Kind: TokField, Value: word, Pos: start}, nil
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

// peekWord returns the identifier run at the current position without
// consuming it.
func (l *lexer) peekWord() string {
	end := l.pos
	for end < len(l.src) && isIdent(l.src[end]) {
		end++
	}
	return l.src[l.pos:end]
}

// readOperator consumes an operator if one starts at the current position.
// It returns "" when none does.
func (l *lexer) readOperator() (Operator, error) {
	rest := l.src[l.pos:]
	for _, op := range operatorCandidates {
		if !strings.HasPrefix(rest, string(op)) {
			continue
		}
		// A word operator followed by an identifier char is the start of a
		// field name such as "income" or "container".
		if op.isWord() && len(rest) > len(op) && isIdent(rest[len(op)]) {
			continue
		}
		l.pos += len(op)
		return op, nil
	}
	switch rest[0] {
	case '=':
		return "", newSyntaxError(l.src, l.pos, "Single '=' operator. Use '==' for equality comparison")
	case '>':
		l.pos++
		return OpGt, nil
	case '<':
		l.pos++
		return OpLt, nil
	}
	return "", nil
}

func (l *lexer) readString() (string, error) {
	start := l.pos
	quote := l.src[l.pos]
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == quote:
			l.pos++
			return sb.String(), nil
		case ch == '\\' && l.pos+1 < len(l.src):
			sb.WriteByte(l.src[l.pos+1])
			l.pos += 2
		default:
			sb.WriteByte(ch)
			l.pos++
		}
	}
	return "", newSyntaxError(l.src, start, "Unterminated string literal")
}

func (l *lexer) readList() ([]any, error) {
	start := l.pos
	l.pos++ // '['
	values := []any{}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			return nil, newSyntaxError(l.src, start, "Unterminated list literal, expected ']'")
		}
		ch := l.src[l.pos]
		if ch == ']' {
			l.pos++
			return values, nil
		}

		var (
			v   any
			err error
		)
		switch {
		case ch == '"' || ch == '\'':
			v, err = l.readString()
		case isDigit(ch) || ch == '-':
			v, err = l.readNumber()
		default:
			v, err = l.readBareElement()
		}
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		l.skipSpace()
		if l.pos < len(l.src) && l.src[l.pos] == ',' {
			l.pos++
		}
	}
}

// readBareElement reads an unquoted list element up to the next ',' or ']'.
func (l *lexer) readBareElement() (any, error) {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != ',' && l.src[l.pos] != ']' {
		l.pos++
	}
	raw := strings.TrimSpace(l.src[start:l.pos])
	if raw == "" {
		return nil, newSyntaxError(l.src, start, "Empty list element")
	}
	if v, ok := keywordLiteral(raw); ok {
		return v, nil
	}
	return raw, nil
}

func (l *lexer) readNumber() (any, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	text := l.src[start:l.pos]
	if strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, newSyntaxError(l.src, start, "Invalid number %q", text)
		}
		return f, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, newSyntaxError(l.src, start, "Invalid number %q", text)
	}
	return n, nil
}

// keywordLiteral maps true/false/null (any case) to their values.
func keywordLiteral(word string) (any, bool) {
	switch strings.ToLower(word) {
	case "true":
		return true, true
	case "false":
		return false, true
	case "null":
		return nil, true
	}
	return nil, false
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdent(ch byte) bool {
	return ch == '_' || isDigit(ch) || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
