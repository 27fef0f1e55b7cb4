// Package cond implements the closed predicate grammar used by conditional
// workflows. Expressions are boolean combinations of comparisons over dotted
// field paths; there is no host-code evaluation, no loops and a single pass
// over the input.
//
//	expr       := or
//	or         := and { "||" and }
//	and        := unary { "&&" unary }
//	unary      := "!" unary | "(" expr ")" | comparison
//	comparison := path op literal | path "contains" literal | path
//	op         := "==" | "!=" | ">" | ">=" | "<" | "<="
//	path       := ident { "." ident }
//	literal    := number | quoted string | true | false
package cond

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a parsed predicate, ready for repeated evaluation.
type Expr struct {
	root node
	src  string
}

// Parse compiles a predicate expression.
func Parse(src string) (*Expr, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("unexpected token %q at end of expression", p.peek().text)
	}
	return &Expr{root: root, src: src}, nil
}

// Eval evaluates the predicate against a view of nested maps. Missing paths
// and type mismatches are errors, not false.
func (e *Expr) Eval(view map[string]any) (bool, error) {
	return e.root.eval(view)
}

// String returns the original expression source.
func (e *Expr) String() string { return e.src }

// Evaluate parses and evaluates in one shot.
func Evaluate(src string, view map[string]any) (bool, error) {
	expr, err := Parse(src)
	if err != nil {
		return false, err
	}
	return expr.Eval(view)
}

// --- lexer ---

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOp     // == != > >= < <= && || ! ( )
	tokBool   // true false
	tokDot    // .
	tokContains
)

type token struct {
	text string
	kind tokenKind
}

func lex(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		ch := runes[i]
		switch {
		case unicode.IsSpace(ch):
			i++
		case ch == '(' || ch == ')':
			tokens = append(tokens, token{text: string(ch), kind: tokOp})
			i++
		case ch == '.':
			tokens = append(tokens, token{text: ".", kind: tokDot})
			i++
		case ch == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{text: "!=", kind: tokOp})
				i += 2
			} else {
				tokens = append(tokens, token{text: "!", kind: tokOp})
				i++
			}
		case ch == '=' || ch == '<' || ch == '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{text: string(ch) + "=", kind: tokOp})
				i += 2
			} else if ch == '=' {
				return nil, fmt.Errorf("single '=' is not an operator (use ==)")
			} else {
				tokens = append(tokens, token{text: string(ch), kind: tokOp})
				i++
			}
		case ch == '&' || ch == '|':
			if i+1 < len(runes) && runes[i+1] == ch {
				tokens = append(tokens, token{text: string(ch) + string(ch), kind: tokOp})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected character %q", ch)
			}
		case ch == '"' || ch == '\'':
			quote := ch
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string literal")
			}
			tokens = append(tokens, token{text: string(runes[i+1 : j]), kind: tokString})
			i = j + 1
		case unicode.IsDigit(ch) || (ch == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{text: string(runes[i:j]), kind: tokNumber})
			i = j
		case unicode.IsLetter(ch) || ch == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			switch word {
			case "true", "false":
				tokens = append(tokens, token{text: word, kind: tokBool})
			case "contains":
				tokens = append(tokens, token{text: word, kind: tokContains})
			default:
				tokens = append(tokens, token{text: word, kind: tokIdent})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", ch)
		}
	}
	return tokens, nil
}

// --- parser ---

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) atEnd() bool    { return p.pos >= len(p.tokens) }
func (p *parser) peek() token    { return p.tokens[p.pos] }
func (p *parser) advance() token { t := p.tokens[p.pos]; p.pos++; return t }

func (p *parser) match(kind tokenKind, text string) bool {
	if p.atEnd() {
		return false
	}
	t := p.peek()
	if t.kind == kind && (text == "" || t.text == text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.match(tokOp, "||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.match(tokOp, "&&") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.match(tokOp, "!") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	}
	if p.match(tokOp, "(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.match(tokOp, ")") {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}

	if p.match(tokContains, "") {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &comparisonNode{path: path, op: "contains", lit: lit}, nil
	}

	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		if p.match(tokOp, op) {
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			return &comparisonNode{path: path, op: op, lit: lit}, nil
		}
	}

	// Bare path: truthiness of a boolean field.
	return &comparisonNode{path: path, op: ""}, nil
}

func (p *parser) parsePath() ([]string, error) {
	if p.atEnd() || p.peek().kind != tokIdent {
		if p.atEnd() {
			return nil, fmt.Errorf("expected a field path, found end of expression")
		}
		return nil, fmt.Errorf("expected a field path, found %q", p.peek().text)
	}
	path := []string{p.advance().text}
	for p.match(tokDot, "") {
		if p.atEnd() || p.peek().kind != tokIdent {
			return nil, fmt.Errorf("expected identifier after '.'")
		}
		path = append(path, p.advance().text)
	}
	return path, nil
}

func (p *parser) parseLiteral() (any, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("expected a literal, found end of expression")
	}
	t := p.advance()
	switch t.kind {
	case tokNumber:
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.text)
		}
		return n, nil
	case tokString:
		return t.text, nil
	case tokBool:
		return t.text == "true", nil
	default:
		return nil, fmt.Errorf("expected a literal, found %q", t.text)
	}
}

// --- AST evaluation ---

type node interface {
	eval(view map[string]any) (bool, error)
}

type binaryNode struct {
	left  node
	right node
	op    string
}

func (n *binaryNode) eval(view map[string]any) (bool, error) {
	left, err := n.left.eval(view)
	if err != nil {
		return false, err
	}
	if n.op == "&&" && !left {
		return false, nil
	}
	if n.op == "||" && left {
		return true, nil
	}
	return n.right.eval(view)
}

type notNode struct {
	inner node
}

func (n *notNode) eval(view map[string]any) (bool, error) {
	v, err := n.inner.eval(view)
	if err != nil {
		return false, err
	}
	return !v, nil
}

type comparisonNode struct {
	lit  any
	op   string
	path []string
}

func (n *comparisonNode) eval(view map[string]any) (bool, error) {
	value, err := resolve(view, n.path)
	if err != nil {
		return false, err
	}

	if n.op == "" {
		b, ok := value.(bool)
		if !ok {
			return false, fmt.Errorf("field %s is not a boolean", strings.Join(n.path, "."))
		}
		return b, nil
	}

	if n.op == "contains" {
		return evalContains(value, n.lit, n.path)
	}

	return evalComparison(value, n.op, n.lit, n.path)
}

func resolve(view map[string]any, path []string) (any, error) {
	var current any = view
	for i, segment := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s is not an object", strings.Join(path[:i], "."))
		}
		current, ok = m[segment]
		if !ok {
			return nil, fmt.Errorf("field %s not found", strings.Join(path[:i+1], "."))
		}
	}
	return current, nil
}

func evalContains(value, lit any, path []string) (bool, error) {
	needle, ok := lit.(string)
	switch haystack := value.(type) {
	case string:
		if !ok {
			return false, fmt.Errorf("contains on a string requires a string literal")
		}
		return strings.Contains(haystack, needle), nil
	case []any:
		for _, item := range haystack {
			if equal(item, lit) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("field %s does not support contains", strings.Join(path, "."))
	}
}

func evalComparison(value any, op string, lit any, path []string) (bool, error) {
	// Numeric comparison when both sides are numbers.
	if litNum, litIsNum := asNumber(lit); litIsNum {
		valNum, valIsNum := asNumber(value)
		if !valIsNum {
			return false, fmt.Errorf("field %s is not a number", strings.Join(path, "."))
		}
		switch op {
		case "==":
			return valNum == litNum, nil
		case "!=":
			return valNum != litNum, nil
		case ">":
			return valNum > litNum, nil
		case ">=":
			return valNum >= litNum, nil
		case "<":
			return valNum < litNum, nil
		case "<=":
			return valNum <= litNum, nil
		}
	}

	// Equality on strings and booleans.
	switch op {
	case "==":
		return equal(value, lit), nil
	case "!=":
		return !equal(value, lit), nil
	default:
		return false, fmt.Errorf("operator %s requires numeric operands", op)
	}
}

func equal(a, b any) bool {
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			return an == bn
		}
		return false
	}
	return a == b
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
