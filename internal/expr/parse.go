package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbsmedya/goxplore/internal/aggregate"
	"github.com/dbsmedya/goxplore/internal/metadata"
)

// Parse recovers an Expr from its textual form. It fails if a
// sub-expression does not start with '(', if an atomic form is
// unrecognized, or if AND and OR appear as direct siblings without
// explicit nesting.
func Parse(s string) (Expr, error) {
	p := &parser{s: s}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if p.i != len(p.s) {
		return nil, fmt.Errorf("expr: trailing input after expression: %q", p.s[p.i:])
	}
	return e, nil
}

type parser struct {
	s string
	i int
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func (p *parser) skipWS() {
	for p.i < len(p.s) && isSpace(p.s[p.i]) {
		p.i++
	}
}

func (p *parser) expect(c byte) error {
	p.skipWS()
	if p.i >= len(p.s) || p.s[p.i] != c {
		return fmt.Errorf("expr: expected %q at position %d", c, p.i)
	}
	p.i++
	return nil
}

func (p *parser) readWord() (string, error) {
	p.skipWS()
	start := p.i
	for p.i < len(p.s) {
		c := p.s[p.i]
		if isSpace(c) || c == '(' || c == ')' || c == ',' || c == '[' || c == ']' {
			break
		}
		p.i++
	}
	if p.i == start {
		return "", fmt.Errorf("expr: expected a token at position %d", p.i)
	}
	return p.s[start:p.i], nil
}

func (p *parser) readQuoted() (string, error) {
	p.skipWS()
	if p.i >= len(p.s) || p.s[p.i] != '"' {
		return "", fmt.Errorf("expr: expected quoted literal at position %d", p.i)
	}
	p.i++
	var sb strings.Builder
	for p.i < len(p.s) && p.s[p.i] != '"' {
		if p.s[p.i] == '\\' && p.i+1 < len(p.s) {
			p.i++
		}
		sb.WriteByte(p.s[p.i])
		p.i++
	}
	if p.i >= len(p.s) {
		return "", fmt.Errorf("expr: unterminated quoted literal")
	}
	p.i++ // closing quote
	return sb.String(), nil
}

func (p *parser) expectWord(want string) error {
	word, err := p.readWord()
	if err != nil {
		return err
	}
	if word != want {
		return fmt.Errorf("expr: expected %q, got %q at position %d", want, word, p.i)
	}
	return nil
}

// parseExpr parses a single parenthesized expression node.
func (p *parser) parseExpr() (Expr, error) {
	if err := p.expect('('); err != nil {
		return nil, fmt.Errorf("expr: sub-expression must start with '(': %w", err)
	}
	p.skipWS()
	if p.i < len(p.s) && p.s[p.i] == '(' {
		// The outer '(' belonged to the AND/OR expression itself; what
		// follows is its first parenthesized operand.
		return p.parseComposite()
	}

	kw, err := p.readWord()
	if err != nil {
		return nil, err
	}
	switch kw {
	case "TRUE":
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return AlwaysTrue{}, nil
	case "NOT":
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	case "VARIABLE":
		return p.parseVariableAtom()
	case "AGGREGATE":
		return p.parseAggregateAtom()
	default:
		return nil, fmt.Errorf("expr: unrecognized expression form starting with %q", kw)
	}
}

// parseComposite parses the body of an AND/OR expression: the opening
// '(' of the whole expression has already been consumed by parseExpr;
// what remains is a sequence of parenthesized operands interleaved with
// a single, consistent AND or OR keyword, followed by the closing ')'.
func (p *parser) parseComposite() (Expr, error) {
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	exprs := []Expr{first}
	var kind string
	for {
		p.skipWS()
		if p.i < len(p.s) && p.s[p.i] == ')' {
			p.i++
			break
		}
		w, err := p.readWord()
		if err != nil {
			return nil, fmt.Errorf("expr: expected AND, OR, or ')': %w", err)
		}
		if w != "AND" && w != "OR" {
			return nil, fmt.Errorf("expr: unexpected token %q, expected AND or OR", w)
		}
		if kind == "" {
			kind = w
		} else if kind != w {
			return nil, fmt.Errorf("expr: AND and OR must not appear as direct siblings without explicit nesting")
		}
		next, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
	if len(exprs) < 2 {
		return nil, fmt.Errorf("expr: AND/OR requires at least 2 operands")
	}
	if kind == "AND" {
		return &And{Exprs: exprs}, nil
	}
	return &Or{Exprs: exprs}, nil
}

func (p *parser) parseVariableAtom() (Expr, error) {
	variable, err := p.readWord()
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("OF"); err != nil {
		return nil, err
	}
	if err := p.expectWord("TYPE"); err != nil {
		return nil, err
	}
	dtTok, err := p.readWord()
	if err != nil {
		return nil, err
	}
	dt, err := metadata.ParseDataType(dtTok)
	if err != nil {
		return nil, fmt.Errorf("expr: %w", err)
	}
	if err := p.expectWord("IN"); err != nil {
		return nil, err
	}
	if err := p.expectWord("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.readWord()
	if err != nil {
		return nil, err
	}
	opTok, err := p.readWord()
	if err != nil {
		return nil, err
	}
	if opTok == "IN" {
		if err := p.expect('['); err != nil {
			return nil, err
		}
		values, err := p.parseList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &InListAtom{Table: table, Variable: variable, DataType: dt, Values: values}, nil
	}
	op, ok := parseOp(opTok)
	if !ok {
		return nil, fmt.Errorf("expr: unrecognized operator %q", opTok)
	}
	if op.IsStringOp() {
		lit, err := p.readQuoted()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &StringAtom{Table: table, Variable: variable, DataType: dt, Value: lit, Op: op}, nil
	}
	numTok, err := p.readWord()
	if err != nil {
		return nil, err
	}
	val, err := strconv.ParseFloat(numTok, 64)
	if err != nil {
		return nil, fmt.Errorf("expr: invalid numeric literal %q", numTok)
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return &MetricAtom{Table: table, Variable: variable, DataType: dt, Value: val, Op: op}, nil
}

func (p *parser) parseList() ([]string, error) {
	var out []string
	p.skipWS()
	if p.i < len(p.s) && p.s[p.i] == ']' {
		p.i++
		return out, nil
	}
	for {
		p.skipWS()
		var tok string
		var err error
		if p.i < len(p.s) && p.s[p.i] == '"' {
			tok, err = p.readQuoted()
		} else {
			tok, err = p.readWord()
		}
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		p.skipWS()
		if p.i < len(p.s) && p.s[p.i] == ',' {
			p.i++
			continue
		}
		if p.i < len(p.s) && p.s[p.i] == ']' {
			p.i++
			break
		}
		return nil, fmt.Errorf("expr: expected ',' or ']' in list at position %d", p.i)
	}
	return out, nil
}

func (p *parser) parseAggregateAtom() (Expr, error) {
	aggTok, err := p.readWord()
	if err != nil {
		return nil, err
	}
	agg, err := aggregate.Parse(aggTok)
	if err != nil {
		return nil, fmt.Errorf("expr: %w", err)
	}
	if err := p.expectWord("VARIABLE"); err != nil {
		return nil, err
	}
	variable, err := p.readWord()
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("OF"); err != nil {
		return nil, err
	}
	if err := p.expectWord("TYPE"); err != nil {
		return nil, err
	}
	dtTok, err := p.readWord()
	if err != nil {
		return nil, err
	}
	dt, err := metadata.ParseDataType(dtTok)
	if err != nil {
		return nil, fmt.Errorf("expr: %w", err)
	}
	if err := p.expectWord("IN"); err != nil {
		return nil, err
	}
	if err := p.expectWord("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.readWord()
	if err != nil {
		return nil, err
	}
	opTok, err := p.readWord()
	if err != nil {
		return nil, err
	}
	op, ok := parseOp(opTok)
	if !ok {
		return nil, fmt.Errorf("expr: unrecognized operator %q", opTok)
	}
	atom := &AggregateAtom{Table: table, Variable: variable, SourceDataType: dt, Aggregator: agg, Op: op}
	if op.IsStringOp() {
		lit, err := p.readQuoted()
		if err != nil {
			return nil, err
		}
		atom.StringValue = lit
	} else {
		numTok, err := p.readWord()
		if err != nil {
			return nil, err
		}
		val, err := strconv.ParseFloat(numTok, 64)
		if err != nil {
			return nil, fmt.Errorf("expr: invalid numeric literal %q", numTok)
		}
		atom.NumericValue = val
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return atom, nil
}
