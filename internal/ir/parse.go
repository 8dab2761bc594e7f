package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseExpr parses expression source text such as "normalize(x)",
// "amount * 2 > 10 & region != 'EU'" or "desc(ts)".
//
// Bare identifiers are column references, except TRUE, FALSE, NULL and NA
// (case-insensitive), which are literals.
func ParseExpr(src string) (Expr, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	if p.cur().kind != tokEOF {
		return nil, fmt.Errorf("parse %q: unexpected %q at offset %d", src, p.cur().text, p.cur().pos)
	}
	return e, nil
}

// ParseTerm parses "name = expr" or a bare "expr".
func ParseTerm(src string) (Term, error) {
	p, err := newParser(src)
	if err != nil {
		return Term{}, err
	}

	var name string
	if p.cur().kind == tokIdent && p.peek().kind == tokAssign {
		name = p.cur().text
		p.advance()
		p.advance()
	}

	e, err := p.parseOr()
	if err != nil {
		return Term{}, fmt.Errorf("parse %q: %w", src, err)
	}
	if p.cur().kind != tokEOF {
		return Term{}, fmt.Errorf("parse %q: unexpected %q at offset %d", src, p.cur().text, p.cur().pos)
	}
	return Term{Name: name, Expr: e}, nil
}

// MustParseTerm is like ParseTerm but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseTerm(src string) Term {
	t, err := ParseTerm(src)
	if err != nil {
		panic(err)
	}
	return t
}

// MustParseExpr is like ParseExpr but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseExpr(src string) Expr {
	e, err := ParseExpr(src)
	if err != nil {
		panic(err)
	}
	return e
}

const maxDepth = 200

type parser struct {
	toks  []token
	pos   int
	depth int
}

func newParser(src string) (*parser, error) {
	toks, err := newLexer(src).tokens()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	return &parser{toks: toks}, nil
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) peek() token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *parser) isOp(ops ...string) bool {
	t := p.cur()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

// binary parses a left-associative chain of ops over next.
func (p *parser) binary(next func() (Expr, error), ops ...string) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.isOp(ops...) {
		op := p.cur().text
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseOr() (Expr, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, fmt.Errorf("expression nested deeper than %d", maxDepth)
	}
	return p.binary(p.parseAnd, "|", "||")
}

func (p *parser) parseAnd() (Expr, error) {
	return p.binary(p.parseNot, "&", "&&")
}

func (p *parser) parseNot() (Expr, error) {
	if p.isOp("!") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return UnaryOp{Op: "!", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	return p.binary(p.parseAdditive, "==", "!=", "<", "<=", ">", ">=")
}

func (p *parser) parseAdditive() (Expr, error) {
	return p.binary(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (Expr, error) {
	return p.binary(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseUnary() (Expr, error) {
	if p.isOp("-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold negative numeric literals.
		if lit, ok := operand.(Lit); ok {
			switch v := lit.Value.(type) {
			case IRInt:
				return Lit{Value: -v}, nil
			case IRFloat:
				return Lit{Value: -v}, nil
			}
		}
		return UnaryOp{Op: "-", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		return parseNumber(t.text)
	case tokString:
		p.advance()
		return Lit{Value: IRString(t.text)}, nil
	case tokLParen:
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at offset %d", p.cur().pos)
		}
		p.advance()
		return e, nil
	case tokIdent:
		p.advance()
		if p.cur().kind == tokLParen {
			return p.parseCall(t.text)
		}
		switch strings.ToUpper(t.text) {
		case "TRUE":
			return Lit{Value: IRBool(true)}, nil
		case "FALSE":
			return Lit{Value: IRBool(false)}, nil
		case "NULL", "NA":
			return Lit{Value: IRNull{}}, nil
		}
		return Col{Name: t.text}, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.pos)
	}
}

func (p *parser) parseCall(fn string) (Expr, error) {
	p.advance() // (
	call := Call{Fn: fn}
	if p.cur().kind == tokRParen {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		switch p.cur().kind {
		case tokComma:
			p.advance()
		case tokRParen:
			p.advance()
			return call, nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' in call to %s at offset %d", fn, p.cur().pos)
		}
	}
}

func parseNumber(text string) (Expr, error) {
	if !strings.ContainsAny(text, ".eE") {
		n, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return Lit{Value: IRInt(n)}, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", text)
	}
	return Lit{Value: IRFloat(f)}, nil
}
