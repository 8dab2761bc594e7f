package ir

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokAssign
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexer tokenizes expression source text.
type lexer struct {
	input []rune
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: []rune(input)}
}

// tokens scans the whole input.
func (l *lexer) tokens() ([]token, error) {
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

func (l *lexer) peek(offset int) rune {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: start}, nil
	}

	ch := l.input[l.pos]
	switch {
	case ch == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ch == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case ch == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case ch == '\'' || ch == '"':
		s, err := l.readString(ch)
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, pos: start}, nil
	case ch == '`':
		s, err := l.readString('`')
		if err != nil {
			return token{}, err
		}
		return token{kind: tokIdent, text: s, pos: start}, nil
	case unicode.IsDigit(ch) || (ch == '.' && unicode.IsDigit(l.peek(1))):
		return token{kind: tokNumber, text: l.readNumber(), pos: start}, nil
	case unicode.IsLetter(ch) || ch == '_' || ch == '.':
		return token{kind: tokIdent, text: l.readIdent(), pos: start}, nil
	}

	two := string(ch) + string(l.peek(1))
	switch two {
	case "==", "!=", "<=", ">=", "&&", "||":
		l.pos += 2
		return token{kind: tokOp, text: two, pos: start}, nil
	}

	switch ch {
	case '=':
		l.pos++
		return token{kind: tokAssign, text: "=", pos: start}, nil
	case '+', '-', '*', '/', '%', '<', '>', '&', '|', '!':
		l.pos++
		return token{kind: tokOp, text: string(ch), pos: start}, nil
	}

	return token{}, fmt.Errorf("unexpected character %q at offset %d", ch, start)
}

func (l *lexer) readIdent() string {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if !(unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.') {
			break
		}
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func (l *lexer) readNumber() string {
	start := l.pos
	seenDot := false
	seenExp := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case unicode.IsDigit(ch):
		case ch == '.' && !seenDot && !seenExp:
			seenDot = true
		case (ch == 'e' || ch == 'E') && !seenExp:
			seenExp = true
			if n := l.peek(1); n == '+' || n == '-' {
				l.pos++
			}
		default:
			return string(l.input[start:l.pos])
		}
		l.pos++
	}
	return string(l.input[start:l.pos])
}

// readString reads a quoted string. A doubled quote or a backslash escape
// yields a literal quote character.
func (l *lexer) readString(quote rune) (string, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\\' && l.pos+1 < len(l.input):
			l.pos++
			switch esc := l.input[l.pos]; esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(esc)
			}
		case ch == quote && l.peek(1) == quote:
			sb.WriteRune(quote)
			l.pos++
		case ch == quote:
			l.pos++
			return sb.String(), nil
		default:
			sb.WriteRune(ch)
		}
		l.pos++
	}
	return "", fmt.Errorf("unterminated string starting at offset %d", start)
}
