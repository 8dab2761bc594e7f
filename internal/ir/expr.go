package ir

import (
	"strings"
)

// Expr is an unevaluated scalar, aggregate or window expression.
//
// This is a sealed interface - only types in this package implement it.
// Expressions are captured when a relational operation is called and are
// lowered to SQL exactly once, against the column names of the operation's
// input as reported by the database.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Col references a column of the input relation.
type Col struct {
	Name string
}

func (Col) exprNode() {}

// Lit is a literal value.
type Lit struct {
	Value IRValue
}

func (Lit) exprNode() {}

// Call is a function call. Fn keeps the spelling the caller used; the
// dialect decides how (and whether) to translate it.
type Call struct {
	Fn   string
	Args []Expr
}

func (Call) exprNode() {}

// BinaryOp is an infix operation. Op is one of
// + - * / % == != < <= > >= & && | ||.
type BinaryOp struct {
	Op    string
	Left  Expr
	Right Expr
}

func (BinaryOp) exprNode() {}

// UnaryOp is a prefix operation. Op is "-" or "!".
type UnaryOp struct {
	Op      string
	Operand Expr
}

func (UnaryOp) exprNode() {}

// Term is one element of an operation's argument list: an expression and
// the output name it binds to. Name is empty for unnamed terms.
type Term struct {
	Name string
	Expr Expr
}

// Named builds a named term.
func Named(name string, e Expr) Term {
	return Term{Name: name, Expr: e}
}

// Unnamed builds a term without an explicit output name.
func Unnamed(e Expr) Term {
	return Term{Expr: e}
}

// OutputName returns the column name the term produces: the explicit name,
// the column name for bare column references, or the expression source text.
func (t Term) OutputName() string {
	if t.Name != "" {
		return t.Name
	}
	if c, ok := t.Expr.(Col); ok {
		return c.Name
	}
	return String(t.Expr)
}

// Arity returns the length of the expression viewed as a call: the head
// symbol plus its arguments. Columns and literals have arity 1.
func Arity(e Expr) int {
	switch ex := e.(type) {
	case Call:
		return 1 + len(ex.Args)
	case BinaryOp:
		return 3
	case UnaryOp:
		return 2
	default:
		return 1
	}
}

// Columns returns the column names referenced by e, in first-seen order.
func Columns(e Expr) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch ex := e.(type) {
		case Col:
			if !seen[ex.Name] {
				seen[ex.Name] = true
				out = append(out, ex.Name)
			}
		case Call:
			for _, a := range ex.Args {
				walk(a)
			}
		case BinaryOp:
			walk(ex.Left)
			walk(ex.Right)
		case UnaryOp:
			walk(ex.Operand)
		}
	}
	walk(e)
	return out
}

// String renders e in expression source form, e.g. "normalize(x)" or "x + 1".
func String(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch ex := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case Col:
		sb.WriteString(ex.Name)
	case Lit:
		sb.WriteString(Text(ex.Value))
	case Call:
		sb.WriteString(ex.Fn)
		sb.WriteByte('(')
		for i, a := range ex.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, a)
		}
		sb.WriteByte(')')
	case BinaryOp:
		writeOperand(sb, ex.Left)
		sb.WriteByte(' ')
		sb.WriteString(ex.Op)
		sb.WriteByte(' ')
		writeOperand(sb, ex.Right)
	case UnaryOp:
		sb.WriteString(ex.Op)
		writeOperand(sb, ex.Operand)
	}
}

func writeOperand(sb *strings.Builder, e Expr) {
	if _, ok := e.(BinaryOp); ok {
		sb.WriteByte('(')
		writeExpr(sb, e)
		sb.WriteByte(')')
		return
	}
	writeExpr(sb, e)
}
