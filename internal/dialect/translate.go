package dialect

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
)

// Scope is the environment an expression is lowered against.
type Scope struct {
	// Columns are the input relation's column names. When non-nil, column
	// references outside this list are rejected.
	Columns []string

	// Window enables window context: aggregates and window functions are
	// rendered with an OVER clause built from Partition and Order.
	Window bool

	// Partition holds rendered PARTITION BY fragments.
	Partition []string

	// Order holds rendered ORDER BY fragments.
	Order []string

	// Frame, when set, turns windowed aggregates into moving aggregates
	// over Order. Ranking and cumulative functions ignore it.
	Frame *Frame
}

type funcClass int

const (
	classScalar funcClass = iota
	classAggregate
	classRanking    // requires ORDER BY inside OVER
	classCumulative // aggregate over a cumulative frame
)

type funcDef struct {
	sql   string
	class funcClass
}

// functions maps lower-cased portable function names to their SQL spelling.
// Functions not listed pass through unchanged.
var functions = map[string]funcDef{
	"abs":     {"ABS", classScalar},
	"round":   {"ROUND", classScalar},
	"floor":   {"FLOOR", classScalar},
	"ceiling": {"CEILING", classScalar},
	"ceil":    {"CEILING", classScalar},
	"sqrt":    {"SQRT", classScalar},
	"exp":     {"EXP", classScalar},
	"log":     {"LN", classScalar},
	"log10":   {"LOG", classScalar},
	"tolower": {"LOWER", classScalar},
	"toupper": {"UPPER", classScalar},
	"nchar":   {"LENGTH", classScalar},
	"trimws":  {"BTRIM", classScalar},

	"coalesce": {"COALESCE", classScalar},

	"sum":   {"SUM", classAggregate},
	"mean":  {"AVG", classAggregate},
	"min":   {"MIN", classAggregate},
	"max":   {"MAX", classAggregate},
	"count": {"COUNT", classAggregate},
	"sd":    {"STDDEV_SAMP", classAggregate},
	"var":   {"VAR_SAMP", classAggregate},

	"row_number":   {"ROW_NUMBER", classRanking},
	"rank":         {"RANK", classRanking},
	"min_rank":     {"RANK", classRanking},
	"dense_rank":   {"DENSE_RANK", classRanking},
	"percent_rank": {"PERCENT_RANK", classRanking},
	"cume_dist":    {"CUME_DIST", classRanking},
	"lag":          {"LAG", classRanking},
	"lead":         {"LEAD", classRanking},
	"first_value":  {"FIRST_VALUE", classRanking},
	"last_value":   {"LAST_VALUE", classRanking},

	"cumsum":  {"SUM", classCumulative},
	"cummean": {"AVG", classCumulative},
	"cummin":  {"MIN", classCumulative},
	"cummax":  {"MAX", classCumulative},
}

var binaryOps = map[string]string{
	"+": "+", "-": "-", "*": "*", "/": "/", "%": "%",
	"==": "=", "!=": "<>", "<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"&": "AND", "&&": "AND", "|": "OR", "||": "OR",
}

// IsAggregate reports whether fn is a known aggregate function.
func IsAggregate(fn string) bool {
	def, ok := functions[strings.ToLower(fn)]
	return ok && def.class == classAggregate
}

// IsWindow reports whether fn needs an OVER clause to be valid SQL.
func IsWindow(fn string) bool {
	def, ok := functions[strings.ToLower(fn)]
	return ok && (def.class == classRanking || def.class == classCumulative)
}

// Literal renders a literal value. Strings are single-quoted with embedded
// quotes doubled.
func Literal(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRNull:
		return "NULL"
	case ir.IRString:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10)
	case ir.IRFloat:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case ir.IRBool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return "NULL"
	}
}

// TranslateTerm lowers a term to a select-list item. Named terms whose name
// differs from a bare column reference get an AS alias.
func (c Context) TranslateTerm(t ir.Term, s Scope) (string, error) {
	sql, err := c.Translate(t.Expr, s)
	if err != nil {
		return "", err
	}
	if t.Name == "" {
		return sql, nil
	}
	if col, ok := t.Expr.(ir.Col); ok && col.Name == t.Name {
		return sql, nil
	}
	return sql + " AS " + QuoteIdent(t.Name), nil
}

// Translate lowers an expression to SQL.
func (c Context) Translate(e ir.Expr, s Scope) (string, error) {
	switch ex := e.(type) {
	case ir.Col:
		if s.Columns != nil && !slices.Contains(s.Columns, ex.Name) {
			return "", lazyerr.New(lazyerr.CodeInvalidPlan, "unknown column %q (have %s)", ex.Name, strings.Join(s.Columns, ", "))
		}
		return QuoteIdent(ex.Name), nil
	case ir.Lit:
		return Literal(ex.Value), nil
	case ir.UnaryOp:
		operand, err := c.operand(ex.Operand, s)
		if err != nil {
			return "", err
		}
		if ex.Op == "!" {
			return "NOT " + operand, nil
		}
		return ex.Op + operand, nil
	case ir.BinaryOp:
		op, ok := binaryOps[ex.Op]
		if !ok {
			return "", lazyerr.New(lazyerr.CodeInvalidPlan, "unsupported operator %q", ex.Op)
		}
		left, err := c.operand(ex.Left, s)
		if err != nil {
			return "", err
		}
		right, err := c.operand(ex.Right, s)
		if err != nil {
			return "", err
		}
		return left + " " + op + " " + right, nil
	case ir.Call:
		return c.translateCall(ex, s)
	case nil:
		return "", lazyerr.New(lazyerr.CodeInvalidPlan, "nil expression")
	default:
		return "", lazyerr.New(lazyerr.CodeInvalidPlan, "unsupported expression %T", e)
	}
}

// operand translates e, parenthesizing binary operations.
func (c Context) operand(e ir.Expr, s Scope) (string, error) {
	sql, err := c.Translate(e, s)
	if err != nil {
		return "", err
	}
	if _, ok := e.(ir.BinaryOp); ok {
		return "(" + sql + ")", nil
	}
	return sql, nil
}

func (c Context) args(args []ir.Expr, s Scope) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		sql, err := c.Translate(a, s)
		if err != nil {
			return nil, err
		}
		out[i] = sql
	}
	return out, nil
}

func (c Context) translateCall(call ir.Call, s Scope) (string, error) {
	name := strings.ToLower(call.Fn)

	if sql, ok, err := c.translateSpecial(name, call, s); ok || err != nil {
		return sql, err
	}

	args, err := c.args(call.Args, s)
	if err != nil {
		return "", err
	}

	def, known := functions[name]
	if !known {
		return call.Fn + "(" + strings.Join(args, ", ") + ")", nil
	}
	sql := def.sql + "(" + strings.Join(args, ", ") + ")"

	switch def.class {
	case classAggregate:
		if !s.Window {
			return sql, nil
		}
		return windowAggregate(sql, s)
	case classRanking:
		if !s.Window {
			return Over(sql, nil, nil, nil, false)
		}
		return Over(sql, s.Partition, s.Order, nil, false)
	case classCumulative:
		if len(s.Order) == 0 {
			return "", lazyerr.New(lazyerr.CodeInvalidPlan, "%s requires an ordering (arrange before mutate)", call.Fn)
		}
		frame := CumulativeFrame
		return Over(sql, s.Partition, s.Order, &frame, false)
	default:
		return sql, nil
	}
}

// windowAggregate renders an aggregate in window context: over the whole
// partition, or over the scope's frame within the ordering.
func windowAggregate(sql string, s Scope) (string, error) {
	if s.Frame == nil {
		return Over(sql, s.Partition, nil, nil, false)
	}
	if len(s.Order) == 0 {
		return "", lazyerr.New(lazyerr.CodeUnsupportedFrame, "window frame on %s requires an ordering (arrange first)", sql)
	}
	return Over(sql, s.Partition, s.Order, s.Frame, false)
}

// translateSpecial handles functions whose SQL is not a plain call.
func (c Context) translateSpecial(name string, call ir.Call, s Scope) (string, bool, error) {
	switch name {
	case "n":
		if len(call.Args) != 0 {
			return "", true, arityError(call, 0)
		}
		if s.Window {
			sql, err := windowAggregate("COUNT(*)", s)
			return sql, true, err
		}
		return "COUNT(*)", true, nil

	case "n_distinct":
		args, err := c.args(call.Args, s)
		if err != nil {
			return "", true, err
		}
		return "COUNT(DISTINCT " + strings.Join(args, ", ") + ")", true, nil

	case "desc":
		if len(call.Args) != 1 {
			return "", true, arityError(call, 1)
		}
		sql, err := c.operand(call.Args[0], s)
		return sql + " DESC", true, err

	case "is_null", "is.na":
		if len(call.Args) != 1 {
			return "", true, arityError(call, 1)
		}
		sql, err := c.operand(call.Args[0], s)
		return "(" + sql + " IS NULL)", true, err

	case "ifelse", "if_else":
		if len(call.Args) != 3 {
			return "", true, arityError(call, 3)
		}
		args, err := c.args(call.Args, s)
		if err != nil {
			return "", true, err
		}
		return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", args[0], args[1], args[2]), true, nil

	case "between":
		if len(call.Args) != 3 {
			return "", true, arityError(call, 3)
		}
		args, err := c.args(call.Args, s)
		if err != nil {
			return "", true, err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", args[0], args[1], args[2]), true, nil

	case "ntile":
		// ntile(order_col, n): the first argument orders the buckets.
		if len(call.Args) != 2 {
			return "", true, arityError(call, 2)
		}
		orderBy, err := c.Translate(call.Args[0], s)
		if err != nil {
			return "", true, err
		}
		buckets, err := c.Translate(call.Args[1], s)
		if err != nil {
			return "", true, err
		}
		sql, err := Over("NTILE("+buckets+")", s.Partition, []string{orderBy}, nil, false)
		return sql, true, err

	case "as_integer", "as.integer":
		return c.cast(call, "INTEGER", s)
	case "as_numeric", "as.numeric", "as_double", "as.double":
		return c.cast(call, "FLOAT", s)
	case "as_character", "as.character":
		return c.cast(call, "VARCHAR", s)

	case "paste0", "paste":
		args, err := c.args(call.Args, s)
		if err != nil {
			return "", true, err
		}
		if len(args) == 0 {
			return "''", true, nil
		}
		sep := " || "
		if name == "paste" {
			sep = " || ' ' || "
		}
		return "(" + strings.Join(args, sep) + ")", true, nil

	case "substr":
		if len(call.Args) != 3 {
			return "", true, arityError(call, 3)
		}
		args, err := c.args(call.Args, s)
		if err != nil {
			return "", true, err
		}
		start, okStart := intLiteral(call.Args[1])
		stop, okStop := intLiteral(call.Args[2])
		if okStart && okStop {
			length := stop - start + 1
			if length < 0 {
				length = 0
			}
			return fmt.Sprintf("SUBSTR(%s, %d, %d)", args[0], start, length), true, nil
		}
		return fmt.Sprintf("SUBSTR(%s, %s, (%s) - (%s) + 1)", args[0], args[1], args[2], args[1]), true, nil
	}
	return "", false, nil
}

func (c Context) cast(call ir.Call, typ string, s Scope) (string, bool, error) {
	if len(call.Args) != 1 {
		return "", true, arityError(call, 1)
	}
	arg, err := c.Translate(call.Args[0], s)
	if err != nil {
		return "", true, err
	}
	return "CAST(" + arg + " AS " + typ + ")", true, nil
}

func intLiteral(e ir.Expr) (int64, bool) {
	lit, ok := e.(ir.Lit)
	if !ok {
		return 0, false
	}
	n, ok := lit.Value.(ir.IRInt)
	return int64(n), ok
}

func arityError(call ir.Call, want int) error {
	return lazyerr.New(lazyerr.CodeInvalidPlan, "%s expects %d argument(s), got %d", call.Fn, want, len(call.Args))
}
