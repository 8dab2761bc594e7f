package dialect

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/lazytbl/internal/lazyerr"
)

// Limit appends a LIMIT clause to sql unless the statement is already
// bounded (head/tail) or n is negative (no limit).
func Limit(sql string, n int64, bounded bool) string {
	if bounded || n < 0 {
		return sql
	}
	return sql + " LIMIT " + strconv.FormatInt(n, 10)
}

// Frame is a numeric ROWS frame. Negative offsets are PRECEDING, positive
// FOLLOWING, zero CURRENT ROW, and -Inf/+Inf unbounded.
type Frame struct {
	From float64
	To   float64
}

// CumulativeFrame is ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW.
var CumulativeFrame = Frame{From: math.Inf(-1), To: 0}

// SQL renders the frame as "ROWS BETWEEN <from> AND <to>".
// Fails with UnsupportedFrame when the bounds do not form a row range.
func (f Frame) SQL() (string, error) {
	if f.From > f.To || math.IsInf(f.From, 1) || math.IsInf(f.To, -1) {
		return "", lazyerr.New(lazyerr.CodeUnsupportedFrame,
			"frame [%v, %v] does not map to a row range", f.From, f.To)
	}
	from, err := frameBound(f.From)
	if err != nil {
		return "", err
	}
	to, err := frameBound(f.To)
	if err != nil {
		return "", err
	}
	return "ROWS BETWEEN " + from + " AND " + to, nil
}

func frameBound(v float64) (string, error) {
	switch {
	case math.IsNaN(v) || (!math.IsInf(v, 0) && v != math.Trunc(v)):
		return "", lazyerr.New(lazyerr.CodeUnsupportedFrame, "frame bound %v is not a whole row offset", v)
	case math.IsInf(v, -1):
		return "UNBOUNDED PRECEDING", nil
	case math.IsInf(v, 1):
		return "UNBOUNDED FOLLOWING", nil
	case v < 0:
		return strconv.FormatInt(int64(-v), 10) + " PRECEDING", nil
	case v > 0:
		return strconv.FormatInt(int64(v), 10) + " FOLLOWING", nil
	default:
		return "CURRENT ROW", nil
	}
}

// Over renders "<expr> OVER (PARTITION BY ... ORDER BY ... ROWS ...)".
//
// partition and order are already-rendered SQL fragments. Each clause whose
// input is empty is left out entirely, so no inputs yield "<expr> OVER ()".
// Multi-element lists are parenthesized only when parens is true.
func Over(expr string, partition, order []string, frame *Frame, parens bool) (string, error) {
	var clauses []string
	if len(partition) > 0 {
		clauses = append(clauses, "PARTITION BY "+list(partition, parens))
	}
	if len(order) > 0 {
		clauses = append(clauses, "ORDER BY "+list(order, parens))
	}
	if frame != nil {
		rows, err := frame.SQL()
		if err != nil {
			return "", err
		}
		clauses = append(clauses, rows)
	}
	return expr + " OVER (" + strings.Join(clauses, " ") + ")", nil
}

func list(items []string, parens bool) string {
	joined := strings.Join(items, ", ")
	if parens && len(items) > 1 {
		return "(" + joined + ")"
	}
	return joined
}
