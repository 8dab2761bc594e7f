package queryir

import (
	"strings"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
)

func newNode(kind Kind, input *Node) *Node {
	n := &Node{kind: kind, input: input, memo: &columnMemo{}}
	if input != nil {
		n.groupCols = input.groupCols
		n.sortKeys = input.sortKeys
		n.frame = input.frame
	}
	return n
}

func invalidPlan(format string, args ...any) error {
	return lazyerr.New(lazyerr.CodeInvalidPlan, format, args...)
}

// Table creates a root node reading a physical table.
func Table(schema, table string) (*Node, error) {
	if schema != "" {
		if err := dialect.ValidateIdent(schema); err != nil {
			return nil, err
		}
	}
	if err := dialect.ValidateIdent(table); err != nil {
		return nil, err
	}
	n := newNode(KindTable, nil)
	n.schema = schema
	n.table = table
	return n, nil
}

// RawQuery creates a root node selecting expressions with no relational
// source, e.g. RawQuery(version()) for "SELECT version()".
func RawQuery(terms ...ir.Term) (*Node, error) {
	if len(terms) == 0 {
		return nil, invalidPlan("raw query needs at least one expression")
	}
	if err := checkTerms(terms, false); err != nil {
		return nil, err
	}
	n := newNode(KindRawSystemQuery, nil)
	n.terms = copyTerms(terms)
	return n, nil
}

// Select projects, renames or computes columns. Grouping columns and sort
// keys that reference plain renamed columns follow the rename.
func (n *Node) Select(terms ...ir.Term) (*Node, error) {
	if len(terms) == 0 {
		return nil, invalidPlan("select needs at least one term")
	}
	if err := checkTerms(terms, false); err != nil {
		return nil, err
	}
	out := newNode(KindSelect, n)
	out.terms = copyTerms(terms)

	renames := map[string]string{}
	for _, t := range terms {
		if c, ok := t.Expr.(ir.Col); ok {
			renames[c.Name] = t.OutputName()
		}
	}
	groups := make([]string, 0, len(n.groupCols))
	for _, g := range n.groupCols {
		if to, ok := renames[g]; ok {
			groups = append(groups, to)
		} else {
			// Grouping columns are always carried through a selection.
			groups = append(groups, g)
		}
	}
	out.groupCols = groups

	var keys []SortKey
	for _, k := range n.sortKeys {
		c, ok := k.Expr.(ir.Col)
		if !ok {
			continue
		}
		if to, ok := renames[c.Name]; ok {
			keys = append(keys, SortKey{Expr: ir.Col{Name: to}, Desc: k.Desc})
		}
	}
	out.sortKeys = keys
	return out, nil
}

// Filter keeps rows for which every predicate holds.
func (n *Node) Filter(preds ...ir.Expr) (*Node, error) {
	if len(preds) == 0 {
		return nil, invalidPlan("filter needs at least one predicate")
	}
	terms := make([]ir.Term, len(preds))
	for i, p := range preds {
		terms[i] = ir.Unnamed(p)
	}
	if err := checkTerms(terms, false); err != nil {
		return nil, err
	}
	out := newNode(KindFilter, n)
	out.terms = terms
	return out, nil
}

// Mutate adds or replaces columns, keeping all existing ones.
func (n *Node) Mutate(terms ...ir.Term) (*Node, error) {
	if len(terms) == 0 {
		return nil, invalidPlan("mutate needs at least one term")
	}
	if err := checkTerms(terms, true); err != nil {
		return nil, err
	}
	out := newNode(KindMutate, n)
	out.terms = copyTerms(terms)
	return out, nil
}

// Arrange replaces the ordering. desc(expr) sorts descending.
func (n *Node) Arrange(keys ...ir.Expr) (*Node, error) {
	if len(keys) == 0 {
		return nil, invalidPlan("arrange needs at least one key")
	}
	sort := make([]SortKey, 0, len(keys))
	for _, k := range keys {
		if k == nil {
			return nil, invalidPlan("arrange key is nil")
		}
		if call, ok := k.(ir.Call); ok && strings.EqualFold(call.Fn, "desc") && len(call.Args) == 1 {
			sort = append(sort, SortKey{Expr: call.Args[0], Desc: true})
			continue
		}
		sort = append(sort, SortKey{Expr: k})
	}
	out := newNode(KindArrange, n)
	out.sort = sort
	out.sortKeys = sort
	return out, nil
}

// GroupBy replaces the grouping. Grouping alone does not change the SQL; it
// affects later Summarise, windowed Mutate and RemoteInvoke nodes.
func (n *Node) GroupBy(cols ...string) (*Node, error) {
	if len(cols) == 0 {
		return nil, invalidPlan("group_by needs at least one column")
	}
	for _, c := range cols {
		if err := dialect.ValidateIdent(c); err != nil {
			return nil, err
		}
	}
	out := newNode(KindGroupBy, n)
	out.groupCols = append([]string(nil), cols...)
	return out, nil
}

// WindowFrame sets the ROWS frame used by windowed aggregates downstream.
// Offsets are relative to the current row: negative is PRECEDING, positive
// FOLLOWING, and infinities are unbounded. Bounds that do not form a row
// range fail with UNSUPPORTED_FRAME.
func (n *Node) WindowFrame(from, to float64) (*Node, error) {
	frame := dialect.Frame{From: from, To: to}
	if _, err := frame.SQL(); err != nil {
		return nil, err
	}
	out := newNode(KindWindowFrame, n)
	out.frame = &frame
	return out, nil
}

// Ungroup clears the grouping.
func (n *Node) Ungroup() *Node {
	out := newNode(KindUngroup, n)
	out.groupCols = nil
	return out
}

// Summarise aggregates each group to one row. The last grouping column is
// peeled off and the ordering is cleared.
func (n *Node) Summarise(terms ...ir.Term) (*Node, error) {
	if len(terms) == 0 {
		return nil, invalidPlan("summarise needs at least one term")
	}
	if err := checkTerms(terms, false); err != nil {
		return nil, err
	}
	out := newNode(KindSummarise, n)
	out.terms = copyTerms(terms)
	if len(n.groupCols) > 0 {
		out.groupCols = n.groupCols[:len(n.groupCols)-1:len(n.groupCols)-1]
	}
	out.sortKeys = nil
	out.frame = nil
	return out, nil
}

// Distinct removes duplicate rows.
func (n *Node) Distinct() *Node {
	return newNode(KindDistinct, n)
}

// Head keeps the first count rows.
func (n *Node) Head(count int64) (*Node, error) {
	if count < 0 {
		return nil, invalidPlan("head count must be >= 0, got %d", count)
	}
	out := newNode(KindHead, n)
	out.n = count
	return out, nil
}

// Tail keeps the last count rows under the current ordering.
func (n *Node) Tail(count int64) (*Node, error) {
	if count < 0 {
		return nil, invalidPlan("tail count must be >= 0, got %d", count)
	}
	out := newNode(KindTail, n)
	out.n = count
	return out, nil
}

// Join combines n with right on equality of the key pairs.
func (n *Node) Join(right *Node, typ JoinType, keys ...JoinKey) (*Node, error) {
	if right == nil {
		return nil, invalidPlan("join needs a right-hand table")
	}
	switch typ {
	case JoinInner, JoinLeft, JoinRight, JoinFull:
	case "":
		typ = JoinInner
	default:
		return nil, invalidPlan("unsupported join type %q", typ)
	}
	if len(keys) == 0 {
		return nil, invalidPlan("join needs at least one key")
	}
	for _, k := range keys {
		if err := dialect.ValidateIdent(k.Left); err != nil {
			return nil, err
		}
		if err := dialect.ValidateIdent(k.Right); err != nil {
			return nil, err
		}
	}
	out := newNode(KindJoin, n)
	out.join = &joinSpec{right: right, typ: typ, keys: append([]JoinKey(nil), keys...)}
	out.sortKeys = nil
	out.frame = nil
	return out, nil
}

// RemoteInvoke wraps n in a server-side transform invocation. fn is the
// registered function that matched and mask marks the matching term.
// Partition and order context are inherited from n.
func (n *Node) RemoteInvoke(fn string, mask []bool, terms ...ir.Term) (*Node, error) {
	if len(terms) == 0 {
		return nil, invalidPlan("remote invocation needs at least one term")
	}
	if len(mask) != len(terms) {
		return nil, invalidPlan("remote invocation mask has %d entries for %d terms", len(mask), len(terms))
	}
	if err := checkTerms(terms, false); err != nil {
		return nil, err
	}
	out := newNode(KindRemoteInvoke, n)
	out.terms = copyTerms(terms)
	out.remote = &Remote{
		Function:  fn,
		Mask:      append([]bool(nil), mask...),
		Partition: n.GroupColumns(),
		Order:     n.SortKeys(),
		Frame:     n.Frame(),
	}
	out.groupCols = nil
	out.sortKeys = nil
	out.frame = nil
	return out, nil
}

func checkTerms(terms []ir.Term, requireName bool) error {
	for i, t := range terms {
		if t.Expr == nil {
			return invalidPlan("term %d has no expression", i+1)
		}
		if t.Name != "" {
			if err := dialect.ValidateIdent(t.Name); err != nil {
				return err
			}
		}
		if requireName && t.Name == "" {
			if _, ok := t.Expr.(ir.Col); !ok {
				return invalidPlan("term %d (%s) needs a name", i+1, ir.String(t.Expr))
			}
		}
		for _, c := range ir.Columns(t.Expr) {
			if err := dialect.ValidateIdent(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyTerms(terms []ir.Term) []ir.Term {
	return append([]ir.Term(nil), terms...)
}
