package engine

import (
	"context"

	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
	"github.com/roach88/lazytbl/internal/queryir"
	"github.com/roach88/lazytbl/internal/transport"
)

// Tbl is a lazy table: an operation graph bound to the connection it will
// run on. Every method returns a new Tbl and leaves the receiver usable.
type Tbl struct {
	conn *Conn
	node *queryir.Node
}

// Node returns the operation graph.
func (t *Tbl) Node() *queryir.Node {
	return t.node
}

// Conn returns the connection the table runs on.
func (t *Tbl) Conn() *Conn {
	return t.conn
}

func (t *Tbl) next(n *queryir.Node, err error) (*Tbl, error) {
	if err != nil {
		return nil, err
	}
	return t.conn.wrap(n), nil
}

// Select projects terms. When exactly one term invokes a registered
// transform the selection becomes a remote invocation carrying the
// table's grouping and ordering; more than one fails with
// AMBIGUOUS_TRANSFORM_INVOCATION. This asks the server for its transform
// list.
func (t *Tbl) Select(ctx context.Context, terms ...ir.Term) (*Tbl, error) {
	return t.next(t.conn.resolver.Select(ctx, t.node, terms...))
}

// Filter keeps rows matching every predicate.
func (t *Tbl) Filter(preds ...ir.Expr) (*Tbl, error) {
	return t.next(t.node.Filter(preds...))
}

// Mutate adds or replaces columns.
func (t *Tbl) Mutate(terms ...ir.Term) (*Tbl, error) {
	return t.next(t.node.Mutate(terms...))
}

// Arrange orders rows; wrap a key in desc() to sort descending.
func (t *Tbl) Arrange(keys ...ir.Expr) (*Tbl, error) {
	return t.next(t.node.Arrange(keys...))
}

// GroupBy sets the grouping.
func (t *Tbl) GroupBy(cols ...string) (*Tbl, error) {
	return t.next(t.node.GroupBy(cols...))
}

// WindowFrame sets the ROWS frame for windowed aggregates that follow.
// See queryir.Node.WindowFrame for the bounds.
func (t *Tbl) WindowFrame(from, to float64) (*Tbl, error) {
	return t.next(t.node.WindowFrame(from, to))
}

// Ungroup clears the grouping.
func (t *Tbl) Ungroup() *Tbl {
	return t.conn.wrap(t.node.Ungroup())
}

// Summarise aggregates each group to one row.
func (t *Tbl) Summarise(terms ...ir.Term) (*Tbl, error) {
	return t.next(t.node.Summarise(terms...))
}

// Distinct removes duplicate rows.
func (t *Tbl) Distinct() *Tbl {
	return t.conn.wrap(t.node.Distinct())
}

// Head keeps the first n rows.
func (t *Tbl) Head(n int64) (*Tbl, error) {
	return t.next(t.node.Head(n))
}

// Tail keeps the last n rows.
func (t *Tbl) Tail(n int64) (*Tbl, error) {
	return t.next(t.node.Tail(n))
}

// Join joins right, which must come from the same connection.
func (t *Tbl) Join(right *Tbl, typ queryir.JoinType, keys ...queryir.JoinKey) (*Tbl, error) {
	if right == nil || right.conn != t.conn {
		return nil, lazyerr.New(lazyerr.CodeInvalidPlan, "join tables must share a connection")
	}
	return t.next(t.node.Join(right.node, typ, keys...))
}

// SQL lowers the table without running it.
func (t *Tbl) SQL(ctx context.Context) (string, error) {
	return t.conn.Lower(ctx, t)
}

// Columns returns the output columns.
func (t *Tbl) Columns(ctx context.Context) ([]string, error) {
	return t.conn.Columns(ctx, t)
}

// Collect materializes the table; see Conn.Collect.
func (t *Tbl) Collect(ctx context.Context, rowLimit int64) (*transport.Result, error) {
	return t.conn.Collect(ctx, t, rowLimit)
}
