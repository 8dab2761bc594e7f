package querysql

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
	"github.com/roach88/lazytbl/internal/queryir"
)

// Catalog is what lowering needs to learn from the server: column names of
// an intermediate node and, for tail without ordering, its row count.
type Catalog interface {
	queryir.ColumnProbe
	CountRows(ctx context.Context, n *queryir.Node) (int64, error)
}

// Compiler lowers operation graphs to SQL for one dialect context.
type Compiler struct {
	dialect dialect.Context
	catalog Catalog
	logger  *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for lowered SQL (Debug level).
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// NewCompiler creates a Compiler. catalog may be nil when the graphs being
// lowered never need a column probe or row count.
func NewCompiler(d dialect.Context, catalog Catalog, opts ...Option) *Compiler {
	c := &Compiler{dialect: d, catalog: catalog, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lower is shorthand for NewCompiler(d, catalog).Lower(ctx, n).
func Lower(ctx context.Context, n *queryir.Node, d dialect.Context, catalog Catalog) (string, error) {
	return NewCompiler(d, catalog).Lower(ctx, n)
}

// Lower renders the chain ending at n as one SQL statement. Nested
// subqueries are aliased "q01", "q02", ... in the order they are produced.
func (c *Compiler) Lower(ctx context.Context, n *queryir.Node) (string, error) {
	if err := queryir.Validate(n); err != nil {
		return "", err
	}
	l := &lowering{Compiler: c, ctx: ctx}
	q, err := l.lower(n)
	if err != nil {
		return "", fmt.Errorf("lower %s: %w", n.Kind(), err)
	}
	sql := q.sql(true)
	c.logger.Debug("lowered query", "kind", n.Kind().String(), "sql", sql)
	return sql, nil
}

// lowering is the per-statement state: the alias counter.
type lowering struct {
	*Compiler
	ctx     context.Context
	aliases int
}

func (l *lowering) nextAlias() string {
	l.aliases++
	return dialect.QuoteIdent(fmt.Sprintf("q%02d", l.aliases))
}

func (l *lowering) lower(n *queryir.Node) (*selectQuery, error) {
	switch n.Kind() {
	case queryir.KindTable:
		schema, table := n.TableName()
		q := newQuery(l.dialect.QuoteTable(schema, table))
		q.table = true
		return q, nil
	case queryir.KindRawSystemQuery:
		return l.lowerRaw(n)
	case queryir.KindRemoteInvoke:
		return l.lowerRemote(n)
	case queryir.KindJoin:
		return l.lowerJoin(n)
	}

	in, err := l.lower(n.Input())
	if err != nil {
		return nil, err
	}

	switch n.Kind() {
	case queryir.KindGroupBy, queryir.KindUngroup, queryir.KindWindowFrame:
		return in, nil
	case queryir.KindFilter:
		return l.lowerFilter(n, in)
	case queryir.KindSelect:
		return l.lowerSelect(n, in)
	case queryir.KindMutate:
		return l.lowerMutate(n, in)
	case queryir.KindArrange:
		return l.lowerArrange(n, in)
	case queryir.KindSummarise:
		return l.lowerSummarise(n, in)
	case queryir.KindDistinct:
		return l.lowerDistinct(n, in)
	case queryir.KindHead:
		return l.lowerHead(n, in)
	case queryir.KindTail:
		return l.lowerTail(n, in)
	default:
		return nil, lazyerr.New(lazyerr.CodeInvalidPlan, "cannot lower %s", n.Kind())
	}
}

// wrap turns q into a subquery and starts a new query over it. The new
// query re-applies the ordering the wrapped node carries.
func (l *lowering) wrap(q *selectQuery, keys []queryir.SortKey) (*selectQuery, error) {
	out := newQuery("(" + q.subquerySQL() + ") AS " + l.nextAlias())
	order, err := l.orderFragments(keys, false)
	if err != nil {
		return nil, err
	}
	out.orderBy = order
	return out, nil
}

// orderFragments renders sort keys, flipping each direction when reverse.
func (l *lowering) orderFragments(keys []queryir.SortKey, reverse bool) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		sql, err := l.dialect.Translate(k.Expr, dialect.Scope{})
		if err != nil {
			return nil, fmt.Errorf("order key %s: %w", ir.String(k.Expr), err)
		}
		if k.Desc != reverse {
			sql += " DESC"
		}
		out = append(out, sql)
	}
	return out, nil
}

// windowScope builds the window context a node inherits from its input.
func (l *lowering) windowScope(in *queryir.Node, cols []string) (dialect.Scope, error) {
	order, err := l.orderFragments(in.SortKeys(), false)
	if err != nil {
		return dialect.Scope{}, err
	}
	return dialect.Scope{
		Columns:   cols,
		Window:    true,
		Partition: dialect.QuoteIdents(in.GroupColumns()),
		Order:     order,
		Frame:     in.Frame(),
	}, nil
}

// knownColumns returns the input's columns when they were already probed,
// so references can be checked without a round trip.
func knownColumns(n *queryir.Node) []string {
	cols, ok := n.KnownColumns()
	if !ok {
		return nil
	}
	return cols
}

func (l *lowering) columns(n *queryir.Node) ([]string, error) {
	if l.catalog == nil {
		return nil, lazyerr.New(lazyerr.CodeInvalidPlan, "%s needs the columns of its input but no catalog is available", n.Kind())
	}
	cols, err := n.Columns(l.ctx, l.catalog)
	if err != nil {
		return nil, fmt.Errorf("probe columns of %s: %w", n.Kind(), err)
	}
	return cols, nil
}

func (l *lowering) translateTerms(terms []ir.Term, s dialect.Scope) ([]string, error) {
	out := make([]string, len(terms))
	for i, t := range terms {
		sql, err := l.dialect.TranslateTerm(t, s)
		if err != nil {
			return nil, fmt.Errorf("term %s: %w", t.OutputName(), err)
		}
		out[i] = sql
	}
	return out, nil
}

func (l *lowering) lowerRaw(n *queryir.Node) (*selectQuery, error) {
	selects, err := l.translateTerms(n.Terms(), dialect.Scope{Columns: []string{}})
	if err != nil {
		return nil, err
	}
	q := newQuery("")
	q.selects = selects
	return q, nil
}

func (l *lowering) lowerFilter(n *queryir.Node, q *selectQuery) (*selectQuery, error) {
	in := n.Input()
	if q.sealed || q.projected() || q.distinct || q.bounded() || len(q.groupBy) > 0 {
		var err error
		if q, err = l.wrap(q, in.SortKeys()); err != nil {
			return nil, err
		}
	}
	s := dialect.Scope{Columns: knownColumns(in)}
	for _, t := range n.Terms() {
		sql, err := l.dialect.Translate(t.Expr, s)
		if err != nil {
			return nil, fmt.Errorf("predicate %s: %w", ir.String(t.Expr), err)
		}
		if _, ok := t.Expr.(ir.BinaryOp); ok && len(n.Terms()) > 1 {
			sql = "(" + sql + ")"
		}
		q.where = append(q.where, sql)
	}
	return q, nil
}

func (l *lowering) lowerSelect(n *queryir.Node, q *selectQuery) (*selectQuery, error) {
	in := n.Input()
	if q.sealed || q.projected() || q.distinct || q.bounded() || len(q.groupBy) > 0 {
		var err error
		if q, err = l.wrap(q, in.SortKeys()); err != nil {
			return nil, err
		}
	}
	s, err := l.windowScope(in, knownColumns(in))
	if err != nil {
		return nil, err
	}
	terms := n.Terms()

	// Grouping columns the selection leaves out are carried through.
	named := map[string]bool{}
	for _, t := range terms {
		if c, ok := t.Expr.(ir.Col); ok {
			named[c.Name] = true
		}
	}
	var carried []string
	for _, g := range in.GroupColumns() {
		if !named[g] {
			carried = append(carried, dialect.QuoteIdent(g))
		}
	}

	selects, err := l.translateTerms(terms, s)
	if err != nil {
		return nil, err
	}
	q.selects = append(carried, selects...)
	q.table = false
	return q, nil
}

func (l *lowering) lowerMutate(n *queryir.Node, q *selectQuery) (*selectQuery, error) {
	in := n.Input()
	cols, err := l.columns(in)
	if err != nil {
		return nil, err
	}
	if q.sealed || q.projected() || q.distinct || q.bounded() || len(q.groupBy) > 0 {
		if q, err = l.wrap(q, in.SortKeys()); err != nil {
			return nil, err
		}
	}

	layer := newMutateLayer(cols)
	for _, t := range n.Terms() {
		name := t.OutputName()
		if layer.dependsOnNew(t.Expr) {
			// A term reading a column defined earlier in the same call
			// must see it materialized: close this layer first.
			q.selects = layer.selects()
			q.table = false
			if q, err = l.wrap(q, in.SortKeys()); err != nil {
				return nil, err
			}
			layer = newMutateLayer(layer.cols)
		}
		s, err := l.windowScope(in, layer.cols)
		if err != nil {
			return nil, err
		}
		sql, err := l.dialect.Translate(t.Expr, s)
		if err != nil {
			return nil, fmt.Errorf("term %s: %w", name, err)
		}
		layer.set(name, sql)
	}
	q.selects = layer.selects()
	q.table = false
	return q, nil
}

// mutateLayer is one SELECT list of a mutate: the input columns in order,
// with replaced and appended columns.
type mutateLayer struct {
	cols    []string
	exprs   map[string]string
	defined map[string]bool
}

func newMutateLayer(cols []string) *mutateLayer {
	return &mutateLayer{
		cols:    append([]string(nil), cols...),
		exprs:   map[string]string{},
		defined: map[string]bool{},
	}
}

func (m *mutateLayer) dependsOnNew(e ir.Expr) bool {
	for _, c := range ir.Columns(e) {
		if m.defined[c] {
			return true
		}
	}
	return false
}

func (m *mutateLayer) set(name, sql string) {
	if !slices.Contains(m.cols, name) {
		m.cols = append(m.cols, name)
	}
	m.defined[name] = true
	m.exprs[name] = sql
}

func (m *mutateLayer) selects() []string {
	out := make([]string, len(m.cols))
	for i, c := range m.cols {
		quoted := dialect.QuoteIdent(c)
		if sql, ok := m.exprs[c]; ok && sql != quoted {
			out[i] = sql + " AS " + quoted
		} else {
			out[i] = quoted
		}
	}
	return out
}

func (l *lowering) lowerArrange(n *queryir.Node, q *selectQuery) (*selectQuery, error) {
	in := n.Input()
	keys := n.Order()
	// ORDER BY under SELECT DISTINCT may only name selected expressions.
	needsWrap := q.sealed || q.bounded() || (q.distinct && q.projected())
	if q.projected() {
		for _, k := range keys {
			if _, ok := k.Expr.(ir.Col); !ok {
				needsWrap = true
			}
		}
	}
	if needsWrap {
		var err error
		if q, err = l.wrap(q, in.SortKeys()); err != nil {
			return nil, err
		}
	}
	order, err := l.orderFragments(keys, false)
	if err != nil {
		return nil, err
	}
	q.orderBy = order
	return q, nil
}

func (l *lowering) lowerSummarise(n *queryir.Node, q *selectQuery) (*selectQuery, error) {
	in := n.Input()
	if q.sealed || q.projected() || q.distinct || q.bounded() || len(q.groupBy) > 0 {
		var err error
		if q, err = l.wrap(q, in.SortKeys()); err != nil {
			return nil, err
		}
	}
	groups := dialect.QuoteIdents(in.GroupColumns())
	aggs, err := l.translateTerms(n.Terms(), dialect.Scope{Columns: knownColumns(in)})
	if err != nil {
		return nil, err
	}
	q.selects = append(append([]string(nil), groups...), aggs...)
	q.groupBy = groups
	q.orderBy = nil
	q.table = false
	return q, nil
}

func (l *lowering) lowerDistinct(n *queryir.Node, q *selectQuery) (*selectQuery, error) {
	if q.sealed || q.bounded() {
		var err error
		if q, err = l.wrap(q, n.Input().SortKeys()); err != nil {
			return nil, err
		}
	}
	q.distinct = true
	q.table = false
	return q, nil
}

func (l *lowering) lowerHead(n *queryir.Node, q *selectQuery) (*selectQuery, error) {
	if q.sealed {
		var err error
		if q, err = l.wrap(q, n.Input().SortKeys()); err != nil {
			return nil, err
		}
	}
	if q.limit < 0 || n.N() < q.limit {
		q.limit = n.N()
	}
	q.table = false
	return q, nil
}

// lowerTail keeps the last rows. With an ordering it flips every key, takes
// the first rows and restores the order outside; without one it needs the
// input's row count to compute an offset.
func (l *lowering) lowerTail(n *queryir.Node, q *selectQuery) (*selectQuery, error) {
	in := n.Input()
	keys := in.SortKeys()
	var err error
	if q.sealed || q.bounded() {
		if q, err = l.wrap(q, keys); err != nil {
			return nil, err
		}
	}
	q.table = false

	if len(keys) > 0 {
		if q.orderBy, err = l.orderFragments(keys, true); err != nil {
			return nil, err
		}
		q.limit = n.N()
		return l.wrap(q, keys)
	}

	if l.catalog == nil {
		return nil, lazyerr.New(lazyerr.CodeInvalidPlan, "tail without arrange needs a row count but no catalog is available")
	}
	total, err := l.catalog.CountRows(l.ctx, in)
	if err != nil {
		return nil, fmt.Errorf("count rows for tail: %w", err)
	}
	q.limit = n.N()
	if total > n.N() {
		q.offset = total - n.N()
	}
	return q, nil
}

// lowerRemote renders a server-side transform invocation. The input is
// always a subquery; the matched term gets an OVER clause built from the
// inherited partition and order when either is present. Only the other
// windowed terms take the inherited frame.
func (l *lowering) lowerRemote(n *queryir.Node) (*selectQuery, error) {
	in := n.Input()
	inner, err := l.lower(in)
	if err != nil {
		return nil, err
	}
	cols, err := l.columns(in)
	if err != nil {
		return nil, err
	}
	remote := n.Remote()
	partition := dialect.QuoteIdents(remote.Partition)
	order, err := l.orderFragments(remote.Order, false)
	if err != nil {
		return nil, err
	}
	window := dialect.Scope{Columns: cols, Window: true, Partition: partition, Order: order, Frame: remote.Frame}

	terms := n.Terms()
	selects := make([]string, len(terms))
	for i, t := range terms {
		if !remote.Mask[i] {
			if selects[i], err = l.dialect.TranslateTerm(t, window); err != nil {
				return nil, fmt.Errorf("term %s: %w", t.OutputName(), err)
			}
			continue
		}
		sql, err := l.dialect.Translate(t.Expr, dialect.Scope{Columns: cols})
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", remote.Function, err)
		}
		if len(partition) > 0 || len(order) > 0 {
			if sql, err = dialect.Over(sql, partition, order, nil, false); err != nil {
				return nil, err
			}
		}
		if t.Name != "" {
			sql += " AS " + dialect.QuoteIdent(t.Name)
		}
		selects[i] = sql
	}

	q := newQuery("(" + inner.subquerySQL() + ") AS " + l.nextAlias())
	q.selects = selects
	q.sealed = true
	return q, nil
}

var joinKeywords = map[queryir.JoinType]string{
	queryir.JoinInner: "INNER JOIN",
	queryir.JoinLeft:  "LEFT JOIN",
	queryir.JoinRight: "RIGHT JOIN",
	queryir.JoinFull:  "FULL JOIN",
}

// lowerJoin joins the input with the right-hand node. Key columns appear
// once under the left name; other clashing names get _x and _y suffixes.
func (l *lowering) lowerJoin(n *queryir.Node) (*selectQuery, error) {
	right, typ, keys := n.JoinSpec()
	left := n.Input()

	lq, err := l.lower(left)
	if err != nil {
		return nil, err
	}
	rq, err := l.lower(right)
	if err != nil {
		return nil, err
	}
	leftCols, err := l.columns(left)
	if err != nil {
		return nil, err
	}
	rightCols, err := l.columns(right)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if !slices.Contains(leftCols, k.Left) {
			return nil, lazyerr.New(lazyerr.CodeInvalidPlan, "join key %q is not a column of the left table", k.Left)
		}
		if !slices.Contains(rightCols, k.Right) {
			return nil, lazyerr.New(lazyerr.CodeInvalidPlan, "join key %q is not a column of the right table", k.Right)
		}
	}

	la, ra := l.nextAlias(), l.nextAlias()
	from := joinSource(lq, la) + " " + joinKeywords[typ] + " " + joinSource(rq, ra) + " ON "
	rightKeyOf := map[string]string{}
	rightKeys := map[string]bool{}
	for i, k := range keys {
		if i > 0 {
			from += " AND "
		}
		from += la + "." + dialect.QuoteIdent(k.Left) + " = " + ra + "." + dialect.QuoteIdent(k.Right)
		rightKeyOf[k.Left] = k.Right
		rightKeys[k.Right] = true
	}

	rightOther := map[string]bool{}
	for _, c := range rightCols {
		if !rightKeys[c] {
			rightOther[c] = true
		}
	}
	leftSet := map[string]bool{}
	for _, c := range leftCols {
		leftSet[c] = true
	}

	var selects []string
	for _, c := range leftCols {
		lref := la + "." + dialect.QuoteIdent(c)
		if rk, ok := rightKeyOf[c]; ok {
			rref := ra + "." + dialect.QuoteIdent(rk)
			switch typ {
			case queryir.JoinRight:
				lref = rref
			case queryir.JoinFull:
				lref = "COALESCE(" + lref + ", " + rref + ")"
			}
			selects = append(selects, lref+" AS "+dialect.QuoteIdent(c))
			continue
		}
		name := c
		if rightOther[c] {
			name = c + "_x"
		}
		selects = append(selects, lref+" AS "+dialect.QuoteIdent(name))
	}
	for _, c := range rightCols {
		if rightKeys[c] {
			continue
		}
		name := c
		if leftSet[c] {
			name = c + "_y"
		}
		selects = append(selects, ra+"."+dialect.QuoteIdent(c)+" AS "+dialect.QuoteIdent(name))
	}

	q := newQuery(from)
	q.selects = selects
	return q, nil
}

// joinSource references a bare physical table directly and wraps anything
// else as a subquery.
func joinSource(q *selectQuery, alias string) string {
	if q.bare() {
		return q.from + " AS " + alias
	}
	return "(" + q.subquerySQL() + ") AS " + alias
}
