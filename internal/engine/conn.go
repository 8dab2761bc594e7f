package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cast"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
	"github.com/roach88/lazytbl/internal/queryir"
	"github.com/roach88/lazytbl/internal/querysql"
	"github.com/roach88/lazytbl/internal/remotefn"
	"github.com/roach88/lazytbl/internal/transport"
)

// Conn is a connection to one server: a transport plus its dialect context.
type Conn struct {
	transport transport.Transport
	dialect   dialect.Context
	compiler  *querysql.Compiler
	resolver  *remotefn.Resolver
	cache     *remotefn.CachedRegistry
	names     NameGenerator
	logger    *slog.Logger

	cacheFunctions bool
	matcher        remotefn.Matcher
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger shared by the connection's components.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) {
		c.logger = l
	}
}

// WithFunctionCache enables the per-session function registry cache. The
// registry is then listed once and reused until InvalidateFunctions.
func WithFunctionCache(enabled bool) Option {
	return func(c *Conn) {
		c.cacheFunctions = enabled
	}
}

// WithMatcher replaces the loose containment match used to detect remote
// transform invocations.
func WithMatcher(m remotefn.Matcher) Option {
	return func(c *Conn) {
		c.matcher = m
	}
}

// WithNameGenerator sets the generator for unnamed computed tables.
func WithNameGenerator(g NameGenerator) Option {
	return func(c *Conn) {
		c.names = g
	}
}

// New creates a Conn over an open transport. An empty schema means the
// server default.
func New(t transport.Transport, schema string, opts ...Option) *Conn {
	c := &Conn{
		transport: t,
		dialect:   dialect.New(t.Kind(), schema),
		names:     UUIDv7Generator{},
		logger:    slog.Default(),
		matcher:   remotefn.MatchContains,
	}
	for _, opt := range opts {
		opt(c)
	}

	var registry remotefn.Registry = remotefn.RegistryFunc(c.listFunctions)
	if c.cacheFunctions {
		c.cache = remotefn.NewCachedRegistry(registry)
		registry = c.cache
	}
	c.resolver = remotefn.NewResolver(registry,
		remotefn.WithMatcher(c.matcher),
		remotefn.WithLogger(c.logger))
	c.compiler = querysql.NewCompiler(c.dialect, c, querysql.WithLogger(c.logger))
	return c
}

// Connect opens a transport from cfg and wraps it in a Conn.
func Connect(ctx context.Context, cfg transport.Config, schema string, opts ...Option) (*Conn, error) {
	t, err := transport.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(t, schema, opts...), nil
}

// Close closes the transport.
func (c *Conn) Close() error {
	return c.transport.Close()
}

// Dialect returns the connection's dialect context.
func (c *Conn) Dialect() dialect.Context {
	return c.dialect
}

// Transport returns the underlying transport.
func (c *Conn) Transport() transport.Transport {
	return c.transport
}

// InvalidateFunctions clears the function registry cache. It is a no-op
// when the cache is disabled.
func (c *Conn) InvalidateFunctions() {
	if c.cache != nil {
		c.cache.Invalidate()
	}
}

// Table starts a lazy table over a physical table. name may be
// schema-qualified ("schema.table", quoted segments allowed).
func (c *Conn) Table(name string) (*Tbl, error) {
	schema, table, err := dialect.ParseQualified(name)
	if err != nil {
		return nil, err
	}
	n, err := queryir.Table(schema, table)
	if err != nil {
		return nil, err
	}
	return c.wrap(n), nil
}

// Query starts a lazy table selecting expressions with no relational
// source, e.g. Query(ir.MustParseTerm("version()")).
func (c *Conn) Query(terms ...ir.Term) (*Tbl, error) {
	n, err := queryir.RawQuery(terms...)
	if err != nil {
		return nil, err
	}
	return c.wrap(n), nil
}

// From wraps an existing graph node built elsewhere.
func (c *Conn) From(n *queryir.Node) *Tbl {
	return c.wrap(n)
}

func (c *Conn) wrap(n *queryir.Node) *Tbl {
	return &Tbl{conn: c, node: n}
}

// Lower renders a lazy table to SQL without executing it.
func (c *Conn) Lower(ctx context.Context, t *Tbl) (string, error) {
	if t.conn != c {
		return "", lazyerr.New(lazyerr.CodeInvalidPlan, "table belongs to another connection")
	}
	return c.compiler.Lower(ctx, t.node)
}

// Collect materializes t. A non-negative rowLimit appends LIMIT unless the
// plan already bounds its rows (head, tail); the result is also truncated
// client side. A negative rowLimit returns every row.
func (c *Conn) Collect(ctx context.Context, t *Tbl, rowLimit int64) (*transport.Result, error) {
	sql, err := c.Lower(ctx, t)
	if err != nil {
		return nil, err
	}
	sql = dialect.Limit(sql, rowLimit, t.node.Bounded())
	res, err := c.transport.Execute(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	res.Truncate(rowLimit)
	return res, nil
}

// ProbeColumns discovers the output columns of n with a zero-row query.
// It implements queryir.ColumnProbe; use Tbl.Columns for the memoized form.
func (c *Conn) ProbeColumns(ctx context.Context, n *queryir.Node) ([]string, error) {
	sql, err := c.compiler.Lower(ctx, n)
	if err != nil {
		return nil, err
	}
	res, err := c.transport.Execute(ctx, querysql.ProbeQuery(sql))
	if err != nil {
		return nil, fmt.Errorf("field probe: %w", err)
	}
	return res.Columns, nil
}

// CountRows counts the rows n returns.
func (c *Conn) CountRows(ctx context.Context, n *queryir.Node) (int64, error) {
	sql, err := c.compiler.Lower(ctx, n)
	if err != nil {
		return 0, err
	}
	v, err := c.transport.QueryScalar(ctx, querysql.CountQuery(sql))
	if err != nil {
		return 0, fmt.Errorf("row count: %w", err)
	}
	count, err := cast.ToInt64E(v)
	if err != nil {
		return 0, lazyerr.Wrap(lazyerr.CodeQueryExecution, err, "row count returned %v", v)
	}
	return count, nil
}

// Columns returns t's output columns, probing at most once per node.
func (c *Conn) Columns(ctx context.Context, t *Tbl) ([]string, error) {
	return t.node.Columns(ctx, c)
}

// RowCount returns the number of rows t would produce.
func (c *Conn) RowCount(ctx context.Context, t *Tbl) (int64, error) {
	return c.CountRows(ctx, t.node)
}
