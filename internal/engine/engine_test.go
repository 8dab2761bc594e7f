package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
	"github.com/roach88/lazytbl/internal/queryir"
	"github.com/roach88/lazytbl/internal/store"
	"github.com/roach88/lazytbl/internal/testutil"
	"github.com/roach88/lazytbl/internal/transport"
)

// newSandboxConn opens an in-memory sandbox with a normalize transform and
// a small words table.
func newSandboxConn(t *testing.T, opts ...Option) (*Conn, *store.Store) {
	t.Helper()
	s, err := store.Open("", store.WithTransform("normalize", strings.ToLower))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	conn := New(s.Transport(), "", opts...)
	ctx := context.Background()
	require.NoError(t, conn.Transport().Exec(ctx, `CREATE TABLE "words" ("id" INTEGER, "x" TEXT, "grp" TEXT)`))
	require.NoError(t, conn.CopyRows(ctx, "words", []string{"id", "x", "grp"}, [][]any{
		{1, "Alpha", "a"},
		{2, "BETA", "a"},
		{3, "Gamma", "b"},
		{4, "it's", "b"},
		{5, "Delta", "b"},
	}))
	return conn, s
}

func term(src string) ir.Term { return ir.MustParseTerm(src) }
func expr(src string) ir.Expr { return ir.MustParseExpr(src) }

func TestSelect_RemoteTransformEndToEnd(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	sel, err := tbl.Select(ctx, term("transform_col = normalize(x)"))
	require.NoError(t, err)
	assert.Equal(t, queryir.KindRemoteInvoke, sel.Node().Kind())

	sql, err := sel.SQL(ctx)
	require.NoError(t, err)
	assert.Equal(t, `SELECT normalize("x") AS "transform_col" FROM (SELECT * FROM "words") AS "q01"`, sql)

	res, err := sel.Collect(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"transform_col"}, res.Columns)
	assert.Equal(t, [][]any{{"alpha"}, {"beta"}, {"gamma"}, {"it's"}, {"delta"}}, res.Rows)
}

func TestSelect_NoMatchFallsThrough(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	sel, err := tbl.Select(ctx, term("up = toupper(x)"))
	require.NoError(t, err)
	assert.Equal(t, queryir.KindSelect, sel.Node().Kind())

	res, err := sel.Collect(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"ALPHA"}, {"BETA"}}, res.Rows)
}

func TestSelect_Ambiguous(t *testing.T) {
	conn, s := newSandboxConn(t)
	ctx := context.Background()
	require.NoError(t, s.RegisterFunction(ctx, "ENCODE", store.ProcedureTransform))

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	_, err = tbl.Select(ctx, term("a = normalize(x)"), term("b = encode(x)"))
	assert.True(t, lazyerr.IsAmbiguousTransform(err))
}

func TestCollect_PipelineAgainstSandbox(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	g, err := tbl.GroupBy("grp")
	require.NoError(t, err)
	sum, err := g.Summarise(term("n = n()"), term("top = max(id)"))
	require.NoError(t, err)
	sorted, err := sum.Arrange(expr("grp"))
	require.NoError(t, err)

	res, err := sorted.Collect(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"grp", "n", "top"}, res.Columns)
	assert.Equal(t, [][]any{{"a", int64(2), int64(2)}, {"b", int64(3), int64(5)}}, res.Rows)
}

func TestCollect_TailWithoutOrder(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	ids, err := tbl.Select(ctx, term("id"))
	require.NoError(t, err)
	last, err := ids.Tail(2)
	require.NoError(t, err)

	res, err := last.Collect(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(4)}, {int64(5)}}, res.Rows)
}

func TestCollect_TailWithOrder(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	ordered, err := tbl.Arrange(expr("desc(id)"))
	require.NoError(t, err)
	last, err := ordered.Tail(2)
	require.NoError(t, err)
	ids, err := last.Select(ctx, term("id"))
	require.NoError(t, err)

	res, err := ids.Collect(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}, {int64(1)}}, res.Rows)
}

func TestCopyRows_QuotesRoundTrip(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	f, err := tbl.Filter(expr("id == 4"))
	require.NoError(t, err)
	x, err := f.Select(ctx, term("x"))
	require.NoError(t, err)

	res, err := x.Collect(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"it's"}}, res.Rows)
}

func TestCopyRows_QuoteInColumnName(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()
	require.NoError(t, conn.Transport().Exec(ctx, `CREATE TABLE "q" ("it's" TEXT)`))
	require.NoError(t, conn.CopyRows(ctx, "q", []string{"it's"}, [][]any{{"a'b"}, {"''"}}))

	tbl, err := conn.Table("q")
	require.NoError(t, err)
	res, err := tbl.Collect(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"it's"}, res.Columns)
	assert.Equal(t, [][]any{{"a'b"}, {"''"}}, res.Rows)
}

func TestMutate_WindowAgainstSandbox(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	g, err := tbl.GroupBy("grp")
	require.NoError(t, err)
	a, err := g.Arrange(expr("id"))
	require.NoError(t, err)
	m, err := a.Mutate(term("rn = row_number()"), term("total = sum(id)"))
	require.NoError(t, err)
	out, err := m.Select(ctx, term("id"), term("rn"), term("total"))
	require.NoError(t, err)
	sorted, err := out.Arrange(expr("id"))
	require.NoError(t, err)

	res, err := sorted.Collect(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"grp", "id", "rn", "total"}, res.Columns)
	assert.Equal(t, [][]any{
		{"a", int64(1), int64(1), int64(3)},
		{"a", int64(2), int64(2), int64(3)},
		{"b", int64(3), int64(1), int64(12)},
		{"b", int64(4), int64(2), int64(12)},
		{"b", int64(5), int64(3), int64(12)},
	}, res.Rows)
}

func TestColumnsAndRowCount(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	cols, err := tbl.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x", "grp"}, cols)

	f, err := tbl.Filter(expr("grp == 'b'"))
	require.NoError(t, err)
	n, err := conn.RowCount(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestQuery_RawSystemQuery(t *testing.T) {
	conn, _ := newSandboxConn(t)
	q, err := conn.Query(term("answer = 6 * 7"))
	require.NoError(t, err)

	res, err := q.Collect(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(42)}}, res.Rows)
}

func TestCatalog(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	ok, err := conn.HasTable(ctx, "words")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = conn.HasTable(ctx, "public.WORDS")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = conn.HasTable(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	fns, err := conn.ListFunctions(ctx, "Transform")
	require.NoError(t, err)
	assert.Equal(t, []string{"normalize"}, fns)

	_, err = conn.HasTable(ctx, "")
	assert.True(t, lazyerr.Is(err, lazyerr.CodeInvalidIdentifier))
}

func TestDropTable_Sandbox(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()

	require.NoError(t, conn.DropTable(ctx, "words", DropOptions{}))
	ok, err := conn.HasTable(ctx, "words")
	require.NoError(t, err)
	assert.False(t, ok)

	err = conn.DropTable(ctx, "words", DropOptions{})
	assert.True(t, lazyerr.IsTableNotFound(err))
	assert.NoError(t, conn.DropTable(ctx, "words", DropOptions{IgnoreMissing: true}))
}

func TestDropTable_View(t *testing.T) {
	conn, _ := newSandboxConn(t)
	ctx := context.Background()
	require.NoError(t, conn.Transport().Exec(ctx, `CREATE VIEW "words_v" AS SELECT * FROM "words"`))

	err := conn.DropTable(ctx, "words_v", DropOptions{})
	assert.True(t, lazyerr.IsTableNotFound(err), "a view is not a table")

	require.NoError(t, conn.DropTable(ctx, "words_v", DropOptions{View: true}))
	ok, err := conn.HasView(ctx, "words_v")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompute(t *testing.T) {
	conn, _ := newSandboxConn(t, WithNameGenerator(testutil.NewFixedNameGenerator("words_b")))
	ctx := context.Background()

	tbl, err := conn.Table("words")
	require.NoError(t, err)
	b, err := tbl.Filter(expr("grp == 'b'"))
	require.NoError(t, err)

	computed, err := conn.Compute(ctx, b, "", false)
	require.NoError(t, err)
	n, err := conn.RowCount(ctx, computed)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = conn.Compute(ctx, b, "words_b", false)
	assert.True(t, lazyerr.Is(err, lazyerr.CodeTableExists))

	tmp, err := conn.Compute(ctx, b, "scratch", true)
	require.NoError(t, err)
	cols, err := tmp.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x", "grp"}, cols)
}

func TestUUIDv7Generator(t *testing.T) {
	name := UUIDv7Generator{}.Generate()
	assert.True(t, strings.HasPrefix(name, "lazytbl_"))
	assert.NotContains(t, name, "-")
	assert.Len(t, name, len("lazytbl_")+36)
	assert.NoError(t, dialect.ValidateIdent(name))
}

func TestJoin_RequiresSameConnection(t *testing.T) {
	a, _ := newSandboxConn(t)
	b, _ := newSandboxConn(t)
	left, err := a.Table("words")
	require.NoError(t, err)
	right, err := b.Table("words")
	require.NoError(t, err)

	_, err = left.Join(right, queryir.JoinInner, queryir.JoinKey{Left: "id", Right: "id"})
	assert.True(t, lazyerr.Is(err, lazyerr.CodeInvalidPlan))

	_, err = a.Lower(context.Background(), right)
	assert.True(t, lazyerr.Is(err, lazyerr.CodeInvalidPlan))
}

func TestConnect_Sandboxless(t *testing.T) {
	conn, err := Connect(context.Background(),
		transport.Config{Kind: dialect.TransportJDBC, Driver: transport.DriverSQLite, DSN: ":memory:"}, "")
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, dialect.TransportJDBC, conn.Dialect().Transport())
	assert.Equal(t, "public", conn.Dialect().DefaultSchema())
}
