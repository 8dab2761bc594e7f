package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
)

func translate(t *testing.T, src string, s Scope) string {
	t.Helper()
	c := New(TransportJDBC, "")
	sql, err := c.Translate(ir.MustParseExpr(src), s)
	require.NoError(t, err)
	return sql
}

func TestTranslate_Scalars(t *testing.T) {
	testCases := []struct {
		src  string
		want string
	}{
		{"x", `"x"`},
		{"x == 1", `"x" = 1`},
		{"x != 'it''s'", `"x" <> 'it''s'`},
		{"a > 1 & b < 2", `("a" > 1) AND ("b" < 2)`},
		{"!flag", `NOT "flag"`},
		{"!(a == b)", `NOT ("a" = "b")`},
		{"-x", `-"x"`},
		{"tolower(name)", `LOWER("name")`},
		{"nchar(name)", `LENGTH("name")`},
		{"log(x)", `LN("x")`},
		{"ifelse(x > 0, 'pos', 'neg')", `CASE WHEN "x" > 0 THEN 'pos' ELSE 'neg' END`},
		{"is_null(x)", `("x" IS NULL)`},
		{"as_integer(x)", `CAST("x" AS INTEGER)`},
		{"as_character(x)", `CAST("x" AS VARCHAR)`},
		{"paste0(a, b)", `("a" || "b")`},
		{"paste(a, b)", `("a" || ' ' || "b")`},
		{"substr(s, 2, 4)", `SUBSTR("s", 2, 3)`},
		{"between(x, 1, 5)", `"x" BETWEEN 1 AND 5`},
		{"desc(ts)", `"ts" DESC`},
		{"normalize(x)", `normalize("x")`},
		{"NULL", "NULL"},
		{"TRUE", "TRUE"},
		{"1.5", "1.5"},
	}

	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			assert.Equal(t, tc.want, translate(t, tc.src, Scope{}))
		})
	}
}

func TestTranslate_Aggregates(t *testing.T) {
	assert.Equal(t, `SUM("x")`, translate(t, "sum(x)", Scope{}))
	assert.Equal(t, `AVG("x")`, translate(t, "mean(x)", Scope{}))
	assert.Equal(t, "COUNT(*)", translate(t, "n()", Scope{}))
	assert.Equal(t, `COUNT(DISTINCT "x")`, translate(t, "n_distinct(x)", Scope{}))
	assert.Equal(t, `STDDEV_SAMP("x")`, translate(t, "sd(x)", Scope{}))
}

func TestTranslate_WindowContext(t *testing.T) {
	s := Scope{Window: true, Partition: []string{`"g"`}, Order: []string{`"o"`}}

	assert.Equal(t, `SUM("x") OVER (PARTITION BY "g")`, translate(t, "sum(x)", s))
	assert.Equal(t, `COUNT(*) OVER (PARTITION BY "g")`, translate(t, "n()", s))
	assert.Equal(t, `ROW_NUMBER() OVER (PARTITION BY "g" ORDER BY "o")`, translate(t, "row_number()", s))
	assert.Equal(t, `LAG("x", 1) OVER (PARTITION BY "g" ORDER BY "o")`, translate(t, "lag(x, 1)", s))
	assert.Equal(t, `NTILE(4) OVER (PARTITION BY "g" ORDER BY "x")`, translate(t, "ntile(x, 4)", s))
	assert.Equal(t,
		`SUM("x") OVER (PARTITION BY "g" ORDER BY "o" ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)`,
		translate(t, "cumsum(x)", s))

	// Unknown functions (remote transforms) are never windowed by translation.
	assert.Equal(t, `normalize("x")`, translate(t, "normalize(x)", s))
}

func TestTranslate_WindowFrame(t *testing.T) {
	s := Scope{Window: true, Partition: []string{`"g"`}, Order: []string{`"o"`}, Frame: &Frame{From: -2, To: 0}}

	assert.Equal(t,
		`SUM("x") OVER (PARTITION BY "g" ORDER BY "o" ROWS BETWEEN 2 PRECEDING AND CURRENT ROW)`,
		translate(t, "sum(x)", s))
	assert.Equal(t,
		`COUNT(*) OVER (PARTITION BY "g" ORDER BY "o" ROWS BETWEEN 2 PRECEDING AND CURRENT ROW)`,
		translate(t, "n()", s))

	// Ranking and cumulative functions keep their own framing.
	assert.Equal(t, `ROW_NUMBER() OVER (PARTITION BY "g" ORDER BY "o")`, translate(t, "row_number()", s))
	assert.Equal(t,
		`SUM("x") OVER (PARTITION BY "g" ORDER BY "o" ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)`,
		translate(t, "cumsum(x)", s))

	// Outside a window context the frame is ignored.
	assert.Equal(t, `SUM("x")`, translate(t, "sum(x)", Scope{Frame: &Frame{From: -2, To: 0}}))
}

func TestTranslate_WindowFrameNeedsOrder(t *testing.T) {
	c := New(TransportJDBC, "")
	_, err := c.Translate(ir.MustParseExpr("sum(x)"), Scope{Window: true, Frame: &Frame{From: -1, To: 1}})
	assert.True(t, lazyerr.Is(err, lazyerr.CodeUnsupportedFrame))
}

func TestTranslate_WindowWithoutContext(t *testing.T) {
	assert.Equal(t, "RANK() OVER ()", translate(t, "rank()", Scope{}))
	assert.Equal(t, `SUM("x") OVER ()`, translate(t, "sum(x)", Scope{Window: true}))
}

func TestTranslate_CumulativeNeedsOrder(t *testing.T) {
	c := New(TransportJDBC, "")
	_, err := c.Translate(ir.MustParseExpr("cumsum(x)"), Scope{Window: true})
	assert.True(t, lazyerr.Is(err, lazyerr.CodeInvalidPlan))
}

func TestTranslate_UnknownColumn(t *testing.T) {
	c := New(TransportJDBC, "")
	_, err := c.Translate(ir.MustParseExpr("f(y)"), Scope{Columns: []string{"x"}})
	assert.True(t, lazyerr.Is(err, lazyerr.CodeInvalidPlan))

	sql, err := c.Translate(ir.MustParseExpr("f(x)"), Scope{Columns: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, `f("x")`, sql)
}

func TestTranslate_Arity(t *testing.T) {
	c := New(TransportJDBC, "")
	for _, src := range []string{"n(x)", "desc(a, b)", "ifelse(a, b)", "substr(s, 1)"} {
		_, err := c.Translate(ir.MustParseExpr(src), Scope{})
		assert.True(t, lazyerr.Is(err, lazyerr.CodeInvalidPlan), src)
	}
}

func TestTranslateTerm(t *testing.T) {
	c := New(TransportJDBC, "")

	sql, err := c.TranslateTerm(ir.MustParseTerm("transform_col = normalize(x)"), Scope{})
	require.NoError(t, err)
	assert.Equal(t, `normalize("x") AS "transform_col"`, sql)

	sql, err = c.TranslateTerm(ir.MustParseTerm("x = x"), Scope{})
	require.NoError(t, err)
	assert.Equal(t, `"x"`, sql)

	sql, err = c.TranslateTerm(ir.MustParseTerm("y = x"), Scope{})
	require.NoError(t, err)
	assert.Equal(t, `"x" AS "y"`, sql)
}

func TestIsAggregate(t *testing.T) {
	assert.True(t, IsAggregate("SUM"))
	assert.True(t, IsAggregate("mean"))
	assert.False(t, IsAggregate("row_number"))
	assert.True(t, IsWindow("row_number"))
	assert.True(t, IsWindow("cumsum"))
	assert.False(t, IsWindow("normalize"))
}
