package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTerm_Named(t *testing.T) {
	term, err := ParseTerm("transform_col = normalize(x)")
	require.NoError(t, err)

	assert.Equal(t, "transform_col", term.Name)
	assert.Equal(t, Call{Fn: "normalize", Args: []Expr{Col{Name: "x"}}}, term.Expr)
}

func TestParseTerm_Unnamed(t *testing.T) {
	term, err := ParseTerm("x == 1")
	require.NoError(t, err)

	assert.Equal(t, "", term.Name)
	assert.Equal(t, BinaryOp{Op: "==", Left: Col{Name: "x"}, Right: Lit{Value: IRInt(1)}}, term.Expr)
}

func TestParseExpr_Precedence(t *testing.T) {
	e, err := ParseExpr("a + b * 2 > 10 & !flag | c == 'x'")
	require.NoError(t, err)

	want := BinaryOp{
		Op: "|",
		Left: BinaryOp{
			Op: "&",
			Left: BinaryOp{
				Op: ">",
				Left: BinaryOp{
					Op:    "+",
					Left:  Col{Name: "a"},
					Right: BinaryOp{Op: "*", Left: Col{Name: "b"}, Right: Lit{Value: IRInt(2)}},
				},
				Right: Lit{Value: IRInt(10)},
			},
			Right: UnaryOp{Op: "!", Operand: Col{Name: "flag"}},
		},
		Right: BinaryOp{Op: "==", Left: Col{Name: "c"}, Right: Lit{Value: IRString("x")}},
	}
	assert.Equal(t, want, e)
}

func TestParseExpr_Literals(t *testing.T) {
	testCases := []struct {
		src  string
		want Expr
	}{
		{"42", Lit{Value: IRInt(42)}},
		{"-3", Lit{Value: IRInt(-3)}},
		{"1.5", Lit{Value: IRFloat(1.5)}},
		{"2e3", Lit{Value: IRFloat(2000)}},
		{"'it''s'", Lit{Value: IRString("it's")}},
		{`"double"`, Lit{Value: IRString("double")}},
		{"TRUE", Lit{Value: IRBool(true)}},
		{"false", Lit{Value: IRBool(false)}},
		{"NA", Lit{Value: IRNull{}}},
		{"`odd name`", Col{Name: "odd name"}},
		{"n()", Call{Fn: "n"}},
	}

	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			e, err := ParseExpr(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, e)
		})
	}
}

func TestParseExpr_Errors(t *testing.T) {
	for _, src := range []string{"", "f(x", "a +", "'open", "a b", "a $ b"} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseExpr(src)
			assert.Error(t, err)
		})
	}
}

func TestString_RoundTrip(t *testing.T) {
	for _, src := range []string{
		"normalize(x)",
		"(a + b) * 2",
		"lag(x, 1)",
		"!flag",
		"region == 'EU'",
	} {
		t.Run(src, func(t *testing.T) {
			e := MustParseExpr(src)
			assert.Equal(t, src, String(e))
		})
	}
}
