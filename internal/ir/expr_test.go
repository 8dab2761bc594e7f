package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArity(t *testing.T) {
	assert.Equal(t, 2, Arity(MustParseExpr("normalize(x)")))
	assert.Equal(t, 3, Arity(MustParseExpr("f(x, y)")))
	assert.Equal(t, 1, Arity(MustParseExpr("x")))
	assert.Equal(t, 1, Arity(MustParseExpr("n()")))
	assert.Equal(t, 3, Arity(MustParseExpr("a + b")))
}

func TestColumns_Deduplicated(t *testing.T) {
	cols := Columns(MustParseExpr("a + f(b, a) * c"))
	assert.Equal(t, []string{"a", "b", "c"}, cols)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "total", MustParseTerm("total = sum(x)").OutputName())
	assert.Equal(t, "x", MustParseTerm("x").OutputName())
	assert.Equal(t, "sum(x)", MustParseTerm("sum(x)").OutputName())
}

func TestFromAny(t *testing.T) {
	v, err := FromAny("a")
	require.NoError(t, err)
	assert.Equal(t, IRString("a"), v)

	v, err = FromAny(7)
	require.NoError(t, err)
	assert.Equal(t, IRInt(7), v)

	v, err = FromAny(nil)
	require.NoError(t, err)
	assert.Equal(t, IRNull{}, v)

	_, err = FromAny(math.NaN())
	assert.Error(t, err)

	_, err = FromAny([]any{1})
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	assert.Equal(t, "NULL", Text(IRNull{}))
	assert.Equal(t, "'x'", Text(IRString("x")))
	assert.Equal(t, "1.5", Text(IRFloat(1.5)))
	assert.Equal(t, "TRUE", Text(IRBool(true)))
}
