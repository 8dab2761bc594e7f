package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/lazyerr"
)

func openSQLite(t *testing.T) *SQLTransport {
	t.Helper()
	tr, err := OpenSQL(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestSQLTransport_RoundTrip(t *testing.T) {
	tr := openSQLite(t)
	ctx := context.Background()
	assert.Equal(t, dialect.TransportJDBC, tr.Kind())

	require.NoError(t, tr.Exec(ctx, `CREATE TABLE "t" ("a" INTEGER, "b" TEXT)`))
	require.NoError(t, tr.Exec(ctx, `INSERT INTO "t" VALUES (1, 'x'), (2, NULL)`))

	res, err := tr.Execute(ctx, `SELECT * FROM "t" ORDER BY "a"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Columns)
	assert.Equal(t, [][]any{{int64(1), "x"}, {int64(2), nil}}, res.Rows)

	n, err := tr.QueryScalar(ctx, `SELECT COUNT(*) FROM "t"`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	v, err := tr.QueryScalar(ctx, `SELECT "a" FROM "t" WHERE 0=1`)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSQLTransport_ZeroRowProbeKeepsColumns(t *testing.T) {
	tr := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, tr.Exec(ctx, `CREATE TABLE "t" ("a" INTEGER, "b" TEXT)`))

	res, err := tr.Execute(ctx, `SELECT * FROM (SELECT * FROM "t") AS "q00" WHERE 0=1`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Columns)
	assert.Empty(t, res.Rows)
}

func TestSQLTransport_NormalizesErrors(t *testing.T) {
	tr := openSQLite(t)
	_, err := tr.Execute(context.Background(), `SELECT * FROM "missing"`)
	require.Error(t, err)
	assert.True(t, lazyerr.IsQueryExecution(err))
	assert.Contains(t, err.Error(), "no such table")

	err = tr.Exec(context.Background(), `DROP TABLE "missing"`)
	assert.True(t, lazyerr.IsQueryExecution(err))
}

func TestSQLTransport_TemporaryTablesPersist(t *testing.T) {
	tr := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, tr.Exec(ctx, `CREATE TEMPORARY TABLE "tmp" AS SELECT 1 AS "one"`))

	v, err := tr.QueryScalar(ctx, `SELECT "one" FROM "tmp"`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestOpen_SelectsVariant(t *testing.T) {
	tr, err := Open(context.Background(), Config{Kind: dialect.TransportJDBC, Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, dialect.TransportJDBC, tr.Kind())

	tr, err = Open(context.Background(), Config{
		Kind: dialect.TransportODBC,
		Runner: RunnerFunc(func(context.Context, string) (string, error) {
			return "?column?\n1\n", nil
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, dialect.TransportODBC, tr.Kind())

	_, err = Open(context.Background(), Config{Kind: "carrier-pigeon"})
	assert.True(t, lazyerr.Is(err, lazyerr.CodeConnection))

	_, err = Open(context.Background(), Config{Driver: "nope"})
	assert.True(t, lazyerr.Is(err, lazyerr.CodeConnection))
}
