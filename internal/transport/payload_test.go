package transport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/lazyerr"
)

func TestIsErrorPayload(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{"HY000 -2 [Vertica][VerticaDSII] (4566) ERROR: Relation \"x\" does not exist", true},
		{"[HY000] internal error", true},
		{"ERROR 4566:  Relation \"x\" does not exist\n", true},
		{"\n\nERROR: syntax error at or near \"FORM\"", true},
		{"a|b\n1|ERROR\n", false},
		{"error_count\n3\n", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsErrorPayload(tt.payload), tt.payload)
	}
}

func TestIsErrorPayload_LongFirstLine(t *testing.T) {
	long := "ERROR 4856: Syntax error near " + strings.Repeat("x", 200*1024)
	assert.True(t, IsErrorPayload(long+"\nmore\n"))
	assert.False(t, IsErrorPayload(strings.Repeat("y", 200*1024)+"\n"))
}

func TestParsePayload(t *testing.T) {
	res := ParsePayload("id|name\n1|alice\n2|\n")
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, [][]any{{"1", "alice"}, {"2", ""}}, res.Rows)

	res = ParsePayload("a|b\n")
	assert.Equal(t, []string{"a", "b"}, res.Columns)
	assert.Empty(t, res.Rows)

	res = ParsePayload("CREATE TABLE\n")
	assert.Empty(t, res.Columns)

	res = ParsePayload("CREATED_AT\n")
	assert.Equal(t, []string{"CREATED_AT"}, res.Columns)

	res = ParsePayload("")
	assert.Empty(t, res.Columns)
	assert.NotNil(t, res.Rows)
}

func TestPayloadTransport_NormalizesErrors(t *testing.T) {
	var sent []string
	runner := RunnerFunc(func(_ context.Context, sql string) (string, error) {
		sent = append(sent, sql)
		if sql == "SELECT broken" {
			return "ERROR 2624:  Column \"broken\" does not exist\n", nil
		}
		return "?column?\n1\n", nil
	})
	tr, err := OpenPayload(context.Background(), runner)
	require.NoError(t, err)
	assert.Equal(t, dialect.TransportODBC, tr.Kind())

	v, err := tr.QueryScalar(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	_, err = tr.Execute(context.Background(), "SELECT broken")
	require.Error(t, err)
	assert.True(t, lazyerr.IsQueryExecution(err))

	var le *lazyerr.Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, `ERROR 2624:  Column "broken" does not exist`, le.Message)
	assert.Equal(t, "SELECT broken", le.Details["sql"])
	assert.Equal(t, []string{"SELECT 1", "SELECT 1", "SELECT broken"}, sent)
}

func TestOpenPayload_ConnectionError(t *testing.T) {
	runner := RunnerFunc(func(context.Context, string) (string, error) {
		return "", errors.New("executable file not found")
	})
	_, err := OpenPayload(context.Background(), runner)
	assert.True(t, lazyerr.Is(err, lazyerr.CodeConnection))
}

func TestVSQLRunner_Args(t *testing.T) {
	r := NewVSQLRunner(VSQLConfig{Host: "db", Port: 5433, User: "dbadmin", Database: "analytics"})
	assert.Equal(t, []string{
		"-h", "db", "-p", "5433", "-U", "dbadmin", "-d", "analytics",
		"-A", "-F", "|", "-P", "footer=off", "-X", "-c", "SELECT 1",
	}, r.Args("SELECT 1"))
}

func TestStatementHook(t *testing.T) {
	tr := NewPayload(RunnerFunc(func(context.Context, string) (string, error) {
		return "", nil
	}), WithStatementHook(func(context.Context, string) error {
		return errors.New("blocked")
	}))
	err := tr.Exec(context.Background(), "DROP TABLE t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestResultTruncate(t *testing.T) {
	r := &Result{Rows: [][]any{{1}, {2}, {3}}}
	r.Truncate(-1)
	assert.Len(t, r.Rows, 3)
	r.Truncate(5)
	assert.Len(t, r.Rows, 3)
	r.Truncate(2)
	assert.Len(t, r.Rows, 2)
}
