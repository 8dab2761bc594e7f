package harness

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/roach88/lazytbl/internal/lazyerr"
)

// ExpectError describes one mismatch between a result and its expect
// clause.
type ExpectError struct {
	Field    string // "error", "sql", "columns" or "rows"
	Expected string
	Actual   string
	SQL      string // lowered statement, for context
}

// Error implements the error interface.
func (e *ExpectError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "  SQL: %s\n", e.SQL)
	}
	return buf.String()
}

// EvaluateExpect compares a result with its expect clause and returns one
// message per mismatch.
func EvaluateExpect(result *Result, expect Expect) []string {
	var errs []string
	fail := func(field, expected, actual string) {
		errs = append(errs, (&ExpectError{Field: field, Expected: expected, Actual: actual, SQL: result.SQL}).Error())
	}

	if expect.Error != "" {
		switch {
		case result.Err == nil:
			fail("error", expect.Error, "success")
		case string(lazyerr.CodeOf(result.Err)) != expect.Error:
			fail("error", expect.Error, result.Err.Error())
		}
		return errs
	}
	if result.Err != nil {
		fail("error", "success", result.Err.Error())
		return errs
	}

	if expect.SQL != "" && expect.SQL != result.SQL {
		fail("sql", expect.SQL, result.SQL)
	}
	if expect.Columns != nil && !reflect.DeepEqual(expect.Columns, result.Columns) {
		fail("columns", fmt.Sprint(expect.Columns), fmt.Sprint(result.Columns))
	}
	if expect.Rows != nil {
		want := normalizeRows(expect.Rows)
		got := normalizeRows(result.Rows)
		if expect.Unordered {
			sortRows(want)
			sortRows(got)
		}
		if !reflect.DeepEqual(want, got) {
			fail("rows", fmt.Sprint(want), fmt.Sprint(got))
		}
	}
	return errs
}

func normalizeRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = normalizeValue(v)
		}
	}
	return out
}

// normalizeValue maps YAML and driver values onto comparable types:
// integers (and integral floats and booleans, which the sandbox stores as
// integers) become int64, bytes become strings.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, string:
		return val
	case []byte:
		return string(val)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case float32, float64:
		f := cast.ToFloat64(val)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return cast.ToInt64(val)
	default:
		return fmt.Sprint(val)
	}
}

func sortRows(rows [][]any) {
	sort.Slice(rows, func(i, j int) bool {
		return fmt.Sprintf("%#v", rows[i]) < fmt.Sprintf("%#v", rows[j])
	})
}
