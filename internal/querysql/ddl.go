package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
)

// CreateTableAs renders CREATE [TEMPORARY] TABLE <table> AS <query>.
func CreateTableAs(d dialect.Context, schema, table string, temporary bool, query string) string {
	kw := "CREATE TABLE "
	if temporary {
		kw = "CREATE TEMPORARY TABLE "
	}
	return kw + d.QuoteTable(schema, table) + " AS " + query
}

// DropTable renders DROP TABLE|VIEW [IF EXISTS] <table>.
func DropTable(d dialect.Context, schema, table string, view, ifExists bool) string {
	var sb strings.Builder
	sb.WriteString("DROP ")
	if view {
		sb.WriteString("VIEW ")
	} else {
		sb.WriteString("TABLE ")
	}
	if ifExists {
		sb.WriteString("IF EXISTS ")
	}
	sb.WriteString(d.QuoteTable(schema, table))
	return sb.String()
}

// InsertValues renders a multi-row INSERT with literal values.
//
// String values go through the generic escaper before being placed in a
// quoted literal, which leaves embedded quotes doubled twice;
// dialect.UnescapeInsert brings them back to the dialect's single doubling.
func InsertValues(d dialect.Context, schema, table string, cols []string, rows [][]any) (string, error) {
	if len(cols) == 0 {
		return "", lazyerr.New(lazyerr.CodeInvalidPlan, "insert into %s needs at least one column", table)
	}
	if len(rows) == 0 {
		return "", lazyerr.New(lazyerr.CodeInvalidPlan, "insert into %s needs at least one row", table)
	}
	for _, c := range cols {
		if err := dialect.ValidateIdent(c); err != nil {
			return "", err
		}
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.QuoteTable(schema, table))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(dialect.QuoteIdents(cols), ", "))
	sb.WriteString(") VALUES ")
	for i, row := range rows {
		if len(row) != len(cols) {
			return "", lazyerr.New(lazyerr.CodeInvalidPlan, "row %d has %d values for %d columns", i+1, len(row), len(cols))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			lit, err := valueLiteral(v)
			if err != nil {
				return "", fmt.Errorf("row %d column %s: %w", i+1, cols[j], err)
			}
			sb.WriteString(lit)
		}
		sb.WriteByte(')')
	}
	return dialect.UnescapeInsert(sb.String()), nil
}

func valueLiteral(v any) (string, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if s, ok := v.(string); ok {
		v = escapeString(s)
	}
	iv, err := ir.FromAny(v)
	if err != nil {
		return "", lazyerr.Wrap(lazyerr.CodeInvalidPlan, err, "unsupported value %T", v)
	}
	return dialect.Literal(iv), nil
}

// escapeString is the generic string escaper applied before quoting.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
