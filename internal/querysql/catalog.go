package querysql

import (
	"strings"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/ir"
)

// probeAlias names the outer relation of probe and count statements. It is
// outside the "qNN" sequence used by lowering.
const probeAlias = `"q00"`

// ProbeQuery wraps sql in a zero-row query whose only purpose is to report
// the column names of sql.
func ProbeQuery(sql string) string {
	return "SELECT * FROM (" + sql + ") AS " + probeAlias + " WHERE 0=1"
}

// CountQuery counts the rows sql returns.
func CountQuery(sql string) string {
	return "SELECT COUNT(*) FROM (" + sql + ") AS " + probeAlias
}

// Procedure types of v_catalog.user_functions by function category.
var procedureTypes = map[string]string{
	"transform": "User Defined Transform",
	"scalar":    "User Defined Function",
	"aggregate": "User Defined Aggregate",
	"analytic":  "User Defined Analytic",
}

// FunctionsQuery lists registered user-defined functions of a category
// ("Transform", "Scalar", "Aggregate", "Analytic"). An empty category lists
// them all; an unknown one is matched against procedure_type verbatim.
func FunctionsQuery(category string) string {
	sql := "SELECT function_name FROM v_catalog.user_functions"
	if category == "" {
		return sql + " ORDER BY function_name"
	}
	pt, ok := procedureTypes[strings.ToLower(category)]
	if !ok {
		pt = category
	}
	return sql + " WHERE procedure_type = " + dialect.Literal(ir.IRString(pt)) + " ORDER BY function_name"
}

// TableExistsQuery counts catalog entries for a table or view. Names are
// compared case-insensitively, as the server resolves them.
func TableExistsQuery(d dialect.Context, schema, table string, view bool) string {
	if schema == "" {
		schema = d.DefaultSchema()
	}
	rel := "v_catalog.tables"
	if view {
		rel = "v_catalog.views"
	}
	return "SELECT COUNT(*) FROM " + rel +
		" WHERE LOWER(table_schema) = LOWER(" + dialect.Literal(ir.IRString(schema)) + ")" +
		" AND LOWER(table_name) = LOWER(" + dialect.Literal(ir.IRString(table)) + ")"
}

