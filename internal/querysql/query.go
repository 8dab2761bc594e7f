package querysql

import (
	"strconv"
	"strings"
)

// selectQuery is a single SELECT being assembled. Compatible operations are
// fused into the same query; incompatible ones wrap it as a subquery.
type selectQuery struct {
	// from is a quoted table name, "(<sql>) AS alias", a join clause, or
	// empty for a source-less query.
	from string

	selects  []string // empty means *
	distinct bool
	where    []string
	groupBy  []string
	orderBy  []string
	limit    int64 // -1 means none
	offset   int64

	// sealed queries cannot absorb further clauses (remote invocations).
	sealed bool

	// table is set while the query is a bare physical table reference.
	table bool
}

func newQuery(from string) *selectQuery {
	return &selectQuery{from: from, limit: -1}
}

// bounded reports whether the query carries LIMIT or OFFSET.
func (q *selectQuery) bounded() bool {
	return q.limit >= 0 || q.offset > 0
}

// projected reports whether the select list is anything other than *.
func (q *selectQuery) projected() bool {
	return len(q.selects) > 0
}

// bare reports whether q is still "SELECT * FROM <table>".
func (q *selectQuery) bare() bool {
	return q.table && !q.projected() && !q.distinct && len(q.where) == 0 &&
		len(q.groupBy) == 0 && len(q.orderBy) == 0 && !q.bounded()
}

// sql renders the query. ORDER BY is omitted when withOrder is false.
func (q *selectQuery) sql(withOrder bool) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.distinct {
		sb.WriteString("DISTINCT ")
	}
	if q.projected() {
		sb.WriteString(strings.Join(q.selects, ", "))
	} else {
		sb.WriteString("*")
	}
	if q.from != "" {
		sb.WriteString(" FROM ")
		sb.WriteString(q.from)
	}
	if len(q.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.where, " AND "))
	}
	if len(q.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(q.groupBy, ", "))
	}
	if withOrder && len(q.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.orderBy, ", "))
	}
	if q.limit >= 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.FormatInt(q.limit, 10))
	}
	if q.offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.FormatInt(q.offset, 10))
	}
	return sb.String()
}

// subquerySQL renders q for use inside FROM. Ordering inside a subquery is
// only meaningful when it decides which rows a LIMIT keeps.
func (q *selectQuery) subquerySQL() string {
	return q.sql(q.bounded())
}
