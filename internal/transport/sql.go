package transport

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/vertica/vertica-sql-go"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/lazyerr"
)

// Registered database/sql driver names.
const (
	DriverVertica = "vertica"
	DriverSQLite  = "sqlite3"
)

// SQLTransport runs statements through database/sql on a single pinned
// connection.
type SQLTransport struct {
	db   *sql.DB
	opts options
}

// OpenSQL opens and pings a database/sql connection.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLTransport, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, lazyerr.Wrap(lazyerr.CodeConnection, err, "open %s connection", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, lazyerr.Wrap(lazyerr.CodeConnection, err, "connect to %s", driver)
	}
	return NewSQL(db, opts...), nil
}

// NewSQL wraps an open database. The pool is limited to one connection so
// statements are serialized and session state (temporary tables) persists.
func NewSQL(db *sql.DB, opts ...Option) *SQLTransport {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return &SQLTransport{db: db, opts: buildOptions(opts)}
}

// Kind returns TransportJDBC.
func (t *SQLTransport) Kind() dialect.TransportKind {
	return dialect.TransportJDBC
}

// DB returns the underlying database.
func (t *SQLTransport) DB() *sql.DB {
	return t.db
}

// Execute runs a query and scans every row.
func (t *SQLTransport) Execute(ctx context.Context, query string) (*Result, error) {
	if err := t.opts.runHook(ctx, query); err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, lazyerr.NewQueryExecution(query, err.Error())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, lazyerr.NewQueryExecution(query, err.Error())
	}
	res := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, lazyerr.NewQueryExecution(query, err.Error())
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, lazyerr.NewQueryExecution(query, err.Error())
	}
	t.opts.logger.Debug("query executed",
		"transport", string(dialect.TransportJDBC),
		"rows", len(res.Rows),
		"elapsed", time.Since(start),
		"sql", query)
	return res, nil
}

// Exec runs a statement without a result set.
func (t *SQLTransport) Exec(ctx context.Context, stmt string) error {
	if err := t.opts.runHook(ctx, stmt); err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, stmt); err != nil {
		return lazyerr.NewQueryExecution(stmt, err.Error())
	}
	t.opts.logger.Debug("statement executed", "transport", string(dialect.TransportJDBC), "sql", stmt)
	return nil
}

// QueryScalar returns the first cell of the query's result.
func (t *SQLTransport) QueryScalar(ctx context.Context, query string) (any, error) {
	res, err := t.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	return firstCell(res), nil
}

// Close closes the database.
func (t *SQLTransport) Close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}
