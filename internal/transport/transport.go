package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/lazyerr"
)

// Result is a materialized row set.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Truncate keeps at most n rows. Negative n keeps everything.
func (r *Result) Truncate(n int64) {
	if n >= 0 && int64(len(r.Rows)) > n {
		r.Rows = r.Rows[:n]
	}
}

// Transport executes statements on one server connection.
type Transport interface {
	// Kind reports which variant this is.
	Kind() dialect.TransportKind

	// Execute runs a query and returns its rows.
	Execute(ctx context.Context, sql string) (*Result, error)

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// QueryScalar returns the first column of the first row, or nil when
	// the query returns no rows.
	QueryScalar(ctx context.Context, sql string) (any, error)

	// Close releases the connection.
	Close() error
}

// Config selects and configures a transport variant.
type Config struct {
	// Kind is TransportJDBC (database/sql) or TransportODBC (vsql payload).
	Kind dialect.TransportKind

	// Driver and DSN configure the database/sql variant.
	Driver string
	DSN    string

	// VSQL configures the payload variant's default runner.
	VSQL VSQLConfig

	// Runner overrides the payload variant's runner.
	Runner Runner

	Logger *slog.Logger
}

// Open connects using the variant cfg selects.
func Open(ctx context.Context, cfg Config) (Transport, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Kind {
	case dialect.TransportJDBC, "":
		driver := cfg.Driver
		if driver == "" {
			driver = DriverVertica
		}
		return OpenSQL(ctx, driver, cfg.DSN, WithLogger(logger))
	case dialect.TransportODBC:
		runner := cfg.Runner
		if runner == nil {
			runner = NewVSQLRunner(cfg.VSQL)
		}
		return OpenPayload(ctx, runner, WithLogger(logger))
	default:
		return nil, lazyerr.New(lazyerr.CodeConnection, "unknown transport %q", cfg.Kind)
	}
}

// Option configures either transport variant.
type Option func(*options)

type options struct {
	logger *slog.Logger
	before func(ctx context.Context, sql string) error
}

// WithLogger sets the logger for statement round trips (Debug level).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStatementHook runs fn before every statement. A hook error aborts the
// statement.
func WithStatementHook(fn func(ctx context.Context, sql string) error) Option {
	return func(o *options) {
		o.before = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) runHook(ctx context.Context, sql string) error {
	if o.before == nil {
		return nil
	}
	if err := o.before(ctx, sql); err != nil {
		return fmt.Errorf("statement hook: %w", err)
	}
	return nil
}

func firstCell(r *Result) any {
	if len(r.Rows) == 0 || len(r.Rows[0]) == 0 {
		return nil
	}
	return r.Rows[0][0]
}
