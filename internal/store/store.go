package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/transport"
)

//go:embed schema.sql
var schemaSQL string

// CatalogSchema is the attached database holding the emulated catalog.
const CatalogSchema = "v_catalog"

// Procedure types stored in v_catalog.user_functions.
const (
	ProcedureTransform = "User Defined Transform"
	ProcedureScalar    = "User Defined Function"
)

// driverSeq makes each Open register its own driver, so connect hooks of
// different stores never share function sets.
var driverSeq atomic.Int64

// Store is a sandbox server backed by SQLite.
type Store struct {
	db     *sql.DB
	cfg    config
	logger *slog.Logger
}

type function struct {
	name          string
	procedureType string
	impl          any
}

type config struct {
	functions []function
	schemas   []string
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*config)

// WithTransform registers impl as a SQL function listed in the catalog as a
// User Defined Transform. impl follows go-sqlite3's RegisterFunc rules.
func WithTransform(name string, impl any) Option {
	return WithFunction(name, ProcedureTransform, impl)
}

// WithFunction registers impl as a SQL function with the given catalog
// procedure type.
func WithFunction(name, procedureType string, impl any) Option {
	return func(c *config) {
		c.functions = append(c.functions, function{name: name, procedureType: procedureType, impl: impl})
	}
}

// WithSchema attaches an empty in-memory schema.
func WithSchema(name string) Option {
	return func(c *config) {
		c.schemas = append(c.schemas, name)
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Open creates or opens a sandbox database at path. An empty path or
// ":memory:" keeps everything in memory.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if path == "" {
		path = ":memory:"
	}

	driver := fmt.Sprintf("sqlite3_lazytbl_%d", driverSeq.Add(1))
	sql.Register(driver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return setupConn(conn, cfg)
		},
	})

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Attached schemas and temporary tables are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	s := &Store{db: db, cfg: cfg, logger: cfg.logger}
	for _, fn := range cfg.functions {
		if err := s.RegisterFunction(context.Background(), fn.name, fn.procedureType); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func setupConn(conn *sqlite3.SQLiteConn, cfg config) error {
	attach := append([]string{CatalogSchema}, cfg.schemas...)
	for _, name := range attach {
		stmt := "ATTACH DATABASE ':memory:' AS " + dialect.QuoteIdent(name)
		if _, err := conn.Exec(stmt, nil); err != nil {
			return fmt.Errorf("attach %s: %w", name, err)
		}
	}
	for _, fn := range cfg.functions {
		if fn.impl == nil {
			continue
		}
		if err := conn.RegisterFunc(fn.name, fn.impl, true); err != nil {
			return fmt.Errorf("register function %s: %w", fn.name, err)
		}
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database. Closing a transport obtained from Transport
// closes it too; either order is safe.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Transport returns a database/sql transport over the sandbox. Catalog
// views are refreshed before any statement that reads them.
func (s *Store) Transport(opts ...transport.Option) *transport.SQLTransport {
	opts = append(opts, transport.WithStatementHook(s.beforeStatement))
	return transport.NewSQL(s.db, opts...)
}

func (s *Store) beforeStatement(ctx context.Context, stmt string) error {
	if strings.Contains(stmt, CatalogSchema+".tables") || strings.Contains(stmt, CatalogSchema+".views") {
		return s.RefreshCatalog(ctx)
	}
	return nil
}

// RegisterFunction lists a function in v_catalog.user_functions without
// defining it. Use it to exercise catalog lookups.
func (s *Store) RegisterFunction(ctx context.Context, name, procedureType string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO v_catalog.user_functions (function_name, procedure_type) VALUES (?, ?)`,
		name, procedureType)
	if err != nil {
		return fmt.Errorf("register function %s: %w", name, err)
	}
	s.logger.Debug("sandbox function registered", "function", name, "procedure_type", procedureType)
	return nil
}

// RefreshCatalog rebuilds v_catalog.tables and v_catalog.views from the
// schemas of every attached database. main and temp report the default
// schema.
func (s *Store) RefreshCatalog(ctx context.Context) error {
	dbs, err := s.databases(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog refresh: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM v_catalog.tables`, `DELETE FROM v_catalog.views`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear catalog: %w", err)
		}
	}
	for _, name := range dbs {
		schema := name
		if name == "main" || name == "temp" {
			schema = dialect.DefaultSchema
		}
		master := dialect.QuoteIdent(name) + ".sqlite_master"
		_, err := tx.ExecContext(ctx,
			`INSERT INTO v_catalog.tables (table_schema, table_name, is_temp_table)
			 SELECT ?, name, ? FROM `+master+` WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`,
			schema, name == "temp")
		if err != nil {
			return fmt.Errorf("list tables of %s: %w", name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO v_catalog.views (table_schema, table_name)
			 SELECT ?, name FROM `+master+` WHERE type = 'view'`,
			schema)
		if err != nil {
			return fmt.Errorf("list views of %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog refresh: %w", err)
	}
	return nil
}

// databases returns the attached database names except the catalog, with
// temp always included.
func (s *Store) databases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	names := []string{}
	sawTemp := false
	for rows.Next() {
		var seq int
		var name, file string
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, fmt.Errorf("scan database: %w", err)
		}
		if name == CatalogSchema {
			continue
		}
		sawTemp = sawTemp || name == "temp"
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate databases: %w", err)
	}
	if !sawTemp {
		names = append(names, "temp")
	}
	return names, nil
}
