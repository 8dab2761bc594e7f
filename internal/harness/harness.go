package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/engine"
	"github.com/roach88/lazytbl/internal/store"
	"github.com/roach88/lazytbl/internal/testutil"
	"github.com/roach88/lazytbl/internal/transport"
)

// Harness is the scenario execution environment: a fresh sandbox and a
// connection to it.
type Harness struct {
	store  *store.Store
	conn   *engine.Conn
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory sandbox. Computed tables get a
// fixed name so any DDL a plan triggers is reproducible.
//
// Execution flow:
// 1. Open the sandbox with the scenario's transforms and schemas
// 2. Create and fill the seed tables
// 3. Build the plan, lower it, collect it
// 4. Compare the outcome with the expect clause
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	opts := []store.Option{store.WithLogger(logger)}
	for _, name := range scenario.Transforms {
		opts = append(opts, store.WithTransform(name, Transforms[name]))
	}
	schemas, err := seedSchemas(scenario)
	if err != nil {
		return nil, err
	}
	for _, s := range schemas {
		opts = append(opts, store.WithSchema(s))
	}

	st, err := store.Open(":memory:", opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	for _, fn := range scenario.CatalogFunctions {
		if err := st.RegisterFunction(ctx, fn, store.ProcedureTransform); err != nil {
			return nil, err
		}
	}

	h := &Harness{
		store: st,
		conn: engine.New(st.Transport(transport.WithLogger(logger)), scenario.Schema,
			engine.WithLogger(logger),
			engine.WithNameGenerator(testutil.NewFixedNameGenerator(""))),
		logger: logger,
	}

	if err := h.seed(ctx, scenario.Tables); err != nil {
		return nil, fmt.Errorf("failed to seed tables: %w", err)
	}

	result := NewResult()
	h.execute(ctx, scenario, result)
	for _, msg := range EvaluateExpect(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// seedSchemas returns the non-default schemas seed tables live in.
func seedSchemas(scenario *Scenario) ([]string, error) {
	var schemas []string
	for i, tbl := range scenario.Tables {
		schema, _, err := dialect.ParseQualified(tbl.Name)
		if err != nil {
			return nil, fmt.Errorf("tables[%d]: %w", i, err)
		}
		if schema == "" || schema == dialect.DefaultSchema || schema == "main" || slices.Contains(schemas, schema) {
			continue
		}
		schemas = append(schemas, schema)
	}
	return schemas, nil
}

// seed creates every table with untyped columns and inserts its rows.
func (h *Harness) seed(ctx context.Context, tables []Table) error {
	for i, tbl := range tables {
		schema, name, err := dialect.ParseQualified(tbl.Name)
		if err != nil {
			return fmt.Errorf("tables[%d]: %w", i, err)
		}
		stmt := "CREATE TABLE " + h.conn.Dialect().QuoteTable(schema, name) +
			" (" + strings.Join(dialect.QuoteIdents(tbl.Columns), ", ") + ")"
		if err := h.conn.Transport().Exec(ctx, stmt); err != nil {
			return fmt.Errorf("tables[%d]: %w", i, err)
		}
		if len(tbl.Rows) == 0 {
			continue
		}
		if err := h.conn.CopyRows(ctx, tbl.Name, tbl.Columns, tbl.Rows); err != nil {
			return fmt.Errorf("tables[%d]: %w", i, err)
		}
		h.logger.Debug("table seeded", "table", tbl.Name, "rows", len(tbl.Rows))
	}
	return nil
}

// execute builds, lowers and collects the plan, recording the first
// failure in result.Err.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) {
	tbl, err := scenario.Plan.Build(ctx, h.conn)
	if err != nil {
		result.Err = err
		return
	}
	sql, err := tbl.SQL(ctx)
	if err != nil {
		result.Err = err
		return
	}
	result.SQL = sql

	limit := int64(-1)
	if scenario.RowLimit != nil {
		limit = *scenario.RowLimit
	}
	res, err := tbl.Collect(ctx, limit)
	if err != nil {
		result.Err = err
		return
	}
	result.Columns = res.Columns
	result.Rows = res.Rows
}
