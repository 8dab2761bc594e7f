package engine

import (
	"context"
	"fmt"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/lazyerr"
	"github.com/roach88/lazytbl/internal/querysql"
)

// DropOptions controls DropTable.
type DropOptions struct {
	// View drops a view instead of a table.
	View bool

	// IgnoreMissing turns a missing target into a no-op instead of
	// TABLE_NOT_FOUND.
	IgnoreMissing bool
}

// DropTable drops a table or view. Existence is checked first; a missing
// target fails with TABLE_NOT_FOUND and no DROP is sent.
func (c *Conn) DropTable(ctx context.Context, name string, opts DropOptions) error {
	schema, table, err := dialect.ParseQualified(name)
	if err != nil {
		return err
	}
	ok, err := c.exists(ctx, schema, table, opts.View)
	if err != nil {
		return err
	}
	if !ok {
		if opts.IgnoreMissing {
			c.logger.Debug("drop skipped, target missing", "table", name)
			return nil
		}
		return lazyerr.NewTableNotFound(name)
	}

	stmt := querysql.DropTable(c.dialect, schema, table, opts.View, opts.IgnoreMissing)
	if err := c.transport.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	c.logger.Info("dropped", "table", name, "view", opts.View)
	return nil
}

// Compute persists t as a new table and returns a lazy table over it. An
// empty name is replaced with a generated one. The target must not exist.
func (c *Conn) Compute(ctx context.Context, t *Tbl, name string, temporary bool) (*Tbl, error) {
	if name == "" {
		name = c.names.Generate()
	}
	schema, table, err := dialect.ParseQualified(name)
	if err != nil {
		return nil, err
	}
	ok, err := c.exists(ctx, schema, table, false)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, lazyerr.NewTableExists(name)
	}

	sql, err := c.Lower(ctx, t)
	if err != nil {
		return nil, err
	}
	stmt := querysql.CreateTableAs(c.dialect, schema, table, temporary, sql)
	if err := c.transport.Exec(ctx, stmt); err != nil {
		return nil, fmt.Errorf("compute %s: %w", name, err)
	}
	c.logger.Info("computed", "table", name, "temporary", temporary)
	return c.Table(name)
}

// CopyRows inserts literal rows into an existing table.
func (c *Conn) CopyRows(ctx context.Context, name string, cols []string, rows [][]any) error {
	schema, table, err := dialect.ParseQualified(name)
	if err != nil {
		return err
	}
	stmt, err := querysql.InsertValues(c.dialect, schema, table, cols, rows)
	if err != nil {
		return err
	}
	if err := c.transport.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("copy rows into %s: %w", name, err)
	}
	c.logger.Info("rows copied", "table", name, "rows", len(rows))
	return nil
}
