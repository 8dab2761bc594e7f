package engine

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/lazyerr"
	"github.com/roach88/lazytbl/internal/querysql"
)

// ListFunctions lists registered user-defined functions of a category
// ("Transform", "Scalar", ...). It always queries the server.
func (c *Conn) ListFunctions(ctx context.Context, category string) ([]string, error) {
	return c.listFunctions(ctx, category)
}

func (c *Conn) listFunctions(ctx context.Context, category string) ([]string, error) {
	res, err := c.transport.Execute(ctx, querysql.FunctionsQuery(category))
	if err != nil {
		return nil, fmt.Errorf("list functions: %w", err)
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) == 0 {
			continue
		}
		name, err := cast.ToStringE(row[0])
		if err != nil {
			return nil, lazyerr.Wrap(lazyerr.CodeQueryExecution, err, "function name %v", row[0])
		}
		names = append(names, name)
	}
	c.logger.Debug("functions listed", "category", category, "count", len(names))
	return names, nil
}

// HasTable reports whether a table exists. name may be schema-qualified.
func (c *Conn) HasTable(ctx context.Context, name string) (bool, error) {
	schema, table, err := dialect.ParseQualified(name)
	if err != nil {
		return false, err
	}
	return c.exists(ctx, schema, table, false)
}

// HasView reports whether a view exists. name may be schema-qualified.
func (c *Conn) HasView(ctx context.Context, name string) (bool, error) {
	schema, table, err := dialect.ParseQualified(name)
	if err != nil {
		return false, err
	}
	return c.exists(ctx, schema, table, true)
}

func (c *Conn) exists(ctx context.Context, schema, table string, view bool) (bool, error) {
	v, err := c.transport.QueryScalar(ctx, querysql.TableExistsQuery(c.dialect, schema, table, view))
	if err != nil {
		return false, fmt.Errorf("check existence of %s: %w", table, err)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return false, lazyerr.Wrap(lazyerr.CodeQueryExecution, err, "existence check returned %v", v)
	}
	return n > 0, nil
}
