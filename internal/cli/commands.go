package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/lazytbl/internal/engine"
	"github.com/roach88/lazytbl/internal/remotefn"
)

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <plan.yaml>",
		Short: "Print the SQL a plan lowers to",
		Long: `Lower a plan file to a single SQL statement without running it.

The server is still consulted for transform functions and, where the plan
needs them, column names.

Example:
  lazytbl render top_regions.yaml
  lazytbl render --profile prod --format json top_regions.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, func(ctx context.Context, s *session, out *OutputFormatter) error {
				tbl, err := buildPlan(ctx, s, args[0])
				if err != nil {
					return err
				}
				sql, err := tbl.SQL(ctx)
				if err != nil {
					return err
				}
				if out.Format == "json" {
					return out.Success(map[string]string{"sql": sql})
				}
				return out.Success(sql)
			})
		},
	}
}

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Limit int64
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <plan.yaml>",
		Short: "Run a plan and print its rows",
		Long: `Run a plan file and print the result.

The row limit defaults to the profile's row_limit; -1 returns every row.
Plans ending in head or tail are never limited further on the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, func(ctx context.Context, s *session, out *OutputFormatter) error {
				tbl, err := buildPlan(ctx, s, args[0])
				if err != nil {
					return err
				}
				limit := s.profile.RowLimit
				if cmd.Flags().Changed("limit") {
					limit = opts.Limit
				}
				res, err := tbl.Collect(ctx, limit)
				if err != nil {
					return err
				}
				return out.Rows(res)
			})
		},
	}

	cmd.Flags().Int64VarP(&opts.Limit, "limit", "n", -1, "maximum rows to fetch (-1 for all)")
	return cmd
}

// ComputeOptions holds flags for the compute command.
type ComputeOptions struct {
	*RootOptions
	Name      string
	Temporary bool
}

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComputeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compute <plan.yaml>",
		Short: "Persist a plan's result as a table",
		Long: `Run CREATE TABLE ... AS for a plan file and print the new table's name.

Without --name a time-sortable name is generated. The target must not exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, func(ctx context.Context, s *session, out *OutputFormatter) error {
				tbl, err := buildPlan(ctx, s, args[0])
				if err != nil {
					return err
				}
				computed, err := s.conn.Compute(ctx, tbl, opts.Name, opts.Temporary)
				if err != nil {
					return err
				}
				_, name := computed.Node().TableName()
				if out.Format == "json" {
					return out.Success(map[string]any{"table": name, "temporary": opts.Temporary})
				}
				return out.Success(name)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "target table name (default generated)")
	cmd.Flags().BoolVar(&opts.Temporary, "temporary", false, "create a temporary table")
	return cmd
}

// DropOptions holds flags for the drop command.
type DropOptions struct {
	*RootOptions
	View     bool
	IfExists bool
}

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DropOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table or view",
		Long: `Drop a table or view after checking that it exists.

A missing target fails with TABLE_NOT_FOUND unless --if-exists is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, func(ctx context.Context, s *session, out *OutputFormatter) error {
				err := s.conn.DropTable(ctx, args[0], engine.DropOptions{View: opts.View, IgnoreMissing: opts.IfExists})
				if err != nil {
					return err
				}
				if out.Format == "json" {
					return out.Success(map[string]any{"dropped": args[0], "view": opts.View})
				}
				return out.Success("dropped " + args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&opts.View, "view", false, "drop a view instead of a table")
	cmd.Flags().BoolVar(&opts.IfExists, "if-exists", false, "succeed when the target is missing")
	return cmd
}

// ExistsOptions holds flags for the exists command.
type ExistsOptions struct {
	*RootOptions
	View bool
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExistsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exists <table>",
		Short: "Report whether a table or view exists",
		Long: `Look a table or view up in the server catalog.

Exits with code 1 when it does not exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var found bool
			err := rootOpts.withSession(cmd, func(ctx context.Context, s *session, out *OutputFormatter) error {
				var err error
				if opts.View {
					found, err = s.conn.HasView(ctx, args[0])
				} else {
					found, err = s.conn.HasTable(ctx, args[0])
				}
				if err != nil {
					return err
				}
				if out.Format == "json" {
					return out.Success(map[string]any{"name": args[0], "exists": found})
				}
				return out.Success(found)
			})
			if err != nil {
				return err
			}
			if !found {
				return NewExitError(ExitFailure, args[0]+" does not exist")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.View, "view", false, "look up a view instead of a table")
	return cmd
}

// FunctionsOptions holds flags for the functions command.
type FunctionsOptions struct {
	*RootOptions
	Category string
}

// NewFunctionsCommand creates the functions command.
func NewFunctionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FunctionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List user-defined functions",
		Long: `List user-defined functions registered on the server.

Transform functions are the ones a select step invokes remotely.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, func(ctx context.Context, s *session, out *OutputFormatter) error {
				names, err := s.conn.ListFunctions(ctx, opts.Category)
				if err != nil {
					return err
				}
				if out.Format == "json" {
					return out.Success(map[string]any{"category": opts.Category, "functions": names})
				}
				for _, n := range names {
					if err := out.Success(n); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", remotefn.CategoryTransform, "function category (Transform, Scalar, Aggregate, Analytic; empty for all)")
	return cmd
}
