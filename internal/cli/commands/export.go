package commands

import (
	"fmt"

	"github.com/leapstack-labs/regionmap/internal/cli/output"
	"github.com/leapstack-labs/regionmap/internal/export"
	"github.com/spf13/cobra"
)

// DefaultExportDatabase is the DuckDB file written when --database is not set.
const DefaultExportDatabase = "regions.duckdb"

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Database string
	Table    string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the region table to a DuckDB database",
		Long: `Build the region table and write it to a DuckDB table, replacing any
table of the same name. Geometries are stored as WKB; null ratios stay NULL.`,
		Example: `  # Export to regions.duckdb, table "regions"
  regionmap export

  # Export to another database and table
  regionmap export --database warehouse.duckdb --table region_kpis`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "database", DefaultExportDatabase, "DuckDB database file (\":memory:\" for in-memory)")
	cmd.Flags().StringVar(&opts.Table, "table", export.DefaultTable, "Destination table")
	return cmd
}

type exportOutput struct {
	Database string `json:"database"`
	Table    string `json:"table"`
	Rows     int    `json:"rows"`
	RunID    string `json:"run_id,omitempty"`
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	res, err := cc.Build(ctx, TriggerExport)
	if err != nil {
		return err
	}

	path := opts.Database
	if path == ":memory:" {
		path = ""
	}
	exp, err := export.Open(ctx, export.Config{Path: path, Table: opts.Table, Logger: cc.Logger})
	if err != nil {
		return err
	}
	defer func() { _ = exp.Close() }()

	n, err := exp.Write(ctx, res.Table)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	out := exportOutput{Database: opts.Database, Table: opts.Table, Rows: n, RunID: res.RunID}
	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	r.Success(fmt.Sprintf("exported %d regions to %s.%s", n, out.Database, out.Table))
	return nil
}
