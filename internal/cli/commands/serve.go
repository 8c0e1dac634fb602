package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/regionmap/internal/config"
	"github.com/leapstack-labs/regionmap/internal/dataset"
	"github.com/leapstack-labs/regionmap/internal/metrics"
	"github.com/leapstack-labs/regionmap/internal/state"
	"github.com/leapstack-labs/regionmap/internal/ui"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the region dashboard",
		Long: `Build the region table and serve the dashboard:

- /                     choropleth map of the regions
- /region?region=NAME   KPI page of one region
- /api/regions.geojson  the merged table as GeoJSON
- /metrics, /healthz    operational endpoints

A failing initial build is fatal. With --watch (the default) the table is
rebuilt when an input file changes; a failing rebuild keeps the previous
table and reports the error on open pages.`,
		Example: `  # Serve on the default address
  regionmap serve

  # Serve on all interfaces without watching the inputs
  regionmap serve --host 0.0.0.0 --port 9000 --watch=false`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("host", config.DefaultHost, "Address to listen on")
	cmd.Flags().Int("port", config.DefaultPort, "Port to serve on")
	cmd.Flags().Bool("watch", true, "Rebuild the table when input files change")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	logger := cc.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *state.SQLiteStore
	if s, err := cc.OpenStore(); err != nil {
		logger.Warn("load history unavailable", "path", cc.Cfg.StatePath, "error", err)
	} else {
		store = s
		defer func() { _ = store.Close() }()
	}

	m := metrics.New()
	runner := cc.Runner(store, m)
	res, err := runner.Run(ctx, TriggerStartup)
	if err != nil {
		return fmt.Errorf("initial load failed: %w", err)
	}
	for _, dup := range res.Duplicates {
		logger.Warn("skipped duplicate region file", "path", dup.Path)
	}
	logger.Info("region table loaded",
		"regions", res.Table.Len(), "with_data", res.Table.WithData(), "duration", res.Duration)

	srv := ui.NewServer(ui.Config{
		Addr:          cc.Cfg.Addr(),
		Watch:         cc.Cfg.Server.Watch,
		SessionSecret: cc.Cfg.Server.SessionSecret,
		Runner:        runner,
		Snapshot:      dataset.NewSnapshot(res.Table),
		Metrics:       m,
		Logger:        logger,
	})

	cc.Renderer.Printf("Serving %d regions on http://%s\n", res.Table.Len(), cc.Cfg.Addr())
	cc.Renderer.Println("Press Ctrl+C to stop")

	return srv.Serve(ctx)
}
