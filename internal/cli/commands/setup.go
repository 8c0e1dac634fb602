// Package commands implements the regionmap subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/regionmap/internal/cli/output"
	"github.com/leapstack-labs/regionmap/internal/config"
	"github.com/leapstack-labs/regionmap/internal/dataset"
	"github.com/leapstack-labs/regionmap/internal/state"
	"github.com/spf13/cobra"
)

// Load triggers recorded in the history by the commands.
const (
	TriggerStartup = "startup"
	TriggerCheck   = "check"
	TriggerExport  = "export"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the config, logger and renderer the root
// command stored in the context. Without them, as when a command runs
// detached from the root, the config is loaded from the command's flags.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.FromContext(ctx)
	if cfg == nil {
		var err error
		if cfg, err = config.Load(config.Options{Flags: cmd.Flags()}); err != nil {
			return nil, err
		}
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// DatasetConfig returns the data loader configuration.
func (c *CommandContext) DatasetConfig() dataset.Config {
	return dataset.Config{
		DataDir:           c.Cfg.DataDir,
		RegionsDir:        c.Cfg.RegionsDir,
		OrganizationsPath: c.Cfg.OrganizationsPath,
		AnalyticPath:      c.Cfg.AnalyticPath,
		MaxFileSize:       c.Cfg.MaxFileSize,
		Logger:            c.Logger,
	}
}

// OpenStore opens and migrates the load-history database, creating its
// directory when needed. The caller closes the store.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	path := c.Cfg.StatePath
	if path != config.MemoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}
	return store, nil
}

// Runner returns a runner recording into store, which may be nil.
func (c *CommandContext) Runner(store *state.SQLiteStore, observer dataset.Observer) *dataset.Runner {
	r := &dataset.Runner{
		Config:   c.DatasetConfig(),
		Observer: observer,
		Logger:   c.Logger,
	}
	if store != nil {
		r.Store = store
	}
	return r
}

// Build runs one build recorded in the load history. A history database that
// cannot be opened is logged and the build goes ahead without it.
func (c *CommandContext) Build(ctx context.Context, trigger string) (*dataset.Result, error) {
	store, err := c.OpenStore()
	if err != nil {
		c.Logger.Warn("load history unavailable", "path", c.Cfg.StatePath, "error", err)
		store = nil
	} else {
		defer func() { _ = store.Close() }()
	}
	return c.Runner(store, nil).Run(ctx, trigger)
}
