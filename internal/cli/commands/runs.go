package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/regionmap/internal/cli/output"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the load history",
		Long: `List recent builds of the region table, newest first: what started them,
whether they succeeded, how many regions they produced and why they failed.`,
		Example: `  regionmap runs
  regionmap runs --limit 5 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

type runInfo struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Regions     int        `json:"regions"`
	WithData    int        `json:"with_data"`
	Duplicates  int        `json:"duplicates"`
	Sources     int        `json:"sources"`
	DurationMs  int64      `json:"duration_ms"`
	Error       string     `json:"error,omitempty"`
}

func runRuns(cmd *cobra.Command, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", limit)
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	infos := make([]runInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, runInfo{
			ID:          run.ID,
			Trigger:     run.Trigger,
			Status:      string(run.Status),
			StartedAt:   run.StartedAt,
			CompletedAt: run.CompletedAt,
			Regions:     run.Regions,
			WithData:    run.WithData,
			Duplicates:  run.Duplicates,
			Sources:     run.SourceCount,
			DurationMs:  run.DurationMsec,
			Error:       run.Error,
		})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	if len(infos) == 0 {
		r.Println("No runs recorded yet.")
		return nil
	}

	r.Header(1, fmt.Sprintf("Load history (%d runs)", len(infos)))
	styles := r.Styles()
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		status := info.Status
		switch core.LoadStatus(status) {
		case core.LoadStatusSucceeded:
			status = styles.Success.Render(status)
		case core.LoadStatusFailed:
			status = styles.Error.Render(status)
		}
		rows = append(rows, []string{
			shortID(info.ID),
			info.Trigger,
			status,
			info.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%dms", info.DurationMs),
			fmt.Sprintf("%d", info.Regions),
			fmt.Sprintf("%d", info.WithData),
			info.Error,
		})
	}
	r.Table([]string{"Run", "Trigger", "Status", "Started", "Duration", "Regions", "With data", "Error"}, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
