package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/regionmap/internal/cli/output"
	"github.com/leapstack-labs/regionmap/internal/dataset"
	"github.com/leapstack-labs/regionmap/internal/loader"
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the input files",
		Long: `Load and validate every input file, build the region table and report
what was found. The command exits non-zero when any file is rejected; data
errors list every failing row.

Each check is recorded in the load history (see "regionmap runs").`,
		Example: `  # Validate the default data directory
  regionmap check

  # Validate another data directory, as JSON
  regionmap check --data-dir ./fixtures -o json`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
}

// checkOutput is the JSON shape of a check.
type checkOutput struct {
	OK         bool         `json:"ok"`
	RunID      string       `json:"run_id,omitempty"`
	Regions    int          `json:"regions"`
	WithData   int          `json:"with_data"`
	Duplicates []string     `json:"duplicates"`
	Sources    []sourceInfo `json:"sources"`
	DurationMs int64        `json:"duration_ms"`
	Error      string       `json:"error,omitempty"`
	Rows       []rowIssue   `json:"rows,omitempty"`
}

type sourceInfo struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type rowIssue struct {
	Path  string `json:"path"`
	Line  int    `json:"line"`
	Error string `json:"error"`
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	res, buildErr := cc.Build(cmd.Context(), TriggerCheck)
	if buildErr != nil {
		renderCheckFailure(r, buildErr)
		return fmt.Errorf("check failed: %w", buildErr)
	}

	out := newCheckOutput(res)
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	default:
		r.Header(1, "Input check")
		r.KeyValue("Regions", fmt.Sprintf("%d", out.Regions))
		r.KeyValue("With data", fmt.Sprintf("%d", out.WithData))
		r.KeyValue("Duration", fmt.Sprintf("%dms", out.DurationMs))
		if out.RunID != "" {
			r.KeyValue("Run", out.RunID)
		}
		r.Println("")
		rows := make([][]string, 0, len(out.Sources))
		for _, s := range out.Sources {
			rows = append(rows, []string{s.Kind, s.Path, fmt.Sprintf("%d", s.Size), shortHash(s.SHA256)})
		}
		r.Table([]string{"Kind", "Path", "Bytes", "SHA-256"}, rows)
		for _, d := range out.Duplicates {
			r.Warning("skipped duplicate region file " + d)
		}
		r.Success("all input files are valid")
		return nil
	}
}

func newCheckOutput(res *dataset.Result) checkOutput {
	summary := res.Summary()
	out := checkOutput{
		OK:         true,
		RunID:      res.RunID,
		Regions:    summary.Regions,
		WithData:   summary.WithData,
		Duplicates: make([]string, 0, len(res.Duplicates)),
		Sources:    make([]sourceInfo, 0, len(summary.Sources)),
		DurationMs: summary.Duration.Milliseconds(),
	}
	for _, d := range res.Duplicates {
		out.Duplicates = append(out.Duplicates, d.Path)
	}
	for _, s := range summary.Sources {
		out.Sources = append(out.Sources, sourceInfo{Path: s.Path, Kind: string(s.Kind), Size: s.Size, SHA256: s.SHA256})
	}
	return out
}

func renderCheckFailure(r *output.Renderer, err error) {
	var dataErr *loader.DataError
	isData := errors.As(err, &dataErr)

	if r.EffectiveMode() == output.ModeJSON {
		out := checkOutput{Error: err.Error(), Duplicates: []string{}, Sources: []sourceInfo{}}
		if isData {
			for _, row := range dataErr.Rows {
				out.Rows = append(out.Rows, rowIssue{Path: dataErr.Path, Line: row.Line, Error: row.Err.Error()})
			}
		}
		_ = r.JSON(out)
		return
	}

	var limitErr *loader.ResourceLimitError
	switch {
	case isData && len(dataErr.Rows) > 0:
		r.Error(fmt.Sprintf("%s: %d row(s) rejected", dataErr.Path, len(dataErr.Rows)))
		rows := make([][]string, 0, len(dataErr.Rows))
		for _, row := range dataErr.Rows {
			rows = append(rows, []string{fmt.Sprintf("%d", row.Line), row.Err.Error()})
		}
		r.Table([]string{"Line", "Problem"}, rows)
	case errors.As(err, &limitErr) && limitErr.IsSecurity():
		r.Error("rejected by file guard: " + err.Error())
	default:
		r.Error(err.Error())
	}
}

func shortHash(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
