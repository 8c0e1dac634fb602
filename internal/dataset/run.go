package dataset

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/regionmap/pkg/core"
)

// Observer receives the outcome of every build.
type Observer interface {
	ObserveLoad(trigger string, summary core.LoadSummary)
	ObserveLoadFailure(trigger string)
}

// Runner builds tables with a fresh Loader per build and records each
// attempt in the load history and the observer. Both are optional.
type Runner struct {
	Config   Config
	Store    core.Store
	Observer Observer
	Logger   *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Run performs one build. A failing history store is logged, not returned:
// the build result does not depend on it.
func (r *Runner) Run(ctx context.Context, trigger string) (*Result, error) {
	logger := r.logger()
	cfg := r.Config
	if cfg.Logger == nil {
		cfg.Logger = logger
	}

	var run *core.LoadRun
	if r.Store != nil {
		var err error
		if run, err = r.Store.StartRun(ctx, trigger); err != nil {
			logger.Warn("failed to record load run", "trigger", trigger, "error", err)
			run = nil
		}
	}

	res, buildErr := New(cfg).BuildResult()
	if buildErr != nil {
		if r.Observer != nil {
			r.Observer.ObserveLoadFailure(trigger)
		}
		if run != nil {
			if err := r.Store.FailRun(ctx, run.ID, buildErr.Error()); err != nil {
				logger.Warn("failed to record load failure", "run", run.ID, "error", err)
			}
		}
		return nil, buildErr
	}

	summary := res.Summary()
	if r.Observer != nil {
		r.Observer.ObserveLoad(trigger, summary)
	}
	if run != nil {
		if err := r.Store.CompleteRun(ctx, run.ID, summary); err != nil {
			logger.Warn("failed to record load run", "run", run.ID, "error", err)
		}
		res.RunID = run.ID
	}
	return res, nil
}

// Refresh runs a build and swaps the result into snap. On failure the
// snapshot keeps serving the previous table.
func (r *Runner) Refresh(ctx context.Context, snap *Snapshot, trigger string) (*Result, error) {
	res, err := r.Run(ctx, trigger)
	if err != nil {
		r.logger().Error("region table rebuild failed, keeping previous table",
			"trigger", trigger, "version", snap.Version(), "error", err)
		return nil, err
	}
	snap.Store(res.Table)
	return res, nil
}
