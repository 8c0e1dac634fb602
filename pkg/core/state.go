package core

import (
	"context"
	"time"
)

// LoadStatus represents the status of a load run.
type LoadStatus string

// Load status constants.
const (
	LoadStatusRunning   LoadStatus = "running"
	LoadStatusSucceeded LoadStatus = "succeeded"
	LoadStatusFailed    LoadStatus = "failed"
)

// LoadRun records one attempt at building the region table.
type LoadRun struct {
	ID          string
	Trigger     string // "startup", "reload", "check", "export"
	Status      LoadStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string

	Regions      int
	WithData     int
	Duplicates   int
	SourceCount  int
	DurationMsec int64
}

// LoadSummary is what a finished run reports back to the store.
type LoadSummary struct {
	Regions    int
	WithData   int
	Duplicates int
	Sources    []SourceFile
	Duration   time.Duration
}

// Store defines the interface for load-history persistence.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	StartRun(ctx context.Context, trigger string) (*LoadRun, error)
	CompleteRun(ctx context.Context, id string, summary LoadSummary) error
	FailRun(ctx context.Context, id string, errMsg string) error
	GetRun(ctx context.Context, id string) (*LoadRun, error)
	ListRuns(ctx context.Context, limit int) ([]*LoadRun, error)
	GetRunSources(ctx context.Context, id string) ([]SourceFile, error)
}
