// Package loader reads the region dashboard inputs: the analytic and
// organizations CSV files and the directory of per-region GeoJSON files.
//
// Every file passes through a Guard (size limit, optional containment in a
// base directory) before it is read, and every record passes through the
// validators in internal/validate before it is returned.
package loader

import (
	"log/slog"
	"path/filepath"
)

// Default locations relative to the data directory.
const (
	DefaultDataDir           = "data"
	DefaultAnalyticFile      = "analytic/data.csv"
	DefaultOrganizationsFile = "analytic/organizations.csv"
	DefaultRegionsDir        = "regions"
)

// Config holds loader configuration.
type Config struct {
	// DataDir is the root the default file locations are resolved against.
	DataDir string
	// MaxFileSize is the per-file size limit in bytes (default 100 MiB).
	MaxFileSize int64
	// BaseDir, when set, confines CSV reads to this directory.
	BaseDir string
	Logger  *slog.Logger
}

// Loader reads and validates input files.
type Loader struct {
	dataDir string
	guard   Guard
	logger  *slog.Logger
}

// New creates a loader.
func New(cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	return &Loader{
		dataDir: dataDir,
		guard:   Guard{MaxFileSize: cfg.MaxFileSize, BaseDir: cfg.BaseDir},
		logger:  logger,
	}
}

// AnalyticPath returns the default analytic CSV path.
func (l *Loader) AnalyticPath() string {
	return filepath.Join(l.dataDir, DefaultAnalyticFile)
}

// OrganizationsPath returns the default organizations CSV path.
func (l *Loader) OrganizationsPath() string {
	return filepath.Join(l.dataDir, DefaultOrganizationsFile)
}

// RegionsDir returns the default regions directory.
func (l *Loader) RegionsDir() string {
	return filepath.Join(l.dataDir, DefaultRegionsDir)
}

// Guard returns the guard applied to CSV reads.
func (l *Loader) Guard() Guard {
	return l.guard
}
