// Package dataset builds the merged region table: every region geometry, left
// joined with its organization row and, optionally, its analytic row.
package dataset

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/regionmap/internal/loader"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"golang.org/x/text/unicode/norm"
)

// Config holds data loader configuration.
type Config struct {
	// DataDir is the root for default input locations.
	DataDir string
	// RegionsDir overrides <DataDir>/regions.
	RegionsDir string
	// OrganizationsPath overrides <DataDir>/analytic/organizations.csv.
	OrganizationsPath string
	// AnalyticPath, when set, joins the analytic CSV as well.
	AnalyticPath string
	// MaxFileSize is the per-file size limit in bytes.
	MaxFileSize int64
	Logger      *slog.Logger
}

// Loader builds region tables. Construct one per build; it holds no cache.
type Loader struct {
	cfg    Config
	files  *loader.Loader
	logger *slog.Logger
}

// New creates a data loader.
func New(cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		cfg: cfg,
		files: loader.New(loader.Config{
			DataDir:     cfg.DataDir,
			MaxFileSize: cfg.MaxFileSize,
			Logger:      logger,
		}),
		logger: logger,
	}
}

// Result is a built table plus what the build observed.
type Result struct {
	Table *core.RegionTable
	// Duplicates lists region files skipped because their name was taken.
	Duplicates []core.SourceFile
	Duration   time.Duration
	// RunID is the load history entry, when one was recorded.
	RunID string
}

// Summary converts the result into what the state store records.
func (r *Result) Summary() core.LoadSummary {
	return core.LoadSummary{
		Regions:    r.Table.Len(),
		WithData:   r.Table.WithData(),
		Duplicates: len(r.Duplicates),
		Sources:    r.Table.Sources(),
		Duration:   r.Duration,
	}
}

// JoinKey normalises a region name for joining.
func JoinKey(name string) string {
	return norm.NFC.String(name)
}

// Build loads every input and returns the merged table.
func (l *Loader) Build() (*core.RegionTable, error) {
	res, err := l.BuildResult()
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// BuildResult is Build with the build details attached.
func (l *Loader) BuildResult() (*Result, error) {
	start := time.Now()

	orgs, orgSrc, err := l.files.LoadOrganizations(l.cfg.OrganizationsPath)
	if err != nil {
		return nil, fmt.Errorf("load organizations: %w", err)
	}

	set, err := l.files.LoadAllRegions(l.cfg.RegionsDir)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	var (
		analytic    []core.AnalyticRecord
		analyticSrc core.SourceFile
		hasAnalytic = l.cfg.AnalyticPath != ""
	)
	if hasAnalytic {
		analytic, analyticSrc, err = l.files.LoadAnalytic(l.cfg.AnalyticPath)
		if err != nil {
			return nil, fmt.Errorf("load analytic data: %w", err)
		}
	}

	rows := join(set.Regions, orgs, analytic)

	sources := make([]core.SourceFile, 0, len(set.Regions)+2)
	sources = append(sources, orgSrc)
	if hasAnalytic {
		sources = append(sources, analyticSrc)
	}
	for _, r := range set.Regions {
		sources = append(sources, r.Source)
	}

	table := core.NewRegionTable(rows, core.TableOptions{
		KeyFunc:     JoinKey,
		HasAnalytic: hasAnalytic,
		Sources:     sources,
		BuiltAt:     time.Now().UTC(),
	})

	l.warnUnmatched(set.Regions, orgs, analytic)

	res := &Result{Table: table, Duplicates: set.Duplicates, Duration: time.Since(start)}
	l.logger.Info("region table built",
		"regions", table.Len(),
		"with_data", table.WithData(),
		"duplicates", len(set.Duplicates),
		"analytic", hasAnalytic,
		"duration", res.Duration)
	return res, nil
}

// join left joins organizations and analytic records onto the geometry rows.
// Each geometry row yields exactly one output row.
func join(regions []core.RegionGeometry, orgs []core.Organization, analytic []core.AnalyticRecord) []core.Region {
	orgByKey := make(map[string]int, len(orgs))
	for i, o := range orgs {
		orgByKey[JoinKey(o.Region)] = i
	}
	analyticByKey := make(map[string]int, len(analytic))
	for i, a := range analytic {
		analyticByKey[JoinKey(a.Region)] = i
	}

	rows := make([]core.Region, 0, len(regions))
	for _, g := range regions {
		key := JoinKey(g.Name)
		row := core.Region{
			Name:       g.Name,
			Properties: g.Properties,
			Geometry:   g.Geometry,
			Source:     g.Source,
		}
		if i, ok := orgByKey[key]; ok {
			org := orgs[i]
			row.Organization = &org
		}
		if i, ok := analyticByKey[key]; ok {
			a := analytic[i]
			row.Analytic = &a
		}
		rows = append(rows, row)
	}
	return rows
}

// warnUnmatched logs input rows that name no known region. They are dropped
// by the left join.
func (l *Loader) warnUnmatched(regions []core.RegionGeometry, orgs []core.Organization, analytic []core.AnalyticRecord) {
	known := make(map[string]bool, len(regions))
	for _, g := range regions {
		known[JoinKey(g.Name)] = true
	}
	for _, o := range orgs {
		if !known[JoinKey(o.Region)] {
			l.logger.Warn("organization has no region geometry", "region", o.Region, "city", o.City)
		}
	}
	for _, a := range analytic {
		if !known[JoinKey(a.Region)] {
			l.logger.Warn("analytic record has no region geometry", "region", a.Region)
		}
	}
}
