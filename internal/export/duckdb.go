// Package export writes a merged region table into a DuckDB database so it
// can be queried with SQL. Geometry is stored as WKB and as GeoJSON text.
package export

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/regionmap/pkg/core"
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// DefaultTable is the table written when none is configured.
const DefaultTable = "regions"

// Extra columns written after the table's own columns.
const (
	colGeometryWKB     = "geometry_wkb"
	colGeometryGeoJSON = "geometry_geojson"
	colProperties      = "properties"
	colSourcePath      = "source_path"
	colSourceSHA256    = "source_sha256"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// columnTypes maps table columns to DuckDB types. Unlisted columns are VARCHAR.
var columnTypes = map[string]string{
	core.ColValue:            "DOUBLE",
	core.ColStaffing:         "DOUBLE",
	core.ColCashUse:          "DOUBLE",
	core.ColServiceability:   "DOUBLE",
	core.ColAnalyticValue:    "DOUBLE",
	core.ColPercentChange:    "DOUBLE",
	core.ColBudgetMillions:   "DOUBLE",
	core.ColPopulationChange: "DOUBLE",
}

// Config holds exporter configuration.
type Config struct {
	// Path is the DuckDB database file. Empty means in-memory.
	Path string
	// Table is the destination table, replaced on every write.
	Table  string
	Logger *slog.Logger
}

// Exporter writes region tables to DuckDB.
type Exporter struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// Open connects to the DuckDB database named by cfg.
func Open(ctx context.Context, cfg Config) (*Exporter, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	e, err := NewWithDB(db, cfg.Table, cfg.Logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

// NewWithDB wraps an existing connection.
func NewWithDB(db *sql.DB, table string, logger *slog.Logger) (*Exporter, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{db: db, table: table, logger: logger}, nil
}

// Close closes the connection.
func (e *Exporter) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Write replaces the destination table with the rows of t in one transaction.
// It returns the number of rows written.
func (e *Exporter) Write(ctx context.Context, t *core.RegionTable) (int, error) {
	cols := exportColumns(t)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, CreateTableSQL(e.table, cols)); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", e.table, err)
	}

	insert := InsertSQL(e.table, cols)
	n := 0
	for _, r := range t.Regions() {
		args, err := rowArgs(r, cols)
		if err != nil {
			return 0, fmt.Errorf("region %s: %w", r.Name, err)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return 0, fmt.Errorf("failed to insert region %s: %w", r.Name, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit export: %w", err)
	}
	e.logger.Info("exported regions", "table", e.table, "rows", n)
	return n, nil
}

// exportColumns lists the destination columns: the table columns with the
// geometry column expanded, then properties and source columns.
func exportColumns(t *core.RegionTable) []string {
	var cols []string
	for _, c := range t.Columns() {
		if c == core.ColGeometry {
			cols = append(cols, colGeometryWKB, colGeometryGeoJSON)
			continue
		}
		cols = append(cols, c)
	}
	return append(cols, colProperties, colSourcePath, colSourceSHA256)
}

// CreateTableSQL returns the DDL that (re)creates table for cols.
func CreateTableSQL(table string, cols []string) string {
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		typ := "VARCHAR"
		switch {
		case c == colGeometryWKB:
			typ = "BLOB"
		case columnTypes[c] != "":
			typ = columnTypes[c]
		}
		if c == core.ColName {
			typ += " PRIMARY KEY"
		}
		defs = append(defs, fmt.Sprintf("%s %s", c, typ))
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

// InsertSQL returns the parameterised insert for cols.
func InsertSQL(table string, cols []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), marks)
}

func rowArgs(r core.Region, cols []string) ([]any, error) {
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		switch c {
		case colGeometryWKB:
			if r.Geometry == nil {
				args = append(args, nil)
				continue
			}
			b, err := wkb.Marshal(r.Geometry, binary.LittleEndian)
			if err != nil {
				return nil, fmt.Errorf("encode wkb: %w", err)
			}
			args = append(args, b)
		case colGeometryGeoJSON:
			if r.Geometry == nil {
				args = append(args, nil)
				continue
			}
			b, err := geojson.Marshal(r.Geometry)
			if err != nil {
				return nil, fmt.Errorf("encode geojson: %w", err)
			}
			args = append(args, string(b))
		case colProperties:
			b, err := json.Marshal(r.Properties)
			if err != nil {
				return nil, fmt.Errorf("encode properties: %w", err)
			}
			args = append(args, string(b))
		case colSourcePath:
			args = append(args, r.Source.Path)
		case colSourceSHA256:
			args = append(args, r.Source.SHA256)
		default:
			args = append(args, r.Column(c))
		}
	}
	return args, nil
}
