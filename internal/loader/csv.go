package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/regionmap/internal/validate"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"golang.org/x/text/unicode/norm"
)

// Schema describes one fixed-schema CSV file.
type Schema[T any] struct {
	// Kind is recorded on the SourceFile.
	Kind core.SourceKind
	// Columns must all be present in the header.
	Columns []string
	// Drop lists columns removed from every row before validation.
	Drop []string
	// Validate turns one raw row into a record.
	Validate func(map[string]any) (T, error)
	// Key returns the uniqueness key of a record. Nil disables the check.
	Key func(T) string
}

// AnalyticSchema is the schema of the analytic CSV.
var AnalyticSchema = Schema[core.AnalyticRecord]{
	Kind:     core.SourceAnalytic,
	Columns:  core.AnalyticColumns,
	Validate: validate.ValidateAnalytic,
	Key:      func(r core.AnalyticRecord) string { return r.Region },
}

// OrganizationSchema is the schema of the organizations CSV. Derived metric
// columns are recomputed, so any copy of them in the file is discarded.
var OrganizationSchema = Schema[core.OrganizationRecord]{
	Kind:     core.SourceOrganizations,
	Columns:  core.OrganizationColumns,
	Drop:     core.DerivedColumns,
	Validate: validate.ValidateOrganization,
	Key:      func(r core.OrganizationRecord) string { return r.Region },
}

// LoadAnalytic loads the analytic CSV. An empty path means the default location.
func (l *Loader) LoadAnalytic(path string) ([]core.AnalyticRecord, core.SourceFile, error) {
	if path == "" {
		path = l.AnalyticPath()
	}
	records, src, err := LoadCSV(path, AnalyticSchema, l.guard)
	if err != nil {
		return nil, src, err
	}
	l.logger.Debug("loaded analytic records", "path", path, "rows", len(records))
	return records, src, nil
}

// LoadOrganizations loads the organizations CSV and attaches derived metrics.
// An empty path means the default location.
func (l *Loader) LoadOrganizations(path string) ([]core.Organization, core.SourceFile, error) {
	if path == "" {
		path = l.OrganizationsPath()
	}
	records, src, err := LoadCSV(path, OrganizationSchema, l.guard)
	if err != nil {
		return nil, src, err
	}

	orgs := make([]core.Organization, 0, len(records))
	for _, rec := range records {
		orgs = append(orgs, core.NewOrganization(rec))
	}
	l.logger.Debug("loaded organizations", "path", path, "rows", len(orgs))
	return orgs, src, nil
}

// LoadCSV reads path with guard and validates every row against schema.
// All failing rows are reported together in a *DataError.
func LoadCSV[T any](path string, schema Schema[T], guard Guard) ([]T, core.SourceFile, error) {
	data, src, err := guard.ReadFile(path, schema.Kind)
	if err != nil {
		return nil, src, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, src, structural(path, "empty file, header expected", nil)
	}
	if err != nil {
		return nil, src, structural(path, "unreadable header", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	if missing := missingColumns(header, schema.Columns); len(missing) > 0 {
		return nil, src, &StructuralError{
			Path:   path,
			Reason: "missing columns: " + strings.Join(missing, ", "),
			Found:  -1,
		}
	}

	drop := make(map[string]bool, len(schema.Drop))
	for _, c := range schema.Drop {
		drop[c] = true
	}

	var (
		records []T
		rowErrs []RowError
		lines   []int
	)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, src, structural(path, "malformed CSV", err)
		}
		line, _ := r.FieldPos(0)

		raw := make(map[string]any, len(header))
		for i, col := range header {
			if drop[col] {
				continue
			}
			raw[col] = row[i]
		}

		rec, err := schema.Validate(raw)
		if err != nil {
			verr, ok := validate.AsValidationError(err)
			if !ok {
				return nil, src, fmt.Errorf("%s line %d: %w", path, line, err)
			}
			rowErrs = append(rowErrs, RowError{Line: line, Err: verr})
			continue
		}
		records = append(records, rec)
		lines = append(lines, line)
	}

	if len(rowErrs) > 0 {
		return nil, src, &DataError{Path: path, Rows: rowErrs}
	}
	if schema.Key != nil {
		if err := checkUnique(path, records, lines, schema.Key); err != nil {
			return nil, src, err
		}
	}
	return records, src, nil
}

func missingColumns(header, required []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range required {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// checkUnique rejects files where two records share a join key.
func checkUnique[T any](path string, records []T, lines []int, key func(T) string) error {
	seen := make(map[string]int, len(records))
	var dups []string
	for i, rec := range records {
		k := norm.NFC.String(key(rec))
		if first, ok := seen[k]; ok {
			dups = append(dups, fmt.Sprintf("%q on lines %d and %d", key(rec), lines[first], lines[i]))
			continue
		}
		seen[k] = i
	}
	if len(dups) > 0 {
		return &DataError{Path: path, Message: "duplicate region " + strings.Join(dups, ", ")}
	}
	return nil
}
