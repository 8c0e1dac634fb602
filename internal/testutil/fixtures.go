package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// OrganizationsHeader is the header line of an organizations CSV.
const OrganizationsHeader = "city,region,by_staff,by_list,buget_limits,cash_execution,equipment,faulty_equipment"

// AnalyticHeader is the header line of an analytic CSV.
const AnalyticHeader = "region_name,region,value,percent_change,budget_millions,population_change,details"

// WriteFile writes content to dir/name, creating parent directories, and
// returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteCSV writes a CSV file made of header and rows.
func WriteCSV(t testing.TB, dir, name, header string, rows ...string) string {
	t.Helper()
	lines := append([]string{header}, rows...)
	return WriteFile(t, dir, name, strings.Join(lines, "\n")+"\n")
}

// Square returns the coordinates of a closed unit square polygon at (x, y).
func Square(x, y float64) [][][]float64 {
	return [][][]float64{{
		{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y},
	}}
}

// RegionFeature returns a single-feature GeoJSON document for a polygon
// region. Extra properties are merged over the defaults.
func RegionFeature(t testing.TB, name string, x, y float64, extra map[string]any) string {
	t.Helper()
	props := map[string]any{
		"name":       name,
		"cartodb_id": 1,
		"created_at": "2013-12-04T04:23:51+0100",
		"updated_at": "2013-12-04T08:09:06+0100",
		"name_latin": name,
	}
	for k, v := range extra {
		props[k] = v
	}
	doc := map[string]any{
		"type":       "Feature",
		"properties": props,
		"geometry": map[string]any{
			"type":        "Polygon",
			"coordinates": Square(x, y),
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(data)
}

// WriteRegion writes a region file named file into dir.
func WriteRegion(t testing.TB, dir, file, name string, x, y float64) string {
	t.Helper()
	return WriteFile(t, dir, file, RegionFeature(t, name, x, y, nil))
}

// DataDir lays out a complete data directory: organizations CSV, analytic CSV
// and one region file per name. It returns the data directory.
func DataDir(t testing.TB, orgRows []string, analyticRows []string, regions ...string) string {
	t.Helper()
	dir := t.TempDir()
	WriteCSV(t, dir, "analytic/organizations.csv", OrganizationsHeader, orgRows...)
	WriteCSV(t, dir, "analytic/data.csv", AnalyticHeader, analyticRows...)
	for i, name := range regions {
		WriteRegion(t, filepath.Join(dir, "regions"), name+".geojson", name, float64(i*2), 0)
	}
	return dir
}
