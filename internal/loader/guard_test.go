package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/regionmap/internal/testutil"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.geojson")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(101<<20))
	require.NoError(t, f.Close())

	_, err = newTestLoader(t, dir).LoadRegion(path)

	var limitErr *ResourceLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, LimitSize, limitErr.Kind)
	assert.Equal(t, DefaultMaxFileSize, limitErr.Limit)
	assert.Equal(t, int64(101<<20), limitErr.Size)
	assert.True(t, limitErr.IsSecurity())

	var structErr *StructuralError
	assert.NotErrorAs(t, err, &structErr)
	var dataErr *DataError
	assert.NotErrorAs(t, err, &dataErr)
}

func TestGuard_SizeLimitConfigurable(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteCSV(t, dir, "orgs.csv", testutil.OrganizationsHeader,
		"Maykop,Adygeya,100,80,100,90,50,5")

	_, _, err := LoadCSV(path, OrganizationSchema, Guard{MaxFileSize: 16})
	var limitErr *ResourceLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(16), limitErr.Limit)

	_, _, err = LoadCSV(path, OrganizationSchema, Guard{MaxFileSize: 1 << 10})
	assert.NoError(t, err)
}

func TestGuard_Traversal(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		path    string
		blocked bool
	}{
		{name: "escape via dot-dot", base: "/data/regions", path: "/data/regions/../../etc/passwd", blocked: true},
		{name: "sibling directory", base: "/data/regions", path: "/data/regions-old/a.geojson", blocked: true},
		{name: "inside", base: "/data/regions", path: "/data/regions/a.geojson"},
		{name: "inside after dot-dot", base: "/data/regions", path: "/data/regions/x/../a.geojson"},
		{name: "no base", base: "", path: "/etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Guard{BaseDir: tt.base}.CheckPath(tt.path)
			if !tt.blocked {
				assert.NoError(t, err)
				return
			}
			var limitErr *ResourceLimitError
			require.ErrorAs(t, err, &limitErr)
			assert.Equal(t, LimitTraversal, limitErr.Kind)
			assert.True(t, limitErr.IsSecurity())
		})
	}
}

func TestGuard_TraversalCheckedBeforeRead(t *testing.T) {
	_, _, err := Guard{BaseDir: "/data/regions"}.ReadFile("/data/regions/../../etc/passwd", core.SourceRegion)

	var limitErr *ResourceLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, LimitTraversal, limitErr.Kind)
	assert.Contains(t, err.Error(), "path resolves outside /data/regions")
}

func TestGuard_RelativeBase(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	testutil.WriteRegion(t, dir, "regions/a.geojson", "A", 0, 0)

	assert.NoError(t, Guard{BaseDir: "regions"}.CheckPath("regions/a.geojson"))
	assert.Error(t, Guard{BaseDir: "regions"}.CheckPath("regions/../a.geojson"))
}

func TestLoader_BaseDirConfinesCSV(t *testing.T) {
	root := t.TempDir()
	outside := testutil.WriteCSV(t, t.TempDir(), "orgs.csv", testutil.OrganizationsHeader)

	l := New(Config{DataDir: root, BaseDir: root})
	_, _, err := l.LoadOrganizations(outside)

	var limitErr *ResourceLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, LimitTraversal, limitErr.Kind)
}
