package dataset

import (
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/regionmap/internal/loader"
	"github.com/leapstack-labs/regionmap/internal/testutil"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func build(t *testing.T, cfg Config) *Result {
	t.Helper()
	cfg.Logger = testutil.NewTestLogger(t)
	res, err := New(cfg).BuildResult()
	require.NoError(t, err)
	return res
}

func TestBuild_Adygeya(t *testing.T) {
	dir := testutil.DataDir(t,
		[]string{"Maykop,Adygeya,100,80,100,90,50,5"},
		nil,
		"Adygeya", "Altai")

	res := build(t, Config{DataDir: dir})
	table := res.Table

	r, ok := table.Lookup("Adygeya")
	require.True(t, ok)
	require.NotNil(t, r.Organization)
	m := r.Organization.Metrics
	assert.InDelta(t, 0.80, *m.Staffing, 1e-9)
	assert.InDelta(t, 0.90, *m.CashUse, 1e-9)
	assert.InDelta(t, 0.90, *m.Serviceability, 1e-9)
	assert.InDelta(t, 0.80, *m.Value, 1e-9)
	_, isPoly := r.Geometry.(*geom.Polygon)
	assert.True(t, isPoly, "geometry stays typed after the join")

	altai, ok := table.Lookup("Altai")
	require.True(t, ok)
	assert.Nil(t, altai.Organization)
	assert.Nil(t, altai.Column(core.ColValue))
	assert.Nil(t, altai.Column(core.ColStaffing))

	assert.Equal(t, 1, table.WithData())
	assert.False(t, table.HasAnalytic())

	summary := res.Summary()
	assert.Equal(t, 2, summary.Regions)
	assert.Equal(t, 1, summary.WithData)
	assert.Len(t, summary.Sources, 3, "organizations plus two region files")
}

func TestBuild_AdygeyaWithoutOrganization(t *testing.T) {
	dir := testutil.DataDir(t,
		[]string{"Gorno-Altaysk,Altai,10,8,10,9,5,0"},
		nil,
		"Adygeya", "Altai")

	table := build(t, Config{DataDir: dir}).Table

	r, ok := table.Lookup("Adygeya")
	require.True(t, ok, "region is present even without an organization row")
	assert.False(t, r.HasData())
	for _, col := range []string{core.ColValue, core.ColStaffing, core.ColCashUse, core.ColServiceability} {
		assert.Nil(t, r.Column(col), col)
	}
}

func TestBuild_UniquenessAndCompleteness(t *testing.T) {
	dir := testutil.DataDir(t,
		[]string{
			"Maykop,Adygeya,100,80,100,90,50,5",
			"Nowhere,Atlantis,10,8,10,9,5,0",
		},
		nil,
		"Adygeya", "Altai", "Tyva")
	// A second file for an existing region, sorted after the first.
	testutil.WriteRegion(t, filepath.Join(dir, "regions"), "Adygeya_copy.geojson", "Adygeya", 50, 50)

	logger, logs := testutil.NewCaptureLogger()
	res, err := New(Config{DataDir: dir, Logger: logger}).BuildResult()
	require.NoError(t, err)
	table := res.Table

	assert.Equal(t, []string{"Adygeya", "Altai", "Tyva"}, table.Names())
	assert.Equal(t, 3, table.Len(), "one row per distinct geometry name")
	assert.Len(t, res.Duplicates, 1)

	_, ok := table.Lookup("Atlantis")
	assert.False(t, ok, "metrics never appear for a region without geometry")
	assert.Contains(t, logs.String(), "organization has no region geometry")

	seen := map[string]int{}
	for _, r := range table.Regions() {
		seen[r.Name]++
	}
	for name, n := range seen {
		assert.Equal(t, 1, n, name)
	}
}

func TestBuild_AnalyticJoin(t *testing.T) {
	dir := testutil.DataDir(t,
		[]string{"Maykop,Adygeya,100,80,100,90,50,5"},
		[]string{"Республика Адыгея,Adygeya,3.5,1,2,3,steady"},
		"Adygeya", "Altai")

	table := build(t, Config{DataDir: dir, AnalyticPath: filepath.Join(dir, "analytic", "data.csv")}).Table

	assert.True(t, table.HasAnalytic())
	assert.Contains(t, table.Columns(), core.ColAnalyticValue)

	r, _ := table.Lookup("Adygeya")
	require.NotNil(t, r.Analytic)
	assert.InDelta(t, 3.5, r.Column(core.ColAnalyticValue).(float64), 1e-9)
	assert.InDelta(t, 0.8, r.Column(core.ColValue).(float64), 1e-9)

	altai, _ := table.Lookup("Altai")
	assert.Nil(t, altai.Column(core.ColDetails))
}

func TestBuild_UnicodeNormalisedJoin(t *testing.T) {
	// "Й" precomposed in the CSV, decomposed in the geometry file.
	composed := "\u0419oshkar-Ola"
	decomposed := "\u0418\u0306oshkar-Ola"
	dir := testutil.DataDir(t, []string{"City," + composed + ",10,8,10,9,5,0"}, nil)
	testutil.WriteRegion(t, filepath.Join(dir, "regions"), "mari.geojson", decomposed, 0, 0)

	table := build(t, Config{DataDir: dir}).Table

	r, ok := table.Lookup(composed)
	require.True(t, ok)
	assert.True(t, r.HasData())
}

func TestBuild_Errors(t *testing.T) {
	t.Run("invalid organization aborts", func(t *testing.T) {
		dir := testutil.DataDir(t, []string{"Maykop,Adygeya,50,60,100,90,50,5"}, nil, "Adygeya")
		_, err := New(Config{DataDir: dir}).Build()
		var dataErr *loader.DataError
		require.ErrorAs(t, err, &dataErr)
		assert.Contains(t, err.Error(), "load organizations")
	})

	t.Run("no regions aborts", func(t *testing.T) {
		dir := testutil.DataDir(t, nil, nil)
		testutil.WriteFile(t, filepath.Join(dir, "regions"), "x.txt", "")
		_, err := New(Config{DataDir: dir}).Build()
		var structErr *loader.StructuralError
		require.ErrorAs(t, err, &structErr)
	})

	t.Run("oversized file aborts", func(t *testing.T) {
		dir := testutil.DataDir(t, []string{"Maykop,Adygeya,100,80,100,90,50,5"}, nil, "Adygeya")
		_, err := New(Config{DataDir: dir, MaxFileSize: 10}).Build()
		var limitErr *loader.ResourceLimitError
		require.ErrorAs(t, err, &limitErr)
	})
}

func TestSnapshot(t *testing.T) {
	first := core.NewRegionTable([]core.Region{{Name: "A"}}, core.TableOptions{})
	second := core.NewRegionTable([]core.Region{{Name: "A"}, {Name: "B"}}, core.TableOptions{})

	s := NewSnapshot(first)
	assert.Same(t, first, s.Load())
	assert.Equal(t, uint64(1), s.Version())

	s.Store(second)
	assert.Same(t, second, s.Load())
	assert.Equal(t, uint64(2), s.Version())
	assert.Equal(t, 1, first.Len(), "the old table is untouched")
}
