// Package features provides shared test utilities for UI feature tests.
package features

import (
	"testing"

	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/regionmap/internal/dataset"
	"github.com/leapstack-labs/regionmap/internal/metrics"
	"github.com/leapstack-labs/regionmap/internal/testutil"
	"github.com/leapstack-labs/regionmap/internal/ui/notifier"
	"github.com/stretchr/testify/require"
)

// AdygeyaRow is an organizations row giving Adygeya the metrics
// 0.8, 0.9, 0.9 and value 0.8.
const AdygeyaRow = "Maykop,Adygeya,100,80,100,90,50,5"

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	DataDir      string
	Runner       *dataset.Runner
	Snapshot     *dataset.Snapshot
	Notifier     *notifier.Notifier
	Metrics      *metrics.Metrics
	SessionStore *sessions.CookieStore
}

// SetupTestFixture builds a table from a data directory holding orgRows and
// one region file per name in regions.
func SetupTestFixture(t *testing.T, orgRows []string, regions ...string) *TestFixture {
	t.Helper()

	dir := testutil.DataDir(t, orgRows, nil, regions...)
	m := metrics.New()
	runner := &dataset.Runner{
		Config:   dataset.Config{DataDir: dir},
		Observer: m,
		Logger:   testutil.NewTestLogger(t),
	}
	res, err := runner.Run(t.Context(), "startup")
	require.NoError(t, err)

	return &TestFixture{
		DataDir:      dir,
		Runner:       runner,
		Snapshot:     dataset.NewSnapshot(res.Table),
		Notifier:     notifier.New(),
		Metrics:      m,
		SessionStore: sessions.NewCookieStore([]byte("test-session-secret-32-bytes-long")),
	}
}
