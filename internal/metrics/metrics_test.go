package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLoad(t *testing.T) {
	m := New()

	m.ObserveLoad("startup", core.LoadSummary{Regions: 85, WithData: 80, Duplicates: 2, Duration: 40 * time.Millisecond})
	assert.InDelta(t, 1, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("startup", "succeeded")), 0)
	assert.InDelta(t, 85, testutil.ToFloat64(m.Regions), 0)
	assert.InDelta(t, 80, testutil.ToFloat64(m.RegionsWithData), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.DuplicateRegions), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LastLoadSuccess), 0)

	m.ObserveLoadFailure("reload")
	assert.InDelta(t, 1, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("reload", "failed")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.LastLoadSuccess), 0)
	assert.InDelta(t, 85, testutil.ToFloat64(m.Regions), 0, "gauges keep the served table")
}

func TestMiddleware(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/region", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())

	for _, path := range []string{"/region?region=x", "/healthz", "/healthz"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/region", "404")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/healthz", "200")), 0)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "regionmap_http_requests_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
