package choropleth

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/regionmap/internal/ui/features"
	"github.com/leapstack-labs/regionmap/internal/ui/notifier"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestHandlers(t *testing.T) (*Handlers, *features.TestFixture) {
	t.Helper()
	fixture := features.SetupTestFixture(t, []string{features.AdygeyaRow}, "Adygeya", "Altai")
	return NewHandlers(fixture.Snapshot, fixture.Notifier, fixture.Metrics), fixture
}

func TestMapPage(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.MapPage(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		"<title>Russia map - Regionmap</title>",
		"data-init",
		PathUpdates,
		`id="map-stats" data-version="1"`,
		"Regions: <b>2</b>",
		"With data: <b>1</b>",
		`data-geojson="/api/regions.geojson"`,
		"/static/map.js",
	} {
		assert.Contains(t, body, want)
	}
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		ID         string         `json:"id"`
		Properties map[string]any `json:"properties"`
		Geometry   struct {
			Type string `json:"type"`
		} `json:"geometry"`
	} `json:"features"`
}

func TestRegionsGeoJSON(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.RegionsGeoJSON(rec, httptest.NewRequest(http.MethodGet, PathGeoJSON, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc featureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	adygeya := fc.Features[0]
	assert.Equal(t, "Adygeya", adygeya.ID)
	assert.Equal(t, "Polygon", adygeya.Geometry.Type)
	assert.Equal(t, true, adygeya.Properties[PropHasData])
	assert.InDelta(t, 0.8, adygeya.Properties[PropValue], 1e-9)
	assert.InDelta(t, 0.9, adygeya.Properties[PropCashUse], 1e-9)
	assert.Equal(t, "yellow", adygeya.Properties[PropBand])

	altai := fc.Features[1]
	assert.Equal(t, false, altai.Properties[PropHasData])
	assert.Nil(t, altai.Properties[PropValue])
	assert.Nil(t, altai.Properties[PropStaffing])
	assert.Equal(t, "transparent", altai.Properties[PropColor])
}

func TestMapPageUpdates(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	r := chi.NewRouter()
	r.Get(PathUpdates, h.MapPageUpdates)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+PathUpdates, nil)
	require.NoError(t, err)

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		done <- result{resp, err}
	}()

	require.Eventually(t, func() bool { return fixture.Notifier.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(fixture.Metrics.SSEClients), 0)

	fixture.Notifier.Broadcast(notifier.Event{Version: 1, Err: "load regions: bad file"})

	res := <-done
	require.NoError(t, res.err)
	resp := res.resp
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var got strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		got.WriteString(scanner.Text())
		if strings.Contains(got.String(), "</div>") {
			break
		}
	}
	assert.Contains(t, got.String(), `id="map-stats"`)
	assert.Contains(t, got.String(), "Reload failed: load regions: bad file")
}
