// Package choropleth provides the map page: the region map, its live stats
// panel and the GeoJSON endpoint the map draws from.
package choropleth

import (
	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/regionmap/internal/dataset"
	"github.com/leapstack-labs/regionmap/internal/metrics"
	"github.com/leapstack-labs/regionmap/internal/ui/notifier"
)

// Route paths.
const (
	PathMap     = "/"
	PathUpdates = "/updates"
	PathGeoJSON = "/api/regions.geojson"
)

// SetupRoutes configures routes for the map feature.
func SetupRoutes(router chi.Router, snap *dataset.Snapshot, notify *notifier.Notifier, m *metrics.Metrics) {
	handlers := NewHandlers(snap, notify, m)

	router.Get(PathMap, handlers.MapPage)
	router.Get(PathUpdates, handlers.MapPageUpdates)
	router.Get(PathGeoJSON, handlers.RegionsGeoJSON)
}
