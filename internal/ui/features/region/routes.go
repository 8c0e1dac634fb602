// Package region provides the per-region KPI page.
package region

import (
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/regionmap/internal/dataset"
)

// PathRegion is the region page route. The region is named by ?region=.
const PathRegion = "/region"

// SetupRoutes configures routes for the region feature.
func SetupRoutes(router chi.Router, snap *dataset.Snapshot, sessionStore sessions.Store) {
	handlers := NewHandlers(snap, sessionStore)

	router.Get(PathRegion, handlers.RegionPage)
}
