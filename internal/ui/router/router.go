// Package router sets up HTTP routes for the dashboard server.
package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/regionmap/internal/dataset"
	"github.com/leapstack-labs/regionmap/internal/metrics"
	choroplethFeature "github.com/leapstack-labs/regionmap/internal/ui/features/choropleth"
	regionFeature "github.com/leapstack-labs/regionmap/internal/ui/features/region"
	"github.com/leapstack-labs/regionmap/internal/ui/notifier"
	"github.com/leapstack-labs/regionmap/internal/ui/resources"
)

// Operational routes.
const (
	PathMetrics = "/metrics"
	PathHealth  = "/healthz"
)

// Deps are the shared objects handlers read from.
type Deps struct {
	Snapshot     *dataset.Snapshot
	Notifier     *notifier.Notifier
	Metrics      *metrics.Metrics
	SessionStore sessions.Store
}

// SetupRoutes configures all routes for the dashboard server.
func SetupRoutes(router chi.Router, d Deps) {
	router.Handle(resources.StaticPrefix+"*", resources.Handler())

	choroplethFeature.SetupRoutes(router, d.Snapshot, d.Notifier, d.Metrics)
	regionFeature.SetupRoutes(router, d.Snapshot, d.SessionStore)

	if d.Metrics != nil {
		router.Handle(PathMetrics, d.Metrics.Handler())
	}
	router.Get(PathHealth, healthHandler(d.Snapshot))
}

// Health is the body of /healthz.
type Health struct {
	Status   string    `json:"status"`
	Version  uint64    `json:"version"`
	Regions  int       `json:"regions"`
	WithData int       `json:"with_data"`
	BuiltAt  time.Time `json:"built_at"`
}

func healthHandler(snap *dataset.Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		t := snap.Load()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Health{
			Status:   "ok",
			Version:  snap.Version(),
			Regions:  t.Len(),
			WithData: t.WithData(),
			BuiltAt:  t.BuiltAt(),
		})
	}
}
