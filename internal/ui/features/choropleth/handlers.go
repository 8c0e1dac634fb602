package choropleth

import (
	"encoding/json"
	"net/http"

	"github.com/leapstack-labs/regionmap/internal/dataset"
	"github.com/leapstack-labs/regionmap/internal/metrics"
	"github.com/leapstack-labs/regionmap/internal/ui/features/common"
	"github.com/leapstack-labs/regionmap/internal/ui/notifier"
	"github.com/starfederation/datastar-go/datastar"
)

// Handlers provides HTTP handlers for the map feature.
type Handlers struct {
	snapshot *dataset.Snapshot
	notifier *notifier.Notifier
	metrics  *metrics.Metrics
}

// NewHandlers creates a new Handlers instance. m may be nil.
func NewHandlers(snap *dataset.Snapshot, notify *notifier.Notifier, m *metrics.Metrics) *Handlers {
	return &Handlers{snapshot: snap, notifier: notify, metrics: m}
}

// MapPage renders the map page with the current stats.
func (h *Handlers) MapPage(w http.ResponseWriter, r *http.Request) {
	page := common.Page("Russia map", MapApp(h.stats("")))
	if err := page.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// MapPageUpdates is the long-lived SSE endpoint of the map page. It sends
// nothing up front; each reload patches the stats panel, which makes the
// map script refetch the features.
func (h *Handlers) MapPageUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	if h.metrics != nil {
		h.metrics.SSEClients.Inc()
		defer h.metrics.SSEClients.Dec()
	}
	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.PatchElementTempl(StatsPanel(h.stats(ev.Err))); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// RegionsGeoJSON serves every region with its value and band colour.
func (h *Handlers) RegionsGeoJSON(w http.ResponseWriter, _ *http.Request) {
	body, err := json.Marshal(FeatureCollection(h.snapshot.Load()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(body)
}

func (h *Handlers) stats(reloadErr string) MapStats {
	t := h.snapshot.Load()
	stats := MapStats{
		Version:  h.snapshot.Version(),
		Regions:  t.Len(),
		WithData: t.WithData(),
		BuiltAt:  t.BuiltAt(),
		Bands:    make(map[common.Band]int),
		Error:    reloadErr,
	}
	for _, r := range t.Regions() {
		stats.Bands[common.BandFor(r.Value())]++
	}
	return stats
}
