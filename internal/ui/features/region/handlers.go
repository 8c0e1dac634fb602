package region

import (
	"bytes"
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/a-h/templ"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/regionmap/internal/dataset"
	"github.com/leapstack-labs/regionmap/internal/ui/features/common"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/twpayne/go-geom/xy"
)

// Session storage.
const (
	SessionName   = "regionmap"
	LastRegionKey = "last_region"
)

// Handlers provides HTTP handlers for the region feature.
type Handlers struct {
	snapshot     *dataset.Snapshot
	sessionStore sessions.Store
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(snap *dataset.Snapshot, sessionStore sessions.Store) *Handlers {
	return &Handlers{snapshot: snap, sessionStore: sessionStore}
}

// RegionPage renders the KPI page of the region named by ?region=.
func (h *Handlers) RegionPage(w http.ResponseWriter, r *http.Request) {
	// A cookie that no longer decodes yields a fresh session and an error.
	session, _ := h.sessionStore.Get(r, SessionName)

	name := r.URL.Query().Get("region")
	if name == "" {
		last, _ := session.Values[LastRegionKey].(string)
		h.render(w, r, http.StatusOK, "No region selected", NoRegion(last))
		return
	}

	region, ok := h.snapshot.Load().Lookup(name)
	if !ok {
		h.render(w, r, http.StatusNotFound, "Region not found",
			common.Message("Region not found", fmt.Sprintf("Region %q is not in the data set", name)))
		return
	}

	session.Values[LastRegionKey] = region.Name
	if err := session.Save(r, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	view, err := newRegionView(region)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, region.Name, RegionDashboard(view))
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	var buf bytes.Buffer
	if err := common.Page(title, body).Render(r.Context(), &buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// newRegionView computes what the page shows for one region.
func newRegionView(r core.Region) (RegionView, error) {
	view := RegionView{
		Name:   r.Name,
		Source: r.Source,
	}

	centroid, err := xy.Centroid(r.Geometry)
	if err != nil {
		return view, fmt.Errorf("centroid of %s: %w", r.Name, err)
	}
	view.Lon, view.Lat = centroid.X(), centroid.Y()

	b := r.Geometry.Bounds()
	view.BBox = [4]float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}

	var m core.Metrics
	if r.Organization != nil {
		m = r.Organization.Metrics
		view.City = r.Organization.City
	}
	view.Value = m.Value
	view.KPIs = []KPI{
		{Label: "Staffing", Value: m.Staffing},
		{Label: "Cash use", Value: m.CashUse},
		{Label: "Equipment serviceability", Value: m.Serviceability},
	}
	view.Analytic = r.Analytic

	for _, k := range slices.Sorted(maps.Keys(r.Properties)) {
		view.Properties = append(view.Properties, Property{Key: k, Value: fmt.Sprint(r.Properties[k])})
	}
	return view, nil
}
