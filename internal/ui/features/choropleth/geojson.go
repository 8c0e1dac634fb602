package choropleth

import (
	"github.com/leapstack-labs/regionmap/internal/ui/features/common"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Feature property keys of the map GeoJSON.
const (
	PropName           = "name"
	PropHasData        = "has_data"
	PropValue          = "value"
	PropStaffing       = "staffing"
	PropCashUse        = "cash_use"
	PropServiceability = "serviceability"
	PropColor          = "color"
	PropBand           = "band"
)

// FeatureCollection converts the table into the collection the map draws.
// Every region is present; regions without a value carry has_data=false and
// null metrics.
func FeatureCollection(t *core.RegionTable) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, t.Len())}
	for _, r := range t.Regions() {
		var m core.Metrics
		if r.Organization != nil {
			m = r.Organization.Metrics
		}
		band := common.BandFor(m.Value)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.Name,
			Geometry: r.Geometry,
			Properties: map[string]any{
				PropName:           r.Name,
				PropHasData:        r.HasData(),
				PropValue:          m.Value,
				PropStaffing:       m.Staffing,
				PropCashUse:        m.CashUse,
				PropServiceability: m.Serviceability,
				PropColor:          band.Color(),
				PropBand:           string(band),
			},
		})
	}
	return fc
}
