package choropleth

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
	"github.com/leapstack-labs/regionmap/internal/ui/features/common"
	"github.com/leapstack-labs/regionmap/internal/ui/resources"
)

// MapStats is the content of the stats panel.
type MapStats struct {
	Version  uint64
	Regions  int
	WithData int
	BuiltAt  time.Time
	Bands    map[common.Band]int
	// Error is the last reload failure, shown while the previous table serves.
	Error string
}

// MapApp renders the map page body. The wrapper subscribes to /updates.
func MapApp(stats MapStats) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div id="map-app" data-init="@get('%s')">
<h1>Russia map</h1>
`, PathUpdates); err != nil {
			return err
		}
		if err := StatsPanel(stats).Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, `<div id="map" data-geojson="%s"></div>
<script src="%s"></script>
<script src="%s"></script>
</div>
`, PathGeoJSON, common.LeafletJS, resources.StaticPath("map.js"))
		return err
	})
}

// StatsPanel renders the live stats panel. SSE patches replace it by id.
func StatsPanel(stats MapStats) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div id="map-stats" data-version="%d">
<span>Regions: <b>%d</b></span>
<span>With data: <b>%d</b></span>
<span>Updated: %s</span>
<span class="legend">`, stats.Version, stats.Regions, stats.WithData, stats.BuiltAt.Format(time.RFC3339)); err != nil {
			return err
		}
		for _, b := range []common.Band{common.BandRed, common.BandYellow, common.BandGreen, common.BandNone} {
			if _, err := fmt.Fprintf(w, `<span class="band-%s"></span>%s (%d)`, b, bandLabel(b), stats.Bands[b]); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</span>\n"); err != nil {
			return err
		}
		if stats.Error != "" {
			if _, err := fmt.Fprintf(w, `<span class="error">Reload failed: %s</span>
`, templ.EscapeString(stats.Error)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</div>\n")
		return err
	})
}

func bandLabel(b common.Band) string {
	switch b {
	case common.BandRed:
		return "below 70%"
	case common.BandYellow:
		return "70-85%"
	case common.BandGreen:
		return "85% and above"
	default:
		return "no data"
	}
}
