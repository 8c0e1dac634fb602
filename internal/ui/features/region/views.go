package region

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
	"github.com/leapstack-labs/regionmap/internal/ui/features/common"
	"github.com/leapstack-labs/regionmap/pkg/core"
)

// KPI is one bar of the region chart.
type KPI struct {
	Label string
	Value *float64
}

// Property is one GeoJSON property of the region file.
type Property struct {
	Key   string
	Value string
}

// RegionView is everything the region page shows.
type RegionView struct {
	Name  string
	City  string
	Value *float64
	KPIs  []KPI
	// Lat and Lon locate the centroid; BBox is minx, miny, maxx, maxy.
	Lat, Lon   float64
	BBox       [4]float64
	Analytic   *core.AnalyticRecord
	Properties []Property
	Source     core.SourceFile
}

// NoRegion renders the page shown without a region parameter. last is the
// region viewed most recently in this session, if any.
func NoRegion(last string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := common.Message("No region selected", "Pick a region on the map.").Render(ctx, w); err != nil {
			return err
		}
		if last == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, `<p class="last">Last viewed: <a href="%s">%s</a></p>
`, regionURL(last), templ.EscapeString(last))
		return err
	})
}

// RegionDashboard renders the KPI page of one region.
func RegionDashboard(v RegionView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf("<h1>Region dashboard: %s</h1>\n", templ.EscapeString(v.Name))

		p.printf(`<div class="kpis">
<p>Region: %s</p>
`, templ.EscapeString(v.Name))
		if v.City != "" {
			p.printf("<p>City: %s</p>\n", templ.EscapeString(v.City))
		}
		for _, k := range v.KPIs {
			p.printf("<p>%s: %s</p>\n", k.Label, common.Percent(k.Value))
		}
		p.printf("<p>Overall: %s</p>\n", common.Percent(v.Value))
		p.printf("<p>Coordinates: %.4f, %.4f</p>\n", v.Lat, v.Lon)
		p.printf("<p>Bounds: %.4f, %.4f, %.4f, %.4f</p>\n", v.BBox[0], v.BBox[1], v.BBox[2], v.BBox[3])
		p.printf("</div>\n")

		p.printf("<h2>Region indicators</h2>\n<div class=\"bars\">\n")
		for _, k := range v.KPIs {
			p.printf(`<div class="bar"><span>%s</span><div class="track"><div class="fill band-%s" style="width: %s"></div></div><span>%s</span></div>
`, k.Label, common.BandFor(k.Value), common.BarWidth(k.Value), common.Percent(k.Value))
		}
		p.printf("</div>\n")

		if a := v.Analytic; a != nil {
			p.printf(`<h2>Analytics</h2>
<table class="props">
<tr><th>Name</th><td>%s</td></tr>
<tr><th>Value</th><td>%g</td></tr>
<tr><th>Change</th><td>%g%%</td></tr>
<tr><th>Budget</th><td>%g M</td></tr>
<tr><th>Population change</th><td>%g</td></tr>
<tr><th>Details</th><td>%s</td></tr>
</table>
`, templ.EscapeString(a.RegionName), a.Value, a.PercentChange, a.BudgetMillions, a.PopulationChange, templ.EscapeString(a.Details))
		}

		if len(v.Properties) > 0 {
			p.printf("<h2>Properties</h2>\n<table class=\"props\">\n")
			for _, prop := range v.Properties {
				p.printf("<tr><th>%s</th><td>%s</td></tr>\n", templ.EscapeString(prop.Key), templ.EscapeString(prop.Value))
			}
			p.printf("</table>\n")
		}

		p.printf("<p class=\"source\">Source: <code>%s</code> (sha256 %s)</p>\n",
			templ.EscapeString(v.Source.Path), shortHash(v.Source.SHA256))
		p.printf("<p><a class=\"back\" href=\"/\">&larr; %s</a></p>\n", common.HomeLinkTxt)
		return p.err
	})
}

// printer keeps the first write error so views can print unconditionally.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func regionURL(name string) string {
	return PathRegion + "?region=" + url.QueryEscape(name)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
