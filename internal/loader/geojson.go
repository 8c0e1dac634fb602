package loader

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/regionmap/internal/validate"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/text/unicode/norm"
)

// RegionExt is the suffix of region files. Matching is exact.
const RegionExt = ".geojson"

// timestampLayouts are the property formats normalised to RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05-0700",
}

// LoadRegion loads one region file holding exactly one feature.
func (l *Loader) LoadRegion(path string) (core.RegionGeometry, error) {
	return l.loadRegion(path, l.guard)
}

func (l *Loader) loadRegion(path string, guard Guard) (core.RegionGeometry, error) {
	data, src, err := guard.ReadFile(path, core.SourceRegion)
	if err != nil {
		return core.RegionGeometry{}, err
	}

	raw, err := singleFeature(path, data)
	if err != nil {
		return core.RegionGeometry{}, err
	}

	var props map[string]any
	if p, ok := raw["properties"]; ok && !isJSONNull(p) {
		if err := json.Unmarshal(p, &props); err != nil {
			return core.RegionGeometry{}, structural(path, "properties is not an object", err)
		}
	}
	for k, v := range props {
		props[k] = normaliseTimestamp(v)
	}

	var (
		g       geom.T
		geomMap map[string]any
	)
	if gr, ok := raw["geometry"]; ok && !isJSONNull(gr) {
		if err := json.Unmarshal(gr, &geomMap); err != nil {
			return core.RegionGeometry{}, structural(path, "geometry is not an object", err)
		}
		// A decode failure is reported by the validator below when the
		// geometry shape is wrong, and as a structural error otherwise.
		if err := geojson.Unmarshal(gr, &g); err == nil {
			if coords, ok := canonicalCoords(g); ok {
				geomMap["coordinates"] = coords
			}
		} else {
			g = nil
		}
	}

	feature := map[string]any{"type": "Feature"}
	if props != nil {
		feature["properties"] = props
	}
	if geomMap != nil {
		feature["geometry"] = geomMap
	}
	if _, err := validate.ValidateFeature(feature); err != nil {
		return core.RegionGeometry{}, fmt.Errorf("%s: %w", path, err)
	}
	if g == nil {
		return core.RegionGeometry{}, structural(path, "geometry could not be decoded", nil)
	}

	name, _ := props[core.PropName].(string)
	return core.RegionGeometry{
		Name:       name,
		Properties: props,
		Geometry:   g,
		Source:     src,
	}, nil
}

// singleFeature returns the one feature held by data, which may be a bare
// Feature or a FeatureCollection.
func singleFeature(path string, data []byte) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, structural(path, "invalid JSON", err)
	}

	var typ string
	if t, ok := doc["type"]; ok {
		_ = json.Unmarshal(t, &typ)
	}

	switch typ {
	case "Feature":
		return doc, nil
	case "FeatureCollection":
		var features []json.RawMessage
		if f, ok := doc["features"]; ok && !isJSONNull(f) {
			if err := json.Unmarshal(f, &features); err != nil {
				return nil, structural(path, "features is not a list", err)
			}
		}
		if len(features) != 1 {
			return nil, &StructuralError{Path: path, Reason: "expected exactly one feature", Found: len(features)}
		}
		var feature map[string]json.RawMessage
		if err := json.Unmarshal(features[0], &feature); err != nil {
			return nil, structural(path, "feature is not an object", err)
		}
		return feature, nil
	default:
		return nil, structural(path, fmt.Sprintf("unsupported GeoJSON type %q", typ), nil)
	}
}

// LoadAllRegions loads every region file in dir, in lexical filename order.
// The first bad file aborts the load. An empty dir means the default location.
func (l *Loader) LoadAllRegions(dir string) (core.RegionSet, error) {
	if dir == "" {
		dir = l.RegionsDir()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return core.RegionSet{}, fmt.Errorf("read regions dir: %w", err)
	}

	guard := l.guard.Within(dir)
	var (
		set  core.RegionSet
		seen = make(map[string]string)
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), RegionExt) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		region, err := l.loadRegion(path, guard)
		if err != nil {
			return core.RegionSet{}, err
		}

		key := norm.NFC.String(region.Name)
		if first, dup := seen[key]; dup {
			l.logger.Warn("duplicate region skipped",
				"name", region.Name, "file", path, "kept", first)
			set.Duplicates = append(set.Duplicates, region.Source)
			continue
		}
		seen[key] = path
		set.Regions = append(set.Regions, region)
	}

	if len(set.Regions) == 0 {
		return core.RegionSet{}, &StructuralError{
			Path: dir, Reason: "no " + RegionExt + " files found", Found: 0,
		}
	}

	set.Columns = dropEmptyColumns(set.Regions)
	l.logger.Debug("loaded regions", "dir", dir,
		"regions", len(set.Regions), "duplicates", len(set.Duplicates))
	return set, nil
}

// dropEmptyColumns removes properties that are empty in every region and
// returns the remaining property columns, name first and the rest sorted.
func dropEmptyColumns(regions []core.RegionGeometry) []string {
	var order []string
	filled := make(map[string]bool)
	for _, r := range regions {
		for _, k := range slices.Sorted(maps.Keys(r.Properties)) {
			if _, ok := filled[k]; !ok {
				order = append(order, k)
				filled[k] = false
			}
			if !isEmptyValue(r.Properties[k]) {
				filled[k] = true
			}
		}
	}

	cols := []string{core.PropName}
	for _, k := range order {
		if !filled[k] {
			for _, r := range regions {
				delete(r.Properties, k)
			}
			continue
		}
		if k != core.PropName {
			cols = append(cols, k)
		}
	}
	slices.Sort(cols[1:])
	return cols
}

// canonicalCoords rebuilds the nested coordinate arrays of a polygon value.
func canonicalCoords(g geom.T) ([]any, bool) {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonCoords(t.Coords()), true
	case *geom.MultiPolygon:
		polys := t.Coords()
		out := make([]any, len(polys))
		for i, p := range polys {
			out[i] = polygonCoords(p)
		}
		return out, true
	default:
		return nil, false
	}
}

func polygonCoords(rings [][]geom.Coord) []any {
	out := make([]any, len(rings))
	for i, ring := range rings {
		positions := make([]any, len(ring))
		for j, c := range ring {
			pos := make([]any, len(c))
			for k, v := range c {
				pos[k] = v
			}
			positions[j] = pos
		}
		out[i] = positions
	}
	return out
}

func normaliseTimestamp(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format(time.RFC3339)
		}
	}
	return v
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}
