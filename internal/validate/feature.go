package validate

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/regionmap/pkg/core"
)

// Geometry types accepted for regions.
const (
	GeometryPolygon      = "Polygon"
	GeometryMultiPolygon = "MultiPolygon"
)

// Feature is a validated region feature envelope.
type Feature struct {
	Properties   core.FeatureProperties
	GeometryType string
}

var featureKeys = []string{"type", "properties", "geometry"}

// ValidateFeature validates a {type, properties, geometry} map.
//
// The envelope is Strict. Properties and geometry are Permissive: keys other
// than the ones checked here are ignored.
func ValidateFeature(raw map[string]any) (Feature, error) {
	var (
		feature    Feature
		violations []Violation
	)

	var extra []string
	for k := range raw {
		if !contains(featureKeys, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		violations = append(violations, Violation{
			Fields: []string{k}, Rule: RuleExtraForbidden, Message: "extra inputs are not permitted",
		})
	}

	switch t, ok := raw["type"]; {
	case !ok || isEmpty(t):
		violations = append(violations, missing("type"))
	case t != "Feature":
		violations = append(violations, Violation{
			Fields: []string{"type"}, Rule: RuleLiteral, Message: fmt.Sprintf("input should be 'Feature', got %v", t),
		})
	}

	switch p, ok := raw["properties"]; {
	case !ok || p == nil:
		violations = append(violations, missing("properties"))
	default:
		props, isMap := p.(map[string]any)
		if !isMap {
			violations = append(violations, Violation{
				Fields: []string{"properties"}, Rule: RuleType, Message: "input should be an object",
			})
			break
		}
		violations = append(violations, decodeRecord(props, &feature.Properties, Permissive, "properties.")...)
	}

	switch g, ok := raw["geometry"]; {
	case !ok || g == nil:
		violations = append(violations, missing("geometry"))
	default:
		geometry, isMap := g.(map[string]any)
		if !isMap {
			violations = append(violations, Violation{
				Fields: []string{"geometry"}, Rule: RuleType, Message: "input should be an object",
			})
			break
		}
		gt, vs := validateGeometry(geometry)
		feature.GeometryType = gt
		violations = append(violations, vs...)
	}

	if len(violations) > 0 {
		return Feature{}, &ValidationError{Entity: EntityFeature, Violations: violations}
	}
	return feature, nil
}

func validateGeometry(g map[string]any) (string, []Violation) {
	var violations []Violation

	gt, _ := g["type"].(string)
	depth := 0
	switch {
	case isEmpty(g["type"]):
		violations = append(violations, missing("geometry.type"))
	case gt == GeometryPolygon:
		depth = 3
	case gt == GeometryMultiPolygon:
		depth = 4
	default:
		violations = append(violations, Violation{
			Fields:  []string{"geometry.type"},
			Rule:    RuleLiteral,
			Message: fmt.Sprintf("input should be 'Polygon' or 'MultiPolygon', got %v", g["type"]),
		})
	}

	coords, ok := g["coordinates"]
	switch {
	case !ok || coords == nil:
		violations = append(violations, missing("geometry.coordinates"))
	case depth > 0:
		if err := checkCoordinates(coords, depth); err != nil {
			violations = append(violations, Violation{
				Fields: []string{"geometry.coordinates"}, Rule: RuleCoordinates, Message: err.Error(),
			})
		}
	default:
		if _, isList := coords.([]any); !isList {
			violations = append(violations, Violation{
				Fields: []string{"geometry.coordinates"}, Rule: RuleCoordinates, Message: "coordinates must be a list",
			})
		}
	}

	return gt, violations
}

// checkCoordinates verifies that v is a list nested depth levels deep whose
// innermost lists are positions of at least two numbers. At depth 2 each list
// is a linear ring and needs at least four positions.
func checkCoordinates(v any, depth int) error {
	list, ok := v.([]any)
	if !ok {
		return fmt.Errorf("coordinates must be a list, got %T", v)
	}
	if depth == 1 {
		if len(list) < 2 {
			return fmt.Errorf("position needs at least 2 numbers, got %d", len(list))
		}
		for _, n := range list {
			switch n.(type) {
			case float64, int, int64:
			default:
				return fmt.Errorf("position holds a non-number %v", n)
			}
		}
		return nil
	}
	if len(list) == 0 {
		return fmt.Errorf("empty coordinate list")
	}
	if depth == 2 && len(list) < 4 {
		return fmt.Errorf("linear ring needs at least 4 positions, got %d", len(list))
	}
	for _, item := range list {
		if err := checkCoordinates(item, depth-1); err != nil {
			return err
		}
	}
	return nil
}

func missing(field string) Violation {
	return Violation{Fields: []string{field}, Rule: RuleMissing, Message: "field required"}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
