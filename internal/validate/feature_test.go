package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() []any {
	return []any{
		[]any{
			[]any{40.0, 44.0}, []any{41.0, 44.0}, []any{41.0, 45.0}, []any{40.0, 44.0},
		},
	}
}

func feature() map[string]any {
	return map[string]any{
		"type": "Feature",
		"properties": map[string]any{
			"name":       "Adygeya",
			"cartodb_id": float64(37),
			"created_at": "2013-12-04T04:23:51+01:00",
			"name_latin": "Republic of Adygea",
			"population": float64(496934),
		},
		"geometry": map[string]any{
			"type":        "Polygon",
			"coordinates": square(),
		},
	}
}

func TestValidateFeature_Valid(t *testing.T) {
	f, err := ValidateFeature(feature())
	require.NoError(t, err)

	assert.Equal(t, "Adygeya", f.Properties.Name)
	require.NotNil(t, f.Properties.CartoDBID)
	assert.Equal(t, 37, *f.Properties.CartoDBID)
	require.NotNil(t, f.Properties.NameLatin)
	assert.Nil(t, f.Properties.UpdatedAt)
	assert.Equal(t, GeometryPolygon, f.GeometryType)
}

func TestValidateFeature_MultiPolygon(t *testing.T) {
	raw := feature()
	raw["geometry"] = map[string]any{
		"type":        "MultiPolygon",
		"coordinates": []any{square(), square()},
		"bbox":        []any{40.0, 44.0, 41.0, 45.0},
	}

	f, err := ValidateFeature(raw)
	require.NoError(t, err)
	assert.Equal(t, GeometryMultiPolygon, f.GeometryType)
}

func TestValidateFeature_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
		rule   string
	}{
		{
			name:   "wrong envelope type",
			mutate: func(m map[string]any) { m["type"] = "FeatureCollection" },
			field:  "type",
			rule:   RuleLiteral,
		},
		{
			name:   "extra envelope key",
			mutate: func(m map[string]any) { m["id"] = "x" },
			field:  "id",
			rule:   RuleExtraForbidden,
		},
		{
			name:   "missing name",
			mutate: func(m map[string]any) { delete(m["properties"].(map[string]any), "name") },
			field:  "properties.name",
			rule:   RuleMissing,
		},
		{
			name:   "non-integer cartodb_id",
			mutate: func(m map[string]any) { m["properties"].(map[string]any)["cartodb_id"] = "abc" },
			field:  "properties.cartodb_id",
			rule:   RuleType,
		},
		{
			name:   "point geometry",
			mutate: func(m map[string]any) { m["geometry"] = map[string]any{"type": "Point", "coordinates": []any{1.0, 2.0}} },
			field:  "geometry.type",
			rule:   RuleLiteral,
		},
		{
			name: "polygon coordinates too shallow",
			mutate: func(m map[string]any) {
				m["geometry"] = map[string]any{"type": "Polygon", "coordinates": []any{[]any{1.0, 2.0}}}
			},
			field: "geometry.coordinates",
			rule:  RuleCoordinates,
		},
		{
			name: "non-numeric position",
			mutate: func(m map[string]any) {
				ring := square()
				ring[0].([]any)[1] = []any{"a", "b"}
				m["geometry"] = map[string]any{"type": "Polygon", "coordinates": ring}
			},
			field: "geometry.coordinates",
			rule:  RuleCoordinates,
		},
		{
			name:   "missing geometry",
			mutate: func(m map[string]any) { delete(m, "geometry") },
			field:  "geometry",
			rule:   RuleMissing,
		},
		{
			name:   "properties not an object",
			mutate: func(m map[string]any) { m["properties"] = "Adygeya" },
			field:  "properties",
			rule:   RuleType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := feature()
			tt.mutate(raw)

			_, err := ValidateFeature(raw)
			verr, ok := AsValidationError(err)
			require.True(t, ok, "expected a validation error, got %v", err)
			assert.Equal(t, EntityFeature, verr.Entity)
			require.Len(t, verr.Violations, 1, verr.Error())
			assert.Equal(t, []string{tt.field}, verr.Violations[0].Fields)
			assert.Equal(t, tt.rule, verr.Violations[0].Rule)
		})
	}
}

func TestCheckCoordinates(t *testing.T) {
	assert.NoError(t, checkCoordinates(square(), 3))
	assert.Error(t, checkCoordinates([]any{}, 3))
	assert.Error(t, checkCoordinates([]any{[]any{[]any{1.0, 2.0}}}, 3), "ring with one position")
	assert.Error(t, checkCoordinates("x", 3))
}
