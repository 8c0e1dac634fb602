package validate

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orgRow() map[string]any {
	return map[string]any{
		"city":             "Maykop",
		"region":           "Adygeya",
		"by_staff":         "100",
		"by_list":          "80",
		"buget_limits":     "100",
		"cash_execution":   "90",
		"equipment":        "50",
		"faulty_equipment": "5",
	}
}

func analyticRow() map[string]any {
	return map[string]any{
		"region_name":       "Республика Адыгея",
		"region":            "Adygeya",
		"value":             "12.5",
		"percent_change":    "-1.25",
		"budget_millions":   "340",
		"population_change": "0.3",
		"details":           "ok",
	}
}

func with(row map[string]any, key string, v any) map[string]any {
	out := make(map[string]any, len(row))
	for k, val := range row {
		out[k] = val
	}
	if v == nil {
		delete(out, key)
	} else {
		out[key] = v
	}
	return out
}

func TestValidateOrganization_Valid(t *testing.T) {
	rec, err := ValidateOrganization(orgRow())
	require.NoError(t, err)

	assert.Equal(t, "Maykop", rec.City)
	assert.Equal(t, "Adygeya", rec.Region)
	assert.Equal(t, 100, rec.ByStaff)
	assert.Equal(t, 80, rec.ByList)
	assert.Equal(t, 5, rec.FaultyEquipment)
}

func TestValidateOrganization_AcceptsDecodedNumbers(t *testing.T) {
	row := with(orgRow(), "by_staff", float64(100))
	row = with(row, "by_list", 80)

	rec, err := ValidateOrganization(row)
	require.NoError(t, err)
	assert.Equal(t, 100, rec.ByStaff)
	assert.Equal(t, 80, rec.ByList)
}

func TestValidateOrganization_Violations(t *testing.T) {
	tests := []struct {
		name   string
		row    map[string]any
		fields []string
		rule   string
	}{
		{
			name:   "by_list above by_staff names both fields",
			row:    with(with(orgRow(), "by_staff", "50"), "by_list", "60"),
			fields: []string{"by_list", "by_staff"},
			rule:   RuleLessOrEqual,
		},
		{
			name:   "cash_execution above buget_limits",
			row:    with(orgRow(), "cash_execution", "101"),
			fields: []string{"cash_execution"},
			rule:   RuleRange,
		},
		{
			name:   "cash over limit within range",
			row:    with(with(orgRow(), "buget_limits", "10"), "cash_execution", "20"),
			fields: []string{"cash_execution", "buget_limits"},
			rule:   RuleLessOrEqual,
		},
		{
			name:   "faulty above equipment",
			row:    with(orgRow(), "faulty_equipment", "51"),
			fields: []string{"faulty_equipment", "equipment"},
			rule:   RuleLessOrEqual,
		},
		{
			name:   "negative head count",
			row:    with(orgRow(), "by_staff", "-1"),
			fields: []string{"by_staff"},
			rule:   RuleRange,
		},
		{
			name:   "not an integer",
			row:    with(orgRow(), "equipment", "many"),
			fields: []string{"equipment"},
			rule:   RuleType,
		},
		{
			name:   "fractional integer",
			row:    with(orgRow(), "equipment", "2.5"),
			fields: []string{"equipment"},
			rule:   RuleType,
		},
		{
			name:   "infinite integer",
			row:    with(orgRow(), "equipment", "inf"),
			fields: []string{"equipment"},
			rule:   RuleType,
		},
		{
			name:   "integer beyond int64",
			row:    with(orgRow(), "equipment", "1e30"),
			fields: []string{"equipment"},
			rule:   RuleType,
		},
		{
			name:   "integer just beyond int64",
			row:    with(orgRow(), "equipment", "9.3e18"),
			fields: []string{"equipment"},
			rule:   RuleType,
		},
		{
			name:   "missing column",
			row:    with(orgRow(), "city", nil),
			fields: []string{"city"},
			rule:   RuleMissing,
		},
		{
			name:   "empty value",
			row:    with(orgRow(), "region", "  "),
			fields: []string{"region"},
			rule:   RuleMissing,
		},
		{
			name:   "unknown column in strict mode",
			row:    with(orgRow(), "manager", "Ivanov"),
			fields: []string{"manager"},
			rule:   RuleExtraForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateOrganization(tt.row)
			require.Error(t, err)

			verr, ok := AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, EntityOrganization, verr.Entity)
			require.Len(t, verr.Violations, 1, verr.Error())
			assert.Equal(t, tt.fields, verr.Violations[0].Fields)
			assert.Equal(t, tt.rule, verr.Violations[0].Rule)
		})
	}
}

func TestValidateOrganization_CrossFieldMessage(t *testing.T) {
	_, err := ValidateOrganization(with(with(orgRow(), "by_staff", "50"), "by_list", "60"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "by_list (60) cannot be greater than by_staff (50)")
}

func TestValidateOrganization_ReportsEveryViolation(t *testing.T) {
	row := orgRow()
	row["by_staff"] = "200"
	row["equipment"] = "x"
	row["extra"] = "1"
	delete(row, "city")

	_, err := ValidateOrganization(row)
	verr, ok := AsValidationError(err)
	require.True(t, ok)

	assert.Len(t, verr.Violations, 4)
	assert.True(t, verr.HasField("by_staff"))
	assert.True(t, verr.HasField("equipment"))
	assert.True(t, verr.HasField("extra"))
	assert.True(t, verr.HasField("city"))
	assert.False(t, verr.HasRule(RuleLessOrEqual), "cross-field rules wait for single-field rules")
}

func TestValidateAnalytic(t *testing.T) {
	rec, err := ValidateAnalytic(analyticRow())
	require.NoError(t, err)
	assert.Equal(t, "Adygeya", rec.Region)
	assert.InDelta(t, 12.5, rec.Value, 1e-9)
	assert.InDelta(t, -1.25, rec.PercentChange, 1e-9)
	assert.InDelta(t, 340, rec.BudgetMillions, 1e-9)

	_, err = ValidateAnalytic(with(with(analyticRow(), "value", "abc"), "details", nil))
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, EntityAnalytic, verr.Entity)
	assert.True(t, verr.HasField("value"))
	assert.True(t, verr.HasField("details"))
	assert.Len(t, verr.Violations, 2)
}

func TestValidateOrganization_OverflowMessage(t *testing.T) {
	_, err := ValidateOrganization(with(orgRow(), "equipment", "9.3e18"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 9.3e18")
	assert.NotContains(t, err.Error(), "-9223372036854775808")
}

func TestValidateAnalytic_NonFinite(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
	}{
		{name: "NaN value", field: "value", value: "NaN"},
		{name: "infinite percent change", field: "percent_change", value: "inf"},
		{name: "negative infinity", field: "budget_millions", value: "-Inf"},
		{name: "decoded infinity", field: "population_change", value: math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateAnalytic(with(analyticRow(), tt.field, tt.value))
			verr, ok := AsValidationError(err)
			require.True(t, ok)
			require.Len(t, verr.Violations, 1, verr.Error())
			assert.Equal(t, []string{tt.field}, verr.Violations[0].Fields)
			assert.Equal(t, RuleType, verr.Violations[0].Rule)
		})
	}

	_, err := ValidateAnalytic(with(with(analyticRow(), "value", "NaN"), "percent_change", "inf"))
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, verr.Violations, 2)
}

func TestValidationError_Wrapped(t *testing.T) {
	_, err := ValidateAnalytic(map[string]any{})
	wrapped := fmt.Errorf("row 2: %w", err)

	verr, ok := AsValidationError(wrapped)
	require.True(t, ok)
	assert.Len(t, verr.Violations, 7)

	var target *ValidationError
	assert.True(t, errors.As(wrapped, &target))
	assert.Contains(t, err.Error(), "7 validation errors for AnalyticRecord")
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "strict", Strict.String())
	assert.Equal(t, "permissive", Permissive.String())
}
