package validate

import (
	"fmt"

	"github.com/leapstack-labs/regionmap/pkg/core"
)

// Entity names used in ValidationError.
const (
	EntityAnalytic     = "AnalyticRecord"
	EntityOrganization = "OrganizationRecord"
	EntityFeature      = "Feature"
)

// ValidateAnalytic validates one raw analytic row in Strict mode.
func ValidateAnalytic(raw map[string]any) (core.AnalyticRecord, error) {
	var rec core.AnalyticRecord
	violations := decodeRecord(raw, &rec, Strict, "")
	if len(violations) > 0 {
		return core.AnalyticRecord{}, &ValidationError{Entity: EntityAnalytic, Violations: violations}
	}
	return rec, nil
}

// ValidateOrganization validates one raw organization row in Strict mode.
// Derived metric columns are not part of the schema; callers strip them first.
func ValidateOrganization(raw map[string]any) (core.OrganizationRecord, error) {
	var rec core.OrganizationRecord
	violations := decodeRecord(raw, &rec, Strict, "")
	if len(violations) > 0 {
		return core.OrganizationRecord{}, &ValidationError{Entity: EntityOrganization, Violations: violations}
	}

	if violations := organizationCrossField(rec); len(violations) > 0 {
		return core.OrganizationRecord{}, &ValidationError{Entity: EntityOrganization, Violations: violations}
	}
	return rec, nil
}

// decodeRecord decodes raw into out and applies the struct tag rules to every
// field that decoded cleanly.
func decodeRecord(raw map[string]any, out any, mode Mode, prefix string) []Violation {
	violations := decodeInto(raw, out, mode, prefix)

	reported := make(map[string]bool, len(violations))
	for _, v := range violations {
		for _, f := range v.Fields {
			reported[f[len(prefix):]] = true
		}
	}
	return append(violations, checkTags(out, prefix, reported)...)
}

// organizationCrossField checks the "part never exceeds whole" rules.
func organizationCrossField(rec core.OrganizationRecord) []Violation {
	rules := []struct {
		part, whole         string
		partValue, wholeVal int
	}{
		{core.ColByList, core.ColByStaff, rec.ByList, rec.ByStaff},
		{core.ColCashExecution, core.ColBugetLimits, rec.CashExecution, rec.BugetLimits},
		{core.ColFaultyEquipment, core.ColEquipment, rec.FaultyEquipment, rec.Equipment},
	}

	var violations []Violation
	for _, r := range rules {
		if r.partValue <= r.wholeVal {
			continue
		}
		violations = append(violations, Violation{
			Fields: []string{r.part, r.whole},
			Rule:   RuleLessOrEqual,
			Message: fmt.Sprintf("%s (%d) cannot be greater than %s (%d)",
				r.part, r.partValue, r.whole, r.wholeVal),
		})
	}
	return violations
}
