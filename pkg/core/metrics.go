package core

// Metrics are the ratios derived from an OrganizationRecord.
// A nil ratio means its denominator was zero.
type Metrics struct {
	Staffing       *float64
	CashUse        *float64
	Serviceability *float64
	// Value is the smallest non-nil ratio, nil when all three are nil.
	Value *float64
}

// DeriveMetrics computes staffing, cash use, serviceability and their minimum.
// Given the record invariants every non-nil ratio lies in [0, 1].
func DeriveMetrics(rec OrganizationRecord) Metrics {
	m := Metrics{
		Staffing:       ratio(rec.ByList, rec.ByStaff),
		CashUse:        ratio(rec.CashExecution, rec.BugetLimits),
		Serviceability: ratio(rec.Equipment-rec.FaultyEquipment, rec.Equipment),
	}
	for _, r := range []*float64{m.Staffing, m.CashUse, m.Serviceability} {
		if r == nil {
			continue
		}
		if m.Value == nil || *r < *m.Value {
			v := *r
			m.Value = &v
		}
	}
	return m
}

// HasValue reports whether any ratio could be computed.
func (m Metrics) HasValue() bool {
	return m.Value != nil
}

func ratio(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}
