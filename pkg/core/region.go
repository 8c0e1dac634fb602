package core

import (
	"sort"
	"time"

	"github.com/twpayne/go-geom"
)

// Region geometry property names.
const (
	PropName      = "name"
	PropCartoDBID = "cartodb_id"
	PropCreatedAt = "created_at"
	PropUpdatedAt = "updated_at"
	PropNameLatin = "name_latin"
)

// Output column names of the merged table that are not input columns.
const (
	ColName     = "name"
	ColGeometry = "geometry"

	// ColAnalyticValue is the analytic "value" column, renamed so it does not
	// collide with the organization value.
	ColAnalyticValue = "analytic_value"
)

// FeatureProperties are the properties of a region feature.
// Keys other than these are carried through untouched.
type FeatureProperties struct {
	Name      string  `field:"name" validate:"required"`
	CartoDBID *int    `field:"cartodb_id"`
	CreatedAt *string `field:"created_at"`
	UpdatedAt *string `field:"updated_at"`
	NameLatin *string `field:"name_latin"`
}

// SourceKind identifies which input a file was read as.
type SourceKind string

// Source kinds.
const (
	SourceAnalytic      SourceKind = "analytic"
	SourceOrganizations SourceKind = "organizations"
	SourceRegion        SourceKind = "region"
)

// SourceFile describes one input file that contributed to a table.
type SourceFile struct {
	Path   string
	Kind   SourceKind
	Size   int64
	SHA256 string
}

// RegionGeometry is one validated region file.
type RegionGeometry struct {
	// Name is the region name (properties.name), the join key.
	Name string
	// Properties holds every non-geometry property, flat.
	Properties map[string]any
	// Geometry is a *geom.Polygon or *geom.MultiPolygon.
	Geometry geom.T
	Source   SourceFile
}

// RegionSet is the deduplicated result of loading a regions directory.
type RegionSet struct {
	Regions []RegionGeometry
	// Columns are the property columns kept after dropping empty ones.
	Columns []string
	// Duplicates lists source files skipped because their name was already taken.
	Duplicates []SourceFile
}

// Region is one row of the merged table.
type Region struct {
	Name       string
	Properties map[string]any
	Geometry   geom.T
	Source     SourceFile
	// Organization is nil when organizations.csv has no row for this region.
	Organization *Organization
	// Analytic is nil when no analytic row matched or no analytic file was joined.
	Analytic *AnalyticRecord
}

// HasData reports whether the region carries a computed value.
func (r Region) HasData() bool {
	return r.Organization != nil && r.Organization.Metrics.HasValue()
}

// Value returns the organization value, nil when there is none.
func (r Region) Value() *float64 {
	if r.Organization == nil {
		return nil
	}
	return r.Organization.Metrics.Value
}

// Column returns the value of an output column, nil for null cells.
func (r Region) Column(name string) any {
	switch name {
	case ColName:
		return r.Name
	case ColGeometry:
		return r.Geometry
	}
	if v, ok := r.organizationColumn(name); ok {
		return v
	}
	if v, ok := r.analyticColumn(name); ok {
		return v
	}
	if v, ok := r.Properties[name]; ok {
		return v
	}
	return nil
}

func (r Region) organizationColumn(name string) (any, bool) {
	o := r.Organization
	switch name {
	case ColRegion, ColCity, ColByStaff, ColByList, ColBugetLimits,
		ColCashExecution, ColEquipment, ColFaultyEquipment,
		ColStaffing, ColCashUse, ColServiceability, ColValue:
	default:
		return nil, false
	}
	if o == nil {
		return nil, true
	}
	switch name {
	case ColRegion:
		return o.Region, true
	case ColCity:
		return o.City, true
	case ColByStaff:
		return o.ByStaff, true
	case ColByList:
		return o.ByList, true
	case ColBugetLimits:
		return o.BugetLimits, true
	case ColCashExecution:
		return o.CashExecution, true
	case ColEquipment:
		return o.Equipment, true
	case ColFaultyEquipment:
		return o.FaultyEquipment, true
	case ColStaffing:
		return floatOrNil(o.Metrics.Staffing), true
	case ColCashUse:
		return floatOrNil(o.Metrics.CashUse), true
	case ColServiceability:
		return floatOrNil(o.Metrics.Serviceability), true
	default:
		return floatOrNil(o.Metrics.Value), true
	}
}

func (r Region) analyticColumn(name string) (any, bool) {
	a := r.Analytic
	switch name {
	case ColRegionName, ColAnalyticValue, ColPercentChange,
		ColBudgetMillions, ColPopulationChange, ColDetails:
	default:
		return nil, false
	}
	if a == nil {
		return nil, true
	}
	switch name {
	case ColRegionName:
		return a.RegionName, true
	case ColAnalyticValue:
		return a.Value, true
	case ColPercentChange:
		return a.PercentChange, true
	case ColBudgetMillions:
		return a.BudgetMillions, true
	case ColPopulationChange:
		return a.PopulationChange, true
	default:
		return a.Details, true
	}
}

// clone copies r so that no map or record pointer is shared with the table.
func (r Region) clone() Region {
	r.Properties = cloneMap(r.Properties)
	if r.Organization != nil {
		o := *r.Organization
		o.Metrics = Metrics{
			Staffing:       cloneFloat(o.Metrics.Staffing),
			CashUse:        cloneFloat(o.Metrics.CashUse),
			Serviceability: cloneFloat(o.Metrics.Serviceability),
			Value:          cloneFloat(o.Metrics.Value),
		}
		r.Organization = &o
	}
	if r.Analytic != nil {
		a := *r.Analytic
		r.Analytic = &a
	}
	return r
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// RegionTable is the merged region table. It is immutable once built:
// accessors hand out deep copies of rows and a reload builds a new table.
// Geometries are shared and must be treated as read-only.
type RegionTable struct {
	rows        []Region
	index       map[string]int
	keyFunc     func(string) string
	hasAnalytic bool
	sources     []SourceFile
	builtAt     time.Time
}

// TableOptions configures NewRegionTable.
type TableOptions struct {
	// KeyFunc normalises names before lookup. Identity when nil.
	KeyFunc func(string) string
	// HasAnalytic marks that an analytic file was joined.
	HasAnalytic bool
	Sources     []SourceFile
	BuiltAt     time.Time
}

// NewRegionTable takes ownership of rows. Callers guarantee unique names.
func NewRegionTable(rows []Region, opts TableOptions) *RegionTable {
	keyFunc := opts.KeyFunc
	if keyFunc == nil {
		keyFunc = func(s string) string { return s }
	}
	builtAt := opts.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}
	t := &RegionTable{
		rows:        rows,
		index:       make(map[string]int, len(rows)),
		keyFunc:     keyFunc,
		hasAnalytic: opts.HasAnalytic,
		sources:     append([]SourceFile(nil), opts.Sources...),
		builtAt:     builtAt,
	}
	for i, r := range rows {
		t.index[keyFunc(r.Name)] = i
	}
	return t
}

// Len returns the number of regions.
func (t *RegionTable) Len() int {
	return len(t.rows)
}

// Regions returns a copy of all rows in table order.
func (t *RegionTable) Regions() []Region {
	out := make([]Region, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.clone()
	}
	return out
}

// At returns a copy of the i-th row.
func (t *RegionTable) At(i int) Region {
	return t.rows[i].clone()
}

// Lookup finds a region by name. A miss is reported with ok == false.
func (t *RegionTable) Lookup(name string) (Region, bool) {
	i, ok := t.index[t.keyFunc(name)]
	if !ok {
		return Region{}, false
	}
	return t.rows[i].clone(), true
}

// Names returns the region names sorted lexically.
func (t *RegionTable) Names() []string {
	names := make([]string, 0, len(t.rows))
	for _, r := range t.rows {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// WithData returns the number of regions that carry a value.
func (t *RegionTable) WithData() int {
	n := 0
	for _, r := range t.rows {
		if r.HasData() {
			n++
		}
	}
	return n
}

// HasAnalytic reports whether analytic columns are part of the table.
func (t *RegionTable) HasAnalytic() bool {
	return t.hasAnalytic
}

// Columns returns the output column list.
func (t *RegionTable) Columns() []string {
	cols := []string{ColName, ColGeometry, ColRegion, ColValue, ColStaffing, ColCashUse, ColServiceability}
	if t.hasAnalytic {
		cols = append(cols, ColRegionName, ColAnalyticValue, ColPercentChange,
			ColBudgetMillions, ColPopulationChange, ColDetails)
	}
	return cols
}

// Sources returns the files the table was built from.
func (t *RegionTable) Sources() []SourceFile {
	return append([]SourceFile(nil), t.sources...)
}

// BuiltAt returns when the table was built.
func (t *RegionTable) BuiltAt() time.Time {
	return t.builtAt
}
