package core

// Analytic CSV column names.
const (
	ColRegionName       = "region_name"
	ColRegion           = "region"
	ColValue            = "value"
	ColPercentChange    = "percent_change"
	ColBudgetMillions   = "budget_millions"
	ColPopulationChange = "population_change"
	ColDetails          = "details"
)

// Organizations CSV column names.
const (
	ColCity            = "city"
	ColByStaff         = "by_staff"
	ColByList          = "by_list"
	ColBugetLimits     = "buget_limits"
	ColCashExecution   = "cash_execution"
	ColEquipment       = "equipment"
	ColFaultyEquipment = "faulty_equipment"
)

// Derived metric column names.
const (
	ColStaffing       = "staffing"
	ColCashUse        = "cash_use"
	ColServiceability = "serviceability"
)

// AnalyticColumns is the header of the analytic CSV, in file order.
var AnalyticColumns = []string{
	ColRegionName, ColRegion, ColValue, ColPercentChange,
	ColBudgetMillions, ColPopulationChange, ColDetails,
}

// OrganizationColumns is the header of the organizations CSV, in file order.
var OrganizationColumns = []string{
	ColCity, ColRegion, ColByStaff, ColByList,
	ColBugetLimits, ColCashExecution, ColEquipment, ColFaultyEquipment,
}

// DerivedColumns are computed from an OrganizationRecord and never read from input.
var DerivedColumns = []string{ColStaffing, ColCashUse, ColServiceability, ColValue}

// AnalyticRecord is one validated row of the analytic CSV.
// Records are passed by value; nothing mutates them after validation.
type AnalyticRecord struct {
	RegionName string `field:"region_name" validate:"required"`
	// Region is the join key matched against the region geometry name.
	Region           string  `field:"region" validate:"required"`
	Value            float64 `field:"value"`
	PercentChange    float64 `field:"percent_change"`
	BudgetMillions   float64 `field:"budget_millions"`
	PopulationChange float64 `field:"population_change"`
	Details          string  `field:"details" validate:"required"`
}

// OrganizationRecord is one validated row of the organizations CSV.
type OrganizationRecord struct {
	// City is where the organization is located.
	City string `field:"city" validate:"required"`
	// Region is the join key matched against the region geometry name.
	Region string `field:"region" validate:"required"`
	// ByStaff is the head count in the staffing table.
	ByStaff int `field:"by_staff" validate:"gte=0,lte=100"`
	// ByList is the actual number of employees.
	ByList int `field:"by_list" validate:"gte=0,lte=100"`
	// BugetLimits is the allocated spending limit.
	BugetLimits int `field:"buget_limits" validate:"gte=0,lte=100"`
	// CashExecution is the amount actually spent.
	CashExecution int `field:"cash_execution" validate:"gte=0,lte=100"`
	// Equipment is the number of machines in stock.
	Equipment int `field:"equipment" validate:"gte=0,lte=100"`
	// FaultyEquipment is the number of broken machines.
	FaultyEquipment int `field:"faulty_equipment" validate:"gte=0,lte=100"`
}

// Organization is a validated organization row with its derived metrics attached.
type Organization struct {
	OrganizationRecord
	Metrics Metrics
}

// NewOrganization attaches the metrics derived from rec.
func NewOrganization(rec OrganizationRecord) Organization {
	return Organization{OrganizationRecord: rec, Metrics: DeriveMetrics(rec)}
}
