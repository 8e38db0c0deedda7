package types

import "time"

// MonthFormat is the layout used for effective months in scenario files.
const MonthFormat = "2006-01"

// DateFormat is the layout used for record dates in CSV output.
const DateFormat = "2006-01-02"

// TimeSeriesRecord is one month of the historical + forecast horizon.
type TimeSeriesRecord struct {
	Date               time.Time `json:"date"`
	TotalDemandMW      float64   `json:"totalDemandMW"`
	DCLoadMW           float64   `json:"dcLoadMW"`
	WholesalePrice     float64   `json:"wholesalePrice"`     // $/MWh
	ResidentialRateKWH float64   `json:"residentialRateKWH"` // $/kWh
	WaterUsageGallons  float64   `json:"waterUsageGallons"`  // gallons/day
	Forecast           bool      `json:"forecast"`
}

// DeploymentEvent is a data center capacity addition.
type DeploymentEvent struct {
	Name      string    `json:"name"`
	Effective time.Time `json:"effective"`
	MW        float64   `json:"mw"`
}

// ScenarioConfig holds the factors that shape a single forecast run.
type ScenarioConfig struct {
	// Fraction of nameplate data center capacity drawn on average.
	Utilization float64 `json:"utilization" yaml:"utilization"`
	// Fractional improvement applied to cooling water intensity.
	EfficiencyImprovement float64 `json:"efficiencyImprovement" yaml:"efficiency_improvement"`
	// Multiplier on the smoothed organic demand trend for forecast months.
	TrendAdjustment float64 `json:"trendAdjustment" yaml:"trend_adjustment"`
}

// HistoricalYear is one year of observed annual averages.
type HistoricalYear struct {
	Year               int     `json:"year" yaml:"year"`
	OrganicDemandMW    float64 `json:"organicDemandMW" yaml:"organic_demand_mw"`
	WholesalePrice     float64 `json:"wholesalePrice" yaml:"wholesale_price"`
	ResidentialRateKWH float64 `json:"residentialRateKWH" yaml:"residential_rate_kwh"`
}

// AnnualSummary is the calendar-year mean of the monthly records.
type AnnualSummary struct {
	Year                 int     `json:"year"`
	TotalDemandMW        float64 `json:"totalDemandMW"`
	DCLoadMW             float64 `json:"dcLoadMW"`
	DCCapacityMW         float64 `json:"dcCapacityMW"` // nameplate at year end
	WholesalePrice       float64 `json:"wholesalePrice"`
	ResidentialRateKWH   float64 `json:"residentialRateKWH"`
	WaterUsageGallons    float64 `json:"waterUsageGallons"`
	MonthlyBillDollars   float64 `json:"monthlyBillDollars"` // at 1,000 kWh
	Forecast             bool    `json:"forecast"`
	ResidentialChangePct float64 `json:"residentialChangePct"` // vs last historical year
	TotalDemandChangePct float64 `json:"totalDemandChangePct"`
}

// Headline is a published checkpoint figure for a forecast year.
type Headline struct {
	Year               int     `json:"year"`
	TotalDemandMW      float64 `json:"totalDemandMW"`
	ResidentialRateKWH float64 `json:"residentialRateKWH"`
}

// HeadlineCheck compares a forecast year against its published headline.
type HeadlineCheck struct {
	Headline
	ActualDemandMW       float64 `json:"actualDemandMW"`
	ActualResidentialKWH float64 `json:"actualResidentialKWH"`
	DemandDeviation      float64 `json:"demandDeviation"`      // relative
	ResidentialDeviation float64 `json:"residentialDeviation"` // relative
	WithinTolerance      bool    `json:"withinTolerance"`
}
