package scenario

import (
	"time"

	"github.com/gridwatch/dcimpact/pkg/types"
)

// Evergy metro service territory, annual means.
var defaultHistorical = []types.HistoricalYear{
	{Year: 2018, OrganicDemandMW: 11800, WholesalePrice: 28.5, ResidentialRateKWH: 0.128},
	{Year: 2019, OrganicDemandMW: 11950, WholesalePrice: 26.1, ResidentialRateKWH: 0.131},
	{Year: 2020, OrganicDemandMW: 11600, WholesalePrice: 21.4, ResidentialRateKWH: 0.133},
	{Year: 2021, OrganicDemandMW: 12100, WholesalePrice: 38.7, ResidentialRateKWH: 0.137},
	{Year: 2022, OrganicDemandMW: 12300, WholesalePrice: 52.3, ResidentialRateKWH: 0.145},
	{Year: 2023, OrganicDemandMW: 12350, WholesalePrice: 31.2, ResidentialRateKWH: 0.152},
	{Year: 2024, OrganicDemandMW: 12500, WholesalePrice: 33.8, ResidentialRateKWH: 0.158},
}

// announced and permitted projects
var defaultDeployments = []deploymentFile{
	{Name: "Legacy colocation footprint", Effective: "2018-01", MW: 45},
	{Name: "Meta Kansas City campus, phase 1", Effective: "2025-03", MW: 120},
	{Name: "Google Northland campus, phase 1", Effective: "2025-09", MW: 150},
	{Name: "Meta Kansas City campus, phase 2", Effective: "2026-06", MW: 180},
	{Name: "Google Northland campus, phase 2", Effective: "2027-01", MW: 200},
	{Name: "Olathe hyperscale campus, phase 1", Effective: "2027-10", MW: 250},
	{Name: "Lenexa colocation cluster", Effective: "2028-07", MW: 118},
	{Name: "Olathe hyperscale campus, phase 2", Effective: "2029-04", MW: 200},
	{Name: "Port KC AI training campus, phase 1", Effective: "2030-01", MW: 150},
	{Name: "Port KC AI training campus, phase 2", Effective: "2031-06", MW: 250},
	{Name: "Northland AI campus", Effective: "2033-01", MW: 300},
	{Name: "Metro edge expansion", Effective: "2034-09", MW: 200},
}

// DefaultConfig is the documented base case.
var DefaultConfig = types.ScenarioConfig{
	Utilization:           0.85,
	EfficiencyImprovement: 0.15,
	TrendAdjustment:       1.25,
}

// DefaultHeadlines are the published 2030 and 2035 figures for the base case.
var DefaultHeadlines = []types.Headline{
	{Year: 2030, TotalDemandMW: 14340.3, ResidentialRateKWH: 0.2467},
	{Year: 2035, TotalDemandMW: 15535.8, ResidentialRateKWH: 0.2755},
}

// DefaultHeadlineTolerance is the relative tolerance for headline checks.
const DefaultHeadlineTolerance = 0.01

func defaultModel() ModelParams {
	return ModelParams{
		SeasonalAmplitudeMW:     850,
		SeasonalPeakMonth:       time.July,
		HoltAlpha:               0.3,
		HoltBeta:                0.1,
		GridCapacityMW:          15650,
		ScarcityThreshold:       0.80,
		ScarcityCoefficient:     5.0,
		RetailMultiplier:        3.5,
		InfrastructureCostPerMW: 1.62e6,
		CostPassThrough:         0.25,
		AmortizationYears:       10,
		Customers:               1.7e6,
		KWhPerCustomer:          12000,
		CoolingMix: []CoolingShare{
			{Name: "evaporative", Share: 0.60, WUE: 1.8},
			{Name: "air", Share: 0.25, WUE: 0.2},
			{Name: "closed-loop", Share: 0.15, WUE: 0.5},
		},
		SVR: SVRParams{
			C:       100,
			Gamma:   0.1,
			Epsilon: 0.1,
		},
		MinTrainingPoints: 10,
		ForecastEndYear:   2035,
	}
}

// Default returns the base-case scenario. The returned value is a fresh copy.
func Default() *Scenario {
	sc, err := build(DefaultConfig, defaultHistorical, defaultDeployments, defaultModel())
	if err != nil {
		// the embedded defaults are covered by tests
		panic(err)
	}
	sc.Headlines = append([]types.Headline(nil), DefaultHeadlines...)
	sc.HeadlineTolerance = DefaultHeadlineTolerance
	return sc
}
