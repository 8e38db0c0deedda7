package backtest

// PublishedBaseIncreasePct is the published base-case residential rate
// increase that scenario deltas are reported against.
const PublishedBaseIncreasePct = 124.0

// RateImpactParams are the inputs of the simplified rate impact model.
type RateImpactParams struct {
	DCCapacityMW       float64 `json:"dcCapacityMW"`
	Utilization        float64 `json:"utilization"`
	CostPerMWMillions  float64 `json:"costPerMWMillions"`
	PassThrough        float64 `json:"passThrough"`
	Customers          float64 `json:"customers"`
	AnnualBillDollars  float64 `json:"annualBillDollars"`
	GridCapacityMW     float64 `json:"gridCapacityMW"`
	PenetrationPremium float64 `json:"penetrationPremium"` // percent per unit of grid share
}

// DefaultRateImpact is the 2030 base case.
var DefaultRateImpact = RateImpactParams{
	DCCapacityMW:       1368,
	Utilization:        0.85,
	CostPerMWMillions:  1.62,
	PassThrough:        0.25,
	Customers:          1.7e6,
	AnnualBillDollars:  2184,
	GridCapacityMW:     15650,
	PenetrationPremium: 400,
}

// RateImpact is the percent residential rate increase: infrastructure cost
// recovered from ratepayers relative to the current annual bill, plus a
// capacity market premium proportional to data center grid share.
func RateImpact(p RateImpactParams) float64 {
	capacity := p.DCCapacityMW / p.Utilization
	costBillions := capacity * p.CostPerMWMillions / 1000
	ratepayerBillions := costBillions * p.PassThrough
	perCustomer := ratepayerBillions * 1e9 / p.Customers
	increase := perCustomer / p.AnnualBillDollars * 100
	premium := p.DCCapacityMW / p.GridCapacityMW * p.PenetrationPremium
	return increase + premium
}

// SensitivityResult is one scenario of the sensitivity analysis.
type SensitivityResult struct {
	Name   string           `json:"name"`
	Params RateImpactParams `json:"params"`
	// IncreasePct is the modelled rate increase.
	IncreasePct float64 `json:"increasePct"`
	// DeltaVsBase is relative to the modelled base scenario.
	DeltaVsBase float64 `json:"deltaVsBase"`
	// DeltaVsPublished is relative to PublishedBaseIncreasePct.
	DeltaVsPublished float64 `json:"deltaVsPublished"`
}

// Sensitivity evaluates the standard scenarios around base.
func Sensitivity(base RateImpactParams) []SensitivityResult {
	type scenario struct {
		name   string
		modify func(*RateImpactParams)
	}
	scenarios := []scenario{
		{"Base case", func(*RateImpactParams) {}},
		{"Lower deployment (-30%)", func(p *RateImpactParams) { p.DCCapacityMW *= 0.70 }},
		{"Higher efficiency (utilization x0.8)", func(p *RateImpactParams) { p.Utilization *= 0.80 }},
		{"Strong cost allocation (10% pass-through)", func(p *RateImpactParams) { p.PassThrough = 0.10 }},
		{"Aggressive deployment (+50%)", func(p *RateImpactParams) { p.DCCapacityMW *= 1.50 }},
	}
	baseIncrease := RateImpact(base)
	out := make([]SensitivityResult, 0, len(scenarios))
	for _, s := range scenarios {
		p := base
		s.modify(&p)
		inc := RateImpact(p)
		out = append(out, SensitivityResult{
			Name:             s.name,
			Params:           p,
			IncreasePct:      inc,
			DeltaVsBase:      inc - baseIncrease,
			DeltaVsPublished: inc - PublishedBaseIncreasePct,
		})
	}
	return out
}
