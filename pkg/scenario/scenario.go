package scenario

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gridwatch/dcimpact/pkg/types"
)

// ErrValidation is wrapped by every error caused by malformed scenario input.
var ErrValidation = errors.New("invalid scenario")

// CoolingShare is one cooling technology in the weighted WUE blend.
type CoolingShare struct {
	Name  string  `yaml:"name"`
	Share float64 `yaml:"share"`
	WUE   float64 `yaml:"wue"` // liters per kWh
}

// SVRParams are the price model hyper-parameters.
type SVRParams struct {
	C       float64
	Gamma   float64
	Epsilon float64
}

// ModelParams are the fixed constants of the forecast formulas.
type ModelParams struct {
	SeasonalAmplitudeMW float64
	SeasonalPeakMonth   time.Month
	HoltAlpha           float64
	HoltBeta            float64

	GridCapacityMW      float64
	ScarcityThreshold   float64
	ScarcityCoefficient float64

	RetailMultiplier        float64
	InfrastructureCostPerMW float64 // dollars
	CostPassThrough         float64
	AmortizationYears       float64
	Customers               float64
	KWhPerCustomer          float64 // annual

	CoolingMix []CoolingShare
	SVR        SVRParams

	MinTrainingPoints int
	ForecastEndYear   int
}

// Scenario is everything a forecast run needs. Treat it as immutable once
// built; use Clone before modifying.
type Scenario struct {
	Config      types.ScenarioConfig
	Historical  []types.HistoricalYear
	Deployments []types.DeploymentEvent
	Model       ModelParams

	Headlines         []types.Headline
	HeadlineTolerance float64
}

// ParseMonth parses a YYYY-MM month into the first of that month in UTC.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(types.MonthFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed month %q (want YYYY-MM): %v", ErrValidation, s, err)
	}
	return t.UTC(), nil
}

func build(cfg types.ScenarioConfig, hist []types.HistoricalYear, deps []deploymentFile, model ModelParams) (*Scenario, error) {
	events := make([]types.DeploymentEvent, 0, len(deps))
	for _, d := range deps {
		eff, err := ParseMonth(d.Effective)
		if err != nil {
			return nil, fmt.Errorf("deployment %q: %w", d.Name, err)
		}
		events = append(events, types.DeploymentEvent{
			Name:      d.Name,
			Effective: eff,
			MW:        d.MW,
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Effective.Before(events[j].Effective)
	})
	sc := &Scenario{
		Config:      cfg,
		Historical:  append([]types.HistoricalYear(nil), hist...),
		Deployments: events,
		Model:       model,
	}
	sc.Model.CoolingMix = append([]CoolingShare(nil), model.CoolingMix...)
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Clone returns a deep copy.
func (s *Scenario) Clone() *Scenario {
	c := *s
	c.Historical = append([]types.HistoricalYear(nil), s.Historical...)
	c.Deployments = append([]types.DeploymentEvent(nil), s.Deployments...)
	c.Model.CoolingMix = append([]CoolingShare(nil), s.Model.CoolingMix...)
	c.Headlines = append([]types.Headline(nil), s.Headlines...)
	return &c
}

// WithConfig returns a copy of the scenario using cfg.
func (s *Scenario) WithConfig(cfg types.ScenarioConfig) (*Scenario, error) {
	c := s.Clone()
	c.Config = cfg
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// HistoryStart is the first month of the historical table.
func (s *Scenario) HistoryStart() time.Time {
	return time.Date(s.Historical[0].Year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// ForecastStart is the first month after the historical table.
func (s *Scenario) ForecastStart() time.Time {
	last := s.Historical[len(s.Historical)-1].Year
	return time.Date(last+1, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// ForecastEnd is the last forecast month (December of ForecastEndYear).
func (s *Scenario) ForecastEnd() time.Time {
	return time.Date(s.Model.ForecastEndYear, time.December, 1, 0, 0, 0, 0, time.UTC)
}

// WeightedWUE is the cooling-mix water intensity in liters per kWh, after the
// efficiency improvement.
func (s *Scenario) WeightedWUE() float64 {
	var wue float64
	for _, c := range s.Model.CoolingMix {
		wue += c.Share * c.WUE
	}
	return wue * (1 - s.Config.EfficiencyImprovement)
}

// Validate checks the scenario and returns an error wrapping ErrValidation.
func (s *Scenario) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: scenario is nil", ErrValidation)
	}
	if err := validateConfig(s.Config); err != nil {
		return err
	}
	if len(s.Historical) == 0 {
		return fmt.Errorf("%w: historical data is missing", ErrValidation)
	}
	for i, h := range s.Historical {
		if i > 0 && h.Year != s.Historical[i-1].Year+1 {
			return fmt.Errorf("%w: historical years must be contiguous, %d follows %d", ErrValidation, h.Year, s.Historical[i-1].Year)
		}
		if !positive(h.OrganicDemandMW) || !positive(h.WholesalePrice) || !positive(h.ResidentialRateKWH) {
			return fmt.Errorf("%w: historical year %d has non-positive values", ErrValidation, h.Year)
		}
	}
	for _, d := range s.Deployments {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("%w: deployment name is required", ErrValidation)
		}
		if d.Effective.IsZero() || d.Effective.Day() != 1 {
			return fmt.Errorf("%w: deployment %q has a malformed effective date", ErrValidation, d.Name)
		}
		if !positive(d.MW) {
			return fmt.Errorf("%w: deployment %q must add a positive capacity", ErrValidation, d.Name)
		}
	}

	m := s.Model
	if m.ForecastEndYear <= s.Historical[len(s.Historical)-1].Year {
		return fmt.Errorf("%w: forecast end year %d must follow the historical data", ErrValidation, m.ForecastEndYear)
	}
	if !(m.HoltAlpha > 0) || m.HoltAlpha > 1 || !(m.HoltBeta > 0) || m.HoltBeta > 1 {
		return fmt.Errorf("%w: smoothing factors must be in (0,1]", ErrValidation)
	}
	if m.SeasonalPeakMonth < time.January || m.SeasonalPeakMonth > time.December {
		return fmt.Errorf("%w: seasonal peak month %d out of range", ErrValidation, m.SeasonalPeakMonth)
	}
	for name, v := range map[string]float64{
		"grid capacity":       m.GridCapacityMW,
		"retail multiplier":   m.RetailMultiplier,
		"amortization years":  m.AmortizationYears,
		"customers":           m.Customers,
		"kWh per customer":    m.KWhPerCustomer,
		"svr c":               m.SVR.C,
		"svr gamma":           m.SVR.Gamma,
		"infrastructure cost": m.InfrastructureCostPerMW,
	} {
		if !positive(v) {
			return fmt.Errorf("%w: %s must be positive", ErrValidation, name)
		}
	}
	for name, v := range map[string]float64{
		"svr epsilon":          m.SVR.Epsilon,
		"seasonal amplitude":   m.SeasonalAmplitudeMW,
		"scarcity coefficient": m.ScarcityCoefficient,
		"scarcity threshold":   m.ScarcityThreshold,
	} {
		if !nonNegative(v) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrValidation, name)
		}
	}
	if !(m.CostPassThrough >= 0) || !(m.CostPassThrough <= 1) {
		return fmt.Errorf("%w: cost pass-through must be in [0,1]", ErrValidation)
	}
	if m.MinTrainingPoints < 0 {
		return fmt.Errorf("%w: min training points must not be negative", ErrValidation)
	}
	var share float64
	for _, c := range m.CoolingMix {
		if !nonNegative(c.Share) || !nonNegative(c.WUE) {
			return fmt.Errorf("%w: cooling share %q must be a non-negative number", ErrValidation, c.Name)
		}
		share += c.Share
	}
	if !(math.Abs(share-1) <= 1e-9) {
		return fmt.Errorf("%w: cooling mix shares sum to %.4f, want 1", ErrValidation, share)
	}
	return nil
}

func validateConfig(c types.ScenarioConfig) error {
	if !(c.Utilization > 0) || !(c.Utilization <= 1) {
		return fmt.Errorf("%w: utilization %.4f must be in (0,1]", ErrValidation, c.Utilization)
	}
	if !(c.EfficiencyImprovement >= 0) || !(c.EfficiencyImprovement < 1) {
		return fmt.Errorf("%w: efficiency improvement %.4f must be in [0,1)", ErrValidation, c.EfficiencyImprovement)
	}
	if !positive(c.TrendAdjustment) {
		return fmt.Errorf("%w: trend adjustment %.4f must be positive", ErrValidation, c.TrendAdjustment)
	}
	return nil
}

// positive rejects NaN and +Inf along with everything <= 0.
func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

func nonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 1)
}
