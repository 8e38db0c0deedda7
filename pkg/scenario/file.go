package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridwatch/dcimpact/pkg/types"
)

type deploymentFile struct {
	Name      string  `yaml:"name"`
	Effective string  `yaml:"effective"` // YYYY-MM
	MW        float64 `yaml:"mw"`
}

type configFile struct {
	Utilization           *float64 `yaml:"utilization"`
	EfficiencyImprovement *float64 `yaml:"efficiency_improvement"`
	TrendAdjustment       *float64 `yaml:"trend_adjustment"`
}

// Nil fields keep the default, so an explicit zero is a real value.
type modelFile struct {
	SeasonalAmplitudeMW *float64 `yaml:"seasonal_amplitude_mw"`
	SeasonalPeakMonth   *int     `yaml:"seasonal_peak_month"`
	HoltAlpha           *float64 `yaml:"holt_alpha"`
	HoltBeta            *float64 `yaml:"holt_beta"`

	GridCapacityMW      *float64 `yaml:"grid_capacity_mw"`
	ScarcityThreshold   *float64 `yaml:"scarcity_threshold"`
	ScarcityCoefficient *float64 `yaml:"scarcity_coefficient"`

	RetailMultiplier        *float64 `yaml:"retail_multiplier"`
	InfrastructureCostPerMW *float64 `yaml:"infrastructure_cost_per_mw"`
	CostPassThrough         *float64 `yaml:"cost_pass_through"`
	AmortizationYears       *float64 `yaml:"amortization_years"`
	Customers               *float64 `yaml:"customers"`
	KWhPerCustomer          *float64 `yaml:"kwh_per_customer"`

	CoolingMix []CoolingShare `yaml:"cooling_mix"`
	SVR        svrFile        `yaml:"svr"`

	MinTrainingPoints *int `yaml:"min_training_points"`
	ForecastEndYear   *int `yaml:"forecast_end_year"`
}

type svrFile struct {
	C       *float64 `yaml:"c"`
	Gamma   *float64 `yaml:"gamma"`
	Epsilon *float64 `yaml:"epsilon"`
}

// File is the on-disk scenario shape (YAML). Every section is optional; a
// present section replaces (historical, deployments) or overlays (config,
// model) the built-in defaults.
type File struct {
	Config      configFile             `yaml:"config"`
	Historical  []types.HistoricalYear `yaml:"historical"`
	Deployments []deploymentFile       `yaml:"deployments"`
	Model       modelFile              `yaml:"model"`
}

// LoadFile reads a YAML scenario file and merges it over the defaults.
func LoadFile(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(raw)
}

// Parse merges a YAML scenario document over the defaults and validates it.
func Parse(raw []byte) (*Scenario, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to parse scenario yaml: %v", ErrValidation, err)
	}
	return f.apply()
}

func (f File) apply() (*Scenario, error) {
	cfg := DefaultConfig
	if f.Config.Utilization != nil {
		cfg.Utilization = *f.Config.Utilization
	}
	if f.Config.EfficiencyImprovement != nil {
		cfg.EfficiencyImprovement = *f.Config.EfficiencyImprovement
	}
	if f.Config.TrendAdjustment != nil {
		cfg.TrendAdjustment = *f.Config.TrendAdjustment
	}

	hist := defaultHistorical
	if len(f.Historical) > 0 {
		hist = f.Historical
	}
	deps := defaultDeployments
	if len(f.Deployments) > 0 {
		deps = f.Deployments
	}

	sc, err := build(cfg, hist, deps, mergeModel(defaultModel(), f.Model))
	if err != nil {
		return nil, err
	}
	// headlines are only published for the built-in inputs
	if len(f.Historical) == 0 && len(f.Deployments) == 0 {
		sc.Headlines = append([]types.Headline(nil), DefaultHeadlines...)
		sc.HeadlineTolerance = DefaultHeadlineTolerance
	}
	return sc, nil
}

// mergeModel overlays the fields set in override onto base.
func mergeModel(base ModelParams, override modelFile) ModelParams {
	out := base
	set(&out.SeasonalAmplitudeMW, override.SeasonalAmplitudeMW)
	if override.SeasonalPeakMonth != nil {
		out.SeasonalPeakMonth = time.Month(*override.SeasonalPeakMonth)
	}
	set(&out.HoltAlpha, override.HoltAlpha)
	set(&out.HoltBeta, override.HoltBeta)
	set(&out.GridCapacityMW, override.GridCapacityMW)
	set(&out.ScarcityThreshold, override.ScarcityThreshold)
	set(&out.ScarcityCoefficient, override.ScarcityCoefficient)
	set(&out.RetailMultiplier, override.RetailMultiplier)
	set(&out.InfrastructureCostPerMW, override.InfrastructureCostPerMW)
	set(&out.CostPassThrough, override.CostPassThrough)
	set(&out.AmortizationYears, override.AmortizationYears)
	set(&out.Customers, override.Customers)
	set(&out.KWhPerCustomer, override.KWhPerCustomer)
	if override.CoolingMix != nil {
		out.CoolingMix = override.CoolingMix
	}
	set(&out.SVR.C, override.SVR.C)
	set(&out.SVR.Gamma, override.SVR.Gamma)
	set(&out.SVR.Epsilon, override.SVR.Epsilon)
	set(&out.MinTrainingPoints, override.MinTrainingPoints)
	set(&out.ForecastEndYear, override.ForecastEndYear)
	return out
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
