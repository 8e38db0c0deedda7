package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/levenlabs/go-lflag"
)

// Loader resolves the scenario for a process from flags.
type Loader struct {
	path      string
	overrides Overrides
}

// Overrides replace individual ScenarioConfig factors. Nil fields keep the
// scenario's value.
type Overrides struct {
	Utilization           *float64 `json:"utilization,omitempty"`
	EfficiencyImprovement *float64 `json:"efficiencyImprovement,omitempty"`
	TrendAdjustment       *float64 `json:"trendAdjustment,omitempty"`
}

// Configured registers the scenario flags. The returned Loader is usable after
// lflag.Configure.
func Configured() *Loader {
	path := lflag.String("scenario-file", "", "YAML scenario file overriding the built-in historical data, deployments and model constants")
	util := lflag.String("utilization", "", "Data center utilization factor in (0,1] (default from scenario)")
	eff := lflag.String("efficiency-improvement", "", "Cooling efficiency improvement in [0,1) (default from scenario)")
	trend := lflag.String("trend-adjustment", "", "Multiplier on the organic demand trend (default from scenario)")

	var l Loader
	lflag.Do(func() {
		l.path = strings.TrimSpace(*path)
		for _, f := range []struct {
			name string
			raw  string
			dst  **float64
		}{
			{"utilization", *util, &l.overrides.Utilization},
			{"efficiency-improvement", *eff, &l.overrides.EfficiencyImprovement},
			{"trend-adjustment", *trend, &l.overrides.TrendAdjustment},
		} {
			v, err := parseOptionalFloat(f.raw)
			if err != nil {
				panic(fmt.Sprintf("invalid --%s: %v", f.name, err))
			}
			*f.dst = v
		}
	})
	return &l
}

// Load returns the scenario from the configured file (or the defaults) with
// flag overrides applied.
func (l *Loader) Load() (*Scenario, error) {
	var sc *Scenario
	if l.path != "" {
		var err error
		sc, err = LoadFile(l.path)
		if err != nil {
			return nil, err
		}
	} else {
		sc = Default()
	}
	return sc.Apply(l.overrides)
}

// Apply returns a copy of s with the overrides applied. Headlines are dropped
// when the configuration changes since they describe the base case only.
func (s *Scenario) Apply(o Overrides) (*Scenario, error) {
	cfg := s.Config
	if o.Utilization != nil {
		cfg.Utilization = *o.Utilization
	}
	if o.EfficiencyImprovement != nil {
		cfg.EfficiencyImprovement = *o.EfficiencyImprovement
	}
	if o.TrendAdjustment != nil {
		cfg.TrendAdjustment = *o.TrendAdjustment
	}
	c, err := s.WithConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cfg != s.Config {
		c.Headlines = nil
	}
	return c, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
