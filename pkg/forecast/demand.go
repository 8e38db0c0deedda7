package forecast

import (
	"errors"
	"math"
	"time"

	"github.com/gridwatch/dcimpact/pkg/scenario"
)

// Holt is a fitted linear exponential smoothing state.
type Holt struct {
	Level float64 `json:"level"`
	Trend float64 `json:"trend"`
}

// FitHolt runs Holt's linear method over series, seeding the level with the
// first value and the trend with the first difference.
func FitHolt(series []float64, alpha, beta float64) (Holt, error) {
	if len(series) < 2 {
		return Holt{}, errors.New("holt smoothing needs at least two observations")
	}
	h := Holt{Level: series[0], Trend: series[1] - series[0]}
	for _, x := range series[1:] {
		prev := h.Level
		h.Level = alpha*x + (1-alpha)*(h.Level+h.Trend)
		h.Trend = beta*(h.Level-prev) + (1-beta)*h.Trend
	}
	return h, nil
}

// At projects steps ahead with the trend scaled by trendAdj.
func (h Holt) At(steps int, trendAdj float64) float64 {
	return h.Level + trendAdj*h.Trend*float64(steps)
}

// Seasonal is the cosine demand swing for month m, peaking at peak.
func Seasonal(amplitude float64, peak, m time.Month) float64 {
	return amplitude * math.Cos(2*math.Pi*float64(m-peak)/12)
}

// monthsBetween counts whole months from a to b.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// DemandForecaster produces monthly total demand for a scenario.
type DemandForecaster struct {
	sc      *scenario.Scenario
	holt    Holt
	organic map[int]float64
	start   time.Time
}

// NewDemandForecaster fits the organic baseline on the scenario's history.
func NewDemandForecaster(sc *scenario.Scenario) (*DemandForecaster, error) {
	d := &DemandForecaster{
		sc:      sc,
		organic: make(map[int]float64, len(sc.Historical)),
		start:   sc.ForecastStart(),
	}
	// annual means repeated per month; the seasonal term is modelled separately
	series := make([]float64, 0, len(sc.Historical)*12)
	for _, h := range sc.Historical {
		d.organic[h.Year] = h.OrganicDemandMW
		for range 12 {
			series = append(series, h.OrganicDemandMW)
		}
	}
	holt, err := FitHolt(series, sc.Model.HoltAlpha, sc.Model.HoltBeta)
	if err != nil {
		return nil, err
	}
	d.holt = holt
	return d, nil
}

// Holt returns the fitted smoothing state at the end of the history.
func (d *DemandForecaster) Holt() Holt {
	return d.holt
}

// Organic is the baseline demand excluding seasonality and data centers.
func (d *DemandForecaster) Organic(t time.Time) float64 {
	if t.Before(d.start) {
		return d.organic[t.Year()]
	}
	return d.holt.At(monthsBetween(d.start, t)+1, d.sc.Config.TrendAdjustment)
}

// Seasonal is the seasonal adjustment for t.
func (d *DemandForecaster) Seasonal(t time.Time) float64 {
	return Seasonal(d.sc.Model.SeasonalAmplitudeMW, d.sc.Model.SeasonalPeakMonth, t.Month())
}

// Capacity is the nameplate data center capacity in service at t.
func (d *DemandForecaster) Capacity(t time.Time) float64 {
	var mw float64
	for _, e := range d.sc.Deployments {
		if !e.Effective.After(t) {
			mw += e.MW
		}
	}
	return mw
}

// AddedCapacity is the capacity brought into service from the forecast start
// through t.
func (d *DemandForecaster) AddedCapacity(t time.Time) float64 {
	var mw float64
	for _, e := range d.sc.Deployments {
		if !e.Effective.Before(d.start) && !e.Effective.After(t) {
			mw += e.MW
		}
	}
	return mw
}

// DCLoad is the average data center draw at t.
func (d *DemandForecaster) DCLoad(t time.Time) float64 {
	return d.Capacity(t) * d.sc.Config.Utilization
}

// Total is organic + seasonal + data center demand at t.
func (d *DemandForecaster) Total(t time.Time) float64 {
	return d.Organic(t) + d.Seasonal(t) + d.DCLoad(t)
}
