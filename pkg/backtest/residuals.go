package backtest

import (
	"errors"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CurrentMonthlyBill is today's typical residential bill in dollars.
const CurrentMonthlyBill = 182.0

// ConfidenceConfig maps a wholesale projection to retail terms.
type ConfidenceConfig struct {
	Level            float64 `json:"level"`
	PointWholesale   float64 `json:"pointWholesale"` // $/MWh
	RetailMultiplier float64 `json:"retailMultiplier"`
	RetailBase       float64 `json:"retailBase"` // $/kWh
	BillKWH          float64 `json:"billKWH"`
}

// DefaultConfidence is the 2035 wholesale projection at 95%.
var DefaultConfidence = ConfidenceConfig{
	Level:            0.95,
	PointWholesale:   100.98,
	RetailMultiplier: 3.5,
	RetailBase:       0.05,
	BillKWH:          1000,
}

// Interval is a point estimate with symmetric bounds.
type Interval struct {
	Point float64 `json:"point"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Confidence is the uncertainty band around the projection.
type Confidence struct {
	Level         float64  `json:"level"`
	ResidualStd   float64  `json:"residualStd"`
	Margin        float64  `json:"margin"`
	Wholesale     Interval `json:"wholesale"`
	Retail        Interval `json:"retail"`
	Bill          Interval `json:"bill"`
	BillIncrease  float64  `json:"billIncrease"`
	BillPlusMinus float64  `json:"billPlusMinus"`
}

// ConfidenceIntervals sizes a normal band from the residual spread of actual
// against predicted.
func ConfidenceIntervals(actual, predicted []float64, cfg ConfidenceConfig) (*Confidence, error) {
	residuals, err := Residuals(actual, predicted)
	if err != nil {
		return nil, err
	}
	_, std := stat.PopMeanStdDev(residuals, nil)
	z := distuv.UnitNormal.Quantile((1 + cfg.Level) / 2)
	margin := z * std

	c := &Confidence{
		Level:       cfg.Level,
		ResidualStd: std,
		Margin:      margin,
		Wholesale: Interval{
			Point: cfg.PointWholesale,
			Lower: cfg.PointWholesale - margin,
			Upper: cfg.PointWholesale + margin,
		},
	}
	retail := func(w float64) float64 { return w/1000*cfg.RetailMultiplier + cfg.RetailBase }
	c.Retail = Interval{
		Point: retail(c.Wholesale.Point),
		Lower: retail(c.Wholesale.Lower),
		Upper: retail(c.Wholesale.Upper),
	}
	bill := func(r float64) float64 {
		return decimal.NewFromFloat(r).Mul(decimal.NewFromFloat(cfg.BillKWH)).Round(2).InexactFloat64()
	}
	c.Bill = Interval{
		Point: bill(c.Retail.Point),
		Lower: bill(c.Retail.Lower),
		Upper: bill(c.Retail.Upper),
	}
	c.BillIncrease = decimal.NewFromFloat(c.Bill.Point).Sub(decimal.NewFromFloat(CurrentMonthlyBill)).InexactFloat64()
	c.BillPlusMinus = (c.Bill.Upper - c.Bill.Lower) / 2
	return c, nil
}

// Bias describes systematic over or under prediction.
type Bias string

const (
	BiasNone  Bias = "none"
	BiasUnder Bias = "underestimates"
	BiasOver  Bias = "overestimates"
)

// biasBand is the mean residual ($/MWh) treated as unbiased.
const biasBand = 2.0

// ResidualAnalysis summarizes actual - predicted.
type ResidualAnalysis struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Bias   Bias    `json:"bias"`

	NormalityP float64 `json:"normalityP"`
	Normal     bool    `json:"normal"`

	// Autocorrelation is only computed for more than 10 residuals.
	Autocorrelation    *float64 `json:"autocorrelation,omitempty"`
	LowAutocorrelation bool     `json:"lowAutocorrelation"`
}

// Residuals returns actual - predicted.
func Residuals(actual, predicted []float64) ([]float64, error) {
	if len(actual) == 0 {
		return nil, errors.New("no residuals")
	}
	if len(actual) != len(predicted) {
		return nil, errors.New("actual and predicted differ in length")
	}
	r := make([]float64, len(actual))
	floats.SubTo(r, actual, predicted)
	return r, nil
}

// AnalyzeResiduals checks actual - predicted for bias, normality and serial
// correlation.
func AnalyzeResiduals(actual, predicted []float64) (*ResidualAnalysis, error) {
	r, err := Residuals(actual, predicted)
	if err != nil {
		return nil, err
	}
	mean, std := stat.PopMeanStdDev(r, nil)
	a := &ResidualAnalysis{
		N:      len(r),
		Mean:   mean,
		Median: median(r),
		Std:    std,
		Min:    floats.Min(r),
		Max:    floats.Max(r),
		Bias:   BiasNone,
	}
	switch {
	case mean > biasBand:
		a.Bias = BiasUnder
	case mean < -biasBand:
		a.Bias = BiasOver
	}

	if p, err := NormalTest(r); err == nil {
		a.NormalityP = p
		a.Normal = p > 0.05
	} else {
		a.NormalityP = math.NaN()
	}

	if len(r) > 10 {
		acf := stat.Correlation(r[:len(r)-1], r[1:], nil)
		a.Autocorrelation = &acf
		a.LowAutocorrelation = math.Abs(acf) < 0.3
	}
	return a, nil
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// ErrTooFewSamples is returned by NormalTest for fewer than 8 samples.
var ErrTooFewSamples = errors.New("normality test needs at least 8 samples")

// NormalTest is D'Agostino and Pearson's omnibus test combining skewness and
// kurtosis. It returns the p-value for the null hypothesis that xs comes from
// a normal distribution.
func NormalTest(xs []float64) (float64, error) {
	if len(xs) < 8 {
		return 0, ErrTooFewSamples
	}
	zs := skewZ(xs)
	zk := kurtosisZ(xs)
	k2 := zs*zs + zk*zk
	return distuv.ChiSquared{K: 2}.Survival(k2), nil
}

// centralMoments returns the biased second, third and fourth central moments.
func centralMoments(xs []float64) (m2, m3, m4 float64) {
	mean := stat.Mean(xs, nil)
	return stat.MomentAbout(2, xs, mean, nil),
		stat.MomentAbout(3, xs, mean, nil),
		stat.MomentAbout(4, xs, mean, nil)
}

func skewZ(xs []float64) float64 {
	n := float64(len(xs))
	m2, m3, _ := centralMoments(xs)
	b2 := m3 / math.Pow(m2, 1.5)
	y := b2 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := 3 * (n*n + 27*n - 70) * (n + 1) * (n + 3) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(0.5*math.Log(w2))
	alpha := math.Sqrt(2 / (w2 - 1))
	if y == 0 {
		y = 1
	}
	return delta * math.Log(y/alpha+math.Sqrt((y/alpha)*(y/alpha)+1))
}

func kurtosisZ(xs []float64) float64 {
	n := float64(len(xs))
	m2, _, m4 := centralMoments(xs)
	b2 := m4 / (m2 * m2)
	e := 3 * (n - 1) / (n + 1)
	varb2 := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	x := (b2 - e) / math.Sqrt(varb2)
	sqrtbeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) * math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sqrtbeta1*(2/sqrtbeta1+math.Sqrt(1+4/(sqrtbeta1*sqrtbeta1)))
	term1 := 1 - 2/(9*a)
	denom := 1 + x*math.Sqrt(2/(a-4))
	if denom == 0 {
		return math.NaN()
	}
	term2 := math.Copysign(math.Cbrt((1-2/a)/math.Abs(denom)), denom)
	return (term1 - term2) / math.Sqrt(2/(9*a))
}
