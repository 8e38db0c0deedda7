package svr

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics summarize how well predictions match actual values.
type Metrics struct {
	R2   float64 `json:"r2"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	// MAPE is in percent and skips zero actual values.
	MAPE float64 `json:"mape"`
	N    int     `json:"n"`
}

// Evaluate compares predicted against actual. R2 is NaN when actual is
// constant.
func Evaluate(actual, predicted []float64) (Metrics, error) {
	if len(actual) == 0 {
		return Metrics{}, ErrNoData
	}
	if len(actual) != len(predicted) {
		return Metrics{}, fmt.Errorf("%w: %d != %d", ErrMismatch, len(actual), len(predicted))
	}
	var sq, abs, pct float64
	var pctN int
	for i, a := range actual {
		d := a - predicted[i]
		sq += d * d
		abs += math.Abs(d)
		if a != 0 {
			pct += math.Abs(d / a)
			pctN++
		}
	}
	n := float64(len(actual))
	m := Metrics{
		R2:   stat.RSquaredFrom(predicted, actual, nil),
		RMSE: math.Sqrt(sq / n),
		MAE:  abs / n,
		N:    len(actual),
	}
	if pctN > 0 {
		m.MAPE = pct / float64(pctN) * 100
	}
	return m, nil
}
