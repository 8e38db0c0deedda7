package svr

import (
	"gonum.org/v1/gonum/floats"
)

// MinMaxScaler maps a feature onto [0,1] using the range seen in Fit.
type MinMaxScaler struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FitScaler returns a scaler for xs. xs must not be empty.
func FitScaler(xs []float64) MinMaxScaler {
	return MinMaxScaler{Min: floats.Min(xs), Max: floats.Max(xs)}
}

// Transform scales x. Values outside the fitted range extrapolate linearly. A
// constant feature scales to 0.
func (s MinMaxScaler) Transform(x float64) float64 {
	r := s.Max - s.Min
	if r == 0 {
		return 0
	}
	return (x - s.Min) / r
}

// Inverse undoes Transform.
func (s MinMaxScaler) Inverse(z float64) float64 {
	return s.Min + z*(s.Max-s.Min)
}
