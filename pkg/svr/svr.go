// Package svr implements epsilon-support vector regression over a single
// feature with an RBF kernel. The dual is solved with SMO using second-order
// working set selection.
package svr

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const tau = 1e-12

var (
	// ErrNoData is returned when fitting on an empty training set.
	ErrNoData = errors.New("svr: no training data")
	// ErrMismatch is returned when features and targets differ in length.
	ErrMismatch = errors.New("svr: features and targets differ in length")
)

// Params are the hyper-parameters of the regression.
type Params struct {
	C       float64
	Gamma   float64
	Epsilon float64

	// Tolerance is the stopping criterion on the maximal violating pair.
	// Defaults to 1e-3.
	Tolerance float64
	// MaxIterations bounds SMO. Defaults to 10,000,000.
	MaxIterations int
}

func (p Params) withDefaults() Params {
	if p.Tolerance <= 0 {
		p.Tolerance = 1e-3
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = 10_000_000
	}
	return p
}

// Model is a fitted regression.
type Model struct {
	params  Params
	scaler  MinMaxScaler
	support []float64 // scaled training features
	coef    []float64 // alpha - alpha*
	rho     float64

	Iterations int
}

// Kernel is the RBF kernel exp(-gamma * (a-b)^2).
func Kernel(gamma, a, b float64) float64 {
	d := a - b
	return math.Exp(-gamma * d * d)
}

// Fit trains a model on (xs, ys).
func Fit(xs, ys []float64, p Params) (*Model, error) {
	if len(xs) == 0 {
		return nil, ErrNoData
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d != %d", ErrMismatch, len(xs), len(ys))
	}
	if !(p.C > 0) || !(p.Gamma > 0) || p.Epsilon < 0 {
		return nil, fmt.Errorf("svr: invalid parameters C=%v gamma=%v epsilon=%v", p.C, p.Gamma, p.Epsilon)
	}
	p = p.withDefaults()

	m := &Model{
		params:  p,
		scaler:  FitScaler(xs),
		support: make([]float64, len(xs)),
	}
	for i, x := range xs {
		m.support[i] = m.scaler.Transform(x)
	}

	l := len(xs)
	gram := mat.NewSymDense(l, nil)
	for i := 0; i < l; i++ {
		for j := i; j < l; j++ {
			gram.SetSym(i, j, Kernel(p.Gamma, m.support[i], m.support[j]))
		}
	}

	s := newSolver(gram, ys, p)
	s.solve()
	m.Iterations = s.iter
	m.rho = s.calculateRho()
	m.coef = make([]float64, l)
	for i := range m.coef {
		m.coef[i] = s.alpha[i] - s.alpha[i+l]
	}
	return m, nil
}

// Predict evaluates the model at x (unscaled).
func (m *Model) Predict(x float64) float64 {
	z := m.scaler.Transform(x)
	var sum float64
	for i, c := range m.coef {
		sum += c * Kernel(m.params.Gamma, m.support[i], z)
	}
	return sum - m.rho
}

// PredictAll evaluates the model at every x.
func (m *Model) PredictAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.Predict(x)
	}
	return out
}

// Coefficients returns alpha - alpha* for each training point.
func (m *Model) Coefficients() []float64 {
	return append([]float64(nil), m.coef...)
}

// Rho is the model intercept with the sign convention f(x) = sum - rho.
func (m *Model) Rho() float64 {
	return m.rho
}

// SupportVectors is the number of training points with a non-zero coefficient.
func (m *Model) SupportVectors() int {
	var n int
	for _, c := range m.coef {
		if c != 0 {
			n++
		}
	}
	return n
}

// Scaler returns the feature scaler fitted on the training data.
func (m *Model) Scaler() MinMaxScaler {
	return m.scaler
}

// CoefficientSum is the dual equality constraint residual. It is zero for a
// converged solution.
func (m *Model) CoefficientSum() float64 {
	return floats.Sum(m.coef)
}

// solver holds the 2l-variable dual:
// min 1/2 a^T Q a + p^T a, y^T a = 0, 0 <= a <= C
// where the first l variables are alpha (y=+1) and the rest alpha* (y=-1).
type solver struct {
	l     int
	gram  *mat.SymDense
	y     []float64
	p     []float64
	qd    []float64
	alpha []float64
	grad  []float64
	c     float64
	tol   float64
	max   int
	iter  int
}

func newSolver(gram *mat.SymDense, ys []float64, params Params) *solver {
	l := len(ys)
	n := 2 * l
	s := &solver{
		l:     l,
		gram:  gram,
		y:     make([]float64, n),
		p:     make([]float64, n),
		qd:    make([]float64, n),
		alpha: make([]float64, n),
		grad:  make([]float64, n),
		c:     params.C,
		tol:   params.Tolerance,
		max:   params.MaxIterations,
	}
	for i := 0; i < l; i++ {
		s.y[i] = 1
		s.y[i+l] = -1
		s.p[i] = params.Epsilon - ys[i]
		s.p[i+l] = params.Epsilon + ys[i]
	}
	for i := 0; i < n; i++ {
		s.qd[i] = gram.At(i%l, i%l)
	}
	copy(s.grad, s.p)
	return s
}

func (s *solver) q(i, j int) float64 {
	return s.y[i] * s.y[j] * s.gram.At(i%s.l, j%s.l)
}

// selectWorkingSet returns the pair to optimize, or ok=false once optimal.
func (s *solver) selectWorkingSet() (int, int, bool) {
	n := len(s.alpha)
	gmax := math.Inf(-1)
	i := -1
	for t := 0; t < n; t++ {
		if s.y[t] == 1 {
			if s.alpha[t] < s.c && -s.grad[t] >= gmax {
				gmax = -s.grad[t]
				i = t
			}
		} else if s.alpha[t] > 0 && s.grad[t] >= gmax {
			gmax = s.grad[t]
			i = t
		}
	}
	if i == -1 {
		return -1, -1, false
	}

	gmax2 := math.Inf(-1)
	j := -1
	objMin := math.Inf(1)
	for t := 0; t < n; t++ {
		qit := s.q(i, t)
		var gradDiff, quad float64
		if s.y[t] == 1 {
			if !(s.alpha[t] > 0) {
				continue
			}
			gradDiff = gmax + s.grad[t]
			if s.grad[t] >= gmax2 {
				gmax2 = s.grad[t]
			}
			quad = s.qd[i] + s.qd[t] - 2*s.y[i]*qit
		} else {
			if !(s.alpha[t] < s.c) {
				continue
			}
			gradDiff = gmax - s.grad[t]
			if -s.grad[t] >= gmax2 {
				gmax2 = -s.grad[t]
			}
			quad = s.qd[i] + s.qd[t] + 2*s.y[i]*qit
		}
		if gradDiff > 0 {
			if quad <= 0 {
				quad = tau
			}
			obj := -(gradDiff * gradDiff) / quad
			if obj <= objMin {
				j = t
				objMin = obj
			}
		}
	}
	if j == -1 || gmax+gmax2 < s.tol {
		return -1, -1, false
	}
	return i, j, true
}

func (s *solver) solve() {
	for s.iter < s.max {
		i, j, ok := s.selectWorkingSet()
		if !ok {
			return
		}
		s.iter++
		s.update(i, j)
	}
}

func (s *solver) update(i, j int) {
	a := s.alpha
	c := s.c
	oldI, oldJ := a[i], a[j]
	qij := s.q(i, j)

	if s.y[i] != s.y[j] {
		quad := s.qd[i] + s.qd[j] + 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.grad[i] - s.grad[j]) / quad
		diff := a[i] - a[j]
		a[i] += delta
		a[j] += delta
		if diff > 0 {
			if a[j] < 0 {
				a[j] = 0
				a[i] = diff
			}
		} else if a[i] < 0 {
			a[i] = 0
			a[j] = -diff
		}
		if diff > 0 {
			if a[i] > c {
				a[i] = c
				a[j] = c - diff
			}
		} else if a[j] > c {
			a[j] = c
			a[i] = c + diff
		}
	} else {
		quad := s.qd[i] + s.qd[j] - 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (s.grad[i] - s.grad[j]) / quad
		sum := a[i] + a[j]
		a[i] -= delta
		a[j] += delta
		if sum > c {
			if a[i] > c {
				a[i] = c
				a[j] = sum - c
			}
		} else if a[j] < 0 {
			a[j] = 0
			a[i] = sum
		}
		if sum > c {
			if a[j] > c {
				a[j] = c
				a[i] = sum - c
			}
		} else if a[i] < 0 {
			a[i] = 0
			a[j] = sum
		}
	}

	dI := a[i] - oldI
	dJ := a[j] - oldJ
	for k := range s.grad {
		s.grad[k] += s.q(i, k)*dI + s.q(j, k)*dJ
	}
}

func (s *solver) calculateRho() float64 {
	var (
		free    int
		sumFree float64
		ub      = math.Inf(1)
		lb      = math.Inf(-1)
	)
	for t, a := range s.alpha {
		yG := s.y[t] * s.grad[t]
		switch {
		case a >= s.c:
			if s.y[t] == -1 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case a <= 0:
			if s.y[t] == 1 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			free++
			sumFree += yG
		}
	}
	if free > 0 {
		return sumFree / float64(free)
	}
	return (ub + lb) / 2
}
