package backtest

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/gridwatch/dcimpact/pkg/svr"
)

// Split is one train/test partition, as half-open index ranges.
type Split struct {
	TrainEnd  int
	TestStart int
	TestEnd   int
}

// TimeSeriesSplit partitions n ordered samples into k expanding-window folds.
// Each test block has n/(k+1) samples and training covers everything before
// it.
func TimeSeriesSplit(n, k int) ([]Split, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	if n < k+1 {
		return nil, fmt.Errorf("cannot split %d samples into %d folds", n, k)
	}
	size := n / (k + 1)
	splits := make([]Split, 0, k)
	for start := n - k*size; start < n; start += size {
		splits = append(splits, Split{TrainEnd: start, TestStart: start, TestEnd: start + size})
	}
	return splits, nil
}

// Fold is the outcome of one cross-validation fold.
type Fold struct {
	Fold      int `json:"fold"`
	TrainSize int `json:"trainSize"`
	TestSize  int `json:"testSize"`
	svr.Metrics
}

// Spread is a mean with its sample standard deviation.
type Spread struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// CrossValidation summarizes every fold.
type CrossValidation struct {
	Folds []Fold `json:"folds"`
	RMSE  Spread `json:"rmse"`
	MAE   Spread `json:"mae"`
	R2    Spread `json:"r2"`
	MAPE  Spread `json:"mape"`
}

// CrossValidate fits a fresh model per fold and scores it on the held out
// block.
func CrossValidate(xs, ys []float64, k int, params svr.Params) (*CrossValidation, error) {
	if len(xs) != len(ys) {
		return nil, svr.ErrMismatch
	}
	splits, err := TimeSeriesSplit(len(xs), k)
	if err != nil {
		return nil, err
	}
	cv := &CrossValidation{Folds: make([]Fold, 0, len(splits))}
	var rmse, mae, r2, mape []float64
	for i, s := range splits {
		m, err := svr.Fit(xs[:s.TrainEnd], ys[:s.TrainEnd], params)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i+1, err)
		}
		metrics, err := svr.Evaluate(ys[s.TestStart:s.TestEnd], m.PredictAll(xs[s.TestStart:s.TestEnd]))
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i+1, err)
		}
		cv.Folds = append(cv.Folds, Fold{
			Fold:      i + 1,
			TrainSize: s.TrainEnd,
			TestSize:  s.TestEnd - s.TestStart,
			Metrics:   metrics,
		})
		rmse = append(rmse, metrics.RMSE)
		mae = append(mae, metrics.MAE)
		r2 = append(r2, metrics.R2)
		mape = append(mape, metrics.MAPE)
	}
	cv.RMSE = spread(rmse)
	cv.MAE = spread(mae)
	cv.R2 = spread(r2)
	cv.MAPE = spread(mape)
	return cv, nil
}

func spread(xs []float64) Spread {
	mean, std := stat.MeanStdDev(xs, nil)
	return Spread{Mean: mean, Std: std}
}

// WalkForward is the outcome of rolling one-step-ahead validation.
type WalkForward struct {
	Window      int       `json:"window"`
	Predictions []float64 `json:"predictions"`
	Actuals     []float64 `json:"actuals"`
	svr.Metrics
	// DirectionalAccuracy is the percent of month-over-month moves whose
	// direction was predicted correctly.
	DirectionalAccuracy float64 `json:"directionalAccuracy"`
}

// WalkForwardValidate trains on the previous window samples and predicts the
// next one, rolling forward through the series.
func WalkForwardValidate(xs, ys []float64, window int, params svr.Params) (*WalkForward, error) {
	if len(xs) != len(ys) {
		return nil, svr.ErrMismatch
	}
	if window < 2 || window >= len(xs) {
		return nil, fmt.Errorf("window %d must be in [2, %d)", window, len(xs))
	}
	wf := &WalkForward{
		Window:      window,
		Predictions: make([]float64, 0, len(xs)-window),
		Actuals:     make([]float64, 0, len(xs)-window),
	}
	for i := window; i < len(xs); i++ {
		m, err := svr.Fit(xs[i-window:i], ys[i-window:i], params)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		wf.Predictions = append(wf.Predictions, m.Predict(xs[i]))
		wf.Actuals = append(wf.Actuals, ys[i])
	}
	metrics, err := svr.Evaluate(wf.Actuals, wf.Predictions)
	if err != nil {
		return nil, err
	}
	wf.Metrics = metrics
	wf.DirectionalAccuracy = DirectionalAccuracy(wf.Actuals, wf.Predictions)
	return wf, nil
}

// DirectionalAccuracy compares the sign of consecutive changes. A flat move
// counts as "not up" on both sides.
func DirectionalAccuracy(actual, predicted []float64) float64 {
	if len(actual) < 2 || len(actual) != len(predicted) {
		return 0
	}
	var hits int
	for i := 1; i < len(actual); i++ {
		if (actual[i]-actual[i-1] > 0) == (predicted[i]-predicted[i-1] > 0) {
			hits++
		}
	}
	return float64(hits) / float64(len(actual)-1) * 100
}
