package backtest

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/svr"
)

func TestSynthetic(t *testing.T) {
	d1, p1 := Synthetic(DefaultSynthetic)
	d2, p2 := Synthetic(DefaultSynthetic)
	require.Len(t, d1, 84)
	require.Len(t, p1, 84)
	assert.Equal(t, d1, d2)
	assert.Equal(t, p1, p2)

	other := DefaultSynthetic
	other.Seed = 7
	d3, _ := Synthetic(other)
	assert.NotEqual(t, d1, d3)

	noiseless := DefaultSynthetic
	noiseless.DemandNoiseMW = 0
	noiseless.PriceNoise = 0
	d, p := Synthetic(noiseless)
	assert.InDelta(t, 12500, d[0], 1e-9)
	assert.InDelta(t, 12500*1.003+850, d[3], 1e-9)
	assert.InDelta(t, 35+(d[3]-12500)*0.003, p[3], 1e-9)
}

func TestTimeSeriesSplit(t *testing.T) {
	splits, err := TimeSeriesSplit(84, 5)
	require.NoError(t, err)
	require.Len(t, splits, 5)
	for i, s := range splits {
		start := 14 * (i + 1)
		assert.Equal(t, Split{TrainEnd: start, TestStart: start, TestEnd: start + 14}, s)
	}

	splits, err = TimeSeriesSplit(10, 3)
	require.NoError(t, err)
	assert.Equal(t, []Split{{4, 4, 6}, {6, 6, 8}, {8, 8, 10}}, splits)

	_, err = TimeSeriesSplit(3, 5)
	assert.Error(t, err)
	_, err = TimeSeriesSplit(30, 1)
	assert.Error(t, err)
}

func TestCrossValidate(t *testing.T) {
	d, p := Synthetic(DefaultSynthetic)
	cv, err := CrossValidate(d, p, 5, DefaultConfig().Params)
	require.NoError(t, err)
	require.Len(t, cv.Folds, 5)
	assert.Equal(t, 14, cv.Folds[0].TrainSize)
	assert.Equal(t, 70, cv.Folds[4].TrainSize)
	for _, f := range cv.Folds {
		assert.Equal(t, 14, f.TestSize)
		assert.Greater(t, f.RMSE, 0.0)
		assert.GreaterOrEqual(t, f.RMSE, f.MAE)
	}
	assert.Greater(t, cv.RMSE.Std, 0.0)

	_, err = CrossValidate(d, p[:10], 5, DefaultConfig().Params)
	assert.ErrorIs(t, err, svr.ErrMismatch)
}

func TestWalkForwardValidate(t *testing.T) {
	d, p := Synthetic(DefaultSynthetic)
	wf, err := WalkForwardValidate(d, p, 24, DefaultConfig().Params)
	require.NoError(t, err)
	assert.Len(t, wf.Predictions, 60)
	assert.Equal(t, p[24:], wf.Actuals)
	assert.Greater(t, wf.RMSE, 0.0)
	assert.Less(t, wf.RMSE, 15.0)
	assert.GreaterOrEqual(t, wf.DirectionalAccuracy, 0.0)
	assert.LessOrEqual(t, wf.DirectionalAccuracy, 100.0)

	_, err = WalkForwardValidate(d, p, 84, DefaultConfig().Params)
	assert.Error(t, err)
}

func TestDirectionalAccuracy(t *testing.T) {
	assert.Equal(t, 100.0, DirectionalAccuracy([]float64{1, 2, 3}, []float64{5, 6, 7}))
	assert.Equal(t, 50.0, DirectionalAccuracy([]float64{1, 2, 1}, []float64{5, 6, 7}))
	// flat moves count as "not up"
	assert.Equal(t, 100.0, DirectionalAccuracy([]float64{1, 1}, []float64{2, 1}))
	assert.Equal(t, 0.0, DirectionalAccuracy([]float64{1}, []float64{1}))
}

func TestValidateMarkets(t *testing.T) {
	results := ValidateMarkets(ReferenceMarkets)
	require.Len(t, results, 3)

	assert.InDelta(t, 3.8, results[0].ErrorPoints, 1e-9)
	assert.InDelta(t, 9.09, results[0].ErrorPct, 0.01)
	assert.Equal(t, GradeExcellent, results[0].Grade)

	assert.InDelta(t, 4.49, results[1].ErrorPct, 0.01)
	assert.Equal(t, GradeExcellent, results[1].Grade)

	assert.Equal(t, GradeQualitative, results[2].Grade)

	graded := ValidateMarkets([]Market{
		{Name: "a", ActualIncreasePct: 100, ModelIncreasePct: 85},
		{Name: "b", ActualIncreasePct: 100, ModelIncreasePct: 130},
	})
	assert.Equal(t, GradeGood, graded[0].Grade)
	assert.Equal(t, GradeFair, graded[1].Grade)
}

func TestSensitivity(t *testing.T) {
	assert.InDelta(t, 52.5207, RateImpact(DefaultRateImpact), 1e-4)

	results := Sensitivity(DefaultRateImpact)
	require.Len(t, results, 5)
	want := []float64{0, -15.7562, 4.3890, -10.5335, 26.2603}
	for i, r := range results {
		assert.InDelta(t, want[i], r.DeltaVsBase, 1e-4, r.Name)
		assert.InDelta(t, r.IncreasePct-PublishedBaseIncreasePct, r.DeltaVsPublished, 1e-12)
	}
	assert.InDelta(t, 0.68, results[2].Params.Utilization, 1e-12)
	assert.Equal(t, 0.10, results[3].Params.PassThrough)
	assert.Equal(t, 0.85, DefaultRateImpact.Utilization)
}

func TestConfidenceIntervals(t *testing.T) {
	actual := []float64{10, 12, 9, 11, 13, 8}
	predicted := []float64{10.5, 11, 9.5, 12, 12, 9}
	c, err := ConfidenceIntervals(actual, predicted, DefaultConfidence)
	require.NoError(t, err)

	assert.InDelta(t, 0.84984, c.ResidualStd, 1e-5)
	assert.InDelta(t, 1.66565, c.Margin, 1e-5)
	assert.InDelta(t, 100.98-1.66565, c.Wholesale.Lower, 1e-5)
	assert.InDelta(t, 0.40343, c.Retail.Point, 1e-9)
	assert.InDelta(t, 0.40926, c.Retail.Upper, 1e-5)
	assert.Equal(t, 403.43, c.Bill.Point)
	assert.Equal(t, 221.43, c.BillIncrease)
	assert.InDelta(t, (c.Bill.Upper-c.Bill.Lower)/2, c.BillPlusMinus, 1e-12)

	_, err = ConfidenceIntervals(nil, nil, DefaultConfidence)
	assert.Error(t, err)
}

func TestNormalTest(t *testing.T) {
	symmetric := []float64{-2.1, -1.3, -0.8, -0.4, -0.1, 0.0, 0.1, 0.4, 0.8, 1.3, 2.1, -0.6, 0.6, -1.0, 1.0, 0.2, -0.2, 1.6, -1.6, 0.0}
	p, err := NormalTest(symmetric)
	require.NoError(t, err)
	assert.InDelta(t, 0.99971, p, 1e-4)

	skewed := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 3, 3, 5, 8, 13, 40}
	p, err = NormalTest(skewed)
	require.NoError(t, err)
	// chi-squared with two degrees of freedom: exp(-k2/2)
	assert.InDelta(t, math.Exp(-43.28341/2), p, 1e-12)
	assert.Less(t, p, 0.05)

	_, err = NormalTest([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrTooFewSamples)
}

func TestAnalyzeResiduals(t *testing.T) {
	actual := []float64{13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24}
	predicted := make([]float64, len(actual))
	for i, a := range actual {
		predicted[i] = a - 3 - float64(i%2)
	}
	a, err := AnalyzeResiduals(actual, predicted)
	require.NoError(t, err)
	assert.Equal(t, 12, a.N)
	assert.InDelta(t, 3.5, a.Mean, 1e-12)
	assert.InDelta(t, 3.5, a.Median, 1e-12)
	assert.InDelta(t, 0.5, a.Std, 1e-12)
	assert.Equal(t, 3.0, a.Min)
	assert.Equal(t, 4.0, a.Max)
	assert.Equal(t, BiasUnder, a.Bias)
	require.NotNil(t, a.Autocorrelation)
	assert.InDelta(t, -1, *a.Autocorrelation, 1e-9)
	assert.False(t, a.LowAutocorrelation)

	short, err := AnalyzeResiduals([]float64{1, 2, 3}, []float64{3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, BiasNone, short.Bias)
	assert.Nil(t, short.Autocorrelation)
	assert.True(t, math.IsNaN(short.NormalityP))

	over, err := AnalyzeResiduals([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, BiasOver, over.Bias)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
}

func TestRun(t *testing.T) {
	rep, err := Run(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), rep.Seed)
	assert.Len(t, rep.CrossValidation.Folds, 5)
	assert.Len(t, rep.WalkForward.Predictions, 60)
	assert.Len(t, rep.Markets, 3)
	assert.Len(t, rep.Sensitivity, 5)
	assert.Equal(t, 60, rep.Residuals.N)
	assert.NotNil(t, rep.Residuals.Autocorrelation)
	assert.InDelta(t, 1.959964*rep.Confidence.ResidualStd, rep.Confidence.Margin, 1e-5)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	out := buf.String()
	for _, s := range []string{"CROSS-VALIDATION", "WALK-FORWARD", "MARKET VALIDATION", "SENSITIVITY", "CONFIDENCE", "RESIDUAL"} {
		assert.Contains(t, out, s)
	}
}

func TestRunContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil)).With(slog.String("runID", "bt-1"))
	_, err := Run(log.With(context.Background(), logger), DefaultConfig())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "cross validation complete")
	assert.Contains(t, out, "walk-forward validation complete")
	for _, l := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		assert.Contains(t, string(l), "runID=bt-1")
	}
}
