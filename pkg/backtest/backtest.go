// Package backtest validates the price model on synthetic history and puts
// the forecast in context with market precedents, sensitivity scenarios and
// confidence bands.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/svr"
)

// Config controls a backtest run.
type Config struct {
	Synthetic  SyntheticConfig
	Folds      int
	Window     int
	Params     svr.Params
	RateImpact RateImpactParams
	Confidence ConfidenceConfig
	Markets    []Market
}

// DefaultConfig mirrors the production price model settings.
func DefaultConfig() Config {
	return Config{
		Synthetic:  DefaultSynthetic,
		Folds:      5,
		Window:     24,
		Params:     svr.Params{C: 100, Gamma: 0.1, Epsilon: 0.1},
		RateImpact: DefaultRateImpact,
		Confidence: DefaultConfidence,
		Markets:    ReferenceMarkets,
	}
}

// Report is the full outcome of a backtest run.
type Report struct {
	Seed            uint64              `json:"seed"`
	Months          int                 `json:"months"`
	CrossValidation *CrossValidation    `json:"crossValidation"`
	WalkForward     *WalkForward        `json:"walkForward"`
	Markets         []MarketResult      `json:"markets"`
	Sensitivity     []SensitivityResult `json:"sensitivity"`
	Confidence      *Confidence         `json:"confidence"`
	Residuals       *ResidualAnalysis   `json:"residuals"`
}

// Run executes every validation step in order.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	demand, prices := Synthetic(cfg.Synthetic)
	rep := &Report{
		Seed:   cfg.Synthetic.Seed,
		Months: cfg.Synthetic.Months,
	}

	cv, err := CrossValidate(demand, prices, cfg.Folds, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("cross validation failed: %w", err)
	}
	rep.CrossValidation = cv
	log.Ctx(ctx).InfoContext(ctx, "cross validation complete",
		slog.Int("folds", len(cv.Folds)),
		slog.Float64("rmse", cv.RMSE.Mean),
		slog.Float64("mape", cv.MAPE.Mean),
	)

	wf, err := WalkForwardValidate(demand, prices, cfg.Window, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("walk-forward validation failed: %w", err)
	}
	rep.WalkForward = wf
	log.Ctx(ctx).InfoContext(ctx, "walk-forward validation complete",
		slog.Int("steps", len(wf.Predictions)),
		slog.Float64("rmse", wf.RMSE),
		slog.Float64("directionalAccuracy", wf.DirectionalAccuracy),
	)

	rep.Markets = ValidateMarkets(cfg.Markets)
	rep.Sensitivity = Sensitivity(cfg.RateImpact)

	rep.Confidence, err = ConfidenceIntervals(wf.Actuals, wf.Predictions, cfg.Confidence)
	if err != nil {
		return nil, fmt.Errorf("confidence intervals failed: %w", err)
	}
	rep.Residuals, err = AnalyzeResiduals(wf.Actuals, wf.Predictions)
	if err != nil {
		return nil, fmt.Errorf("residual analysis failed: %w", err)
	}
	if rep.Residuals.Bias != BiasNone {
		log.Ctx(ctx).WarnContext(ctx, "walk-forward residuals are biased",
			slog.String("bias", string(rep.Residuals.Bias)),
			slog.Float64("mean", rep.Residuals.Mean),
		)
	}
	return rep, nil
}
