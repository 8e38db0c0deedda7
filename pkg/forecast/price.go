package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/scenario"
	"github.com/gridwatch/dcimpact/pkg/svr"
	"github.com/gridwatch/dcimpact/pkg/types"
)

// lowR2 is the training fit below which the price model is flagged as weak.
const lowR2 = 0.3

// PriceModel maps demand to wholesale and residential prices.
type PriceModel struct {
	sc         *scenario.Scenario
	demand     *DemandForecaster
	model      *svr.Model
	fit        types.PriceFit
	history    map[int]types.HistoricalYear
	retailBase float64
	start      time.Time
}

// NewPriceModel trains the regression on annual mean demand against the
// historical wholesale price.
func NewPriceModel(ctx context.Context, sc *scenario.Scenario, demand *DemandForecaster) (*PriceModel, error) {
	p := &PriceModel{
		sc:      sc,
		demand:  demand,
		history: make(map[int]types.HistoricalYear, len(sc.Historical)),
		start:   sc.ForecastStart(),
	}

	xs := make([]float64, 0, len(sc.Historical))
	ys := make([]float64, 0, len(sc.Historical))
	for _, h := range sc.Historical {
		p.history[h.Year] = h
		var sum float64
		for m := time.January; m <= time.December; m++ {
			sum += demand.Total(time.Date(h.Year, m, 1, 0, 0, 0, 0, time.UTC))
		}
		xs = append(xs, sum/12)
		ys = append(ys, h.WholesalePrice)
	}
	if len(xs) < sc.Model.MinTrainingPoints {
		log.Ctx(ctx).WarnContext(ctx, "price model has few training points, fitting anyway",
			slog.Int("points", len(xs)),
			slog.Int("recommended", sc.Model.MinTrainingPoints),
		)
	}

	model, err := svr.Fit(xs, ys, svr.Params{
		C:       sc.Model.SVR.C,
		Gamma:   sc.Model.SVR.Gamma,
		Epsilon: sc.Model.SVR.Epsilon,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fit price model: %w", err)
	}
	p.model = model

	metrics, err := svr.Evaluate(ys, model.PredictAll(xs))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate price model: %w", err)
	}
	p.fit = types.PriceFit{
		TrainingPoints: len(xs),
		R2:             metrics.R2,
		RMSE:           metrics.RMSE,
		MAE:            metrics.MAE,
		SupportVectors: model.SupportVectors(),
	}
	if math.IsNaN(metrics.R2) || metrics.R2 < lowR2 {
		log.Ctx(ctx).WarnContext(ctx, "price model explains little of the historical variance",
			slog.Float64("r2", metrics.R2),
			slog.Int("points", len(xs)),
		)
	}
	log.Ctx(ctx).DebugContext(ctx, "price model fitted",
		slog.Int("iterations", model.Iterations),
		slog.Float64("rho", model.Rho()),
		slog.Int("supportVectors", p.fit.SupportVectors),
	)

	last := sc.Historical[len(sc.Historical)-1]
	p.retailBase = last.ResidentialRateKWH - last.WholesalePrice/1000*sc.Model.RetailMultiplier
	return p, nil
}

// Fit describes the regression's training fit.
func (p *PriceModel) Fit() types.PriceFit {
	return p.fit
}

// Wholesale is the $/MWh price at t for the given total demand.
func (p *PriceModel) Wholesale(t time.Time, demandMW float64) float64 {
	if t.Before(p.start) {
		return p.history[t.Year()].WholesalePrice
	}
	m := p.sc.Model
	util := demandMW / m.GridCapacityMW
	return p.model.Predict(demandMW) * (1 + m.ScarcityCoefficient*math.Max(0, util-m.ScarcityThreshold))
}

// Residential is the $/kWh retail rate at t given the wholesale price.
func (p *PriceModel) Residential(t time.Time, wholesale float64) float64 {
	if t.Before(p.start) {
		return p.history[t.Year()].ResidentialRateKWH
	}
	return p.retailBase + wholesale/1000*p.sc.Model.RetailMultiplier + p.infrastructureAdder(t)
}

// infrastructureAdder spreads the ratepayer share of grid upgrades for new
// capacity across residential kWh.
func (p *PriceModel) infrastructureAdder(t time.Time) float64 {
	m := p.sc.Model
	return p.demand.AddedCapacity(t) * m.InfrastructureCostPerMW * m.CostPassThrough /
		(m.AmortizationYears * m.Customers * m.KWhPerCustomer)
}
