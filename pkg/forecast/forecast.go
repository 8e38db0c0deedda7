// Package forecast projects monthly grid demand, prices and water usage for a
// data center deployment scenario.
package forecast

import (
	"context"
	"log/slog"

	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/scenario"
	"github.com/gridwatch/dcimpact/pkg/types"
)

// Result is the output of a forecast run.
type Result struct {
	Records   []types.TimeSeriesRecord
	Annual    []types.AnnualSummary
	Headlines []types.HeadlineCheck
	PriceFit  types.PriceFit
	Holt      Holt
}

// Run forecasts every month from the first historical month through the end
// of the forecast horizon. Identical scenarios produce identical results.
func Run(ctx context.Context, sc *scenario.Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	demand, err := NewDemandForecaster(sc)
	if err != nil {
		return nil, err
	}
	prices, err := NewPriceModel(ctx, sc, demand)
	if err != nil {
		return nil, err
	}
	wue := sc.WeightedWUE()
	start := sc.ForecastStart()
	end := sc.ForecastEnd()

	records := make([]types.TimeSeriesRecord, 0, monthsBetween(sc.HistoryStart(), end)+1)
	for t := sc.HistoryStart(); !t.After(end); t = t.AddDate(0, 1, 0) {
		total := demand.Total(t)
		load := demand.DCLoad(t)
		wholesale := prices.Wholesale(t, total)
		records = append(records, types.TimeSeriesRecord{
			Date:               t,
			TotalDemandMW:      total,
			DCLoadMW:           load,
			WholesalePrice:     wholesale,
			ResidentialRateKWH: prices.Residential(t, wholesale),
			WaterUsageGallons:  WaterGallonsPerDay(load, wue),
			Forecast:           !t.Before(start),
		})
	}

	res := &Result{
		Records:  records,
		Annual:   Summarize(records, demand),
		PriceFit: prices.Fit(),
		Holt:     demand.Holt(),
	}
	res.Headlines = CheckHeadlines(res.Annual, sc.Headlines, sc.HeadlineTolerance)
	for _, h := range res.Headlines {
		if !h.WithinTolerance {
			log.Ctx(ctx).WarnContext(ctx, "forecast deviates from published headline",
				slog.Int("year", h.Year),
				slog.Float64("demandMW", h.ActualDemandMW),
				slog.Float64("headlineDemandMW", h.TotalDemandMW),
				slog.Float64("residentialKWH", h.ActualResidentialKWH),
				slog.Float64("headlineResidentialKWH", h.ResidentialRateKWH),
			)
		}
	}

	log.Ctx(ctx).InfoContext(ctx, "forecast complete",
		slog.Int("months", len(records)),
		slog.String("forecastStart", start.Format(types.MonthFormat)),
		slog.String("forecastEnd", end.Format(types.MonthFormat)),
		slog.Float64("priceR2", res.PriceFit.R2),
	)
	return res, nil
}
