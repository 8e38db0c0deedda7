package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gridwatch/dcimpact/pkg/chart"
	"github.com/gridwatch/dcimpact/pkg/forecast"
	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/report"
	"github.com/gridwatch/dcimpact/pkg/scenario"
	"github.com/gridwatch/dcimpact/pkg/storage"
	"github.com/gridwatch/dcimpact/pkg/types"
)

const (
	forecastFile = "kc_datacenter_forecast.csv"
	summaryFile  = "kc_datacenter_summary.csv"
	workbookFile = "kc_datacenter_summary.xlsx"
)

type options struct {
	DataDir     string
	ChartsDir   string
	ChartFormat string
	// Store is nil when the run should not be persisted.
	Store storage.Database
	Now   func() time.Time
}

type output struct {
	Result *forecast.Result
	Files  []string
	RunID  string
}

// run forecasts sc, writes every output file and then renders the charts
// from the written forecast CSV.
func run(ctx context.Context, sc *scenario.Scenario, opts options) (*output, error) {
	res, err := forecast.Run(ctx, sc)
	if err != nil {
		return nil, err
	}
	out := &output{Result: res}

	csvPath := filepath.Join(opts.DataDir, forecastFile)
	if err := report.WriteForecastFile(csvPath, res.Records); err != nil {
		return nil, err
	}
	out.Files = append(out.Files, csvPath)

	summaryPath := filepath.Join(opts.DataDir, summaryFile)
	if err := report.WriteSummaryFile(summaryPath, res.Annual); err != nil {
		return nil, err
	}
	out.Files = append(out.Files, summaryPath)

	workbookPath := filepath.Join(opts.DataDir, workbookFile)
	err = report.WriteWorkbookFile(workbookPath, report.Workbook{
		Scenario:  sc.Config,
		PriceFit:  res.PriceFit,
		Records:   res.Records,
		Annual:    res.Annual,
		Headlines: res.Headlines,
	})
	if err != nil {
		return nil, err
	}
	out.Files = append(out.Files, workbookPath)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	charts, err := chart.Generate(ctx, csvPath, opts.ChartsDir, sc.ForecastStart(), opts.ChartFormat)
	if err != nil {
		return nil, fmt.Errorf("chart generation failed: %w", err)
	}
	out.Files = append(out.Files, charts...)

	if opts.Store != nil {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		r := types.Run{
			ID:        storage.NewRunID(),
			CreatedAt: now().UTC(),
			Version:   types.CurrentRunVersion,
			Scenario:  sc.Config,
			PriceFit:  res.PriceFit,
			Annual:    res.Annual,
			Headlines: res.Headlines,
		}
		if err := opts.Store.SaveRun(ctx, r, res.Records); err != nil {
			return nil, fmt.Errorf("failed to store run: %w", err)
		}
		out.RunID = r.ID
	}

	// headline years plus the end of the horizon
	years := map[int]bool{sc.Model.ForecastEndYear: true}
	for _, h := range sc.Headlines {
		years[h.Year] = true
	}
	for _, a := range res.Annual {
		if years[a.Year] {
			log.Ctx(ctx).InfoContext(ctx, "annual summary",
				slog.Int("year", a.Year),
				slog.Float64("totalDemandMW", a.TotalDemandMW),
				slog.Float64("dcLoadMW", a.DCLoadMW),
				slog.Float64("residentialRateKWH", a.ResidentialRateKWH),
				slog.Float64("monthlyBill", a.MonthlyBillDollars),
				slog.Float64("waterGallonsPerDay", a.WaterUsageGallons),
			)
		}
	}
	return out, nil
}
