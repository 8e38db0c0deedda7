package backtest

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText renders the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	p := func(format string, args ...any) {
		fmt.Fprintf(tw, format+"\n", args...)
	}
	rule := strings.Repeat("=", 72)

	p("%s", rule)
	p("TIME-SERIES CROSS-VALIDATION (seed %d, %d months)", r.Seed, r.Months)
	p("%s", rule)
	p("fold\ttrain\ttest\tRMSE\tMAE\tR2\tMAPE")
	for _, f := range r.CrossValidation.Folds {
		p("%d\t%d\t%d\t$%.2f\t$%.2f\t%.4f\t%.2f%%", f.Fold, f.TrainSize, f.TestSize, f.RMSE, f.MAE, f.R2, f.MAPE)
	}
	cv := r.CrossValidation
	p("mean\t\t\t$%.2f (±%.2f)\t$%.2f (±%.2f)\t%.4f (±%.4f)\t%.2f%% (±%.2f)",
		cv.RMSE.Mean, cv.RMSE.Std, cv.MAE.Mean, cv.MAE.Std, cv.R2.Mean, cv.R2.Std, cv.MAPE.Mean, cv.MAPE.Std)

	wf := r.WalkForward
	p("")
	p("WALK-FORWARD VALIDATION (%d-month window, %d steps)", wf.Window, len(wf.Predictions))
	p("RMSE\t$%.2f/MWh", wf.RMSE)
	p("MAE\t$%.2f/MWh", wf.MAE)
	p("R2\t%.4f", wf.R2)
	p("MAPE\t%.2f%%", wf.MAPE)
	p("Directional accuracy\t%.2f%%", wf.DirectionalAccuracy)

	p("")
	p("MARKET VALIDATION")
	p("market\tperiod\tactual\tmodel\terror\tgrade")
	for _, m := range r.Markets {
		if m.Grade == GradeQualitative {
			p("%s\t%s\t%.1f%%\t-\t-\t%s", m.Name, m.Period, m.ActualIncreasePct, m.Grade)
			continue
		}
		p("%s\t%s\t%.1f%%\t%.1f%%\t%.1f%%\t%s", m.Name, m.Period, m.ActualIncreasePct, m.ModelIncreasePct, m.ErrorPct, m.Grade)
	}

	p("")
	p("SENSITIVITY ANALYSIS")
	p("scenario\tincrease\tvs base\tvs published %.0f%%", PublishedBaseIncreasePct)
	for _, s := range r.Sensitivity {
		p("%s\t%.1f%%\t%+.1fpp\t%+.1fpp", s.Name, s.IncreasePct, s.DeltaVsBase, s.DeltaVsPublished)
	}

	c := r.Confidence
	p("")
	p("CONFIDENCE INTERVALS (%.0f%%)", c.Level*100)
	p("Residual std\t$%.2f/MWh", c.ResidualStd)
	p("Margin\t±$%.2f/MWh", c.Margin)
	p("Wholesale\t$%.2f [%.2f, %.2f]/MWh", c.Wholesale.Point, c.Wholesale.Lower, c.Wholesale.Upper)
	p("Retail\t$%.3f [%.3f, %.3f]/kWh", c.Retail.Point, c.Retail.Lower, c.Retail.Upper)
	p("Monthly bill\t$%.2f [%.2f, %.2f]", c.Bill.Point, c.Bill.Lower, c.Bill.Upper)
	p("Increase from $%.0f\t$%.2f ±%.2f", CurrentMonthlyBill, c.BillIncrease, c.BillPlusMinus)

	res := r.Residuals
	p("")
	p("RESIDUAL ANALYSIS")
	p("Mean\t$%.2f/MWh", res.Mean)
	p("Median\t$%.2f/MWh", res.Median)
	p("Std dev\t$%.2f/MWh", res.Std)
	p("Min / max\t$%.2f / $%.2f", res.Min, res.Max)
	p("Bias\t%s", res.Bias)
	p("Normality p\t%.4f (normal: %t)", res.NormalityP, res.Normal)
	if res.Autocorrelation != nil {
		p("Lag-1 autocorrelation\t%.3f (low: %t)", *res.Autocorrelation, res.LowAutocorrelation)
	}
	return tw.Flush()
}
