package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/gridwatch/dcimpact/pkg/types"
)

// SummaryHeader is the column order of the annual summary CSV.
var SummaryHeader = []string{
	"year",
	"forecast",
	"total_demand_mw",
	"dc_load_mw",
	"dc_capacity_mw",
	"wholesale_price",
	"residential_rate_kwh",
	"monthly_bill_1000kwh",
	"water_usage_gallons",
	"residential_change_pct",
	"total_demand_change_pct",
}

// WriteSummaryCSV writes one row per year.
func WriteSummaryCSV(w io.Writer, annual []types.AnnualSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return err
	}
	for _, a := range annual {
		row := []string{
			strconv.Itoa(a.Year),
			strconv.FormatBool(a.Forecast),
			fixed(a.TotalDemandMW, 2),
			fixed(a.DCLoadMW, 2),
			fixed(a.DCCapacityMW, 0),
			fixed(a.WholesalePrice, 3),
			fixed(a.ResidentialRateKWH, 5),
			fixed(a.MonthlyBillDollars, 2),
			fixed(a.WaterUsageGallons, 1),
			fixed(a.ResidentialChangePct, 2),
			fixed(a.TotalDemandChangePct, 2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryFile writes the annual summary CSV to path.
func WriteSummaryFile(path string, annual []types.AnnualSummary) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteSummaryCSV(w, annual)
	})
}

// fixed rounds half away from zero, unlike strconv's round-half-even on the
// binary value.
func fixed(x float64, places int32) string {
	return decimal.NewFromFloat(x).StringFixed(places)
}
