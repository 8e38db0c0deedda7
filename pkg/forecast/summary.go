package forecast

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridwatch/dcimpact/pkg/types"
)

// BillKWH is the monthly consumption used for the typical residential bill.
const BillKWH = 1000

// MonthlyBill is the bill in dollars for BillKWH at rate $/kWh, rounded to
// cents.
func MonthlyBill(rate float64) float64 {
	return decimal.NewFromFloat(rate).Mul(decimal.NewFromInt(BillKWH)).Round(2).InexactFloat64()
}

// Summarize averages records by calendar year. Percent changes are relative
// to the last historical year.
func Summarize(records []types.TimeSeriesRecord, demand *DemandForecaster) []types.AnnualSummary {
	var (
		out   []types.AnnualSummary
		count []int
	)
	for _, r := range records {
		if len(out) == 0 || out[len(out)-1].Year != r.Date.Year() {
			out = append(out, types.AnnualSummary{Year: r.Date.Year()})
			count = append(count, 0)
		}
		s := &out[len(out)-1]
		s.TotalDemandMW += r.TotalDemandMW
		s.DCLoadMW += r.DCLoadMW
		s.WholesalePrice += r.WholesalePrice
		s.ResidentialRateKWH += r.ResidentialRateKWH
		s.WaterUsageGallons += r.WaterUsageGallons
		s.Forecast = s.Forecast || r.Forecast
		count[len(count)-1]++
	}

	var base *types.AnnualSummary
	for i := range out {
		n := float64(count[i])
		s := &out[i]
		s.TotalDemandMW /= n
		s.DCLoadMW /= n
		s.WholesalePrice /= n
		s.ResidentialRateKWH /= n
		s.WaterUsageGallons /= n
		s.MonthlyBillDollars = MonthlyBill(s.ResidentialRateKWH)
		if demand != nil {
			s.DCCapacityMW = demand.Capacity(time.Date(s.Year, time.December, 1, 0, 0, 0, 0, time.UTC))
		}
		if !s.Forecast {
			base = s
		}
	}
	if base != nil {
		b := *base
		for i := range out {
			out[i].ResidentialChangePct = pctChange(b.ResidentialRateKWH, out[i].ResidentialRateKWH)
			out[i].TotalDemandChangePct = pctChange(b.TotalDemandMW, out[i].TotalDemandMW)
		}
	}
	return out
}

// CheckHeadlines compares annual summaries against published headlines. A
// headline year missing from annual is reported outside tolerance.
func CheckHeadlines(annual []types.AnnualSummary, headlines []types.Headline, tolerance float64) []types.HeadlineCheck {
	if len(headlines) == 0 {
		return nil
	}
	byYear := make(map[int]types.AnnualSummary, len(annual))
	for _, a := range annual {
		byYear[a.Year] = a
	}
	out := make([]types.HeadlineCheck, 0, len(headlines))
	for _, h := range headlines {
		c := types.HeadlineCheck{Headline: h}
		a, ok := byYear[h.Year]
		if ok {
			c.ActualDemandMW = a.TotalDemandMW
			c.ActualResidentialKWH = a.ResidentialRateKWH
			c.DemandDeviation = relDiff(h.TotalDemandMW, a.TotalDemandMW)
			c.ResidentialDeviation = relDiff(h.ResidentialRateKWH, a.ResidentialRateKWH)
			c.WithinTolerance = math.Abs(c.DemandDeviation) <= tolerance &&
				math.Abs(c.ResidentialDeviation) <= tolerance
		}
		out = append(out, c)
	}
	return out
}

func relDiff(want, got float64) float64 {
	if want == 0 {
		return math.Inf(1)
	}
	return (got - want) / want
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to/from - 1) * 100
}
