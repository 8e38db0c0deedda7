package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/gridwatch/dcimpact/pkg/common"
	"github.com/gridwatch/dcimpact/pkg/types"
)

// Workbook sheet names.
const (
	SheetForecast  = "Forecast"
	SheetAnnual    = "Annual"
	SheetHeadlines = "Headlines"
)

// Workbook is the content of the summary spreadsheet.
type Workbook struct {
	Scenario  types.ScenarioConfig
	PriceFit  types.PriceFit
	Records   []types.TimeSeriesRecord
	Annual    []types.AnnualSummary
	Headlines []types.HeadlineCheck
}

// WriteWorkbook renders wb as an xlsx document.
func WriteWorkbook(w io.Writer, wb Workbook) error {
	f, err := wb.build()
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteWorkbookFile saves wb to path.
func WriteWorkbookFile(path string, wb Workbook) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteWorkbook(w, wb)
	})
}

func (wb Workbook) build() (*excelize.File, error) {
	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Kansas City data center impact forecast",
		Creator: common.ServerName(),
		Subject: fmt.Sprintf("utilization %.2f, efficiency improvement %.2f, trend adjustment %.2f",
			wb.Scenario.Utilization, wb.Scenario.EfficiencyImprovement, wb.Scenario.TrendAdjustment),
	}); err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SheetForecast); err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(wb.Records))
	for _, r := range wb.Records {
		rows = append(rows, []any{
			r.Date.Format(types.DateFormat),
			r.TotalDemandMW,
			r.DCLoadMW,
			r.WholesalePrice,
			r.ResidentialRateKWH,
			r.WaterUsageGallons,
			r.Forecast,
		})
	}
	if err := writeSheet(f, SheetForecast, header, append(toAny(ForecastHeader), "forecast"), rows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetAnnual); err != nil {
		return nil, err
	}
	rows = rows[:0]
	for _, a := range wb.Annual {
		rows = append(rows, []any{
			a.Year,
			a.Forecast,
			a.TotalDemandMW,
			a.DCLoadMW,
			a.DCCapacityMW,
			a.WholesalePrice,
			a.ResidentialRateKWH,
			a.MonthlyBillDollars,
			a.WaterUsageGallons,
			a.ResidentialChangePct,
			a.TotalDemandChangePct,
		})
	}
	if err := writeSheet(f, SheetAnnual, header, toAny(SummaryHeader), rows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetHeadlines); err != nil {
		return nil, err
	}
	rows = rows[:0]
	for _, h := range wb.Headlines {
		rows = append(rows, []any{
			h.Year,
			h.TotalDemandMW,
			h.ActualDemandMW,
			h.DemandDeviation * 100,
			h.ResidentialRateKWH,
			h.ActualResidentialKWH,
			h.ResidentialDeviation * 100,
			h.WithinTolerance,
		})
	}
	rows = append(rows,
		[]any{},
		[]any{"price model r2", wb.PriceFit.R2},
		[]any{"price model rmse", wb.PriceFit.RMSE},
		[]any{"training points", wb.PriceFit.TrainingPoints},
	)
	if err := writeSheet(f, SheetHeadlines, header, []any{
		"year",
		"headline_demand_mw",
		"forecast_demand_mw",
		"demand_deviation_pct",
		"headline_residential_kwh",
		"forecast_residential_kwh",
		"residential_deviation_pct",
		"within_tolerance",
	}, rows); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	ok = true
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, style int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	lastCol := last[:len(last)-1]
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
