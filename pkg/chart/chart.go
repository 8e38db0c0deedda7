// Package chart renders the forecast charts from a forecast CSV.
package chart

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/report"
	"github.com/gridwatch/dcimpact/pkg/types"
)

// Kind names a chart.
type Kind string

const (
	Demand Kind = "demand_forecast"
	Prices Kind = "price_forecast"
	Water  Kind = "water_usage"
)

// Kinds lists every chart in render order.
var Kinds = []Kind{Demand, Prices, Water}

// DefaultFormat is the image format used when none is given.
const DefaultFormat = "jpg"

var (
	width  = 12 * vg.Inch
	height = 6 * vg.Inch

	colorTotal       = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorDC          = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorWholesale   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	colorResidential = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	colorWater       = color.RGBA{R: 23, G: 190, B: 207, A: 255}
	colorMarker      = color.Gray{Y: 120}
)

// ParseKind returns the chart kind named s, accepting an optional extension.
func ParseKind(s string) (Kind, string, error) {
	ext := strings.TrimPrefix(filepath.Ext(s), ".")
	name := strings.TrimSuffix(s, filepath.Ext(s))
	for _, k := range Kinds {
		if string(k) == name {
			if ext == "" {
				ext = DefaultFormat
			}
			return k, strings.ToLower(ext), nil
		}
	}
	return "", "", fmt.Errorf("unknown chart %q", s)
}

type series struct {
	name  string
	color color.Color
	value func(types.TimeSeriesRecord) float64
}

// Render builds the plot for kind. forecastStart is marked with a vertical
// line when it falls inside the records.
func Render(kind Kind, records []types.TimeSeriesRecord, forecastStart time.Time) (*plot.Plot, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to chart")
	}
	p := plot.New()
	p.X.Label.Text = "Date"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006"}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	var lines []series
	switch kind {
	case Demand:
		p.Title.Text = "Kansas City Grid Demand"
		p.Y.Label.Text = "MW"
		lines = []series{
			{"Total demand", colorTotal, func(r types.TimeSeriesRecord) float64 { return r.TotalDemandMW }},
			{"Data center load", colorDC, func(r types.TimeSeriesRecord) float64 { return r.DCLoadMW }},
		}
	case Prices:
		p.Title.Text = "Electricity Prices"
		p.Y.Label.Text = "$/MWh (wholesale), ¢/kWh (residential)"
		lines = []series{
			{"Wholesale ($/MWh)", colorWholesale, func(r types.TimeSeriesRecord) float64 { return r.WholesalePrice }},
			{"Residential (¢/kWh)", colorResidential, func(r types.TimeSeriesRecord) float64 { return r.ResidentialRateKWH * 100 }},
		}
	case Water:
		p.Title.Text = "Data Center Cooling Water"
		p.Y.Label.Text = "Million gallons/day"
		lines = []series{
			{"Water usage", colorWater, func(r types.TimeSeriesRecord) float64 { return r.WaterUsageGallons / 1e6 }},
		}
	default:
		return nil, fmt.Errorf("unknown chart %q", kind)
	}

	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, s := range lines {
		xys := make(plotter.XYs, len(records))
		for i, r := range records {
			xys[i].X = float64(r.Date.Unix())
			xys[i].Y = s.value(r)
			ymin = math.Min(ymin, xys[i].Y)
			ymax = math.Max(ymax, xys[i].Y)
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s line: %w", s.name, err)
		}
		l.Color = s.color
		l.Width = vg.Points(2)
		p.Add(l)
		p.Legend.Add(s.name, l)
	}

	first, last := records[0].Date, records[len(records)-1].Date
	if !forecastStart.IsZero() && forecastStart.After(first) && !forecastStart.After(last) {
		x := float64(forecastStart.Unix())
		marker, err := plotter.NewLine(plotter.XYs{{X: x, Y: ymin}, {X: x, Y: ymax}})
		if err != nil {
			return nil, err
		}
		marker.Color = colorMarker
		marker.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(marker)
		p.Legend.Add("Forecast start", marker)
	}
	return p, nil
}

// Write renders kind in format (jpg, png, svg, pdf) to w.
func Write(w io.Writer, kind Kind, records []types.TimeSeriesRecord, forecastStart time.Time, format string) error {
	p, err := Render(kind, records, forecastStart)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", kind, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// FromCSV reads a forecast CSV and renders kind to w.
func FromCSV(w io.Writer, csv io.Reader, kind Kind, forecastStart time.Time, format string) error {
	records, err := report.ReadForecastCSV(csv, forecastStart)
	if err != nil {
		return err
	}
	return Write(w, kind, records, forecastStart, format)
}

// Generate renders every chart from the CSV at csvPath into dir and returns
// the written paths.
func Generate(ctx context.Context, csvPath, dir string, forecastStart time.Time, format string) ([]string, error) {
	if format == "" {
		format = DefaultFormat
	}
	records, err := report.ReadForecastFile(csvPath, forecastStart)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast csv: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}

	paths := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		path := filepath.Join(dir, string(k)+"."+format)
		p, err := Render(k, records, forecastStart)
		if err != nil {
			return paths, err
		}
		if err := p.Save(width, height, path); err != nil {
			return paths, fmt.Errorf("failed to save %s: %w", path, err)
		}
		log.Ctx(ctx).DebugContext(ctx, "chart written", slog.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}
