// Package report writes and reads the forecast outputs.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gridwatch/dcimpact/pkg/types"
)

// ForecastHeader is the column order of the forecast CSV.
var ForecastHeader = []string{
	"date",
	"total_demand_mw",
	"dc_load_mw",
	"wholesale_price",
	"residential_rate_kwh",
	"water_usage_gallons",
}

// ErrMalformedCSV is wrapped by every error from reading a forecast CSV.
var ErrMalformedCSV = errors.New("malformed forecast csv")

// WriteForecastCSV writes one row per record with fixed 6-decimal floats.
func WriteForecastCSV(w io.Writer, records []types.TimeSeriesRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ForecastHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format(types.DateFormat),
			fmtFloat(r.TotalDemandMW),
			fmtFloat(r.DCLoadMW),
			fmtFloat(r.WholesalePrice),
			fmtFloat(r.ResidentialRateKWH),
			fmtFloat(r.WaterUsageGallons),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecastFile writes the forecast CSV to path, creating parent
// directories.
func WriteForecastFile(path string, records []types.TimeSeriesRecord) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteForecastCSV(w, records)
	})
}

// ReadForecastCSV parses a forecast CSV. The Forecast flag is set for rows on
// or after forecastStart; pass the zero time to leave it unset.
func ReadForecastCSV(r io.Reader, forecastStart time.Time) ([]types.TimeSeriesRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(ForecastHeader)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrMalformedCSV, err)
	}
	for i, h := range ForecastHeader {
		if header[i] != h {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrMalformedCSV, i+1, header[i], h)
		}
	}

	var records []types.TimeSeriesRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		date, err := time.Parse(types.DateFormat, row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad date %q", ErrMalformedCSV, line, row[0])
		}
		var vals [5]float64
		for i := range vals {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad %s %q", ErrMalformedCSV, line, ForecastHeader[i+1], row[i+1])
			}
			vals[i] = v
		}
		records = append(records, types.TimeSeriesRecord{
			Date:               date,
			TotalDemandMW:      vals[0],
			DCLoadMW:           vals[1],
			WholesalePrice:     vals[2],
			ResidentialRateKWH: vals[3],
			WaterUsageGallons:  vals[4],
			Forecast:           !forecastStart.IsZero() && !date.Before(forecastStart),
		})
	}
	return records, nil
}

// ReadForecastFile reads the forecast CSV at path.
func ReadForecastFile(path string, forecastStart time.Time) ([]types.TimeSeriesRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadForecastCSV(f, forecastStart)
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
