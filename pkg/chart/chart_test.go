package chart

import (
	"bytes"
	"context"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/dcimpact/pkg/forecast"
	"github.com/gridwatch/dcimpact/pkg/report"
	"github.com/gridwatch/dcimpact/pkg/scenario"
	"github.com/gridwatch/dcimpact/pkg/types"
)

func forecastCSV(t *testing.T) ([]byte, time.Time) {
	t.Helper()
	sc := scenario.Default()
	res, err := forecast.Run(context.Background(), sc)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, report.WriteForecastCSV(&buf, res.Records))
	return buf.Bytes(), sc.ForecastStart()
}

func TestParseKind(t *testing.T) {
	k, ext, err := ParseKind("water_usage")
	require.NoError(t, err)
	assert.Equal(t, Water, k)
	assert.Equal(t, DefaultFormat, ext)

	k, ext, err = ParseKind("price_forecast.PNG")
	require.NoError(t, err)
	assert.Equal(t, Prices, k)
	assert.Equal(t, "png", ext)

	_, _, err = ParseKind("rainfall.jpg")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	csv, start := forecastCSV(t)
	records, err := report.ReadForecastCSV(bytes.NewReader(csv), start)
	require.NoError(t, err)

	for _, k := range Kinds {
		t.Run(string(k), func(t *testing.T) {
			p, err := Render(k, records, start)
			require.NoError(t, err)
			assert.NotEmpty(t, p.Title.Text)
		})
	}

	_, err = Render(Kind("rainfall"), records, start)
	assert.Error(t, err)
	_, err = Render(Demand, []types.TimeSeriesRecord{}, start)
	assert.Error(t, err)
}

func TestFromCSV(t *testing.T) {
	csv, start := forecastCSV(t)

	var buf bytes.Buffer
	require.NoError(t, FromCSV(&buf, bytes.NewReader(csv), Demand, start, "png"))
	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, 0)

	err = FromCSV(&buf, bytes.NewReader([]byte("nope\n")), Demand, start, "png")
	assert.ErrorIs(t, err, report.ErrMalformedCSV)

	err = FromCSV(&buf, bytes.NewReader(csv), Demand, start, "bmp")
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	csv, start := forecastCSV(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "forecast.csv")
	require.NoError(t, os.WriteFile(csvPath, csv, 0o644))

	paths, err := Generate(context.Background(), csvPath, filepath.Join(dir, "charts"), start, "")
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "charts", "demand_forecast.jpg"), paths[0])
	for _, p := range paths {
		f, err := os.Open(p)
		require.NoError(t, err)
		_, err = jpeg.DecodeConfig(f)
		f.Close()
		assert.NoError(t, err, p)
	}

	_, err = Generate(context.Background(), filepath.Join(dir, "missing.csv"), dir, start, "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
