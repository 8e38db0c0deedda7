package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/dcimpact/pkg/report"
	"github.com/gridwatch/dcimpact/pkg/storage"
	"github.com/gridwatch/dcimpact/pkg/storage/storagemock"
	"github.com/gridwatch/dcimpact/pkg/types"
)

func sampleRun() types.Run {
	return types.Run{
		ID:        storage.NewRunID(),
		CreatedAt: testNow,
		Version:   types.CurrentRunVersion,
		Scenario:  types.ScenarioConfig{Utilization: 0.7, TrendAdjustment: 1},
		Annual:    []types.AnnualSummary{{Year: 2030, TotalDemandMW: 14340.34, Forecast: true}},
	}
}

func sampleRecords() []types.TimeSeriesRecord {
	var out []types.TimeSeriesRecord
	for m := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); m.Year() < 2026; m = m.AddDate(0, 1, 0) {
		out = append(out, types.TimeSeriesRecord{
			Date:               m,
			TotalDemandMW:      11800 + float64(m.Month())*10,
			DCLoadMW:           100,
			WholesalePrice:     30,
			ResidentialRateKWH: 0.158,
			WaterUsageGallons:  250000,
			Forecast:           m.Year() == 2025,
		})
	}
	return out
}

func TestListRuns(t *testing.T) {
	run := sampleRun()

	t.Run("Default limit", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("ListRuns", mock.Anything, defaultListLimit).Return([]types.Run{run}, nil)
		w := do(t, newTestServer(db).setupHandler(), "GET", "/api/runs", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got []types.Run
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, run.ID, got[0].ID)
		assert.Equal(t, cacheShort, w.Header().Get("Cache-Control"))
		db.AssertExpectations(t)
	})

	t.Run("Capped limit", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("ListRuns", mock.Anything, maxListLimit).Return(nil, nil)
		w := do(t, newTestServer(db).setupHandler(), "GET", "/api/runs?limit=100000", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
		db.AssertExpectations(t)
	})

	t.Run("Bad limit", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		h := newTestServer(db).setupHandler()
		for _, q := range []string{"abc", "0", "-3"} {
			w := do(t, h, "GET", "/api/runs?limit="+q, nil, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
		db.AssertNotCalled(t, "ListRuns", mock.Anything, mock.Anything)
	})

	t.Run("Storage error", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("ListRuns", mock.Anything, defaultListLimit).Return(nil, errors.New("boom"))
		w := do(t, newTestServer(db).setupHandler(), "GET", "/api/runs", nil, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetRun(t *testing.T) {
	run := sampleRun()

	tests := []struct {
		name   string
		path   string
		setup  func(db *storagemock.MockDatabase)
		status int
	}{
		{
			name: "Found",
			path: "/api/runs/" + run.ID,
			setup: func(db *storagemock.MockDatabase) {
				db.On("GetRun", mock.Anything, run.ID).Return(run, nil)
			},
			status: http.StatusOK,
		},
		{
			name: "Not found",
			path: "/api/runs/" + run.ID,
			setup: func(db *storagemock.MockDatabase) {
				db.On("GetRun", mock.Anything, run.ID).Return(types.Run{}, storage.ErrRunNotFound)
			},
			status: http.StatusNotFound,
		},
		{
			name: "Storage error",
			path: "/api/runs/" + run.ID,
			setup: func(db *storagemock.MockDatabase) {
				db.On("GetRun", mock.Anything, run.ID).Return(types.Run{}, errors.New("boom"))
			},
			status: http.StatusInternalServerError,
		},
		{
			name:   "Invalid id",
			path:   "/api/runs/not-a-run",
			setup:  func(db *storagemock.MockDatabase) {},
			status: http.StatusBadRequest,
		},
		{
			name: "Latest",
			path: "/api/runs/latest",
			setup: func(db *storagemock.MockDatabase) {
				db.On("GetLatestRun", mock.Anything).Return(run, nil)
			},
			status: http.StatusOK,
		},
		{
			name: "Latest empty",
			path: "/api/runs/latest",
			setup: func(db *storagemock.MockDatabase) {
				db.On("GetLatestRun", mock.Anything).Return(types.Run{}, storage.ErrRunNotFound)
			},
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &storagemock.MockDatabase{}
			tt.setup(db)
			w := do(t, newTestServer(db).setupHandler(), "GET", tt.path, nil, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status == http.StatusOK {
				var got types.Run
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, run.ID, got.ID)
				assert.Equal(t, run.Annual, got.Annual)
			} else {
				var e struct {
					Error string `json:"error"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
				assert.NotEmpty(t, e.Error)
			}
			db.AssertExpectations(t)
		})
	}
}

func TestRecordsAndCSV(t *testing.T) {
	run := sampleRun()
	db := &storagemock.MockDatabase{}
	db.On("GetRecords", mock.Anything, run.ID).Return(sampleRecords(), nil)
	h := newTestServer(db).setupHandler()

	t.Run("Records", func(t *testing.T) {
		w := do(t, h, "GET", "/api/runs/"+run.ID+"/records", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got []types.TimeSeriesRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got, 24)
		assert.Equal(t, cacheImmutable, w.Header().Get("Cache-Control"))
	})

	t.Run("CSV", func(t *testing.T) {
		w := do(t, h, "GET", "/api/runs/"+run.ID+"/forecast.csv", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), run.ID)

		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		require.Len(t, lines, 25)
		assert.Equal(t, strings.Join(report.ForecastHeader, ","), strings.TrimSpace(lines[0]))
		assert.True(t, strings.HasPrefix(lines[1], "2024-01-01,"))
	})

	t.Run("Missing run", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		id := storage.NewRunID()
		db.On("GetRecords", mock.Anything, id).Return(nil, storage.ErrRunNotFound)
		w := do(t, newTestServer(db).setupHandler(), "GET", "/api/runs/"+id+"/forecast.csv", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestChart(t *testing.T) {
	run := sampleRun()
	db := &storagemock.MockDatabase{}
	db.On("GetRecords", mock.Anything, run.ID).Return(sampleRecords(), nil)
	h := newTestServer(db).setupHandler()

	t.Run("PNG", func(t *testing.T) {
		w := do(t, h, "GET", "/api/runs/"+run.ID+"/charts/demand_forecast.png", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))
	})

	t.Run("Default format", func(t *testing.T) {
		w := do(t, h, "GET", "/api/runs/"+run.ID+"/charts/water_usage", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	})

	t.Run("SVG", func(t *testing.T) {
		w := do(t, h, "GET", "/api/runs/"+run.ID+"/charts/price_forecast.svg", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), "<svg")
	})

	t.Run("Unknown chart", func(t *testing.T) {
		w := do(t, h, "GET", "/api/runs/"+run.ID+"/charts/pie.png", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Unsupported format", func(t *testing.T) {
		w := do(t, h, "GET", "/api/runs/"+run.ID+"/charts/demand_forecast.gif", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("No records", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		id := storage.NewRunID()
		db.On("GetRecords", mock.Anything, id).Return([]types.TimeSeriesRecord{}, nil)
		w := do(t, newTestServer(db).setupHandler(), "GET", "/api/runs/"+id+"/charts/demand_forecast", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestForecastStart(t *testing.T) {
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), forecastStart(sampleRecords()))
	assert.True(t, forecastStart(sampleRecords()[:12]).IsZero())
}
