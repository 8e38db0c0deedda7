package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/dcimpact/pkg/scenario"
	"github.com/gridwatch/dcimpact/pkg/storage"
	"github.com/gridwatch/dcimpact/pkg/storage/storagemock"
	"github.com/gridwatch/dcimpact/pkg/types"
)

func TestCreateRun(t *testing.T) {
	t.Run("Base scenario", func(t *testing.T) {
		db := storage.NewMemory()
		h := newTestServer(db).setupHandler()

		w := do(t, h, "POST", "/api/runs", nil, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var run types.Run
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
		assert.Equal(t, "/api/runs/"+run.ID, w.Header().Get("Location"))
		assert.True(t, testNow.Equal(run.CreatedAt))
		assert.Equal(t, types.CurrentRunVersion, run.Version)
		assert.Equal(t, scenario.DefaultConfig, run.Scenario)
		assert.Len(t, run.Headlines, 2)
		assert.Equal(t, 7, run.PriceFit.TrainingPoints)

		stored, err := db.GetRun(context.Background(), run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, stored.ID)
		records, err := db.GetRecords(context.Background(), run.ID)
		require.NoError(t, err)
		assert.Len(t, records, 216)

		w = do(t, h, "GET", "/api/runs/latest", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var latest types.Run
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
		assert.Equal(t, run.ID, latest.ID)
	})

	t.Run("Overrides", func(t *testing.T) {
		db := storage.NewMemory()
		h := newTestServer(db).setupHandler()

		w := do(t, h, "POST", "/api/runs", []byte(`{"utilization":0.5,"trendAdjustment":1.2}`), nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var run types.Run
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
		assert.Equal(t, 0.5, run.Scenario.Utilization)
		assert.Equal(t, 1.2, run.Scenario.TrendAdjustment)
		assert.Equal(t, scenario.DefaultConfig.EfficiencyImprovement, run.Scenario.EfficiencyImprovement)
		// headlines only describe the base case
		assert.Empty(t, run.Headlines)
	})

	t.Run("Invalid overrides", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		h := newTestServer(db).setupHandler()
		for _, body := range []string{
			`{"utilization":2}`,
			`{"efficiencyImprovement":1}`,
			`{"trendAdjustment":0}`,
			`{"bogus":1}`,
			`not json`,
		} {
			w := do(t, h, "POST", "/api/runs", []byte(body), nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
		db.AssertNotCalled(t, "SaveRun", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Save error", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("SaveRun", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))
		w := do(t, newTestServer(db).setupHandler(), "POST", "/api/runs", nil, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
