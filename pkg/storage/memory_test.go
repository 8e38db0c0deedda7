package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/dcimpact/pkg/types"
)

func testRun(created time.Time) types.Run {
	return types.Run{
		ID:        NewRunID(),
		CreatedAt: created,
		Version:   types.CurrentRunVersion,
		Scenario: types.ScenarioConfig{
			Utilization:     0.7,
			TrendAdjustment: 1,
		},
		PriceFit: types.PriceFit{TrainingPoints: 7, R2: 0.17},
		Annual: []types.AnnualSummary{
			{Year: 2024, TotalDemandMW: 11850},
			{Year: 2025, TotalDemandMW: 12300, Forecast: true},
		},
	}
}

func testRecords() []types.TimeSeriesRecord {
	return []types.TimeSeriesRecord{
		{Date: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), TotalDemandMW: 11900},
		{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), TotalDemandMW: 11718.4, Forecast: true},
		{Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), TotalDemandMW: 11730.2, Forecast: true},
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	t.Run("Empty", func(t *testing.T) {
		_, err := m.GetLatestRun(ctx)
		assert.ErrorIs(t, err, ErrRunNotFound)
		runs, err := m.ListRuns(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	first := testRun(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	second := testRun(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	third := testRun(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, m.SaveRun(ctx, second, testRecords()))
	require.NoError(t, m.SaveRun(ctx, first, nil))
	require.NoError(t, m.SaveRun(ctx, third, testRecords()[:2]))

	t.Run("Get", func(t *testing.T) {
		got, err := m.GetRun(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, second, got)

		_, err = m.GetRun(ctx, NewRunID())
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		runs, err := m.ListRuns(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, third.ID, runs[0].ID)
		assert.Equal(t, second.ID, runs[1].ID)
		assert.Equal(t, first.ID, runs[2].ID)

		runs, err = m.ListRuns(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, runs, 2)

		latest, err := m.GetLatestRun(ctx)
		require.NoError(t, err)
		assert.Equal(t, third.ID, latest.ID)
	})

	t.Run("Records", func(t *testing.T) {
		records, err := m.GetRecords(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, testRecords(), records)

		records, err = m.GetRecords(ctx, first.ID)
		require.NoError(t, err)
		assert.Empty(t, records)

		_, err = m.GetRecords(ctx, NewRunID())
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("Isolation", func(t *testing.T) {
		got, err := m.GetRun(ctx, second.ID)
		require.NoError(t, err)
		got.Annual[0].TotalDemandMW = 0

		again, err := m.GetRun(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, 11850.0, again.Annual[0].TotalDemandMW)
	})

	t.Run("Replace", func(t *testing.T) {
		updated := first
		updated.PriceFit.R2 = 0.5
		require.NoError(t, m.SaveRun(ctx, updated, testRecords()[:1]))
		got, err := m.GetRun(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.5, got.PriceFit.R2)
		records, err := m.GetRecords(ctx, first.ID)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestValidateRun(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run := testRun(time.Now())
	run.ID = "not-a-uuid"
	assert.ErrorIs(t, m.SaveRun(ctx, run, nil), ErrInvalidRun)

	run = testRun(time.Time{})
	assert.ErrorIs(t, m.SaveRun(ctx, run, nil), ErrInvalidRun)

	assert.NoError(t, ValidateRunID(NewRunID()))
	assert.Error(t, ValidateRunID(""))
}
