package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gridwatch/dcimpact/pkg/types"
)

// Memory is a process-local Database. Values are copied in and out.
type Memory struct {
	mu      sync.RWMutex
	runs    map[string]types.Run
	records map[string][]types.TimeSeriesRecord
}

var _ Database = (*Memory)(nil)

// NewMemory returns an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{
		runs:    make(map[string]types.Run),
		records: make(map[string][]types.TimeSeriesRecord),
	}
}

func (m *Memory) SaveRun(ctx context.Context, run types.Run, records []types.TimeSeriesRecord) error {
	if err := validateRun(run); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = cloneRun(run)
	m.records[run.ID] = slices.Clone(records)
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (types.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return types.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return cloneRun(run), nil
}

func (m *Memory) GetLatestRun(ctx context.Context) (types.Run, error) {
	runs, err := m.ListRuns(ctx, 1)
	if err != nil {
		return types.Run{}, err
	}
	if len(runs) == 0 {
		return types.Run{}, ErrRunNotFound
	}
	return runs[0], nil
}

func (m *Memory) ListRuns(ctx context.Context, limit int) ([]types.Run, error) {
	m.mu.RLock()
	runs := make([]types.Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, cloneRun(r))
	}
	m.mu.RUnlock()

	slices.SortFunc(runs, func(a, b types.Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareStrings(a.ID, b.ID)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *Memory) GetRecords(ctx context.Context, id string) ([]types.TimeSeriesRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return slices.Clone(records), nil
}

func (m *Memory) Close() error {
	return nil
}

func cloneRun(r types.Run) types.Run {
	r.Annual = slices.Clone(r.Annual)
	r.Headlines = slices.Clone(r.Headlines)
	return r
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
