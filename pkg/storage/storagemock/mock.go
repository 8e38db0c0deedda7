package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gridwatch/dcimpact/pkg/storage"
	"github.com/gridwatch/dcimpact/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) SaveRun(ctx context.Context, run types.Run, records []types.TimeSeriesRecord) error {
	args := m.Called(ctx, run, records)
	return args.Error(0)
}

func (m *MockDatabase) GetRun(ctx context.Context, id string) (types.Run, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Run), args.Error(1)
}

func (m *MockDatabase) GetLatestRun(ctx context.Context) (types.Run, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Run), args.Error(1)
}

func (m *MockDatabase) ListRuns(ctx context.Context, limit int) ([]types.Run, error) {
	args := m.Called(ctx, limit)
	// return empty if not specified
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Run), args.Error(1)
}

func (m *MockDatabase) GetRecords(ctx context.Context, id string) ([]types.TimeSeriesRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.TimeSeriesRecord), args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
