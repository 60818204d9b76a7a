package mocks

import (
	"context"

	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/stretchr/testify/mock"
)

// TokenStore is a mock for repository.TokenStore.
type TokenStore struct {
	mock.Mock
}

func (m *TokenStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *TokenStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *TokenStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// DatasetSource is a mock for dashboard.DataSource.
type DatasetSource struct {
	mock.Mock
}

func (m *DatasetSource) Summary(ctx context.Context, datasetID int64, limit int) (dataset.Summary, error) {
	args := m.Called(ctx, datasetID, limit)
	if summary, ok := args.Get(0).(dataset.Summary); ok {
		return summary, args.Error(1)
	}
	return dataset.Summary{}, args.Error(1)
}

func (m *DatasetSource) Rows(ctx context.Context, datasetID int64, limit int) (dataset.RowPage, error) {
	args := m.Called(ctx, datasetID, limit)
	if page, ok := args.Get(0).(dataset.RowPage); ok {
		return page, args.Error(1)
	}
	return dataset.RowPage{}, args.Error(1)
}

func (m *DatasetSource) History(ctx context.Context) ([]dataset.HistoryEntry, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]dataset.HistoryEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
