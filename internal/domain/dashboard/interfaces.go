package dashboard

import (
	"context"

	"github.com/rpggio/chemviz/internal/domain/dataset"
)

// HistorySource lists previous uploads, most recent first.
type HistorySource interface {
	History(ctx context.Context) ([]dataset.HistoryEntry, error)
}

// DataSource provides everything the dashboard fetches.
type DataSource interface {
	HistorySource
	Summary(ctx context.Context, datasetID int64, limit int) (dataset.Summary, error)
	Rows(ctx context.Context, datasetID int64, limit int) (dataset.RowPage, error)
}
