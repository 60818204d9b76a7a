package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rpggio/chemviz/internal/domain/dataset"
	"golang.org/x/sync/errgroup"
)

// ViewModel holds the dashboard page state. Every fetch takes a ticket and
// only the response to the latest ticket is committed.
type ViewModel struct {
	source DataSource
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	seq     uint64
	pending int
}

// NewViewModel creates a dashboard view-model.
func NewViewModel(source DataSource, logger *slog.Logger) *ViewModel {
	return &ViewModel{
		source: source,
		logger: logger,
		state:  State{Status: StatusIdle},
	}
}

// State returns a snapshot of the current state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	st := vm.state
	st.Loading = vm.pending > 0
	if st.Loading {
		st.Status = StatusLoading
	}
	return st
}

// Insights derives the insight cards for the current summary.
func (vm *ViewModel) Insights() []dataset.Insight {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return dataset.Insights(vm.state.Summary)
}

// Mount initializes the page. A navigation carrying a dataset id and summary
// is adopted as-is; one carrying only an id loads that dataset with
// nav.Limit; otherwise the most recent history entry is shown, or the page
// is empty.
func (vm *ViewModel) Mount(ctx context.Context, nav *NavState) error {
	if nav != nil && nav.DatasetID > 0 {
		if nav.Summary != nil {
			summary := *nav.Summary
			vm.mu.Lock()
			vm.seq++
			vm.state = State{Status: StatusReady, DatasetID: nav.DatasetID, Summary: &summary}
			vm.mu.Unlock()
			return nil
		}
		if nav.Limit < 0 {
			return ErrInvalidLimit
		}
		return vm.load(ctx, nav.DatasetID, nav.Limit)
	}

	ticket := vm.begin()
	entries, err := vm.source.History(ctx)
	vm.finish(ticket, func(st *State) {
		if err != nil {
			st.Err = err
			return
		}
		if len(entries) == 0 {
			*st = State{Status: StatusEmpty}
			return
		}
		latest := entries[0]
		summary := latest.Summary
		*st = State{Status: StatusReady, DatasetID: latest.ID, Summary: &summary}
	})
	if err != nil {
		return fmt.Errorf("loading latest dataset: %w", err)
	}
	return nil
}

// SetLimit reloads summary and rows of the current dataset restricted to the
// first limit rows. Zero means all rows.
func (vm *ViewModel) SetLimit(ctx context.Context, limit int) error {
	if limit < 0 {
		return ErrInvalidLimit
	}

	vm.mu.Lock()
	datasetID := vm.state.DatasetID
	if datasetID == 0 {
		vm.state = State{Status: StatusEmpty}
		vm.mu.Unlock()
		return ErrNoDataset
	}
	vm.mu.Unlock()

	return vm.load(ctx, datasetID, limit)
}

// Refresh reloads the current dataset with the current limit.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	vm.mu.Lock()
	limit := vm.state.Limit
	vm.mu.Unlock()
	return vm.SetLimit(ctx, limit)
}

// load fetches summary and rows concurrently and commits both or neither.
func (vm *ViewModel) load(ctx context.Context, datasetID int64, limit int) error {
	ticket := vm.begin()

	var (
		summary dataset.Summary
		rows    dataset.RowPage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = vm.source.Summary(gctx, datasetID, limit)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = vm.source.Rows(gctx, datasetID, limit)
		return err
	})
	err := g.Wait()

	committed := vm.finish(ticket, func(st *State) {
		if err != nil {
			st.Err = err
			return
		}
		*st = State{
			Status:    StatusReady,
			DatasetID: datasetID,
			Summary:   &summary,
			Rows:      &rows,
			Limit:     limit,
		}
	})
	if !committed && vm.logger != nil {
		vm.logger.Debug("discarded stale dashboard response", "dataset_id", datasetID, "limit", limit)
	}
	if err != nil {
		return fmt.Errorf("loading dataset %d: %w", datasetID, err)
	}
	return nil
}

func (vm *ViewModel) begin() uint64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.seq++
	vm.pending++
	return vm.seq
}

// finish applies the response of ticket if it is still the latest one.
func (vm *ViewModel) finish(ticket uint64, apply func(*State)) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.pending--
	if ticket != vm.seq {
		return false
	}
	apply(&vm.state)
	return true
}

// LoadHistory loads the history page. Entries keep backend order.
func LoadHistory(ctx context.Context, source HistorySource) (HistoryView, error) {
	entries, err := source.History(ctx)
	if err != nil {
		return HistoryView{}, fmt.Errorf("loading history: %w", err)
	}
	if entries == nil {
		entries = []dataset.HistoryEntry{}
	}
	return HistoryView{Entries: entries, Empty: len(entries) == 0}, nil
}
