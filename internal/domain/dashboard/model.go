package dashboard

import "github.com/rpggio/chemviz/internal/domain/dataset"

// Status is the page status of the dashboard.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusEmpty   Status = "empty"
	StatusReady   Status = "ready"
)

// NavState is what a navigation may carry into the dashboard, e.g. the
// result of an upload.
type NavState struct {
	DatasetID int64
	Summary   *dataset.Summary
	// Limit applies when only DatasetID is given.
	Limit int
}

// State is a snapshot of the dashboard. Summary, Rows and Limit always
// belong to DatasetID.
type State struct {
	Status    Status           `json:"status"`
	Loading   bool             `json:"loading"`
	DatasetID int64            `json:"dataset_id,omitempty"`
	Summary   *dataset.Summary `json:"summary,omitempty"`
	Rows      *dataset.RowPage `json:"rows,omitempty"`
	Limit     int              `json:"limit"`
	Err       error            `json:"-"`
}

// HistoryView is the history page.
type HistoryView struct {
	Entries []dataset.HistoryEntry `json:"entries"`
	Empty   bool                   `json:"empty"`
}
