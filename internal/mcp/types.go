package mcp

import (
	"time"

	"github.com/rpggio/chemviz/internal/domain/dashboard"
	"github.com/rpggio/chemviz/internal/domain/dataset"
)

type LoginParams struct {
	Identifier string `json:"identifier" jsonschema:"email address or username"`
	Password   string `json:"password" jsonschema:"account password"`
}

type SignupParams struct {
	Name            string `json:"name" jsonschema:"full name"`
	Email           string `json:"email" jsonschema:"email address"`
	Password        string `json:"password" jsonschema:"new password"`
	ConfirmPassword string `json:"confirm_password" jsonschema:"the password again"`
}

type UploadCSVParams struct {
	Path     string `json:"path,omitempty" jsonschema:"path of a local .csv file to upload"`
	FileName string `json:"file_name,omitempty" jsonschema:"file name for inline content; must end in .csv"`
	Content  string `json:"content,omitempty" jsonschema:"inline CSV content, used when path is empty"`
}

type GetDashboardParams struct {
	DatasetID int64  `json:"dataset_id,omitempty" jsonschema:"dataset to show; omit for the most recent upload"`
	Limit     int    `json:"limit,omitempty" jsonschema:"restrict summary and rows to the first N rows; omit for all rows"`
	ChartsDir string `json:"charts_dir,omitempty" jsonschema:"if set, PNG charts are written to this directory"`
}

type DownloadReportParams struct {
	DatasetID int64  `json:"dataset_id" jsonschema:"dataset whose PDF report to download"`
	Dir       string `json:"dir,omitempty" jsonschema:"directory to save into; defaults to the configured download dir"`
}

type EmptyParams struct{}

type SessionResult struct {
	State         string `json:"state"`
	Authenticated bool   `json:"authenticated"`
	CurrentPath   string `json:"current_path"`
}

type UploadResult struct {
	DatasetID int64             `json:"dataset_id"`
	Summary   dataset.Summary   `json:"summary"`
	Insights  []dataset.Insight `json:"insights"`
}

type DashboardResult struct {
	Status     string            `json:"status"`
	DatasetID  int64             `json:"dataset_id,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Summary    *dataset.Summary  `json:"summary,omitempty"`
	Rows       []dataset.Row     `json:"rows,omitempty"`
	TotalCount int               `json:"total_count,omitempty"`
	Insights   []dataset.Insight `json:"insights,omitempty"`
	Charts     []string          `json:"charts,omitempty"`
}

type HistoryItem struct {
	ID         int64           `json:"id"`
	FileName   string          `json:"file_name"`
	UploadedAt string          `json:"uploaded_at,omitempty"`
	Summary    dataset.Summary `json:"summary"`
}

type HistoryResult struct {
	Entries []HistoryItem `json:"entries"`
	Empty   bool          `json:"empty"`
}

type DownloadReportResult struct {
	Path string `json:"path"`
}

func toDashboardResult(st dashboard.State, insights []dataset.Insight) DashboardResult {
	out := DashboardResult{
		Status:    string(st.Status),
		DatasetID: st.DatasetID,
		Limit:     st.Limit,
		Summary:   st.Summary,
		Insights:  insights,
	}
	if st.Rows != nil {
		out.Rows = st.Rows.Rows
		out.TotalCount = st.Rows.TotalCount
	}
	return out
}

func toHistoryResult(view dashboard.HistoryView) HistoryResult {
	out := HistoryResult{Entries: make([]HistoryItem, 0, len(view.Entries)), Empty: view.Empty}
	for _, entry := range view.Entries {
		item := HistoryItem{ID: entry.ID, FileName: entry.FileName, Summary: entry.Summary}
		if !entry.UploadedAt.IsZero() {
			item.UploadedAt = entry.UploadedAt.UTC().Format(time.RFC3339)
		}
		out.Entries = append(out.Entries, item)
	}
	return out
}
