package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/rpggio/chemviz/internal/domain/dataset"
)

type summaryResponse struct {
	DatasetID int64           `json:"dataset_id"`
	Summary   dataset.Summary `json:"summary"`
}

// Upload sends a CSV file as multipart field "file". Names without a .csv
// suffix are rejected before any request is made.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (dataset.UploadResult, error) {
	if err := dataset.ValidateCSVName(filename); err != nil {
		return dataset.UploadResult{}, err
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return dataset.UploadResult{}, fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return dataset.UploadResult{}, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return dataset.UploadResult{}, fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload/", nil), body)
	if err != nil {
		return dataset.UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var out dataset.UploadResult
	if err := c.do(req, &out); err != nil {
		return dataset.UploadResult{}, fmt.Errorf("upload: %w", err)
	}
	if c.logger != nil {
		c.logger.Info("dataset uploaded", "dataset_id", out.DatasetID, "file", filepath.Base(filename))
	}
	return out, nil
}

// Summary fetches the summary of a dataset. A positive limit restricts the
// summary to the first limit rows; zero means all rows.
func (c *Client) Summary(ctx context.Context, datasetID int64, limit int) (dataset.Summary, error) {
	query, err := limitQuery(datasetID, limit)
	if err != nil {
		return dataset.Summary{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(datasetPath("summary", datasetID), query), nil)
	if err != nil {
		return dataset.Summary{}, err
	}
	req.Header.Set("Accept", "application/json")

	var out summaryResponse
	if err := c.do(req, &out); err != nil {
		return dataset.Summary{}, fmt.Errorf("loading summary %d: %w", datasetID, err)
	}
	return out.Summary, nil
}

// Rows fetches the row preview of a dataset. Zero limit means all rows.
func (c *Client) Rows(ctx context.Context, datasetID int64, limit int) (dataset.RowPage, error) {
	query, err := limitQuery(datasetID, limit)
	if err != nil {
		return dataset.RowPage{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(datasetPath("csv-data", datasetID), query), nil)
	if err != nil {
		return dataset.RowPage{}, err
	}
	req.Header.Set("Accept", "application/json")

	var out dataset.RowPage
	if err := c.do(req, &out); err != nil {
		return dataset.RowPage{}, fmt.Errorf("loading rows %d: %w", datasetID, err)
	}
	if out.Rows == nil {
		out.Rows = []dataset.Row{}
	}
	return out, nil
}

// History lists previous uploads, most recent first.
func (c *Client) History(ctx context.Context) ([]dataset.HistoryEntry, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/history/", nil)
	if err != nil {
		return nil, err
	}

	var out []dataset.HistoryEntry
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if out == nil {
		out = []dataset.HistoryEntry{}
	}
	return out, nil
}

func datasetPath(resource string, datasetID int64) string {
	return "/" + resource + "/" + strconv.FormatInt(datasetID, 10) + "/"
}

func limitQuery(datasetID int64, limit int) (url.Values, error) {
	if datasetID <= 0 {
		return nil, ErrInvalidDatasetID
	}
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit == 0 {
		return nil, nil
	}
	return url.Values{"limit": []string{strconv.Itoa(limit)}}, nil
}
