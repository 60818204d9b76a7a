package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Report is a streamed PDF report. Callers must close Body.
type Report struct {
	DatasetID   int64
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Report requests the PDF report of a dataset.
func (c *Client) Report(ctx context.Context, datasetID int64) (*Report, error) {
	if datasetID <= 0 {
		return nil, ErrInvalidDatasetID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(datasetPath("report", datasetID), nil), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.send(req)
	if err != nil {
		return nil, fmt.Errorf("downloading report %d: %w", datasetID, err)
	}

	return &Report{
		DatasetID:   datasetID,
		Filename:    ReportFilename(resp.Header.Get("Content-Disposition"), datasetID),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

// DownloadReport saves the report of a dataset into dir and returns the
// written path. The file appears only once fully written.
func (c *Client) DownloadReport(ctx context.Context, datasetID int64, dir string) (string, error) {
	report, err := c.Report(ctx, datasetID)
	if err != nil {
		return "", err
	}
	defer report.Body.Close()

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.part")
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, report.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing report %d: %w", datasetID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("writing report %d: %w", datasetID, err)
	}

	target, err := claimPath(tmpName, dir, report.Filename)
	os.Remove(tmpName)
	if err != nil {
		return "", fmt.Errorf("saving report %d: %w", datasetID, err)
	}

	if c.logger != nil {
		c.logger.Info("report saved", "dataset_id", datasetID, "path", target)
	}
	return target, nil
}

// ReportFilename extracts the filename from a Content-Disposition header,
// stripped of any directory part. It falls back to "Report <id>.pdf" when the
// header is missing, malformed or names no usable file.
func ReportFilename(contentDisposition string, datasetID int64) string {
	fallback := fmt.Sprintf("Report %d.pdf", datasetID)
	if contentDisposition == "" {
		return fallback
	}

	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return fallback
	}

	name := strings.TrimSpace(params["filename"])
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return fallback
	}
	return name
}

const maxNameAttempts = 1000

// claimPath links src into dir as name, or as "name (n).ext" when that file
// already exists. Existing downloads are never replaced.
func claimPath(src, dir, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := range maxNameAttempts {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
		}
		target := filepath.Join(dir, candidate)
		err := os.Link(src, target)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %q in %s", name, dir)
}
