package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rpggio/chemviz/internal/api"
	"github.com/rpggio/chemviz/internal/charts"
	"github.com/rpggio/chemviz/internal/domain/dashboard"
	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/rpggio/chemviz/internal/router"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type toolHandlers struct {
	services    Services
	downloadDir string
	logger      *slog.Logger
}

func registerTools(server *sdkmcp.Server, cfg Config) {
	h := &toolHandlers{services: cfg.Services, downloadDir: cfg.DownloadDir, logger: cfg.Logger}

	// Session
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "login",
		Description: "Sign in with an email address or username. The session token is kept by the client.",
	}, h.login)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "signup",
		Description: "Create an account and sign in",
	}, h.signup)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "logout",
		Description: "Sign out and forget the stored session token",
	}, h.logout)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "session_status",
		Description: "Report whether the client is signed in and which page it is on",
	}, h.sessionStatus)

	// Pages (require a signed-in session)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "upload_csv",
		Description: "Upload a CSV of equipment readings (Equipment Name, Type, Flowrate, Pressure, Temperature) and return its summary",
	}, h.uploadCSV)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_dashboard",
		Description: "Show summary statistics, row preview and insights for a dataset, optionally limited to the first N rows",
	}, h.getDashboard)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_history",
		Description: "List recent uploads, most recent first",
	}, h.getHistory)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "download_report",
		Description: "Download the PDF report of a dataset to a local directory",
	}, h.downloadReport)
}

func (h *toolHandlers) sessionResult() SessionResult {
	status := h.services.Sessions.Status()
	return SessionResult{
		State:         string(status.State),
		Authenticated: status.Authenticated,
		CurrentPath:   h.services.Router.Current().Path,
	}
}

func (h *toolHandlers) login(ctx context.Context, _ *sdkmcp.CallToolRequest, in LoginParams) (*sdkmcp.CallToolResult, SessionResult, error) {
	if _, err := h.services.API.Login(ctx, api.Credentials{Identifier: in.Identifier, Password: in.Password}); err != nil {
		return nil, SessionResult{}, MapError(err)
	}
	h.services.Router.Navigate(router.PathDashboard, nil)
	return nil, h.sessionResult(), nil
}

func (h *toolHandlers) signup(ctx context.Context, _ *sdkmcp.CallToolRequest, in SignupParams) (*sdkmcp.CallToolResult, SessionResult, error) {
	_, err := h.services.API.Signup(ctx, api.Profile{
		Name:            in.Name,
		Email:           in.Email,
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	})
	if err != nil {
		return nil, SessionResult{}, MapError(err)
	}
	h.services.Router.Navigate(router.PathDashboard, nil)
	return nil, h.sessionResult(), nil
}

func (h *toolHandlers) logout(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, SessionResult, error) {
	if err := h.services.Sessions.Logout(ctx); err != nil {
		return nil, SessionResult{}, MapError(err)
	}
	h.services.Router.Navigate(router.PathLanding, nil)
	return nil, h.sessionResult(), nil
}

func (h *toolHandlers) sessionStatus(_ context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, SessionResult, error) {
	return nil, h.sessionResult(), nil
}

func (h *toolHandlers) uploadCSV(ctx context.Context, _ *sdkmcp.CallToolRequest, in UploadCSVParams) (*sdkmcp.CallToolResult, UploadResult, error) {
	name := in.FileName
	if in.Path != "" {
		name = in.Path
	}
	if err := dataset.ValidateCSVName(name); err != nil {
		return nil, UploadResult{}, MapError(err)
	}

	var content io.Reader
	if in.Path != "" {
		f, err := os.Open(in.Path)
		if err != nil {
			return nil, UploadResult{}, MapError(err)
		}
		defer f.Close()
		content = f
	} else {
		content = strings.NewReader(in.Content)
	}

	result, err := h.services.API.Upload(ctx, name, content)
	if err != nil {
		return nil, UploadResult{}, MapError(err)
	}

	summary := result.Summary
	h.services.Router.Navigate(router.PathDashboard, &dashboard.NavState{DatasetID: result.DatasetID, Summary: &summary})
	return nil, UploadResult{
		DatasetID: result.DatasetID,
		Summary:   result.Summary,
		Insights:  dataset.Insights(&summary),
	}, nil
}

func (h *toolHandlers) getDashboard(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetDashboardParams) (*sdkmcp.CallToolResult, DashboardResult, error) {
	if in.Limit < 0 {
		return nil, DashboardResult{}, MapError(dashboard.ErrInvalidLimit)
	}

	vm := dashboard.NewViewModel(h.services.API, h.logger)
	datasetID := in.DatasetID
	if datasetID == 0 {
		// Fall back to whatever the last navigation carried, e.g. an upload.
		if prev, ok := h.services.Router.Current().State.(*dashboard.NavState); ok && prev != nil {
			datasetID = prev.DatasetID
		}
	}
	var nav *dashboard.NavState
	if datasetID > 0 {
		nav = &dashboard.NavState{DatasetID: datasetID, Limit: in.Limit}
	}
	if err := vm.Mount(ctx, nav); err != nil {
		return nil, DashboardResult{}, MapError(err)
	}

	// Mounting from history adopts the stored summary only; fetch rows too.
	if st := vm.State(); st.Status == dashboard.StatusReady && st.Rows == nil {
		if err := vm.SetLimit(ctx, in.Limit); err != nil {
			return nil, DashboardResult{}, MapError(err)
		}
	}

	st := vm.State()
	out := toDashboardResult(st, vm.Insights())
	if in.ChartsDir != "" && st.Summary != nil {
		paths, err := charts.Render(*st.Summary, in.ChartsDir)
		if err != nil {
			return nil, DashboardResult{}, MapError(err)
		}
		out.Charts = paths
	}

	h.services.Router.Navigate(router.PathDashboard, &dashboard.NavState{DatasetID: st.DatasetID, Summary: st.Summary})
	return nil, out, nil
}

func (h *toolHandlers) getHistory(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, HistoryResult, error) {
	view, err := dashboard.LoadHistory(ctx, h.services.API)
	if err != nil {
		return nil, HistoryResult{}, MapError(err)
	}
	h.services.Router.Navigate(router.PathHistory, nil)
	return nil, toHistoryResult(view), nil
}

func (h *toolHandlers) downloadReport(ctx context.Context, _ *sdkmcp.CallToolRequest, in DownloadReportParams) (*sdkmcp.CallToolResult, DownloadReportResult, error) {
	dir := in.Dir
	if dir == "" {
		dir = h.downloadDir
	}
	path, err := h.services.API.DownloadReport(ctx, in.DatasetID, dir)
	if err != nil {
		return nil, DownloadReportResult{}, MapError(err)
	}
	return nil, DownloadReportResult{Path: path}, nil
}
