package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/rpggio/chemviz/internal/api"
	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/rpggio/chemviz/internal/domain/session"
	"github.com/rpggio/chemviz/internal/router"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// APIClient defines backend operations needed by MCP.
type APIClient interface {
	Login(ctx context.Context, creds api.Credentials) (string, error)
	Signup(ctx context.Context, profile api.Profile) (string, error)
	Upload(ctx context.Context, filename string, content io.Reader) (dataset.UploadResult, error)
	Summary(ctx context.Context, datasetID int64, limit int) (dataset.Summary, error)
	Rows(ctx context.Context, datasetID int64, limit int) (dataset.RowPage, error)
	History(ctx context.Context) ([]dataset.HistoryEntry, error)
	DownloadReport(ctx context.Context, datasetID int64, dir string) (string, error)
}

// SessionService defines session operations needed by MCP.
type SessionService interface {
	Status() session.Status
	Logout(ctx context.Context) error
}

// Navigator tracks the current page.
type Navigator interface {
	Guard
	Navigate(path string, state any) router.Location
	Current() router.Location
}

// Services contains everything the tools call into.
type Services struct {
	API      APIClient
	Sessions SessionService
	Router   Navigator
}

// Config contains server configuration.
type Config struct {
	Services Services
	// DownloadDir is used by download_report when the call names no dir.
	DownloadDir string
	Logger      *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "chemviz",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(guardMiddleware(cfg.Services.Router))
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg)

	return server
}
