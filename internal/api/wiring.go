package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rpggio/chemviz/internal/config"
	"github.com/rpggio/chemviz/internal/domain/session"
	"github.com/rpggio/chemviz/internal/transport"
)

// New builds a Client from configuration, bound to sessions: every request
// carries the session token and any 401 invalidates the session.
func New(cfg config.APIConfig, sessions *session.Manager, logger *slog.Logger) (*Client, error) {
	httpClient := transport.NewHTTPClient(transport.ClientOptions{
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Tokens:            sessions,
		OnUnauthorized: func(req *http.Request) {
			sessions.Invalidate(context.WithoutCancel(req.Context()), "401 from "+req.URL.Path)
		},
		Logger: logger,
	})
	return NewClient(cfg.BaseURL, httpClient, sessions, logger)
}
