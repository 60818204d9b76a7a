package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/chemviz/internal/api"
	"github.com/rpggio/chemviz/internal/config"
	"github.com/rpggio/chemviz/internal/domain/session"
	"github.com/rpggio/chemviz/internal/router"
	"github.com/rpggio/chemviz/internal/sqlite"
)

// app holds the wired client for one process.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sqlite.DB
	sessions *session.Manager
	client   *api.Client
	router   *router.Router
	unbind   func()
}

func openApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	if err := ensureDBDir(cfg.Store.Path); err != nil {
		return nil, fmt.Errorf("prepare store path: %w", err)
	}

	db, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	sessions := session.NewManager(sqlite.NewTokenStore(db), logger)
	if err := sessions.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	client, err := api.New(cfg.API, sessions, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	r := router.New(sessions, router.DefaultRoutes(), logger)
	unbind := r.BindSession(sessions)
	if sessions.IsAuthenticated() {
		r.Navigate(router.PathDashboard, nil)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		sessions: sessions,
		client:   client,
		router:   r,
		unbind:   unbind,
	}, nil
}

func (a *app) Close() error {
	a.unbind()
	return a.db.Close()
}

// require navigates to a protected page, failing while signed out.
func (a *app) require(path string, state any) error {
	loc := a.router.Navigate(path, state)
	if loc.Path != path {
		return session.ErrNotAuthenticated
	}
	return nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
