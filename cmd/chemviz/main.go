// Command chemviz is a terminal client for the chemical equipment visualizer
// backend. It can also serve its operations as MCP tools over stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/rpggio/chemviz/internal/api"
	"github.com/rpggio/chemviz/internal/config"
	"github.com/rpggio/chemviz/internal/domain/session"
	"github.com/rpggio/chemviz/internal/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout carries command output or MCP JSON-RPC.
	logWriter := io.Writer(os.Stderr)
	if logPath := os.Getenv("CHEMVIZ_LOG_PATH"); logPath != "" {
		fileWriter, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	err = run(ctx, a, os.Args[1:], os.Stdout)
	if closeErr := a.Close(); closeErr != nil {
		logger.Warn("failed to close store", "error", closeErr)
	}
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, api.ErrInvalidCredentials):
		return transport.UserMessage(err, "Login failed")
	case errors.Is(err, transport.ErrUnauthorized):
		return "Your session has ended. Sign in again with: chemviz login"
	case errors.Is(err, session.ErrNotAuthenticated):
		return "Not signed in. Sign in with: chemviz login"
	}
	msg := transport.UserMessage(err, "")
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		for _, field := range slices.Sorted(maps.Keys(apiErr.Fields)) {
			if text, ok := apiErr.FieldMessage(field); ok && text != msg {
				msg += fmt.Sprintf("\n  %s: %s", field, text)
			}
		}
	}
	return msg
}
