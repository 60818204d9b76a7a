package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/chemviz/internal/config"
	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/rpggio/chemviz/internal/domain/session"
	"github.com/rpggio/chemviz/internal/router"
	"github.com/rpggio/chemviz/internal/testserver"
	"github.com/rpggio/chemviz/internal/transport"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, ts *testserver.TestServer) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.API.BaseURL = ts.BaseURL
	cfg.Store.Path = filepath.Join(dir, "state", "chemviz.db")
	cfg.Downloads.Dir = filepath.Join(dir, "downloads")
	return cfg
}

func openTestApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	a, err := openApp(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func runCmd(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), a, args, &out)
	return out.String(), err
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(path, []byte(testserver.SampleCSV), 0o644))
	return path
}

func TestRun_FullFlow(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("alice", "alice@example.com", "secret123")
	cfg := testConfig(t, ts)
	a := openTestApp(t, cfg)

	out, err := runCmd(t, a, "login", "-user", "alice", "-password", "secret123")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in.")
	require.Equal(t, router.PathDashboard, a.router.Current().Path)

	out, err = runCmd(t, a, "upload", writeSample(t))
	require.NoError(t, err)
	require.Contains(t, out, "Uploaded sample.csv as dataset 1.")
	require.Contains(t, out, "Equipment Fleet Status")

	out, err = runCmd(t, a, "dashboard", "-limit", "2")
	require.NoError(t, err)
	require.Contains(t, out, "Dataset 1 (first 2 rows)")
	require.Contains(t, out, "Showing 2 of 4 rows")
	require.Contains(t, out, "Max temperature")

	out, err = runCmd(t, a, "history")
	require.NoError(t, err)
	require.Contains(t, out, "sample.csv")

	out, err = runCmd(t, a, "report", "-id", "1")
	require.NoError(t, err)
	require.Contains(t, out, "Report 1.pdf")
	_, err = os.Stat(filepath.Join(cfg.Downloads.Dir, "Report 1.pdf"))
	require.NoError(t, err)

	out, err = runCmd(t, a, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out.")
	require.False(t, a.sessions.IsAuthenticated())
}

func TestRun_ProtectedCommandSignedOut(t *testing.T) {
	ts := testserver.New(t)
	a := openTestApp(t, testConfig(t, ts))

	_, err := runCmd(t, a, "history")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	require.Equal(t, router.PathLogin, a.router.Current().Path)
	require.Empty(t, ts.Requests())
}

func TestRun_UploadRejectsNonCSV(t *testing.T) {
	ts := testserver.New(t)
	a := openTestApp(t, testConfig(t, ts))

	_, err := runCmd(t, a, "upload", "readings.xlsx")
	require.ErrorIs(t, err, dataset.ErrNotCSV)
	require.Empty(t, ts.Requests())
}

func TestRun_TokenSurvivesRestart(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("alice", "alice@example.com", "secret123")
	cfg := testConfig(t, ts)

	first, err := openApp(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	_, err = runCmd(t, first, "login", "-user", "alice@example.com", "-password", "secret123")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := openTestApp(t, cfg)
	require.True(t, second.sessions.IsAuthenticated())
	out, err := runCmd(t, second, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in")
}

func TestRun_RevokedTokenEndsSession(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("alice", "alice@example.com", "secret123")
	a := openTestApp(t, testConfig(t, ts))

	_, err := runCmd(t, a, "login", "-user", "alice", "-password", "secret123")
	require.NoError(t, err)

	ts.RevokeTokens()
	_, err = runCmd(t, a, "history")
	require.ErrorIs(t, err, transport.ErrUnauthorized)
	require.False(t, a.sessions.IsAuthenticated())
	require.Equal(t, router.PathLogin, a.router.Current().Path)
	require.Contains(t, describe(err), "chemviz login")
}

func TestRun_LoginWrongPasswordShowsBackendMessage(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("alice", "alice@example.com", "secret123")
	a := openTestApp(t, testConfig(t, ts))

	_, err := runCmd(t, a, "login", "-user", "alice", "-password", "wrong")
	require.ErrorIs(t, err, transport.ErrUnauthorized)
	require.Equal(t, "Invalid credentials.", describe(err))
	require.False(t, a.sessions.IsAuthenticated())
}

func TestRun_UnknownCommand(t *testing.T) {
	ts := testserver.New(t)
	a := openTestApp(t, testConfig(t, ts))

	_, err := runCmd(t, a, "frobnicate")
	require.ErrorIs(t, err, errUsage)
}

func TestPrintSummary_TypesSorted(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, &dataset.Summary{
		TotalEquipment:   3,
		TypeDistribution: map[string]int{"Valve": 1, "Compressor": 1, "Pump": 1},
	})

	text := out.String()
	compressor := strings.Index(text, "Compressor")
	pump := strings.Index(text, "Pump")
	valve := strings.Index(text, "Valve")
	require.True(t, compressor >= 0 && compressor < pump && pump < valve, text)
}

func TestDescribe_FieldErrors(t *testing.T) {
	err := transport.ParseErrorBody(400, []byte(`{"email":["A user with this email already exists."],"password":["Too short."]}`))
	msg := describe(err)
	require.True(t, strings.HasPrefix(msg, "A user with this email already exists."))
	require.Contains(t, msg, "password: Too short.")

	require.Equal(t, "boom", describe(errors.New("boom")))
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("anything"))
}

func TestLogFileWriter_KeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chemviz.log")
	w, err := newLogFileWriter(path)
	require.NoError(t, err)
	w.maxSize = 16
	w.keepSize = 8

	_, err = w.Write([]byte("0123456789abcdefXYZ"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "bcdefXYZ", string(data))
}
