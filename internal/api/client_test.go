package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpggio/chemviz/internal/config"
	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/rpggio/chemviz/internal/domain/session"
	"github.com/rpggio/chemviz/internal/transport"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Manager) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	mgr := session.NewManager(nil, nil)
	client, err := New(config.APIConfig{BaseURL: server.URL + "/api", Timeout: 5 * time.Second}, mgr, nil)
	require.NoError(t, err)
	return client, mgr
}

func TestNewClient_InvalidBase(t *testing.T) {
	_, err := NewClient("ftp://example.com", nil, nil, nil)
	require.Error(t, err)
	_, err = NewClient("://", nil, nil, nil)
	require.Error(t, err)
}

func TestLogin_UsernameStoresToken(t *testing.T) {
	var payload map[string]string
	client, mgr := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/login/", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		transport.WriteJSON(w, http.StatusOK, map[string]string{"token": "abc123"})
	}))

	token, err := client.Login(context.Background(), Credentials{Identifier: "alice", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "abc123", token)
	require.Equal(t, map[string]string{"username": "alice", "password": "secret"}, payload)
	require.Equal(t, "abc123", mgr.Token())
	require.True(t, mgr.IsAuthenticated())
}

func TestLoginPayload_Email(t *testing.T) {
	payload := LoginPayload(Credentials{Identifier: "  alice@example.com ", Password: "pw"})
	require.Equal(t, map[string]string{"email": "alice@example.com", "password": "pw"}, payload)
}

func TestLogin_MissingFieldsNoRequest(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := client.Login(context.Background(), Credentials{Identifier: " ", Password: "secret"})
	require.ErrorIs(t, err, ErrMissingCredentials)
	require.ErrorIs(t, err, transport.ErrInvalidInput)
	_, err = client.Login(context.Background(), Credentials{Identifier: "alice"})
	require.ErrorIs(t, err, ErrMissingCredentials)
	require.Equal(t, int32(0), calls.Load())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	client, mgr := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteDetail(w, http.StatusUnauthorized, "Invalid credentials.")
	}))

	var events []session.EventType
	mgr.Subscribe(func(e session.Event) { events = append(events, e.Type) })

	_, err := client.Login(context.Background(), Credentials{Identifier: "alice", Password: "wrong"})
	require.ErrorIs(t, err, transport.ErrUnauthorized)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, "Invalid credentials.", transport.UserMessage(err, "Login failed"))
	require.False(t, mgr.IsAuthenticated())
	require.Equal(t, []session.EventType{session.EventInvalidated}, events)
}

func TestLogin_EmptyTokenKeepsSessionAnonymous(t *testing.T) {
	client, mgr := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteJSON(w, http.StatusOK, map[string]string{"token": "  "})
	}))

	_, err := client.Login(context.Background(), Credentials{Identifier: "alice", Password: "secret"})
	require.ErrorIs(t, err, ErrNoToken)
	require.False(t, mgr.IsAuthenticated())
}

func TestSignup(t *testing.T) {
	var payload map[string]string
	client, mgr := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/signup/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		transport.WriteJSON(w, http.StatusCreated, map[string]any{
			"token": "tok-9",
			"user":  map[string]any{"id": 1, "name": "Alice", "email": "alice@example.com", "username": "alice"},
		})
	}))

	token, err := client.Signup(context.Background(), Profile{
		Name: "Alice", Email: "alice@example.com", Password: "pw", ConfirmPassword: "pw",
	})
	require.NoError(t, err)
	require.Equal(t, "tok-9", token)
	require.Equal(t, "pw", payload["confirm_password"])
	require.Equal(t, "Alice", payload["name"])
	require.Equal(t, "tok-9", mgr.Token())
}

func TestSignup_ClientSideValidation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
	}))

	_, err := client.Signup(context.Background(), Profile{Name: "A", Email: "a@x", Password: "one", ConfirmPassword: "two"})
	require.ErrorIs(t, err, ErrPasswordMismatch)
	_, err = client.Signup(context.Background(), Profile{Email: "a@x", Password: "one", ConfirmPassword: "one"})
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSignup_FieldErrors(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteJSON(w, http.StatusBadRequest, map[string][]string{
			"password": {"This password is too common."},
			"email":    {"A user with this email already exists."},
		})
	}))

	_, err := client.Signup(context.Background(), Profile{Name: "A", Email: "a@x", Password: "pw", ConfirmPassword: "pw"})
	require.ErrorIs(t, err, transport.ErrInvalidInput)
	require.Equal(t, "A user with this email already exists.", transport.UserMessage(err, "Signup failed"))
}

func TestUpload_RejectsNonCSVWithoutRequest(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := client.Upload(context.Background(), "readings.xlsx", strings.NewReader("x"))
	require.ErrorIs(t, err, dataset.ErrNotCSV)
	require.Equal(t, int32(0), calls.Load())
}

func TestUpload_Multipart(t *testing.T) {
	client, mgr := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/upload/", r.URL.Path)
		require.Equal(t, "Token abc123", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "readings.csv", header.Filename)
		require.Contains(t, string(content), "Pump-1")

		transport.WriteJSON(w, http.StatusCreated, map[string]any{
			"dataset_id": 42,
			"summary":    map[string]any{"total_equipment": 1, "equipment_type_distribution": map[string]int{"Pump": 1}},
		})
	}))
	require.NoError(t, mgr.SetToken(context.Background(), "abc123"))

	csv := "Equipment Name,Type,Flowrate,Pressure,Temperature\nPump-1,Pump,10,5,100\n"
	result, err := client.Upload(context.Background(), "/data/readings.csv", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, int64(42), result.DatasetID)
	require.Equal(t, 1, result.Summary.TotalEquipment)
}

func TestSummaryAndRows_LimitQuery(t *testing.T) {
	var queries []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Path+"?"+r.URL.RawQuery)
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/summary/"):
			transport.WriteJSON(w, http.StatusOK, map[string]any{
				"dataset_id": 7,
				"summary":    map[string]any{"total_equipment": 10, "max_temperature": 180.5},
			})
		case strings.HasPrefix(r.URL.Path, "/api/csv-data/"):
			transport.WriteJSON(w, http.StatusOK, map[string]any{
				"dataset_id":  7,
				"total_count": 30,
				"data":        []map[string]any{{"equipment_name": "P1", "type": "Pump", "flowrate": 1, "pressure": 2, "temperature": 3}},
			})
		}
	}))

	ctx := context.Background()
	summary, err := client.Summary(ctx, 7, 10)
	require.NoError(t, err)
	require.Equal(t, 10, summary.TotalEquipment)
	require.NotNil(t, summary.MaxTemperature)

	page, err := client.Rows(ctx, 7, 0)
	require.NoError(t, err)
	require.Equal(t, 30, page.TotalCount)
	require.Len(t, page.Rows, 1)
	require.Equal(t, "P1", page.Rows[0].EquipmentName)

	require.Equal(t, []string{"/api/summary/7/?limit=10", "/api/csv-data/7/?"}, queries)

	_, err = client.Summary(ctx, 7, -1)
	require.ErrorIs(t, err, ErrInvalidLimit)
	_, err = client.Rows(ctx, 0, 5)
	require.ErrorIs(t, err, ErrInvalidDatasetID)
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	client, mgr := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteDetail(w, http.StatusUnauthorized, "Invalid token.")
	}))
	require.NoError(t, mgr.SetToken(context.Background(), "expired"))

	var reason string
	mgr.Subscribe(func(e session.Event) {
		if e.Type == session.EventInvalidated {
			reason = e.Reason
		}
	})

	_, err := client.History(context.Background())
	require.ErrorIs(t, err, transport.ErrUnauthorized)
	require.False(t, mgr.IsAuthenticated())
	require.Equal(t, "401 from /api/history/", reason)
}

func TestNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteDetail(w, http.StatusNotFound, "Not found.")
	}))

	_, err := client.Summary(context.Background(), 99, 0)
	require.ErrorIs(t, err, transport.ErrNotFound)
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client, err := New(config.APIConfig{BaseURL: base + "/api", Timeout: time.Second}, session.NewManager(nil, nil), nil)
	require.NoError(t, err)

	_, err = client.History(context.Background())
	require.ErrorIs(t, err, transport.ErrTransport)
}

func TestHistory_EmptyList(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))

	entries, err := client.History(context.Background())
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}

func TestReportFilename(t *testing.T) {
	require.Equal(t, "Report 3.pdf", ReportFilename(`attachment; filename="Report 3.pdf"`, 9))
	require.Equal(t, "Report 9.pdf", ReportFilename("", 9))
	require.Equal(t, "Report 9.pdf", ReportFilename("attachment; filename=", 9))
	require.Equal(t, "Report 9.pdf", ReportFilename(`attachment; filename="../"`, 9))
	require.Equal(t, "evil.pdf", ReportFilename(`attachment; filename="../../etc/evil.pdf"`, 9))
	require.Equal(t, "summary.pdf", ReportFilename(`attachment; filename*=UTF-8''summary.pdf`, 9))
}

func TestDownloadReport(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/report/5/", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="Report 2.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))

	dir := filepath.Join(t.TempDir(), "downloads")
	path, err := client.DownloadReport(context.Background(), 5, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Report 2.pdf"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestDownloadReport_KeepsExistingFile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="Report 1.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4 " + r.URL.Path))
	}))

	dir := t.TempDir()
	first, err := client.DownloadReport(context.Background(), 1, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Report 1.pdf"), first)

	second, err := client.DownloadReport(context.Background(), 2, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Report 1 (1).pdf"), second)

	content, err := os.ReadFile(first)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 /api/report/1/", string(content))

	content, err = os.ReadFile(second)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 /api/report/2/", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestDownloadReport_ErrorWritesNothing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteDetail(w, http.StatusNotFound, "Not found.")
	}))

	dir := t.TempDir()
	_, err := client.DownloadReport(context.Background(), 5, dir)
	require.ErrorIs(t, err, transport.ErrNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
