package mcp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rpggio/chemviz/internal/api"
	"github.com/rpggio/chemviz/internal/domain/dashboard"
	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/rpggio/chemviz/internal/domain/session"
	"github.com/rpggio/chemviz/internal/transport"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"not authenticated", session.ErrNotAuthenticated, "NOT_AUTHENTICATED"},
		{"unauthorized", transport.ParseErrorBody(401, []byte(`{"detail":"Invalid token."}`)), "UNAUTHORIZED"},
		{"invalid credentials", fmt.Errorf("login: %w: %w", api.ErrInvalidCredentials, transport.ParseErrorBody(401, []byte(`{"detail":"Invalid credentials."}`))), "INVALID_CREDENTIALS"},
		{"not csv", fmt.Errorf("upload: %w", dataset.ErrNotCSV), "INVALID_FILE"},
		{"password mismatch", api.ErrPasswordMismatch, "INVALID_INPUT"},
		{"no dataset", dashboard.ErrNoDataset, "NO_DATASET"},
		{"not found", transport.ParseErrorBody(404, []byte(`{"detail":"Not found."}`)), "NOT_FOUND"},
		{"bad limit", dashboard.ErrInvalidLimit, "INVALID_INPUT"},
		{"transport", fmt.Errorf("%w: GET /history/: refused", transport.ErrTransport), "BACKEND_UNREACHABLE"},
		{"server error", transport.ParseErrorBody(500, []byte(`{"detail":"boom"}`)), "BACKEND_ERROR"},
		{"other", errors.New("disk full"), "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.code, MapError(tc.err).Code)
		})
	}

	require.Nil(t, MapError(nil))
}

func TestMapError_FieldDetails(t *testing.T) {
	err := transport.ParseErrorBody(400, []byte(`{"email":["A user with this email already exists."]}`))
	mapped := MapError(err)
	require.Equal(t, "INVALID_INPUT", mapped.Code)
	require.Equal(t, "A user with this email already exists.", mapped.Message)
	require.Equal(t, map[string][]string{"email": {"A user with this email already exists."}}, mapped.Details)
}

func TestMapError_TransportMessage(t *testing.T) {
	mapped := MapError(fmt.Errorf("%w: GET /history/: refused", transport.ErrTransport))
	require.Equal(t, "Unable to reach the server. Check your connection and try again.", mapped.Message)
	require.Contains(t, mapped.Error(), "(Check that the backend is running")
}

func TestFormatPayload_Redacts(t *testing.T) {
	out := formatPayload(map[string]any{
		"name":      "login",
		"arguments": map[string]any{"identifier": "alice", "password": "secret123"},
	})
	require.NotContains(t, out, "secret123")
	require.Contains(t, out, `"password":"***"`)
	require.Contains(t, out, "alice")
}
