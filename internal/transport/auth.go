package transport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// AuthScheme is the Authorization scheme the backend expects.
	AuthScheme = "Token"
	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"
)

// TokenSource supplies the current session token, or "" when anonymous.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// UnauthorizedFunc is called for every response with status 401.
type UnauthorizedFunc func(req *http.Request)

// AuthTransport decorates every outgoing request with the session token and
// a request id, paces requests when a limiter is set, and reports 401
// responses to OnUnauthorized.
type AuthTransport struct {
	Base           http.RoundTripper
	Tokens         TokenSource
	Limiter        *rate.Limiter
	OnUnauthorized UnauthorizedFunc
	Logger         *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	out := req.Clone(req.Context())
	token := ""
	if t.Tokens != nil {
		token = strings.TrimSpace(t.Tokens.Token())
	}
	if token != "" {
		out.Header.Set("Authorization", AuthScheme+" "+token)
	} else {
		out.Header.Del("Authorization")
	}
	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, uuid.NewString())
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if t.Logger != nil {
		t.Logger.Debug("api response",
			"method", out.Method,
			"path", out.URL.Path,
			"status", resp.StatusCode,
			"request_id", out.Header.Get(RequestIDHeader),
		)
	}

	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.OnUnauthorized(out)
	}
	return resp, nil
}
