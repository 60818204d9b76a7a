package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ClientOptions configures NewHTTPClient.
type ClientOptions struct {
	Timeout time.Duration
	// RequestsPerSecond paces requests; zero disables pacing.
	RequestsPerSecond float64
	Tokens            TokenSource
	OnUnauthorized    UnauthorizedFunc
	Base              http.RoundTripper
	Logger            *slog.Logger
}

// NewHTTPClient builds an *http.Client whose transport is an AuthTransport.
func NewHTTPClient(opts ClientOptions) *http.Client {
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &AuthTransport{
			Base:           opts.Base,
			Tokens:         opts.Tokens,
			Limiter:        limiter,
			OnUnauthorized: opts.OnUnauthorized,
			Logger:         opts.Logger,
		},
	}
}

// WriteJSON writes payload as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteDetail writes a {"detail": message} error body.
func WriteDetail(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"detail": message})
}
