package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rpggio/chemviz/internal/transport"
)

// TokenSetter receives the token issued by login and signup.
type TokenSetter interface {
	SetToken(ctx context.Context, token string) error
}

// Client is a typed client for the chemviz backend REST API.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	sessions TokenSetter
	logger   *slog.Logger
}

// NewClient constructs a client rooted at base (e.g. http://127.0.0.1:8000/api).
// httpClient should carry a transport.AuthTransport; nil uses a plain client.
func NewClient(base string, httpClient *http.Client, sessions TokenSetter, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse api base url %q: scheme must be http or https", base)
	}
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(transport.ClientOptions{})
	}
	return &Client{
		baseURL:  u,
		http:     httpClient,
		sessions: sessions,
		logger:   logger,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, nil), body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send performs req and returns the response when the status is 2xx. Any
// other status is returned as a *transport.APIError.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", transport.ErrTransport, req.Method, req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := transport.DecodeError(resp)
		if c.logger != nil {
			c.logger.Debug("api error", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "message", apiErr.Message)
		}
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}
