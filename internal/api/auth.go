package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rpggio/chemviz/internal/transport"
)

// Credentials identify a user by email or username.
type Credentials struct {
	Identifier string
	Password   string
}

// Profile is the signup form.
type Profile struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// User is the account echoed back by signup.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type authResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// LoginPayload builds the login body. Identifiers containing "@" are sent as
// email, anything else as username.
func LoginPayload(creds Credentials) map[string]string {
	identifier := strings.TrimSpace(creds.Identifier)
	key := "username"
	if strings.Contains(identifier, "@") {
		key = "email"
	}
	return map[string]string{key: identifier, "password": creds.Password}
}

// Login exchanges credentials for a session token and stores it.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	if strings.TrimSpace(creds.Identifier) == "" || creds.Password == "" {
		return "", ErrMissingCredentials
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/login/", LoginPayload(creds))
	if err != nil {
		return "", err
	}

	var out authResponse
	if err := c.do(req, &out); err != nil {
		return "", authError("login", err)
	}
	return c.adoptToken(ctx, out.Token)
}

// Signup creates an account, then stores the issued token.
func (c *Client) Signup(ctx context.Context, profile Profile) (string, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Email = strings.TrimSpace(profile.Email)
	if profile.Name == "" || profile.Email == "" || profile.Password == "" || profile.ConfirmPassword == "" {
		return "", ErrMissingCredentials
	}
	if profile.Password != profile.ConfirmPassword {
		return "", ErrPasswordMismatch
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/signup/", profile)
	if err != nil {
		return "", err
	}

	var out authResponse
	if err := c.do(req, &out); err != nil {
		return "", authError("signup", err)
	}
	return c.adoptToken(ctx, out.Token)
}

// authError keeps the backend error and, for a 401, adds ErrInvalidCredentials.
func authError(op string, err error) error {
	if errors.Is(err, transport.ErrUnauthorized) {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidCredentials, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) adoptToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoToken
	}
	if c.sessions != nil {
		if err := c.sessions.SetToken(ctx, token); err != nil {
			return "", err
		}
	}
	return token, nil
}
