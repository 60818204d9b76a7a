package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/chemviz/internal/api"
	"github.com/rpggio/chemviz/internal/domain/dashboard"
	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/rpggio/chemviz/internal/domain/session"
	"github.com/rpggio/chemviz/internal/transport"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps client errors to MCP error codes. Unknown errors map to
// INTERNAL with the error text as message.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *transport.APIError
	hasAPIErr := errors.As(err, &apiErr)
	message := transport.UserMessage(err, err.Error())

	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return &APIError{Code: "NOT_AUTHENTICATED", Message: "sign in required", RecoveryHint: "Call login first"}
	case errors.Is(err, api.ErrInvalidCredentials):
		return &APIError{Code: "INVALID_CREDENTIALS", Message: message, RecoveryHint: "Check the identifier and password"}
	case errors.Is(err, transport.ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: message, RecoveryHint: "Session ended; call login again"}
	case errors.Is(err, dataset.ErrNotCSV), errors.Is(err, dataset.ErrNoFile):
		return &APIError{Code: "INVALID_FILE", Message: err.Error(), RecoveryHint: "Upload a file whose name ends in .csv"}
	case errors.Is(err, api.ErrPasswordMismatch):
		return &APIError{Code: "INVALID_INPUT", Message: "passwords do not match", RecoveryHint: "Repeat the same password in confirm_password"}
	case errors.Is(err, dashboard.ErrNoDataset):
		return &APIError{Code: "NO_DATASET", Message: "no dataset uploaded yet", RecoveryHint: "Call upload_csv first"}
	case errors.Is(err, transport.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: message, RecoveryHint: "Check the dataset id with get_history"}
	case errors.Is(err, transport.ErrInvalidInput), errors.Is(err, dashboard.ErrInvalidLimit):
		out := &APIError{Code: "INVALID_INPUT", Message: message}
		if hasAPIErr && len(apiErr.Fields) > 0 {
			out.Details = apiErr.Fields
		}
		return out
	case errors.Is(err, transport.ErrTransport):
		return &APIError{Code: "BACKEND_UNREACHABLE", Message: message, RecoveryHint: "Check that the backend is running at the configured base url"}
	case hasAPIErr:
		return &APIError{Code: "BACKEND_ERROR", Message: message, Details: map[string]int{"status_code": apiErr.StatusCode}}
	default:
		return &APIError{Code: "INTERNAL", Message: err.Error()}
	}
}
