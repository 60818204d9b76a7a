package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrTransport indicates the backend could not be reached.
	ErrTransport = errors.New("transport failure")
	// ErrUnauthorized indicates invalid or missing credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the requested resource doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a request rejected as invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// MaxErrorBody bounds how much of an error response body is read.
const MaxErrorBody = 1 << 20

// fieldOrder decides which field message becomes the headline when the body
// has no "detail".
var fieldOrder = []string{"email", "username", "password", "confirm_password", "name", "file", "non_field_errors"}

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int                 `json:"status_code"`
	Message    string              `json:"message"`
	Fields     map[string][]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses to the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalidInput
	}
	return nil
}

// FieldMessage returns the first message for field, if any.
func (e *APIError) FieldMessage(field string) (string, bool) {
	msgs := e.Fields[field]
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[0], true
}

// DecodeError reads a bounded error body from resp and builds an APIError.
func DecodeError(resp *http.Response) *APIError {
	body, _ := ReadAllLimit(resp.Body, MaxErrorBody)
	return ParseErrorBody(resp.StatusCode, body)
}

// ParseErrorBody builds an APIError from a status and raw body. JSON objects
// contribute "detail" (or "error"/"message") as the message and any other
// string or string-list values as field errors.
func ParseErrorBody(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	trimmed := bytes.TrimSpace(body)
	var obj map[string]json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &obj) == nil {
		headline := make(map[string]string)
		for key, raw := range obj {
			msgs := decodeMessages(raw)
			if len(msgs) == 0 {
				continue
			}
			switch key {
			case "detail", "error", "message":
				headline[key] = msgs[0]
			default:
				if apiErr.Fields == nil {
					apiErr.Fields = make(map[string][]string)
				}
				apiErr.Fields[key] = msgs
			}
		}
		for _, key := range []string{"detail", "error", "message"} {
			if msg, ok := headline[key]; ok {
				apiErr.Message = msg
				break
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = firstFieldMessage(apiErr.Fields)
		}
	} else if text := string(trimmed); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
		apiErr.Message = text
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func decodeMessages(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

func firstFieldMessage(fields map[string][]string) string {
	for _, key := range fieldOrder {
		if msgs := fields[key]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if msgs := fields[key]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

// UserMessage renders err as a short notification. Backend messages are
// shown as-is; anything else falls back to fallback (or err itself when
// fallback is empty).
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrTransport) {
		return "Unable to reach the server. Check your connection and try again."
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}

// ReadAllLimit reads at most max bytes from r. Larger bodies are truncated.
func ReadAllLimit(r io.Reader, max int64) ([]byte, error) {
	buf := &bytes.Buffer{}
	if max <= 0 {
		_, err := io.Copy(buf, r)
		return buf.Bytes(), err
	}
	_, err := io.CopyN(buf, r, max)
	if err == io.EOF {
		err = nil
	}
	return buf.Bytes(), err
}
