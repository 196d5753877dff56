package newsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrEmptyKeyword is returned before any request when the search keyword is blank.
	ErrEmptyKeyword = errors.New("keyword is empty")
	// ErrNotFound matches APIErrors with status 404.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable matches APIErrors with status 503.
	ErrUnavailable = errors.New("backend unavailable")
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// Is lets errors.Is match the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

// Message returns the backend detail, or fallback when the response carried none.
func (e *APIError) Message(fallback string) string {
	if e == nil || strings.TrimSpace(e.Detail) == "" {
		return fallback
	}
	return e.Detail
}

// Message returns the user-facing text of err: the backend detail when err wraps an
// APIError, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message(fallback)
	}
	return fallback
}

// newAPIError extracts the FastAPI "detail" field, falling back to a body snippet.
func newAPIError(status int, body []byte) *APIError {
	var we wireError
	if err := json.Unmarshal(body, &we); err == nil && we.Detail != nil {
		if d := detailText(we.Detail); d != "" {
			return &APIError{StatusCode: status, Detail: d}
		}
	}
	snippet := responseSnippet(body)
	if snippet == "<empty>" {
		snippet = ""
	}
	return &APIError{StatusCode: status, Detail: snippet}
}

// detailText flattens FastAPI details: plain strings, or validation error lists whose
// entries carry a "msg" field.
func detailText(v any) string {
	switch d := v.(type) {
	case string:
		return strings.TrimSpace(d)
	case []any:
		msgs := make([]string, 0, len(d))
		for _, item := range d {
			if m, ok := item.(map[string]any); ok {
				if msg, ok := m["msg"].(string); ok && msg != "" {
					msgs = append(msgs, msg)
				}
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// responseSnippet returns a truncated snippet of the response body for error messages.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
