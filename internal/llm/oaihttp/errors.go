package oaihttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/careplan-backend/internal/platform/apierr"
)

// StatusError is a non-2xx answer from the chat completions endpoint.
type StatusError struct {
	StatusCode int
	// Message and Type come from an OpenAI style {"error":{...}} body when present.
	Message    string
	Type       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat completions: status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat completions: status %d: %s", e.StatusCode, e.Message)
}

func newStatusError(status int, raw []byte, retryAfter time.Duration) *StatusError {
	e := &StatusError{StatusCode: status, RetryAfter: retryAfter}
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil || len(body.Error) == 0 {
		e.Message = truncate(strings.TrimSpace(string(raw)), 200)
		return e
	}
	var detail struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if json.Unmarshal(body.Error, &detail) == nil {
		e.Message, e.Type = detail.Message, detail.Type
		return e
	}
	var s string
	if json.Unmarshal(body.Error, &s) == nil {
		e.Message = s
	}
	return e
}

// classify maps throttling and upstream timeouts onto gateway kinds. Anything else stays as is.
func (e *StatusError) classify() error {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return apierr.Throttled("", e.RetryAfter, e)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return apierr.Timeout(e)
	default:
		return e
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
