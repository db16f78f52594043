package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string
	Content string
}

// Request is one chat completion with the fixed parameters of a gateway operation.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	// JSON asks the upstream for a JSON object response.
	JSON bool
}

// Engine performs a single upstream completion; it never retries.
// A 429 is returned as *apierr.Error of kind upstream_throttled and empty content
// as upstream_malformed.
type Engine interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CleanJSON strips a surrounding ``` fence (with optional language tag) from model output.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func ValidateJSON(s string) error {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
