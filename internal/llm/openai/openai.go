package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/careplan-backend/internal/config"
	"github.com/yungbote/careplan-backend/internal/llm"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/platform/httpx"
)

// Engine talks to the OpenAI chat completions API through the go-openai SDK.
type Engine struct {
	client *goopenai.Client
}

func New(cfg config.EngineConfig) (*Engine, error) {
	return NewWithHTTPClient(cfg, nil)
}

// NewWithHTTPClient lets tests point the SDK at a fake transport.
func NewWithHTTPClient(cfg config.EngineConfig, httpClient *http.Client) (*Engine, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("openai: api key required")
	}
	oc := goopenai.DefaultConfig(key)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		oc.BaseURL = base
	}

	var base http.RoundTripper
	if httpClient != nil && httpClient.Transport != nil {
		base = httpClient.Transport
	} else {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
	oc.HTTPClient = &http.Client{Transport: retryAfterTransport{base: base}}

	return &Engine{client: goopenai.NewClientWithConfig(oc)}, nil
}

func (e *Engine) Complete(ctx context.Context, req llm.Request) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if len(msgs) == 0 {
		return "", errors.New("no messages")
	}

	creq := goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		creq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	hint := &retryAfterHint{}
	resp, err := e.client.CreateChatCompletion(context.WithValue(ctx, retryAfterKey{}, hint), creq)
	if err != nil {
		return "", classify(err, hint)
	}

	var text string
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			text = c.Message.Content
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", apierr.Malformed(errors.New("empty upstream completion"))
	}
	if req.JSON {
		text = llm.CleanJSON(text)
	}
	return text, nil
}

func classify(err error, hint *retryAfterHint) error {
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		return apierr.Throttled("", hint.get(), err)
	}
	if status != 0 {
		return fmt.Errorf("openai: status %d: %w", status, err)
	}
	return err
}

// The SDK does not surface response headers on errors, so the transport records
// Retry-After of a 429 into a per-call hint carried on the request context.
type retryAfterKey struct{}

type retryAfterHint struct {
	d   time.Duration
	set bool
}

func (h *retryAfterHint) get() time.Duration {
	if h == nil || !h.set {
		return time.Second
	}
	return h.d
}

type retryAfterTransport struct {
	base http.RoundTripper
}

func (t retryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return resp, err
	}
	if hint, ok := req.Context().Value(retryAfterKey{}).(*retryAfterHint); ok && hint != nil {
		hint.d = httpx.RetryAfter(resp.Header, time.Now(), time.Second, time.Minute)
		hint.set = true
	}
	return resp, err
}
