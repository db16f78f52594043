// Package client calls a care plan gateway over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/careplan-backend/internal/platform/httpx"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
	"github.com/yungbote/careplan-backend/internal/research"
)

const (
	defaultRetryAfter = time.Second
	maxRetryAfter     = time.Minute
	maxResponseBytes  = 4 << 20
)

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Log        *logger.Logger
	Sleep      Sleeper
	Now        func() time.Time
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
	sleep      Sleeper
	now        func() time.Time
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("client: base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client: bad base url: %w", err)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	c := &Client{
		baseURL:    base,
		httpClient: hc,
		log:        opts.Log,
		sleep:      opts.Sleep,
		now:        opts.Now,
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	if c.sleep == nil {
		c.sleep = sleepCtx
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

type carePlanBody struct {
	ClientData domain.ClientProfile `json:"clientData"`
	Prompt     string               `json:"prompt"`
}

type planBody struct {
	CarePlan string `json:"carePlan"`
	Prompt   string `json:"prompt,omitempty"`
}

type contentBody struct {
	Content string `json:"content"`
}

func (c *Client) GeneratePlan(ctx context.Context, profile domain.ClientProfile, systemPrompt string) (string, error) {
	var out contentBody
	if err := c.post(ctx, "/api/ai/care-plan", carePlanBody{ClientData: profile, Prompt: systemPrompt}, func(raw []byte) error {
		return decodeContent(raw, &out)
	}); err != nil {
		return "", err
	}
	return out.Content, nil
}

// ScorePlan asks the gateway to grade plan. An empty prompt keeps the gateway's default.
func (c *Client) ScorePlan(ctx context.Context, plan, prompt string) (domain.QualityScorecard, error) {
	var card domain.QualityScorecard
	err := c.post(ctx, "/api/ai/assess-quality", planBody{CarePlan: plan, Prompt: prompt}, func(raw []byte) error {
		parsed, err := domain.ParseScorecard(raw)
		if err != nil {
			return err
		}
		card = parsed
		return nil
	})
	return card, err
}

func (c *Client) EnhancePlan(ctx context.Context, plan, prompt string) (string, error) {
	var out contentBody
	if err := c.post(ctx, "/api/ai/enhance-research", planBody{CarePlan: plan, Prompt: prompt}, func(raw []byte) error {
		return decodeContent(raw, &out)
	}); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) Research(ctx context.Context, conditions string) (research.Findings, error) {
	var f research.Findings
	err := c.do(ctx, http.MethodGet, "/api/research?q="+url.QueryEscape(conditions), nil, func(raw []byte) error {
		return json.Unmarshal(raw, &f)
	})
	return f, err
}

func decodeContent(raw []byte, out *contentBody) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return err
	}
	if strings.TrimSpace(out.Content) == "" {
		return errors.New("empty content")
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, decode func([]byte) error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, payload, decode)
}

// do sends one request and, on 429, exactly one retry after the advertised delay.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, decode func([]byte) error) error {
	reqID := ctxutil.RequestID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	for attempt := 0; ; attempt++ {
		status, header, raw, err := c.send(ctx, method, path, payload, reqID)
		if err != nil {
			return err
		}
		if status == http.StatusTooManyRequests && attempt == 0 {
			wait := httpx.RetryAfter(header, c.now(), defaultRetryAfter, maxRetryAfter)
			c.log.Info("gateway throttled; retrying once", "path", path, "retry_after_ms", wait.Milliseconds(), "request_id", reqID)
			if err := c.sleep(ctx, wait); err != nil {
				return apierr.Timeout(err)
			}
			continue
		}
		if status < 200 || status >= 300 {
			return decodeError(status, header, raw, c.now())
		}
		if err := decode(raw); err != nil {
			return apierr.Malformed(err)
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, reqID string) (int, http.Header, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return 0, nil, nil, apierr.Timeout(err)
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return 0, nil, nil, apierr.Timeout(err)
		}
		return 0, nil, nil, apierr.New(apierr.KindUnhandled, "could not reach the care plan service", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, nil, apierr.Malformed(err)
	}
	return resp.StatusCode, resp.Header, raw, nil
}

type errorBody struct {
	Errors []apierr.FieldError `json:"errors"`
	Error  json.RawMessage     `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func decodeError(status int, header http.Header, raw []byte, now time.Time) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	if status == http.StatusBadRequest && len(eb.Errors) > 0 {
		return apierr.Validation(eb.Errors)
	}
	if status == http.StatusTooManyRequests {
		var msg string
		_ = json.Unmarshal(eb.Error, &msg)
		return apierr.Throttled(msg, httpx.RetryAfter(header, now, 0, maxRetryAfter), fmt.Errorf("status %d", status))
	}

	var d errorDetail
	_ = json.Unmarshal(eb.Error, &d)
	cause := fmt.Errorf("status %d", status)
	switch kind := apierr.Kind(d.Code); kind {
	case apierr.KindValidation, apierr.KindMalformed, apierr.KindTimeout:
		return apierr.New(kind, d.Message, cause)
	case apierr.KindThrottled:
		return apierr.Throttled(d.Message, 0, cause)
	}
	if status >= 400 && status < 500 {
		msg := d.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return apierr.New(apierr.KindValidation, msg, cause)
	}
	return apierr.Unhandled(cause)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
