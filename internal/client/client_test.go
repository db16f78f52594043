package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newClient(t *testing.T, h http.HandlerFunc) (*Client, *recordingSleeper) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sl := &recordingSleeper{}
	c, err := New(Options{BaseURL: srv.URL + "/", Sleep: sl.Sleep})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, sl
}

func TestGeneratePlanSendsProfileAndPrompt(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/care-plan" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"medicalHistory":"UTI"`) || !strings.Contains(string(body), `"prompt":"sys"`) {
			t.Errorf("body=%s", body)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Errorf("missing request id")
		}
		_, _ = w.Write([]byte(`{"content":"The plan."}`))
	})
	out, err := c.GeneratePlan(context.Background(), domain.ClientProfile{Name: "B", Age: "78", MedicalHistory: "UTI", CurrentConcerns: "x"}, "sys")
	if err != nil || out != "The plan." {
		t.Fatalf("out=%q err=%v", out, err)
	}
}

func TestThrottledRetriesExactlyOnce(t *testing.T) {
	var calls int32
	c, sl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests, please try again later."}`))
			return
		}
		_, _ = w.Write([]byte(`{"content":"enhanced"}`))
	})
	out, err := c.EnhancePlan(context.Background(), "plan", "")
	if err != nil || out != "enhanced" {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls=%d", atomic.LoadInt32(&calls))
	}
	if len(sl.waits) != 1 || sl.waits[0] < time.Second {
		t.Fatalf("waits=%v", sl.waits)
	}
}

func TestSecondThrottleIsSurfaced(t *testing.T) {
	var calls int32
	c, sl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Too many requests, please try again later."}`))
	})
	_, err := c.ScorePlan(context.Background(), "plan", "")
	if !errors.Is(err, apierr.ErrThrottled) {
		t.Fatalf("expected throttled, got %v", err)
	}
	if err.Error() != "Too many requests, please try again later." {
		t.Fatalf("message=%q", err.Error())
	}
	if atomic.LoadInt32(&calls) != 2 || len(sl.waits) != 1 {
		t.Fatalf("calls=%d waits=%v", atomic.LoadInt32(&calls), sl.waits)
	}
}

func TestMissingRetryAfterDefaultsToOneSecond(t *testing.T) {
	var calls int32
	c, sl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"content":"ok"}`))
	})
	if _, err := c.EnhancePlan(context.Background(), "plan", ""); err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(sl.waits) != 1 || sl.waits[0] != time.Second {
		t.Fatalf("waits=%v", sl.waits)
	}
}

func TestErrorBodiesMapToKinds(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   apierr.Kind
		msg    string
	}{
		{http.StatusBadRequest, `{"errors":[{"type":"field","msg":"carePlan is required","path":"carePlan","location":"body"}]}`, apierr.KindValidation, "Invalid request data"},
		{http.StatusBadGateway, `{"error":{"message":"invalid upstream response","code":"upstream_malformed"}}`, apierr.KindMalformed, "invalid upstream response"},
		{http.StatusGatewayTimeout, `{"error":{"message":"upstream request timed out","code":"upstream_timeout"}}`, apierr.KindTimeout, "upstream request timed out"},
		{http.StatusInternalServerError, `{"error":{"message":"Internal server error","code":"internal_error"}}`, apierr.KindUnhandled, "Internal server error"},
		{http.StatusBadGateway, `<html>bad gateway</html>`, apierr.KindUnhandled, "Internal server error"},
	}
	for _, tc := range cases {
		c, sl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		})
		_, err := c.EnhancePlan(context.Background(), "plan", "")
		e := apierr.From(err)
		if e.Kind != tc.kind || e.Error() != tc.msg {
			t.Fatalf("status=%d kind=%s msg=%q", tc.status, e.Kind, e.Error())
		}
		if tc.kind == apierr.KindValidation && (len(e.Fields) != 1 || e.Fields[0].Path != "carePlan") {
			t.Fatalf("fields=%+v", e.Fields)
		}
		if len(sl.waits) != 0 {
			t.Fatalf("non-throttle error was retried")
		}
	}
}

func TestBadScorecardIsMalformed(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"specificity":4}`))
	})
	_, err := c.ScorePlan(context.Background(), "plan", "")
	if !errors.Is(err, apierr.ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestResearchEscapesQuery(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Query().Get("q") != "UTI & falls" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.String())
		}
		_, _ = w.Write([]byte(`{"pubmedArticles":[{"id":"1","title":"t"}],"clinicalTrials":[]}`))
	})
	f, err := c.Research(context.Background(), "UTI & falls")
	if err != nil || len(f.PubmedArticles) != 1 {
		t.Fatalf("f=%+v err=%v", f, err)
	}
}
