package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWritePrometheus(t *testing.T) {
	m := New()
	m.ObserveAPI("POST", "/api/ai/assess-quality", "200", 1500*time.Millisecond)
	m.ObserveUpstream("quality", "", 2*time.Second)
	m.ObserveUpstream("quality", "upstream_malformed", time.Second)
	m.IncCache("quality", "hit")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`careplan_api_requests_total{method="POST",route="/api/ai/assess-quality",status="200"} 1`,
		`careplan_api_request_duration_seconds_bucket{method="POST",route="/api/ai/assess-quality",status="200",le="2"} 1`,
		`careplan_api_request_duration_seconds_bucket{method="POST",route="/api/ai/assess-quality",status="200",le="1"} 0`,
		`careplan_upstream_requests_total{operation="quality",outcome="ok"} 1`,
		`careplan_upstream_requests_total{operation="quality",outcome="upstream_malformed"} 1`,
		`careplan_cache_lookups_total{operation="quality",result="hit"} 1`,
		"# TYPE careplan_upstream_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if got := m.upstreamCount("quality", "ok"); got != 1 {
		t.Fatalf("upstream count=%v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/healthz", "200", time.Millisecond)
	m.ObserveUpstream("care-plan", "ok", time.Second)
	m.IncCache("care-plan", "miss")
	m.IncRateLimited("/api/ai/care-plan")
	if m.cacheCount("care-plan", "miss") != 0 {
		t.Fatalf("nil metrics should count nothing")
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{`a"b\c`})
	if got != `{route="a\"b\\c"}` {
		t.Fatalf("got %s", got)
	}
}

func TestCacheEntriesGauge(t *testing.T) {
	m := New()
	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if strings.Contains(buf.String(), "careplan_cache_entries") {
		t.Fatalf("unbound gauge should not be exported")
	}

	n := 3
	m.TrackCacheEntries(func() int { return n })
	n = 4
	buf.Reset()
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if !strings.Contains(buf.String(), "careplan_cache_entries 4\n") {
		t.Fatalf("missing gauge in:\n%s", buf.String())
	}
}
