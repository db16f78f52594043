package logger

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/careplan-backend/internal/platform/ctxutil"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"api_key", "sk-abcdefghijklmnopqrstuvwxyz",
		"client_ip", "10.0.0.1",
		"medical_history", "Recently hospitalized",
		"operation", "care-plan",
		"error", "sk-abcdefghijklmnopqrstuvwxyz",
	})
	if len(out) != 10 {
		t.Fatalf("len=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key=%v", out[1])
	}
	if s, _ := out[3].(string); !strings.HasPrefix(s, "hash:") {
		t.Fatalf("client_ip=%v", out[3])
	}
	if out[5] != "[21 chars]" {
		t.Fatalf("medical_history=%v", out[5])
	}
	if out[7] != "care-plan" {
		t.Fatalf("operation=%v", out[7])
	}
	if out[9] != "[REDACTED]" {
		t.Fatalf("secret-looking value=%v", out[9])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"operation", "quality", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("out=%v", out)
	}
}

func TestSanitizeNestedMap(t *testing.T) {
	out := sanitizeValue("payload", map[string]interface{}{
		"Authorization": "Bearer abc",
		"care_plan":     "Drink water.",
		"attempt":       2,
	})
	m, ok := out.(map[string]interface{})
	if !ok {
		t.Fatalf("out=%T", out)
	}
	if m["Authorization"] != "[REDACTED]" || m["care_plan"] != "[12 chars]" || m["attempt"] != 2 {
		t.Fatalf("m=%v", m)
	}
}

func TestCtxAddsRequestAndTraceIDs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "t-1", RequestID: "r-1"})
	l.Ctx(ctx).Info("upstream call failed", "operation", "quality")
	l.Ctx(context.Background()).Info("no ids")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r-1" || fields["trace_id"] != "t-1" || fields["operation"] != "quality" {
		t.Fatalf("fields=%v", fields)
	}
	if _, ok := entries[1].ContextMap()["request_id"]; ok {
		t.Fatalf("unexpected request_id without trace data")
	}
}
