package httpx

import (
	"net/http"
	"testing"
	"time"
)

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"missing", "", time.Second},
		{"seconds", "3", 3 * time.Second},
		{"garbage", "soon", time.Second},
		{"date", now.Add(5 * time.Second).Format(http.TimeFormat), 5 * time.Second},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"capped", "600", time.Minute},
	}
	for _, tc := range cases {
		h := http.Header{}
		if tc.header != "" {
			h.Set("Retry-After", tc.header)
		}
		if got := RetryAfter(h, now, time.Second, time.Minute); got != tc.want {
			t.Fatalf("%s: got=%s want=%s", tc.name, got, tc.want)
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	if got := RetryAfterSeconds(1500 * time.Millisecond); got != "2" {
		t.Fatalf("got=%s", got)
	}
	if got := RetryAfterSeconds(0); got != "0" {
		t.Fatalf("got=%s", got)
	}
}
