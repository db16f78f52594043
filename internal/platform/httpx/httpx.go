package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryAfter reads a Retry-After header given in delay-seconds or as an HTTP date.
// It returns fallback when the header is absent or unparseable, capped at max when max > 0.
func RetryAfter(h http.Header, now time.Time, fallback, max time.Duration) time.Duration {
	d := fallback
	if h != nil {
		if ra := strings.TrimSpace(h.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
				d = time.Duration(secs) * time.Second
			} else if when, err := http.ParseTime(ra); err == nil {
				if until := when.Sub(now); until > 0 {
					d = until
				} else {
					d = 0
				}
			}
		}
	}
	if max > 0 && d > max {
		d = max
	}
	return d
}

// RetryAfterSeconds formats d for a Retry-After header, rounding up to whole seconds.
func RetryAfterSeconds(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return strconv.FormatInt(secs, 10)
}
