// Package envutil reads typed values from the environment. Every getter reports
// whether the variable was set to something usable, so callers can overlay
// defaults without clobbering them.
package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// String returns the trimmed value of name.
func String(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

// Raw returns the untrimmed value; for secrets that may legitimately carry spaces.
func Raw(name string) (string, bool) {
	v := os.Getenv(name)
	return v, v != ""
}

func Int(name string) (int, bool) {
	v, ok := String(name)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func Bool(name string) (bool, bool) {
	v, ok := String(name)
	if !ok {
		return false, false
	}
	return ParseBool(v), true
}

// Duration accepts Go duration strings ("15m") or whole seconds ("900").
func Duration(name string) (time.Duration, bool) {
	v, ok := String(name)
	if !ok {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// List splits a comma-separated value, dropping blanks.
func List(name string) ([]string, bool) {
	v, ok := String(name)
	if !ok {
		return nil, false
	}
	out := SplitList(v)
	return out, len(out) > 0
}

func SplitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}
