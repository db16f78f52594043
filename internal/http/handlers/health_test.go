package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		deps   map[string]Pinger
		status int
		state  string
	}{
		{"no deps", nil, http.StatusOK, "ok"},
		{"redis up", map[string]Pinger{"redis": func(context.Context) error { return nil }}, http.StatusOK, "ok"},
		{"redis down", map[string]Pinger{"redis": func(context.Context) error { return errors.New("dial tcp: refused") }}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/readyz", NewHealthHandler(tc.deps).Ready)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rec.Code != tc.status {
			t.Fatalf("%s: status=%d want %d", tc.name, rec.Code, tc.status)
		}
		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if body.Status != tc.state {
			t.Fatalf("%s: status=%q want %q", tc.name, body.Status, tc.state)
		}
		if tc.state == "degraded" && body.Checks["redis"] != "down" {
			t.Fatalf("%s: checks=%v", tc.name, body.Checks)
		}
	}
}
