package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(CORS(origins))
	r.POST("/api/ai/care-plan", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func preflight(r http.Handler, origin, method string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/ai/care-plan", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", method)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	r := corsRouter([]string{"http://localhost:3000", "https://care.example.org/"})
	for _, origin := range []string{"http://localhost:3000", "https://care.example.org"} {
		origin := origin
		t.Run(origin, func(t *testing.T) {
			rec := preflight(r, origin, http.MethodPost)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
				t.Fatalf("unexpected allow-origin header: got=%q want=%q", got, origin)
			}
		})
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	rec := preflight(corsRouter([]string{"http://localhost:3000"}), "http://evil.example", http.MethodPost)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusForbidden)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin leaked: %q", got)
	}
}

func TestCORSEmptyAllowListRejectsEverything(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	rec := preflight(corsRouter(nil), "http://localhost:3000", http.MethodPost)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got=%d", rec.Code)
	}
}
