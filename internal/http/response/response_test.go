package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careplan-backend/internal/platform/apierr"
)

func render(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondError(c, err)
	return rec
}

func TestRespondErrorWireFormats(t *testing.T) {
	rec := render(t, apierr.Validation([]apierr.FieldError{{Type: "field", Msg: "carePlan is required", Path: "carePlan", Location: "body"}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
	var v ValidationEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil || len(v.Errors) != 1 || v.Errors[0].Path != "carePlan" {
		t.Fatalf("body=%s err=%v", rec.Body.String(), err)
	}

	rec = render(t, apierr.Throttled("", 1500*time.Millisecond, nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("status=%d retry-after=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if rec.Body.String() != `{"error":"Too many requests, please try again later."}` {
		t.Fatalf("body=%s", rec.Body.String())
	}

	rec = render(t, apierr.Malformed(errors.New("no choices")))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", rec.Code)
	}
	var e ErrorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &e)
	if e.Error.Code != "upstream_malformed" || e.Error.Message != "invalid upstream response" {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	rec := render(t, errors.New("dial tcp 10.1.2.3:6379: connection refused"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Body.String() != `{"error":{"message":"Internal server error","code":"internal_error"}}` {
		t.Fatalf("body=%s", rec.Body.String())
	}
}
