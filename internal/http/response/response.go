package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/platform/httpx"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// ValidationEnvelope is the 400 body: one entry per failing field.
type ValidationEnvelope struct {
	Errors []apierr.FieldError `json:"errors"`
}

// ThrottleEnvelope is the 429 body.
type ThrottleEnvelope struct {
	Error string `json:"error"`
}

// RespondError renders err in the wire format of its kind. Unclassified errors
// become a generic 500 so internals never leak.
func RespondError(c *gin.Context, err error) {
	e := apierr.From(err)
	if e == nil {
		e = apierr.Unhandled(errors.New("unknown error"))
	}
	switch e.Kind {
	case apierr.KindValidation:
		fields := e.Fields
		if fields == nil {
			fields = []apierr.FieldError{}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, ValidationEnvelope{Errors: fields})
	case apierr.KindThrottled:
		if e.RetryAfter > 0 {
			c.Header("Retry-After", httpx.RetryAfterSeconds(e.RetryAfter))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ThrottleEnvelope{Error: e.Message})
	case apierr.KindUnhandled:
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorEnvelope{
			Error: APIError{Message: "Internal server error", Code: string(apierr.KindUnhandled)},
		})
	default:
		c.AbortWithStatusJSON(e.Kind.Status(), ErrorEnvelope{
			Error: APIError{Message: e.Message, Code: string(e.Kind)},
		})
	}
}

// RespondStatus renders a plain error envelope for transport-level failures (404, 405, 413).
func RespondStatus(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: message, Code: code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
