package middleware

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careplan-backend/internal/http/response"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
)

// Recover turns a handler panic into a generic 500 and logs it.
func Recover(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		err := fmt.Errorf("panic: %v", rec)
		if log != nil {
			log.Ctx(c.Request.Context()).Error("handler panic", "error", err, "path", c.Request.URL.Path)
		}
		response.RespondError(c, apierr.Unhandled(err))
	})
}
