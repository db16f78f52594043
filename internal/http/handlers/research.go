package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careplan-backend/internal/http/response"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/research"
	"github.com/yungbote/careplan-backend/internal/validation"
)

type Researcher interface {
	Lookup(ctx context.Context, conditions string) research.Findings
}

type ResearchHandler struct {
	rs Researcher
	v  *validation.Validator
}

func NewResearchHandler(rs Researcher, v *validation.Validator) *ResearchHandler {
	if v == nil {
		v = validation.New()
	}
	return &ResearchHandler{rs: rs, v: v}
}

// GET /api/research?q=
func (h *ResearchHandler) Lookup(c *gin.Context) {
	q, fieldErrs := h.v.ResearchQuery(c.Query("q"))
	if len(fieldErrs) > 0 {
		response.RespondError(c, apierr.Validation(fieldErrs))
		return
	}
	response.RespondOK(c, h.rs.Lookup(c.Request.Context(), q))
}
