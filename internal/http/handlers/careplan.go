package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/http/response"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
	"github.com/yungbote/careplan-backend/internal/validation"
)

// Gateway is the subset of gateway.Service the handlers call.
type Gateway interface {
	GeneratePlan(ctx context.Context, profile domain.ClientProfile, systemPrompt string) (string, error)
	ScorePlan(ctx context.Context, plan, prompt string) (domain.QualityScorecard, error)
	EnhancePlan(ctx context.Context, plan, prompt string) (string, error)
}

type ContentResponse struct {
	Content string `json:"content"`
}

type CarePlanHandler struct {
	gw  Gateway
	v   *validation.Validator
	log *logger.Logger
}

func NewCarePlanHandler(gw Gateway, v *validation.Validator, log *logger.Logger) *CarePlanHandler {
	if v == nil {
		v = validation.New()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CarePlanHandler{gw: gw, v: v, log: log}
}

// POST /api/ai/care-plan
func (h *CarePlanHandler) GenerateCarePlan(c *gin.Context) {
	body, ok := h.readObject(c)
	if !ok {
		return
	}
	req, fieldErrs := h.v.CarePlan(body)
	if len(fieldErrs) > 0 {
		response.RespondError(c, apierr.Validation(fieldErrs))
		return
	}
	content, err := h.gw.GeneratePlan(c.Request.Context(), req.ClientData, req.Prompt)
	if err != nil {
		h.fail(c, "care-plan", err)
		return
	}
	response.RespondOK(c, ContentResponse{Content: content})
}

// POST /api/ai/assess-quality
func (h *CarePlanHandler) AssessQuality(c *gin.Context) {
	req, ok := h.readPlan(c)
	if !ok {
		return
	}
	card, err := h.gw.ScorePlan(c.Request.Context(), req.CarePlan, req.Prompt)
	if err != nil {
		h.fail(c, "assess-quality", err)
		return
	}
	response.RespondOK(c, card)
}

// POST /api/ai/enhance-research
func (h *CarePlanHandler) EnhanceResearch(c *gin.Context) {
	req, ok := h.readPlan(c)
	if !ok {
		return
	}
	content, err := h.gw.EnhancePlan(c.Request.Context(), req.CarePlan, req.Prompt)
	if err != nil {
		h.fail(c, "enhance-research", err)
		return
	}
	response.RespondOK(c, ContentResponse{Content: content})
}

func (h *CarePlanHandler) readPlan(c *gin.Context) (validation.PlanRequest, bool) {
	body, ok := h.readObject(c)
	if !ok {
		return validation.PlanRequest{}, false
	}
	req, fieldErrs := h.v.Plan(body)
	if len(fieldErrs) > 0 {
		response.RespondError(c, apierr.Validation(fieldErrs))
		return validation.PlanRequest{}, false
	}
	return req, true
}

func (h *CarePlanHandler) readObject(c *gin.Context) (map[string]any, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondStatus(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			return nil, false
		}
		response.RespondError(c, apierr.Validation([]apierr.FieldError{bodyError("Request body could not be read")}))
		return nil, false
	}
	body, err := validation.DecodeObject(raw)
	if err != nil {
		response.RespondError(c, apierr.Validation([]apierr.FieldError{bodyError("Request body must be a JSON object")}))
		return nil, false
	}
	return body, true
}

func (h *CarePlanHandler) fail(c *gin.Context, op string, err error) {
	e := apierr.From(err)
	log := h.log.Ctx(c.Request.Context())
	if e.Kind == apierr.KindUnhandled {
		log.Error("gateway operation failed", "operation", op, "error", err)
	} else {
		log.Warn("gateway operation failed", "operation", op, "kind", string(e.Kind), "error", err)
	}
	_ = c.Error(err)
	response.RespondError(c, e)
}

func bodyError(msg string) apierr.FieldError {
	return apierr.FieldError{Type: "field", Msg: msg, Path: "", Location: "body"}
}
